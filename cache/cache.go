package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Read when no entry exists for the key.
var ErrMiss = errors.New("cache: miss")

// Entry is one stored payload with its storage timestamp.
type Entry struct {
	Data     []byte
	StoredAt time.Time
}

// Store is the cache façade: read the last payload for a dataset, or
// replace it wholesale. Implementations impose no schema on the data
// beyond "it includes provenance".
type Store interface {
	Read(ctx context.Context, key string) (Entry, error)
	Write(ctx context.Context, key string, data []byte) error
}
