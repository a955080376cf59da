package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS payloads (
	key       TEXT PRIMARY KEY,
	data      BLOB NOT NULL,
	stored_at INTEGER NOT NULL
);`

// SQLite is a persistent Store backed by a single sqlite file, so cached
// payloads survive process restarts for offline operation.
type SQLite struct {
	db    *sql.DB
	clock clockwork.Clock
}

func OpenSQLite(path string, clock clockwork.Clock) (*SQLite, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init cache schema: %w", err)
	}
	return &SQLite{db: db, clock: clock}, nil
}

func (s *SQLite) Read(ctx context.Context, key string) (Entry, error) {
	var data []byte
	var storedAt int64
	err := s.db.QueryRowContext(ctx, `SELECT data, stored_at FROM payloads WHERE key = ?`, key).Scan(&data, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrMiss
	}
	if err != nil {
		return Entry{}, fmt.Errorf("read cache entry %q: %w", key, err)
	}
	return Entry{Data: data, StoredAt: time.Unix(storedAt, 0).UTC()}, nil
}

func (s *SQLite) Write(ctx context.Context, key string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payloads (key, data, stored_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, stored_at = excluded.stored_at`,
		key, data, s.clock.Now().Unix())
	if err != nil {
		return fmt.Errorf("write cache entry %q: %w", key, err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
