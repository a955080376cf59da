package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRoundTrip(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	store := NewMemory(clock)
	ctx := context.Background()

	payload := []byte(`{"records":[],"provenance":{"datasetId":"incidents"}}`)
	require.NoError(t, store.Write(ctx, "incidents", payload))

	entry, err := store.Read(ctx, "incidents")
	require.NoError(t, err)
	assert.Equal(t, payload, entry.Data)
	assert.Equal(t, clock.Now().UTC(), entry.StoredAt)
}

func TestMemoryMiss(t *testing.T) {
	store := NewMemory(nil)
	_, err := store.Read(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryWholesaleReplace(t *testing.T) {
	store := NewMemory(nil)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "k", []byte("first")))
	require.NoError(t, store.Write(ctx, "k", []byte("second")))

	entry, err := store.Read(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), entry.Data)
}

func TestSQLiteRoundTrip(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "cache.db"), clock)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	payload := []byte(`{"records":[{"id":"a"}],"provenance":{"datasetId":"transit"}}`)

	require.NoError(t, store.Write(ctx, "transit", payload))
	entry, err := store.Read(ctx, "transit")
	require.NoError(t, err)
	assert.Equal(t, payload, entry.Data)
	assert.Equal(t, clock.Now().Unix(), entry.StoredAt.Unix())

	// Overwrite replaces wholesale.
	require.NoError(t, store.Write(ctx, "transit", []byte("v2")))
	entry, err = store.Read(ctx, "transit")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), entry.Data)
}

func TestSQLiteMiss(t *testing.T) {
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "cache.db"), nil)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	_, err = store.Read(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	store, err := OpenSQLite(path, nil)
	require.NoError(t, err)
	require.NoError(t, store.Write(ctx, "k", []byte("survives")))
	require.NoError(t, store.Close())

	reopened, err := OpenSQLite(path, nil)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	entry, err := reopened.Read(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("survives"), entry.Data)
}
