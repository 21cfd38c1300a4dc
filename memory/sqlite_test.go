package memory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	first := NewFragment("plan", "look at config", "", "")
	second := NewFragment("read_file", "package main", "file", "main.go", "go", "entrypoint")
	require.NoError(t, store.Append(ctx, first))
	require.NoError(t, store.Append(ctx, second))

	got, err := store.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, first.ID, got[0].ID)
	assert.Nil(t, got[0].Metadata)

	assert.Equal(t, "package main", got[1].Content)
	require.NotNil(t, got[1].Metadata)
	assert.Equal(t, "main.go", got[1].Metadata.Path)
	assert.Equal(t, []string{"go", "entrypoint"}, got[1].Metadata.Tags)
	assert.True(t, second.Metadata.Timestamp.Equal(got[1].Metadata.Timestamp))
}

func TestSQLiteStoreClear(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.Append(ctx, NewFragment("a", "1", "", "")))
	require.NoError(t, store.Clear(ctx))

	got, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLiteStoreReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "memory.db")

	store, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, NewFragment("a", "persisted", "", "")))
	require.NoError(t, store.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	m := New(WithSink(reopened))
	require.NoError(t, m.Load(ctx))
	snap := m.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "persisted", snap[0].Content)
}
