package report

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postgresStore(t *testing.T) *PostgresStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	pool, err := pgxpool.New(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	store, err := NewPostgresStore(context.Background(), pool)
	require.NoError(t, err)
	return store
}

func TestPostgresStoreRoundtrip(t *testing.T) {
	ctx := context.Background()
	store := postgresStore(t)

	r := New("pg momentum", "integration", "rank(close)",
		json.RawMessage(`{"metrics":{"score":66,"sharpe":1.1}}`))
	t.Cleanup(func() { _ = store.Delete(ctx, r.ID) })

	require.NoError(t, store.Save(ctx, r))

	got, err := store.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
	assert.Equal(t, "pg momentum", got.Name)
	assert.Equal(t, "rank(close)", got.Expression)
	// timestamptz keeps microseconds, so allow a small roundtrip delta.
	assert.WithinDuration(t, r.CreatedAt, got.CreatedAt, time.Millisecond)
	assert.JSONEq(t, string(r.Data), string(got.Data))

	// Saving the same ID updates in place.
	r.Name = "pg momentum v2"
	require.NoError(t, store.Save(ctx, r))
	got, err = store.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "pg momentum v2", got.Name)

	reports, err := store.List(ctx)
	require.NoError(t, err)
	found := false
	for _, item := range reports {
		if item.ID == r.ID {
			found = true
		}
	}
	assert.True(t, found)

	require.NoError(t, store.Delete(ctx, r.ID))
	_, err = store.Get(ctx, r.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, r.ID), ErrNotFound)
}

func TestPostgresStoreMissing(t *testing.T) {
	ctx := context.Background()
	store := postgresStore(t)

	_, err := store.Get(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Get(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
}
