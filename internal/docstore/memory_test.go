package docstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type movieDoc struct {
	Title       string  `json:"title,omitempty"`
	IsFavorite  *bool   `json:"isFavorite,omitempty"`
	LastUpdated string  `json:"lastUpdated,omitempty"`
	VoteAverage float64 `json:"voteAverage,omitempty"`
}

func boolPtr(b bool) *bool { return &b }

func setupMemoryStore(t *testing.T) (*MemoryStore, func()) {
	t.Helper()
	store := NewMemoryStore()
	store.now = func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }
	return store, func() {}
}

func TestMemoryStore_GetMissing(t *testing.T) {
	store, cleanup := setupMemoryStore(t)
	defer cleanup()

	_, err := store.Get(context.Background(), "users/u1/movies", "550")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_SetMergesByDefault(t *testing.T) {
	store, cleanup := setupMemoryStore(t)
	defer cleanup()
	ctx := context.Background()
	coll := Path("users", "u1", "movies")

	require.NoError(t, store.Set(ctx, coll, "550", movieDoc{Title: "Fight Club", VoteAverage: 8.4}))
	require.NoError(t, store.Set(ctx, coll, "550", movieDoc{IsFavorite: boolPtr(true)}))

	doc, err := store.Get(ctx, coll, "550")
	require.NoError(t, err)

	var got movieDoc
	require.NoError(t, doc.Decode(&got))
	assert.Equal(t, "Fight Club", got.Title)
	assert.Equal(t, 8.4, got.VoteAverage)
	require.NotNil(t, got.IsFavorite)
	assert.True(t, *got.IsFavorite)
}

func TestMemoryStore_Overwrite(t *testing.T) {
	store, cleanup := setupMemoryStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "c", "1", movieDoc{Title: "Old"}))
	require.NoError(t, store.Set(ctx, "c", "1", movieDoc{VoteAverage: 7}, Overwrite()))

	doc, err := store.Get(ctx, "c", "1")
	require.NoError(t, err)
	var got movieDoc
	require.NoError(t, doc.Decode(&got))
	assert.Empty(t, got.Title)
	assert.Equal(t, 7.0, got.VoteAverage)
}

func TestMemoryStore_ServerTimestamp(t *testing.T) {
	store, cleanup := setupMemoryStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "users", "u1", map[string]string{"name": "Ann"}, WithServerTimestamp("lastUpdated")))

	doc, err := store.Get(ctx, "users", "u1")
	require.NoError(t, err)
	var got movieDoc
	require.NoError(t, doc.Decode(&got))
	assert.Equal(t, "2025-06-15T12:00:00Z", got.LastUpdated)
}

func TestMemoryStore_ListAddDelete(t *testing.T) {
	store, cleanup := setupMemoryStore(t)
	defer cleanup()
	ctx := context.Background()
	coll := Path("users", "u1", "favorites")

	require.NoError(t, store.Set(ctx, coll, "2", map[string]int{"movieId": 2}))
	require.NoError(t, store.Set(ctx, coll, "1", map[string]int{"movieId": 1}))
	id, err := store.Add(ctx, Path("users", "u1", "lists"), map[string]string{"name": "Weekend"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	docs, err := store.List(ctx, coll)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "1", docs[0].ID)
	assert.Equal(t, "2", docs[1].ID)

	require.NoError(t, store.Delete(ctx, coll, "1"))
	require.NoError(t, store.Delete(ctx, coll, "1"))

	docs, err = store.List(ctx, coll)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestMemoryStore_RejectsInvalidInput(t *testing.T) {
	store, cleanup := setupMemoryStore(t)
	defer cleanup()
	ctx := context.Background()

	assert.Error(t, store.Set(ctx, "c", "", movieDoc{}))
	assert.Error(t, store.Set(ctx, "c", "a/b", movieDoc{}))
	assert.Error(t, store.Set(ctx, "c", "1", []int{1, 2}))
}
