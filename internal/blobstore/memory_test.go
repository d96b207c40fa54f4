package blobstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_PutGet(t *testing.T) {
	store := NewMemoryStore("https://cdn.example.com/blobs/")
	ctx := context.Background()

	url, err := store.Put(ctx, "profile_images/u1.jpg", []byte{0xff, 0xd8}, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/blobs/profile_images/u1.jpg", url)

	data, contentType, err := store.Get(ctx, "profile_images/u1.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8}, data)
	assert.Equal(t, "image/jpeg", contentType)
}

func TestMemoryStore_Errors(t *testing.T) {
	store := NewMemoryStore("http://localhost")
	ctx := context.Background()

	_, _, err := store.Get(ctx, "missing.jpg")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Put(ctx, "", nil, "image/jpeg")
	assert.Error(t, err)
}
