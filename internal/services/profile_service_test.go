package services

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamwears/movielist/internal/blobstore"
	"github.com/liamwears/movielist/internal/docstore"
	"github.com/liamwears/movielist/internal/models"
)

type recordingRenamer struct {
	names []string
	err   error
}

func (r *recordingRenamer) Rename(_ context.Context, name string) (*models.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.names = append(r.names, name)
	return &models.User{Name: name}, nil
}

func TestProfileService_Update(t *testing.T) {
	docs := docstore.NewMemoryStore()
	blobs := blobstore.NewMemoryStore("https://cdn.example.com")
	svc := NewProfileService(docs, blobs, staticIdentity{uid: "u1"}, zerolog.Nop())
	ctx := context.Background()

	empty, err := svc.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty.Name)

	profile, err := svc.Update(ctx, "Ann", []byte{0xff, 0xd8, 0xff})
	require.NoError(t, err)
	require.NotNil(t, profile.ProfileImageURL)
	assert.Equal(t, "https://cdn.example.com/profile_images/u1.jpg", *profile.ProfileImageURL)

	_, contentType, err := blobs.Get(ctx, "profile_images/u1.jpg")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", contentType)

	// a name-only update keeps the picture
	profile, err = svc.Update(ctx, "Ann Lee", nil)
	require.NoError(t, err)
	require.NotNil(t, profile.ProfileImageURL)

	loaded, err := svc.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ann Lee", loaded.Name)
	assert.Equal(t, profile.ProfileImageURL, loaded.ProfileImageURL)

	doc, err := docs.Get(ctx, "users", "u1")
	require.NoError(t, err)
	assert.Contains(t, string(doc.Data), "lastUpdated")
}

func TestProfileService_NotAuthenticated(t *testing.T) {
	svc := NewProfileService(docstore.NewMemoryStore(), blobstore.NewMemoryStore(""), staticIdentity{}, zerolog.Nop())

	_, err := svc.Update(context.Background(), "Ann", nil)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestProfileService_UpdateRenamesAccount(t *testing.T) {
	renamer := &recordingRenamer{}
	svc := NewProfileService(docstore.NewMemoryStore(), blobstore.NewMemoryStore(""), staticIdentity{uid: "u1"}, zerolog.Nop(), WithAccountRenamer(renamer))
	ctx := context.Background()

	_, err := svc.Update(ctx, " Ann ", nil)
	require.NoError(t, err)
	_, err = svc.Update(ctx, "", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ann"}, renamer.names)

	renamer.err = ErrUserNotFound
	_, err = svc.Update(ctx, "Ann Lee", nil)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
