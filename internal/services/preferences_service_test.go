package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamwears/movielist/internal/localstore"
	"github.com/liamwears/movielist/internal/models"
)

func setupLocal(t *testing.T) (*localstore.Store, func()) {
	t.Helper()
	store, err := localstore.OpenInMemory()
	require.NoError(t, err)
	return store, func() { _ = store.Close() }
}

func TestPreferencesService_DefaultsWhenEmpty(t *testing.T) {
	local, cleanup := setupLocal(t)
	defer cleanup()

	prefs, err := NewPreferencesService(local).Load()
	require.NoError(t, err)
	assert.Equal(t, models.ViewGrid, prefs.DefaultView)
	assert.Equal(t, models.SortTitleAZ, prefs.SortPreference)
}

func TestPreferencesService_SaveLoad(t *testing.T) {
	local, cleanup := setupLocal(t)
	defer cleanup()
	svc := NewPreferencesService(local)

	want := models.Preferences{DefaultView: models.ViewList, SortPreference: models.SortRatingHighLow}
	require.NoError(t, svc.Save(want))

	got, err := svc.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	raw, err := local.Get("userPreferences")
	require.NoError(t, err)
	assert.JSONEq(t, `{"defaultView":"list","sortPreference":"ratingHighLow"}`, string(raw))
}

func TestPreferencesService_RejectsInvalid(t *testing.T) {
	local, cleanup := setupLocal(t)
	defer cleanup()
	svc := NewPreferencesService(local)

	err := svc.Save(models.Preferences{DefaultView: "carousel", SortPreference: models.SortCustom})
	assert.ErrorIs(t, err, ErrInvalidInput)

	require.NoError(t, local.Set("userPreferences", []byte(`{"defaultView":"grid","sortPreference":"byMood"}`)))
	prefs, err := svc.Load()
	assert.Error(t, err)
	assert.Equal(t, models.DefaultPreferences(), prefs)
}
