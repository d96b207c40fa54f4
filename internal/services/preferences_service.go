package services

import (
	"errors"
	"fmt"

	"github.com/liamwears/movielist/internal/localstore"
	"github.com/liamwears/movielist/internal/models"
)

const preferencesKey = "userPreferences"

// PreferencesService persists display preferences on the device
type PreferencesService struct {
	store *localstore.Store
}

// NewPreferencesService creates a new PreferencesService
func NewPreferencesService(store *localstore.Store) *PreferencesService {
	return &PreferencesService{store: store}
}

// Load returns the saved preferences, or the defaults if none were saved
func (s *PreferencesService) Load() (models.Preferences, error) {
	prefs := models.DefaultPreferences()
	err := s.store.GetJSON(preferencesKey, &prefs)
	if errors.Is(err, localstore.ErrNotFound) {
		return models.DefaultPreferences(), nil
	}
	if err != nil {
		return models.DefaultPreferences(), fmt.Errorf("failed to load preferences: %w", err)
	}

	if err := validateStruct(prefs); err != nil {
		return models.DefaultPreferences(), fmt.Errorf("stored preferences are invalid: %w", err)
	}
	return prefs, nil
}

// Save replaces the saved preferences
func (s *PreferencesService) Save(prefs models.Preferences) error {
	if err := validateStruct(prefs); err != nil {
		return err
	}
	if err := s.store.SetJSON(preferencesKey, prefs); err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}
