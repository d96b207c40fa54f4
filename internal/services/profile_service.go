package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/liamwears/movielist/internal/blobstore"
	"github.com/liamwears/movielist/internal/docstore"
	"github.com/liamwears/movielist/internal/models"
)

const profileImageContentType = "image/jpeg"

// AccountRenamer keeps the account's display name in step with the profile
type AccountRenamer interface {
	Rename(ctx context.Context, name string) (*models.User, error)
}

// ProfileOption customizes a ProfileService
type ProfileOption func(*ProfileService)

// WithAccountRenamer renames the account whenever the profile name changes
func WithAccountRenamer(renamer AccountRenamer) ProfileOption {
	return func(s *ProfileService) {
		s.accounts = renamer
	}
}

// ProfileService manages the user's profile document and picture
type ProfileService struct {
	docs     docstore.Store
	blobs    blobstore.Store
	identity Identity
	accounts AccountRenamer
	logger   zerolog.Logger
}

// NewProfileService creates a new ProfileService
func NewProfileService(docs docstore.Store, blobs blobstore.Store, identity Identity, logger zerolog.Logger, opts ...ProfileOption) *ProfileService {
	s := &ProfileService{
		docs:     docs,
		blobs:    blobs,
		identity: identity,
		logger:   logger.With().Str("component", "profile").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Update sets the display name and, when image is non-empty, uploads it as
// the profile picture
func (s *ProfileService) Update(ctx context.Context, name string, image []byte) (*models.Profile, error) {
	uid, ok := s.identity.CurrentUserID()
	if !ok {
		return nil, ErrNotAuthenticated
	}

	name = strings.TrimSpace(name)
	if len(name) > 100 {
		return nil, fmt.Errorf("%w: name is longer than 100 characters", ErrInvalidInput)
	}

	update := map[string]any{"name": name}
	profile := &models.Profile{Name: name}

	if len(image) > 0 {
		path := fmt.Sprintf("profile_images/%s.jpg", uid)
		url, err := s.blobs.Put(ctx, path, image, profileImageContentType)
		if err != nil {
			return nil, fmt.Errorf("failed to upload profile image: %w", err)
		}
		update["profileImageURL"] = url
		profile.ProfileImageURL = &url
	}

	if err := s.docs.Set(ctx, "users", uid, update, docstore.WithServerTimestamp("lastUpdated")); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	if s.accounts != nil && name != "" {
		if _, err := s.accounts.Rename(ctx, name); err != nil {
			return nil, err
		}
	}

	if profile.ProfileImageURL == nil {
		current, err := s.Load(ctx)
		if err == nil {
			profile.ProfileImageURL = current.ProfileImageURL
		}
	}

	s.logger.Info().Bool("image", len(image) > 0).Msg("profile updated")
	return profile, nil
}

// Load returns the profile, empty when none was saved
func (s *ProfileService) Load(ctx context.Context) (*models.Profile, error) {
	uid, ok := s.identity.CurrentUserID()
	if !ok {
		return nil, ErrNotAuthenticated
	}

	doc, err := s.docs.Get(ctx, "users", uid)
	if errors.Is(err, docstore.ErrNotFound) {
		return &models.Profile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	var profile models.Profile
	if err := doc.Decode(&profile); err != nil {
		return nil, err
	}
	return &profile, nil
}
