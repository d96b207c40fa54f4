package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/liamwears/movielist/internal/database"
	"github.com/liamwears/movielist/internal/localstore"
	"github.com/liamwears/movielist/internal/models"
)

const activeSessionKey = "activeSession"

// ErrInvalidCredentials is returned when email or password do not match
var ErrInvalidCredentials = errors.New("invalid email or password")

// UserRepository stores accounts
type UserRepository interface {
	Create(ctx context.Context, email, name string, passwordHash []byte) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateName(ctx context.Context, id uuid.UUID, name string) (*models.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// SessionBackend stores server-side sessions
type SessionBackend interface {
	GenerateSessionID() (string, error)
	Set(ctx context.Context, sessionID string, userID uuid.UUID) error
	Get(ctx context.Context, sessionID string) (uuid.UUID, error)
	Delete(ctx context.Context, sessionID string) error
}

// AuthOption customizes an AuthService
type AuthOption func(*AuthService)

// WithBcryptCost sets the password hashing cost
func WithBcryptCost(cost int) AuthOption {
	return func(s *AuthService) {
		s.bcryptCost = cost
	}
}

// AuthService signs users in and out and remembers the active session on
// the device
type AuthService struct {
	users      UserRepository
	sessions   SessionBackend
	local      *localstore.Store
	bcryptCost int
	logger     zerolog.Logger

	mu        sync.RWMutex
	current   *models.User
	sessionID string
}

// NewAuthService creates a new AuthService
func NewAuthService(users UserRepository, sessions SessionBackend, local *localstore.Store, logger zerolog.Logger, opts ...AuthOption) *AuthService {
	s := &AuthService{
		users:      users,
		sessions:   sessions,
		local:      local,
		bcryptCost: bcrypt.DefaultCost,
		logger:     logger.With().Str("component", "auth").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CurrentUserID returns the signed-in user's id
func (s *AuthService) CurrentUserID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return "", false
	}
	return s.current.ID.String(), true
}

// CurrentUser returns the signed-in user, or nil
func (s *AuthService) CurrentUser() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return nil
	}
	u := *s.current
	return &u
}

// SignUp creates an account and signs it in
func (s *AuthService) SignUp(ctx context.Context, input models.SignUpInput) (*models.User, error) {
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.Create(ctx, input.Email, input.Name, hash)
	if err != nil {
		return nil, err
	}

	if err := s.startSession(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID.String()).Msg("account created")
	return user, nil
}

// SignIn checks the credentials and starts a session
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := s.startSession(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID.String()).Msg("signed in")
	return user, nil
}

// SignOut ends the session on the server and on the device
func (s *AuthService) SignOut(ctx context.Context) error {
	s.mu.Lock()
	sessionID := s.sessionID
	s.current = nil
	s.sessionID = ""
	s.mu.Unlock()

	if sessionID != "" {
		if err := s.sessions.Delete(ctx, sessionID); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
	}
	if err := s.local.Delete(activeSessionKey); err != nil {
		return fmt.Errorf("failed to forget session: %w", err)
	}
	return nil
}

// Rename changes the signed-in user's display name
func (s *AuthService) Rename(ctx context.Context, name string) (*models.User, error) {
	current := s.CurrentUser()
	if current == nil {
		return nil, ErrNotAuthenticated
	}

	user, err := s.users.UpdateName(ctx, current.ID, strings.TrimSpace(name))
	if err != nil {
		return nil, fmt.Errorf("failed to rename user: %w", err)
	}

	s.mu.Lock()
	if s.current != nil && s.current.ID == user.ID {
		s.current = user
	}
	s.mu.Unlock()
	return user, nil
}

// DeleteAccount removes the signed-in user's account and signs out
func (s *AuthService) DeleteAccount(ctx context.Context) error {
	current := s.CurrentUser()
	if current == nil {
		return ErrNotAuthenticated
	}

	if err := s.users.Delete(ctx, current.ID); err != nil && !errors.Is(err, ErrUserNotFound) {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	s.logger.Info().Str("user_id", current.ID.String()).Msg("account deleted")
	return s.SignOut(ctx)
}

// Restore resumes the session saved on the device. It returns nil without
// error when there is nothing to restore.
func (s *AuthService) Restore(ctx context.Context) (*models.User, error) {
	raw, err := s.local.Get(activeSessionKey)
	if errors.Is(err, localstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read saved session: %w", err)
	}
	sessionID := string(raw)

	userID, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, database.ErrSessionNotFound) {
		s.logger.Info().Msg("saved session expired")
		return nil, s.local.Delete(activeSessionKey)
	}
	if err != nil {
		return nil, err
	}

	user, err := s.users.Get(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return nil, s.local.Delete(activeSessionKey)
	}
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.current = user
	s.sessionID = sessionID
	s.mu.Unlock()

	s.logger.Info().Str("user_id", user.ID.String()).Msg("session restored")
	return user, nil
}

func (s *AuthService) startSession(ctx context.Context, user *models.User) error {
	sessionID, err := s.sessions.GenerateSessionID()
	if err != nil {
		return err
	}
	if err := s.sessions.Set(ctx, sessionID, user.ID); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	if err := s.local.Set(activeSessionKey, []byte(sessionID)); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	s.mu.Lock()
	s.current = user
	s.sessionID = sessionID
	s.mu.Unlock()
	return nil
}
