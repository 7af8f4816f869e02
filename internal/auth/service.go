// Package auth resolves who is calling. It keeps sessions in memory and
// never caches profiles: CurrentProfile reads the store on every call.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pauljones0/maodevaca/internal/models"
)

// ProfileStore is the part of the store the session accessor needs.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	CreateProfile(ctx context.Context, userID, email string) error
}

type Service struct {
	provider    Provider
	profiles    ProfileStore
	sessions    *Sessions
	redirectURL string
}

// NewService wires the accessor. A nil provider leaves sign-in unavailable
// while sessions and profile lookups keep working.
func NewService(p Provider, profiles ProfileStore, sessions *Sessions, redirectURL string) *Service {
	return &Service{
		provider:    p,
		profiles:    profiles,
		sessions:    sessions,
		redirectURL: redirectURL,
	}
}

// Identity returns the caller behind token, or nil without a live session.
func (s *Service) Identity(token string) *models.Identity {
	id, ok := s.sessions.Lookup(token)
	if !ok {
		return nil
	}
	return &id
}

// CurrentProfile returns the live profile for token. It returns nil when there
// is no session and also when the lookup fails, so a failed read is never
// mistaken for an unbanned account.
func (s *Service) CurrentProfile(ctx context.Context, token string) *models.UserProfile {
	id := s.Identity(token)
	if id == nil {
		return nil
	}
	profile, err := s.profiles.GetProfile(ctx, id.UserID)
	if err != nil {
		slog.Warn("Failed to load current profile", "user_id", id.UserID, "error", err)
		return nil
	}
	return profile
}

// SignIn checks credentials and opens a session.
func (s *Service) SignIn(ctx context.Context, email, password string) (string, *models.Identity, error) {
	if s.provider == nil {
		return "", nil, models.ErrUnconfigured
	}
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", nil, fmt.Errorf("%w: email and password are required", models.ErrInvalidInput)
	}
	id, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		return "", nil, err
	}
	// Accounts created before profiles existed get one on first sign-in.
	if err := s.profiles.CreateProfile(ctx, id.UserID, id.Email); err != nil {
		slog.Warn("Failed to ensure profile on sign-in", "user_id", id.UserID, "error", err)
	}
	token := s.sessions.Create(*id)
	slog.Info("User signed in", "user_id", id.UserID)
	return token, id, nil
}

// SignUp registers an account with role user. No session is opened: the
// account signs in after following the verification mail.
func (s *Service) SignUp(ctx context.Context, email, password string) (*models.Identity, error) {
	if s.provider == nil {
		return nil, models.ErrUnconfigured
	}
	email = strings.TrimSpace(email)
	if email == "" || len(password) < 6 {
		return nil, fmt.Errorf("%w: email and a password of at least 6 characters are required", models.ErrInvalidInput)
	}
	id, err := s.provider.SignUp(ctx, email, password, s.redirectURL)
	if err != nil {
		return nil, err
	}
	if err := s.profiles.CreateProfile(ctx, id.UserID, id.Email); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	slog.Info("User signed up", "user_id", id.UserID)
	return id, nil
}

// RequestPasswordReset mails a reset link that returns to the app.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	if s.provider == nil {
		return models.ErrUnconfigured
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", models.ErrInvalidInput)
	}
	return s.provider.SendPasswordReset(ctx, email, s.redirectURL)
}

// SignOut ends the session. Calling it twice, or with an unknown token, is fine.
func (s *Service) SignOut(token string) {
	s.sessions.Delete(token)
}
