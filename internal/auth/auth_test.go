package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/pauljones0/maodevaca/internal/models"
)

type fakeProvider struct {
	users     map[string]string
	resets    []string
	redirects []string
	signUpErr error
	resetErr  error
}

func (f *fakeProvider) SignIn(_ context.Context, email, password string) (*models.Identity, error) {
	if pw, ok := f.users[email]; !ok || pw != password {
		return nil, ErrInvalidCredentials
	}
	return &models.Identity{UserID: "uid-" + email, Email: email}, nil
}

func (f *fakeProvider) SignUp(_ context.Context, email, password, redirectURL string) (*models.Identity, error) {
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	f.users[email] = password
	f.redirects = append(f.redirects, redirectURL)
	return &models.Identity{UserID: "uid-" + email, Email: email}, nil
}

func (f *fakeProvider) SendPasswordReset(_ context.Context, email, redirectURL string) error {
	f.resets = append(f.resets, email)
	f.redirects = append(f.redirects, redirectURL)
	return f.resetErr
}

type fakeProfiles struct {
	profiles map[string]*models.UserProfile
	getErr   error
	created  int
}

func (f *fakeProfiles) GetProfile(_ context.Context, userID string) (*models.UserProfile, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	p, ok := f.profiles[userID]
	if !ok {
		return nil, models.ErrProfileNotFound
	}
	copy := *p
	return &copy, nil
}

func (f *fakeProfiles) CreateProfile(_ context.Context, userID, email string) error {
	if _, ok := f.profiles[userID]; ok {
		return nil
	}
	f.created++
	f.profiles[userID] = &models.UserProfile{ID: userID, Email: email, Role: models.RoleUser}
	return nil
}

func newTestService() (*Service, *fakeProvider, *fakeProfiles) {
	provider := &fakeProvider{users: map[string]string{"ana@example.com": "segredo"}}
	profiles := &fakeProfiles{profiles: map[string]*models.UserProfile{}}
	return NewService(provider, profiles, NewSessions(time.Hour), "https://maodevaca.example"), provider, profiles
}

func TestSignInAndCurrentProfile(t *testing.T) {
	svc, _, profiles := newTestService()
	ctx := context.Background()

	if _, _, err := svc.SignIn(ctx, "ana@example.com", "errada"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("SignIn() with wrong password error = %v", err)
	}

	token, id, err := svc.SignIn(ctx, " ana@example.com ", "segredo")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if token == "" || id.UserID != "uid-ana@example.com" {
		t.Fatalf("SignIn() = %q, %+v", token, id)
	}
	if profiles.created != 1 {
		t.Errorf("sign-in should ensure a profile exists, created = %d", profiles.created)
	}

	profile := svc.CurrentProfile(ctx, token)
	if profile == nil || profile.Role != models.RoleUser || profile.IsBanned {
		t.Fatalf("CurrentProfile() = %+v", profile)
	}

	// Profile changes are visible immediately.
	profiles.profiles[id.UserID].IsBanned = true
	if p := svc.CurrentProfile(ctx, token); p == nil || !p.IsBanned {
		t.Errorf("CurrentProfile() should re-read the ban flag, got %+v", p)
	}
}

func TestCurrentProfile_FailsClosed(t *testing.T) {
	svc, _, profiles := newTestService()
	ctx := context.Background()

	if p := svc.CurrentProfile(ctx, ""); p != nil {
		t.Errorf("no session should yield nil, got %+v", p)
	}
	if p := svc.CurrentProfile(ctx, "not-a-token"); p != nil {
		t.Errorf("unknown token should yield nil, got %+v", p)
	}

	token, _, err := svc.SignIn(ctx, "ana@example.com", "segredo")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	profiles.getErr = errors.New("deadline exceeded")
	if p := svc.CurrentProfile(ctx, token); p != nil {
		t.Errorf("lookup failure should yield nil, got %+v", p)
	}
}

func TestSignOut_Idempotent(t *testing.T) {
	svc, _, _ := newTestService()
	token, _, err := svc.SignIn(context.Background(), "ana@example.com", "segredo")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	svc.SignOut(token)
	svc.SignOut(token)
	svc.SignOut("")
	if svc.Identity(token) != nil {
		t.Error("session should be gone after sign-out")
	}
}

func TestSignUp(t *testing.T) {
	svc, provider, profiles := newTestService()
	ctx := context.Background()

	id, err := svc.SignUp(ctx, "novo@example.com", "123456")
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	p := profiles.profiles[id.UserID]
	if p == nil || p.Role != models.RoleUser {
		t.Fatalf("SignUp() should create a user profile, got %+v", p)
	}
	if len(provider.redirects) != 1 || provider.redirects[0] != "https://maodevaca.example" {
		t.Errorf("verification redirect = %v", provider.redirects)
	}

	if _, err := svc.SignUp(ctx, "x@example.com", "123"); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("short password error = %v, want ErrInvalidInput", err)
	}

	provider.signUpErr = ErrEmailExists
	if _, err := svc.SignUp(ctx, "novo@example.com", "123456"); !errors.Is(err, ErrEmailExists) {
		t.Errorf("duplicate sign-up error = %v, want ErrEmailExists", err)
	}
}

func TestRequestPasswordReset(t *testing.T) {
	svc, provider, _ := newTestService()
	if err := svc.RequestPasswordReset(context.Background(), "ana@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset() error = %v", err)
	}
	if len(provider.resets) != 1 || provider.redirects[0] != "https://maodevaca.example" {
		t.Errorf("reset not sent with redirect: %v %v", provider.resets, provider.redirects)
	}
	if err := svc.RequestPasswordReset(context.Background(), " "); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("empty email error = %v, want ErrInvalidInput", err)
	}
}

func TestNoProvider(t *testing.T) {
	svc := NewService(nil, &fakeProfiles{profiles: map[string]*models.UserProfile{}}, NewSessions(time.Hour), "")
	if _, _, err := svc.SignIn(context.Background(), "a@b.c", "x"); !errors.Is(err, models.ErrUnconfigured) {
		t.Errorf("SignIn() error = %v, want ErrUnconfigured", err)
	}
	if _, err := svc.SignUp(context.Background(), "a@b.c", "123456"); !errors.Is(err, models.ErrUnconfigured) {
		t.Errorf("SignUp() error = %v, want ErrUnconfigured", err)
	}
}

func TestSessions_Expiry(t *testing.T) {
	s := NewSessions(time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	token := s.Create(models.Identity{UserID: "u1"})
	if id, ok := s.Lookup(token); !ok || id.UserID != "u1" {
		t.Fatalf("Lookup() = %+v, %v", id, ok)
	}

	now = now.Add(time.Minute)
	if _, ok := s.Lookup(token); ok {
		t.Error("session should expire at its TTL")
	}

	s.Create(models.Identity{UserID: "u2"})
	now = now.Add(2 * time.Minute)
	s.Create(models.Identity{UserID: "u3"})
	if s.Len() != 1 {
		t.Errorf("expired sessions should be pruned on create, Len() = %d", s.Len())
	}
}

func TestMapProviderError(t *testing.T) {
	tests := []struct {
		msg  string
		want error
	}{
		{"EMAIL_NOT_FOUND", ErrInvalidCredentials},
		{"INVALID_PASSWORD", ErrInvalidCredentials},
		{"INVALID_LOGIN_CREDENTIALS", ErrInvalidCredentials},
		{"EMAIL_EXISTS", ErrEmailExists},
		{"WEAK_PASSWORD : Password should be at least 6 characters", ErrWeakPassword},
	}
	for _, tt := range tests {
		err := mapProviderError(&googleapi.Error{Code: http.StatusBadRequest, Message: tt.msg})
		if !errors.Is(err, tt.want) {
			t.Errorf("mapProviderError(%q) = %v, want %v", tt.msg, err, tt.want)
		}
	}

	plain := errors.New("dial tcp: timeout")
	if got := mapProviderError(plain); got != plain {
		t.Errorf("non-API errors should pass through, got %v", got)
	}
}
