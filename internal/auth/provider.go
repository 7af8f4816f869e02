package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"

	"github.com/pauljones0/maodevaca/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailExists        = errors.New("email already registered")
	ErrWeakPassword       = errors.New("password too weak")
)

// Provider is the hosted identity service.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (*models.Identity, error)
	// SignUp registers the account and sends a verification mail that
	// returns the user to redirectURL.
	SignUp(ctx context.Context, email, password, redirectURL string) (*models.Identity, error)
	SendPasswordReset(ctx context.Context, email, redirectURL string) error
}

// IdentityToolkit is the Firebase Auth backed Provider.
type IdentityToolkit struct {
	svc *identitytoolkit.RelyingpartyService
}

func NewIdentityToolkit(ctx context.Context, apiKey string) (*IdentityToolkit, error) {
	svc, err := identitytoolkit.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("identitytoolkit.NewService: %w", err)
	}
	return &IdentityToolkit{svc: svc.Relyingparty}, nil
}

func (p *IdentityToolkit) SignIn(ctx context.Context, email, password string) (*models.Identity, error) {
	resp, err := p.svc.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return nil, mapProviderError(err)
	}
	return &models.Identity{UserID: resp.LocalId, Email: resp.Email}, nil
}

func (p *IdentityToolkit) SignUp(ctx context.Context, email, password, redirectURL string) (*models.Identity, error) {
	resp, err := p.svc.SignupNewUser(&identitytoolkit.IdentitytoolkitRelyingpartySignupNewUserRequest{
		Email:    email,
		Password: password,
	}).Context(ctx).Do()
	if err != nil {
		return nil, mapProviderError(err)
	}

	_, err = p.svc.GetOobConfirmationCode(&identitytoolkit.Relyingparty{
		RequestType: "VERIFY_EMAIL",
		IdToken:     resp.IdToken,
		ContinueUrl: redirectURL,
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("send verification email: %w", mapProviderError(err))
	}
	return &models.Identity{UserID: resp.LocalId, Email: resp.Email}, nil
}

func (p *IdentityToolkit) SendPasswordReset(ctx context.Context, email, redirectURL string) error {
	_, err := p.svc.GetOobConfirmationCode(&identitytoolkit.Relyingparty{
		RequestType: "PASSWORD_RESET",
		Email:       email,
		ContinueUrl: redirectURL,
	}).Context(ctx).Do()
	if err != nil {
		return mapProviderError(err)
	}
	return nil
}

// mapProviderError turns Identity Toolkit error messages into sentinels.
func mapProviderError(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	msg := apiErr.Message
	switch {
	case strings.HasPrefix(msg, "EMAIL_NOT_FOUND"),
		strings.HasPrefix(msg, "INVALID_PASSWORD"),
		strings.HasPrefix(msg, "INVALID_LOGIN_CREDENTIALS"),
		strings.HasPrefix(msg, "USER_DISABLED"),
		strings.HasPrefix(msg, "INVALID_EMAIL"):
		return fmt.Errorf("%w: %s", ErrInvalidCredentials, msg)
	case strings.HasPrefix(msg, "EMAIL_EXISTS"):
		return ErrEmailExists
	case strings.HasPrefix(msg, "WEAK_PASSWORD"):
		return fmt.Errorf("%w: %s", ErrWeakPassword, msg)
	}
	return fmt.Errorf("identity provider: %w", err)
}
