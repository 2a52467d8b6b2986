package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/kbukum/pvpauth/auth/google"
	"github.com/kbukum/pvpauth/auth/lichess"
	"github.com/kbukum/pvpauth/logger"
)

// VerifiedClaims is the provider-neutral identity obtained from a verified
// credential.
type VerifiedClaims struct {
	Provider         Provider
	ExternalID       string
	DisplayName      string
	Email            string
	EmailVerified    bool
	Locale           string
	Picture          string
	ProviderUsername string
}

// GoogleVerifier verifies Google ID tokens.
type GoogleVerifier interface {
	Verify(ctx context.Context, idToken string) (*google.Claims, error)
}

// LichessVerifier verifies Lichess authorization codes.
type LichessVerifier interface {
	Verify(ctx context.Context, code, verifier string) (*lichess.Claims, error)
}

// Resolver dispatches OAuthData to the matching verifier.
type Resolver struct {
	google  GoogleVerifier
	lichess LichessVerifier
	log     *logger.Logger
}

// NewResolver creates a resolver. A nil verifier disables that provider.
func NewResolver(g GoogleVerifier, l LichessVerifier) *Resolver {
	return &Resolver{google: g, lichess: l, log: logger.WithComponent("provider")}
}

// Resolve verifies data and returns the identity it proves. Errors wrap
// ErrInvalidData, ErrAuthentication or ErrCommunication; anything else
// (cancellation, token store failures) is returned as is.
func (r *Resolver) Resolve(ctx context.Context, data OAuthData) (*VerifiedClaims, error) {
	if data == nil {
		return nil, fmt.Errorf("%w: no oauth data", ErrInvalidData)
	}
	if err := data.validate(); err != nil {
		return nil, err
	}

	switch d := data.(type) {
	case GoogleData:
		return r.resolveGoogle(ctx, d)
	case LichessData:
		return r.resolveLichess(ctx, d)
	default:
		return nil, fmt.Errorf("%w: unsupported provider %q", ErrInvalidData, data.Provider())
	}
}

func (r *Resolver) resolveGoogle(ctx context.Context, d GoogleData) (*VerifiedClaims, error) {
	if r.google == nil {
		return nil, fmt.Errorf("%w: google sign-in is not configured", ErrInvalidData)
	}
	c, err := r.google.Verify(ctx, d.Credentials)
	switch {
	case err == nil:
	case errors.Is(err, google.ErrVerification):
		r.log.Info("google token rejected", logger.Fields(logger.FieldError, err.Error()))
		return nil, fmt.Errorf("%w: %w", ErrAuthentication, err)
	case errors.Is(err, google.ErrKeyFetch):
		return nil, fmt.Errorf("%w: %w", ErrCommunication, err)
	default:
		return nil, err
	}

	return &VerifiedClaims{
		Provider:      Google,
		ExternalID:    c.Subject,
		DisplayName:   c.Name,
		Email:         c.Email,
		EmailVerified: c.EmailVerified,
		Locale:        c.Locale,
		Picture:       c.Picture,
	}, nil
}

func (r *Resolver) resolveLichess(ctx context.Context, d LichessData) (*VerifiedClaims, error) {
	if r.lichess == nil {
		return nil, fmt.Errorf("%w: lichess sign-in is not configured", ErrInvalidData)
	}
	c, err := r.lichess.Verify(ctx, d.Code, d.CodeVerifier)
	switch {
	case err == nil:
	case errors.Is(err, lichess.ErrRejected):
		r.log.Info("lichess credentials rejected", logger.Fields(logger.FieldError, err.Error()))
		return nil, fmt.Errorf("%w: %w", ErrAuthentication, err)
	case errors.Is(err, lichess.ErrProviderCommunication), errors.Is(err, lichess.ErrDecode):
		return nil, fmt.Errorf("%w: %w", ErrCommunication, err)
	default:
		return nil, err
	}

	// Lichess accounts have no separate display name; an email it returns
	// is one the account has confirmed.
	return &VerifiedClaims{
		Provider:         Lichess,
		ExternalID:       c.ID,
		DisplayName:      c.Username,
		Email:            c.Email,
		EmailVerified:    c.Email != "",
		ProviderUsername: c.Username,
	}, nil
}
