package google

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/pvpauth/auth/keycache"
)

// KeySource resolves a signing key by id.
type KeySource interface {
	GetKey(ctx context.Context, kid string) (*keycache.Key, error)
}

// Verifier checks Google ID tokens.
type Verifier struct {
	cfg  Config
	keys KeySource
	now  func() time.Time
}

// Option customizes a Verifier.
type Option func(*Verifier)

// WithClock replaces time.Now for exp and nbf checks.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

// NewVerifier creates a verifier for tokens issued to cfg.ClientID.
func NewVerifier(cfg Config, keys KeySource, opts ...Option) (*Verifier, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	v := &Verifier{cfg: cfg, keys: keys, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Verify checks the token and returns its claims.
func (v *Verifier) Verify(ctx context.Context, idToken string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithAudience(v.cfg.ClientID),
		jwt.WithLeeway(v.cfg.Leeway),
		jwt.WithTimeFunc(v.now),
	)

	claims := &idTokenClaims{issuers: v.cfg.Issuers}
	_, err := parser.ParseWithClaims(idToken, claims, func(token *jwt.Token) (interface{}, error) {
		return v.signingKey(ctx, token)
	})
	if err != nil {
		return nil, classify(err)
	}
	return claims.toClaims(), nil
}

func (v *Verifier) signingKey(ctx context.Context, token *jwt.Token) (interface{}, error) {
	kid, _ := token.Header["kid"].(string)
	if kid == "" {
		return nil, ErrMalformed
	}
	key, err := v.keys.GetKey(ctx, kid)
	switch {
	case errors.Is(err, keycache.ErrKeyNotFound):
		return nil, ErrUnknownKey
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrKeyFetch, err)
	}
	if key.Alg != "" && key.Alg != jwt.SigningMethodRS256.Alg() {
		return nil, ErrUnknownKey
	}
	pub, err := key.RSAPublicKey()
	if err != nil {
		return nil, ErrUnknownKey
	}
	return pub, nil
}

// classify maps parser failures onto this package's errors. Errors raised
// by signingKey and Validate pass through unchanged.
func classify(err error) error {
	if errors.Is(err, ErrKeyFetch) {
		return err
	}
	switch {
	case errors.Is(err, ErrMalformed), errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	case errors.Is(err, ErrUnknownKey):
		return ErrUnknownKey
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrNotYetValid
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return ErrAudience
	case errors.Is(err, ErrIssuer):
		return ErrIssuer
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return ErrMalformed
	default:
		return fmt.Errorf("%w: %v", ErrVerification, err)
	}
}
