// Package session mints and checks the HS256 tokens that authenticate
// requests after sign-in.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrAuthFailed is returned for every token that does not verify.
var ErrAuthFailed = errors.New("session: authentication failed")

// Issuer signs and verifies session tokens.
type Issuer struct {
	cfg    Config
	secret []byte
	parser *jwt.Parser
	now    func() time.Time
}

// Option customizes an Issuer.
type Option func(*Issuer)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

// NewIssuer creates an issuer from cfg.
func NewIssuer(cfg Config, opts ...Option) (*Issuer, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	i := &Issuer{cfg: cfg, secret: []byte(cfg.Secret), now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	i.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	return i, nil
}

// TTL returns the lifetime of issued tokens.
func (i *Issuer) TTL() time.Duration { return i.cfg.TTL }

// Issue mints a token for userID.
func (i *Issuer) Issue(userID uuid.UUID) (string, error) {
	now := i.now()
	claims := &Claims{
		Subject:   userID.String(),
		Audience:  i.cfg.Audiences,
		Issuer:    i.cfg.Issuers,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.cfg.TTL)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("session: sign token: %w", err)
	}
	return token, nil
}

// Verify checks a token and returns its claims. Any failure is ErrAuthFailed;
// the cause is not exposed.
func (i *Issuer) Verify(token string) (*Claims, error) {
	claims := &Claims{expectIssuers: i.cfg.Issuers, expectAudiences: i.cfg.Audiences}
	_, err := i.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	})
	if err != nil {
		return nil, ErrAuthFailed
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, ErrAuthFailed
	}
	return claims, nil
}

// UserID returns the subject as a uuid.
func (c *Claims) UserID() uuid.UUID {
	id, _ := uuid.Parse(c.Subject)
	return id
}
