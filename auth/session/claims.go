package session

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload of a session token. Unlike most JWTs, iss is a
// list, mirroring aud.
type Claims struct {
	Subject   string           `json:"sub"`
	Audience  jwt.ClaimStrings `json:"aud,omitempty"`
	Issuer    jwt.ClaimStrings `json:"iss,omitempty"`
	IssuedAt  *jwt.NumericDate `json:"iat,omitempty"`
	ExpiresAt *jwt.NumericDate `json:"exp,omitempty"`

	expectIssuers   []string
	expectAudiences []string
}

func (c *Claims) GetExpirationTime() (*jwt.NumericDate, error) { return c.ExpiresAt, nil }
func (c *Claims) GetIssuedAt() (*jwt.NumericDate, error) { return c.IssuedAt, nil }
func (c *Claims) GetNotBefore() (*jwt.NumericDate, error) { return nil, nil }
func (c *Claims) GetSubject() (string, error) { return c.Subject, nil }
func (c *Claims) GetAudience() (jwt.ClaimStrings, error) { return c.Audience, nil }

// GetIssuer returns the first issuer.
func (c *Claims) GetIssuer() (string, error) {
	if len(c.Issuer) == 0 {
		return "", nil
	}
	return c.Issuer[0], nil
}

// Validate requires overlap with the configured issuers and audiences.
func (c *Claims) Validate() error {
	if !overlaps(c.Issuer, c.expectIssuers) {
		return jwt.ErrTokenInvalidIssuer
	}
	if !overlaps(c.Audience, c.expectAudiences) {
		return jwt.ErrTokenInvalidAudience
	}
	return nil
}

// overlaps is true when want is empty or shares an element with got.
func overlaps(got, want []string) bool {
	if len(want) == 0 {
		return true
	}
	for _, g := range got {
		if slices.Contains(want, g) {
			return true
		}
	}
	return false
}
