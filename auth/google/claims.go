package google

import (
	"encoding/json"
	"slices"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the verified contents of an ID token.
type Claims struct {
	Subject       string
	Name          string
	Email         string
	EmailVerified bool
	Locale        string
	Picture       string
}

// idTokenClaims is the JWT payload as Google sends it.
type idTokenClaims struct {
	jwt.RegisteredClaims
	Name          string   `json:"name,omitempty"`
	Email         string   `json:"email,omitempty"`
	EmailVerified flexBool `json:"email_verified,omitempty"`
	VerifiedEmail flexBool `json:"verified_email,omitempty"`
	Locale        string   `json:"locale,omitempty"`
	Picture       string   `json:"picture,omitempty"`

	issuers []string
}

// Validate is called by the jwt parser after the standard time checks.
func (c *idTokenClaims) Validate() error {
	if !slices.Contains(c.issuers, c.Issuer) {
		return ErrIssuer
	}
	if c.Subject == "" {
		return ErrMalformed
	}
	return nil
}

func (c *idTokenClaims) toClaims() *Claims {
	return &Claims{
		Subject:       c.Subject,
		Name:          c.Name,
		Email:         c.Email,
		EmailVerified: bool(c.EmailVerified) || bool(c.VerifiedEmail),
		Locale:        c.Locale,
		Picture:       c.Picture,
	}
}

// flexBool accepts true, false, "true" and "false".
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = flexBool(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	*b = flexBool(v)
	return nil
}
