package lichess

import (
	"context"
	"time"
)

// AccessToken is a Lichess access token cached under the PKCE verifier that
// obtained it.
type AccessToken struct {
	Verifier    string
	AccessToken string
	Expires     time.Time
}

// TokenStore persists access tokens between sign-in attempts.
type TokenStore interface {
	// Get returns the token stored for verifier, or nil when there is none.
	Get(ctx context.Context, verifier string) (*AccessToken, error)
	// Put inserts or replaces the token for t.Verifier.
	Put(ctx context.Context, t *AccessToken) error
}
