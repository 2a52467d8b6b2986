package google

import (
	"fmt"
	"time"
)

// DefaultJWKSURL is where Google publishes its signing keys.
const DefaultJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

// Config configures ID token verification.
type Config struct {
	// ClientID is the OAuth client id; tokens must carry it as audience.
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	// Issuers lists the accepted iss values.
	Issuers []string `yaml:"issuers" mapstructure:"issuers"`
	// JWKSURL is the signing key endpoint.
	JWKSURL string `yaml:"jwks_url" mapstructure:"jwks_url"`
	// Leeway tolerates clock skew on exp and nbf.
	Leeway time.Duration `yaml:"leeway" mapstructure:"leeway"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if len(c.Issuers) == 0 {
		c.Issuers = []string{"accounts.google.com", "https://accounts.google.com"}
	}
	if c.JWKSURL == "" {
		c.JWKSURL = DefaultJWKSURL
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("google: client_id is required")
	}
	if c.Leeway < 0 {
		return fmt.Errorf("google: leeway must not be negative")
	}
	return nil
}
