package session

import (
	"errors"
	"time"
)

// Config configures session token signing. Issuers and Audiences come from
// JWT_ISSUER and JWT_AUDIENCE, each a comma-separated list.
type Config struct {
	// Secret is the HMAC key.
	Secret string `yaml:"secret" mapstructure:"secret"`

	// Issuers are written to iss; on verification at least one must match.
	Issuers []string `yaml:"issuer" mapstructure:"issuer"`

	// Audiences are written to aud; on verification at least one must match.
	Audiences []string `yaml:"audience" mapstructure:"audience"`

	// TTL is the lifetime of a session token (default: 24h).
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.TTL <= 0 {
		c.TTL = 24 * time.Hour
	}
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.Secret == "" {
		return errors.New("session: secret is required")
	}
	if len(c.Secret) < 16 {
		return errors.New("session: secret must be at least 16 bytes")
	}
	return nil
}
