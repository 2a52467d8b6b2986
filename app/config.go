package app

import (
	"fmt"
	"time"

	"github.com/kbukum/pvpauth/auth/google"
	"github.com/kbukum/pvpauth/auth/keycache"
	"github.com/kbukum/pvpauth/auth/lichess"
	"github.com/kbukum/pvpauth/auth/session"
	"github.com/kbukum/pvpauth/config"
	"github.com/kbukum/pvpauth/database"
	"github.com/kbukum/pvpauth/encryption"
	"github.com/kbukum/pvpauth/observability"
	"github.com/kbukum/pvpauth/peers"
	"github.com/kbukum/pvpauth/redis"
	"github.com/kbukum/pvpauth/server"
	"github.com/kbukum/pvpauth/version"
)

// ServiceName is used for config file lookup and as the default
// config.name.
const ServiceName = "pvpauth"

// PeersConfig tunes peer-connection listing.
type PeersConfig struct {
	// Window is how long a heartbeat keeps a peer listed (PEERS_WINDOW).
	Window time.Duration `yaml:"window" mapstructure:"window"`
}

// Config is the full process configuration. Each section maps to an
// environment prefix: JWT_SECRET fills JWT.Secret, LICHESS_CLIENT_ID fills
// Lichess.ClientID, TOKENS_ENCRYPTION_KEY fills Tokens.Key.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Database      database.Config      `yaml:"database" mapstructure:"database"`
	Redis         redis.Config         `yaml:"redis" mapstructure:"redis"`
	JWT           session.Config       `yaml:"jwt" mapstructure:"jwt"`
	Google        google.Config        `yaml:"google" mapstructure:"google"`
	KeyCache      keycache.Config      `yaml:"keycache" mapstructure:"keycache"`
	Lichess       lichess.Config       `yaml:"lichess" mapstructure:"lichess"`
	Tokens        encryption.Config    `yaml:"tokens" mapstructure:"tokens"`
	Peers         PeersConfig          `yaml:"peers" mapstructure:"peers"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// GetServiceConfig returns the shared service fields.
func (c *Config) GetServiceConfig() *config.ServiceConfig {
	return &c.ServiceConfig
}

// ApplyDefaults fills every section. The version falls back to the build
// version and the key cache follows the Google JWKS endpoint unless set
// explicitly.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	if c.Version == "" {
		c.Version = version.Short()
	}
	c.Server.ApplyDefaults()
	c.Database.ApplyDefaults()
	c.Redis.ApplyDefaults()
	c.JWT.ApplyDefaults()
	c.Google.ApplyDefaults()
	if c.KeyCache.URL == "" {
		c.KeyCache.URL = c.Google.JWKSURL
	}
	c.KeyCache.ApplyDefaults()
	c.Lichess.ApplyDefaults()
	c.Tokens.ApplyDefaults()
	if c.Peers.Window <= 0 {
		c.Peers.Window = peers.DefaultWindow
	}
	c.Observability.ApplyDefaults()
}

// Validate checks every section and reports the first problem.
func (c *Config) Validate() error {
	checks := []struct {
		section string
		check   func() error
	}{
		{"service", c.ServiceConfig.Validate},
		{"server", c.Server.Validate},
		{"database", c.Database.Validate},
		{"redis", c.Redis.Validate},
		{"jwt", c.JWT.Validate},
		{"google", c.Google.Validate},
		{"keycache", c.KeyCache.Validate},
		{"lichess", c.Lichess.Validate},
		{"tokens", c.Tokens.Validate},
		{"observability", c.Observability.Validate},
	}
	for _, ch := range checks {
		if err := ch.check(); err != nil {
			return fmt.Errorf("%s: %w", ch.section, err)
		}
	}
	return nil
}

// Load reads the configuration from YAML, .env and the environment, then
// applies defaults and validates it.
func Load(opts ...config.LoaderOption) (*Config, error) {
	cfg := &Config{}
	if err := config.LoadConfig(ServiceName, cfg, opts...); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}
