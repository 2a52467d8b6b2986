package lichess

import (
	"fmt"
	"strings"
	"time"
)

// Config configures the Lichess OAuth client. Field names follow the
// LICHESS_* environment variables.
type Config struct {
	ClientID    string `yaml:"client_id" mapstructure:"client_id"`
	RedirectURI string `yaml:"redirect_uri" mapstructure:"redirect_uri"`
	APIURI      string `yaml:"api_uri" mapstructure:"api_uri"`
	TokenPath   string `yaml:"token_ep_path" mapstructure:"token_ep_path"`
	AccountPath string `yaml:"account_ep_path" mapstructure:"account_ep_path"`
	EmailPath   string `yaml:"email_ep_path" mapstructure:"email_ep_path"`

	// Timeout bounds each call to Lichess.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// TokenTTL is assumed when the token response carries no expires_in.
	TokenTTL time.Duration `yaml:"token_ttl" mapstructure:"token_ttl"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.APIURI == "" {
		c.APIURI = "https://lichess.org"
	}
	if c.TokenPath == "" {
		c.TokenPath = "/api/token"
	}
	if c.AccountPath == "" {
		c.AccountPath = "/api/account"
	}
	if c.EmailPath == "" {
		c.EmailPath = "/api/account/email"
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = time.Hour
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("lichess: client_id is required")
	}
	if c.RedirectURI == "" {
		return fmt.Errorf("lichess: redirect_uri is required")
	}
	return nil
}

func (c *Config) endpoint(path string) string {
	return strings.TrimRight(c.APIURI, "/") + "/" + strings.TrimLeft(path, "/")
}
