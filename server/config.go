package server

import (
	"fmt"
	"time"

	"github.com/kbukum/pvpauth/server/middleware"
)

// Config is the HTTP listener and its request limits.
type Config struct {
	Host         string                `yaml:"host" mapstructure:"host"`
	Port         int                   `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration         `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration         `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration         `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	ShutdownWait time.Duration         `yaml:"shutdown_wait" mapstructure:"shutdown_wait"`
	MaxBodySize  string                `yaml:"max_body_size" mapstructure:"max_body_size"` // e.g. "1MB"
	CORS         middleware.CORSConfig `yaml:"cors" mapstructure:"cors"`
	// AuthRateLimit caps sign-in and sign-up calls per client IP and minute.
	// Zero disables the limit.
	AuthRateLimit int `yaml:"auth_rate_limit" mapstructure:"auth_rate_limit"`
}

// ApplyDefaults fills unset fields. CORS defaults allow any origin and the
// methods and headers the API uses.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	setDuration(&c.ReadTimeout, 15*time.Second)
	setDuration(&c.WriteTimeout, 15*time.Second)
	setDuration(&c.IdleTimeout, time.Minute)
	setDuration(&c.ShutdownWait, 5*time.Second)
	if c.MaxBodySize == "" {
		c.MaxBodySize = "1MB"
	}

	cors := &c.CORS
	if len(cors.AllowedOrigins) == 0 {
		cors.AllowedOrigins = []string{"*"}
	}
	if len(cors.AllowedMethods) == 0 {
		cors.AllowedMethods = []string{"GET", "POST", "PUT", "DELETE"}
	}
	if len(cors.AllowedHeaders) == 0 {
		cors.AllowedHeaders = []string{"Content-Type", "Authorization", middleware.HeaderRequestID}
	}
	setDuration(&cors.MaxAge, 10*time.Minute)
}

func setDuration(d *time.Duration, def time.Duration) {
	if *d == 0 {
		*d = def
	}
}

// Validate rejects out-of-range ports, negative timeouts and a negative
// rate limit.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535 (got: %d)", c.Port)
	}
	for name, d := range map[string]time.Duration{
		"read_timeout":  c.ReadTimeout,
		"write_timeout": c.WriteTimeout,
		"idle_timeout":  c.IdleTimeout,
		"shutdown_wait": c.ShutdownWait,
	} {
		if d < 0 {
			return fmt.Errorf("server.%s must be non-negative (got: %s)", name, d)
		}
	}
	if c.AuthRateLimit < 0 {
		return fmt.Errorf("server.auth_rate_limit must be non-negative (got: %d)", c.AuthRateLimit)
	}
	if c.MaxBodySize != "" {
		if _, err := middleware.ParseSizeStrict(c.MaxBodySize); err != nil {
			return fmt.Errorf("server.max_body_size: %w", err)
		}
	}
	return nil
}
