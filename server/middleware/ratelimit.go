package middleware

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/kbukum/pvpauth/errors"
	"github.com/kbukum/pvpauth/resilience"
)

// RateLimitConfig configures the rate limiting middleware.
type RateLimitConfig struct {
	// RequestsPerMinute is the sustained rate and the burst allowed per key.
	RequestsPerMinute int
	// KeyFunc extracts the rate limit key from a request. Defaults to client IP.
	KeyFunc func(*http.Request) string
	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

// RateLimit returns middleware that gives each key a token bucket refilled
// at RequestsPerMinute and answers 429 RATE_LIMITED once it is empty.
func RateLimit(cfg RateLimitConfig) Middleware {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = IPBasedKey
	}

	limiter := resilience.NewKeyedLimiter(resilience.RateLimiterConfig{
		Rate:  float64(cfg.RequestsPerMinute) / 60,
		Burst: cfg.RequestsPerMinute,
		Now:   cfg.Now,
	})
	retryAfter := strconv.Itoa((60 + cfg.RequestsPerMinute - 1) / cfg.RequestsPerMinute)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(cfg.KeyFunc(r)) {
				w.Header().Set("Retry-After", retryAfter)
				writeError(w, errors.RateLimited())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IPBasedKey extracts the client IP for use as a rate limit key.
func IPBasedKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
