package resilience

import (
	"sync"
	"time"
)

// RateLimiterConfig configures a token bucket.
type RateLimiterConfig struct {
	// Rate is the number of tokens added per second.
	Rate float64
	// Burst is the bucket capacity.
	Burst int
	// IdleTTL drops a key's bucket after it has been full for this long.
	IdleTTL time.Duration
	// Now overrides the clock in tests.
	Now func() time.Time
}

// DefaultRateLimiterConfig allows one sign-in attempt per second with a
// burst of ten per key.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		Rate:    1,
		Burst:   10,
		IdleTTL: 10 * time.Minute,
	}
}

type bucket struct {
	tokens     float64
	lastRefill time.Time
}

// KeyedLimiter holds one token bucket per key (client IP, user id).
type KeyedLimiter struct {
	config RateLimiterConfig

	mu      sync.Mutex
	buckets map[string]*bucket
	sweptAt time.Time
}

// NewKeyedLimiter creates a limiter with the given configuration.
func NewKeyedLimiter(config RateLimiterConfig) *KeyedLimiter {
	if config.Rate <= 0 {
		config.Rate = 1
	}
	if config.Burst <= 0 {
		config.Burst = int(config.Rate)
		if config.Burst < 1 {
			config.Burst = 1
		}
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = 10 * time.Minute
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &KeyedLimiter{
		config:  config,
		buckets: make(map[string]*bucket),
		sweptAt: config.Now(),
	}
}

// Allow consumes one token for key and reports whether it was available.
func (l *KeyedLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.config.Now()
	l.sweep(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(l.config.Burst), lastRefill: now}
		l.buckets[key] = b
	}
	l.refill(b, now)

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Len returns the number of tracked keys.
func (l *KeyedLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *KeyedLimiter) refill(b *bucket, now time.Time) {
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	b.lastRefill = now
	b.tokens += elapsed * l.config.Rate
	if b.tokens > float64(l.config.Burst) {
		b.tokens = float64(l.config.Burst)
	}
}

// sweep drops idle buckets at most once per IdleTTL.
func (l *KeyedLimiter) sweep(now time.Time) {
	if now.Sub(l.sweptAt) < l.config.IdleTTL {
		return
	}
	l.sweptAt = now
	for key, b := range l.buckets {
		if now.Sub(b.lastRefill) >= l.config.IdleTTL {
			delete(l.buckets, key)
		}
	}
}
