package keycache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/kbukum/pvpauth/component"
	"github.com/kbukum/pvpauth/httpclient"
	"github.com/kbukum/pvpauth/logger"
	"github.com/kbukum/pvpauth/observability"
)

const (
	defaultFallbackTTL        = 60 * time.Second
	defaultMinRefreshInterval = 5 * time.Second
	defaultTimeout            = 10 * time.Second
)

// Config configures a key cache for one provider.
type Config struct {
	// URL is the JWKS endpoint.
	URL string `yaml:"url" mapstructure:"url"`
	// FallbackTTL is used when the response carries no usable max-age.
	FallbackTTL time.Duration `yaml:"fallback_ttl" mapstructure:"fallback_ttl"`
	// MinRefreshInterval bounds how often a miss on a fresh key set may refetch.
	MinRefreshInterval time.Duration `yaml:"min_refresh_interval" mapstructure:"min_refresh_interval"`
	// Timeout bounds a single fetch.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.FallbackTTL <= 0 {
		c.FallbackTTL = defaultFallbackTTL
	}
	if c.MinRefreshInterval <= 0 {
		c.MinRefreshInterval = defaultMinRefreshInterval
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("keycache: url is required")
	}
	return nil
}

// Option customizes a Cache.
type Option func(*Cache)

// WithHTTPClient replaces the client used to fetch the key set.
func WithHTTPClient(client *httpclient.Client) Option {
	return func(c *Cache) { c.client = client }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Cache) { c.log = l }
}

// WithMetrics counts refreshes. metrics is resolved per fetch since the
// instruments may be created after the cache.
func WithMetrics(metrics func() *observability.Metrics) Option {
	return func(c *Cache) { c.metrics = metrics }
}

// Cache serves the current signing keys of one provider. The key set is a
// single slot with a freshness deadline; refreshes go through a singleflight
// group so concurrent callers share one fetch.
type Cache struct {
	cfg     Config
	client  *httpclient.Client
	now     func() time.Time
	log     *logger.Logger
	metrics func() *observability.Metrics
	group   singleflight.Group

	mu        sync.RWMutex
	keys      map[string]*Key
	deadline  time.Time
	fetchedAt time.Time
	lastErr   error
}

// New creates a key cache. Nothing is fetched until the first GetKey or Start.
func New(cfg Config, opts ...Option) (*Cache, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Cache{
		cfg: cfg,
		now: time.Now,
		log: logger.WithComponent("keycache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		client, err := httpclient.New(httpclient.Config{
			Name:    "jwks",
			Timeout: cfg.Timeout,
			Retry:   httpclient.DefaultRetryConfig(),
		})
		if err != nil {
			return nil, err
		}
		c.client = client
	}
	return c, nil
}

// GetKey returns the key with the given id. A stale key set is refreshed
// first; a failed refresh is returned to the caller and stale keys are not
// served.
func (c *Cache) GetKey(ctx context.Context, kid string) (*Key, error) {
	if key, fresh := c.lookup(kid); fresh && key != nil {
		return key, nil
	}

	if err := c.refresh(ctx, kid); err != nil {
		return nil, err
	}

	key, fresh := c.lookup(kid)
	if !fresh {
		// the new deadline already passed (max-age=0); serve what was just fetched
		key = c.peek(kid)
	}
	if key == nil {
		return nil, fmt.Errorf("%w: kid %q", ErrKeyNotFound, kid)
	}
	return key, nil
}

// lookup returns the key and whether the slot is fresh.
func (c *Cache) lookup(kid string) (*Key, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.keys[kid], c.keys != nil && c.now().Before(c.deadline)
}

func (c *Cache) peek(kid string) *Key {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.keys[kid]
}

// satisfied reports whether a refresh for kid would be redundant: the slot is
// fresh and either holds kid or was fetched too recently to fetch again.
func (c *Cache) satisfied(kid string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	now := c.now()
	if c.keys == nil || !now.Before(c.deadline) {
		return false
	}
	if _, ok := c.keys[kid]; ok {
		return true
	}
	return now.Sub(c.fetchedAt) < c.cfg.MinRefreshInterval
}

// refresh waits for the shared fetch. The fetch itself is detached from the
// caller's cancellation so one abandoned request does not fail the others.
func (c *Cache) refresh(ctx context.Context, kid string) error {
	ch := c.group.DoChan("jwks", func() (interface{}, error) {
		if c.satisfied(kid) {
			return nil, nil
		}
		return nil, c.fetch(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Cache) fetch(ctx context.Context) (err error) {
	ctx, span := observability.StartSpan(ctx, "keycache.refresh")
	defer span.End()
	if c.metrics != nil {
		defer func() { c.metrics().KeyRefresh(ctx, err) }()
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := c.now()
	var set keySet
	resp, err := c.client.GetJSON(ctx, httpclient.Request{Path: c.cfg.URL}, &set)
	if err != nil {
		fetchErr := &FetchError{URL: c.cfg.URL, StatusCode: httpclient.StatusCode(err), Err: err}
		if httpclient.IsDecode(err) {
			fetchErr.Err = fmt.Errorf("%w: %v", ErrDecode, err)
		}
		return c.fail(ctx, fetchErr)
	}

	keys := set.signingKeys()
	if len(keys) == 0 {
		return c.fail(ctx, &FetchError{URL: c.cfg.URL, Err: fmt.Errorf("%w: no signing keys", ErrDecode)})
	}

	ttl, ok := parseMaxAge(resp.Header.Get("Cache-Control"))
	if !ok {
		ttl = c.cfg.FallbackTTL
	}

	now := c.now()
	c.mu.Lock()
	c.keys = keys
	c.fetchedAt = now
	c.deadline = now.Add(ttl)
	c.lastErr = nil
	c.mu.Unlock()

	span.SetAttributes(attribute.Int("keys", len(keys)), attribute.Int64("ttl_seconds", int64(ttl/time.Second)))
	c.log.Debug("key set refreshed", logger.Fields(
		"keys", len(keys),
		"ttl", ttl.String(),
		logger.FieldDuration, now.Sub(start).Milliseconds(),
	))
	return nil
}

// fail records err without touching the cached keys.
func (c *Cache) fail(ctx context.Context, err *FetchError) error {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()

	observability.SetSpanError(ctx, err)
	c.log.Warn("key set refresh failed", logger.ErrorFields("refresh", err))
	return err
}

// parseMaxAge extracts max-age from a Cache-Control header value.
func parseMaxAge(header string) (time.Duration, bool) {
	for _, directive := range strings.Split(header, ",") {
		name, value, found := strings.Cut(strings.TrimSpace(directive), "=")
		if !found || !strings.EqualFold(strings.TrimSpace(name), "max-age") {
			continue
		}
		secs, err := strconv.ParseUint(strings.Trim(strings.TrimSpace(value), `"`), 10, 32)
		if err != nil {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	return 0, false
}

// Name implements component.Component.
func (c *Cache) Name() string { return "keycache" }

// Start primes the cache. A failure is logged, not returned: the provider
// may come up after this process does.
func (c *Cache) Start(ctx context.Context) error {
	if err := c.refresh(ctx, ""); err != nil && !errors.Is(err, ErrFetchFailed) {
		return err
	}
	return nil
}

// Stop implements component.Component.
func (c *Cache) Stop(context.Context) error { return nil }

// Health reports how old the key set is and whether the last refresh failed.
func (c *Cache) Health(context.Context) component.Health {
	c.mu.RLock()
	defer c.mu.RUnlock()

	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	switch {
	case c.keys == nil && c.lastErr != nil:
		h.Status = component.StatusUnhealthy
		h.Message = c.lastErr.Error()
	case c.keys == nil:
		h.Status = component.StatusDegraded
		h.Message = "key set not fetched yet"
	case c.lastErr != nil:
		h.Status = component.StatusDegraded
		h.Message = c.lastErr.Error()
	default:
		h.Message = fmt.Sprintf("%d keys, age %s", len(c.keys), c.now().Sub(c.fetchedAt).Truncate(time.Second))
	}
	return h
}
