package lichess

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/kbukum/pvpauth/httpclient"
	"github.com/kbukum/pvpauth/logger"
)

// Claims identify a Lichess account.
type Claims struct {
	ID       string
	Username string
	Email    string
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the client used for Lichess calls.
func WithHTTPClient(h *httpclient.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithClock replaces time.Now for token expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// Client verifies Lichess authorization codes by completing the PKCE
// exchange and reading the account it grants access to.
type Client struct {
	cfg   Config
	store TokenStore
	http  *httpclient.Client
	oauth *oauth2.Config
	now   func() time.Time
	log   *logger.Logger
}

// NewClient creates a Lichess client. store caches access tokens by verifier.
func NewClient(cfg Config, store TokenStore, opts ...Option) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		cfg:   cfg,
		store: store,
		now:   time.Now,
		log:   logger.WithComponent("lichess"),
		oauth: &oauth2.Config{
			ClientID:    cfg.ClientID,
			RedirectURL: cfg.RedirectURI,
			Endpoint: oauth2.Endpoint{
				TokenURL:  cfg.endpoint(cfg.TokenPath),
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		h, err := httpclient.New(httpclient.Config{
			Name:           "lichess",
			BaseURL:        cfg.APIURI,
			Timeout:        cfg.Timeout,
			Retry:          httpclient.DefaultRetryConfig(),
			CircuitBreaker: httpclient.DefaultCircuitBreakerConfig("lichess"),
		})
		if err != nil {
			return nil, err
		}
		c.http = h
	}
	return c, nil
}

// Verify turns an authorization code and its PKCE verifier into the
// identity of the Lichess account.
func (c *Client) Verify(ctx context.Context, code, verifier string) (*Claims, error) {
	if code == "" || verifier == "" {
		return nil, fmt.Errorf("%w: code and verifier are required", ErrRejected)
	}

	token, err := c.accessToken(ctx, code, verifier)
	if err != nil {
		return nil, err
	}

	var account struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
	if err := c.get(ctx, "account", c.cfg.AccountPath, token, &account); err != nil {
		return nil, err
	}
	if account.ID == "" {
		return nil, fmt.Errorf("lichess: account: %w: missing id", ErrDecode)
	}

	var email struct {
		Email string `json:"email"`
	}
	if err := c.get(ctx, "email", c.cfg.EmailPath, token, &email); err != nil {
		return nil, err
	}

	return &Claims{ID: account.ID, Username: account.Username, Email: email.Email}, nil
}

// accessToken returns a cached, unexpired token for verifier or exchanges
// the code for a new one.
func (c *Client) accessToken(ctx context.Context, code, verifier string) (string, error) {
	cached, err := c.store.Get(ctx, verifier)
	if err != nil {
		return "", fmt.Errorf("lichess: load cached token: %w", err)
	}
	if cached != nil && c.now().Before(cached.Expires) {
		return cached.AccessToken, nil
	}

	tok, err := c.exchange(ctx, code, verifier)
	if err != nil {
		return "", err
	}

	stored := &AccessToken{
		Verifier:    verifier,
		AccessToken: tok.AccessToken,
		Expires:     c.expiry(tok),
	}
	if err := c.store.Put(ctx, stored); err != nil {
		return "", fmt.Errorf("lichess: store token: %w", err)
	}
	return tok.AccessToken, nil
}

func (c *Client) exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	octx := context.WithValue(ctx, oauth2.HTTPClient, c.http.HTTPClient())
	tok, err := c.oauth.Exchange(octx, code, oauth2.VerifierOption(verifier))
	if err == nil {
		return tok, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var retrieveErr *oauth2.RetrieveError
	var urlErr *url.Error
	switch {
	case errors.As(err, &retrieveErr):
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		if retrieveErr.ErrorCode == "invalid_grant" || status == 401 {
			c.log.Info("authorization code rejected", logger.Fields(logger.FieldStatus, status))
			return nil, fmt.Errorf("%w: %v", ErrRejected, err)
		}
		return nil, &ProviderError{Op: "token", StatusCode: status, Err: err}
	case errors.As(err, &urlErr):
		return nil, &ProviderError{Op: "token", Err: err}
	default:
		return nil, fmt.Errorf("lichess: token: %w: %v", ErrDecode, err)
	}
}

func (c *Client) expiry(tok *oauth2.Token) time.Time {
	switch {
	case tok.ExpiresIn > 0:
		return c.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	case !tok.Expiry.IsZero():
		return tok.Expiry
	default:
		return c.now().Add(c.cfg.TokenTTL)
	}
}

func (c *Client) get(ctx context.Context, op, path, token string, out any) error {
	_, err := c.http.GetJSON(ctx, httpclient.Request{
		Path:        c.cfg.endpoint(path),
		BearerToken: token,
	}, out)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	switch {
	case httpclient.IsDecode(err):
		return fmt.Errorf("lichess: %s: %w: %v", op, ErrDecode, err)
	case httpclient.IsAuth(err):
		return fmt.Errorf("lichess: %s: %w", op, ErrRejected)
	default:
		return &ProviderError{Op: op, StatusCode: httpclient.StatusCode(err), Err: err}
	}
}
