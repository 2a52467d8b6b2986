// Package httpclient is the outbound HTTP client for identity-provider calls.
//
// Every non-2xx response is classified into an *Error so callers can tell a
// provider rejecting input (4xx) from a provider being down (5xx, timeouts,
// connection failures). Idempotent requests are retried with
// resilience.Retry; each client can carry its own circuit breaker.
//
//	c, _ := httpclient.New(httpclient.Config{
//	    Name:    "lichess",
//	    BaseURL: "https://lichess.org",
//	    Retry:   httpclient.DefaultRetryConfig(),
//	})
//	var account struct{ ID string `json:"id"` }
//	_, err := c.GetJSON(ctx, httpclient.Request{Path: "/api/account", BearerToken: tok}, &account)
package httpclient
