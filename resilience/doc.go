// Package resilience provides the fault-tolerance primitives used around
// identity-provider calls and the public auth endpoints.
//
//   - Retry: retries idempotent operations with exponential backoff
//   - CircuitBreaker: fails fast while a provider is unhealthy
//   - KeyedLimiter: per-key token buckets for request throttling
//
//	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("lichess"))
//	err := cb.Execute(func() error {
//	    return resilience.RetryFunc(ctx, resilience.DefaultRetryConfig(), func(ctx context.Context) error {
//	        return fetch(ctx)
//	    })
//	})
package resilience
