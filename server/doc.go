// Package server hosts the HTTP API: a Gin engine behind the standard
// middleware chain, served over HTTP/1.1 and h2c on one port and managed as a
// lifecycle component.
//
// Every request passes, outermost first, through:
//
//   - Recovery: panics become a 500 error body
//   - RequestID: X-Request-Id propagation into the request logger
//   - RequestLogger: one line per request, probes skipped
//   - CORS: configured origins, OPTIONS preflight
//   - BodySizeLimit: bounded request bodies
//
// Route groups add middleware.Session for bearer-authenticated routes,
// middleware.Operations for spans and request metrics and
// middleware.RateLimit for the sign-in endpoints.
//
// Probes (server/endpoint): /health, /liveness, /readiness.
package server
