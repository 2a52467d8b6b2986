// Package component defines the lifecycle contract shared by the service's
// infrastructure (database, redis, signing-key cache, HTTP server) and a
// Registry that starts them in order, stops them in reverse and aggregates
// their health for the readiness probe.
package component
