// Package observability carries pvpauth's OpenTelemetry tracing and
// metrics.
//
// The Component installs OTLP/HTTP exporters when enabled; otherwise the
// global no-op providers stay in place. Instrumented packages only use the
// helpers:
//
//	ctx, span := observability.StartSpan(ctx, "keycache.refresh")
//	defer span.End()
//
// Routed HTTP requests are wrapped by the server middleware in a Request,
// which owns the server span and the request instruments. Sign-in flows and
// key refreshes report through Metrics; a nil *Metrics records nothing.
package observability
