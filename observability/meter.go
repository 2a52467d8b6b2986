package observability

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// Instrument names.
const (
	MetricHTTPRequests   = "pvpauth.http.requests"
	MetricHTTPDuration   = "pvpauth.http.duration"
	MetricHTTPInFlight   = "pvpauth.http.in_flight"
	MetricSignIns        = "pvpauth.signin.attempts"
	MetricSignInDuration = "pvpauth.signin.duration"
	MetricKeyRefreshes   = "pvpauth.keycache.refreshes"
	MetricErrors         = "pvpauth.errors"
)

// initMeter installs a global meter provider that pushes to the collector
// every cfg.MetricsInterval.
func initMeter(ctx context.Context, cfg Config, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.MetricsInterval))
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader), sdkmetric.WithResource(res))
	otel.SetMeterProvider(mp)
	return mp, nil
}

// Metrics holds the service instruments. Every method is safe on a nil
// *Metrics and then records nothing.
type Metrics struct {
	httpRequests   metric.Int64Counter
	httpDuration   metric.Float64Histogram
	httpInFlight   metric.Int64UpDownCounter
	signIns        metric.Int64Counter
	signInDuration metric.Float64Histogram
	keyRefreshes   metric.Int64Counter
	errors         metric.Int64Counter
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m    Metrics
		err  error
		errs []error
	)
	m.httpRequests, err = meter.Int64Counter(MetricHTTPRequests,
		metric.WithDescription("Routed HTTP requests by route and status"))
	errs = append(errs, err)
	m.httpDuration, err = meter.Float64Histogram(MetricHTTPDuration,
		metric.WithDescription("Routed HTTP request latency"), metric.WithUnit("s"))
	errs = append(errs, err)
	m.httpInFlight, err = meter.Int64UpDownCounter(MetricHTTPInFlight,
		metric.WithDescription("Requests currently being served"))
	errs = append(errs, err)
	m.signIns, err = meter.Int64Counter(MetricSignIns,
		metric.WithDescription("Sign-in and sign-up attempts by provider and outcome"))
	errs = append(errs, err)
	m.signInDuration, err = meter.Float64Histogram(MetricSignInDuration,
		metric.WithDescription("Sign-in flow latency including the provider round trip"), metric.WithUnit("s"))
	errs = append(errs, err)
	m.keyRefreshes, err = meter.Int64Counter(MetricKeyRefreshes,
		metric.WithDescription("Signing key set fetches by result"))
	errs = append(errs, err)
	m.errors, err = meter.Int64Counter(MetricErrors,
		metric.WithDescription("Errors returned to clients by code and component"))
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("creating instruments: %w", err)
	}
	return &m, nil
}

// RequestStarted counts a request as in flight.
func (m *Metrics) RequestStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.httpInFlight.Add(ctx, 1)
}

// RequestFinished releases the in-flight slot and records the request.
func (m *Metrics) RequestFinished(ctx context.Context, method, route string, status int, took time.Duration) {
	if m == nil {
		return
	}
	routeAttrs := []attribute.KeyValue{
		attribute.String("http.request.method", method),
		attribute.String("http.route", route),
	}
	m.httpInFlight.Add(ctx, -1)
	m.httpRequests.Add(ctx, 1, metric.WithAttributes(
		append(routeAttrs, attribute.String("http.response.status_code", strconv.Itoa(status)))...))
	m.httpDuration.Record(ctx, took.Seconds(), metric.WithAttributes(routeAttrs...))
}

// SignIn records one sign-in or sign-up flow. provider is empty when the
// request never named a known provider.
func (m *Metrics) SignIn(ctx context.Context, op, provider, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	if provider == "" {
		provider = "unknown"
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String(AttrProvider, provider),
		attribute.String(AttrOutcome, outcome),
	)
	m.signIns.Add(ctx, 1, attrs)
	m.signInDuration.Record(ctx, took.Seconds(), attrs)
}

// KeyRefresh records a signing key fetch.
func (m *Metrics) KeyRefresh(ctx context.Context, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.keyRefreshes.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// Error records an error code surfaced by component.
func (m *Metrics) Error(ctx context.Context, code, component string) {
	if m == nil {
		return
	}
	m.errors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("code", code),
		attribute.String("component", component),
	))
}
