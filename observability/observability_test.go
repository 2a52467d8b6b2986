package observability

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/pvpauth/component"
	"github.com/kbukum/pvpauth/logger"
)

// recordSpans installs an in-memory tracer provider for the test.
func recordSpans(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})
	return exporter
}

func TestConfig_Defaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Endpoint != "localhost:4318" || cfg.SampleRate != 1.0 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"disabled", Config{SampleRate: 1}, false},
		{"enabled", Config{Enabled: true, Endpoint: "otel:4318", SampleRate: 0.5}, false},
		{"rate too high", Config{SampleRate: 1.5}, true},
		{"negative rate", Config{SampleRate: -0.1}, true},
		{"enabled without endpoint", Config{Enabled: true, SampleRate: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// collect returns the int64 sum data points of the named instrument.
func collect(t *testing.T, reader *sdkmetric.ManualReader, name string) []metricdata.DataPoint[int64] {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m.Data.(metricdata.Sum[int64]).DataPoints
			}
		}
	}
	return nil
}

func newRecordingMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	m, err := NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func attr(dp metricdata.DataPoint[int64], key string) string {
	v, _ := dp.Attributes.Value(attribute.Key(key))
	return v.AsString()
}

func TestSetSpanError(t *testing.T) {
	exporter := recordSpans(t)

	ctx, span := StartSpan(context.Background(), "keycache.refresh")
	SetSpanError(ctx, nil)
	SetSpanError(ctx, fmt.Errorf("fetch failed"))
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status.Code != codes.Error || spans[0].Status.Description != "fetch failed" {
		t.Errorf("status = %+v", spans[0].Status)
	}
	if len(spans[0].Events) != 1 {
		t.Errorf("expected one error event, got %d", len(spans[0].Events))
	}

	// no span in context
	SetSpanError(context.Background(), fmt.Errorf("dropped"))
}

func TestRequest_SpanAndMetrics(t *testing.T) {
	exporter := recordSpans(t)
	metrics, reader := newRecordingMetrics(t)

	ctx, req := StartRequest(context.Background(), "POST", "/auth/signin", "req-1", metrics)
	if RequestFromContext(ctx) != req {
		t.Fatal("request not stored in context")
	}
	if RequestFromContext(context.Background()) != nil {
		t.Fatal("expected nil without a request")
	}
	req.SetUser("")
	req.SetUser("0b0e5a4e-3c1f-4a57-9a39-7d0f0c2c7f11")

	if in := collect(t, reader, MetricHTTPInFlight); len(in) != 1 || in[0].Value != 1 {
		t.Errorf("in flight before End = %v", in)
	}
	req.End(ctx, 502, fmt.Errorf("provider down"))

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	got := spans[0]
	if got.Name != "POST /auth/signin" || got.SpanKind != trace.SpanKindServer {
		t.Errorf("span = %q kind %v", got.Name, got.SpanKind)
	}
	attrs := map[string]string{}
	for _, kv := range got.Attributes {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	if attrs[AttrRequestID] != "req-1" || attrs[AttrUserID] == "" || attrs["http.response.status_code"] != "502" {
		t.Errorf("attributes = %v", attrs)
	}
	if got.Status.Code != codes.Error {
		t.Error("server error should mark the span failed")
	}

	points := collect(t, reader, MetricHTTPRequests)
	if len(points) != 1 || points[0].Value != 1 {
		t.Fatalf("requests = %v", points)
	}
	if attr(points[0], "http.route") != "/auth/signin" || attr(points[0], "http.response.status_code") != "502" {
		t.Errorf("attributes = %v", points[0].Attributes.ToSlice())
	}
	if in := collect(t, reader, MetricHTTPInFlight); len(in) != 1 || in[0].Value != 0 {
		t.Errorf("in flight after End = %v", in)
	}
}

func TestRequest_ClientErrorKeepsSpanUnset(t *testing.T) {
	exporter := recordSpans(t)

	ctx, req := StartRequest(context.Background(), "GET", "/users/:user_id", "", nil)
	req.End(ctx, 404, nil)

	spans := exporter.GetSpans()
	if len(spans) != 1 || spans[0].Status.Code != codes.Unset {
		t.Errorf("spans = %+v", spans)
	}
}

func TestMetrics_SignInAndErrors(t *testing.T) {
	metrics, reader := newRecordingMetrics(t)
	ctx := context.Background()

	metrics.SignIn(ctx, "signin", "lichess", "signed_in", time.Millisecond)
	metrics.SignIn(ctx, "signin", "lichess", "signed_in", time.Millisecond)
	metrics.SignIn(ctx, "signup", "", "error", time.Millisecond)
	metrics.Error(ctx, "EXTERNAL_SERVICE_ERROR", "signin")

	got := map[string]int64{}
	for _, dp := range collect(t, reader, MetricSignIns) {
		got[attr(dp, "operation")+"/"+attr(dp, AttrProvider)+"/"+attr(dp, AttrOutcome)] = dp.Value
	}
	want := map[string]int64{
		"signin/lichess/signed_in": 2,
		"signup/unknown/error":     1,
	}
	if len(got) != len(want) {
		t.Fatalf("sign-ins = %v", got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %d, want %d", k, got[k], v)
		}
	}

	errs := collect(t, reader, MetricErrors)
	if len(errs) != 1 || attr(errs[0], "code") != "EXTERNAL_SERVICE_ERROR" {
		t.Errorf("errors = %v", errs)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RequestStarted(ctx)
	m.RequestFinished(ctx, "GET", "/users", 200, 0)
	m.SignIn(ctx, "signin", "google", "signed_in", 0)
	m.KeyRefresh(ctx, nil)
	m.Error(ctx, "NOT_FOUND", "api")
}

func TestComponent_Disabled(t *testing.T) {
	comp := NewComponent(Config{}, "pvpauth", "test", "development", logger.Nop())
	ctx := context.Background()

	if err := comp.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if comp.Metrics() == nil {
		t.Fatal("metrics should exist even with export disabled")
	}
	h := comp.Health(ctx)
	if h.Status != component.StatusHealthy || h.Message != "export disabled" {
		t.Errorf("health = %+v", h)
	}
	if d := comp.Describe(); d.Details != "disabled" {
		t.Errorf("Details = %q", d.Details)
	}
	if err := comp.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestComponent_EnabledTracing(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	comp := NewComponent(Config{Enabled: true, Endpoint: "localhost:4318", Insecure: true}, "pvpauth", "test", "development", logger.Nop())
	ctx := context.Background()
	if err := comp.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if h := comp.Health(ctx); !strings.Contains(h.Message, "localhost:4318") {
		t.Errorf("health message = %q", h.Message)
	}
	if d := comp.Describe(); d.Details != "otlp localhost:4318 sample=1.00" {
		t.Errorf("Details = %q", d.Details)
	}
	if err := comp.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestComponent_InvalidConfig(t *testing.T) {
	comp := NewComponent(Config{SampleRate: 2}, "pvpauth", "test", "development", nil)
	if err := comp.Start(context.Background()); err == nil {
		t.Fatal("expected invalid sample rate to fail start")
	}
}
