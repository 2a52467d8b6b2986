package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Request tracks one routed HTTP request: its server span and the request
// instruments.
type Request struct {
	Method string
	Route  string

	start   time.Time
	span    trace.Span
	metrics *Metrics
}

type requestKey struct{}

// StartRequest opens the server span for method and route and counts the
// request as in flight. The returned context carries the Request.
func StartRequest(ctx context.Context, method, route, requestID string, m *Metrics) (context.Context, *Request) {
	ctx, span := StartSpan(ctx, method+" "+route,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("http.route", route),
		),
	)
	if requestID != "" {
		span.SetAttributes(attribute.String(AttrRequestID, requestID))
	}
	m.RequestStarted(ctx)

	r := &Request{Method: method, Route: route, start: time.Now(), span: span, metrics: m}
	return context.WithValue(ctx, requestKey{}, r), r
}

// RequestFromContext returns the Request stored by StartRequest, or nil.
func RequestFromContext(ctx context.Context) *Request {
	r, _ := ctx.Value(requestKey{}).(*Request)
	return r
}

// SetUser tags the request with the authenticated user. Safe on nil.
func (r *Request) SetUser(userID string) {
	if r == nil || userID == "" {
		return
	}
	r.span.SetAttributes(attribute.String(AttrUserID, userID))
}

// End closes the span and records the request. Server errors mark the span
// as failed; client errors do not.
func (r *Request) End(ctx context.Context, status int, err error) {
	r.span.SetAttributes(attribute.Int("http.response.status_code", status))
	if err != nil {
		r.span.RecordError(err)
	}
	if status >= 500 {
		r.span.SetStatus(codes.Error, "")
	}
	r.span.End()
	r.metrics.RequestFinished(ctx, r.Method, r.Route, status, time.Since(r.start))
}
