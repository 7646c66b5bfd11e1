package context

import (
	"context"

	"goodsflow/internal/core/id"
)

// RequestTrace carries the correlation ids of one API request. The HTTP
// middleware seeds it from the X-Request-ID and X-Trace-ID headers so
// log lines can be joined across services; background workers and CLI
// tools run without one.
type RequestTrace struct {
	TraceID   string
	RequestID string
}

type requestTraceKey struct{}

// WithRequestTrace returns a context carrying the trace.
func WithRequestTrace(ctx context.Context, t RequestTrace) context.Context {
	return context.WithValue(ctx, requestTraceKey{}, t)
}

// GetRequestTrace returns the trace of the current request, if any.
func GetRequestTrace(ctx context.Context) (RequestTrace, bool) {
	t, ok := ctx.Value(requestTraceKey{}).(RequestTrace)
	return t, ok
}

// TraceID returns the current trace id, or a fresh UUIDv7 for contexts
// outside a traced request.
func TraceID(ctx context.Context) string {
	if t, ok := GetRequestTrace(ctx); ok && t.TraceID != "" {
		return t.TraceID
	}
	return id.New().String()
}
