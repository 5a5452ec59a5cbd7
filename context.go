package warden

import (
	"context"

	"github.com/google/uuid"
)

type loggerContextKey struct{}

// WithLoggerContext merges partial into the ambient logger context carried by
// ctx and returns the derived context. Merging is per field: zero fields of
// partial leave the existing value untouched. Because the binding lives on
// the context chain, two concurrently executing call chains never observe
// each other's values.
//
// Typical use is once per inbound request:
//
//	ctx = warden.WithLoggerContext(ctx, warden.Context{
//		RequestID:     requestID,
//		CorrelationID: warden.NewCorrelationID(),
//		IPAddress:     clientIP,
//	})
func WithLoggerContext(ctx context.Context, partial Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerContextKey{}, LoggerContext(ctx).merge(partial))
}

// LoggerContext returns a snapshot of the ambient logger context bound to
// ctx. When no scope is active it returns the zero Context rather than
// failing; background tasks may still populate one via WithLoggerContext.
func LoggerContext(ctx context.Context) Context {
	if ctx == nil {
		return Context{}
	}
	snapshot, _ := ctx.Value(loggerContextKey{}).(Context)
	return snapshot
}

// WithCorrelationID attaches a correlation identifier to the ambient logger
// context. Shorthand for WithLoggerContext with a single field.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return WithLoggerContext(ctx, Context{CorrelationID: correlationID})
}

// WithRequestID attaches a request identifier to the ambient logger context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return WithLoggerContext(ctx, Context{RequestID: requestID})
}

// NewCorrelationID returns a fresh identifier suitable for correlating every
// entry emitted within one logical call chain.
func NewCorrelationID() string {
	return uuid.NewString()
}
