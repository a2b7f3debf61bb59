package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// contextKey is a type for context keys used by the logger package
type contextKey string

const (
	// LoggerKey is the context key for the logger
	LoggerKey contextKey = "logger"
	// MessageIDKey is the context key for the id of the message being handled
	MessageIDKey contextKey = "message_id"
)

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from context, returns a no-op logger if not found
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithMessageID adds the broker message id to context and returns the enriched logger
func WithMessageID(ctx context.Context, logger *zap.Logger, messageID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, MessageIDKey, messageID)
	enriched := logger.With(zap.String("message_id", messageID))
	return WithContext(ctx, enriched), enriched
}

// GetMessageID retrieves the message id from context
func GetMessageID(ctx context.Context) string {
	if id, ok := ctx.Value(MessageIDKey).(string); ok {
		return id
	}
	return ""
}

// WithTraceContext adds trace_id and span_id from the context's span.
// If no valid span exists, returns the original logger unchanged.
func WithTraceContext(ctx context.Context, logger *zap.Logger) *zap.Logger {
	spanCtx := trace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.IsValid() {
		return logger
	}
	return logger.With(
		zap.String("trace_id", spanCtx.TraceID().String()),
		zap.String("span_id", spanCtx.SpanID().String()),
	)
}

// L returns the context logger enriched with trace correlation fields
func L(ctx context.Context) *zap.Logger {
	return WithTraceContext(ctx, FromContext(ctx))
}
