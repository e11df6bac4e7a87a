package middleware

import (
	"context"

	"github.com/google/uuid"
)

type key int

const CorrelationKey key = 0

func GetCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationKey).(string); ok {
		return id
	}
	return "unknown"
}

func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationKey, id)
}

// EnsureCorrelationID attaches a fresh correlation id when the context does
// not carry one yet. Worker entry points use this so every log line of an
// indexing run can be tied together.
func EnsureCorrelationID(ctx context.Context) context.Context {
	if id, ok := ctx.Value(CorrelationKey).(string); ok && id != "" {
		return ctx
	}
	return context.WithValue(ctx, CorrelationKey, uuid.New().String())
}
