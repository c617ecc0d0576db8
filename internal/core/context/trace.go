// Package context carries operation-scoped values (trace ids, actor name).
package context

import (
	"context"

	"github.com/google/uuid"
)

// TraceContext identifies one engine operation across log lines.
type TraceContext struct {
	TraceID     string
	OperationID string
	// Actor is who triggered the operation (CLI user, UI session). Free text.
	Actor string
}

type traceContextKey struct{}

// WithTrace adds TraceContext to context.
func WithTrace(ctx context.Context, trace *TraceContext) context.Context {
	return context.WithValue(ctx, traceContextKey{}, trace)
}

// GetTrace returns TraceContext from context.
func GetTrace(ctx context.Context) *TraceContext {
	if v, ok := ctx.Value(traceContextKey{}).(*TraceContext); ok {
		return v
	}
	return nil
}

// GetTraceID returns trace ID from context or generates new one.
func GetTraceID(ctx context.Context) string {
	if t := GetTrace(ctx); t != nil {
		return t.TraceID
	}
	return uuid.New().String()
}

// GetActor returns the actor from context or empty string.
func GetActor(ctx context.Context) string {
	if t := GetTrace(ctx); t != nil {
		return t.Actor
	}
	return ""
}

// NewTraceContext creates a new TraceContext with generated IDs.
func NewTraceContext(actor string) *TraceContext {
	return &TraceContext{
		TraceID:     uuid.New().String(),
		OperationID: uuid.New().String()[:8],
		Actor:       actor,
	}
}

// StartOperation attaches a fresh TraceContext unless ctx already carries one.
func StartOperation(ctx context.Context, actor string) context.Context {
	if GetTrace(ctx) != nil {
		return ctx
	}
	return WithTrace(ctx, NewTraceContext(actor))
}
