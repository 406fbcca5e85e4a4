package context

import (
	stdcontext "context"

	"github.com/google/uuid"
)

// TraceContext carries only cross-cutting concerns needed for observability.
type TraceContext struct {
	TraceID string            // Globally unique ID for logs and spans
	SpanID  string            // Current span identifier
	Baggage map[string]string // Optional key-value flags (e.g., correlation data)

	stdCtx stdcontext.Context
}

// NewTraceContext creates a new TraceContext with a unique TraceID and an initial SpanID.
// A nil parent falls back to context.Background().
func NewTraceContext(parent stdcontext.Context) TraceContext {
	return NewTraceContextWithIDs(parent, uuid.NewString(), uuid.NewString())
}

// NewTraceContextWithIDs rebuilds a TraceContext around an existing trace, e.g. after an otel span was started.
func NewTraceContextWithIDs(parent stdcontext.Context, traceID, spanID string) TraceContext {
	if parent == nil {
		parent = stdcontext.Background()
	}
	return TraceContext{
		TraceID: traceID,
		SpanID:  spanID,
		Baggage: make(map[string]string),
		stdCtx:  parent,
	}
}

// Context returns the standard library context carried for cancellation and span propagation.
func (tc TraceContext) Context() stdcontext.Context {
	if tc.stdCtx == nil {
		return stdcontext.Background()
	}
	return tc.stdCtx
}

// WithContext returns a copy of the TraceContext bound to ctx.
func (tc TraceContext) WithContext(ctx stdcontext.Context) TraceContext {
	tc.stdCtx = ctx
	return tc
}

// NewSpan generates a new SpanID for a child operation within the same trace.
func (tc *TraceContext) NewSpan() string {
	tc.SpanID = uuid.NewString()
	return tc.SpanID
}
