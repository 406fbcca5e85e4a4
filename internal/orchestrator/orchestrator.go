// Package orchestrator runs one connector flow for a merchant: it derives the
// flow context from the merchant's connector account, hands the request to the
// processor and journals the outcome.
package orchestrator

import (
	stdcontext "context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/yourorg/wave-connector/internal/adapter"
	"github.com/yourorg/wave-connector/internal/context"
	"github.com/yourorg/wave-connector/internal/logger"
	"github.com/yourorg/wave-connector/internal/processor"
	"github.com/yourorg/wave-connector/internal/reporting"
)

// FlowProcessor runs a canonical request against the connector named in the FlowContext.
type FlowProcessor interface {
	Process(fc context.FlowContext, req any) (*processor.FlowResult, error)
}

// FlowContextBuilder derives a FlowContext for a merchant.
type FlowContextBuilder interface {
	BuildFlowContext(parent stdcontext.Context, merchantID string) (context.FlowContext, error)
}

// Orchestrator coordinates context derivation, flow execution and journaling.
type Orchestrator struct {
	processor      FlowProcessor
	contextBuilder FlowContextBuilder
	journal        *reporting.Journal
	logger         *zap.Logger
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(p FlowProcessor, cb FlowContextBuilder, journal *reporting.Journal, log *zap.Logger) *Orchestrator {
	if p == nil {
		panic("FlowProcessor cannot be nil")
	}
	if cb == nil {
		panic("FlowContextBuilder cannot be nil")
	}
	if journal == nil {
		panic("Journal cannot be nil")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		processor:      p,
		contextBuilder: cb,
		journal:        journal,
		logger:         log,
	}
}

// Execute runs req for merchantID. A context derivation failure returns a nil
// result; otherwise the processor's result is journaled and returned together
// with any flow error.
func (o *Orchestrator) Execute(parent stdcontext.Context, merchantID string, req any) (*processor.FlowResult, error) {
	if parent == nil {
		parent = stdcontext.Background()
	}
	ctx, span := otel.Tracer("orchestrator").Start(parent, "Orchestrator.Execute")
	defer span.End()
	span.SetAttributes(attribute.String("merchant_id", merchantID))

	fc, err := o.contextBuilder.BuildFlowContext(ctx, merchantID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "context derivation failed")
		o.logger.Warn("failed to build flow context", zap.String("merchant_id", merchantID), zap.Error(err))
		return nil, err
	}
	if sc := span.SpanContext(); sc.IsValid() {
		fc.Trace = context.NewTraceContextWithIDs(ctx, sc.TraceID().String(), sc.SpanID().String())
	}

	log := logger.WithTrace(ctx, o.logger).With(
		zap.String("merchant_id", merchantID),
		zap.String("connector", fc.ConnectorName),
	)

	result, err := o.processor.Process(fc, req)
	if result == nil {
		flow, _ := processor.FlowOf(req)
		result = &processor.FlowResult{
			Flow:         flow,
			Connector:    fc.ConnectorName,
			ErrorCode:    "ORCHESTRATOR_NIL_PROCESSOR_RESULT",
			ErrorMessage: "processor returned no result",
		}
	}
	span.SetAttributes(
		attribute.String("flow", result.Flow),
		attribute.String("outcome", result.Outcome()),
	)

	entry := journalEntry(fc, req, result)
	o.journal.Record(entry)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, result.ErrorCode)
		log.Warn("flow failed",
			zap.String("flow", result.Flow),
			zap.String("error_code", result.ErrorCode),
			zap.Error(err),
		)
		return result, err
	}
	log.Info("flow completed",
		zap.String("flow", result.Flow),
		zap.String("outcome", entry.Outcome),
		zap.Int64("latency_ms", result.LatencyMs),
	)
	return result, nil
}

func journalEntry(fc context.FlowContext, req any, result *processor.FlowResult) reporting.JournalEntry {
	entry := reporting.JournalEntry{
		Timestamp:    time.Now().UTC(),
		TraceID:      fc.Trace.TraceID,
		MerchantID:   fc.MerchantID,
		Connector:    result.Connector,
		Flow:         result.Flow,
		Outcome:      result.Outcome(),
		ErrorCode:    result.ErrorCode,
		ErrorMessage: result.ErrorMessage,
		LatencyMs:    result.LatencyMs,
	}
	switch r := req.(type) {
	case *adapter.AuthorizeRequest:
		entry.Amount, entry.Currency = r.Amount, r.Currency
	case *adapter.RefundRequest:
		entry.Amount, entry.Currency = r.RefundAmount, r.Currency
	}
	return entry
}
