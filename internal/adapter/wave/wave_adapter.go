// Package wave implements the Wave checkout connector: status mapping, request
// builders, response transformers, the gateway error classifier and the flows
// behind adapter.ConnectorAdapter. Aggregated merchant handling lives in the
// aggregated subpackage; HTTP transport in client.
package wave

import (
	stdcontext "context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/yourorg/wave-connector/internal/adapter"
	"github.com/yourorg/wave-connector/internal/adapter/wave/aggregated"
	"github.com/yourorg/wave-connector/internal/adapter/wave/client"
	"github.com/yourorg/wave-connector/internal/context"
	"github.com/yourorg/wave-connector/internal/logger"
)

// ConnectorName is the id the connector registers under.
const ConnectorName = "wave"

const (
	sessionsPath = "checkout/sessions"
	sessionPath  = "checkout/sessions/%s"
	cancelPath   = "v1/transactions/%s/cancel"
	refundsPath  = "v1/transactions/%s/refunds"
	refundPath   = "v1/refunds/%s"
)

const (
	tracerName     = "wave"
	flowAuthorize  = "authorize"
	flowPSync      = "psync"
	flowVoid       = "void"
	flowRefund     = "refund"
	flowRefundSync = "rsync"
	flowCapture    = "capture"
)

// Option configures an Adapter.
type Option func(*Adapter)

// WithClient sets the gateway transport.
func WithClient(c *client.Client) Option {
	return func(a *Adapter) { a.client = c }
}

// WithResolver sets the aggregated merchant resolver. It should share the adapter's client.
func WithResolver(r *aggregated.Resolver) Option {
	return func(a *Adapter) { a.resolver = r }
}

// WithFallbackStrategies sets the strategies tried when resolution yields no merchant id.
func WithFallbackStrategies(s []aggregated.FallbackStrategy) Option {
	return func(a *Adapter) { a.fallbacks = s }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// Adapter implements adapter.ConnectorAdapter for Wave.
type Adapter struct {
	client    *client.Client
	resolver  *aggregated.Resolver
	fallbacks []aggregated.FallbackStrategy
	logger    *zap.Logger
}

// New creates a Wave adapter. Without options it talks to the production API.
func New(opts ...Option) *Adapter {
	a := &Adapter{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	if a.client == nil {
		a.client = client.New(client.WithLogger(a.logger))
	}
	if a.resolver == nil {
		a.resolver = aggregated.NewResolver(a.client, aggregated.WithResolverLogger(a.logger))
	}
	return a
}

// GetName implements adapter.ConnectorAdapter.
func (a *Adapter) GetName() string {
	return ConnectorName
}

// Authorize creates a checkout session. When aggregated merchants are enabled the resolved
// merchant id is attached to the session; an invalid metadata configuration fails the call
// before anything is sent.
func (a *Adapter) Authorize(fc context.FlowContext, req *adapter.AuthorizeRequest) (*adapter.PaymentsResponse, error) {
	ctx, end := a.startSpan(fc, "Wave.Authorize", attribute.String("payment_id", req.PaymentID))
	var err error
	defer func() { end(err) }()

	auth, err := AuthConfigFromCredentials(fc.Credentials)
	if err != nil {
		return nil, err
	}
	// Cheap local check first; the resolver may issue remote calls.
	if _, err = BuildCreateSessionRequest(req, ""); err != nil {
		return nil, err
	}

	log := a.flowLogger(ctx, fc, flowAuthorize)
	md := ParseMetadata(fc.ConnectorMetadata, log)
	resolution, err := a.resolver.ResolveWithFallback(ctx, auth.Settings(), md, fc.ProfileOrMerchant(), a.fallbacks)
	if err != nil {
		return nil, err
	}
	if resolution.Found() {
		log.Info("using aggregated merchant",
			zap.String("aggregated_merchant_id", resolution.MerchantID),
			zap.String("source", string(resolution.Source)))
	}

	payload, err := BuildCreateSessionRequest(req, resolution.MerchantID)
	if err != nil {
		return nil, err
	}
	body, err := a.execute(ctx, log, auth.APIKey, client.Request{
		Operation: flowAuthorize,
		Method:    http.MethodPost,
		Path:      sessionsPath,
		Body:      payload,
	})
	if err != nil {
		return nil, err
	}
	resp, err := TransformSessionResponse(body, req.ReferenceID)
	if err != nil {
		return nil, err
	}
	log.Info("checkout session created", zap.String("session_id", resp.ResourceID), zap.String("status", string(resp.Status)))
	return resp, nil
}

// PSync retrieves the checkout session created by Authorize.
func (a *Adapter) PSync(fc context.FlowContext, req *adapter.SyncRequest) (*adapter.PaymentsResponse, error) {
	ctx, end := a.startSpan(fc, "Wave.PSync", attribute.String("payment_id", req.PaymentID))
	var err error
	defer func() { end(err) }()

	auth, err := AuthConfigFromCredentials(fc.Credentials)
	if err != nil {
		return nil, err
	}
	if req.ConnectorResourceID == "" {
		err = adapter.NewConnectorError(adapter.ErrMissingConnectorTransactionID, "checkout session id is empty")
		return nil, err
	}

	body, err := a.execute(ctx, a.flowLogger(ctx, fc, flowPSync), auth.APIKey, client.Request{
		Operation: flowPSync,
		Method:    http.MethodGet,
		Path:      fmt.Sprintf(sessionPath, url.PathEscape(req.ConnectorResourceID)),
	})
	if err != nil {
		return nil, err
	}
	resp, err := TransformSessionResponse(body, "")
	return resp, err
}

// Void cancels a transaction.
func (a *Adapter) Void(fc context.FlowContext, req *adapter.CancelRequest) (*adapter.PaymentsResponse, error) {
	ctx, end := a.startSpan(fc, "Wave.Void", attribute.String("payment_id", req.PaymentID))
	var err error
	defer func() { end(err) }()

	auth, err := AuthConfigFromCredentials(fc.Credentials)
	if err != nil {
		return nil, err
	}
	if req.ConnectorTransactionID == "" {
		err = adapter.NewConnectorError(adapter.ErrMissingConnectorTransactionID, "")
		return nil, err
	}

	body, err := a.execute(ctx, a.flowLogger(ctx, fc, flowVoid), auth.APIKey, client.Request{
		Operation: flowVoid,
		Method:    http.MethodPost,
		Path:      fmt.Sprintf(cancelPath, url.PathEscape(req.ConnectorTransactionID)),
		Body:      BuildCancelRequest(req),
	})
	if err != nil {
		return nil, err
	}
	resp, err := TransformCancelResponse(body, req.ConnectorTransactionID)
	return resp, err
}

// Capture is not supported: checkout sessions settle on completion.
func (a *Adapter) Capture(_ context.FlowContext, _ *adapter.CaptureRequest) (*adapter.PaymentsResponse, error) {
	return nil, adapter.NewConnectorError(adapter.ErrNotImplemented, flowCapture)
}

// Refund refunds part or all of a transaction.
func (a *Adapter) Refund(fc context.FlowContext, req *adapter.RefundRequest) (*adapter.RefundsResponse, error) {
	ctx, end := a.startSpan(fc, "Wave.Refund",
		attribute.String("payment_id", req.PaymentID),
		attribute.String("refund_id", req.RefundID))
	var err error
	defer func() { end(err) }()

	auth, err := AuthConfigFromCredentials(fc.Credentials)
	if err != nil {
		return nil, err
	}
	if req.ConnectorTransactionID == "" {
		err = adapter.NewConnectorError(adapter.ErrMissingConnectorTransactionID, "")
		return nil, err
	}
	payload, err := BuildRefundRequest(req)
	if err != nil {
		return nil, err
	}

	body, err := a.execute(ctx, a.flowLogger(ctx, fc, flowRefund), auth.APIKey, client.Request{
		Operation: flowRefund,
		Method:    http.MethodPost,
		Path:      fmt.Sprintf(refundsPath, url.PathEscape(req.ConnectorTransactionID)),
		Body:      payload,
	})
	if err != nil {
		return nil, err
	}
	resp, err := TransformRefundResponse(body)
	return resp, err
}

// RSync retrieves a refund.
func (a *Adapter) RSync(fc context.FlowContext, req *adapter.RefundSyncRequest) (*adapter.RefundsResponse, error) {
	ctx, end := a.startSpan(fc, "Wave.RSync", attribute.String("refund_id", req.RefundID))
	var err error
	defer func() { end(err) }()

	auth, err := AuthConfigFromCredentials(fc.Credentials)
	if err != nil {
		return nil, err
	}
	if req.ConnectorRefundID == "" {
		err = adapter.NewConnectorError(adapter.ErrMissingConnectorTransactionID, "connector refund id is empty")
		return nil, err
	}

	body, err := a.execute(ctx, a.flowLogger(ctx, fc, flowRefundSync), auth.APIKey, client.Request{
		Operation: flowRefundSync,
		Method:    http.MethodGet,
		Path:      fmt.Sprintf(refundPath, url.PathEscape(req.ConnectorRefundID)),
	})
	if err != nil {
		return nil, err
	}
	resp, err := TransformRefundResponse(body)
	return resp, err
}

func (a *Adapter) WebhookObjectReferenceID(_ []byte) (string, error) {
	return "", adapter.ErrWebhooksNotImplemented
}

func (a *Adapter) WebhookEventType(_ []byte) (string, error) {
	return "", adapter.ErrWebhooksNotImplemented
}

func (a *Adapter) WebhookResourceObject(_ []byte) (any, error) {
	return nil, adapter.ErrWebhooksNotImplemented
}

// execute sends req and returns the 2xx body. Non-2xx answers become *adapter.ErrorResponse.
func (a *Adapter) execute(ctx stdcontext.Context, log *zap.Logger, apiKey context.Secret, req client.Request) ([]byte, error) {
	resp, err := a.client.Send(ctx, apiKey, req)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		errResp := BuildErrorResponse(resp.StatusCode, resp.Body)
		log.Warn("wave rejected request",
			zap.Int("status", errResp.StatusCode),
			zap.String("code", errResp.Code),
			zap.String("message", errResp.Message))
		return nil, errResp
	}
	return resp.Body, nil
}

func (a *Adapter) flowLogger(ctx stdcontext.Context, fc context.FlowContext, flow string) *zap.Logger {
	return logger.WithTrace(ctx, a.logger).With(
		zap.String("flow", flow),
		zap.String("flow_trace_id", fc.Trace.TraceID),
		zap.String("merchant_id", fc.MerchantID),
	)
}

// startSpan opens a span for one flow. The returned func ends it, recording err if non-nil.
func (a *Adapter) startSpan(fc context.FlowContext, name string, attrs ...attribute.KeyValue) (stdcontext.Context, func(error)) {
	ctx, span := otel.Tracer(tracerName).Start(fc.Context(), name)
	span.SetAttributes(attribute.String("merchant_id", fc.MerchantID))
	span.SetAttributes(attrs...)
	start := time.Now()
	return ctx, func(err error) {
		span.SetAttributes(attribute.Int64("latency_ms", time.Since(start).Milliseconds()))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

var _ adapter.ConnectorAdapter = (*Adapter)(nil)
