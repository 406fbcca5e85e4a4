// Package processor dispatches canonical flow requests to the registered
// connector adapter and translates the outcome into a FlowResult.
package processor

import (
	"errors"
	"fmt"
	"time"

	"github.com/yourorg/wave-connector/internal/adapter"
	"github.com/yourorg/wave-connector/internal/context"
)

// Flow names.
const (
	FlowAuthorize  = "authorize"
	FlowPSync      = "psync"
	FlowVoid       = "void"
	FlowCapture    = "capture"
	FlowRefund     = "refund"
	FlowRefundSync = "rsync"
)

// Outcomes recorded for a flow.
const (
	OutcomeSuccess = "SUCCESS"
	OutcomePending = "PENDING"
	OutcomeFailure = "FAILURE"
)

// FlowResult is the outcome of one connector flow.
type FlowResult struct {
	Flow         string                    `json:"flow"`
	Connector    string                    `json:"connector"`
	Payment      *adapter.PaymentsResponse `json:"payment,omitempty"`
	Refund       *adapter.RefundsResponse  `json:"refund,omitempty"`
	ErrorCode    string                    `json:"error_code,omitempty"`
	ErrorMessage string                    `json:"error_message,omitempty"`
	ErrorReason  string                    `json:"error_reason,omitempty"`
	StatusCode   int                       `json:"status_code,omitempty"` // Gateway HTTP status of a rejected call
	LatencyMs    int64                     `json:"latency_ms"`
}

// Outcome classifies the result for reporting. A voided payment is a successful void.
func (r *FlowResult) Outcome() string {
	if r.ErrorCode != "" {
		return OutcomeFailure
	}
	switch {
	case r.Payment != nil:
		switch r.Payment.Status {
		case adapter.AttemptStatusCharged:
			return OutcomeSuccess
		case adapter.AttemptStatusPending:
			return OutcomePending
		case adapter.AttemptStatusVoided:
			if r.Flow == FlowVoid {
				return OutcomeSuccess
			}
		}
	case r.Refund != nil:
		switch r.Refund.Status {
		case adapter.RefundStatusSuccess:
			return OutcomeSuccess
		case adapter.RefundStatusPending:
			return OutcomePending
		}
	}
	return OutcomeFailure
}

// Processor selects the adapter named by the FlowContext and runs the requested flow.
type Processor struct {
	adapterRegistry map[string]adapter.ConnectorAdapter
}

// NewProcessor creates a new Processor with a given adapter registry.
func NewProcessor(registry map[string]adapter.ConnectorAdapter) *Processor {
	if registry == nil {
		panic("adapter registry cannot be nil")
	}
	return &Processor{adapterRegistry: registry}
}

// Process runs req against the connector in fc. req must be one of the canonical request
// pointer types. An unknown connector yields a failed result and no error; an adapter
// failure yields both the failed result and the adapter's error.
func (p *Processor) Process(fc context.FlowContext, req any) (*FlowResult, error) {
	flow, err := FlowOf(req)
	if err != nil {
		return &FlowResult{
			Connector:    fc.ConnectorName,
			ErrorCode:    "PROCESSOR_INVALID_REQUEST",
			ErrorMessage: err.Error(),
		}, err
	}

	conn, ok := p.adapterRegistry[fc.ConnectorName]
	if !ok {
		return &FlowResult{
			Flow:         flow,
			Connector:    fc.ConnectorName,
			ErrorCode:    "ADAPTER_NOT_FOUND",
			ErrorMessage: fmt.Sprintf("No adapter registered for connector: %s", fc.ConnectorName),
		}, nil
	}

	result := &FlowResult{Flow: flow, Connector: conn.GetName()}
	start := time.Now()
	switch r := req.(type) {
	case *adapter.AuthorizeRequest:
		result.Payment, err = conn.Authorize(fc, r)
	case *adapter.SyncRequest:
		result.Payment, err = conn.PSync(fc, r)
	case *adapter.CancelRequest:
		result.Payment, err = conn.Void(fc, r)
	case *adapter.CaptureRequest:
		result.Payment, err = conn.Capture(fc, r)
	case *adapter.RefundRequest:
		result.Refund, err = conn.Refund(fc, r)
	case *adapter.RefundSyncRequest:
		result.Refund, err = conn.RSync(fc, r)
	}
	result.LatencyMs = time.Since(start).Milliseconds()

	if err != nil {
		result.Payment, result.Refund = nil, nil
		applyError(result, err)
		return result, err
	}
	return result, nil
}

// FlowOf names the flow a canonical request belongs to.
func FlowOf(req any) (string, error) {
	switch r := req.(type) {
	case *adapter.AuthorizeRequest:
		if r != nil {
			return FlowAuthorize, nil
		}
	case *adapter.SyncRequest:
		if r != nil {
			return FlowPSync, nil
		}
	case *adapter.CancelRequest:
		if r != nil {
			return FlowVoid, nil
		}
	case *adapter.CaptureRequest:
		if r != nil {
			return FlowCapture, nil
		}
	case *adapter.RefundRequest:
		if r != nil {
			return FlowRefund, nil
		}
	case *adapter.RefundSyncRequest:
		if r != nil {
			return FlowRefundSync, nil
		}
	}
	return "", fmt.Errorf("processor: unsupported flow request %T", req)
}

var errorCodes = []struct {
	kind error
	code string
}{
	{adapter.ErrRequestEncodingFailed, "REQUEST_ENCODING_FAILED"},
	{adapter.ErrResponseDeserializationFailed, "RESPONSE_DESERIALIZATION_FAILED"},
	{adapter.ErrInvalidConnectorConfig, "INVALID_CONNECTOR_CONFIG"},
	{adapter.ErrInvalidConfiguration, "INVALID_CONFIGURATION"},
	{adapter.ErrMissingConnectorTransactionID, "MISSING_CONNECTOR_TRANSACTION_ID"},
	{adapter.ErrFailedToObtainAuthType, "FAILED_TO_OBTAIN_AUTH_TYPE"},
	{adapter.ErrNotImplemented, "NOT_IMPLEMENTED"},
	{adapter.ErrWebhooksNotImplemented, "WEBHOOKS_NOT_IMPLEMENTED"},
	{adapter.ErrProcessingStepFailed, "PROCESSING_STEP_FAILED"},
}

func applyError(result *FlowResult, err error) {
	var gatewayErr *adapter.ErrorResponse
	if errors.As(err, &gatewayErr) {
		result.ErrorCode = gatewayErr.Code
		result.ErrorMessage = gatewayErr.Message
		result.StatusCode = gatewayErr.StatusCode
		if gatewayErr.Reason != nil {
			result.ErrorReason = *gatewayErr.Reason
		}
		return
	}
	result.ErrorCode = "ADAPTER_EXECUTION_ERROR"
	for _, ec := range errorCodes {
		if errors.Is(err, ec.kind) {
			result.ErrorCode = ec.code
			break
		}
	}
	result.ErrorMessage = err.Error()
}
