// Package adapter defines the interface for payment connector adapters
// and the canonical, connector-agnostic request and response types they exchange
// with the orchestration layer.
// Adapters handle all connector-specific API calls, including serialization,
// idempotency and error mapping, normalizing raw gateway responses into
// canonical statuses.
package adapter

import (
	"github.com/yourorg/wave-connector/internal/context"
)

// AttemptStatus is the canonical status of a payment attempt.
type AttemptStatus string

const (
	AttemptStatusPending AttemptStatus = "pending"
	AttemptStatusCharged AttemptStatus = "charged"
	AttemptStatusFailure AttemptStatus = "failure"
	AttemptStatusVoided  AttemptStatus = "voided"
)

// RefundStatus is the canonical status of a refund.
type RefundStatus string

const (
	RefundStatusPending RefundStatus = "pending"
	RefundStatusSuccess RefundStatus = "success"
	RefundStatusFailure RefundStatus = "failure"
)

// Address is the subset of a billing address the connectors read.
type Address struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// AuthorizeRequest is the canonical payment authorization request.
// Amount is in minor units of Currency.
type AuthorizeRequest struct {
	PaymentID   string   `json:"payment_id"`
	ReferenceID string   `json:"reference_id"` // Caller's idempotency/reference id, echoed by the gateway
	Amount      int64    `json:"amount"`
	Currency    string   `json:"currency"`
	ReturnURL   string   `json:"return_url,omitempty"`
	Email       string   `json:"email,omitempty"`
	Billing     *Address `json:"billing,omitempty"`
}

// SyncRequest asks the connector for the current state of a payment.
type SyncRequest struct {
	PaymentID string `json:"payment_id"`
	// ConnectorResourceID is the id the connector returned on authorize (for Wave, the checkout session id).
	ConnectorResourceID string `json:"connector_resource_id"`
}

// CancelRequest voids an authorized payment.
type CancelRequest struct {
	PaymentID              string  `json:"payment_id"`
	ConnectorTransactionID string  `json:"connector_transaction_id"`
	CancellationReason     *string `json:"cancellation_reason,omitempty"`
}

// CaptureRequest captures an authorized payment.
type CaptureRequest struct {
	PaymentID              string `json:"payment_id"`
	ConnectorTransactionID string `json:"connector_transaction_id"`
	Amount                 int64  `json:"amount"`
	Currency               string `json:"currency"`
}

// RefundRequest refunds part or all of a captured payment.
// The caller guarantees RefundAmount does not exceed the remaining refundable amount.
type RefundRequest struct {
	RefundID               string  `json:"refund_id"`
	PaymentID              string  `json:"payment_id"`
	ConnectorTransactionID string  `json:"connector_transaction_id"`
	RefundAmount           int64   `json:"refund_amount"`
	Currency               string  `json:"currency"`
	Reason                 *string `json:"reason,omitempty"`
}

// RefundSyncRequest asks the connector for the current state of a refund.
type RefundSyncRequest struct {
	RefundID          string `json:"refund_id"`
	ConnectorRefundID string `json:"connector_refund_id"`
}

// RedirectForm tells the caller where to send the customer to complete the payment.
type RedirectForm struct {
	Endpoint string `json:"endpoint"`
	Method   string `json:"method"`
}

// PaymentsResponse is the canonical outcome of a payment flow.
type PaymentsResponse struct {
	Status                  AttemptStatus `json:"status"`
	ResourceID              string        `json:"resource_id"`
	Redirection             *RedirectForm `json:"redirection,omitempty"`
	ConnectorReferenceID    string        `json:"connector_reference_id,omitempty"`
	ConnectorTransactionRef string        `json:"connector_transaction_ref,omitempty"`
	AggregatedMerchantID    string        `json:"aggregated_merchant_id,omitempty"`
	AmountReceived          *int64        `json:"amount_received,omitempty"`
}

// RefundsResponse is the canonical outcome of a refund flow.
type RefundsResponse struct {
	ConnectorRefundID string       `json:"connector_refund_id"`
	Status            RefundStatus `json:"status"`
}

// ConnectorAdapter is the interface implemented by each payment gateway adapter.
// Every method reads its credentials and metadata from the FlowContext and never mutates it.
// Gateway-reported failures are returned as *ErrorResponse; local failures as *ConnectorError.
type ConnectorAdapter interface {
	// GetName returns the connector id (e.g., "wave").
	GetName() string

	Authorize(fc context.FlowContext, req *AuthorizeRequest) (*PaymentsResponse, error)
	PSync(fc context.FlowContext, req *SyncRequest) (*PaymentsResponse, error)
	Void(fc context.FlowContext, req *CancelRequest) (*PaymentsResponse, error)
	Capture(fc context.FlowContext, req *CaptureRequest) (*PaymentsResponse, error)
	Refund(fc context.FlowContext, req *RefundRequest) (*RefundsResponse, error)
	RSync(fc context.FlowContext, req *RefundSyncRequest) (*RefundsResponse, error)

	// Webhook contract. Connectors without webhook support return ErrWebhooksNotImplemented.
	WebhookObjectReferenceID(body []byte) (string, error)
	WebhookEventType(body []byte) (string, error)
	WebhookResourceObject(body []byte) (any, error)
}
