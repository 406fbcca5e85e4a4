package wave

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/yourorg/wave-connector/internal/adapter"
)

// Customer is the optional payer block of a checkout session.
type Customer struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
}

// CreateSessionRequest is the body of POST checkout/sessions.
type CreateSessionRequest struct {
	Amount               string    `json:"amount"`
	Currency             string    `json:"currency"`
	ErrorURL             string    `json:"error_url"`
	SuccessURL           string    `json:"success_url"`
	Reference            string    `json:"reference"`
	Customer             *Customer `json:"customer,omitempty"`
	AggregatedMerchantID *string   `json:"aggregated_merchant_id,omitempty"`
}

// LastPaymentError is reported on sessions whose last payment attempt failed.
type LastPaymentError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SessionResponse is a checkout session as returned by create and retrieve.
type SessionResponse struct {
	ID                   string            `json:"id"`
	TransactionID        *string           `json:"transaction_id,omitempty"`
	PaymentStatus        PaymentStatus     `json:"payment_status"`
	CheckoutStatus       *string           `json:"checkout_status,omitempty"`
	WaveLaunchURL        *string           `json:"wave_launch_url,omitempty"`
	Reference            *string           `json:"reference,omitempty"`
	Amount               *string           `json:"amount,omitempty"`
	Currency             *string           `json:"currency,omitempty"`
	AggregatedMerchantID *string           `json:"aggregated_merchant_id,omitempty"`
	WhenExpires          *string           `json:"when_expires,omitempty"`
	LastPaymentError     *LastPaymentError `json:"last_payment_error,omitempty"`
}

// CancelRequest is the body of POST v1/transactions/{id}/cancel.
type CancelRequest struct {
	Reason *string `json:"reason,omitempty"`
}

// CancelResponse is the gateway answer to a cancel.
type CancelResponse struct {
	ID     string        `json:"id"`
	Status PaymentStatus `json:"status"`
}

// RefundRequest is the body of POST v1/transactions/{id}/refunds.
type RefundRequest struct {
	Amount string  `json:"amount"`
	Reason *string `json:"reason,omitempty"`
}

// RefundResponse is a refund as returned by execute and retrieve.
type RefundResponse struct {
	ID            string       `json:"id"`
	TransactionID *string      `json:"transaction_id,omitempty"`
	Amount        *string      `json:"amount,omitempty"`
	Currency      *string      `json:"currency,omitempty"`
	Status        RefundStatus `json:"status"`
}

// formatAmount renders a minor-unit amount the way the gateway expects it.
func formatAmount(minor int64) string {
	return decimal.NewFromInt(minor).String()
}

// BuildCreateSessionRequest builds the authorize payload. The return URL is used for both
// outcomes and is required. aggregatedMerchantID is omitted when empty.
func BuildCreateSessionRequest(req *adapter.AuthorizeRequest, aggregatedMerchantID string) (*CreateSessionRequest, error) {
	if strings.TrimSpace(req.ReturnURL) == "" {
		return nil, adapter.NewConnectorError(adapter.ErrInvalidConnectorConfig, "return_url is required")
	}
	if req.Amount < 0 {
		return nil, adapter.NewConnectorError(adapter.ErrRequestEncodingFailed, "amount must not be negative")
	}
	out := &CreateSessionRequest{
		Amount:     formatAmount(req.Amount),
		Currency:   req.Currency,
		ErrorURL:   req.ReturnURL,
		SuccessURL: req.ReturnURL,
		Reference:  req.ReferenceID,
		Customer:   buildCustomer(req),
	}
	if aggregatedMerchantID != "" {
		out.AggregatedMerchantID = &aggregatedMerchantID
	}
	return out, nil
}

func buildCustomer(req *adapter.AuthorizeRequest) *Customer {
	var c Customer
	if req.Billing != nil {
		name := strings.TrimSpace(req.Billing.FirstName + " " + req.Billing.LastName)
		if name != "" {
			c.Name = &name
		}
	}
	if req.Email != "" {
		email := req.Email
		c.Email = &email
	}
	if c.Name == nil && c.Email == nil {
		return nil
	}
	return &c
}

// BuildCancelRequest passes the cancellation reason through verbatim.
func BuildCancelRequest(req *adapter.CancelRequest) *CancelRequest {
	return &CancelRequest{Reason: req.CancellationReason}
}

// BuildRefundRequest builds the refund payload.
func BuildRefundRequest(req *adapter.RefundRequest) (*RefundRequest, error) {
	if req.RefundAmount < 0 {
		return nil, adapter.NewConnectorError(adapter.ErrRequestEncodingFailed, "refund amount must not be negative")
	}
	return &RefundRequest{Amount: formatAmount(req.RefundAmount), Reason: req.Reason}, nil
}

func deserializationFailed(detail string) error {
	return adapter.NewConnectorError(adapter.ErrResponseDeserializationFailed, detail)
}

// TransformSessionResponse maps a create or retrieve session body to the canonical response.
// Missing id or payment_status, an unknown status or an unparseable amount is a hard failure;
// an unusable launch URL only drops the redirection.
func TransformSessionResponse(body []byte, referenceID string) (*adapter.PaymentsResponse, error) {
	var s SessionResponse
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, deserializationFailed(err.Error())
	}
	if s.ID == "" {
		return nil, deserializationFailed("session response has no id")
	}
	if s.PaymentStatus == "" {
		return nil, deserializationFailed("session response has no payment_status")
	}

	resp := &adapter.PaymentsResponse{
		Status:               s.PaymentStatus.AttemptStatus(),
		ResourceID:           s.ID,
		Redirection:          redirection(s.WaveLaunchURL),
		ConnectorReferenceID: referenceID,
	}
	if s.Reference != nil && *s.Reference != "" {
		resp.ConnectorReferenceID = *s.Reference
	}
	if s.TransactionID != nil {
		resp.ConnectorTransactionRef = *s.TransactionID
	}
	if s.AggregatedMerchantID != nil {
		resp.AggregatedMerchantID = *s.AggregatedMerchantID
	}
	if s.Amount != nil {
		amount, err := parseAmount(*s.Amount)
		if err != nil {
			return nil, err
		}
		resp.AmountReceived = amount
	}
	return resp, nil
}

// TransformCancelResponse maps a cancel body. The resource id stays the caller's transaction id
// when the gateway omits one.
func TransformCancelResponse(body []byte, connectorTransactionID string) (*adapter.PaymentsResponse, error) {
	var c CancelResponse
	if err := json.Unmarshal(body, &c); err != nil {
		return nil, deserializationFailed(err.Error())
	}
	if c.Status == "" {
		return nil, deserializationFailed("cancel response has no status")
	}
	id := c.ID
	if id == "" {
		id = connectorTransactionID
	}
	return &adapter.PaymentsResponse{
		Status:                  c.Status.AttemptStatus(),
		ResourceID:              id,
		ConnectorTransactionRef: connectorTransactionID,
	}, nil
}

// TransformRefundResponse maps an execute or retrieve refund body.
func TransformRefundResponse(body []byte) (*adapter.RefundsResponse, error) {
	var r RefundResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, deserializationFailed(err.Error())
	}
	if r.ID == "" {
		return nil, deserializationFailed("refund response has no id")
	}
	if r.Status == "" {
		return nil, deserializationFailed("refund response has no status")
	}
	return &adapter.RefundsResponse{
		ConnectorRefundID: r.ID,
		Status:            r.Status.CanonicalStatus(),
	}, nil
}

// redirection returns nil for an absent, relative or unparseable URL.
func redirection(launchURL *string) *adapter.RedirectForm {
	if launchURL == nil {
		return nil
	}
	u, err := url.Parse(strings.TrimSpace(*launchURL))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil
	}
	return &adapter.RedirectForm{Endpoint: u.String(), Method: http.MethodGet}
}

// parseAmount reads a gateway amount string. Fractional amounts are not minor units and are dropped.
func parseAmount(s string) (*int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, deserializationFailed("invalid amount " + s)
	}
	if !d.IsInteger() {
		return nil, nil
	}
	v := d.IntPart()
	return &v, nil
}
