package adapter

import (
	"errors"
	"fmt"
)

const (
	// NoErrorCode is used when the gateway did not report an error code.
	NoErrorCode = "No error code"
	// NoErrorMessage is used when the gateway did not report a usable error message.
	NoErrorMessage = "No error message"
)

// Sentinel errors, one per failure kind. Use errors.Is to test for a kind.
var (
	ErrRequestEncodingFailed         = errors.New("connector: failed to encode connector request")
	ErrResponseDeserializationFailed = errors.New("connector: failed to deserialize connector response")
	ErrInvalidConnectorConfig        = errors.New("connector: invalid connector configuration")
	ErrInvalidConfiguration          = errors.New("connector: invalid configuration")
	ErrProcessingStepFailed          = errors.New("connector: processing step failed")
	ErrMissingConnectorTransactionID = errors.New("connector: missing connector transaction id")
	ErrFailedToObtainAuthType        = errors.New("connector: failed to obtain authentication type")
	ErrNotImplemented                = errors.New("connector: not implemented")
	ErrWebhooksNotImplemented        = errors.New("connector: webhooks not implemented")
	ErrGatewayRejected               = errors.New("connector: request rejected by gateway")
)

// ConnectorError is a locally detected failure of one kind, with an optional detail.
type ConnectorError struct {
	Kind   error
	Detail string
}

// NewConnectorError creates a ConnectorError of the given kind.
func NewConnectorError(kind error, detail string) *ConnectorError {
	return &ConnectorError{Kind: kind, Detail: detail}
}

func (e *ConnectorError) Error() string {
	if e.Detail == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Detail)
}

// Unwrap exposes the kind so errors.Is(err, ErrX) works.
func (e *ConnectorError) Unwrap() error {
	return e.Kind
}

// ErrorResponse is the canonical error triple returned for gateway-reported failures,
// plus the HTTP status code of the gateway response.
type ErrorResponse struct {
	StatusCode int     `json:"status_code"`
	Code       string  `json:"code"`
	Message    string  `json:"message"`
	Reason     *string `json:"reason,omitempty"`
}

func (e *ErrorResponse) Error() string {
	if e.Reason != nil {
		return fmt.Sprintf("gateway error (HTTP %d) %s: %s (%s)", e.StatusCode, e.Code, e.Message, *e.Reason)
	}
	return fmt.Sprintf("gateway error (HTTP %d) %s: %s", e.StatusCode, e.Code, e.Message)
}

// Unwrap lets callers match gateway rejections with errors.Is(err, ErrGatewayRejected).
func (e *ErrorResponse) Unwrap() error {
	return ErrGatewayRejected
}
