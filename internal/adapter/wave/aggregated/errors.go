package aggregated

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/yourorg/wave-connector/internal/adapter"
	"github.com/yourorg/wave-connector/internal/adapter/wave/client"
)

// Kind classifies aggregated merchant failures.
type Kind int

const (
	KindProcessingFailed Kind = iota
	KindMerchantNotFound
	KindInvalidConfiguration
	KindAuthenticationFailed
	KindRateLimitExceeded
)

func (k Kind) String() string {
	switch k {
	case KindMerchantNotFound:
		return "merchant_not_found"
	case KindInvalidConfiguration:
		return "invalid_configuration"
	case KindAuthenticationFailed:
		return "authentication_failed"
	case KindRateLimitExceeded:
		return "rate_limit_exceeded"
	default:
		return "processing_failed"
	}
}

// Gateway error codes with a dedicated kind.
const (
	codeMerchantNotFound    = "AGGREGATED_MERCHANT_NOT_FOUND"
	codeInvalidBusinessType = "INVALID_BUSINESS_TYPE"
)

// Error is an aggregated merchant failure.
// Remote kinds unwrap to adapter.ErrProcessingStepFailed, validation to adapter.ErrInvalidConfiguration.
type Error struct {
	Kind       Kind
	StatusCode int    // 0 for failures detected locally
	Code       string // Gateway error code, if any
	Message    string
	Details    string // Violated rule for validation failures, raw body for unparseable responses
	cause      error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindInvalidConfiguration && e.StatusCode == 0:
		return "aggregated merchant: invalid configuration: " + e.Details
	case e.StatusCode == 0:
		return fmt.Sprintf("aggregated merchant: %s: %s", e.Kind, e.Message)
	case e.Details != "":
		return fmt.Sprintf("aggregated merchant: %s (HTTP %d): %s: %s", e.Kind, e.StatusCode, e.Message, e.Details)
	default:
		return fmt.Sprintf("aggregated merchant: %s (HTTP %d): %s", e.Kind, e.StatusCode, e.Message)
	}
}

func (e *Error) Unwrap() []error {
	kind := adapter.ErrProcessingStepFailed
	if e.Kind == KindInvalidConfiguration {
		kind = adapter.ErrInvalidConfiguration
	}
	if e.cause != nil {
		return []error{kind, e.cause}
	}
	return []error{kind}
}

// IsKind reports whether err is an aggregated merchant Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

func invalidConfiguration(details string) *Error {
	return &Error{Kind: KindInvalidConfiguration, Message: "invalid configuration", Details: details}
}

// transportFailure wraps a local transport error (encoding, network, open circuit).
func transportFailure(err error) *Error {
	return &Error{Kind: KindProcessingFailed, Message: err.Error(), cause: err}
}

// Classify maps a non-2xx gateway answer to an Error. It never requires the body to parse:
// an unparseable body yields KindProcessingFailed carrying the raw text.
func Classify(statusCode int, body []byte) *Error {
	e := &Error{Kind: KindProcessingFailed, StatusCode: statusCode}

	parsed, err := client.DecodeErrorBody(body)
	if err != nil {
		e.Message = http.StatusText(statusCode)
		if e.Message == "" {
			e.Message = "unexpected response"
		}
		e.Details = string(body)
	} else {
		e.Message = *parsed.Message
		if parsed.Code != nil {
			e.Code = *parsed.Code
		}
		if detail, ok := parsed.FirstDetail(); ok {
			e.Details = detail
		}
	}

	switch {
	case statusCode == http.StatusNotFound && e.Code == codeMerchantNotFound:
		e.Kind = KindMerchantNotFound
	case statusCode == http.StatusBadRequest && e.Code == codeInvalidBusinessType:
		e.Kind = KindInvalidConfiguration
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		e.Kind = KindAuthenticationFailed
	case statusCode == http.StatusTooManyRequests:
		e.Kind = KindRateLimitExceeded
	}
	return e
}
