package adapter

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectorError_IsKind(t *testing.T) {
	err := NewConnectorError(ErrNotImplemented, "capture")
	assert.True(t, errors.Is(err, ErrNotImplemented))
	assert.False(t, errors.Is(err, ErrWebhooksNotImplemented))
	assert.Equal(t, "connector: not implemented: capture", err.Error())

	wrapped := fmt.Errorf("wave: authorize: %w", err)
	var ce *ConnectorError
	require.True(t, errors.As(wrapped, &ce))
	assert.Equal(t, "capture", ce.Detail)

	bare := NewConnectorError(ErrMissingConnectorTransactionID, "")
	assert.Equal(t, ErrMissingConnectorTransactionID.Error(), bare.Error())
}

func TestErrorResponse(t *testing.T) {
	reason := "amount: must be positive"
	err := error(&ErrorResponse{StatusCode: 400, Code: "invalid-amount", Message: "bad request", Reason: &reason})

	assert.True(t, errors.Is(err, ErrGatewayRejected))
	assert.Contains(t, err.Error(), "HTTP 400")
	assert.Contains(t, err.Error(), "amount: must be positive")

	var er *ErrorResponse
	require.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &er))
	assert.Equal(t, "invalid-amount", er.Code)

	noReason := &ErrorResponse{StatusCode: 500, Code: NoErrorCode, Message: NoErrorMessage}
	assert.Equal(t, "gateway error (HTTP 500) No error code: No error message", noReason.Error())
}
