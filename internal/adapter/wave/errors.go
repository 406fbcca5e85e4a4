package wave

import (
	"github.com/yourorg/wave-connector/internal/adapter"
	"github.com/yourorg/wave-connector/internal/adapter/wave/client"
)

const unparseableErrorReason = "unable to parse error response"

// BuildErrorResponse turns a non-2xx gateway answer into the canonical error triple.
// It never fails: an unparseable body gets placeholder code and message.
func BuildErrorResponse(statusCode int, body []byte) *adapter.ErrorResponse {
	parsed, err := client.DecodeErrorBody(body)
	if err != nil {
		reason := unparseableErrorReason
		return &adapter.ErrorResponse{
			StatusCode: statusCode,
			Code:       adapter.NoErrorCode,
			Message:    adapter.NoErrorMessage,
			Reason:     &reason,
		}
	}

	resp := &adapter.ErrorResponse{
		StatusCode: statusCode,
		Code:       adapter.NoErrorCode,
		Message:    *parsed.Message,
	}
	if parsed.Code != nil {
		resp.Code = *parsed.Code
	}
	if detail, ok := parsed.FirstDetail(); ok {
		resp.Reason = &detail
	}
	return resp
}
