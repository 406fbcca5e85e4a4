package wave

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/wave-connector/internal/adapter"
)

func TestPaymentStatus_AttemptStatus(t *testing.T) {
	tests := []struct {
		wire string
		want adapter.AttemptStatus
	}{
		{"created", adapter.AttemptStatusPending},
		{"pending", adapter.AttemptStatusPending},
		{"completed", adapter.AttemptStatusCharged},
		{"failed", adapter.AttemptStatusFailure},
		{"cancelled", adapter.AttemptStatusVoided},
	}
	for _, tt := range tests {
		t.Run(tt.wire, func(t *testing.T) {
			var s PaymentStatus
			require.NoError(t, json.Unmarshal([]byte(`"`+tt.wire+`"`), &s))
			assert.Equal(t, tt.want, s.AttemptStatus())
		})
	}
}

func TestRefundStatus_CanonicalStatus(t *testing.T) {
	tests := []struct {
		wire string
		want adapter.RefundStatus
	}{
		{"processing", adapter.RefundStatusPending},
		{"completed", adapter.RefundStatusSuccess},
		{"failed", adapter.RefundStatusFailure},
		{"cancelled", adapter.RefundStatusFailure},
	}
	for _, tt := range tests {
		t.Run(tt.wire, func(t *testing.T) {
			var s RefundStatus
			require.NoError(t, json.Unmarshal([]byte(`"`+tt.wire+`"`), &s))
			assert.Equal(t, tt.want, s.CanonicalStatus())
		})
	}
}

func TestStatus_UnknownValuesRejected(t *testing.T) {
	var p PaymentStatus
	err := json.Unmarshal([]byte(`"succeeded"`), &p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown payment status "succeeded"`)

	assert.Error(t, json.Unmarshal([]byte(`"COMPLETED"`), &p), "matching is case sensitive")
	assert.Error(t, json.Unmarshal([]byte(`3`), &p))

	var r RefundStatus
	assert.Error(t, json.Unmarshal([]byte(`"pending"`), &r))
}
