package wave

import (
	"encoding/json"
	"fmt"

	"github.com/yourorg/wave-connector/internal/adapter"
)

// PaymentStatus is the gateway's checkout session payment status.
type PaymentStatus string

const (
	PaymentStatusCreated   PaymentStatus = "created"
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// UnmarshalJSON rejects values outside the known set.
func (s *PaymentStatus) UnmarshalJSON(b []byte) error {
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch p := PaymentStatus(v); p {
	case PaymentStatusCreated, PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled:
		*s = p
		return nil
	}
	return fmt.Errorf("unknown payment status %q", v)
}

// AttemptStatus maps the gateway status to the canonical attempt status.
func (s PaymentStatus) AttemptStatus() adapter.AttemptStatus {
	switch s {
	case PaymentStatusCompleted:
		return adapter.AttemptStatusCharged
	case PaymentStatusFailed:
		return adapter.AttemptStatusFailure
	case PaymentStatusCancelled:
		return adapter.AttemptStatusVoided
	default:
		return adapter.AttemptStatusPending
	}
}

// RefundStatus is the gateway's refund status.
type RefundStatus string

const (
	RefundStatusProcessing RefundStatus = "processing"
	RefundStatusCompleted  RefundStatus = "completed"
	RefundStatusFailed     RefundStatus = "failed"
	RefundStatusCancelled  RefundStatus = "cancelled"
)

// UnmarshalJSON rejects values outside the known set.
func (s *RefundStatus) UnmarshalJSON(b []byte) error {
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch r := RefundStatus(v); r {
	case RefundStatusProcessing, RefundStatusCompleted, RefundStatusFailed, RefundStatusCancelled:
		*s = r
		return nil
	}
	return fmt.Errorf("unknown refund status %q", v)
}

// CanonicalStatus maps the gateway status to the canonical refund status.
// A cancelled refund is a failed one.
func (s RefundStatus) CanonicalStatus() adapter.RefundStatus {
	switch s {
	case RefundStatusCompleted:
		return adapter.RefundStatusSuccess
	case RefundStatusFailed, RefundStatusCancelled:
		return adapter.RefundStatusFailure
	default:
		return adapter.RefundStatusPending
	}
}
