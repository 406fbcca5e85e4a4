package mock

import (
	go_std_context "context"
	"errors"
	"fmt"
	"testing"

	"github.com/yourorg/wave-connector/internal/adapter"
	"github.com/yourorg/wave-connector/internal/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlowContext() context.FlowContext {
	return context.DeriveFlowContext(
		context.NewTraceContext(go_std_context.Background()),
		context.MerchantConnectorAccount{MerchantID: "m1", ConnectorName: "mock"},
	)
}

func TestNewMockAdapter(t *testing.T) {
	mock := NewMockAdapter("test_mock")
	require.NotNil(t, mock)
	assert.Equal(t, "test_mock", mock.GetName())
}

func TestMockAdapter_Authorize_DefaultBehavior(t *testing.T) {
	mock := NewMockAdapter("default_mock")
	req := &adapter.AuthorizeRequest{PaymentID: "pay_1", ReferenceID: "ref_1", Amount: 1000, Currency: "XOF"}

	resp, err := mock.Authorize(newFlowContext(), req)
	require.NoError(t, err)
	assert.Equal(t, adapter.AttemptStatusPending, resp.Status)
	assert.NotEmpty(t, resp.ResourceID)
	assert.Equal(t, "ref_1", resp.ConnectorReferenceID)
	require.NotNil(t, resp.Redirection)
	assert.Equal(t, 1, mock.Calls("authorize"))
}

func TestMockAdapter_Authorize_WithCustomFunc_Error(t *testing.T) {
	mock := NewMockAdapter("custom_mock_error")
	expectedError := fmt.Errorf("custom processing error")
	mock.AuthorizeFunc = func(fc context.FlowContext, req *adapter.AuthorizeRequest) (*adapter.PaymentsResponse, error) {
		return nil, expectedError
	}

	resp, err := mock.Authorize(newFlowContext(), &adapter.AuthorizeRequest{PaymentID: "pay_2"})
	require.Error(t, err)
	assert.Equal(t, expectedError, err)
	assert.Nil(t, resp)
}

func TestMockAdapter_OtherFlows(t *testing.T) {
	mock := NewMockAdapter("flows")
	fc := newFlowContext()

	synced, err := mock.PSync(fc, &adapter.SyncRequest{ConnectorResourceID: "sess_1"})
	require.NoError(t, err)
	assert.Equal(t, adapter.AttemptStatusCharged, synced.Status)
	assert.Equal(t, "sess_1", synced.ResourceID)

	voided, err := mock.Void(fc, &adapter.CancelRequest{ConnectorTransactionID: "txn_1"})
	require.NoError(t, err)
	assert.Equal(t, adapter.AttemptStatusVoided, voided.Status)

	refund, err := mock.Refund(fc, &adapter.RefundRequest{ConnectorTransactionID: "txn_1", RefundAmount: 500})
	require.NoError(t, err)
	assert.Equal(t, adapter.RefundStatusPending, refund.Status)

	rsynced, err := mock.RSync(fc, &adapter.RefundSyncRequest{ConnectorRefundID: refund.ConnectorRefundID})
	require.NoError(t, err)
	assert.Equal(t, adapter.RefundStatusSuccess, rsynced.Status)

	_, err = mock.Capture(fc, &adapter.CaptureRequest{ConnectorTransactionID: "txn_1"})
	assert.True(t, errors.Is(err, adapter.ErrNotImplemented))

	_, err = mock.WebhookEventType([]byte(`{}`))
	assert.ErrorIs(t, err, adapter.ErrWebhooksNotImplemented)

	assert.Equal(t, 1, mock.Calls("psync"))
	assert.Equal(t, 1, mock.Calls("void"))
	assert.Equal(t, 1, mock.Calls("refund"))
	assert.Equal(t, 1, mock.Calls("rsync"))
	assert.Equal(t, 0, mock.Calls("authorize"))
}
