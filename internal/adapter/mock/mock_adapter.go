package mock

import (
	"sync"

	"github.com/google/uuid"
	"github.com/yourorg/wave-connector/internal/adapter"
	"github.com/yourorg/wave-connector/internal/context"
)

// MockAdapter is a mock implementation of the ConnectorAdapter interface for testing.
// Each flow calls its hook if set, otherwise returns a default successful result.
type MockAdapter struct {
	Name string

	AuthorizeFunc func(fc context.FlowContext, req *adapter.AuthorizeRequest) (*adapter.PaymentsResponse, error)
	PSyncFunc     func(fc context.FlowContext, req *adapter.SyncRequest) (*adapter.PaymentsResponse, error)
	VoidFunc      func(fc context.FlowContext, req *adapter.CancelRequest) (*adapter.PaymentsResponse, error)
	RefundFunc    func(fc context.FlowContext, req *adapter.RefundRequest) (*adapter.RefundsResponse, error)
	RSyncFunc     func(fc context.FlowContext, req *adapter.RefundSyncRequest) (*adapter.RefundsResponse, error)

	mu    sync.Mutex
	calls map[string]int
}

// NewMockAdapter creates a new MockAdapter.
func NewMockAdapter(name string) *MockAdapter {
	return &MockAdapter{Name: name, calls: make(map[string]int)}
}

// GetName implements the ConnectorAdapter interface.
func (m *MockAdapter) GetName() string {
	return m.Name
}

// Calls returns how many times the named flow was invoked.
func (m *MockAdapter) Calls(flow string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[flow]
}

func (m *MockAdapter) record(flow string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[flow]++
}

func (m *MockAdapter) Authorize(fc context.FlowContext, req *adapter.AuthorizeRequest) (*adapter.PaymentsResponse, error) {
	m.record("authorize")
	if m.AuthorizeFunc != nil {
		return m.AuthorizeFunc(fc, req)
	}
	return &adapter.PaymentsResponse{
		Status:               adapter.AttemptStatusPending,
		ResourceID:           "mock-session-" + uuid.NewString(),
		Redirection:          &adapter.RedirectForm{Endpoint: "https://pay.example.test/" + req.PaymentID, Method: "GET"},
		ConnectorReferenceID: req.ReferenceID,
	}, nil
}

func (m *MockAdapter) PSync(fc context.FlowContext, req *adapter.SyncRequest) (*adapter.PaymentsResponse, error) {
	m.record("psync")
	if m.PSyncFunc != nil {
		return m.PSyncFunc(fc, req)
	}
	return &adapter.PaymentsResponse{Status: adapter.AttemptStatusCharged, ResourceID: req.ConnectorResourceID}, nil
}

func (m *MockAdapter) Void(fc context.FlowContext, req *adapter.CancelRequest) (*adapter.PaymentsResponse, error) {
	m.record("void")
	if m.VoidFunc != nil {
		return m.VoidFunc(fc, req)
	}
	return &adapter.PaymentsResponse{Status: adapter.AttemptStatusVoided, ResourceID: req.ConnectorTransactionID}, nil
}

// Capture is unsupported, like the real connectors this mock stands in for.
func (m *MockAdapter) Capture(fc context.FlowContext, req *adapter.CaptureRequest) (*adapter.PaymentsResponse, error) {
	m.record("capture")
	return nil, adapter.NewConnectorError(adapter.ErrNotImplemented, "capture")
}

func (m *MockAdapter) Refund(fc context.FlowContext, req *adapter.RefundRequest) (*adapter.RefundsResponse, error) {
	m.record("refund")
	if m.RefundFunc != nil {
		return m.RefundFunc(fc, req)
	}
	return &adapter.RefundsResponse{ConnectorRefundID: "mock-refund-" + uuid.NewString(), Status: adapter.RefundStatusPending}, nil
}

func (m *MockAdapter) RSync(fc context.FlowContext, req *adapter.RefundSyncRequest) (*adapter.RefundsResponse, error) {
	m.record("rsync")
	if m.RSyncFunc != nil {
		return m.RSyncFunc(fc, req)
	}
	return &adapter.RefundsResponse{ConnectorRefundID: req.ConnectorRefundID, Status: adapter.RefundStatusSuccess}, nil
}

func (m *MockAdapter) WebhookObjectReferenceID(body []byte) (string, error) {
	return "", adapter.ErrWebhooksNotImplemented
}

func (m *MockAdapter) WebhookEventType(body []byte) (string, error) {
	return "", adapter.ErrWebhooksNotImplemented
}

func (m *MockAdapter) WebhookResourceObject(body []byte) (any, error) {
	return nil, adapter.ErrWebhooksNotImplemented
}

var _ adapter.ConnectorAdapter = (*MockAdapter)(nil)
