package context

import (
	stdcontext "context"
	"encoding/json"
	"fmt"
	"sync"
)

// MerchantConnectorAccount is the configuration the platform keeps per merchant for one connector.
// This is a simplified version; the real one lives in the platform's storage.
type MerchantConnectorAccount struct {
	MerchantID    string
	ProfileName   string
	ConnectorName string
	Credentials   Credentials
	Metadata      json.RawMessage
	Disabled      bool
}

// MerchantConnectorRepository defines an interface for fetching merchant connector accounts.
type MerchantConnectorRepository interface {
	Get(merchantID string) (MerchantConnectorAccount, error)
}

// InMemoryMerchantConnectorRepository is a simple in-memory implementation.
type InMemoryMerchantConnectorRepository struct {
	mu       sync.RWMutex
	accounts map[string]MerchantConnectorAccount
}

// NewInMemoryMerchantConnectorRepository creates a new in-memory repository.
func NewInMemoryMerchantConnectorRepository() *InMemoryMerchantConnectorRepository {
	return &InMemoryMerchantConnectorRepository{
		accounts: make(map[string]MerchantConnectorAccount),
	}
}

// AddAccount adds or replaces a merchant connector account.
func (r *InMemoryMerchantConnectorRepository) AddAccount(account MerchantConnectorAccount) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[account.MerchantID] = account
}

// Get fetches a merchant connector account by merchant ID.
func (r *InMemoryMerchantConnectorRepository) Get(merchantID string) (MerchantConnectorAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	account, ok := r.accounts[merchantID]
	if !ok {
		return MerchantConnectorAccount{}, fmt.Errorf("merchant connector account not found for ID: %s", merchantID)
	}
	return account, nil
}

// ContextBuilder is responsible for creating FlowContexts from stored accounts.
type ContextBuilder struct {
	repo MerchantConnectorRepository
}

// NewContextBuilder creates a new ContextBuilder.
func NewContextBuilder(repo MerchantConnectorRepository) *ContextBuilder {
	if repo == nil {
		panic("MerchantConnectorRepository cannot be nil")
	}
	return &ContextBuilder{repo: repo}
}

// BuildFlowContext looks up the merchant's connector account and derives a FlowContext under parent.
func (cb *ContextBuilder) BuildFlowContext(parent stdcontext.Context, merchantID string) (FlowContext, error) {
	if merchantID == "" {
		return FlowContext{}, fmt.Errorf("merchant ID cannot be empty")
	}
	account, err := cb.repo.Get(merchantID)
	if err != nil {
		return FlowContext{}, fmt.Errorf("failed to get merchant connector account: %w", err)
	}
	if account.Disabled {
		return FlowContext{}, fmt.Errorf("merchant connector account %s is disabled", merchantID)
	}
	return DeriveFlowContext(NewTraceContext(parent), account), nil
}
