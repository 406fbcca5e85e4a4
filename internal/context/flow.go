package context

import (
	stdcontext "context"
	"encoding/json"
	"time"
)

// AuthType names the credential shape configured for a merchant connector account.
type AuthType string

const (
	// AuthTypeHeaderKey carries only an API key.
	AuthTypeHeaderKey AuthType = "HeaderKey"
	// AuthTypeBodyKey carries an API key plus a second value (Key1), used for an enhanced JSON config blob.
	AuthTypeBodyKey AuthType = "BodyKey"
	// AuthTypeNoKey means no credentials were configured.
	AuthTypeNoKey AuthType = "NoKey"
)

// Credentials represent the authentication details for a specific payment connector.
type Credentials struct {
	AuthType AuthType
	APIKey   Secret
	Key1     Secret
}

// FlowContext is derived for each connector flow (authorize, sync, void, refund, refund sync).
// It is owned by the caller; connectors read it and never mutate it.
type FlowContext struct {
	Trace             TraceContext
	MerchantID        string
	ProfileName       string          // Business profile, used when naming auto-created aggregated merchants
	ConnectorName     string          // Connector the flow is routed to (e.g., "wave")
	Credentials       Credentials     // Auth for the connector
	ConnectorMetadata json.RawMessage // Opaque metadata blob attached to the merchant connector account
	StartTime         time.Time
}

// Context returns the standard context for cancellation.
func (fc FlowContext) Context() stdcontext.Context {
	return fc.Trace.Context()
}

// ProfileOrMerchant returns the profile name, falling back to the merchant id.
func (fc FlowContext) ProfileOrMerchant() string {
	if fc.ProfileName != "" {
		return fc.ProfileName
	}
	return fc.MerchantID
}

// DeriveFlowContext creates a FlowContext for one flow execution against a merchant connector account.
func DeriveFlowContext(tc TraceContext, account MerchantConnectorAccount) FlowContext {
	tc.NewSpan()
	return FlowContext{
		Trace:             tc,
		MerchantID:        account.MerchantID,
		ProfileName:       account.ProfileName,
		ConnectorName:     account.ConnectorName,
		Credentials:       account.Credentials,
		ConnectorMetadata: account.Metadata,
		StartTime:         time.Now(),
	}
}
