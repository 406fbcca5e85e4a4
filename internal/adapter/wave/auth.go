package wave

import (
	"encoding/json"
	"strings"

	"github.com/yourorg/wave-connector/internal/adapter"
	"github.com/yourorg/wave-connector/internal/adapter/wave/aggregated"
	"github.com/yourorg/wave-connector/internal/context"
)

// DefaultCacheTTLSeconds is the id cache TTL hint used when the auth config sets none.
const DefaultCacheTTLSeconds = 3600

// AuthConfig is the Wave API key plus the aggregated merchant feature flags.
type AuthConfig struct {
	APIKey                       context.Secret
	AggregatedMerchantsEnabled   bool
	AutoCreateAggregatedMerchant bool
	DefaultBusinessType          string
	CacheTTLSeconds              int64
}

// enhancedConfig is the JSON blob carried in Key1 of a BodyKey account.
type enhancedConfig struct {
	AggregatedMerchantsEnabled   *bool   `json:"aggregated_merchants_enabled"`
	AutoCreateAggregatedMerchant *bool   `json:"auto_create_aggregated_merchant"`
	DefaultBusinessType          *string `json:"default_business_type"`
	CacheTTLSeconds              *int64  `json:"cache_ttl_seconds"`
}

// NewAuthConfig returns a key-only config with aggregated merchants disabled.
func NewAuthConfig(apiKey context.Secret) AuthConfig {
	return AuthConfig{
		APIKey:              apiKey,
		DefaultBusinessType: aggregated.DefaultBusinessType,
		CacheTTLSeconds:     DefaultCacheTTLSeconds,
	}
}

// NewAuthConfigWithEnhanced applies the enhanced config blob on top of NewAuthConfig.
// A blank or malformed blob leaves the defaults in place.
func NewAuthConfigWithEnhanced(apiKey context.Secret, blob string) AuthConfig {
	cfg := NewAuthConfig(apiKey)
	if strings.TrimSpace(blob) == "" {
		return cfg
	}
	var ec enhancedConfig
	if err := json.Unmarshal([]byte(blob), &ec); err != nil {
		return cfg
	}
	if ec.AggregatedMerchantsEnabled != nil {
		cfg.AggregatedMerchantsEnabled = *ec.AggregatedMerchantsEnabled
	}
	if ec.AutoCreateAggregatedMerchant != nil {
		cfg.AutoCreateAggregatedMerchant = *ec.AutoCreateAggregatedMerchant
	}
	if ec.DefaultBusinessType != nil && strings.TrimSpace(*ec.DefaultBusinessType) != "" {
		cfg.DefaultBusinessType = *ec.DefaultBusinessType
	}
	if ec.CacheTTLSeconds != nil && *ec.CacheTTLSeconds > 0 {
		cfg.CacheTTLSeconds = *ec.CacheTTLSeconds
	}
	return cfg
}

// AuthConfigFromCredentials reads the account credentials.
// HeaderKey carries the key alone; BodyKey adds the enhanced config blob in Key1.
func AuthConfigFromCredentials(creds context.Credentials) (AuthConfig, error) {
	if creds.APIKey.IsEmpty() {
		return AuthConfig{}, adapter.NewConnectorError(adapter.ErrFailedToObtainAuthType, "api key is empty")
	}
	switch creds.AuthType {
	case context.AuthTypeHeaderKey:
		return NewAuthConfig(creds.APIKey), nil
	case context.AuthTypeBodyKey:
		return NewAuthConfigWithEnhanced(creds.APIKey, creds.Key1.Expose()), nil
	default:
		return AuthConfig{}, adapter.NewConnectorError(adapter.ErrFailedToObtainAuthType,
			"unsupported auth type "+string(creds.AuthType))
	}
}

// Settings returns the part of the config the aggregated merchant resolver needs.
func (c AuthConfig) Settings() aggregated.Settings {
	return aggregated.Settings{
		APIKey:                       c.APIKey,
		AggregatedMerchantsEnabled:   c.AggregatedMerchantsEnabled,
		AutoCreateAggregatedMerchant: c.AutoCreateAggregatedMerchant,
		DefaultBusinessType:          c.DefaultBusinessType,
		CacheTTLSeconds:              c.CacheTTLSeconds,
	}
}
