// Package aggregated manages Wave aggregated merchants: the sub-merchant
// identities some merchant-of-record configurations must attach to a checkout
// session. It holds the remote CRUD service, the validation rules applied
// before any create or update call, and the resolver that decides which
// aggregated merchant id, if any, an authorize call should use.
package aggregated

import (
	"time"

	"github.com/yourorg/wave-connector/internal/context"
)

// MerchantIDPrefix starts every aggregated merchant id.
const MerchantIDPrefix = "am-"

// DefaultBusinessType is used when neither metadata nor auth config name one.
const DefaultBusinessType = "other"

// AggregatedMerchant as returned by the gateway.
type AggregatedMerchant struct {
	ID                             string     `json:"id"`
	Name                           string     `json:"name"`
	BusinessType                   string     `json:"business_type"`
	BusinessRegistrationIdentifier *string    `json:"business_registration_identifier,omitempty"`
	BusinessSector                 *string    `json:"business_sector,omitempty"`
	WebsiteURL                     *string    `json:"website_url,omitempty"`
	BusinessDescription            string     `json:"business_description"`
	ManagerName                    *string    `json:"manager_name,omitempty"`
	Status                         string     `json:"status,omitempty"`
	CreatedAt                      *time.Time `json:"when_created,omitempty"`
	UpdatedAt                      *time.Time `json:"when_updated,omitempty"`
}

// CreateRequest is the body of POST /v1/aggregated_merchants.
type CreateRequest struct {
	Name                           string  `json:"name" validate:"required,notblank"`
	BusinessType                   string  `json:"business_type" validate:"required,notblank"`
	BusinessRegistrationIdentifier *string `json:"business_registration_identifier,omitempty" validate:"omitnil,max=50"`
	BusinessSector                 *string `json:"business_sector,omitempty" validate:"omitnil,max=100"`
	WebsiteURL                     *string `json:"website_url,omitempty" validate:"omitnil,max=2083,web_url"`
	BusinessDescription            string  `json:"business_description" validate:"required,notblank,max=500"`
	ManagerName                    *string `json:"manager_name,omitempty" validate:"omitnil,notblank,max=100"`
}

// UpdateRequest is the body of PUT /v1/aggregated_merchants/{id}. Nil fields are left unchanged.
type UpdateRequest struct {
	Name                           *string `json:"name,omitempty" validate:"omitnil,notblank"`
	BusinessType                   *string `json:"business_type,omitempty" validate:"omitnil,notblank"`
	BusinessRegistrationIdentifier *string `json:"business_registration_identifier,omitempty" validate:"omitnil,max=50"`
	BusinessSector                 *string `json:"business_sector,omitempty" validate:"omitnil,max=100"`
	WebsiteURL                     *string `json:"website_url,omitempty" validate:"omitnil,max=2083,web_url"`
	BusinessDescription            *string `json:"business_description,omitempty" validate:"omitnil,notblank,max=500"`
	ManagerName                    *string `json:"manager_name,omitempty" validate:"omitnil,notblank,max=100"`
}

// ListOptions paginates List.
type ListOptions struct {
	Limit  int
	Cursor string
}

// PageInfo tells whether more merchants follow.
type PageInfo struct {
	HasNextPage bool    `json:"has_next_page"`
	EndCursor   *string `json:"end_cursor,omitempty"`
}

// ListResponse is one page of aggregated merchants.
type ListResponse struct {
	Items    []AggregatedMerchant `json:"items"`
	PageInfo PageInfo             `json:"page_info"`
}

// LookupResult is the outcome for one id of GetMultiple.
type LookupResult struct {
	ID       string
	Merchant *AggregatedMerchant
	Err      error
}

// Metadata is the aggregated merchant part of the connector metadata attached to a
// merchant connector account. Every field is optional.
type Metadata struct {
	AggregatedMerchantID           *string `json:"aggregated_merchant_id,omitempty" validate:"omitnil,merchant_id"`
	AggregatedMerchantName         *string `json:"aggregated_merchant_name,omitempty" validate:"omitnil,notblank"`
	AutoCreateAggregatedMerchant   *bool   `json:"auto_create_aggregated_merchant,omitempty"`
	BusinessType                   *string `json:"business_type,omitempty" validate:"omitnil,notblank"`
	BusinessDescription            *string `json:"business_description,omitempty" validate:"omitnil,notblank,max=500"`
	ManagerName                    *string `json:"manager_name,omitempty" validate:"omitnil,notblank,max=100"`
	BusinessRegistrationIdentifier *string `json:"business_registration_identifier,omitempty" validate:"omitnil,max=50"`
	BusinessSector                 *string `json:"business_sector,omitempty" validate:"omitnil,max=100"`
	WebsiteURL                     *string `json:"website_url,omitempty" validate:"omitnil,max=2083,web_url"`
	CacheEnabled                   *bool   `json:"cache_enabled,omitempty"`
	CacheTTLSeconds                *int64  `json:"cache_ttl_seconds,omitempty" validate:"omitnil,min=60,max=86400"`
}

// Settings are the aggregated merchant feature flags taken from the connector auth config.
type Settings struct {
	APIKey                       context.Secret
	AggregatedMerchantsEnabled   bool
	AutoCreateAggregatedMerchant bool
	DefaultBusinessType          string
	CacheTTLSeconds              int64
}

// FallbackStrategy is tried, in caller order, when resolution yields no merchant id.
type FallbackStrategy string

const (
	// FallbackUseDefault is reserved for a default-merchant lookup; it logs and moves on.
	FallbackUseDefault FallbackStrategy = "use_default"
	// FallbackCreateTemporary auto-creates a merchant from the profile alone.
	FallbackCreateTemporary FallbackStrategy = "create_temporary"
	// FallbackSkip ends resolution with no merchant id.
	FallbackSkip FallbackStrategy = "skip"
)

// ParseFallbackStrategies converts config values into strategies, rejecting unknown names.
func ParseFallbackStrategies(names []string) ([]FallbackStrategy, error) {
	out := make([]FallbackStrategy, 0, len(names))
	for _, n := range names {
		switch s := FallbackStrategy(n); s {
		case FallbackUseDefault, FallbackCreateTemporary, FallbackSkip:
			out = append(out, s)
		default:
			return nil, invalidConfiguration("fallback_strategies: unknown strategy " + n)
		}
	}
	return out, nil
}

// Source says where a resolved merchant id came from.
type Source string

const (
	SourceNone      Source = "none"
	SourceMetadata  Source = "metadata"
	SourceCache     Source = "cache"
	SourceCreated   Source = "auto_created"
	SourceTemporary Source = "fallback_temporary"
)

// Resolution is the outcome of resolving an aggregated merchant for one authorize call.
type Resolution struct {
	MerchantID string
	Source     Source
}

// Found reports whether a merchant id was resolved.
func (r Resolution) Found() bool {
	return r.MerchantID != ""
}

func noMerchant() Resolution {
	return Resolution{Source: SourceNone}
}
