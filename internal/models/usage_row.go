package models

import "math"

// PlaceholderKeyRef marks a row that is not tied to a shared billed account.
const PlaceholderKeyRef = "-"

// RowKey identifies a usage row by provider name and API key reference.
type RowKey struct {
	Provider  string
	APIKeyRef string
}

// NewRowKey builds a row key, substituting the placeholder when the row has
// no API key reference.
func NewRowKey(provider, apiKeyRef string) RowKey {
	if apiKeyRef == "" {
		apiKeyRef = PlaceholderKeyRef
	}
	return RowKey{Provider: provider, APIKeyRef: apiKeyRef}
}

// UsageRow is one provider's usage snapshot for the current refresh cycle.
// Rows are replaced wholesale on each fetch and never mutated in place.
type UsageRow struct {
	Provider  string `db:"provider" json:"provider"`
	APIKeyRef string `db:"api_key_ref" json:"api_key_ref,omitempty"`

	Requests     int64 `db:"requests" json:"requests"`
	TotalTokens  int64 `db:"total_tokens" json:"total_tokens"`
	InputTokens  int64 `db:"input_tokens" json:"input_tokens"`
	OutputTokens int64 `db:"output_tokens" json:"output_tokens"`

	PricingSource PricingSource `db:"pricing_source" json:"pricing_source"`

	// Nil means "unknown", which must never collapse to zero.
	EstimatedAvgRequestCostUSD *float64 `db:"estimated_avg_request_cost_usd" json:"estimated_avg_request_cost_usd,omitempty"`
	EstimatedDailyCostUSD      *float64 `db:"estimated_daily_cost_usd" json:"estimated_daily_cost_usd,omitempty"`
	TotalUsedCostUSD           *float64 `db:"total_used_cost_usd" json:"total_used_cost_usd,omitempty"`
}

// Key returns the row's identity key.
func (r UsageRow) Key() RowKey {
	return NewRowKey(r.Provider, r.APIKeyRef)
}

// HasSharedKey reports whether the row references a real billed account that
// other rows could share.
func (r UsageRow) HasSharedKey() bool {
	return r.APIKeyRef != "" && r.APIKeyRef != PlaceholderKeyRef
}

// SanitizeCost returns a copy of v, or nil when v is absent or non-finite.
func SanitizeCost(v *float64) *float64 {
	if v == nil {
		return nil
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	c := *v
	return &c
}
