package models

// ProviderDisplayGroup merges the usage rows that share one billed account
// into a single display row. Derived on every aggregation pass, never
// persisted.
type ProviderDisplayGroup struct {
	// GroupKey is the shared APIKeyRef, or the provider name for rows that
	// have no real shared key.
	GroupKey  string   `json:"group_key"`
	Providers []string `json:"providers"`
	APIKeyRef string   `json:"api_key_ref,omitempty"`

	Requests    int64 `json:"requests"`
	TotalTokens int64 `json:"total_tokens"`

	// Ratio fields are nil when their denominator is zero or the cost is
	// unknown.
	TokensPerRequest    *float64 `json:"tokens_per_request,omitempty"`
	USDPerRequest       *float64 `json:"usd_per_request,omitempty"`
	USDPerMillionTokens *float64 `json:"usd_per_million_tokens,omitempty"`

	EffectiveDailyUSD *float64 `json:"effective_daily_usd,omitempty"`
	EffectiveTotalUSD *float64 `json:"effective_total_usd,omitempty"`

	// Source is the single distinct pricing source when all rows agree,
	// PricingSourceMixed when they disagree, nil when none is present.
	Source *PricingSource `json:"source,omitempty"`
}
