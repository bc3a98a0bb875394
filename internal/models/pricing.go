package models

import "time"

//
// Pricing enums (stored as TEXT in Postgres)
//

type PricingMode string
type PricingSource string

const (
	PricingModeNone         PricingMode = "none"
	PricingModePerRequest   PricingMode = "per_request"
	PricingModePackageTotal PricingMode = "package_total"
	PricingModeMonthlyFee   PricingMode = "monthly_fee"

	PricingSourceNone         PricingSource = "none"
	PricingSourcePerRequest   PricingSource = "per_request"
	PricingSourcePackageTotal PricingSource = "package_total"
	PricingSourceMonthlyFee   PricingSource = "monthly_fee"
	PricingSourceTokenRate    PricingSource = "token_rate"
	PricingSourceBudgetAPI    PricingSource = "budget_api"

	// PricingSourceMixed is a display-only value for groups whose rows
	// disagree on their source. It never appears on a UsageRow.
	PricingSourceMixed PricingSource = "mixed"
)

// Source returns the pricing source label corresponding to a mode.
func (m PricingMode) Source() PricingSource {
	switch m {
	case PricingModePerRequest:
		return PricingSourcePerRequest
	case PricingModePackageTotal:
		return PricingSourcePackageTotal
	case PricingModeMonthlyFee:
		return PricingSourceMonthlyFee
	default:
		return PricingSourceNone
	}
}

// SharedCost reports whether the source describes an account-level invoice.
// Such costs are billed once per account no matter how many provider entries
// draw on it, so they participate in shared-key deduplication. Per-request
// costs are billed independently and never dedupe.
func (s PricingSource) SharedCost() bool {
	switch s {
	case PricingSourcePackageTotal, PricingSourceMonthlyFee,
		PricingSourceTokenRate, PricingSourceBudgetAPI:
		return true
	}
	return false
}

//
// ScheduleEntry (pricing_schedule_entries table)
//

// ScheduleEntry is one priced period in a provider's pricing timeline.
// Entries are ordered by StartsAt and must not overlap; at most one entry
// covers any instant.
type ScheduleEntry struct {
	Amount    float64    `db:"amount" json:"amount"`
	Currency  string     `db:"currency" json:"currency"`
	StartsAt  time.Time  `db:"starts_at" json:"starts_at"`
	ExpiresAt *time.Time `db:"expires_at" json:"expires_at,omitempty"`
}

// Covers reports whether the entry is active at the given instant.
// The span is half-open: [StartsAt, ExpiresAt).
func (e ScheduleEntry) Covers(at time.Time) bool {
	if at.Before(e.StartsAt) {
		return false
	}
	if e.ExpiresAt != nil && !at.Before(*e.ExpiresAt) {
		return false
	}
	return true
}

//
// PricingConfig (pricing_configs table + joined schedule)
//

// PricingConfig is a provider's billing model. Mutated only through explicit
// save operations, never inferred from usage.
type PricingConfig struct {
	Provider string      `db:"provider" json:"provider"`
	Mode     PricingMode `db:"mode" json:"mode"`

	// Currency is the default for schedule entries that leave theirs empty.
	Currency string `db:"currency" json:"currency"`

	// Joined in code, not a DB column:
	Schedule []ScheduleEntry `db:"-" json:"schedule,omitempty"`
}

// EffectiveCost is the outcome of resolving a pricing config against a usage
// window. A nil TotalUSD means the cost is unknown, not free.
type EffectiveCost struct {
	TotalUSD *float64      `json:"total_usd,omitempty"`
	Source   PricingSource `json:"source"`
}
