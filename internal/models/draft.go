package models

import (
	"fmt"
	"strings"

	"cost_engine/internal/utils"
)

// PricingDraft is an in-progress, unsaved edit of a PricingConfig.
//
// The raw input strings exist so the UI can echo exactly what the user typed;
// they are cosmetic and excluded from the signature.
type PricingDraft struct {
	Provider string          `json:"provider"`
	Mode     PricingMode     `json:"mode"`
	Currency string          `json:"currency"`
	Schedule []ScheduleEntry `json:"schedule,omitempty"`

	// GroupProviders lists every provider sharing the edited account, when
	// the draft targets a shared-key group rather than a single provider.
	GroupProviders []string `json:"group_providers,omitempty"`

	AmountText   string `json:"-"`
	CurrencyText string `json:"-"`
}

// Targets returns the provider names a save of this draft applies to.
func (d PricingDraft) Targets() []string {
	if len(d.GroupProviders) > 0 {
		return d.GroupProviders
	}
	return []string{d.Provider}
}

// TargetKey identifies the save target for last-saved-signature tracking.
func (d PricingDraft) TargetKey() string {
	return strings.Join(d.Targets(), ",")
}

// Signature returns a stable hash of the draft's semantically relevant
// fields. Two drafts with the same signature would persist identically, so a
// save may be skipped; raw input text never contributes.
func (d PricingDraft) Signature() string {
	var b strings.Builder
	b.WriteString(string(d.Mode))
	b.WriteByte('|')
	b.WriteString(strings.ToUpper(d.Currency))
	for _, e := range d.Schedule {
		fmt.Fprintf(&b, "|%g@%s:%d", e.Amount, strings.ToUpper(e.Currency), e.StartsAt.UnixMilli())
		if e.ExpiresAt != nil {
			fmt.Fprintf(&b, "-%d", e.ExpiresAt.UnixMilli())
		}
	}
	return utils.HashString(b.String())
}
