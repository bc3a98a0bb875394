// Package pricing resolves a provider's pricing configuration against a
// usage window, yielding an effective USD cost. All functions are pure: the
// caller supplies the window and FX table, nothing reads the clock.
package pricing

import (
	"time"

	"cost_engine/internal/currency"
	"cost_engine/internal/models"
)

// Usage is the request/token volume observed for a window.
type Usage struct {
	Requests    int64
	TotalTokens int64
}

// Window is a half-open time range [From, To).
type Window struct {
	From time.Time
	To   time.Time
}

// Reference returns the instant used to select the per-request rate. A rate
// change mid-window applies starting with the next window, so the opening
// instant decides.
func (w Window) Reference() time.Time {
	return w.From
}

// ResolveEffectiveCost resolves cfg against the window and usage volume.
// A nil TotalUSD means the cost could not be resolved (no covering schedule
// entry, or a currency missing from the FX table); it is never coerced to
// zero, so "cost unknown" stays distinguishable from "costs nothing".
func ResolveEffectiveCost(cfg models.PricingConfig, window Window, usage Usage, rates currency.Rates) models.EffectiveCost {
	source := cfg.Mode.Source()

	switch cfg.Mode {
	case models.PricingModeNone:
		return models.EffectiveCost{Source: models.PricingSourceNone}

	case models.PricingModePerRequest:
		entry := ActiveEntry(cfg.Schedule, window.Reference())
		if entry == nil {
			return models.EffectiveCost{Source: source}
		}
		rate := entryAmountUSD(*entry, cfg, rates)
		if rate == nil {
			return models.EffectiveCost{Source: source}
		}
		total := float64(usage.Requests) * *rate
		return models.EffectiveCost{TotalUSD: &total, Source: source}

	case models.PricingModePackageTotal, models.PricingModeMonthlyFee:
		return models.EffectiveCost{TotalUSD: prorateFee(cfg, window, rates), Source: source}

	default:
		// Unknown modes resolve as unknown, never as free.
		return models.EffectiveCost{Source: models.PricingSourceNone}
	}
}

// ActiveEntry returns the schedule entry active at the given instant.
// Entries should not overlap, but if they do, the one with the latest
// StartsAt not after the instant wins.
func ActiveEntry(schedule []models.ScheduleEntry, at time.Time) *models.ScheduleEntry {
	var best *models.ScheduleEntry
	for i := range schedule {
		e := &schedule[i]
		if !e.Covers(at) {
			continue
		}
		if best == nil || e.StartsAt.After(best.StartsAt) {
			best = e
		}
	}
	return best
}

// entryAmountUSD converts an entry's amount to USD, falling back to the
// config currency when the entry leaves its own blank.
func entryAmountUSD(e models.ScheduleEntry, cfg models.PricingConfig, rates currency.Rates) *float64 {
	code := e.Currency
	if code == "" {
		code = cfg.Currency
	}
	return currency.Convert(rates, e.Amount, code)
}

// prorateFee allocates fixed fees linearly by elapsed seconds across the
// window's overlap with each schedule entry, summed over the billing cycles
// the window spans. Expired entries still contribute to historical windows:
// changing a provider's pricing is expressed by closing the old entry, not
// by rewriting history.
func prorateFee(cfg models.PricingConfig, window Window, rates currency.Rates) *float64 {
	if !window.To.After(window.From) {
		// Degenerate window: zero elapsed seconds. Covered instants cost
		// nothing; uncovered instants are unknown.
		if ActiveEntry(cfg.Schedule, window.From) != nil {
			zero := 0.0
			return &zero
		}
		return nil
	}

	total := 0.0
	covered := false
	for _, e := range cfg.Schedule {
		spanTo := window.To
		if e.ExpiresAt != nil && e.ExpiresAt.Before(spanTo) {
			spanTo = *e.ExpiresAt
		}
		ovFrom := maxTime(window.From, e.StartsAt)
		ovTo := minTime(window.To, spanTo)
		if !ovTo.After(ovFrom) {
			continue
		}

		amountUSD := entryAmountUSD(e, cfg, rates)
		if amountUSD == nil {
			// A missing FX rate makes the whole window unresolvable.
			return nil
		}
		covered = true

		for cycle := cycleStart(cfg.Mode, e, ovFrom); cycle.Before(ovTo); cycle = cycle.AddDate(0, 1, 0) {
			next := cycle.AddDate(0, 1, 0)
			cycleSeconds := next.Sub(cycle).Seconds()
			pFrom := maxTime(cycle, ovFrom)
			pTo := minTime(next, ovTo)
			if pTo.After(pFrom) && cycleSeconds > 0 {
				total += *amountUSD * pTo.Sub(pFrom).Seconds() / cycleSeconds
			}
		}
	}

	if !covered {
		return nil
	}
	return &total
}

// cycleStart returns the start of the billing cycle containing at.
// Monthly fees follow calendar months; package totals run in monthly cycles
// anchored at the entry's StartsAt.
func cycleStart(mode models.PricingMode, e models.ScheduleEntry, at time.Time) time.Time {
	if mode == models.PricingModeMonthlyFee {
		return time.Date(at.Year(), at.Month(), 1, 0, 0, 0, 0, at.Location())
	}
	cycle := e.StartsAt
	for {
		next := cycle.AddDate(0, 1, 0)
		if next.After(at) {
			return cycle
		}
		cycle = next
	}
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
