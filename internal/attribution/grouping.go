package attribution

import (
	"sort"

	"cost_engine/internal/models"
	"cost_engine/internal/utils"
)

// Group merges usage rows into display groups. Rows sharing a real billed
// account merge under the API key reference; everything else gets one group
// per provider, so two providers never merge unless they share a key.
func Group(rows []models.UsageRow, ded DedupeResult) []models.ProviderDisplayGroup {
	type groupAcc struct {
		group      models.ProviderDisplayGroup
		daily      *float64
		total      *float64
		hasDaily   bool
		hasTotal   bool
		sources    map[models.PricingSource]bool
		providers  map[string]bool
	}

	accs := make(map[string]*groupAcc)
	order := make([]string, 0)

	for _, row := range rows {
		key := row.Provider
		keyRef := ""
		if row.HasSharedKey() {
			key = row.APIKeyRef
			keyRef = row.APIKeyRef
		}

		acc, ok := accs[key]
		if !ok {
			acc = &groupAcc{
				group:     models.ProviderDisplayGroup{GroupKey: key, APIKeyRef: keyRef},
				sources:   make(map[models.PricingSource]bool),
				providers: make(map[string]bool),
			}
			accs[key] = acc
			order = append(order, key)
		}

		acc.group.Requests += row.Requests
		acc.group.TotalTokens += row.TotalTokens
		acc.providers[row.Provider] = true
		if row.PricingSource != "" && row.PricingSource != models.PricingSourceNone {
			acc.sources[row.PricingSource] = true
		}

		if v := ded.EffectiveDaily[row.Key()]; v != nil {
			acc.daily = addTo(acc.daily, *v)
			acc.hasDaily = true
		}
		if v := ded.EffectiveTotal[row.Key()]; v != nil {
			acc.total = addTo(acc.total, *v)
			acc.hasTotal = true
		}
	}

	sort.Strings(order)

	groups := make([]models.ProviderDisplayGroup, 0, len(accs))
	for _, key := range order {
		acc := accs[key]
		g := acc.group

		for p := range acc.providers {
			g.Providers = append(g.Providers, p)
		}
		sort.Strings(g.Providers)

		if acc.hasDaily {
			g.EffectiveDailyUSD = acc.daily
		}
		if acc.hasTotal {
			g.EffectiveTotalUSD = acc.total
		}

		g.TokensPerRequest = utils.SafeDiv(float64(g.TotalTokens), float64(g.Requests))
		if g.EffectiveTotalUSD != nil {
			g.USDPerRequest = utils.SafeDiv(*g.EffectiveTotalUSD, float64(g.Requests))
			g.USDPerMillionTokens = utils.SafeDiv(*g.EffectiveTotalUSD*1_000_000, float64(g.TotalTokens))
		}

		switch len(acc.sources) {
		case 0:
			// no source present, leave nil
		case 1:
			for s := range acc.sources {
				src := s
				g.Source = &src
			}
		default:
			mixed := models.PricingSourceMixed
			g.Source = &mixed
		}

		groups = append(groups, g)
	}

	return groups
}

// Totals holds the cross-group totals and arithmetic cost averages.
type Totals struct {
	Rows        int   `json:"rows"`
	Groups      int   `json:"groups"`
	Requests    int64 `json:"requests"`
	TotalTokens int64 `json:"total_tokens"`

	// Sum of all resolved total costs. Nil when no row resolved a cost.
	TotalCostUSD *float64 `json:"total_cost_usd,omitempty"`

	// Arithmetic means over rows with a resolved cost, excluding rows whose
	// cost was zeroed by dedup so duplicates do not drag the mean toward
	// zero. Their requests and tokens still count in the totals above.
	AvgDailyCostUSD *float64 `json:"avg_daily_cost_usd,omitempty"`
	AvgTotalCostUSD *float64 `json:"avg_total_cost_usd,omitempty"`
}

// ComputeTotalsAndAverages computes request/token totals over every row and
// cost averages over the rows that genuinely carry a cost.
func ComputeTotalsAndAverages(rows []models.UsageRow, groups []models.ProviderDisplayGroup, ded DedupeResult) Totals {
	t := Totals{Rows: len(rows), Groups: len(groups)}

	var sumTotal, sumDaily float64
	var nTotal, nDaily int
	hasTotal := false

	for _, row := range rows {
		t.Requests += row.Requests
		t.TotalTokens += row.TotalTokens

		if v := ded.EffectiveTotal[row.Key()]; v != nil {
			sumTotal += *v
			hasTotal = true
		}

		if ded.Zeroed(row.Key()) {
			continue
		}
		if v := ded.EffectiveTotal[row.Key()]; v != nil {
			nTotal++
		}
		if v := ded.EffectiveDaily[row.Key()]; v != nil {
			sumDaily += *v
			nDaily++
		}
	}

	if hasTotal {
		t.TotalCostUSD = &sumTotal
	}
	if nTotal > 0 {
		t.AvgTotalCostUSD = utils.SafeDiv(sumTotal, float64(nTotal))
	}
	if nDaily > 0 {
		t.AvgDailyCostUSD = utils.SafeDiv(sumDaily, float64(nDaily))
	}

	return t
}

func addTo(acc *float64, v float64) *float64 {
	if acc == nil {
		return &v
	}
	sum := *acc + v
	return &sum
}
