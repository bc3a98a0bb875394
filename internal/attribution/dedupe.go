// Package attribution deduplicates shared-account costs across providers and
// aggregates usage rows into display groups.
package attribution

import (
	"sort"

	"cost_engine/internal/models"
)

// DedupeResult carries the per-row effective costs after shared-account
// deduplication. Rows whose key appears in ZeroedKeys had their cost forced
// to zero because another row already accounts for the same invoice.
type DedupeResult struct {
	ZeroedKeys     map[models.RowKey]bool
	EffectiveDaily map[models.RowKey]*float64
	EffectiveTotal map[models.RowKey]*float64
}

// Zeroed reports whether the row's cost was zeroed as a duplicate.
func (r DedupeResult) Zeroed(key models.RowKey) bool {
	return r.ZeroedKeys[key]
}

// Dedupe decides, for every set of rows billing against one shared account,
// which single row is the source of truth for cost. Only rows whose pricing
// source reflects an account-level invoice participate; per-request rows are
// billed independently and always pass through. Non-keeper rows keep their
// request and token counts but have daily and total cost forced to zero, so
// one account's invoice is never counted N times.
//
// The result is deterministic under input reordering: the keeper is the row
// with the most requests, ties broken by APIKeyRef then Provider lexical
// order.
func Dedupe(rows []models.UsageRow) DedupeResult {
	res := DedupeResult{
		ZeroedKeys:     make(map[models.RowKey]bool),
		EffectiveDaily: make(map[models.RowKey]*float64, len(rows)),
		EffectiveTotal: make(map[models.RowKey]*float64, len(rows)),
	}

	buckets := make(map[string][]models.UsageRow)
	for _, row := range rows {
		res.EffectiveDaily[row.Key()] = models.SanitizeCost(row.EstimatedDailyCostUSD)
		res.EffectiveTotal[row.Key()] = models.SanitizeCost(row.TotalUsedCostUSD)

		if row.HasSharedKey() && row.PricingSource.SharedCost() {
			buckets[row.APIKeyRef] = append(buckets[row.APIKeyRef], row)
		}
	}

	zero := 0.0
	for _, bucket := range buckets {
		if len(bucket) < 2 {
			continue
		}
		keeper := pickKeeper(bucket)
		for _, row := range bucket {
			if row.Key() == keeper.Key() {
				continue
			}
			z := zero
			res.EffectiveDaily[row.Key()] = &z
			res.EffectiveTotal[row.Key()] = &z
			res.ZeroedKeys[row.Key()] = true
		}
	}

	return res
}

// pickKeeper selects the bucket's source-of-truth row: most requests first,
// then APIKeyRef, then Provider.
func pickKeeper(bucket []models.UsageRow) models.UsageRow {
	sorted := make([]models.UsageRow, len(bucket))
	copy(sorted, bucket)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Requests != sorted[j].Requests {
			return sorted[i].Requests > sorted[j].Requests
		}
		if sorted[i].APIKeyRef != sorted[j].APIKeyRef {
			return sorted[i].APIKeyRef < sorted[j].APIKeyRef
		}
		return sorted[i].Provider < sorted[j].Provider
	})
	return sorted[0]
}
