package attribution

import (
	"math"
	"math/rand"
	"testing"

	"cost_engine/internal/models"
	"cost_engine/internal/utils"
)

func sharedRow(provider, keyRef string, requests int64, total float64) models.UsageRow {
	return models.UsageRow{
		Provider:         provider,
		APIKeyRef:        keyRef,
		Requests:         requests,
		PricingSource:    models.PricingSourcePackageTotal,
		TotalUsedCostUSD: utils.Float64(total),
	}
}

func TestDedupeSharedBucketKeepsOneInvoice(t *testing.T) {
	rows := []models.UsageRow{
		sharedRow("openai", "acct-1", 500, 42.0),
		sharedRow("azure", "acct-1", 120, 42.0),
		sharedRow("groq", "acct-1", 80, 42.0),
	}

	res := Dedupe(rows)

	// Exactly one row in the bucket survives with its cost intact.
	zeroed := 0
	var sum float64
	for _, row := range rows {
		v := res.EffectiveTotal[row.Key()]
		if v == nil {
			t.Fatalf("row %v has nil effective total", row.Key())
		}
		sum += *v
		if res.Zeroed(row.Key()) {
			zeroed++
			if *v != 0 {
				t.Errorf("zeroed row %v has cost %v", row.Key(), *v)
			}
		}
	}
	if zeroed != 2 {
		t.Errorf("zeroed %d rows, want 2", zeroed)
	}
	if sum != 42.0 {
		t.Errorf("bucket sum after dedup = %v, want the keeper's 42.0 (no inflation, no loss)", sum)
	}

	// The keeper is the row with the most requests.
	if res.Zeroed(models.NewRowKey("openai", "acct-1")) {
		t.Error("keeper (most requests) was zeroed")
	}
}

func TestDedupeTieBreakIsDeterministic(t *testing.T) {
	rows := []models.UsageRow{
		sharedRow("zeta", "acct-1", 100, 10),
		sharedRow("alpha", "acct-1", 100, 10),
	}

	res := Dedupe(rows)
	if res.Zeroed(models.NewRowKey("alpha", "acct-1")) {
		t.Error("tie must break to the lexically smaller provider")
	}
	if !res.Zeroed(models.NewRowKey("zeta", "acct-1")) {
		t.Error("lexically larger provider must be zeroed on a tie")
	}
}

func TestDedupeIdempotentUnderReordering(t *testing.T) {
	base := []models.UsageRow{
		sharedRow("openai", "acct-1", 500, 42),
		sharedRow("azure", "acct-1", 120, 42),
		sharedRow("mistral", "acct-2", 10, 7),
		sharedRow("groq", "acct-2", 10, 7),
		{Provider: "solo", Requests: 9, PricingSource: models.PricingSourcePerRequest, TotalUsedCostUSD: utils.Float64(1.5)},
	}

	want := Dedupe(base)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		shuffled := make([]models.UsageRow, len(base))
		copy(shuffled, base)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		got := Dedupe(shuffled)
		for _, row := range base {
			if got.Zeroed(row.Key()) != want.Zeroed(row.Key()) {
				t.Fatalf("zeroed flag for %v changed under reordering", row.Key())
			}
		}
	}
}

func TestDedupePerRequestRowsNeverDedupe(t *testing.T) {
	rows := []models.UsageRow{
		{Provider: "openai", APIKeyRef: "acct-1", Requests: 500, PricingSource: models.PricingSourcePerRequest, TotalUsedCostUSD: utils.Float64(5)},
		{Provider: "azure", APIKeyRef: "acct-1", Requests: 100, PricingSource: models.PricingSourcePerRequest, TotalUsedCostUSD: utils.Float64(1)},
	}

	res := Dedupe(rows)
	for _, row := range rows {
		if res.Zeroed(row.Key()) {
			t.Errorf("per-request row %v was zeroed", row.Key())
		}
	}
	if *res.EffectiveTotal[models.NewRowKey("azure", "acct-1")] != 1 {
		t.Error("per-request row cost must pass through unchanged")
	}
}

func TestDedupeSingletonPassThrough(t *testing.T) {
	rows := []models.UsageRow{
		sharedRow("openai", "acct-1", 500, 42),
		{Provider: "bad", APIKeyRef: "acct-9", Requests: 1, PricingSource: models.PricingSourceTokenRate, TotalUsedCostUSD: utils.Float64(math.Inf(1))},
		{Provider: "unknown", Requests: 1, PricingSource: models.PricingSourceBudgetAPI},
	}

	res := Dedupe(rows)

	if v := res.EffectiveTotal[models.NewRowKey("openai", "acct-1")]; v == nil || *v != 42 {
		t.Error("singleton bucket must keep its original cost")
	}
	if v := res.EffectiveTotal[models.NewRowKey("bad", "acct-9")]; v != nil {
		t.Errorf("non-finite cost must map to nil, got %v", *v)
	}
	if v := res.EffectiveTotal[models.NewRowKey("unknown", "")]; v != nil {
		t.Errorf("absent cost must stay nil, got %v", *v)
	}
}
