// Package providers polls provider billing endpoints for account-level spend.
// Rows produced here carry the budget_api pricing source and flow through the
// same attribution pipeline as collector rows.
package providers

import (
	"context"
	"net/http"
	"time"

	"cost_engine/internal/models"
)

// BudgetInfo is one account's reported spend.
type BudgetInfo struct {
	// APIKeyRef identifies the billed account so budget rows dedupe against
	// collector rows drawing on the same account.
	APIKeyRef string

	// SpentUSD is the provider-reported spend. Nil means the endpoint
	// answered but did not include a figure.
	SpentUSD *float64
}

// BudgetClient fetches spend from one provider's billing endpoint.
type BudgetClient interface {
	// Name returns the provider name the fetched rows are attributed to
	Name() string

	// FetchBudget retrieves the account's current spend
	FetchBudget(ctx context.Context) (*BudgetInfo, error)

	// Close performs cleanup when the client is no longer needed
	Close() error
}

// BudgetSource aggregates budget clients into a usage row source the engine
// can merge with collector rows.
type BudgetSource struct {
	clients []BudgetClient
}

// NewBudgetSource creates a budget source over the given clients.
func NewBudgetSource(clients ...BudgetClient) *BudgetSource {
	return &BudgetSource{clients: clients}
}

// ListRows fetches every client's budget and maps it to usage rows. A failing
// client is skipped rather than failing the whole refresh; its account simply
// reports no budget row this cycle. The window is ignored: budget endpoints
// report a running total, not a slice.
func (s *BudgetSource) ListRows(ctx context.Context, from, to time.Time) ([]models.UsageRow, error) {
	rows := make([]models.UsageRow, 0, len(s.clients))
	for _, client := range s.clients {
		info, err := client.FetchBudget(ctx)
		if err != nil || info == nil {
			continue
		}
		rows = append(rows, models.UsageRow{
			Provider:         client.Name(),
			APIKeyRef:        info.APIKeyRef,
			PricingSource:    models.PricingSourceBudgetAPI,
			TotalUsedCostUSD: models.SanitizeCost(info.SpentUSD),
		})
	}
	return rows, nil
}

// Close closes every client.
func (s *BudgetSource) Close() error {
	var firstErr error
	for _, client := range s.clients {
		if err := client.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// headerAuth applies a static header to outbound requests.
type headerAuth struct {
	header string
	value  string
}

func newBearerAuth(apiKey string) headerAuth {
	return headerAuth{header: "Authorization", value: "Bearer " + apiKey}
}

func (a headerAuth) apply(req *http.Request) {
	req.Header.Set(a.header, a.value)
}
