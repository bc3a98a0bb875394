// Package engine runs the attribution pipeline on a refresh cycle and serves
// the latest snapshot to readers.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cost_engine/internal/attribution"
	"cost_engine/internal/currency"
	"cost_engine/internal/models"
	"cost_engine/internal/pricing"
	"cost_engine/internal/utils"
)

// UsageSource lists aggregated usage rows for a window.
type UsageSource interface {
	ListRows(ctx context.Context, from, to time.Time) ([]models.UsageRow, error)
}

// ConfigSource lists all pricing configs keyed by provider.
type ConfigSource interface {
	List(ctx context.Context) (map[string]*models.PricingConfig, error)
}

// MultiSource merges usage rows from several sources into one listing.
// An error from any source fails the listing so a refresh never publishes a
// partial snapshot.
type MultiSource []UsageSource

func (m MultiSource) ListRows(ctx context.Context, from, to time.Time) ([]models.UsageRow, error) {
	var all []models.UsageRow
	for _, src := range m {
		rows, err := src.ListRows(ctx, from, to)
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
	}
	return all, nil
}

// Snapshot is one consistent result of the attribution pipeline. Readers get
// the whole struct by value; the engine never mutates a published snapshot.
type Snapshot struct {
	Window      pricing.Window                `json:"window"`
	Rows        []models.UsageRow             `json:"rows"`
	Groups      []models.ProviderDisplayGroup `json:"groups"`
	Totals      attribution.Totals            `json:"totals"`
	GeneratedAt time.Time                     `json:"generated_at"`
}

// Engine periodically recomputes cost attribution from storage and keeps the
// latest snapshot in memory.
type Engine struct {
	usage        UsageSource
	configs      ConfigSource
	rates        currency.Rates
	logger       *utils.Logger
	refreshEvery time.Duration
	fetchTimeout time.Duration

	mu       sync.RWMutex
	snapshot *Snapshot

	// OnSnapshot, when set before Start, is called after every published
	// snapshot. It runs on the refresh goroutine, so it should be quick.
	OnSnapshot func(*Snapshot)

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates an engine. It does not start the refresh loop; call Start.
func New(usage UsageSource, configs ConfigSource, rates currency.Rates, refreshEvery, fetchTimeout time.Duration, logger *utils.Logger) *Engine {
	if refreshEvery <= 0 {
		refreshEvery = time.Minute
	}
	if fetchTimeout <= 0 {
		fetchTimeout = 30 * time.Second
	}
	return &Engine{
		usage:        usage,
		configs:      configs,
		rates:        rates,
		logger:       logger,
		refreshEvery: refreshEvery,
		fetchTimeout: fetchTimeout,
		done:         make(chan struct{}),
	}
}

// Snapshot returns the latest published snapshot, or nil before the first
// successful refresh.
func (e *Engine) Snapshot() *Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshot
}

// Start launches the background refresh loop. It runs one refresh immediately
// so the first reader does not see an empty snapshot for a full interval.
func (e *Engine) Start() {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		e.refreshOnce()

		ticker := time.NewTicker(e.refreshEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				e.refreshOnce()
			case <-e.done:
				return
			}
		}
	}()
}

// Stop terminates the refresh loop and waits for it to exit.
func (e *Engine) Stop() {
	close(e.done)
	e.wg.Wait()
}

func (e *Engine) refreshOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), e.fetchTimeout)
	defer cancel()

	if err := e.Refresh(ctx); err != nil {
		if e.logger != nil {
			e.logger.Error("snapshot refresh failed", "error", err)
		}
	}
}

// Refresh recomputes the snapshot immediately. The previous snapshot stays
// published if any storage read fails, so readers never regress to empty data
// because of a transient error.
func (e *Engine) Refresh(ctx context.Context) error {
	now := time.Now().UTC()
	day := pricing.Window{
		From: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		To:   now,
	}

	rows, err := e.usage.ListRows(ctx, day.From, day.To)
	if err != nil {
		return fmt.Errorf("failed to list usage rows: %w", err)
	}

	configs, err := e.configs.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list pricing configs: %w", err)
	}

	for i := range rows {
		e.applyPricing(&rows[i], configs, day, now)
	}

	ded := attribution.Dedupe(rows)
	groups := attribution.Group(rows, ded)
	totals := attribution.ComputeTotalsAndAverages(rows, groups, ded)

	snap := &Snapshot{
		Window:      day,
		Rows:        rows,
		Groups:      groups,
		Totals:      totals,
		GeneratedAt: now,
	}

	e.mu.Lock()
	e.snapshot = snap
	e.mu.Unlock()

	if e.OnSnapshot != nil {
		e.OnSnapshot(snap)
	}

	if e.logger != nil {
		e.logger.Debug("snapshot refreshed", "rows", len(rows), "groups", len(groups))
	}
	return nil
}

// applyPricing overwrites a row's cost fields from its provider's configured
// pricing. Rows without a config keep whatever costs the collector reported,
// so token-rate and budget-API sources pass through untouched.
func (e *Engine) applyPricing(row *models.UsageRow, configs map[string]*models.PricingConfig, day pricing.Window, now time.Time) {
	cfg, ok := configs[row.Provider]
	if !ok {
		return
	}

	usage := pricing.Usage{Requests: row.Requests, TotalTokens: row.TotalTokens}

	daily := pricing.ResolveEffectiveCost(*cfg, day, usage, e.rates)
	total := pricing.ResolveEffectiveCost(*cfg, totalWindow(*cfg, day, now), usage, e.rates)

	row.PricingSource = total.Source
	row.EstimatedDailyCostUSD = daily.TotalUSD
	row.TotalUsedCostUSD = total.TotalUSD
	if total.TotalUSD != nil {
		row.EstimatedAvgRequestCostUSD = utils.SafeDiv(*total.TotalUSD, float64(row.Requests))
	} else {
		row.EstimatedAvgRequestCostUSD = nil
	}
}

// totalWindow is the span "all priced history up to now": from the earliest
// schedule entry when one exists, otherwise today.
func totalWindow(cfg models.PricingConfig, day pricing.Window, now time.Time) pricing.Window {
	if len(cfg.Schedule) == 0 {
		return day
	}
	earliest := cfg.Schedule[0].StartsAt
	for _, entry := range cfg.Schedule[1:] {
		if entry.StartsAt.Before(earliest) {
			earliest = entry.StartsAt
		}
	}
	if earliest.After(now) {
		return day
	}
	return pricing.Window{From: earliest, To: now}
}
