package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cost_engine/internal/models"
)

// PricingRepository handles pricing config database operations
type PricingRepository struct {
	db *DB
}

// NewPricingRepository creates a new pricing repository
func NewPricingRepository(db *DB) *PricingRepository {
	return &PricingRepository{db: db}
}

// GetByProvider retrieves a provider's pricing config with its full schedule.
// The schedule is ordered by starts_at ascending.
func (r *PricingRepository) GetByProvider(ctx context.Context, provider string) (*models.PricingConfig, error) {
	if cached, found := r.db.configCache.Get(provider); found {
		return cached, nil
	}

	var config models.PricingConfig
	query := `
		SELECT provider, mode, currency
		FROM pricing_configs
		WHERE provider = $1
	`

	err := r.db.conn.GetContext(ctx, &config, query, provider)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrPricingConfigNotFound
		}
		return nil, fmt.Errorf("failed to get pricing config: %w", err)
	}

	schedule, err := r.listSchedule(ctx, provider)
	if err != nil {
		return nil, err
	}
	config.Schedule = schedule

	r.db.configCache.Set(provider, &config)
	return &config, nil
}

func (r *PricingRepository) listSchedule(ctx context.Context, provider string) ([]models.ScheduleEntry, error) {
	query := `
		SELECT amount, currency, starts_at, expires_at
		FROM pricing_schedule_entries
		WHERE provider = $1
		ORDER BY starts_at
	`

	var schedule []models.ScheduleEntry
	err := r.db.conn.SelectContext(ctx, &schedule, query, provider)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedule entries: %w", err)
	}

	return schedule, nil
}

// List returns all pricing configs with their schedules, keyed by provider.
func (r *PricingRepository) List(ctx context.Context) (map[string]*models.PricingConfig, error) {
	query := `
		SELECT provider, mode, currency
		FROM pricing_configs
		ORDER BY provider
	`

	var configs []*models.PricingConfig
	err := r.db.conn.SelectContext(ctx, &configs, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list pricing configs: %w", err)
	}

	byProvider := make(map[string]*models.PricingConfig, len(configs))
	for _, config := range configs {
		byProvider[config.Provider] = config
	}

	entryQuery := `
		SELECT provider, amount, currency, starts_at, expires_at
		FROM pricing_schedule_entries
		ORDER BY provider, starts_at
	`

	rows, err := r.db.conn.QueryxContext(ctx, entryQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedule entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row struct {
			Provider string `db:"provider"`
			models.ScheduleEntry
		}
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("failed to scan schedule entry: %w", err)
		}
		if config, ok := byProvider[row.Provider]; ok {
			config.Schedule = append(config.Schedule, row.ScheduleEntry)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read schedule entries: %w", err)
	}

	return byProvider, nil
}

// Save persists a draft to every target provider in a single transaction.
// Each provider's config row is upserted and its schedule replaced wholesale,
// so a partial write can never leave a provider with a mixed timeline.
func (r *PricingRepository) Save(ctx context.Context, providers []string, draft models.PricingDraft) error {
	if len(providers) == 0 {
		providers = draft.Targets()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	upsert := `
		INSERT INTO pricing_configs (provider, mode, currency, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (provider)
		DO UPDATE SET mode = $2, currency = $3, updated_at = NOW()
	`
	insertEntry := `
		INSERT INTO pricing_schedule_entries (provider, amount, currency, starts_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	for _, provider := range providers {
		if _, err := tx.ExecContext(ctx, upsert, provider, draft.Mode, draft.Currency); err != nil {
			return fmt.Errorf("failed to upsert pricing config for %s: %w", provider, err)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM pricing_schedule_entries WHERE provider = $1", provider); err != nil {
			return fmt.Errorf("failed to clear schedule for %s: %w", provider, err)
		}

		for _, entry := range draft.Schedule {
			_, err := tx.ExecContext(ctx, insertEntry,
				provider, entry.Amount, entry.Currency, entry.StartsAt, entry.ExpiresAt)
			if err != nil {
				return fmt.Errorf("failed to insert schedule entry for %s: %w", provider, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit pricing save: %w", err)
	}

	for _, provider := range providers {
		r.db.configCache.Invalidate(provider)
	}

	return nil
}

// ClearEntry deletes the schedule entry starting at the given instant.
func (r *PricingRepository) ClearEntry(ctx context.Context, provider string, startsAt time.Time) error {
	query := `
		DELETE FROM pricing_schedule_entries
		WHERE provider = $1 AND starts_at = $2
	`

	result, err := r.db.conn.ExecContext(ctx, query, provider, startsAt)
	if err != nil {
		return fmt.Errorf("failed to clear schedule entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrScheduleEntryNotFound
	}

	r.db.configCache.Invalidate(provider)
	return nil
}

// Delete removes a provider's pricing config and schedule.
func (r *PricingRepository) Delete(ctx context.Context, provider string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM pricing_schedule_entries WHERE provider = $1", provider); err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM pricing_configs WHERE provider = $1", provider)
	if err != nil {
		return fmt.Errorf("failed to delete pricing config: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrPricingConfigNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit pricing delete: %w", err)
	}

	r.db.configCache.Invalidate(provider)
	return nil
}
