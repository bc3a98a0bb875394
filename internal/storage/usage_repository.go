package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"cost_engine/internal/models"
)

// UsageRepository handles usage data database operations
type UsageRepository struct {
	db *DB
}

// NewUsageRepository creates a new usage repository
func NewUsageRepository(db *DB) *UsageRepository {
	return &UsageRepository{db: db}
}

// ListRows returns the aggregated usage rows whose activity falls inside the
// window. Rows come back ordered by provider then api_key_ref so downstream
// grouping is deterministic.
func (r *UsageRepository) ListRows(ctx context.Context, from, to time.Time) ([]models.UsageRow, error) {
	query := `
		SELECT provider, api_key_ref, requests, total_tokens,
		       input_tokens, output_tokens, pricing_source,
		       estimated_avg_request_cost_usd, estimated_daily_cost_usd,
		       total_used_cost_usd
		FROM usage_rows
		WHERE window_start >= $1 AND window_start < $2
		ORDER BY provider, api_key_ref
	`

	var rows []models.UsageRow
	err := r.db.conn.SelectContext(ctx, &rows, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list usage rows: %w", err)
	}

	return rows, nil
}

// RequestFilters narrows a request-level listing. Zero values mean
// "no filter" except Limit, which the repository clamps to a sane page size.
type RequestFilters struct {
	Providers []string
	Models    []string
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

const (
	defaultRequestPageSize = 200
	maxRequestPageSize     = 1000
)

// ListRequests returns one page of request-level rows matching the filters,
// plus whether more rows exist past the page. The extra-row probe keeps the
// has-more flag accurate without a second COUNT query.
func (r *UsageRepository) ListRequests(ctx context.Context, filters RequestFilters) ([]models.RequestRow, bool, error) {
	limit := filters.Limit
	if limit <= 0 {
		limit = defaultRequestPageSize
	}
	if limit > maxRequestPageSize {
		limit = maxRequestPageSize
	}

	var whereClauses []string
	var args []interface{}
	argCount := 1

	if len(filters.Providers) > 0 {
		placeholders := make([]string, len(filters.Providers))
		for i, p := range filters.Providers {
			placeholders[i] = fmt.Sprintf("$%d", argCount)
			args = append(args, p)
			argCount++
		}
		whereClauses = append(whereClauses, fmt.Sprintf("provider IN (%s)", strings.Join(placeholders, ", ")))
	}

	if len(filters.Models) > 0 {
		placeholders := make([]string, len(filters.Models))
		for i, m := range filters.Models {
			placeholders[i] = fmt.Sprintf("$%d", argCount)
			args = append(args, m)
			argCount++
		}
		whereClauses = append(whereClauses, fmt.Sprintf("model IN (%s)", strings.Join(placeholders, ", ")))
	}

	if filters.From != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("timestamp >= $%d", argCount))
		args = append(args, *filters.From)
		argCount++
	}

	if filters.To != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("timestamp < $%d", argCount))
		args = append(args, *filters.To)
		argCount++
	}

	whereClause := ""
	if len(whereClauses) > 0 {
		whereClause = "WHERE " + strings.Join(whereClauses, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT id, provider, model, timestamp,
		       input_tokens, output_tokens, cost_usd
		FROM request_log
		%s
		ORDER BY timestamp DESC, id
		LIMIT $%d OFFSET $%d
	`, whereClause, argCount, argCount+1)

	// Fetch one extra row to detect a following page.
	args = append(args, limit+1, filters.Offset)

	var rows []models.RequestRow
	err := r.db.conn.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("failed to list requests: %w", err)
	}

	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}

	return rows, hasMore, nil
}

// GetRequest returns a single request-level row by ID.
func (r *UsageRepository) GetRequest(ctx context.Context, id uuid.UUID) (*models.RequestRow, error) {
	var row models.RequestRow
	query := `
		SELECT id, provider, model, timestamp,
		       input_tokens, output_tokens, cost_usd
		FROM request_log
		WHERE id = $1
	`

	err := r.db.conn.GetContext(ctx, &row, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUsageRowNotFound
		}
		return nil, fmt.Errorf("failed to get request: %w", err)
	}

	return &row, nil
}

// ReplaceRows swaps the usage snapshot for a window in one transaction. The
// refresh loop writes whole windows at a time; rows are never mutated in
// place.
func (r *UsageRepository) ReplaceRows(ctx context.Context, windowStart time.Time, rows []models.UsageRow) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM usage_rows WHERE window_start = $1", windowStart); err != nil {
		return fmt.Errorf("failed to clear usage window: %w", err)
	}

	insert := `
		INSERT INTO usage_rows (window_start, provider, api_key_ref,
		                        requests, total_tokens, input_tokens, output_tokens,
		                        pricing_source, estimated_avg_request_cost_usd,
		                        estimated_daily_cost_usd, total_used_cost_usd)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	for _, row := range rows {
		_, err := tx.ExecContext(ctx, insert,
			windowStart, row.Provider, row.APIKeyRef,
			row.Requests, row.TotalTokens, row.InputTokens, row.OutputTokens,
			row.PricingSource, row.EstimatedAvgRequestCostUSD,
			row.EstimatedDailyCostUSD, row.TotalUsedCostUSD,
		)
		if err != nil {
			return fmt.Errorf("failed to insert usage row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit usage window: %w", err)
	}

	return nil
}
