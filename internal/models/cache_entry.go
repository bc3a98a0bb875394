package models

import (
	"time"

	"github.com/google/uuid"
)

// RequestRow is one request-level detail row served by the requests view.
type RequestRow struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Provider  string    `db:"provider" json:"provider"`
	Model     string    `db:"model" json:"model"`
	Timestamp time.Time `db:"timestamp" json:"timestamp"`

	InputTokens  int64    `db:"input_tokens" json:"input_tokens"`
	OutputTokens int64    `db:"output_tokens" json:"output_tokens"`
	CostUSD      *float64 `db:"cost_usd" json:"cost_usd,omitempty"`
}

// CacheEntry is one cached page of request-level data. An entry may only
// satisfy a request whose scope key matches QueryKey exactly; the key must
// encode every filter dimension (provider set, model set, time window,
// pagination cursor).
type CacheEntry struct {
	QueryKey          string       `json:"query_key"`
	Rows              []RequestRow `json:"rows"`
	HasMore           bool         `json:"has_more"`
	UsingTestFallback bool         `json:"using_test_fallback"`
}
