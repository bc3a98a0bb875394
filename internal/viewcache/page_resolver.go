// Package viewcache decides which cached data, if any, may be rendered for
// the current filter scope, and whether summaries should be fetched bounded
// or unbounded. The resolvers are pure; the PageCache stores entries for
// them to consult.
package viewcache

import "cost_engine/internal/models"

// PageParams are the inputs to ResolvePage.
type PageParams struct {
	// IsRequestsTab is true when the requests table is the active view.
	IsRequestsTab bool

	// HasStrictRequestQuery is true when the user applied an explicit,
	// narrow filter; only an exact-scope entry may satisfy it.
	HasStrictRequestQuery bool

	// StrictQueryKey is the scope key of the strict query, when one is
	// active.
	StrictQueryKey string

	// Cached is the entry recorded for the exact current scope, if any.
	Cached *models.CacheEntry

	// CanonicalCached is the unfiltered (broadest-scope) entry, if any.
	CanonicalCached *models.CacheEntry

	// LastNonEmpty is kept to avoid flicker on analytics views. It never
	// overrides requests-tab strictness.
	LastNonEmpty *models.CacheEntry
}

// ResolvePage chooses the cache entry that is valid to render, or nil when
// nothing cached matches and a fetch is required. A nil result is a signal,
// not an error: the requests tab prefers "no data" over possibly wrong data.
func ResolvePage(p PageParams) *models.CacheEntry {
	if p.IsRequestsTab && p.HasStrictRequestQuery {
		// A narrow filter accepts only its exact scope; substituting a
		// broader cache would silently show wrong rows.
		if p.Cached != nil && p.Cached.QueryKey == p.StrictQueryKey {
			return p.Cached
		}
		return nil
	}

	if p.IsRequestsTab {
		// No canonical fallback on the requests tab.
		return p.Cached
	}

	// Analytics aggregates tolerate a slightly broader cached scope.
	if p.Cached != nil {
		return p.Cached
	}
	if p.CanonicalCached != nil {
		return p.CanonicalCached
	}
	return p.LastNonEmpty
}
