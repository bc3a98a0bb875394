package httpapi

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"cost_engine/internal/models"
	"cost_engine/internal/storage"
	"cost_engine/internal/utils"
	"cost_engine/internal/viewcache"
)

// requestQuery is the normalized filter scope of a /v1/requests call.
type requestQuery struct {
	providers []string
	models    []string
	from      *time.Time
	to        *time.Time
	limit     int
	offset    int
}

// key serializes the scope so two requests with the same filters, in any
// parameter order, share one cache entry.
func (q requestQuery) key() string {
	var b strings.Builder
	b.WriteString("req|p:")
	b.WriteString(strings.Join(q.providers, ","))
	b.WriteString("|m:")
	b.WriteString(strings.Join(q.models, ","))
	if q.from != nil {
		fmt.Fprintf(&b, "|f:%d", q.from.UnixMilli())
	}
	if q.to != nil {
		fmt.Fprintf(&b, "|t:%d", q.to.UnixMilli())
	}
	fmt.Fprintf(&b, "|l:%d|o:%d", q.limit, q.offset)
	return b.String()
}

// strict reports whether the query narrows the scope beyond pagination.
// Strict queries may only be answered from an exact-scope cache entry.
func (q requestQuery) strict() bool {
	return len(q.providers) > 0 || len(q.models) > 0 || q.from != nil || q.to != nil
}

// handleRequests serves one page of request-level rows, consulting the page
// cache before hitting storage.
func (d *Dependencies) handleRequests(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	query, err := parseRequestQuery(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	queryKey := query.key()
	entry := viewcache.ResolvePage(viewcache.PageParams{
		IsRequestsTab:         true,
		HasStrictRequestQuery: query.strict(),
		StrictQueryKey:        queryKey,
		Cached:                d.PageCache.Get(queryKey),
	})

	if entry == nil {
		rows, hasMore, err := d.Usage.ListRequests(r.Context(), storage.RequestFilters{
			Providers: query.providers,
			Models:    query.models,
			From:      query.from,
			To:        query.to,
			Limit:     query.limit,
			Offset:    query.offset,
		})
		if err != nil {
			d.Logger.Error("request listing failed", "error", err)
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to list requests")
			return
		}

		entry = &models.CacheEntry{
			QueryKey: queryKey,
			Rows:     rows,
			HasMore:  hasMore,
		}
		d.PageCache.Put(entry)
	}

	utils.RespondWithJSON(w, http.StatusOK, entry)
}

func parseRequestQuery(r *http.Request) (requestQuery, error) {
	q := requestQuery{
		providers: splitSorted(r.URL.Query().Get("providers")),
		models:    splitSorted(r.URL.Query().Get("models")),
	}

	var err error
	if q.from, err = parseUnixMs(r.URL.Query().Get("from_ms")); err != nil {
		return q, fmt.Errorf("invalid from_ms: %w", err)
	}
	if q.to, err = parseUnixMs(r.URL.Query().Get("to_ms")); err != nil {
		return q, fmt.Errorf("invalid to_ms: %w", err)
	}

	if v := r.URL.Query().Get("limit"); v != "" {
		if q.limit, err = strconv.Atoi(v); err != nil || q.limit < 0 {
			return q, fmt.Errorf("invalid limit: %q", v)
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if q.offset, err = strconv.Atoi(v); err != nil || q.offset < 0 {
			return q, fmt.Errorf("invalid offset: %q", v)
		}
	}

	return q, nil
}

func splitSorted(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}

func parseUnixMs(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, err
	}
	t := time.UnixMilli(ms).UTC()
	return &t, nil
}
