package viewcache

// DayMillis is the length of the default summary window.
const DayMillis int64 = 24 * 60 * 60 * 1000

// WindowParams are the inputs to ResolveWindow.
type WindowParams struct {
	// RequestFetchFromUnixMs / ToUnixMs are honored as-is when set.
	RequestFetchFromUnixMs *int64
	RequestFetchToUnixMs   *int64

	// HasExplicitRequestFilters is true when the user applied filters;
	// explicit filters always win over the default day window.
	HasExplicitRequestFilters bool

	// RequestDefaultDayUnixMs is the start of the default "today" window.
	RequestDefaultDayUnixMs int64

	// RenderedRowUnixMs are the timestamps of the rows currently visible.
	RenderedRowUnixMs []int64
}

// FetchWindow bounds a summary fetch. A nil pair means unbounded.
type FetchWindow struct {
	FromUnixMs *int64 `json:"from_unix_ms,omitempty"`
	ToUnixMs   *int64 `json:"to_unix_ms,omitempty"`
}

// ResolveWindow decides whether a cost/requests summary should be fetched
// for the bounded default day or unbounded. The day window is used only when
// at least one visible row falls inside it: a day-scoped summary that
// excludes everything the user is looking at is worse than an unscoped one.
func ResolveWindow(p WindowParams) FetchWindow {
	if p.RequestFetchFromUnixMs != nil || p.HasExplicitRequestFilters {
		return FetchWindow{FromUnixMs: p.RequestFetchFromUnixMs, ToUnixMs: p.RequestFetchToUnixMs}
	}

	day := p.RequestDefaultDayUnixMs
	end := day + DayMillis
	for _, ts := range p.RenderedRowUnixMs {
		if ts >= day && ts < end {
			return FetchWindow{FromUnixMs: &day, ToUnixMs: &end}
		}
	}

	return FetchWindow{}
}
