package viewcache

import (
	"testing"
	"time"
)

func i64(v int64) *int64 {
	return &v
}

func TestResolveWindow(t *testing.T) {
	day := time.Date(2026, 2, 22, 0, 0, 0, 0, time.UTC).UnixMilli()

	tests := []struct {
		name     string
		p        WindowParams
		wantFrom *int64
		wantTo   *int64
	}{
		{
			name: "explicit fetch window wins",
			p: WindowParams{
				RequestFetchFromUnixMs:  i64(1000),
				RequestFetchToUnixMs:    i64(2000),
				RequestDefaultDayUnixMs: day,
				RenderedRowUnixMs:       []int64{day + 1},
			},
			wantFrom: i64(1000),
			wantTo:   i64(2000),
		},
		{
			name: "explicit filters force pass-through even without bounds",
			p: WindowParams{
				HasExplicitRequestFilters: true,
				RequestDefaultDayUnixMs:   day,
				RenderedRowUnixMs:         []int64{day + 1},
			},
			wantFrom: nil,
			wantTo:   nil,
		},
		{
			name: "row inside the default day keeps the bounded window",
			p: WindowParams{
				RequestDefaultDayUnixMs: day,
				RenderedRowUnixMs:       []int64{day + 1000},
			},
			wantFrom: i64(day),
			wantTo:   i64(day + DayMillis),
		},
		{
			name: "all visible rows outside the day widen to unbounded",
			p: WindowParams{
				RequestDefaultDayUnixMs: day,
				RenderedRowUnixMs: []int64{
					time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC).UnixMilli(),
				},
			},
			wantFrom: nil,
			wantTo:   nil,
		},
		{
			name: "no visible rows widen to unbounded",
			p: WindowParams{
				RequestDefaultDayUnixMs: day,
			},
			wantFrom: nil,
			wantTo:   nil,
		},
		{
			name: "day end is exclusive",
			p: WindowParams{
				RequestDefaultDayUnixMs: day,
				RenderedRowUnixMs:       []int64{day + DayMillis},
			},
			wantFrom: nil,
			wantTo:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveWindow(tt.p)
			assertBound(t, "from", got.FromUnixMs, tt.wantFrom)
			assertBound(t, "to", got.ToUnixMs, tt.wantTo)
		})
	}
}

func assertBound(t *testing.T, label string, got, want *int64) {
	t.Helper()
	if (got == nil) != (want == nil) {
		t.Fatalf("%s = %v, want %v", label, got, want)
	}
	if got != nil && *got != *want {
		t.Errorf("%s = %d, want %d", label, *got, *want)
	}
}
