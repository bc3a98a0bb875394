package autosave

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cost_engine/internal/models"
)

type saveRecorder struct {
	mu    sync.Mutex
	calls []models.PricingDraft
	err   error
}

func (r *saveRecorder) save(ctx context.Context, providers []string, draft models.PricingDraft) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.calls = append(r.calls, draft)
	return nil
}

func (r *saveRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *saveRecorder) last() models.PricingDraft {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[len(r.calls)-1]
}

func (r *saveRecorder) setErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func testKey(provider, field string) TimerKey {
	return TimerKey{Row: models.NewRowKey(provider, ""), Field: field}
}

func draftFor(provider string, amount float64) models.PricingDraft {
	return models.PricingDraft{
		Provider: provider,
		Mode:     models.PricingModePackageTotal,
		Currency: "USD",
		Schedule: []models.ScheduleEntry{{Amount: amount, StartsAt: time.Unix(0, 0).UTC()}},
	}
}

func waitForSaves(t *testing.T, rec *saveRecorder, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if rec.count() >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("saw %d saves, want %d", rec.count(), want)
}

func TestQueueDebouncesToSingleSave(t *testing.T) {
	rec := &saveRecorder{}
	c := NewController(rec.save, 30*time.Millisecond, nil)
	key := testKey("openai", "amount")

	// Three rapid edits: only the last survives the quiet period.
	c.Queue(key, draftFor("openai", 1))
	c.Queue(key, draftFor("openai", 2))
	c.Queue(key, draftFor("openai", 3))

	waitForSaves(t, rec, 1)
	time.Sleep(80 * time.Millisecond)

	assert.Equal(t, 1, rec.count(), "only one save per quiet period")
	assert.Equal(t, 3.0, rec.last().Schedule[0].Amount, "the final edit wins")
}

func TestIndependentKeysDoNotInterfere(t *testing.T) {
	rec := &saveRecorder{}
	c := NewController(rec.save, 20*time.Millisecond, nil)

	c.Queue(testKey("openai", "amount"), draftFor("openai", 1))
	c.Queue(testKey("azure", "amount"), draftFor("azure", 2))

	waitForSaves(t, rec, 2)
	assert.Equal(t, 2, rec.count())
}

func TestClearCancelsPendingSave(t *testing.T) {
	rec := &saveRecorder{}
	c := NewController(rec.save, 20*time.Millisecond, nil)
	key := testKey("openai", "amount")

	c.Queue(key, draftFor("openai", 1))
	c.Clear(key)

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 0, rec.count(), "cleared timers must not fire")
}

func TestFlushSavesImmediatelyAndCancelsTimer(t *testing.T) {
	rec := &saveRecorder{}
	c := NewController(rec.save, 200*time.Millisecond, nil)
	key := testKey("openai", "amount")

	c.Queue(key, draftFor("openai", 1))
	require.NoError(t, c.Flush(context.Background(), key))
	assert.Equal(t, 1, rec.count(), "flush saves without waiting for the timer")

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 1, rec.count(), "the cancelled timer must not save again")
}

func TestSaveIsIdempotentBySignature(t *testing.T) {
	rec := &saveRecorder{}
	c := NewController(rec.save, time.Minute, nil)
	ctx := context.Background()

	require.NoError(t, c.Save(ctx, draftFor("openai", 1)))
	require.NoError(t, c.Save(ctx, draftFor("openai", 1)))
	assert.Equal(t, 1, rec.count(), "an unchanged signature performs no persistence call")

	require.NoError(t, c.Save(ctx, draftFor("openai", 2)))
	assert.Equal(t, 2, rec.count(), "a changed draft saves again")
}

func TestCosmeticTextDoesNotForceResave(t *testing.T) {
	rec := &saveRecorder{}
	c := NewController(rec.save, time.Minute, nil)
	ctx := context.Background()

	d1 := draftFor("openai", 1)
	d1.AmountText = "1"
	require.NoError(t, c.Save(ctx, d1))

	d2 := draftFor("openai", 1)
	d2.AmountText = "1.0"
	require.NoError(t, c.Save(ctx, d2))

	assert.Equal(t, 1, rec.count(), "raw input text is excluded from the signature")
}

func TestFailedSaveRetriesNextTime(t *testing.T) {
	rec := &saveRecorder{}
	c := NewController(rec.save, time.Minute, nil)
	ctx := context.Background()

	rec.setErr(errors.New("store unavailable"))
	err := c.Save(ctx, draftFor("openai", 1))
	require.Error(t, err)

	// The failed save must not record the signature; the retry persists.
	rec.setErr(nil)
	require.NoError(t, c.Save(ctx, draftFor("openai", 1)))
	assert.Equal(t, 1, rec.count())
}

func TestDiscardRestoresBase(t *testing.T) {
	rec := &saveRecorder{}
	c := NewController(rec.save, 20*time.Millisecond, nil)
	key := testKey("openai", "amount")

	base := draftFor("openai", 1)
	c.Begin(key, base)
	c.Queue(key, draftFor("openai", 99))

	got, ok := c.Discard(key)
	require.True(t, ok)
	assert.Equal(t, 1.0, got.Schedule[0].Amount, "discard returns the last-known-good draft")

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 0, rec.count(), "discard cancels the pending save")
}

func TestLaterEditRequeuesAfterFire(t *testing.T) {
	rec := &saveRecorder{}
	c := NewController(rec.save, 20*time.Millisecond, nil)
	key := testKey("openai", "amount")

	c.Queue(key, draftFor("openai", 1))
	waitForSaves(t, rec, 1)

	// An edit after the save must queue a fresh save of its own.
	c.Queue(key, draftFor("openai", 2))
	waitForSaves(t, rec, 2)
	assert.Equal(t, 2.0, rec.last().Schedule[0].Amount)
}

func TestParsePositiveAmount(t *testing.T) {
	tests := []struct {
		input string
		want  *float64
	}{
		{input: "12.5", want: f(12.5)},
		{input: "  3 ", want: f(3)},
		{input: "0", want: nil},
		{input: "-1", want: nil},
		{input: "", want: nil},
		{input: "abc", want: nil},
		{input: "Inf", want: nil},
		{input: "NaN", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParsePositiveAmount(tt.input)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("ParsePositiveAmount(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("ParsePositiveAmount(%q) = %v, want %v", tt.input, *got, *tt.want)
			}
		})
	}
}

func f(v float64) *float64 {
	return &v
}
