// Package autosave debounces pricing edits and persists them through an
// injected save function, skipping writes whose content signature matches
// the last successful save.
package autosave

import (
	"context"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"cost_engine/internal/models"
	"cost_engine/internal/utils"
)

// DefaultDelay is the quiet period after the last edit before a save fires.
const DefaultDelay = 1200 * time.Millisecond

// saveTimeout bounds the background save issued by an expired timer.
const saveTimeout = 30 * time.Second

// TimerKey identifies one debounced edit stream: a single field of a single
// row. A structured key avoids collisions between similarly named rows.
type TimerKey struct {
	Row   models.RowKey
	Field string
}

// SaveFunc persists a draft for the given provider targets. It is the only
// suspension point in the controller; everything else is synchronous.
type SaveFunc func(ctx context.Context, providers []string, draft models.PricingDraft) error

type pendingEdit struct {
	generation int
	draft      models.PricingDraft
}

// Controller debounces edits per (row, field) and deduplicates saves by
// draft signature. The last-saved-signature map is owned by the instance,
// so tests and windows get independent controllers.
type Controller struct {
	save   SaveFunc
	delay  time.Duration
	logger *utils.Logger

	mu        sync.Mutex
	pending   map[TimerKey]*pendingEdit
	bases     map[TimerKey]models.PricingDraft
	lastSaved map[string]string
}

// NewController creates a controller with the given save function and
// debounce delay.
func NewController(save SaveFunc, delay time.Duration, logger *utils.Logger) *Controller {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Controller{
		save:      save,
		delay:     delay,
		logger:    logger,
		pending:   make(map[TimerKey]*pendingEdit),
		bases:     make(map[TimerKey]models.PricingDraft),
		lastSaved: make(map[string]string),
	}
}

// Begin records the last-known-good draft for key, which Discard restores.
// Called when a field gains focus.
func (c *Controller) Begin(key TimerKey, base models.PricingDraft) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bases[key] = base
}

// Queue arms the debounce timer for key with the current draft, resetting
// any timer already pending. Only the draft from the final edit of a quiet
// period is saved.
func (c *Controller) Queue(key TimerKey, draft models.PricingDraft) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p, exists := c.pending[key]; exists {
		// Bump the generation so the earlier timer finds itself stale.
		p.draft = draft
		p.generation++
		gen := p.generation
		time.AfterFunc(c.delay, func() {
			c.fire(key, gen)
		})
		return
	}

	c.pending[key] = &pendingEdit{generation: 1, draft: draft}
	time.AfterFunc(c.delay, func() {
		c.fire(key, 1)
	})
}

// Clear cancels any pending save for key. Called on blur and unmount so a
// fired timer cannot duplicate an explicit save.
func (c *Controller) Clear(key TimerKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, key)
}

// Flush cancels the pending timer for key and saves its draft immediately.
// Called on Enter. Returns nil when nothing was pending.
func (c *Controller) Flush(ctx context.Context, key TimerKey) error {
	c.mu.Lock()
	p, exists := c.pending[key]
	if !exists {
		c.mu.Unlock()
		return nil
	}
	draft := p.draft
	delete(c.pending, key)
	c.mu.Unlock()

	return c.Save(ctx, draft)
}

// Discard cancels any pending save for key and returns the last-known-good
// base draft recorded by Begin. Called on Escape.
func (c *Controller) Discard(key TimerKey) (models.PricingDraft, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, key)
	base, ok := c.bases[key]
	return base, ok
}

// Save persists the draft unless its signature matches the last successful
// save for the same target, in which case it is a successful no-op. A
// failed save leaves the recorded signature untouched so the next attempt
// retries.
func (c *Controller) Save(ctx context.Context, draft models.PricingDraft) error {
	target := draft.TargetKey()
	sig := draft.Signature()

	c.mu.Lock()
	last, saved := c.lastSaved[target]
	c.mu.Unlock()
	if saved && last == sig {
		return nil
	}

	if err := c.save(ctx, draft.Targets(), draft); err != nil {
		return err
	}

	c.mu.Lock()
	c.lastSaved[target] = sig
	c.mu.Unlock()
	return nil
}

// fire runs when a debounce timer expires. Stale generations and cleared
// keys are ignored; a save is only issued for the latest pending edit.
func (c *Controller) fire(key TimerKey, generation int) {
	c.mu.Lock()
	p, exists := c.pending[key]
	if !exists || p.generation != generation {
		c.mu.Unlock()
		return
	}
	draft := p.draft
	delete(c.pending, key)
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	if err := c.Save(ctx, draft); err != nil {
		if c.logger != nil {
			c.logger.Error("autosave failed", "target", draft.TargetKey(), "field", key.Field, "error", err)
		}
	}
}

// ParsePositiveAmount parses a user-entered amount, returning nil for
// anything that is not a finite positive number. Invalid input is rejected
// at this boundary, never clamped to a default.
func ParsePositiveAmount(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}
