// Package spend keeps a daily spend history per display group in Redis, so
// the UI can chart cost over time without replaying old snapshots.
package spend

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"cost_engine/internal/models"
	"cost_engine/internal/utils"
)

// Spend history is kept for two months.
const historyTTL = 60 * 24 * time.Hour

// Tracker records snapshot totals into Redis and serves them back as history.
type Tracker struct {
	redis  *redis.Client
	logger *utils.Logger
}

// NewTracker creates a spend tracker.
func NewTracker(client *redis.Client, logger *utils.Logger) *Tracker {
	return &Tracker{redis: client, logger: logger}
}

// Record writes each group's current daily spend under today's key. The value
// is a running figure, so later writes within the day simply replace earlier
// ones. Groups without a resolved cost write nothing; an absent key reads
// back as unknown, never as zero.
func (t *Tracker) Record(ctx context.Context, groups []models.ProviderDisplayGroup, at time.Time) error {
	day := at.UTC().Format("2006-01-02")

	for _, group := range groups {
		if group.EffectiveDailyUSD == nil {
			continue
		}
		key := t.dailyKey(group.GroupKey, day)
		if err := t.redis.Set(ctx, key, *group.EffectiveDailyUSD, historyTTL).Err(); err != nil {
			return fmt.Errorf("failed to record spend for %s: %w", group.GroupKey, err)
		}
	}

	return nil
}

// DailySpend is one day's recorded spend for a group.
type DailySpend struct {
	Day string   `json:"day"`
	USD *float64 `json:"usd,omitempty"`
}

// History returns the last n days of recorded spend for a group, oldest
// first. Days with no record carry a nil figure.
func (t *Tracker) History(ctx context.Context, groupKey string, days int, until time.Time) ([]DailySpend, error) {
	if days <= 0 {
		days = 30
	}

	end := until.UTC()
	keys := make([]string, days)
	labels := make([]string, days)
	for i := 0; i < days; i++ {
		day := end.AddDate(0, 0, i-days+1).Format("2006-01-02")
		keys[i] = t.dailyKey(groupKey, day)
		labels[i] = day
	}

	values, err := t.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read spend history: %w", err)
	}

	history := make([]DailySpend, days)
	for i, raw := range values {
		history[i] = DailySpend{Day: labels[i]}
		s, ok := raw.(string)
		if !ok {
			continue
		}
		var usd float64
		if _, err := fmt.Sscanf(s, "%g", &usd); err != nil {
			continue
		}
		history[i].USD = &usd
	}

	return history, nil
}

// dailyKey generates the Redis key for a group's daily spend
func (t *Tracker) dailyKey(groupKey, day string) string {
	return fmt.Sprintf("spend:%s:%s", groupKey, day)
}
