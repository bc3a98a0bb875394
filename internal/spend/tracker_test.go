package spend

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cost_engine/internal/models"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return client, mr
}

func usd(v float64) *float64 {
	return &v
}

func TestRecordThenHistory(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	tracker := NewTracker(client, nil)
	ctx := context.Background()
	today := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	groups := []models.ProviderDisplayGroup{
		{GroupKey: "acct-1", EffectiveDailyUSD: usd(12.5)},
		{GroupKey: "openai", EffectiveDailyUSD: usd(3.0)},
	}
	require.NoError(t, tracker.Record(ctx, groups, today))

	history, err := tracker.History(ctx, "acct-1", 3, today)
	require.NoError(t, err)
	require.Len(t, history, 3)

	assert.Equal(t, "2026-03-08", history[0].Day)
	assert.Nil(t, history[0].USD, "unrecorded days read back as unknown")
	assert.Nil(t, history[1].USD)

	assert.Equal(t, "2026-03-10", history[2].Day)
	require.NotNil(t, history[2].USD)
	assert.InDelta(t, 12.5, *history[2].USD, 1e-9)
}

func TestRecordLaterWriteReplacesEarlier(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	tracker := NewTracker(client, nil)
	ctx := context.Background()
	today := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	require.NoError(t, tracker.Record(ctx,
		[]models.ProviderDisplayGroup{{GroupKey: "acct-1", EffectiveDailyUSD: usd(5.0)}}, today))
	require.NoError(t, tracker.Record(ctx,
		[]models.ProviderDisplayGroup{{GroupKey: "acct-1", EffectiveDailyUSD: usd(7.5)}}, today.Add(2*time.Hour)))

	history, err := tracker.History(ctx, "acct-1", 1, today)
	require.NoError(t, err)
	require.NotNil(t, history[0].USD)
	assert.InDelta(t, 7.5, *history[0].USD, 1e-9, "the running figure, not a sum")
}

func TestRecordSkipsUnknownCosts(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	tracker := NewTracker(client, nil)
	ctx := context.Background()
	today := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	require.NoError(t, tracker.Record(ctx,
		[]models.ProviderDisplayGroup{{GroupKey: "acct-1"}}, today))

	history, err := tracker.History(ctx, "acct-1", 1, today)
	require.NoError(t, err)
	assert.Nil(t, history[0].USD, "unknown cost never collapses to zero")
}
