package currency

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"cost_engine/internal/models"
)

// PreferenceKey scopes a display currency choice. Rows sharing a real billed
// account share one preference; rows without one fall back to a per-provider
// key.
func PreferenceKey(provider, apiKeyRef string) string {
	if apiKeyRef != "" && apiKeyRef != models.PlaceholderKeyRef {
		return "currency:key:" + apiKeyRef
	}
	return "currency:provider:" + provider
}

// PreferenceStore resolves and persists a user's preferred display currency.
type PreferenceStore interface {
	// Get returns the preferred ISO code for key, or "" when unset.
	Get(ctx context.Context, key string) (string, error)

	// Set persists the preferred ISO code for key.
	Set(ctx context.Context, key, code string) error
}

// RedisPreferenceStore persists preferences in Redis. Preferences are user
// settings, so no TTL is applied.
type RedisPreferenceStore struct {
	client *redis.Client
}

// NewRedisPreferenceStore creates a Redis-backed preference store.
func NewRedisPreferenceStore(client *redis.Client) *RedisPreferenceStore {
	return &RedisPreferenceStore{client: client}
}

// Get returns the stored ISO code for key, or "" when unset.
func (s *RedisPreferenceStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get currency preference: %w", err)
	}
	return val, nil
}

// Set persists the ISO code for key.
func (s *RedisPreferenceStore) Set(ctx context.Context, key, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return fmt.Errorf("currency code is required")
	}
	if err := s.client.Set(ctx, key, code, 0).Err(); err != nil {
		return fmt.Errorf("failed to set currency preference: %w", err)
	}
	return nil
}

// MemoryPreferenceStore is an in-memory PreferenceStore for tests and
// offline runs.
type MemoryPreferenceStore struct {
	mu    sync.RWMutex
	prefs map[string]string
}

// NewMemoryPreferenceStore creates an empty in-memory preference store.
func NewMemoryPreferenceStore() *MemoryPreferenceStore {
	return &MemoryPreferenceStore{prefs: make(map[string]string)}
}

// Get returns the stored ISO code for key, or "" when unset.
func (s *MemoryPreferenceStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs[key], nil
}

// Set persists the ISO code for key.
func (s *MemoryPreferenceStore) Set(ctx context.Context, key, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return fmt.Errorf("currency code is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[key] = code
	return nil
}
