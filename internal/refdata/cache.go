package refdata

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	pkgerrors "github.com/otabekov/orderdesk-backend/pkg/errors"
	"github.com/otabekov/orderdesk-backend/pkg/redis"
)

// ErrMiss is returned by stores when a key is absent or expired.
var ErrMiss = errors.New("refdata: cache miss")

// Store is the injectable persistence behind the reference cache. Entries
// are JSON documents keyed by "resource:params".
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Cache deduplicates and memoizes reference-data fetches. At most one
// request per key is in flight at any time; concurrent callers share the
// result.
type Cache struct {
	store  Store
	flight singleflight.Group
}

// NewCache wraps the provided store; a nil store degrades to a memory store.
func NewCache(store Store) *Cache {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Cache{store: store}
}

// Fetch returns the cached value for (resource, params) or loads it.
// Failures are terminal for the caller; nothing retries automatically.
func Fetch[T any](ctx context.Context, c *Cache, resource, params string, ttl time.Duration, load func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	key := resource + ":" + params

	if raw, err := c.store.Get(ctx, key); err == nil {
		var cached T
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			return cached, nil
		}
		// A corrupt entry falls through to a fresh load.
	}

	result, err, _ := c.flight.Do(key, func() (any, error) {
		if raw, err := c.store.Get(ctx, key); err == nil {
			var cached T
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return cached, nil
			}
		}

		loaded, err := load(ctx)
		if err != nil {
			return nil, err
		}

		if encoded, err := json.Marshal(loaded); err == nil {
			_ = c.store.Set(ctx, key, string(encoded), ttl)
		}
		return loaded, nil
	})
	if err != nil {
		return zero, err
	}

	typed, ok := result.(T)
	if !ok {
		return zero, pkgerrors.New(pkgerrors.CodeInternal, "refdata cache type mismatch")
	}
	return typed, nil
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is the in-process Store used when Redis is not configured and
// in tests.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]memoryEntry{}, now: time.Now}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[key]
	if !ok {
		return "", ErrMiss
	}
	if !entry.expiresAt.IsZero() && m.now().After(entry.expiresAt) {
		delete(m.entries, key)
		return "", ErrMiss
	}
	return entry.value, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}
	m.entries[key] = entry
	return nil
}

// RedisStore adapts the shared Redis client to the Store interface so the
// reference cache survives process restarts and is shared between replicas.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, r.client.RefdataKey(key, ""))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrMiss
		}
		return "", err
	}
	return value, nil
}

func (r *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, r.client.RefdataKey(key, ""), value, ttl)
}
