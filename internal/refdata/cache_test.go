package refdata

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFetchCachesByKey(t *testing.T) {
	t.Parallel()

	cache := NewCache(nil)
	var loads atomic.Int32
	load := func(ctx context.Context) ([]string, error) {
		loads.Add(1)
		return []string{"a", "b"}, nil
	}

	ctx := context.Background()
	first, err := Fetch(ctx, cache, "filials", "all", time.Minute, load)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, first)

	second, err := Fetch(ctx, cache, "filials", "all", time.Minute, load)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, int32(1), loads.Load(), "second fetch must be served from cache")

	_, err = Fetch(ctx, cache, "filials", "other", time.Minute, load)
	require.NoError(t, err)
	require.Equal(t, int32(2), loads.Load(), "different params mean a different key")
}

func TestFetchSingleFlight(t *testing.T) {
	t.Parallel()

	cache := NewCache(nil)
	var loads atomic.Int32
	gate := make(chan struct{})
	load := func(ctx context.Context) (int, error) {
		loads.Add(1)
		<-gate
		return 42, nil
	}

	ctx := context.Background()
	var wg sync.WaitGroup
	results := make([]int, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := Fetch(ctx, cache, "products", "all", time.Minute, load)
			require.NoError(t, err)
			results[i] = got
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	require.Equal(t, int32(1), loads.Load(), "identical keys must share one in-flight request")
	for _, r := range results {
		require.Equal(t, 42, r)
	}
}

func TestFetchErrorIsTerminal(t *testing.T) {
	t.Parallel()

	cache := NewCache(nil)
	var loads atomic.Int32
	load := func(ctx context.Context) (int, error) {
		loads.Add(1)
		return 0, context.DeadlineExceeded
	}

	ctx := context.Background()
	_, err := Fetch(ctx, cache, "users", "all", time.Minute, load)
	require.Error(t, err)

	// Errors are not cached; the next call loads again, but nothing retried
	// automatically in between.
	_, err = Fetch(ctx, cache, "users", "all", time.Minute, load)
	require.Error(t, err)
	require.Equal(t, int32(2), loads.Load())
}

func TestMemoryStoreTTL(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "k", "v", time.Minute))

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v", got)

	now = now.Add(2 * time.Minute)
	_, err = store.Get(ctx, "k")
	require.ErrorIs(t, err, ErrMiss)
}

func TestMemoryStoreZeroTTLNeverExpires(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "k", "v", 0))

	now = now.Add(24 * time.Hour)
	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v", got)
}
