package registry

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proxworks/mcp-proxmox/internal/proxmox"
)

func newTestCache(metrics CacheMetricsRecorder, clock *fakeClock) *handleCache {
	c := newHandleCache(CacheConfig{TTL: 5 * time.Minute}, metrics, slog.Default())
	if clock != nil {
		c.now = clock.Now
	}
	return c
}

func staticBuilder(client proxmox.Client) func(context.Context) (proxmox.Client, error) {
	return func(context.Context) (proxmox.Client, error) { return client, nil }
}

func TestHandleCacheHitAndMiss(t *testing.T) {
	metrics := newRecordingMetrics()
	cache := newTestCache(metrics, nil)
	defer cache.close()
	ctx := context.Background()

	_, ok := cache.get(ctx, "prod")
	assert.False(t, ok)

	want := &fakeClient{cluster: "prod"}
	got, err := cache.getOrBuild(ctx, "prod", staticBuilder(want))
	require.NoError(t, err)
	assert.Same(t, want, got)

	got, ok = cache.get(ctx, "prod")
	require.True(t, ok)
	assert.Same(t, want, got)

	hits, misses, size := metrics.snapshot()
	assert.Equal(t, 1, hits)
	// The initial get, plus the miss inside getOrBuild.
	assert.Equal(t, 2, misses)
	assert.Equal(t, 1, size)
}

func TestHandleCacheExpiredEntryMisses(t *testing.T) {
	clock := newFakeClock()
	metrics := newRecordingMetrics()
	cache := newTestCache(metrics, clock)
	defer cache.close()
	ctx := context.Background()

	cache.store(ctx, "prod", &fakeClient{cluster: "prod"})

	clock.Advance(6 * time.Minute)
	_, ok := cache.get(ctx, "prod")
	assert.False(t, ok, "expired handles must not be served")
}

func TestHandleCacheBuildErrorNotStored(t *testing.T) {
	cache := newTestCache(nil, nil)
	defer cache.close()
	ctx := context.Background()

	buildErr := errors.New("boom")
	_, err := cache.getOrBuild(ctx, "prod", func(context.Context) (proxmox.Client, error) {
		return nil, buildErr
	})
	require.ErrorIs(t, err, buildErr)
	assert.Equal(t, 0, cache.size())
}

func TestHandleCacheInvalidate(t *testing.T) {
	metrics := newRecordingMetrics()
	cache := newTestCache(metrics, nil)
	defer cache.close()
	ctx := context.Background()

	cache.store(ctx, "prod", &fakeClient{cluster: "prod"})
	cache.store(ctx, "staging", &fakeClient{cluster: "staging"})
	require.Equal(t, 2, cache.size())

	cache.invalidate(ctx, "prod")
	assert.Equal(t, 1, cache.size())
	assert.Equal(t, 1, metrics.evictionCount(evictionReasonInvalidated))

	// Invalidating an absent key records nothing.
	cache.invalidate(ctx, "prod")
	assert.Equal(t, 1, metrics.evictionCount(evictionReasonInvalidated))

	cache.invalidateAll(ctx)
	assert.Equal(t, 0, cache.size())
	assert.Equal(t, 2, metrics.evictionCount(evictionReasonInvalidated))
}

func TestHandleCacheCleanupRemovesExpired(t *testing.T) {
	clock := newFakeClock()
	metrics := newRecordingMetrics()
	cache := newTestCache(metrics, clock)
	defer cache.close()
	ctx := context.Background()

	cache.store(ctx, "prod", &fakeClient{cluster: "prod"})
	clock.Advance(3 * time.Minute)
	cache.store(ctx, "staging", &fakeClient{cluster: "staging"})

	clock.Advance(3 * time.Minute)
	cache.removeExpired()

	assert.Equal(t, 1, cache.size(), "only the older handle is past its TTL")
	assert.Equal(t, 1, metrics.evictionCount(evictionReasonExpired))
	_, ok := cache.get(ctx, "staging")
	assert.True(t, ok)
}

func TestHandleCacheCloseStopsStores(t *testing.T) {
	metrics := newRecordingMetrics()
	cache := newTestCache(metrics, nil)
	ctx := context.Background()

	cache.store(ctx, "prod", &fakeClient{cluster: "prod"})
	cache.close()

	assert.Equal(t, 0, cache.size())
	assert.Equal(t, 1, metrics.evictionCount(evictionReasonClosed))

	cache.store(ctx, "prod", &fakeClient{cluster: "prod"})
	assert.Equal(t, 0, cache.size(), "closed cache refuses stores")

	_, err := cache.getOrBuild(ctx, "prod", staticBuilder(&fakeClient{cluster: "prod"}))
	assert.ErrorIs(t, err, ErrRegistryClosed)

	cache.close() // idempotent
}

func TestHandleCacheBackgroundCleanup(t *testing.T) {
	cache := newHandleCache(CacheConfig{TTL: 10 * time.Millisecond, CleanupInterval: 5 * time.Millisecond},
		nil, slog.Default())
	defer cache.close()
	ctx := context.Background()

	cache.store(ctx, "prod", &fakeClient{cluster: "prod"})

	require.Eventually(t, func() bool {
		return cache.size() == 0
	}, time.Second, 5*time.Millisecond, "cleanup loop sweeps expired handles")
}
