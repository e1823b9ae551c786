package registry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/proxworks/mcp-proxmox/internal/logging"
	"github.com/proxworks/mcp-proxmox/internal/proxmox"
)

// CacheConfig holds configuration for the handle cache.
type CacheConfig struct {
	// TTL is the lifetime of a cached handle. Expired handles are rebuilt
	// on next use and swept by the cleanup loop.
	TTL time.Duration

	// CleanupInterval is how often the background sweep removes expired
	// handles. Zero disables the background sweep; expiry is then enforced
	// only on access.
	CleanupInterval time.Duration
}

// DefaultCacheConfig returns the default cache configuration.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:             10 * time.Minute,
		CleanupInterval: time.Minute,
	}
}

// CacheMetricsRecorder receives cache activity for observability. All
// methods must be safe for concurrent use. A nil recorder is replaced by a
// no-op implementation.
type CacheMetricsRecorder interface {
	RecordCacheHit(ctx context.Context, cluster string)
	RecordCacheMiss(ctx context.Context, cluster string)
	RecordCacheEviction(ctx context.Context, reason string)
	RecordBuildDuration(ctx context.Context, cluster string, d time.Duration, success bool)
	SetCacheSize(ctx context.Context, size int)
}

// noopCacheMetrics discards all recordings.
type noopCacheMetrics struct{}

func (noopCacheMetrics) RecordCacheHit(context.Context, string)  {}
func (noopCacheMetrics) RecordCacheMiss(context.Context, string) {}
func (noopCacheMetrics) RecordCacheEviction(context.Context, string) {
}
func (noopCacheMetrics) RecordBuildDuration(context.Context, string, time.Duration, bool) {}
func (noopCacheMetrics) SetCacheSize(context.Context, int)                                {}

// Eviction reasons reported to the metrics recorder.
const (
	evictionReasonExpired     = "expired"
	evictionReasonInvalidated = "invalidated"
	evictionReasonClosed      = "closed"
)

// cachedHandle is one live cluster client plus its expiry bookkeeping.
type cachedHandle struct {
	client    proxmox.Client
	createdAt time.Time
	expiresAt time.Time
}

func (h *cachedHandle) expired(now time.Time) bool {
	return now.After(h.expiresAt)
}

// handleCache stores live cluster clients keyed by cluster name. Lookups
// take the read lock only; builds run outside any lock and are
// deduplicated per key with singleflight, so a slow build for one cluster
// never delays access to another.
type handleCache struct {
	mu      sync.RWMutex
	handles map[string]*cachedHandle
	closed  bool

	config  CacheConfig
	group   singleflight.Group
	metrics CacheMetricsRecorder
	logger  *slog.Logger

	// now is injectable for deterministic expiry tests.
	now func() time.Time

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func newHandleCache(config CacheConfig, metrics CacheMetricsRecorder, logger *slog.Logger) *handleCache {
	if metrics == nil {
		metrics = noopCacheMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &handleCache{
		handles: make(map[string]*cachedHandle),
		config:  config,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	if config.CleanupInterval > 0 {
		c.wg.Add(1)
		go c.cleanupLoop()
	}
	return c
}

// get returns the cached client for cluster if present and unexpired.
func (c *handleCache) get(ctx context.Context, cluster string) (proxmox.Client, bool) {
	c.mu.RLock()
	handle, ok := c.handles[cluster]
	c.mu.RUnlock()

	if !ok || handle.expired(c.now()) {
		c.metrics.RecordCacheMiss(ctx, cluster)
		return nil, false
	}
	c.metrics.RecordCacheHit(ctx, cluster)
	return handle.client, true
}

// getOrBuild returns the cached client for cluster, building one with
// build on a miss. Concurrent callers for the same cluster share a single
// build; callers for different clusters build independently. Failed builds
// are never stored, so the next call retries from scratch.
func (c *handleCache) getOrBuild(ctx context.Context, cluster string, build func(ctx context.Context) (proxmox.Client, error)) (proxmox.Client, error) {
	if client, ok := c.get(ctx, cluster); ok {
		return client, nil
	}

	v, err, _ := c.group.Do(cluster, func() (any, error) {
		// Double-check under the flight: another caller may have finished
		// a build between our miss and acquiring the flight.
		c.mu.RLock()
		handle, ok := c.handles[cluster]
		closed := c.closed
		c.mu.RUnlock()
		if closed {
			return nil, ErrRegistryClosed
		}
		if ok && !handle.expired(c.now()) {
			return handle.client, nil
		}

		start := c.now()
		client, err := build(ctx)
		c.metrics.RecordBuildDuration(ctx, cluster, c.now().Sub(start), err == nil)
		if err != nil {
			return nil, err
		}
		c.store(ctx, cluster, client)
		return client, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(proxmox.Client), nil
}

// store inserts or replaces the handle for cluster.
func (c *handleCache) store(ctx context.Context, cluster string, client proxmox.Client) {
	now := c.now()
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.handles[cluster] = &cachedHandle{
		client:    client,
		createdAt: now,
		expiresAt: now.Add(c.config.TTL),
	}
	size := len(c.handles)
	c.mu.Unlock()

	c.metrics.SetCacheSize(ctx, size)
	c.logger.DebugContext(ctx, "cached cluster handle",
		logging.Cluster(cluster),
		slog.Time("expires_at", now.Add(c.config.TTL)))
}

// invalidate drops the handle for cluster. The next access rebuilds it.
func (c *handleCache) invalidate(ctx context.Context, cluster string) {
	c.mu.Lock()
	_, ok := c.handles[cluster]
	if ok {
		delete(c.handles, cluster)
	}
	size := len(c.handles)
	c.mu.Unlock()

	if ok {
		c.metrics.RecordCacheEviction(ctx, evictionReasonInvalidated)
		c.metrics.SetCacheSize(ctx, size)
		c.logger.DebugContext(ctx, "invalidated cluster handle", logging.Cluster(cluster))
	}
}

// invalidateAll drops every cached handle.
func (c *handleCache) invalidateAll(ctx context.Context) {
	c.mu.Lock()
	count := len(c.handles)
	c.handles = make(map[string]*cachedHandle)
	c.mu.Unlock()

	for i := 0; i < count; i++ {
		c.metrics.RecordCacheEviction(ctx, evictionReasonInvalidated)
	}
	c.metrics.SetCacheSize(ctx, 0)
	if count > 0 {
		c.logger.DebugContext(ctx, "invalidated all cluster handles", slog.Int("count", count))
	}
}

// size returns the number of cached handles, expired or not.
func (c *handleCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.handles)
}

// close stops the cleanup loop and drops all handles. The cache refuses
// further stores after close.
func (c *handleCache) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	count := len(c.handles)
	c.handles = make(map[string]*cachedHandle)
	c.mu.Unlock()

	close(c.stopCh)
	c.wg.Wait()

	ctx := context.Background()
	for i := 0; i < count; i++ {
		c.metrics.RecordCacheEviction(ctx, evictionReasonClosed)
	}
	c.metrics.SetCacheSize(ctx, 0)
}

func (c *handleCache) cleanupLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stopCh:
			return
		}
	}
}

// removeExpired sweeps handles past their TTL.
func (c *handleCache) removeExpired() {
	now := c.now()

	c.mu.Lock()
	var expired []string
	for cluster, handle := range c.handles {
		if handle.expired(now) {
			expired = append(expired, cluster)
			delete(c.handles, cluster)
		}
	}
	size := len(c.handles)
	c.mu.Unlock()

	if len(expired) == 0 {
		return
	}
	ctx := context.Background()
	for range expired {
		c.metrics.RecordCacheEviction(ctx, evictionReasonExpired)
	}
	c.metrics.SetCacheSize(ctx, size)
	c.logger.DebugContext(ctx, "removed expired cluster handles", slog.Int("count", len(expired)))
}
