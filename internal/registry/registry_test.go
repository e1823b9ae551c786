package registry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proxworks/mcp-proxmox/internal/proxmox"
)

func newTestRegistry(t *testing.T, factory ClientFactory, opts ...Option) *Registry {
	t.Helper()
	reg, err := New(testConfig(), factory, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.Close() })
	return reg
}

func TestNewValidation(t *testing.T) {
	valid := testConfig()

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{
			name:   "no clusters",
			mutate: func(c *Config) { c.Clusters = nil },
			errMsg: "at least one cluster",
		},
		{
			name: "duplicate cluster name",
			mutate: func(c *Config) {
				c.Clusters = append(c.Clusters, c.Clusters[0])
			},
			errMsg: "duplicate cluster name",
		},
		{
			name: "dangling route target",
			mutate: func(c *Config) {
				c.Routes = append(c.Routes, RouteRule{Pattern: "dev", Target: "dev"})
			},
			errMsg: "not a configured cluster",
		},
		{
			name:   "empty route pattern",
			mutate: func(c *Config) { c.Routes[0].Pattern = "" },
			errMsg: "pattern must not be empty",
		},
		{
			name:   "missing default with multiple clusters",
			mutate: func(c *Config) { c.DefaultCluster = "" },
			errMsg: "default_cluster must be set",
		},
		{
			name:   "default names unknown cluster",
			mutate: func(c *Config) { c.DefaultCluster = "dev" },
			errMsg: "not a configured cluster",
		},
		{
			name:   "cluster missing token secret",
			mutate: func(c *Config) { c.Clusters[1].TokenSecret = "" },
			errMsg: "token_secret",
		},
		{
			name:   "cluster missing api url",
			mutate: func(c *Config) { c.Clusters[0].APIURL = "" },
			errMsg: "api_url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			cfg.Clusters = append([]ClusterConfig(nil), valid.Clusters...)
			cfg.Routes = append([]RouteRule(nil), valid.Routes...)
			tt.mutate(&cfg)

			reg, err := New(cfg, newCountingFactory())
			require.Error(t, err)
			assert.Nil(t, reg, "validation failure must not return a registry")
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestNewSingleClusterImplicitDefault(t *testing.T) {
	cfg := Config{
		Clusters: []ClusterConfig{
			{Name: "solo", APIURL: "https://solo:8006", TokenID: "ops@pam!mcp", TokenSecret: "s"},
		},
	}
	reg, err := New(cfg, newCountingFactory())
	require.NoError(t, err)
	defer reg.Close()

	assert.Equal(t, "solo", reg.DefaultCluster())
}

func TestResolveCachesHandles(t *testing.T) {
	factory := newCountingFactory()
	reg := newTestRegistry(t, factory)
	ctx := context.Background()

	first, err := reg.Resolve(ctx, "prod", "")
	require.NoError(t, err)
	second, err := reg.Resolve(ctx, "prod", "")
	require.NoError(t, err)

	assert.Same(t, first, second, "second resolve must reuse the cached handle")
	assert.Equal(t, 1, factory.buildCount("prod"))
}

func TestResolveSelectionChain(t *testing.T) {
	factory := newCountingFactory()
	reg := newTestRegistry(t, factory)
	ctx := context.Background()

	client, err := reg.Resolve(ctx, "", "staging-db-01")
	require.NoError(t, err)
	assert.Equal(t, "staging.example.com", client.Host())

	client, err = reg.Resolve(ctx, "", "unmatched-name")
	require.NoError(t, err)
	assert.Equal(t, "lab.example.com", client.Host())

	client, err = reg.Resolve(ctx, "prod", "staging-db-01")
	require.NoError(t, err)
	assert.Equal(t, "prod.example.com", client.Host(), "explicit selector overrides routes")
}

func TestResolveUnknownExplicitDoesNotBuild(t *testing.T) {
	factory := newCountingFactory()
	reg := newTestRegistry(t, factory)

	_, err := reg.Resolve(context.Background(), "nope", "")
	require.ErrorIs(t, err, ErrUnknownCluster)
	assert.Equal(t, 0, factory.buildCount("nope"))
	assert.Equal(t, 0, reg.CacheSize())
}

func TestResolveTTLExpiryRebuilds(t *testing.T) {
	clock := newFakeClock()
	factory := newCountingFactory()
	reg := newTestRegistry(t, factory,
		WithCacheConfig(CacheConfig{TTL: 5 * time.Minute}),
		withClock(clock.Now))
	ctx := context.Background()

	first, err := reg.Resolve(ctx, "prod", "")
	require.NoError(t, err)

	clock.Advance(4 * time.Minute)
	cached, err := reg.Resolve(ctx, "prod", "")
	require.NoError(t, err)
	assert.Same(t, first, cached)
	assert.Equal(t, 1, factory.buildCount("prod"))

	clock.Advance(2 * time.Minute)
	rebuilt, err := reg.Resolve(ctx, "prod", "")
	require.NoError(t, err)
	assert.NotSame(t, first, rebuilt, "expired handle must be rebuilt")
	assert.Equal(t, 2, factory.buildCount("prod"))
}

func TestResolveFailureIsNotCached(t *testing.T) {
	factory := newCountingFactory()
	factory.failWith("prod", errors.New("connection refused"))
	reg := newTestRegistry(t, factory)
	ctx := context.Background()

	_, err := reg.Resolve(ctx, "prod", "")
	require.ErrorIs(t, err, ErrConnectionFailed)
	assert.Equal(t, 0, reg.CacheSize(), "failed builds must not be cached")

	// The cluster recovers; the very next resolve retries.
	factory.failWith("prod", nil)
	client, err := reg.Resolve(ctx, "prod", "")
	require.NoError(t, err)
	assert.NotNil(t, client)
	assert.Equal(t, 2, factory.buildCount("prod"))
}

func TestResolveSingleFlight(t *testing.T) {
	factory := newCountingFactory()
	factory.block = make(chan struct{})
	reg := newTestRegistry(t, factory)
	ctx := context.Background()

	const callers = 20
	var wg sync.WaitGroup
	results := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := reg.Resolve(ctx, "prod", "")
			results <- err
		}()
	}

	// Give the callers time to pile onto the flight, then release it.
	require.Eventually(t, func() bool {
		return factory.inflight.Load() == 1
	}, time.Second, time.Millisecond)
	close(factory.block)
	wg.Wait()
	close(results)

	for err := range results {
		require.NoError(t, err)
	}
	assert.Equal(t, 1, factory.buildCount("prod"), "concurrent resolves must share one build")
}

func TestResolveClustersBuildIndependently(t *testing.T) {
	factory := newCountingFactory()
	factory.block = make(chan struct{})
	reg := newTestRegistry(t, factory)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, name := range []string{"prod", "staging", "lab"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := reg.Resolve(ctx, name, "")
			assert.NoError(t, err)
		}()
	}

	// All three builds must be in flight at once: a slow build for one
	// cluster must not serialize the others.
	require.Eventually(t, func() bool {
		return factory.inflight.Load() == 3
	}, time.Second, time.Millisecond)
	close(factory.block)
	wg.Wait()

	assert.Equal(t, 1, factory.buildCount("prod"))
	assert.Equal(t, 1, factory.buildCount("staging"))
	assert.Equal(t, 1, factory.buildCount("lab"))
}

func TestResolveBuildTimeout(t *testing.T) {
	factory := newCountingFactory()
	factory.block = make(chan struct{}) // never closed: build hangs until ctx fires
	reg := newTestRegistry(t, factory, WithBuildTimeout(20*time.Millisecond))

	start := time.Now()
	_, err := reg.Resolve(context.Background(), "prod", "")
	require.ErrorIs(t, err, ErrConnectionFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, 0, reg.CacheSize())
}

func TestInvalidateForcesRebuild(t *testing.T) {
	factory := newCountingFactory()
	reg := newTestRegistry(t, factory)
	ctx := context.Background()

	first, err := reg.Resolve(ctx, "prod", "")
	require.NoError(t, err)

	reg.Invalidate(ctx, "prod")
	rebuilt, err := reg.Resolve(ctx, "prod", "")
	require.NoError(t, err)

	assert.NotSame(t, first, rebuilt)
	assert.Equal(t, 2, factory.buildCount("prod"))
}

func TestInvalidateUnknownClusterIsNoop(t *testing.T) {
	reg := newTestRegistry(t, newCountingFactory())
	reg.Invalidate(context.Background(), "nope")
	assert.Equal(t, 0, reg.CacheSize())
}

func TestListClusters(t *testing.T) {
	reg := newTestRegistry(t, newCountingFactory())

	summaries := reg.ListClusters()
	require.Len(t, summaries, 3)

	names := make([]string, 0, len(summaries))
	for _, s := range summaries {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"prod", "staging", "lab"}, names, "listing keeps declaration order")

	assert.False(t, summaries[0].IsDefault)
	assert.True(t, summaries[2].IsDefault)
	assert.Equal(t, map[string]string{"env": "lab"}, summaries[2].Tags)
}

func TestValidateAll(t *testing.T) {
	factory := newCountingFactory()
	factory.failWith("staging", errors.New("connection refused"))
	reg := newTestRegistry(t, factory)
	ctx := context.Background()

	results, err := reg.ValidateAll(ctx)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.True(t, results["prod"].OK)
	assert.Contains(t, results["prod"].Detail, "Proxmox VE")
	assert.False(t, results["staging"].OK)
	assert.Contains(t, results["staging"].Detail, "connection refused")
	assert.True(t, results["lab"].OK, "one bad cluster must not affect the others")

	// Verified handles were cached; resolving them builds nothing new.
	_, err = reg.Resolve(ctx, "prod", "")
	require.NoError(t, err)
	assert.Equal(t, 1, factory.buildCount("prod"))
}

func TestValidateAllBypassesCache(t *testing.T) {
	factory := newCountingFactory()
	reg := newTestRegistry(t, factory)
	ctx := context.Background()

	_, err := reg.Resolve(ctx, "prod", "")
	require.NoError(t, err)
	require.Equal(t, 1, factory.buildCount("prod"))

	_, err = reg.ValidateAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, factory.buildCount("prod"), "validation probes fresh even when cached")
}

func TestValidateAllReportsVersionProbeFailure(t *testing.T) {
	probeErr := errors.New("401 authentication failure")
	factory := ClientFactoryFunc(func(ctx context.Context, cfg ClusterConfig) (proxmox.Client, error) {
		if cfg.Name == "lab" {
			return &fakeClient{cluster: cfg.Name, versionErr: probeErr}, nil
		}
		return &fakeClient{cluster: cfg.Name}, nil
	})
	reg := newTestRegistry(t, factory)

	results, err := reg.ValidateAll(context.Background())
	require.NoError(t, err)
	assert.False(t, results["lab"].OK)
	assert.Contains(t, results["lab"].Detail, "version probe failed")
	assert.True(t, results["prod"].OK)
}

func TestClusterDefaults(t *testing.T) {
	cfg := testConfig()
	cfg.Clusters[0].Defaults = map[string]string{"node": "pve1", "storage": "local-lvm"}
	reg, err := New(cfg, newCountingFactory())
	require.NoError(t, err)
	defer reg.Close()

	defaults, err := reg.ClusterDefaults("prod")
	require.NoError(t, err)
	assert.Equal(t, "pve1", defaults["node"])

	_, err = reg.ClusterDefaults("nope")
	assert.ErrorIs(t, err, ErrUnknownCluster)
}

func TestResolveName(t *testing.T) {
	reg := newTestRegistry(t, newCountingFactory())

	name, err := reg.ResolveName("", "prod-web-01")
	require.NoError(t, err)
	assert.Equal(t, "prod", name)

	name, err = reg.ResolveName("", "")
	require.NoError(t, err)
	assert.Equal(t, "lab", name)
}

func TestCloseRejectsFurtherCalls(t *testing.T) {
	reg := newTestRegistry(t, newCountingFactory())
	ctx := context.Background()

	_, err := reg.Resolve(ctx, "prod", "")
	require.NoError(t, err)

	require.NoError(t, reg.Close())
	require.NoError(t, reg.Close(), "close is idempotent")

	_, err = reg.Resolve(ctx, "prod", "")
	assert.ErrorIs(t, err, ErrRegistryClosed)
	_, err = reg.ValidateAll(ctx)
	assert.ErrorIs(t, err, ErrRegistryClosed)
	assert.Equal(t, 0, reg.CacheSize())
}
