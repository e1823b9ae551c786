package registry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/proxworks/mcp-proxmox/internal/proxmox"
)

// fakeClient is a minimal proxmox.Client for registry tests. Only the
// methods the registry itself touches are implemented; the embedded nil
// interface panics on anything else, which would mark a test bug.
type fakeClient struct {
	proxmox.Client
	cluster    string
	versionErr error
}

func (f *fakeClient) Version(ctx context.Context) (*proxmox.Version, error) {
	if f.versionErr != nil {
		return nil, f.versionErr
	}
	return &proxmox.Version{Version: "8.2", Release: "8.2"}, nil
}

func (f *fakeClient) Host() string { return f.cluster + ".example.com" }

// countingFactory builds fakeClients and records build activity.
type countingFactory struct {
	mu     sync.Mutex
	builds map[string]int

	// errs maps cluster name to a build error. A nil entry builds fine.
	errs map[string]error

	// block, when set, is closed by the test to release in-flight builds.
	block chan struct{}

	// inflight counts builds currently inside Build.
	inflight atomic.Int32
}

func newCountingFactory() *countingFactory {
	return &countingFactory{builds: make(map[string]int)}
}

func (f *countingFactory) Build(ctx context.Context, cfg ClusterConfig) (proxmox.Client, error) {
	f.inflight.Add(1)
	defer f.inflight.Add(-1)

	f.mu.Lock()
	f.builds[cfg.Name]++
	err := f.errs[cfg.Name]
	f.mu.Unlock()

	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &fakeClient{cluster: cfg.Name}, nil
}

func (f *countingFactory) buildCount(cluster string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.builds[cluster]
}

func (f *countingFactory) failWith(cluster string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errs == nil {
		f.errs = make(map[string]error)
	}
	f.errs[cluster] = err
}

// recordingMetrics counts cache recorder callbacks.
type recordingMetrics struct {
	mu        sync.Mutex
	hits      int
	misses    int
	evictions map[string]int
	size      int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{evictions: make(map[string]int)}
}

func (m *recordingMetrics) RecordCacheHit(context.Context, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hits++
}

func (m *recordingMetrics) RecordCacheMiss(context.Context, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.misses++
}

func (m *recordingMetrics) RecordCacheEviction(_ context.Context, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictions[reason]++
}

func (m *recordingMetrics) RecordBuildDuration(context.Context, string, time.Duration, bool) {}

func (m *recordingMetrics) SetCacheSize(_ context.Context, size int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.size = size
}

func (m *recordingMetrics) snapshot() (hits, misses, size int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits, m.misses, m.size
}

func (m *recordingMetrics) evictionCount(reason string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.evictions[reason]
}

// fakeClock is a manually advanced clock for expiry tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testConfig() Config {
	return Config{
		Clusters: []ClusterConfig{
			{Name: "prod", APIURL: "https://prod.example.com:8006", TokenID: "ops@pam!mcp", TokenSecret: "secret-prod"},
			{Name: "staging", APIURL: "https://staging.example.com:8006", TokenID: "ops@pam!mcp", TokenSecret: "secret-staging"},
			{Name: "lab", APIURL: "https://lab.example.com:8006", TokenID: "ops@pam!mcp", TokenSecret: "secret-lab", Tags: map[string]string{"env": "lab"}},
		},
		Routes: []RouteRule{
			{Pattern: "prod", Target: "prod"},
			{Pattern: "staging", Target: "staging"},
		},
		DefaultCluster: "lab",
	}
}
