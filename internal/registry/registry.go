package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/proxworks/mcp-proxmox/internal/logging"
	"github.com/proxworks/mcp-proxmox/internal/proxmox"
)

// ClientFactory builds live cluster clients from their configuration. A
// build may perform network I/O (reachability or auth probes) and must
// honor ctx cancellation. Implementations must be safe for concurrent use.
type ClientFactory interface {
	Build(ctx context.Context, cfg ClusterConfig) (proxmox.Client, error)
}

// ClientFactoryFunc adapts a function to the ClientFactory interface.
type ClientFactoryFunc func(ctx context.Context, cfg ClusterConfig) (proxmox.Client, error)

// Build implements ClientFactory.
func (f ClientFactoryFunc) Build(ctx context.Context, cfg ClusterConfig) (proxmox.Client, error) {
	return f(ctx, cfg)
}

// defaultBuildTimeout bounds a single handle build so one unreachable
// cluster cannot hold a tool call indefinitely.
const defaultBuildTimeout = 15 * time.Second

// Registry holds the cluster inventory and resolves tool calls to live
// cluster clients. Selection is explicit > route table > default; handles
// are cached with a TTL and rebuilt on demand.
//
// The inventory is immutable after New; only the handle cache mutates at
// runtime. All methods are safe for concurrent use.
type Registry struct {
	configs     map[string]ClusterConfig
	order       []string
	routes      []RouteRule
	defaultName string

	factory      ClientFactory
	cache        *handleCache
	logger       *slog.Logger
	buildTimeout time.Duration

	mu     sync.RWMutex
	closed bool
}

// Option configures a Registry.
type Option func(*registryOptions)

type registryOptions struct {
	logger       *slog.Logger
	cacheConfig  CacheConfig
	metrics      CacheMetricsRecorder
	buildTimeout time.Duration
	clock        func() time.Time
}

// WithLogger sets the logger used by the registry and its handle cache.
func WithLogger(logger *slog.Logger) Option {
	return func(o *registryOptions) { o.logger = logger }
}

// WithCacheConfig overrides the handle cache TTL and cleanup interval.
func WithCacheConfig(cfg CacheConfig) Option {
	return func(o *registryOptions) { o.cacheConfig = cfg }
}

// WithCacheMetrics sets the recorder receiving cache activity.
func WithCacheMetrics(m CacheMetricsRecorder) Option {
	return func(o *registryOptions) { o.metrics = m }
}

// WithBuildTimeout bounds each handle build. Zero keeps the default.
func WithBuildTimeout(d time.Duration) Option {
	return func(o *registryOptions) { o.buildTimeout = d }
}

// withClock injects a clock for deterministic expiry tests.
func withClock(now func() time.Time) Option {
	return func(o *registryOptions) { o.clock = now }
}

// New validates cfg and builds a registry over it. Validation is
// all-or-nothing: any duplicate cluster name, dangling route target, or
// missing default fails construction and no registry is returned.
func New(cfg Config, factory ClientFactory, opts ...Option) (*Registry, error) {
	if factory == nil {
		return nil, &ConfigError{Reason: "client factory must not be nil"}
	}
	if len(cfg.Clusters) == 0 {
		return nil, &ConfigError{Reason: "at least one cluster must be configured"}
	}

	configs := make(map[string]ClusterConfig, len(cfg.Clusters))
	order := make([]string, 0, len(cfg.Clusters))
	for _, cluster := range cfg.Clusters {
		if err := cluster.Validate(); err != nil {
			return nil, err
		}
		if _, dup := configs[cluster.Name]; dup {
			return nil, &ConfigError{Reason: fmt.Sprintf("duplicate cluster name %q", cluster.Name)}
		}
		configs[cluster.Name] = cluster
		order = append(order, cluster.Name)
	}

	for i, rule := range cfg.Routes {
		if rule.Pattern == "" {
			return nil, &ConfigError{Reason: fmt.Sprintf("route rule %d: pattern must not be empty", i)}
		}
		if _, ok := configs[rule.Target]; !ok {
			return nil, &ConfigError{Reason: fmt.Sprintf("route rule %d: target %q is not a configured cluster", i, rule.Target)}
		}
	}

	defaultName := cfg.DefaultCluster
	if defaultName == "" {
		if len(order) == 1 {
			defaultName = order[0]
		} else {
			return nil, &ConfigError{Reason: "default_cluster must be set when more than one cluster is configured"}
		}
	}
	if _, ok := configs[defaultName]; !ok {
		return nil, &ConfigError{Reason: fmt.Sprintf("default_cluster %q is not a configured cluster", defaultName)}
	}

	options := registryOptions{
		cacheConfig:  DefaultCacheConfig(),
		buildTimeout: defaultBuildTimeout,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	if options.buildTimeout <= 0 {
		options.buildTimeout = defaultBuildTimeout
	}

	cache := newHandleCache(options.cacheConfig, options.metrics, options.logger)
	if options.clock != nil {
		cache.now = options.clock
	}

	return &Registry{
		configs:      configs,
		order:        order,
		routes:       append([]RouteRule(nil), cfg.Routes...),
		defaultName:  defaultName,
		factory:      factory,
		cache:        cache,
		logger:       options.logger,
		buildTimeout: options.buildTimeout,
	}, nil
}

// Resolve returns a live client for the cluster a call targets. explicit,
// when non-empty, must name a configured cluster; otherwise resource is
// matched against the route table and the default cluster is the final
// fallback. Cached handles are reused within their TTL; a miss builds a
// new handle outside any registry lock.
func (r *Registry) Resolve(ctx context.Context, explicit, resource string) (proxmox.Client, error) {
	if err := r.checkClosed(); err != nil {
		return nil, err
	}

	name, err := selectCluster(r.configs, r.routes, r.defaultName, explicit, resource)
	if err != nil {
		return nil, err
	}
	return r.handle(ctx, name)
}

// ResolveName runs the selection chain without touching the cache or the
// network. It reports which cluster a call would target.
func (r *Registry) ResolveName(explicit, resource string) (string, error) {
	if err := r.checkClosed(); err != nil {
		return "", err
	}
	return selectCluster(r.configs, r.routes, r.defaultName, explicit, resource)
}

// handle returns the cached client for name, building one if needed.
func (r *Registry) handle(ctx context.Context, name string) (proxmox.Client, error) {
	cfg, ok := r.configs[name]
	if !ok {
		return nil, &UnknownClusterError{Name: name}
	}

	return r.cache.getOrBuild(ctx, name, func(ctx context.Context) (proxmox.Client, error) {
		return r.build(ctx, cfg)
	})
}

// build constructs a client for cfg under the build timeout and wraps
// failures so callers can match ErrConnectionFailed.
func (r *Registry) build(ctx context.Context, cfg ClusterConfig) (proxmox.Client, error) {
	buildCtx, cancel := context.WithTimeout(ctx, r.buildTimeout)
	defer cancel()

	start := time.Now()
	client, err := r.factory.Build(buildCtx, cfg)
	if err != nil {
		r.logger.WarnContext(ctx, "cluster handle build failed",
			logging.Cluster(cfg.Name),
			logging.SanitizedErr(err),
			logging.Duration(time.Since(start)))
		return nil, &ConnectionError{Cluster: cfg.Name, Err: err}
	}

	r.logger.DebugContext(ctx, "built cluster handle",
		logging.Cluster(cfg.Name),
		logging.Duration(time.Since(start)))
	return client, nil
}

// ListClusters returns redacted summaries of every configured cluster in
// declaration order. It never touches the network.
func (r *Registry) ListClusters() []ClusterSummary {
	summaries := make([]ClusterSummary, 0, len(r.order))
	for _, name := range r.order {
		summary := r.configs[name].Summary()
		summary.IsDefault = name == r.defaultName
		summaries = append(summaries, summary)
	}
	return summaries
}

// ClusterNames returns the configured cluster names in declaration order.
func (r *Registry) ClusterNames() []string {
	return append([]string(nil), r.order...)
}

// DefaultCluster returns the name of the fallback cluster.
func (r *Registry) DefaultCluster() string {
	return r.defaultName
}

// ClusterDefaults returns the configured per-cluster defaults (node,
// storage, bridge and the like) for name.
func (r *Registry) ClusterDefaults(name string) (map[string]string, error) {
	cfg, ok := r.configs[name]
	if !ok {
		return nil, &UnknownClusterError{Name: name}
	}
	return cfg.Defaults, nil
}

// ValidationResult is the outcome of probing one cluster.
type ValidationResult struct {
	OK     bool   `json:"ok"`
	Detail string `json:"detail"`
}

// ValidateAll probes every configured cluster concurrently and returns one
// result per cluster. Each probe builds a fresh handle, bypassing any
// cached one; a successful probe replaces the cached handle so subsequent
// calls reuse the verified connection. One unreachable cluster never
// affects another cluster's result.
func (r *Registry) ValidateAll(ctx context.Context) (map[string]ValidationResult, error) {
	if err := r.checkClosed(); err != nil {
		return nil, err
	}

	results := make(map[string]ValidationResult, len(r.order))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range r.order {
		cfg := r.configs[name]
		g.Go(func() error {
			result := r.validateCluster(gctx, cfg)
			mu.Lock()
			results[cfg.Name] = result
			mu.Unlock()
			// Probe failures land in the result, never in the group error,
			// so sibling probes keep running.
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Registry) validateCluster(ctx context.Context, cfg ClusterConfig) ValidationResult {
	client, err := r.build(ctx, cfg)
	if err != nil {
		return ValidationResult{OK: false, Detail: err.Error()}
	}

	version, err := client.Version(ctx)
	if err != nil {
		return ValidationResult{OK: false, Detail: fmt.Sprintf("version probe failed: %v", err)}
	}

	r.cache.store(ctx, cfg.Name, client)
	return ValidationResult{OK: true, Detail: fmt.Sprintf("Proxmox VE %s", version.Release)}
}

// Invalidate drops the cached handle for name so the next call rebuilds
// it. Invalidating an unknown or uncached cluster is a no-op.
func (r *Registry) Invalidate(ctx context.Context, name string) {
	r.cache.invalidate(ctx, name)
}

// InvalidateAll drops every cached handle.
func (r *Registry) InvalidateAll(ctx context.Context) {
	r.cache.invalidateAll(ctx)
}

// CacheSize returns the number of cached handles.
func (r *Registry) CacheSize() int {
	return r.cache.size()
}

// Close releases the registry. Subsequent calls return ErrRegistryClosed.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	r.cache.close()
	return nil
}

func (r *Registry) checkClosed() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrRegistryClosed
	}
	return nil
}
