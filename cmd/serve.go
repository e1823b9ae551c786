package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/proxworks/mcp-proxmox/internal/config"
	"github.com/proxworks/mcp-proxmox/internal/instrumentation"
	"github.com/proxworks/mcp-proxmox/internal/registry"
	"github.com/proxworks/mcp-proxmox/internal/server"
	"github.com/proxworks/mcp-proxmox/internal/tools/cluster"
	"github.com/proxworks/mcp-proxmox/internal/tools/lxc"
	"github.com/proxworks/mcp-proxmox/internal/tools/node"
	"github.com/proxworks/mcp-proxmox/internal/tools/storage"
	"github.com/proxworks/mcp-proxmox/internal/tools/task"
	"github.com/proxworks/mcp-proxmox/internal/tools/vm"
)

// Transport type constants for the MCP server.
const (
	transportStdio          = "stdio"
	transportSSE            = "sse"
	transportStreamableHTTP = "streamable-http"
)

// ServeConfig holds all configuration for the serve command.
type ServeConfig struct {
	// Transport settings
	Transport string
	HTTPAddr  string

	// Endpoint paths
	SSEEndpoint     string
	MessageEndpoint string
	HTTPEndpoint    string

	// Cluster inventory and client settings
	ClusterConfigPath string
	CacheTTL          time.Duration
	CacheCleanup      time.Duration
	BuildTimeout      time.Duration
	RequestTimeout    time.Duration

	RequireConfirm bool
	DebugMode      bool

	Metrics MetricsServeConfig
}

// MetricsServeConfig holds configuration for the dedicated metrics listener.
type MetricsServeConfig struct {
	Enabled bool
	Addr    string
}

// newServeCmd creates the Cobra command for starting the MCP server.
func newServeCmd() *cobra.Command {
	var (
		clusterConfigPath string
		cacheTTL          time.Duration
		cacheCleanup      time.Duration
		buildTimeout      time.Duration
		requestTimeout    time.Duration
		requireConfirm    bool
		debugMode         bool

		// Transport options
		transport       string
		httpAddr        string
		sseEndpoint     string
		messageEndpoint string
		httpEndpoint    string

		// Metrics options
		enableMetrics bool
		metricsAddr   string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP Proxmox server",
		Long: `Start the MCP Proxmox server to provide tools for interacting
with Proxmox VE clusters via the Model Context Protocol.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - sse: Server-Sent Events over HTTP
  - streamable-http: Streamable HTTP transport

Cluster configuration:
  Clusters are read from a YAML inventory file given via --cluster-config
  or the PROXMOX_CLUSTERS_FILE environment variable. Without a file, a
  single cluster is configured from PROXMOX_API_URL, PROXMOX_TOKEN_ID and
  PROXMOX_TOKEN_SECRET.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ServeConfig{
				Transport:         transport,
				HTTPAddr:          httpAddr,
				SSEEndpoint:       sseEndpoint,
				MessageEndpoint:   messageEndpoint,
				HTTPEndpoint:      httpEndpoint,
				ClusterConfigPath: clusterConfigPath,
				CacheTTL:          cacheTTL,
				CacheCleanup:      cacheCleanup,
				BuildTimeout:      buildTimeout,
				RequestTimeout:    requestTimeout,
				RequireConfirm:    requireConfirm,
				DebugMode:         debugMode,
				Metrics: MetricsServeConfig{
					Enabled: enableMetrics,
					Addr:    metricsAddr,
				},
			}
			return runServe(cfg)
		},
	}

	defaults := registry.DefaultCacheConfig()

	// Add flags for configuring the server
	cmd.Flags().StringVar(&clusterConfigPath, "cluster-config", "", "Path to the YAML cluster inventory (default: $PROXMOX_CLUSTERS_FILE, then env vars)")
	cmd.Flags().DurationVar(&cacheTTL, "cache-ttl", defaults.TTL, "How long cached cluster connections stay fresh")
	cmd.Flags().DurationVar(&cacheCleanup, "cache-cleanup-interval", defaults.CleanupInterval, "How often expired cached connections are swept")
	cmd.Flags().DurationVar(&buildTimeout, "build-timeout", 15*time.Second, "Timeout for establishing a cluster connection")
	cmd.Flags().DurationVar(&requestTimeout, "request-timeout", 30*time.Second, "Timeout for individual Proxmox API requests")
	cmd.Flags().BoolVar(&requireConfirm, "require-confirm", true, "Require confirm=true on destructive guest operations (default: true)")
	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging (default: false)")

	// Transport flags
	cmd.Flags().StringVar(&transport, "transport", transportStdio, "Transport type: stdio, sse, or streamable-http")
	cmd.Flags().StringVar(&httpAddr, "http-addr", ":8080", "HTTP server address (for sse and streamable-http transports)")
	cmd.Flags().StringVar(&sseEndpoint, "sse-endpoint", "/sse", "SSE endpoint path (for sse transport)")
	cmd.Flags().StringVar(&messageEndpoint, "message-endpoint", "/message", "Message endpoint path (for sse transport)")
	cmd.Flags().StringVar(&httpEndpoint, "http-endpoint", "/mcp", "HTTP endpoint path (for streamable-http transport)")

	// Metrics flags
	cmd.Flags().BoolVar(&enableMetrics, "enable-metrics", false, "Serve Prometheus metrics on a dedicated listener (for HTTP transports)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "Metrics server address (when --enable-metrics is set)")

	return cmd
}

// runServe starts the MCP server with the given configuration.
func runServe(cfg ServeConfig) error {
	switch cfg.Transport {
	case transportStdio, transportSSE, transportStreamableHTTP:
	default:
		return fmt.Errorf("unsupported transport: %s (supported: %s, %s, %s)",
			cfg.Transport, transportStdio, transportSSE, transportStreamableHTTP)
	}

	logLevel := slog.LevelInfo
	if cfg.DebugMode {
		logLevel = slog.LevelDebug
	}
	// Logs go to stderr so stdio transport keeps stdout for MCP framing.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	// Setup graceful shutdown - listen for both SIGINT and SIGTERM
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Load the cluster inventory before anything else so misconfiguration
	// fails fast with a usable message.
	clusterConfig, err := config.Load(cfg.ClusterConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load cluster configuration: %w", err)
	}

	// Initialize OpenTelemetry instrumentation provider
	instrumentationConfig := instrumentation.DefaultConfig()
	instrumentationConfig.ServiceVersion = rootCmd.Version
	instrumentationProvider, err := instrumentation.NewProvider(shutdownCtx, instrumentationConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if shutdownErr := instrumentationProvider.Shutdown(context.Background()); shutdownErr != nil {
			if cfg.Transport != transportStdio {
				log.Printf("Error during instrumentation shutdown: %v", shutdownErr)
			}
		}
	}()

	if instrumentationProvider.Enabled() {
		logger.Info("instrumentation enabled",
			slog.String("metrics_exporter", instrumentationConfig.MetricsExporter))
	}

	factory := &registry.TokenClientFactory{
		RequestTimeout: cfg.RequestTimeout,
		Logger:         logger,
	}

	registryOptions := []registry.Option{
		registry.WithLogger(logger),
		registry.WithCacheConfig(registry.CacheConfig{
			TTL:             cfg.CacheTTL,
			CleanupInterval: cfg.CacheCleanup,
		}),
		registry.WithBuildTimeout(cfg.BuildTimeout),
	}
	if instrumentationProvider.Enabled() {
		registryOptions = append(registryOptions, registry.WithCacheMetrics(instrumentationProvider.Metrics()))
	}

	reg, err := registry.New(clusterConfig, factory, registryOptions...)
	if err != nil {
		return fmt.Errorf("failed to create cluster registry: %w", err)
	}

	serverConfig := server.NewDefaultConfig()
	serverConfig.Version = rootCmd.Version
	serverConfig.RequireConfirmation = cfg.RequireConfirm
	if cfg.DebugMode {
		serverConfig.LogLevel = "debug"
	}

	serverContext, err := server.NewServerContext(shutdownCtx,
		server.WithRegistry(reg),
		server.WithLogger(logger),
		server.WithConfig(serverConfig),
		server.WithInstrumentationProvider(instrumentationProvider),
	)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			// Only log shutdown errors for non-stdio transports to avoid output interference
			if cfg.Transport != transportStdio {
				log.Printf("Error during server context shutdown: %v", err)
			}
		}
	}()

	logger.Info("cluster registry ready",
		slog.Int("clusters", len(reg.ClusterNames())),
		slog.String("default_cluster", reg.DefaultCluster()))

	// Create MCP server
	mcpSrv := mcpserver.NewMCPServer("mcp-proxmox", rootCmd.Version,
		mcpserver.WithToolCapabilities(true),
	)

	// Register all tool categories
	if err := cluster.RegisterClusterTools(mcpSrv, serverContext); err != nil {
		return fmt.Errorf("failed to register cluster tools: %w", err)
	}

	if err := node.RegisterNodeTools(mcpSrv, serverContext); err != nil {
		return fmt.Errorf("failed to register node tools: %w", err)
	}

	if err := vm.RegisterVMTools(mcpSrv, serverContext); err != nil {
		return fmt.Errorf("failed to register vm tools: %w", err)
	}

	if err := lxc.RegisterContainerTools(mcpSrv, serverContext); err != nil {
		return fmt.Errorf("failed to register container tools: %w", err)
	}

	if err := storage.RegisterStorageTools(mcpSrv, serverContext); err != nil {
		return fmt.Errorf("failed to register storage tools: %w", err)
	}

	if err := task.RegisterTaskTools(mcpSrv, serverContext); err != nil {
		return fmt.Errorf("failed to register task tools: %w", err)
	}

	// Start the appropriate server based on transport type
	switch cfg.Transport {
	case transportStdio:
		// Don't print startup message for stdio mode as it interferes with MCP communication
		return runStdioServer(mcpSrv)
	case transportSSE:
		fmt.Printf("Starting MCP Proxmox server with %s transport...\n", cfg.Transport)
		return runSSEServer(shutdownCtx, mcpSrv, cfg.HTTPAddr, cfg.SSEEndpoint, cfg.MessageEndpoint, cfg.DebugMode)
	case transportStreamableHTTP:
		fmt.Printf("Starting MCP Proxmox server with %s transport...\n", cfg.Transport)
		return runStreamableHTTPServer(shutdownCtx, mcpSrv, cfg.HTTPAddr, cfg.HTTPEndpoint, instrumentationProvider, serverContext, cfg.Metrics)
	default:
		return fmt.Errorf("unsupported transport: %s", cfg.Transport)
	}
}
