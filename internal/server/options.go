package server

import (
	"errors"
	"log/slog"

	"github.com/proxworks/mcp-proxmox/internal/instrumentation"
	"github.com/proxworks/mcp-proxmox/internal/registry"
)

// Option is a functional option for configuring ServerContext.
type Option func(*ServerContext) error

// WithRegistry sets the cluster registry for the ServerContext.
func WithRegistry(reg *registry.Registry) Option {
	return func(sc *ServerContext) error {
		if reg == nil {
			return ErrMissingRegistry
		}
		sc.registry = reg
		return nil
	}
}

// WithLogger sets the logger for the ServerContext.
func WithLogger(logger *slog.Logger) Option {
	return func(sc *ServerContext) error {
		if logger == nil {
			return ErrMissingLogger
		}
		sc.logger = logger
		return nil
	}
}

// WithConfig sets the configuration for the ServerContext.
func WithConfig(config *Config) Option {
	return func(sc *ServerContext) error {
		if config == nil {
			return ErrMissingConfig
		}
		sc.config = config.Clone()
		return nil
	}
}

// WithServerName sets the server name in the configuration.
func WithServerName(name string) Option {
	return func(sc *ServerContext) error {
		if sc.config == nil {
			sc.config = NewDefaultConfig()
		}
		sc.config.ServerName = name
		return nil
	}
}

// WithVersion sets the reported server version.
func WithVersion(version string) Option {
	return func(sc *ServerContext) error {
		if sc.config == nil {
			sc.config = NewDefaultConfig()
		}
		sc.config.Version = version
		return nil
	}
}

// WithRequireConfirmation toggles the confirm=true gate on destructive
// guest operations.
func WithRequireConfirmation(enabled bool) Option {
	return func(sc *ServerContext) error {
		if sc.config == nil {
			sc.config = NewDefaultConfig()
		}
		sc.config.RequireConfirmation = enabled
		return nil
	}
}

// WithInstrumentationProvider sets the OpenTelemetry instrumentation provider.
func WithInstrumentationProvider(provider *instrumentation.Provider) Option {
	return func(sc *ServerContext) error {
		sc.instrumentationProvider = provider
		return nil
	}
}

// Error definitions for ServerContext validation and operations.
var (
	ErrMissingRegistry = errors.New("cluster registry is required")
	ErrMissingLogger   = errors.New("logger is required")
	ErrMissingConfig   = errors.New("configuration is required")
	ErrServerShutdown  = errors.New("server context has been shutdown")
)
