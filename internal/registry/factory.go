package registry

import (
	"context"
	"log/slog"
	"time"

	"github.com/proxworks/mcp-proxmox/internal/proxmox"
)

// TokenClientFactory builds API-token authenticated Proxmox clients. Each
// build probes the cluster with a version request so an unreachable or
// misconfigured cluster fails at resolve time instead of on the first tool
// call.
type TokenClientFactory struct {
	// RequestTimeout bounds individual HTTP requests made by built
	// clients. Zero keeps the client default.
	RequestTimeout time.Duration

	// Logger is passed to built clients for request-level debug logging.
	Logger *slog.Logger
}

// Build implements ClientFactory.
func (f *TokenClientFactory) Build(ctx context.Context, cfg ClusterConfig) (proxmox.Client, error) {
	client, err := proxmox.NewClient(proxmox.Options{
		APIURL:      cfg.APIURL,
		TokenID:     cfg.TokenID,
		TokenSecret: cfg.TokenSecret,
		VerifyTLS:   cfg.VerifyTLS,
		Timeout:     f.RequestTimeout,
		Defaults:    cfg.Defaults,
		Logger:      f.Logger,
	})
	if err != nil {
		return nil, err
	}

	// Reachability and auth probe. The version endpoint is the cheapest
	// authenticated call the API offers.
	if _, err := client.Version(ctx); err != nil {
		return nil, err
	}
	return client, nil
}
