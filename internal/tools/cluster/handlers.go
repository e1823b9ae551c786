package cluster

import (
	"context"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/proxworks/mcp-proxmox/internal/proxmox"
	"github.com/proxworks/mcp-proxmox/internal/server"
	"github.com/proxworks/mcp-proxmox/internal/tools"
)

// handleListClusters returns redacted summaries of the configured clusters.
func handleListClusters(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	return tools.JSONResult(sc.Registry().ListClusters())
}

// handleValidateClusters probes every cluster and reports per-cluster results.
func handleValidateClusters(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	results, err := sc.Registry().ValidateAll(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to validate clusters: %s", tools.UserFacingMessage(err))), nil
	}
	return tools.JSONResult(results)
}

// clusterNodes is the per-cluster entry in the aggregated node listing.
type clusterNodes struct {
	Cluster string         `json:"cluster"`
	Nodes   []proxmox.Node `json:"nodes,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// handleListAllNodes lists nodes on every cluster concurrently. A cluster
// that cannot be reached contributes an error entry instead of failing the
// whole call.
func handleListAllNodes(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	names := sc.Registry().ClusterNames()
	entries := make([]clusterNodes, len(names))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			entry := clusterNodes{Cluster: name}

			client, _, err := tools.ResolveClient(gctx, sc, name, "")
			if err != nil {
				entry.Error = tools.UserFacingMessage(err)
			} else if nodes, err := client.ListNodes(gctx); err != nil {
				entry.Error = tools.UserFacingMessage(err)
			} else {
				entry.Nodes = nodes
			}

			mu.Lock()
			entries[i] = entry
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list nodes: %v", err)), nil
	}

	return tools.JSONResult(entries)
}
