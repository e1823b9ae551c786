package storage

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/proxworks/mcp-proxmox/internal/server"
	"github.com/proxworks/mcp-proxmox/internal/tools"
)

func handleListStorage(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	cluster := tools.GetStringArg(request, "cluster")

	client, _, err := tools.ResolveClient(ctx, sc, cluster, "")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to resolve cluster: %s", tools.UserFacingMessage(err))), nil
	}

	pools, err := client.ListStorage(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list storage: %s", tools.UserFacingMessage(err))), nil
	}
	return tools.JSONResult(pools)
}

func handleStorageStatus(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	cluster := tools.GetStringArg(request, "cluster")
	node := tools.GetStringArg(request, "node")
	storage := tools.GetStringArg(request, "storage")
	if node == "" || storage == "" {
		return mcp.NewToolResultError("node and storage are required"), nil
	}

	client, _, err := tools.ResolveClient(ctx, sc, cluster, "")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to resolve cluster: %s", tools.UserFacingMessage(err))), nil
	}

	status, err := client.StorageStatus(ctx, node, storage)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get storage status: %s", tools.UserFacingMessage(err))), nil
	}
	return tools.JSONResult(status)
}
