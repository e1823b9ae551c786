package node

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/proxworks/mcp-proxmox/internal/server"
	"github.com/proxworks/mcp-proxmox/internal/tools"
)

func handleListNodes(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	cluster := tools.GetStringArg(request, "cluster")

	client, _, err := tools.ResolveClient(ctx, sc, cluster, "")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to resolve cluster: %s", tools.UserFacingMessage(err))), nil
	}

	nodes, err := client.ListNodes(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list nodes: %s", tools.UserFacingMessage(err))), nil
	}
	return tools.JSONResult(nodes)
}

func handleNodeStatus(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	cluster := tools.GetStringArg(request, "cluster")
	node := tools.GetStringArg(request, "node")
	if node == "" {
		return mcp.NewToolResultError("node is required"), nil
	}

	client, _, err := tools.ResolveClient(ctx, sc, cluster, "")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to resolve cluster: %s", tools.UserFacingMessage(err))), nil
	}

	status, err := client.NodeStatus(ctx, node)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get node status: %s", tools.UserFacingMessage(err))), nil
	}
	return tools.JSONResult(status)
}
