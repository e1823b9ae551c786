package task

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/proxworks/mcp-proxmox/internal/proxmox"
	"github.com/proxworks/mcp-proxmox/internal/server"
	"github.com/proxworks/mcp-proxmox/internal/tools"
)

func handleTaskStatus(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	cluster := tools.GetStringArg(request, "cluster")
	node := tools.GetStringArg(request, "node")
	upid := tools.GetStringArg(request, "upid")
	if node == "" || upid == "" {
		return mcp.NewToolResultError("node and upid are required"), nil
	}

	client, _, err := tools.ResolveClient(ctx, sc, cluster, "")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to resolve cluster: %s", tools.UserFacingMessage(err))), nil
	}

	status, err := client.TaskStatus(ctx, node, proxmox.UPID(upid))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get task status: %s", tools.UserFacingMessage(err))), nil
	}
	return tools.JSONResult(status)
}

func handleWaitTask(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	cluster := tools.GetStringArg(request, "cluster")
	node := tools.GetStringArg(request, "node")
	upid := tools.GetStringArg(request, "upid")
	if node == "" || upid == "" {
		return mcp.NewToolResultError("node and upid are required"), nil
	}

	timeout := 300 * time.Second
	if seconds := tools.GetIntArg(request, "timeout_seconds"); seconds > 0 {
		timeout = time.Duration(seconds) * time.Second
	}

	client, _, err := tools.ResolveClient(ctx, sc, cluster, "")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to resolve cluster: %s", tools.UserFacingMessage(err))), nil
	}

	status, err := client.WaitTask(ctx, node, proxmox.UPID(upid), timeout)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed waiting for task: %s", tools.UserFacingMessage(err))), nil
	}
	return tools.JSONResult(status)
}
