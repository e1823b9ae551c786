package task

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/proxworks/mcp-proxmox/internal/server"
	"github.com/proxworks/mcp-proxmox/internal/tools"
)

// RegisterTaskTools registers asynchronous task tools with the MCP server.
func RegisterTaskTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	statusTool := mcp.NewTool("proxmox_task_status",
		mcp.WithDescription("Show the current status of an asynchronous task by UPID."),
		tools.ClusterParam(sc),
		mcp.WithString("node",
			mcp.Description("Node the task runs on"),
			mcp.Required(),
		),
		mcp.WithString("upid",
			mcp.Description("Task UPID as returned by VM lifecycle operations"),
			mcp.Required(),
		),
	)
	s.AddTool(statusTool, tools.WrapWithObservability("proxmox_task_status", handleTaskStatus, sc))

	waitTool := mcp.NewTool("proxmox_wait_task",
		mcp.WithDescription("Wait for an asynchronous task to finish and report its exit status."),
		tools.ClusterParam(sc),
		mcp.WithString("node",
			mcp.Description("Node the task runs on"),
			mcp.Required(),
		),
		mcp.WithString("upid",
			mcp.Description("Task UPID as returned by VM lifecycle operations"),
			mcp.Required(),
		),
		mcp.WithNumber("timeout_seconds",
			mcp.Description("Maximum seconds to wait (optional, default 300)"),
		),
	)
	s.AddTool(waitTool, tools.WrapWithObservability("proxmox_wait_task", handleWaitTask, sc))

	return nil
}
