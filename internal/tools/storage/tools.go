package storage

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/proxworks/mcp-proxmox/internal/server"
	"github.com/proxworks/mcp-proxmox/internal/tools"
)

// RegisterStorageTools registers storage discovery tools with the MCP server.
func RegisterStorageTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	listTool := mcp.NewTool("proxmox_list_storage",
		mcp.WithDescription("List the storage pools defined on a cluster."),
		tools.ClusterParam(sc),
	)
	s.AddTool(listTool, tools.WrapWithObservability("proxmox_list_storage", handleListStorage, sc))

	statusTool := mcp.NewTool("proxmox_storage_status",
		mcp.WithDescription("Show usage details of one storage pool on a node."),
		tools.ClusterParam(sc),
		mcp.WithString("node",
			mcp.Description("Node name"),
			mcp.Required(),
		),
		mcp.WithString("storage",
			mcp.Description("Storage pool name"),
			mcp.Required(),
		),
	)
	s.AddTool(statusTool, tools.WrapWithObservability("proxmox_storage_status", handleStorageStatus, sc))

	return nil
}
