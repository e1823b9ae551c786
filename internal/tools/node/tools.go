package node

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/proxworks/mcp-proxmox/internal/server"
	"github.com/proxworks/mcp-proxmox/internal/tools"
)

// RegisterNodeTools registers node discovery tools with the MCP server.
func RegisterNodeTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	listTool := mcp.NewTool("proxmox_list_nodes",
		mcp.WithDescription("List the nodes of one Proxmox cluster with CPU, memory and uptime figures."),
		tools.ClusterParam(sc),
	)
	s.AddTool(listTool, tools.WrapWithObservability("proxmox_list_nodes", handleListNodes, sc))

	statusTool := mcp.NewTool("proxmox_node_status",
		mcp.WithDescription("Show detailed status of a single node."),
		tools.ClusterParam(sc),
		mcp.WithString("node",
			mcp.Description("Node name"),
			mcp.Required(),
		),
	)
	s.AddTool(statusTool, tools.WrapWithObservability("proxmox_node_status", handleNodeStatus, sc))

	return nil
}
