package lxc

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/proxworks/mcp-proxmox/internal/server"
	"github.com/proxworks/mcp-proxmox/internal/tools"
)

// RegisterContainerTools registers LXC container tools with the MCP server.
func RegisterContainerTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	listTool := mcp.NewTool("proxmox_list_containers",
		mcp.WithDescription("List LXC containers on a cluster, optionally filtered by node, status, or a name substring."),
		tools.ClusterParam(sc),
		tools.NodeParam(),
		mcp.WithString("status",
			mcp.Description("Filter by status: running, stopped (optional)"),
		),
		mcp.WithString("search",
			mcp.Description("Case-insensitive substring match on container names (optional)"),
		),
	)
	s.AddTool(listTool, tools.WrapWithObservability("proxmox_list_containers", handleListContainers, sc))

	infoTool := mcp.NewTool("proxmox_container_info",
		mcp.WithDescription("Show a container's placement, resource usage, and configuration. Identify the container by vmid or name."),
		tools.ClusterParam(sc),
		tools.NodeParam(),
		mcp.WithNumber("vmid",
			mcp.Description("Container ID (optional when name is given)"),
		),
		mcp.WithString("name",
			mcp.Description("Container name (optional when vmid is given; also drives route-based cluster selection)"),
		),
	)
	s.AddTool(infoTool, tools.WrapWithObservability("proxmox_container_info", handleContainerInfo, sc))

	return nil
}
