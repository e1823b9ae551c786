package cluster

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/proxworks/mcp-proxmox/internal/server"
	"github.com/proxworks/mcp-proxmox/internal/tools"
)

// RegisterClusterTools registers all cluster inventory tools with the MCP server.
func RegisterClusterTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	listTool := mcp.NewTool("proxmox_list_clusters",
		mcp.WithDescription("List configured Proxmox clusters with their tags. Never exposes credentials or API addresses."),
	)
	s.AddTool(listTool, tools.WrapWithObservability("proxmox_list_clusters", handleListClusters, sc))

	validateTool := mcp.NewTool("proxmox_validate_clusters",
		mcp.WithDescription("Probe every configured cluster concurrently and report reachability per cluster."),
	)
	s.AddTool(validateTool, tools.WrapWithObservability("proxmox_validate_clusters", handleValidateClusters, sc))

	allNodesTool := mcp.NewTool("proxmox_list_all_nodes",
		mcp.WithDescription("List nodes across all configured clusters. Unreachable clusters are reported per cluster without failing the call."),
	)
	s.AddTool(allNodesTool, tools.WrapWithObservability("proxmox_list_all_nodes", handleListAllNodes, sc))

	return nil
}
