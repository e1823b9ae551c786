package vm

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/proxworks/mcp-proxmox/internal/server"
	"github.com/proxworks/mcp-proxmox/internal/tools"
)

// RegisterVMTools registers QEMU virtual machine tools with the MCP server.
func RegisterVMTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	listTool := mcp.NewTool("proxmox_list_vms",
		mcp.WithDescription("List QEMU virtual machines on a cluster, optionally filtered by node, status, or a name substring."),
		tools.ClusterParam(sc),
		tools.NodeParam(),
		mcp.WithString("status",
			mcp.Description("Filter by status: running, stopped (optional)"),
		),
		mcp.WithString("search",
			mcp.Description("Case-insensitive substring match on VM names (optional)"),
		),
	)
	s.AddTool(listTool, tools.WrapWithObservability("proxmox_list_vms", handleListVMs, sc))

	infoTool := mcp.NewTool("proxmox_vm_info",
		mcp.WithDescription("Show a virtual machine's placement, resource usage, and configuration. Identify the VM by vmid or name."),
		tools.ClusterParam(sc),
		tools.NodeParam(),
		mcp.WithNumber("vmid",
			mcp.Description("VM ID (optional when name is given)"),
		),
		mcp.WithString("name",
			mcp.Description("VM name (optional when vmid is given; also drives route-based cluster selection)"),
		),
	)
	s.AddTool(infoTool, tools.WrapWithObservability("proxmox_vm_info", handleVMInfo, sc))

	for _, op := range lifecycleOps {
		tool := mcp.NewTool(op.toolName,
			mcp.WithDescription(op.description),
			tools.ClusterParam(sc),
			tools.NodeParam(),
			mcp.WithNumber("vmid",
				mcp.Description("VM ID (optional when name is given)"),
			),
			mcp.WithString("name",
				mcp.Description("VM name (optional when vmid is given)"),
			),
			tools.ConfirmParam(),
		)
		s.AddTool(tool, tools.WrapWithObservability(op.toolName, newLifecycleHandler(op), sc))
	}

	return nil
}
