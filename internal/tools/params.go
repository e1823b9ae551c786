package tools

import (
	"fmt"
	"strings"

	mcp "github.com/mark3labs/mcp-go/mcp"

	"github.com/proxworks/mcp-proxmox/internal/server"
)

// ClusterParam returns the tool option for the optional cluster selector.
// The description names the configured clusters so callers can pick one
// without an extra listing round-trip.
//
// Usage in tool registration:
//
//	opts := []mcp.ToolOption{
//	    mcp.WithDescription("..."),
//	    tools.ClusterParam(sc),
//	}
//	tool := mcp.NewTool("tool_name", opts...)
func ClusterParam(sc *server.ServerContext) mcp.ToolOption {
	names := sc.Registry().ClusterNames()
	return mcp.WithString("cluster",
		mcp.Description(fmt.Sprintf(
			"Target cluster name (optional, default %q; configured: %s)",
			sc.Registry().DefaultCluster(), strings.Join(names, ", "))),
	)
}

// NodeParam returns the tool option for an optional node filter.
func NodeParam() mcp.ToolOption {
	return mcp.WithString("node",
		mcp.Description("Node name (optional, narrows the operation to one node)"),
	)
}

// ConfirmParam returns the tool option for the destructive-operation gate.
func ConfirmParam() mcp.ToolOption {
	return mcp.WithBoolean("confirm",
		mcp.Description("Must be true to execute this state-changing operation"),
	)
}
