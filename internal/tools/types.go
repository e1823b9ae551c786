// Package tools provides shared utilities and types for MCP tool implementations.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/proxworks/mcp-proxmox/internal/proxmox"
	"github.com/proxworks/mcp-proxmox/internal/server"
)

// ToolHandler is the signature for MCP tool handler functions that take ServerContext.
type ToolHandler func(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error)

// userFacer is implemented by errors that carry a sanitized message safe
// for tool output.
type userFacer interface {
	UserFacingError() string
}

// UserFacingMessage returns the sanitized form of err when it provides
// one, and the plain error text otherwise.
func UserFacingMessage(err error) string {
	if err == nil {
		return ""
	}
	var uf userFacer
	if errors.As(err, &uf) {
		return uf.UserFacingError()
	}
	return err.Error()
}

// ResolveClient picks the target cluster for a tool call and returns a
// live client for it, together with the resolved cluster name for logging
// and metrics. explicit comes from the tool's cluster argument; resource
// is the guest name (if any) used for route-table matching.
func ResolveClient(ctx context.Context, sc *server.ServerContext, explicit, resource string) (proxmox.Client, string, error) {
	name, err := sc.Registry().ResolveName(explicit, resource)
	if err != nil {
		return nil, "", err
	}
	client, err := sc.Registry().Resolve(ctx, explicit, resource)
	if err != nil {
		return nil, name, err
	}
	return client, name, nil
}

// JSONResult marshals v and wraps it as a text tool result.
func JSONResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// GetStringArg extracts a string argument, returning "" when absent.
func GetStringArg(request mcp.CallToolRequest, key string) string {
	value, _ := request.GetArguments()[key].(string)
	return value
}

// GetIntArg extracts an integer argument. JSON numbers arrive as float64.
func GetIntArg(request mcp.CallToolRequest, key string) int {
	if value, ok := request.GetArguments()[key].(float64); ok {
		return int(value)
	}
	return 0
}

// GetBoolArg extracts a boolean argument, returning false when absent.
func GetBoolArg(request mcp.CallToolRequest, key string) bool {
	value, _ := request.GetArguments()[key].(bool)
	return value
}
