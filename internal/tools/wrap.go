package tools

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/proxworks/mcp-proxmox/internal/instrumentation"
	"github.com/proxworks/mcp-proxmox/internal/logging"
	"github.com/proxworks/mcp-proxmox/internal/server"
)

// WrapWithObservability wraps a tool handler with structured logging and
// tool-call metrics. Every registered tool goes through this wrapper so
// invocation timing and outcome are recorded uniformly.
func WrapWithObservability(
	toolName string,
	handler ToolHandler,
	sc *server.ServerContext,
) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		logger := logging.WithTool(sc.Logger(), toolName)

		result, err := handler(ctx, request, sc)

		status := instrumentation.StatusSuccess
		if err != nil || (result != nil && result.IsError) {
			status = instrumentation.StatusError
		}

		// The cluster argument may be empty; the handler resolved the real
		// target, but for metrics the requested selector is what bounds
		// cardinality.
		cluster := GetStringArg(request, "cluster")
		duration := time.Since(start)

		sc.Metrics().RecordToolCall(ctx, toolName, cluster, status, duration)

		if err != nil {
			logger.ErrorContext(ctx, "tool call failed",
				logging.SanitizedErr(err),
				logging.Duration(duration))
		} else {
			logger.DebugContext(ctx, "tool call finished",
				logging.Status(status),
				logging.Duration(duration))
		}

		return result, err
	}
}
