package vm

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/proxworks/mcp-proxmox/internal/proxmox"
	"github.com/proxworks/mcp-proxmox/internal/server"
	"github.com/proxworks/mcp-proxmox/internal/tools"
)

func handleListVMs(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	cluster := tools.GetStringArg(request, "cluster")

	client, _, err := tools.ResolveClient(ctx, sc, cluster, "")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to resolve cluster: %s", tools.UserFacingMessage(err))), nil
	}

	guests, err := client.ListGuests(ctx, proxmox.GuestKindVM, proxmox.GuestFilter{
		Node:   tools.GetStringArg(request, "node"),
		Status: tools.GetStringArg(request, "status"),
		Search: tools.GetStringArg(request, "search"),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list VMs: %s", tools.UserFacingMessage(err))), nil
	}
	return tools.JSONResult(guests)
}

// vmDetails combines a guest's placement entry with its configuration.
type vmDetails struct {
	Guest  *proxmox.Guest `json:"guest"`
	Config map[string]any `json:"config"`
}

func handleVMInfo(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	cluster := tools.GetStringArg(request, "cluster")
	name := tools.GetStringArg(request, "name")
	vmid := tools.GetIntArg(request, "vmid")
	if name == "" && vmid == 0 {
		return mcp.NewToolResultError("either vmid or name is required"), nil
	}

	client, _, err := tools.ResolveClient(ctx, sc, cluster, name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to resolve cluster: %s", tools.UserFacingMessage(err))), nil
	}

	guest, err := client.ResolveGuest(ctx, proxmox.GuestKindVM, proxmox.GuestSelector{
		VMID: vmid,
		Name: name,
		Node: tools.GetStringArg(request, "node"),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to find VM: %s", tools.UserFacingMessage(err))), nil
	}

	config, err := client.GuestConfig(ctx, proxmox.GuestKindVM, guest.Node, guest.VMID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to read VM config: %s", tools.UserFacingMessage(err))), nil
	}

	return tools.JSONResult(vmDetails{Guest: guest, Config: config})
}

// lifecycleOp describes one state-changing VM operation.
type lifecycleOp struct {
	toolName    string
	description string
	verb        string
	invoke      func(ctx context.Context, client proxmox.Client, node string, vmid int) (proxmox.UPID, error)
}

var lifecycleOps = []lifecycleOp{
	{
		toolName:    "proxmox_start_vm",
		description: "Start a virtual machine. Returns the task UPID.",
		verb:        "start",
		invoke: func(ctx context.Context, client proxmox.Client, node string, vmid int) (proxmox.UPID, error) {
			return client.StartGuest(ctx, proxmox.GuestKindVM, node, vmid)
		},
	},
	{
		toolName:    "proxmox_stop_vm",
		description: "Stop a virtual machine immediately (hard stop). Requires confirm:true. Returns the task UPID.",
		verb:        "stop",
		invoke: func(ctx context.Context, client proxmox.Client, node string, vmid int) (proxmox.UPID, error) {
			return client.StopGuest(ctx, proxmox.GuestKindVM, node, vmid)
		},
	},
	{
		toolName:    "proxmox_shutdown_vm",
		description: "Shut down a virtual machine gracefully via the guest OS. Requires confirm:true. Returns the task UPID.",
		verb:        "shutdown",
		invoke: func(ctx context.Context, client proxmox.Client, node string, vmid int) (proxmox.UPID, error) {
			return client.ShutdownGuest(ctx, proxmox.GuestKindVM, node, vmid)
		},
	},
	{
		toolName:    "proxmox_reboot_vm",
		description: "Reboot a virtual machine. Requires confirm:true. Returns the task UPID.",
		verb:        "reboot",
		invoke: func(ctx context.Context, client proxmox.Client, node string, vmid int) (proxmox.UPID, error) {
			return client.RebootGuest(ctx, proxmox.GuestKindVM, node, vmid)
		},
	},
}

// lifecycleResult reports the started task for a state-changing operation.
type lifecycleResult struct {
	Cluster   string       `json:"cluster"`
	Node      string       `json:"node"`
	VMID      int          `json:"vmid"`
	Operation string       `json:"operation"`
	UPID      proxmox.UPID `json:"upid"`
}

// newLifecycleHandler builds the handler for one lifecycle operation. All
// operations except start are gated behind confirm:true when the server is
// configured to require confirmation.
func newLifecycleHandler(op lifecycleOp) tools.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
		cluster := tools.GetStringArg(request, "cluster")
		name := tools.GetStringArg(request, "name")
		vmid := tools.GetIntArg(request, "vmid")
		if name == "" && vmid == 0 {
			return mcp.NewToolResultError("either vmid or name is required"), nil
		}

		if op.verb != "start" && sc.Config().RequireConfirmation && !tools.GetBoolArg(request, "confirm") {
			return mcp.NewToolResultError(fmt.Sprintf(
				"%s is a state-changing operation - pass confirm:true to execute it", op.toolName)), nil
		}

		client, resolved, err := tools.ResolveClient(ctx, sc, cluster, name)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to resolve cluster: %s", tools.UserFacingMessage(err))), nil
		}

		guest, err := client.ResolveGuest(ctx, proxmox.GuestKindVM, proxmox.GuestSelector{
			VMID: vmid,
			Name: name,
			Node: tools.GetStringArg(request, "node"),
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to find VM: %s", tools.UserFacingMessage(err))), nil
		}

		upid, err := op.invoke(ctx, client, guest.Node, guest.VMID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to %s VM %d: %s", op.verb, guest.VMID, tools.UserFacingMessage(err))), nil
		}

		return tools.JSONResult(lifecycleResult{
			Cluster:   resolved,
			Node:      guest.Node,
			VMID:      guest.VMID,
			Operation: op.verb,
			UPID:      upid,
		})
	}
}
