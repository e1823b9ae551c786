package lxc

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/proxworks/mcp-proxmox/internal/proxmox"
	"github.com/proxworks/mcp-proxmox/internal/server"
	"github.com/proxworks/mcp-proxmox/internal/tools"
)

func handleListContainers(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	cluster := tools.GetStringArg(request, "cluster")

	client, _, err := tools.ResolveClient(ctx, sc, cluster, "")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to resolve cluster: %s", tools.UserFacingMessage(err))), nil
	}

	guests, err := client.ListGuests(ctx, proxmox.GuestKindContainer, proxmox.GuestFilter{
		Node:   tools.GetStringArg(request, "node"),
		Status: tools.GetStringArg(request, "status"),
		Search: tools.GetStringArg(request, "search"),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list containers: %s", tools.UserFacingMessage(err))), nil
	}
	return tools.JSONResult(guests)
}

// containerDetails combines a container's placement entry with its configuration.
type containerDetails struct {
	Guest  *proxmox.Guest `json:"guest"`
	Config map[string]any `json:"config"`
}

func handleContainerInfo(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
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

	guest, err := client.ResolveGuest(ctx, proxmox.GuestKindContainer, proxmox.GuestSelector{
		VMID: vmid,
		Name: name,
		Node: tools.GetStringArg(request, "node"),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to find container: %s", tools.UserFacingMessage(err))), nil
	}

	config, err := client.GuestConfig(ctx, proxmox.GuestKindContainer, guest.Node, guest.VMID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to read container config: %s", tools.UserFacingMessage(err))), nil
	}

	return tools.JSONResult(containerDetails{Guest: guest, Config: config})
}
