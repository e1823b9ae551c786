package vm

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proxworks/mcp-proxmox/internal/proxmox"
	"github.com/proxworks/mcp-proxmox/internal/registry"
	"github.com/proxworks/mcp-proxmox/internal/server"
)

// fakeClient overrides only the guest operations lifecycle handlers touch.
// Calls to anything else panic via the nil embedded interface.
type fakeClient struct {
	proxmox.Client

	guest       *proxmox.Guest
	lastVerb    string
	returnedUPI proxmox.UPID
}

func (f *fakeClient) ResolveGuest(ctx context.Context, kind proxmox.GuestKind, sel proxmox.GuestSelector) (*proxmox.Guest, error) {
	return f.guest, nil
}

func (f *fakeClient) StartGuest(ctx context.Context, kind proxmox.GuestKind, node string, vmid int) (proxmox.UPID, error) {
	f.lastVerb = "start"
	return f.returnedUPI, nil
}

func (f *fakeClient) StopGuest(ctx context.Context, kind proxmox.GuestKind, node string, vmid int) (proxmox.UPID, error) {
	f.lastVerb = "stop"
	return f.returnedUPI, nil
}

// getErrorText safely extracts the text payload from an MCP result.
func getErrorText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	textContent, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected TextContent in result, got %T", result.Content[0])
	return textContent.Text
}

// newTestServerContext wires a single-cluster registry whose factory hands
// out the given client, counting how many times it is invoked.
func newTestServerContext(t *testing.T, requireConfirm bool, client proxmox.Client, builds *atomic.Int32) *server.ServerContext {
	t.Helper()

	factory := registry.ClientFactoryFunc(func(ctx context.Context, cfg registry.ClusterConfig) (proxmox.Client, error) {
		if builds != nil {
			builds.Add(1)
		}
		return client, nil
	})

	reg, err := registry.New(registry.Config{
		Clusters: []registry.ClusterConfig{{
			Name:        "prod",
			APIURL:      "https://pve.example.com:8006",
			TokenID:     "ops@pam!mcp",
			TokenSecret: "secret",
		}},
	}, factory)
	require.NoError(t, err)

	config := server.NewDefaultConfig()
	config.RequireConfirmation = requireConfirm

	sc, err := server.NewServerContext(context.Background(),
		server.WithRegistry(reg),
		server.WithLogger(slog.Default()),
		server.WithConfig(config),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })

	return sc
}

func TestLifecycleOperationsRequireConfirmation(t *testing.T) {
	ctx := context.Background()
	var builds atomic.Int32
	sc := newTestServerContext(t, true, &fakeClient{}, &builds)

	for _, op := range lifecycleOps {
		if op.verb == "start" {
			continue
		}
		t.Run(op.toolName, func(t *testing.T) {
			request := mcp.CallToolRequest{}
			request.Params.Arguments = map[string]interface{}{
				"vmid": float64(100),
			}

			result, err := newLifecycleHandler(op)(ctx, request, sc)
			require.NoError(t, err)
			assert.True(t, result.IsError, "expected error result without confirm")
			assert.Contains(t, getErrorText(t, result), "confirm:true")
		})
	}

	// The gate fires before any cluster connection is made.
	assert.Equal(t, int32(0), builds.Load())
}

func TestStartDoesNotRequireConfirmation(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{
		guest:       &proxmox.Guest{VMID: 100, Name: "web-01", Node: "pve1"},
		returnedUPI: "UPID:pve1:0001:qmstart:100:root@pam:",
	}
	sc := newTestServerContext(t, true, client, nil)

	request := mcp.CallToolRequest{}
	request.Params.Arguments = map[string]interface{}{
		"vmid": float64(100),
	}

	var startOp lifecycleOp
	for _, op := range lifecycleOps {
		if op.verb == "start" {
			startOp = op
		}
	}

	result, err := newLifecycleHandler(startOp)(ctx, request, sc)
	require.NoError(t, err)
	assert.False(t, result.IsError, "start should not be gated: %s", getErrorText(t, result))
	assert.Equal(t, "start", client.lastVerb)
	assert.Contains(t, getErrorText(t, result), "UPID:pve1:0001:qmstart:100:root@pam:")
	assert.Contains(t, getErrorText(t, result), `"cluster": "prod"`)
}

func TestConfirmedStopExecutes(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{
		guest:       &proxmox.Guest{VMID: 100, Name: "web-01", Node: "pve1"},
		returnedUPI: "UPID:pve1:0002:qmstop:100:root@pam:",
	}
	sc := newTestServerContext(t, true, client, nil)

	request := mcp.CallToolRequest{}
	request.Params.Arguments = map[string]interface{}{
		"vmid":    float64(100),
		"confirm": true,
	}

	var stopOp lifecycleOp
	for _, op := range lifecycleOps {
		if op.verb == "stop" {
			stopOp = op
		}
	}

	result, err := newLifecycleHandler(stopOp)(ctx, request, sc)
	require.NoError(t, err)
	assert.False(t, result.IsError, "confirmed stop should execute: %s", getErrorText(t, result))
	assert.Equal(t, "stop", client.lastVerb)
}

func TestConfirmationGateDisabled(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{
		guest:       &proxmox.Guest{VMID: 100, Name: "web-01", Node: "pve1"},
		returnedUPI: "UPID:pve1:0003:qmstop:100:root@pam:",
	}
	sc := newTestServerContext(t, false, client, nil)

	request := mcp.CallToolRequest{}
	request.Params.Arguments = map[string]interface{}{
		"vmid": float64(100),
	}

	var stopOp lifecycleOp
	for _, op := range lifecycleOps {
		if op.verb == "stop" {
			stopOp = op
		}
	}

	result, err := newLifecycleHandler(stopOp)(ctx, request, sc)
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "stop", client.lastVerb)
}

func TestLifecycleRequiresIdentifier(t *testing.T) {
	ctx := context.Background()
	sc := newTestServerContext(t, true, &fakeClient{}, nil)

	for _, op := range lifecycleOps {
		t.Run(op.toolName, func(t *testing.T) {
			request := mcp.CallToolRequest{}
			request.Params.Arguments = map[string]interface{}{}

			result, err := newLifecycleHandler(op)(ctx, request, sc)
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, getErrorText(t, result), "either vmid or name is required")
		})
	}
}

func TestVMInfoRequiresIdentifier(t *testing.T) {
	ctx := context.Background()
	sc := newTestServerContext(t, true, &fakeClient{}, nil)

	request := mcp.CallToolRequest{}
	request.Params.Arguments = map[string]interface{}{}

	result, err := handleVMInfo(ctx, request, sc)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, getErrorText(t, result), "either vmid or name is required")
}
