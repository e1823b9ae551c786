package cluster

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proxworks/mcp-proxmox/internal/proxmox"
	"github.com/proxworks/mcp-proxmox/internal/registry"
	"github.com/proxworks/mcp-proxmox/internal/server"
)

// fakeClient overrides the discovery calls these handlers use.
type fakeClient struct {
	proxmox.Client

	version *proxmox.Version
	nodes   []proxmox.Node
	listErr error
}

func (f *fakeClient) Version(ctx context.Context) (*proxmox.Version, error) {
	return f.version, nil
}

func (f *fakeClient) ListNodes(ctx context.Context) ([]proxmox.Node, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.nodes, nil
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	textContent, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected TextContent in result, got %T", result.Content[0])
	return textContent.Text
}

// newTestServerContext builds a two-cluster registry whose factory serves
// per-cluster clients (or errors) from the given maps.
func newTestServerContext(t *testing.T, clients map[string]proxmox.Client, buildErrs map[string]error) *server.ServerContext {
	t.Helper()

	factory := registry.ClientFactoryFunc(func(ctx context.Context, cfg registry.ClusterConfig) (proxmox.Client, error) {
		if err := buildErrs[cfg.Name]; err != nil {
			return nil, err
		}
		return clients[cfg.Name], nil
	})

	reg, err := registry.New(registry.Config{
		Clusters: []registry.ClusterConfig{
			{
				Name:        "prod",
				APIURL:      "https://pve-prod.example.com:8006",
				TokenID:     "ops@pam!mcp",
				TokenSecret: "prod-secret-value",
				Tags:        map[string]string{"env": "production"},
			},
			{
				Name:        "lab",
				APIURL:      "https://pve-lab.example.com:8006",
				TokenID:     "ops@pam!mcp",
				TokenSecret: "lab-secret-value",
			},
		},
		DefaultCluster: "lab",
	}, factory)
	require.NoError(t, err)

	sc, err := server.NewServerContext(context.Background(),
		server.WithRegistry(reg),
		server.WithLogger(slog.Default()),
		server.WithConfig(server.NewDefaultConfig()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })

	return sc
}

func TestListClustersExcludesCredentials(t *testing.T) {
	ctx := context.Background()
	sc := newTestServerContext(t, nil, nil)

	result, err := handleListClusters(ctx, mcp.CallToolRequest{}, sc)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, `"name": "prod"`)
	assert.Contains(t, text, `"name": "lab"`)
	assert.Contains(t, text, `"is_default": true`)
	assert.Contains(t, text, `"env": "production"`)

	assert.NotContains(t, text, "prod-secret-value")
	assert.NotContains(t, text, "lab-secret-value")
	assert.NotContains(t, text, "ops@pam!mcp")
	assert.NotContains(t, text, "pve-prod.example.com")
}

func TestValidateClustersReportsPerClusterResults(t *testing.T) {
	ctx := context.Background()
	sc := newTestServerContext(t,
		map[string]proxmox.Client{
			"prod": &fakeClient{version: &proxmox.Version{Version: "8.2.4", Release: "8.2"}},
		},
		map[string]error{
			"lab": errors.New("connection refused"),
		})

	result, err := handleValidateClusters(ctx, mcp.CallToolRequest{}, sc)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "Proxmox VE 8.2")
	assert.Contains(t, text, `"ok": true`)
	assert.Contains(t, text, `"ok": false`)
	// The probe is an operator diagnostic, so the failure detail is kept.
	assert.Contains(t, text, `connection to cluster \"lab\" failed`)
}

func TestListAllNodesIsolatesClusterFailures(t *testing.T) {
	ctx := context.Background()
	sc := newTestServerContext(t,
		map[string]proxmox.Client{
			"prod": &fakeClient{nodes: []proxmox.Node{{Node: "pve1", Status: "online"}}},
		},
		map[string]error{
			"lab": errors.New("connection refused"),
		})

	result, err := handleListAllNodes(ctx, mcp.CallToolRequest{}, sc)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, `"cluster": "prod"`)
	assert.Contains(t, text, `"node": "pve1"`)
	assert.Contains(t, text, `"cluster": "lab"`)
	assert.Contains(t, text, `"error"`)
}
