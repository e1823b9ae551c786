package proxmox

import (
	"context"
	"time"
)

// Client defines the interface for Proxmox VE API operations used by the
// MCP tool handlers. A Client is always bound to exactly one cluster; the
// registry decides which cluster's client services a request.
type Client interface {
	// Discovery operations
	NodeManager

	// Guest (VM and container) operations
	GuestManager

	// Storage operations
	StorageManager

	// Task operations
	TaskManager

	// Host returns the API host this client is bound to, for logging and
	// health reporting. The returned value never contains credentials.
	Host() string

	// Defaults returns the per-cluster soft defaults (node, storage,
	// bridge) configured for this cluster. The values are passed through
	// from configuration untouched and may be empty.
	Defaults() map[string]string
}

// NodeManager handles node discovery and status operations.
type NodeManager interface {
	// Version returns the API version of the cluster endpoint. It doubles
	// as the cheapest reachability probe.
	Version(ctx context.Context) (*Version, error)

	// ListNodes returns all nodes in the cluster.
	ListNodes(ctx context.Context) ([]Node, error)

	// NodeStatus returns detailed status for a single node.
	NodeStatus(ctx context.Context, node string) (map[string]any, error)
}

// GuestManager handles QEMU VM and LXC container operations.
type GuestManager interface {
	// ListGuests returns cluster guest resources of the given kind,
	// optionally filtered by node, status, and a case-insensitive name
	// substring search.
	ListGuests(ctx context.Context, kind GuestKind, filter GuestFilter) ([]Guest, error)

	// ResolveGuest finds exactly one guest by vmid or name. When a name
	// matches guests on multiple nodes, the node filter must disambiguate.
	ResolveGuest(ctx context.Context, kind GuestKind, sel GuestSelector) (*Guest, error)

	// GuestConfig returns the raw configuration of a guest.
	GuestConfig(ctx context.Context, kind GuestKind, node string, vmid int) (map[string]any, error)

	// Lifecycle operations return the UPID of the asynchronous task the
	// cluster started.
	StartGuest(ctx context.Context, kind GuestKind, node string, vmid int) (UPID, error)
	StopGuest(ctx context.Context, kind GuestKind, node string, vmid int) (UPID, error)
	ShutdownGuest(ctx context.Context, kind GuestKind, node string, vmid int) (UPID, error)
	RebootGuest(ctx context.Context, kind GuestKind, node string, vmid int) (UPID, error)
}

// StorageManager handles storage discovery operations.
type StorageManager interface {
	// ListStorage returns the storage pools defined on the cluster.
	ListStorage(ctx context.Context) ([]Storage, error)

	// StorageStatus returns usage details for one storage pool on a node.
	StorageStatus(ctx context.Context, node, storage string) (map[string]any, error)
}

// TaskManager handles asynchronous task tracking.
type TaskManager interface {
	// TaskStatus returns the current status of a task.
	TaskStatus(ctx context.Context, node string, upid UPID) (*TaskStatus, error)

	// WaitTask polls a task until it leaves the running state or the
	// timeout elapses. The caller owns the retry/wait policy; this is the
	// only place the client loops.
	WaitTask(ctx context.Context, node string, upid UPID, timeout time.Duration) (*TaskStatus, error)
}
