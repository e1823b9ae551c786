// Package proxmox provides a thin client for the Proxmox VE REST API.
//
// The client authenticates with a static API token (PVEAPIToken header) and
// covers the subset of the API the MCP tools need: node discovery, guest
// (QEMU VM and LXC container) listing and lifecycle, storage discovery, and
// asynchronous task tracking.
//
// A Client instance is bound to exactly one cluster endpoint. Multi-cluster
// routing and client caching live in the registry package; handlers obtain
// clients through registry.Registry.Resolve and never construct them
// directly.
//
// Lifecycle operations (start, stop, shutdown, reboot) are asynchronous on
// the Proxmox side and return a UPID. Callers that need completion use
// TaskManager.WaitTask with an explicit timeout.
package proxmox
