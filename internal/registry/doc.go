// Package registry maps tool calls onto a fleet of Proxmox VE clusters.
//
// A Registry is built once from an immutable Config: the cluster
// inventory, an ordered route table, and a default cluster. At call time
// Resolve picks the target cluster with a fixed priority chain (explicit
// selector, then route table, then default) and returns a live client
// from a TTL handle cache. Handle builds run outside the registry locks
// and are deduplicated per cluster with singleflight; failed builds are
// never cached.
package registry
