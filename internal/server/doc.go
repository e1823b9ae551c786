// Package server provides the dependency container, health endpoints, and
// metrics listener shared by all MCP transports.
package server
