// Package middleware provides HTTP middleware for the MCP server's
// HTTP-based transports.
package middleware
