// Package logging provides structured logging utilities for the mcp-proxmox
// application.
//
// This package centralizes logging patterns to ensure consistent, structured
// logging throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Structured logging with slog
//   - API token masking (secrets are never logged directly)
//   - Host/URL sanitization for security
//   - Consistent attribute naming across the codebase
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithCluster(slog.Default(), "prod")
//	logger.Info("starting VM",
//	    logging.Node("pve1"),
//	    logging.VMID(104))
//
// Sanitize sensitive data before logging:
//
//	logger.Info("cluster configured",
//	    logging.Host(cfg.APIURL))
//
// # Security Considerations
//
//   - Proxmox API URLs have IP addresses redacted to prevent topology leakage
//   - Token secrets are never logged; SanitizeToken reports length only
package logging
