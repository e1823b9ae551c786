package registry

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common registry failure scenarios.
// These errors can be checked using errors.Is() for programmatic handling.
var (
	// ErrUnknownCluster indicates that an explicit cluster selector names
	// a cluster absent from the registry. It is returned to the caller and
	// never falls through to route or default selection.
	ErrUnknownCluster = errors.New("unknown cluster")

	// ErrAmbiguousRoute indicates that the route table matched a resource
	// name with rules targeting different clusters. The ambiguity is
	// surfaced rather than guessed; callers disambiguate with an explicit
	// selector.
	ErrAmbiguousRoute = errors.New("ambiguous cluster route")

	// ErrConnectionFailed indicates the client factory could not build or
	// refresh a handle for a cluster. Callers may retry; the registry
	// itself performs no retry or backoff.
	ErrConnectionFailed = errors.New("failed to connect to cluster")

	// ErrInvalidConfig indicates the registry configuration is structurally
	// invalid (duplicate names, dangling route target, missing default).
	// This is fatal at construction; no partially-usable registry is ever
	// returned.
	ErrInvalidConfig = errors.New("invalid registry configuration")

	// ErrRegistryClosed indicates the registry has been closed and can no
	// longer serve handles.
	ErrRegistryClosed = errors.New("cluster registry is closed")
)

// userFacingClusterError is the standardized message returned to tool
// callers for cluster access failures. Using a single message prevents
// error response differentiation from leaking cluster topology.
const userFacingClusterError = "cluster unavailable or not configured"

// UnknownClusterError provides context about an explicit selector that
// names no configured cluster.
type UnknownClusterError struct {
	Name string
}

// Error implements the error interface.
func (e *UnknownClusterError) Error() string {
	return fmt.Sprintf("cluster %q is not configured", e.Name)
}

// Is implements custom error matching for errors.Is().
func (e *UnknownClusterError) Is(target error) bool {
	return target == ErrUnknownCluster
}

// UserFacingError returns a sanitized message safe for tool output.
func (e *UnknownClusterError) UserFacingError() string {
	return fmt.Sprintf("cluster %q is not configured - use the cluster listing tool to see available clusters", e.Name)
}

// AmbiguousRouteError reports that a resource name matched route rules with
// conflicting targets. Targets preserves rule declaration order with
// duplicates removed, so the error message is deterministic.
type AmbiguousRouteError struct {
	Resource string
	Targets  []string
}

// Error implements the error interface.
func (e *AmbiguousRouteError) Error() string {
	return fmt.Sprintf("resource %q matches route rules for multiple clusters: %s",
		e.Resource, strings.Join(e.Targets, ", "))
}

// Is implements custom error matching for errors.Is().
func (e *AmbiguousRouteError) Is(target error) bool {
	return target == ErrAmbiguousRoute
}

// UserFacingError returns a message asking the caller to disambiguate.
func (e *AmbiguousRouteError) UserFacingError() string {
	return fmt.Sprintf("resource %q could route to any of: %s - pass an explicit cluster to disambiguate",
		e.Resource, strings.Join(e.Targets, ", "))
}

// ConnectionError provides context about a handle build failure for one
// cluster.
type ConnectionError struct {
	Cluster string
	Host    string
	Err     error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	if e.Host != "" {
		return fmt.Sprintf("connection to cluster %q (%s) failed: %v", e.Cluster, e.Host, e.Err)
	}
	return fmt.Sprintf("connection to cluster %q failed: %v", e.Cluster, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is() and errors.As().
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Is implements custom error matching for errors.Is().
func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnectionFailed
}

// UserFacingError returns a sanitized message that does not leak host URLs.
func (e *ConnectionError) UserFacingError() string {
	return userFacingClusterError
}

// ConfigError reports a structural configuration violation found during
// registry construction.
type ConfigError struct {
	Reason string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "invalid registry configuration: " + e.Reason
}

// Is implements custom error matching for errors.Is().
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}
