package registry

import "fmt"

// ClusterConfig describes how to reach a single Proxmox VE cluster and which
// scheduling defaults apply to it. TokenSecret is held for client
// construction only and is never included in summaries or log output.
type ClusterConfig struct {
	// Name is the stable identifier callers use to address this cluster.
	Name string

	// APIURL is the base URL of the cluster API, e.g.
	// "https://pve.example.com:8006".
	APIURL string

	// TokenID is the API token identifier in user@realm!tokenname form.
	TokenID string

	// TokenSecret is the API token secret.
	TokenSecret string

	// VerifyTLS controls certificate verification for the cluster API.
	VerifyTLS bool

	// Defaults carries per-cluster fallback values such as "node",
	// "storage" or "bridge" that tools apply when a call omits them.
	Defaults map[string]string

	// Tags are free-form labels surfaced in cluster listings, e.g.
	// environment or region markers.
	Tags map[string]string
}

// Validate checks the fields required to build a client for this cluster.
func (c ClusterConfig) Validate() error {
	if c.Name == "" {
		return &ConfigError{Reason: "cluster name must not be empty"}
	}
	if c.APIURL == "" {
		return &ConfigError{Reason: fmt.Sprintf("cluster %q: api_url must not be empty", c.Name)}
	}
	if c.TokenID == "" {
		return &ConfigError{Reason: fmt.Sprintf("cluster %q: token_id must not be empty", c.Name)}
	}
	if c.TokenSecret == "" {
		return &ConfigError{Reason: fmt.Sprintf("cluster %q: token_secret must not be empty", c.Name)}
	}
	return nil
}

// Summary returns the caller-visible view of this cluster. Credentials and
// connection details are deliberately excluded.
func (c ClusterConfig) Summary() ClusterSummary {
	return ClusterSummary{Name: c.Name, Tags: c.Tags}
}

// ClusterSummary is the redacted cluster descriptor returned by listings.
type ClusterSummary struct {
	Name      string            `json:"name"`
	Tags      map[string]string `json:"tags,omitempty"`
	IsDefault bool              `json:"is_default,omitempty"`
}

// RouteRule maps resource names containing Pattern to the cluster named
// Target. Matching is case-sensitive substring containment; rules are
// evaluated in declaration order.
type RouteRule struct {
	Pattern string
	Target  string
}

// Config is the full registry configuration: the cluster inventory, the
// ordered route table, and the fallback cluster.
type Config struct {
	Clusters       []ClusterConfig
	Routes         []RouteRule
	DefaultCluster string
}
