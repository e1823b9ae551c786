package config

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/proxworks/mcp-proxmox/internal/registry"
)

// Environment variables understood by the loader.
const (
	// EnvClustersFile points at a YAML cluster inventory file.
	EnvClustersFile = "PROXMOX_CLUSTERS_FILE"

	// Single-cluster fallback variables, used when no inventory file is
	// given. They describe exactly one cluster which becomes the default.
	EnvAPIURL      = "PROXMOX_API_URL"
	EnvTokenID     = "PROXMOX_TOKEN_ID"
	EnvTokenSecret = "PROXMOX_TOKEN_SECRET"
	EnvVerifyTLS   = "PROXMOX_VERIFY"
	EnvClusterName = "PROXMOX_CLUSTER_NAME"
)

// defaultClusterName names the implicit cluster in single-cluster
// environment configurations.
const defaultClusterName = "proxmox"

// fileClusterConfig is the YAML shape of one cluster entry.
type fileClusterConfig struct {
	Name        string            `yaml:"name"`
	APIURL      string            `yaml:"api_url"`
	TokenID     string            `yaml:"token_id"`
	TokenSecret string            `yaml:"token_secret"`
	VerifyTLS   *bool             `yaml:"verify_tls"`
	Defaults    map[string]string `yaml:"defaults"`
	Tags        map[string]string `yaml:"tags"`
}

// fileRouteRule is the YAML shape of one route table entry.
type fileRouteRule struct {
	Pattern string `yaml:"pattern"`
	Target  string `yaml:"target"`
}

// fileConfig is the YAML shape of the cluster inventory file.
type fileConfig struct {
	DefaultCluster string              `yaml:"default_cluster"`
	Clusters       []fileClusterConfig `yaml:"clusters"`
	Routes         []fileRouteRule     `yaml:"routes"`
}

// Load builds the registry configuration. When path is non-empty it names
// the inventory file; otherwise the PROXMOX_CLUSTERS_FILE environment
// variable is consulted, and failing that a single cluster is assembled
// from the PROXMOX_API_URL family of variables.
func Load(path string) (registry.Config, error) {
	if path == "" {
		path = os.Getenv(EnvClustersFile)
	}
	if path != "" {
		return loadFile(path)
	}
	return loadEnv()
}

// loadFile parses a YAML cluster inventory file.
func loadFile(path string) (registry.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return registry.Config{}, fmt.Errorf("reading cluster config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML cluster inventory document.
func Parse(data []byte) (registry.Config, error) {
	var fc fileConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&fc); err != nil {
		return registry.Config{}, fmt.Errorf("parsing cluster config: %w", err)
	}

	cfg := registry.Config{DefaultCluster: fc.DefaultCluster}
	for _, fcc := range fc.Clusters {
		// TLS verification defaults to on; disabling it must be explicit.
		verify := true
		if fcc.VerifyTLS != nil {
			verify = *fcc.VerifyTLS
		}
		cfg.Clusters = append(cfg.Clusters, registry.ClusterConfig{
			Name:        fcc.Name,
			APIURL:      fcc.APIURL,
			TokenID:     fcc.TokenID,
			TokenSecret: fcc.TokenSecret,
			VerifyTLS:   verify,
			Defaults:    fcc.Defaults,
			Tags:        fcc.Tags,
		})
	}
	for _, fr := range fc.Routes {
		cfg.Routes = append(cfg.Routes, registry.RouteRule{Pattern: fr.Pattern, Target: fr.Target})
	}
	return cfg, nil
}

// loadEnv assembles a single-cluster configuration from environment
// variables.
func loadEnv() (registry.Config, error) {
	apiURL := os.Getenv(EnvAPIURL)
	if apiURL == "" {
		return registry.Config{}, fmt.Errorf("no cluster configuration: set %s or the %s family of variables",
			EnvClustersFile, EnvAPIURL)
	}

	name := os.Getenv(EnvClusterName)
	if name == "" {
		name = defaultClusterName
	}

	verify := true
	if raw := os.Getenv(EnvVerifyTLS); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return registry.Config{}, fmt.Errorf("parsing %s: %w", EnvVerifyTLS, err)
		}
		verify = parsed
	}

	return registry.Config{
		Clusters: []registry.ClusterConfig{{
			Name:        name,
			APIURL:      apiURL,
			TokenID:     os.Getenv(EnvTokenID),
			TokenSecret: os.Getenv(EnvTokenSecret),
			VerifyTLS:   verify,
		}},
		DefaultCluster: name,
	}, nil
}
