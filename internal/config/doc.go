// Package config loads the cluster inventory that feeds the registry,
// either from a YAML file or from single-cluster environment variables.
package config
