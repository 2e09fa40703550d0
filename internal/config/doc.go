// Package config provides centralized configuration management for the
// divrisk pipeline. Configuration is loaded from environment variables
// (DIVRISK_ prefix) merged over an optional YAML file, and the Paths type
// is the single source of truth for the features_data directory layout.
package config
