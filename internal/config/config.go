// Package config handles user configuration for the spin CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spinframework/spin-cli/internal/meta"
	"gopkg.in/yaml.v3"
)

// DefaultRegistryURL is the tar.gz snapshot of the spin-plugins registry
// used to refresh the local catalogue mirror.
const DefaultRegistryURL = "https://github.com/spinframework/spin-plugins/archive/refs/heads/main.tar.gz"

// Config holds user configuration loaded from ~/.spin/config.yaml.
type Config struct {
	// Output is the default listing format (plain, json, table).
	Output string `yaml:"output"`

	// PluginsDir is the root of the local plugin store.
	// Default: ~/.spin/plugins.
	PluginsDir string `yaml:"plugins_dir"`

	// RegistryURL is the snapshot URL for `spin plugins update`.
	RegistryURL string `yaml:"registry_url"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Output:      "plain",
		RegistryURL: DefaultRegistryURL,
	}
}

// Load reads configuration from the given path.
// Returns DefaultConfig if the file doesn't exist.
// Returns an error only if the file exists but is malformed.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// DefaultConfigPath returns the default config file path, ~/.spin/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultConfigDir returns the default config directory, ~/.spin.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "."+meta.AppName)
	}
	return filepath.Join(home, "."+meta.AppName)
}

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Environment variables (higher priority than config file):
//   - SPIN_OUTPUT: default listing format
//   - SPIN_PLUGINS_DIR: plugin store root
//   - SPIN_PLUGINS_REGISTRY_URL: registry snapshot URL
func (c *Config) ApplyEnvOverrides() {
	prefix := strings.ToUpper(meta.AppName) + "_"
	if v := os.Getenv(prefix + "OUTPUT"); v != "" {
		c.Output = v
	}
	if v := os.Getenv(prefix + "PLUGINS_DIR"); v != "" {
		c.PluginsDir = v
	}
	if v := os.Getenv(prefix + "PLUGINS_REGISTRY_URL"); v != "" {
		c.RegistryURL = v
	}
}
