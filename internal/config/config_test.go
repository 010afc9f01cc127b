package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Default(t *testing.T) {
	// Load from non-existent file should return defaults
	cfg, err := Load("/nonexistent/config.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Output != "plain" {
		t.Errorf("expected default output 'plain', got %q", cfg.Output)
	}
	if cfg.RegistryURL != DefaultRegistryURL {
		t.Errorf("expected default registry URL, got %q", cfg.RegistryURL)
	}
}

func TestLoad_Valid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
output: json
plugins_dir: /opt/spin/plugins
registry_url: https://example.com/registry.tar.gz
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Output != "json" {
		t.Errorf("expected output 'json', got %q", cfg.Output)
	}
	if cfg.PluginsDir != "/opt/spin/plugins" {
		t.Errorf("expected custom plugins dir, got %q", cfg.PluginsDir)
	}
	if cfg.RegistryURL != "https://example.com/registry.tar.gz" {
		t.Errorf("expected custom registry URL, got %q", cfg.RegistryURL)
	}
}

func TestLoad_Malformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	// Invalid YAML
	if err := os.WriteFile(path, []byte("{{invalid"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := Load(path)
	if err == nil {
		t.Error("expected error for malformed config")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := DefaultConfig()

	t.Setenv("SPIN_OUTPUT", "table")
	t.Setenv("SPIN_PLUGINS_DIR", "/tmp/plugins")
	t.Setenv("SPIN_PLUGINS_REGISTRY_URL", "https://mirror.example.com/reg.tar.gz")

	cfg.ApplyEnvOverrides()

	if cfg.Output != "table" {
		t.Errorf("expected output 'table' from env, got %q", cfg.Output)
	}
	if cfg.PluginsDir != "/tmp/plugins" {
		t.Errorf("expected plugins dir from env, got %q", cfg.PluginsDir)
	}
	if cfg.RegistryURL != "https://mirror.example.com/reg.tar.gz" {
		t.Errorf("expected registry URL from env, got %q", cfg.RegistryURL)
	}
}
