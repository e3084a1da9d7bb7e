package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "conduit.yaml")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(contents)), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func baseConfig(extra string) string {
	return `
database:
  dsn: "file:test.db"
llm:
  default_provider: anthropic
  providers:
    anthropic: {}
` + extra
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, baseConfig("extra_top_level: true"))

	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, baseConfig(""))

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.HTTPPort != 8080 {
		t.Errorf("Server.HTTPPort = %d, want 8080", cfg.Server.HTTPPort)
	}
	if cfg.Dispatcher.MaxToolsPerCall != 12 {
		t.Errorf("Dispatcher.MaxToolsPerCall = %d, want 12", cfg.Dispatcher.MaxToolsPerCall)
	}
	if cfg.Memory.SimilarityThreshold != 1.0 {
		t.Errorf("Memory.SimilarityThreshold = %v, want 1.0", cfg.Memory.SimilarityThreshold)
	}
	if cfg.Agent.HITLTimeout.Seconds() != 120 {
		t.Errorf("Agent.HITLTimeout = %v, want 120s", cfg.Agent.HITLTimeout)
	}
	if cfg.Shell.MaxBackgroundProcs != 5 {
		t.Errorf("Shell.MaxBackgroundProcs = %d, want 5", cfg.Shell.MaxBackgroundProcs)
	}
}

func TestLoadValidatesDefaultProvider(t *testing.T) {
	path := writeConfig(t, `
database:
  dsn: "file:test.db"
llm:
  default_provider: openai
  providers:
    anthropic: {}
`)

	_, err := Load(path)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !strings.Contains(err.Error(), "default_provider") {
		t.Fatalf("expected default_provider error, got %v", err)
	}
}

func TestLoadValidatesMissingDSN(t *testing.T) {
	path := writeConfig(t, `
llm:
  default_provider: anthropic
  providers:
    anthropic: {}
`)

	_, err := Load(path)
	if err == nil {
		t.Fatalf("expected validation error for missing dsn")
	}
	if !strings.Contains(err.Error(), "dsn") {
		t.Fatalf("expected dsn error, got %v", err)
	}
}

func TestLoadRejectsOversizedShellTimeout(t *testing.T) {
	path := writeConfig(t, baseConfig(`
shell:
  command_timeout: 10m
`))

	_, err := Load(path)
	if err == nil {
		t.Fatalf("expected validation error for oversized shell timeout")
	}
	if !strings.Contains(err.Error(), "command_timeout") {
		t.Fatalf("expected command_timeout error, got %v", err)
	}
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_CONDUIT_DSN", "file:expanded.db")
	path := writeConfig(t, `
database:
  dsn: "${TEST_CONDUIT_DSN}"
llm:
  default_provider: anthropic
  providers:
    anthropic: {}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.DSN != "file:expanded.db" {
		t.Errorf("Database.DSN = %q, want expanded value", cfg.Database.DSN)
	}
}
