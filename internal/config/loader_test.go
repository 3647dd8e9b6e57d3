package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "amovies.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
store:
  api_key: sk-test
  collection: vs_123
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Bind != "127.0.0.1:3000" {
		t.Errorf("server.bind = %q, want default 127.0.0.1:3000", cfg.Server.Bind)
	}
	if cfg.Store.Purpose != "assistants" {
		t.Errorf("store.purpose = %q, want default assistants", cfg.Store.Purpose)
	}
	if cfg.Store.Timeout != 30*time.Second {
		t.Errorf("store.timeout = %v, want 30s", cfg.Store.Timeout)
	}
	if cfg.Agent.MaxIterations != 10 {
		t.Errorf("agent.max_iterations = %d, want 10", cfg.Agent.MaxIterations)
	}
	if cfg.Trakt.IsConfigured() {
		t.Error("trakt should not be configured")
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("AMOVIES_TEST_KEY", "sk-from-env")

	path := writeConfig(t, `
store:
  api_key: ${AMOVIES_TEST_KEY}
  collection: ${AMOVIES_TEST_COLLECTION:-vs_default}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Store.APIKey != "sk-from-env" {
		t.Errorf("store.api_key = %q, want sk-from-env", cfg.Store.APIKey)
	}
	if cfg.Store.Collection != "vs_default" {
		t.Errorf("store.collection = %q, want vs_default", cfg.Store.Collection)
	}
}

func TestLoad_UnresolvedVariable(t *testing.T) {
	path := writeConfig(t, `
store:
  api_key: ${AMOVIES_DEFINITELY_UNSET_VAR}
  collection: vs_123
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load: expected error for unresolved variable")
	}
	if !strings.Contains(err.Error(), "AMOVIES_DEFINITELY_UNSET_VAR") {
		t.Errorf("error %q does not name the unresolved variable", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Load: expected error for missing file")
	}
}
