package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clinikondo/internal/config"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[paths]
input_dir = "/tmp/in"
output_dir = "/tmp/out"

[processing]
extractor = "rules"
`)
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %s to load, got resolved=%s exists=%v", path, resolved, exists)
	}
	if cfg.Matching.FuzzyThreshold != 0.90 {
		t.Errorf("fuzzy threshold default = %v, want 0.90", cfg.Matching.FuzzyThreshold)
	}
	if !cfg.Matching.AutoMatch || !cfg.Matching.AutoCreate {
		t.Error("expected auto match and auto create defaults to be true")
	}
	if cfg.Processing.OnDuplicate != "record" {
		t.Errorf("on_duplicate default = %q, want record", cfg.Processing.OnDuplicate)
	}
	if cfg.MaxFileBytes() != 50*1024*1024 {
		t.Errorf("MaxFileBytes = %d, want 50MB", cfg.MaxFileBytes())
	}
}

func TestLoadExpandsHome(t *testing.T) {
	path := writeConfig(t, `
[paths]
input_dir = "~/entrada"
output_dir = "/tmp/out"

[processing]
extractor = "rules"
`)
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}
	if cfg.Paths.InputDir != filepath.Join(home, "entrada") {
		t.Errorf("input dir = %q, want under %q", cfg.Paths.InputDir, home)
	}
}

func TestLoadRejectsBadExtractor(t *testing.T) {
	path := writeConfig(t, `
[paths]
input_dir = "/tmp/in"
output_dir = "/tmp/out"

[processing]
extractor = "ocr"
`)
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unknown extractor")
	}
}

func TestLoadRequiresLLMKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	path := writeConfig(t, `
[paths]
input_dir = "/tmp/in"
output_dir = "/tmp/out"

[processing]
extractor = "llm"
`)
	_, _, _, err := config.Load(path)
	if err == nil || !strings.Contains(err.Error(), "llm.api_key") {
		t.Fatalf("expected llm.api_key error, got %v", err)
	}
}

func TestStatePaths(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.OutputDir = "/data/out"
	if got := cfg.PatientsPath(); got != filepath.Join("/data/out", ".clinikondo", "patients.json") {
		t.Errorf("PatientsPath = %q", got)
	}
	if got := cfg.LedgerPath(); got != filepath.Join("/data/out", ".clinikondo", "hashes.json") {
		t.Errorf("LedgerPath = %q", got)
	}
	if got := cfg.DeadLetterDir(); got != filepath.Join("/data/out", "falhas") {
		t.Errorf("DeadLetterDir = %q", got)
	}
}
