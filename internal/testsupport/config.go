// Package testsupport provides shared fixtures for package tests.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"clinikondo/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per
// test. The rules extractor is selected so tests never need an API key.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.InputDir = filepath.Join(base, "entrada")
	cfg.Paths.OutputDir = filepath.Join(base, "saida")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Processing.Extractor = config.ExtractorRules
	cfg.Matching.RouteUnmatchedToShared = false

	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	if err := os.MkdirAll(cfg.Paths.InputDir, 0o755); err != nil {
		t.Fatalf("create input dir: %v", err)
	}
	return &cfg
}
