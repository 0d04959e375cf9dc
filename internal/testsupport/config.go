// Package testsupport provides shared helpers for package tests: temp-dir
// backed configs, sized file fixtures, and journal stores with cleanup
// registered.
package testsupport

import (
	"path/filepath"
	"testing"

	"shuttle/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.SourceDir = filepath.Join(base, "staging")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Remote.Dest = "test:dest"

	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	return &cfg
}

// WithQuota sets the destination size limit on the test config.
func WithQuota(limit int64) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Quota.SizeLimitBytes = limit
	}
}

// WithMaxPathLength enables name truncation on the test config.
func WithMaxPathLength(limit int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Workflow.MaxPathLength = limit
	}
}
