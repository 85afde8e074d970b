package testsupport

import (
	"path/filepath"
	"testing"

	"dualsubs/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.CacheDir = filepath.Join(base, "cache")
	cfgVal.Paths.HistoryDB = filepath.Join(base, "history", "history.db")
	cfgVal.Paths.OutputDir = filepath.Join(base, "out")
	cfgVal.OpenSubtitles.APIKey = "test"
	cfgVal.Watch.SettleMillis = 10

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithOpenSubtitles points the client at baseURL, typically an httptest server.
func WithOpenSubtitles(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.OpenSubtitles.BaseURL = baseURL
	}
}

// WithMerge overrides the merge strategy and leftover handling.
func WithMerge(strategy, leftovers string, toleranceMs int64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Merge.Strategy = strategy
		b.cfg.Merge.Leftovers = leftovers
		b.cfg.Merge.ToleranceMs = toleranceMs
	}
}

// WithFormat sets the output format.
func WithFormat(format string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Merge.Format = format
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LogDir)
}
