package testhelpers

import (
	"github.com/standardbeagle/i18nsync/internal/config"
)

// TestConfigBuilder provides a fluent API for building test configs with fast timings
// Usage:
//
//	cfg := testhelpers.NewTestConfigBuilder(projectPath).
//		WithTranslationsDir("locales").
//		WithDebounce(10, 20).
//		Build()
type TestConfigBuilder struct {
	cfg *config.Config
}

// NewTestConfigBuilder starts from the defaults rooted at projectRoot with
// short debounce windows and no metrics endpoint
func NewTestConfigBuilder(projectRoot string) *TestConfigBuilder {
	cfg := config.Default()
	cfg.Project.Root = projectRoot
	cfg.Project.Name = "test-project"
	cfg.Translations.Dir = "."
	cfg.Watch.DebounceMs = 10
	cfg.AutoSync.DebounceMs = 20
	cfg.Metrics.Addr = ""
	return &TestConfigBuilder{cfg: cfg}
}

// WithTranslationsDir sets the directory relative to the project root
func (b *TestConfigBuilder) WithTranslationsDir(dir string) *TestConfigBuilder {
	b.cfg.Translations.Dir = dir
	return b
}

// WithDebounce sets the watch and auto-sync windows in milliseconds
func (b *TestConfigBuilder) WithDebounce(watchMs, syncMs int) *TestConfigBuilder {
	b.cfg.Watch.DebounceMs = watchMs
	b.cfg.AutoSync.DebounceMs = syncMs
	return b
}

func (b *TestConfigBuilder) WithWatch(enabled bool) *TestConfigBuilder {
	b.cfg.Watch.Enabled = enabled
	return b
}

func (b *TestConfigBuilder) WithAutoSync(enabled bool) *TestConfigBuilder {
	b.cfg.AutoSync.Enabled = enabled
	return b
}

// Build returns the config; the builder must not be reused afterwards
func (b *TestConfigBuilder) Build() *config.Config {
	return b.cfg
}
