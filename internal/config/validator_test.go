package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	syncerrors "github.com/standardbeagle/i18nsync/internal/errors"
)

func TestValidateAndSetDefaults_FillsZeroValues(t *testing.T) {
	cfg := &Config{Project: Project{Root: "/test/root"}}

	require.NoError(t, NewValidator().ValidateAndSetDefaults(cfg))

	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, DefaultTranslationsDir, cfg.Translations.Dir)
	assert.Equal(t, DefaultBaseLanguage, cfg.Translations.BaseLanguage)
	assert.Equal(t, []string{"**/*.json"}, cfg.Translations.Include)
	assert.Equal(t, int64(DefaultMaxFileSize), cfg.Watch.MaxFileSize)
	assert.Equal(t, DefaultCacheEntries, cfg.Cache.MaxEntries)
	assert.Equal(t, DefaultMaxResults, cfg.Search.MaxResults)
	assert.Equal(t, DefaultSuggestThreshold, cfg.Search.SuggestThreshold)
}

func TestValidateAndSetDefaults_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"empty root", func(c *Config) { c.Project.Root = "" }, "project"},
		{"base language with separator", func(c *Config) { c.Translations.BaseLanguage = "en/US" }, "translations"},
		{"base language dot-dot", func(c *Config) { c.Translations.BaseLanguage = ".." }, "translations"},
		{"negative depth", func(c *Config) { c.Translations.MaxDepth = -1 }, "translations"},
		{"bad include glob", func(c *Config) { c.Translations.Include = []string{"[a-"} }, "translations"},
		{"negative watch debounce", func(c *Config) { c.Watch.DebounceMs = -5 }, "watch"},
		{"bad ignore glob", func(c *Config) { c.Watch.IgnorePatterns = []string{"{a,b"} }, "watch"},
		{"huge indent", func(c *Config) { c.AutoSync.IndentSize = 40 }, "auto_sync"},
		{"negative cache", func(c *Config) { c.Cache.MaxEntries = -1 }, "cache"},
		{"threshold above one", func(c *Config) { c.Search.SuggestThreshold = 1.5 }, "search"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Project.Root = "/test/root"
			tt.mutate(cfg)

			err := ValidateConfig(cfg)
			require.Error(t, err)
			var ce *syncerrors.ConfigError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestValidateConfig_DefaultsAreValid(t *testing.T) {
	assert.NoError(t, ValidateConfig(Default()))
}
