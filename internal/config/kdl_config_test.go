package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKDL_Defaults(t *testing.T) {
	cfg, err := parseKDL("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "locales", cfg.Translations.Dir)
	assert.Equal(t, "en", cfg.Translations.BaseLanguage)
	assert.Equal(t, 2, cfg.Translations.MaxDepth)
	assert.True(t, cfg.Watch.Enabled)
	assert.Equal(t, 300, cfg.Watch.DebounceMs)
	assert.True(t, cfg.AutoSync.Enabled)
	assert.Equal(t, 500, cfg.AutoSync.DebounceMs)
	assert.Equal(t, 0, cfg.AutoSync.IndentSize, "indent is detected from the file by default")
	assert.Equal(t, 1000, cfg.Cache.MaxEntries)
	assert.Equal(t, 500, cfg.Cache.KeyPathCacheSize)
	assert.Equal(t, 50, cfg.Search.MaxResults)
	assert.Equal(t, 0.75, cfg.Search.SuggestThreshold)
	assert.Empty(t, cfg.Metrics.Addr)
}

func TestParseKDL_AllSections(t *testing.T) {
	kdlContent := `
project {
    root "app"
    name "storefront"
}
translations {
    dir "public/i18n"
    base_language "de"
    include "**/*.json" "**/*.jsonc"
    exclude {
        "**/draft/**"
    }
    max_depth 3
}
watch {
    enabled false
    debounce "250ms"
    ignore "**/*.bak"
    max_file_size "2MB"
}
auto_sync {
    debounce_ms 750
    indent_size 4
    use_tabs true
}
cache {
    max_entries 64
    key_path_cache_size 32
}
search {
    max_results 20
    suggest_threshold 0.8
    max_suggestions 3
}
metrics {
    addr ":9464"
}
`
	cfg, err := parseKDL(kdlContent)
	require.NoError(t, err)

	assert.Equal(t, "app", cfg.Project.Root)
	assert.Equal(t, "storefront", cfg.Project.Name)
	assert.Equal(t, "public/i18n", cfg.Translations.Dir)
	assert.Equal(t, "de", cfg.Translations.BaseLanguage)
	assert.Equal(t, []string{"**/*.json", "**/*.jsonc"}, cfg.Translations.Include)
	assert.Equal(t, []string{"**/draft/**"}, cfg.Translations.Exclude)
	assert.Equal(t, 3, cfg.Translations.MaxDepth)

	assert.False(t, cfg.Watch.Enabled)
	assert.Equal(t, 250, cfg.Watch.DebounceMs)
	assert.Contains(t, cfg.Watch.IgnorePatterns, "**/*.bak")
	assert.Contains(t, cfg.Watch.IgnorePatterns, "**/*.swp", "defaults are kept")
	assert.Equal(t, int64(2*1024*1024), cfg.Watch.MaxFileSize)

	assert.True(t, cfg.AutoSync.Enabled)
	assert.Equal(t, 750, cfg.AutoSync.DebounceMs)
	assert.Equal(t, 4, cfg.AutoSync.IndentSize)
	assert.True(t, cfg.AutoSync.UseTabs)

	assert.Equal(t, 64, cfg.Cache.MaxEntries)
	assert.Equal(t, 32, cfg.Cache.KeyPathCacheSize)
	assert.Equal(t, 20, cfg.Search.MaxResults)
	assert.Equal(t, 0.8, cfg.Search.SuggestThreshold)
	assert.Equal(t, 3, cfg.Search.MaxSuggestions)
	assert.Equal(t, ":9464", cfg.Metrics.Addr)
}

func TestParseKDL_ShortFormToggles(t *testing.T) {
	cfg, err := parseKDL("watch false\nauto_sync false\n")
	require.NoError(t, err)
	assert.False(t, cfg.Watch.Enabled)
	assert.False(t, cfg.AutoSync.Enabled)
}

func TestParseKDL_InvalidSyntax(t *testing.T) {
	_, err := parseKDL("translations {\n dir \"x\"\n")
	assert.Error(t, err)
}

func TestLoadKDL_ResolvesRootRelativeToFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, KDLFileName), []byte("project {\n root \"web\"\n}\n"), 0644))

	cfg, err := LoadKDL(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "web"), cfg.Project.Root)

	missing, err := LoadKDL(t.TempDir())
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"10MB", 10 * 1024 * 1024},
		{"512kb", 512 * 1024},
		{"1GB", 1024 * 1024 * 1024},
		{"100B", 100},
		{"42", 42},
	}
	for _, tt := range tests {
		got, err := parseSize(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := parseSize("lots")
	assert.Error(t, err)
}
