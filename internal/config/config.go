package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// KDLFileName is the project (and global) KDL config file
	KDLFileName = ".i18nsync.kdl"
	// TOMLFileName is tried when no KDL config exists in the project
	TOMLFileName = ".i18nsync.toml"

	DefaultTranslationsDir  = "locales"
	DefaultBaseLanguage     = "en"
	DefaultMaxDepth         = 2
	DefaultWatchDebounceMs  = 300
	DefaultSyncDebounceMs   = 500
	DefaultCacheEntries     = 1000
	DefaultKeyPathCacheSize = 500
	DefaultMaxResults       = 50
	DefaultSuggestThreshold = 0.75
	DefaultMaxSuggestions   = 5
	DefaultMaxFileSize      = 10 * 1024 * 1024
)

// Environment overrides, applied after the config files
const (
	EnvDir          = "I18NSYNC_DIR"
	EnvBaseLanguage = "I18NSYNC_BASE_LANGUAGE"
	EnvMetricsAddr  = "I18NSYNC_METRICS_ADDR"
)

type Config struct {
	Version      int          `toml:"version"`
	Project      Project      `toml:"project"`
	Translations Translations `toml:"translations"`
	Watch        Watch        `toml:"watch"`
	AutoSync     AutoSync     `toml:"auto_sync"`
	Cache        Cache        `toml:"cache"`
	Search       Search       `toml:"search"`
	Metrics      Metrics      `toml:"metrics"`
}

type Project struct {
	Root string `toml:"root"`
	Name string `toml:"name"`
}

// Translations describes where the per-language JSON files live
type Translations struct {
	// Dir is relative to Project.Root unless absolute
	Dir          string   `toml:"dir"`
	BaseLanguage string   `toml:"base_language"`
	Include      []string `toml:"include"`
	Exclude      []string `toml:"exclude"`
	// MaxDepth limits how many directory levels below Dir are scanned and watched
	MaxDepth int `toml:"max_depth"`
}

type Watch struct {
	Enabled        bool     `toml:"enabled"`
	DebounceMs     int      `toml:"debounce_ms"`
	IgnorePatterns []string `toml:"ignore_patterns"`
	// Files larger than this are reported and skipped
	MaxFileSize int64 `toml:"max_file_size"`
}

// AutoSync controls writing index changes back to the language files.
// IndentSize 0 means detect from the file, falling back to two spaces.
type AutoSync struct {
	Enabled    bool `toml:"enabled"`
	DebounceMs int  `toml:"debounce_ms"`
	IndentSize int  `toml:"indent_size"`
	UseTabs    bool `toml:"use_tabs"`
}

type Cache struct {
	MaxEntries       int `toml:"max_entries"`
	KeyPathCacheSize int `toml:"key_path_cache_size"`
}

type Search struct {
	MaxResults       int     `toml:"max_results"`
	SuggestThreshold float64 `toml:"suggest_threshold"`
	MaxSuggestions   int     `toml:"max_suggestions"`
}

// Metrics.Addr enables the Prometheus endpoint when non-empty, e.g. ":9464"
type Metrics struct {
	Addr string `toml:"addr"`
}

// TranslationsPath returns the absolute translations directory
func (c *Config) TranslationsPath() string {
	if filepath.IsAbs(c.Translations.Dir) {
		return filepath.Clean(c.Translations.Dir)
	}
	return filepath.Join(c.Project.Root, c.Translations.Dir)
}

// Load loads configuration for the current working directory
func Load(path string) (*Config, error) {
	return LoadWithRoot(path, "")
}

// LoadWithRoot loads configuration with an explicit project root.
// path may name a config file directly; otherwise the global ~/.i18nsync.kdl
// is loaded first and the project config from rootDir is merged over it.
func LoadWithRoot(path, rootDir string) (*Config, error) {
	if rootDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			cwd = "."
		}
		rootDir = cwd
	}
	if abs, err := filepath.Abs(rootDir); err == nil {
		rootDir = abs
	}

	if path != "" {
		cfg, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		if cfg.Project.Root == "" {
			cfg.Project.Root = rootDir
		}
		return finish(cfg)
	}

	var global *Config
	if home, err := os.UserHomeDir(); err == nil && home != rootDir {
		g, err := LoadKDL(home)
		if err != nil {
			return nil, fmt.Errorf("global config: %w", err)
		}
		global = g
	}

	project, err := LoadKDL(rootDir)
	if err != nil {
		return nil, err
	}
	if project == nil {
		project, err = LoadTOML(rootDir)
		if err != nil {
			return nil, err
		}
	}

	var cfg *Config
	switch {
	case global != nil && project != nil:
		cfg = mergeConfigs(global, project)
	case project != nil:
		cfg = project
	case global != nil:
		cfg = global
	default:
		cfg = Default()
	}
	// The global file never decides which project we are in
	if project == nil || cfg.Project.Root == "" {
		cfg.Project.Root = rootDir
	}
	return finish(cfg)
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var cfg *Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		cfg, err = parseTOML(data)
	} else {
		cfg, err = parseKDL(string(data))
	}
	if err != nil {
		return nil, err
	}
	cfg.Project.Root = resolveRoot(cfg.Project.Root, filepath.Dir(path))
	return cfg, nil
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnv(os.LookupEnv)
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides values from the environment
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvDir); ok && v != "" {
		c.Translations.Dir = v
	}
	if v, ok := lookup(EnvBaseLanguage); ok && v != "" {
		c.Translations.BaseLanguage = v
	}
	if v, ok := lookup(EnvMetricsAddr); ok {
		c.Metrics.Addr = v
	}
}

// Default returns the built-in configuration rooted at the working directory
func Default() *Config {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}

	return &Config{
		Version: 1,
		Project: Project{Root: cwd},
		Translations: Translations{
			Dir:          DefaultTranslationsDir,
			BaseLanguage: DefaultBaseLanguage,
			Include:      []string{"**/*.json"},
			Exclude:      []string{},
			MaxDepth:     DefaultMaxDepth,
		},
		Watch: Watch{
			Enabled:     true,
			DebounceMs:  DefaultWatchDebounceMs,
			MaxFileSize: DefaultMaxFileSize,
			IgnorePatterns: []string{
				"**/.*",
				"**/*~",
				"**/*.swp",
				"**/*.tmp",
			},
		},
		AutoSync: AutoSync{
			Enabled:    true,
			DebounceMs: DefaultSyncDebounceMs,
		},
		Cache: Cache{
			MaxEntries:       DefaultCacheEntries,
			KeyPathCacheSize: DefaultKeyPathCacheSize,
		},
		Search: Search{
			MaxResults:       DefaultMaxResults,
			SuggestThreshold: DefaultSuggestThreshold,
			MaxSuggestions:   DefaultMaxSuggestions,
		},
	}
}

// mergeConfigs merges a base config with a project config.
// Project config takes precedence, but base ignore patterns are preserved.
func mergeConfigs(base, project *Config) *Config {
	merged := *project

	merged.Watch.IgnorePatterns = unionPatterns(base.Watch.IgnorePatterns, project.Watch.IgnorePatterns)
	merged.Translations.Exclude = unionPatterns(base.Translations.Exclude, project.Translations.Exclude)

	if len(project.Translations.Include) == 0 && len(base.Translations.Include) > 0 {
		merged.Translations.Include = base.Translations.Include
	}
	return &merged
}

// unionPatterns keeps first-seen order and drops duplicates
func unionPatterns(lists ...[]string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, l := range lists {
		for _, p := range l {
			if p == "" || seen[p] {
				continue
			}
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

func resolveRoot(root, configDir string) string {
	if root == "" {
		abs, err := filepath.Abs(configDir)
		if err != nil {
			return configDir
		}
		return abs
	}
	if filepath.IsAbs(root) {
		return filepath.Clean(root)
	}
	return filepath.Clean(filepath.Join(configDir, root))
}
