package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	syncerrors "github.com/standardbeagle/i18nsync/internal/errors"
)

// Validator validates configuration and sets smart defaults
type Validator struct{}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAndSetDefaults validates configuration and applies smart defaults.
// Returns a ConfigError naming the offending section when validation fails.
func (v *Validator) ValidateAndSetDefaults(cfg *Config) error {
	v.setSmartDefaults(cfg)

	if err := v.validateProjectConfig(&cfg.Project); err != nil {
		return syncerrors.NewConfigError("project", cfg.Project.Root, err)
	}

	if err := v.validateTranslationsConfig(&cfg.Translations); err != nil {
		return syncerrors.NewConfigError("translations", cfg.Translations.Dir, err)
	}

	if err := v.validateWatchConfig(&cfg.Watch); err != nil {
		return syncerrors.NewConfigError("watch", "", err)
	}

	if err := v.validateAutoSyncConfig(&cfg.AutoSync); err != nil {
		return syncerrors.NewConfigError("auto_sync", "", err)
	}

	if err := v.validateCacheConfig(&cfg.Cache); err != nil {
		return syncerrors.NewConfigError("cache", "", err)
	}

	if err := v.validateSearchConfig(&cfg.Search); err != nil {
		return syncerrors.NewConfigError("search", "", err)
	}

	return nil
}

func (v *Validator) validateProjectConfig(project *Project) error {
	if project.Root == "" {
		return errors.New("project root cannot be empty")
	}
	return nil
}

func (v *Validator) validateTranslationsConfig(t *Translations) error {
	if strings.TrimSpace(t.Dir) == "" {
		return errors.New("translations dir cannot be empty")
	}
	if err := validateLanguageCode(t.BaseLanguage); err != nil {
		return fmt.Errorf("base language: %w", err)
	}
	if t.MaxDepth < 0 {
		return fmt.Errorf("MaxDepth cannot be negative, got %d", t.MaxDepth)
	}
	if err := validatePatterns(t.Include); err != nil {
		return err
	}
	return validatePatterns(t.Exclude)
}

func (v *Validator) validateWatchConfig(w *Watch) error {
	if w.DebounceMs < 0 {
		return fmt.Errorf("DebounceMs cannot be negative, got %d", w.DebounceMs)
	}
	if w.MaxFileSize < 0 {
		return fmt.Errorf("MaxFileSize cannot be negative, got %d", w.MaxFileSize)
	}
	return validatePatterns(w.IgnorePatterns)
}

func (v *Validator) validateAutoSyncConfig(a *AutoSync) error {
	if a.DebounceMs < 0 {
		return fmt.Errorf("DebounceMs cannot be negative, got %d", a.DebounceMs)
	}
	if a.IndentSize < 0 || a.IndentSize > 16 {
		return fmt.Errorf("IndentSize must be between 0 and 16, got %d", a.IndentSize)
	}
	return nil
}

func (v *Validator) validateCacheConfig(c *Cache) error {
	if c.MaxEntries < 0 {
		return fmt.Errorf("MaxEntries cannot be negative, got %d", c.MaxEntries)
	}
	if c.KeyPathCacheSize < 0 {
		return fmt.Errorf("KeyPathCacheSize cannot be negative, got %d", c.KeyPathCacheSize)
	}
	return nil
}

func (v *Validator) validateSearchConfig(search *Search) error {
	if search.MaxResults < 0 {
		return fmt.Errorf("MaxResults cannot be negative, got %d", search.MaxResults)
	}
	if search.SuggestThreshold < 0 || search.SuggestThreshold > 1 {
		return fmt.Errorf("SuggestThreshold must be between 0 and 1, got %v", search.SuggestThreshold)
	}
	if search.MaxSuggestions < 0 {
		return fmt.Errorf("MaxSuggestions cannot be negative, got %d", search.MaxSuggestions)
	}
	return nil
}

// setSmartDefaults fills zero values left by partial config files
func (v *Validator) setSmartDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if cfg.Translations.Dir == "" {
		cfg.Translations.Dir = DefaultTranslationsDir
	}
	if cfg.Translations.BaseLanguage == "" {
		cfg.Translations.BaseLanguage = DefaultBaseLanguage
	}
	if len(cfg.Translations.Include) == 0 {
		cfg.Translations.Include = []string{"**/*.json"}
	}
	if cfg.Watch.MaxFileSize == 0 {
		cfg.Watch.MaxFileSize = DefaultMaxFileSize
	}
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = DefaultCacheEntries
	}
	if cfg.Cache.KeyPathCacheSize == 0 {
		cfg.Cache.KeyPathCacheSize = DefaultKeyPathCacheSize
	}
	if cfg.Search.MaxResults == 0 {
		cfg.Search.MaxResults = DefaultMaxResults
	}
	if cfg.Search.SuggestThreshold == 0 {
		cfg.Search.SuggestThreshold = DefaultSuggestThreshold
	}
	if cfg.Search.MaxSuggestions == 0 {
		cfg.Search.MaxSuggestions = DefaultMaxSuggestions
	}
}

// validateLanguageCode mirrors the index rule: a language becomes a file name
func validateLanguageCode(lang string) error {
	switch {
	case lang == "", lang == ".", lang == "..":
		return fmt.Errorf("invalid language code %q", lang)
	case strings.ContainsAny(lang, `/\:`):
		return fmt.Errorf("language code %q must not contain path separators", lang)
	}
	return nil
}

func validatePatterns(patterns []string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(filepath.ToSlash(p)) {
			return fmt.Errorf("invalid glob pattern %q", p)
		}
	}
	return nil
}

// ValidateConfig is a convenience function for quick validation
func ValidateConfig(cfg *Config) error {
	validator := NewValidator()
	return validator.ValidateAndSetDefaults(cfg)
}
