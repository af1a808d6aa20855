package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// LoadTOML loads .i18nsync.toml from dir, returning nil, nil when absent
func LoadTOML(dir string) (*Config, error) {
	tomlPath := filepath.Join(dir, TOMLFileName)

	data, err := os.ReadFile(tomlPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", TOMLFileName, err)
	}

	cfg, err := parseTOML(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", tomlPath, err)
	}
	cfg.Project.Root = resolveRoot(cfg.Project.Root, dir)
	return cfg, nil
}

// parseTOML decodes over the defaults so omitted tables keep their default values.
// Watch ignore patterns are added to the defaults, as in KDL.
func parseTOML(data []byte) (*Config, error) {
	cfg := Default()
	cfg.Project.Root = ""
	defaultIgnore := cfg.Watch.IgnorePatterns
	cfg.Watch.IgnorePatterns = nil

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config: %w", err)
	}
	cfg.Watch.IgnorePatterns = unionPatterns(defaultIgnore, cfg.Watch.IgnorePatterns)
	return cfg, nil
}
