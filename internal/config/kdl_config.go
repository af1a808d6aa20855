package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// LoadKDL attempts to load configuration from the .i18nsync.kdl file in dir.
// It returns nil, nil when there is no such file.
func LoadKDL(dir string) (*Config, error) {
	kdlPath := filepath.Join(dir, KDLFileName)

	if _, err := os.Stat(kdlPath); os.IsNotExist(err) {
		return nil, nil
	}

	content, err := os.ReadFile(kdlPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", KDLFileName, err)
	}

	cfg, err := parseKDL(string(content))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", kdlPath, err)
	}

	// Relative roots resolve against the directory holding the config file
	cfg.Project.Root = resolveRoot(cfg.Project.Root, dir)
	return cfg, nil
}

// parseKDL overlays a KDL document onto the defaults. Unknown nodes are ignored.
//
//	translations {
//	    dir "public/locales"
//	    base_language "en"
//	    exclude "**/draft/**"
//	}
//	watch { debounce "250ms"; ignore "**/*.bak" }
func parseKDL(content string) (*Config, error) {
	cfg := Default()
	cfg.Project.Root = ""

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse KDL config: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "version":
			if v, ok := firstIntArg(n); ok {
				cfg.Version = v
			}
		case "project":
			for _, cn := range n.Children {
				assignSimpleString(cn, "root", func(v string) { cfg.Project.Root = v })
				assignSimpleString(cn, "name", func(v string) { cfg.Project.Name = v })
			}
		case "translations":
			parseTranslationsNode(cfg, n)
		case "watch":
			parseWatchNode(cfg, n)
		case "auto_sync", "autosync":
			parseAutoSyncNode(cfg, n)
		case "cache":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "max_entries":
					if v, ok := firstIntArg(cn); ok {
						cfg.Cache.MaxEntries = v
					}
				case "key_path_cache_size":
					if v, ok := firstIntArg(cn); ok {
						cfg.Cache.KeyPathCacheSize = v
					}
				}
			}
		case "search":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "max_results":
					if v, ok := firstIntArg(cn); ok {
						cfg.Search.MaxResults = v
					}
				case "suggest_threshold":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Search.SuggestThreshold = v
					}
				case "max_suggestions":
					if v, ok := firstIntArg(cn); ok {
						cfg.Search.MaxSuggestions = v
					}
				}
			}
		case "metrics":
			for _, cn := range n.Children {
				assignSimpleString(cn, "addr", func(v string) { cfg.Metrics.Addr = v })
			}
		}
	}

	return cfg, nil
}

func parseTranslationsNode(cfg *Config, n *document.Node) {
	var include, exclude []string
	for _, cn := range n.Children {
		switch nodeName(cn) {
		case "dir":
			if s, ok := firstStringArg(cn); ok {
				cfg.Translations.Dir = s
			}
		case "base_language", "base":
			if s, ok := firstStringArg(cn); ok {
				cfg.Translations.BaseLanguage = s
			}
		case "include":
			include = append(include, collectStringArgs(cn)...)
		case "exclude":
			exclude = append(exclude, collectStringArgs(cn)...)
		case "max_depth":
			if v, ok := firstIntArg(cn); ok {
				cfg.Translations.MaxDepth = v
			}
		}
	}
	// Listing patterns replaces the defaults
	if len(include) > 0 {
		cfg.Translations.Include = include
	}
	if len(exclude) > 0 {
		cfg.Translations.Exclude = exclude
	}
}

func parseWatchNode(cfg *Config, n *document.Node) {
	if b, ok := firstBoolArg(n); ok {
		cfg.Watch.Enabled = b
	}
	for _, cn := range n.Children {
		switch nodeName(cn) {
		case "enabled":
			if b, ok := firstBoolArg(cn); ok {
				cfg.Watch.Enabled = b
			}
		case "debounce", "debounce_ms":
			if ms, ok := durationMsArg(cn); ok {
				cfg.Watch.DebounceMs = ms
			}
		case "ignore", "ignore_patterns":
			// Added to the defaults rather than replacing them
			cfg.Watch.IgnorePatterns = unionPatterns(cfg.Watch.IgnorePatterns, collectStringArgs(cn))
		case "max_file_size":
			if v, ok := firstIntArg(cn); ok {
				cfg.Watch.MaxFileSize = int64(v)
			}
			if s, ok := firstStringArg(cn); ok {
				if sz, err := parseSize(s); err == nil {
					cfg.Watch.MaxFileSize = sz
				} else {
					log.Printf("WARNING: invalid max_file_size %q in KDL config: %v", s, err)
				}
			}
		}
	}
}

func parseAutoSyncNode(cfg *Config, n *document.Node) {
	if b, ok := firstBoolArg(n); ok {
		cfg.AutoSync.Enabled = b
	}
	for _, cn := range n.Children {
		switch nodeName(cn) {
		case "enabled":
			if b, ok := firstBoolArg(cn); ok {
				cfg.AutoSync.Enabled = b
			}
		case "debounce", "debounce_ms":
			if ms, ok := durationMsArg(cn); ok {
				cfg.AutoSync.DebounceMs = ms
			}
		case "indent_size":
			if v, ok := firstIntArg(cn); ok {
				cfg.AutoSync.IndentSize = v
			}
		case "use_tabs":
			if b, ok := firstBoolArg(cn); ok {
				cfg.AutoSync.UseTabs = b
			}
		}
	}
}

// durationMsArg accepts a bare millisecond count or a duration string like "250ms"
func durationMsArg(n *document.Node) (int, bool) {
	if v, ok := firstIntArg(n); ok {
		return v, true
	}
	s, ok := firstStringArg(n)
	if !ok {
		return 0, false
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v, true
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("WARNING: invalid duration %q for '%s' in KDL config", s, nodeName(n))
		return 0, false
	}
	return int(d / time.Millisecond), true
}

// Helper functions over the kdl-go document model
func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}
func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}
func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}
func firstFloatArg(n *document.Node) (float64, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	default:
		log.Printf("WARNING: invalid float value for '%s' in KDL config, expected number but got %T", nodeName(n), n.Arguments[0].Value)
		return 0, false
	}
}
func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}

	// Block form: exclude { "pattern" } where each child node name is the value
	if len(out) == 0 && len(n.Children) > 0 {
		out = make([]string, 0, len(n.Children))
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}

	return out
}
func assignSimpleString(n *document.Node, target string, set func(string)) {
	if nodeName(n) == target {
		if s, ok := firstStringArg(n); ok {
			set(s)
		}
	}
}

// parseSize handles size strings like "10MB", "500KB", "1GB"
func parseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))

	var multiplier int64 = 1
	var numStr string

	switch {
	case strings.HasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		numStr = strings.TrimSuffix(s, "GB")
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		numStr = strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "KB"):
		multiplier = 1024
		numStr = strings.TrimSuffix(s, "KB")
	case strings.HasSuffix(s, "B"):
		numStr = strings.TrimSuffix(s, "B")
	default:
		numStr = s
	}

	num, err := strconv.ParseInt(strings.TrimSpace(numStr), 10, 64)
	if err != nil {
		return 0, err
	}

	return num * multiplier, nil
}
