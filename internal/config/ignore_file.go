package config

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// IgnoreFileName lists extra watch ignore patterns inside the translations
// directory, one gitignore-style pattern per line
const IgnoreFileName = ".i18nignore"

// IgnorePattern is one parsed line of an ignore file
type IgnorePattern struct {
	Pattern   string
	Negate    bool
	Directory bool
	Absolute  bool
}

// IgnoreFileParser turns gitignore-style lines into doublestar globs
type IgnoreFileParser struct {
	patterns []IgnorePattern
}

func NewIgnoreFileParser() *IgnoreFileParser {
	return &IgnoreFileParser{}
}

// LoadIgnoreFile reads dir/.i18nignore; a missing file is not an error
func (p *IgnoreFileParser) LoadIgnoreFile(dir string) error {
	f, err := os.Open(filepath.Join(dir, IgnoreFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	return p.scan(f)
}

func (p *IgnoreFileParser) scan(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		p.AddPattern(scanner.Text())
	}
	return scanner.Err()
}

// AddPattern parses one line; blanks and comments are skipped
func (p *IgnoreFileParser) AddPattern(line string) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}
	p.patterns = append(p.patterns, parseIgnoreLine(line))
}

func parseIgnoreLine(line string) IgnorePattern {
	var pattern IgnorePattern
	if strings.HasPrefix(line, "!") {
		pattern.Negate = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		pattern.Directory = true
		line = strings.TrimSuffix(line, "/")
	}
	if strings.HasPrefix(line, "/") {
		pattern.Absolute = true
		line = line[1:]
	}
	pattern.Pattern = line
	return pattern
}

// Patterns returns the parsed lines
func (p *IgnoreFileParser) Patterns() []IgnorePattern {
	return append([]IgnorePattern(nil), p.patterns...)
}

// GlobPatterns returns the ignore lines as doublestar globs relative to the
// translations directory. Negations are not supported and are dropped.
func (p *IgnoreFileParser) GlobPatterns() []string {
	var out []string
	for _, pattern := range p.patterns {
		if pattern.Negate || pattern.Pattern == "" {
			continue
		}
		out = append(out, toGlob(pattern))
	}
	return out
}

func toGlob(pattern IgnorePattern) string {
	p := pattern.Pattern
	if pattern.Directory {
		if pattern.Absolute {
			return p + "/**"
		}
		return "**/" + p + "/**"
	}
	if pattern.Absolute {
		return p
	}
	return "**/" + p
}

// IgnorePatternsFor combines the configured watch ignore globs with the
// translations directory's .i18nignore file
func (c *Config) IgnorePatternsFor(dir string) ([]string, error) {
	parser := NewIgnoreFileParser()
	if err := parser.LoadIgnoreFile(dir); err != nil {
		return nil, err
	}
	return unionPatterns(c.Watch.IgnorePatterns, parser.GlobPatterns()), nil
}
