// Package keypath parses and compares dot-separated translation key paths.
//
// A key path is one or more segments of [a-zA-Z0-9_-] joined by single dots,
// e.g. "common.buttons.submit". Leading, trailing and consecutive dots are invalid.
package keypath

import (
	"fmt"
	"strings"

	"github.com/standardbeagle/i18nsync/internal/cache"
	syncerrors "github.com/standardbeagle/i18nsync/internal/errors"
)

// Separator joins key path segments
const Separator = "."

// DefaultCacheSize bounds the number of memoized parses
const DefaultCacheSize = 500

var segmentCache = cache.MustNew[[]string](DefaultCacheSize)

// SetCacheSize replaces the parse cache with one of the given capacity
func SetCacheSize(size int) {
	segmentCache = cache.MustNew[[]string](size)
}

// CacheStats exposes parse cache counters
func CacheStats() cache.Stats {
	return segmentCache.Stats()
}

func isSegmentChar(c byte) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c == '_' || c == '-'
}

// Validate returns an error wrapping ErrInvalidKeyPath when key is malformed
func Validate(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", syncerrors.ErrInvalidKeyPath)
	}
	if key[0] == '.' || key[len(key)-1] == '.' {
		return fmt.Errorf("%w: %q has a leading or trailing dot", syncerrors.ErrInvalidKeyPath, key)
	}
	prevDot := false
	for i := 0; i < len(key); i++ {
		c := key[i]
		if c == '.' {
			if prevDot {
				return fmt.Errorf("%w: %q has consecutive dots", syncerrors.ErrInvalidKeyPath, key)
			}
			prevDot = true
			continue
		}
		prevDot = false
		if !isSegmentChar(c) {
			return fmt.Errorf("%w: %q contains invalid character %q", syncerrors.ErrInvalidKeyPath, key, c)
		}
	}
	return nil
}

// IsValid reports whether key is a well-formed key path
func IsValid(key string) bool {
	return Validate(key) == nil
}

// IsValidSegment reports whether s can be used as a single segment
func IsValidSegment(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isSegmentChar(s[i]) {
			return false
		}
	}
	return true
}

// Parse validates key and splits it into segments. Results are cached; the
// returned slice must not be modified.
func Parse(key string) ([]string, error) {
	if segs, ok := segmentCache.Get(key); ok {
		return segs, nil
	}
	if err := Validate(key); err != nil {
		return nil, err
	}
	segs := strings.Split(key, Separator)
	segmentCache.Add(key, segs)
	return segs, nil
}

// Split splits key without validation
func Split(key string) []string {
	if key == "" {
		return nil
	}
	return strings.Split(key, Separator)
}

// Join builds a key path from segments
func Join(segments ...string) string {
	return strings.Join(segments, Separator)
}

// Parent returns the parent path, or false for a top-level key
func Parent(key string) (string, bool) {
	i := strings.LastIndexByte(key, '.')
	if i < 0 {
		return "", false
	}
	return key[:i], true
}

// Child appends a segment to parent; an empty parent yields the segment itself
func Child(parent, segment string) string {
	if parent == "" {
		return segment
	}
	return parent + Separator + segment
}

// LastSegment returns the final segment of key
func LastSegment(key string) string {
	i := strings.LastIndexByte(key, '.')
	if i < 0 {
		return key
	}
	return key[i+1:]
}

// Depth returns the number of segments; an empty key has depth 0
func Depth(key string) int {
	if key == "" {
		return 0
	}
	return strings.Count(key, Separator) + 1
}

// IsDescendant reports whether key lies strictly below ancestor
func IsDescendant(key, ancestor string) bool {
	if ancestor == "" {
		return key != ""
	}
	return len(key) > len(ancestor)+1 &&
		strings.HasPrefix(key, ancestor) &&
		key[len(ancestor)] == '.'
}

// IsDirectChild reports whether key is exactly one segment below parent
func IsDirectChild(key, parent string) bool {
	if parent == "" {
		return key != "" && !strings.Contains(key, Separator)
	}
	return IsDescendant(key, parent) && !strings.Contains(key[len(parent)+1:], Separator)
}

// CommonPrefix returns the longest shared segment prefix of the given keys
func CommonPrefix(keys ...string) string {
	if len(keys) == 0 {
		return ""
	}
	common := Split(keys[0])
	for _, k := range keys[1:] {
		segs := Split(k)
		n := 0
		for n < len(common) && n < len(segs) && common[n] == segs[n] {
			n++
		}
		common = common[:n]
		if n == 0 {
			break
		}
	}
	return Join(common...)
}

// Compare orders key paths segment by segment; a parent sorts before its children
func Compare(a, b string) int {
	as, bs := Split(a), Split(b)
	for i := 0; i < len(as) && i < len(bs); i++ {
		if c := strings.Compare(as[i], bs[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(as) < len(bs):
		return -1
	case len(as) > len(bs):
		return 1
	default:
		return 0
	}
}
