// Package pathutil converts between the absolute paths used internally and the
// relative paths shown to users, and maps translation file names to languages.
//
// Translation entries record absolute source paths so that file attribution is
// unambiguous; tool and CLI output should use relative paths for readability.
package pathutil

import (
	"path/filepath"
	"strings"
)

// TranslationExt is the extension of per-language translation files
const TranslationExt = ".json"

// ToRelative converts an absolute path to relative based on a root directory.
// Falls back to the original path if conversion fails or path is already relative.
//
// Examples:
//   - ToRelative("/home/user/app/locales/en.json", "/home/user/app") → "locales/en.json"
//   - ToRelative("/other/location/en.json", "/home/user/app") → "/other/location/en.json" (outside root)
//   - ToRelative("locales/en.json", "/home/user/app") → "locales/en.json" (already relative)
func ToRelative(absPath, rootDir string) string {
	if absPath == "" || rootDir == "" {
		return absPath
	}

	if !filepath.IsAbs(absPath) {
		return absPath
	}

	absPath = filepath.Clean(absPath)
	rootDir = filepath.Clean(rootDir)

	relPath, err := filepath.Rel(rootDir, absPath)
	if err != nil {
		// e.g. different drives on Windows
		return absPath
	}

	// Outside the root: the absolute path is clearer
	if relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return absPath
	}

	return relPath
}

// LanguageFromPath returns the language code a translation file holds: its base
// name without the .json extension. Both / and \ are accepted as separators so
// paths reported by another platform resolve the same way. ok is false for
// non-JSON files and names that cannot be a language code.
func LanguageFromPath(path string) (lang string, ok bool) {
	base := path
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	if len(base) <= len(TranslationExt) || !strings.EqualFold(base[len(base)-len(TranslationExt):], TranslationExt) {
		return "", false
	}
	lang = base[:len(base)-len(TranslationExt)]
	if strings.HasPrefix(lang, ".") || strings.ContainsAny(lang, ":") {
		return "", false
	}
	return lang, true
}

// IsTranslationFile reports whether path names a language file
func IsTranslationFile(path string) bool {
	_, ok := LanguageFromPath(path)
	return ok
}
