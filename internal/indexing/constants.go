package indexing

// Project marker constants for detecting project roots.
// These are checked in priority order when determining the project root directory.

// ConfigMarkers are i18nsync configuration files - highest priority.
// A parent directory holding one wins over a nested .git or package.json.
var ConfigMarkers = []string{
	".i18nsync.kdl",  // preferred format
	".i18nsync.toml", // alternative format
}

// PrimaryProjectMarkers are well-known project definition files
var PrimaryProjectMarkers = []string{
	".git",           // Git repository (strongest general indicator)
	"package.json",   // Node.js project
	"go.mod",         // Go module
	"composer.json",  // PHP project
	"pubspec.yaml",   // Flutter/Dart project
	"Cargo.toml",     // Rust project
	"pyproject.toml", // Modern Python project
	"Gemfile",        // Ruby project
}

// TranslationDirNames are directory names that usually hold per-language
// JSON files. A directory containing one of them is taken as a project root
// when no marker file is found.
var TranslationDirNames = []string{
	"locales", "locale", "i18n", "translations", "lang", "messages",
}
