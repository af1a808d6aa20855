package indexing

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/standardbeagle/i18nsync/pkg/pathutil"
)

// FileChecker is the filesystem surface project detection needs
type FileChecker interface {
	Exists(path string) bool
	IsDir(path string) bool
	ReadDir(path string) ([]os.DirEntry, error)
}

type osFileChecker struct{}

func (osFileChecker) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (osFileChecker) IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func (osFileChecker) ReadDir(path string) ([]os.DirEntry, error) {
	return os.ReadDir(path)
}

// ProjectInitializer handles project root detection.
// This is shared between CLI and MCP to avoid code duplication
type ProjectInitializer struct {
	fs FileChecker
}

// NewProjectInitializer creates a project initializer backed by the OS filesystem
func NewProjectInitializer() *ProjectInitializer {
	return &ProjectInitializer{fs: osFileChecker{}}
}

// NewProjectInitializerWithFileChecker creates a project initializer with a custom
// filesystem. This is primarily used for testing.
func NewProjectInitializerWithFileChecker(fs FileChecker) *ProjectInitializer {
	return &ProjectInitializer{fs: fs}
}

// DetectProjectRoot checks if a path is likely a project root
// Returns (isProjectRoot, detectionMarker)
func (pi *ProjectInitializer) DetectProjectRoot(path string) (bool, string) {
	if path == "" || !pi.fs.IsDir(path) {
		return false, ""
	}

	for _, marker := range ConfigMarkers {
		if pi.fs.Exists(filepath.Join(path, marker)) {
			return true, marker
		}
	}

	for _, marker := range PrimaryProjectMarkers {
		if pi.fs.Exists(filepath.Join(path, marker)) {
			return true, marker
		}
	}

	// Fallback - a translation directory with at least one language file
	for _, name := range TranslationDirNames {
		dir := filepath.Join(path, name)
		if pi.fs.IsDir(dir) && pi.hasTranslationFiles(dir) {
			return true, name + "/"
		}
	}

	return false, ""
}

func (pi *ProjectInitializer) hasTranslationFiles(dir string) bool {
	entries, err := pi.fs.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !e.IsDir() && pathutil.IsTranslationFile(e.Name()) {
			return true
		}
	}
	return false
}

// FindProjectRoot walks up the directory tree from startPath to find the project root.
//
// Priority order:
// 1. i18nsync config files - searched all the way up first
// 2. Other project markers and translation directories - nearest wins
func (pi *ProjectInitializer) FindProjectRoot(startPath string) (string, string, error) {
	if startPath == "" {
		return "", "", errors.New("startPath cannot be empty")
	}

	currentPath := startPath
	for {
		for _, marker := range ConfigMarkers {
			if pi.fs.Exists(filepath.Join(currentPath, marker)) {
				return currentPath, marker, nil
			}
		}
		parentPath := filepath.Dir(currentPath)
		if parentPath == currentPath {
			break
		}
		currentPath = parentPath
	}

	currentPath = startPath
	for {
		if isRoot, marker := pi.DetectProjectRoot(currentPath); isRoot {
			return currentPath, marker, nil
		}
		parentPath := filepath.Dir(currentPath)
		if parentPath == currentPath {
			break
		}
		currentPath = parentPath
	}

	return "", "", fmt.Errorf("no project root detected from path: %s", startPath)
}

// GetProjectRoot detects the project root starting from startPath, or from the
// working directory when it is empty
func GetProjectRoot(startPath string) (string, string, error) {
	if startPath == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", "", fmt.Errorf("failed to get current working directory: %w", err)
		}
		startPath = cwd
	}
	if abs, err := filepath.Abs(startPath); err == nil {
		startPath = abs
	}
	return NewProjectInitializer().FindProjectRoot(startPath)
}
