// Package testhelpers provides shared utilities for testing the translation sync engine
package testhelpers

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// WaitFor waits for a condition to become true with timeout
// Usage:
//
//	testhelpers.WaitFor(t, func() bool {
//	    return w.State() == watcher.StateWatching
//	}, 2*time.Second)
func WaitFor(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		if condition() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("Condition not met within %v", timeout)
			return
		}
	}
}

// Never asserts that condition stays false for the whole window
func Never(t *testing.T, condition func() bool, window time.Duration) {
	t.Helper()

	deadline := time.Now().Add(window)
	for time.Now().Before(deadline) {
		if condition() {
			t.Fatalf("Condition became true within %v", window)
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// TranslationDir creates a temporary translations directory holding the
// given files, keyed by path relative to the directory
//
//	dir := testhelpers.TranslationDir(t, map[string]string{
//	    "en.json": `{"common": {"ok": "OK"}}`,
//	})
func TranslationDir(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for rel, content := range files {
		WriteFile(t, filepath.Join(dir, rel), content)
	}
	return dir
}

// WriteFile writes content, creating parent directories
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// ReadFile returns the file content or fails the test
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

// TestData provides common translation fixtures
var TestData = struct {
	English string
	Spanish string
}{
	English: `{
  "common": {
    "ok": "OK",
    "cancel": "Cancel"
  },
  "auth": {
    "login": {
      "title": "Sign in",
      "submit": "Log in"
    }
  }
}
`,
	Spanish: `{
  "common": {
    "ok": "Aceptar",
    "cancel": "Cancelar"
  },
  "auth": {
    "login": {
      "title": "Iniciar sesión"
    }
  }
}
`,
}
