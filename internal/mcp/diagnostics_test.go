package mcp

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiagnosticLogger_WritesSessionFile(t *testing.T) {
	dir := t.TempDir()
	dl := newFileLogger(dir)
	require.NotEmpty(t, dl.GetLogPath())
	assert.Equal(t, dir, filepath.Dir(dl.GetLogPath()))

	dl.Printf("indexed %d keys", 4)
	dl.ToolCall(ToolGetTranslation, 3*time.Millisecond, false, nil)
	dl.ToolCall(ToolUpdateTranslation, time.Millisecond, true, nil)
	dl.ToolCall(ToolSyncNow, time.Millisecond, false, errors.New("disk full"))
	dl.Logger().Printf("watcher: en.json skipped")
	require.NoError(t, dl.Close())
	require.NoError(t, dl.Close())

	data, err := os.ReadFile(dl.GetLogPath())
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "indexed 4 keys")
	assert.Contains(t, out, "tool get_translation ok")
	assert.Contains(t, out, "tool update_translation returned an error result")
	assert.Contains(t, out, "ERROR: tool sync_now failed")
	assert.Contains(t, out, "watcher: en.json skipped")
}

func TestPruneLogs(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, fmt.Sprintf("mcp-2026-01-0%dT000000-1.log", i+1)), nil, 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), nil, 0o644))

	pruneLogs(dir, 2)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{
		"mcp-2026-01-04T000000-1.log",
		"mcp-2026-01-05T000000-1.log",
		"other.txt",
	}, names)
}

func TestDiagnosticLogger_NilSafe(t *testing.T) {
	var dl *DiagnosticLogger
	assert.NotPanics(t, func() {
		dl.Printf("x")
		dl.Errorf("y")
		dl.ToolCall("z", 0, false, nil)
		dl.Logger().Printf("w")
	})
	assert.NoError(t, dl.Close())
	assert.Empty(t, dl.GetLogPath())
	assert.Empty(t, NoOpLogger.GetLogPath())
}
