package mcp

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	diagnosticsDirName = "i18nsync-mcp-logs"
	// keepLogFiles bounds how many session logs accumulate in the temp dir
	keepLogFiles = 20
)

// DiagnosticLogger writes server, watcher and auto-sync diagnostics to a
// per-session file. In MCP mode stdout carries the protocol and nothing may be
// written to it.
type DiagnosticLogger struct {
	mu       sync.Mutex
	file     *os.File
	logger   *log.Logger
	filePath string
}

// NewDiagnosticLogger opens $TMPDIR/i18nsync-mcp-logs/mcp-<time>-<pid>.log in
// MCP mode and prunes older session logs. Outside MCP mode it logs to stderr.
// A log file that cannot be created disables logging.
func NewDiagnosticLogger(isMCP bool) *DiagnosticLogger {
	if !isMCP {
		return &DiagnosticLogger{logger: log.New(os.Stderr, "[mcp] ", log.LstdFlags)}
	}
	return newFileLogger(filepath.Join(os.TempDir(), diagnosticsDirName))
}

func newFileLogger(dir string) *DiagnosticLogger {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &DiagnosticLogger{logger: log.New(io.Discard, "", 0)}
	}
	pruneLogs(dir, keepLogFiles-1)

	name := fmt.Sprintf("mcp-%s-%d.log", time.Now().Format("2006-01-02T150405"), os.Getpid())
	path := filepath.Join(dir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return &DiagnosticLogger{logger: log.New(io.Discard, "", 0)}
	}
	return &DiagnosticLogger{
		file:     file,
		filePath: path,
		logger:   log.New(file, "", log.LstdFlags|log.Lmicroseconds),
	}
}

// pruneLogs removes the oldest session logs so that at most keep remain.
// Names sort chronologically.
func pruneLogs(dir string, keep int) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	var logs []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "mcp-") && strings.HasSuffix(e.Name(), ".log") {
			logs = append(logs, e.Name())
		}
	}
	if len(logs) <= keep {
		return
	}
	sort.Strings(logs)
	for _, name := range logs[:len(logs)-keep] {
		_ = os.Remove(filepath.Join(dir, name))
	}
}

// Logger exposes the underlying *log.Logger so the watcher and the auto-sync
// writer log to the same file
func (dl *DiagnosticLogger) Logger() *log.Logger {
	if dl == nil || dl.logger == nil {
		return log.New(io.Discard, "", 0)
	}
	return dl.logger
}

// Printf logs a diagnostic message
func (dl *DiagnosticLogger) Printf(format string, v ...interface{}) {
	if dl == nil || dl.logger == nil {
		return
	}
	dl.mu.Lock()
	defer dl.mu.Unlock()
	dl.logger.Printf(format, v...)
}

// Errorf logs a message prefixed with ERROR
func (dl *DiagnosticLogger) Errorf(format string, v ...interface{}) {
	dl.Printf("ERROR: "+format, v...)
}

// ToolCall records one tool invocation and its outcome
func (dl *DiagnosticLogger) ToolCall(name string, elapsed time.Duration, isError bool, err error) {
	switch {
	case err != nil:
		dl.Errorf("tool %s failed after %v: %v", name, elapsed, err)
	case isError:
		dl.Printf("tool %s returned an error result in %v", name, elapsed)
	default:
		dl.Printf("tool %s ok in %v", name, elapsed)
	}
}

// Close closes the log file
func (dl *DiagnosticLogger) Close() error {
	if dl == nil {
		return nil
	}
	dl.mu.Lock()
	defer dl.mu.Unlock()
	if dl.file == nil {
		return nil
	}
	err := dl.file.Close()
	dl.file = nil
	return err
}

// GetLogPath returns the log file path, empty when not logging to a file
func (dl *DiagnosticLogger) GetLogPath() string {
	if dl == nil {
		return ""
	}
	return dl.filePath
}

// NoOpLogger discards everything
var NoOpLogger = &DiagnosticLogger{
	logger: log.New(io.Discard, "", 0),
}
