// Package debug is the component trace log for the index, watcher, auto-sync
// writer and MCP server. Tracing is off unless enabled by build flag, by
// I18NSYNC_DEBUG or by Enable. In MCP mode stdout belongs to the protocol, so
// trace lines only reach a log file opened with InitDebugLogFile.
package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Build flag for debug mode
// go build -ldflags "-X github.com/standardbeagle/i18nsync/internal/debug.EnableDebug=true"
var EnableDebug = "false"

// EnvDebug enables tracing: "1", "true" or "all" for every component, or a
// comma-separated list such as "watch,sync"
const EnvDebug = "I18NSYNC_DEBUG"

// Components
const (
	Index = "index"
	Watch = "watch"
	Sync  = "sync"
	MCP   = "mcp"
)

const timeLayout = "15:04:05.000"

var (
	mcpMode atomic.Bool

	mu      sync.Mutex
	output  io.Writer
	logFile *os.File
	// enabled is nil when nothing was requested explicitly; the build flag and
	// environment decide then. An empty non-nil map means every component.
	enabled map[string]bool
)

// SetMCPMode marks the process as an MCP stdio server
func SetMCPMode(on bool) {
	mcpMode.Store(on)
}

// MCPMode reports whether SetMCPMode(true) was called
func MCPMode() bool {
	return mcpMode.Load()
}

// Enable turns tracing on for the named components, or for all of them when
// none are named
func Enable(components ...string) {
	mu.Lock()
	defer mu.Unlock()
	enabled = parseComponents(components)
}

// Disable turns tracing off until Enable is called again
func Disable() {
	mu.Lock()
	defer mu.Unlock()
	enabled = map[string]bool{"": false}
}

// SetDebugOutput sets the trace writer. Pass nil to drop trace output.
func SetDebugOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// InitDebugLogFile opens a timestamped trace file under the temp dir, makes it
// the trace writer and returns its path. Call CloseDebugLog when done.
func InitDebugLogFile() (string, error) {
	mu.Lock()
	defer mu.Unlock()

	logDir := filepath.Join(os.TempDir(), "i18nsync-debug-logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create debug log directory: %w", err)
	}
	logPath := filepath.Join(logDir, fmt.Sprintf("debug-%s-%d.log", time.Now().Format("2006-01-02T150405"), os.Getpid()))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create debug log file: %w", err)
	}
	if logFile != nil {
		logFile.Close()
	}
	logFile = file
	output = file
	return logPath, nil
}

// CloseDebugLog closes the trace file if one is open
func CloseDebugLog() error {
	mu.Lock()
	defer mu.Unlock()

	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	if output == io.Writer(logFile) {
		output = nil
	}
	logFile = nil
	return err
}

func parseComponents(list []string) map[string]bool {
	m := make(map[string]bool)
	for _, item := range list {
		for _, c := range strings.Split(item, ",") {
			c = strings.ToLower(strings.TrimSpace(c))
			if c == "" || c == "all" {
				continue
			}
			m[c] = true
		}
	}
	return m
}

func envComponents() map[string]bool {
	v := strings.TrimSpace(os.Getenv(EnvDebug))
	if v == "" {
		// DEBUG=1 is still honoured for every component
		if d := os.Getenv("DEBUG"); d == "1" || d == "true" {
			return map[string]bool{}
		}
		return nil
	}
	switch strings.ToLower(v) {
	case "0", "false", "off":
		return nil
	case "1", "true", "all":
		return map[string]bool{}
	}
	return parseComponents([]string{v})
}

// Enabled reports whether trace lines for component would be written
func Enabled(component string) bool {
	mu.Lock()
	set := enabled
	w := output
	fileOut := logFile != nil && w == io.Writer(logFile)
	mu.Unlock()

	if w == nil {
		return false
	}
	if MCPMode() && !fileOut {
		return false
	}
	if set == nil {
		if EnableDebug == "true" {
			return true
		}
		set = envComponents()
		if set == nil {
			return false
		}
	}
	if off, ok := set[""]; ok && !off {
		return false
	}
	return len(set) == 0 || set[strings.ToLower(component)]
}

func write(prefix, format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if output == nil {
		return
	}
	fmt.Fprintf(output, "%s %s "+format, append([]interface{}{time.Now().Format(timeLayout), prefix}, args...)...)
}

// Printf writes an untagged trace line when every component is enabled
func Printf(format string, args ...interface{}) {
	if Enabled("") {
		write("[DEBUG]", format, args...)
	}
}

// Log writes a trace line tagged with component
func Log(component, format string, args ...interface{}) {
	if Enabled(component) {
		write("[DEBUG:"+strings.ToUpper(component)+"]", format, args...)
	}
}

// LogIndex traces index mutations and queries
func LogIndex(format string, args ...interface{}) { Log(Index, format, args...) }

// LogWatch traces the file watcher
func LogWatch(format string, args ...interface{}) { Log(Watch, format, args...) }

// LogSync traces auto-sync passes and writes
func LogSync(format string, args ...interface{}) { Log(Sync, format, args...) }

// LogMCP traces MCP requests
func LogMCP(format string, args ...interface{}) { Log(MCP, format, args...) }

// Fatal records a fatal condition in the trace log and returns it as an error
// for the caller to report. Nothing is written in MCP mode unless tracing goes
// to a file.
func Fatal(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	mu.Lock()
	w := output
	fileOut := logFile != nil && w == io.Writer(logFile)
	mu.Unlock()
	if w != nil && (!MCPMode() || fileOut) {
		write("[FATAL]", "%s", msg)
	}
	return fmt.Errorf("fatal error: %s", strings.TrimRight(msg, "\n"))
}
