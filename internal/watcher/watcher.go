// Package watcher keeps the translation index in step with a directory of
// per-language JSON files.
//
// A Watcher moves through stopped → initializing → watching → stopped. While
// initializing it reads and applies every translation file synchronously, so
// Start returns with the index reflecting disk. While watching, add and change
// notifications are debounced per file and unlinks are applied immediately.
// Each applied file replaces every entry previously attributed to it, making
// the file the ground truth for its own language.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/i18nsync/internal/debounce"
	"github.com/standardbeagle/i18nsync/internal/debug"
	syncerrors "github.com/standardbeagle/i18nsync/internal/errors"
	"github.com/standardbeagle/i18nsync/internal/events"
	"github.com/standardbeagle/i18nsync/internal/index"
	"github.com/standardbeagle/i18nsync/internal/metrics"
	"github.com/standardbeagle/i18nsync/pkg/pathutil"
)

const (
	DefaultDebounce    = 300 * time.Millisecond
	DefaultMaxFileSize = 10 * 1024 * 1024
	DefaultMaxDepth    = 2
)

// State is the lifecycle state of a Watcher
type State int32

const (
	StateStopped State = iota
	StateInitializing
	StateWatching
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateInitializing:
		return "initializing"
	case StateWatching:
		return "watching"
	default:
		return "unknown"
	}
}

// Options configures a Watcher. Dir is required; zero values select defaults.
type Options struct {
	Dir string
	// MaxDepth is the number of directory levels below Dir that are scanned
	MaxDepth int
	// Include and Ignore are doublestar globs matched against slash-separated
	// paths relative to Dir
	Include     []string
	Ignore      []string
	Debounce    time.Duration
	MaxFileSize int64
	// Workers bounds the parallel read+parse of a full scan
	Workers int

	Metrics *metrics.Collector
	Logger  *log.Logger
}

// Stats contains watcher counters
type Stats struct {
	State           string    `json:"state"`
	Dir             string    `json:"dir"`
	FilesTracked    int       `json:"filesTracked"`
	EventsProcessed int64     `json:"eventsProcessed"`
	ErrorCount      int64     `json:"errorCount"`
	PendingFiles    int       `json:"pendingFiles"`
	LastEventTime   time.Time `json:"lastEventTime,omitempty"`
}

// Watcher applies translation files to an index
type Watcher struct {
	opts  Options
	index *index.Index
	bus   *events.Bus
	log   *log.Logger

	// lifecycle
	mu        sync.Mutex
	state     atomic.Int32
	fsw       *fsnotify.Watcher
	debouncer *debounce.Keyed
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	dirsMu sync.Mutex
	dirs   map[string]bool

	// applyMu serializes application of files to the index
	applyMu sync.Mutex
	tracked map[string]uint64 // path -> xxhash of the applied content

	eventsProcessed atomic.Int64
	errorCount      atomic.Int64
	lastEvent       atomic.Int64
}

// New creates a stopped watcher publishing on the index's bus
func New(ix *index.Index, opts Options) (*Watcher, error) {
	if ix == nil {
		return nil, errors.New("watcher requires an index")
	}
	if opts.Dir == "" {
		return nil, syncerrors.NewFileWatchError("init", opts.Dir, syncerrors.ErrDirectoryMissing)
	}
	dir, err := filepath.Abs(opts.Dir)
	if err != nil {
		return nil, syncerrors.NewFileWatchError("init", opts.Dir, err)
	}
	opts.Dir = dir

	if opts.MaxDepth < 0 {
		opts.MaxDepth = 0
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	if len(opts.Include) == 0 {
		opts.Include = []string{"**/*.json"}
	}
	if opts.Workers <= 0 {
		opts.Workers = max(1, runtime.NumCPU()-1)
	}
	for _, p := range append(append([]string{}, opts.Include...), opts.Ignore...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid glob pattern %q", p)
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	return &Watcher{
		opts:    opts,
		index:   ix,
		bus:     ix.Bus(),
		log:     logger,
		tracked: make(map[string]uint64),
		dirs:    make(map[string]bool),
	}, nil
}

// Dir returns the absolute watched directory
func (w *Watcher) Dir() string {
	return w.opts.Dir
}

// State returns the current lifecycle state
func (w *Watcher) State() State {
	return State(w.state.Load())
}

// Start scans the directory, publishes Ready and begins watching. It returns
// once the initial scan has been applied. ctx bounds the scan only; watching
// continues until Stop.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.State() != StateStopped {
		return nil
	}

	info, err := os.Stat(w.opts.Dir)
	if err != nil || !info.IsDir() {
		if err == nil || os.IsNotExist(err) {
			err = syncerrors.ErrDirectoryMissing
		}
		return syncerrors.NewFileWatchError("start", w.opts.Dir, err)
	}

	w.state.Store(int32(StateInitializing))
	debug.LogWatch("starting watcher for %s\n", w.opts.Dir)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.state.Store(int32(StateStopped))
		return syncerrors.NewFileWatchError("start", w.opts.Dir, err)
	}
	w.fsw = fsw
	w.dirsMu.Lock()
	w.dirs = make(map[string]bool)
	w.dirsMu.Unlock()

	// Watches go in before the scan so nothing written during it is missed
	if _, err := w.addWatches(fsw, w.opts.Dir); err != nil {
		fsw.Close()
		w.fsw = nil
		w.state.Store(int32(StateStopped))
		return syncerrors.NewFileWatchError("start", w.opts.Dir, err)
	}

	res, err := w.Scan(ctx)
	if err != nil {
		fsw.Close()
		w.fsw = nil
		w.state.Store(int32(StateStopped))
		return err
	}

	deb := debounce.NewKeyed(w.opts.Debounce, w.processFile)
	w.debouncer = deb
	loopCtx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel

	w.wg.Add(1)
	go w.processEvents(loopCtx, fsw, deb)

	w.state.Store(int32(StateWatching))
	w.bus.Publish(events.Ready{Files: res.Files, Keys: w.index.Len()})
	w.log.Printf("watching %s (%d files, %d keys)", w.opts.Dir, res.Files, w.index.Len())
	return nil
}

// Stop stops watching and drops pending debounced changes. Safe to call more than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.State() == StateStopped {
		return nil
	}

	if w.cancel != nil {
		w.cancel()
	}
	var closeErr error
	if w.fsw != nil {
		closeErr = w.fsw.Close()
	}
	w.wg.Wait()
	if w.debouncer != nil {
		w.debouncer.Stop()
	}

	w.fsw = nil
	w.debouncer = nil
	w.cancel = nil
	w.state.Store(int32(StateStopped))
	debug.LogWatch("watcher stopped for %s\n", w.opts.Dir)

	if closeErr != nil {
		return syncerrors.NewFileWatchError("stop", w.opts.Dir, closeErr)
	}
	return nil
}

// Stats returns a snapshot of the watcher counters
func (w *Watcher) Stats() Stats {
	w.applyMu.Lock()
	tracked := len(w.tracked)
	w.applyMu.Unlock()

	pending := 0
	w.mu.Lock()
	if w.debouncer != nil {
		pending = w.debouncer.Pending()
	}
	w.mu.Unlock()

	var last time.Time
	if ns := w.lastEvent.Load(); ns != 0 {
		last = time.Unix(0, ns)
	}
	return Stats{
		State:           w.State().String(),
		Dir:             w.opts.Dir,
		FilesTracked:    tracked,
		EventsProcessed: w.eventsProcessed.Load(),
		ErrorCount:      w.errorCount.Load(),
		PendingFiles:    pending,
		LastEventTime:   last,
	}
}

// TrackedFiles returns the paths currently applied to the index
func (w *Watcher) TrackedFiles() []string {
	w.applyMu.Lock()
	defer w.applyMu.Unlock()
	out := make([]string, 0, len(w.tracked))
	for p := range w.tracked {
		out = append(out, p)
	}
	return out
}

// relPath returns the slash-separated path relative to Dir, or false when
// path lies outside it
func (w *Watcher) relPath(path string) (string, bool) {
	rel, err := filepath.Rel(w.opts.Dir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func depthOf(rel string) int {
	if rel == "." || rel == "" {
		return 0
	}
	return strings.Count(rel, "/") + 1
}

func (w *Watcher) ignored(rel string) bool {
	for _, pattern := range w.opts.Ignore {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// shouldProcessFile checks depth, ignore and include globs and the file name
func (w *Watcher) shouldProcessFile(path string) bool {
	rel, ok := w.relPath(path)
	if !ok || rel == "." {
		return false
	}
	// files directly in Dir have depth 1
	if depthOf(rel)-1 > w.opts.MaxDepth {
		return false
	}
	if !pathutil.IsTranslationFile(rel) || w.ignored(rel) {
		return false
	}
	for _, pattern := range w.opts.Include {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// shouldWatchDir checks depth and ignore globs for a directory
func (w *Watcher) shouldWatchDir(path string) bool {
	rel, ok := w.relPath(path)
	if !ok {
		return false
	}
	if rel == "." {
		return true
	}
	if depthOf(rel) > w.opts.MaxDepth {
		return false
	}
	return !w.ignored(rel) && !w.ignored(rel+"/")
}

func (w *Watcher) recordError(path string, err error) {
	w.errorCount.Add(1)
	w.opts.Metrics.WatchError()
	w.log.Printf("watcher: %v", err)
	debug.LogWatch("error for %s: %v\n", path, err)
	w.bus.Publish(events.WatchError{Path: path, Err: err})
}

func (w *Watcher) markEvent() {
	w.eventsProcessed.Add(1)
	w.lastEvent.Store(time.Now().UnixNano())
}
