// Package autosync writes in-memory translation changes back to the
// per-language JSON files.
//
// A Writer listens for index mutations and runs a sync pass once the index has
// been quiet for the debounce window. A file change observed by the watcher
// before the window elapses cancels the pending pass: a hand edit on disk
// always wins over a pending in-memory write. Writes are minimal text edits so
// comments and formatting outside the touched keys survive.
package autosync

import (
	"context"
	"errors"
	"io"
	"log"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/standardbeagle/i18nsync/internal/debounce"
	"github.com/standardbeagle/i18nsync/internal/debug"
	"github.com/standardbeagle/i18nsync/internal/events"
	"github.com/standardbeagle/i18nsync/internal/index"
	"github.com/standardbeagle/i18nsync/internal/metrics"
	"github.com/standardbeagle/i18nsync/pkg/pathutil"
)

const DefaultDebounce = 500 * time.Millisecond

// Options configures a Writer. Dir is required.
type Options struct {
	Dir      string
	Debounce time.Duration
	// IndentSize and UseTabs apply only when a file gives no indentation hint
	IndentSize int
	UseTabs    bool

	Metrics *metrics.Collector
	Logger  *log.Logger
}

// Stats contains writer counters
type Stats struct {
	Running   bool      `json:"running"`
	Pending   bool      `json:"pending"`
	Passes    int64     `json:"passes"`
	Writes    int64     `json:"writes"`
	Conflicts int64     `json:"conflicts"`
	Cancelled int64     `json:"cancelled"`
	LastSync  time.Time `json:"lastSync,omitempty"`
}

// deletion is a key removed from the index since the last pass. An empty
// language means every language.
type deletion struct {
	keyPath  string
	language string
}

// Writer syncs the index to disk
type Writer struct {
	opts  Options
	index *index.Index
	log   *log.Logger

	timer *debounce.Timer

	lifecycle   sync.Mutex
	unsubscribe func()

	// passMu serializes sync passes
	passMu sync.Mutex

	mu        sync.Mutex
	deleted   map[deletion]struct{}
	lastWrite map[string]uint64 // path -> xxhash of the text we last wrote

	passes    atomic.Int64
	writes    atomic.Int64
	conflicts atomic.Int64
	cancelled atomic.Int64
	lastSync  atomic.Int64
}

// New creates a stopped writer for ix
func New(ix *index.Index, opts Options) (*Writer, error) {
	if ix == nil {
		return nil, errors.New("autosync requires an index")
	}
	if opts.Dir == "" {
		return nil, errors.New("autosync requires a translation directory")
	}
	dir, err := filepath.Abs(opts.Dir)
	if err != nil {
		return nil, err
	}
	opts.Dir = dir
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	w := &Writer{
		opts:      opts,
		index:     ix,
		log:       logger,
		deleted:   make(map[deletion]struct{}),
		lastWrite: make(map[string]uint64),
	}
	w.timer = debounce.New(opts.Debounce, func() {
		w.runPass(context.Background())
	})
	return w, nil
}

// Dir returns the absolute translation directory
func (w *Writer) Dir() string {
	return w.opts.Dir
}

// FilePathFor returns the default file for a language
func (w *Writer) FilePathFor(language string) string {
	return filepath.Join(w.opts.Dir, language+pathutil.TranslationExt)
}

// Start subscribes to the index bus. Calling it on a running writer is a no-op.
func (w *Writer) Start() {
	w.lifecycle.Lock()
	defer w.lifecycle.Unlock()

	if w.unsubscribe != nil {
		return
	}
	w.unsubscribe = w.index.Bus().Subscribe(w.handle,
		events.Kinds(events.KindSet, events.KindDelete, events.KindFileProcessed))
	debug.LogSync("auto-sync started for %s\n", w.opts.Dir)
}

// Stop unsubscribes and drops a pending pass without flushing it. A pass that
// is already running completes first. Safe to call more than once.
func (w *Writer) Stop() {
	w.lifecycle.Lock()
	defer w.lifecycle.Unlock()

	if w.unsubscribe == nil {
		return
	}
	w.unsubscribe()
	w.unsubscribe = nil
	if w.timer.Cancel() {
		debug.LogSync("auto-sync stopped with a pending pass, dropped\n")
	}
	// wait for a fire that is already running
	w.passMu.Lock()
	defer w.passMu.Unlock()
}

// Close stops the writer permanently
func (w *Writer) Close() {
	w.Stop()
	w.timer.Stop()
}

// Running reports whether the writer is subscribed
func (w *Writer) Running() bool {
	w.lifecycle.Lock()
	defer w.lifecycle.Unlock()
	return w.unsubscribe != nil
}

// Pending reports whether a pass is scheduled
func (w *Writer) Pending() bool {
	return w.timer.Pending()
}

// SyncNow cancels the pending timer and runs a pass immediately
func (w *Writer) SyncNow(ctx context.Context) SyncReport {
	w.timer.Cancel()
	return w.runPass(ctx)
}

// Stats returns a snapshot of the writer counters
func (w *Writer) Stats() Stats {
	var last time.Time
	if ns := w.lastSync.Load(); ns != 0 {
		last = time.Unix(0, ns)
	}
	return Stats{
		Running:   w.Running(),
		Pending:   w.timer.Pending(),
		Passes:    w.passes.Load(),
		Writes:    w.writes.Load(),
		Conflicts: w.conflicts.Load(),
		Cancelled: w.cancelled.Load(),
		LastSync:  last,
	}
}

// handle runs on the publisher's goroutine and must not block
func (w *Writer) handle(e events.Event) {
	switch ev := e.(type) {
	case events.Set:
		w.timer.Schedule()
	case events.Delete:
		w.mu.Lock()
		w.deleted[deletion{keyPath: ev.KeyPath, language: ev.Language}] = struct{}{}
		w.mu.Unlock()
		w.timer.Schedule()
	case events.FileProcessed:
		w.mu.Lock()
		own := ev.ContentHash != 0 && w.lastWrite[ev.Path] == ev.ContentHash
		if !own {
			// disk is the truth for this language now
			for d := range w.deleted {
				if d.language == ev.Language {
					delete(w.deleted, d)
				}
			}
		}
		w.mu.Unlock()

		if own {
			debug.LogSync("ignoring echo of our own write to %s\n", ev.Path)
			return
		}
		if w.timer.Cancel() {
			w.cancelled.Add(1)
			w.log.Printf("autosync: %s changed on disk, pending write cancelled", ev.Path)
		}
	}
}

// takeDeletions returns and clears the pending deletions
func (w *Writer) takeDeletions() []deletion {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]deletion, 0, len(w.deleted))
	for d := range w.deleted {
		out = append(out, d)
	}
	w.deleted = make(map[deletion]struct{})
	return out
}

func (w *Writer) recordWrite(path string, hash uint64) {
	w.mu.Lock()
	w.lastWrite[path] = hash
	w.mu.Unlock()
}
