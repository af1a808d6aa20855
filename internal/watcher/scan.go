package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/i18nsync/internal/debug"
	syncerrors "github.com/standardbeagle/i18nsync/internal/errors"
	"github.com/standardbeagle/i18nsync/internal/events"
	"github.com/standardbeagle/i18nsync/internal/jsonedit"
	"github.com/standardbeagle/i18nsync/internal/types"
	"github.com/standardbeagle/i18nsync/pkg/pathutil"
)

// ScanResult summarizes a full directory scan
type ScanResult struct {
	Files int `json:"files"`
	Keys  int `json:"keys"`
	// Unchanged counts files whose content matched what was last applied
	Unchanged int     `json:"unchanged"`
	Removed   int     `json:"removed"`
	Errors    []error `json:"-"`
}

// parsedFile is the outcome of reading one translation file
type parsedFile struct {
	path     string
	language string
	hash     uint64
	leaves   []types.Leaf
	err      error
}

// Scan reads every translation file under Dir and applies it to the index.
// Files are read and parsed in parallel and applied in path order. Files that
// were applied earlier but no longer exist are removed from the index. A file
// that cannot be read or parsed is reported and keeps its previous entries.
// A file whose content is unchanged since it was last applied is left alone and
// publishes nothing. Scan works whether or not the watcher is running.
func (w *Watcher) Scan(ctx context.Context) (ScanResult, error) {
	var res ScanResult

	paths, err := w.discover()
	if err != nil {
		return res, syncerrors.NewFileWatchError("scan", w.opts.Dir, err)
	}

	parsed := make([]parsedFile, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.opts.Workers)
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			parsed[i] = w.readFile(p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}

	w.applyMu.Lock()
	seen := make(map[string]bool, len(parsed))
	var evs []events.FileProcessed
	for _, pf := range parsed {
		seen[pf.path] = true
		if pf.err != nil {
			res.Errors = append(res.Errors, pf.err)
			continue
		}
		if prev, ok := w.tracked[pf.path]; ok && prev == pf.hash && w.index.HasSource(pf.path, pf.language) {
			res.Files++
			res.Unchanged++
			res.Keys += len(pf.leaves)
			continue
		}
		ev, err := w.applyLocked(pf)
		if err != nil {
			res.Errors = append(res.Errors, err)
			continue
		}
		res.Files++
		res.Keys += ev.Keys
		evs = append(evs, ev)
	}
	for path := range w.tracked {
		if seen[path] {
			continue
		}
		if ev, ok := w.removeLocked(path); ok {
			res.Removed++
			evs = append(evs, ev)
		}
	}
	w.applyMu.Unlock()

	for _, err := range res.Errors {
		var path string
		var fwe *syncerrors.FileWatchError
		if errors.As(err, &fwe) {
			path = fwe.Path
		}
		w.recordError(path, err)
	}
	for _, ev := range evs {
		w.opts.Metrics.WatchEvent(string(ev.Type))
		w.bus.Publish(ev)
	}
	debug.LogWatch("scan of %s: %d files (%d unchanged), %d keys, %d removed, %d errors\n",
		w.opts.Dir, res.Files, res.Unchanged, res.Keys, res.Removed, len(res.Errors))
	return res, nil
}

// discover walks Dir up to MaxDepth and returns matching files sorted
func (w *Watcher) discover() ([]string, error) {
	var out []string
	err := filepath.WalkDir(w.opts.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == w.opts.Dir {
				return err
			}
			return nil
		}
		if d.IsDir() {
			if !w.shouldWatchDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && w.shouldProcessFile(path) {
			out = append(out, path)
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		err = syncerrors.ErrDirectoryMissing
	}
	sort.Strings(out)
	return out, err
}

// readFile reads, fingerprints, parses and flattens one file
func (w *Watcher) readFile(path string) parsedFile {
	pf := parsedFile{path: path}
	lang, ok := pathutil.LanguageFromPath(path)
	if !ok {
		pf.err = syncerrors.NewFileWatchError("read", path, fmt.Errorf("not a translation file"))
		return pf
	}
	pf.language = lang

	info, err := os.Stat(path)
	if err != nil {
		pf.err = syncerrors.NewFileWatchError("read", path, err)
		return pf
	}
	if info.Size() > w.opts.MaxFileSize {
		pf.err = syncerrors.NewFileWatchError("read", path,
			fmt.Errorf("file size %d exceeds limit of %d bytes", info.Size(), w.opts.MaxFileSize))
		return pf
	}

	data, err := os.ReadFile(path)
	if err != nil {
		pf.err = syncerrors.NewFileWatchError("read", path, err)
		return pf
	}
	pf.hash = xxhash.Sum64(data)

	doc, err := jsonedit.Parse(string(data))
	if errors.Is(err, jsonedit.ErrEmptyDocument) {
		// A blank file is a language with no keys yet
		return pf
	}
	if err != nil {
		pf.err = syncerrors.NewParseError(path, err)
		return pf
	}

	leaves, skipped := doc.Flatten()
	for _, s := range skipped {
		if s.KeyPath == "" {
			w.log.Printf("watcher: %s: root is %s, expected an object", path, s.Kind)
			continue
		}
		if s.BadName {
			w.log.Printf("watcher: %s:%d: skipping %q, member names may only use letters, digits, '_' and '-'", path, s.Line, s.KeyPath)
			continue
		}
		w.log.Printf("watcher: %s:%d: skipping %s at %q, only strings, numbers and booleans are translations", path, s.Line, s.Kind, s.KeyPath)
	}
	pf.leaves = leaves
	return pf
}

// applyLocked replaces the file's entries in the index. applyMu must be held.
func (w *Watcher) applyLocked(pf parsedFile) (events.FileProcessed, error) {
	typ := events.FileAdd
	if _, ok := w.tracked[pf.path]; ok {
		typ = events.FileChange
	}

	res, err := w.index.ReplaceSource(pf.path, pf.language, pf.leaves)
	if err != nil {
		return events.FileProcessed{}, err
	}
	for _, rej := range res.Rejected {
		w.log.Printf("watcher: %s: %v", pf.path, rej)
	}
	w.tracked[pf.path] = pf.hash
	w.markEvent()

	debug.LogWatch("%s %s: +%d ~%d -%d\n", typ, pf.path, res.Added, res.Updated, res.Removed)
	return events.FileProcessed{
		Type:        typ,
		Path:        pf.path,
		Language:    pf.language,
		Timestamp:   time.Now(),
		ContentHash: pf.hash,
		Keys:        res.Added + res.Updated + res.Unchanged,
	}, nil
}

// removeLocked drops every entry attributed to path. applyMu must be held.
func (w *Watcher) removeLocked(path string) (events.FileProcessed, bool) {
	lang, ok := pathutil.LanguageFromPath(path)
	if !ok {
		return events.FileProcessed{}, false
	}
	_, wasTracked := w.tracked[path]
	delete(w.tracked, path)
	n := w.index.RemoveSource(path, lang)
	if !wasTracked && n == 0 {
		return events.FileProcessed{}, false
	}
	w.markEvent()
	debug.LogWatch("unlink %s: -%d\n", path, n)
	return events.FileProcessed{
		Type:      events.FileUnlink,
		Path:      path,
		Language:  lang,
		Timestamp: time.Now(),
		Keys:      n,
	}, true
}

// processFile is the debounced handler for add and change notifications
func (w *Watcher) processFile(path string) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		w.removeFile(path)
		return
	}

	pf := w.readFile(path)
	if pf.err != nil {
		w.recordError(path, pf.err)
		return
	}

	w.applyMu.Lock()
	if prev, ok := w.tracked[path]; ok && prev == pf.hash {
		w.applyMu.Unlock()
		debug.LogWatch("unchanged content for %s, skipping\n", path)
		return
	}
	ev, err := w.applyLocked(pf)
	w.applyMu.Unlock()

	if err != nil {
		w.recordError(path, err)
		return
	}
	w.opts.Metrics.WatchEvent(string(ev.Type))
	w.bus.Publish(ev)
}

// removeFile applies an unlink immediately
func (w *Watcher) removeFile(path string) {
	w.applyMu.Lock()
	ev, ok := w.removeLocked(path)
	w.applyMu.Unlock()

	if ok {
		w.opts.Metrics.WatchEvent(string(ev.Type))
		w.bus.Publish(ev)
	}
}

// removeTree unlinks every tracked file below dir
func (w *Watcher) removeTree(dir string) {
	prefix := dir + string(filepath.Separator)
	w.applyMu.Lock()
	var evs []events.FileProcessed
	for path := range w.tracked {
		if len(path) > len(prefix) && path[:len(prefix)] == prefix {
			if ev, ok := w.removeLocked(path); ok {
				evs = append(evs, ev)
			}
		}
	}
	w.applyMu.Unlock()

	sort.Slice(evs, func(i, j int) bool { return evs[i].Path < evs[j].Path })
	for _, ev := range evs {
		w.opts.Metrics.WatchEvent(string(ev.Type))
		w.bus.Publish(ev)
	}
}
