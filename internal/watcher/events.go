package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/i18nsync/internal/debounce"
	"github.com/standardbeagle/i18nsync/internal/debug"
	syncerrors "github.com/standardbeagle/i18nsync/internal/errors"
)

// addWatches adds root and its subdirectories within MaxDepth to the watch
// set and returns the translation files found below root
func (w *Watcher) addWatches(fsw *fsnotify.Watcher, root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			if d.Type().IsRegular() && w.shouldProcessFile(path) {
				files = append(files, path)
			}
			return nil
		}
		if !w.shouldWatchDir(path) {
			return filepath.SkipDir
		}

		w.dirsMu.Lock()
		known := w.dirs[path]
		w.dirsMu.Unlock()
		if known {
			return nil
		}
		if err := fsw.Add(path); err != nil {
			if path == root {
				return err
			}
			w.log.Printf("watcher: failed to add watch for %s: %v", path, err)
			return nil
		}
		w.dirsMu.Lock()
		w.dirs[path] = true
		w.dirsMu.Unlock()
		debug.LogWatch("watching directory %s\n", path)
		return nil
	})
	return files, err
}

func (w *Watcher) isWatchedDir(path string) bool {
	w.dirsMu.Lock()
	defer w.dirsMu.Unlock()
	return w.dirs[path]
}

// forgetDir drops path and everything below it from the watch set
func (w *Watcher) forgetDir(fsw *fsnotify.Watcher, path string) {
	prefix := path + string(filepath.Separator)
	w.dirsMu.Lock()
	var gone []string
	for d := range w.dirs {
		if d == path || (len(d) > len(prefix) && d[:len(prefix)] == prefix) {
			delete(w.dirs, d)
			gone = append(gone, d)
		}
	}
	w.dirsMu.Unlock()

	for _, d := range gone {
		// fsnotify already dropped watches on deleted directories
		_ = fsw.Remove(d)
	}
}

// processEvents processes file system events until ctx is cancelled or the
// fsnotify watcher is closed
func (w *Watcher) processEvents(ctx context.Context, fsw *fsnotify.Watcher, deb *debounce.Keyed) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(fsw, deb, event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.recordError(w.opts.Dir, syncerrors.NewFileWatchError("watch", w.opts.Dir, err))
		}
	}
}

// handleEvent handles a single file system event
func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, deb *debounce.Keyed, event fsnotify.Event) {
	path := filepath.Clean(event.Name)
	debug.LogWatch("received %v for %s\n", event.Op, path)

	// Renames are unlinks of the old name; the new name arrives as a create
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		if w.isWatchedDir(path) {
			w.forgetDir(fsw, path)
			w.removeTree(path)
			return
		}
		if w.shouldProcessFile(path) {
			deb.Cancel(path)
			w.removeFile(path)
		}
		return
	}

	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) && w.shouldProcessFile(path) {
			deb.Cancel(path)
			w.removeFile(path)
		}
		return
	}

	if info.IsDir() {
		if event.Has(fsnotify.Create) && w.shouldWatchDir(path) {
			// Files may land in a new directory before its watch exists
			files, err := w.addWatches(fsw, path)
			if err != nil {
				w.recordError(path, syncerrors.NewFileWatchError("watch", path, err))
				return
			}
			for _, f := range files {
				deb.Schedule(f)
			}
		}
		return
	}

	if !w.shouldProcessFile(path) {
		return
	}
	deb.Schedule(path)
}
