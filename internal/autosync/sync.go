package autosync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/natefinch/atomic"

	"github.com/standardbeagle/i18nsync/internal/debug"
	syncerrors "github.com/standardbeagle/i18nsync/internal/errors"
	"github.com/standardbeagle/i18nsync/internal/jsonedit"
	"github.com/standardbeagle/i18nsync/internal/keypath"
	"github.com/standardbeagle/i18nsync/internal/types"
	"github.com/standardbeagle/i18nsync/pkg/pathutil"
)

const newFileMode = 0o644

// FileResult is the outcome of syncing one file
type FileResult struct {
	Language string `json:"language"`
	Path     string `json:"path"`
	Written  bool   `json:"written"`
	// Skipped is set when a structural conflict or unreadable file prevented any write
	Skipped    bool     `json:"skipped,omitempty"`
	Updated    int      `json:"updated"`
	Removed    int      `json:"removed"`
	Conflicts  []string `json:"conflicts,omitempty"`
	FailedKeys []string `json:"failedKeys,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// SyncReport summarizes one sync pass
type SyncReport struct {
	Files    []FileResult  `json:"files"`
	Written  int           `json:"written"`
	Skipped  int           `json:"skipped"`
	Duration time.Duration `json:"duration"`
	Errors   []error       `json:"-"`
}

// Success reports whether every file was synced without skips or key failures
func (r SyncReport) Success() bool {
	if r.Skipped > 0 || len(r.Errors) > 0 {
		return false
	}
	for _, f := range r.Files {
		if len(f.FailedKeys) > 0 {
			return false
		}
	}
	return true
}

// Err joins the errors of the pass, or returns nil
func (r SyncReport) Err() error {
	return syncerrors.NewMultiError(r.Errors).ErrorOrNil()
}

// target is one file touched by a pass
type target struct {
	path     string
	language string
	values   map[string]types.Scalar
	removals map[string]struct{}
}

// runPass writes every language of the index to its files
func (w *Writer) runPass(ctx context.Context) SyncReport {
	w.passMu.Lock()
	defer w.passMu.Unlock()

	start := time.Now()
	targets := w.plan(w.takeDeletions())

	var report SyncReport
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			report.Errors = append(report.Errors, err)
			break
		}
		res, err := w.syncFile(t)
		if err != nil {
			report.Errors = append(report.Errors, err)
			res.Error = err.Error()
		}
		if res.Written {
			report.Written++
		}
		if res.Skipped {
			report.Skipped++
		}
		report.Files = append(report.Files, res)
	}

	report.Duration = time.Since(start)
	w.passes.Add(1)
	w.lastSync.Store(time.Now().UnixNano())
	w.opts.Metrics.ObserveSync(report.Duration)
	debug.LogSync("sync pass: %d files, %d written, %d skipped in %v\n",
		len(report.Files), report.Written, report.Skipped, report.Duration)
	return report
}

// plan groups the index entries and pending deletions by target file
func (w *Writer) plan(deletions []deletion) []*target {
	targets := make(map[string]*target)
	get := func(path, lang string) *target {
		t, ok := targets[path]
		if !ok {
			t = &target{
				path:     path,
				language: lang,
				values:   make(map[string]types.Scalar),
				removals: make(map[string]struct{}),
			}
			targets[path] = t
		}
		return t
	}

	filesByLang := make(map[string][]string)
	for _, sf := range w.index.SourceFiles() {
		if w.ownsFile(sf.Path, sf.Language) {
			filesByLang[sf.Language] = append(filesByLang[sf.Language], sf.Path)
		}
	}

	languages := w.index.Languages()
	for _, lang := range languages {
		for key, entry := range w.index.EntriesForLanguage(lang) {
			path := entry.SourceFile
			if !w.ownsFile(path, lang) {
				path = w.FilePathFor(lang)
			}
			get(path, lang).values[key] = entry.Value
		}
	}

	for _, d := range deletions {
		langs := []string{d.language}
		if d.language == "" {
			langs = languages
			for lang := range filesByLang {
				langs = append(langs, lang)
			}
		}
		for _, lang := range langs {
			if w.index.Has(d.keyPath, lang) {
				continue
			}
			paths := append([]string{w.FilePathFor(lang)}, filesByLang[lang]...)
			for _, p := range paths {
				get(p, lang).removals[d.keyPath] = struct{}{}
			}
		}
	}

	out := make([]*target, 0, len(targets))
	for _, t := range targets {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].path < out[j].path })
	return out
}

// ownsFile reports whether path is a translation file of language inside Dir
func (w *Writer) ownsFile(path, language string) bool {
	if path == "" || !filepath.IsAbs(path) {
		return false
	}
	// ToRelative leaves paths outside Dir absolute
	if filepath.IsAbs(pathutil.ToRelative(path, w.opts.Dir)) {
		return false
	}
	lang, ok := pathutil.LanguageFromPath(path)
	return ok && lang == language
}

// syncFile applies one target. A structural conflict on any key skips the
// whole file; a key that would overwrite an object fails alone.
func (w *Writer) syncFile(t *target) (FileResult, error) {
	res := FileResult{Language: t.language, Path: t.path}

	data, err := os.ReadFile(t.path)
	exists := err == nil
	if err != nil && !os.IsNotExist(err) {
		res.Skipped = true
		return res, syncerrors.NewSyncError(t.language, t.path, err)
	}
	original := string(data)
	if !exists {
		original = "{}"
	}

	ed, err := jsonedit.NewEditor(original, jsonedit.FormatOptions{
		IndentSize: w.opts.IndentSize,
		UseTabs:    w.opts.UseTabs,
	})
	if err != nil {
		res.Skipped = true
		w.log.Printf("autosync: skipping %s: %v", t.path, err)
		return res, syncerrors.NewSyncError(t.language, t.path, err)
	}

	keys := make([]string, 0, len(t.values))
	for k := range t.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	segments := make(map[string][]string, len(keys))
	for _, k := range keys {
		segs, err := keypath.Parse(k)
		if err != nil {
			res.FailedKeys = append(res.FailedKeys, k)
			continue
		}
		segments[k] = segs
	}

	res.Conflicts = w.findConflicts(ed.Document(), keys, segments, t)
	if len(res.Conflicts) > 0 {
		res.Skipped = true
		w.conflicts.Add(1)
		w.opts.Metrics.SyncConflict(t.language)
		w.log.Printf("autosync: skipping %s: %d structural conflicts (first: %s)",
			t.path, len(res.Conflicts), res.Conflicts[0])
		return res, nil
	}

	for _, k := range keys {
		segs, ok := segments[k]
		if !ok {
			continue
		}
		changed, err := ed.Set(segs, t.values[k])
		if err != nil {
			res.FailedKeys = append(res.FailedKeys, k)
			w.opts.Metrics.SyncKeyFailure(t.language)
			w.log.Printf("autosync: %v", syncerrors.NewSyncError(t.language, t.path, err).WithKey(k))
			continue
		}
		if changed {
			res.Updated++
		}
	}

	removals := make([]string, 0, len(t.removals))
	for k := range t.removals {
		removals = append(removals, k)
	}
	sort.Strings(removals)
	for _, k := range removals {
		if w.index.Has(k, t.language) {
			continue
		}
		changed, err := ed.Remove(keypath.Split(k))
		if err != nil {
			res.FailedKeys = append(res.FailedKeys, k)
			w.opts.Metrics.SyncKeyFailure(t.language)
			w.log.Printf("autosync: %v", syncerrors.NewSyncError(t.language, t.path, err).WithKey(k))
			continue
		}
		if changed {
			res.Removed++
		}
	}

	text := ed.Text()
	if exists && text == original {
		return res, nil
	}
	if !exists && res.Updated == 0 {
		// nothing to create
		return res, nil
	}
	if !exists && !strings.HasSuffix(text, "\n") {
		text += "\n"
	}

	if err := w.writeFile(t.path, text, exists); err != nil {
		return res, syncerrors.NewSyncError(t.language, t.path, err)
	}
	res.Written = true
	w.writes.Add(1)
	w.opts.Metrics.SyncWrite()
	debug.LogSync("wrote %s: %d updated, %d removed\n", t.path, res.Updated, res.Removed)
	return res, nil
}

// findConflicts returns the keys that cannot be written without replacing a
// scalar or array in doc, or that sit below another key of the same target
func (w *Writer) findConflicts(doc *jsonedit.Document, keys []string, segments map[string][]string, t *target) []string {
	var out []string
	for _, k := range keys {
		segs, ok := segments[k]
		if !ok {
			continue
		}
		if err := doc.CheckSet(segs); errors.Is(err, syncerrors.ErrStructuralConflict) {
			out = append(out, k)
			debug.LogSync("conflict in %s: %v\n", t.path, err)
			continue
		}
		for p, ok := keypath.Parent(k); ok; p, ok = keypath.Parent(p) {
			if _, leaf := t.values[p]; leaf {
				out = append(out, k)
				debug.LogSync("conflict in %s: %s would be written below the value at %s\n", t.path, k, p)
				break
			}
		}
	}
	return out
}

// writeFile replaces path atomically and records the content hash before the
// watcher can observe it
func (w *Writer) writeFile(path, text string, exists bool) error {
	if !exists {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	w.recordWrite(path, xxhash.Sum64String(text))
	if err := atomic.WriteFile(path, strings.NewReader(text)); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if !exists {
		if err := os.Chmod(path, newFileMode); err != nil {
			return fmt.Errorf("failed to set file permissions: %w", err)
		}
	}
	return nil
}
