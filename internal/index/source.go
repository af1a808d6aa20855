package index

import (
	"sort"

	"github.com/standardbeagle/i18nsync/internal/cache"
	"github.com/standardbeagle/i18nsync/internal/debug"
	syncerrors "github.com/standardbeagle/i18nsync/internal/errors"
	"github.com/standardbeagle/i18nsync/internal/events"
	"github.com/standardbeagle/i18nsync/internal/keypath"
	"github.com/standardbeagle/i18nsync/internal/types"
)

// ReplaceResult summarizes a file attribution replacement
type ReplaceResult struct {
	Added     int
	Updated   int
	Unchanged int
	Removed   int
	Rejected  []error
}

// ReplaceSource makes the leaves of sourceFile the only entries attributed to
// that file for language. Entries previously parsed from the file but absent
// from leaves are removed. Only real changes produce events. Leaves with a
// malformed key path are rejected individually.
func (ix *Index) ReplaceSource(sourceFile, language string, leaves []types.Leaf) (ReplaceResult, error) {
	var res ReplaceResult
	if err := ValidateLanguage(language); err != nil {
		return res, syncerrors.NewIndexError("replace", sourceFile, err).WithLanguage(language)
	}

	incoming := make(map[string]types.Leaf, len(leaves))
	for _, leaf := range leaves {
		if err := validateSet(leaf.KeyPath, language, leaf.Value); err != nil {
			res.Rejected = append(res.Rejected, err)
			continue
		}
		incoming[leaf.KeyPath] = leaf
	}

	var evs []events.Event

	ix.mu.Lock()
	files, ok := ix.langFiles[language]
	if !ok {
		files = make(map[string]struct{})
		ix.langFiles[language] = files
	}
	files[sourceFile] = struct{}{}

	for k, tr := range ix.entries {
		entry, ok := tr[language]
		if !ok || entry.SourceFile != sourceFile {
			continue
		}
		if _, keep := incoming[k]; keep {
			continue
		}
		if ev, ok := ix.deleteLocked(k, language); ok {
			evs = append(evs, ev)
			res.Removed++
		}
	}

	paths := make([]string, 0, len(incoming))
	for k := range incoming {
		paths = append(paths, k)
	}
	sort.Strings(paths)

	for _, k := range paths {
		leaf := incoming[k]
		if tr, ok := ix.entries[k]; ok {
			if cur, ok := tr[language]; ok {
				if cur.SourceFile == sourceFile && cur.Value.Equal(leaf.Value) &&
					cur.Value.JSONLiteral() == leaf.Value.JSONLiteral() {
					// Positions may shift without a value change
					cur.Line, cur.Column = leaf.Line, leaf.Column
					tr[language] = cur
					ix.invalidateLocked(k)
					res.Unchanged++
					continue
				}
				res.Updated++
			} else {
				res.Added++
			}
		} else {
			res.Added++
		}
		meta := &types.EntryMetadata{SourceFile: sourceFile, Line: leaf.Line, Column: leaf.Column}
		evs = append(evs, ix.setLocked(k, language, leaf.Value, meta))
	}
	size := len(ix.entries)
	ix.mu.Unlock()

	if res.Added+res.Updated+res.Removed > 0 {
		ix.metrics.IndexMutation("replace")
		ix.metrics.IndexSize(size)
	}
	debug.LogIndex("replace %s [%s]: +%d ~%d -%d =%d\n",
		sourceFile, language, res.Added, res.Updated, res.Removed, res.Unchanged)
	for _, ev := range evs {
		ix.bus.Publish(ev)
	}
	return res, nil
}

// RemoveSource deletes every entry of language attributed to sourceFile and
// forgets the file. It returns the number of entries removed.
func (ix *Index) RemoveSource(sourceFile, language string) int {
	var evs []events.Event

	ix.mu.Lock()
	if files, ok := ix.langFiles[language]; ok {
		delete(files, sourceFile)
		if len(files) == 0 {
			delete(ix.langFiles, language)
		}
	}
	for k, tr := range ix.entries {
		entry, ok := tr[language]
		if !ok || entry.SourceFile != sourceFile {
			continue
		}
		if ev, ok := ix.deleteLocked(k, language); ok {
			evs = append(evs, ev)
		}
	}
	size := len(ix.entries)
	ix.mu.Unlock()

	if len(evs) > 0 {
		ix.metrics.IndexMutation("remove_source")
		ix.metrics.IndexSize(size)
	}
	debug.LogIndex("remove %s [%s]: %d entries\n", sourceFile, language, len(evs))
	for _, ev := range evs {
		ix.bus.Publish(ev)
	}
	return len(evs)
}

// HasSource reports whether sourceFile is attributed to language, with or
// without keys
func (ix *Index) HasSource(sourceFile, language string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.langFiles[language][sourceFile]
	return ok
}

// SourceFile is a derived attribution group
type SourceFile struct {
	Path     string `json:"path"`
	Language string `json:"language"`
	Keys     int    `json:"keys"`
}

// SourceFiles groups entries by the file they were parsed from. Files that
// were loaded but hold no keys are included with zero keys.
func (ix *Index) SourceFiles() []SourceFile {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	type group struct{ path, lang string }
	counts := make(map[group]int)
	for lang, files := range ix.langFiles {
		for f := range files {
			counts[group{f, lang}] += 0
		}
	}
	for _, tr := range ix.entries {
		for lang, entry := range tr {
			if entry.SourceFile == "" {
				continue
			}
			counts[group{entry.SourceFile, lang}]++
		}
	}

	out := make([]SourceFile, 0, len(counts))
	for g, n := range counts {
		out = append(out, SourceFile{Path: g.path, Language: g.lang, Keys: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Language < out[j].Language
	})
	return out
}

// Stats is a point-in-time summary of the index
type Stats struct {
	Keys            int            `json:"keys"`
	Languages       map[string]int `json:"languages"`
	SourceFiles     int            `json:"sourceFiles"`
	ValueIndexSize  int            `json:"valueIndexSize"`
	SortedKeysDirty bool           `json:"sortedKeysDirty"`
	MaxDepth        int            `json:"maxDepth"`
	Cache           cache.Stats    `json:"cache"`
	KeyPathCache    cache.Stats    `json:"keyPathCache"`
}

// Stats returns current index statistics
func (ix *Index) Stats() Stats {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	langs := make(map[string]int)
	for _, lang := range ix.languagesLocked() {
		langs[lang] = ix.langCounts[lang]
	}
	files := 0
	for _, set := range ix.langFiles {
		files += len(set)
	}
	maxDepth := 0
	for k := range ix.entries {
		if d := keypath.Depth(k); d > maxDepth {
			maxDepth = d
		}
	}

	ix.sortedMu.Lock()
	dirty := ix.dirty
	ix.sortedMu.Unlock()

	return Stats{
		Keys:            len(ix.entries),
		Languages:       langs,
		SourceFiles:     files,
		ValueIndexSize:  len(ix.valueIndex),
		SortedKeysDirty: dirty,
		MaxDepth:        maxDepth,
		Cache:           ix.cache.Stats(),
		KeyPathCache:    keypath.CacheStats(),
	}
}
