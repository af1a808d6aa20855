// Package index holds the authoritative in-memory translation catalog: a flat
// map from key path to per-language entries, a lazily sorted key list for range
// queries, an advisory reverse value index and a bounded read cache.
//
// All mutations go through Set, Delete, Clear, BatchUpdate, ReplaceSource and
// RemoveSource. Each one invalidates the affected cache entries while holding the
// write lock and publishes its events on the bus only after the lock is released,
// so a reader that observes an event can never be served a stale cached value.
package index

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/standardbeagle/i18nsync/internal/cache"
	"github.com/standardbeagle/i18nsync/internal/debug"
	syncerrors "github.com/standardbeagle/i18nsync/internal/errors"
	"github.com/standardbeagle/i18nsync/internal/events"
	"github.com/standardbeagle/i18nsync/internal/keypath"
	"github.com/standardbeagle/i18nsync/internal/metrics"
	"github.com/standardbeagle/i18nsync/internal/types"
)

// Defaults used when Options leaves a field zero
const (
	DefaultMaxResults       = 50
	DefaultSuggestThreshold = 0.75
	DefaultMaxSuggestions   = 5
)

// Options configures a new Index
type Options struct {
	CacheSize        int
	MaxResults       int
	SuggestThreshold float64
	MaxSuggestions   int
	// Bus receives mutation events; a private bus is created when nil
	Bus     *events.Bus
	Metrics *metrics.Collector
}

// cachedRead is a memoized Get or GetAll result
type cachedRead struct {
	entry types.TranslationEntry
	all   types.IndexedTranslation
}

// Index is the flat translation store. It is safe for concurrent use.
type Index struct {
	mu      sync.RWMutex
	entries map[string]types.IndexedTranslation

	// sortedKeys is rebuilt on demand by readers holding mu.RLock; sortedMu
	// serializes those rebuilds. Writers only flip dirty under mu.Lock.
	sortedMu   sync.Mutex
	sortedKeys []string
	dirty      bool

	// lowercase value -> key paths; advisory, never pruned on delete
	valueIndex map[string]map[string]struct{}

	// language -> number of keys holding an entry for it
	langCounts map[string]int
	// language -> files attributed to it, kept even when a file has no keys
	langFiles map[string]map[string]struct{}

	cache   *cache.LRU[cachedRead]
	bus     *events.Bus
	metrics *metrics.Collector

	maxResults       int
	suggestThreshold float64
	maxSuggestions   int

	now func() time.Time
}

// New creates an empty index
func New(opts Options) (*Index, error) {
	c, err := cache.New[cachedRead](opts.CacheSize)
	if err != nil {
		return nil, err
	}
	if opts.Metrics != nil {
		c.SetObserver(opts.Metrics.CacheRequest)
	}

	ix := &Index{
		entries:          make(map[string]types.IndexedTranslation),
		valueIndex:       make(map[string]map[string]struct{}),
		langCounts:       make(map[string]int),
		langFiles:        make(map[string]map[string]struct{}),
		cache:            c,
		bus:              opts.Bus,
		metrics:          opts.Metrics,
		maxResults:       opts.MaxResults,
		suggestThreshold: opts.SuggestThreshold,
		maxSuggestions:   opts.MaxSuggestions,
		now:              time.Now,
	}
	if ix.bus == nil {
		ix.bus = events.NewBus()
	}
	if ix.maxResults <= 0 {
		ix.maxResults = DefaultMaxResults
	}
	if ix.suggestThreshold <= 0 {
		ix.suggestThreshold = DefaultSuggestThreshold
	}
	if ix.maxSuggestions <= 0 {
		ix.maxSuggestions = DefaultMaxSuggestions
	}
	return ix, nil
}

// Bus returns the bus events are published on
func (ix *Index) Bus() *events.Bus {
	return ix.bus
}

func cacheKey(keyPath, language string) string {
	if language == "" {
		return keyPath + ":all"
	}
	return keyPath + ":" + language
}

// ValidateLanguage rejects language codes that cannot name a translation file
func ValidateLanguage(language string) error {
	if language == "" {
		return fmt.Errorf("language is required")
	}
	if language == "." || language == ".." || strings.ContainsAny(language, `/\:`) {
		return fmt.Errorf("invalid language code %q", language)
	}
	return nil
}

// Has reports whether keyPath exists; with a language, whether it exists for that language
func (ix *Index) Has(keyPath, language string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	tr, ok := ix.entries[keyPath]
	if !ok {
		return false
	}
	if language == "" {
		return true
	}
	_, ok = tr[language]
	return ok
}

// Get returns the entry for one language of keyPath
func (ix *Index) Get(keyPath, language string) (types.TranslationEntry, bool) {
	if language == "" {
		return types.TranslationEntry{}, false
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	ck := cacheKey(keyPath, language)
	if hit, ok := ix.cache.Get(ck); ok {
		return hit.entry, true
	}

	tr, ok := ix.entries[keyPath]
	if !ok {
		return types.TranslationEntry{}, false
	}
	entry, ok := tr[language]
	if !ok {
		return types.TranslationEntry{}, false
	}
	ix.cache.Add(ck, cachedRead{entry: entry})
	return entry, true
}

// GetAll returns every language's entry for keyPath. The result is a copy.
func (ix *Index) GetAll(keyPath string) (types.IndexedTranslation, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	ck := cacheKey(keyPath, "")
	if hit, ok := ix.cache.Get(ck); ok {
		return hit.all.Clone(), true
	}

	tr, ok := ix.entries[keyPath]
	if !ok {
		return nil, false
	}
	all := tr.Clone()
	ix.cache.Add(ck, cachedRead{all: all})
	return all.Clone(), true
}

// Set stores value for keyPath in language. A malformed key path, an empty
// language or an invalid value fails with *IndexError and nothing is changed.
func (ix *Index) Set(keyPath, language string, value types.Scalar, meta *types.EntryMetadata) error {
	if err := validateSet(keyPath, language, value); err != nil {
		return err
	}

	ix.mu.Lock()
	ev := ix.setLocked(keyPath, language, value, meta)
	size := len(ix.entries)
	ix.mu.Unlock()

	ix.metrics.IndexMutation("set")
	ix.metrics.IndexSize(size)
	debug.LogIndex("set %s [%s]\n", keyPath, language)
	ix.bus.Publish(ev)
	return nil
}

func validateSet(keyPath, language string, value types.Scalar) error {
	if err := keypath.Validate(keyPath); err != nil {
		return syncerrors.NewIndexError("set", keyPath, err).WithLanguage(language)
	}
	if err := ValidateLanguage(language); err != nil {
		return syncerrors.NewIndexError("set", keyPath, err).WithLanguage(language)
	}
	if !value.IsValid() {
		return syncerrors.NewIndexError("set", keyPath, types.ErrInvalidScalar).WithLanguage(language)
	}
	return nil
}

// setLocked stores an already validated entry; the caller holds the write lock
func (ix *Index) setLocked(keyPath, language string, value types.Scalar, meta *types.EntryMetadata) events.Set {
	tr, exists := ix.entries[keyPath]
	if !exists {
		tr = make(types.IndexedTranslation, 1)
		ix.entries[keyPath] = tr
		ix.dirty = true
	}
	prev, had := tr[language]
	if !had {
		ix.langCounts[language]++
	}

	entry := types.TranslationEntry{Value: value, LastModified: ix.now()}
	var md types.EntryMetadata
	switch {
	case meta != nil:
		md = *meta
	case had:
		// Without metadata the entry stays attributed to the file it came from
		md = types.EntryMetadata{SourceFile: prev.SourceFile, Line: prev.Line, Column: prev.Column}
	}
	entry.SourceFile = md.SourceFile
	entry.Line = md.Line
	entry.Column = md.Column
	tr[language] = entry

	vk := strings.ToLower(value.String())
	paths, ok := ix.valueIndex[vk]
	if !ok {
		paths = make(map[string]struct{})
		ix.valueIndex[vk] = paths
	}
	paths[keyPath] = struct{}{}

	ix.invalidateLocked(keyPath)

	return events.Set{KeyPath: keyPath, Language: language, Value: value, Metadata: md}
}

// Delete removes one language of keyPath, or the whole key when language is
// empty. It returns false when nothing matched.
func (ix *Index) Delete(keyPath, language string) bool {
	ix.mu.Lock()
	ev, ok := ix.deleteLocked(keyPath, language)
	size := len(ix.entries)
	ix.mu.Unlock()

	if !ok {
		return false
	}
	ix.metrics.IndexMutation("delete")
	ix.metrics.IndexSize(size)
	debug.LogIndex("delete %s [%s]\n", keyPath, language)
	ix.bus.Publish(ev)
	return true
}

func (ix *Index) deleteLocked(keyPath, language string) (events.Delete, bool) {
	tr, ok := ix.entries[keyPath]
	if !ok {
		return events.Delete{}, false
	}

	if language == "" {
		for lang := range tr {
			ix.decLang(lang)
		}
		delete(ix.entries, keyPath)
		ix.dirty = true
	} else {
		if _, ok := tr[language]; !ok {
			return events.Delete{}, false
		}
		delete(tr, language)
		ix.decLang(language)
		// A key never survives with zero languages
		if len(tr) == 0 {
			delete(ix.entries, keyPath)
			ix.dirty = true
		}
	}

	ix.invalidateLocked(keyPath)
	return events.Delete{KeyPath: keyPath, Language: language}, true
}

// invalidateLocked drops the cached reads of keyPath and nothing else
func (ix *Index) invalidateLocked(keyPath string) {
	ix.cache.InvalidatePrefix(keyPath + ":")
}

func (ix *Index) decLang(language string) {
	if n := ix.langCounts[language] - 1; n > 0 {
		ix.langCounts[language] = n
	} else {
		delete(ix.langCounts, language)
	}
}

// Clear empties the index
func (ix *Index) Clear() {
	ix.mu.Lock()
	ix.entries = make(map[string]types.IndexedTranslation)
	ix.valueIndex = make(map[string]map[string]struct{})
	ix.langCounts = make(map[string]int)
	ix.langFiles = make(map[string]map[string]struct{})
	ix.dirty = true
	ix.cache.Purge()
	ix.mu.Unlock()

	ix.metrics.IndexMutation("clear")
	ix.metrics.IndexSize(0)
	debug.LogIndex("clear\n")
	ix.bus.Publish(events.Clear{})
}

// sortedKeysLocked returns the sorted key list, rebuilding it when dirty.
// The caller holds at least the read lock and must not modify the result.
func (ix *Index) sortedKeysLocked() []string {
	ix.sortedMu.Lock()
	defer ix.sortedMu.Unlock()

	if ix.dirty || ix.sortedKeys == nil {
		keys := make([]string, 0, len(ix.entries))
		for k := range ix.entries {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ix.sortedKeys = keys
		ix.dirty = false
	}
	return ix.sortedKeys
}

// Keys returns every key path in ascending order
func (ix *Index) Keys() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	keys := ix.sortedKeysLocked()
	out := make([]string, len(keys))
	copy(out, keys)
	return out
}

// Len returns the number of key paths
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Languages returns every language that has entries or an attributed file, sorted
func (ix *Index) Languages() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.languagesLocked()
}

func (ix *Index) languagesLocked() []string {
	seen := make(map[string]struct{}, len(ix.langCounts)+len(ix.langFiles))
	for lang := range ix.langCounts {
		seen[lang] = struct{}{}
	}
	for lang, files := range ix.langFiles {
		if len(files) > 0 {
			seen[lang] = struct{}{}
		}
	}
	langs := make([]string, 0, len(seen))
	for lang := range seen {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// EntriesForLanguage returns a snapshot of keyPath -> entry for one language
func (ix *Index) EntriesForLanguage(language string) map[string]types.TranslationEntry {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	out := make(map[string]types.TranslationEntry, ix.langCounts[language])
	for k, tr := range ix.entries {
		if entry, ok := tr[language]; ok {
			out[k] = entry
		}
	}
	return out
}

// FindByValue returns the key paths whose value equals value, ignoring case.
// With a language, only that language's values are compared.
func (ix *Index) FindByValue(value, language string) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	needle := strings.ToLower(value)
	candidates := ix.valueIndex[needle]
	var out []string
	for k := range candidates {
		tr, ok := ix.entries[k]
		if !ok {
			continue
		}
		// The reverse index may be stale; confirm against the live entry
		for lang, entry := range tr {
			if language != "" && lang != language {
				continue
			}
			if strings.ToLower(entry.Value.String()) == needle {
				out = append(out, k)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}
