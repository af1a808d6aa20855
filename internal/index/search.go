package index

import (
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/standardbeagle/i18nsync/internal/debug"
	"github.com/standardbeagle/i18nsync/internal/keypath"
	"github.com/standardbeagle/i18nsync/internal/types"
)

// SearchScope selects what a search query is matched against
type SearchScope string

const (
	ScopeKeys   SearchScope = "keys"
	ScopeValues SearchScope = "values"
	ScopeBoth   SearchScope = "both"
)

// ParseScope converts user input into a scope; empty input means both
func ParseScope(s string) (SearchScope, bool) {
	switch SearchScope(strings.ToLower(s)) {
	case "", ScopeBoth:
		return ScopeBoth, true
	case ScopeKeys, "key":
		return ScopeKeys, true
	case ScopeValues, "value":
		return ScopeValues, true
	default:
		return "", false
	}
}

// MatchType reports which side of an entry matched
type MatchType string

const (
	MatchKey   MatchType = "key"
	MatchValue MatchType = "value"
	MatchBoth  MatchType = "both"
)

// Match scores
const (
	keyExactScore     = 1.0
	keyPrefixScore    = 0.9
	keySubstringScore = 0.7

	valueExactScore     = 1.0
	valuePrefixScore    = 0.8
	valueSubstringScore = 0.6
)

// SearchOptions controls Search
type SearchOptions struct {
	Scope         SearchScope
	Languages     []string
	MaxResults    int
	CaseSensitive bool
}

// SearchResult is one ranked hit
type SearchResult struct {
	KeyPath         string                   `json:"keyPath"`
	Translations    types.IndexedTranslation `json:"translations"`
	Score           float64                  `json:"score"`
	MatchType       MatchType                `json:"matchType"`
	MatchedLanguage string                   `json:"matchedLanguage,omitempty"`
}

func scoreText(text, query string, exact, prefix, substring float64) float64 {
	switch {
	case text == query:
		return exact
	case strings.HasPrefix(text, query):
		return prefix
	case strings.Contains(text, query):
		return substring
	default:
		return 0
	}
}

// Search scans the sorted key list once, scoring key and value matches. The
// scan stops as soon as MaxResults hits were collected. Results are ordered by
// score descending, then key path ascending.
func (ix *Index) Search(query string, opts SearchOptions) []SearchResult {
	if query == "" {
		return nil
	}
	scope := opts.Scope
	if scope == "" {
		scope = ScopeBoth
	}
	limit := opts.MaxResults
	if limit <= 0 {
		limit = ix.maxResults
	}
	q := query
	if !opts.CaseSensitive {
		q = strings.ToLower(q)
	}
	norm := func(s string) string {
		if opts.CaseSensitive {
			return s
		}
		return strings.ToLower(s)
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var results []SearchResult
	for _, k := range ix.sortedKeysLocked() {
		tr := ix.entries[k]
		filtered := tr.Filter(opts.Languages)

		var keyScore float64
		if scope != ScopeValues {
			keyScore = scoreText(norm(k), q, keyExactScore, keyPrefixScore, keySubstringScore)
		}

		var valueScore float64
		var valueLang string
		if scope != ScopeKeys {
			// Visit languages in a fixed order so the reported language is stable
			langs := make([]string, 0, len(filtered))
			for lang := range filtered {
				langs = append(langs, lang)
			}
			sort.Strings(langs)
			for _, lang := range langs {
				s := scoreText(norm(filtered[lang].Value.String()), q,
					valueExactScore, valuePrefixScore, valueSubstringScore)
				if s > valueScore {
					valueScore, valueLang = s, lang
				}
			}
		}

		if keyScore == 0 && valueScore == 0 {
			continue
		}

		res := SearchResult{
			KeyPath:      k,
			Translations: filtered,
			Score:        keyScore + valueScore,
		}
		switch {
		case keyScore > 0 && valueScore > 0:
			res.MatchType = MatchBoth
			res.MatchedLanguage = valueLang
		case keyScore > 0:
			res.MatchType = MatchKey
		default:
			res.MatchType = MatchValue
			res.MatchedLanguage = valueLang
		}
		results = append(results, res)
		if len(results) >= limit {
			break
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].KeyPath < results[j].KeyPath
	})
	debug.LogIndex("search %q scope=%s: %d results\n", query, scope, len(results))
	return results
}

// prefixSentinel sorts after every character allowed in a key path
const prefixSentinel = "\uffff"

// SearchByPrefix returns every key path starting with prefix, in ascending order
func (ix *Index) SearchByPrefix(prefix string) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	keys := ix.prefixRangeLocked(prefix)
	out := make([]string, len(keys))
	copy(out, keys)
	return out
}

// prefixRangeLocked returns the contiguous slice of the sorted key list
// starting with prefix. The slice aliases the sorted list.
func (ix *Index) prefixRangeLocked(prefix string) []string {
	keys := ix.sortedKeysLocked()
	if prefix == "" {
		return keys
	}
	lo := sort.SearchStrings(keys, prefix)
	hi := sort.SearchStrings(keys, prefix+prefixSentinel)
	return keys[lo:hi]
}

// Suggestion is a key path similar to a query
type Suggestion struct {
	KeyPath string  `json:"keyPath"`
	Score   float64 `json:"score"`
}

// Suggest returns up to limit key paths whose Jaro-Winkler similarity to query
// reaches the configured threshold. Both the full path and its last segment are
// compared, and the better of the two counts.
func (ix *Index) Suggest(query string, limit int) []Suggestion {
	if query == "" {
		return nil
	}
	if limit <= 0 {
		limit = ix.maxSuggestions
	}
	q := strings.ToLower(query)

	ix.mu.RLock()
	keys := ix.sortedKeysLocked()
	var out []Suggestion
	for _, k := range keys {
		lk := strings.ToLower(k)
		best := similarity(q, lk)
		if last := keypath.LastSegment(lk); last != lk {
			if s := similarity(q, last); s > best {
				best = s
			}
		}
		if best >= ix.suggestThreshold {
			out = append(out, Suggestion{KeyPath: k, Score: best})
		}
	}
	ix.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].KeyPath < out[j].KeyPath
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func similarity(a, b string) float64 {
	s, err := edlib.StringsSimilarity(a, b, edlib.JaroWinkler)
	if err != nil {
		return 0
	}
	return float64(s)
}
