package index

import (
	"fmt"
	"sort"

	syncerrors "github.com/standardbeagle/i18nsync/internal/errors"
	"github.com/standardbeagle/i18nsync/internal/types"
)

// MissingPlaceholder formats the value auto-fix writes for a missing key
func MissingPlaceholder(baseValue types.Scalar) types.Scalar {
	return types.StringValue(fmt.Sprintf("[MISSING: %s]", baseValue.String()))
}

// ValidationOptions controls ValidateStructure
type ValidationOptions struct {
	BaseLanguage string
	AutoFix      bool
}

// TypeMismatch is a key whose value type differs from the base language
type TypeMismatch struct {
	KeyPath  string `json:"keyPath"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

// ValidationResult lists structural differences against the base language.
// Maps are keyed by language and only contain languages with issues.
type ValidationResult struct {
	Valid          bool                      `json:"valid"`
	BaseLanguage   string                    `json:"baseLanguage"`
	Languages      []string                  `json:"languages"`
	MissingKeys    map[string][]string       `json:"missingKeys"`
	ExtraKeys      map[string][]string       `json:"extraKeys"`
	TypeMismatches map[string][]TypeMismatch `json:"typeMismatches"`
	Fixed          int                       `json:"fixed,omitempty"`
	FixErrors      []string                  `json:"fixErrors,omitempty"`
}

// ValidateStructure compares every language against the base language's key
// set. Issues are reported in the result; an error is returned only when the
// base language is unknown. With AutoFix, missing keys are filled in one batch
// with "[MISSING: <base value>]" placeholders. Valid describes the state before
// the fix was applied.
func (ix *Index) ValidateStructure(opts ValidationOptions) (*ValidationResult, error) {
	base := opts.BaseLanguage
	if base == "" {
		return nil, syncerrors.NewValidationError("", "base language is required", nil)
	}

	ix.mu.RLock()
	langs := ix.languagesLocked()
	known := false
	for _, l := range langs {
		if l == base {
			known = true
			break
		}
	}
	if !known {
		ix.mu.RUnlock()
		return nil, syncerrors.NewValidationError(base, "unknown base language", syncerrors.ErrNotFound)
	}

	res := &ValidationResult{
		BaseLanguage:   base,
		Languages:      langs,
		MissingKeys:    make(map[string][]string),
		ExtraKeys:      make(map[string][]string),
		TypeMismatches: make(map[string][]TypeMismatch),
	}
	var fixes []types.BatchOperation

	for _, k := range ix.sortedKeysLocked() {
		tr := ix.entries[k]
		baseEntry, inBase := tr[base]
		for _, lang := range langs {
			if lang == base {
				continue
			}
			entry, inLang := tr[lang]
			switch {
			case inBase && !inLang:
				res.MissingKeys[lang] = append(res.MissingKeys[lang], k)
				if opts.AutoFix {
					v := MissingPlaceholder(baseEntry.Value)
					fixes = append(fixes, types.BatchOperation{
						Type:     types.OperationSet,
						KeyPath:  k,
						Language: lang,
						Value:    &v,
					})
				}
			case !inBase && inLang:
				res.ExtraKeys[lang] = append(res.ExtraKeys[lang], k)
			case inBase && inLang && baseEntry.Value.Kind() != entry.Value.Kind():
				res.TypeMismatches[lang] = append(res.TypeMismatches[lang], TypeMismatch{
					KeyPath:  k,
					Expected: baseEntry.Value.TypeName(),
					Actual:   entry.Value.TypeName(),
				})
			}
		}
	}
	ix.mu.RUnlock()

	res.Valid = len(res.MissingKeys) == 0 && len(res.ExtraKeys) == 0 && len(res.TypeMismatches) == 0

	if len(fixes) > 0 {
		br := ix.BatchUpdate(fixes)
		if br.Success {
			res.Fixed = br.Applied
		} else {
			res.FixErrors = br.Errors
		}
	}
	return res, nil
}

// LanguageUsage is the completeness of one language
type LanguageUsage struct {
	Language       string   `json:"language"`
	TranslatedKeys int      `json:"translatedKeys"`
	TotalKeys      int      `json:"totalKeys"`
	Completeness   float64  `json:"completeness"`
	MissingKeys    []string `json:"missingKeys"`
}

// DuplicateGroup is a set of keys holding the same value in one language
type DuplicateGroup struct {
	Language string   `json:"language"`
	Value    string   `json:"value"`
	KeyPaths []string `json:"keyPaths"`
}

// UsageOptions controls AnalyzeUsage
type UsageOptions struct {
	CheckDuplicates bool
}

// UsageReport summarizes translation coverage
type UsageReport struct {
	TotalKeys  int              `json:"totalKeys"`
	Languages  []LanguageUsage  `json:"languages"`
	Duplicates []DuplicateGroup `json:"duplicates,omitempty"`
}

// AnalyzeUsage reports per-language completeness and, optionally, groups of
// keys sharing an identical value within a language.
func (ix *Index) AnalyzeUsage(opts UsageOptions) UsageReport {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	keys := ix.sortedKeysLocked()
	langs := ix.languagesLocked()
	report := UsageReport{TotalKeys: len(keys), Languages: make([]LanguageUsage, 0, len(langs))}

	for _, lang := range langs {
		u := LanguageUsage{Language: lang, TotalKeys: len(keys), MissingKeys: []string{}}
		for _, k := range keys {
			if _, ok := ix.entries[k][lang]; ok {
				u.TranslatedKeys++
			} else {
				u.MissingKeys = append(u.MissingKeys, k)
			}
		}
		if u.TotalKeys > 0 {
			u.Completeness = float64(u.TranslatedKeys) / float64(u.TotalKeys)
		}
		report.Languages = append(report.Languages, u)
	}

	if opts.CheckDuplicates {
		type dupKey struct{ lang, value string }
		groups := make(map[dupKey][]string)
		for _, k := range keys {
			for lang, entry := range ix.entries[k] {
				dk := dupKey{lang, entry.Value.String()}
				groups[dk] = append(groups[dk], k)
			}
		}
		for dk, paths := range groups {
			if len(paths) < 2 {
				continue
			}
			report.Duplicates = append(report.Duplicates, DuplicateGroup{
				Language: dk.lang,
				Value:    dk.value,
				KeyPaths: paths,
			})
		}
		sort.Slice(report.Duplicates, func(i, j int) bool {
			a, b := report.Duplicates[i], report.Duplicates[j]
			if a.Language != b.Language {
				return a.Language < b.Language
			}
			return a.Value < b.Value
		})
	}
	return report
}
