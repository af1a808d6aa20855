package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/i18nsync/internal/config"
	syncerrors "github.com/standardbeagle/i18nsync/internal/errors"
	"github.com/standardbeagle/i18nsync/internal/index"
	"github.com/standardbeagle/i18nsync/internal/indexing"
	"github.com/standardbeagle/i18nsync/internal/types"
)

// openManager scans the translations directory once. Watching, auto-sync and
// the metrics endpoint are off for one-shot commands.
func openManager(c *cli.Context) (*indexing.Manager, error) {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return nil, err
	}
	cfg.Watch.Enabled = false
	cfg.AutoSync.Enabled = false
	cfg.Metrics.Addr = ""

	mgr, err := indexing.NewManager(cfg)
	if err != nil {
		return nil, err
	}
	if err := mgr.Init(c.Context); err != nil {
		mgr.Close()
		return nil, err
	}
	return mgr, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func getCommand(c *cli.Context) error {
	key := c.Args().First()
	if key == "" {
		return cli.Exit("usage: i18nsync get <key> [--lang code]", 2)
	}

	mgr, err := openManager(c)
	if err != nil {
		return err
	}
	defer mgr.Close()
	ix := mgr.Index()

	var translations types.IndexedTranslation
	if lang := c.String("lang"); lang != "" {
		entry, ok := ix.Get(key, lang)
		if !ok {
			return notFound(ix, key, lang)
		}
		translations = types.IndexedTranslation{lang: entry}
	} else {
		all, ok := ix.GetAll(key)
		if !ok {
			return notFound(ix, key, "")
		}
		translations = all
	}

	if c.Bool("json") {
		return writeJSON(c.App.Writer, map[string]interface{}{
			"key":          key,
			"translations": translations,
		})
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	for _, lang := range sortedLanguages(translations) {
		fmt.Fprintf(tw, "%s\t%s\n", lang, translations[lang].Value.JSONLiteral())
	}
	return tw.Flush()
}

func notFound(ix *index.Index, key, lang string) error {
	err := syncerrors.NewIndexError("get", key, syncerrors.ErrNotFound)
	if lang != "" {
		err = err.WithLanguage(lang)
	}
	msg := err.Error()
	if suggestions := ix.Suggest(key, config.DefaultMaxSuggestions); len(suggestions) > 0 {
		names := make([]string, 0, len(suggestions))
		for _, s := range suggestions {
			names = append(names, s.KeyPath)
		}
		msg += "\ndid you mean: " + strings.Join(names, ", ")
	}
	return cli.Exit(msg, 1)
}

func searchCommand(c *cli.Context) error {
	query := c.Args().First()
	if query == "" {
		return cli.Exit("usage: i18nsync search <query> [--scope keys|values|both]", 2)
	}
	scope, ok := index.ParseScope(c.String("scope"))
	if !ok {
		return cli.Exit(fmt.Sprintf("invalid scope %q: use keys, values or both", c.String("scope")), 2)
	}

	mgr, err := openManager(c)
	if err != nil {
		return err
	}
	defer mgr.Close()

	results := mgr.Index().Search(query, index.SearchOptions{
		Scope:         scope,
		Languages:     c.StringSlice("lang"),
		MaxResults:    c.Int("max"),
		CaseSensitive: c.Bool("case-sensitive"),
	})

	if c.Bool("json") {
		return writeJSON(c.App.Writer, map[string]interface{}{
			"query":   query,
			"total":   len(results),
			"results": results,
		})
	}

	if len(results) == 0 {
		fmt.Fprintf(c.App.Writer, "No matches for %q\n", query)
		return nil
	}
	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	for _, r := range results {
		values := make([]string, 0, len(r.Translations))
		for _, lang := range sortedLanguages(r.Translations) {
			values = append(values, lang+"="+r.Translations[lang].Value.JSONLiteral())
		}
		fmt.Fprintf(tw, "%.2f\t%s\t%s\t%s\n", r.Score, r.KeyPath, r.MatchType, strings.Join(values, " "))
	}
	return tw.Flush()
}

func validateCommand(c *cli.Context) error {
	mgr, err := openManager(c)
	if err != nil {
		return err
	}
	defer mgr.Close()

	base := c.String("base")
	if base == "" {
		base = mgr.Config().Translations.BaseLanguage
	}
	fix := c.Bool("fix")

	res, err := mgr.Index().ValidateStructure(index.ValidationOptions{BaseLanguage: base, AutoFix: fix})
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	var written []string
	if fix && res.Fixed > 0 {
		report := mgr.AutoSync().SyncNow(c.Context)
		for _, f := range report.Files {
			if f.Written {
				written = append(written, f.Path)
			}
		}
		if err := report.Err(); err != nil {
			return cli.Exit(fmt.Sprintf("placeholders added but not all files were written: %v", err), 1)
		}
	}

	if c.Bool("json") {
		if err := writeJSON(c.App.Writer, res); err != nil {
			return err
		}
	} else {
		printValidation(c.App.Writer, res, written)
	}

	if !res.Valid && !fix {
		return cli.Exit("", 1)
	}
	if len(res.FixErrors) > 0 {
		return cli.Exit("", 1)
	}
	return nil
}

func printValidation(w io.Writer, res *index.ValidationResult, written []string) {
	if res.Valid {
		fmt.Fprintf(w, "All %d languages match %s\n", len(res.Languages), res.BaseLanguage)
		return
	}
	fmt.Fprintf(w, "Compared against %s\n", res.BaseLanguage)
	for _, lang := range res.Languages {
		missing, extra, mismatched := res.MissingKeys[lang], res.ExtraKeys[lang], res.TypeMismatches[lang]
		if len(missing)+len(extra)+len(mismatched) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s:\n", lang)
		for _, k := range missing {
			fmt.Fprintf(w, "  missing  %s\n", k)
		}
		for _, k := range extra {
			fmt.Fprintf(w, "  extra    %s\n", k)
		}
		for _, m := range mismatched {
			fmt.Fprintf(w, "  type     %s (%s, expected %s)\n", m.KeyPath, m.Actual, m.Expected)
		}
	}
	if res.Fixed > 0 {
		fmt.Fprintf(w, "\nAdded %d placeholders\n", res.Fixed)
		for _, p := range written {
			fmt.Fprintf(w, "  wrote %s\n", p)
		}
	}
	for _, e := range res.FixErrors {
		fmt.Fprintf(w, "fix failed: %s\n", e)
	}
}

func statsCommand(c *cli.Context) error {
	mgr, err := openManager(c)
	if err != nil {
		return err
	}
	defer mgr.Close()

	stats := mgr.Stats()
	if c.Bool("json") {
		return writeJSON(c.App.Writer, stats)
	}

	w := c.App.Writer
	fmt.Fprintf(w, "Directory:    %s\n", stats.Dir)
	fmt.Fprintf(w, "Keys:         %d\n", stats.Index.Keys)
	fmt.Fprintf(w, "Source files: %d\n", stats.Index.SourceFiles)
	fmt.Fprintf(w, "Max depth:    %d\n", stats.Index.MaxDepth)

	langs := make([]string, 0, len(stats.Index.Languages))
	for lang := range stats.Index.Languages {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	fmt.Fprintln(w, "Languages:")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, lang := range langs {
		fmt.Fprintf(tw, "  %s\t%d\n", lang, stats.Index.Languages[lang])
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if stats.Watcher.ErrorCount > 0 {
		fmt.Fprintf(w, "File errors:  %d\n", stats.Watcher.ErrorCount)
	}
	return nil
}

func keysCommand(c *cli.Context) error {
	mgr, err := openManager(c)
	if err != nil {
		return err
	}
	defer mgr.Close()

	var keys []string
	if prefix := c.String("prefix"); prefix != "" {
		keys = mgr.Index().SearchByPrefix(prefix)
	} else {
		keys = mgr.Index().Keys()
	}
	for _, k := range keys {
		fmt.Fprintln(c.App.Writer, k)
	}
	return nil
}

func sortedLanguages(t types.IndexedTranslation) []string {
	langs := make([]string, 0, len(t))
	for lang := range t {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}
