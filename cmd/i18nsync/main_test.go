package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
	"go.uber.org/goleak"

	"github.com/standardbeagle/i18nsync/internal/debug"
	"github.com/standardbeagle/i18nsync/testhelpers"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// runCLI runs the app in-process against dir and returns stdout and the
// exit code carried by the returned error
func runCLI(t *testing.T, dir string, args ...string) (string, int) {
	t.Helper()
	out, _, code := runCLIWithStderr(t, dir, args...)
	return out, code
}

func runCLIWithStderr(t *testing.T, dir string, args ...string) (string, string, int) {
	t.Helper()
	// Keep a developer's global config and environment out of the test
	t.Setenv("HOME", t.TempDir())
	t.Setenv("I18NSYNC_DIR", "")
	t.Setenv("I18NSYNC_BASE_LANGUAGE", "")
	t.Setenv("I18NSYNC_METRICS_ADDR", "")

	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	app.ExitErrHandler = func(*cli.Context, error) {}

	argv := append([]string{"i18nsync", "--root", dir, "--dir", "."}, args...)
	err := app.Run(argv)
	if err == nil {
		return out.String(), errOut.String(), 0
	}
	var coder cli.ExitCoder
	if assert.ErrorAs(t, err, &coder) {
		return out.String(), errOut.String(), coder.ExitCode()
	}
	return out.String(), errOut.String(), -1
}

func projectDir(t *testing.T) string {
	return testhelpers.TranslationDir(t, map[string]string{
		"en.json": testhelpers.TestData.English,
		"es.json": testhelpers.TestData.Spanish,
	})
}

func TestGet(t *testing.T) {
	dir := projectDir(t)

	out, code := runCLI(t, dir, "get", "common.ok")
	require.Equal(t, 0, code)
	assert.Contains(t, out, `en  "OK"`)
	assert.Contains(t, out, `es  "Aceptar"`)

	out, code = runCLI(t, dir, "get", "--lang", "es", "common.cancel")
	require.Equal(t, 0, code)
	assert.Contains(t, out, `"Cancelar"`)
	assert.NotContains(t, out, "en")

	out, code = runCLI(t, dir, "get", "--json", "auth.login.title")
	require.Equal(t, 0, code)
	var body struct {
		Key          string `json:"key"`
		Translations map[string]struct {
			Value      string `json:"value"`
			SourceFile string `json:"sourceFile"`
		} `json:"translations"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, "auth.login.title", body.Key)
	assert.Equal(t, "Iniciar sesión", body.Translations["es"].Value)
}

func TestGet_NotFound(t *testing.T) {
	dir := projectDir(t)

	_, code := runCLI(t, dir, "get", "common.okk")
	assert.Equal(t, 1, code)

	_, code = runCLI(t, dir, "get", "--lang", "es", "auth.login.submit")
	assert.Equal(t, 1, code)

	_, code = runCLI(t, dir, "get")
	assert.Equal(t, 2, code)
}

func TestSearch(t *testing.T) {
	dir := projectDir(t)

	out, code := runCLI(t, dir, "search", "--scope", "keys", "login")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "auth.login.title")
	assert.Contains(t, out, "auth.login.submit")

	out, code = runCLI(t, dir, "search", "--json", "--lang", "es", "Aceptar")
	require.Equal(t, 0, code)
	var body struct {
		Total   int `json:"total"`
		Results []struct {
			KeyPath string `json:"keyPath"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	require.Equal(t, 1, body.Total)
	assert.Equal(t, "common.ok", body.Results[0].KeyPath)

	out, code = runCLI(t, dir, "search", "zzz-nothing")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "No matches")

	_, code = runCLI(t, dir, "search", "--scope", "everything", "ok")
	assert.Equal(t, 2, code)
}

func TestValidate(t *testing.T) {
	dir := projectDir(t)

	out, code := runCLI(t, dir, "validate")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "missing  auth.login.submit")

	out, code = runCLI(t, dir, "validate", "--json")
	assert.Equal(t, 1, code)
	var res struct {
		Valid       bool                `json:"valid"`
		MissingKeys map[string][]string `json:"missingKeys"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.False(t, res.Valid)
	assert.Equal(t, []string{"auth.login.submit"}, res.MissingKeys["es"])

	_, code = runCLI(t, dir, "validate", "--base", "fr")
	assert.Equal(t, 1, code)
}

func TestValidate_FixWritesPlaceholders(t *testing.T) {
	dir := projectDir(t)

	out, code := runCLI(t, dir, "validate", "--fix")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Added 1 placeholders")

	var es map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(testhelpers.ReadFile(t, filepath.Join(dir, "es.json"))), &es))
	login := es["auth"].(map[string]interface{})["login"].(map[string]interface{})
	assert.Equal(t, "[MISSING: Log in]", login["submit"])
	assert.Equal(t, "Iniciar sesión", login["title"])

	out, code = runCLI(t, dir, "validate")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "All 2 languages match en")
}

func TestStats(t *testing.T) {
	dir := projectDir(t)

	out, code := runCLI(t, dir, "stats")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Keys:         4")
	assert.Contains(t, out, "Source files: 2")

	out, code = runCLI(t, dir, "stats", "--json")
	require.Equal(t, 0, code)
	var stats struct {
		Initialized bool `json:"initialized"`
		Index       struct {
			Keys      int            `json:"keys"`
			Languages map[string]int `json:"languages"`
		} `json:"index"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.True(t, stats.Initialized)
	assert.Equal(t, map[string]int{"en": 4, "es": 3}, stats.Index.Languages)
}

func TestKeys(t *testing.T) {
	dir := projectDir(t)

	out, code := runCLI(t, dir, "keys")
	require.Equal(t, 0, code)
	assert.Equal(t, "auth.login.submit\nauth.login.title\ncommon.cancel\ncommon.ok\n", out)

	out, code = runCLI(t, dir, "keys", "--prefix", "common.")
	require.Equal(t, 0, code)
	assert.Equal(t, "common.cancel\ncommon.ok\n", out)
}

func TestLoadConfigWithOverrides(t *testing.T) {
	dir := projectDir(t)
	t.Setenv("HOME", t.TempDir())
	testhelpers.WriteFile(t, filepath.Join(dir, ".i18nsync.toml"), `
[translations]
dir = "locales"
base_language = "es"

[watch]
enabled = true
`)

	app := newApp()
	app.Commands = nil
	var got struct {
		dir, base string
		watch     bool
		debounce  int
	}
	app.Action = func(c *cli.Context) error {
		cfg, err := loadConfigWithOverrides(c)
		if err != nil {
			return err
		}
		got.dir = cfg.Translations.Dir
		got.base = cfg.Translations.BaseLanguage
		got.watch = cfg.Watch.Enabled
		got.debounce = cfg.AutoSync.DebounceMs
		return nil
	}

	require.NoError(t, app.Run([]string{"i18nsync", "--root", dir}))
	assert.Equal(t, "locales", got.dir)
	assert.Equal(t, "es", got.base)
	assert.True(t, got.watch)

	require.NoError(t, app.Run([]string{"i18nsync", "--root", dir, "--dir", "i18n", "-b", "en", "--no-watch", "--debounce", "50"}))
	assert.Equal(t, "i18n", got.dir)
	assert.Equal(t, "en", got.base)
	assert.False(t, got.watch)
	assert.Equal(t, 50, got.debounce)
}

func TestDebugFlag_TracesToStderr(t *testing.T) {
	dir := projectDir(t)
	t.Cleanup(func() {
		debug.Disable()
		debug.SetDebugOutput(nil)
	})

	out, stderr, code := runCLIWithStderr(t, dir, "--debug", "watch", "keys")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "common.ok")
	assert.Contains(t, stderr, "[DEBUG:WATCH]")
	assert.NotContains(t, out, "[DEBUG")
}
