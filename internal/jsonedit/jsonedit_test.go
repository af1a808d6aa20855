package jsonedit

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	syncerrors "github.com/standardbeagle/i18nsync/internal/errors"
	"github.com/standardbeagle/i18nsync/internal/types"
)

func path(p string) []string { return strings.Split(p, ".") }

func setText(t *testing.T, text, key string, value types.Scalar) string {
	t.Helper()
	doc, err := Parse(text)
	require.NoError(t, err)
	edits, err := doc.SetEdits(path(key), value, FormatOptions{})
	require.NoError(t, err)
	out, err := ApplyEdits(text, edits)
	require.NoError(t, err)
	_, err = Parse(out)
	require.NoError(t, err, "result must stay valid:\n%s", out)
	return out
}

func removeText(t *testing.T, text, key string) string {
	t.Helper()
	doc, err := Parse(text)
	require.NoError(t, err)
	edits, ok := doc.RemoveEdits(path(key))
	require.True(t, ok)
	out, err := ApplyEdits(text, edits)
	require.NoError(t, err)
	_, err = Parse(out)
	require.NoError(t, err, "result must stay valid:\n%s", out)
	return out
}

func TestParse_PositionsAndLookup(t *testing.T) {
	text := "{\n  \"common\": {\n    \"ok\": \"OK\"\n  }\n}"
	doc, err := Parse(text)
	require.NoError(t, err)

	n, ok := doc.Find(path("common.ok"))
	require.True(t, ok)
	assert.Equal(t, `"OK"`, doc.Raw(n))
	line, col := doc.Position(doc.Nodes[n].KeyStart)
	assert.Equal(t, 3, line)
	assert.Equal(t, 5, col)

	_, ok = doc.Find(path("common.missing"))
	assert.False(t, ok)
}

func TestParse_CommentsTrailingCommasAndEscapes(t *testing.T) {
	text := `// header
{
  /* block */ "a": "x\"yé", // trailing
  "n": -1.50e2,
  "b": true,
  "list": [1, 2,],
}`
	doc, err := Parse(text)
	require.NoError(t, err)

	n, _ := doc.Find([]string{"a"})
	v, ok := doc.Scalar(n)
	require.True(t, ok)
	assert.Equal(t, `x"yé`, v.String())

	n, _ = doc.Find([]string{"n"})
	v, _ = doc.Scalar(n)
	assert.Equal(t, "-1.50e2", v.String())
}

func TestParse_Errors(t *testing.T) {
	for _, text := range []string{`{"a" 1}`, `{"a": }`, `{"a": 01}`, `{"a": "x"`, `{"a": "x"} extra`, `/* open`, `{'a': 1}`} {
		_, err := Parse(text)
		var se *SyntaxError
		assert.True(t, errors.As(err, &se), text)
	}
	_, err := Parse("   \n")
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestFlatten(t *testing.T) {
	doc, err := Parse(`{"common": {"ok": "OK", "n": 3, "flag": false, "empty": {}}, "arr": [1], "nil": null, "top": "T"}`)
	require.NoError(t, err)

	leaves, skipped := doc.Flatten()
	var keys []string
	for _, l := range leaves {
		keys = append(keys, l.KeyPath)
	}
	assert.Equal(t, []string{"common.ok", "common.n", "common.flag", "top"}, keys)
	assert.Equal(t, types.KindNumber, leaves[1].Value.Kind())
	assert.Equal(t, types.KindBool, leaves[2].Value.Kind())

	require.Len(t, skipped, 2)
	assert.Equal(t, "arr", skipped[0].KeyPath)
	assert.Equal(t, KindArray, skipped[0].Kind)
	assert.Equal(t, KindNull, skipped[1].Kind)
}

func TestFlatten_SkipsMemberNamesThatAreNotSegments(t *testing.T) {
	doc, err := Parse(`{"a.b": "x", "ok": "y", "with space": {"k": "v"}, "nested": {"x.y": "z", "fine": "w"}}`)
	require.NoError(t, err)

	leaves, skipped := doc.Flatten()
	var keys []string
	for _, l := range leaves {
		keys = append(keys, l.KeyPath)
	}
	assert.Equal(t, []string{"ok", "nested.fine"}, keys)

	require.Len(t, skipped, 3)
	assert.Equal(t, "a.b", skipped[0].KeyPath)
	assert.True(t, skipped[0].BadName)
	assert.Equal(t, "with space", skipped[1].KeyPath)
	assert.Equal(t, KindObject, skipped[1].Kind)
	assert.Equal(t, "nested.x.y", skipped[2].KeyPath)
	assert.Equal(t, 1, skipped[2].Line)
}

func TestFlatten_NonObjectRoot(t *testing.T) {
	doc, err := Parse(`["a"]`)
	require.NoError(t, err)
	leaves, skipped := doc.Flatten()
	assert.Empty(t, leaves)
	require.Len(t, skipped, 1)
	assert.Equal(t, KindArray, skipped[0].Kind)
}

func TestCheckSet_StructuralConflict(t *testing.T) {
	doc, err := Parse(`{"a":"x","list":[1],"obj":{"k":"v"}}`)
	require.NoError(t, err)

	err = doc.CheckSet(path("a.b"))
	assert.True(t, errors.Is(err, syncerrors.ErrStructuralConflict))
	err = doc.CheckSet(path("list.0"))
	assert.True(t, errors.Is(err, syncerrors.ErrStructuralConflict))
	err = doc.CheckSet(path("obj"))
	assert.True(t, errors.Is(err, ErrContainerAtPath))

	assert.NoError(t, doc.CheckSet(path("obj.k")))
	assert.NoError(t, doc.CheckSet(path("obj.new.deep")))
	assert.NoError(t, doc.CheckSet(path("fresh")))

	arr, err := Parse(`[]`)
	require.NoError(t, err)
	assert.True(t, errors.Is(arr.CheckSet(path("a")), syncerrors.ErrStructuralConflict))
}

func TestSetEdits_ReplaceKeepsEverythingElse(t *testing.T) {
	text := "{\n  // greeting\n  \"hello\": \"Hi\", /* keep */\n  \"bye\": \"Bye\"\n}\n"
	out := setText(t, text, "hello", types.StringValue("Hello"))
	assert.Equal(t, "{\n  // greeting\n  \"hello\": \"Hello\", /* keep */\n  \"bye\": \"Bye\"\n}\n", out)
}

func TestSetEdits_EqualValueProducesNoEdits(t *testing.T) {
	doc, err := Parse(`{"a": "x", "n": 1.0}`)
	require.NoError(t, err)

	edits, err := doc.SetEdits(path("a"), types.StringValue("x"), FormatOptions{})
	require.NoError(t, err)
	assert.Empty(t, edits)

	edits, err = doc.SetEdits(path("n"), types.NumberValue(1), FormatOptions{})
	require.NoError(t, err)
	assert.Empty(t, edits)
}

func TestSetEdits_InsertMultiline(t *testing.T) {
	text := "{\n    \"a\": \"1\"\n}\n"
	out := setText(t, text, "b", types.StringValue("2"))
	assert.Equal(t, "{\n    \"a\": \"1\",\n    \"b\": \"2\"\n}\n", out)
}

func TestSetEdits_InsertNested(t *testing.T) {
	text := "{\n  \"a\": \"1\"\n}"
	out := setText(t, text, "x.y.z", types.BoolValue(true))
	assert.Equal(t, "{\n  \"a\": \"1\",\n  \"x\": {\n    \"y\": {\n      \"z\": true\n    }\n  }\n}", out)
}

func TestSetEdits_InsertIntoExistingNestedObject(t *testing.T) {
	text := "{\n\t\"common\": {\n\t\t\"ok\": \"OK\"\n\t}\n}"
	out := setText(t, text, "common.cancel", types.StringValue("Cancel"))
	assert.Equal(t, "{\n\t\"common\": {\n\t\t\"ok\": \"OK\",\n\t\t\"cancel\": \"Cancel\"\n\t}\n}", out)
}

func TestSetEdits_InsertEmptyAndInline(t *testing.T) {
	assert.Equal(t, "{\n  \"k\": \"v\"\n}", setText(t, "{}", "k", types.StringValue("v")))
	assert.Equal(t, `{"a": 1, "k": "v"}`, setText(t, `{"a": 1}`, "k", types.StringValue("v")))
	assert.Equal(t, `{"a": 1, "k": {"j": 2}}`, setText(t, `{"a": 1}`, "k.j", types.NumberValue(2)))
}

func TestSetEdits_TrailingCommaAndLineComment(t *testing.T) {
	out := setText(t, "{\n  \"a\": \"1\",\n}", "b", types.StringValue("2"))
	assert.Equal(t, "{\n  \"a\": \"1\",\n  \"b\": \"2\",\n}", out)

	out = setText(t, "{\n  \"a\": \"1\" // note\n}", "b", types.StringValue("2"))
	assert.Equal(t, "{\n  \"a\": \"1\", // note\n  \"b\": \"2\"\n}", out)
}

func TestSetEdits_QuotesSpecialCharacters(t *testing.T) {
	out := setText(t, `{}`, "msg", types.StringValue(`say "hi" <b>`))
	assert.Contains(t, out, `"msg": "say \"hi\" <b>"`)
}

func TestSetEdits_FallbackFormat(t *testing.T) {
	doc, err := Parse(`{}`)
	require.NoError(t, err)
	edits, err := doc.SetEdits(path("k"), types.StringValue("v"), FormatOptions{UseTabs: true})
	require.NoError(t, err)
	out, err := ApplyEdits(`{}`, edits)
	require.NoError(t, err)
	assert.Equal(t, "{\n\t\"k\": \"v\"\n}", out)
}

func TestRemoveEdits(t *testing.T) {
	text := "{\n  \"a\": \"1\",\n  \"b\": \"2\",\n  \"c\": \"3\"\n}"
	assert.Equal(t, "{\n  \"b\": \"2\",\n  \"c\": \"3\"\n}", removeText(t, text, "a"))
	assert.Equal(t, "{\n  \"a\": \"1\",\n  \"c\": \"3\"\n}", removeText(t, text, "b"))
	assert.Equal(t, "{\n  \"a\": \"1\",\n  \"b\": \"2\"\n}", removeText(t, text, "c"))

	assert.Equal(t, `{"b": 2}`, removeText(t, `{"a": 1, "b": 2}`, "a"))
	assert.Equal(t, `{"a": 1}`, removeText(t, `{"a": 1, "b": 2}`, "b"))
	assert.Equal(t, `{}`, removeText(t, `{"a": 1}`, "a"))
}

func TestRemoveEdits_PrunesEmptyParents(t *testing.T) {
	text := "{\n  \"keep\": \"k\",\n  \"a\": {\n    \"b\": {\n      \"c\": \"x\"\n    }\n  }\n}"
	assert.Equal(t, "{\n  \"keep\": \"k\"\n}", removeText(t, text, "a.b.c"))

	doc, err := Parse(text)
	require.NoError(t, err)
	_, ok := doc.RemoveEdits(path("a.missing"))
	assert.False(t, ok)
}

func TestApplyEdits_RejectsOverlap(t *testing.T) {
	_, err := ApplyEdits("abcdef", []Edit{{Offset: 1, Length: 3}, {Offset: 2, Length: 1}})
	assert.Error(t, err)
	_, err = ApplyEdits("abc", []Edit{{Offset: 2, Length: 5}})
	assert.Error(t, err)

	out, err := ApplyEdits("abc", []Edit{{Offset: 1, Text: "X"}, {Offset: 1, Text: "Y"}, {Offset: 0, Length: 1, Text: "_"}})
	require.NoError(t, err)
	assert.Equal(t, "_XYbc", out)
}

func TestEditor_SharedNewParent(t *testing.T) {
	ed, err := NewEditor("", FormatOptions{})
	require.NoError(t, err)

	changed, err := ed.Set(path("x.a"), types.StringValue("1"))
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = ed.Set(path("x.b"), types.StringValue("2"))
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = ed.Set(path("x.b"), types.StringValue("2"))
	require.NoError(t, err)
	assert.False(t, changed)

	assert.Equal(t, "{\n  \"x\": {\n    \"a\": \"1\",\n    \"b\": \"2\"\n  }\n}", ed.Text())

	changed, err = ed.Remove(path("x.a"))
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = ed.Remove(path("x.a"))
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestDetectIndent(t *testing.T) {
	unit, ok := DetectIndent("{\n    \"a\": {\n        \"b\": 1\n    }\n}")
	assert.True(t, ok)
	assert.Equal(t, "    ", unit)

	unit, ok = DetectIndent("{\n\t\"a\": 1\n}")
	assert.True(t, ok)
	assert.Equal(t, "\t", unit)

	_, ok = DetectIndent(`{"a": 1}`)
	assert.False(t, ok)
}
