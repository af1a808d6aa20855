package jsonedit

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	syncerrors "github.com/standardbeagle/i18nsync/internal/errors"
	"github.com/standardbeagle/i18nsync/internal/types"
)

// ErrContainerAtPath is returned when a scalar would replace an object or array
var ErrContainerAtPath = errors.New("an object or array already exists at this path")

// Edit replaces Length bytes at Offset with Text
type Edit struct {
	Offset int
	Length int
	Text   string
}

// FormatOptions is the indentation used when the document gives no hint
type FormatOptions struct {
	IndentSize int
	UseTabs    bool
}

func (f FormatOptions) unit() string {
	if f.UseTabs {
		return "\t"
	}
	if f.IndentSize > 0 {
		return strings.Repeat(" ", f.IndentSize)
	}
	return "  "
}

// DetectIndent returns the indentation unit used by text: a tab, or the
// smallest run of leading spaces on any line.
func DetectIndent(text string) (string, bool) {
	smallest := 0
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" || len(trimmed) == len(line) {
			continue
		}
		if line[0] == '\t' {
			return "\t", true
		}
		n := len(line) - len(strings.TrimLeft(line, " "))
		if n > 0 && (smallest == 0 || n < smallest) {
			smallest = n
		}
	}
	if smallest == 0 {
		return "", false
	}
	if smallest > 8 {
		smallest = 8
	}
	return strings.Repeat(" ", smallest), true
}

func (d *Document) indentUnit(f FormatOptions) string {
	if unit, ok := DetectIndent(d.Text); ok {
		return unit
	}
	return f.unit()
}

func (d *Document) lineStart(offset int) int {
	return strings.LastIndexByte(d.Text[:offset], '\n') + 1
}

// lineIndent returns the leading whitespace of the line containing offset
func (d *Document) lineIndent(offset int) string {
	ls := d.lineStart(offset)
	line := d.Text[ls:]
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}

// ownLine reports whether nothing but whitespace precedes offset on its line
func (d *Document) ownLine(offset int) bool {
	return strings.TrimSpace(d.Text[d.lineStart(offset):offset]) == ""
}

// restOfLine returns the end of the line after offset, excluding the newline,
// and whether that remainder holds only whitespace or a line comment.
func (d *Document) restOfLine(offset int) (int, bool) {
	eol := strings.IndexByte(d.Text[offset:], '\n')
	if eol < 0 {
		eol = len(d.Text)
	} else {
		eol += offset
	}
	rest := strings.TrimSpace(d.Text[offset:eol])
	return eol, rest == "" || strings.HasPrefix(rest, "//")
}

// Resolution describes how far a dot-path reaches into a document
type Resolution struct {
	Node    int  // deepest node reached
	Depth   int  // number of segments resolved
	Blocked bool // Node is not an object but more segments remain
}

// Resolve walks segments from the root as far as existing members allow
func (d *Document) Resolve(segments []string) Resolution {
	cur := d.Root
	for i, seg := range segments {
		if d.Nodes[cur].Kind != KindObject {
			return Resolution{Node: cur, Depth: i, Blocked: true}
		}
		next, ok := d.Member(cur, seg)
		if !ok {
			return Resolution{Node: cur, Depth: i}
		}
		cur = next
	}
	return Resolution{Node: cur, Depth: len(segments)}
}

// CheckSet reports whether a scalar can be written at segments. A string,
// number, boolean, null or array standing where a deeper segment is needed is
// a structural conflict. An object or array at the full path fails with
// ErrContainerAtPath.
func (d *Document) CheckSet(segments []string) error {
	if len(segments) == 0 {
		return fmt.Errorf("%w: empty path", syncerrors.ErrInvalidKeyPath)
	}
	r := d.Resolve(segments)
	if r.Blocked {
		at := strings.Join(segments[:r.Depth], ".")
		if at == "" {
			at = "<root>"
		}
		return fmt.Errorf("%w: %s is a %s, cannot hold %q",
			syncerrors.ErrStructuralConflict, at, d.Nodes[r.Node].Kind, segments[r.Depth])
	}
	if r.Depth == len(segments) {
		if k := d.Nodes[r.Node].Kind; k == KindObject || k == KindArray {
			return fmt.Errorf("%w: %s is a %s", ErrContainerAtPath, strings.Join(segments, "."), k)
		}
	}
	return nil
}

// SetEdits returns the edits that store value at segments. Nothing is returned
// when the document already holds an equal value there. Missing intermediate
// objects are created.
func (d *Document) SetEdits(segments []string, value types.Scalar, f FormatOptions) ([]Edit, error) {
	if !value.IsValid() {
		return nil, types.ErrInvalidScalar
	}
	if err := d.CheckSet(segments); err != nil {
		return nil, err
	}

	r := d.Resolve(segments)
	if r.Depth == len(segments) {
		n := &d.Nodes[r.Node]
		if cur, ok := d.Scalar(r.Node); ok && cur.Equal(value) {
			return nil, nil
		}
		return []Edit{{Offset: n.Start, Length: n.End - n.Start, Text: value.JSONLiteral()}}, nil
	}
	return d.insertMember(r.Node, segments[r.Depth], segments[r.Depth+1:], value, f), nil
}

func renderMember(key string, rest []string, value types.Scalar, indent, unit string, multiline bool) string {
	name := types.QuoteJSON(key)
	if len(rest) == 0 {
		return name + ": " + value.JSONLiteral()
	}
	if !multiline {
		return name + ": {" + renderMember(rest[0], rest[1:], value, "", "", false) + "}"
	}
	inner := indent + unit
	return name + ": {\n" + inner + renderMember(rest[0], rest[1:], value, inner, unit, true) + "\n" + indent + "}"
}

func (d *Document) insertMember(obj int, key string, rest []string, value types.Scalar, f FormatOptions) []Edit {
	o := &d.Nodes[obj]
	unit := d.indentUnit(f)
	base := d.lineIndent(o.Start)

	if len(o.Children) == 0 {
		indent := base + unit
		member := renderMember(key, rest, value, indent, unit, true)
		inner := d.Text[o.Start+1 : o.End-1]
		if strings.TrimSpace(inner) == "" {
			return []Edit{{Offset: o.Start + 1, Length: len(inner), Text: "\n" + indent + member + "\n" + base}}
		}
		// Only comments inside; keep them after the new member
		return []Edit{{Offset: o.Start + 1, Text: "\n" + indent + member}}
	}

	last := &d.Nodes[o.Children[len(o.Children)-1]]
	after := last.End
	if last.Comma >= 0 {
		after = last.Comma + 1
	}

	if d.lineStart(last.KeyStart) == d.lineStart(o.Start) {
		member := renderMember(key, rest, value, "", "", false)
		if last.Comma >= 0 {
			return []Edit{{Offset: after, Text: " " + member + ","}}
		}
		return []Edit{{Offset: after, Text: ", " + member}}
	}

	indent := base + unit
	if d.ownLine(last.KeyStart) {
		indent = d.lineIndent(last.KeyStart)
	}
	member := renderMember(key, rest, value, indent, unit, true)

	// Insert after a trailing line comment so it stays with its member
	at := after
	if eol, clean := d.restOfLine(after); clean && eol < o.End-1 {
		at = eol
	}

	if last.Comma >= 0 {
		return []Edit{{Offset: at, Text: "\n" + indent + member + ","}}
	}
	if at == after {
		return []Edit{{Offset: after, Text: ",\n" + indent + member}}
	}
	return []Edit{
		{Offset: last.End, Text: ","},
		{Offset: at, Text: "\n" + indent + member},
	}
}

// RemoveEdits returns the edits that delete the member at segments together
// with its separator. Objects left empty by the removal are removed as well,
// up to but excluding the root. It returns false when the path does not exist.
func (d *Document) RemoveEdits(segments []string) ([]Edit, bool) {
	if len(segments) == 0 {
		return nil, false
	}
	target, ok := d.Find(segments)
	if !ok {
		return nil, false
	}
	for {
		parent := d.Nodes[target].Parent
		if parent < 0 || parent == d.Root || len(d.Nodes[parent].Children) != 1 {
			break
		}
		target = parent
	}
	return d.removeMember(target), true
}

// lineSpan widens [start, end) to whole lines when the member sits alone on them
func (d *Document) lineSpan(start, end int) (int, int) {
	if !d.ownLine(start) {
		return start, end
	}
	eol, clean := d.restOfLine(end)
	if !clean {
		return start, end
	}
	if eol < len(d.Text) {
		eol++
	}
	return d.lineStart(start), eol
}

func (d *Document) removeMember(m int) []Edit {
	n := &d.Nodes[m]
	o := &d.Nodes[n.Parent]

	idx := 0
	for i, c := range o.Children {
		if c == m {
			idx = i
			break
		}
	}

	end := n.End
	if n.Comma >= 0 {
		end = n.Comma + 1
	}

	if len(o.Children) == 1 {
		inner := d.Text[o.Start+1 : o.End-1]
		rest := d.Text[o.Start+1:n.KeyStart] + d.Text[end:o.End-1]
		if strings.TrimSpace(rest) == "" {
			return []Edit{{Offset: o.Start + 1, Length: len(inner)}}
		}
		s, e := d.lineSpan(n.KeyStart, end)
		return []Edit{{Offset: s, Length: e - s}}
	}

	if idx < len(o.Children)-1 || n.Comma >= 0 {
		if d.ownLine(n.KeyStart) {
			s, e := d.lineSpan(n.KeyStart, end)
			return []Edit{{Offset: s, Length: e - s}}
		}
		for end < o.End-1 && d.Text[end] == ' ' {
			end++
		}
		return []Edit{{Offset: n.KeyStart, Length: end - n.KeyStart}}
	}

	// Last member without a trailing comma: the previous member's comma goes too
	prev := &d.Nodes[o.Children[idx-1]]
	if d.ownLine(n.KeyStart) {
		s, e := d.lineSpan(n.KeyStart, end)
		return []Edit{
			{Offset: prev.Comma, Length: 1},
			{Offset: s, Length: e - s},
		}
	}
	return []Edit{{Offset: prev.End, Length: n.End - prev.End}}
}

// ApplyEdits applies non-overlapping edits to text. Insertions at the same
// offset keep the order they were given in.
func ApplyEdits(text string, edits []Edit) (string, error) {
	if len(edits) == 0 {
		return text, nil
	}
	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })

	for i, e := range sorted {
		if e.Offset < 0 || e.Length < 0 || e.Offset+e.Length > len(text) {
			return "", fmt.Errorf("edit at %d+%d out of range for %d bytes", e.Offset, e.Length, len(text))
		}
		if i > 0 {
			prev := sorted[i-1]
			if prev.Offset+prev.Length > e.Offset {
				return "", fmt.Errorf("overlapping edits at %d and %d", prev.Offset, e.Offset)
			}
		}
	}

	var b strings.Builder
	b.Grow(len(text) + 64)
	pos := 0
	for _, e := range sorted {
		b.WriteString(text[pos:e.Offset])
		b.WriteString(e.Text)
		pos = e.Offset + e.Length
	}
	b.WriteString(text[pos:])
	return b.String(), nil
}

// Editor applies a sequence of changes to a text, re-parsing only after a
// change actually modified it.
type Editor struct {
	text   string
	doc    *Document
	format FormatOptions
}

// NewEditor parses text; blank text is treated as an empty object
func NewEditor(text string, f FormatOptions) (*Editor, error) {
	if strings.TrimSpace(text) == "" {
		text = "{}"
	}
	doc, err := Parse(text)
	if err != nil {
		return nil, err
	}
	return &Editor{text: text, doc: doc, format: f}, nil
}

// Document returns the current parsed document
func (e *Editor) Document() *Document { return e.doc }

// Text returns the current text
func (e *Editor) Text() string { return e.text }

// Set stores value at segments and reports whether the text changed
func (e *Editor) Set(segments []string, value types.Scalar) (bool, error) {
	edits, err := e.doc.SetEdits(segments, value, e.format)
	if err != nil || len(edits) == 0 {
		return false, err
	}
	return true, e.apply(edits)
}

// Remove deletes the member at segments and reports whether the text changed
func (e *Editor) Remove(segments []string) (bool, error) {
	edits, ok := e.doc.RemoveEdits(segments)
	if !ok {
		return false, nil
	}
	return true, e.apply(edits)
}

func (e *Editor) apply(edits []Edit) error {
	text, err := ApplyEdits(e.text, edits)
	if err != nil {
		return err
	}
	doc, err := Parse(text)
	if err != nil {
		return fmt.Errorf("edit produced invalid document: %w", err)
	}
	e.text, e.doc = text, doc
	return nil
}
