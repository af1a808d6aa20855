// Package jsonedit parses JSON documents (comments and trailing commas allowed)
// into an arena of nodes that remember their byte offsets, and computes minimal
// text edits against that arena. Edits never touch bytes outside the members
// they change, so comments and formatting elsewhere in the file survive.
//
// A Document is immutable once parsed; every edit function is a pure function
// of the document and returns edits to apply to the original text.
package jsonedit

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/standardbeagle/i18nsync/internal/types"
)

// Kind is the JSON type of a node
type Kind uint8

const (
	KindObject Kind = iota + 1
	KindArray
	KindString
	KindNumber
	KindBool
	KindNull
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	case KindNull:
		return "null"
	default:
		return "invalid"
	}
}

// IsScalar reports whether the kind can be a translation leaf
func (k Kind) IsScalar() bool {
	return k == KindString || k == KindNumber || k == KindBool
}

// maxNesting bounds recursion on hostile input
const maxNesting = 512

// ErrEmptyDocument is returned when the text holds no JSON value
var ErrEmptyDocument = errors.New("empty document")

// SyntaxError describes malformed input
type SyntaxError struct {
	Offset int
	Line   int
	Column int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at line %d column %d: %s", e.Line, e.Column, e.Msg)
}

// Node is one JSON value. Members of an object and elements of an array are
// nodes too; they carry their member name and separator position.
type Node struct {
	Kind  Kind
	Start int // first byte of the value
	End   int // one past the last byte of the value

	Parent   int    // arena index of the containing node, -1 for the root
	Key      string // member name when the parent is an object
	KeyStart int    // offset of the member name's opening quote, -1 otherwise
	Comma    int    // offset of the comma following this member or element, -1 if none

	Children []int // members or elements in source order
	str      string
}

// Document is a parsed text and its node arena
type Document struct {
	Text       string
	Nodes      []Node
	Root       int
	lineStarts []int
}

// Parse builds a Document from text
func Parse(text string) (*Document, error) {
	p := &parser{text: text}
	p.doc = &Document{Text: text, lineStarts: lineStarts(text)}

	// UTF-8 byte order mark
	if strings.HasPrefix(text, "\ufeff") {
		p.pos = 3
	}
	if err := p.skipSpace(); err != nil {
		return nil, err
	}
	if p.pos >= len(text) {
		return nil, ErrEmptyDocument
	}
	root, err := p.value(-1, 0)
	if err != nil {
		return nil, err
	}
	if err := p.skipSpace(); err != nil {
		return nil, err
	}
	if p.pos < len(text) {
		return nil, p.errorf("unexpected %q after top-level value", text[p.pos])
	}
	p.doc.Root = root
	return p.doc, nil
}

func lineStarts(text string) []int {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// Position converts a byte offset to a 1-based line and column
func (d *Document) Position(offset int) (line, column int) {
	i := sort.Search(len(d.lineStarts), func(i int) bool { return d.lineStarts[i] > offset }) - 1
	if i < 0 {
		i = 0
	}
	return i + 1, offset - d.lineStarts[i] + 1
}

// Raw returns the source text of node i
func (d *Document) Raw(i int) string {
	n := &d.Nodes[i]
	return d.Text[n.Start:n.End]
}

// Member returns the child of object node i named key. With duplicate names
// the last one wins, matching what JSON decoders do.
func (d *Document) Member(i int, key string) (int, bool) {
	n := &d.Nodes[i]
	if n.Kind != KindObject {
		return -1, false
	}
	for j := len(n.Children) - 1; j >= 0; j-- {
		c := n.Children[j]
		if d.Nodes[c].Key == key {
			return c, true
		}
	}
	return -1, false
}

// Find returns the node at the dot-path segments
func (d *Document) Find(segments []string) (int, bool) {
	cur := d.Root
	for _, seg := range segments {
		next, ok := d.Member(cur, seg)
		if !ok {
			return -1, false
		}
		cur = next
	}
	return cur, true
}

// Scalar converts a string, number or boolean node into a Scalar
func (d *Document) Scalar(i int) (types.Scalar, bool) {
	n := &d.Nodes[i]
	switch n.Kind {
	case KindString:
		return types.StringValue(n.str), true
	case KindNumber:
		v, err := types.NumberLiteral(d.Raw(i))
		if err != nil {
			return types.Scalar{}, false
		}
		return v, true
	case KindBool:
		return types.BoolValue(d.Raw(i) == "true"), true
	default:
		return types.Scalar{}, false
	}
}

type parser struct {
	text string
	pos  int
	doc  *Document
}

func (p *parser) errorf(format string, args ...interface{}) error {
	line, col := p.doc.Position(p.pos)
	return &SyntaxError{Offset: p.pos, Line: line, Column: col, Msg: fmt.Sprintf(format, args...)}
}

// skipSpace skips whitespace and comments
func (p *parser) skipSpace() error {
	for p.pos < len(p.text) {
		switch c := p.text[p.pos]; c {
		case ' ', '\t', '\n', '\r':
			p.pos++
		case '/':
			if p.pos+1 >= len(p.text) {
				return p.errorf("unexpected '/'")
			}
			switch p.text[p.pos+1] {
			case '/':
				end := strings.IndexByte(p.text[p.pos:], '\n')
				if end < 0 {
					p.pos = len(p.text)
				} else {
					p.pos += end + 1
				}
			case '*':
				end := strings.Index(p.text[p.pos+2:], "*/")
				if end < 0 {
					return p.errorf("unterminated block comment")
				}
				p.pos += 2 + end + 2
			default:
				return p.errorf("unexpected '/'")
			}
		default:
			return nil
		}
	}
	return nil
}

func (p *parser) add(n Node) int {
	p.doc.Nodes = append(p.doc.Nodes, n)
	return len(p.doc.Nodes) - 1
}

func (p *parser) value(parent, depth int) (int, error) {
	if depth > maxNesting {
		return -1, p.errorf("nesting deeper than %d", maxNesting)
	}
	if p.pos >= len(p.text) {
		return -1, p.errorf("unexpected end of input")
	}
	switch c := p.text[p.pos]; {
	case c == '{':
		return p.object(parent, depth)
	case c == '[':
		return p.array(parent, depth)
	case c == '"':
		start := p.pos
		s, err := p.stringLit()
		if err != nil {
			return -1, err
		}
		return p.add(Node{Kind: KindString, Start: start, End: p.pos, Parent: parent, KeyStart: -1, Comma: -1, str: s}), nil
	case c == '-' || (c >= '0' && c <= '9'):
		start := p.pos
		if err := p.number(); err != nil {
			return -1, err
		}
		return p.add(Node{Kind: KindNumber, Start: start, End: p.pos, Parent: parent, KeyStart: -1, Comma: -1}), nil
	default:
		for _, lit := range []struct {
			word string
			kind Kind
		}{{"true", KindBool}, {"false", KindBool}, {"null", KindNull}} {
			if strings.HasPrefix(p.text[p.pos:], lit.word) {
				start := p.pos
				p.pos += len(lit.word)
				return p.add(Node{Kind: lit.kind, Start: start, End: p.pos, Parent: parent, KeyStart: -1, Comma: -1}), nil
			}
		}
		return -1, p.errorf("unexpected %q", c)
	}
}

func (p *parser) object(parent, depth int) (int, error) {
	idx := p.add(Node{Kind: KindObject, Start: p.pos, Parent: parent, KeyStart: -1, Comma: -1})
	p.pos++ // {

	var children []int
	for {
		if err := p.skipSpace(); err != nil {
			return -1, err
		}
		if p.pos >= len(p.text) {
			return -1, p.errorf("unterminated object")
		}
		if p.text[p.pos] == '}' {
			p.pos++
			break
		}
		if p.text[p.pos] != '"' {
			return -1, p.errorf("expected member name, found %q", p.text[p.pos])
		}
		keyStart := p.pos
		key, err := p.stringLit()
		if err != nil {
			return -1, err
		}
		if err := p.skipSpace(); err != nil {
			return -1, err
		}
		if p.pos >= len(p.text) || p.text[p.pos] != ':' {
			return -1, p.errorf("expected ':' after member name")
		}
		p.pos++
		if err := p.skipSpace(); err != nil {
			return -1, err
		}
		child, err := p.value(idx, depth+1)
		if err != nil {
			return -1, err
		}
		p.doc.Nodes[child].Key = key
		p.doc.Nodes[child].KeyStart = keyStart
		children = append(children, child)

		if err := p.skipSpace(); err != nil {
			return -1, err
		}
		if p.pos >= len(p.text) {
			return -1, p.errorf("unterminated object")
		}
		switch p.text[p.pos] {
		case ',':
			p.doc.Nodes[child].Comma = p.pos
			p.pos++
		case '}':
		default:
			return -1, p.errorf("expected ',' or '}', found %q", p.text[p.pos])
		}
	}

	p.doc.Nodes[idx].End = p.pos
	p.doc.Nodes[idx].Children = children
	return idx, nil
}

func (p *parser) array(parent, depth int) (int, error) {
	idx := p.add(Node{Kind: KindArray, Start: p.pos, Parent: parent, KeyStart: -1, Comma: -1})
	p.pos++ // [

	var children []int
	for {
		if err := p.skipSpace(); err != nil {
			return -1, err
		}
		if p.pos >= len(p.text) {
			return -1, p.errorf("unterminated array")
		}
		if p.text[p.pos] == ']' {
			p.pos++
			break
		}
		child, err := p.value(idx, depth+1)
		if err != nil {
			return -1, err
		}
		children = append(children, child)

		if err := p.skipSpace(); err != nil {
			return -1, err
		}
		if p.pos >= len(p.text) {
			return -1, p.errorf("unterminated array")
		}
		switch p.text[p.pos] {
		case ',':
			p.doc.Nodes[child].Comma = p.pos
			p.pos++
		case ']':
		default:
			return -1, p.errorf("expected ',' or ']', found %q", p.text[p.pos])
		}
	}

	p.doc.Nodes[idx].End = p.pos
	p.doc.Nodes[idx].Children = children
	return idx, nil
}

// stringLit consumes a string literal and returns its decoded value
func (p *parser) stringLit() (string, error) {
	start := p.pos
	p.pos++ // opening quote
	escaped := false
	for p.pos < len(p.text) {
		c := p.text[p.pos]
		switch {
		case c == '\\':
			escaped = true
			p.pos += 2
			continue
		case c == '"':
			p.pos++
			raw := p.text[start:p.pos]
			if !escaped {
				return raw[1 : len(raw)-1], nil
			}
			var s string
			if err := json.Unmarshal([]byte(raw), &s); err != nil {
				p.pos = start
				return "", p.errorf("invalid string literal: %v", err)
			}
			return s, nil
		case c < 0x20:
			return "", p.errorf("control character in string literal")
		}
		p.pos++
	}
	p.pos = start
	return "", p.errorf("unterminated string")
}

func (p *parser) number() error {
	start := p.pos
	if p.text[p.pos] == '-' {
		p.pos++
	}
	digits := func() int {
		n := 0
		for p.pos < len(p.text) && p.text[p.pos] >= '0' && p.text[p.pos] <= '9' {
			p.pos++
			n++
		}
		return n
	}
	if digits() == 0 {
		return p.errorf("invalid number")
	}
	if p.pos < len(p.text) && p.text[p.pos] == '.' {
		p.pos++
		if digits() == 0 {
			return p.errorf("invalid number fraction")
		}
	}
	if p.pos < len(p.text) && (p.text[p.pos] == 'e' || p.text[p.pos] == 'E') {
		p.pos++
		if p.pos < len(p.text) && (p.text[p.pos] == '+' || p.text[p.pos] == '-') {
			p.pos++
		}
		if digits() == 0 {
			return p.errorf("invalid number exponent")
		}
	}
	if raw := p.text[start:p.pos]; len(raw) > 1 && raw[0] == '0' && raw[1] >= '0' && raw[1] <= '9' ||
		len(raw) > 2 && raw[0] == '-' && raw[1] == '0' && raw[2] >= '0' && raw[2] <= '9' {
		p.pos = start
		return p.errorf("leading zero in number")
	}
	return nil
}
