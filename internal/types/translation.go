package types

import (
	"fmt"
	"time"
)

// TranslationEntry is one language's value for one key path.
// Entries are immutable once stored; every set replaces the entry wholesale.
type TranslationEntry struct {
	Value        Scalar    `json:"value"`
	SourceFile   string    `json:"sourceFile,omitempty"`
	Line         int       `json:"line,omitempty"`
	Column       int       `json:"column,omitempty"`
	LastModified time.Time `json:"lastModified"`
}

// IndexedTranslation maps language code to that language's entry for a single key path
type IndexedTranslation map[string]TranslationEntry

// Clone returns a copy that can be handed to callers
func (t IndexedTranslation) Clone() IndexedTranslation {
	if t == nil {
		return nil
	}
	out := make(IndexedTranslation, len(t))
	for lang, entry := range t {
		out[lang] = entry
	}
	return out
}

// Filter returns the entries for the given languages; an empty filter keeps everything
func (t IndexedTranslation) Filter(languages []string) IndexedTranslation {
	if len(languages) == 0 {
		return t.Clone()
	}
	out := make(IndexedTranslation, len(languages))
	for _, lang := range languages {
		if entry, ok := t[lang]; ok {
			out[lang] = entry
		}
	}
	return out
}

// EntryMetadata is the optional bookkeeping supplied with a set
type EntryMetadata struct {
	SourceFile string
	Line       int
	Column     int
}

// Leaf is a flattened scalar from a translation file
type Leaf struct {
	KeyPath string
	Value   Scalar
	Line    int
	Column  int
}

// OperationType is the kind of a batch operation
type OperationType string

const (
	OperationSet    OperationType = "set"
	OperationDelete OperationType = "delete"
)

// BatchOperation is one step of an atomic batch update
type BatchOperation struct {
	Type     OperationType `json:"type"`
	KeyPath  string        `json:"keyPath"`
	Language string        `json:"language,omitempty"`
	Value    *Scalar       `json:"value,omitempty"`
}

// String describes the operation for error messages
func (op BatchOperation) String() string {
	if op.Language == "" {
		return fmt.Sprintf("%s %s", op.Type, op.KeyPath)
	}
	return fmt.Sprintf("%s %s[%s]", op.Type, op.KeyPath, op.Language)
}
