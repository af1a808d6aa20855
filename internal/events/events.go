// Package events defines the closed set of notifications exchanged between the
// translation index, the file watcher and the auto-sync writer, plus a small
// synchronous publish/subscribe bus that carries them.
//
// Every event type implements the unexported marker method, so a type switch
// over Event with the cases below is exhaustive.
package events

import (
	"time"

	"github.com/standardbeagle/i18nsync/internal/types"
)

// Kind identifies an event variant
type Kind uint8

const (
	KindSet Kind = iota + 1
	KindDelete
	KindClear
	KindBatchUpdate
	KindFileProcessed
	KindWatchError
	KindReady
)

// String returns the wire name of the kind
func (k Kind) String() string {
	switch k {
	case KindSet:
		return "set"
	case KindDelete:
		return "delete"
	case KindClear:
		return "clear"
	case KindBatchUpdate:
		return "batchUpdate"
	case KindFileProcessed:
		return "fileProcessed"
	case KindWatchError:
		return "error"
	case KindReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Event is implemented only by the types in this package
type Event interface {
	Kind() Kind
	event()
}

// Set is published after a translation entry is stored
type Set struct {
	KeyPath  string
	Language string
	Value    types.Scalar
	Metadata types.EntryMetadata
}

// Delete is published after one language (or, with Language empty, every language) of a key is removed
type Delete struct {
	KeyPath  string
	Language string
}

// Clear is published after the whole index is emptied
type Clear struct{}

// BatchUpdate is published after a batch was applied successfully
type BatchUpdate struct {
	Operations []types.BatchOperation
}

// FileEventType is the kind of file change the watcher processed
type FileEventType string

const (
	FileAdd    FileEventType = "add"
	FileChange FileEventType = "change"
	FileUnlink FileEventType = "unlink"
)

// FileProcessed is published after the watcher applied a file to the index
type FileProcessed struct {
	Type        FileEventType
	Path        string
	Language    string
	Timestamp   time.Time
	ContentHash uint64 // xxhash of the bytes that were applied; zero for unlink
	Keys        int
}

// WatchError reports a watcher failure; the watcher keeps running
type WatchError struct {
	Path string
	Err  error
}

// Ready is published once the initial directory scan completed
type Ready struct {
	Files int
	Keys  int
}

func (Set) Kind() Kind           { return KindSet }
func (Delete) Kind() Kind        { return KindDelete }
func (Clear) Kind() Kind         { return KindClear }
func (BatchUpdate) Kind() Kind   { return KindBatchUpdate }
func (FileProcessed) Kind() Kind { return KindFileProcessed }
func (WatchError) Kind() Kind    { return KindWatchError }
func (Ready) Kind() Kind         { return KindReady }

func (Set) event()           {}
func (Delete) event()        {}
func (Clear) event()         {}
func (BatchUpdate) event()   {}
func (FileProcessed) event() {}
func (WatchError) event()    {}
func (Ready) event()         {}
