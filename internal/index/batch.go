package index

import (
	"fmt"

	"github.com/standardbeagle/i18nsync/internal/debug"
	"github.com/standardbeagle/i18nsync/internal/events"
	"github.com/standardbeagle/i18nsync/internal/types"
)

// BatchResult reports the outcome of BatchUpdate
type BatchResult struct {
	Success bool     `json:"success"`
	Applied int      `json:"applied"`
	Errors  []string `json:"errors,omitempty"`
}

type snapshot struct {
	entries    map[string]types.IndexedTranslation
	langCounts map[string]int
}

func (ix *Index) snapshotLocked() snapshot {
	s := snapshot{
		entries:    make(map[string]types.IndexedTranslation, len(ix.entries)),
		langCounts: make(map[string]int, len(ix.langCounts)),
	}
	for k, tr := range ix.entries {
		s.entries[k] = tr.Clone()
	}
	for lang, n := range ix.langCounts {
		s.langCounts[lang] = n
	}
	return s
}

func (ix *Index) restoreLocked(s snapshot) {
	ix.entries = s.entries
	ix.langCounts = s.langCounts
	ix.dirty = true
}

// BatchUpdate applies ops in order as a single unit. Every operation is
// attempted; if any fails, the index is restored to its state before the call
// and the collected errors are returned. Events are published only when the
// whole batch succeeded: one per applied operation, then a BatchUpdate event.
// Deleting something that does not exist is not an error.
func (ix *Index) BatchUpdate(ops []types.BatchOperation) BatchResult {
	if len(ops) == 0 {
		return BatchResult{Success: true}
	}

	var (
		errs    []string
		evs     []events.Event
		applied int
	)

	ix.mu.Lock()
	snap := ix.snapshotLocked()

	for i, op := range ops {
		switch op.Type {
		case types.OperationSet:
			if op.Value == nil {
				errs = append(errs, fmt.Sprintf("operation %d (%s): value is required", i, op))
				continue
			}
			if err := validateSet(op.KeyPath, op.Language, *op.Value); err != nil {
				errs = append(errs, fmt.Sprintf("operation %d (%s): %v", i, op, err))
				continue
			}
			evs = append(evs, ix.setLocked(op.KeyPath, op.Language, *op.Value, nil))
			applied++
		case types.OperationDelete:
			if op.KeyPath == "" {
				errs = append(errs, fmt.Sprintf("operation %d (%s): key path is required", i, op))
				continue
			}
			if ev, ok := ix.deleteLocked(op.KeyPath, op.Language); ok {
				evs = append(evs, ev)
			}
			applied++
		default:
			errs = append(errs, fmt.Sprintf("operation %d: unknown operation type %q", i, op.Type))
		}
	}

	if len(errs) > 0 {
		ix.restoreLocked(snap)
		ix.cache.Purge()
		ix.mu.Unlock()
		debug.LogIndex("batch of %d rolled back: %d errors\n", len(ops), len(errs))
		return BatchResult{Success: false, Errors: errs}
	}

	ix.cache.Purge()
	size := len(ix.entries)
	ix.mu.Unlock()

	ix.metrics.IndexMutation("batch")
	ix.metrics.IndexSize(size)
	debug.LogIndex("batch of %d applied\n", len(ops))

	for _, ev := range evs {
		ix.bus.Publish(ev)
	}
	opsCopy := make([]types.BatchOperation, len(ops))
	copy(opsCopy, ops)
	ix.bus.Publish(events.BatchUpdate{Operations: opsCopy})

	return BatchResult{Success: true, Applied: applied}
}
