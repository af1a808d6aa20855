package index

import (
	"github.com/standardbeagle/i18nsync/internal/keypath"
	"github.com/standardbeagle/i18nsync/internal/types"
)

// ContextOptions controls GetContext
type ContextOptions struct {
	// Depth > 0 includes the parent
	Depth     int
	Languages []string
}

// ContextNode is a related key and its filtered translations
type ContextNode struct {
	KeyPath      string                   `json:"keyPath"`
	Translations types.IndexedTranslation `json:"translations"`
	// Virtual marks a parent that groups children but holds no value
	Virtual bool `json:"virtual,omitempty"`
}

// KeyContext is a key together with its neighbourhood in the key tree
type KeyContext struct {
	KeyPath      string                   `json:"keyPath"`
	Translations types.IndexedTranslation `json:"translations"`
	Parent       *ContextNode             `json:"parent,omitempty"`
	Children     []ContextNode            `json:"children"`
	Siblings     []ContextNode            `json:"siblings"`
}

// GetContext returns keyPath's translations with its parent, direct children
// and siblings. It returns false when keyPath has no entry.
func (ix *Index) GetContext(keyPath string, opts ContextOptions) (*KeyContext, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	tr, ok := ix.entries[keyPath]
	if !ok {
		return nil, false
	}

	ctx := &KeyContext{
		KeyPath:      keyPath,
		Translations: tr.Filter(opts.Languages),
		Children:     []ContextNode{},
		Siblings:     []ContextNode{},
	}

	parent, hasParent := keypath.Parent(keyPath)

	if opts.Depth > 0 && hasParent {
		if ptr, ok := ix.entries[parent]; ok {
			ctx.Parent = &ContextNode{KeyPath: parent, Translations: ptr.Filter(opts.Languages)}
		} else if len(ix.prefixRangeLocked(parent+keypath.Separator)) > 0 {
			// keyPath itself is a descendant, so a missing parent is always virtual
			ctx.Parent = &ContextNode{
				KeyPath:      parent,
				Translations: types.IndexedTranslation{},
				Virtual:      true,
			}
		}
	}

	for _, k := range ix.prefixRangeLocked(keyPath + keypath.Separator) {
		if !keypath.IsDirectChild(k, keyPath) {
			continue
		}
		filtered := ix.entries[k].Filter(opts.Languages)
		if len(filtered) == 0 {
			continue
		}
		ctx.Children = append(ctx.Children, ContextNode{KeyPath: k, Translations: filtered})
	}

	var candidates []string
	if hasParent {
		candidates = ix.prefixRangeLocked(parent + keypath.Separator)
	} else {
		candidates = ix.sortedKeysLocked()
	}
	for _, k := range candidates {
		if k == keyPath || !keypath.IsDirectChild(k, parent) {
			continue
		}
		ctx.Siblings = append(ctx.Siblings, ContextNode{
			KeyPath:      k,
			Translations: ix.entries[k].Filter(opts.Languages),
		})
	}

	return ctx, true
}
