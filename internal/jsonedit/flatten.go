package jsonedit

import (
	"github.com/standardbeagle/i18nsync/internal/keypath"
	"github.com/standardbeagle/i18nsync/internal/types"
)

// Skipped is a value Flatten could not turn into a translation leaf
type Skipped struct {
	KeyPath string
	Kind    Kind
	Line    int
	// BadName is set when the member name cannot be a key path segment, for
	// example "a.b", which would read back as nesting
	BadName bool
}

// Flatten turns nested objects into dot-path leaves in document order. Arrays
// and nulls are not translation values; they are reported as skipped, as is a
// root that is not an object. A member whose name is not a valid key path
// segment is skipped together with everything below it.
func (d *Document) Flatten() ([]types.Leaf, []Skipped) {
	var leaves []types.Leaf
	var skipped []Skipped

	root := &d.Nodes[d.Root]
	if root.Kind != KindObject {
		line, _ := d.Position(root.Start)
		return nil, []Skipped{{Kind: root.Kind, Line: line}}
	}

	var walk func(obj int, prefix string)
	walk = func(obj int, prefix string) {
		for _, c := range d.Nodes[obj].Children {
			n := &d.Nodes[c]
			path := n.Key
			if prefix != "" {
				path = prefix + "." + n.Key
			}
			if !keypath.IsValidSegment(n.Key) {
				line, _ := d.Position(n.KeyStart)
				skipped = append(skipped, Skipped{KeyPath: path, Kind: n.Kind, Line: line, BadName: true})
				continue
			}
			switch n.Kind {
			case KindObject:
				walk(c, path)
			case KindArray, KindNull:
				line, _ := d.Position(n.KeyStart)
				skipped = append(skipped, Skipped{KeyPath: path, Kind: n.Kind, Line: line})
			default:
				v, ok := d.Scalar(c)
				if !ok {
					line, _ := d.Position(n.KeyStart)
					skipped = append(skipped, Skipped{KeyPath: path, Kind: n.Kind, Line: line})
					continue
				}
				line, col := d.Position(n.KeyStart)
				leaves = append(leaves, types.Leaf{KeyPath: path, Value: v, Line: line, Column: col})
			}
		}
	}
	walk(d.Root, "")
	return leaves, skipped
}
