// Package octree implements a sparse voxel octree: a tree of cubic cells with order^3 children per level that
// converts triangle meshes into voxels, classifies them as inside, outside, boundary or filled with ray grid
// voting, measures wall thickness and serializes trees to a compact binary stream.
package octree

import (
	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Tree binds a root node to the context it was built with.
type Tree struct {
	ctx    *Context
	root   *Node
	logger golog.Logger
}

// NewTree returns a tree holding only an empty root. A nil logger falls back to the global logger.
func NewTree(ctx *Context, logger golog.Logger) *Tree {
	if logger == nil {
		logger = golog.Global()
	}
	return &Tree{ctx: ctx, root: NewNode(ctx), logger: logger}
}

// Context returns the context of the tree.
func (t *Tree) Context() *Context {
	return t.ctx
}

// Root returns the root node.
func (t *Tree) Root() *Node {
	return t.root
}

// Logger returns the logger of the tree.
func (t *Tree) Logger() golog.Logger {
	return t.logger
}

// LocateChild returns the node at the given depth whose cube contains p without creating anything. It fails
// with ErrNotFound when the path does not exist.
func (t *Tree) LocateChild(p r3.Vector, depth int) (*Node, error) {
	loc, err := t.ctx.LocationOf(p, depth)
	if err != nil {
		return nil, err
	}
	return t.Locate(loc, false)
}

// InsertChild returns the node at the given depth whose cube contains p, creating every missing node on the
// way. Repeated calls return the same node.
func (t *Tree) InsertChild(p r3.Vector, depth int) (*Node, error) {
	loc, err := t.ctx.LocationOf(p, depth)
	if err != nil {
		return nil, err
	}
	return t.Locate(loc, true)
}

// Locate returns the node at loc, creating missing nodes on the path when create is set.
func (t *Tree) Locate(loc Location, create bool) (*Node, error) {
	if !loc.Valid(t.ctx) {
		return nil, errors.Wrapf(ErrOutOfBounds, "location %v", loc)
	}
	n := t.root
	for d := 0; d < loc.Depth; d++ {
		idx := loc.ChildIndexAt(t.ctx, d)
		if create {
			n, _ = n.ensureChild(idx)
			continue
		}
		if n = n.Child(idx); n == nil {
			return nil, errors.Wrapf(ErrNotFound, "no node at %v", loc)
		}
	}
	return n, nil
}

// SetChild attaches child in slot index of the existing node at parent, dropping any subtree already there. A
// nil child clears the slot. The slot must lie above the leaf depth and the attached subtree must not reach
// below it; otherwise ErrOutOfBounds is returned and the tree is unchanged.
func (t *Tree) SetChild(parent Location, index int, child *Node) error {
	n, err := t.Locate(parent, false)
	if err != nil {
		return err
	}
	if child != nil {
		if parent.Depth >= t.ctx.LeafDepth() {
			return errors.Wrapf(ErrOutOfBounds, "%v is at the leaf depth %d and cannot have children",
				parent, t.ctx.LeafDepth())
		}
		if deepest := parent.Depth + child.height(); deepest > t.ctx.LeafDepth() {
			return errors.Wrapf(ErrOutOfBounds, "subtree below %v reaches depth %d past the leaf depth %d",
				parent, deepest, t.ctx.LeafDepth())
		}
	}
	return n.setChild(index, child)
}

// PruneEmpty removes nodes that hold neither a payload nor children, bottom up, and returns the number of
// removed nodes. The root is never removed. Without recursive only the direct children of the root are
// inspected.
func (t *Tree) PruneEmpty(recursive bool) int {
	return t.root.pruneEmpty(recursive)
}

// GetMaxDepth returns the number of levels present in the tree, the depth of the deepest node plus one.
func (t *Tree) GetMaxDepth() int {
	return t.root.height()
}

// GetMemSize returns the approximate memory held by the root, or by the whole tree when recursive.
func (t *Tree) GetMemSize(recursive bool) int {
	return t.root.memSize(recursive)
}

// NumNodes returns the number of nodes in the tree, including the root.
func (t *Tree) NumNodes() int {
	return t.root.numNodes()
}

// replaceRoot installs a new root. Used by deserialization and merge.
func (t *Tree) replaceRoot(root *Node) {
	t.root = root
}
