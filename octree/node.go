package octree

import (
	"github.com/pkg/errors"
)

// nodeOverhead and pointerSize approximate the memory held by a node for GetMemSize.
const (
	nodeOverhead = 64
	pointerSize  = 8
)

// Node is a cell of the tree. It owns its children exclusively and holds at most one payload. Depth and
// position are not stored; they follow from the path to the node.
type Node struct {
	// ID and NumericID are optional user supplied identifiers. They are not serialized.
	ID        string
	NumericID int64

	slots    int
	children []*Node
	payload  Payload
}

// NewNode returns an empty node with the number of child slots given by the context.
func NewNode(ctx *Context) *Node {
	return &Node{slots: ctx.NumChildren()}
}

// Payload returns the payload of the node, nil when empty.
func (n *Node) Payload() Payload {
	return n.payload
}

// SetPayload replaces the payload. A nil payload empties the node.
func (n *Node) SetPayload(p Payload) {
	n.payload = p
}

// PayloadType returns the tag of the node's payload.
func (n *Node) PayloadType() PayloadType {
	return PayloadTypeOf(n.payload)
}

// Class returns the voxel class flags of the node, or zero when its payload is not a voxel class.
func (n *Node) Class() VoxelClass {
	c, _ := n.payload.(VoxelClass)
	return c
}

// Slots returns the number of child slots.
func (n *Node) Slots() int {
	return n.slots
}

// Child returns the child in the given slot, or nil.
func (n *Node) Child(index int) *Node {
	if n.children == nil || index < 0 || index >= len(n.children) {
		return nil
	}
	return n.children[index]
}

// setChild attaches child at index, dropping any subtree already there. A nil child clears the slot. The
// caller checks that the subtree fits below the node; see Tree.SetChild.
func (n *Node) setChild(index int, child *Node) error {
	if index < 0 || index >= n.slots {
		return errors.Wrapf(ErrOutOfBounds, "child index %d not in [0, %d)", index, n.slots)
	}
	if child != nil && child.slots != n.slots {
		return errors.Wrapf(ErrIncompatibleContext, "child has %d slots, parent has %d", child.slots, n.slots)
	}
	if child == nil {
		if n.children != nil {
			n.children[index] = nil
			n.compact()
		}
		return nil
	}
	if n.children == nil {
		n.children = make([]*Node, n.slots)
	}
	n.children[index] = child
	return nil
}

// compact releases the slot array once every slot is empty.
func (n *Node) compact() {
	for _, c := range n.children {
		if c != nil {
			return
		}
	}
	n.children = nil
}

// HasChildren reports whether at least one slot is occupied.
func (n *Node) HasChildren() bool {
	return n.children != nil
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return !n.HasChildren()
}

// NumChildren returns the number of occupied slots.
func (n *Node) NumChildren() int {
	count := 0
	for _, c := range n.children {
		if c != nil {
			count++
		}
	}
	return count
}

// ensureChild returns the child at index, creating an empty one when the slot is free.
func (n *Node) ensureChild(index int) (*Node, bool) {
	if c := n.Child(index); c != nil {
		return c, false
	}
	c := &Node{slots: n.slots}
	if n.children == nil {
		n.children = make([]*Node, n.slots)
	}
	n.children[index] = c
	return c, true
}

// isEmpty reports whether the node holds neither a payload nor children.
func (n *Node) isEmpty() bool {
	return n.payload == nil && n.children == nil
}

func (n *Node) numNodes() int {
	count := 1
	for _, c := range n.children {
		if c != nil {
			count += c.numNodes()
		}
	}
	return count
}

func (n *Node) memSize(recursive bool) int {
	size := nodeOverhead + len(n.ID)
	if n.children != nil {
		size += pointerSize * len(n.children)
	}
	if n.payload != nil {
		size += n.payload.MemSize()
	}
	if recursive {
		for _, c := range n.children {
			if c != nil {
				size += c.memSize(true)
			}
		}
	}
	return size
}

// height returns the number of levels in the subtree rooted at n.
func (n *Node) height() int {
	h := 0
	for _, c := range n.children {
		if c != nil {
			if ch := c.height(); ch > h {
				h = ch
			}
		}
	}
	return h + 1
}

// pruneEmpty removes empty children below n in post-order and returns the number of removed nodes.
func (n *Node) pruneEmpty(recursive bool) int {
	removed := 0
	for i, c := range n.children {
		if c == nil {
			continue
		}
		if recursive {
			removed += c.pruneEmpty(true)
		}
		if c.isEmpty() {
			n.children[i] = nil
			removed++
		}
	}
	if n.children != nil {
		n.compact()
	}
	return removed
}
