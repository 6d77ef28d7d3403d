package octree

import (
	"github.com/pkg/errors"
)

// Merge moves the content of other into t and returns the number of nodes touched. Payloads of nodes present
// in both trees are combined: densities are summed, voxel classes OR-ed, face lists concatenated and for
// colors the receiver's color is kept. A node holds a single payload, so when the payload tags differ the one
// carrying more data (the larger MemSize) is kept, ties broken by the ranking empty < face refs < density <
// color < voxel class; the number of payloads dropped that way is logged. The merged tree is never smaller
// than either input. Subtrees only present in other are moved over, so other is left empty.
func (t *Tree) Merge(other *Tree) (int, error) {
	if !t.ctx.Compatible(other.ctx) {
		return 0, errors.Wrapf(ErrIncompatibleContext, "cannot merge %v into %v", other.ctx, t.ctx)
	}
	if t == other {
		return 0, nil
	}
	m := &merger{}
	touched := m.mergeNodes(t.root, other.root)
	other.root = NewNode(other.ctx)
	if m.dropped > 0 {
		t.logger.Warnw("merge dropped conflicting payloads", "count", m.dropped)
	}
	return touched, nil
}

type merger struct {
	dropped int
}

func (m *merger) mergeNodes(dst, src *Node) int {
	touched := 1
	var dropped bool
	dst.payload, dropped = mergePayloads(dst.payload, src.payload)
	if dropped {
		m.dropped++
	}
	if dst.ID == "" {
		dst.ID = src.ID
	}
	if dst.NumericID == 0 {
		dst.NumericID = src.NumericID
	}
	for i := 0; i < src.Slots(); i++ {
		s := src.Child(i)
		if s == nil {
			continue
		}
		if d := dst.Child(i); d != nil {
			touched += m.mergeNodes(d, s)
			continue
		}
		if dst.children == nil {
			dst.children = make([]*Node, dst.slots)
		}
		dst.children[i] = s
		touched += s.numNodes()
	}
	src.children = nil
	return touched
}

// mergePayloads combines two payloads of one node and reports whether one of them had to be dropped.
func mergePayloads(a, b Payload) (Payload, bool) {
	if b == nil {
		return a, false
	}
	if a == nil {
		return b, false
	}
	if a.Type() != b.Type() {
		if outranks(b, a) {
			return b, true
		}
		return a, true
	}
	switch av := a.(type) {
	case Density:
		if bv, ok := b.(Density); ok {
			return av + bv, false
		}
	case VoxelClass:
		if bv, ok := b.(VoxelClass); ok {
			return av | bv, false
		}
	case FaceRefs:
		if bv, ok := b.(FaceRefs); ok {
			out := make(FaceRefs, 0, len(av)+len(bv))
			return append(append(out, av...), bv...), false
		}
	}
	// colors and foreign payloads keep the receiver's value
	return a, false
}

// outranks reports whether p wins a tag conflict against q.
func outranks(p, q Payload) bool {
	if ps, qs := p.MemSize(), q.MemSize(); ps != qs {
		return ps > qs
	}
	return p.Type().specificity() > q.Type().specificity()
}
