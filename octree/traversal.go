package octree

import (
	"context"

	"go.uber.org/atomic"

	"go.viam.com/svo/utils"
)

// TraversalOrder selects whether a node is processed before or after its children.
type TraversalOrder uint8

// Traversal orders.
const (
	PreOrder = TraversalOrder(iota)
	PostOrder
)

// walker drives a depth first traversal over a subtree.
type walker struct {
	ctx    *Context
	filter NodeFilter
	order  TraversalOrder
	fn     func(v Visit) ResultFlags
	count  int
}

// walk returns false when the traversal was aborted.
func (w *walker) walk(n *Node, loc Location) bool {
	res := evalFilter(w.filter, n, loc, w.ctx)
	if res == FilterPruneSubtree {
		return true
	}
	visit := func() bool {
		if res != FilterPass {
			return true
		}
		w.count++
		return !w.fn(Visit{Node: n, Location: loc, Context: w.ctx}).Aborted()
	}
	if w.order == PreOrder && !visit() {
		return false
	}
	for i := 0; i < n.Slots(); i++ {
		c := n.Child(i)
		if c == nil {
			continue
		}
		if !w.walk(c, loc.Child(w.ctx, i)) {
			return false
		}
	}
	if w.order == PostOrder {
		return visit()
	}
	return true
}

// Process runs proc on every node passing filter, visiting slots in ascending order. A nil filter accepts
// every node. Without recursive only the root is considered. Returns the number of processed nodes.
func (t *Tree) Process(proc NodeProcessor, filter NodeFilter, recursive bool, order TraversalOrder) int {
	if !recursive {
		if evalFilter(filter, t.root, RootLocation(), t.ctx) != FilterPass {
			return 0
		}
		proc.Process(Visit{Node: t.root, Location: RootLocation(), Context: t.ctx})
		return 1
	}
	w := &walker{ctx: t.ctx, filter: filter, order: order, fn: proc.Process}
	w.walk(t.root, RootLocation())
	return w.count
}

// Find returns the visits of every node passing filter in pre-order.
func (t *Tree) Find(filter NodeFilter) []Visit {
	var found []Visit
	t.Process(ProcessorFunc(func(v Visit) ResultFlags {
		found = append(found, v)
		return ResultOK
	}), filter, true, PreOrder)
	return found
}

// Count returns the number of nodes passing filter.
func (t *Tree) Count(filter NodeFilter) int {
	w := &walker{ctx: t.ctx, filter: filter, fn: func(Visit) ResultFlags { return ResultOK }}
	w.walk(t.root, RootLocation())
	return w.count
}

// CountParallel is Count with one worker per child of the root. The tree must not be mutated meanwhile.
func (t *Tree) CountParallel(ctx context.Context, filter NodeFilter) (int, error) {
	root := RootLocation()
	total := atomic.NewInt64(0)
	switch evalFilter(filter, t.root, root, t.ctx) {
	case FilterPruneSubtree:
		return 0, nil
	case FilterPass:
		total.Inc()
	case FilterFail:
	}
	var fs []utils.SimpleFunc
	for i := 0; i < t.root.Slots(); i++ {
		child := t.root.Child(i)
		if child == nil {
			continue
		}
		loc := root.Child(t.ctx, i)
		fs = append(fs, func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			w := &walker{ctx: t.ctx, filter: filter, fn: func(Visit) ResultFlags { return ResultOK }}
			w.walk(child, loc)
			total.Add(int64(w.count))
			return nil
		})
	}
	if _, err := utils.RunInParallel(ctx, fs); err != nil {
		return 0, err
	}
	return int(total.Load()), nil
}
