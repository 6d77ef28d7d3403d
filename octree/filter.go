package octree

import (
	"go.viam.com/svo/spatialmath"
)

// FilterResult is the outcome of evaluating a filter on a node.
type FilterResult uint8

const (
	// FilterPass selects the node for processing.
	FilterPass = FilterResult(iota)
	// FilterFail skips the node but keeps visiting its children.
	FilterFail
	// FilterPruneSubtree skips the node and everything below it.
	FilterPruneSubtree
)

func (r FilterResult) String() string {
	switch r {
	case FilterPass:
		return "pass"
	case FilterFail:
		return "fail"
	case FilterPruneSubtree:
		return "prune"
	default:
		return "invalid"
	}
}

// NodeFilter decides which nodes a traversal hands to its processor.
type NodeFilter interface {
	Filter(node *Node, loc Location, ctx *Context) FilterResult
}

// FilterFunc adapts a function to a NodeFilter.
type FilterFunc func(node *Node, loc Location, ctx *Context) FilterResult

// Filter calls f.
func (f FilterFunc) Filter(node *Node, loc Location, ctx *Context) FilterResult {
	return f(node, loc, ctx)
}

// LeafMode restricts a filter to leaves or inner nodes.
type LeafMode uint8

// Leaf restrictions.
const (
	AnyNode = LeafMode(iota)
	LeavesOnly
	InnerNodesOnly
)

// NoDepthLimit disables the upper depth bound of a BasicFilter.
const NoDepthLimit = -1

// BasicFilter is the conjunction of optional predicates. The zero value of each field disables it, except
// MaxDepth which must be NoDepthLimit to be disabled; use NewBasicFilter for an all accepting filter.
type BasicFilter struct {
	// MinDepth and MaxDepth bound the accepted depths. Nodes deeper than MaxDepth prune their subtree.
	MinDepth int
	MaxDepth int
	Leaf     LeafMode
	// Payloads lists accepted payload tags. PayloadAny matches every non empty payload.
	Payloads []PayloadType
	// ClassMask requires a voxel class payload sharing at least one flag with the mask.
	ClassMask VoxelClass
	// Region prunes nodes whose cube does not touch it.
	Region *spatialmath.AABB
}

// NewBasicFilter returns a filter accepting every node.
func NewBasicFilter() *BasicFilter {
	return &BasicFilter{MaxDepth: NoDepthLimit}
}

// DepthFilter accepts exactly the nodes at depth and prunes everything deeper.
func DepthFilter(depth int) *BasicFilter {
	return &BasicFilter{MinDepth: depth, MaxDepth: depth}
}

// ClassFilter accepts nodes at depth whose voxel class shares a flag with mask.
func ClassFilter(mask VoxelClass, depth int) *BasicFilter {
	return &BasicFilter{MinDepth: depth, MaxDepth: depth, ClassMask: mask}
}

// Filter evaluates the predicates in order of how much of the tree they can cut off.
func (f *BasicFilter) Filter(node *Node, loc Location, ctx *Context) FilterResult {
	if f.MaxDepth != NoDepthLimit && loc.Depth > f.MaxDepth {
		return FilterPruneSubtree
	}
	if f.Region != nil && !loc.Box(ctx).Overlaps(*f.Region) {
		return FilterPruneSubtree
	}
	if loc.Depth < f.MinDepth {
		return FilterFail
	}
	switch f.Leaf {
	case LeavesOnly:
		if node.HasChildren() {
			return FilterFail
		}
	case InnerNodesOnly:
		if node.IsLeaf() {
			return FilterFail
		}
	case AnyNode:
	}
	if len(f.Payloads) > 0 && !matchPayload(f.Payloads, node.PayloadType()) {
		return FilterFail
	}
	if f.ClassMask != 0 && !node.Class().Any(f.ClassMask) {
		return FilterFail
	}
	return FilterPass
}

func matchPayload(accepted []PayloadType, t PayloadType) bool {
	for _, a := range accepted {
		if a == t || (a == PayloadAny && t != PayloadEmpty) {
			return true
		}
	}
	return false
}

// evalFilter treats a nil filter as accepting everything.
func evalFilter(f NodeFilter, node *Node, loc Location, ctx *Context) FilterResult {
	if f == nil {
		return FilterPass
	}
	return f.Filter(node, loc, ctx)
}
