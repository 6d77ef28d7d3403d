package octree

import (
	"sort"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/svo/spatialmath"
)

// NodeIntersection is the parametric interval in which a ray is inside a node's cube.
type NodeIntersection struct {
	TNear    float64
	TFar     float64
	Location Location
}

// IntersectRayNode runs the slab test of ray against the cube at loc grown by tolerance.
func (t *Tree) IntersectRayNode(ray spatialmath.Ray, loc Location, tolerance float64) (NodeIntersection, bool) {
	box := loc.Box(t.ctx)
	if tolerance != 0 {
		box = box.Expand(tolerance)
	}
	tNear, tFar, ok := box.IntersectRay(ray)
	if !ok {
		return NodeIntersection{}, false
	}
	return NodeIntersection{TNear: tNear, TFar: tFar, Location: loc}, true
}

// RayOptions are the knobs shared by IntersectRay and CastRayGrid.
type RayOptions struct {
	// Recursive descends below the root.
	Recursive bool
	// Tolerance grows every node cube before testing it.
	Tolerance float64
	// FillNodes creates missing children hit by the ray.
	FillNodes bool
	// PruneEmpty removes empty nodes once the traversal is done.
	PruneEmpty bool
}

// checkGridTolerance rejects tolerances that let a grid ray at depth reach into the neighboring column.
func (t *Tree) checkGridTolerance(depth int, tolerance float64) error {
	if half := t.ctx.VoxelSize(depth) / 2; tolerance < 0 || tolerance >= half {
		return errors.Wrapf(ErrConfig, "ray tolerance must be in [0, %v) at depth %d, got %v", half, depth, tolerance)
	}
	return nil
}

type rayTraversal struct {
	tree   *Tree
	ray    spatialmath.Ray
	proc   NodeProcessor
	filter NodeFilter
	opts   RayOptions
	count  int
}

type childHit struct {
	index int
	hit   NodeIntersection
}

// descend returns false when the processor aborted.
func (rt *rayTraversal) descend(n *Node, hit NodeIntersection) bool {
	ctx := rt.tree.ctx
	loc := hit.Location
	if res := evalFilter(rt.filter, n, loc, ctx); res == FilterPruneSubtree {
		return true
	} else if res == FilterPass {
		rt.count++
		h := hit
		if rt.proc.Process(Visit{Node: n, Location: loc, Context: ctx, Intersection: &h}).Aborted() {
			return false
		}
	}
	if !rt.opts.Recursive || loc.Depth >= ctx.LeafDepth() {
		return true
	}

	var hits []childHit
	for i := 0; i < n.Slots(); i++ {
		if n.Child(i) == nil && !rt.opts.FillNodes {
			continue
		}
		if h, ok := rt.tree.IntersectRayNode(rt.ray, loc.Child(ctx, i), rt.opts.Tolerance); ok {
			hits = append(hits, childHit{index: i, hit: h})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].hit.TNear < hits[j].hit.TNear })

	for _, ch := range hits {
		child := n.Child(ch.index)
		if child == nil {
			candidate := NewNode(ctx)
			if evalFilter(rt.filter, candidate, ch.hit.Location, ctx) == FilterPruneSubtree {
				continue
			}
			child, _ = n.ensureChild(ch.index)
		}
		if !rt.descend(child, ch.hit) {
			return false
		}
	}
	return true
}

// IntersectRay traverses the tree along ray from the root and runs proc on every node the ray touches that
// passes filter. Children are visited in order of entry along the ray. Processors implementing RayObserver
// are notified before and after the ray. Returns the number of processed nodes; a ray missing the root
// processes nothing.
func (t *Tree) IntersectRay(ray spatialmath.Ray, proc NodeProcessor, filter NodeFilter, opts RayOptions) int {
	observer, _ := proc.(RayObserver)
	if observer != nil {
		observer.BeginRay(ray)
	}
	rt := &rayTraversal{tree: t, ray: ray, proc: proc, filter: filter, opts: opts}
	if hit, ok := t.IntersectRayNode(ray, RootLocation(), opts.Tolerance); ok {
		rt.descend(t.root, hit)
	}
	if observer != nil {
		observer.EndRay()
	}
	if opts.PruneEmpty {
		t.PruneEmpty(true)
	}
	return rt.count
}

// CastRayGrid casts one ray per voxel column at the given depth, parallel to axis and pointing along its
// positive direction, starting on the plane where the axis coordinate equals planeOffset. Rays pass through
// column centers. Processor state is never reset between rays, so repeated grids accumulate. Returns the
// total number of processed nodes.
func (t *Tree) CastRayGrid(
	axis r3.Axis,
	depth int,
	planeOffset float64,
	proc NodeProcessor,
	filter NodeFilter,
	opts RayOptions,
) int {
	res := t.ctx.Resolution(depth)
	if res == 0 {
		return 0
	}
	size := t.ctx.VoxelSize(depth)
	u, v := otherAxes(axis)
	prune := opts.PruneEmpty
	opts.PruneEmpty = false

	count := 0
	for i := 0; i < res; i++ {
		for j := 0; j < res; j++ {
			var origin r3.Vector
			origin = spatialmath.WithComponent(origin, axis, planeOffset)
			origin = spatialmath.WithComponent(origin, u, (float64(i)+0.5)*size)
			origin = spatialmath.WithComponent(origin, v, (float64(j)+0.5)*size)
			count += t.IntersectRay(spatialmath.NewAxisRay(origin, axis), proc, filter, opts)
		}
	}
	if prune {
		t.PruneEmpty(true)
	}
	return count
}

// otherAxes returns the two axes orthogonal to a in cyclic order.
func otherAxes(a r3.Axis) (r3.Axis, r3.Axis) {
	switch a {
	case r3.XAxis:
		return r3.YAxis, r3.ZAxis
	case r3.YAxis:
		return r3.ZAxis, r3.XAxis
	default:
		return r3.XAxis, r3.YAxis
	}
}
