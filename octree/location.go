package octree

import (
	"fmt"

	"github.com/golang/geo/r3"

	"go.viam.com/svo/spatialmath"
	"go.viam.com/svo/utils"
)

// Location identifies a node by its depth and integer voxel coordinates at that depth. Locations are never
// stored on nodes; traversals derive them along the root to node path. Locations are comparable and are used
// as map keys.
type Location struct {
	Depth   int
	X, Y, Z int
}

// RootLocation returns the location of the root node.
func RootLocation() Location {
	return Location{}
}

// Child returns the location of the child in the given slot.
func (l Location) Child(ctx *Context, index int) Location {
	ox, oy, oz := ctx.ChildOffset(index)
	o := ctx.Order()
	return Location{Depth: l.Depth + 1, X: l.X*o + ox, Y: l.Y*o + oy, Z: l.Z*o + oz}
}

// Ancestor returns the location of the ancestor at the given depth, which must not exceed l.Depth.
func (l Location) Ancestor(ctx *Context, depth int) Location {
	div := 1
	for d := depth; d < l.Depth; d++ {
		div *= ctx.Order()
	}
	return Location{Depth: depth, X: l.X / div, Y: l.Y / div, Z: l.Z / div}
}

// ChildIndexAt returns the slot taken when descending from depth to depth+1 on the path to l.
func (l Location) ChildIndexAt(ctx *Context, depth int) int {
	a := l.Ancestor(ctx, depth+1)
	o := ctx.Order()
	return ctx.ChildIndex(a.X%o, a.Y%o, a.Z%o)
}

// Coord returns the coordinate along the given axis.
func (l Location) Coord(a r3.Axis) int {
	switch a {
	case r3.XAxis:
		return l.X
	case r3.YAxis:
		return l.Y
	default:
		return l.Z
	}
}

// WithCoord returns a copy of l with the coordinate along the given axis replaced.
func (l Location) WithCoord(a r3.Axis, v int) Location {
	switch a {
	case r3.XAxis:
		l.X = v
	case r3.YAxis:
		l.Y = v
	default:
		l.Z = v
	}
	return l
}

// Neighbor returns the location of the face neighbor in direction dir (+1 or -1) along the axis. The result
// may lie outside the grid; check it with Valid.
func (l Location) Neighbor(a r3.Axis, dir int) Location {
	return l.WithCoord(a, l.Coord(a)+dir)
}

// FaceNeighbors returns the six face neighbors of l, including ones outside the grid.
func (l Location) FaceNeighbors() [6]Location {
	var out [6]Location
	for i, a := range spatialmath.Axes {
		out[2*i] = l.Neighbor(a, -1)
		out[2*i+1] = l.Neighbor(a, 1)
	}
	return out
}

// Valid reports whether the location lies inside the grid of its depth.
func (l Location) Valid(ctx *Context) bool {
	res := ctx.Resolution(l.Depth)
	return res > 0 &&
		l.X >= 0 && l.X < res &&
		l.Y >= 0 && l.Y < res &&
		l.Z >= 0 && l.Z < res
}

// Box returns the cube covered by the node at l.
func (l Location) Box(ctx *Context) spatialmath.AABB {
	size := ctx.VoxelSize(l.Depth)
	return spatialmath.NewCube(r3.Vector{X: float64(l.X) * size, Y: float64(l.Y) * size, Z: float64(l.Z) * size}, size)
}

// Center returns the center point of the node at l.
func (l Location) Center(ctx *Context) r3.Vector {
	return l.Box(ctx).Center()
}

// adjacent reports whether the two locations are distinct and touch by a face, edge or corner.
func (l Location) adjacent(o Location) bool {
	if l == o || l.Depth != o.Depth {
		return false
	}
	return utils.AbsInt(l.X-o.X) <= 1 && utils.AbsInt(l.Y-o.Y) <= 1 && utils.AbsInt(l.Z-o.Z) <= 1
}

func (l Location) String() string {
	return fmt.Sprintf("(%d: %d, %d, %d)", l.Depth, l.X, l.Y, l.Z)
}
