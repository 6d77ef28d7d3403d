package octree

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/svo/spatialmath"
)

// maxResolution bounds the number of voxels per axis at leaf depth so that voxel coordinates fit in an int32.
// maxOrder bounds the number of child slots per node.
const (
	maxResolution = 1 << 30
	maxOrder      = 64
)

// Context holds the immutable parameters shared by every node of a tree: the number of levels, the number of
// subdivisions per axis at each level and the edge length of the root cube. The root cube spans [0, scale]^3.
type Context struct {
	maxDepth    int
	order       int
	scale       float64
	numChildren int
	resolutions []int
}

// NewContext validates the parameters and returns a new context.
func NewContext(maxDepth, order int, scale float64) (*Context, error) {
	if maxDepth < 1 {
		return nil, errors.Wrapf(ErrConfig, "max depth must be at least 1, got %d", maxDepth)
	}
	if order < 2 || order > maxOrder {
		return nil, errors.Wrapf(ErrConfig, "order must be in [2, %d], got %d", maxOrder, order)
	}
	if !(scale > 0) || math.IsInf(scale, 0) {
		return nil, errors.Wrapf(ErrConfig, "scale must be a positive finite number, got %v", scale)
	}
	resolutions := []int{1}
	for d := 1; d < maxDepth; d++ {
		next := resolutions[d-1] * order
		if next > maxResolution {
			return nil, errors.Wrapf(ErrConfig, "order %d with max depth %d exceeds %d voxels per axis",
				order, maxDepth, maxResolution)
		}
		resolutions = append(resolutions, next)
	}
	return &Context{
		maxDepth:    maxDepth,
		order:       order,
		scale:       scale,
		numChildren: order * order * order,
		resolutions: resolutions,
	}, nil
}

// MaxDepth returns the number of levels of the tree. Leaves live at depth MaxDepth()-1.
func (c *Context) MaxDepth() int {
	return c.maxDepth
}

// LeafDepth returns the depth of the finest voxels.
func (c *Context) LeafDepth() int {
	return c.maxDepth - 1
}

// Order returns the number of subdivisions per axis.
func (c *Context) Order() int {
	return c.order
}

// Scale returns the edge length of the root cube.
func (c *Context) Scale() float64 {
	return c.scale
}

// NumChildren returns the number of child slots of a non-leaf node, order^3.
func (c *Context) NumChildren() int {
	return c.numChildren
}

// Resolution returns the number of voxels per axis at the given depth, order^depth.
func (c *Context) Resolution(depth int) int {
	if depth < 0 || depth >= c.maxDepth {
		return 0
	}
	return c.resolutions[depth]
}

// VoxelSize returns the edge length of a voxel at the given depth.
func (c *Context) VoxelSize(depth int) float64 {
	if depth < 0 || depth >= c.maxDepth {
		return 0
	}
	return c.scale / float64(c.resolutions[depth])
}

// MinLeafSize returns the edge length of the finest voxels.
func (c *Context) MinLeafSize() float64 {
	return c.VoxelSize(c.LeafDepth())
}

// MaxNumLeafChildNodesPerDimension returns the number of leaf voxels along one axis of the root cube.
func (c *Context) MaxNumLeafChildNodesPerDimension() int {
	return c.resolutions[c.LeafDepth()]
}

// Bounds returns the root cube.
func (c *Context) Bounds() spatialmath.AABB {
	return spatialmath.NewCube(r3.Vector{}, c.scale)
}

// Compatible reports whether trees built with c and other can be combined.
func (c *Context) Compatible(other *Context) bool {
	if c == other {
		return true
	}
	if c == nil || other == nil {
		return false
	}
	return c.maxDepth == other.maxDepth && c.order == other.order && c.scale == other.scale
}

// ChildIndex returns the slot index of the child with the given per axis offsets, each in [0, order).
func (c *Context) ChildIndex(x, y, z int) int {
	return x + c.order*(y+c.order*z)
}

// ChildOffset is the inverse of ChildIndex.
func (c *Context) ChildOffset(index int) (int, int, int) {
	return index % c.order, (index / c.order) % c.order, index / (c.order * c.order)
}

// LocationOf returns the location of the voxel at the given depth containing p. Points on the upper faces of
// the root cube belong to the last voxel along that axis.
func (c *Context) LocationOf(p r3.Vector, depth int) (Location, error) {
	if depth < 0 || depth >= c.maxDepth {
		return Location{}, errors.Wrapf(ErrOutOfBounds, "depth %d not in [0, %d)", depth, c.maxDepth)
	}
	if !c.Bounds().Contains(p) {
		return Location{}, errors.Wrapf(ErrOutOfBounds, "point %v outside %v", p, c.Bounds())
	}
	res := c.resolutions[depth]
	size := c.VoxelSize(depth)
	coord := func(v float64) int {
		i := int(math.Floor(v / size))
		if i >= res {
			i = res - 1
		}
		if i < 0 {
			i = 0
		}
		return i
	}
	return Location{Depth: depth, X: coord(p.X), Y: coord(p.Y), Z: coord(p.Z)}, nil
}

func (c *Context) String() string {
	return fmt.Sprintf("Context(maxDepth=%d, order=%d, scale=%g)", c.maxDepth, c.order, c.scale)
}
