package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

// NumTriangleBoxAxes is the number of candidate separating axes between a triangle and an axis aligned box.
const NumTriangleBoxAxes = 13

// TriangleBoxAxes returns the candidate separating axes of a triangle against an axis aligned box, all
// normalized: the three box face normals, the triangle normal and the nine cross products of the triangle
// edges with the box axes. Axes that degenerate (parallel edge and box axis, zero area triangle) are
// returned as zero vectors and must be skipped.
func TriangleBoxAxes(t *Triangle) [NumTriangleBoxAxes]r3.Vector {
	var axes [NumTriangleBoxAxes]r3.Vector
	for i, a := range Axes {
		axes[i] = AxisVector(a)
	}
	axes[3] = t.Normal()
	edges := t.Edges()
	i := 4
	for _, a := range Axes {
		for _, e := range edges {
			c := AxisVector(a).Cross(e)
			if n := c.Norm(); n > floatEpsilon {
				axes[i] = c.Mul(1 / n)
			}
			i++
		}
	}
	return axes
}

// BoxSupport returns the radius of the projection of a box with the given half size onto axis.
func BoxSupport(axis, half r3.Vector) float64 {
	return math.Abs(axis.X)*half.X + math.Abs(axis.Y)*half.Y + math.Abs(axis.Z)*half.Z
}

// TriangleBoxOverlap runs the separating axis test between a triangle and a closed box. Touching counts as
// overlapping.
func TriangleBoxOverlap(t *Triangle, b AABB) bool {
	c := b.Center()
	h := b.HalfSize()
	for _, axis := range TriangleBoxAxes(t) {
		if axis == (r3.Vector{}) {
			continue
		}
		lo, hi := t.Project(axis)
		cp := c.Dot(axis)
		r := BoxSupport(axis, h)
		if lo > cp+r+floatEpsilon || hi < cp-r-floatEpsilon {
			return false
		}
	}
	return true
}
