package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

// floatEpsilon is the tolerance used when deciding whether a floating point quantity is zero.
const floatEpsilon = 1e-9

// Axes lists the three coordinate axes in order.
var Axes = [3]r3.Axis{r3.XAxis, r3.YAxis, r3.ZAxis}

// Component returns the coordinate of v along the given axis.
func Component(v r3.Vector, a r3.Axis) float64 {
	switch a {
	case r3.XAxis:
		return v.X
	case r3.YAxis:
		return v.Y
	default:
		return v.Z
	}
}

// WithComponent returns a copy of v with the coordinate along the given axis replaced by val.
func WithComponent(v r3.Vector, a r3.Axis, val float64) r3.Vector {
	switch a {
	case r3.XAxis:
		v.X = val
	case r3.YAxis:
		v.Y = val
	default:
		v.Z = val
	}
	return v
}

// AxisVector returns the unit vector of the given axis.
func AxisVector(a r3.Axis) r3.Vector {
	return WithComponent(r3.Vector{}, a, 1)
}

// PlaneNormal returns the unit normal of the plane through the three given points, following the right hand
// rule for the winding p0 -> p1 -> p2. Collinear points yield the zero vector.
func PlaneNormal(p0, p1, p2 r3.Vector) r3.Vector {
	n := p1.Sub(p0).Cross(p2.Sub(p0))
	norm := n.Norm()
	if norm < floatEpsilon {
		return r3.Vector{}
	}
	return n.Mul(1 / norm)
}

func minMax3(a, b, c float64) (float64, float64) {
	return math.Min(a, math.Min(b, c)), math.Max(a, math.Max(b, c))
}
