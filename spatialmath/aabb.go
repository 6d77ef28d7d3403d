package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
)

// AABB is an axis aligned box described by its minimum and maximum corners. Boxes are closed: points on the
// faces are contained.
type AABB struct {
	Min r3.Vector
	Max r3.Vector
}

// NewAABB returns the box spanned by two arbitrary corners.
func NewAABB(a, b r3.Vector) AABB {
	return AABB{
		Min: r3.Vector{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y), Z: math.Min(a.Z, b.Z)},
		Max: r3.Vector{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y), Z: math.Max(a.Z, b.Z)},
	}
}

// NewCube returns the cube with the given minimum corner and edge length.
func NewCube(origin r3.Vector, edge float64) AABB {
	return AABB{Min: origin, Max: origin.Add(r3.Vector{X: edge, Y: edge, Z: edge})}
}

// Center returns the center point of the box.
func (b AABB) Center() r3.Vector {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Size returns the edge lengths of the box.
func (b AABB) Size() r3.Vector {
	return b.Max.Sub(b.Min)
}

// HalfSize returns half of the edge lengths of the box.
func (b AABB) HalfSize() r3.Vector {
	return b.Size().Mul(0.5)
}

// Contains returns whether p lies inside or on the box.
func (b AABB) Contains(p r3.Vector) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Overlaps returns whether the two boxes share at least one point.
func (b AABB) Overlaps(o AABB) bool {
	return b.Min.X <= o.Max.X && b.Max.X >= o.Min.X &&
		b.Min.Y <= o.Max.Y && b.Max.Y >= o.Min.Y &&
		b.Min.Z <= o.Max.Z && b.Max.Z >= o.Min.Z
}

// Encloses returns whether o lies completely inside b.
func (b AABB) Encloses(o AABB) bool {
	return b.Contains(o.Min) && b.Contains(o.Max)
}

// Expand grows the box by d in every direction. Negative values shrink it.
func (b AABB) Expand(d float64) AABB {
	delta := r3.Vector{X: d, Y: d, Z: d}
	return AABB{Min: b.Min.Sub(delta), Max: b.Max.Add(delta)}
}

// Union returns the smallest box containing both boxes.
func (b AABB) Union(o AABB) AABB {
	return AABB{
		Min: r3.Vector{X: math.Min(b.Min.X, o.Min.X), Y: math.Min(b.Min.Y, o.Min.Y), Z: math.Min(b.Min.Z, o.Min.Z)},
		Max: r3.Vector{X: math.Max(b.Max.X, o.Max.X), Y: math.Max(b.Max.Y, o.Max.Y), Z: math.Max(b.Max.Z, o.Max.Z)},
	}
}

// IntersectRay runs the slab test of the ray against the box. It returns the parametric interval
// [tNear, tFar] in which the ray is inside the box. Boxes lying entirely behind the ray origin and rays
// parallel to a slab they are outside of do not intersect.
func (b AABB) IntersectRay(r Ray) (float64, float64, bool) {
	tNear, tFar := math.Inf(-1), math.Inf(1)
	for _, a := range Axes {
		o := Component(r.origin, a)
		lo, hi := Component(b.Min, a), Component(b.Max, a)
		if r.parallel[a] {
			if o < lo || o > hi {
				return 0, 0, false
			}
			continue
		}
		inv := Component(r.inv, a)
		t1 := (lo - o) * inv
		t2 := (hi - o) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tNear {
			tNear = t1
		}
		if t2 < tFar {
			tFar = t2
		}
		if tNear > tFar {
			return 0, 0, false
		}
	}
	if tFar < 0 {
		return 0, 0, false
	}
	return tNear, tFar, true
}

// String returns a human readable representation of the box.
func (b AABB) String() string {
	return fmt.Sprintf("AABB[(%.4f, %.4f, %.4f) - (%.4f, %.4f, %.4f)]",
		b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z)
}
