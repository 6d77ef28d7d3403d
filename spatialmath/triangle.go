package spatialmath

import (
	"github.com/golang/geo/r3"
)

// Triangle is a triangle in three dimensional space together with its unit normal.
type Triangle struct {
	p0 r3.Vector
	p1 r3.Vector
	p2 r3.Vector

	normal r3.Vector
}

// NewTriangle returns the triangle with the given vertices. The normal follows the winding p0 -> p1 -> p2.
func NewTriangle(p0, p1, p2 r3.Vector) *Triangle {
	return &Triangle{
		p0:     p0,
		p1:     p1,
		p2:     p2,
		normal: PlaneNormal(p0, p1, p2),
	}
}

// Points returns the three vertices.
func (t *Triangle) Points() []r3.Vector {
	return []r3.Vector{t.p0, t.p1, t.p2}
}

// Normal returns the unit normal, or the zero vector for a degenerate triangle.
func (t *Triangle) Normal() r3.Vector {
	return t.normal
}

// Edges returns the edge vectors p1-p0, p2-p1 and p0-p2.
func (t *Triangle) Edges() [3]r3.Vector {
	return [3]r3.Vector{t.p1.Sub(t.p0), t.p2.Sub(t.p1), t.p0.Sub(t.p2)}
}

// Area returns the area of the triangle.
func (t *Triangle) Area() float64 {
	return 0.5 * t.p1.Sub(t.p0).Cross(t.p2.Sub(t.p0)).Norm()
}

// Centroid returns the mean of the three vertices.
func (t *Triangle) Centroid() r3.Vector {
	return t.p0.Add(t.p1).Add(t.p2).Mul(1. / 3.)
}

// IsDegenerate returns whether the triangle has (numerically) zero area.
func (t *Triangle) IsDegenerate() bool {
	return t.normal == (r3.Vector{})
}

// Bounds returns the axis aligned bounding box of the triangle.
func (t *Triangle) Bounds() AABB {
	return NewAABB(t.p0, t.p1).Union(NewAABB(t.p2, t.p2))
}

// Map returns a new triangle whose vertices are the images of this triangle's vertices under fn.
func (t *Triangle) Map(fn func(r3.Vector) r3.Vector) *Triangle {
	return NewTriangle(fn(t.p0), fn(t.p1), fn(t.p2))
}

// Project returns the interval covered by the projection of the triangle onto axis.
func (t *Triangle) Project(axis r3.Vector) (float64, float64) {
	return minMax3(t.p0.Dot(axis), t.p1.Dot(axis), t.p2.Dot(axis))
}
