package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

// Mesh is an indexed list of triangles. The index of a triangle is its face id.
type Mesh struct {
	triangles []*Triangle
}

// NewMesh returns a mesh over the given triangles.
func NewMesh(triangles []*Triangle) *Mesh {
	return &Mesh{triangles: triangles}
}

// Triangles returns all triangles of the mesh.
func (m *Mesh) Triangles() []*Triangle {
	return m.triangles
}

// NumFaces returns the number of triangles.
func (m *Mesh) NumFaces() int {
	return len(m.triangles)
}

// Face returns the triangle with index i, or nil if i is out of range.
func (m *Mesh) Face(i int) *Triangle {
	if i < 0 || i >= len(m.triangles) {
		return nil
	}
	return m.triangles[i]
}

// Bounds returns the bounding box of all vertices. An empty mesh has a zero box.
func (m *Mesh) Bounds() AABB {
	if len(m.triangles) == 0 {
		return AABB{}
	}
	b := m.triangles[0].Bounds()
	for _, t := range m.triangles[1:] {
		b = b.Union(t.Bounds())
	}
	return b
}

// Transform returns a new mesh whose vertices are mapped through fn.
func (m *Mesh) Transform(fn func(r3.Vector) r3.Vector) *Mesh {
	triangles := make([]*Triangle, 0, len(m.triangles))
	for _, t := range m.triangles {
		triangles = append(triangles, t.Map(fn))
	}
	return NewMesh(triangles)
}

// FitToCube uniformly scales and translates the mesh so that it is centered in the cube [0, scale]^3 while
// keeping a margin to every face of the cube.
func (m *Mesh) FitToCube(scale, margin float64) *Mesh {
	b := m.Bounds()
	size := b.Size()
	extent := math.Max(size.X, math.Max(size.Y, size.Z))
	usable := scale - 2*margin
	factor := 1.0
	if extent > floatEpsilon && usable > 0 {
		factor = usable / extent
	}
	center := b.Center()
	target := r3.Vector{X: scale / 2, Y: scale / 2, Z: scale / 2}
	return m.Transform(func(p r3.Vector) r3.Vector {
		return p.Sub(center).Mul(factor).Add(target)
	})
}
