package spatialmath

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func makeTestMesh() *Mesh {
	return NewMesh([]*Triangle{
		NewTriangle(r3.Vector{X: 0, Y: 0, Z: 0}, r3.Vector{X: 2, Y: 0, Z: 0}, r3.Vector{X: 0, Y: 1, Z: 0}),
		NewTriangle(r3.Vector{X: 0, Y: 0, Z: 1}, r3.Vector{X: 2, Y: 0, Z: 1}, r3.Vector{X: 0, Y: 1, Z: 1}),
	})
}

func TestNewMesh(t *testing.T) {
	m := makeTestMesh()
	test.That(t, m.NumFaces(), test.ShouldEqual, 2)
	test.That(t, len(m.Triangles()), test.ShouldEqual, 2)
	test.That(t, m.Face(1).Points()[0], test.ShouldResemble, r3.Vector{X: 0, Y: 0, Z: 1})
	test.That(t, m.Face(-1), test.ShouldBeNil)
	test.That(t, m.Face(2), test.ShouldBeNil)

	b := m.Bounds()
	test.That(t, b.Min, test.ShouldResemble, r3.Vector{})
	test.That(t, b.Max, test.ShouldResemble, r3.Vector{X: 2, Y: 1, Z: 1})
	test.That(t, NewMesh(nil).Bounds(), test.ShouldResemble, AABB{})
}

func TestMeshTransform(t *testing.T) {
	m := makeTestMesh()
	moved := m.Transform(func(p r3.Vector) r3.Vector { return p.Add(r3.Vector{X: 1}) })
	test.That(t, moved.Bounds().Min, test.ShouldResemble, r3.Vector{X: 1})
	// the original is untouched
	test.That(t, m.Bounds().Min, test.ShouldResemble, r3.Vector{})
}

func TestMeshFitToCube(t *testing.T) {
	m := makeTestMesh()
	fitted := m.FitToCube(4, 1)
	b := fitted.Bounds()
	// the longest extent (x) spans the usable width 2 and everything is centered on 2
	test.That(t, b.Min.X, test.ShouldAlmostEqual, 1)
	test.That(t, b.Max.X, test.ShouldAlmostEqual, 3)
	test.That(t, b.Size().Y, test.ShouldAlmostEqual, 1)
	test.That(t, b.Center().Y, test.ShouldAlmostEqual, 2)
	test.That(t, b.Center().Z, test.ShouldAlmostEqual, 2)

	// a single point cannot be scaled, only moved to the center
	point := NewMesh([]*Triangle{NewTriangle(r3.Vector{X: 5}, r3.Vector{X: 5}, r3.Vector{X: 5})})
	test.That(t, point.FitToCube(2, 0.5).Bounds().Center(), test.ShouldResemble, r3.Vector{X: 1, Y: 1, Z: 1})
}
