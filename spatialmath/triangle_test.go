package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestBasicTriangleFunctions(t *testing.T) {
	expectedPts := []r3.Vector{{X: 0, Y: 0, Z: 0}, {X: 3, Y: 0, Z: 0}, {X: 0, Y: 3, Z: 0}}
	tri := NewTriangle(expectedPts[0], expectedPts[1], expectedPts[2])

	expectedNormal := r3.Vector{X: 0, Y: 0, Z: 1}
	expectedArea := 4.5
	expectedCentroid := r3.Vector{X: 1, Y: 1, Z: 0}

	t.Run("constructor", func(t *testing.T) {
		test.That(t, tri.Points(), test.ShouldResemble, expectedPts)
		test.That(t, tri.Normal(), test.ShouldResemble, expectedNormal)
		test.That(t, tri.IsDegenerate(), test.ShouldBeFalse)
	})

	t.Run("area", func(t *testing.T) {
		test.That(t, tri.Area(), test.ShouldEqual, expectedArea)
	})

	t.Run("centroid", func(t *testing.T) {
		test.That(t, tri.Centroid(), test.ShouldResemble, expectedCentroid)
	})

	t.Run("bounds", func(t *testing.T) {
		b := tri.Bounds()
		test.That(t, b.Min, test.ShouldResemble, r3.Vector{X: 0, Y: 0, Z: 0})
		test.That(t, b.Max, test.ShouldResemble, r3.Vector{X: 3, Y: 3, Z: 0})
	})

	t.Run("map", func(t *testing.T) {
		moved := tri.Map(func(p r3.Vector) r3.Vector { return p.Add(r3.Vector{X: 1, Y: 1, Z: 1}) })
		test.That(t, moved.Centroid(), test.ShouldResemble, r3.Vector{X: 2, Y: 2, Z: 1})
		test.That(t, moved.Normal(), test.ShouldResemble, expectedNormal)
	})

	t.Run("projection", func(t *testing.T) {
		lo, hi := tri.Project(r3.Vector{X: 1, Y: 1, Z: 0}.Normalize())
		test.That(t, lo, test.ShouldAlmostEqual, 0)
		test.That(t, hi, test.ShouldAlmostEqual, 3/math.Sqrt2)
	})

	t.Run("degenerate", func(t *testing.T) {
		line := NewTriangle(r3.Vector{X: 0, Y: 0, Z: 0}, r3.Vector{X: 1, Y: 1, Z: 1}, r3.Vector{X: 2, Y: 2, Z: 2})
		test.That(t, line.IsDegenerate(), test.ShouldBeTrue)
		test.That(t, line.Area(), test.ShouldAlmostEqual, 0)
	})
}

func TestTriangleBoxOverlap(t *testing.T) {
	box := NewCube(r3.Vector{X: 0, Y: 0, Z: 0}, 1)
	cases := []struct {
		name     string
		tri      *Triangle
		expected bool
	}{
		{
			"cutting through the middle",
			NewTriangle(r3.Vector{X: -1, Y: -1, Z: 0.5}, r3.Vector{X: 3, Y: -1, Z: 0.5}, r3.Vector{X: -1, Y: 3, Z: 0.5}),
			true,
		},
		{
			"fully inside",
			NewTriangle(r3.Vector{X: 0.1, Y: 0.1, Z: 0.1}, r3.Vector{X: 0.2, Y: 0.1, Z: 0.1}, r3.Vector{X: 0.1, Y: 0.2, Z: 0.1}),
			true,
		},
		{
			"touching a face",
			NewTriangle(r3.Vector{X: 1, Y: 0, Z: 0}, r3.Vector{X: 1, Y: 1, Z: 0}, r3.Vector{X: 1, Y: 0, Z: 1}),
			true,
		},
		{
			"above the box",
			NewTriangle(r3.Vector{X: 0, Y: 0, Z: 1.5}, r3.Vector{X: 1, Y: 0, Z: 1.5}, r3.Vector{X: 0, Y: 1, Z: 1.5}),
			false,
		},
		{
			// bounding boxes overlap but the diagonal plane passes the corner
			"missing the corner",
			NewTriangle(r3.Vector{X: 2.9, Y: 0, Z: 0}, r3.Vector{X: 0, Y: 2.9, Z: 0}, r3.Vector{X: 0, Y: 0, Z: 2.9}).Map(
				func(p r3.Vector) r3.Vector { return p.Add(r3.Vector{X: 0.1, Y: 0.1, Z: 0.1}) }),
			false,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			test.That(t, TriangleBoxOverlap(c.tri, box), test.ShouldEqual, c.expected)
		})
	}
}

func TestTriangleBoxAxes(t *testing.T) {
	tri := NewTriangle(r3.Vector{X: 0, Y: 0, Z: 0}, r3.Vector{X: 1, Y: 0, Z: 0}, r3.Vector{X: 0, Y: 1, Z: 0})
	axes := TriangleBoxAxes(tri)
	test.That(t, axes[3], test.ShouldResemble, r3.Vector{X: 0, Y: 0, Z: 1})
	zeros := 0
	for _, a := range axes {
		if a == (r3.Vector{}) {
			zeros++
			continue
		}
		test.That(t, a.Norm(), test.ShouldAlmostEqual, 1)
	}
	// the x edge is parallel to the x axis and the y edge to the y axis
	test.That(t, zeros, test.ShouldEqual, 2)
}
