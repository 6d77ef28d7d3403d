package octree

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestNewContext(t *testing.T) {
	ctx, err := NewContext(8, 2, 4.0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ctx.MaxDepth(), test.ShouldEqual, 8)
	test.That(t, ctx.LeafDepth(), test.ShouldEqual, 7)
	test.That(t, ctx.NumChildren(), test.ShouldEqual, 8)
	test.That(t, ctx.Resolution(0), test.ShouldEqual, 1)
	test.That(t, ctx.Resolution(7), test.ShouldEqual, 128)
	test.That(t, ctx.Resolution(8), test.ShouldEqual, 0)
	test.That(t, ctx.VoxelSize(0), test.ShouldEqual, 4.0)
	test.That(t, ctx.MinLeafSize(), test.ShouldEqual, 4.0/128)
	test.That(t, ctx.MaxNumLeafChildNodesPerDimension(), test.ShouldEqual, 128)
	test.That(t, ctx.Bounds().Max, test.ShouldResemble, r3.Vector{X: 4, Y: 4, Z: 4})

	ctx3, err := NewContext(4, 3, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ctx3.NumChildren(), test.ShouldEqual, 27)
	test.That(t, ctx3.MaxNumLeafChildNodesPerDimension(), test.ShouldEqual, 27)

	for _, tc := range []struct {
		name     string
		maxDepth int
		order    int
		scale    float64
	}{
		{"zero depth", 0, 2, 1},
		{"order one", 3, 1, 1},
		{"order too large", 3, 65, 1},
		{"zero scale", 3, 2, 0},
		{"negative scale", 3, 2, -1},
		{"nan scale", 3, 2, math.NaN()},
		{"infinite scale", 3, 2, math.Inf(1)},
		{"too many voxels", 40, 2, 1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewContext(tc.maxDepth, tc.order, tc.scale)
			test.That(t, errors.Is(err, ErrConfig), test.ShouldBeTrue)
		})
	}
}

func TestChildIndex(t *testing.T) {
	for _, order := range []int{2, 3, 4} {
		ctx, err := NewContext(3, order, 1)
		test.That(t, err, test.ShouldBeNil)
		for i := 0; i < ctx.NumChildren(); i++ {
			x, y, z := ctx.ChildOffset(i)
			test.That(t, ctx.ChildIndex(x, y, z), test.ShouldEqual, i)
		}
	}
	ctx, err := NewContext(3, 2, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ctx.ChildIndex(1, 0, 0), test.ShouldEqual, 1)
	test.That(t, ctx.ChildIndex(0, 1, 0), test.ShouldEqual, 2)
	test.That(t, ctx.ChildIndex(0, 0, 1), test.ShouldEqual, 4)
}

func TestContextCompatible(t *testing.T) {
	a, _ := NewContext(4, 2, 1)
	b, _ := NewContext(4, 2, 1)
	c, _ := NewContext(4, 2, 2)
	d, _ := NewContext(5, 2, 1)
	test.That(t, a.Compatible(b), test.ShouldBeTrue)
	test.That(t, a.Compatible(c), test.ShouldBeFalse)
	test.That(t, a.Compatible(d), test.ShouldBeFalse)
	test.That(t, a.Compatible(nil), test.ShouldBeFalse)
}

func TestLocations(t *testing.T) {
	ctx, err := NewContext(4, 2, 8)
	test.That(t, err, test.ShouldBeNil)

	loc, err := ctx.LocationOf(r3.Vector{X: 0.5, Y: 3.5, Z: 7.9}, 3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, loc, test.ShouldResemble, Location{Depth: 3, X: 0, Y: 3, Z: 7})
	test.That(t, loc.Box(ctx).Contains(r3.Vector{X: 0.5, Y: 3.5, Z: 7.9}), test.ShouldBeTrue)
	test.That(t, loc.Center(ctx), test.ShouldResemble, r3.Vector{X: 0.5, Y: 3.5, Z: 7.5})

	t.Run("ancestors and child indices agree", func(t *testing.T) {
		walked := RootLocation()
		for d := 0; d < loc.Depth; d++ {
			walked = walked.Child(ctx, loc.ChildIndexAt(ctx, d))
			test.That(t, walked, test.ShouldResemble, loc.Ancestor(ctx, d+1))
		}
		test.That(t, walked, test.ShouldResemble, loc)
		test.That(t, loc.Ancestor(ctx, 0), test.ShouldResemble, RootLocation())
	})

	t.Run("neighbors", func(t *testing.T) {
		neighbors := loc.FaceNeighbors()
		valid := 0
		for _, n := range neighbors {
			test.That(t, loc.adjacent(n), test.ShouldBeTrue)
			if n.Valid(ctx) {
				valid++
			}
		}
		// x=0 and z=7 sit on the grid boundary
		test.That(t, valid, test.ShouldEqual, 4)
		test.That(t, loc.Neighbor(r3.YAxis, 1), test.ShouldResemble, Location{Depth: 3, X: 0, Y: 4, Z: 7})
		test.That(t, loc.adjacent(loc), test.ShouldBeFalse)
		test.That(t, loc.adjacent(Location{Depth: 3, X: 1, Y: 4, Z: 6}), test.ShouldBeTrue)
		test.That(t, loc.adjacent(Location{Depth: 3, X: 2, Y: 3, Z: 7}), test.ShouldBeFalse)
	})

	t.Run("out of bounds", func(t *testing.T) {
		_, err := ctx.LocationOf(r3.Vector{X: 9}, 1)
		test.That(t, errors.Is(err, ErrOutOfBounds), test.ShouldBeTrue)
		_, err = ctx.LocationOf(r3.Vector{X: 1}, 4)
		test.That(t, errors.Is(err, ErrOutOfBounds), test.ShouldBeTrue)
		test.That(t, Location{Depth: 2, X: 4}.Valid(ctx), test.ShouldBeFalse)
		test.That(t, Location{Depth: 2, X: -1}.Valid(ctx), test.ShouldBeFalse)
		test.That(t, Location{Depth: 4}.Valid(ctx), test.ShouldBeFalse)
	})
}
