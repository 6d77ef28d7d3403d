// Package viz turns voxels into colored geometry for viewers.
package viz

import (
	"github.com/golang/geo/r3"
	"github.com/lucasb-eyer/go-colorful"

	"go.viam.com/svo/octree"
	"go.viam.com/svo/spatialmath"
)

// A Quad is one visible face of a voxel. Its corners wind counter clockwise when seen from outside.
type Quad struct {
	Corners  [4]r3.Vector
	Normal   r3.Vector
	Color    colorful.Color
	Location octree.Location
}

// Triangles splits the quad along its first diagonal.
func (q Quad) Triangles() [2]*spatialmath.Triangle {
	return [2]*spatialmath.Triangle{
		spatialmath.NewTriangle(q.Corners[0], q.Corners[1], q.Corners[2]),
		spatialmath.NewTriangle(q.Corners[0], q.Corners[2], q.Corners[3]),
	}
}

// Quads returns the faces of every voxel passing filter that the colorer accepts. A face shared with
// another exported voxel of the same depth is hidden and skipped.
func Quads(tree *octree.Tree, filter octree.NodeFilter, colorer Colorer) []Quad {
	type voxel struct {
		loc   octree.Location
		color colorful.Color
	}
	var voxels []voxel
	visible := map[octree.Location]struct{}{}
	for _, v := range tree.Find(filter) {
		c, ok := colorer(v)
		if !ok {
			continue
		}
		voxels = append(voxels, voxel{loc: v.Location, color: c})
		visible[v.Location] = struct{}{}
	}

	ctx := tree.Context()
	var quads []Quad
	for _, vox := range voxels {
		box := vox.loc.Box(ctx)
		for _, a := range spatialmath.Axes {
			for _, dir := range []int{-1, 1} {
				if _, hidden := visible[vox.loc.Neighbor(a, dir)]; hidden {
					continue
				}
				q := boxFace(box, a, dir)
				q.Color = vox.color
				q.Location = vox.loc
				quads = append(quads, q)
			}
		}
	}
	return quads
}

// boxFace returns the face of box on the side dir of axis a.
func boxFace(box spatialmath.AABB, a r3.Axis, dir int) Quad {
	u, v := tangentAxes(a)
	coord := spatialmath.Component(box.Min, a)
	normal := spatialmath.AxisVector(a)
	if dir > 0 {
		coord = spatialmath.Component(box.Max, a)
	} else {
		normal = normal.Mul(-1)
	}
	corner := func(useMaxU, useMaxV bool) r3.Vector {
		p := spatialmath.WithComponent(r3.Vector{}, a, coord)
		if useMaxU {
			p = spatialmath.WithComponent(p, u, spatialmath.Component(box.Max, u))
		} else {
			p = spatialmath.WithComponent(p, u, spatialmath.Component(box.Min, u))
		}
		if useMaxV {
			p = spatialmath.WithComponent(p, v, spatialmath.Component(box.Max, v))
		} else {
			p = spatialmath.WithComponent(p, v, spatialmath.Component(box.Min, v))
		}
		return p
	}
	q := Quad{Normal: normal}
	if dir > 0 {
		q.Corners = [4]r3.Vector{corner(false, false), corner(true, false), corner(true, true), corner(false, true)}
	} else {
		q.Corners = [4]r3.Vector{corner(false, false), corner(false, true), corner(true, true), corner(true, false)}
	}
	return q
}

// tangentAxes returns the two other axes in cyclic order, so that u x v points along a.
func tangentAxes(a r3.Axis) (r3.Axis, r3.Axis) {
	switch a {
	case r3.XAxis:
		return r3.YAxis, r3.ZAxis
	case r3.YAxis:
		return r3.ZAxis, r3.XAxis
	default:
		return r3.XAxis, r3.YAxis
	}
}
