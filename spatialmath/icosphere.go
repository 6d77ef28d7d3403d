package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

var icosahedronFaces = [20][3]int{
	{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
	{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
	{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
	{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
}

// NewIcosphere returns a closed, outward oriented triangulation of the sphere with the given center and
// radius, obtained by subdividing an icosahedron the given number of times.
func NewIcosphere(center r3.Vector, radius float64, subdivisions int) *Mesh {
	phi := (1 + math.Sqrt(5)) / 2
	vertices := []r3.Vector{
		{X: -1, Y: phi}, {X: 1, Y: phi}, {X: -1, Y: -phi}, {X: 1, Y: -phi},
		{Y: -1, Z: phi}, {Y: 1, Z: phi}, {Y: -1, Z: -phi}, {Y: 1, Z: -phi},
		{X: phi, Z: -1}, {X: phi, Z: 1}, {X: -phi, Z: -1}, {X: -phi, Z: 1},
	}
	for i := range vertices {
		vertices[i] = vertices[i].Normalize()
	}
	faces := icosahedronFaces[:]

	for s := 0; s < subdivisions; s++ {
		midpoints := map[[2]int]int{}
		midpoint := func(a, b int) int {
			key := [2]int{a, b}
			if a > b {
				key = [2]int{b, a}
			}
			if idx, ok := midpoints[key]; ok {
				return idx
			}
			vertices = append(vertices, vertices[a].Add(vertices[b]).Normalize())
			midpoints[key] = len(vertices) - 1
			return len(vertices) - 1
		}
		next := make([][3]int, 0, 4*len(faces))
		for _, f := range faces {
			a := midpoint(f[0], f[1])
			b := midpoint(f[1], f[2])
			c := midpoint(f[2], f[0])
			next = append(next,
				[3]int{f[0], a, c},
				[3]int{f[1], b, a},
				[3]int{f[2], c, b},
				[3]int{a, b, c},
			)
		}
		faces = next
	}

	triangles := make([]*Triangle, 0, len(faces))
	place := func(v r3.Vector) r3.Vector {
		return v.Mul(radius).Add(center)
	}
	for _, f := range faces {
		triangles = append(triangles, NewTriangle(place(vertices[f[0]]), place(vertices[f[1]]), place(vertices[f[2]])))
	}
	return NewMesh(triangles)
}
