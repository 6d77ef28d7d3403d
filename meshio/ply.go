// Package meshio imports triangle meshes.
package meshio

import (
	"fmt"
	"io"
	"os"

	"github.com/chenzhekl/goply"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/svo/spatialmath"
	"go.viam.com/svo/utils"
)

// ErrInvalidPLY is returned for PLY input that cannot be turned into a mesh.
var ErrInvalidPLY = errors.New("invalid ply mesh")

// faceIndexProperties are the names used for the vertex index list of a face.
var faceIndexProperties = []string{"vertex_indices", "vertex_index"}

// ReadPLY parses an ASCII PLY file into a mesh. Polygons with more than three vertices are split into a
// triangle fan; faces are numbered in file order after splitting.
func ReadPLY(r io.Reader) (mesh *spatialmath.Mesh, err error) {
	ply, err := parsePLY(r)
	if err != nil {
		return nil, err
	}

	vertexElems := ply.Elements("vertex")
	if len(vertexElems) == 0 {
		return nil, errors.Wrap(ErrInvalidPLY, "no vertices")
	}
	vertices := make([]r3.Vector, 0, len(vertexElems))
	for i, elem := range vertexElems {
		v, err := vertexOf(elem)
		if err != nil {
			return nil, errors.Wrapf(err, "vertex %d", i)
		}
		vertices = append(vertices, v)
	}

	faceElems := ply.Elements("face")
	triangles := make([]*spatialmath.Triangle, 0, len(faceElems))
	for i, elem := range faceElems {
		indices, err := indicesOf(elem, len(vertices))
		if err != nil {
			return nil, errors.Wrapf(err, "face %d", i)
		}
		for j := 1; j+1 < len(indices); j++ {
			triangles = append(triangles, spatialmath.NewTriangle(
				vertices[indices[0]], vertices[indices[j]], vertices[indices[j+1]]))
		}
	}
	if len(triangles) == 0 {
		return nil, errors.Wrap(ErrInvalidPLY, "no faces")
	}
	return spatialmath.NewMesh(triangles), nil
}

// ReadPLYFile reads a PLY mesh from a file.
func ReadPLYFile(path string) (mesh *spatialmath.Mesh, err error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	mesh, err = ReadPLY(f)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %q", path)
	}
	return mesh, nil
}

// LoadMesh reads a PLY file and fits it into the root cube of an octree with edge length scale.
func LoadMesh(path string, scale, margin float64) (*spatialmath.Mesh, error) {
	mesh, err := ReadPLYFile(path)
	if err != nil {
		return nil, err
	}
	return mesh.FitToCube(scale, margin), nil
}

// parsePLY turns the panics of the underlying parser into errors.
func parsePLY(r io.Reader) (ply *goply.Ply, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.Wrap(ErrInvalidPLY, fmt.Sprint(rec))
		}
	}()
	return goply.New(r), nil
}

func vertexOf(elem goply.PlyElement) (r3.Vector, error) {
	var coords [3]float64
	for i, name := range []string{"x", "y", "z"} {
		prop := elem.Property(name)
		if prop == nil {
			return r3.Vector{}, errors.Wrapf(ErrInvalidPLY, "missing property %q", name)
		}
		v, err := utils.AssertNumber(prop)
		if err != nil {
			return r3.Vector{}, errors.Wrapf(ErrInvalidPLY, "property %q: %v", name, err)
		}
		coords[i] = v
	}
	return r3.Vector{X: coords[0], Y: coords[1], Z: coords[2]}, nil
}

func indicesOf(elem goply.PlyElement, numVertices int) ([]int, error) {
	var list []interface{}
	for _, name := range faceIndexProperties {
		if prop := elem.Property(name); prop != nil {
			var err error
			list, err = utils.AssertType[[]interface{}](prop)
			if err != nil {
				return nil, errors.Wrapf(ErrInvalidPLY, "property %q: %v", name, err)
			}
			break
		}
	}
	if len(list) < 3 {
		return nil, errors.Wrapf(ErrInvalidPLY, "face needs at least 3 vertices, got %d", len(list))
	}
	indices := make([]int, 0, len(list))
	for _, raw := range list {
		v, err := utils.AssertNumber(raw)
		if err != nil {
			return nil, errors.Wrap(ErrInvalidPLY, err.Error())
		}
		idx := int(v)
		if idx < 0 || idx >= numVertices {
			return nil, errors.Wrapf(ErrInvalidPLY, "vertex index %d out of range [0, %d)", idx, numVertices)
		}
		indices = append(indices, idx)
	}
	return indices, nil
}
