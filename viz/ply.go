package viz

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// WritePLY writes the quads as an ASCII PLY mesh with per vertex colors. Every quad contributes four
// vertices and two triangles.
func WritePLY(quads []Quad, out io.Writer) error {
	w := bufio.NewWriter(out)
	_, err := fmt.Fprintf(w, "ply\n"+
		"format ascii 1.0\n"+
		"comment voxel faces\n"+
		"element vertex %d\n"+
		"property float x\n"+
		"property float y\n"+
		"property float z\n"+
		"property uchar red\n"+
		"property uchar green\n"+
		"property uchar blue\n"+
		"element face %d\n"+
		"property list uchar int vertex_indices\n"+
		"end_header\n",
		4*len(quads), 2*len(quads))
	if err != nil {
		return err
	}
	for _, q := range quads {
		r, g, b := q.Color.Clamped().RGB255()
		for _, p := range q.Corners {
			if _, err := fmt.Fprintf(w, "%g %g %g %d %d %d\n", p.X, p.Y, p.Z, r, g, b); err != nil {
				return err
			}
		}
	}
	for i := range quads {
		base := 4 * i
		if _, err := fmt.Fprintf(w, "3 %d %d %d\n3 %d %d %d\n",
			base, base+1, base+2, base, base+2, base+3); err != nil {
			return err
		}
	}
	return w.Flush()
}

// WritePLYFile writes the quads to a PLY file.
func WritePLYFile(quads []Quad, path string) (err error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "cannot create %q", path)
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	return WritePLY(quads, f)
}
