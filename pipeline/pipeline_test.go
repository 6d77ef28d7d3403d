package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/svo/config"
	"go.viam.com/svo/meshio"
	"go.viam.com/svo/octree"
	"go.viam.com/svo/spatialmath"
)

var sphereCenter = r3.Vector{X: 0.5, Y: 0.5, Z: 0.5}

func sphereConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Octree.MaxDepth = 6
	cfg.WallThickness.Enabled = true
	cfg.WallThickness.MaxThickness = 4
	cfg.WallThickness.NumColors = 5
	cfg.Output.Path = filepath.Join(t.TempDir(), "sphere.svo")
	test.That(t, cfg.Validate(), test.ShouldBeNil)
	return cfg
}

func sphereMesh() *spatialmath.Mesh {
	return spatialmath.NewIcosphere(sphereCenter, 0.35, 2)
}

func TestRun(t *testing.T) {
	cfg := sphereConfig(t)
	res, err := Run(context.Background(), cfg, sphereMesh(), golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.NumFaces, test.ShouldEqual, 320)
	test.That(t, res.FacesOutsideRoot, test.ShouldEqual, 0)
	test.That(t, res.DegenerateFaces, test.ShouldEqual, 0)
	test.That(t, res.VoxelsSet, test.ShouldBeGreaterThan, 0)
	test.That(t, res.NodesFilled, test.ShouldEqual, 0)
	for _, name := range []string{"voxelize", "classify", "wall_thickness"} {
		_, ok := res.Durations[name]
		test.That(t, ok, test.ShouldBeTrue)
	}

	tree := res.Tree
	test.That(t, tree.Count(octree.ClassFilter(octree.ClassFilled, 5)), test.ShouldEqual, res.VoxelsSet)
	test.That(t, tree.GetMaxDepth(), test.ShouldEqual, 6)

	test.That(t, res.Classification, test.ShouldNotBeNil)
	test.That(t, res.Classification.Inside, test.ShouldBeGreaterThan, 0)
	test.That(t, res.Classification.Boundary, test.ShouldBeGreaterThan, 0)
	centerLoc, err := tree.Context().LocationOf(sphereCenter, 5)
	test.That(t, err, test.ShouldBeNil)
	n, err := tree.Locate(centerLoc, false)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, n.Class(), test.ShouldEqual, octree.ClassInside)

	ws := res.WallThickness
	test.That(t, ws, test.ShouldNotBeNil)
	test.That(t, ws.Voxels, test.ShouldEqual, res.VoxelsSet)
	test.That(t, ws.Min, test.ShouldBeGreaterThanOrEqualTo, 1)
	test.That(t, float64(ws.Min), test.ShouldBeLessThanOrEqualTo, ws.Median)
	test.That(t, ws.Median, test.ShouldBeLessThanOrEqualTo, ws.P95)
	test.That(t, ws.P95, test.ShouldBeLessThanOrEqualTo, float64(ws.Max))
	test.That(t, ws.Mean, test.ShouldBeBetweenOrEqual, float64(ws.Min), float64(ws.Max))
	test.That(t, len(ws.Histogram), test.ShouldEqual, 5)
	total := 0
	for _, c := range ws.Histogram {
		total += c
	}
	test.That(t, total, test.ShouldEqual, ws.Voxels)
}

func TestRunVoxelizationModes(t *testing.T) {
	base := sphereConfig(t)
	base.Classify.Enabled = false
	base.WallThickness.Enabled = false
	ref, err := Run(context.Background(), base, sphereMesh(), golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	want := locations(ref.Tree, octree.ClassFilter(octree.ClassFilled, 5))
	test.That(t, len(want), test.ShouldEqual, ref.VoxelsSet)

	for _, tc := range []struct {
		name      string
		parallel  bool
		fillNodes bool
	}{
		{"parallel", true, false},
		{"fill nodes", false, true},
		{"parallel fill nodes", true, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := sphereConfig(t)
			cfg.Classify.Enabled = false
			cfg.WallThickness.Enabled = false
			cfg.Voxelize.Parallel = tc.parallel
			cfg.Voxelize.FillNodes = tc.fillNodes
			test.That(t, cfg.Validate(), test.ShouldBeNil)
			res, err := Run(context.Background(), cfg, sphereMesh(), golog.NewTestLogger(t))
			test.That(t, err, test.ShouldBeNil)
			test.That(t, res.VoxelsSet, test.ShouldEqual, ref.VoxelsSet)
			test.That(t, locations(res.Tree, octree.ClassFilter(octree.ClassFilled, 5)), test.ShouldResemble, want)
			// nothing is left of the face references
			test.That(t, res.Tree.Count(&octree.BasicFilter{
				MaxDepth: octree.NoDepthLimit,
				Payloads: []octree.PayloadType{octree.PayloadFaceRefs},
			}), test.ShouldEqual, 0)
		})
	}

	t.Run("density", func(t *testing.T) {
		cfg := sphereConfig(t)
		cfg.Classify.Enabled = false
		cfg.WallThickness.Enabled = false
		cfg.Voxelize.Target = config.TargetDensity
		test.That(t, cfg.Validate(), test.ShouldBeNil)
		res, err := Run(context.Background(), cfg, sphereMesh(), golog.NewTestLogger(t))
		test.That(t, err, test.ShouldBeNil)
		dense := res.Tree.Find(&octree.BasicFilter{
			MinDepth: 5,
			MaxDepth: 5,
			Payloads: []octree.PayloadType{octree.PayloadDensity},
		})
		test.That(t, len(dense), test.ShouldEqual, ref.VoxelsSet)
		for _, v := range dense {
			test.That(t, float64(v.Node.Payload().(octree.Density)), test.ShouldBeGreaterThanOrEqualTo, 1.0)
		}
	})
}

func TestRunCoarseClassification(t *testing.T) {
	cfg := sphereConfig(t)
	cfg.Classify.Depth = 4
	cfg.WallThickness.Depth = 4
	test.That(t, cfg.Validate(), test.ShouldBeNil)
	res, err := Run(context.Background(), cfg, sphereMesh(), golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.NodesFilled, test.ShouldBeGreaterThan, 0)
	_, ok := res.Durations["fill"]
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, res.Classification.Inside, test.ShouldBeGreaterThan, 0)
	test.That(t, res.WallThickness.Voxels, test.ShouldEqual, res.Tree.Count(octree.ClassFilter(octree.ClassFilled, 4)))
}

func TestRunFacesOutsideRoot(t *testing.T) {
	logger, logs := golog.NewObservedTestLogger(t)
	cfg := sphereConfig(t)
	cfg.Classify.Enabled = false
	cfg.WallThickness.Enabled = false
	mesh := spatialmath.NewMesh([]*spatialmath.Triangle{
		spatialmath.NewTriangle(r3.Vector{X: 0.2, Y: 0.2, Z: 0.5}, r3.Vector{X: 0.8, Y: 0.2, Z: 0.5}, r3.Vector{X: 0.5, Y: 0.8, Z: 0.5}),
		spatialmath.NewTriangle(r3.Vector{X: 2, Y: 2, Z: 2}, r3.Vector{X: 3, Y: 2, Z: 2}, r3.Vector{X: 2, Y: 3, Z: 2}),
		spatialmath.NewTriangle(r3.Vector{X: 0.1}, r3.Vector{X: 0.2}, r3.Vector{X: 0.3}),
	})
	res, err := Run(context.Background(), cfg, mesh, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.FacesOutsideRoot, test.ShouldEqual, 1)
	test.That(t, res.DegenerateFaces, test.ShouldEqual, 1)
	test.That(t, res.VoxelsSet, test.ShouldBeGreaterThan, 0)
	test.That(t, logs.FilterMessage("root node does not contain the voxelization").Len(), test.ShouldEqual, 1)
}

func TestRunCancelled(t *testing.T) {
	cfg := sphereConfig(t)
	cfg.Voxelize.Parallel = true
	test.That(t, cfg.Validate(), test.ShouldBeNil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, cfg, sphereMesh(), golog.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "voxelize failed")
}

const cubePLY = `ply
format ascii 1.0
element vertex 8
property float x
property float y
property float z
element face 6
property list uchar int vertex_indices
end_header
0 0 0
2 0 0
2 2 0
0 2 0
0 0 2
2 0 2
2 2 2
0 2 2
4 0 3 2 1
4 4 5 6 7
4 0 1 5 4
4 2 3 7 6
4 1 2 6 5
4 0 4 7 3`

func TestRunFile(t *testing.T) {
	dir := t.TempDir()
	meshPath := filepath.Join(dir, "cube.ply")
	test.That(t, os.WriteFile(meshPath, []byte(cubePLY), 0o600), test.ShouldBeNil)

	cfg := config.Default()
	cfg.Octree.MaxDepth = 5
	cfg.Octree.Margin = 0.1
	cfg.Output.Path = filepath.Join(dir, "cube.svo")
	cfg.Output.Compress = true
	cfg.Output.ExportPath = filepath.Join(dir, "cube_faces.ply")
	test.That(t, cfg.Validate(), test.ShouldBeNil)

	logger := golog.NewTestLogger(t)
	res, err := RunFile(context.Background(), cfg, meshPath, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.NumFaces, test.ShouldEqual, 12)
	test.That(t, res.Classification.Inside, test.ShouldBeGreaterThan, 0)
	test.That(t, res.WallThickness, test.ShouldBeNil)

	loaded, err := octree.ReadFile(cfg.Output.Path, res.Tree.Context(), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, loaded.NumNodes(), test.ShouldEqual, res.Tree.NumNodes())
	for _, class := range []octree.VoxelClass{octree.ClassFilled, octree.ClassInside, octree.ClassBoundary} {
		filter := octree.ClassFilter(class, 4)
		test.That(t, loaded.Count(filter), test.ShouldEqual, res.Tree.Count(filter))
	}

	exported, err := meshio.ReadPLYFile(cfg.Output.ExportPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, exported.NumFaces(), test.ShouldBeGreaterThan, 0)
	test.That(t, exported.NumFaces()%2, test.ShouldEqual, 0)

	_, err = RunFile(context.Background(), cfg, filepath.Join(dir, "missing.ply"), logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func locations(tree *octree.Tree, filter octree.NodeFilter) map[octree.Location]struct{} {
	out := map[octree.Location]struct{}{}
	for _, v := range tree.Find(filter) {
		out[v.Location] = struct{}{}
	}
	return out
}
