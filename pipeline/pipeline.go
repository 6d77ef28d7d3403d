// Package pipeline runs the batch workflow from a triangle mesh to a classified, serialized octree.
package pipeline

import (
	"context"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"go.viam.com/svo/config"
	"go.viam.com/svo/meshio"
	"go.viam.com/svo/octree"
	"go.viam.com/svo/spatialmath"
	"go.viam.com/svo/viz"
)

// Result describes a finished run.
type Result struct {
	Tree *octree.Tree

	NumFaces int
	// FacesOutsideRoot counts the non degenerate faces that miss the root cube.
	FacesOutsideRoot int
	DegenerateFaces  int
	VoxelsSet        int
	// NodesFilled counts the inner nodes aggregated from their children before classification.
	NodesFilled int
	NodesPruned int

	Classification *octree.IOBStats
	WallThickness  *WallThicknessStats

	Durations map[string]time.Duration
}

// Run voxelizes mesh, which must already lie in the root cube, and runs the enabled stages of cfg on the
// resulting tree. cfg must be validated.
func Run(ctx context.Context, cfg *config.Config, mesh *spatialmath.Mesh, logger golog.Logger) (*Result, error) {
	octreeCtx, err := cfg.NewContext()
	if err != nil {
		return nil, err
	}
	tree := octree.NewTree(octreeCtx, logger.Named("octree"))
	res := &Result{Tree: tree, NumFaces: mesh.NumFaces(), Durations: map[string]time.Duration{}}

	stage := func(name string, fn func(logger golog.Logger) error) error {
		start := time.Now()
		if err := fn(logger.Named(name)); err != nil {
			return errors.Wrapf(err, "%s failed", name)
		}
		res.Durations[name] = time.Since(start)
		logger.Debugw("stage done", "stage", name, "duration", res.Durations[name])
		return nil
	}

	if err := stage("voxelize", func(logger golog.Logger) error {
		return voxelize(ctx, cfg.Voxelize, tree, mesh, res, logger)
	}); err != nil {
		return nil, err
	}

	needsFill := (cfg.Classify.Enabled && cfg.Classify.Depth < cfg.Voxelize.Depth) ||
		(cfg.WallThickness.Enabled && cfg.WallThickness.Depth < cfg.Voxelize.Depth)
	if needsFill {
		if err := stage("fill", func(logger golog.Logger) error {
			res.NodesFilled = tree.Fill()
			logger.Debugw("aggregated inner nodes", "nodes", res.NodesFilled)
			return nil
		}); err != nil {
			return nil, err
		}
	}

	if cfg.Classify.Enabled {
		if err := stage("classify", func(logger golog.Logger) error {
			stats, err := classify(cfg.Classify, tree, logger)
			res.Classification = stats
			return err
		}); err != nil {
			return nil, err
		}
	}

	if cfg.WallThickness.Enabled {
		if err := stage("wall_thickness", func(logger golog.Logger) error {
			stats, err := measureWallThickness(cfg.WallThickness, tree, logger)
			res.WallThickness = stats
			return err
		}); err != nil {
			return nil, err
		}
	}

	if cfg.Output.PruneEmpty {
		res.NodesPruned = tree.PruneEmpty(true)
	}
	logger.Infow("pipeline finished",
		"faces", res.NumFaces,
		"voxels", res.VoxelsSet,
		"nodes", tree.NumNodes(),
		"pruned", res.NodesPruned,
	)
	return res, nil
}

// RunFile loads the PLY mesh at meshPath, fits it into the root cube, runs the pipeline and writes the
// outputs named by cfg.
func RunFile(ctx context.Context, cfg *config.Config, meshPath string, logger golog.Logger) (*Result, error) {
	mesh, err := meshio.LoadMesh(meshPath, cfg.Octree.Scale, cfg.Octree.Margin)
	if err != nil {
		return nil, err
	}
	logger.Infow("mesh loaded", "path", meshPath, "faces", mesh.NumFaces(), "bounds", mesh.Bounds())
	res, err := Run(ctx, cfg, mesh, logger)
	if err != nil {
		return nil, err
	}
	if err := WriteOutputs(cfg, res, logger); err != nil {
		return nil, err
	}
	return res, nil
}

// WriteOutputs serializes the tree and, if requested, exports its visible voxels.
func WriteOutputs(cfg *config.Config, res *Result, logger golog.Logger) error {
	if err := octree.WriteFile(cfg.Output.Path, res.Tree, cfg.Output.Compress); err != nil {
		return err
	}
	logger.Infow("tree written", "path", cfg.Output.Path, "compress", cfg.Output.Compress)
	if cfg.Output.ExportPath == "" {
		return nil
	}
	depth, colorer := exportStyle(cfg, res)
	quads := viz.Quads(res.Tree, octree.ClassFilter(octree.ClassFilled, depth), colorer)
	if err := viz.WritePLYFile(quads, cfg.Output.ExportPath); err != nil {
		return err
	}
	logger.Infow("voxel faces exported", "path", cfg.Output.ExportPath, "quads", len(quads), "depth", depth)
	return nil
}

// exportStyle colors by wall thickness when measured, otherwise by class at the classification depth.
func exportStyle(cfg *config.Config, res *Result) (int, viz.Colorer) {
	if res.WallThickness != nil {
		palette := viz.ThicknessPalette(cfg.WallThickness.NumColors)
		return cfg.WallThickness.Depth, viz.ThicknessColorer(res.WallThickness.Processor, palette)
	}
	if res.Classification != nil {
		return cfg.Classify.Depth, viz.ClassColorer(false)
	}
	return cfg.Voxelize.Depth, viz.ClassColorer(false)
}

func voxelize(
	ctx context.Context,
	cfg config.VoxelizeConfig,
	tree *octree.Tree,
	mesh *spatialmath.Mesh,
	res *Result,
	logger golog.Logger,
) error {
	sep := cfg.SeparabilityClass()
	if cfg.Parallel && !cfg.FillNodes {
		// every root child gets its own face list so that each worker owns a subtree
		root := octree.RootLocation()
		for i := 0; i < tree.Context().NumChildren(); i++ {
			if _, err := tree.Locate(root.Child(tree.Context(), i), true); err != nil {
				return err
			}
		}
	}

	for i := 0; i < mesh.NumFaces(); i++ {
		if tree.VoxelizeInsertFace(octree.FaceID(i), mesh, sep, cfg.FillNodes) {
			continue
		}
		if mesh.Face(i).IsDegenerate() {
			res.DegenerateFaces++
			continue
		}
		res.FacesOutsideRoot++
		logger.Warnw("root node does not contain the voxelization", "face", i, "bounds", mesh.Face(i).Bounds())
	}

	var err error
	if cfg.Parallel {
		res.VoxelsSet, err = tree.VoxelizeFacesParallel(ctx, mesh, cfg.Depth, cfg.VoxelizeTarget(), sep, true, false)
		if err != nil {
			return err
		}
	} else {
		res.VoxelsSet = tree.VoxelizeFaces(mesh, cfg.Depth, cfg.VoxelizeTarget(), sep, true, false)
	}
	logger.Debugw("voxelized",
		"faces", mesh.NumFaces(),
		"degenerate", res.DegenerateFaces,
		"outside", res.FacesOutsideRoot,
		"voxels", res.VoxelsSet,
		"separability", int(sep),
		"parallel", cfg.Parallel,
	)
	if res.VoxelsSet == 0 && mesh.NumFaces() > 0 {
		logger.Warn("voxelization produced no voxels")
	}
	return nil
}

func classify(cfg config.ClassifyConfig, tree *octree.Tree, logger golog.Logger) (*octree.IOBStats, error) {
	axes, err := config.ParseAxes(cfg.Axes)
	if err != nil {
		return nil, err
	}
	stats, err := tree.ClassifyInsideOutside(octree.IOBOptions{
		Depth:               cfg.Depth,
		Axes:                axes,
		InsideVoteThreshold: cfg.InsideVoteThreshold,
		InsideMinVotes:      cfg.InsideMinVotes,
		Tolerance:           cfg.Tolerance,
	})
	if err != nil {
		return nil, err
	}
	logger.Debugw("classified",
		"depth", cfg.Depth,
		"rays", stats.RaysProcessed,
		"inside", stats.Inside,
		"outside", stats.Outside,
		"boundary", stats.Boundary,
	)
	if stats.Inside == 0 {
		logger.Warnw("no voxel was classified inside, the mesh may be open or thinner than a voxel", "depth", cfg.Depth)
	}
	return &stats, nil
}
