package pipeline

import (
	"sort"

	"github.com/edaniels/golog"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"go.viam.com/svo/config"
	"go.viam.com/svo/octree"
)

// WallThicknessStats summarizes the measured wall thickness in voxels.
type WallThicknessStats struct {
	Voxels int
	Min    int
	Max    int
	Mean   float64
	StdDev float64
	Median float64
	P95    float64
	// Histogram counts the voxels per color index.
	Histogram []int

	Processor *octree.WallThicknessProcessor
}

func measureWallThickness(
	cfg config.WallThicknessConfig,
	tree *octree.Tree,
	logger golog.Logger,
) (*WallThicknessStats, error) {
	axes, err := config.ParseAxes(cfg.Axes)
	if err != nil {
		return nil, err
	}
	proc, err := octree.NewWallThicknessProcessor(cfg.Depth, cfg.MaxThickness, cfg.NumColors)
	if err != nil {
		return nil, err
	}
	if _, err := tree.MeasureWallThickness(proc, axes, 0); err != nil {
		return nil, err
	}
	ws, err := summarizeWallThickness(proc)
	if err != nil {
		return nil, err
	}
	if ws.Voxels == 0 {
		logger.Warnw("no FILLED voxels to measure", "depth", cfg.Depth)
		return ws, nil
	}
	logger.Debugw("wall thickness",
		"voxels", ws.Voxels,
		"min", ws.Min,
		"max", ws.Max,
		"mean", ws.Mean,
		"std_dev", ws.StdDev,
		"median", ws.Median,
		"p95", ws.P95,
	)
	return ws, nil
}

func summarizeWallThickness(proc *octree.WallThicknessProcessor) (*WallThicknessStats, error) {
	ws := &WallThicknessStats{Histogram: make([]int, proc.NumColors), Processor: proc}
	thicknesses := proc.Thicknesses()
	if len(thicknesses) == 0 {
		return ws, nil
	}
	data := make([]float64, 0, len(thicknesses))
	for loc, thickness := range thicknesses {
		data = append(data, float64(thickness))
		if idx, ok := proc.ColorIndex(loc); ok {
			ws.Histogram[idx]++
		}
	}
	sort.Float64s(data)

	ws.Voxels = len(data)
	ws.Min, ws.Max = proc.Range()
	if len(data) == 1 {
		ws.Mean = data[0]
	} else {
		ws.Mean, ws.StdDev = stat.MeanStdDev(data, nil)
	}
	var err error
	if ws.Median, err = stats.Median(data); err != nil {
		return nil, errors.Wrap(err, "median wall thickness")
	}
	if ws.P95, err = stats.Percentile(data, 95); err != nil {
		return nil, errors.Wrap(err, "95th percentile wall thickness")
	}
	return ws, nil
}
