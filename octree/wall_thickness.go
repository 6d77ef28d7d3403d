package octree

import (
	"math"
	"sort"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/svo/spatialmath"
	"go.viam.com/svo/utils"
)

// WallThicknessProcessor measures how thick the solid material is at every FILLED voxel of one depth. While
// measuring, it is driven by ray grids: every maximal run of adjacent FILLED voxels along a ray is a wall
// crossing whose length in voxels is recorded for each of its voxels, keeping the minimum over all rays.
// After StartAssignment, processing a voxel maps its thickness to a color index in [0, NumColors), where
// MaxThickness and above map to the last index.
type WallThicknessProcessor struct {
	Depth        int
	MaxThickness float64
	NumColors    int

	thickness map[Location]int
	colors    map[Location]int
	minRun    int
	maxRun    int
	assigning bool
	visits    []rayVisit
}

// NewWallThicknessProcessor returns a processor measuring voxels at depth.
func NewWallThicknessProcessor(depth int, maxThickness float64, numColors int) (*WallThicknessProcessor, error) {
	if maxThickness <= 0 {
		return nil, errors.Wrapf(ErrConfig, "max thickness must be positive, got %v", maxThickness)
	}
	if numColors < 1 {
		return nil, errors.Wrapf(ErrConfig, "number of colors must be positive, got %d", numColors)
	}
	return &WallThicknessProcessor{
		Depth:        depth,
		MaxThickness: maxThickness,
		NumColors:    numColors,
		thickness:    map[Location]int{},
		colors:       map[Location]int{},
		minRun:       math.MaxInt,
	}, nil
}

// BeginRay starts a new scan line.
func (p *WallThicknessProcessor) BeginRay(spatialmath.Ray) {
	p.visits = p.visits[:0]
}

// Process collects FILLED voxels while measuring and assigns color indices afterwards.
func (p *WallThicknessProcessor) Process(v Visit) ResultFlags {
	if v.Location.Depth != p.Depth || !v.Node.Class().Any(ClassFilled) {
		return ResultOK
	}
	if !p.assigning {
		var tNear float64
		if v.Intersection != nil {
			tNear = v.Intersection.TNear
		}
		p.visits = append(p.visits, rayVisit{loc: v.Location, tNear: tNear, solid: true})
		return ResultOK
	}
	if t, ok := p.thickness[v.Location]; ok {
		p.colors[v.Location] = p.colorIndex(t)
	}
	return ResultOK
}

// EndRay records the run lengths of the collected scan line.
func (p *WallThicknessProcessor) EndRay() {
	if p.assigning {
		return
	}
	visits := p.visits
	sort.SliceStable(visits, func(i, j int) bool { return visits[i].tNear < visits[j].tNear })
	start := 0
	for i := 1; i <= len(visits); i++ {
		if i < len(visits) && visits[i-1].loc.adjacent(visits[i].loc) {
			continue
		}
		p.recordRun(visits[start:i])
		start = i
	}
	p.visits = visits[:0]
}

func (p *WallThicknessProcessor) recordRun(run []rayVisit) {
	if len(run) == 0 {
		return
	}
	length := len(run)
	for _, v := range run {
		if prev, ok := p.thickness[v.loc]; !ok || length < prev {
			p.thickness[v.loc] = length
		}
	}
	p.minRun = utils.MinInt(p.minRun, length)
	p.maxRun = utils.MaxInt(p.maxRun, length)
}

// StartAssignment switches from measuring to assigning color indices.
func (p *WallThicknessProcessor) StartAssignment() {
	p.assigning = true
}

func (p *WallThicknessProcessor) colorIndex(thickness int) int {
	if p.NumColors == 1 {
		return 0
	}
	pct := math.Min(float64(thickness), p.MaxThickness) / p.MaxThickness
	return utils.ClampInt(utils.ScaleByPct(p.NumColors-1, pct), 0, p.NumColors-1)
}

// Thickness returns the measured wall thickness at loc in voxels.
func (p *WallThicknessProcessor) Thickness(loc Location) (int, bool) {
	t, ok := p.thickness[loc]
	return t, ok
}

// ColorIndex returns the color index assigned to loc.
func (p *WallThicknessProcessor) ColorIndex(loc Location) (int, bool) {
	c, ok := p.colors[loc]
	return c, ok
}

// Thicknesses returns every measured thickness.
func (p *WallThicknessProcessor) Thicknesses() map[Location]int {
	return p.thickness
}

// Range returns the smallest and largest run measured. Both are zero when nothing was measured.
func (p *WallThicknessProcessor) Range() (int, int) {
	if len(p.thickness) == 0 {
		return 0, 0
	}
	return p.minRun, p.maxRun
}

// MeasureWallThickness runs both passes of proc: a ray grid per axis over the FILLED voxels at proc.Depth,
// then the color assignment. Returns the number of voxels that received a color index. The tolerance must
// stay below half the voxel size at proc.Depth.
func (t *Tree) MeasureWallThickness(proc *WallThicknessProcessor, axes []r3.Axis, tolerance float64) (int, error) {
	if proc.Depth < 0 || proc.Depth > t.ctx.LeafDepth() {
		return 0, errors.Wrapf(ErrOutOfBounds, "wall thickness depth %d not in [0, %d]", proc.Depth, t.ctx.LeafDepth())
	}
	if err := t.checkGridTolerance(proc.Depth, tolerance); err != nil {
		return 0, err
	}
	if len(axes) == 0 {
		axes = []r3.Axis{r3.XAxis, r3.YAxis, r3.ZAxis}
	}
	filter := ClassFilter(ClassFilled, proc.Depth)
	opts := RayOptions{Recursive: true, Tolerance: tolerance}
	planeOffset := -t.ctx.VoxelSize(proc.Depth)
	for _, axis := range axes {
		t.CastRayGrid(axis, proc.Depth, planeOffset, proc, filter, opts)
	}
	proc.StartAssignment()
	t.Process(proc, filter, true, PreOrder)
	lo, hi := proc.Range()
	t.logger.Debugw("wall thickness measured", "voxels", len(proc.thickness), "min", lo, "max", hi)
	return len(proc.colors), nil
}
