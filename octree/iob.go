package octree

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Default inside/outside vote thresholds.
const (
	DefaultInsideVoteThreshold = 0.5
	DefaultInsideMinVotes      = 1
)

// IOBEvalProcessor classifies voted voxels as INSIDE or OUTSIDE. A voxel is INSIDE when the fraction of
// inside votes exceeds InsideVoteThreshold and their number exceeds InsideMinVotes. Solid voxels are never
// classified. MarkBoundary then flags FILLED voxels touching an INSIDE voxel by a face as BOUNDARY.
type IOBEvalProcessor struct {
	Votes               *VoteTable
	InsideVoteThreshold float64
	InsideMinVotes      int

	NumInside  int
	NumOutside int

	inside []Location
}

// NewIOBEvalProcessor returns a processor with the default thresholds.
func NewIOBEvalProcessor(votes *VoteTable) *IOBEvalProcessor {
	return &IOBEvalProcessor{
		Votes:               votes,
		InsideVoteThreshold: DefaultInsideVoteThreshold,
		InsideMinVotes:      DefaultInsideMinVotes,
	}
}

// Classify returns the class earned by the given votes.
func (p *IOBEvalProcessor) Classify(v Votes) VoxelClass {
	if v.Total() == 0 {
		return ClassUndefined
	}
	if float64(v.Inside)/float64(v.Total()) > p.InsideVoteThreshold && v.Inside > p.InsideMinVotes {
		return ClassInside
	}
	return ClassOutside
}

// Process classifies the visited voxel if it has votes.
func (p *IOBEvalProcessor) Process(v Visit) ResultFlags {
	if isSolid(v.Node.payload) {
		return ResultOK
	}
	votes, ok := p.Votes.Get(v.Location)
	if !ok {
		return ResultOK
	}
	var prev VoxelClass
	switch c := v.Node.payload.(type) {
	case nil:
	case VoxelClass:
		prev = c
	default:
		return ResultOK
	}
	class := p.Classify(votes)
	switch class {
	case ClassInside:
		p.NumInside++
		p.inside = append(p.inside, v.Location)
	case ClassOutside:
		p.NumOutside++
	}
	v.Node.payload = prev&^(ClassInside|ClassOutside|ClassUndefined) | class
	return ResultModified
}

// MarkBoundary adds BOUNDARY to every FILLED voxel sharing a face with a voxel classified INSIDE by this
// processor. Returns the number of newly marked voxels.
func (p *IOBEvalProcessor) MarkBoundary(t *Tree) int {
	marked := 0
	for _, loc := range p.inside {
		for _, nb := range loc.FaceNeighbors() {
			if !nb.Valid(t.ctx) {
				continue
			}
			n, err := t.Locate(nb, false)
			if err != nil {
				continue
			}
			c, ok := n.payload.(VoxelClass)
			if !ok || !c.Any(ClassFilled) || c.Any(ClassBoundary) {
				continue
			}
			n.payload = c | ClassBoundary
			marked++
		}
	}
	return marked
}

// IOBOptions configure ClassifyInsideOutside.
type IOBOptions struct {
	// Depth of the classified voxels.
	Depth int
	// Axes along which ray grids are cast. Defaults to all three.
	Axes                []r3.Axis
	InsideVoteThreshold float64
	InsideMinVotes      int
	Tolerance           float64
}

// IOBStats summarizes a classification run.
type IOBStats struct {
	RaysProcessed int
	Voted         int
	Inside        int
	Outside       int
	Boundary      int
}

// ClassifyInsideOutside casts a ray grid per axis at the given depth, creating the voxels along every ray,
// collects parity votes and classifies every non solid voxel at that depth as INSIDE or OUTSIDE. FILLED
// voxels next to an INSIDE voxel become BOUNDARY. Solid voxels must already exist at opts.Depth; run Fill
// first when the tree was voxelized deeper.
func (t *Tree) ClassifyInsideOutside(opts IOBOptions) (IOBStats, error) {
	if opts.Depth < 0 || opts.Depth > t.ctx.LeafDepth() {
		return IOBStats{}, errors.Wrapf(ErrOutOfBounds, "classification depth %d not in [0, %d]", opts.Depth, t.ctx.LeafDepth())
	}
	if opts.InsideVoteThreshold < 0 || opts.InsideVoteThreshold >= 1 {
		return IOBStats{}, errors.Wrapf(ErrConfig, "inside vote threshold must be in [0, 1), got %v", opts.InsideVoteThreshold)
	}
	if err := t.checkGridTolerance(opts.Depth, opts.Tolerance); err != nil {
		return IOBStats{}, err
	}
	axes := opts.Axes
	if len(axes) == 0 {
		axes = []r3.Axis{r3.XAxis, r3.YAxis, r3.ZAxis}
	}

	votes := NewVoteTable()
	voter := NewRayVoteProcessor(opts.Depth, votes)
	filter := DepthFilter(opts.Depth)
	rayOpts := RayOptions{Recursive: true, Tolerance: opts.Tolerance, FillNodes: true}
	var stats IOBStats
	planeOffset := -t.ctx.VoxelSize(opts.Depth)
	for _, axis := range axes {
		n := t.CastRayGrid(axis, opts.Depth, planeOffset, voter, filter, rayOpts)
		t.logger.Debugw("ray grid cast", "axis", axis, "depth", opts.Depth, "processed", n)
		stats.RaysProcessed += n
	}
	stats.Voted = votes.Len()

	eval := NewIOBEvalProcessor(votes)
	eval.InsideVoteThreshold = opts.InsideVoteThreshold
	eval.InsideMinVotes = opts.InsideMinVotes
	t.Process(eval, filter, true, PreOrder)
	stats.Inside = eval.NumInside
	stats.Outside = eval.NumOutside
	stats.Boundary = eval.MarkBoundary(t)
	return stats, nil
}
