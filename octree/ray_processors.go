package octree

import (
	"sort"

	"go.viam.com/svo/spatialmath"
)

// AnyDepth makes a ray processor record visits at every depth.
const AnyDepth = -1

// RayHit is a node touched by a ray.
type RayHit struct {
	Location Location
	TNear    float64
	TFar     float64
}

// RayIntersectionProcessor records the nodes touched by rays and optionally marks them.
type RayIntersectionProcessor struct {
	// Mark is OR-ed into the voxel class of every visited node whose payload is empty or a voxel class.
	Mark VoxelClass
	// TargetDepth restricts recording to one depth. AnyDepth records all.
	TargetDepth int
	Hits        []RayHit
}

// NewRayIntersectionProcessor returns a processor recording hits at depth and marking nodes with mark.
func NewRayIntersectionProcessor(depth int, mark VoxelClass) *RayIntersectionProcessor {
	return &RayIntersectionProcessor{Mark: mark, TargetDepth: depth}
}

// Process records the visit.
func (p *RayIntersectionProcessor) Process(v Visit) ResultFlags {
	if p.TargetDepth != AnyDepth && v.Location.Depth != p.TargetDepth {
		return ResultOK
	}
	hit := RayHit{Location: v.Location}
	if v.Intersection != nil {
		hit.TNear, hit.TFar = v.Intersection.TNear, v.Intersection.TFar
	}
	p.Hits = append(p.Hits, hit)
	if p.Mark == 0 {
		return ResultOK
	}
	switch c := v.Node.payload.(type) {
	case nil:
		v.Node.payload = p.Mark
	case VoxelClass:
		v.Node.payload = c | p.Mark
	default:
		return ResultOK
	}
	return ResultModified
}

// Reset forgets all recorded hits.
func (p *RayIntersectionProcessor) Reset() {
	p.Hits = nil
}

// Votes counts inside and outside parity votes for one voxel.
type Votes struct {
	Inside  int
	Outside int
}

// Total returns the number of votes.
func (v Votes) Total() int {
	return v.Inside + v.Outside
}

// VoteTable accumulates votes per voxel across ray grids.
type VoteTable struct {
	votes map[Location]Votes
}

// NewVoteTable returns an empty table.
func NewVoteTable() *VoteTable {
	return &VoteTable{votes: map[Location]Votes{}}
}

// Get returns the votes of loc.
func (t *VoteTable) Get(loc Location) (Votes, bool) {
	v, ok := t.votes[loc]
	return v, ok
}

// Len returns the number of voxels with votes.
func (t *VoteTable) Len() int {
	return len(t.votes)
}

func (t *VoteTable) add(loc Location, inside bool) {
	v := t.votes[loc]
	if inside {
		v.Inside++
	} else {
		v.Outside++
	}
	t.votes[loc] = v
}

type rayVisit struct {
	loc   Location
	tNear float64
	solid bool
}

// RayVoteProcessor casts parity votes for the voxels along each ray. A maximal run of adjacent solid voxels
// is one surface crossing. Every other voxel on the ray receives two votes: inside when an odd number of
// crossings lies before it, and inside when an odd number lies after it. Votes accumulate in Votes across
// rays and grids; disagreement between the two directions is what exposes open or self intersecting meshes.
type RayVoteProcessor struct {
	Depth int
	Votes *VoteTable

	visits []rayVisit
}

// NewRayVoteProcessor returns a processor voting for voxels at depth.
func NewRayVoteProcessor(depth int, votes *VoteTable) *RayVoteProcessor {
	if votes == nil {
		votes = NewVoteTable()
	}
	return &RayVoteProcessor{Depth: depth, Votes: votes}
}

// BeginRay starts collecting visits of a new ray.
func (p *RayVoteProcessor) BeginRay(spatialmath.Ray) {
	p.visits = p.visits[:0]
}

// Process collects the visit.
func (p *RayVoteProcessor) Process(v Visit) ResultFlags {
	if v.Location.Depth != p.Depth || v.Intersection == nil {
		return ResultOK
	}
	p.visits = append(p.visits, rayVisit{loc: v.Location, tNear: v.Intersection.TNear, solid: isSolid(v.Node.payload)})
	return ResultOK
}

// EndRay casts the votes of the collected ray.
func (p *RayVoteProcessor) EndRay() {
	visits := p.visits
	sort.SliceStable(visits, func(i, j int) bool { return visits[i].tNear < visits[j].tNear })

	// before[i] is the number of crossings before the empty visit i.
	before := make([]int, len(visits))
	crossings := 0
	for i, v := range visits {
		if !v.solid {
			before[i] = crossings
			continue
		}
		if i == 0 || !visits[i-1].solid || !visits[i-1].loc.adjacent(v.loc) {
			crossings++
		}
	}
	for i, v := range visits {
		if v.solid {
			continue
		}
		after := crossings - before[i]
		p.Votes.add(v.loc, before[i]%2 == 1)
		p.Votes.add(v.loc, after%2 == 1)
	}
	p.visits = visits[:0]
}
