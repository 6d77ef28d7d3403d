package octree

import (
	"context"
	"math"
	"sort"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/svo/spatialmath"
	"go.viam.com/svo/utils"
)

// Separability selects how generously the triangle/voxel overlap test accepts voxels. A 26-separable
// voxelization accepts every voxel touching the triangle, so no 26-connected path of background voxels can
// cross the surface; 18- and 6-separable ones are thinner.
type Separability int

// Separability classes.
const (
	Separability6  = Separability(6)
	Separability18 = Separability(18)
	Separability26 = Separability(26)
)

// ParseSeparability validates an integer separability class.
func ParseSeparability(v int) (Separability, error) {
	switch s := Separability(v); s {
	case Separability6, Separability18, Separability26:
		return s, nil
	default:
		return 0, errors.Wrapf(ErrConfig, "separability must be 6, 18 or 26, got %d", v)
	}
}

// VoxelizeTarget selects what the voxelization writes into overlapped voxels.
type VoxelizeTarget uint8

// Voxelization targets.
const (
	// TargetFilled sets the FILLED voxel class flag.
	TargetFilled = VoxelizeTarget(iota)
	// TargetDensity accumulates the number of overlapping faces.
	TargetDensity
)

// FaceSource gives access to the triangles referenced by FaceRefs payloads.
type FaceSource interface {
	NumFaces() int
	// Face returns the triangle with the given index, or nil.
	Face(i int) *spatialmath.Triangle
}

// TriangleVoxelizationData caches what the overlap test of one triangle against voxels of one size needs:
// the candidate separating axes, the triangle's projection onto each of them and the projected radius of a
// voxel, narrowed on the triangle normal axis according to the separability class.
type TriangleVoxelizationData struct {
	triangle  *spatialmath.Triangle
	voxelSize float64
	bounds    spatialmath.AABB

	axes    [spatialmath.NumTriangleBoxAxes]r3.Vector
	valid   [spatialmath.NumTriangleBoxAxes]bool
	lo, hi  [spatialmath.NumTriangleBoxAxes]float64
	support [spatialmath.NumTriangleBoxAxes]float64
	epsilon float64
}

// triangleNormalAxis is the index of the triangle normal in spatialmath.TriangleBoxAxes.
const triangleNormalAxis = 3

// InitTriangleVoxelizationData precomputes the overlap test of tri against voxels of the given edge length.
// It returns false for degenerate triangles.
func InitTriangleVoxelizationData(
	tri *spatialmath.Triangle,
	sep Separability,
	voxelSize float64,
) (*TriangleVoxelizationData, bool) {
	if tri == nil || tri.IsDegenerate() || !(voxelSize > 0) {
		return nil, false
	}
	half := voxelSize / 2
	h := r3.Vector{X: half, Y: half, Z: half}
	d := &TriangleVoxelizationData{
		triangle:  tri,
		voxelSize: voxelSize,
		bounds:    tri.Bounds(),
		axes:      spatialmath.TriangleBoxAxes(tri),
		epsilon:   1e-9 * voxelSize,
	}
	for i, axis := range d.axes {
		if axis == (r3.Vector{}) {
			continue
		}
		d.valid[i] = true
		d.lo[i], d.hi[i] = tri.Project(axis)
		d.support[i] = spatialmath.BoxSupport(axis, h)
	}
	n := tri.Normal()
	c := []float64{math.Abs(n.X), math.Abs(n.Y), math.Abs(n.Z)}
	sort.Sort(sort.Reverse(sort.Float64Slice(c)))
	switch sep {
	case Separability6:
		d.support[triangleNormalAxis] = half * c[0]
	case Separability18:
		d.support[triangleNormalAxis] = half * (c[0] + c[1])
	case Separability26:
		d.support[triangleNormalAxis] = half * (c[0] + c[1] + c[2])
	}
	return d, true
}

// Triangle returns the triangle the data was computed for.
func (d *TriangleVoxelizationData) Triangle() *spatialmath.Triangle {
	return d.triangle
}

// Overlaps reports whether the voxel with the given minimum corner overlaps the triangle.
func (d *TriangleVoxelizationData) Overlaps(voxelMin r3.Vector) bool {
	half := d.voxelSize / 2
	center := voxelMin.Add(r3.Vector{X: half, Y: half, Z: half})
	for i, axis := range d.axes {
		if !d.valid[i] {
			continue
		}
		c := center.Dot(axis)
		r := d.support[i] + d.epsilon
		if d.lo[i] > c+r || d.hi[i] < c-r {
			return false
		}
	}
	return true
}

// voxelizationCache keeps triangle data per face and voxel size.
type voxelizationCache struct {
	faces FaceSource
	sep   Separability
	data  map[voxelizationKey]*TriangleVoxelizationData
}

type voxelizationKey struct {
	face  FaceID
	depth int
	sep   Separability
}

func newVoxelizationCache(faces FaceSource, sep Separability) *voxelizationCache {
	return &voxelizationCache{faces: faces, sep: sep, data: map[voxelizationKey]*TriangleVoxelizationData{}}
}

func (c *voxelizationCache) get(ctx *Context, id FaceID, depth int, sep Separability) *TriangleVoxelizationData {
	key := voxelizationKey{face: id, depth: depth, sep: sep}
	if d, ok := c.data[key]; ok {
		return d
	}
	d, ok := InitTriangleVoxelizationData(c.faces.Face(int(id)), sep, ctx.VoxelSize(depth))
	if !ok {
		d = nil
	}
	c.data[key] = d
	return d
}

// VoxelizeInsertFace places a reference to face id into every leaf whose cube overlaps the triangle's bounds.
// Leaves are the nodes at leaf depth or, without fillNodes, the deepest existing nodes; with fillNodes missing
// nodes are created down to leaf depth. It returns whether the root cube overlaps the triangle at all.
func (t *Tree) VoxelizeInsertFace(id FaceID, faces FaceSource, sep Separability, fillNodes bool) bool {
	tri := faces.Face(int(id))
	if tri == nil || tri.IsDegenerate() {
		return false
	}
	bounds := tri.Bounds().Expand(1e-9 * t.ctx.Scale())
	rootLoc := RootLocation()
	if !rootLoc.Box(t.ctx).Overlaps(bounds) {
		return false
	}
	rootData, _ := InitTriangleVoxelizationData(tri, Separability26, t.ctx.Scale())
	if !rootData.Overlaps(r3.Vector{}) {
		return false
	}
	t.insertFace(t.root, rootLoc, id, bounds, fillNodes)
	return true
}

func (t *Tree) insertFace(n *Node, loc Location, id FaceID, bounds spatialmath.AABB, fillNodes bool) {
	if loc.Depth >= t.ctx.LeafDepth() || (n.IsLeaf() && !fillNodes) {
		refs, _ := n.payload.(FaceRefs)
		n.payload = append(refs, id)
		return
	}
	for i := 0; i < n.Slots(); i++ {
		childLoc := loc.Child(t.ctx, i)
		if !childLoc.Box(t.ctx).Overlaps(bounds) {
			continue
		}
		child := n.Child(i)
		if child == nil {
			if !fillNodes {
				continue
			}
			child, _ = n.ensureChild(i)
		}
		t.insertFace(child, childLoc, id, bounds, fillNodes)
	}
}

// VoxelizeProcessor runs the precise overlap test for the faces referenced by a node. It consumes the
// node's FaceRefs payload and writes the target into every voxel at Depth overlapped by at least one face.
// With FillNodes a node coarser than Depth is refined, creating the overlapped voxels below it.
type VoxelizeProcessor struct {
	Faces        FaceSource
	Depth        int
	Target       VoxelizeTarget
	Separability Separability
	FillNodes    bool

	// NumVoxelsSet counts the voxels written so far.
	NumVoxelsSet int

	cache *voxelizationCache
}

// NewVoxelizeProcessor returns a processor writing target into voxels at depth.
func NewVoxelizeProcessor(
	faces FaceSource,
	depth int,
	target VoxelizeTarget,
	sep Separability,
	fillNodes bool,
) *VoxelizeProcessor {
	return &VoxelizeProcessor{
		Faces:        faces,
		Depth:        depth,
		Target:       target,
		Separability: sep,
		FillNodes:    fillNodes,
		cache:        newVoxelizationCache(faces, sep),
	}
}

// Process voxelizes the faces referenced by the visited node.
func (p *VoxelizeProcessor) Process(v Visit) ResultFlags {
	refs, ok := v.Node.payload.(FaceRefs)
	if !ok {
		return ResultOK
	}
	if p.cache == nil {
		p.cache = newVoxelizationCache(p.Faces, p.Separability)
	}
	v.Node.payload = nil
	p.voxelize(v.Context, v.Node, v.Location, refs)
	return ResultModified
}

func (p *VoxelizeProcessor) voxelize(ctx *Context, n *Node, loc Location, refs FaceRefs) {
	// a refined node may hold references of its own
	if own, ok := n.payload.(FaceRefs); ok {
		refs = refs.union(own)
		n.payload = nil
	}
	if loc.Depth < p.Depth && p.FillNodes {
		for i := 0; i < n.Slots(); i++ {
			childLoc := loc.Child(ctx, i)
			childMin := childLoc.Box(ctx).Min
			var childRefs FaceRefs
			for _, id := range refs {
				// conservative test so that refinement never loses a voxel the precise test would accept
				if d := p.cache.get(ctx, id, childLoc.Depth, Separability26); d != nil && d.Overlaps(childMin) {
					childRefs = append(childRefs, id)
				}
			}
			if len(childRefs) == 0 {
				continue
			}
			child, _ := n.ensureChild(i)
			p.voxelize(ctx, child, childLoc, childRefs)
		}
		return
	}

	voxelMin := loc.Box(ctx).Min
	hits := 0
	for _, id := range refs {
		if d := p.cache.get(ctx, id, loc.Depth, p.Separability); d != nil && d.Overlaps(voxelMin) {
			hits++
		}
	}
	if hits == 0 {
		return
	}
	p.NumVoxelsSet++
	switch p.Target {
	case TargetDensity:
		prev, _ := n.payload.(Density)
		n.payload = prev + Density(hits)
	case TargetFilled:
		prev, _ := n.payload.(VoxelClass)
		n.payload = prev | ClassFilled
	}
}

// VoxelizeFaces runs the precise voxelization pass over every node at depth or coarser that holds face
// references and returns the number of voxels set.
func (t *Tree) VoxelizeFaces(
	faces FaceSource,
	depth int,
	target VoxelizeTarget,
	sep Separability,
	fillNodes bool,
	pruneEmpty bool,
) int {
	proc := NewVoxelizeProcessor(faces, depth, target, sep, fillNodes)
	t.voxelizeSubtree(t.root, RootLocation(), proc)
	if pruneEmpty {
		t.PruneEmpty(true)
	}
	return proc.NumVoxelsSet
}

// voxelizeSubtree collects the nodes first since the processor may grow the tree below them.
func (t *Tree) voxelizeSubtree(n *Node, loc Location, proc *VoxelizeProcessor) {
	filter := &BasicFilter{MaxDepth: proc.Depth, Payloads: []PayloadType{PayloadFaceRefs}}
	w := &walker{ctx: t.ctx, filter: filter}
	var pending []Visit
	w.fn = func(v Visit) ResultFlags {
		pending = append(pending, v)
		return ResultOK
	}
	w.walk(n, loc)
	for _, v := range pending {
		proc.Process(v)
	}
}

// VoxelizeFacesParallel is VoxelizeFaces with one worker per child of the root. Each worker owns a disjoint
// subtree and its own triangle cache.
func (t *Tree) VoxelizeFacesParallel(
	ctx context.Context,
	faces FaceSource,
	depth int,
	target VoxelizeTarget,
	sep Separability,
	fillNodes bool,
	pruneEmpty bool,
) (int, error) {
	root := RootLocation()
	total := 0
	if _, ok := t.root.payload.(FaceRefs); ok {
		proc := NewVoxelizeProcessor(faces, depth, target, sep, fillNodes)
		proc.Process(Visit{Node: t.root, Location: root, Context: t.ctx})
		total += proc.NumVoxelsSet
	}

	procs := make([]*VoxelizeProcessor, t.root.Slots())
	var fs []utils.SimpleFunc
	for i := 0; i < t.root.Slots(); i++ {
		child := t.root.Child(i)
		if child == nil {
			continue
		}
		loc := root.Child(t.ctx, i)
		proc := NewVoxelizeProcessor(faces, depth, target, sep, fillNodes)
		procs[i] = proc
		fs = append(fs, func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			t.voxelizeSubtree(child, loc, proc)
			return nil
		})
	}
	if _, err := utils.RunInParallel(ctx, fs); err != nil {
		return 0, err
	}
	for _, proc := range procs {
		if proc != nil {
			total += proc.NumVoxelsSet
		}
	}
	if pruneEmpty {
		t.PruneEmpty(true)
	}
	return total, nil
}
