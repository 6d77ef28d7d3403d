package octree

// FillProcessor aggregates the payloads of a node's children into the node so that inner levels can be
// queried without visiting leaves. The most specific payload type among the children decides what is
// written: voxel classes are OR-ed, densities and colors averaged over the children holding one and face
// references united. Run it post-order so that children are filled before their parents.
type FillProcessor struct{}

// Process fills the visited node from its children. Leaves are left untouched.
func (FillProcessor) Process(v Visit) ResultFlags {
	n := v.Node
	if n.IsLeaf() {
		return ResultOK
	}
	best := PayloadEmpty
	for i := 0; i < n.Slots(); i++ {
		if c := n.Child(i); c != nil {
			if t := c.PayloadType(); t.specificity() > best.specificity() {
				best = t
			}
		}
	}
	if best == PayloadEmpty {
		return ResultOK
	}

	var (
		class   VoxelClass
		density Density
		color   ColorRGBA
		refs    FaceRefs
		count   int
	)
	for i := 0; i < n.Slots(); i++ {
		c := n.Child(i)
		if c == nil || c.PayloadType() != best {
			continue
		}
		count++
		switch p := c.payload.(type) {
		case VoxelClass:
			class |= p
		case Density:
			density += p
		case ColorRGBA:
			for k := range color {
				color[k] += p[k]
			}
		case FaceRefs:
			refs = refs.union(p)
		}
	}
	switch best {
	case PayloadVoxelClass:
		n.payload = class
	case PayloadDensity:
		n.payload = density / Density(count)
	case PayloadColor:
		for k := range color {
			color[k] /= float64(count)
		}
		n.payload = color
	case PayloadFaceRefs:
		n.payload = refs
	case PayloadEmpty, PayloadAny, PayloadUnknown:
		return ResultOK
	}
	return ResultModified
}

// Fill runs a FillProcessor post-order over the whole tree and returns the number of filled nodes.
func (t *Tree) Fill() int {
	filled := 0
	t.Process(ProcessorFunc(func(v Visit) ResultFlags {
		flags := FillProcessor{}.Process(v)
		if flags.Modified() {
			filled++
		}
		return flags
	}), &BasicFilter{MaxDepth: NoDepthLimit, Leaf: InnerNodesOnly}, true, PostOrder)
	return filled
}
