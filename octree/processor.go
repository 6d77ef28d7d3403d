package octree

import (
	"go.viam.com/svo/spatialmath"
)

// ResultFlags report what a processor did with a node.
type ResultFlags uint8

// Result flags. ResultOK is the absence of the other flags.
const (
	ResultOK       ResultFlags = 0
	ResultModified ResultFlags = 1 << 0
	// ResultAbort stops a processor chain and the traversal that drives it.
	ResultAbort ResultFlags = 1 << 1
)

// Modified reports whether the modified flag is set.
func (f ResultFlags) Modified() bool {
	return f&ResultModified != 0
}

// Aborted reports whether the abort flag is set.
func (f ResultFlags) Aborted() bool {
	return f&ResultAbort != 0
}

// Visit is what a traversal hands to a processor for each node passing the filter.
type Visit struct {
	Node     *Node
	Location Location
	Context  *Context
	// Intersection is set by ray traversals only.
	Intersection *NodeIntersection
	// Prev holds the flags returned by the previous stage of a chain.
	Prev ResultFlags
}

// NodeProcessor is invoked by traversal drivers on filtered nodes.
type NodeProcessor interface {
	Process(v Visit) ResultFlags
}

// ProcessorFunc adapts a function to a NodeProcessor.
type ProcessorFunc func(v Visit) ResultFlags

// Process calls f.
func (f ProcessorFunc) Process(v Visit) ResultFlags {
	return f(v)
}

// RayObserver is implemented by processors that need to see all visits of one ray together. Ray traversals
// call BeginRay before the first visit of a ray and EndRay after its last.
type RayObserver interface {
	BeginRay(ray spatialmath.Ray)
	EndRay()
}

// ChainProcessor runs its stages in order on every visit. Each stage sees the flags of the previous stage in
// Visit.Prev. A stage returning ResultAbort ends the chain for that visit.
type ChainProcessor struct {
	stages []NodeProcessor
}

// NewChainProcessor returns a chain over the given stages.
func NewChainProcessor(stages ...NodeProcessor) *ChainProcessor {
	return &ChainProcessor{stages: stages}
}

// Append adds a stage to the end of the chain.
func (c *ChainProcessor) Append(stage NodeProcessor) {
	c.stages = append(c.stages, stage)
}

// Process runs the stages and returns the union of their flags.
func (c *ChainProcessor) Process(v Visit) ResultFlags {
	var all ResultFlags
	for _, stage := range c.stages {
		flags := stage.Process(v)
		all |= flags
		if flags.Aborted() {
			break
		}
		v.Prev = flags
	}
	return all
}

// BeginRay forwards to the stages observing rays.
func (c *ChainProcessor) BeginRay(ray spatialmath.Ray) {
	for _, stage := range c.stages {
		if o, ok := stage.(RayObserver); ok {
			o.BeginRay(ray)
		}
	}
}

// EndRay forwards to the stages observing rays.
func (c *ChainProcessor) EndRay() {
	for _, stage := range c.stages {
		if o, ok := stage.(RayObserver); ok {
			o.EndRay()
		}
	}
}
