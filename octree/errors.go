package octree

import "github.com/pkg/errors"

// Sentinel errors returned (wrapped) by the octree. Test for them with errors.Is.
var (
	// ErrConfig is returned for invalid context parameters or options.
	ErrConfig = errors.New("invalid octree configuration")
	// ErrNotFound is returned when a node lookup without creation finds no node.
	ErrNotFound = errors.New("octree node not found")
	// ErrOutOfBounds is returned for points outside the root volume and invalid child indices or depths.
	ErrOutOfBounds = errors.New("out of octree bounds")
	// ErrIO is returned for stream and file failures during serialization.
	ErrIO = errors.New("octree io error")
	// ErrCorrupt is returned when a serialized tree does not decode into a valid tree.
	ErrCorrupt = errors.New("corrupt octree stream")
	// ErrIncompatibleContext is returned when combining trees built with different contexts.
	ErrIncompatibleContext = errors.New("incompatible octree context")
)
