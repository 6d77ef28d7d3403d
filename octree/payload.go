package octree

import (
	"sort"
	"strings"
)

// PayloadType is the tag of a node payload. The numeric values are part of the binary format.
type PayloadType uint8

// Payload tags. PayloadAny is only meaningful in filters, where it matches every non empty payload.
const (
	PayloadEmpty      PayloadType = 0
	PayloadDensity    PayloadType = 1
	PayloadColor      PayloadType = 2
	PayloadVoxelClass PayloadType = 3
	PayloadFaceRefs   PayloadType = 4
	PayloadAny        PayloadType = 254
	PayloadUnknown    PayloadType = 255
)

func (t PayloadType) String() string {
	switch t {
	case PayloadEmpty:
		return "empty"
	case PayloadDensity:
		return "density"
	case PayloadColor:
		return "color"
	case PayloadVoxelClass:
		return "voxel_class"
	case PayloadFaceRefs:
		return "face_refs"
	case PayloadAny:
		return "any"
	default:
		return "unknown"
	}
}

// specificity ranks payload tags. Merge uses it to break ties between conflicting payloads of equal size.
func (t PayloadType) specificity() int {
	switch t {
	case PayloadEmpty:
		return 0
	case PayloadFaceRefs:
		return 1
	case PayloadDensity:
		return 2
	case PayloadColor:
		return 3
	case PayloadVoxelClass:
		return 4
	default:
		return -1
	}
}

// Payload is the data held by a node. A nil Payload is the empty payload.
type Payload interface {
	Type() PayloadType
	// MemSize is the approximate number of bytes held by the payload.
	MemSize() int
}

// PayloadTypeOf returns the tag of p, PayloadEmpty for nil.
func PayloadTypeOf(p Payload) PayloadType {
	if p == nil {
		return PayloadEmpty
	}
	return p.Type()
}

// Density is a scalar occupancy value, usually the number of faces overlapping a voxel.
type Density float64

// Type returns PayloadDensity.
func (Density) Type() PayloadType { return PayloadDensity }

// MemSize returns 8.
func (Density) MemSize() int { return 8 }

// ColorRGBA is a color with components in [0, 1].
type ColorRGBA [4]float64

// Type returns PayloadColor.
func (ColorRGBA) Type() PayloadType { return PayloadColor }

// MemSize returns 32.
func (ColorRGBA) MemSize() int { return 32 }

// VoxelClass is a set of classification flags.
type VoxelClass uint8

// Voxel classification flags.
const (
	ClassInside VoxelClass = 1 << iota
	ClassOutside
	ClassBoundary
	ClassFilled
	ClassUndefined
)

// Type returns PayloadVoxelClass.
func (VoxelClass) Type() PayloadType { return PayloadVoxelClass }

// MemSize returns 1.
func (VoxelClass) MemSize() int { return 1 }

// Has reports whether every flag of mask is set.
func (c VoxelClass) Has(mask VoxelClass) bool {
	return c&mask == mask
}

// Any reports whether at least one flag of mask is set.
func (c VoxelClass) Any(mask VoxelClass) bool {
	return c&mask != 0
}

func (c VoxelClass) String() string {
	if c == 0 {
		return "none"
	}
	names := []string{"inside", "outside", "boundary", "filled", "undefined"}
	var parts []string
	for i, name := range names {
		if c&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "|")
}

// FaceID indexes a triangle of the face source used during voxelization.
type FaceID uint32

// FaceRefs lists the faces overlapping a node. It is consumed by the voxelization pass.
type FaceRefs []FaceID

// Type returns PayloadFaceRefs.
func (FaceRefs) Type() PayloadType { return PayloadFaceRefs }

// MemSize returns the size of the slice header plus its elements.
func (f FaceRefs) MemSize() int { return 24 + 4*len(f) }

// union returns the sorted set union of both lists.
func (f FaceRefs) union(o FaceRefs) FaceRefs {
	seen := make(map[FaceID]struct{}, len(f)+len(o))
	out := make(FaceRefs, 0, len(f)+len(o))
	for _, list := range []FaceRefs{f, o} {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// isSolid reports whether a payload marks material: a FILLED class or a positive density.
func isSolid(p Payload) bool {
	switch v := p.(type) {
	case VoxelClass:
		return v.Any(ClassFilled)
	case Density:
		return v > 0
	default:
		return false
	}
}
