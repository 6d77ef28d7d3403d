package viz

import (
	"github.com/lucasb-eyer/go-colorful"

	"go.viam.com/svo/octree"
)

// A Colorer picks the color of a voxel, or rejects the voxel from the export.
type Colorer func(v octree.Visit) (colorful.Color, bool)

// Colors of the voxel classes.
var (
	InsideColor   = colorful.Color{R: 0.2, G: 0.7, B: 0.3}
	BoundaryColor = colorful.Color{R: 0.85, G: 0.2, B: 0.15}
	FilledColor   = colorful.Color{R: 0.6, G: 0.6, B: 0.6}
	OutsideColor  = colorful.Color{R: 0.2, G: 0.35, B: 0.8}
)

// ConstantColorer gives every voxel the same color.
func ConstantColorer(c colorful.Color) Colorer {
	return func(octree.Visit) (colorful.Color, bool) {
		return c, true
	}
}

// DepthColorer spreads the hue over the depths of ctx.
func DepthColorer(ctx *octree.Context) Colorer {
	return func(v octree.Visit) (colorful.Color, bool) {
		hue := 300 * float64(v.Location.Depth) / float64(ctx.MaxDepth())
		return colorful.Hsv(hue, 0.7, 0.9), true
	}
}

// ClassColorer colors voxels by their class; BOUNDARY wins over FILLED. OUTSIDE voxels are only exported
// when includeOutside is set.
func ClassColorer(includeOutside bool) Colorer {
	return func(v octree.Visit) (colorful.Color, bool) {
		c := v.Node.Class()
		switch {
		case c.Has(octree.ClassBoundary):
			return BoundaryColor, true
		case c.Has(octree.ClassFilled):
			return FilledColor, true
		case c.Has(octree.ClassInside):
			return InsideColor, true
		case c.Has(octree.ClassOutside):
			return OutsideColor, includeOutside
		default:
			return colorful.Color{}, false
		}
	}
}

// PayloadColorer uses the color payloads of the voxels and rejects voxels without one.
func PayloadColorer() Colorer {
	return func(v octree.Visit) (colorful.Color, bool) {
		rgba, ok := v.Node.Payload().(octree.ColorRGBA)
		if !ok {
			return colorful.Color{}, false
		}
		return colorful.Color{R: rgba[0], G: rgba[1], B: rgba[2]}.Clamped(), true
	}
}

// ThicknessColorer colors the voxels measured by proc with the palette entry of their color index. Unmeasured
// voxels are rejected.
func ThicknessColorer(proc *octree.WallThicknessProcessor, palette []colorful.Color) Colorer {
	return func(v octree.Visit) (colorful.Color, bool) {
		idx, ok := proc.ColorIndex(v.Location)
		if !ok || len(palette) == 0 {
			return colorful.Color{}, false
		}
		if idx >= len(palette) {
			idx = len(palette) - 1
		}
		return palette[idx], true
	}
}

// ThicknessPalette returns n colors running from red for thin walls to blue for thick ones, blended in Lab
// space.
func ThicknessPalette(n int) []colorful.Color {
	thin := colorful.Color{R: 0.9, G: 0.1, B: 0.1}
	thick := colorful.Color{R: 0.1, G: 0.2, B: 0.9}
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []colorful.Color{thin}
	}
	palette := make([]colorful.Color, n)
	for i := range palette {
		palette[i] = thin.BlendLab(thick, float64(i)/float64(n-1)).Clamped()
	}
	return palette
}
