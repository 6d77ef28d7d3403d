package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"

	"go.viam.com/svo/octree"
)

// String prints out a table of the stage results.
func (r *Result) String() string {
	t := table.NewWriter()
	t.SetTitle("pipeline")
	t.AppendHeader(table.Row{"Stage", "Metric", "Value"})
	t.AppendRow(table.Row{"voxelize", "faces", r.NumFaces})
	t.AppendRow(table.Row{"voxelize", "degenerate faces", r.DegenerateFaces})
	t.AppendRow(table.Row{"voxelize", "faces outside root", r.FacesOutsideRoot})
	t.AppendRow(table.Row{"voxelize", "voxels set", r.VoxelsSet})
	if r.NodesFilled > 0 {
		t.AppendRow(table.Row{"fill", "nodes", r.NodesFilled})
	}
	if c := r.Classification; c != nil {
		t.AppendRow(table.Row{"classify", "rays", c.RaysProcessed})
		t.AppendRow(table.Row{"classify", "inside", c.Inside})
		t.AppendRow(table.Row{"classify", "outside", c.Outside})
		t.AppendRow(table.Row{"classify", "boundary", c.Boundary})
	}
	if ws := r.WallThickness; ws != nil {
		t.AppendRow(table.Row{"wall_thickness", "voxels", ws.Voxels})
		t.AppendRow(table.Row{"wall_thickness", "min / max", fmt.Sprintf("%d / %d", ws.Min, ws.Max)})
		t.AppendRow(table.Row{"wall_thickness", "mean ± std", fmt.Sprintf("%.2f ± %.2f", ws.Mean, ws.StdDev)})
		t.AppendRow(table.Row{"wall_thickness", "median / p95", fmt.Sprintf("%.1f / %.1f", ws.Median, ws.P95)})
		t.AppendRow(table.Row{"wall_thickness", "histogram", joinInts(ws.Histogram)})
	}
	t.AppendRow(table.Row{"prune", "nodes removed", r.NodesPruned})
	if r.Tree != nil {
		t.AppendRow(table.Row{"tree", "nodes", r.Tree.NumNodes()})
	}

	stages := lo.Keys(r.Durations)
	sort.Strings(stages)
	for _, name := range stages {
		t.AppendRow(table.Row{name, "duration", r.Durations[name].String()})
	}
	return t.Render()
}

// Describe prints out a table of the shape and contents of a tree.
func Describe(tree *octree.Tree) string {
	ctx := tree.Context()
	t := table.NewWriter()
	t.SetTitle("octree")
	t.AppendHeader(table.Row{"Property", "Value"})
	t.AppendRow(table.Row{"context", ctx.String()})
	t.AppendRow(table.Row{"nodes", tree.NumNodes()})
	t.AppendRow(table.Row{"levels", tree.GetMaxDepth()})
	t.AppendRow(table.Row{"memory (bytes)", tree.GetMemSize(true)})
	t.AppendRow(table.Row{"leaf voxel size", ctx.MinLeafSize()})
	t.AppendSeparator()

	for depth := 0; depth < tree.GetMaxDepth(); depth++ {
		t.AppendRow(table.Row{fmt.Sprintf("nodes at depth %d", depth), tree.Count(octree.DepthFilter(depth))})
	}
	t.AppendSeparator()

	for _, pt := range []octree.PayloadType{
		octree.PayloadDensity,
		octree.PayloadColor,
		octree.PayloadVoxelClass,
		octree.PayloadFaceRefs,
	} {
		filter := octree.NewBasicFilter()
		filter.Payloads = []octree.PayloadType{pt}
		t.AppendRow(table.Row{fmt.Sprintf("%s payloads", pt), tree.Count(filter)})
	}
	for _, class := range []octree.VoxelClass{
		octree.ClassInside,
		octree.ClassOutside,
		octree.ClassBoundary,
		octree.ClassFilled,
	} {
		filter := octree.NewBasicFilter()
		filter.ClassMask = class
		t.AppendRow(table.Row{fmt.Sprintf("%s voxels", class), tree.Count(filter)})
	}
	return t.Render()
}

func joinInts(values []int) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, fmt.Sprint(v))
	}
	return strings.Join(parts, " ")
}
