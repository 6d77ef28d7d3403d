package pipeline

import (
	"context"
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"
)

func TestSummaries(t *testing.T) {
	cfg := sphereConfig(t)
	res, err := Run(context.Background(), cfg, sphereMesh(), golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	out := res.String()
	for _, want := range []string{"voxels set", "inside", "boundary", "median / p95", "histogram", "nodes removed", "duration"} {
		test.That(t, out, test.ShouldContainSubstring, want)
	}

	desc := Describe(res.Tree)
	for _, want := range []string{
		"Context(maxDepth=6, order=2, scale=1)",
		"nodes at depth 5",
		"voxel_class payloads",
		"filled voxels",
		"inside voxels",
	} {
		test.That(t, desc, test.ShouldContainSubstring, want)
	}
	test.That(t, desc, test.ShouldNotContainSubstring, "nodes at depth 6")
}
