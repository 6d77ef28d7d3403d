package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/svo/octree"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	test.That(t, cfg.Validate(), test.ShouldBeNil)
	test.That(t, cfg.Voxelize.Depth, test.ShouldEqual, DefaultMaxDepth-1)
	test.That(t, cfg.Voxelize.SeparabilityClass(), test.ShouldEqual, octree.Separability26)
	test.That(t, cfg.Voxelize.VoxelizeTarget(), test.ShouldEqual, octree.TargetFilled)

	ctx, err := cfg.NewContext()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ctx.MaxDepth(), test.ShouldEqual, DefaultMaxDepth)
	test.That(t, ctx.Order(), test.ShouldEqual, DefaultOrder)
}

func TestFromReader(t *testing.T) {
	logger, logs := golog.NewObservedTestLogger(t)
	input := `{
		"octree": {"max_depth": 6, "order": 3, "scale": 4.5, "colour": "blue"},
		"voxelize": {"separability": 6, "parallel": true, "target": "density"},
		"classify": {"enabled": false},
		"output": {"path": "out.svo", "compress": true},
		"extra": 1
	}`
	cfg, err := FromReader("test.json", strings.NewReader(input), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.ConfigFilePath, test.ShouldEqual, "test.json")
	test.That(t, cfg.Octree, test.ShouldResemble, OctreeConfig{MaxDepth: 6, Order: 3, Scale: 4.5, Margin: DefaultMargin})
	test.That(t, cfg.Voxelize.SeparabilityClass(), test.ShouldEqual, octree.Separability6)
	test.That(t, cfg.Voxelize.Parallel, test.ShouldBeTrue)
	// untouched keys keep their defaults
	test.That(t, cfg.Voxelize.FillNodes, test.ShouldBeFalse)
	test.That(t, cfg.WallThickness.NumColors, test.ShouldEqual, DefaultNumColors)
	test.That(t, cfg.Voxelize.VoxelizeTarget(), test.ShouldEqual, octree.TargetDensity)
	test.That(t, cfg.Voxelize.Depth, test.ShouldEqual, 5)
	test.That(t, cfg.Classify.Enabled, test.ShouldBeFalse)
	test.That(t, cfg.Classify.InsideVoteThreshold, test.ShouldEqual, octree.DefaultInsideVoteThreshold)
	test.That(t, cfg.Output.Compress, test.ShouldBeTrue)
	test.That(t, cfg.Output.PruneEmpty, test.ShouldBeTrue)

	warnings := logs.FilterMessage("config contains unused keys").All()
	test.That(t, len(warnings), test.ShouldEqual, 1)
	test.That(t, warnings[0].ContextMap()["keys"], test.ShouldResemble, []interface{}{"extra", "octree.colour"})

	t.Run("axes replace the defaults", func(t *testing.T) {
		input := `{"classify": {"axes": ["z"]}, "wall_thickness": {"enabled": true, "axes": ["y", "x"], "num_colors": 3}}`
		cfg, err := FromReader("", strings.NewReader(input), golog.NewTestLogger(t))
		test.That(t, err, test.ShouldBeNil)
		axes, err := ParseAxes(cfg.Classify.Axes)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, axes, test.ShouldResemble, []r3.Axis{r3.ZAxis})
		axes, err = ParseAxes(cfg.WallThickness.Axes)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, axes, test.ShouldResemble, []r3.Axis{r3.YAxis, r3.XAxis})
		test.That(t, cfg.WallThickness.NumColors, test.ShouldEqual, 3)
		test.That(t, cfg.WallThickness.MaxThickness, test.ShouldEqual, float64(DefaultMaxThickness))
	})

	t.Run("comments and trailing commas", func(t *testing.T) {
		input := `{
			// coarse preview
			"octree": {"max_depth": 5, "scale": 2,},
			/* a thinner surface */
			"voxelize": {"separability": 18},
		}`
		cfg, err := FromReader("preview.json5", strings.NewReader(input), golog.NewTestLogger(t))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, cfg.Octree.MaxDepth, test.ShouldEqual, 5)
		test.That(t, cfg.Octree.Scale, test.ShouldEqual, 2.0)
		test.That(t, cfg.Voxelize.SeparabilityClass(), test.ShouldEqual, octree.Separability18)
	})

	t.Run("bad input", func(t *testing.T) {
		_, err := FromReader("", strings.NewReader(`{"octree": `), golog.NewTestLogger(t))
		test.That(t, err, test.ShouldNotBeNil)
		_, err = FromReader("", strings.NewReader(`{"octree": {"order": "two"}}`), golog.NewTestLogger(t))
		test.That(t, err, test.ShouldNotBeNil)
		_, err = FromReader("", strings.NewReader(`{"octree": {"order": 1}}`), golog.NewTestLogger(t))
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "order must be at least 2")
	})
}

func TestRead(t *testing.T) {
	t.Setenv("SVO_TEST_OUTPUT", "env.svo")
	path := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(path, []byte(`{"output": {"path": "${SVO_TEST_OUTPUT}"}}`), 0o600)
	test.That(t, err, test.ShouldBeNil)

	cfg, err := Read(path, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Output.Path, test.ShouldEqual, "env.svo")
	test.That(t, cfg.ConfigFilePath, test.ShouldEqual, path)

	_, err = Read(filepath.Join(t.TempDir(), "missing.json"), golog.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		name   string
		modify func(cfg *Config)
		errMsg string
	}{
		{"max depth", func(cfg *Config) { cfg.Octree.MaxDepth = 0 }, "max_depth"},
		{"scale", func(cfg *Config) { cfg.Octree.Scale = -1 }, "scale must be positive"},
		{"margin", func(cfg *Config) { cfg.Octree.Margin = 0.5 }, "margin"},
		{"separability", func(cfg *Config) { cfg.Voxelize.Separability = 8 }, "separability"},
		{"target", func(cfg *Config) { cfg.Voxelize.Target = "color" }, "unknown target"},
		{"voxelize depth", func(cfg *Config) { cfg.Voxelize.Depth = 8 }, "depth must be in [0, 7]"},
		{"fill nodes", func(cfg *Config) {
			cfg.Voxelize.FillNodes = true
			cfg.Voxelize.Depth = 5
		}, "fill_nodes"},
		{"classify deeper than voxels", func(cfg *Config) {
			cfg.Voxelize.Depth = 5
			cfg.Classify.Depth = 6
		}, "deeper than the voxelization depth"},
		{"axis", func(cfg *Config) { cfg.Classify.Axes = []string{"w"} }, "unknown axis"},
		{"duplicate axis", func(cfg *Config) { cfg.Classify.Axes = []string{"x", "X"} }, "duplicate axis"},
		{"threshold", func(cfg *Config) { cfg.Classify.InsideVoteThreshold = 1 }, "inside_vote_threshold"},
		{"min votes", func(cfg *Config) { cfg.Classify.InsideMinVotes = -1 }, "inside_min_votes"},
		{"tolerance", func(cfg *Config) { cfg.Classify.Tolerance = -1 }, "tolerance"},
		// voxels at the default depth 7 are 1/128 wide
		{"tolerance of half a voxel", func(cfg *Config) { cfg.Classify.Tolerance = 1.0 / 256 }, "half the voxel size"},
		{"tolerance at a coarser depth", func(cfg *Config) {
			cfg.Classify.Depth = 3
			cfg.Classify.Tolerance = 0.07
		}, "half the voxel size"},
		{"classify density", func(cfg *Config) { cfg.Voxelize.Target = TargetDensity }, "FILLED"},
		{"thickness", func(cfg *Config) {
			cfg.WallThickness.Enabled = true
			cfg.WallThickness.MaxThickness = 0
		}, "max_thickness"},
		{"colors", func(cfg *Config) {
			cfg.WallThickness.Enabled = true
			cfg.WallThickness.NumColors = 0
		}, "num_colors"},
		{"output path", func(cfg *Config) { cfg.Output.Path = "" }, "path"},
		{"export path", func(cfg *Config) { cfg.Output.ExportPath = cfg.Output.Path }, "export_path"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.modify(cfg)
			err := cfg.Validate()
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.errMsg)
		})
	}

	t.Run("tolerance below half a voxel", func(t *testing.T) {
		cfg := Default()
		cfg.Classify.Depth = 3
		cfg.Classify.Tolerance = 0.05
		test.That(t, cfg.Validate(), test.ShouldBeNil)
	})

	t.Run("disabled sections are not validated", func(t *testing.T) {
		cfg := Default()
		cfg.Classify.Enabled = false
		cfg.Classify.Axes = []string{"w"}
		test.That(t, cfg.Validate(), test.ShouldBeNil)
	})
}
