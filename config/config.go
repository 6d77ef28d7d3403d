// Package config defines the configuration of the voxelization pipeline.
package config

import (
	"math"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/svo/octree"
)

// Default values of optional fields.
const (
	DefaultMaxDepth     = 8
	DefaultOrder        = 2
	DefaultScale        = 1.0
	DefaultMargin       = 0.05
	DefaultMaxThickness = 16
	DefaultNumColors    = 8
	DefaultOutputPath   = "tree.svo"
)

// Config describes a full voxelization run.
type Config struct {
	Octree        OctreeConfig        `json:"octree"`
	Voxelize      VoxelizeConfig      `json:"voxelize"`
	Classify      ClassifyConfig      `json:"classify"`
	WallThickness WallThicknessConfig `json:"wall_thickness"`
	Output        OutputConfig        `json:"output"`

	// ConfigFilePath is where the config was read from, if anywhere.
	ConfigFilePath string `json:"-"`
}

// Default returns a config with every optional field set to its default.
func Default() *Config {
	return &Config{
		Octree: OctreeConfig{
			MaxDepth: DefaultMaxDepth,
			Order:    DefaultOrder,
			Scale:    DefaultScale,
			Margin:   DefaultMargin,
		},
		Voxelize: VoxelizeConfig{
			Separability: int(octree.Separability26),
			Target:       TargetFilled,
		},
		Classify: ClassifyConfig{
			Enabled:             true,
			Axes:                []string{"x", "y", "z"},
			InsideVoteThreshold: octree.DefaultInsideVoteThreshold,
			InsideMinVotes:      octree.DefaultInsideMinVotes,
		},
		WallThickness: WallThicknessConfig{
			Axes:         []string{"x", "y", "z"},
			MaxThickness: DefaultMaxThickness,
			NumColors:    DefaultNumColors,
		},
		Output: OutputConfig{
			Path:       DefaultOutputPath,
			PruneEmpty: true,
		},
	}
}

// Validate checks every section and fills in derived defaults.
func (c *Config) Validate() error {
	if err := c.Octree.Validate("octree"); err != nil {
		return err
	}
	leafDepth := c.Octree.MaxDepth - 1
	if err := c.Voxelize.Validate("voxelize", leafDepth); err != nil {
		return err
	}
	if c.Classify.Enabled {
		if err := c.Classify.Validate("classify", leafDepth); err != nil {
			return err
		}
		depth, err := c.resolveDepth("classify", c.Classify.Depth)
		if err != nil {
			return err
		}
		c.Classify.Depth = depth
		// rays run through voxel centers, a wider tolerance reaches into the next column
		half := c.Octree.Scale / math.Pow(float64(c.Octree.Order), float64(depth)) / 2
		if c.Classify.Tolerance >= half {
			return utils.NewConfigValidationError("classify",
				errors.Errorf("tolerance must be below half the voxel size %v at depth %d, got %v", half, depth, c.Classify.Tolerance))
		}
	}
	if c.WallThickness.Enabled {
		if err := c.WallThickness.Validate("wall_thickness", leafDepth); err != nil {
			return err
		}
		depth, err := c.resolveDepth("wall_thickness", c.WallThickness.Depth)
		if err != nil {
			return err
		}
		c.WallThickness.Depth = depth
		if c.Voxelize.Target == TargetDensity {
			return utils.NewConfigValidationError("wall_thickness",
				errors.New("wall thickness needs FILLED voxels, set voxelize.target to \"filled\""))
		}
	}
	if c.Classify.Enabled && c.Voxelize.Target == TargetDensity {
		return utils.NewConfigValidationError("classify",
			errors.New("classification needs FILLED voxels, set voxelize.target to \"filled\""))
	}
	return c.Output.Validate("output")
}

// resolveDepth maps an unset depth to the voxelization depth. Voxels only exist down to that depth.
func (c *Config) resolveDepth(path string, depth int) (int, error) {
	if depth == 0 {
		return c.Voxelize.Depth, nil
	}
	if depth > c.Voxelize.Depth {
		return 0, utils.NewConfigValidationError(path,
			errors.Errorf("depth %d is deeper than the voxelization depth %d", depth, c.Voxelize.Depth))
	}
	return depth, nil
}

// NewContext returns the octree context described by the octree section.
func (c *Config) NewContext() (*octree.Context, error) {
	return octree.NewContext(c.Octree.MaxDepth, c.Octree.Order, c.Octree.Scale)
}

// OctreeConfig describes the tree geometry.
type OctreeConfig struct {
	MaxDepth int     `json:"max_depth"`
	Order    int     `json:"order"`
	Scale    float64 `json:"scale"`
	// Margin is the gap kept between the fitted mesh and the faces of the root cube.
	Margin float64 `json:"margin"`
}

// Validate ensures all parts of the config are valid.
func (cfg *OctreeConfig) Validate(path string) error {
	if cfg.MaxDepth < 1 {
		return utils.NewConfigValidationError(path, errors.Errorf("max_depth must be at least 1, got %d", cfg.MaxDepth))
	}
	if cfg.Order < 2 {
		return utils.NewConfigValidationError(path, errors.Errorf("order must be at least 2, got %d", cfg.Order))
	}
	if cfg.Scale <= 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("scale must be positive, got %v", cfg.Scale))
	}
	if cfg.Margin < 0 || 2*cfg.Margin >= cfg.Scale {
		return utils.NewConfigValidationError(path, errors.Errorf("margin must be in [0, scale/2), got %v", cfg.Margin))
	}
	return nil
}

// Voxelization targets by name.
const (
	TargetFilled  = "filled"
	TargetDensity = "density"
)

// VoxelizeConfig describes the voxelization pass.
type VoxelizeConfig struct {
	Separability int    `json:"separability"`
	Parallel     bool   `json:"parallel"`
	Target       string `json:"target"`

	// FillNodes creates the leaves overlapped by a face's bounds while inserting it. Otherwise face
	// references stay in the coarsest node and the precise pass refines them.
	FillNodes bool `json:"fill_nodes"`

	// Depth of the written voxels, the leaf depth when zero.
	Depth int `json:"depth"`
}

// Validate ensures all parts of the config are valid.
func (cfg *VoxelizeConfig) Validate(path string, leafDepth int) error {
	if _, err := octree.ParseSeparability(cfg.Separability); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	switch cfg.Target {
	case "":
		cfg.Target = TargetFilled
	case TargetFilled, TargetDensity:
	default:
		return utils.NewConfigValidationError(path, errors.Errorf("unknown target %q", cfg.Target))
	}
	if cfg.Depth == 0 {
		cfg.Depth = leafDepth
	}
	if cfg.Depth < 0 || cfg.Depth > leafDepth {
		return utils.NewConfigValidationError(path, errors.Errorf("depth must be in [0, %d], got %d", leafDepth, cfg.Depth))
	}
	if cfg.FillNodes && cfg.Depth != leafDepth {
		return utils.NewConfigValidationError(path, errors.New("fill_nodes places faces in the leaves, depth must be the leaf depth"))
	}
	return nil
}

// SeparabilityClass returns the validated separability.
func (cfg *VoxelizeConfig) SeparabilityClass() octree.Separability {
	return octree.Separability(cfg.Separability)
}

// VoxelizeTarget returns what the voxelization writes.
func (cfg *VoxelizeConfig) VoxelizeTarget() octree.VoxelizeTarget {
	if cfg.Target == TargetDensity {
		return octree.TargetDensity
	}
	return octree.TargetFilled
}

// ClassifyConfig describes the inside/outside classification.
type ClassifyConfig struct {
	Enabled             bool     `json:"enabled"`
	Axes                []string `json:"axes"`
	InsideVoteThreshold float64  `json:"inside_vote_threshold"`
	InsideMinVotes      int      `json:"inside_min_votes"`
	Tolerance           float64  `json:"tolerance"`

	// Depth of the classified voxels, the voxelization depth when zero.
	Depth int `json:"depth"`
}

// Validate ensures all parts of the config are valid.
func (cfg *ClassifyConfig) Validate(path string, leafDepth int) error {
	if _, err := ParseAxes(cfg.Axes); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	if cfg.Depth < 0 || cfg.Depth > leafDepth {
		return utils.NewConfigValidationError(path, errors.Errorf("depth must be in [0, %d], got %d", leafDepth, cfg.Depth))
	}
	if cfg.InsideVoteThreshold < 0 || cfg.InsideVoteThreshold >= 1 {
		return utils.NewConfigValidationError(path,
			errors.Errorf("inside_vote_threshold must be in [0, 1), got %v", cfg.InsideVoteThreshold))
	}
	if cfg.InsideMinVotes < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("inside_min_votes must not be negative, got %d", cfg.InsideMinVotes))
	}
	if cfg.Tolerance < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("tolerance must not be negative, got %v", cfg.Tolerance))
	}
	return nil
}

// WallThicknessConfig describes the wall thickness measurement.
type WallThicknessConfig struct {
	Enabled      bool     `json:"enabled"`
	Axes         []string `json:"axes"`
	MaxThickness float64  `json:"max_thickness"`
	NumColors    int      `json:"num_colors"`

	// Depth of the measured voxels, the voxelization depth when zero.
	Depth int `json:"depth"`
}

// Validate ensures all parts of the config are valid.
func (cfg *WallThicknessConfig) Validate(path string, leafDepth int) error {
	if _, err := ParseAxes(cfg.Axes); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	if cfg.Depth < 0 || cfg.Depth > leafDepth {
		return utils.NewConfigValidationError(path, errors.Errorf("depth must be in [0, %d], got %d", leafDepth, cfg.Depth))
	}
	if cfg.MaxThickness <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "max_thickness")
	}
	if cfg.NumColors < 1 {
		return utils.NewConfigValidationFieldRequiredError(path, "num_colors")
	}
	return nil
}

// OutputConfig describes where the result goes.
type OutputConfig struct {
	Path       string `json:"path"`
	Compress   bool   `json:"compress"`
	PruneEmpty bool   `json:"prune_empty"`
	// ExportPath, when set, receives the visible voxels as a PLY mesh.
	ExportPath string `json:"export_path"`
}

// Validate ensures all parts of the config are valid.
func (cfg *OutputConfig) Validate(path string) error {
	if cfg.Path == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "path")
	}
	if cfg.ExportPath != "" && cfg.ExportPath == cfg.Path {
		return utils.NewConfigValidationError(path, errors.New("export_path must differ from path"))
	}
	return nil
}

// ParseAxes converts axis names into axes. An empty list means all three axes.
func ParseAxes(names []string) ([]r3.Axis, error) {
	if len(names) == 0 {
		return []r3.Axis{r3.XAxis, r3.YAxis, r3.ZAxis}, nil
	}
	seen := map[r3.Axis]bool{}
	axes := make([]r3.Axis, 0, len(names))
	for _, name := range names {
		var a r3.Axis
		switch strings.ToLower(name) {
		case "x":
			a = r3.XAxis
		case "y":
			a = r3.YAxis
		case "z":
			a = r3.ZAxis
		default:
			return nil, errors.Errorf("unknown axis %q", name)
		}
		if seen[a] {
			return nil, errors.Errorf("duplicate axis %q", name)
		}
		seen[a] = true
		axes = append(axes, a)
	}
	return axes, nil
}
