// Package main is the svo command line tool.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"go.viam.com/svo/config"
	"go.viam.com/svo/octree"
	"go.viam.com/svo/pipeline"
	"go.viam.com/svo/viz"
)

const (
	// Flags.
	flagConfig   = "config"
	flagMesh     = "mesh"
	flagOut      = "out"
	flagIn       = "in"
	flagDepth    = "depth"
	flagColor    = "color"
	flagCompress = "compress"
	flagExport   = "export"
	flagDebug    = "debug"

	colorClass = "class"
	colorDepth = "depth"
	colorRGBA  = "payload"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	var logger golog.Logger

	return &cli.App{
		Name:  "svo",
		Usage: "voxelize meshes into sparse voxel octrees and inspect them",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool(flagDebug) {
				logger = golog.NewDebugLogger("svo")
			} else {
				logger = zap.NewNop().Sugar()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "voxelize",
				Usage: "voxelize a PLY mesh, classify it and store the tree",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    flagConfig,
						Aliases: []string{"c"},
						Usage:   "load pipeline configuration from `FILE`, defaults are used otherwise",
					},
					&cli.StringFlag{
						Name:     flagMesh,
						Aliases:  []string{"m"},
						Required: true,
						Usage:    "ASCII PLY mesh `FILE` to voxelize",
					},
					&cli.StringFlag{
						Name:    flagOut,
						Aliases: []string{"o"},
						Usage:   "write the tree to `FILE`, overriding output.path",
					},
					&cli.StringFlag{
						Name:  flagExport,
						Usage: "also export the visible voxels as a PLY mesh to `FILE`",
					},
				},
				Action: func(c *cli.Context) error {
					return voxelizeAction(c, logger)
				},
			},
			{
				Name:      "info",
				Usage:     "print the shape and contents of a stored tree",
				ArgsUsage: "<tree file>",
				Action: func(c *cli.Context) error {
					path := c.Args().First()
					if path == "" {
						return errors.New("need a tree file")
					}
					tree, err := octree.ReadFile(path, nil, logger)
					if err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, pipeline.Describe(tree))
					return nil
				},
			},
			{
				Name:  "export",
				Usage: "export the voxels of a stored tree as a colored PLY mesh",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     flagIn,
						Aliases:  []string{"i"},
						Required: true,
						Usage:    "tree `FILE` to read",
					},
					&cli.StringFlag{
						Name:     flagOut,
						Aliases:  []string{"o"},
						Required: true,
						Usage:    "PLY `FILE` to write",
					},
					&cli.IntFlag{
						Name:  flagDepth,
						Value: -1,
						Usage: "export voxels at this depth, the leaf depth by default",
					},
					&cli.StringFlag{
						Name:  flagColor,
						Value: colorClass,
						Usage: fmt.Sprintf("coloring, one of %q, %q or %q", colorClass, colorDepth, colorRGBA),
					},
				},
				Action: func(c *cli.Context) error {
					return exportAction(c, logger)
				},
			},
			{
				Name:      "convert",
				Usage:     "rewrite a stored tree, optionally compressed",
				ArgsUsage: "<tree file> <output file>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  flagCompress,
						Usage: "compress the output with LZF",
					},
				},
				Action: func(c *cli.Context) error {
					if c.Args().Len() != 2 {
						return errors.New("need an input and an output tree file")
					}
					tree, err := octree.ReadFile(c.Args().Get(0), nil, logger)
					if err != nil {
						return err
					}
					return octree.WriteFile(c.Args().Get(1), tree, c.Bool(flagCompress))
				},
			},
		},
	}
}

func voxelizeAction(c *cli.Context, logger golog.Logger) error {
	cfg := config.Default()
	if path := c.String(flagConfig); path != "" {
		var err error
		if cfg, err = config.Read(path, logger); err != nil {
			return err
		}
	}
	if out := c.String(flagOut); out != "" {
		cfg.Output.Path = out
	}
	if export := c.String(flagExport); export != "" {
		cfg.Output.ExportPath = export
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	res, err := pipeline.RunFile(context.Background(), cfg, c.String(flagMesh), logger)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, res.String())
	fmt.Fprintf(c.App.Writer, "tree written to %s\n", cfg.Output.Path)
	return nil
}

func exportAction(c *cli.Context, logger golog.Logger) error {
	tree, err := octree.ReadFile(c.String(flagIn), nil, logger)
	if err != nil {
		return err
	}
	depth := c.Int(flagDepth)
	if depth < 0 {
		depth = tree.Context().LeafDepth()
	}
	if depth > tree.Context().LeafDepth() {
		return errors.Errorf("depth %d is deeper than the leaf depth %d", depth, tree.Context().LeafDepth())
	}

	var colorer viz.Colorer
	filter := octree.DepthFilter(depth)
	switch c.String(flagColor) {
	case colorClass:
		colorer = viz.ClassColorer(false)
	case colorDepth:
		colorer = viz.DepthColorer(tree.Context())
		filter.Payloads = []octree.PayloadType{octree.PayloadAny}
	case colorRGBA:
		colorer = viz.PayloadColorer()
	default:
		return errors.Errorf("unknown coloring %q", c.String(flagColor))
	}

	quads := viz.Quads(tree, filter, colorer)
	if err := viz.WritePLYFile(quads, c.String(flagOut)); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "exported %d faces to %s\n", len(quads), c.String(flagOut))
	return nil
}
