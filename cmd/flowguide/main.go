// Command flowguide computes a 4-RoSy orientation field for a PLY or
// STL mesh and reports convergence diagnostics.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rastertail/flowguide/config"
	"github.com/rastertail/flowguide/diag"
	"github.com/rastertail/flowguide/hierarchy"
	"github.com/rastertail/flowguide/internal/logging"
	"github.com/rastertail/flowguide/mesh"
	"github.com/rastertail/flowguide/meshio"
	"github.com/rastertail/flowguide/solver"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	flagPlot = flag.String("plot", "", "Write residual convergence plot (SVG) to this path")
	flagOut  = flag.String("out", "", "Write the welded mesh as ascii PLY to this path")
)

func main() {
	config.ParseFlags()
	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] mesh.{ply,stl}\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.Load(config.ConfigPath())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logging.New(cfg.Logging.Level, cfg.Logging.LogFile)
	defer log.Sync()

	if err := run(flag.Arg(0), cfg, log); err != nil {
		log.Fatal("pipeline failed", zap.Error(err))
	}
}

func run(path string, cfg *config.Config, log *zap.Logger) error {
	verts, tris, err := readMesh(path, cfg.Mesh.WeldTolerance, log)
	if err != nil {
		return err
	}
	log.Info("mesh loaded",
		zap.String("path", path),
		zap.Int("vertices", len(verts)),
		zap.Int("triangles", len(tris)))

	meshOpts := mesh.Options{NonManifold: mesh.Repair}
	if cfg.Mesh.NonManifold == "reject" {
		meshOpts.NonManifold = mesh.Reject
	}
	start := time.Now()
	m, err := mesh.New(verts, tris, meshOpts)
	if err != nil {
		return err
	}
	if nm := m.NonManifold(); len(nm) > 0 {
		log.Warn("repaired non-manifold vertices", zap.Int("count", len(nm)))
	}
	log.Info("topology built", zap.Duration("elapsed", time.Since(start)))

	weighting := hierarchy.Uniform
	if cfg.Solver.Weighting == "invlength" {
		weighting = hierarchy.InverseLength
	}
	start = time.Now()
	h, err := hierarchy.Build(m, hierarchy.Options{
		MinVertices: cfg.Hierarchy.MinVertices,
		Weighting:   weighting,
	})
	if err != nil {
		return err
	}
	log.Info("hierarchy built",
		zap.Int("levels", h.Depth()),
		zap.Int("coarsest_vertices", len(h.Coarsest().Pos)),
		zap.Duration("elapsed", time.Since(start)))

	s, err := solver.New(h, solver.Config{
		Threshold: cfg.Solver.Threshold,
		MaxPasses: cfg.Solver.MaxPasses,
		Seed:      cfg.Solver.Seed,
		Logger:    log,
	})
	if err != nil {
		return err
	}
	start = time.Now()
	field := s.Solve()
	log.Info("field solved", zap.Duration("elapsed", time.Since(start)))

	singular := field.SingularVertices(100)
	log.Info("field diagnostics",
		zap.Int("singular_vertices", len(singular)),
		zap.Float64("singular_fraction", float64(len(singular))/float64(m.NumVertices())))

	if *flagPlot != "" {
		if err := writePlot(*flagPlot, field.Residuals); err != nil {
			return err
		}
		log.Info("residual plot written", zap.String("path", *flagPlot))
	}
	if *flagOut != "" {
		if err := writePLY(*flagOut, verts, tris); err != nil {
			return err
		}
		log.Info("mesh written", zap.String("path", *flagOut))
	}
	return nil
}

func readMesh(path string, weldTol float64, log *zap.Logger) ([]r3.Vec, [][3]int, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer fp.Close()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ply":
		return meshio.ReadPLY(fp)
	case ".stl":
		soup, err := meshio.ReadSTL(fp)
		if err != nil {
			if !errors.Is(err, meshio.ErrNormalMismatch) || len(soup) == 0 {
				return nil, nil, err
			}
			log.Warn("stored facet normals disagree with geometry", zap.Error(err))
		}
		return mesh.Weld(soup, weldTol)
	default:
		return nil, nil, fmt.Errorf("unsupported mesh format %q", filepath.Ext(path))
	}
}

func writePlot(path string, residuals [][]float64) error {
	fp, err := os.Create(path)
	if err != nil {
		return err
	}
	defer fp.Close()
	return diag.PlotResiduals(fp, residuals)
}

func writePLY(path string, verts []r3.Vec, tris [][3]int) error {
	fp, err := os.Create(path)
	if err != nil {
		return err
	}
	defer fp.Close()
	return meshio.WritePLY(fp, verts, tris)
}
