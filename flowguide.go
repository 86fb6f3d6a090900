// Package flowguide computes smooth 4-RoSy orientation fields over
// triangulated surface meshes, the first stage of an automatic
// retopology pipeline. The subpackages expose the individual stages
// (mesh topology, tangent-frame algebra, hierarchy, solver); this
// package ties them into a one-call pipeline.
package flowguide

import (
	"github.com/rastertail/flowguide/hierarchy"
	"github.com/rastertail/flowguide/mesh"
	"github.com/rastertail/flowguide/solver"
	"gonum.org/v1/gonum/spatial/r3"
)

// Options configure the full pipeline. Zero values select the
// documented defaults of each stage.
type Options struct {
	Mesh      mesh.Options
	Hierarchy hierarchy.Options
	Solver    solver.Config
}

// Compute builds topology and hierarchy for the given geometry and
// solves the orientation field to convergence. All structural errors
// surface here; solving itself never fails.
func Compute(verts []r3.Vec, tris [][3]int, opts Options) (*solver.Field, error) {
	m, err := mesh.New(verts, tris, opts.Mesh)
	if err != nil {
		return nil, err
	}
	h, err := hierarchy.Build(m, opts.Hierarchy)
	if err != nil {
		return nil, err
	}
	s, err := solver.New(h, opts.Solver)
	if err != nil {
		return nil, err
	}
	return s.Solve(), nil
}
