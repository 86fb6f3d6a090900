package solver

import (
	"github.com/rastertail/flowguide/field"
	"github.com/rastertail/flowguide/hierarchy"
	"gonum.org/v1/gonum/spatial/r3"
)

// Field is the solved finest-level orientation field together with
// its convergence diagnostics. It is read-only once the solver that
// produced it is Done.
type Field struct {
	level *hierarchy.Level
	// Angles holds one 4-RoSy representative per vertex, in the
	// vertex's tangent frame.
	Angles []float64
	// Residuals are the per-level pass histories (0 = finest).
	Residuals [][]float64
	// Threshold is the convergence threshold the field was solved to.
	Threshold float64
}

// Direction returns the representative tangent direction of vertex i.
func (f *Field) Direction(i int) r3.Vec {
	return f.level.Frame[i].Dir(f.Angles[i])
}

// Directions returns all four symmetric tangent directions of
// vertex i.
func (f *Field) Directions(i int) [4]r3.Vec {
	var out [4]r3.Vec
	for k := range out {
		out[k] = f.level.Frame[i].Dir(f.Angles[i] + float64(k)*field.Symmetry)
	}
	return out
}

// Deviation returns vertex i's worst angular disagreement with its
// transported neighbors, under symmetry. Smooth converged regions sit
// near zero; vertices adjacent to a field singularity approach pi/4.
func (f *Field) Deviation(i int) float64 {
	worst := 0.0
	for k, j := range f.level.Adj[i] {
		d := field.Dist(f.Angles[i], f.Angles[j]+f.level.Delta[i][k])
		if d > worst {
			worst = d
		}
	}
	return worst
}

// SingularVertices lists vertices whose Deviation exceeds mult times
// the convergence threshold, in ascending order. On meshes that must
// carry singularities this concentrates around a small set of
// vertices; its size relative to the vertex count is the quality
// diagnostic for downstream consumers.
func (f *Field) SingularVertices(mult float64) []int {
	limit := mult * f.Threshold
	var out []int
	for i := range f.Angles {
		if f.Deviation(i) > limit {
			out = append(out, i)
		}
	}
	return out
}
