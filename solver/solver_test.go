package solver_test

import (
	"math"
	"testing"

	"github.com/rastertail/flowguide/field"
	"github.com/rastertail/flowguide/hierarchy"
	"github.com/rastertail/flowguide/internal/shapes"
	"github.com/rastertail/flowguide/mesh"
	"github.com/rastertail/flowguide/solver"
	"gonum.org/v1/gonum/spatial/r3"
)

func buildHierarchy(t *testing.T, verts []r3.Vec, tris [][3]int) *hierarchy.Hierarchy {
	t.Helper()
	m, err := mesh.New(verts, tris, mesh.Options{})
	if err != nil {
		t.Fatal(err)
	}
	h, err := hierarchy.Build(m, hierarchy.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func TestFlatPlaneConvergesToUniformField(t *testing.T) {
	// On a perfectly flat patch there is no topological obstruction:
	// every vertex must agree with every other under symmetry.
	verts, tris := shapes.PlaneGrid(10, 10)
	h := buildHierarchy(t, verts, tris)
	s, err := solver.New(h, solver.Config{Threshold: 1e-6, MaxPasses: 2000, Seed: 42})
	if err != nil {
		t.Fatal(err)
	}
	f := s.Solve()
	if s.State() != solver.Done {
		t.Fatalf("solver state %v after Solve", s.State())
	}
	ref := f.Angles[0]
	worst := 0.0
	for _, a := range f.Angles {
		if d := field.Dist(a, ref); d > worst {
			worst = d
		}
	}
	if worst > 1e-3 {
		t.Fatalf("flat field disagrees by %g radians", worst)
	}
}

func TestConvergedResidualMatchesNeighborAgreement(t *testing.T) {
	// A residual under the threshold must mean vertices actually agree
	// across edges. An update rule that pins vertices on a 90-degree
	// wall reports the same tiny residual as a uniform field, so the
	// two diagnostics are checked together.
	verts, tris := shapes.PlaneGrid(12, 12)
	h := buildHierarchy(t, verts, tris)
	s, err := solver.New(h, solver.Config{Threshold: 1e-6, MaxPasses: 2000, Seed: 9})
	if err != nil {
		t.Fatal(err)
	}
	f := s.Solve()
	for l, hist := range s.Residuals() {
		if len(hist) == 0 {
			t.Fatalf("level %d ran no passes", l)
		}
		if last := hist[len(hist)-1]; last > 1e-6 {
			t.Fatalf("level %d stopped at residual %g", l, last)
		}
	}
	for i := range f.Angles {
		if d := f.Deviation(i); d > 1e-3 {
			t.Fatalf("vertex %d disagrees with a neighbor by %g rad despite converged residuals", i, d)
		}
	}
}

func TestIsolatedVertexKeepsSeed(t *testing.T) {
	verts, tris := shapes.PlaneGrid(6, 6)
	iso := len(verts)
	verts = append(verts, r3.Vec{X: 100, Y: 100, Z: 100})
	h := buildHierarchy(t, verts, tris)
	s, err := solver.New(h, solver.Config{Seed: 3})
	if err != nil {
		t.Fatal(err)
	}
	// Step until the finest level has just been seeded, record the
	// isolated vertex's angle, then finish.
	for !(s.Level() == 0 && s.State() == solver.Seeded) {
		if s.Step() == solver.Done {
			t.Fatal("solver finished before seeding level 0")
		}
	}
	seeded := s.Field().Angles[iso]
	for s.State() != solver.Done {
		s.Step()
	}
	if got := s.Field().Angles[iso]; got != seeded {
		t.Fatalf("isolated vertex angle changed from %g to %g", seeded, got)
	}
}

func TestIdempotenceAtConverged(t *testing.T) {
	const threshold = 1e-4
	verts, tris := shapes.Sphere(1, 10, 14)
	h := buildHierarchy(t, verts, tris)
	s, err := solver.New(h, solver.Config{Threshold: threshold, MaxPasses: 500, Seed: 7})
	if err != nil {
		t.Fatal(err)
	}
	s.Solve()
	// Re-running a relax pass on the converged finest level must not
	// move any vertex by more than the threshold.
	if change := s.Relax(); change > threshold {
		t.Fatalf("extra pass on converged level moved a vertex by %g", change)
	}
}

func TestResidualTrend(t *testing.T) {
	verts, tris := shapes.Sphere(1, 12, 16)
	h := buildHierarchy(t, verts, tris)
	s, err := solver.New(h, solver.Config{Threshold: 1e-6, MaxPasses: 100, Seed: 1})
	if err != nil {
		t.Fatal(err)
	}
	s.Solve()
	// Randomized ordering allows occasional upticks, but halves of
	// the history must trend down on average.
	for l, hist := range s.Residuals() {
		if len(hist) < 4 {
			continue
		}
		half := len(hist) / 2
		first, second := 0.0, 0.0
		for _, r := range hist[:half] {
			first += r
		}
		for _, r := range hist[half:] {
			second += r
		}
		first /= float64(half)
		second /= float64(len(hist) - half)
		if second > first {
			t.Errorf("level %d residuals trend up: %g -> %g", l, first, second)
		}
	}
}

func TestSphereEndToEnd(t *testing.T) {
	const threshold = 1e-3
	verts, tris := shapes.Sphere(1, 12, 16)
	h := buildHierarchy(t, verts, tris)
	s, err := solver.New(h, solver.Config{Threshold: threshold, MaxPasses: 200, Seed: 2})
	if err != nil {
		t.Fatal(err)
	}
	f := s.Solve()
	for _, a := range f.Angles {
		if math.IsNaN(a) || math.IsInf(a, 0) {
			t.Fatal("non-finite angle in solved field")
		}
	}
	for l, hist := range f.Residuals {
		if len(hist) == 0 {
			t.Fatalf("level %d ran no passes", l)
		}
	}
	// A sphere necessarily carries singularities, but they must stay
	// concentrated: few vertices may disagree strongly with their
	// neighbors.
	singular := f.SingularVertices(0.3 / threshold)
	if n, total := len(singular), len(f.Angles); n > total/10 {
		t.Fatalf("%d of %d vertices look singular, want a small set", n, total)
	}
}

func TestSeedReproducibility(t *testing.T) {
	verts, tris := shapes.Sphere(1, 8, 12)
	run := func(seed uint64) []float64 {
		h := buildHierarchy(t, verts, tris)
		s, err := solver.New(h, solver.Config{Seed: seed})
		if err != nil {
			t.Fatal(err)
		}
		return s.Solve().Angles
	}
	a, b := run(5), run(5)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("equal seeds diverged at vertex %d: %g vs %g", i, a[i], b[i])
		}
	}
}

func TestStepStateSequence(t *testing.T) {
	verts, tris := shapes.PlaneGrid(8, 8)
	h := buildHierarchy(t, verts, tris)
	s, err := solver.New(h, solver.Config{Seed: 1})
	if err != nil {
		t.Fatal(err)
	}
	if s.State() != solver.Uninitialized {
		t.Fatalf("initial state %v", s.State())
	}
	if s.Level() != h.Depth()-1 {
		t.Fatalf("initial level %d, want coarsest %d", s.Level(), h.Depth()-1)
	}
	if st := s.Step(); st != solver.Seeded {
		t.Fatalf("first step state %v, want Seeded", st)
	}
	prevLevel := s.Level()
	for s.State() != solver.Done {
		st := s.Step()
		if s.Level() > prevLevel {
			t.Fatal("solver ascended the hierarchy")
		}
		prevLevel = s.Level()
		switch st {
		case solver.Seeded, solver.Converging, solver.Converged, solver.Done:
		default:
			t.Fatalf("unexpected state %v", st)
		}
	}
	if s.Level() != 0 {
		t.Fatalf("finished at level %d, want 0", s.Level())
	}
	// Further steps are no-ops.
	if st := s.Step(); st != solver.Done {
		t.Fatalf("step after Done gave %v", st)
	}
}

func TestPassCapIsNotAnError(t *testing.T) {
	// An impossible threshold forces every level to hit the cap; the
	// solver must still terminate with a complete field.
	verts, tris := shapes.Sphere(1, 8, 12)
	h := buildHierarchy(t, verts, tris)
	s, err := solver.New(h, solver.Config{Threshold: 1e-300, MaxPasses: 5, Seed: 1})
	if err != nil {
		t.Fatal(err)
	}
	f := s.Solve()
	if s.State() != solver.Done {
		t.Fatalf("state %v after Solve", s.State())
	}
	for l, hist := range f.Residuals {
		if len(hist) != 5 {
			t.Fatalf("level %d ran %d passes, want the cap of 5", l, len(hist))
		}
	}
}
