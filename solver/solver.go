// Package solver smooths a 4-RoSy orientation field over a mesh
// hierarchy with randomized Gauss-Seidel relaxation. Levels are
// processed coarsest to finest; each level seeds from its parent's
// converged angles and relaxes until the maximum per-pass angular
// change falls under the threshold or the pass cap is hit. The solver
// is an explicit state machine so a driver can step pass-by-pass,
// inspect residuals and halt early with a valid field.
package solver

import (
	"errors"
	"math"
	"math/rand"

	"github.com/rastertail/flowguide/field"
	"github.com/rastertail/flowguide/hierarchy"
	"go.uber.org/zap"
)

// State identifies the solver's position in its lifecycle.
type State uint8

const (
	Uninitialized State = iota
	Seeded
	Converging
	Converged
	Done
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Seeded:
		return "seeded"
	case Converging:
		return "converging"
	case Converged:
		return "converged"
	case Done:
		return "done"
	}
	return "unknown"
}

// Config holds the solver parameters. The zero value selects the
// defaults documented per field.
type Config struct {
	// Threshold is the maximum per-pass angular change (radians,
	// under symmetry) below which a level counts as converged.
	// Zero means 1e-3.
	Threshold float64
	// MaxPasses caps relaxation passes per level. Hitting the cap
	// marks the level converged with a reported residual; it is not
	// an error. Zero means 64.
	MaxPasses int
	// Seed initializes the pseudorandom source driving the coarsest
	// seeding and the per-pass visitation shuffle. Runs with equal
	// seeds on equal meshes are identical. Zero means 1.
	Seed uint64
	// Logger receives per-level convergence reports. Nil disables
	// logging.
	Logger *zap.Logger
}

func (c Config) withDefaults() Config {
	if c.Threshold <= 0 {
		c.Threshold = 1e-3
	}
	if c.MaxPasses <= 0 {
		c.MaxPasses = 64
	}
	if c.Seed == 0 {
		c.Seed = 1
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// Solver holds the mutable relaxation state. Not safe for concurrent
// use; drive it from one goroutine.
type Solver struct {
	h   *hierarchy.Hierarchy
	cfg Config
	rng *rand.Rand
	log *zap.Logger

	state  State
	level  int // current hierarchy level, depth-1 down to 0
	pass   int // passes completed at the current level
	angles [][]float64
	// residuals[l] records the max angular change of every pass run
	// at level l.
	residuals [][]float64
}

// New prepares a solver over h. The hierarchy must be non-empty.
func New(h *hierarchy.Hierarchy, cfg Config) (*Solver, error) {
	if h == nil || h.Depth() == 0 {
		return nil, errors.New("solver: empty hierarchy")
	}
	cfg = cfg.withDefaults()
	s := &Solver{
		h:         h,
		cfg:       cfg,
		rng:       rand.New(rand.NewSource(int64(cfg.Seed))),
		log:       cfg.Logger,
		state:     Uninitialized,
		level:     h.Depth() - 1,
		angles:    make([][]float64, h.Depth()),
		residuals: make([][]float64, h.Depth()),
	}
	for l, lev := range h.Levels {
		s.angles[l] = make([]float64, len(lev.Pos))
	}
	return s, nil
}

// State returns the current lifecycle state.
func (s *Solver) State() State { return s.state }

// Level returns the level currently being processed. Meaningless once
// Done.
func (s *Solver) Level() int { return s.level }

// Passes returns the number of relaxation passes completed at the
// current level.
func (s *Solver) Passes() int { return s.pass }

// Residuals returns the per-level, per-pass maximum angular change
// histories, indexed like the hierarchy (0 = finest). The slices are
// live; callers must not modify them.
func (s *Solver) Residuals() [][]float64 { return s.residuals }

// Step advances the state machine by one transition: seeding a level,
// running one relaxation pass, or descending to the next finer level.
// It returns the state after the transition. Step never fails; a
// residual above threshold at the pass cap is a quality signal
// reported through the logger and Residuals.
func (s *Solver) Step() State {
	switch s.state {
	case Uninitialized:
		s.seedRandom(s.level)
		s.state = Seeded
	case Seeded, Converging:
		change := s.relax(s.level)
		s.pass++
		s.residuals[s.level] = append(s.residuals[s.level], change)
		switch {
		case change < s.cfg.Threshold:
			s.log.Debug("level converged",
				zap.Int("level", s.level),
				zap.Int("passes", s.pass),
				zap.Float64("residual", change))
			s.state = Converged
		case s.pass >= s.cfg.MaxPasses:
			s.log.Warn("pass cap reached before convergence",
				zap.Int("level", s.level),
				zap.Int("passes", s.pass),
				zap.Float64("residual", change))
			s.state = Converged
		default:
			s.state = Converging
		}
	case Converged:
		if s.level == 0 {
			s.state = Done
			break
		}
		s.level--
		s.pass = 0
		s.seedFromParent(s.level)
		s.state = Seeded
	case Done:
	}
	return s.state
}

// Relax immediately runs one relaxation pass over the current level
// and returns the maximum angular change, for external drivers that
// schedule passes themselves. It does not advance the state machine
// or touch the residual history. The level must have been seeded.
func (s *Solver) Relax() float64 {
	return s.relax(s.level)
}

// Solve drives the state machine to completion and returns the
// finest-level field.
func (s *Solver) Solve() *Field {
	for s.state != Done {
		s.Step()
	}
	return s.Field()
}

// Field returns the finest-level orientation field. Before the solver
// has descended to level 0 the angles are the zero seed; after any
// pass at level 0 they are valid (if possibly unconverged), so an
// early halt never yields a torn field.
func (s *Solver) Field() *Field {
	return &Field{
		level:     s.h.Levels[0],
		Angles:    s.angles[0],
		Residuals: s.residuals,
		Threshold: s.cfg.Threshold,
	}
}

// seedRandom assigns every vertex of level l an angle drawn uniformly
// from (-pi, pi].
func (s *Solver) seedRandom(l int) {
	a := s.angles[l]
	for i := range a {
		a[i] = field.Wrap(s.rng.Float64() * 2 * math.Pi)
	}
}

// seedFromParent initializes level l by transporting each vertex's
// parent angle from the coarser frame into the vertex's own frame.
func (s *Solver) seedFromParent(l int) {
	fine, coarse := s.h.Levels[l], s.h.Levels[l+1]
	for v, p := range fine.Parent {
		delta := field.Transport(coarse.Frame[p], coarse.Normal[p], fine.Frame[v], fine.Normal[v])
		s.angles[l][v] = field.Wrap(s.angles[l+1][p] + delta)
	}
}

// relax runs one Gauss-Seidel pass over level l in a fresh random
// order and returns the maximum angular change under symmetry.
// Vertices without neighbors keep their seeded angle.
//
// Each vertex folds its transported neighbors into a progressive
// weighted mean, re-reducing every neighbor against the running value.
// The vertex's old angle only anchors the first reduction; it carries
// no weight of its own, so a vertex between two 90-degree domains
// follows its ring instead of freezing on the wall.
func (s *Solver) relax(l int) float64 {
	lev := s.h.Levels[l]
	a := s.angles[l]
	perm := s.rng.Perm(len(a))
	maxChange := 0.0
	for _, v := range perm {
		ring := lev.Adj[v]
		if len(ring) == 0 {
			continue
		}
		acc, w := a[v], 0.0
		for k, j := range ring {
			wt := lev.Weight[v][k]
			acc = field.Merge(acc, w, a[j]+lev.Delta[v][k], wt)
			w += wt
		}
		if d := field.Dist(a[v], acc); d > maxChange {
			maxChange = d
		}
		a[v] = acc
	}
	return maxChange
}
