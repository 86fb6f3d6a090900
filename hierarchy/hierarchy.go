// Package hierarchy coarsens a mesh into a cascade of adjacency
// graphs for multi-resolution smoothing. Each level halves (at best)
// the vertex count of the one below it by greedily merging ranked
// vertex pairs; parent indices link every fine vertex to its coarse
// representative. Levels precompute the tangent frames and transport
// angles the orientation solver consumes.
package hierarchy

import (
	"fmt"
	"math"
	"sort"

	"github.com/rastertail/flowguide/field"
	"github.com/rastertail/flowguide/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// Weighting selects the neighbor weight policy used during relaxation.
type Weighting uint8

const (
	// Uniform gives every neighbor equal weight.
	Uniform Weighting = iota
	// InverseLength weights each neighbor by the reciprocal of the
	// edge length, favoring close neighbors.
	InverseLength
)

// DefaultMinVertices is the coarsening floor: no level is produced
// with fewer vertices than this, avoiding degenerate single-vertex
// hierarchies.
const DefaultMinVertices = 24

// Options configure hierarchy construction.
type Options struct {
	// MinVertices is the coarsening floor. Zero means
	// DefaultMinVertices.
	MinVertices int
	Weighting   Weighting
}

// Level is one layer of the hierarchy. Index 0 is the finest level,
// sharing the vertex set of the input mesh. All slices are arena
// style: cross-level links are plain indices, never references.
type Level struct {
	Pos      []r3.Vec
	Normal   []r3.Vec
	DualArea []float64
	Frame    []field.Frame
	// Adj[v] lists v's neighbors. Delta[v][k] re-expresses an angle
	// from Adj[v][k]'s frame in v's frame by addition; Weight[v][k]
	// is the relaxation weight of that neighbor.
	Adj    [][]int
	Delta  [][]float64
	Weight [][]float64
	// Parent maps each vertex to its representative at the next
	// coarser level. Nil at the coarsest level only.
	Parent []int
	// Edges is the undirected edge count of the level.
	Edges int
}

// Hierarchy is the full cascade. Levels[0] is the finest.
type Hierarchy struct {
	Levels []*Level
}

// Depth returns the number of levels.
func (h *Hierarchy) Depth() int { return len(h.Levels) }

// Coarsest returns the last (coarsest) level.
func (h *Hierarchy) Coarsest() *Level { return h.Levels[len(h.Levels)-1] }

// Build constructs the cascade for m. The finest level mirrors the
// mesh; coarser levels are produced until the floor is reached or no
// further pair merge is possible.
func Build(m *mesh.Mesh, opts Options) (*Hierarchy, error) {
	if opts.MinVertices <= 0 {
		opts.MinVertices = DefaultMinVertices
	}
	l0 := levelFromMesh(m)
	if err := finalize(l0, opts.Weighting); err != nil {
		return nil, err
	}
	h := &Hierarchy{Levels: []*Level{l0}}
	for {
		cur := h.Levels[len(h.Levels)-1]
		next, parent, merged := coarsen(cur)
		if merged == 0 || len(next.Pos) >= len(cur.Pos) || len(next.Pos) < opts.MinVertices {
			break
		}
		if err := finalize(next, opts.Weighting); err != nil {
			return nil, err
		}
		cur.Parent = parent
		h.Levels = append(h.Levels, next)
	}
	return h, nil
}

func levelFromMesh(m *mesh.Mesh) *Level {
	n := m.NumVertices()
	l := &Level{
		Pos:      make([]r3.Vec, n),
		Normal:   make([]r3.Vec, n),
		DualArea: make([]float64, n),
		Adj:      make([][]int, n),
	}
	for i := 0; i < n; i++ {
		l.Pos[i] = m.Pos(i)
		l.Normal[i] = m.Normal(i)
		l.DualArea[i] = m.DualArea(i)
		l.Adj[i] = m.Neighbors(i)
	}
	return l
}

// finalize derives frames, transport angles and weights from the
// level's positions, normals and adjacency.
func finalize(l *Level, w Weighting) error {
	n := len(l.Pos)
	l.Frame = make([]field.Frame, n)
	for i := range l.Frame {
		l.Frame[i] = field.NewFrame(l.Normal[i])
	}
	l.Delta = make([][]float64, n)
	l.Weight = make([][]float64, n)
	directed := 0
	for v := range l.Adj {
		ring := l.Adj[v]
		if len(ring) == 0 {
			continue
		}
		directed += len(ring)
		l.Delta[v] = make([]float64, len(ring))
		l.Weight[v] = make([]float64, len(ring))
		for k, j := range ring {
			l.Delta[v][k] = field.Transport(l.Frame[j], l.Normal[j], l.Frame[v], l.Normal[v])
			switch w {
			case InverseLength:
				d := r3.Norm(r3.Sub(l.Pos[j], l.Pos[v]))
				l.Weight[v][k] = 1 / math.Max(d, 1e-12)
			default:
				l.Weight[v][k] = 1
			}
		}
	}
	l.Edges = directed / 2
	if n > 1 && l.Edges == 0 {
		return fmt.Errorf("%w: level with %d vertices has no edges", mesh.ErrDegenerateMesh, n)
	}
	return nil
}

type rankedPair struct {
	i, j int
	rank float64
}

// coarsen merges ranked vertex pairs of l into a new level. Pairs
// with well aligned normals and unequal dual areas merge first, which
// keeps cluster areas balanced as levels stack. Returns the new
// level, the parent mapping for l and the number of pair merges.
func coarsen(l *Level) (*Level, []int, int) {
	var pairs []rankedPair
	for i := range l.Adj {
		ai := l.DualArea[i]
		for _, j := range l.Adj[i] {
			if j < i {
				continue // one entry per undirected edge
			}
			aj := l.DualArea[j]
			ratio := ai / aj
			if aj > ai {
				ratio = aj / ai
			}
			pairs = append(pairs, rankedPair{i: i, j: j, rank: r3.Dot(l.Normal[i], l.Normal[j]) * ratio})
		}
	}
	sort.Slice(pairs, func(a, b int) bool {
		pa, pb := pairs[a], pairs[b]
		if pa.rank != pb.rank {
			return pa.rank > pb.rank
		}
		if pa.i != pb.i {
			return pa.i < pb.i
		}
		return pa.j < pb.j
	})

	next := &Level{}
	parent := make([]int, len(l.Pos))
	for i := range parent {
		parent[i] = -1
	}
	merged := 0
	for _, p := range pairs {
		if parent[p.i] >= 0 || parent[p.j] >= 0 {
			continue
		}
		ai, aj := l.DualArea[p.i], l.DualArea[p.j]
		at := ai + aj
		parent[p.i] = len(next.Pos)
		parent[p.j] = len(next.Pos)
		next.Pos = append(next.Pos, r3.Scale(1/at, r3.Add(r3.Scale(ai, l.Pos[p.i]), r3.Scale(aj, l.Pos[p.j]))))
		next.Normal = append(next.Normal, r3.Unit(r3.Add(r3.Scale(ai, l.Normal[p.i]), r3.Scale(aj, l.Normal[p.j]))))
		next.DualArea = append(next.DualArea, at)
		merged++
	}
	// Unpaired vertices are promoted as-is.
	for i, p := range parent {
		if p >= 0 {
			continue
		}
		parent[i] = len(next.Pos)
		next.Pos = append(next.Pos, l.Pos[i])
		next.Normal = append(next.Normal, l.Normal[i])
		next.DualArea = append(next.DualArea, l.DualArea[i])
	}

	// A coarse edge exists wherever a fine edge crosses two clusters.
	next.Adj = make([][]int, len(next.Pos))
	for i := range l.Adj {
		iu := parent[i]
		for _, j := range l.Adj[i] {
			if ju := parent[j]; ju != iu {
				next.Adj[iu] = append(next.Adj[iu], ju)
			}
		}
	}
	for v := range next.Adj {
		ring := next.Adj[v]
		sort.Ints(ring)
		next.Adj[v] = dedup(ring)
	}
	return next, parent, merged
}

func dedup(sorted []int) []int {
	out := sorted[:0]
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			out = append(out, v)
		}
	}
	return out
}
