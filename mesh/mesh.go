// Package mesh builds the immutable adjacency representation of a
// triangulated surface that the orientation solver operates on:
// per-vertex one-rings in fan order, area-weighted vertex normals and
// barycentric dual areas. Construction validates the input and is the
// only point where structural errors surface; a built Mesh never
// mutates and is safe for concurrent reads.
package mesh

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

// NonManifoldPolicy selects how construction treats vertices whose
// incident faces do not form a single fan.
type NonManifoldPolicy uint8

const (
	// Repair keeps going: the offending vertex gets a best-effort
	// one-ring (all incident neighbors in ascending id order) and is
	// recorded in Mesh.NonManifold.
	Repair NonManifoldPolicy = iota
	// Reject fails construction with ErrTopology.
	Reject
)

// Options configure Mesh construction.
type Options struct {
	NonManifold NonManifoldPolicy
}

// Mesh is an immutable indexed triangle mesh with adjacency.
type Mesh struct {
	pos      []r3.Vec
	tris     [][3]int
	normal   []r3.Vec
	dualArea []float64
	adj      [][]int
	repaired []int
}

// New validates positions and faces and builds the adjacency
// structure. Faces must be 0-based triangles with consistent winding.
func New(pos []r3.Vec, tris [][3]int, opts Options) (*Mesh, error) {
	if len(pos) == 0 {
		return nil, fmt.Errorf("%w: no vertices", ErrDegenerateMesh)
	}
	for i, t := range tris {
		for _, v := range t {
			if v < 0 || v >= len(pos) {
				return nil, fmt.Errorf("%w: face %d references vertex %d of %d", ErrImport, i, v, len(pos))
			}
		}
		if t[0] == t[1] || t[1] == t[2] || t[2] == t[0] {
			return nil, fmt.Errorf("%w: face %d repeats a vertex", ErrImport, i)
		}
	}

	m := &Mesh{
		pos:      pos,
		tris:     tris,
		normal:   make([]r3.Vec, len(pos)),
		dualArea: make([]float64, len(pos)),
		adj:      make([][]int, len(pos)),
	}
	m.buildNormals()
	if err := m.buildAdjacency(opts); err != nil {
		return nil, err
	}
	return m, nil
}

// NumVertices returns the vertex count.
func (m *Mesh) NumVertices() int { return len(m.pos) }

// NumTriangles returns the face count.
func (m *Mesh) NumTriangles() int { return len(m.tris) }

// Pos returns the position of vertex i.
func (m *Mesh) Pos(i int) r3.Vec { return m.pos[i] }

// Normal returns the unit area-weighted vertex normal of vertex i.
func (m *Mesh) Normal(i int) r3.Vec { return m.normal[i] }

// DualArea returns the barycentric dual area of vertex i, one third
// of the total area of its incident faces.
func (m *Mesh) DualArea(i int) float64 { return m.dualArea[i] }

// Neighbors returns the one-ring of vertex i in fan order. The slice
// is owned by the mesh and must not be modified.
func (m *Mesh) Neighbors(i int) []int { return m.adj[i] }

// Triangle returns face i.
func (m *Mesh) Triangle(i int) [3]int { return m.tris[i] }

// NonManifold lists vertices that received a best-effort one-ring
// under the Repair policy, in ascending order. Empty for clean input.
func (m *Mesh) NonManifold() []int { return m.repaired }

func (m *Mesh) buildNormals() {
	for _, t := range m.tris {
		a, b, c := m.pos[t[0]], m.pos[t[1]], m.pos[t[2]]
		// The cross product's magnitude is twice the face area, so
		// accumulating raw cross products area-weights the average.
		n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
		area := 0.5 * r3.Norm(n)
		for _, v := range t {
			m.normal[v] = r3.Add(m.normal[v], n)
			m.dualArea[v] += area / 3
		}
	}
	for i := range m.normal {
		if r3.Norm2(m.normal[i]) == 0 {
			// Isolated vertex or fully degenerate ring. Any fixed
			// unit normal keeps the frame construction well defined.
			m.normal[i] = r3.Vec{Z: 1}
			continue
		}
		m.normal[i] = r3.Unit(m.normal[i])
	}
}

// buildAdjacency orders each vertex's one-ring by walking successor
// half-edges. For a triangle (v, a, b) the neighbor after a around v
// is b; a closed manifold ring walks back to its start and a boundary
// ring has exactly one fan start.
func (m *Mesh) buildAdjacency(opts Options) error {
	succ := make([]map[int]int, len(m.pos))
	incoming := make([]map[int]bool, len(m.pos))
	winding := make([]bool, len(m.pos)) // duplicate successor seen
	add := func(v, a, b int) {
		if succ[v] == nil {
			succ[v] = make(map[int]int, 8)
			incoming[v] = make(map[int]bool, 8)
		}
		if _, dup := succ[v][a]; dup {
			winding[v] = true
		}
		succ[v][a] = b
		incoming[v][b] = true
	}
	for _, t := range m.tris {
		add(t[0], t[1], t[2])
		add(t[1], t[2], t[0])
		add(t[2], t[0], t[1])
	}

	for v := range m.adj {
		if succ[v] == nil {
			continue // isolated vertex, empty one-ring
		}
		ring, ok := fanOrder(succ[v], incoming[v])
		if ok && !winding[v] {
			m.adj[v] = ring
			continue
		}
		if opts.NonManifold == Reject {
			return fmt.Errorf("%w: vertex %d", ErrTopology, v)
		}
		m.adj[v] = collapsedRing(succ[v], incoming[v])
		m.repaired = append(m.repaired, v)
	}
	return nil
}

// fanOrder walks successor links into a single ordered fan. It
// reports false when the incident faces form more than one fan, which
// is the non-manifold case.
func fanOrder(succ map[int]int, incoming map[int]bool) ([]int, bool) {
	// A boundary fan starts at the unique neighbor with no incoming
	// half-edge. A closed ring has none; start at the smallest id so
	// the ordering is deterministic.
	start, starts := -1, 0
	for a := range succ {
		if !incoming[a] {
			starts++
			start = a
		}
	}
	if starts > 1 {
		return nil, false
	}
	if starts == 0 {
		for a := range succ {
			if start < 0 || a < start {
				start = a
			}
		}
	}

	total := len(succ)
	for b := range incoming {
		if _, out := succ[b]; !out {
			total++
		}
	}
	ring := make([]int, 0, total)
	for w := start; ; {
		ring = append(ring, w)
		next, ok := succ[w]
		if !ok {
			break // boundary fan end
		}
		if next == start {
			break // closed ring
		}
		if len(ring) > total {
			return nil, false // cycle not through start
		}
		w = next
	}
	return ring, len(ring) == total
}

// collapsedRing is the best-effort one-ring for repaired vertices:
// every incident neighbor once, ascending.
func collapsedRing(succ map[int]int, incoming map[int]bool) []int {
	seen := make(map[int]bool, len(succ)+len(incoming))
	for a := range succ {
		seen[a] = true
	}
	for b := range incoming {
		seen[b] = true
	}
	ring := make([]int, 0, len(seen))
	for a := range seen {
		ring = append(ring, a)
	}
	sort.Ints(ring)
	return ring
}
