package mesh

import "errors"

// Construction-time error classes. All structural problems are
// detected while building a Mesh or a hierarchy level and reported
// immediately; nothing downstream of a successful construction fails.
// Wrapped errors carry detail and match these sentinels via errors.Is.
var (
	// ErrImport indicates malformed input geometry: face indices out
	// of range or a face with a repeated vertex.
	ErrImport = errors.New("malformed input mesh")
	// ErrTopology indicates a non-manifold vertex under the Reject
	// policy: more than two boundary half-edges, or inconsistent
	// winding among incident faces.
	ErrTopology = errors.New("non-manifold mesh topology")
	// ErrDegenerateMesh indicates input the solver has no fallback
	// for: an empty mesh, or a graph level with no edges at all.
	ErrDegenerateMesh = errors.New("degenerate mesh")
)
