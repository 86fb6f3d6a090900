package mesh

import (
	"fmt"
	"math"

	"github.com/rastertail/flowguide/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Weld merges the shared vertices of a triangle soup, such as the
// output of an STL reader, into an indexed vertex and face list fit
// for New. Vertices closer than tol are considered identical.
// tol should be of the order of 1/1000th of the smallest triangle
// side in the model. If set to 0 it is inferred automatically.
func Weld(soup [][3]r3.Vec, tol float64) ([]r3.Vec, [][3]int, error) {
	if len(soup) == 0 {
		return nil, nil, fmt.Errorf("%w: no triangles", ErrDegenerateMesh)
	}
	bb := [2]r3.Vec{d3.Elem(math.MaxFloat64), d3.Elem(-math.MaxFloat64)}
	minSide2 := math.MaxFloat64
	maxSide2 := -math.MaxFloat64
	for i := range soup {
		for j, vert := range soup[i] {
			bb[0] = d3.MinElem(bb[0], vert)
			bb[1] = d3.MaxElem(bb[1], vert)
			side2 := r3.Norm2(r3.Sub(soup[i][(j+1)%3], vert))
			minSide2 = math.Min(minSide2, side2)
			maxSide2 = math.Max(maxSide2, side2)
		}
	}
	suggested := math.Sqrt(minSide2) / 256
	if tol > math.Sqrt(maxSide2)/2 {
		return nil, nil, fmt.Errorf("%w: weld tolerance too large, suggested tolerance: %g", ErrImport, suggested)
	}
	if tol == 0 {
		tol = suggested
	}
	size := r3.Sub(bb[1], bb[0])
	maxDim := math.Max(size.X, math.Max(size.Y, size.Z))
	div := int64(maxDim/tol + 1e-12)
	if div <= 0 {
		return nil, nil, fmt.Errorf("%w: weld tolerance larger than model size", ErrImport)
	}
	if div > math.MaxInt64/2 {
		return nil, nil, fmt.Errorf("%w: weld tolerance too small, overflowed int64", ErrImport)
	}

	// Quantize vertices to resolution-space integers and share
	// indices through a cache.
	cache := make(map[[3]int64]int)
	ri := 1 / tol
	var verts []r3.Vec
	tris := make([][3]int, 0, len(soup))
	for _, tri := range soup {
		var idx [3]int
		for j, vert := range tri {
			v := r3.Scale(ri, vert)
			vi := [3]int64{int64(v.X), int64(v.Y), int64(v.Z)}
			vertexIdx, ok := cache[vi]
			if !ok {
				vertexIdx = len(verts)
				cache[vi] = vertexIdx
				verts = append(verts, vert)
			}
			idx[j] = vertexIdx
		}
		if idx[0] == idx[1] || idx[1] == idx[2] || idx[2] == idx[0] {
			continue // sliver collapsed by welding
		}
		tris = append(tris, idx)
	}
	return verts, tris, nil
}
