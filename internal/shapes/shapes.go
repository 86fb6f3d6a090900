// Package shapes generates small deterministic test meshes.
package shapes

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// PlaneGrid returns an nx by ny vertex grid in the z=0 plane with
// unit spacing, uniformly tessellated into triangles with consistent
// counter-clockwise winding (normals +z).
func PlaneGrid(nx, ny int) ([]r3.Vec, [][3]int) {
	verts := make([]r3.Vec, 0, nx*ny)
	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			verts = append(verts, r3.Vec{X: float64(x), Y: float64(y)})
		}
	}
	var tris [][3]int
	for y := 0; y < ny-1; y++ {
		for x := 0; x < nx-1; x++ {
			a := y*nx + x
			b := a + 1
			c := a + nx
			d := c + 1
			tris = append(tris, [3]int{a, b, d}, [3]int{a, d, c})
		}
	}
	return verts, tris
}

// Sphere returns a UV sphere of the given radius with rings latitude
// bands and segs longitude segments. The poles are single vertices;
// winding is outward.
func Sphere(radius float64, rings, segs int) ([]r3.Vec, [][3]int) {
	var verts []r3.Vec
	verts = append(verts, r3.Vec{Z: radius}) // north pole
	for i := 1; i < rings; i++ {
		phi := math.Pi * float64(i) / float64(rings)
		z := radius * math.Cos(phi)
		r := radius * math.Sin(phi)
		for j := 0; j < segs; j++ {
			theta := 2 * math.Pi * float64(j) / float64(segs)
			verts = append(verts, r3.Vec{
				X: r * math.Cos(theta),
				Y: r * math.Sin(theta),
				Z: z,
			})
		}
	}
	south := len(verts)
	verts = append(verts, r3.Vec{Z: -radius})

	ring := func(i, j int) int { return 1 + (i-1)*segs + j%segs }
	var tris [][3]int
	for j := 0; j < segs; j++ {
		tris = append(tris, [3]int{0, ring(1, j), ring(1, j+1)})
	}
	for i := 1; i < rings-1; i++ {
		for j := 0; j < segs; j++ {
			a, b := ring(i, j), ring(i, j+1)
			c, d := ring(i+1, j), ring(i+1, j+1)
			tris = append(tris, [3]int{a, c, d}, [3]int{a, d, b})
		}
	}
	for j := 0; j < segs; j++ {
		tris = append(tris, [3]int{south, ring(rings-1, j+1), ring(rings-1, j)})
	}
	return verts, tris
}
