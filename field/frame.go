// Package field implements the tangent-frame algebra of a 4-RoSy
// orientation field: local orthonormal bases derived from vertex
// normals, angle arithmetic under the 90-degree rotational symmetry,
// and parallel transport of angles between neighboring frames.
package field

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Symmetry is the angular period of the 4-RoSy symmetry group.
const Symmetry = math.Pi / 2

// Frame is a local 2D tangent basis at a vertex. U and V are unit
// vectors orthogonal to each other and to the vertex normal they were
// derived from. An orientation angle theta names the tangent direction
// cos(theta)*U + sin(theta)*V.
type Frame struct {
	U, V r3.Vec
}

// NewFrame derives a tangent frame from a unit normal using the
// branchless stable basis construction. The result depends only on n,
// so independent runs over the same mesh produce identical frames.
func NewFrame(n r3.Vec) Frame {
	sign := math.Copysign(1, n.Z)
	a := -1 / (sign + n.Z)
	b := n.X * n.Y * a
	return Frame{
		U: r3.Vec{X: 1 + sign*n.X*n.X*a, Y: sign * b, Z: -sign * n.X},
		V: r3.Vec{X: b, Y: sign + n.Y*n.Y*a, Z: -n.Y},
	}
}

// Dir returns the concrete 3D tangent direction named by theta.
func (f Frame) Dir(theta float64) r3.Vec {
	s, c := math.Sincos(theta)
	return r3.Add(r3.Scale(c, f.U), r3.Scale(s, f.V))
}

// Angle is the inverse of Dir for directions lying in the frame plane.
// Directions with an out-of-plane component are projected first.
func (f Frame) Angle(d r3.Vec) float64 {
	return math.Atan2(r3.Dot(d, f.V), r3.Dot(d, f.U))
}

// Wrap maps theta into (-pi, pi].
func Wrap(theta float64) float64 {
	theta = math.Mod(theta, 2*math.Pi)
	if theta > math.Pi {
		theta -= 2 * math.Pi
	} else if theta <= -math.Pi {
		theta += 2 * math.Pi
	}
	return theta
}

// Representative returns the member of theta's 4-RoSy equivalence
// class {theta + k*pi/2} closest to ref. Exact half-way ties resolve
// away from zero difference, which is deterministic across runs.
func Representative(theta, ref float64) float64 {
	d := Wrap(theta - ref)
	k := math.Round(d / Symmetry)
	return ref + d - k*Symmetry
}

// Dist returns the angular distance between a and b under 4-RoSy
// symmetry. The result is in [0, pi/4].
func Dist(a, b float64) float64 {
	d := Wrap(a - b)
	d -= math.Round(d/Symmetry) * Symmetry
	return math.Abs(d)
}

// Merge folds theta into a running weighted mean acc carrying total
// weight w and returns the updated mean. theta is reduced to its
// symmetry representative nearest the RUNNING mean, not a fixed
// reference, so successive merges can walk across a 90-degree branch
// cut; reducing every angle against one stale reference instead makes
// opposing representatives cancel and pins the mean in place. With
// w == 0 the result is theta's representative relative to acc. wt must
// be positive.
func Merge(acc, w, theta, wt float64) float64 {
	r := Representative(theta, acc)
	return Wrap((w*acc + wt*r) / (w + wt))
}
