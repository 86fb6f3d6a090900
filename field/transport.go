package field

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Transport computes the angle delta such that a direction with angle
// theta in frame A corresponds to the direction with angle
// theta + delta in frame B, for frames at the two endpoints of a mesh
// edge. A's U axis is rotated about the common edge axis so its normal
// aligns with B's, projected into B's tangent plane and measured in
// B's basis. Transport(B, A) is the near-exact negation of
// Transport(A, B); the residual is floating-point only.
func Transport(fa Frame, na r3.Vec, fb Frame, nb r3.Vec) float64 {
	t := rotateInto(fa.U, na, nb)
	// Projection guards against rounding drift out of B's plane.
	t = r3.Sub(t, r3.Scale(r3.Dot(t, nb), nb))
	if r3.Norm2(t) == 0 {
		return 0
	}
	return math.Atan2(r3.Dot(t, fb.V), r3.Dot(t, fb.U))
}

// rotateInto rotates v by the rotation taking unit vector from onto
// unit vector to, about their common perpendicular. Nearly parallel
// normals leave v unchanged; the subsequent plane projection absorbs
// the tiny discrepancy. Antiparallel normals have no preferred axis
// and also fall back to projection alone.
func rotateInto(v, from, to r3.Vec) r3.Vec {
	axis := r3.Cross(from, to)
	s2 := r3.Norm2(axis)
	if s2 < 1e-30 {
		return v
	}
	s := math.Sqrt(s2)
	c := r3.Dot(from, to)
	k := r3.Scale(1/s, axis)
	// Rodrigues rotation about unit axis k by the dihedral angle.
	return r3.Add(
		r3.Add(r3.Scale(c, v), r3.Scale(s, r3.Cross(k, v))),
		r3.Scale(r3.Dot(k, v)*(1-c), k),
	)
}
