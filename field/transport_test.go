package field

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestTransportIdentity(t *testing.T) {
	n := r3.Unit(r3.Vec{X: 0.2, Y: -0.4, Z: 0.9})
	f := NewFrame(n)
	if d := Transport(f, n, f, n); math.Abs(d) > 1e-12 {
		t.Errorf("transport between identical frames = %g, want 0", d)
	}
}

func TestTransportNearInverse(t *testing.T) {
	// Transporting A->B then B->A must return within a small angular
	// epsilon of the original for arbitrary frame pairs.
	const eps = 1e-9
	rng := rand.New(rand.NewSource(5))
	for i := 0; i < 500; i++ {
		na := randomUnit(rng)
		nb := randomUnit(rng)
		if r3.Dot(na, nb) < -0.99 {
			continue // antiparallel normals have no preferred transport
		}
		fa, fb := NewFrame(na), NewFrame(nb)
		ab := Transport(fa, na, fb, nb)
		ba := Transport(fb, nb, fa, na)
		if d := math.Abs(Wrap(ab + ba)); d > eps {
			t.Fatalf("transport round trip residual %g for normals %v, %v", d, na, nb)
		}
	}
}

func TestTransportPreservesDirection(t *testing.T) {
	// The transported angle must name the direction that the
	// rotated-and-projected 3D direction actually has in the target
	// frame.
	rng := rand.New(rand.NewSource(9))
	for i := 0; i < 200; i++ {
		na := randomUnit(rng)
		nb := randomUnit(rng)
		if r3.Dot(na, nb) < 0.1 {
			continue // keep dihedral angles moderate, as on a mesh edge
		}
		fa, fb := NewFrame(na), NewFrame(nb)
		theta := rng.Float64()*2*math.Pi - math.Pi
		delta := Transport(fa, na, fb, nb)

		d := rotateInto(fa.Dir(theta), na, nb)
		d = r3.Unit(r3.Sub(d, r3.Scale(r3.Dot(d, nb), nb)))
		want := fb.Angle(d)
		if diff := math.Abs(Wrap(theta + delta - want)); diff > 1e-9 {
			t.Fatalf("transported angle off by %g", diff)
		}
	}
}
