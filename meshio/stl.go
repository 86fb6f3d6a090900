package meshio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/chewxy/math32"
	"github.com/rastertail/flowguide/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrNormalMismatch flags STL triangles whose stored normal does not
// match the normal calculated from the vertices. ReadSTL still
// returns the triangles; callers may ignore the error if the model
// looks right, since many exporters write sloppy normals.
var ErrNormalMismatch = errors.New("STL normal not approximately equal to normal calculated from vertices")

const stlTriangleSize = 50

// stlHeader defines the binary STL file header.
type stlHeader struct {
	_     [80]uint8
	Count uint32
}

// stlTriangle is the 50-byte on-disk triangle record.
type stlTriangle struct {
	Normal [3]float32
	Vertex [3][3]float32
	_      uint16 // attribute byte count
}

// ReadSTL parses a binary STL stream into a triangle soup. The stored
// per-triangle normals are validated but discarded; use mesh.Weld to
// recover shared vertices before building topology.
func ReadSTL(r io.Reader) (soup [][3]r3.Vec, readErr error) {
	var header stlHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: EOF while reading STL header", mesh.ErrImport)
		}
		return nil, fmt.Errorf("%w: STL header read failed: %v", mesh.ErrImport, err)
	}
	if header.Count == 0 {
		return nil, fmt.Errorf("%w: STL header indicates 0 triangles", mesh.ErrImport)
	}
	var (
		buf            [stlTriangleSize]byte
		d              stlTriangle
		i              int
		normMismatches int
	)
	defer func() {
		if readErr != nil && !errors.Is(readErr, ErrNormalMismatch) {
			readErr = fmt.Errorf("%d/%d STL triangles read: %w", i+1, header.Count, readErr)
		}
	}()
	for i = 0; i < int(header.Count); i++ {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, fmt.Errorf("%w: %v", mesh.ErrImport, err)
		}
		d.get(buf[:])
		if err := d.validate(); err != nil {
			if !errors.Is(err, ErrNormalMismatch) {
				return nil, fmt.Errorf("%w: %v", mesh.ErrImport, err)
			}
			normMismatches++
			if normMismatches > 10_000 {
				// This may be valid output, so the triangles are
				// still returned.
				return soup, fmt.Errorf("too many STL normal mismatches (%d): %w", normMismatches, ErrNormalMismatch)
			}
			readErr = err
		}
		soup = append(soup, [3]r3.Vec{
			vecFrom3F32(d.Vertex[0]),
			vecFrom3F32(d.Vertex[1]),
			vecFrom3F32(d.Vertex[2]),
		})
	}
	return soup, readErr
}

// WriteSTL writes a triangle soup as binary STL. Normals are
// recalculated from the vertices.
func WriteSTL(w io.Writer, soup [][3]r3.Vec) error {
	if len(soup) == 0 {
		return errors.New("empty triangle slice")
	}
	header := stlHeader{Count: uint32(len(soup))}
	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return err
	}
	var b [stlTriangleSize]byte
	var d stlTriangle
	for _, tri := range soup {
		n := r3.Unit(r3.Cross(r3.Sub(tri[1], tri[0]), r3.Sub(tri[2], tri[0])))
		d.Normal = to3F32(n)
		for j := range tri {
			d.Vertex[j] = to3F32(tri[j])
		}
		d.put(b[:])
		if _, err := w.Write(b[:]); err != nil {
			return err
		}
	}
	return nil
}

func (t stlTriangle) put(b []byte) {
	if len(b) < stlTriangleSize {
		panic("need length 50 to marshal stlTriangle")
	}
	put3F32(b, t.Normal)
	put3F32(b[12:], t.Vertex[0])
	put3F32(b[24:], t.Vertex[1])
	put3F32(b[36:], t.Vertex[2])
	binary.LittleEndian.PutUint16(b[48:], 0)
}

func (t *stlTriangle) get(b []byte) {
	if len(b) < stlTriangleSize {
		panic("need length 50 to unmarshal stlTriangle")
	}
	get3F32(b, &t.Normal)
	get3F32(b[12:], &t.Vertex[0])
	get3F32(b[24:], &t.Vertex[1])
	get3F32(b[36:], &t.Vertex[2])
	// no attributes supported.
}

func put3F32(b []byte, f [3]float32) {
	_ = b[11] // early bounds check
	binary.LittleEndian.PutUint32(b, math.Float32bits(f[0]))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(f[1]))
	binary.LittleEndian.PutUint32(b[8:], math.Float32bits(f[2]))
}

func get3F32(b []byte, f *[3]float32) {
	_ = b[11] // early bounds check
	f[0] = math.Float32frombits(binary.LittleEndian.Uint32(b))
	f[1] = math.Float32frombits(binary.LittleEndian.Uint32(b[4:]))
	f[2] = math.Float32frombits(binary.LittleEndian.Uint32(b[8:]))
}

func bad3F32(f [3]float32) bool {
	return math32.IsNaN(f[0]) || math32.IsInf(f[0], 0) ||
		math32.IsNaN(f[1]) || math32.IsInf(f[1], 0) ||
		math32.IsNaN(f[2]) || math32.IsInf(f[2], 0)
}

func (t stlTriangle) validate() error {
	const tol = 1e-12
	const normTol = 5e-2
	if bad3F32(t.Normal) {
		return errors.New("inf/NaN STL triangle normal")
	}
	if bad3F32(t.Vertex[0]) || bad3F32(t.Vertex[1]) || bad3F32(t.Vertex[2]) {
		return errors.New("inf/NaN STL triangle vertex")
	}
	if equalWithin3F32(t.Vertex[0], t.Vertex[1], tol) ||
		equalWithin3F32(t.Vertex[1], t.Vertex[2], tol) ||
		equalWithin3F32(t.Vertex[2], t.Vertex[0], tol) {
		return errors.New("STL triangle is degenerate")
	}
	v1, v2, v3 := vecFrom3F32(t.Vertex[0]), vecFrom3F32(t.Vertex[1]), vecFrom3F32(t.Vertex[2])
	calc := to3F32(r3.Unit(r3.Cross(r3.Sub(v2, v1), r3.Sub(v3, v1))))
	calcNeg := [3]float32{-calc[0], -calc[1], -calc[2]}
	if !equalWithin3F32(calc, t.Normal, normTol) && !equalWithin3F32(calcNeg, t.Normal, normTol) {
		return ErrNormalMismatch
	}
	return nil
}

func equalWithin3F32(a, b [3]float32, tol float32) bool {
	return math32.Abs(a[0]-b[0]) <= tol &&
		math32.Abs(a[1]-b[1]) <= tol &&
		math32.Abs(a[2]-b[2]) <= tol
}

func vecFrom3F32(f [3]float32) r3.Vec {
	return r3.Vec{X: float64(f[0]), Y: float64(f[1]), Z: float64(f[2])}
}

func to3F32(v r3.Vec) [3]float32 {
	return [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
}
