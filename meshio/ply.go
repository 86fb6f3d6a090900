// Package meshio reads and writes the triangle mesh file formats the
// orientation pipeline accepts: PLY (ascii and both binary flavors)
// and binary STL. Readers return raw geometry; topology validation
// belongs to package mesh.
package meshio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/rastertail/flowguide/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

type plyFormat uint8

const (
	plyAscii plyFormat = iota
	plyBigEndian
	plyLittleEndian
)

type scalarType uint8

const (
	scalarI8 scalarType = iota
	scalarU8
	scalarI16
	scalarU16
	scalarI32
	scalarU32
	scalarF32
	scalarF64
)

var scalarSize = [...]int{1, 1, 2, 2, 4, 4, 4, 8}

func parseScalarType(tok string) (scalarType, error) {
	switch tok {
	case "int8", "char":
		return scalarI8, nil
	case "uint8", "uchar":
		return scalarU8, nil
	case "int16", "short":
		return scalarI16, nil
	case "uint16", "ushort":
		return scalarU16, nil
	case "int32", "int":
		return scalarI32, nil
	case "uint32", "uint":
		return scalarU32, nil
	case "float32", "float":
		return scalarF32, nil
	case "float64", "double":
		return scalarF64, nil
	}
	return 0, fmt.Errorf("%w: unknown PLY scalar type %q", mesh.ErrImport, tok)
}

type plyProperty struct {
	name     string
	list     bool
	lenType  scalarType // list length type; meaningful when list
	elemType scalarType
}

type plyElement struct {
	name  string
	count int
	props []plyProperty
}

// ReadPLY parses a PLY mesh and returns vertex positions and
// triangulated faces. Faces with more than three indices are fan
// triangulated; unknown elements and properties are skipped. Normals
// stored in the file are ignored, the mesh package recomputes them.
func ReadPLY(r io.Reader) ([]r3.Vec, [][3]int, error) {
	br := bufio.NewReader(r)
	format, elements, err := readPLYHeader(br)
	if err != nil {
		return nil, nil, err
	}
	switch format {
	case plyAscii:
		return readPLYBody(asciiScalarReader(br), elements)
	case plyBigEndian:
		return readPLYBody(binaryScalarReader(br, binary.BigEndian), elements)
	default:
		return readPLYBody(binaryScalarReader(br, binary.LittleEndian), elements)
	}
}

func readPLYHeader(br *bufio.Reader) (plyFormat, []plyElement, error) {
	line, err := readHeaderLine(br)
	if err != nil || line != "ply" {
		return 0, nil, fmt.Errorf("%w: invalid PLY magic", mesh.ErrImport)
	}
	line, err = readHeaderLine(br)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: missing PLY format line", mesh.ErrImport)
	}
	tok := strings.Fields(line)
	if len(tok) < 2 || tok[0] != "format" {
		return 0, nil, fmt.Errorf("%w: missing PLY format line", mesh.ErrImport)
	}
	var format plyFormat
	switch tok[1] {
	case "ascii":
		format = plyAscii
	case "binary_big_endian":
		format = plyBigEndian
	case "binary_little_endian":
		format = plyLittleEndian
	default:
		return 0, nil, fmt.Errorf("%w: unknown PLY format %q", mesh.ErrImport, tok[1])
	}

	var elements []plyElement
	for {
		line, err = readHeaderLine(br)
		if err != nil {
			return 0, nil, fmt.Errorf("%w: PLY header truncated", mesh.ErrImport)
		}
		tok = strings.Fields(line)
		if len(tok) == 0 {
			continue
		}
		switch tok[0] {
		case "comment", "obj_info":
		case "element":
			if len(tok) != 3 {
				return 0, nil, fmt.Errorf("%w: malformed PLY element line", mesh.ErrImport)
			}
			count, err := strconv.Atoi(tok[2])
			if err != nil || count < 0 {
				return 0, nil, fmt.Errorf("%w: bad PLY element count %q", mesh.ErrImport, tok[2])
			}
			elements = append(elements, plyElement{name: tok[1], count: count})
		case "property":
			if len(elements) == 0 {
				return 0, nil, fmt.Errorf("%w: PLY property before any element", mesh.ErrImport)
			}
			prop, err := parsePLYProperty(tok[1:])
			if err != nil {
				return 0, nil, err
			}
			el := &elements[len(elements)-1]
			el.props = append(el.props, prop)
		case "end_header":
			return format, elements, nil
		default:
			return 0, nil, fmt.Errorf("%w: unexpected PLY header line %q", mesh.ErrImport, tok[0])
		}
	}
}

func parsePLYProperty(tok []string) (plyProperty, error) {
	if len(tok) == 0 {
		return plyProperty{}, fmt.Errorf("%w: empty PLY property", mesh.ErrImport)
	}
	if tok[0] == "list" {
		if len(tok) != 4 {
			return plyProperty{}, fmt.Errorf("%w: malformed PLY list property", mesh.ErrImport)
		}
		lenType, err := parseScalarType(tok[1])
		if err != nil {
			return plyProperty{}, err
		}
		elemType, err := parseScalarType(tok[2])
		if err != nil {
			return plyProperty{}, err
		}
		return plyProperty{name: tok[3], list: true, lenType: lenType, elemType: elemType}, nil
	}
	if len(tok) != 2 {
		return plyProperty{}, fmt.Errorf("%w: malformed PLY property", mesh.ErrImport)
	}
	elemType, err := parseScalarType(tok[0])
	if err != nil {
		return plyProperty{}, err
	}
	return plyProperty{name: tok[1], elemType: elemType}, nil
}

func readHeaderLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// scalarReader yields the next scalar of a given type from the body,
// abstracting over the ascii and binary encodings.
type scalarReader func(t scalarType) (float64, error)

func binaryScalarReader(br *bufio.Reader, order binary.ByteOrder) scalarReader {
	var buf [8]byte
	return func(t scalarType) (float64, error) {
		b := buf[:scalarSize[t]]
		if _, err := io.ReadFull(br, b); err != nil {
			return 0, fmt.Errorf("%w: PLY body truncated: %v", mesh.ErrImport, err)
		}
		switch t {
		case scalarI8:
			return float64(int8(b[0])), nil
		case scalarU8:
			return float64(b[0]), nil
		case scalarI16:
			return float64(int16(order.Uint16(b))), nil
		case scalarU16:
			return float64(order.Uint16(b)), nil
		case scalarI32:
			return float64(int32(order.Uint32(b))), nil
		case scalarU32:
			return float64(order.Uint32(b)), nil
		case scalarF32:
			return float64(math.Float32frombits(order.Uint32(b))), nil
		default:
			return math.Float64frombits(order.Uint64(b)), nil
		}
	}
}

func asciiScalarReader(br *bufio.Reader) scalarReader {
	sc := bufio.NewScanner(br)
	sc.Split(bufio.ScanWords)
	return func(t scalarType) (float64, error) {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return 0, fmt.Errorf("%w: PLY body read: %v", mesh.ErrImport, err)
			}
			return 0, fmt.Errorf("%w: PLY body truncated", mesh.ErrImport)
		}
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: bad PLY value %q", mesh.ErrImport, sc.Text())
		}
		return v, nil
	}
}

func readPLYBody(next scalarReader, elements []plyElement) ([]r3.Vec, [][3]int, error) {
	var verts []r3.Vec
	var tris [][3]int
	indices := make([]int, 0, 8)
	for _, el := range elements {
		isVertex := el.name == "vertex"
		isFace := el.name == "face"
		for i := 0; i < el.count; i++ {
			var v r3.Vec
			indices = indices[:0]
			for _, prop := range el.props {
				if !prop.list {
					val, err := next(prop.elemType)
					if err != nil {
						return nil, nil, err
					}
					if isVertex {
						switch prop.name {
						case "x":
							v.X = val
						case "y":
							v.Y = val
						case "z":
							v.Z = val
						}
					}
					continue
				}
				nval, err := next(prop.lenType)
				if err != nil {
					return nil, nil, err
				}
				n := int(nval)
				if n < 0 {
					return nil, nil, fmt.Errorf("%w: negative PLY list length", mesh.ErrImport)
				}
				wantIndices := isFace && (prop.name == "vertex_indices" || prop.name == "vertex_index")
				for k := 0; k < n; k++ {
					val, err := next(prop.elemType)
					if err != nil {
						return nil, nil, err
					}
					if wantIndices {
						indices = append(indices, int(val))
					}
				}
			}
			if isVertex {
				verts = append(verts, v)
			}
			if isFace {
				if len(indices) < 3 {
					return nil, nil, fmt.Errorf("%w: PLY face with %d indices", mesh.ErrImport, len(indices))
				}
				// Fan triangulation of convex n-gons.
				for k := 2; k < len(indices); k++ {
					tris = append(tris, [3]int{indices[0], indices[k-1], indices[k]})
				}
			}
		}
	}
	if len(verts) == 0 {
		return nil, nil, fmt.Errorf("%w: PLY contains no vertices", mesh.ErrImport)
	}
	return verts, tris, nil
}

// WritePLY writes an ascii PLY of the given geometry.
func WritePLY(w io.Writer, verts []r3.Vec, tris [][3]int) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "ply\nformat ascii 1.0\nelement vertex %d\n", len(verts))
	bw.WriteString("property double x\nproperty double y\nproperty double z\n")
	fmt.Fprintf(bw, "element face %d\n", len(tris))
	bw.WriteString("property list uchar int32 vertex_indices\nend_header\n")
	for _, v := range verts {
		fmt.Fprintf(bw, "%g %g %g\n", v.X, v.Y, v.Z)
	}
	for _, t := range tris {
		fmt.Fprintf(bw, "3 %d %d %d\n", t[0], t[1], t[2])
	}
	return bw.Flush()
}
