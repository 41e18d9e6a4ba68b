// Package formats provides parsers and writers for the 3D file formats
// the mapping pipeline works with.
package formats

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// PLY format errors.
var (
	ErrInvalidPLYMagic      = errors.New("invalid PLY magic: expected 'ply'")
	ErrUnsupportedPLYFormat = errors.New("unsupported PLY format")
	ErrMalformedPLYHeader   = errors.New("malformed PLY header")
	ErrTruncatedPLYData     = errors.New("truncated PLY data")
)

// PLYFormat represents the body encoding declared in a PLY header.
type PLYFormat int

// Body encodings.
const (
	PLYASCII PLYFormat = iota
	PLYBinaryLittleEndian
	PLYBinaryBigEndian
)

// String returns the encoding name as it appears in the header.
func (f PLYFormat) String() string {
	switch f {
	case PLYASCII:
		return "ascii"
	case PLYBinaryLittleEndian:
		return "binary_little_endian"
	case PLYBinaryBigEndian:
		return "binary_big_endian"
	default:
		return fmt.Sprintf("Unknown(%d)", int(f))
	}
}

// PLY represents a parsed Stanford polygon file. Only vertex positions and
// face index rings are retained; other elements and properties are skipped.
type PLY struct {
	Format   PLYFormat
	Comments []string
	Vertices [][3]float64
	Faces    [][]int
}

// VertexCount returns the number of vertices.
func (p *PLY) VertexCount() int {
	return len(p.Vertices)
}

// FaceCount returns the number of faces.
func (p *PLY) FaceCount() int {
	return len(p.Faces)
}

// plyScalar identifies one of the scalar types a PLY property can declare.
type plyScalar int

const (
	plyChar plyScalar = iota
	plyUChar
	plyShort
	plyUShort
	plyInt
	plyUInt
	plyFloat
	plyDouble
)

// size returns the encoded width of the scalar in bytes.
func (t plyScalar) size() int {
	switch t {
	case plyChar, plyUChar:
		return 1
	case plyShort, plyUShort:
		return 2
	case plyInt, plyUInt, plyFloat:
		return 4
	case plyDouble:
		return 8
	}
	return 0
}

// parsePLYScalar maps a header type name to its scalar. Both the classic
// names (uchar, float) and the sized aliases (uint8, float32) are accepted.
func parsePLYScalar(name string) (plyScalar, error) {
	switch name {
	case "char", "int8":
		return plyChar, nil
	case "uchar", "uint8":
		return plyUChar, nil
	case "short", "int16":
		return plyShort, nil
	case "ushort", "uint16":
		return plyUShort, nil
	case "int", "int32":
		return plyInt, nil
	case "uint", "uint32":
		return plyUInt, nil
	case "float", "float32":
		return plyFloat, nil
	case "double", "float64":
		return plyDouble, nil
	}
	return 0, fmt.Errorf("%w: unknown property type %q", ErrMalformedPLYHeader, name)
}

// plyProperty describes one property of an element. List properties carry
// a per-row count encoded as countType followed by count values of typ.
type plyProperty struct {
	name      string
	typ       plyScalar
	isList    bool
	countType plyScalar
}

// plyElement describes one element declaration and its property layout.
type plyElement struct {
	name       string
	count      int
	properties []plyProperty
}

// ParsePLY parses a PLY file from raw bytes.
func ParsePLY(data []byte) (*PLY, error) {
	header, body, err := parsePLYHeader(data)
	if err != nil {
		return nil, err
	}

	ply := &PLY{
		Format:   header.format,
		Comments: header.comments,
	}

	switch header.format {
	case PLYASCII:
		err = parsePLYBodyASCII(ply, header.elements, body)
	case PLYBinaryLittleEndian:
		err = parsePLYBodyBinary(ply, header.elements, body, binary.LittleEndian)
	case PLYBinaryBigEndian:
		err = parsePLYBodyBinary(ply, header.elements, body, binary.BigEndian)
	}
	if err != nil {
		return nil, err
	}

	return ply, nil
}

// ParsePLYFile parses a PLY file from disk.
func ParsePLYFile(path string) (*PLY, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading PLY file: %w", err)
	}
	return ParsePLY(data)
}

// plyHeader is the parsed declaration section of a PLY file.
type plyHeader struct {
	format   PLYFormat
	comments []string
	elements []plyElement
}

// parsePLYHeader parses everything up to end_header and returns the header
// together with the remaining body bytes.
func parsePLYHeader(data []byte) (*plyHeader, []byte, error) {
	lines := &plyLines{data: data}

	magic, err := lines.next()
	if err != nil {
		return nil, nil, ErrInvalidPLYMagic
	}
	if magic != "ply" {
		return nil, nil, ErrInvalidPLYMagic
	}

	header := &plyHeader{format: -1}
	for {
		line, err := lines.next()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: missing end_header", ErrMalformedPLYHeader)
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "format":
			if len(fields) != 3 {
				return nil, nil, fmt.Errorf("%w: %q", ErrMalformedPLYHeader, line)
			}
			switch fields[1] {
			case "ascii":
				header.format = PLYASCII
			case "binary_little_endian":
				header.format = PLYBinaryLittleEndian
			case "binary_big_endian":
				header.format = PLYBinaryBigEndian
			default:
				return nil, nil, fmt.Errorf("%w: %q", ErrUnsupportedPLYFormat, fields[1])
			}
			if fields[2] != "1.0" {
				return nil, nil, fmt.Errorf("%w: version %s", ErrUnsupportedPLYFormat, fields[2])
			}

		case "comment", "obj_info":
			header.comments = append(header.comments, strings.TrimSpace(strings.TrimPrefix(line, fields[0])))

		case "element":
			if len(fields) != 3 {
				return nil, nil, fmt.Errorf("%w: %q", ErrMalformedPLYHeader, line)
			}
			count, err := strconv.Atoi(fields[2])
			if err != nil || count < 0 {
				return nil, nil, fmt.Errorf("%w: element count %q", ErrMalformedPLYHeader, fields[2])
			}
			header.elements = append(header.elements, plyElement{name: fields[1], count: count})

		case "property":
			if len(header.elements) == 0 {
				return nil, nil, fmt.Errorf("%w: property before element", ErrMalformedPLYHeader)
			}
			prop, err := parsePLYProperty(fields)
			if err != nil {
				return nil, nil, err
			}
			el := &header.elements[len(header.elements)-1]
			el.properties = append(el.properties, prop)

		case "end_header":
			if header.format < 0 {
				return nil, nil, fmt.Errorf("%w: missing format declaration", ErrMalformedPLYHeader)
			}
			return header, data[lines.off:], nil
		}
	}
}

// parsePLYProperty parses a single "property ..." declaration.
func parsePLYProperty(fields []string) (plyProperty, error) {
	if len(fields) >= 2 && fields[1] == "list" {
		if len(fields) != 5 {
			return plyProperty{}, fmt.Errorf("%w: %q", ErrMalformedPLYHeader, strings.Join(fields, " "))
		}
		countType, err := parsePLYScalar(fields[2])
		if err != nil {
			return plyProperty{}, err
		}
		valueType, err := parsePLYScalar(fields[3])
		if err != nil {
			return plyProperty{}, err
		}
		return plyProperty{name: fields[4], typ: valueType, isList: true, countType: countType}, nil
	}

	if len(fields) != 3 {
		return plyProperty{}, fmt.Errorf("%w: %q", ErrMalformedPLYHeader, strings.Join(fields, " "))
	}
	typ, err := parsePLYScalar(fields[1])
	if err != nil {
		return plyProperty{}, err
	}
	return plyProperty{name: fields[2], typ: typ}, nil
}

// plyLines iterates header lines while tracking the byte offset of the
// body that follows end_header.
type plyLines struct {
	data []byte
	off  int
}

func (l *plyLines) next() (string, error) {
	if l.off >= len(l.data) {
		return "", io.ErrUnexpectedEOF
	}
	i := bytes.IndexByte(l.data[l.off:], '\n')
	if i < 0 {
		return "", io.ErrUnexpectedEOF
	}
	line := string(l.data[l.off : l.off+i])
	l.off += i + 1
	return strings.TrimRight(line, "\r"), nil
}

// vertexLayout locates the x, y, z properties inside a vertex element.
// Slot k holds the property index of coordinate k, or -1 if absent.
func vertexLayout(el plyElement) ([3]int, error) {
	layout := [3]int{-1, -1, -1}
	for i, p := range el.properties {
		if p.isList {
			continue
		}
		switch p.name {
		case "x":
			layout[0] = i
		case "y":
			layout[1] = i
		case "z":
			layout[2] = i
		}
	}
	if layout[0] < 0 || layout[1] < 0 || layout[2] < 0 {
		return layout, fmt.Errorf("%w: vertex element missing x/y/z properties", ErrMalformedPLYHeader)
	}
	return layout, nil
}

// faceIndexProperty locates the vertex index list inside a face element.
func faceIndexProperty(el plyElement) (int, error) {
	for i, p := range el.properties {
		if p.isList && (p.name == "vertex_indices" || p.name == "vertex_index") {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: face element missing vertex_indices list", ErrMalformedPLYHeader)
}

// parsePLYBodyASCII reads the whitespace-separated body. Every declared
// element is consumed in order so that vertex and face data can appear
// anywhere in the element sequence.
func parsePLYBodyASCII(ply *PLY, elements []plyElement, body []byte) error {
	sc := bufio.NewScanner(bytes.NewReader(body))
	sc.Split(bufio.ScanWords)

	next := func() (string, error) {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return "", err
			}
			return "", ErrTruncatedPLYData
		}
		return sc.Text(), nil
	}
	nextFloat := func() (float64, error) {
		tok, err := next()
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid PLY value %q", tok)
		}
		return v, nil
	}
	nextInt := func() (int, error) {
		tok, err := next()
		if err != nil {
			return 0, err
		}
		v, err := strconv.Atoi(tok)
		if err != nil {
			return 0, fmt.Errorf("invalid PLY index %q", tok)
		}
		return v, nil
	}

	for _, el := range elements {
		switch el.name {
		case "vertex":
			layout, err := vertexLayout(el)
			if err != nil {
				return err
			}
			ply.Vertices = make([][3]float64, el.count)
			for i := 0; i < el.count; i++ {
				for pi, p := range el.properties {
					if p.isList {
						count, err := nextInt()
						if err != nil {
							return fmt.Errorf("parsing vertex %d: %w", i, err)
						}
						for k := 0; k < count; k++ {
							if _, err := nextFloat(); err != nil {
								return fmt.Errorf("parsing vertex %d: %w", i, err)
							}
						}
						continue
					}
					v, err := nextFloat()
					if err != nil {
						return fmt.Errorf("parsing vertex %d: %w", i, err)
					}
					for c := 0; c < 3; c++ {
						if layout[c] == pi {
							ply.Vertices[i][c] = v
						}
					}
				}
			}

		case "face":
			indexProp, err := faceIndexProperty(el)
			if err != nil {
				return err
			}
			ply.Faces = make([][]int, el.count)
			for i := 0; i < el.count; i++ {
				for pi, p := range el.properties {
					if !p.isList {
						if _, err := nextFloat(); err != nil {
							return fmt.Errorf("parsing face %d: %w", i, err)
						}
						continue
					}
					count, err := nextInt()
					if err != nil {
						return fmt.Errorf("parsing face %d: %w", i, err)
					}
					if count < 0 {
						return fmt.Errorf("parsing face %d: negative list count", i)
					}
					ring := make([]int, count)
					for k := 0; k < count; k++ {
						idx, err := nextInt()
						if err != nil {
							return fmt.Errorf("parsing face %d: %w", i, err)
						}
						ring[k] = idx
					}
					if pi == indexProp {
						ply.Faces[i] = ring
					}
				}
			}

		default:
			// Unknown element: consume its rows so later elements stay aligned.
			for i := 0; i < el.count; i++ {
				for _, p := range el.properties {
					n := 1
					if p.isList {
						count, err := nextInt()
						if err != nil {
							return fmt.Errorf("parsing %s %d: %w", el.name, i, err)
						}
						n = count
					}
					for k := 0; k < n; k++ {
						if _, err := next(); err != nil {
							return fmt.Errorf("parsing %s %d: %w", el.name, i, err)
						}
					}
				}
			}
		}
	}

	return nil
}

// parsePLYBodyBinary reads a packed body in the given byte order.
func parsePLYBodyBinary(ply *PLY, elements []plyElement, body []byte, order binary.ByteOrder) error {
	r := bytes.NewReader(body)

	for _, el := range elements {
		switch el.name {
		case "vertex":
			layout, err := vertexLayout(el)
			if err != nil {
				return err
			}
			ply.Vertices = make([][3]float64, el.count)
			for i := 0; i < el.count; i++ {
				for pi, p := range el.properties {
					if p.isList {
						if err := skipBinaryList(r, p, order); err != nil {
							return fmt.Errorf("parsing vertex %d: %w", i, err)
						}
						continue
					}
					v, err := readBinaryFloat(r, p.typ, order)
					if err != nil {
						return fmt.Errorf("parsing vertex %d: %w", i, err)
					}
					for c := 0; c < 3; c++ {
						if layout[c] == pi {
							ply.Vertices[i][c] = v
						}
					}
				}
			}

		case "face":
			indexProp, err := faceIndexProperty(el)
			if err != nil {
				return err
			}
			ply.Faces = make([][]int, el.count)
			for i := 0; i < el.count; i++ {
				for pi, p := range el.properties {
					if !p.isList {
						if err := skipBinary(r, p.typ.size()); err != nil {
							return fmt.Errorf("parsing face %d: %w", i, err)
						}
						continue
					}
					count, err := readBinaryInt(r, p.countType, order)
					if err != nil {
						return fmt.Errorf("parsing face %d: %w", i, err)
					}
					if count < 0 {
						return fmt.Errorf("parsing face %d: negative list count", i)
					}
					if pi != indexProp {
						if err := skipBinary(r, count*p.typ.size()); err != nil {
							return fmt.Errorf("parsing face %d: %w", i, err)
						}
						continue
					}
					ring := make([]int, count)
					for k := 0; k < count; k++ {
						idx, err := readBinaryInt(r, p.typ, order)
						if err != nil {
							return fmt.Errorf("parsing face %d: %w", i, err)
						}
						ring[k] = idx
					}
					ply.Faces[i] = ring
				}
			}

		default:
			for i := 0; i < el.count; i++ {
				for _, p := range el.properties {
					if p.isList {
						if err := skipBinaryList(r, p, order); err != nil {
							return fmt.Errorf("parsing %s %d: %w", el.name, i, err)
						}
						continue
					}
					if err := skipBinary(r, p.typ.size()); err != nil {
						return fmt.Errorf("parsing %s %d: %w", el.name, i, err)
					}
				}
			}
		}
	}

	return nil
}

// readBinaryFloat reads one scalar and widens it to float64.
func readBinaryFloat(r *bytes.Reader, t plyScalar, order binary.ByteOrder) (float64, error) {
	switch t {
	case plyFloat:
		var v float32
		if err := binary.Read(r, order, &v); err != nil {
			return 0, ErrTruncatedPLYData
		}
		return float64(v), nil
	case plyDouble:
		var v float64
		if err := binary.Read(r, order, &v); err != nil {
			return 0, ErrTruncatedPLYData
		}
		return v, nil
	}
	v, err := readBinaryInt(r, t, order)
	return float64(v), err
}

// readBinaryInt reads one scalar and widens it to int.
func readBinaryInt(r *bytes.Reader, t plyScalar, order binary.ByteOrder) (int, error) {
	var v int
	var err error
	switch t {
	case plyChar:
		var x int8
		err = binary.Read(r, order, &x)
		v = int(x)
	case plyUChar:
		var x uint8
		err = binary.Read(r, order, &x)
		v = int(x)
	case plyShort:
		var x int16
		err = binary.Read(r, order, &x)
		v = int(x)
	case plyUShort:
		var x uint16
		err = binary.Read(r, order, &x)
		v = int(x)
	case plyInt:
		var x int32
		err = binary.Read(r, order, &x)
		v = int(x)
	case plyUInt:
		var x uint32
		err = binary.Read(r, order, &x)
		v = int(x)
	case plyFloat:
		var x float32
		err = binary.Read(r, order, &x)
		v = int(x)
	case plyDouble:
		var x float64
		err = binary.Read(r, order, &x)
		v = int(x)
	}
	if err != nil {
		return 0, ErrTruncatedPLYData
	}
	return v, nil
}

// skipBinary advances past n bytes of properties we do not retain.
// Seeking past the end of a bytes.Reader does not fail, so the remaining
// length is checked first.
func skipBinary(r *bytes.Reader, n int) error {
	if n == 0 {
		return nil
	}
	if r.Len() < n {
		return ErrTruncatedPLYData
	}
	if _, err := r.Seek(int64(n), io.SeekCurrent); err != nil {
		return ErrTruncatedPLYData
	}
	return nil
}

// skipBinaryList advances past one list property value.
func skipBinaryList(r *bytes.Reader, p plyProperty, order binary.ByteOrder) error {
	count, err := readBinaryInt(r, p.countType, order)
	if err != nil {
		return err
	}
	if count < 0 {
		return errors.New("negative list count")
	}
	return skipBinary(r, count*p.typ.size())
}
