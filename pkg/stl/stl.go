// Package stl reads and writes triangle meshes in the STL format.
package stl

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

const (
	headerSize   = 80
	triangleSize = 50
)

// ErrMalformed is returned for files that are neither valid binary nor ASCII
// STL.
var ErrMalformed = errors.New("stl: malformed file")

// Triangle represents a single triangle in the STL file
type Triangle struct {
	Normal  [3]float32
	Vertex1 [3]float32
	Vertex2 [3]float32
	Vertex3 [3]float32
}

// Vertices returns the three corners in winding order.
func (t Triangle) Vertices() [3][3]float32 {
	return [3][3]float32{t.Vertex1, t.Vertex2, t.Vertex3}
}

// NewTriangle builds a triangle and derives its unit normal from the winding
// order (right-hand rule).
func NewTriangle(v1, v2, v3 [3]float32) Triangle {
	return Triangle{Normal: normal(v1, v2, v3), Vertex1: v1, Vertex2: v2, Vertex3: v3}
}

func normal(v1, v2, v3 [3]float32) [3]float32 {
	ax, ay, az := float64(v2[0]-v1[0]), float64(v2[1]-v1[1]), float64(v2[2]-v1[2])
	bx, by, bz := float64(v3[0]-v1[0]), float64(v3[1]-v1[1]), float64(v3[2]-v1[2])
	nx, ny, nz := ay*bz-az*by, az*bx-ax*bz, ax*by-ay*bx
	mag := math.Sqrt(nx*nx + ny*ny + nz*nz)
	if mag == 0 {
		return [3]float32{}
	}
	return [3]float32{float32(nx / mag), float32(ny / mag), float32(nz / mag)}
}

// SaveToSTL writes triangles to a binary STL file.
func SaveToSTL(filename string, triangles []Triangle) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("error creating STL file: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	if err := Write(w, triangles); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("error writing STL file: %w", err)
	}
	return file.Close()
}

// Write encodes triangles as binary STL.
func Write(w io.Writer, triangles []Triangle) error {
	header := make([]byte, headerSize)
	copy(header, "radwaste binary STL")
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("error writing STL header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(triangles))); err != nil {
		return fmt.Errorf("error writing triangle count: %w", err)
	}

	buf := make([]byte, triangleSize)
	for _, t := range triangles {
		off := 0
		for _, v := range [4][3]float32{t.Normal, t.Vertex1, t.Vertex2, t.Vertex3} {
			for _, c := range v {
				binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(c))
				off += 4
			}
		}
		// Attribute byte count stays zero.
		buf[48], buf[49] = 0, 0
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("error writing triangle: %w", err)
		}
	}
	return nil
}

// LoadSTL reads a binary or ASCII STL file.
func LoadSTL(filename string) ([]Triangle, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading STL file: %w", err)
	}
	return Parse(data)
}

// Parse decodes STL data. Binary files whose header happens to start with
// "solid" are recognised by their exact size.
func Parse(data []byte) ([]Triangle, error) {
	if len(data) >= headerSize+4 {
		n := binary.LittleEndian.Uint32(data[headerSize:])
		if int64(len(data)) == int64(headerSize+4)+int64(n)*triangleSize {
			return parseBinary(data[headerSize+4:], int(n)), nil
		}
	}
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("solid")) {
		return parseASCII(data)
	}
	return nil, ErrMalformed
}

func parseBinary(data []byte, n int) []Triangle {
	out := make([]Triangle, n)
	for i := range out {
		rec := data[i*triangleSize:]
		var vs [4][3]float32
		for k := 0; k < 12; k++ {
			vs[k/3][k%3] = math.Float32frombits(binary.LittleEndian.Uint32(rec[k*4:]))
		}
		out[i] = Triangle{Normal: vs[0], Vertex1: vs[1], Vertex2: vs[2], Vertex3: vs[3]}
	}
	return out
}

func parseASCII(data []byte) ([]Triangle, error) {
	var (
		out      []Triangle
		current  Triangle
		vertices int
		line     int
	)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "facet":
			if len(fields) != 5 || fields[1] != "normal" {
				return nil, fmt.Errorf("%w: line %d: bad facet", ErrMalformed, line)
			}
			n, err := parseVec(fields[2:])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, line, err)
			}
			current, vertices = Triangle{Normal: n}, 0
		case "vertex":
			if len(fields) != 4 || vertices > 2 {
				return nil, fmt.Errorf("%w: line %d: bad vertex", ErrMalformed, line)
			}
			v, err := parseVec(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, line, err)
			}
			switch vertices {
			case 0:
				current.Vertex1 = v
			case 1:
				current.Vertex2 = v
			case 2:
				current.Vertex3 = v
			}
			vertices++
		case "endfacet":
			if vertices != 3 {
				return nil, fmt.Errorf("%w: line %d: facet with %d vertices", ErrMalformed, line, vertices)
			}
			out = append(out, current)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning STL: %w", err)
	}
	return out, nil
}

func parseVec(fields []string) ([3]float32, error) {
	var v [3]float32
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return v, err
		}
		v[i] = float32(x)
	}
	return v, nil
}
