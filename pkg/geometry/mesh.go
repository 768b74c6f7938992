package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"radwaste/pkg/stl"
)

// rayDir is off-axis so rays from grid points miss the edges of
// axis-aligned meshes.
var rayDir = r3.Unit(r3.Vec{X: 1, Y: 0.0013471, Z: 0.0027183})

// MeshVolume is the region enclosed by a closed triangle surface.
type MeshVolume struct {
	triangles []stl.Triangle
	verts     [][3]r3.Vec
	min, max  r3.Vec
}

// LoadMeshVolume reads a closed surface from an STL file.
func LoadMeshVolume(path string) (*MeshVolume, error) {
	tris, err := stl.LoadSTL(path)
	if err != nil {
		return nil, err
	}
	return NewMeshVolume(tris)
}

// NewMeshVolume wraps a closed surface. The surface is not checked for
// watertightness.
func NewMeshVolume(triangles []stl.Triangle) (*MeshVolume, error) {
	if len(triangles) == 0 {
		return nil, ErrEmptyMesh
	}
	m := &MeshVolume{
		triangles: append([]stl.Triangle(nil), triangles...),
		verts:     make([][3]r3.Vec, len(triangles)),
		min:       r3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)},
		max:       r3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)},
	}
	for i, t := range triangles {
		for k, v := range t.Vertices() {
			p := toVec(v)
			m.verts[i][k] = p
			m.min = r3.Vec{X: math.Min(m.min.X, p.X), Y: math.Min(m.min.Y, p.Y), Z: math.Min(m.min.Z, p.Z)}
			m.max = r3.Vec{X: math.Max(m.max.X, p.X), Y: math.Max(m.max.Y, p.Y), Z: math.Max(m.max.Z, p.Z)}
		}
	}
	return m, nil
}

// Bounds returns the axis-aligned bounding box of the surface.
func (m *MeshVolume) Bounds() (min, max r3.Vec) { return m.min, m.max }

// Triangles returns the surface triangles.
func (m *MeshVolume) Triangles() []stl.Triangle {
	return append([]stl.Triangle(nil), m.triangles...)
}

// Contains reports whether p is enclosed by the surface, by counting how many
// triangles a ray from p crosses.
func (m *MeshVolume) Contains(p r3.Vec) bool {
	if p.X < m.min.X || p.Y < m.min.Y || p.Z < m.min.Z ||
		p.X > m.max.X || p.Y > m.max.Y || p.Z > m.max.Z {
		return false
	}
	crossings := 0
	for _, v := range m.verts {
		if intersects(p, rayDir, v) {
			crossings++
		}
	}
	return crossings%2 == 1
}

func (m *MeshVolume) String() string {
	return fmt.Sprintf("mesh volume (%d triangles)", len(m.triangles))
}

// intersects is the Möller–Trumbore ray/triangle test, counting only hits in
// front of the origin.
func intersects(origin, dir r3.Vec, v [3]r3.Vec) bool {
	e1 := r3.Sub(v[1], v[0])
	e2 := r3.Sub(v[2], v[0])
	h := r3.Cross(dir, e2)
	a := r3.Dot(e1, h)
	if math.Abs(a) < 1e-12 {
		return false
	}
	f := 1 / a
	s := r3.Sub(origin, v[0])
	u := f * r3.Dot(s, h)
	if u < 0 || u > 1 {
		return false
	}
	q := r3.Cross(s, e1)
	w := f * r3.Dot(dir, q)
	if w < 0 || u+w > 1 {
		return false
	}
	return f*r3.Dot(e2, q) > 1e-12
}
