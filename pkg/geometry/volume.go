// Package geometry describes the radwaste box: the region whose voxels are
// kept by the filtered processing strategy.
package geometry

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"radwaste/pkg/stl"
)

// eps absorbs rounding when a point lies on a box face.
const eps = 1e-9

var (
	// ErrBadSize is returned for boxes with a non-positive edge.
	ErrBadSize = errors.New("geometry: box edges must be positive")

	// ErrEmptyMesh is returned for surface meshes without triangles.
	ErrEmptyMesh = errors.New("geometry: surface mesh has no triangles")
)

// Volume is a closed region of space.
type Volume interface {
	Contains(p r3.Vec) bool
}

// Box is a rectangular cuboid spanning size from origin along its own axes,
// rotated about origin.
type Box struct {
	origin   r3.Vec
	size     r3.Vec
	rotation [3]float64 // degrees about x, y, z
}

// NewBox builds a box. The box is first laid along the global axes with one
// corner at origin, then rotated about origin by rotationDeg[0] around x,
// rotationDeg[1] around y and finally rotationDeg[2] around z.
func NewBox(origin, size r3.Vec, rotationDeg [3]float64) (*Box, error) {
	if !(size.X > 0 && size.Y > 0 && size.Z > 0) {
		return nil, fmt.Errorf("%w: got %v", ErrBadSize, size)
	}
	return &Box{origin: origin, size: size, rotation: rotationDeg}, nil
}

var axes = [3]r3.Vec{{X: 1}, {Y: 1}, {Z: 1}}

// toWorld rotates a box-local offset into global coordinates.
func (b *Box) toWorld(local r3.Vec) r3.Vec {
	p := local
	for i, deg := range b.rotation {
		if deg != 0 {
			p = r3.NewRotation(deg*math.Pi/180, axes[i]).Rotate(p)
		}
	}
	return r3.Add(b.origin, p)
}

// toLocal is the inverse of toWorld.
func (b *Box) toLocal(world r3.Vec) r3.Vec {
	p := r3.Sub(world, b.origin)
	for i := 2; i >= 0; i-- {
		if deg := b.rotation[i]; deg != 0 {
			p = r3.NewRotation(-deg*math.Pi/180, axes[i]).Rotate(p)
		}
	}
	return p
}

// Contains reports whether p lies inside the box or on its surface.
func (b *Box) Contains(p r3.Vec) bool {
	l := b.toLocal(p)
	return l.X >= -eps && l.X <= b.size.X+eps &&
		l.Y >= -eps && l.Y <= b.size.Y+eps &&
		l.Z >= -eps && l.Z <= b.size.Z+eps
}

// Corners returns the eight corners in global coordinates. Bit 0 of the
// index selects the far x side, bit 1 the far y side, bit 2 the far z side.
func (b *Box) Corners() [8]r3.Vec {
	var out [8]r3.Vec
	for i := range out {
		var l r3.Vec
		if i&1 != 0 {
			l.X = b.size.X
		}
		if i&2 != 0 {
			l.Y = b.size.Y
		}
		if i&4 != 0 {
			l.Z = b.size.Z
		}
		out[i] = b.toWorld(l)
	}
	return out
}

// boxFaces lists the 12 triangles of a box as corner indexes, wound so
// that normals point outwards.
var boxFaces = [12][3]int{
	{0, 2, 1}, {1, 2, 3}, // -z
	{4, 5, 6}, {5, 7, 6}, // +z
	{0, 1, 4}, {1, 5, 4}, // -y
	{2, 6, 3}, {3, 6, 7}, // +y
	{0, 4, 2}, {2, 4, 6}, // -x
	{1, 3, 5}, {3, 7, 5}, // +x
}

// Triangles returns the box surface for STL export.
func (b *Box) Triangles() []stl.Triangle {
	c := b.Corners()
	out := make([]stl.Triangle, 0, len(boxFaces))
	for _, f := range boxFaces {
		out = append(out, stl.NewTriangle(toFloat32(c[f[0]]), toFloat32(c[f[1]]), toFloat32(c[f[2]])))
	}
	return out
}

func toFloat32(v r3.Vec) [3]float32 {
	return [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
}

func toVec(v [3]float32) r3.Vec {
	return r3.Vec{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])}
}
