// Package visualization exports dose maps of structured meshes as greyscale
// slice images.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/floats"
)

// Viewer holds a dose map laid on a structured nx × ny × nz mesh. Voxel ids
// run from 1 to nx·ny·nz with x varying fastest, then y, then z.
type Viewer struct {
	// intensity is the normalised value of each cell, indexed by voxel id - 1
	intensity []float64

	nx, ny, nz int
}

// NewViewer normalises values (voxel id → dose) onto [0, 1] on a log10
// scale. Voxels without a positive value stay black; ids outside the mesh
// are ignored.
func NewViewer(values map[int64]float64, nx, ny, nz int) (*Viewer, error) {
	if nx <= 0 || ny <= 0 || nz <= 0 {
		return nil, fmt.Errorf("mesh dimensions must be positive, got %dx%dx%d", nx, ny, nz)
	}
	n := nx * ny * nz
	logs := make([]float64, n)
	var positive []float64
	for id, v := range values {
		if id < 1 || id > int64(n) || !(v > 0) || math.IsInf(v, 1) {
			continue
		}
		logs[id-1] = math.Log10(v)
		positive = append(positive, logs[id-1])
	}

	intensity := make([]float64, n)
	if len(positive) > 0 {
		lo, hi := floats.Min(positive), floats.Max(positive)
		for id, v := range values {
			if id < 1 || id > int64(n) || !(v > 0) || math.IsInf(v, 1) {
				continue
			}
			if hi == lo {
				intensity[id-1] = 1
				continue
			}
			intensity[id-1] = (logs[id-1] - lo) / (hi - lo)
		}
	}
	return &Viewer{intensity: intensity, nx: nx, ny: ny, nz: nz}, nil
}

// Intensity returns the normalised value of a voxel.
func (v *Viewer) Intensity(x, y, z int) float64 {
	return v.intensity[z*v.nx*v.ny+y*v.nx+x]
}

// ExtractSlice extracts a 2D slice of the mesh across the given axis
func (v *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}

	gray := func(value float64) color.Gray16 {
		return color.Gray16{Y: uint16(math.Max(0, math.Min(65535, value*65535)))}
	}

	var img *image.Gray16
	switch axis {
	case "x", "X":
		// YZ plane
		if position >= v.nx {
			return nil, fmt.Errorf("position %d exceeds nx %d", position, v.nx)
		}
		img = image.NewGray16(image.Rect(0, 0, v.nz, v.ny))
		for y := 0; y < v.ny; y++ {
			for z := 0; z < v.nz; z++ {
				img.SetGray16(z, y, gray(v.Intensity(position, y, z)))
			}
		}

	case "y", "Y":
		// XZ plane
		if position >= v.ny {
			return nil, fmt.Errorf("position %d exceeds ny %d", position, v.ny)
		}
		img = image.NewGray16(image.Rect(0, 0, v.nx, v.nz))
		for z := 0; z < v.nz; z++ {
			for x := 0; x < v.nx; x++ {
				img.SetGray16(x, z, gray(v.Intensity(x, position, z)))
			}
		}

	case "z", "Z":
		// XY plane
		if position >= v.nz {
			return nil, fmt.Errorf("position %d exceeds nz %d", position, v.nz)
		}
		img = image.NewGray16(image.Rect(0, 0, v.nx, v.ny))
		for y := 0; y < v.ny; y++ {
			for x := 0; x < v.nx; x++ {
				img.SetGray16(x, y, gray(v.Intensity(x, y, position)))
			}
		}

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	return img, nil
}

// SaveSlice saves an extracted slice as a JPEG image
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
}

// SaveSliceSequence writes every slice across axis to outputDir and returns
// the number of images written.
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) (int, error) {
	var maxPos int
	switch axis {
	case "x", "X":
		maxPos = v.nx
	case "y", "Y":
		maxPos = v.ny
	case "z", "Z":
		maxPos = v.nz
	default:
		return 0, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return 0, err
	}

	for pos := 0; pos < maxPos; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return pos, err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.jpg", axis, pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return pos, err
		}
	}

	return maxPos, nil
}
