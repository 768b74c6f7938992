package visualization

import (
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// doseMap gives every voxel of an nx*ny*nz mesh the value 10^z, so each z
// layer has its own intensity.
func doseMap(nx, ny, nz int) map[int64]float64 {
	values := make(map[int64]float64, nx*ny*nz)
	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				id := int64(z*nx*ny + y*nx + x + 1)
				values[id] = math.Pow(10, float64(z))
			}
		}
	}
	return values
}

// TestNewViewer verifies log normalisation of the dose map
func TestNewViewer(t *testing.T) {
	nx, ny, nz := 4, 3, 5
	viewer, err := NewViewer(doseMap(nx, ny, nz), nx, ny, nz)
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}

	for z := 0; z < nz; z++ {
		want := float64(z) / float64(nz-1)
		if got := viewer.Intensity(1, 2, z); math.Abs(got-want) > 1e-12 {
			t.Errorf("Layer %d: expected intensity %f, got %f", z, want, got)
		}
	}

	if _, err := NewViewer(nil, 0, 1, 1); err == nil {
		t.Error("Expected error for empty mesh, got nil")
	}
}

// TestNewViewerIgnoresInvalidValues checks zero, negative and out-of-mesh
// entries
func TestNewViewerIgnoresInvalidValues(t *testing.T) {
	values := map[int64]float64{1: 0, 2: -5, 3: 100, 4: 1, 99: 1e9, 0: 1e9}
	viewer, err := NewViewer(values, 2, 2, 1)
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}

	want := []float64{0, 0, 1, 0}
	for i, w := range want {
		if got := viewer.Intensity(i%2, i/2, 0); got != w {
			t.Errorf("Voxel %d: expected %f, got %f", i+1, w, got)
		}
	}

	uniform, err := NewViewer(map[int64]float64{1: 3, 2: 3}, 2, 1, 1)
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}
	if uniform.Intensity(0, 0, 0) != 1 || uniform.Intensity(1, 0, 0) != 1 {
		t.Error("Expected full intensity for a uniform map")
	}
}

// TestExtractSlice verifies that slices are correctly extracted from the mesh
func TestExtractSlice(t *testing.T) {
	nx, ny, nz := 10, 8, 5
	viewer, err := NewViewer(doseMap(nx, ny, nz), nx, ny, nz)
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}

	for z := 0; z < nz; z++ {
		img, err := viewer.ExtractSlice("z", z)
		if err != nil {
			t.Fatalf("Failed to extract Z slice at position %d: %v", z, err)
		}

		bounds := img.Bounds()
		if bounds.Dx() != nx || bounds.Dy() != ny {
			t.Errorf("Expected Z slice dimensions %dx%d, got %dx%d", nx, ny, bounds.Dx(), bounds.Dy())
		}

		gray16Img, ok := img.(*image.Gray16)
		if !ok {
			t.Fatalf("Expected *image.Gray16, got %T", img)
		}
		expected := uint16(float64(z) / float64(nz-1) * 65535)
		center := gray16Img.Gray16At(nx/2, ny/2).Y
		if math.Abs(float64(center)-float64(expected)) > 1.0 {
			t.Errorf("Expected Z slice value ~%d at center, got %d", expected, center)
		}
	}

	imgX, err := viewer.ExtractSlice("x", nx/2)
	if err != nil {
		t.Fatalf("Failed to extract X slice: %v", err)
	}
	if b := imgX.Bounds(); b.Dx() != nz || b.Dy() != ny {
		t.Errorf("Expected X slice dimensions %dx%d, got %dx%d", nz, ny, b.Dx(), b.Dy())
	}

	imgY, err := viewer.ExtractSlice("Y", ny/2)
	if err != nil {
		t.Fatalf("Failed to extract Y slice: %v", err)
	}
	if b := imgY.Bounds(); b.Dx() != nx || b.Dy() != nz {
		t.Errorf("Expected Y slice dimensions %dx%d, got %dx%d", nx, nz, b.Dx(), b.Dy())
	}

	if _, err := viewer.ExtractSlice("invalid", 0); err == nil {
		t.Error("Expected error for invalid axis, got nil")
	}
	if _, err := viewer.ExtractSlice("z", nz); err == nil {
		t.Error("Expected error for out of bounds position, got nil")
	}
	if _, err := viewer.ExtractSlice("z", -1); err == nil {
		t.Error("Expected error for negative position, got nil")
	}
}

// TestSaveSliceSequence verifies that a sequence of slices can be saved
func TestSaveSliceSequence(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	nx, ny, nz := 5, 5, 3
	viewer, err := NewViewer(doseMap(nx, ny, nz), nx, ny, nz)
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}

	outputDir := filepath.Join(t.TempDir(), "slices")
	n, err := viewer.SaveSliceSequence("z", outputDir)
	if err != nil {
		t.Fatalf("Failed to save slice sequence: %v", err)
	}
	if n != nz {
		t.Errorf("Expected %d slices, got %d", nz, n)
	}

	for z := 0; z < nz; z++ {
		filename := filepath.Join(outputDir, fmt.Sprintf("slice_z_%03d.jpg", z))
		if _, err := os.Stat(filename); os.IsNotExist(err) {
			t.Errorf("Expected slice file does not exist: %s", filename)
		}
	}

	if _, err := viewer.SaveSliceSequence("invalid", outputDir); err == nil {
		t.Error("Expected error for invalid axis, got nil")
	}
}
