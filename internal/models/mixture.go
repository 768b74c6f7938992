package models

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Key level and column names shared by every dataset kind.
const (
	KeyTime     = "decay_time"
	KeyVoxel    = "voxel"
	KeyCell     = "cell"
	KeyMaterial = "material"
	KeyIsotope  = "isotope"

	KeyAbsoluteActivity = "absolute_activity"
	KeyMassGrams        = "mass_grams"
	KeyDose1Meter       = "dose_1m"
	KeyCDR              = "cdr"

	KeyX = "x"
	KeyY = "y"
	KeyZ = "z"
)

// MaterialProportion maps a material id to the fraction of a cell group's mass
// that it occupies. A resolved, non-degenerate proportion sums to 1.0.
type MaterialProportion map[int64]float64

// Sum returns the total weight of the proportion.
func (p MaterialProportion) Sum() float64 {
	return floats.Sum(valuesOf(p))
}

// MaterialIDs returns the material ids in ascending order.
func (p MaterialProportion) MaterialIDs() []int64 {
	ids := make([]int64, 0, len(p))
	for id := range p {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ElementMix maps a chemical element symbol to its fractional weight.
type ElementMix map[string]float64

// Sum returns the total weight of the mix.
func (m ElementMix) Sum() float64 {
	return floats.Sum(valuesOf(m))
}

// Elements returns the element symbols in lexical order.
func (m ElementMix) Elements() []string {
	return sortedKeys(m)
}

// CDRFactors maps an isotope name to the contact dose rate conversion factor of
// one cell group.
type CDRFactors map[string]float64

// Isotopes returns the isotope names in lexical order.
func (c CDRFactors) Isotopes() []string {
	return sortedKeys(c)
}

// Component is a named structural part made of simulation cells.
type Component struct {
	Name    string  `yaml:"name"`
	CellIDs []int64 `yaml:"cells"`
}

func valuesOf[K comparable](m map[K]float64) []float64 {
	out := make([]float64, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	// Deterministic summation order.
	sort.Float64s(out)
	return out
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
