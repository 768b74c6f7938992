package dose

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrEmptyTable is returned for a CDR factor table without isotopes or
	// elements.
	ErrEmptyTable = errors.New("dose: empty factor table")

	// ErrBadFactor is returned for negative, NaN or infinite factors.
	ErrBadFactor = errors.New("dose: invalid conversion factor")

	// ErrDuplicateName is returned when an isotope, element or material
	// appears twice in reference data.
	ErrDuplicateName = errors.New("dose: duplicate reference entry")
)

// CDRTable is the isotope × element table of contact dose rate factors: the
// dose rate per unit activity of an isotope fully surrounded by one element.
type CDRTable struct {
	isotopes []string
	elements []string
	index    map[string]int
	factors  *mat.Dense // isotopes × elements
}

// NewCDRTable builds a table from one row of per-element factors per
// isotope.
func NewCDRTable(isotopes, elements []string, rows [][]float64) (*CDRTable, error) {
	if len(isotopes) == 0 || len(elements) == 0 {
		return nil, ErrEmptyTable
	}
	if len(rows) != len(isotopes) {
		return nil, fmt.Errorf("dose: %d factor rows for %d isotopes", len(rows), len(isotopes))
	}
	if err := checkUnique("element", elements); err != nil {
		return nil, err
	}
	if err := checkUnique("isotope", isotopes); err != nil {
		return nil, err
	}

	data := make([]float64, 0, len(isotopes)*len(elements))
	for i, row := range rows {
		if len(row) != len(elements) {
			return nil, fmt.Errorf("dose: isotope %s has %d factors for %d elements", isotopes[i], len(row), len(elements))
		}
		for j, v := range row {
			if err := checkFactor(v); err != nil {
				return nil, fmt.Errorf("%w (%s, %s)", err, isotopes[i], elements[j])
			}
		}
		data = append(data, row...)
	}

	index := make(map[string]int, len(isotopes))
	for i, iso := range isotopes {
		index[iso] = i
	}
	return &CDRTable{
		isotopes: append([]string(nil), isotopes...),
		elements: append([]string(nil), elements...),
		index:    index,
		factors:  mat.NewDense(len(isotopes), len(elements), data),
	}, nil
}

// Isotopes returns the table rows in order.
func (t *CDRTable) Isotopes() []string { return append([]string(nil), t.isotopes...) }

// Elements returns the table columns in order.
func (t *CDRTable) Elements() []string { return append([]string(nil), t.elements...) }

// Factor returns the factor of an isotope surrounded by an element.
func (t *CDRTable) Factor(isotope, element string) (float64, bool) {
	i, ok := t.index[isotope]
	if !ok {
		return 0, false
	}
	for j, e := range t.elements {
		if e == element {
			return t.factors.At(i, j), true
		}
	}
	return 0, false
}

func checkFactor(v float64) error {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %g", ErrBadFactor, v)
	}
	return nil
}

func checkUnique(what string, names []string) error {
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			return fmt.Errorf("%w: %s %q", ErrDuplicateName, what, n)
		}
		seen[n] = true
	}
	return nil
}
