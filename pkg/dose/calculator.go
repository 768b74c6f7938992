// Package dose converts isotope activities into dose quantities: the dose
// rate at one meter from a point source and the contact dose rate (CDR) of
// the surrounding material.
//
// Reference tables are partial by nature. An isotope or material that has
// no reference entry contributes zero instead of failing the calculation;
// the omission is logged at debug level.
package dose

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"radwaste/internal/logging"
	"radwaste/internal/models"
	"radwaste/pkg/dataset"
)

// mixTolerance bounds how far the element fractions of a reference material
// may sum away from 1.
const mixTolerance = 1e-3

var (
	// ErrMixNotNormalized is returned for reference materials whose element
	// fractions do not sum to 1.
	ErrMixNotNormalized = errors.New("dose: element mix does not sum to 1")

	// ErrRowMismatch is returned when the CDR factor list does not pair one
	// entry with every mesh row.
	ErrRowMismatch = errors.New("dose: CDR factor list does not match mesh rows")
)

// Calculator holds the read-only reference data of a run.
type Calculator struct {
	dose1m    map[string]float64
	cdr       *CDRTable
	materials map[int64]models.ElementMix

	// elements is the sorted union of every element known to the
	// reference data.
	elements []string

	logger *slog.Logger
}

// NewCalculator validates the reference data and returns a calculator.
//
// Parameters:
//   - dose1m: isotope → dose at one meter per unit activity
//   - cdr: isotope × element contact dose rate factors
//   - materials: material id → element fractions summing to 1
func NewCalculator(dose1m map[string]float64, cdr *CDRTable, materials map[int64]models.ElementMix) (*Calculator, error) {
	if cdr == nil {
		return nil, ErrEmptyTable
	}
	for iso, v := range dose1m {
		if err := checkFactor(v); err != nil {
			return nil, fmt.Errorf("%w (dose at 1m, %s)", err, iso)
		}
	}

	known := make(map[string]bool)
	for _, e := range cdr.elements {
		known[e] = true
	}
	for id, mix := range materials {
		for e, frac := range mix {
			if frac < 0 || math.IsNaN(frac) || math.IsInf(frac, 0) {
				return nil, fmt.Errorf("dose: material %d has invalid fraction %g for %s", id, frac, e)
			}
			known[e] = true
		}
		if sum := mix.Sum(); math.Abs(sum-1) > mixTolerance {
			return nil, fmt.Errorf("%w: material %d sums to %g", ErrMixNotNormalized, id, sum)
		}
	}
	elements := make([]string, 0, len(known))
	for e := range known {
		elements = append(elements, e)
	}
	sort.Strings(elements)

	return &Calculator{
		dose1m:    dose1m,
		cdr:       cdr,
		materials: materials,
		elements:  elements,
		logger:    logging.GetLogger(),
	}, nil
}

// CDRTable returns the contact dose rate factor table.
func (c *Calculator) CDRTable() *CDRTable { return c.cdr }

// Dose1mFactor returns the dose at one meter factor of an isotope.
func (c *Calculator) Dose1mFactor(isotope string) (float64, bool) {
	v, ok := c.dose1m[isotope]
	return v, ok
}

// ElementMixes composes, for each material proportion, the weighted sum of
// the element mixes of its materials. Materials without reference data
// contribute zero.
func (c *Calculator) ElementMixes(proportions []models.MaterialProportion) []models.ElementMix {
	mixes := c.elementMatrix(proportions, c.elements)
	out := make([]models.ElementMix, len(proportions))
	for g := range out {
		out[g] = make(models.ElementMix, len(c.elements))
		for j, e := range c.elements {
			out[g][e] = mixes.At(g, j)
		}
	}
	return out
}

// CDRFactorsList returns one CDR factor vector per material proportion,
// covering every isotope of the CDR table:
//
//	cdr[iso] = Σ_element mix[element] × table[iso, element]
//
// where mix is the element mix composed from the proportion.
func (c *Calculator) CDRFactorsList(proportions []models.MaterialProportion) []models.CDRFactors {
	out := make([]models.CDRFactors, len(proportions))
	if len(proportions) == 0 {
		return out
	}
	mixes := c.elementMatrix(proportions, c.cdr.elements) // groups × cdr elements

	var factors mat.Dense
	factors.Mul(mixes, c.cdr.factors.T()) // groups × isotopes
	for g := range out {
		out[g] = make(models.CDRFactors, len(c.cdr.isotopes))
		for i, iso := range c.cdr.isotopes {
			out[g][iso] = factors.At(g, i)
		}
	}
	return out
}

// Doses returns a copy of mesh with the dose at one meter and contact dose
// rate of every row. cdrFactors[i] must be the CDR vector of row i.
func (c *Calculator) Doses(mesh *dataset.MeshActivity, cdrFactors []models.CDRFactors) (*dataset.MeshActivity, error) {
	n := mesh.Len()
	if len(cdrFactors) != n {
		return nil, fmt.Errorf("%w: %d factor vectors for %d rows", ErrRowMismatch, len(cdrFactors), n)
	}
	t := mesh.Table()
	isotopes := mesh.Isotopes()
	activities := make([][]float64, len(isotopes))
	for k, iso := range isotopes {
		activities[k], _ = t.Column(iso)
	}

	dose1m := c.dose1mColumn(isotopes, activities, n)

	cdr := make([]float64, n)
	missing := make(map[string]bool)
	row := make([]float64, 0, len(isotopes))
	factors := make([]float64, 0, len(isotopes))
	for r := 0; r < n; r++ {
		row, factors = row[:0], factors[:0]
		for k, iso := range isotopes {
			f, ok := cdrFactors[r][iso]
			if !ok {
				missing[iso] = true
				continue
			}
			row = append(row, activities[k][r])
			factors = append(factors, f)
		}
		cdr[r] = floats.Dot(row, factors)
	}
	if len(missing) > 0 {
		c.logger.Debug("isotopes without CDR factors contribute zero",
			slog.Any("isotopes", sortedNames(missing)))
	}

	return mesh.WithDoses(dose1m, cdr)
}

// dose1mColumn multiplies the rows × isotopes activity matrix by the vector
// of dose at one meter factors.
func (c *Calculator) dose1mColumn(isotopes []string, activities [][]float64, n int) []float64 {
	var (
		cols    []int
		factors []float64
	)
	missing := make(map[string]bool)
	for k, iso := range isotopes {
		f, ok := c.dose1m[iso]
		if !ok {
			missing[iso] = true
			continue
		}
		cols = append(cols, k)
		factors = append(factors, f)
	}
	if len(missing) > 0 {
		c.logger.Debug("isotopes without dose at 1m factors contribute zero",
			slog.Any("isotopes", sortedNames(missing)))
	}

	out := make([]float64, n)
	if n == 0 || len(cols) == 0 {
		return out
	}
	a := mat.NewDense(n, len(cols), nil)
	for j, k := range cols {
		a.SetCol(j, activities[k])
	}
	var d mat.VecDense
	d.MulVec(a, mat.NewVecDense(len(factors), factors))
	for r := range out {
		out[r] = d.AtVec(r)
	}
	return out
}

// elementMatrix returns the groups × elements matrix of composed element
// fractions: proportions (groups × materials) · mixes (materials × elements).
func (c *Calculator) elementMatrix(proportions []models.MaterialProportion, elements []string) *mat.Dense {
	var ids []int64
	seen := make(map[int64]bool)
	missing := make(map[string]bool)
	for _, p := range proportions {
		for _, id := range p.MaterialIDs() {
			if seen[id] {
				continue
			}
			seen[id] = true
			if _, ok := c.materials[id]; !ok {
				missing[fmt.Sprint(id)] = true
				continue
			}
			ids = append(ids, id)
		}
	}
	if len(missing) > 0 {
		c.logger.Debug("materials without element mix contribute zero",
			slog.Any("materials", sortedNames(missing)))
	}

	rows := len(proportions)
	if rows == 0 || len(elements) == 0 {
		// gonum rejects zero-sized matrices; callers only index valid cells.
		return mat.NewDense(1, 1, nil)
	}
	if len(ids) == 0 {
		return mat.NewDense(rows, len(elements), nil)
	}

	weights := mat.NewDense(rows, len(ids), nil)
	for g, p := range proportions {
		for j, id := range ids {
			weights.Set(g, j, p[id])
		}
	}
	mixes := mat.NewDense(len(ids), len(elements), nil)
	for i, id := range ids {
		for j, e := range elements {
			mixes.Set(i, j, c.materials[id][e])
		}
	}

	var out mat.Dense
	out.Mul(weights, mixes)
	return &out
}

func sortedNames(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
