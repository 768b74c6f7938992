package dose

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"radwaste/internal/models"
	"radwaste/pkg/nuclide"
)

// referenceFile is the YAML layout of the reference data:
//
//	dose1m:
//	  Co60: 3.7e-13
//	cdr:
//	  elements: [H, Fe]
//	  factors:
//	    Co60: [1.2e-06, 9.8e-07]
//	materials:
//	  12: {Fe: 0.7, Cr: 0.3}
type referenceFile struct {
	Dose1m map[string]float64 `yaml:"dose1m"`
	CDR    struct {
		Elements []string             `yaml:"elements"`
		Factors  map[string][]float64 `yaml:"factors"`
	} `yaml:"cdr"`
	Materials map[int64]map[string]float64 `yaml:"materials"`
}

// LoadReference reads reference data from a YAML file and returns a
// calculator built from it.
func LoadReference(path string) (*Calculator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading reference file: %w", err)
	}
	return ParseReference(data)
}

// ParseReference builds a calculator from YAML reference data. Isotope and
// element names are normalised, so "CO60" and "Co60" name the same isotope.
func ParseReference(data []byte) (*Calculator, error) {
	var ref referenceFile
	if err := yaml.Unmarshal(data, &ref); err != nil {
		return nil, fmt.Errorf("error parsing reference file: %w", err)
	}

	dose1m := make(map[string]float64, len(ref.Dose1m))
	for name, v := range ref.Dose1m {
		iso, err := nuclide.Normalize(name)
		if err != nil {
			return nil, err
		}
		if _, dup := dose1m[iso]; dup {
			return nil, fmt.Errorf("%w: dose at 1m isotope %s", ErrDuplicateName, iso)
		}
		dose1m[iso] = v
	}

	elements := make([]string, len(ref.CDR.Elements))
	for i, e := range ref.CDR.Elements {
		norm, err := nuclide.NormalizeElement(e)
		if err != nil {
			return nil, err
		}
		elements[i] = norm
	}
	names := make([]string, 0, len(ref.CDR.Factors))
	for name := range ref.CDR.Factors {
		names = append(names, name)
	}
	sort.Strings(names)
	isotopes := make([]string, len(names))
	rows := make([][]float64, len(names))
	for i, name := range names {
		iso, err := nuclide.Normalize(name)
		if err != nil {
			return nil, err
		}
		isotopes[i] = iso
		rows[i] = ref.CDR.Factors[name]
	}
	cdr, err := NewCDRTable(isotopes, elements, rows)
	if err != nil {
		return nil, err
	}

	materials := make(map[int64]models.ElementMix, len(ref.Materials))
	for id, mix := range ref.Materials {
		m := make(models.ElementMix, len(mix))
		for e, frac := range mix {
			norm, err := nuclide.NormalizeElement(e)
			if err != nil {
				return nil, err
			}
			if _, dup := m[norm]; dup {
				return nil, fmt.Errorf("%w: element %s in material %d", ErrDuplicateName, norm, id)
			}
			m[norm] = frac
		}
		materials[id] = m
	}

	return NewCalculator(dose1m, cdr, materials)
}
