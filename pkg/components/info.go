// Package components groups simulation cells into named structural parts and
// precomputes their material proportions and contact dose rate factors.
package components

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"radwaste/internal/models"
)

var (
	// ErrInvalidComponent is returned for a component without a name or
	// without cells.
	ErrInvalidComponent = errors.New("components: invalid component")

	// ErrDuplicateComponent is returned when two components share a name.
	ErrDuplicateComponent = errors.New("components: duplicate component name")
)

// ProportionResolver resolves the material proportions of cell groups.
// *dataset.Mass implements it.
type ProportionResolver interface {
	MaterialIDProportions(cellGroups [][]int64) ([]models.MaterialProportion, error)
}

// FactorCalculator turns material proportions into CDR factor vectors.
// *dose.Calculator implements it.
type FactorCalculator interface {
	CDRFactorsList(proportions []models.MaterialProportion) []models.CDRFactors
}

// Info holds a fixed list of components with their resolved material
// proportions and CDR factors, in component order.
type Info struct {
	components  []models.Component
	proportions []models.MaterialProportion
	cdr         []models.CDRFactors
}

// NewInfo resolves every component in one resolver call and derives the CDR
// factors from the result. A component with zero total mass fails
// construction with the resolver's *dataset.DegenerateProportionError.
func NewInfo(components []models.Component, resolver ProportionResolver, calc FactorCalculator) (*Info, error) {
	if err := check(components); err != nil {
		return nil, err
	}
	groups := make([][]int64, len(components))
	for i, c := range components {
		groups[i] = c.CellIDs
	}
	proportions, err := resolver.MaterialIDProportions(groups)
	if err != nil {
		return nil, fmt.Errorf("error resolving component materials: %w", err)
	}

	kept := make([]models.Component, len(components))
	for i, c := range components {
		kept[i] = models.Component{Name: c.Name, CellIDs: append([]int64(nil), c.CellIDs...)}
	}
	return &Info{
		components:  kept,
		proportions: proportions,
		cdr:         calc.CDRFactorsList(proportions),
	}, nil
}

// Components returns the components in their original order.
func (i *Info) Components() []models.Component {
	out := make([]models.Component, len(i.components))
	for k, c := range i.components {
		out[k] = models.Component{Name: c.Name, CellIDs: append([]int64(nil), c.CellIDs...)}
	}
	return out
}

// Names returns the component names in order.
func (i *Info) Names() []string {
	out := make([]string, len(i.components))
	for k, c := range i.components {
		out[k] = c.Name
	}
	return out
}

// CellGroups returns the cell ids of each component, in component order.
func (i *Info) CellGroups() [][]int64 {
	out := make([][]int64, len(i.components))
	for k, c := range i.components {
		out[k] = append([]int64(nil), c.CellIDs...)
	}
	return out
}

// AllCellIDs returns the sorted union of the cells of every component.
func (i *Info) AllCellIDs() []int64 {
	seen := make(map[int64]bool)
	var out []int64
	for _, c := range i.components {
		for _, id := range c.CellIDs {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}

// MaterialProportions returns the material proportion of each component.
func (i *Info) MaterialProportions() []models.MaterialProportion {
	return append([]models.MaterialProportion(nil), i.proportions...)
}

// CDRFactors returns the CDR factor vector of each component.
func (i *Info) CDRFactors() []models.CDRFactors {
	return append([]models.CDRFactors(nil), i.cdr...)
}

// Load reads a YAML list of components:
//
//	- name: Vessel
//	  cells: [10, 11]
func Load(path string) ([]models.Component, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading components file: %w", err)
	}
	var list []models.Component
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("error parsing components file: %w", err)
	}
	if err := check(list); err != nil {
		return nil, err
	}
	return list, nil
}

func check(list []models.Component) error {
	seen := make(map[string]bool, len(list))
	for k, c := range list {
		name := strings.TrimSpace(c.Name)
		switch {
		case name == "":
			return fmt.Errorf("%w: entry %d has no name", ErrInvalidComponent, k)
		case len(c.CellIDs) == 0:
			return fmt.Errorf("%w: %s has no cells", ErrInvalidComponent, c.Name)
		case seen[name]:
			return fmt.Errorf("%w: %s", ErrDuplicateComponent, c.Name)
		}
		seen[name] = true
	}
	return nil
}
