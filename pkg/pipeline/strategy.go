package pipeline

import (
	"errors"
	"fmt"
	"sort"

	"radwaste/internal/models"
	"radwaste/pkg/dataset"
	"radwaste/pkg/dose"
	"radwaste/pkg/nuclide"
)

// meshRows is a mesh activity table with the CDR factor vector of each row,
// in row order.
type meshRows struct {
	mesh *dataset.MeshActivity
	cdr  []models.CDRFactors

	// degenerate lists the rows without mass, if any
	degenerate *dataset.DegenerateProportionError
}

// voxelSelection narrows the voxel strategies. Nil fields are unrestricted.
type voxelSelection struct {
	Cells    []int64
	Isotopes []string // canonical names
	Voxels   map[int64]bool
}

// componentSet is the resolved component list of the by-component strategy.
type componentSet struct {
	names []string
	cells [][]int64
	cdr   []models.CDRFactors
}

// voxelMesh builds one row per voxel for a decay time: isotope activities
// summed over the selected cells, the voxel mass and the CDR factors of the
// voxel's material mix.
func voxelMesh(activity *dataset.AbsoluteActivity, mass *dataset.Mass, calc *dose.Calculator,
	decayTime float64, sel voxelSelection) (*meshRows, error) {
	columns, colOf, raw := isotopeColumns(activity.Isotopes(), sel.Isotopes)
	t := activity.FilteredTable(dataset.ActivityFilter{
		DecayTimes: []float64{decayTime},
		Cells:      sel.Cells,
		Isotopes:   raw,
	})

	voxelLabels, _ := t.LevelLabels(models.KeyVoxel)
	isoLabels, _ := t.LevelLabels(models.KeyIsotope)
	values, _ := t.Column(models.KeyAbsoluteActivity)

	sums := make(map[int64][]float64)
	for r, v := range voxelLabels {
		id := v.Int()
		if sel.Voxels != nil && !sel.Voxels[id] {
			continue
		}
		row, ok := sums[id]
		if !ok {
			row = make([]float64, len(columns))
			sums[id] = row
		}
		row[colOf[isoLabels[r].Str()]] += values[r]
	}

	voxels := make([]int64, 0, len(sums))
	for id := range sums {
		voxels = append(voxels, id)
	}
	sort.Slice(voxels, func(i, j int) bool { return voxels[i] < voxels[j] })

	proportions, err := mass.VoxelMaterialProportions(voxels, sel.Cells)
	var degenerate *dataset.DegenerateProportionError
	if err != nil && !errors.As(err, &degenerate) {
		return nil, err
	}
	masses := mass.VoxelMasses(sel.Cells)

	labels := make([]dataset.Label, len(voxels))
	grams := make([]float64, len(voxels))
	rows := make([][]float64, len(voxels))
	for i, id := range voxels {
		labels[i] = dataset.IntLabel(id)
		grams[i] = masses[id]
		rows[i] = sums[id]
	}
	out, err := buildMesh(labels, grams, columns, rows, calc.CDRFactorsList(proportions))
	if err != nil {
		return nil, err
	}
	out.degenerate = degenerate
	return out, nil
}

// componentMesh builds one row per component for a decay time, labelled by
// component name.
func componentMesh(activity *dataset.AbsoluteActivity, mass *dataset.Mass, set *componentSet,
	decayTime float64) (*meshRows, error) {
	groupsOfCell := make(map[int64][]int)
	var cells []int64
	for g, group := range set.cells {
		for _, c := range group {
			if _, ok := groupsOfCell[c]; !ok {
				cells = append(cells, c)
			}
			groupsOfCell[c] = appendUnique(groupsOfCell[c], g)
		}
	}

	columns, colOf, _ := isotopeColumns(activity.Isotopes(), nil)
	t := activity.FilteredTable(dataset.ActivityFilter{
		DecayTimes: []float64{decayTime},
		Cells:      cells,
	})
	cellLabels, _ := t.LevelLabels(models.KeyCell)
	isoLabels, _ := t.LevelLabels(models.KeyIsotope)
	values, _ := t.Column(models.KeyAbsoluteActivity)

	rows := make([][]float64, len(set.names))
	for g := range rows {
		rows[g] = make([]float64, len(columns))
	}
	for r, c := range cellLabels {
		col := colOf[isoLabels[r].Str()]
		for _, g := range groupsOfCell[c.Int()] {
			rows[g][col] += values[r]
		}
	}

	labels := make([]dataset.Label, len(set.names))
	for g, name := range set.names {
		labels[g] = dataset.StringLabel(name)
	}
	return buildMesh(labels, mass.CellGroupMasses(set.cells), columns, rows, set.cdr)
}

// buildMesh assembles a mesh activity table. Rows come back sorted by label,
// so the CDR vectors are realigned to the final row order.
func buildMesh(labels []dataset.Label, grams []float64, columns []string, rows [][]float64,
	cdr []models.CDRFactors) (*meshRows, error) {
	b := dataset.NewBuilder([]string{models.KeyVoxel}, append([]string{models.KeyMassGrams}, columns...))
	byLabel := make(map[string]models.CDRFactors, len(labels))
	for i, l := range labels {
		b.Append([]dataset.Label{l}, append([]float64{grams[i]}, rows[i]...)...)
		byLabel[l.String()] = cdr[i]
	}
	t, err := b.Table()
	if err != nil {
		return nil, err
	}
	mesh, err := dataset.NewMeshActivity(t)
	if err != nil {
		return nil, fmt.Errorf("error building mesh activity: %w", err)
	}

	aligned := make([]models.CDRFactors, mesh.Len())
	for i, l := range mesh.Voxels() {
		aligned[i] = byLabel[l.String()]
	}
	return &meshRows{mesh: mesh, cdr: aligned}, nil
}

// isotopeColumns maps the raw isotope labels of a dataset onto canonical
// column names. When wanted is non-nil only those canonical names are kept,
// and raw lists the matching raw labels.
func isotopeColumns(labels []string, wanted []string) (columns []string, colOf map[string]int, raw []string) {
	var keep map[string]bool
	if wanted != nil {
		keep = make(map[string]bool, len(wanted))
		for _, w := range wanted {
			keep[canonical(w)] = true
		}
		raw = []string{}
	}

	canon := make(map[string]string, len(labels))
	seen := make(map[string]bool)
	for _, l := range labels {
		c := canonical(l)
		if keep != nil && !keep[c] {
			continue
		}
		canon[l] = c
		if keep != nil {
			raw = append(raw, l)
		}
		if !seen[c] {
			seen[c] = true
			columns = append(columns, c)
		}
	}
	sort.Strings(columns)

	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c] = i
	}
	colOf = make(map[string]int, len(canon))
	for l, c := range canon {
		colOf[l] = index[c]
	}
	return columns, colOf, raw
}

// canonical normalises an isotope name, keeping names that do not parse.
func canonical(name string) string {
	if n, err := nuclide.Normalize(name); err == nil {
		return n
	}
	return name
}

func appendUnique(s []int, v int) []int {
	for _, x := range s {
		if x == v {
			return s
		}
	}
	return append(s, v)
}
