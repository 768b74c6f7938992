package dataset

import (
	"fmt"
	"math"

	"radwaste/internal/models"
)

// MassSchema is the schema of DataMass: grams of each material in each voxel
// and cell.
var MassSchema = Schema{
	Name: "DataMass",
	Levels: []Level{
		{Name: models.KeyVoxel, Kind: KindInt},
		{Name: models.KeyMaterial, Kind: KindInt},
		{Name: models.KeyCell, Kind: KindInt},
	},
	Columns: []string{models.KeyMassGrams},
}

// Mass holds the mass in grams of every material per voxel and cell. It
// resolves the material composition of cell groups.
type Mass struct {
	*Dataset
}

// NewMass validates t as a DataMass table.
func NewMass(t *Table) (*Mass, error) {
	d, err := New(MassSchema, t)
	if err != nil {
		return nil, err
	}
	return &Mass{d}, nil
}

// LoadMass reads DataMass.arrow from folder.
func LoadMass(folder string) (*Mass, error) {
	d, err := Load(folder, MassSchema)
	if err != nil {
		return nil, err
	}
	return &Mass{d}, nil
}

// MassFilter selects rows of a Mass dataset. A nil slice leaves its level
// unrestricted; a non-nil empty slice matches nothing.
type MassFilter struct {
	Voxels    []int64
	Materials []int64
	Cells     []int64
}

// FilteredTable returns the rows matching every set constraint of f.
func (m *Mass) FilteredTable(f MassFilter) *Table {
	filter := Filter{}
	if f.Voxels != nil {
		filter[models.KeyVoxel] = IntLabels(f.Voxels)
	}
	if f.Materials != nil {
		filter[models.KeyMaterial] = IntLabels(f.Materials)
	}
	if f.Cells != nil {
		filter[models.KeyCell] = IntLabels(f.Cells)
	}
	t, _ := m.table.Select(filter)
	return t
}

// MaterialIDProportions returns, for each group of cell ids, the fraction of
// the group's mass held by each material id. The output keeps the input
// order. Groups with zero total mass get an empty proportion and are listed
// in the returned *DegenerateProportionError; the other groups are still
// resolved.
func (m *Mass) MaterialIDProportions(cellGroups [][]int64) ([]models.MaterialProportion, error) {
	groupsOfCell := make(map[int64][]int)
	for g, cells := range cellGroups {
		for _, c := range uniqueIDs(cells) {
			groupsOfCell[c] = append(groupsOfCell[c], g)
		}
	}
	cells := m.ids(models.KeyCell)
	sums := m.groupSums(len(cellGroups), func(r int) []int {
		return groupsOfCell[cells[r]]
	})
	return normalize(sums, func(g int) string {
		return fmt.Sprintf("group %d (cells %v)", g, cellGroups[g])
	})
}

// VoxelMaterialProportions resolves one material proportion per voxel,
// counting only the given cells (nil counts every cell).
func (m *Mass) VoxelMaterialProportions(voxels []int64, cells []int64) ([]models.MaterialProportion, error) {
	index := make(map[int64]int, len(voxels))
	for i, v := range voxels {
		index[v] = i
	}
	allowed := idSet(cells)
	voxelIDs, cellIDs := m.ids(models.KeyVoxel), m.ids(models.KeyCell)
	sums := m.groupSums(len(voxels), func(r int) []int {
		if allowed != nil && !allowed[cellIDs[r]] {
			return nil
		}
		if i, ok := index[voxelIDs[r]]; ok {
			return []int{i}
		}
		return nil
	})
	return normalize(sums, func(g int) string {
		return fmt.Sprintf("voxel %d", voxels[g])
	})
}

// VoxelMasses returns the total grams per voxel, counting only the given
// cells (nil counts every cell).
func (m *Mass) VoxelMasses(cells []int64) map[int64]float64 {
	allowed := idSet(cells)
	voxelIDs, cellIDs := m.ids(models.KeyVoxel), m.ids(models.KeyCell)
	grams := m.table.values[m.table.columnIndex(models.KeyMassGrams)]
	out := make(map[int64]float64)
	for r, g := range grams {
		if allowed != nil && !allowed[cellIDs[r]] {
			continue
		}
		out[voxelIDs[r]] += g
	}
	return out
}

// CellGroupMasses returns the total grams of each cell group.
func (m *Mass) CellGroupMasses(cellGroups [][]int64) []float64 {
	out := make([]float64, len(cellGroups))
	cellIDs := m.ids(models.KeyCell)
	grams := m.table.values[m.table.columnIndex(models.KeyMassGrams)]
	for g, cells := range cellGroups {
		set := idSet(cells)
		for r, v := range grams {
			if set[cellIDs[r]] {
				out[g] += v
			}
		}
	}
	return out
}

func (m *Mass) ids(level string) []int64 {
	labels := m.table.keys[m.table.levelIndex(level)]
	out := make([]int64, len(labels))
	for i, l := range labels {
		out[i] = l.Int()
	}
	return out
}

// groupSums accumulates grams per material for n groups; groupsOf returns
// the groups a row contributes to.
func (m *Mass) groupSums(n int, groupsOf func(r int) []int) []map[int64]float64 {
	sums := make([]map[int64]float64, n)
	for g := range sums {
		sums[g] = make(map[int64]float64)
	}
	materials := m.ids(models.KeyMaterial)
	grams := m.table.values[m.table.columnIndex(models.KeyMassGrams)]
	for r, v := range grams {
		for _, g := range groupsOf(r) {
			sums[g][materials[r]] += v
		}
	}
	return sums
}

func normalize(sums []map[int64]float64, describe func(g int) string) ([]models.MaterialProportion, error) {
	out := make([]models.MaterialProportion, len(sums))
	var degenerate *DegenerateProportionError
	for g, byMaterial := range sums {
		total := models.MaterialProportion(byMaterial).Sum()
		out[g] = models.MaterialProportion{}
		if total == 0 || math.IsNaN(total) || math.IsInf(total, 0) {
			if degenerate == nil {
				degenerate = &DegenerateProportionError{}
			}
			degenerate.Groups = append(degenerate.Groups, g)
			degenerate.Labels = append(degenerate.Labels, describe(g))
			continue
		}
		for id, grams := range byMaterial {
			out[g][id] = grams / total
		}
	}
	if degenerate != nil {
		return out, degenerate
	}
	return out, nil
}

func idSet(ids []int64) map[int64]bool {
	if ids == nil {
		return nil
	}
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
