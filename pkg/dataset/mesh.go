package dataset

import (
	"radwaste/internal/models"
)

// MeshActivitySchema is the schema of DataMeshActivity: one row per voxel
// (or per component), its mass and one activity column per isotope. The voxel
// level accepts integer voxel ids as well as component names.
var MeshActivitySchema = Schema{
	Name:    "DataMeshActivity",
	Levels:  []Level{{Name: models.KeyVoxel, Kind: KindAny}},
	Columns: []string{models.KeyMassGrams},
}

var reservedMeshColumns = map[string]bool{
	models.KeyMassGrams:  true,
	models.KeyDose1Meter: true,
	models.KeyCDR:        true,
}

// MeshActivity holds per-voxel isotope activities and, once doses have been
// calculated, the dose at one meter and contact dose rate columns.
type MeshActivity struct {
	*Dataset
}

// NewMeshActivity validates t as a DataMeshActivity table.
func NewMeshActivity(t *Table) (*MeshActivity, error) {
	d, err := New(MeshActivitySchema, t)
	if err != nil {
		return nil, err
	}
	return &MeshActivity{d}, nil
}

// LoadMeshActivity reads DataMeshActivity.arrow from folder.
func LoadMeshActivity(folder string) (*MeshActivity, error) {
	d, err := Load(folder, MeshActivitySchema)
	if err != nil {
		return nil, err
	}
	return &MeshActivity{d}, nil
}

// Isotopes returns the isotope activity columns in table order.
func (m *MeshActivity) Isotopes() []string {
	var out []string
	for _, c := range m.table.columns {
		if !reservedMeshColumns[c] {
			out = append(out, c)
		}
	}
	return out
}

// Voxels returns the row labels in table order.
func (m *MeshActivity) Voxels() []Label {
	labels, _ := m.table.LevelLabels(models.KeyVoxel)
	return labels
}

// HasDoses reports whether dose columns are present.
func (m *MeshActivity) HasDoses() bool {
	return m.table.HasColumn(models.KeyDose1Meter) && m.table.HasColumn(models.KeyCDR)
}

// FilteredTable returns the rows of the given voxels; nil returns every row.
func (m *MeshActivity) FilteredTable(voxels []Label) *Table {
	f := Filter{}
	if voxels != nil {
		f[models.KeyVoxel] = voxels
	}
	t, _ := m.table.Select(f)
	return t
}

// WithDoses returns a copy with the dose columns set, row for row.
func (m *MeshActivity) WithDoses(dose1m, cdr []float64) (*MeshActivity, error) {
	t, err := m.table.WithColumns(
		[]string{models.KeyDose1Meter, models.KeyCDR},
		[][]float64{dose1m, cdr},
	)
	if err != nil {
		return nil, err
	}
	return NewMeshActivity(t)
}

// MeshInfoSchema is the schema of DataMeshInfo: the centre of every voxel.
var MeshInfoSchema = Schema{
	Name:    "DataMeshInfo",
	Levels:  []Level{{Name: models.KeyVoxel, Kind: KindInt}},
	Columns: []string{models.KeyX, models.KeyY, models.KeyZ},
}

// MeshInfo holds voxel centre coordinates.
type MeshInfo struct {
	*Dataset
}

// NewMeshInfo validates t as a DataMeshInfo table.
func NewMeshInfo(t *Table) (*MeshInfo, error) {
	d, err := New(MeshInfoSchema, t)
	if err != nil {
		return nil, err
	}
	return &MeshInfo{d}, nil
}

// LoadMeshInfo reads DataMeshInfo.arrow from folder.
func LoadMeshInfo(folder string) (*MeshInfo, error) {
	d, err := Load(folder, MeshInfoSchema)
	if err != nil {
		return nil, err
	}
	return &MeshInfo{d}, nil
}

// Centers returns the centre of each voxel keyed by voxel id.
func (m *MeshInfo) Centers() map[int64][3]float64 {
	xs := m.table.values[m.table.columnIndex(models.KeyX)]
	ys := m.table.values[m.table.columnIndex(models.KeyY)]
	zs := m.table.values[m.table.columnIndex(models.KeyZ)]
	out := make(map[int64][3]float64, m.Len())
	for r, l := range m.table.keys[0] {
		out[l.Int()] = [3]float64{xs[r], ys[r], zs[r]}
	}
	return out
}
