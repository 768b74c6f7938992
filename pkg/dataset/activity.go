package dataset

import (
	"radwaste/internal/models"
)

// AbsoluteActivitySchema is the schema of DataAbsoluteActivity: activity per
// decay time, voxel, cell and isotope.
var AbsoluteActivitySchema = Schema{
	Name: "DataAbsoluteActivity",
	Levels: []Level{
		{Name: models.KeyTime, Kind: KindFloat},
		{Name: models.KeyVoxel, Kind: KindInt},
		{Name: models.KeyCell, Kind: KindInt},
		{Name: models.KeyIsotope, Kind: KindString},
	},
	Columns: []string{models.KeyAbsoluteActivity},
}

// AbsoluteActivity holds the absolute activity of every isotope in every
// voxel and cell, for each decay time.
type AbsoluteActivity struct {
	*Dataset
}

// NewAbsoluteActivity validates t as a DataAbsoluteActivity table.
func NewAbsoluteActivity(t *Table) (*AbsoluteActivity, error) {
	d, err := New(AbsoluteActivitySchema, t)
	if err != nil {
		return nil, err
	}
	return &AbsoluteActivity{d}, nil
}

// LoadAbsoluteActivity reads DataAbsoluteActivity.arrow from folder.
func LoadAbsoluteActivity(folder string) (*AbsoluteActivity, error) {
	d, err := Load(folder, AbsoluteActivitySchema)
	if err != nil {
		return nil, err
	}
	return &AbsoluteActivity{d}, nil
}

// ActivityFilter selects rows of an AbsoluteActivity. A nil slice leaves its
// level unrestricted; a non-nil empty slice matches nothing.
type ActivityFilter struct {
	DecayTimes []float64
	Voxels     []int64
	Cells      []int64
	Isotopes   []string
}

func (f ActivityFilter) filter() Filter {
	out := Filter{}
	if f.DecayTimes != nil {
		out[models.KeyTime] = FloatLabels(f.DecayTimes)
	}
	if f.Voxels != nil {
		out[models.KeyVoxel] = IntLabels(f.Voxels)
	}
	if f.Cells != nil {
		out[models.KeyCell] = IntLabels(f.Cells)
	}
	if f.Isotopes != nil {
		out[models.KeyIsotope] = StringLabels(f.Isotopes)
	}
	return out
}

// FilteredTable returns the rows matching every set constraint of f.
func (a *AbsoluteActivity) FilteredTable(f ActivityFilter) *Table {
	// Every level of the filter is part of the schema, so Select cannot fail.
	t, _ := a.table.Select(f.filter())
	return t
}

// DecayTimes returns the distinct decay times in ascending order.
func (a *AbsoluteActivity) DecayTimes() []float64 {
	labels := a.table.Unique(models.KeyTime)
	out := make([]float64, len(labels))
	for i, l := range labels {
		out[i] = l.Float()
	}
	return out
}

// WithDecayTimes returns a copy in which the n-th distinct decay time is
// relabelled to times[n]. It turns the decay step indexes of the simulation
// output into physical times after shutdown.
func (a *AbsoluteActivity) WithDecayTimes(times []float64) (*AbsoluteActivity, error) {
	d, err := a.Relabel(models.KeyTime, FloatLabels(times))
	if err != nil {
		return nil, err
	}
	return &AbsoluteActivity{d}, nil
}

// Isotopes returns the distinct isotope names in lexical order.
func (a *AbsoluteActivity) Isotopes() []string {
	labels := a.table.Unique(models.KeyIsotope)
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = l.Str()
	}
	return out
}
