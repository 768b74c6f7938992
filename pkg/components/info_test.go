package components

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"radwaste/internal/models"
	"radwaste/pkg/dataset"
	"radwaste/pkg/dose"
)

func testMass(t *testing.T) *dataset.Mass {
	t.Helper()
	b := dataset.NewBuilder([]string{models.KeyVoxel, models.KeyMaterial, models.KeyCell}, []string{models.KeyMassGrams})
	add := func(voxel, material, cell int64, grams float64) {
		b.Append([]dataset.Label{dataset.IntLabel(voxel), dataset.IntLabel(material), dataset.IntLabel(cell)}, grams)
	}
	add(1, 12, 10, 2)
	add(2, 12, 10, 2)
	add(2, 99, 20, 6)
	add(3, 0, 30, 0)
	tbl, err := b.Table()
	require.NoError(t, err)
	m, err := dataset.NewMass(tbl)
	require.NoError(t, err)
	return m
}

func testCalculator(t *testing.T) *dose.Calculator {
	t.Helper()
	cdr, err := dose.NewCDRTable([]string{"Fe55"}, []string{"H", "He"}, [][]float64{{4.80e-09, 9.53e-09}})
	require.NoError(t, err)
	c, err := dose.NewCalculator(nil, cdr, map[int64]models.ElementMix{
		12: {"H": 0.4, "He": 0.6},
		99: {"He": 1.0},
	})
	require.NoError(t, err)
	return c
}

func TestNewInfo(t *testing.T) {
	list := []models.Component{
		{Name: "Vessel", CellIDs: []int64{20, 10}},
		{Name: "Shield", CellIDs: []int64{10}},
	}
	info, err := NewInfo(list, testMass(t), testCalculator(t))
	require.NoError(t, err)

	assert.Equal(t, list, info.Components())
	assert.Equal(t, []string{"Vessel", "Shield"}, info.Names())
	assert.Equal(t, []int64{10, 20}, info.AllCellIDs())

	props := info.MaterialProportions()
	require.Len(t, props, 2)
	assert.InDelta(t, 0.4, props[0][12], 1e-12)
	assert.InDelta(t, 0.6, props[0][99], 1e-12)
	assert.Equal(t, models.MaterialProportion{12: 1.0}, props[1])

	cdr := info.CDRFactors()
	require.Len(t, cdr, 2)
	// mix H = 0.4*0.4, He = 0.4*0.6 + 0.6*1.0
	assert.InEpsilon(t, 0.16*4.80e-09+0.84*9.53e-09, cdr[0]["Fe55"], 1e-12)
	assert.InEpsilon(t, 0.4*4.80e-09+0.6*9.53e-09, cdr[1]["Fe55"], 1e-12)
}

func TestNewInfoCopiesInput(t *testing.T) {
	list := []models.Component{{Name: "Vessel", CellIDs: []int64{10}}}
	info, err := NewInfo(list, testMass(t), testCalculator(t))
	require.NoError(t, err)

	list[0].CellIDs[0] = 20
	assert.Equal(t, []int64{10}, info.Components()[0].CellIDs)
}

func TestNewInfoDegenerateComponent(t *testing.T) {
	list := []models.Component{
		{Name: "Vessel", CellIDs: []int64{10}},
		{Name: "Void", CellIDs: []int64{30}},
	}
	_, err := NewInfo(list, testMass(t), testCalculator(t))
	require.Error(t, err)

	var degenerate *dataset.DegenerateProportionError
	require.True(t, errors.As(err, &degenerate))
	assert.Equal(t, []int{1}, degenerate.Groups)
}

type countingResolver struct {
	calls int
	inner ProportionResolver
}

func (r *countingResolver) MaterialIDProportions(groups [][]int64) ([]models.MaterialProportion, error) {
	r.calls++
	return r.inner.MaterialIDProportions(groups)
}

func TestNewInfoResolvesOnce(t *testing.T) {
	r := &countingResolver{inner: testMass(t)}
	info, err := NewInfo([]models.Component{
		{Name: "A", CellIDs: []int64{10}},
		{Name: "B", CellIDs: []int64{20}},
		{Name: "C", CellIDs: []int64{10, 20}},
	}, r, testCalculator(t))
	require.NoError(t, err)

	info.MaterialProportions()
	info.CDRFactors()
	assert.Equal(t, 1, r.calls)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "components.yaml")
	data := []byte(`
- name: Vessel
  cells: [10, 20]
- name: Shield
  cells: [30]
`)
	require.NoError(t, os.WriteFile(path, data, 0644))

	list, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []models.Component{
		{Name: "Vessel", CellIDs: []int64{10, 20}},
		{Name: "Shield", CellIDs: []int64{30}},
	}, list)
}

func TestLoadRejectsInvalidLists(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"missing name", "- cells: [1]\n", ErrInvalidComponent},
		{"no cells", "- name: A\n  cells: []\n", ErrInvalidComponent},
		{"duplicate", "- name: A\n  cells: [1]\n- name: A\n  cells: [2]\n", ErrDuplicateComponent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "components.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.data), 0644))
			_, err := Load(path)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
