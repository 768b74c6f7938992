package dataset

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"radwaste/internal/models"
)

// fixtureMass: voxel 1 holds cell 10 (material 12), voxel 2 holds cells 10
// and 20 (materials 12 and 99), cell 30 is void.
func fixtureMass(t *testing.T) *Mass {
	t.Helper()
	b := NewBuilder([]string{models.KeyVoxel, models.KeyMaterial, models.KeyCell}, []string{models.KeyMassGrams})
	add := func(voxel, material, cell int64, grams float64) {
		b.Append([]Label{IntLabel(voxel), IntLabel(material), IntLabel(cell)}, grams)
	}
	add(1, 12, 10, 2)
	add(2, 12, 10, 2)
	add(2, 99, 20, 6)
	add(3, 0, 30, 0)
	tbl, err := b.Table()
	require.NoError(t, err)
	m, err := NewMass(tbl)
	require.NoError(t, err)
	return m
}

func TestMaterialIDProportions(t *testing.T) {
	m := fixtureMass(t)
	props, err := m.MaterialIDProportions([][]int64{{10}, {10, 20}, {20}})
	require.NoError(t, err)
	require.Len(t, props, 3)

	assert.Equal(t, models.MaterialProportion{12: 1.0}, props[0])
	assert.InDelta(t, 0.4, props[1][12], 1e-12)
	assert.InDelta(t, 0.6, props[1][99], 1e-12)
	assert.InDelta(t, 1.0, props[1].Sum(), 1e-12)
	assert.Equal(t, models.MaterialProportion{99: 1.0}, props[2])
}

func TestMaterialIDProportionsDuplicateCellsCountOnce(t *testing.T) {
	props, err := fixtureMass(t).MaterialIDProportions([][]int64{{10, 10, 20}})
	require.NoError(t, err)
	assert.InDelta(t, 0.4, props[0][12], 1e-12)
}

func TestMaterialIDProportionsZeroMassGroup(t *testing.T) {
	props, err := fixtureMass(t).MaterialIDProportions([][]int64{{10}, {30}, {404}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDegenerateProportion))

	var degenerate *DegenerateProportionError
	require.True(t, errors.As(err, &degenerate))
	assert.Equal(t, []int{1, 2}, degenerate.Groups)

	// Degenerate groups never look like a valid proportion.
	require.Len(t, props, 3)
	assert.Equal(t, models.MaterialProportion{12: 1.0}, props[0])
	assert.Empty(t, props[1])
	assert.NotEqual(t, 1.0, props[1].Sum())
	assert.Empty(t, props[2])
}

func TestVoxelMaterialProportions(t *testing.T) {
	m := fixtureMass(t)

	props, err := m.VoxelMaterialProportions([]int64{2, 1}, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, props[0][12], 1e-12)
	assert.InDelta(t, 0.75, props[0][99], 1e-12)
	assert.Equal(t, models.MaterialProportion{12: 1.0}, props[1])

	props, err = m.VoxelMaterialProportions([]int64{2}, []int64{20})
	require.NoError(t, err)
	assert.Equal(t, models.MaterialProportion{99: 1.0}, props[0])

	_, err = m.VoxelMaterialProportions([]int64{1, 3}, nil)
	assert.ErrorIs(t, err, ErrDegenerateProportion)
}

func TestVoxelAndGroupMasses(t *testing.T) {
	m := fixtureMass(t)
	assert.Equal(t, map[int64]float64{1: 2, 2: 8, 3: 0}, m.VoxelMasses(nil))
	assert.Equal(t, map[int64]float64{2: 6}, m.VoxelMasses([]int64{20}))
	assert.Equal(t, []float64{4, 10, 0}, m.CellGroupMasses([][]int64{{10}, {10, 20}, {30}}))
}

func TestMassFilteredTable(t *testing.T) {
	got := fixtureMass(t).FilteredTable(MassFilter{Materials: []int64{12}})
	assert.Equal(t, 2, got.Len())
}
