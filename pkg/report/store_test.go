package report

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"radwaste/internal/models"
	"radwaste/pkg/dataset"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "reports", "radwaste.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveRunAndReadBack(t *testing.T) {
	s := openStore(t)
	rows := []DoseRow{
		{DecayTime: 86400, Voxel: "2", MassGrams: 4, Dose1m: 1e-9, CDR: 2e-7},
		{DecayTime: 3600, Voxel: "1", MassGrams: 5, Dose1m: 5e99, CDR: 3e-6},
		{DecayTime: 3600, Voxel: "10", MassGrams: 6, Dose1m: 0, CDR: 0},
	}

	id, err := s.SaveRun("standard", "/data/case1", rows)
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	assert.NoError(t, err)

	got, err := s.Doses(id)
	require.NoError(t, err)
	assert.Equal(t, []DoseRow{rows[1], rows[2], rows[0]}, got)

	runs, err := s.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, id, runs[0].ID)
	assert.Equal(t, "standard", runs[0].Mode)
	assert.Equal(t, "/data/case1", runs[0].InputDir)
	assert.False(t, runs[0].CreatedAt.IsZero())
}

func TestRunsAreIsolated(t *testing.T) {
	s := openStore(t)
	first, err := s.SaveRun("standard", "a", []DoseRow{{Voxel: "1", CDR: 1}})
	require.NoError(t, err)
	second, err := s.SaveRun("by-component", "b", []DoseRow{{Voxel: "Vessel", CDR: 2}, {Voxel: "Shield", CDR: 3}})
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	got, err := s.Doses(second)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Vessel", got[0].Voxel)

	empty, err := s.SaveRun("filtered", "c", nil)
	require.NoError(t, err)
	got, err = s.Doses(empty)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDosesUnknownRun(t *testing.T) {
	_, err := openStore(t).Doses("missing")
	assert.ErrorIs(t, err, ErrUnknownRun)
}

func TestReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "radwaste.db")
	s, err := Open(path)
	require.NoError(t, err)
	id, err := s.SaveRun("standard", "in", []DoseRow{{DecayTime: 1, Voxel: "3", CDR: 4}})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Doses(id)
	require.NoError(t, err)
	assert.Equal(t, []DoseRow{{DecayTime: 1, Voxel: "3", CDR: 4}}, got)
}

func TestRowsFromMesh(t *testing.T) {
	b := dataset.NewBuilder([]string{models.KeyVoxel}, []string{models.KeyMassGrams, "Co60"})
	b.Append([]dataset.Label{dataset.IntLabel(7)}, 2, 1)
	b.Append([]dataset.Label{dataset.IntLabel(3)}, 1, 1)
	tbl, err := b.Table()
	require.NoError(t, err)
	mesh, err := dataset.NewMeshActivity(tbl)
	require.NoError(t, err)
	mesh, err = mesh.WithDoses([]float64{0.1, 0.2}, []float64{1, 2})
	require.NoError(t, err)

	rows := RowsFromMesh(60, mesh)
	assert.Equal(t, []DoseRow{
		{DecayTime: 60, Voxel: "3", MassGrams: 1, Dose1m: 0.1, CDR: 1},
		{DecayTime: 60, Voxel: "7", MassGrams: 2, Dose1m: 0.2, CDR: 2},
	}, rows)
}
