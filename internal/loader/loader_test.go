package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomorrownow/PyFCM/internal/fcm"
	"github.com/xuri/excelize/v2"
)

func TestLoadCSV_Fixture(t *testing.T) {
	m, err := LoadCSV("testdata/scenario_matrix.csv")
	require.NoError(t, err)

	assert.Equal(t, []string{"c1", "c2", "c3", "c4", "c5"}, m.Concepts())
	assert.Equal(t, 1.0, m.Weight(0, 1))
	assert.Equal(t, -0.5, m.Weight(2, 4))
	assert.Equal(t, 1.0, m.Weight(4, 0))
	assert.Equal(t, -1.0, m.Weight(4, 1))
	assert.Equal(t, 0.0, m.Weight(1, 1))
}

func TestLoadCSV_FixtureScenario(t *testing.T) {
	m, err := Load("testdata/scenario_matrix.csv")
	require.NoError(t, err)

	cfg := fcm.DefaultConfig()
	cfg.Rule = fcm.Kosko
	cfg.Squash = fcm.Tanh
	e, err := fcm.NewEngine(cfg)
	require.NoError(t, err)

	res, err := e.RunScenario(m, fcm.Scenario{Clamp: map[string]float64{"c1": 1}})
	require.NoError(t, err)
	assert.InDelta(t, 0.8771805720335079, res.Changes["c2"], 1e-9)
	assert.InDelta(t, -0.36340194800116987, res.Changes["c5"], 1e-9)
}

func TestLoadCSV_EmptyCellsAreZero(t *testing.T) {
	m, err := LoadCSV("testdata/sparse.csv")
	require.NoError(t, err)

	want := [][]float64{
		{0, 0.5, 0},
		{-0.25, 0, 1},
		{0, 0, 0},
	}
	for i := range want {
		for j := range want[i] {
			assert.Equal(t, want[i][j], m.Weight(i, j), "weight(%d,%d)", i, j)
		}
	}
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"index only", "idx\nidx\n"},
		{"label mismatch", ",a,b\na,0,1\nc,1,0\n"},
		{"missing row", ",a,b\na,0,1\n"},
		{"non-numeric", ",a,b\na,0,x\nb,1,0\n"},
		{"ragged row", ",a,b\na,0,1,2\nb,1,0\n"},
		{"duplicate concept", ",a,a\na,0,1\na,1,0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.data))
			require.Error(t, err)
		})
	}
}

func TestReadCSV_InvalidArgument(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(",a,b\na,0,1\nc,1,0\n"))
	require.ErrorIs(t, err, fcm.ErrInvalidArgument)

	_, err = ReadCSV(strings.NewReader(",a,b\na,0,nope\nb,1,0\n"))
	require.ErrorIs(t, err, fcm.ErrInvalidArgument)
}

func TestLoad_ConceptMap(t *testing.T) {
	names, err := LoadConceptMap("testdata/concepts.yaml")
	require.NoError(t, err)
	assert.Equal(t, "Rainfall", names["c1"])

	m, err := Load("testdata/scenario_matrix.csv", WithConceptMap(names))
	require.NoError(t, err)

	// Unmapped names are kept.
	assert.Equal(t, []string{"Rainfall", "Crop yield", "Soil moisture", "c4", "c5"}, m.Concepts())
	i, ok := m.Index("Crop yield")
	require.True(t, ok)
	assert.Equal(t, 1, i)
}

func TestLoadConceptMap_Errors(t *testing.T) {
	_, err := LoadConceptMap(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("- just\n- a list\n"), 0o644))
	_, err = LoadConceptMap(bad)
	require.Error(t, err)
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	_, err := Load("matrix.json")
	require.ErrorIs(t, err, fcm.ErrInvalidArgument)
}

func writeXLSX(t *testing.T, sheet string, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	if sheet != "Sheet1" {
		_, err := f.NewSheet(sheet)
		require.NoError(t, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	path := filepath.Join(t.TempDir(), "map.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoadXLSX(t *testing.T) {
	path := writeXLSX(t, "Sheet1", [][]any{
		{"", "a", "b", "c"},
		{"a", 0, 0.5, nil},
		{"b", -0.25, nil, 1},
		{"c"},
	})

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, m.Concepts())
	assert.Equal(t, 0.5, m.Weight(0, 1))
	assert.Equal(t, -0.25, m.Weight(1, 0))
	assert.Equal(t, 1.0, m.Weight(1, 2))
	assert.Equal(t, 0.0, m.Weight(2, 0))
}

func TestLoadXLSX_Sheet(t *testing.T) {
	path := writeXLSX(t, "weights", [][]any{
		{"", "x", "y"},
		{"x", 0, 1},
		{"y", -1, 0},
	})

	m, err := LoadXLSX(path, WithSheet("weights"))
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, m.Concepts())
	assert.Equal(t, -1.0, m.Weight(1, 0))

	_, err = LoadXLSX(path, WithSheet("nope"))
	require.Error(t, err)
}

func TestLoadXLSX_NonNumeric(t *testing.T) {
	path := writeXLSX(t, "Sheet1", [][]any{
		{"", "a", "b"},
		{"a", 0, "high"},
		{"b", 1, 0},
	})

	_, err := LoadXLSX(path)
	require.ErrorIs(t, err, fcm.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "high")
}

func TestReadCSV_CleansLabels(t *testing.T) {
	data := ",<b>Rain</b>,Crop   yield\n<b>Rain</b>,0,1\nCrop   yield,0,0\n"

	m, err := ReadCSV(strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, []string{"Rain", "Crop yield"}, m.Concepts())
	assert.Equal(t, 1.0, m.Weight(0, 1))
}
