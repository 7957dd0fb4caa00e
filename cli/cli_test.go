package cli

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fleetCSV = "Equipamento,Operador,Data Operação,Horímetro,Manutenção,Área Operacional (ha)\n" +
	"T1,Ana,2024-01-01,500,sim,12\n" +
	"T2,Bruno,2024-01-02,1000,ok,8\n" +
	"T1,Ana,2024-01-03,1500,pendente,10\n"

func fleetFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "frota.csv")
	require.NoError(t, os.WriteFile(path, []byte(fleetCSV), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestClassify(t *testing.T) {
	out, err := run(t, "classify", fleetFile(t))
	require.NoError(t, err)

	var cls struct {
		Table     string   `json:"table"`
		Numeric   []string `json:"numeric"`
		HourMeter string   `json:"hourMeter"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &cls))
	assert.Equal(t, "frota", cls.Table)
	assert.Equal(t, "Horímetro", cls.HourMeter)
	assert.Contains(t, cls.Numeric, "Área Operacional (ha)")
}

func TestClassifyUnknownSheet(t *testing.T) {
	_, err := run(t, "classify", fleetFile(t), "--sheet", "Outra")
	assert.Error(t, err)
}

func TestAnalyzeSnapshot(t *testing.T) {
	out, err := run(t, "analyze", fleetFile(t),
		"--select", "Operador=Ana",
		"--range", "Horímetro=:1200",
		"--derive", "Área x2=[Área Operacional (ha)] * 2",
		"--format", "json")
	require.NoError(t, err)

	var snap struct {
		TotalRows    int `json:"totalRows"`
		FilteredRows int `json:"filteredRows"`
		Alerts       struct {
			Applicable bool `json:"applicable"`
		} `json:"alerts"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, 3, snap.TotalRows)
	assert.Equal(t, 1, snap.FilteredRows)
	assert.True(t, snap.Alerts.Applicable)
}

func TestAnalyzeAlertOverrides(t *testing.T) {
	out, err := run(t, "analyze", fleetFile(t), "--threshold", "0", "--status", "sim,pendente")
	require.NoError(t, err)

	var snap struct {
		Alerts struct {
			Count int `json:"count"`
		} `json:"alerts"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, 2, snap.Alerts.Count)

	_, err = run(t, "analyze", fleetFile(t), "--status", "quebrado")
	assert.Error(t, err)
}

func TestAnalyzeBetween(t *testing.T) {
	out, err := run(t, "analyze", fleetFile(t), "--between", "Data Operação=2024-01-02..2024-01-03")
	require.NoError(t, err)

	var snap struct {
		FilteredRows int `json:"filteredRows"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, 2, snap.FilteredRows)
}

func TestAnalyzeOutFile(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "snapshot.json")
	out, err := run(t, "analyze", fleetFile(t), "--select", "Operador=Bruno", "--format", "pretty", "--out", dest)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"filteredRows\": 1,")
}

func TestAnalyzeText(t *testing.T) {
	out, err := run(t, "analyze", fleetFile(t), "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "frota: 3 de 3 registros")
	assert.Contains(t, out, "Alertas:")
}

func TestAnalyzeRejectsBadFlags(t *testing.T) {
	path := fleetFile(t)
	for _, args := range [][]string{
		{"--select", "Operador"},
		{"--range", "Horímetro=abc:1"},
		{"--range", "Horímetro=5"},
		{"--between", "Data Operação=2024-01-01"},
		{"--derive", "=1"},
		{"--select", "Operador=Zé"},
	} {
		_, err := run(t, append([]string{"analyze", path}, args...)...)
		assert.Error(t, err, "args %v", args)
	}
}

func TestParseBound(t *testing.T) {
	v, err := parseBound("", math.Inf(1))
	require.NoError(t, err)
	assert.True(t, math.IsInf(v, 1))

	v, err = parseBound("12,5", 0)
	require.NoError(t, err)
	assert.Equal(t, 12.5, v)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, Version)
}
