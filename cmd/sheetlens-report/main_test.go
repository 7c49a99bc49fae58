package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetlens/internal/dataprocessing"
	"sheetlens/internal/shared/testutil"
)

func writeWorkbook(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.xlsx")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestRunWritesOutputs(t *testing.T) {
	in := writeWorkbook(t, testutil.TenDayWorkbook(t))
	out := t.TempDir()

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{
		"-in", in, "-out", out,
		"-start", "2024-01-03", "-end", "2024-01-05",
	}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	for _, name := range []string{
		"report.json",
		"filtered_data.csv",
		"line_chart.png",
		"bar_chart.png",
		"scatter_chart.png",
		"heatmap_chart.png",
	} {
		assert.FileExists(t, filepath.Join(out, name))
		assert.Contains(t, stdout.String(), filepath.Join(out, name))
	}

	csv, err := os.ReadFile(filepath.Join(out, "filtered_data.csv"))
	require.NoError(t, err)
	assert.Equal(t, "Date,Sales,Cost,Region\n"+
		"2024-01-03,30,8,south\n"+
		"2024-01-04,40,6,north\n"+
		"2024-01-05,50,10,north\n", string(csv))

	raw, err := os.ReadFile(filepath.Join(out, "report.json"))
	require.NoError(t, err)
	var report map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &report))
	assert.Equal(t, float64(10), report["data"].(map[string]interface{})["total_rows"])
	assert.Equal(t, false, report["data"].(map[string]interface{})["truncated"])
}

func TestRunCSVWithBOM(t *testing.T) {
	in := writeWorkbook(t, testutil.TenDayWorkbook(t))
	out := t.TempDir()
	cfgPath := filepath.Join(t.TempDir(), "sheetlens.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("analysis:\n  csv_bom: true\n"), 0o644))

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{
		"-in", in, "-out", out, "-config", cfgPath,
		"-start", "2024-01-09",
	}, &stdout, &stderr), stderr.String())

	csv, err := os.ReadFile(filepath.Join(out, "filtered_data.csv"))
	require.NoError(t, err)
	assert.Equal(t, "\xef\xbb\xbfDate,Sales,Cost,Region\n"+
		"2024-01-09,90,14,south\n"+
		"2024-01-10,100,12,north\n", string(csv))
}

func TestRunSVGAndXLSX(t *testing.T) {
	in := writeWorkbook(t, testutil.TenDayWorkbook(t))
	out := t.TempDir()

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{
		"-in", in, "-out", out, "-chart-format", "svg", "-export", "xlsx",
	}, &stdout, &stderr))

	assert.FileExists(t, filepath.Join(out, "filtered_data.xlsx"))
	svg, err := os.ReadFile(filepath.Join(out, "line_chart.svg"))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(svg), "<svg"))
}

func TestRunReportsCandidates(t *testing.T) {
	in := writeWorkbook(t, testutil.SingleSheet(t,
		[]string{"When", "Value"},
		[]any{"2024-02-02", 2},
		[]any{"2024-02-01", 1},
	))
	out := t.TempDir()

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-in", in, "-out", out}, &stdout, &stderr)
	require.ErrorIs(t, err, dataprocessing.ErrNoDateColumn)
	assert.Contains(t, stderr.String(), "date column candidate: When (parseable)")
	assert.FileExists(t, filepath.Join(out, "report.json"))
	assert.NoFileExists(t, filepath.Join(out, "filtered_data.csv"))

	stdout.Reset()
	require.NoError(t, run(context.Background(), []string{"-in", in, "-out", out, "-date-column", "When"}, &stdout, &stderr))
	assert.FileExists(t, filepath.Join(out, "filtered_data.csv"))
}

func TestRunFlagErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer

	assert.EqualError(t, run(context.Background(), nil, &stdout, &stderr), "-in is required")
	assert.ErrorIs(t, run(context.Background(), []string{"-h"}, &stdout, &stderr), flag.ErrHelp)

	in := writeWorkbook(t, testutil.TenDayWorkbook(t))
	err := run(context.Background(), []string{"-in", in, "-out", t.TempDir(), "-start", "01/03/2024"}, &stdout, &stderr)
	assert.EqualError(t, err, `-start: expected YYYY-MM-DD, got "01/03/2024"`)

	err = run(context.Background(), []string{"-in", in, "-out", t.TempDir(), "-export", "ods"}, &stdout, &stderr)
	assert.Error(t, err)
}

func TestRunRejectsBadInput(t *testing.T) {
	var stdout, stderr bytes.Buffer

	csvPath := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("a,b\n"), 0o644))
	err := run(context.Background(), []string{"-in", csvPath, "-out", t.TempDir()}, &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an xlsx workbook")

	missing := filepath.Join(t.TempDir(), "missing.xlsx")
	err = run(context.Background(), []string{"-in", missing, "-out", t.TempDir()}, &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
	assert.Empty(t, stdout.String())
}

func TestRunVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-version"}, &stdout, &stderr))
	assert.True(t, strings.HasPrefix(stdout.String(), "SheetLens "), stdout.String())
}
