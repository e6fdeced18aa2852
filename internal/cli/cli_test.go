package cli

import (
	"bytes"
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imyousuf/metricscarpet/internal/matfile"
	"github.com/imyousuf/metricscarpet/internal/table"
)

// isolate points HOME, the store and the tools root at a temp dir so the
// test never reads or writes the user's files.
func isolate(t *testing.T, storage string) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("MCARPET_TOOLS_ROOT", filepath.Join(dir, "tools"))
	t.Setenv("MCARPET_EXPERIMENT_STORAGE", storage)
	t.Setenv("MCARPET_EXPERIMENT_DB_PATH", filepath.Join(dir, "db"))
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func goProduct(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "demo")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	src := "package demo\n\n// Add sums.\nfunc Add(a, b int) int {\n\tif a > b {\n\t\treturn a + b\n\t}\n\treturn b + a\n}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "add.go"), []byte(src), 0o644))
	return dir
}

func readCSV(t *testing.T, s string) [][]string {
	t.Helper()
	records, err := csv.NewReader(strings.NewReader(s)).ReadAll()
	require.NoError(t, err)
	return records
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "mcarpet version dev")
}

func TestToolsListsEveryAdapter(t *testing.T) {
	isolate(t, "memory")
	out, err := execute(t, "tools")
	require.NoError(t, err)
	for _, want := range []string{"pmd", "matlab", "estimator", "NPathComplexity", "java"} {
		assert.Contains(t, out, want)
	}
}

func TestToolsFilterByMeasure(t *testing.T) {
	isolate(t, "memory")
	out, err := execute(t, "tools", "--measure", "npath-complexity")
	require.NoError(t, err)
	assert.Contains(t, out, "pmd")
	assert.NotContains(t, out, "matlab")
	assert.NotContains(t, out, "estimator")

	_, err = execute(t, "tools", "--measure", "halstead")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown measure "halstead"`)
	assert.Contains(t, strings.Join(errors.GetAllHints(err), " "), "npath_complexity")
}

func TestMeasureWithEstimator(t *testing.T) {
	isolate(t, "memory")
	product := goProduct(t)

	out, err := execute(t, "measure", product, "--format", "csv")
	require.NoError(t, err)

	records := readCSV(t, out)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"tool", "product", "filename"}, records[0][:3])
	assert.Equal(t, "estimator", records[1][0])
	assert.Equal(t, "demo", records[1][1])
	assert.Equal(t, "add.go", records[1][2])
}

func TestMeasureSingleFile(t *testing.T) {
	isolate(t, "memory")
	product := goProduct(t)

	out, err := execute(t, "measure", filepath.Join(product, "add.go"), "--file", "--tool", "estimator", "--format", "csv")
	require.NoError(t, err)
	records := readCSV(t, out)
	require.Len(t, records, 2)
	assert.Equal(t, "add.go", records[1][2])
}

func TestMeasureErrors(t *testing.T) {
	isolate(t, "memory")
	product := goProduct(t)

	_, err := execute(t, "measure", product, "--tool", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown tool "nope"`)

	_, err = execute(t, "measure", product, "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")

	_, err = execute(t, "measure", product, "--language", "cobol")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no tool supports language "cobol"`)
}

func TestExperimentLifecycle(t *testing.T) {
	isolate(t, "badger")
	product := goProduct(t)

	for i := 0; i < 2; i++ {
		_, err := execute(t, "measure", product, "--experiment", "nightly", "--format", "csv")
		require.NoError(t, err)
	}

	out, err := execute(t, "experiment", "show", "nightly", "--format", "csv")
	require.NoError(t, err)
	assert.Len(t, readCSV(t, out), 3, "header plus one row per batch")

	out, err = execute(t, "experiment", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "nightly")

	_, err = execute(t, "experiment", "drop", "nightly")
	require.NoError(t, err)

	_, err = execute(t, "experiment", "show", "nightly")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no measurements")
}

func TestExperimentExportToFile(t *testing.T) {
	dir := isolate(t, "badger")
	product := goProduct(t)

	_, err := execute(t, "measure", product, "--experiment", "once")
	require.NoError(t, err)

	dest := filepath.Join(dir, "once.csv")
	_, err = execute(t, "experiment", "export", "once", "--output", dest)
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	records := readCSV(t, string(data))
	require.Len(t, records, 2)
	assert.Equal(t, "estimator", records[1][0])
}

func TestExperimentExportMAT(t *testing.T) {
	dir := isolate(t, "badger")
	product := goProduct(t)

	_, err := execute(t, "measure", product, "--experiment", "mat")
	require.NoError(t, err)

	dest := filepath.Join(dir, "mat.mat")
	_, err = execute(t, "experiment", "export", "mat", "--format", "mat", "--output", dest)
	require.NoError(t, err)
	data, err := os.ReadFile(dest)
	require.NoError(t, err)

	stdout, err := execute(t, "experiment", "export", "mat", "-f", "mat")
	require.NoError(t, err)

	for _, raw := range [][]byte{data, []byte(stdout)} {
		f, err := matfile.Decode(raw)
		require.NoError(t, err)
		v, ok := f.Var("measures")
		require.True(t, ok)
		require.Equal(t, matfile.ClassStruct, v.Class)
		require.Len(t, v.Elems, 1)
		assert.Equal(t, []string{"tool", "product", "filename"}, v.Fields[:3])
		tool, err := v.Elems[0][0].Chars()
		require.NoError(t, err)
		assert.Equal(t, "estimator", tool)
		file, err := v.Elems[0][2].Chars()
		require.NoError(t, err)
		assert.Equal(t, "add.go", file)
	}

	_, err = execute(t, "experiment", "export", "mat", "--format", "xlsx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown export format "xlsx"`)
}

func TestRenderNonFiniteNumbers(t *testing.T) {
	tb := table.New(
		table.Column{Name: "filename", Kind: table.Text},
		table.Column{Name: "help_metric", Kind: table.Number},
	)
	require.NoError(t, tb.Append("gain.m", math.NaN()))
	require.NoError(t, tb.Append("fir.m", math.Inf(1)))

	var buf bytes.Buffer
	require.NoError(t, renderTable(&buf, tb, formatJSON))
	assert.Contains(t, buf.String(), `"NaN"`)
	assert.Contains(t, buf.String(), `"+Inf"`)

	buf.Reset()
	require.NoError(t, renderTable(&buf, tb, formatCSV))
	assert.Equal(t, "filename,help_metric\ngain.m,NaN\nfir.m,+Inf\n", buf.String())

	buf.Reset()
	require.NoError(t, renderTable(&buf, tb, formatTable))
	assert.Contains(t, buf.String(), "NaN")
}
