package toolset

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imyousuf/metricscarpet/internal/table"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func column(t *testing.T, tb *table.Table, name string) int {
	t.Helper()
	i := slices.Index(tb.Header(), name)
	require.GreaterOrEqual(t, i, 0, "no column %s", name)
	return i
}

func TestEstimatorMeasure(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"main.go":              "package main\n\n// TODO: flags\nfunc main() {\n\tif true {\n\t}\n}\n",
		"util/strings.py":      "def f(x):\n    if x or not x:\n        return 1\n",
		"README.md":            "# not code\n",
		"build/gen.go":         "package gen\n",
		"vendor/dep/dep.go":    "package dep\n",
		".gitignore":           "build/\n",
		"web/node_modules/x.js": "var a = 1;\n",
	})

	sink := &recordingSink{}
	opts := testOptions(t)
	opts.Sink = sink
	opts.EstimatorExclude = []string{"**/vendor/**", "**/node_modules/**"}

	product := Product{Name: "svc", Location: root, Language: "go"}
	require.NoError(t, NewEstimator(opts).Measure(context.Background(), product))
	require.Equal(t, 1, sink.calls())

	got := sink.tables[0]
	assert.Equal(t, []string{
		"filename", "pathname", "language",
		"cyclomatic_complexity", "lines_of_code", "blank_lines", "comment_lines",
		"code_lines", "todo_count", "fixme_count", "hack_count",
	}, got.Header())
	require.Equal(t, 2, got.Len())

	byName := make(map[string]table.Row)
	for _, r := range got.Rows {
		byName[r[0].(string)] = r
	}
	main := byName["main.go"]
	require.NotNil(t, main)
	assert.Equal(t, root, main[column(t, got, "pathname")])
	assert.Equal(t, "go", main[column(t, got, "language")])
	assert.Equal(t, 7.0, main[column(t, got, "lines_of_code")])
	assert.Equal(t, 1.0, main[column(t, got, "todo_count")])
	assert.Equal(t, 2.0, main[column(t, got, "cyclomatic_complexity")])

	py := byName["strings.py"]
	require.NotNil(t, py)
	assert.Equal(t, "python", py[column(t, got, "language")])
	assert.Equal(t, 3.0, py[column(t, got, "cyclomatic_complexity")])
}

func TestEstimatorMeasureFile(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"Cart.java": "class Cart {\n  // FIXME\n}\n"})

	sink := &recordingSink{}
	opts := testOptions(t)
	opts.Sink = sink
	require.NoError(t, NewEstimator(opts).MeasureFile(context.Background(), filepath.Join(root, "Cart.java")))

	got := sink.tables[0]
	require.Equal(t, 1, got.Len())
	assert.Equal(t, "Cart.java", got.Product)
	assert.Equal(t, 1.0, got.Rows[0][column(t, got, "fixme_count")])
	assert.Equal(t, 1.0, got.Rows[0][column(t, got, "comment_lines")])
}

func TestEstimatorCancelled(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.go": "package a\n"})

	sink := &recordingSink{}
	opts := testOptions(t)
	opts.Sink = sink
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewEstimator(opts).Measure(ctx, Product{Name: "a", Location: root, Language: "go"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, sink.calls())
}
