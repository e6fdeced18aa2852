package toolset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/imyousuf/metricscarpet/internal/experiment"
	"github.com/imyousuf/metricscarpet/internal/invoke"
	"github.com/imyousuf/metricscarpet/internal/languages"
	"github.com/imyousuf/metricscarpet/internal/measures"
	"github.com/imyousuf/metricscarpet/internal/table"
)

// MatlabName is the registry name of the MATLAB adapter.
const MatlabName = "matlab"

const (
	matlabVariable   = "measures"
	matlabOutputFile = "measures.mat"
)

// MatlabColumns are the output columns, in generateStats field order.
var MatlabColumns = []table.Column{
	{Name: "line_counts", Kind: table.Number},
	{Name: "comments", Kind: table.Number},
	{Name: "cyclomatic_complexity", Kind: table.Number},
	{Name: "help_metric", Kind: table.Number},
	{Name: "filename", Kind: table.Text},
	{Name: "pathname", Kind: table.Text},
}

// DefaultMatlabFieldPositions reads the first six record fields.
var DefaultMatlabFieldPositions = []int{0, 1, 2, 3, 4, 5}

// LegacyMatlabFieldPositions matches generateStats builds that emit three
// bookkeeping fields before the file name.
var LegacyMatlabFieldPositions = []int{0, 1, 2, 3, 7, 8}

var matlabColumnsByMeasure = map[measures.Measure]string{
	measures.LinesOfCode:          "line_counts",
	measures.CommentLines:         "comments",
	measures.CyclomaticComplexity: "cyclomatic_complexity",
	measures.HelpCoverage:         "help_metric",
}

// Matlab runs the generateStats script in MATLAB and reads the MAT-file it
// saves.
type Matlab struct {
	*base
	invoker    invoke.Invoker
	executable string
	scripts    string
	tempDir    string
	decoder    Decoder
	// configErr defers invalid options to the first measurement.
	configErr error
}

// NewMatlab constructs the MATLAB adapter.
func NewMatlab(opts Options) *Matlab {
	opts = opts.withDefaults()
	advertised := []measures.Measure{
		measures.CyclomaticComplexity,
		measures.LinesOfCode,
		measures.CommentLines,
		measures.HelpCoverage,
	}
	m := &Matlab{
		base:       newBase(MatlabName, []string{languages.Matlab}, advertised, matlabColumnsByMeasure, opts),
		invoker:    opts.Invoker,
		executable: matlabExecutable(opts),
		scripts:    resolve(opts.ToolsRoot, opts.Manifest.Matlab.Resources, defaultMatlabScripts),
		tempDir:    opts.TempDir,
	}

	positions := opts.MatlabFieldPositions
	if len(positions) == 0 {
		positions = DefaultMatlabFieldPositions
	}
	if err := ValidateFieldPositions(positions); err != nil {
		m.configErr = errors.Wrap(err, "matlab")
		positions = DefaultMatlabFieldPositions
	}
	fields := make([]MatField, len(MatlabColumns))
	for i, col := range MatlabColumns {
		fields[i] = MatField{Position: positions[i], Column: col}
	}
	m.decoder = &MatDecoder{Variable: matlabVariable, Fields: fields}
	return m
}

func matlabExecutable(opts Options) string {
	if opts.MatlabExecutable != "" {
		return opts.MatlabExecutable
	}
	if exe := opts.Manifest.Matlab.Executable; exe != "" {
		return resolve(opts.ToolsRoot, exe, "")
	}
	return "matlab"
}

// ValidateFieldPositions checks a MATLAB field position list: one
// non-negative, distinct position per output column.
func ValidateFieldPositions(positions []int) error {
	if len(positions) != len(MatlabColumns) {
		return errors.Newf("field positions: got %d, need %d", len(positions), len(MatlabColumns))
	}
	seen := make(map[int]bool, len(positions))
	for _, p := range positions {
		if p < 0 {
			return errors.Newf("field positions: negative position %d", p)
		}
		if seen[p] {
			return errors.Newf("field positions: position %d used twice", p)
		}
		seen[p] = true
	}
	return nil
}

// Measure runs generateStats over the product's source tree.
func (m *Matlab) Measure(ctx context.Context, product Product) error {
	sink, err := m.ready(product.Language)
	if err != nil {
		return err
	}
	return m.run(ctx, sink, product.Name, product.Location)
}

// MeasureFile runs generateStats over a single .m file.
func (m *Matlab) MeasureFile(ctx context.Context, path string) error {
	sink, err := m.ready(languages.FromPath(path))
	if err != nil {
		return err
	}
	return m.run(ctx, sink, filepath.Base(path), path)
}

func (m *Matlab) run(ctx context.Context, sink experiment.Sink, name, target string) error {
	if m.configErr != nil {
		return m.configErr
	}

	dir, err := os.MkdirTemp(m.tempDir, "mcarpet-matlab-*")
	if err != nil {
		return wrapExecution(err, "matlab: create working directory")
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			m.log.Warnw("could not remove working directory", "dir", dir, "error", err)
			return
		}
		m.log.Debugw("removed working directory", "dir", dir)
	}()

	output := filepath.Join(dir, matlabOutputFile)
	cmd := invoke.Command{
		Name:  MatlabName,
		Path:  m.executable,
		Args:  []string{"-nodisplay", "-nosplash", "-nodesktop"},
		Stdin: m.script(target, output),
		Dir:   dir,
	}
	m.log.Debugw("invoking", "product", name, "command", cmd.String(), "workdir", dir)

	res, err := m.invoker.Invoke(ctx, cmd)
	if err != nil {
		return errors.WithHint(
			wrapExecution(err, "matlab: analyze %s", name),
			"check that MATLAB is installed and matlab.executable points at it")
	}
	m.log.Debugw("finished", "product", name, "duration", res.Duration)

	raw, err := os.ReadFile(output)
	if errors.Is(err, os.ErrNotExist) {
		return errors.Mark(
			errors.Newf("matlab: generateStats saved no %s for %s\nstdout: %s", matlabOutputFile, name, strings.TrimSpace(string(res.Stdout))),
			ErrToolExecution)
	}
	if err != nil {
		return wrapExecution(err, "matlab: read %s", matlabOutputFile)
	}

	t, err := m.decoder.Decode(raw)
	if err != nil {
		return errors.Wrapf(err, "matlab: statistics for %s", name)
	}
	return m.deliver(ctx, sink, name, t)
}

// script is fed to MATLAB on stdin. Errors exit with status 1 so they
// surface as failed invocations instead of a hanging session.
func (m *Matlab) script(target, output string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "try\n")
	fmt.Fprintf(&b, "  path(%s, path());\n", matlabString(m.scripts))
	fmt.Fprintf(&b, "  %s = generateStats(%s);\n", matlabVariable, matlabString(target))
	fmt.Fprintf(&b, "  save(%s, %s, '-v7');\n", matlabString(output), matlabString(matlabVariable))
	fmt.Fprintf(&b, "catch err\n")
	fmt.Fprintf(&b, "  disp(getReport(err));\n")
	fmt.Fprintf(&b, "  exit(1);\n")
	fmt.Fprintf(&b, "end\n")
	fmt.Fprintf(&b, "exit;\n")
	return b.String()
}

// matlabString quotes s as a MATLAB char literal.
func matlabString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
