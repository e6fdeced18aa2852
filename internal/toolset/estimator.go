package toolset

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/imyousuf/metricscarpet/internal/ignore"
	"github.com/imyousuf/metricscarpet/internal/languages"
	"github.com/imyousuf/metricscarpet/internal/measures"
	"github.com/imyousuf/metricscarpet/internal/table"
)

// EstimatorName is the registry name of the in-process estimator.
const EstimatorName = "estimator"

// maxEstimatedFileSize skips generated or vendored blobs.
const maxEstimatedFileSize = 4 << 20

var estimatorLanguages = []string{
	languages.Go,
	languages.Java,
	languages.JavaScript,
	languages.Python,
	languages.TypeScript,
}

// Estimator computes approximate measures in-process, for languages and
// machines without an external analyzer.
type Estimator struct {
	*base
	calc    measures.Calculator
	exclude []string
}

// NewEstimator constructs the estimator adapter.
func NewEstimator(opts Options) *Estimator {
	opts = opts.withDefaults()
	advertised := measures.Estimated()
	native := make(map[measures.Measure]string, len(advertised))
	for _, m := range advertised {
		native[m] = m.String()
	}
	return &Estimator{
		base:    newBase(EstimatorName, estimatorLanguages, advertised, native, opts),
		calc:    measures.NewCompositeCalculator(),
		exclude: opts.EstimatorExclude,
	}
}

// Measure estimates every supported source file below the product location.
func (e *Estimator) Measure(ctx context.Context, product Product) error {
	sink, err := e.ready(product.Language)
	if err != nil {
		return err
	}

	matcher := ignore.New([]string{product.Location}, e.exclude)
	if err := matcher.Load(); err != nil {
		return errors.Wrap(err, "estimator: load ignore rules")
	}

	t := e.newTable()
	err = filepath.WalkDir(product.Location, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != product.Location && (d.Name() == ".git" || matcher.MatchDir(path)) {
				return filepath.SkipDir
			}
			return nil
		}
		if matcher.Match(path) || !e.Supports(languages.FromPath(path)) {
			return nil
		}
		return e.addFile(t, path)
	})
	if err != nil {
		return errors.Wrapf(err, "estimator: walk %s", product.Location)
	}
	e.log.Debugw("estimated", "product", product.Name, "files", t.Len())
	return e.deliver(ctx, sink, product.Name, t)
}

// MeasureFile estimates a single source file.
func (e *Estimator) MeasureFile(ctx context.Context, path string) error {
	sink, err := e.ready(languages.FromPath(path))
	if err != nil {
		return err
	}
	t := e.newTable()
	if err := e.addFile(t, path); err != nil {
		return errors.Wrapf(err, "estimator: %s", path)
	}
	return e.deliver(ctx, sink, filepath.Base(path), t)
}

func (e *Estimator) newTable() *table.Table {
	cols := []table.Column{
		{Name: "filename", Kind: table.Text},
		{Name: "pathname", Kind: table.Text},
		{Name: "language", Kind: table.Text},
	}
	for _, m := range e.Measures() {
		cols = append(cols, table.Column{Name: m.String(), Kind: table.Number})
	}
	return table.New(cols...)
}

func (e *Estimator) addFile(t *table.Table, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() > maxEstimatedFileSize {
		e.log.Debugw("skipping large file", "path", path, "size", info.Size())
		return nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	lang := languages.FromPath(path)
	values, err := e.calc.Calculate(path, content, lang)
	if err != nil {
		return errors.Wrapf(err, "estimate %s", path)
	}

	row := []any{filepath.Base(path), filepath.Dir(path), lang}
	for _, m := range e.Measures() {
		row = append(row, values[m])
	}
	return t.Append(row...)
}
