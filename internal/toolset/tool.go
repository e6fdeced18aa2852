// Package toolset wraps external static-analysis tools behind one
// measurement contract and normalizes their output into tables.
package toolset

import (
	"context"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/imyousuf/metricscarpet/internal/experiment"
	"github.com/imyousuf/metricscarpet/internal/invoke"
	"github.com/imyousuf/metricscarpet/internal/languages"
	"github.com/imyousuf/metricscarpet/internal/measures"
	"github.com/imyousuf/metricscarpet/internal/table"
)

// Tool is one analysis tool behind the measurement contract.
type Tool interface {
	// Name uniquely identifies the tool.
	Name() string
	// Languages returns the supported language tags, sorted.
	Languages() []string
	// Measures returns the produced measures in canonical order.
	Measures() []measures.Measure
	// Supports reports whether language is handled, ignoring case.
	Supports(language string) bool
	// Attach binds the tool to sink, replacing any previous one.
	Attach(sink experiment.Sink)
	// Measure analyzes product and hands one table to the attached sink.
	Measure(ctx context.Context, product Product) error
	// MeasureFile is Measure scoped to a single source file.
	MeasureFile(ctx context.Context, path string) error
	// ResolveNativeIdentifier maps a measure to the tool's own name for it.
	ResolveNativeIdentifier(m measures.Measure) (string, error)
}

// Options configures tool construction. The zero value is usable: tools
// run local processes, resolve resources under DefaultToolsRoot and log
// nothing.
type Options struct {
	// Sink is attached at construction when set.
	Sink experiment.Sink
	// Invoker runs external tools; defaults to an ExecInvoker.
	Invoker invoke.Invoker
	// ToolsRoot holds tool installations and resources.
	ToolsRoot string
	// Manifest overrides executable locations below ToolsRoot.
	Manifest *Manifest
	// TempDir is where per-call working directories are created; empty
	// means the system default.
	TempDir string
	Logger  *zap.SugaredLogger

	// PMDArgs are extra arguments appended to the PMD command line,
	// split with shell quoting rules.
	PMDArgs string
	// MatlabExecutable is the MATLAB binary; defaults to "matlab".
	MatlabExecutable string
	// MatlabFieldPositions selects which generateStats record fields hold
	// the six measured values.
	MatlabFieldPositions []int
	// EstimatorExclude lists globs the estimator skips.
	EstimatorExclude []string
}

func (o Options) withDefaults() Options {
	if o.Invoker == nil {
		o.Invoker = &invoke.ExecInvoker{}
	}
	if o.ToolsRoot == "" {
		o.ToolsRoot = DefaultToolsRoot()
	}
	if o.Manifest == nil {
		o.Manifest = &Manifest{}
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop().Sugar()
	}
	return o
}

// base holds what every adapter shares: identity, the validated measure
// map and the attached sink.
type base struct {
	name       string
	languages  []string
	advertised []measures.Measure
	native     map[measures.Measure]string
	log        *zap.SugaredLogger

	mu   sync.Mutex
	sink experiment.Sink
}

// newBase validates the measure map against the advertised measures and
// panics when they disagree; both are static tables.
func newBase(name string, langs []string, advertised []measures.Measure, native map[measures.Measure]string, opts Options) *base {
	if len(native) != len(advertised) {
		panic(errors.AssertionFailedf("%s: %d measures advertised, %d mapped", name, len(advertised), len(native)))
	}
	for _, m := range advertised {
		if !m.Valid() {
			panic(errors.AssertionFailedf("%s: %q is not a known measure", name, m))
		}
		id, ok := native[m]
		if !ok {
			panic(errors.AssertionFailedf("%s: measure %s has no native identifier", name, m))
		}
		if id == "" {
			panic(errors.AssertionFailedf("%s: measure %s maps to an empty identifier", name, m))
		}
	}

	ms := append([]measures.Measure(nil), advertised...)
	measures.Sort(ms)
	ls := make([]string, len(langs))
	for i, l := range langs {
		ls[i] = languages.Normalize(l)
	}
	sort.Strings(ls)

	nm := make(map[measures.Measure]string, len(native))
	for k, v := range native {
		nm[k] = v
	}
	return &base{
		name:       name,
		languages:  ls,
		advertised: ms,
		native:     nm,
		log:        opts.Logger.With("tool", name),
		sink:       opts.Sink,
	}
}

func (b *base) Name() string { return b.name }

func (b *base) Languages() []string {
	return append([]string(nil), b.languages...)
}

func (b *base) Measures() []measures.Measure {
	return append([]measures.Measure(nil), b.advertised...)
}

func (b *base) Supports(language string) bool {
	lang := languages.Normalize(language)
	for _, l := range b.languages {
		if l == lang {
			return true
		}
	}
	return false
}

func (b *base) Attach(sink experiment.Sink) {
	b.mu.Lock()
	b.sink = sink
	b.mu.Unlock()
}

func (b *base) ResolveNativeIdentifier(m measures.Measure) (string, error) {
	id, ok := b.native[m]
	if !ok {
		return "", errors.Mark(errors.Newf("%s does not produce %s", b.name, m), ErrUnknownMeasure)
	}
	return id, nil
}

// ready performs the checks every measurement starts with and returns the
// sink to deliver to.
func (b *base) ready(language string) (experiment.Sink, error) {
	b.mu.Lock()
	sink := b.sink
	b.mu.Unlock()
	if sink == nil {
		return nil, errors.WithHint(
			errors.Mark(errors.Newf("%s: measure called before attaching an experiment", b.name), ErrNotAttached),
			"attach a sink with Attach or pass Options.Sink")
	}
	if !b.Supports(language) {
		return nil, errors.Mark(
			errors.Newf("%s does not support language %q (supports %v)", b.name, language, b.languages),
			ErrUnsupportedLanguage)
	}
	return sink, nil
}

// deliver labels t and forwards it to sink.
func (b *base) deliver(ctx context.Context, sink experiment.Sink, product string, t *table.Table) error {
	t.Tool, t.Product = b.name, product
	if err := sink.Aggregate(ctx, t); err != nil {
		return errors.Wrapf(err, "%s: aggregate %s", b.name, product)
	}
	b.log.Infow("measured", "product", product, "rows", t.Len())
	return nil
}
