// Package experiment collects normalized measurement tables from tool
// adapters into a larger dataset.
package experiment

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/imyousuf/metricscarpet/internal/table"
)

// Sink accepts one fully decoded table per successful measurement.
type Sink interface {
	Aggregate(ctx context.Context, t *table.Table) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, t *table.Table) error

// Aggregate calls f.
func (f SinkFunc) Aggregate(ctx context.Context, t *table.Table) error {
	return f(ctx, t)
}

// Experiment is an in-memory sink. It is safe for concurrent use by several
// adapters.
type Experiment struct {
	name string

	mu     sync.Mutex
	tables []*table.Table
}

// New creates an empty in-memory experiment.
func New(name string) *Experiment {
	return &Experiment{name: name}
}

// Name returns the experiment name.
func (e *Experiment) Name() string { return e.name }

// Aggregate validates t and keeps it.
func (e *Experiment) Aggregate(_ context.Context, t *table.Table) error {
	if t == nil {
		return errors.New("nil table")
	}
	if err := t.Validate(); err != nil {
		return errors.Wrapf(err, "experiment %s: rejected table from %s", e.name, t.Tool)
	}
	e.mu.Lock()
	e.tables = append(e.tables, t)
	e.mu.Unlock()
	return nil
}

// Len returns the number of aggregated tables.
func (e *Experiment) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.tables)
}

// Tables returns the aggregated tables in arrival order.
func (e *Experiment) Tables() []*table.Table {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*table.Table, len(e.tables))
	copy(out, e.tables)
	return out
}

// Frame merges every aggregated table into one.
func (e *Experiment) Frame() *table.Table {
	return table.Merge(e.Tables()...)
}
