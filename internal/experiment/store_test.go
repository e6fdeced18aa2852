package experiment

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imyousuf/metricscarpet/internal/table"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreAppendAndFrame(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b, err := s.Append(ctx, "baseline", pmdTable(t, 2))
	require.NoError(t, err)
	assert.NotEmpty(t, b.ID)
	_, err = s.Append(ctx, "baseline", matlabTable(t))
	require.NoError(t, err)

	batches, err := s.Batches(ctx, "baseline")
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Equal(t, "pmd", batches[0].Table.Tool)
	assert.Equal(t, "matlab", batches[1].Table.Tool)

	frame, err := s.Frame(ctx, "baseline")
	require.NoError(t, err)
	assert.Equal(t, 3, frame.Len())
	// Numbers survive the JSON round trip with their kind.
	assert.Equal(t, 120.0, frame.Rows[2][4])
}

func TestStoreBatchOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	for _, product := range []string{"a", "b", "c"} {
		tb := pmdTable(t, 1)
		tb.Product = product
		_, err := s.Append(ctx, "ordered", tb)
		require.NoError(t, err)
	}
	batches, err := s.Batches(ctx, "ordered")
	require.NoError(t, err)
	require.Len(t, batches, 3)
	for i, want := range []string{"a", "b", "c"} {
		assert.Equal(t, want, batches[i].Table.Product)
	}
}

func TestStoreExperimentsAndDrop(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Sink("zeta").Aggregate(ctx, pmdTable(t, 1)))
	require.NoError(t, s.Sink("alpha").Aggregate(ctx, pmdTable(t, 1)))
	require.NoError(t, s.Sink("alpha").Aggregate(ctx, matlabTable(t)))

	infos, err := s.Experiments(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "alpha", infos[0].Name)
	assert.Equal(t, 2, infos[0].Batches)
	assert.Equal(t, "zeta", infos[1].Name)
	assert.False(t, infos[0].Created.IsZero())

	require.NoError(t, s.Drop(ctx, "alpha"))
	infos, err = s.Experiments(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "zeta", infos[0].Name)

	batches, err := s.Batches(ctx, "alpha")
	require.NoError(t, err)
	assert.Empty(t, batches)
}

func TestStorePrefixIsolation(t *testing.T) {
	// "ab" must not see batches of "abc".
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.Append(ctx, "abc", pmdTable(t, 1))
	require.NoError(t, err)

	batches, err := s.Batches(ctx, "ab")
	require.NoError(t, err)
	assert.Empty(t, batches)
}

func TestStoreRejects(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.Append(ctx, "", pmdTable(t, 1))
	assert.Error(t, err)
	_, err = s.Append(ctx, "a:b", pmdTable(t, 1))
	assert.Error(t, err)
	_, err = s.Append(ctx, "ok", nil)
	assert.Error(t, err)
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := OpenStore(dir)
	require.NoError(t, err)
	_, err = s.Append(ctx, "kept", pmdTable(t, 3))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = OpenStore(dir)
	require.NoError(t, err)
	defer s.Close()
	frame, err := s.Frame(ctx, "kept")
	require.NoError(t, err)
	assert.Equal(t, 3, frame.Len())
}

func TestStoreKeepsNonFiniteNumbers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tb := table.New(
		table.Column{Name: "filename", Kind: table.Text},
		table.Column{Name: "help_metric", Kind: table.Number},
	)
	tb.Tool, tb.Product = "matlab", "dsp"
	require.NoError(t, tb.Append("fir.m", 0.25))
	require.NoError(t, tb.Append("gain.m", math.NaN()))

	require.NoError(t, s.Sink("exp").Aggregate(ctx, tb))

	batches, err := s.Batches(ctx, "exp")
	require.NoError(t, err)
	require.Len(t, batches, 1)
	rows := batches[0].Table.Rows
	assert.Equal(t, 0.25, rows[0][1])
	assert.True(t, math.IsNaN(rows[1][1].(float64)))
}
