package table

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imyousuf/metricscarpet/internal/matfile"
)

func TestStructArrayRoundTrip(t *testing.T) {
	tbl := fileTable()
	require.NoError(t, tbl.Append("a.m", 10, 2.5))
	tbl.Rows = append(tbl.Rows, Row{"b.m", nil, 4.0})

	var buf bytes.Buffer
	require.NoError(t, matfile.NewWriter(&buf, true).Write(StructArray("frame", tbl)))

	f, err := matfile.Decode(buf.Bytes())
	require.NoError(t, err)
	v, ok := f.Var("frame")
	require.True(t, ok)
	assert.Equal(t, []int{2, 1}, v.Dims)
	assert.Equal(t, []string{"filename", "line_counts", "cyclomatic_complexity"}, v.Fields)

	name, err := v.Elems[0][0].Chars()
	require.NoError(t, err)
	assert.Equal(t, "a.m", name)
	lines, err := v.Elems[0][1].Scalar()
	require.NoError(t, err)
	assert.Equal(t, 10.0, lines)
	cc, err := v.Elems[1][2].Scalar()
	require.NoError(t, err)
	assert.Equal(t, 4.0, cc)
	assert.True(t, v.Elems[1][1] == nil || v.Elems[1][1].Empty(), "missing cell is []")
}

func TestFieldNames(t *testing.T) {
	long := strings.Repeat("a", 70)
	got := FieldNames([]string{"file name", "2x", "", "ok", "ok", "données", long, long})
	assert.Equal(t, "file_name", got[0])
	assert.Equal(t, "x2x", got[1])
	assert.Equal(t, "x", got[2])
	assert.Equal(t, "ok", got[3])
	assert.Equal(t, "ok_2", got[4])
	assert.Equal(t, "donn_es", got[5])
	assert.Len(t, got[6], maxFieldName)
	assert.Len(t, got[7], maxFieldName)
	assert.NotEqual(t, got[6], got[7])
}
