package toolset

import (
	"bytes"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imyousuf/metricscarpet/internal/matfile"
	"github.com/imyousuf/metricscarpet/internal/table"
)

func TestFormatString(t *testing.T) {
	assert.Equal(t, "delimited-text", DelimitedText.String())
	assert.Equal(t, "structured-binary", StructuredBinary.String())
	assert.Equal(t, "unknown", Format(0).String())
}

func TestDecoderFormats(t *testing.T) {
	var d Decoder = &CSVDecoder{Header: []string{"a"}}
	assert.Equal(t, DelimitedText, d.Format())
	d = &MatDecoder{Variable: "v"}
	assert.Equal(t, StructuredBinary, d.Format())
}

func TestCSVDecoderKeepsValuesVerbatim(t *testing.T) {
	d := &CSVDecoder{Header: []string{"name", "value"}}
	got, err := d.Decode([]byte("name,value\n\" padded \",007\r\nmulti,\"line\nbreak\"\n"))
	require.NoError(t, err)
	require.Equal(t, 2, got.Len())
	assert.Equal(t, " padded ", got.Rows[0][0])
	assert.Equal(t, "007", got.Rows[0][1])
	assert.Equal(t, "line\nbreak", got.Rows[1][1])
	assert.Equal(t, table.Text, got.Columns[1].Kind)
}

func TestMatDecoderIntegerColumn(t *testing.T) {
	var buf bytes.Buffer
	w := matfile.NewWriter(&buf, false)
	require.NoError(t, w.Write(matfile.NewStruct("s", []string{"n", "label"}, [][]*matfile.Array{
		{matfile.NewScalar(3), nil},
	})))

	d := &MatDecoder{Variable: "s", Fields: []MatField{
		{Position: 0, Column: table.Column{Name: "n", Kind: table.Integer}},
		{Position: 1, Column: table.Column{Name: "label", Kind: table.Text}},
	}}
	got, err := d.Decode(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Rows[0][0])
	// Unset text fields decode as empty strings.
	assert.Equal(t, "", got.Rows[0][1])

	_, err = d.Decode([]byte("garbage"))
	assert.True(t, errors.Is(err, ErrMalformedOutput))
}
