package toolset

import (
	"bytes"
	"encoding/csv"
	"io"
	"slices"

	"github.com/imyousuf/metricscarpet/internal/matfile"
	"github.com/imyousuf/metricscarpet/internal/table"
)

// Format is the raw output format of an external tool.
type Format int

const (
	// DelimitedText is comma-separated text with a header line.
	DelimitedText Format = iota + 1
	// StructuredBinary is a MATLAB Level 5 MAT-file.
	StructuredBinary
)

func (f Format) String() string {
	switch f {
	case DelimitedText:
		return "delimited-text"
	case StructuredBinary:
		return "structured-binary"
	default:
		return "unknown"
	}
}

// Decoder turns a tool's raw output into a table. A decoder either returns
// a complete table or an error marked ErrMalformedOutput.
type Decoder interface {
	Format() Format
	Decode(raw []byte) (*table.Table, error)
}

// CSVDecoder decodes delimited text whose first record must equal Header.
// Every value is kept verbatim as text.
type CSVDecoder struct {
	Header []string
}

func (d *CSVDecoder) Format() Format { return DelimitedText }

func (d *CSVDecoder) Decode(raw []byte) (*table.Table, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, malformedf("empty output, expected header %q", d.Header)
	}
	r := csv.NewReader(bytes.NewReader(raw))
	r.FieldsPerRecord = len(d.Header)

	header, err := r.Read()
	if err != nil {
		return nil, wrapMalformed(err, "read header")
	}
	if !slices.Equal(header, d.Header) {
		return nil, malformedf("unexpected header %q, expected %q", header, d.Header)
	}

	t := table.New(table.TextColumns(d.Header...)...)
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, wrapMalformed(err, "read record %d", t.Len()+1)
		}
		row := make(table.Row, len(rec))
		for i, v := range rec {
			row[i] = v
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// MatField binds one struct field, by position, to an output column.
type MatField struct {
	Position int
	Column   table.Column
}

// MatDecoder decodes a MAT-file whose Variable is a struct array with one
// element per record. Fields are read by position since the producing
// script fixes their order, not their names.
type MatDecoder struct {
	Variable string
	Fields   []MatField
}

func (d *MatDecoder) Format() Format { return StructuredBinary }

func (d *MatDecoder) Decode(raw []byte) (*table.Table, error) {
	f, err := matfile.Decode(raw)
	if err != nil {
		return nil, wrapMalformed(err, "decode MAT-file")
	}
	v, ok := f.Var(d.Variable)
	if !ok {
		return nil, malformedf("variable %q not found (file has %v)", d.Variable, f.Names())
	}
	if v.Class != matfile.ClassStruct {
		return nil, malformedf("variable %q is a %s array, expected struct", d.Variable, v.Class)
	}

	need := 0
	cols := make([]table.Column, len(d.Fields))
	for i, fd := range d.Fields {
		cols[i] = fd.Column
		need = max(need, fd.Position+1)
	}

	t := table.New(cols...)
	for i, rec := range v.Elems {
		if len(rec) < need {
			return nil, malformedf("record %d has %d fields, expected at least %d", i, len(rec), need)
		}
		row := make([]any, len(d.Fields))
		for j, fd := range d.Fields {
			cell, err := matCell(rec[fd.Position], fd.Column.Kind)
			if err != nil {
				return nil, wrapMalformed(err, "record %d field %d (%s)", i, fd.Position, fd.Column.Name)
			}
			row[j] = cell
		}
		if err := t.Append(row...); err != nil {
			return nil, wrapMalformed(err, "record %d", i)
		}
	}
	return t, nil
}

func matCell(a *matfile.Array, kind table.Kind) (any, error) {
	switch kind {
	case table.Text:
		return a.Chars()
	case table.Integer:
		v, err := a.Scalar()
		return int64(v), err
	default:
		return a.Scalar()
	}
}
