// Package table holds the normalized, row-oriented result of one measurement.
package table

import (
	"fmt"
	"strconv"
)

// Kind is the type of every cell in a column.
type Kind int

const (
	Text Kind = iota
	Integer
	Number
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Integer:
		return "integer"
	case Number:
		return "number"
	default:
		return "unknown"
	}
}

// Column names and types one field of every row.
type Column struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// Row is one fixed-arity record. Cells hold string, int64 or float64
// according to the column kind.
type Row []any

// Table is an ordered sequence of rows sharing one header.
type Table struct {
	// Tool names the adapter that produced the table.
	Tool string `json:"tool,omitempty"`
	// Product names the measured product.
	Product string   `json:"product,omitempty"`
	Columns []Column `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// New creates an empty table with the given columns.
func New(columns ...Column) *Table {
	cols := make([]Column, len(columns))
	copy(cols, columns)
	return &Table{Columns: cols}
}

// TextColumns is a shorthand for a header of text columns.
func TextColumns(names ...string) []Column {
	cols := make([]Column, len(names))
	for i, n := range names {
		cols[i] = Column{Name: n, Kind: Text}
	}
	return cols
}

// Header returns the column names in order.
func (t *Table) Header() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Append validates and adds a row. Integer columns accept any Go integer
// type; number columns accept floats and integers. Values are stored as
// string, int64 or float64.
func (t *Table) Append(values ...any) error {
	if len(values) != len(t.Columns) {
		return fmt.Errorf("row has %d fields, header has %d", len(values), len(t.Columns))
	}
	row := make(Row, len(values))
	for i, v := range values {
		cell, err := coerce(t.Columns[i], v)
		if err != nil {
			return err
		}
		row[i] = cell
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// Validate checks that every row matches the header.
func (t *Table) Validate() error {
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if c.Name == "" {
			return fmt.Errorf("empty column name")
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate column %q", c.Name)
		}
		seen[c.Name] = true
	}
	for i, r := range t.Rows {
		if len(r) != len(t.Columns) {
			return fmt.Errorf("row %d has %d fields, header has %d", i, len(r), len(t.Columns))
		}
		for j, v := range r {
			if _, err := coerce(t.Columns[j], v); err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
		}
	}
	return nil
}

// String renders a cell for display or CSV output.
func String(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func coerce(col Column, v any) (any, error) {
	switch col.Kind {
	case Text:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case Integer:
		if n, ok := asInt(v); ok {
			return n, nil
		}
		// JSON decoding yields float64 for every number.
		if f, ok := v.(float64); ok && f == float64(int64(f)) {
			return int64(f), nil
		}
	case Number:
		if f, ok := v.(float64); ok {
			return f, nil
		}
		if f, ok := v.(float32); ok {
			return float64(f), nil
		}
		if n, ok := asInt(v); ok {
			return float64(n), nil
		}
	}
	return nil, fmt.Errorf("column %q: %T is not a valid %s value", col.Name, v, col.Kind)
}

func asInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	}
	return 0, false
}
