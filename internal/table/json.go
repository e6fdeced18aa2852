package table

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// MarshalJSON encodes non-finite numbers as the strings "NaN", "+Inf" and
// "-Inf", which JSON has no literal for.
func (t Table) MarshalJSON() ([]byte, error) {
	type plain Table
	p := plain(t)
	p.Rows = make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		row := append(Row(nil), r...)
		for j, v := range row {
			if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
				row[j] = strconv.FormatFloat(f, 'g', -1, 64)
			}
		}
		p.Rows[i] = row
	}
	return json.Marshal(p)
}

// UnmarshalJSON restores typed cells; JSON numbers decode as float64.
func (t *Table) UnmarshalJSON(data []byte) error {
	type plain Table
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	for i, r := range p.Rows {
		if len(r) != len(p.Columns) {
			return fmt.Errorf("row %d has %d fields, header has %d", i, len(r), len(p.Columns))
		}
		for j, v := range r {
			if v == nil {
				continue
			}
			if s, ok := v.(string); ok && p.Columns[j].Kind == Number {
				f, err := nonFinite(s)
				if err != nil {
					return fmt.Errorf("row %d: column %q: %w", i, p.Columns[j].Name, err)
				}
				r[j] = f
				continue
			}
			cell, err := coerce(p.Columns[j], v)
			if err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
			r[j] = cell
		}
	}
	*t = Table(p)
	return nil
}

func nonFinite(s string) (float64, error) {
	switch s {
	case "NaN":
		return math.NaN(), nil
	case "+Inf":
		return math.Inf(1), nil
	case "-Inf":
		return math.Inf(-1), nil
	default:
		return 0, fmt.Errorf("%q is not a number", s)
	}
}
