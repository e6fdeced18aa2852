package table

import (
	"encoding/csv"
	"io"
)

// WriteCSV writes the header and every row of t as CSV.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header()); err != nil {
		return err
	}
	record := make([]string, len(t.Columns))
	for _, r := range t.Rows {
		for i := range record {
			record[i] = ""
			if i < len(r) {
				record[i] = String(r[i])
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
