package table

import (
	"fmt"
	"strings"

	"github.com/imyousuf/metricscarpet/internal/matfile"
)

// maxFieldName is the longest MATLAB identifier.
const maxFieldName = 63

// StructArray converts t into an Nx1 MATLAB struct array named name, one
// element per row and one field per column. Numbers become double scalars,
// text becomes char arrays and missing cells become [].
func StructArray(name string, t *Table) *matfile.Array {
	fields := FieldNames(t.Header())
	elems := make([][]*matfile.Array, len(t.Rows))
	for i, r := range t.Rows {
		elem := make([]*matfile.Array, len(t.Columns))
		for j := range t.Columns {
			if j >= len(r) {
				continue
			}
			switch v := r[j].(type) {
			case nil:
			case string:
				elem[j] = matfile.NewChar(v)
			case int64:
				elem[j] = matfile.NewScalar(float64(v))
			case float64:
				elem[j] = matfile.NewScalar(v)
			default:
				elem[j] = matfile.NewChar(String(v))
			}
		}
		elems[i] = elem
	}
	return matfile.NewStruct(name, fields, elems)
}

// FieldNames turns column names into distinct MATLAB identifiers: invalid
// characters become underscores, names not starting with a letter get an
// "x" prefix and repeats get a numeric suffix.
func FieldNames(columns []string) []string {
	out := make([]string, len(columns))
	seen := make(map[string]bool, len(columns))
	for i, c := range columns {
		var b strings.Builder
		for _, r := range c {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
				b.WriteRune(r)
			default:
				b.WriteByte('_')
			}
		}
		id := b.String()
		if id == "" || !isLetter(id[0]) {
			id = "x" + id
		}
		id = truncate(id, maxFieldName)
		base := id
		for n := 2; seen[id]; n++ {
			suffix := fmt.Sprintf("_%d", n)
			id = truncate(base, maxFieldName-len(suffix)) + suffix
		}
		seen[id] = true
		out[i] = id
	}
	return out
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
