package table

// Provenance column names prepended by Merge.
const (
	ToolColumn    = "tool"
	ProductColumn = "product"
)

// sourcePrefix is prepended to source columns named like a provenance
// column.
const sourcePrefix = "source_"

// Merge folds tables into one. The result starts with tool and product
// columns followed by the union of all columns in first-seen order. Source
// columns named tool or product are renamed source_tool and source_product.
// Cells a source table does not have are left nil. Columns that share a name
// but not a kind are widened to text.
func Merge(tables ...*Table) *Table {
	out := New(Column{Name: ToolColumn, Kind: Text}, Column{Name: ProductColumn, Kind: Text})
	pos := map[string]int{ToolColumn: 0, ProductColumn: 1}

	for _, t := range tables {
		for _, c := range t.Columns {
			c.Name = mergedName(c.Name)
			i, ok := pos[c.Name]
			if !ok {
				pos[c.Name] = len(out.Columns)
				out.Columns = append(out.Columns, c)
				continue
			}
			if out.Columns[i].Kind != c.Kind {
				out.Columns[i].Kind = Text
			}
		}
	}

	for _, t := range tables {
		for _, r := range t.Rows {
			row := make(Row, len(out.Columns))
			row[0], row[1] = t.Tool, t.Product
			for j, c := range t.Columns {
				if j < len(r) {
					row[pos[mergedName(c.Name)]] = r[j]
				}
			}
			out.Rows = append(out.Rows, row)
		}
	}

	for i, c := range out.Columns {
		if c.Kind != Text {
			continue
		}
		for _, r := range out.Rows {
			if r[i] != nil {
				r[i] = String(r[i])
			}
		}
	}
	return out
}

func mergedName(name string) string {
	if name == ToolColumn || name == ProductColumn {
		return sourcePrefix + name
	}
	return name
}
