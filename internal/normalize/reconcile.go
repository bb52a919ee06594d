package normalize

import (
	"slices"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/invoice"
)

// Table is a block of rows sharing one column order.
type Table struct {
	Columns []string
	Rows    [][]invoice.Value
}

func (t Table) Len() int { return len(t.Rows) }

// Project restricts and pads rows to schema, in schema order. With no schema the columns are
// the union of row keys in first-seen order, with the vendor column moved first.
func Project(rows []*invoice.Fields, schema []string) Table {
	columns := slices.Clone(schema)
	if len(columns) == 0 {
		columns = unionColumns(rows)
	}

	t := Table{Columns: columns, Rows: make([][]invoice.Value, 0, len(rows))}
	for _, r := range rows {
		out := make([]invoice.Value, len(columns))
		for i, c := range columns {
			// missing columns stay as the zero Value, which renders as ""
			out[i] = r.Value(c)
		}
		t.Rows = append(t.Rows, out)
	}
	return t
}

func unionColumns(rows []*invoice.Fields) []string {
	seen := map[string]struct{}{}
	var cols []string
	for _, r := range rows {
		for _, k := range r.Keys() {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			cols = append(cols, k)
		}
	}
	if i := slices.Index(cols, constants.ColVendorName); i > 0 {
		cols = slices.Delete(cols, i, i+1)
		cols = slices.Insert(cols, 0, constants.ColVendorName)
	}
	return cols
}
