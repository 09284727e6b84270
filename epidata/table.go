package epidata

import (
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Table is a tabular result: an ordered collection of named columns of
// equal length. Cells hold string, int64, float64 or time.Time values;
// a nil cell marks missing data.
type Table struct {
	names []string
	cols  map[string][]any
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{cols: make(map[string][]any)}
}

// AddColumn appends a named column. The column length must match the
// existing columns and the name must be unused.
func (t *Table) AddColumn(name string, values []any) error {
	if _, ok := t.cols[name]; ok {
		return &DataError{Msg: fmt.Sprintf("column %q already exists", name)}
	}
	if len(t.names) > 0 && len(values) != t.NumRows() {
		return &DataError{Msg: fmt.Sprintf(
			"column %q has %d values, expected %d", name, len(values), t.NumRows())}
	}
	t.names = append(t.names, name)
	t.cols[name] = values
	return nil
}

// Columns returns the column names in insertion order.
func (t *Table) Columns() []string {
	names := make([]string, len(t.names))
	copy(names, t.names)
	return names
}

// HasColumn reports whether a column with the given name exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.cols[name]
	return ok
}

// Column returns the values of the named column.
func (t *Table) Column(name string) ([]any, error) {
	values, ok := t.cols[name]
	if !ok {
		return nil, &DataError{Msg: fmt.Sprintf("column %q does not exist", name)}
	}
	return values, nil
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int {
	if len(t.names) == 0 {
		return 0
	}
	return len(t.cols[t.names[0]])
}

// NumCols returns the number of columns.
func (t *Table) NumCols() int { return len(t.names) }

// Row returns the cells of row i in column order.
func (t *Table) Row(i int) []any {
	row := make([]any, len(t.names))
	for c, name := range t.names {
		row[c] = t.cols[name][i]
	}
	return row
}

// AppendRow adds one row. The number of values must match the number of
// columns.
func (t *Table) AppendRow(values []any) error {
	if len(values) != len(t.names) {
		return &DataError{Msg: fmt.Sprintf(
			"row has %d values, expected %d", len(values), len(t.names))}
	}
	for c, name := range t.names {
		t.cols[name] = append(t.cols[name], values[c])
	}
	return nil
}

// Select returns a new table containing only the named columns, in the
// given order. Rows are shared with the receiver.
func (t *Table) Select(names ...string) (*Table, error) {
	out := NewTable()
	for _, name := range names {
		values, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		if err := out.AddColumn(name, values); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Rename renames columns according to mapping. Names absent from the
// mapping stay unchanged.
func (t *Table) Rename(mapping map[string]string) {
	for i, name := range t.names {
		newName, ok := mapping[name]
		if !ok || newName == name {
			continue
		}
		t.names[i] = newName
		t.cols[newName] = t.cols[name]
		delete(t.cols, name)
	}
}

// DropColumns removes the named columns. Missing names are ignored.
func (t *Table) DropColumns(names ...string) {
	drop := make(map[string]bool, len(names))
	for _, name := range names {
		drop[name] = true
	}
	kept := t.names[:0]
	for _, name := range t.names {
		if drop[name] {
			delete(t.cols, name)
			continue
		}
		kept = append(kept, name)
	}
	t.names = kept
}

// SortByIntColumn sorts the rows ascending by the integer value of the
// named column.
func (t *Table) SortByIntColumn(name string) error {
	keyCol, err := t.Column(name)
	if err != nil {
		return err
	}
	order := make([]int, t.NumRows())
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ka, _ := AsInt(keyCol[order[a]])
		kb, _ := AsInt(keyCol[order[b]])
		return ka < kb
	})
	for _, colName := range t.names {
		old := t.cols[colName]
		sorted := make([]any, len(old))
		for i, j := range order {
			sorted[i] = old[j]
		}
		t.cols[colName] = sorted
	}
	return nil
}

// AsInt converts a cell value to int64 if possible.
func AsInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case float64:
		return int64(x), true
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		return n, err == nil
	}
	return 0, false
}

// AsFloat converts a cell value to float64 if possible.
func AsFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	}
	return 0, false
}

// AsString renders a cell value as text.
func AsString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.Format("2006-01-02")
	}
	return fmt.Sprintf("%v", v)
}

// inferValue parses a raw text field into the most specific cell type.
func inferValue(s string) any {
	if s == "" {
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
