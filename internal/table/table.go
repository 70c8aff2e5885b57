// Package table is the in-memory two-column (front/back) dataset shape
// shared by the catalog, the dataset store and the review session.
package table

import "fmt"

// Columns is the fixed column count of a well-formed dataset.
const Columns = 2

// Row is one card: front text, back text.
type Row [Columns]string

// Table is a dataset held in memory. Header names are informational; only
// the column count is enforced.
type Table struct {
	Header []string
	Rows   []Row

	// width is the column count seen when the table was parsed; 0 means
	// the table was built in memory and is well-formed by construction.
	width int
}

// New returns a well-formed table with the given header and rows.
func New(front, back string, rows []Row) *Table {
	return &Table{Header: []string{front, back}, Rows: rows}
}

// FromRecords builds a table from parsed records where the first record is
// the header. Records with a width other than two mark the table invalid
// rather than failing, so callers can surface the reason.
func FromRecords(records [][]string) *Table {
	t := &Table{}
	if len(records) == 0 {
		t.width = -1
		return t
	}
	t.Header = append([]string(nil), records[0]...)
	t.width = len(records[0])
	for _, rec := range records[1:] {
		if len(rec) != t.width {
			t.width = -1
		}
		var r Row
		for i := 0; i < len(rec) && i < Columns; i++ {
			r[i] = rec[i]
		}
		t.Rows = append(t.Rows, r)
	}
	return t
}

// Valid reports whether the table is well-formed with exactly two columns.
// A table with zero rows is valid.
func (t *Table) Valid() bool {
	if t == nil {
		return false
	}
	if t.width != 0 {
		return t.width == Columns
	}
	return len(t.Header) == Columns
}

// Reason describes why a table is invalid, or "" if it is valid.
func (t *Table) Reason() string {
	switch {
	case t == nil:
		return "no data"
	case t.Valid():
		return ""
	case t.width < 0:
		return "malformed table (empty or ragged rows)"
	case t.width != 0:
		return fmt.Sprintf("expected %d columns, found %d", Columns, t.width)
	default:
		return fmt.Sprintf("expected %d columns, found %d", Columns, len(t.Header))
	}
}

// Len returns the row count.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Records returns the header followed by every row, ready for encoding.
func (t *Table) Records() [][]string {
	out := make([][]string, 0, len(t.Rows)+1)
	header := t.Header
	if len(header) != Columns {
		header = []string{"front", "back"}
	}
	out = append(out, append([]string(nil), header...))
	for _, r := range t.Rows {
		out = append(out, []string{r[0], r[1]})
	}
	return out
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	return &Table{
		Header: append([]string(nil), t.Header...),
		Rows:   append([]Row(nil), t.Rows...),
		width:  t.width,
	}
}

// Slice returns a new table holding rows [start, end), clamped to bounds.
func (t *Table) Slice(start, end int) *Table {
	if start < 0 {
		start = 0
	}
	if end > len(t.Rows) {
		end = len(t.Rows)
	}
	if start > end {
		start = end
	}
	return &Table{
		Header: append([]string(nil), t.Header...),
		Rows:   append([]Row(nil), t.Rows[start:end]...),
	}
}

// DeleteRow removes the row at index, shifting later rows down.
func (t *Table) DeleteRow(index int) error {
	if index < 0 || index >= len(t.Rows) {
		return fmt.Errorf("table: row %d out of range [0, %d)", index, len(t.Rows))
	}
	t.Rows = append(t.Rows[:index], t.Rows[index+1:]...)
	return nil
}

// Placeholder returns the one-row stand-in used when real data is missing
// or malformed.
func Placeholder() *Table {
	return New("-", "-", []Row{{"-", "-"}})
}
