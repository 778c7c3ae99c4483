package cleaning

import "time"

// Column names the step depends on.
const (
	ColumnPrice      = "price"
	ColumnLastReview = "last_review"
)

// NullTime is a date/time that may be missing.
type NullTime struct {
	Time  time.Time
	Valid bool
}

// Row is one record. Cells holds the raw text of every column in header
// order.
type Row struct {
	Cells      []string
	Price      float64
	PriceValid bool // false for an empty or NaN price
	LastReview NullTime
}

// Table is an ordered set of rows sharing one header.
type Table struct {
	Columns []string
	Rows    []Row

	priceCol  int
	reviewCol int
	// normalized is set once last_review has been parsed; until then the
	// raw cell is written back as-is.
	normalized bool
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of name in the header, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Cell returns the raw text of column name in row i.
func (t *Table) Cell(i int, name string) string {
	col := t.ColumnIndex(name)
	if col < 0 || i < 0 || i >= len(t.Rows) {
		return ""
	}
	return t.Rows[i].Cells[col]
}

// emptyLike returns a table with the same header and no rows.
func (t *Table) emptyLike() *Table {
	return &Table{
		Columns:    append([]string(nil), t.Columns...),
		Rows:       []Row{},
		priceCol:   t.priceCol,
		reviewCol:  t.reviewCol,
		normalized: t.normalized,
	}
}

func (r Row) clone() Row {
	r.Cells = append([]string(nil), r.Cells...)
	return r
}
