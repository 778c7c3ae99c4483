package cleaning

// FilterPrice returns a new table holding the rows whose price lies in
// [min, max], in their original order. Rows with a missing price never
// match. When min > max the result is empty. t is not modified.
func FilterPrice(t *Table, min, max float64) *Table {
	out := t.emptyLike()
	for _, row := range t.Rows {
		if row.PriceValid && row.Price >= min && row.Price <= max {
			out.Rows = append(out.Rows, row.clone())
		}
	}
	return out
}
