package cleaning

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/spf13/cast"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"

	dateTimeZoneLayout = "2006-01-02 15:04:05-07:00"
)

// ErrMissingColumn is returned when the header lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// LoadCSV reads a table from the file at path.
func LoadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	t, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return t, nil
}

// ReadCSV decodes comma separated records with a header row. The header
// must name the price and last_review columns. Every record must have as
// many fields as the header, and every non-empty price must be numeric.
//
// A header with no records yields an empty table.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	t := &Table{Columns: header, Rows: []Row{}}
	t.priceCol = t.ColumnIndex(ColumnPrice)
	if t.priceCol < 0 {
		return nil, fmt.Errorf("%w %q", ErrMissingColumn, ColumnPrice)
	}
	t.reviewCol = t.ColumnIndex(ColumnLastReview)
	if t.reviewCol < 0 {
		return nil, fmt.Errorf("%w %q", ErrMissingColumn, ColumnLastReview)
	}

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		row := Row{Cells: record}
		row.Price, row.PriceValid, err = parsePrice(record[t.priceCol])
		if err != nil {
			line, _ := cr.FieldPos(t.priceCol)
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// parsePrice converts a price cell. Empty cells and NaN are missing values,
// anything else that is not a number is an error.
func parsePrice(cell string) (float64, bool, error) {
	s := strings.TrimSpace(cell)
	if s == "" || strings.EqualFold(s, "nan") {
		return 0, false, nil
	}
	v, err := cast.ToFloat64E(s)
	if err != nil {
		return 0, false, fmt.Errorf("price %q is not a number", cell)
	}
	if math.IsNaN(v) {
		return 0, false, nil
	}
	return v, true, nil
}

// SaveCSV writes t to path, creating or truncating the file.
func SaveCSV(path string, t *Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	bw := bufio.NewWriter(f)
	if err := WriteCSV(bw, t); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// WriteCSV writes the header and every row. Cells are written as read,
// except last_review once normalized: null values become empty fields and
// the rest share one layout, date-only when every value falls on midnight
// and with the offset when any value carries a non-UTC zone.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}

	layout := reviewLayout(t)
	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		copy(record, row.Cells)
		if t.normalized {
			record[t.reviewCol] = formatNullTime(row.LastReview, layout)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// reviewLayout picks one layout for the whole column: with the zone offset
// when any value has a non-zero offset, else date-time when any value has a
// clock part, else date-only.
func reviewLayout(t *Table) string {
	layout := dateLayout
	for _, row := range t.Rows {
		if !row.LastReview.Valid {
			continue
		}
		if _, offset := row.LastReview.Time.Zone(); offset != 0 {
			return dateTimeZoneLayout
		}
		if !isMidnight(row.LastReview.Time) {
			layout = dateTimeLayout
		}
	}
	return layout
}

func isMidnight(tm time.Time) bool {
	h, m, s := tm.Clock()
	return h == 0 && m == 0 && s == 0 && tm.Nanosecond() == 0
}

func formatNullTime(nt NullTime, layout string) string {
	if !nt.Valid {
		return ""
	}
	return nt.Time.Format(layout)
}
