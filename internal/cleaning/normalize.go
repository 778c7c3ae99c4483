package cleaning

import (
	"strings"
	"time"

	"github.com/spf13/cast"
)

// fallbackLayouts are tried when cast finds no match.
var fallbackLayouts = []string{
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04:05",
	"1/2/2006 15:04",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"2006-01-02 15:04:05-07:00",
}

// ParseDate parses s as a date or date-time, trying the common layouts
// (ISO 8601 date, RFC 3339, "2006-01-02 15:04:05", RFC 1123, "01/02/2006",
// "Jan 2, 2006" and others). Values without a zone are read as UTC. Empty
// input, unrecognized input and clock-only values such as "3:04PM" (which
// carry no date) yield a null value.
func ParseDate(s string) NullTime {
	s = strings.TrimSpace(s)
	if s == "" {
		return NullTime{}
	}
	if tm, err := cast.ToTimeE(s); err == nil {
		return dated(tm)
	}
	for _, layout := range fallbackLayouts {
		if tm, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return dated(tm)
		}
	}
	return NullTime{}
}

// dated rejects results without a calendar date.
func dated(tm time.Time) NullTime {
	if tm.Year() == 0 {
		return NullTime{}
	}
	return NullTime{Time: tm, Valid: true}
}

// NormalizeLastReview parses every last_review cell in place and returns
// the number of null results. No row is removed.
func NormalizeLastReview(t *Table) int {
	nulls := 0
	for i := range t.Rows {
		nt := ParseDate(t.Rows[i].Cells[t.reviewCol])
		t.Rows[i].LastReview = nt
		if !nt.Valid {
			nulls++
		}
	}
	t.normalized = true
	return nulls
}
