package cleaning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"2019-05-21", time.Date(2019, 5, 21, 0, 0, 0, 0, time.UTC)},
		{" 2019-05-21 ", time.Date(2019, 5, 21, 0, 0, 0, 0, time.UTC)},
		{"2019-05-21 10:30:00", time.Date(2019, 5, 21, 10, 30, 0, 0, time.UTC)},
		{"2019-05-21T10:30:00Z", time.Date(2019, 5, 21, 10, 30, 0, 0, time.UTC)},
		{"05/21/2019", time.Date(2019, 5, 21, 0, 0, 0, 0, time.UTC)},
		{"5/1/2019", time.Date(2019, 5, 1, 0, 0, 0, 0, time.UTC)},
		{"May 21, 2019", time.Date(2019, 5, 21, 0, 0, 0, 0, time.UTC)},
		{"September 3, 2018", time.Date(2018, 9, 3, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseDate(tt.input)
			require.True(t, got.Valid)
			assert.True(t, tt.want.Equal(got.Time), "got %v", got.Time)
		})
	}
}

func TestParseDate_Null(t *testing.T) {
	for _, input := range []string{"", "   ", "not-a-date", "2019-13-45", "yesterday", "3:04PM", "13/45/2019"} {
		t.Run(input, func(t *testing.T) {
			assert.False(t, ParseDate(input).Valid)
		})
	}
}

func TestNormalizeLastReview_KeepsEveryRow(t *testing.T) {
	tbl := mustRead(t, "price,last_review\n1,2019-05-21\n2,not-a-date\n3,\n4,2018-01-02\n")

	nulls := NormalizeLastReview(tbl)

	assert.Equal(t, 2, nulls)
	require.Equal(t, 4, tbl.Len())
	assert.True(t, tbl.Rows[0].LastReview.Valid)
	assert.False(t, tbl.Rows[1].LastReview.Valid)
	assert.False(t, tbl.Rows[2].LastReview.Valid)
	assert.Equal(t, time.Date(2018, 1, 2, 0, 0, 0, 0, time.UTC), tbl.Rows[3].LastReview.Time)
	assert.Equal(t, "not-a-date", tbl.Rows[1].Cells[1], "raw text is kept")
}
