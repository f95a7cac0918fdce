package transform

import (
	"fmt"

	"github.com/satishbabariya/insights-go/internal/core/query/domain"
)

var displayLayouts = map[domain.DateFormat]string{
	domain.FormatMinute:    "January 02, 2006 03:04 PM",
	domain.FormatHour:      "January 02, 2006 03:00 PM",
	domain.FormatDay:       "January 02, 2006",
	domain.FormatWeek:      "Jan 02, 2006",
	domain.FormatMon:       "Jan 06",
	domain.FormatMonth:     "January, 2006",
	domain.FormatYear:      "2006",
	domain.FormatDayShort:  "Jan 02, 06",
	domain.FormatHourOfDay: "03:04 PM",
}

// FormatDateValue renders a bucketed date value for display. Ordinal
// formats (day of week, month of year) pass through unchanged.
func FormatDateValue(value any, format domain.DateFormat) any {
	if value == nil || value == "" {
		return ""
	}

	switch format {
	case domain.FormatDayOfWeek, domain.FormatMonthOfYear:
		return value
	case domain.FormatQuarterOfYear:
		return fmt.Sprintf("Q%v", value)
	}

	t, ok := parseTime(value)
	if !ok {
		return value
	}
	if format == domain.FormatQuarter {
		return fmt.Sprintf("Q%d, %d", (int(t.Month())-1)/3+1, t.Year())
	}
	layout, ok := displayLayouts[format]
	if !ok {
		return value
	}
	return t.Format(layout)
}

// FormatResults returns the rows of res with date formatting applied to the
// date-like columns that carry a date format.
func FormatResults(query *domain.LogicalQuery, res *domain.Result) [][]any {
	if res == nil {
		return nil
	}
	formats := map[int]domain.DateFormat{}
	for _, c := range query.Columns {
		if c.FormatOption == nil || c.FormatOption.DateFormat == "" || !c.Type.IsDateLike() {
			continue
		}
		if idx := res.ColumnIndex(c.ResultLabel()); idx >= 0 {
			formats[idx] = c.FormatOption.DateFormat
		}
	}

	out := make([][]any, len(res.Rows))
	for i, row := range res.Rows {
		r := make([]any, len(row))
		copy(r, row)
		for idx, f := range formats {
			if idx < len(r) {
				r[idx] = FormatDateValue(r[idx], f)
			}
		}
		out[i] = r
	}
	return out
}
