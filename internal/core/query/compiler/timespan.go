package compiler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/satishbabariya/insights-go/internal/core/query/domain"
)

const dateLayout = "2006-01-02"

// timespan compiles timespan(column, "last 7 days") into a BETWEEN filter.
func (b *build) timespan(args []*domain.Expression) (string, error) {
	if len(args) != 2 {
		return "", domain.Compilationf("timespan requires a column and a span")
	}
	col, err := b.expr(args[0])
	if err != nil {
		return "", err
	}
	span, ok := literalString(args[1])
	if !ok {
		return "", domain.Compilationf("timespan span must be a string")
	}

	start, end, err := b.resolveSpan(span)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s BETWEEN %s AND %s",
		col,
		b.d.QuoteString(start.Format(dateLayout)),
		b.d.QuoteString(end.Format(dateLayout)),
	), nil
}

// resolveSpan parses spans of the form "last 7 days", "next 2 weeks",
// "current month" and "current fiscal year". The returned dates are inclusive.
func (b *build) resolveSpan(span string) (time.Time, time.Time, error) {
	fields := strings.Fields(strings.ToLower(span))
	invalid := func() (time.Time, time.Time, error) {
		return time.Time{}, time.Time{}, domain.Compilationf("invalid timespan %q", span)
	}
	if len(fields) < 2 {
		return invalid()
	}

	now := b.c.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch fields[0] {
	case "current":
		unit := strings.Join(fields[1:], " ")
		if unit == "fiscal year" {
			start := b.fiscalYearStart(today)
			return start, start.AddDate(1, 0, -1), nil
		}
		unit, ok := singularUnit(unit)
		if !ok {
			return invalid()
		}
		return spanStart(today, unit), spanEnd(today, unit), nil

	case "last", "next":
		if len(fields) != 3 {
			return invalid()
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil || n <= 0 {
			return invalid()
		}
		unit, ok := singularUnit(fields[2])
		if !ok {
			return invalid()
		}
		if fields[0] == "last" {
			return spanStart(shift(today, unit, -n), unit), spanEnd(shift(today, unit, -1), unit), nil
		}
		return spanStart(shift(today, unit, 1), unit), spanEnd(shift(today, unit, n), unit), nil
	}

	return invalid()
}

func singularUnit(s string) (string, bool) {
	s = strings.TrimSuffix(s, "s")
	switch s {
	case "day", "week", "month", "quarter", "year":
		return s, true
	}
	return "", false
}

func shift(t time.Time, unit string, n int) time.Time {
	switch unit {
	case "day":
		return t.AddDate(0, 0, n)
	case "week":
		return t.AddDate(0, 0, 7*n)
	case "month":
		return addMonths(t, n)
	case "quarter":
		return addMonths(t, 3*n)
	default:
		return t.AddDate(n, 0, 0)
	}
}

// addMonths moves to the first of the month so short months do not overflow.
func addMonths(t time.Time, n int) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, n, 0)
}

// spanStart returns the first day of the unit containing t. Weeks start on Sunday.
func spanStart(t time.Time, unit string) time.Time {
	switch unit {
	case "day":
		return t
	case "week":
		return t.AddDate(0, 0, -int(t.Weekday()))
	case "month":
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	case "quarter":
		m := time.Month((int(t.Month())-1)/3*3 + 1)
		return time.Date(t.Year(), m, 1, 0, 0, 0, 0, t.Location())
	default:
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
	}
}

// spanEnd returns the last day of the unit containing t.
func spanEnd(t time.Time, unit string) time.Time {
	start := spanStart(t, unit)
	switch unit {
	case "day":
		return start
	case "week":
		return start.AddDate(0, 0, 6)
	case "month":
		return start.AddDate(0, 1, -1)
	case "quarter":
		return start.AddDate(0, 3, -1)
	default:
		return start.AddDate(1, 0, -1)
	}
}

func (b *build) fiscalYearStart(today time.Time) time.Time {
	start := time.Date(today.Year(), b.c.fiscalMonth, b.c.fiscalDay, 0, 0, 0, 0, today.Location())
	if today.Before(start) {
		start = start.AddDate(-1, 0, 0)
	}
	return start
}
