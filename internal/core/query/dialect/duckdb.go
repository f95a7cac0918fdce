package dialect

import (
	"fmt"
	"strings"

	"github.com/satishbabariya/insights-go/internal/core/query/domain"
)

// DuckDB is the DuckDB dialect.
type DuckDB struct{}

// Name implements Dialect.
func (DuckDB) Name() domain.SQLDialect { return domain.DuckDB }

// QuoteIdentifier implements Dialect.
func (DuckDB) QuoteIdentifier(name string) string { return quoteWith(name, `"`) }

// QuoteString implements Dialect.
func (DuckDB) QuoteString(s string) string { return quoteStandardString(s) }

// FormatDate implements Dialect.
func (d DuckDB) FormatDate(expr string, format domain.DateFormat) (string, error) {
	f := func(pattern string) string { return fmt.Sprintf("strftime(%s, '%s')", expr, pattern) }
	switch format {
	case domain.FormatMinute:
		return f("%Y-%m-%d %H:%M"), nil
	case domain.FormatHour:
		return f("%Y-%m-%d %H:00"), nil
	case domain.FormatDay, domain.FormatDayShort:
		return f("%Y-%m-%d"), nil
	case domain.FormatWeek:
		return fmt.Sprintf("strftime(date_trunc('week', %s), '%%Y-%%m-%%d')", expr), nil
	case domain.FormatMonth, domain.FormatMon:
		return f("%Y-%m-01"), nil
	case domain.FormatYear:
		return f("%Y-01-01"), nil
	case domain.FormatMinuteOfHour:
		return f("00:%M"), nil
	case domain.FormatHourOfDay:
		return f("%H:00"), nil
	case domain.FormatDayOfWeek:
		return fmt.Sprintf("dayname(%s)", expr), nil
	case domain.FormatDayOfMonth:
		return f("%d"), nil
	case domain.FormatDayOfYear:
		return f("%j"), nil
	case domain.FormatMonthOfYear:
		return fmt.Sprintf("monthname(%s)", expr), nil
	case domain.FormatQuarterOfYear:
		return fmt.Sprintf("quarter(%s)", expr), nil
	case domain.FormatQuarter:
		return fmt.Sprintf("strftime(date_trunc('quarter', %s), '%%Y-%%m-%%d')", expr), nil
	}
	return "", unsupportedFormat(d.Name(), format)
}

// Now implements Dialect.
func (DuckDB) Now() string { return "now()" }

// IfNull implements Dialect.
func (DuckDB) IfNull(expr, fallback string) string {
	return fmt.Sprintf("COALESCE(%s, %s)", expr, fallback)
}

// Concat implements Dialect.
func (DuckDB) Concat(args ...string) string {
	return "concat(" + strings.Join(args, ", ") + ")"
}

// TimestampDiff implements Dialect.
func (DuckDB) TimestampDiff(unit, from, to string) (string, error) {
	u, err := ValidUnit(unit)
	if err != nil {
		return "", err
	}
	part := strings.ToLower(u)
	if u == "MICROSECOND" {
		part = "microseconds"
	}
	return fmt.Sprintf("date_diff('%s', %s, %s)", part, from, to), nil
}

// SupportsFullJoin implements Dialect.
func (DuckDB) SupportsFullJoin() bool { return true }

// SupportsCTE implements Dialect.
func (DuckDB) SupportsCTE(string) bool { return true }

// UnescapePercent implements Dialect.
func (DuckDB) UnescapePercent() bool { return false }
