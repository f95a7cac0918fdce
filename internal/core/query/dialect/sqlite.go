package dialect

import (
	"fmt"
	"strings"

	"github.com/satishbabariya/insights-go/internal/core/query/domain"
)

// SQLite is the SQLite dialect.
type SQLite struct{}

// Name implements Dialect.
func (SQLite) Name() domain.SQLDialect { return domain.SQLite }

// QuoteIdentifier implements Dialect.
func (SQLite) QuoteIdentifier(name string) string { return quoteWith(name, `"`) }

// QuoteString implements Dialect.
func (SQLite) QuoteString(s string) string { return quoteStandardString(s) }

// FormatDate implements Dialect.
func (d SQLite) FormatDate(expr string, format domain.DateFormat) (string, error) {
	f := func(pattern string) string { return fmt.Sprintf("strftime('%s', %s)", pattern, expr) }
	month := fmt.Sprintf("CAST(strftime('%%m', %s) AS INTEGER)", expr)
	switch format {
	case domain.FormatMinute:
		return f("%Y-%m-%d %H:%M"), nil
	case domain.FormatHour:
		return f("%Y-%m-%d %H:00"), nil
	case domain.FormatDay, domain.FormatDayShort:
		return f("%Y-%m-%d"), nil
	case domain.FormatWeek:
		return fmt.Sprintf("date(%s, '-' || strftime('%%w', %s) || ' days')", expr, expr), nil
	case domain.FormatMonth, domain.FormatMon:
		return f("%Y-%m-01"), nil
	case domain.FormatYear:
		return f("%Y-01-01"), nil
	case domain.FormatMinuteOfHour:
		return f("00:%M"), nil
	case domain.FormatHourOfDay:
		return f("%H:00"), nil
	case domain.FormatDayOfWeek:
		return fmt.Sprintf("CASE %s WHEN '0' THEN 'Sunday' WHEN '1' THEN 'Monday' WHEN '2' THEN 'Tuesday' "+
			"WHEN '3' THEN 'Wednesday' WHEN '4' THEN 'Thursday' WHEN '5' THEN 'Friday' ELSE 'Saturday' END", f("%w")), nil
	case domain.FormatDayOfMonth:
		return f("%d"), nil
	case domain.FormatDayOfYear:
		return f("%j"), nil
	case domain.FormatMonthOfYear:
		return f("%m"), nil
	case domain.FormatQuarterOfYear:
		return fmt.Sprintf("((%s + 2) / 3)", month), nil
	case domain.FormatQuarter:
		return fmt.Sprintf("%s || '-' || printf('%%02d', ((%s - 1) / 3) * 3 + 1) || '-01'", f("%Y"), month), nil
	}
	return "", unsupportedFormat(d.Name(), format)
}

// Now implements Dialect.
func (SQLite) Now() string { return "CURRENT_TIMESTAMP" }

// IfNull implements Dialect.
func (SQLite) IfNull(expr, fallback string) string {
	return fmt.Sprintf("IFNULL(%s, %s)", expr, fallback)
}

// Concat implements Dialect.
func (SQLite) Concat(args ...string) string {
	return "(" + strings.Join(args, " || ") + ")"
}

// TimestampDiff implements Dialect.
func (SQLite) TimestampDiff(unit, from, to string) (string, error) {
	u, err := ValidUnit(unit)
	if err != nil {
		return "", err
	}
	days := fmt.Sprintf("(julianday(%s) - julianday(%s))", to, from)
	months := fmt.Sprintf("((CAST(strftime('%%Y', %s) AS INTEGER) - CAST(strftime('%%Y', %s) AS INTEGER)) * 12 + "+
		"CAST(strftime('%%m', %s) AS INTEGER) - CAST(strftime('%%m', %s) AS INTEGER))", to, from, to, from)
	switch u {
	case "MICROSECOND":
		return fmt.Sprintf("CAST(%s * 86400000000 AS INTEGER)", days), nil
	case "SECOND":
		return fmt.Sprintf("CAST(%s * 86400 AS INTEGER)", days), nil
	case "MINUTE":
		return fmt.Sprintf("CAST(%s * 1440 AS INTEGER)", days), nil
	case "HOUR":
		return fmt.Sprintf("CAST(%s * 24 AS INTEGER)", days), nil
	case "DAY":
		return fmt.Sprintf("CAST(%s AS INTEGER)", days), nil
	case "WEEK":
		return fmt.Sprintf("CAST(%s / 7 AS INTEGER)", days), nil
	case "MONTH":
		return months, nil
	case "QUARTER":
		return fmt.Sprintf("(%s / 3)", months), nil
	default:
		return fmt.Sprintf("(%s / 12)", months), nil
	}
}

// SupportsFullJoin implements Dialect. FULL JOIN arrived in 3.39 and the
// bundled drivers may be older.
func (SQLite) SupportsFullJoin() bool { return false }

// SupportsCTE implements Dialect.
func (SQLite) SupportsCTE(serverVersion string) bool {
	return atLeast(serverVersion, "3.8.3")
}

// UnescapePercent implements Dialect.
func (SQLite) UnescapePercent() bool { return false }
