package dialect

import (
	"fmt"
	"strings"

	"github.com/satishbabariya/insights-go/internal/core/query/domain"
)

// Postgres is the PostgreSQL dialect.
type Postgres struct{}

// Name implements Dialect.
func (Postgres) Name() domain.SQLDialect { return domain.PostgreSQL }

// QuoteIdentifier implements Dialect.
func (Postgres) QuoteIdentifier(name string) string { return quoteWith(name, `"`) }

// QuoteString implements Dialect.
func (Postgres) QuoteString(s string) string { return quoteStandardString(s) }

// FormatDate implements Dialect.
func (d Postgres) FormatDate(expr string, format domain.DateFormat) (string, error) {
	f := func(pattern string) string { return fmt.Sprintf("TO_CHAR(%s, '%s')", expr, pattern) }
	switch format {
	case domain.FormatMinute:
		return f("YYYY-MM-DD HH24:MI"), nil
	case domain.FormatHour:
		return f("YYYY-MM-DD HH24:00"), nil
	case domain.FormatDay, domain.FormatDayShort:
		return f("YYYY-MM-DD"), nil
	case domain.FormatWeek:
		return fmt.Sprintf("TO_CHAR(DATE_TRUNC('week', %s), 'YYYY-MM-DD')", expr), nil
	case domain.FormatMonth, domain.FormatMon:
		return f("YYYY-MM-01"), nil
	case domain.FormatYear:
		return f("YYYY-01-01"), nil
	case domain.FormatMinuteOfHour:
		return f("00:MI"), nil
	case domain.FormatHourOfDay:
		return f("HH24:00"), nil
	case domain.FormatDayOfWeek:
		return fmt.Sprintf("TRIM(%s)", f("Day")), nil
	case domain.FormatDayOfMonth:
		return f("DD"), nil
	case domain.FormatDayOfYear:
		return f("DDD"), nil
	case domain.FormatMonthOfYear:
		return fmt.Sprintf("TRIM(%s)", f("Month")), nil
	case domain.FormatQuarterOfYear:
		return fmt.Sprintf("EXTRACT(QUARTER FROM %s)", expr), nil
	case domain.FormatQuarter:
		return fmt.Sprintf("TO_CHAR(DATE_TRUNC('quarter', %s), 'YYYY-MM-DD')", expr), nil
	}
	return "", unsupportedFormat(d.Name(), format)
}

// Now implements Dialect.
func (Postgres) Now() string { return "NOW()" }

// IfNull implements Dialect.
func (Postgres) IfNull(expr, fallback string) string {
	return fmt.Sprintf("COALESCE(%s, %s)", expr, fallback)
}

// Concat implements Dialect.
func (Postgres) Concat(args ...string) string {
	return "CONCAT(" + strings.Join(args, ", ") + ")"
}

// TimestampDiff implements Dialect.
func (Postgres) TimestampDiff(unit, from, to string) (string, error) {
	u, err := ValidUnit(unit)
	if err != nil {
		return "", err
	}
	epoch := fmt.Sprintf("EXTRACT(EPOCH FROM (%s - %s))", to, from)
	months := fmt.Sprintf("(EXTRACT(YEAR FROM AGE(%s, %s)) * 12 + EXTRACT(MONTH FROM AGE(%s, %s)))", to, from, to, from)
	switch u {
	case "MICROSECOND":
		return fmt.Sprintf("FLOOR(%s * 1000000)", epoch), nil
	case "SECOND":
		return fmt.Sprintf("FLOOR(%s)", epoch), nil
	case "MINUTE":
		return fmt.Sprintf("FLOOR(%s / 60)", epoch), nil
	case "HOUR":
		return fmt.Sprintf("FLOOR(%s / 3600)", epoch), nil
	case "DAY":
		return fmt.Sprintf("FLOOR(%s / 86400)", epoch), nil
	case "WEEK":
		return fmt.Sprintf("FLOOR(%s / 604800)", epoch), nil
	case "MONTH":
		return months, nil
	case "QUARTER":
		return fmt.Sprintf("FLOOR(%s / 3)", months), nil
	default:
		return fmt.Sprintf("EXTRACT(YEAR FROM AGE(%s, %s))", to, from), nil
	}
}

// SupportsFullJoin implements Dialect.
func (Postgres) SupportsFullJoin() bool { return true }

// SupportsCTE implements Dialect.
func (Postgres) SupportsCTE(string) bool { return true }

// UnescapePercent implements Dialect.
func (Postgres) UnescapePercent() bool { return false }
