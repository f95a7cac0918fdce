package dialect

import (
	"fmt"
	"strings"

	"github.com/satishbabariya/insights-go/internal/core/query/domain"
)

// MySQL is the MySQL and MariaDB dialect.
type MySQL struct {
	mariadb bool
}

// Name implements Dialect.
func (d MySQL) Name() domain.SQLDialect {
	if d.mariadb {
		return domain.MariaDB
	}
	return domain.MySQL
}

// QuoteIdentifier implements Dialect.
func (MySQL) QuoteIdentifier(name string) string { return quoteWith(name, "`") }

// QuoteString implements Dialect. Backslashes are escaped because the default
// sql_mode treats them as escape characters.
func (MySQL) QuoteString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return quoteStandardString(s)
}

// FormatDate implements Dialect.
func (d MySQL) FormatDate(expr string, format domain.DateFormat) (string, error) {
	f := func(pattern string) string { return fmt.Sprintf("DATE_FORMAT(%s, '%s')", expr, pattern) }
	switch format {
	case domain.FormatMinute:
		return f("%Y-%m-%d %H:%i"), nil
	case domain.FormatHour:
		return f("%Y-%m-%d %H:00"), nil
	case domain.FormatDay, domain.FormatDayShort:
		return f("%Y-%m-%d"), nil
	case domain.FormatWeek:
		return fmt.Sprintf("DATE_SUB(%s, INTERVAL (DAYOFWEEK(%s) - 1) DAY)", f("%Y-%m-%d"), expr), nil
	case domain.FormatMonth, domain.FormatMon:
		return f("%Y-%m-01"), nil
	case domain.FormatYear:
		return f("%Y-01-01"), nil
	case domain.FormatMinuteOfHour:
		return f("00:%i"), nil
	case domain.FormatHourOfDay:
		return f("%H:00"), nil
	case domain.FormatDayOfWeek:
		return f("%W"), nil
	case domain.FormatDayOfMonth:
		return f("%d"), nil
	case domain.FormatDayOfYear:
		return f("%j"), nil
	case domain.FormatMonthOfYear:
		return f("%M"), nil
	case domain.FormatQuarterOfYear:
		return fmt.Sprintf("QUARTER(%s)", expr), nil
	case domain.FormatQuarter:
		return fmt.Sprintf("STR_TO_DATE(CONCAT(YEAR(%s), '-', (QUARTER(%s) * 3) - 2, '-01'), '%%Y-%%m-%%d')", expr, expr), nil
	}
	return "", unsupportedFormat(d.Name(), format)
}

// Now implements Dialect.
func (MySQL) Now() string { return "NOW()" }

// IfNull implements Dialect.
func (MySQL) IfNull(expr, fallback string) string {
	return fmt.Sprintf("IFNULL(%s, %s)", expr, fallback)
}

// Concat implements Dialect.
func (MySQL) Concat(args ...string) string {
	return "CONCAT(" + strings.Join(args, ", ") + ")"
}

// TimestampDiff implements Dialect.
func (MySQL) TimestampDiff(unit, from, to string) (string, error) {
	u, err := ValidUnit(unit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("TIMESTAMPDIFF(%s, %s, %s)", u, from, to), nil
}

// SupportsFullJoin implements Dialect.
func (MySQL) SupportsFullJoin() bool { return false }

// SupportsCTE implements Dialect.
func (d MySQL) SupportsCTE(serverVersion string) bool {
	if d.mariadb || strings.Contains(strings.ToLower(serverVersion), "mariadb") {
		return atLeast(trimVendorSuffix(serverVersion), "10.2.1")
	}
	return atLeast(trimVendorSuffix(serverVersion), "8.0")
}

// UnescapePercent implements Dialect.
func (MySQL) UnescapePercent() bool { return true }

// trimVendorSuffix drops build metadata such as "-MariaDB-1:10.6.12" or
// "-0ubuntu0.22.04.1" so only the numeric release is compared.
func trimVendorSuffix(v string) string {
	if i := strings.IndexAny(v, "-+ "); i > 0 {
		return v[:i]
	}
	return v
}
