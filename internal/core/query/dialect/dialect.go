// Package dialect describes the SQL syntax differences between the supported engines.
package dialect

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-version"
	"github.com/satishbabariya/insights-go/internal/core/query/domain"
)

// Dialect renders the engine specific pieces of a statement.
type Dialect interface {
	// Name returns the dialect name.
	Name() domain.SQLDialect

	// QuoteIdentifier quotes a table, column or alias name.
	QuoteIdentifier(name string) string

	// QuoteString renders a string literal.
	QuoteString(s string) string

	// FormatDate buckets a date expression.
	FormatDate(expr string, format domain.DateFormat) (string, error)

	// Now returns the current timestamp expression.
	Now() string

	// IfNull returns expr, or fallback when expr is NULL.
	IfNull(expr, fallback string) string

	// Concat concatenates string expressions.
	Concat(args ...string) string

	// TimestampDiff returns the number of whole units between two timestamps.
	TimestampDiff(unit, from, to string) (string, error)

	// SupportsFullJoin reports whether FULL OUTER JOIN is available.
	SupportsFullJoin() bool

	// SupportsCTE reports whether the given server version understands WITH.
	// An empty version is assumed to be recent.
	SupportsCTE(serverVersion string) bool

	// UnescapePercent reports whether native statements need doubled percent
	// signs collapsed before reaching the driver.
	UnescapePercent() bool
}

// TimeUnits are the units accepted by TimestampDiff.
var TimeUnits = []string{"MICROSECOND", "SECOND", "MINUTE", "HOUR", "DAY", "WEEK", "MONTH", "QUARTER", "YEAR"}

// For returns the dialect registered under name.
func For(name domain.SQLDialect) (Dialect, error) {
	switch strings.ToLower(string(name)) {
	case "postgres", "postgresql", "pgx":
		return Postgres{}, nil
	case "mysql":
		return MySQL{}, nil
	case "mariadb":
		return MySQL{mariadb: true}, nil
	case "sqlite", "sqlite3":
		return SQLite{}, nil
	case "duckdb":
		return DuckDB{}, nil
	default:
		return nil, fmt.Errorf("unsupported dialect: %s", name)
	}
}

// MustFor is like For but panics on unknown names. It is meant for tests and
// package level defaults.
func MustFor(name domain.SQLDialect) Dialect {
	d, err := For(name)
	if err != nil {
		panic(err)
	}
	return d
}

// ValidUnit normalizes a TimestampDiff unit.
func ValidUnit(unit string) (string, error) {
	u := strings.ToUpper(strings.TrimSpace(unit))
	for _, v := range TimeUnits {
		if u == v {
			return u, nil
		}
	}
	return "", fmt.Errorf("invalid unit %s, valid units are %s", unit, strings.Join(TimeUnits, ", "))
}

// quoteWith doubles every occurrence of q inside name and wraps it in q.
func quoteWith(name, q string) string {
	return q + strings.ReplaceAll(name, q, q+q) + q
}

func quoteStandardString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// atLeast compares a reported server version against a minimum.
func atLeast(serverVersion, minimum string) bool {
	if serverVersion == "" {
		return true
	}
	current, err := version.NewVersion(serverVersion)
	if err != nil {
		// Vendor strings we cannot parse are treated as recent.
		return true
	}
	return current.GreaterThanOrEqual(version.Must(version.NewVersion(minimum)))
}

func unsupportedFormat(d domain.SQLDialect, format domain.DateFormat) error {
	return fmt.Errorf("date format %q is not supported by %s", format, d)
}
