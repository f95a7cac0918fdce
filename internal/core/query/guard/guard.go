// Package guard enforces the read-only contract and the row ceiling on SQL
// text before it reaches a data source.
package guard

import (
	"strings"

	"github.com/satishbabariya/insights-go/internal/core/query/domain"
	"github.com/satishbabariya/insights-go/internal/core/query/sqltoken"
)

// mutating keywords may not open a statement or a CTE body.
var mutating = map[string]bool{"INSERT": true, "UPDATE": true, "DELETE": true, "MERGE": true}

// Validate accepts only statements whose first keyword is SELECT or WITH.
// Leading whitespace and comments are ignored and the comparison is
// case-insensitive. A second statement after a semicolon is rejected, as is a
// WITH whose CTE bodies or main statement modify data, and SELECT ... INTO.
func Validate(sql string) error {
	tokens, err := sqltoken.Tokenize(sql)
	if err != nil {
		return &domain.ReadOnlyViolation{Statement: sql, Reason: "statement could not be read"}
	}
	tokens = sqltoken.TrimTrailing(tokens)

	sig := sqltoken.Significant(tokens)
	if len(sig) == 0 {
		return &domain.ReadOnlyViolation{Statement: sql, Reason: "empty statement"}
	}

	first := tokens[sig[0]]
	if !first.Is("SELECT") && !first.Is("WITH") {
		return &domain.ReadOnlyViolation{Statement: sql}
	}

	depths := sqltoken.Depths(tokens)
	for pos, i := range sig {
		t := tokens[i]
		if t.IsPunct(";") && depths[i] == 0 {
			return &domain.ReadOnlyViolation{Statement: sql, Reason: "multiple statements are not allowed"}
		}
		// SELECT ... INTO creates a table or writes a file.
		if t.Is("INTO") {
			return &domain.ReadOnlyViolation{Statement: sql, Reason: "SELECT INTO is not allowed"}
		}
		if t.Kind != sqltoken.Ident || !mutating[strings.ToUpper(t.Text)] {
			continue
		}
		// A data-modifying keyword opening a parenthesised body or directly
		// following the CTE list.
		if pos > 0 {
			prev := tokens[sig[pos-1]]
			if prev.IsPunct("(") || (first.Is("WITH") && depths[i] == 0 && prev.IsPunct(")")) {
				return &domain.ReadOnlyViolation{Statement: sql, Reason: "data-modifying statements are not allowed"}
			}
		}
	}
	return nil
}

// UnescapePercent turns every %% into %. Native SQL written for drivers that
// use printf-style placeholders doubles literal percent signs.
func UnescapePercent(sql string) string {
	return strings.ReplaceAll(sql, "%%", "%")
}

// NormalizeNative unescapes percent signs in native SQL when the data source's
// escaping policy asks for it. Compiler output is returned unchanged.
func NormalizeNative(sql string, isNative, policy bool) string {
	if isNative && policy {
		return UnescapePercent(sql)
	}
	return sql
}

// Prepare runs the guard steps in order: percent unescaping for native SQL
// when the data source asks for it, validation, then the row ceiling.
func Prepare(sql string, ec domain.ExecutionContext) (string, error) {
	sql = NormalizeNative(sql, ec.IsNative, ec.UnescapePercent)
	if err := Validate(sql); err != nil {
		return "", err
	}
	return ApplyLimit(sql, ec.MaxRows), nil
}
