// Package sqlformat pretty-prints SQL for display: keywords upper-cased and
// every top-level clause on its own line.
package sqlformat

import (
	"strings"

	"github.com/satishbabariya/insights-go/internal/core/query/sqltoken"
)

var keywords = map[string]bool{}

func init() {
	for _, kw := range strings.Fields(`SELECT DISTINCT FROM WHERE GROUP BY HAVING ORDER LIMIT OFFSET
		JOIN LEFT RIGHT FULL INNER OUTER CROSS ON USING AS AND OR NOT IN IS NULL LIKE ILIKE BETWEEN
		CASE WHEN THEN ELSE END ASC DESC WITH RECURSIVE UNION ALL INTERSECT EXCEPT EXISTS
		COUNT SUM MIN MAX AVG COALESCE IFNULL CAST TRUE FALSE`) {
		keywords[kw] = true
	}
}

// clauses start a new line when they appear outside parentheses.
var clauses = map[string]bool{
	"SELECT": true, "FROM": true, "WHERE": true, "GROUP": true, "HAVING": true,
	"ORDER": true, "LIMIT": true, "OFFSET": true, "UNION": true, "INTERSECT": true,
	"EXCEPT": true, "JOIN": true, "WITH": true,
}

var joinPrefixes = map[string]bool{"LEFT": true, "RIGHT": true, "FULL": true, "INNER": true, "CROSS": true, "OUTER": true}

// Format returns sql pretty-printed. Text that cannot be tokenized is
// returned unchanged.
func Format(sql string) string {
	tokens, err := sqltoken.Tokenize(sql)
	if err != nil {
		return sql
	}
	tokens = sqltoken.TrimTrailing(tokens)
	depths := sqltoken.Depths(tokens)

	var sb strings.Builder
	space := false
	prevWord := ""
	for i, t := range tokens {
		if t.Kind == sqltoken.Whitespace {
			space = sb.Len() > 0
			continue
		}

		text := t.Text
		upper := strings.ToUpper(text)
		if t.Kind == sqltoken.Ident && keywords[upper] {
			text = upper
		}

		atLineStart := sb.Len() == 0 || strings.HasSuffix(sb.String(), "\n")
		switch {
		case atLineStart:
		case t.Kind == sqltoken.Ident && depths[i] == 0 && startsLine(upper, prevWord, tokens[i+1:]):
			sb.WriteByte('\n')
		case space:
			sb.WriteByte(' ')
		}
		space = false
		sb.WriteString(text)

		if t.Kind == sqltoken.Comment && strings.HasPrefix(t.Text, "--") {
			sb.WriteByte('\n')
		}
		if t.Kind == sqltoken.Ident {
			prevWord = upper
		} else if t.Significant() {
			prevWord = ""
		}
	}
	return strings.TrimSpace(sb.String())
}

func startsLine(word, prev string, rest []sqltoken.Token) bool {
	if joinPrefixes[word] {
		if joinPrefixes[prev] {
			return false
		}
		next := nextWord(rest)
		return next == "JOIN" || next == "OUTER"
	}
	if word == "JOIN" {
		return !joinPrefixes[prev]
	}
	return clauses[word]
}

func nextWord(rest []sqltoken.Token) string {
	for _, t := range rest {
		if !t.Significant() {
			continue
		}
		if t.Kind != sqltoken.Ident {
			return ""
		}
		return strings.ToUpper(t.Text)
	}
	return ""
}
