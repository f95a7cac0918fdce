package guard

import (
	"strconv"
	"strings"

	"github.com/satishbabariya/insights-go/internal/core/query/domain"
	"github.com/satishbabariya/insights-go/internal/core/query/sqltoken"
)

// ApplyLimit caps the number of rows sql can return at maxRows. A maxRows of
// zero or less uses domain.DefaultMaxRows.
//
// A trailing top-level LIMIT larger than the ceiling is lowered, a smaller one
// is kept. Statements ending in an OFFSET or FETCH clause, or in a LIMIT that
// is not a plain number, are wrapped in an outer SELECT. Anything else gets a
// LIMIT appended. Applying the ceiling again leaves the statement unchanged.
func ApplyLimit(sql string, maxRows int) string {
	if maxRows <= 0 {
		maxRows = domain.DefaultMaxRows
	}

	tokens, err := sqltoken.Tokenize(sql)
	if err != nil {
		return wrap(strings.TrimRight(strings.TrimSpace(sql), ";"), maxRows)
	}
	tokens = sqltoken.TrimTrailing(tokens)
	body := sqltoken.Join(tokens)

	sig := sqltoken.Significant(tokens)
	depths := sqltoken.Depths(tokens)

	limitAt := -1
	tailClause := false
	for pos, i := range sig {
		if depths[i] != 0 {
			continue
		}
		t := tokens[i]
		switch {
		case t.Is("LIMIT"):
			limitAt = pos
			tailClause = false
		case t.Is("OFFSET"), t.Is("FETCH"):
			tailClause = true
		case t.Is("UNION"), t.Is("INTERSECT"), t.Is("EXCEPT"):
			limitAt = -1
			tailClause = false
		}
	}

	if limitAt >= 0 {
		if count, ok := limitCount(tokens, sig[limitAt+1:]); ok {
			if n, err := strconv.Atoi(tokens[count].Text); err == nil {
				if n > maxRows {
					tokens[count].Text = strconv.Itoa(maxRows)
				}
				return sqltoken.Join(tokens)
			}
		}
		return wrap(body, maxRows)
	}

	if tailClause {
		return wrap(body, maxRows)
	}
	return body + " LIMIT " + strconv.Itoa(maxRows)
}

// limitCount returns the index of the row-count token in the clause following
// LIMIT. Accepted shapes are "n", "n OFFSET m" and "m, n".
func limitCount(tokens []sqltoken.Token, rest []int) (int, bool) {
	kinds := func(want ...string) bool {
		if len(rest) != len(want) {
			return false
		}
		for k, w := range want {
			t := tokens[rest[k]]
			switch w {
			case "#":
				if t.Kind != sqltoken.Number {
					return false
				}
			case ",":
				if !t.IsPunct(",") {
					return false
				}
			default:
				if !t.Is(w) {
					return false
				}
			}
		}
		return true
	}

	switch {
	case kinds("#"):
		return rest[0], true
	case kinds("#", "OFFSET", "#"):
		return rest[0], true
	case kinds("#", ",", "#"):
		return rest[2], true
	}
	return 0, false
}

func wrap(sql string, maxRows int) string {
	return "SELECT * FROM (" + sql + ") AS limited LIMIT " + strconv.Itoa(maxRows)
}
