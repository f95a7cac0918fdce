package rewriter

import (
	"strings"

	"github.com/satishbabariya/insights-go/internal/core/query/sqltoken"
)

// reference is a table name found in a FROM or JOIN position.
type reference struct {
	// name is the unquoted name.
	name string
	// text is the token as written, used as the CTE alias.
	text string
}

// clause keywords that end a FROM list at the same depth.
var endsFromList = map[string]bool{
	"WHERE": true, "GROUP": true, "HAVING": true, "ORDER": true, "LIMIT": true,
	"OFFSET": true, "FETCH": true, "UNION": true, "INTERSECT": true, "EXCEPT": true,
	"WINDOW": true, "FOR": true, "QUALIFY": true,
}

// functions whose arguments use FROM without reading a table.
var valueFrom = map[string]bool{
	"EXTRACT": true, "SUBSTRING": true, "TRIM": true, "OVERLAY": true, "POSITION": true,
}

// references returns the unqualified table names read by the statement, in
// order of appearance and without duplicates. Names defined by a WITH clause
// anywhere in the statement are not references.
func references(tokens []sqltoken.Token) []reference {
	sig := sqltoken.Significant(tokens)
	depths := sqltoken.Depths(tokens)
	local := cteNames(tokens, sig, depths)

	inFrom := map[int]bool{}
	// inCond marks a join condition; a comma at its depth continues the FROM list.
	inCond := map[int]bool{}
	callee := map[int]string{}
	seen := map[string]bool{}
	var refs []reference

	for pos, i := range sig {
		t := tokens[i]
		d := depths[i]

		if valueFrom[callee[d]] {
			continue
		}

		switch {
		case t.IsPunct("("):
			callee[d+1] = ""
			if pos > 0 && tokens[sig[pos-1]].Kind == sqltoken.Ident {
				callee[d+1] = strings.ToUpper(tokens[sig[pos-1]].Text)
			}
			continue
		case t.IsPunct(")"):
			delete(inFrom, d+1)
			delete(inCond, d+1)
			continue
		case t.Is("FROM"):
			inFrom[d] = true
			inCond[d] = false
			continue
		case t.Is("ON"), t.Is("USING"):
			if inFrom[d] || inCond[d] {
				inCond[d] = true
			}
			inFrom[d] = false
			continue
		case t.IsPunct(",") && inCond[d]:
			inFrom[d] = true
			inCond[d] = false
		case t.Kind == sqltoken.Ident && endsFromList[strings.ToUpper(t.Text)]:
			inFrom[d] = false
			inCond[d] = false
			continue
		}

		if t.Kind != sqltoken.Ident && t.Kind != sqltoken.QuotedIdent {
			continue
		}
		if pos == 0 {
			continue
		}

		prev := tokens[sig[pos-1]]
		candidate := prev.Is("FROM") || prev.Is("JOIN") || (prev.IsPunct(",") && inFrom[d])
		if !candidate {
			continue
		}

		// schema.table or a table function call
		if pos+1 < len(sig) {
			next := tokens[sig[pos+1]]
			if next.IsPunct(".") || next.IsPunct("(") {
				continue
			}
		}
		if t.Kind == sqltoken.Ident && isKeyword(t.Text) {
			continue
		}

		name := unquote(t)
		key := strings.ToLower(name)
		if name == "" || local[key] || seen[key] {
			continue
		}
		seen[key] = true
		refs = append(refs, reference{name: name, text: t.Text})
	}
	return refs
}

// cteNames returns the lower-cased names defined by WITH clauses.
func cteNames(tokens []sqltoken.Token, sig, depths []int) map[string]bool {
	names := map[string]bool{}
	for pos := 0; pos < len(sig); pos++ {
		if !tokens[sig[pos]].Is("WITH") {
			continue
		}
		depth := depths[sig[pos]]
		pos++
		if pos < len(sig) && tokens[sig[pos]].Is("RECURSIVE") {
			pos++
		}

		for pos < len(sig) {
			t := tokens[sig[pos]]
			if t.Kind != sqltoken.Ident && t.Kind != sqltoken.QuotedIdent {
				break
			}
			names[strings.ToLower(unquote(t))] = true

			// skip to the body's closing parenthesis
			pos++
			for pos < len(sig) && !(tokens[sig[pos]].Is("AS") && depths[sig[pos]] == depth) {
				pos++
			}
			for pos < len(sig) && !(tokens[sig[pos]].IsPunct("(") && depths[sig[pos]] == depth) {
				pos++
			}
			pos++
			for pos < len(sig) && !(tokens[sig[pos]].IsPunct(")") && depths[sig[pos]] == depth) {
				pos++
			}
			pos++

			if pos < len(sig) && tokens[sig[pos]].IsPunct(",") && depths[sig[pos]] == depth {
				pos++
				continue
			}
			break
		}
		pos--
	}
	return names
}

func unquote(t sqltoken.Token) string {
	if t.Kind != sqltoken.QuotedIdent || len(t.Text) < 2 {
		return t.Text
	}
	q := t.Text[:1]
	return strings.ReplaceAll(t.Text[1:len(t.Text)-1], q+q, q)
}

// keywords that may follow FROM or JOIN without naming a table.
func isKeyword(s string) bool {
	switch strings.ToUpper(s) {
	case "LATERAL", "ONLY", "SELECT", "DUAL", "UNNEST":
		return true
	}
	return false
}
