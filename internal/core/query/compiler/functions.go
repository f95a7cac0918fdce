package compiler

import (
	"fmt"
	"strings"

	"github.com/satishbabariya/insights-go/internal/core/query/domain"
)

// call compiles a function call. Aggregation names are accepted as functions
// when called with at most two arguments.
func (b *build) call(function string, args []*domain.Expression) (string, error) {
	fn := strings.ToLower(strings.TrimSpace(function))

	switch fn {
	case "now":
		return b.d.Now(), nil
	case "today":
		return "CURRENT_DATE", nil

	case "abs", "floor", "ceil", "round", "lower", "upper":
		a, err := b.args(fn, args, 1)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s(%s)", strings.ToUpper(fn), a[0]), nil

	case "is_set", "is_not_set":
		a, err := b.args(fn, args, 1)
		if err != nil {
			return "", err
		}
		if fn == "is_set" {
			return a[0] + " IS NOT NULL", nil
		}
		return a[0] + " IS NULL", nil

	case "count_if":
		a, err := b.args(fn, args, 1)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("SUM(CASE WHEN %s THEN 1 ELSE 0 END)", a[0]), nil

	case "distinct":
		a, err := b.args(fn, args, 1)
		if err != nil {
			return "", err
		}
		return "DISTINCT " + a[0], nil

	case "distinct_count":
		a, err := b.args(fn, args, 1)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("COUNT(DISTINCT %s)", a[0]), nil

	case "in", "not_in":
		if len(args) < 2 {
			return "", domain.Compilationf("%s requires a column and at least one value", fn)
		}
		a, err := b.args(fn, args, len(args))
		if err != nil {
			return "", err
		}
		op := "IN"
		if fn == "not_in" {
			op = "NOT IN"
		}
		return fmt.Sprintf("%s %s (%s)", a[0], op, strings.Join(a[1:], ", ")), nil

	case "contains", "not_contains", "starts_with", "ends_with":
		return b.like(fn, args)

	case "if_null":
		a, err := b.args(fn, args, 2)
		if err != nil {
			return "", err
		}
		return b.d.IfNull(a[0], a[1]), nil

	case "sum_if":
		a, err := b.args(fn, args, 2)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("SUM(CASE WHEN %s THEN %s ELSE 0 END)", a[0], a[1]), nil

	case "between":
		a, err := b.args(fn, args, 3)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s BETWEEN %s AND %s", a[0], a[1], a[2]), nil

	case "replace":
		a, err := b.args(fn, args, 3)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("REPLACE(%s, %s, %s)", a[0], a[1], a[2]), nil

	case "concat", "coalesce":
		if len(args) == 0 {
			return "", domain.Compilationf("%s requires at least one argument", fn)
		}
		a, err := b.args(fn, args, len(args))
		if err != nil {
			return "", err
		}
		if fn == "concat" {
			return b.d.Concat(a...), nil
		}
		return "COALESCE(" + strings.Join(a, ", ") + ")", nil

	case "case":
		return b.caseWhen(args)

	case "timespan":
		return b.timespan(args)

	case "time_elapsed":
		if len(args) != 3 {
			return "", domain.Compilationf("time_elapsed requires a unit and two timestamps")
		}
		unit, ok := literalString(args[0])
		if !ok {
			return "", domain.Compilationf("time_elapsed unit must be a string")
		}
		a, err := b.args(fn, args[1:], 2)
		if err != nil {
			return "", err
		}
		out, err := b.d.TimestampDiff(unit, a[0], a[1])
		if err != nil {
			return "", &domain.CompilationError{Reason: "invalid time_elapsed unit", Cause: err}
		}
		return out, nil

	case "descendants", "descendants_and_self":
		return b.descendants(fn == "descendants_and_self", args)
	}

	if len(args) <= 2 {
		if agg, ok := b.aggregationCall(fn, args); ok {
			return agg()
		}
	}

	return "", domain.Compilationf("function %s not implemented", function)
}

// args compiles exactly n arguments.
func (b *build) args(fn string, args []*domain.Expression, n int) ([]string, error) {
	if len(args) != n {
		return nil, domain.Compilationf("%s expects %d argument(s), got %d", fn, n, len(args))
	}
	out := make([]string, n)
	for i, a := range args {
		s, err := b.expr(a)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func (b *build) like(fn string, args []*domain.Expression) (string, error) {
	if len(args) != 2 {
		return "", domain.Compilationf("%s expects 2 argument(s), got %d", fn, len(args))
	}
	col, err := b.expr(args[0])
	if err != nil {
		return "", err
	}
	value, ok := literalString(args[1])
	if !ok {
		return "", domain.Compilationf("%s requires a literal search value", fn)
	}

	var pattern, op string
	switch fn {
	case "contains":
		pattern, op = "%"+value+"%", "LIKE"
	case "not_contains":
		pattern, op = "%"+value+"%", "NOT LIKE"
	case "starts_with":
		pattern, op = value+"%", "LIKE"
	default:
		pattern, op = "%"+value, "LIKE"
	}
	return fmt.Sprintf("%s %s %s", col, op, b.d.QuoteString(pattern)), nil
}

func (b *build) caseWhen(args []*domain.Expression) (string, error) {
	if len(args) < 3 || len(args)%2 == 0 {
		return "", domain.Compilationf("case function requires an odd number of arguments")
	}
	a, err := b.args("case", args, len(args))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("CASE")
	for i := 0; i+1 < len(a)-1; i += 2 {
		fmt.Fprintf(&sb, " WHEN %s THEN %s", a[i], a[i+1])
	}
	fmt.Fprintf(&sb, " ELSE %s END", a[len(a)-1])
	return sb.String(), nil
}

// descendants filters field to the nodes below node in a nested-set tree
// table with lft, rgt and name columns.
func (b *build) descendants(includeSelf bool, args []*domain.Expression) (string, error) {
	if len(args) != 3 {
		return "", domain.Compilationf("descendants requires a node, a tree table and a field")
	}
	node, ok := literalString(args[0])
	if !ok {
		return "", domain.Compilationf("descendants node must be a string")
	}
	tree, ok := literalString(args[1])
	if !ok {
		return "", domain.Compilationf("descendants tree must be a string")
	}
	field, err := b.expr(args[2])
	if err != nil {
		return "", err
	}

	gt, lt := ">", "<"
	if includeSelf {
		gt, lt = ">=", "<="
	}

	q := b.d.QuoteIdentifier
	treeTable := q(tree)
	bound := func(col string) string {
		return fmt.Sprintf("(SELECT %s FROM %s WHERE %s = %s)", q(col), treeTable, q("name"), b.d.QuoteString(node))
	}
	return fmt.Sprintf("%s IN (SELECT %s FROM %s WHERE %s %s %s AND %s %s %s)",
		field, q("name"), treeTable,
		q("lft"), gt, bound("lft"),
		q("rgt"), lt, bound("rgt"),
	), nil
}

func (b *build) aggregationCall(fn string, args []*domain.Expression) (func() (string, error), bool) {
	agg := domain.Aggregation(fn).Normalize()
	switch agg {
	case domain.Count, domain.CumulativeCount:
		return func() (string, error) { return "COUNT(*)", nil }, true
	case domain.Sum, domain.CumulativeSum, domain.Min, domain.Max, domain.Avg:
		return func() (string, error) {
			if len(args) != 1 {
				return "", domain.Compilationf("%s expects 1 argument(s), got %d", fn, len(args))
			}
			a, err := b.expr(args[0])
			if err != nil {
				return "", err
			}
			return b.aggregate(agg, a)
		}, true
	}
	return nil, false
}
