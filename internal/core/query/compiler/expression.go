package compiler

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/satishbabariya/insights-go/internal/core/query/domain"
)

var arithmeticOperators = map[string]string{"+": "+", "-": "-", "*": "*", "/": "/"}

var comparisonOperators = map[string]string{
	"=":  "=",
	"!=": "<>",
	"<":  "<",
	">":  ">",
	"<=": "<=",
	">=": ">=",
}

var logicalOperators = map[string]string{domain.OpAnd: "AND", domain.OpOr: "OR"}

// expr compiles an expression node. A logical group without conditions
// compiles to the empty string.
func (b *build) expr(e *domain.Expression) (string, error) {
	if e == nil {
		return "", domain.Compilationf("missing expression")
	}

	switch e.Type {
	case domain.LogicalExpression:
		return b.logical(e)
	case domain.BinaryExpression:
		return b.binary(e)
	case domain.CallExpression:
		return b.call(e.Function, e.Arguments)
	case domain.ColumnExpression:
		if e.Column == "count" && e.Table == "" {
			return "COUNT(*)", nil
		}
		return b.columnRef(e.Table, e.Column)
	case domain.StringExpression:
		s, ok := e.Value.(string)
		if !ok {
			s = fmt.Sprint(e.Value)
		}
		return b.d.QuoteString(s), nil
	case domain.NumberExpression:
		return numberLiteral(e.Value)
	default:
		return "", domain.Compilationf("invalid expression type: %s", e.Type)
	}
}

func (b *build) logical(e *domain.Expression) (string, error) {
	op := e.Operator
	if op == "" {
		op = domain.OpAnd
	}
	keyword, ok := logicalOperators[op]
	if !ok {
		return "", domain.Compilationf("operation %s not implemented", op)
	}

	var parts []string
	for _, cond := range e.Conditions {
		s, err := b.expr(cond)
		if err != nil {
			return "", err
		}
		if s != "" {
			parts = append(parts, s)
		}
	}

	switch len(parts) {
	case 0:
		return "", nil
	case 1:
		return parts[0], nil
	default:
		return "(" + strings.Join(parts, " "+keyword+" ") + ")", nil
	}
}

func (b *build) binary(e *domain.Expression) (string, error) {
	left, err := b.expr(e.Left)
	if err != nil {
		return "", err
	}
	right, err := b.expr(e.Right)
	if err != nil {
		return "", err
	}

	if op, ok := comparisonOperators[e.Operator]; ok {
		return fmt.Sprintf("%s %s %s", left, op, right), nil
	}
	if op, ok := arithmeticOperators[e.Operator]; ok {
		return fmt.Sprintf("(%s %s %s)", left, op, right), nil
	}
	if op, ok := logicalOperators[e.Operator]; ok {
		return fmt.Sprintf("(%s %s %s)", left, op, right), nil
	}
	return "", domain.Compilationf("operation %s not implemented", e.Operator)
}

// numberLiteral renders a numeric literal. Values decoded from YAML or JSON
// arrive as ints, floats or numeric strings.
func numberLiteral(v any) (string, error) {
	switch n := v.(type) {
	case int:
		return strconv.Itoa(n), nil
	case int32:
		return strconv.FormatInt(int64(n), 10), nil
	case int64:
		return strconv.FormatInt(n, 10), nil
	case uint64:
		return strconv.FormatUint(n, 10), nil
	case float32:
		return formatFloat(float64(n))
	case float64:
		return formatFloat(n)
	case string:
		s := strings.TrimSpace(n)
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return "", domain.Compilationf("invalid number %q", n)
		}
		return s, nil
	default:
		return "", domain.Compilationf("invalid number %v", v)
	}
}

func formatFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", domain.Compilationf("invalid number %v", f)
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}

// literalString returns the raw text of a string or number literal.
func literalString(e *domain.Expression) (string, bool) {
	if e == nil {
		return "", false
	}
	switch e.Type {
	case domain.StringExpression:
		if s, ok := e.Value.(string); ok {
			return s, true
		}
		return fmt.Sprint(e.Value), true
	case domain.NumberExpression:
		s, err := numberLiteral(e.Value)
		return s, err == nil
	}
	return "", false
}
