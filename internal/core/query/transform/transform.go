// Package transform post-processes normalized results: column typing,
// cumulative aggregations, reshaping transforms and display formatting.
package transform

import (
	"fmt"

	"github.com/satishbabariya/insights-go/internal/core/query/domain"
)

// Options of the reshaping transforms.
const (
	OptPivotColumn = "column"
	OptPivotIndex  = "index"
	OptPivotValue  = "value"
	OptIndexColumn = "index_column"
	OptColumnLabel = "column_label"
	OptValueLabel  = "value_label"
)

// Process types the result columns and applies the query's transforms and
// cumulative columns. The result must carry its columns.
func Process(query *domain.LogicalQuery, res *domain.Result) (*domain.Result, error) {
	if res == nil || res.Columns == nil || query == nil {
		return res, nil
	}

	res = ApplyColumnTypes(query, res)
	if query.IsNative {
		return res, nil
	}

	if len(query.Transforms) > 0 {
		out, err := Apply(query, res)
		if err != nil {
			return nil, err
		}
		res = out
	}
	if query.HasCumulativeColumns() {
		res = Cumulative(query, res)
	}
	return res, nil
}

// ApplyColumnTypes replaces driver column metadata with the query's own
// columns for logical queries, and infers missing types for native ones.
func ApplyColumnTypes(query *domain.LogicalQuery, res *domain.Result) *domain.Result {
	if !query.IsNative && len(query.Columns) == len(res.Columns) {
		cols := make([]domain.ResultColumn, len(query.Columns))
		for i, c := range query.Columns {
			t := c.Type
			if t == "" {
				t = res.Columns[i].Type
			}
			cols[i] = domain.ResultColumn{Name: c.ResultLabel(), Type: t, Options: c.FormatOption}
		}
		res.Columns = cols
		return res
	}
	return InferTypes(res)
}

// ValidateTransforms rejects repeated transforms and combinations of them.
func ValidateTransforms(transforms []domain.Transform) error {
	counts := map[domain.TransformType]int{}
	for _, t := range transforms {
		counts[t.Type]++
	}
	for _, t := range []domain.TransformType{domain.Pivot, domain.Unpivot, domain.Transpose} {
		if counts[t] > 1 {
			return domain.Compilationf("only one %s transform is allowed", t)
		}
	}
	pairs := [][2]domain.TransformType{
		{domain.Pivot, domain.Unpivot},
		{domain.Pivot, domain.Transpose},
		{domain.Unpivot, domain.Transpose},
	}
	for _, p := range pairs {
		if counts[p[0]] > 0 && counts[p[1]] > 0 {
			return domain.Compilationf("%s and %s transforms cannot be used together", p[0], p[1])
		}
	}
	return nil
}

// Apply runs the query's transform on res.
func Apply(query *domain.LogicalQuery, res *domain.Result) (*domain.Result, error) {
	if err := ValidateTransforms(query.Transforms); err != nil {
		return nil, err
	}

	for _, t := range query.Transforms {
		switch t.Type {
		case domain.Pivot:
			return pivot(query, res, t.Options)
		case domain.Unpivot:
			return unpivot(query, res, t.Options)
		case domain.Transpose:
			return transpose(res, t.Options)
		default:
			return nil, domain.Compilationf("unknown transform %s", t.Type)
		}
	}
	return res, nil
}

// Cumulative replaces the values of cumulative columns with running totals.
func Cumulative(query *domain.LogicalQuery, res *domain.Result) *domain.Result {
	for _, c := range query.Columns {
		if !c.Aggregation.IsCumulative() {
			continue
		}
		idx := res.ColumnIndex(c.ResultLabel())
		if idx < 0 {
			continue
		}

		var running float64
		integral := true
		for _, row := range res.Rows {
			if idx >= len(row) {
				continue
			}
			f, isInt, ok := toNumber(row[idx])
			if !ok {
				continue
			}
			integral = integral && isInt
			running += f
			if integral {
				row[idx] = int64(running)
			} else {
				row[idx] = running
			}
		}
	}
	return res
}

func columnOf(res *domain.Result, label string) (int, error) {
	idx := res.ColumnIndex(label)
	if idx < 0 {
		return -1, domain.Compilationf("column %s not found in results", label)
	}
	return idx, nil
}

func queryColumn(query *domain.LogicalQuery, label string) (domain.ColumnType, *domain.FormatOption) {
	for _, c := range query.Columns {
		if c.ResultLabel() == label {
			return c.Type, c.FormatOption
		}
	}
	return domain.TypeUnknown, nil
}

func label(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
