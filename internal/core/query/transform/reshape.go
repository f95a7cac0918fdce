package transform

import (
	"sort"

	"github.com/satishbabariya/insights-go/internal/core/query/domain"
)

// pivot turns the distinct values of the pivot column into columns, one row
// per index value, summing the value column. Missing cells are zero.
func pivot(query *domain.LogicalQuery, res *domain.Result, opts map[string]string) (*domain.Result, error) {
	pivotCol, indexCol, valueCol := opts[OptPivotColumn], opts[OptPivotIndex], opts[OptPivotValue]
	if pivotCol == "" || indexCol == "" || valueCol == "" {
		return nil, domain.Compilationf("invalid pivot options")
	}
	if pivotCol == indexCol {
		return nil, domain.Compilationf("pivot column and index column cannot be the same")
	}

	pi, err := columnOf(res, pivotCol)
	if err != nil {
		return nil, err
	}
	ii, err := columnOf(res, indexCol)
	if err != nil {
		return nil, err
	}
	vi, err := columnOf(res, valueCol)
	if err != nil {
		return nil, err
	}

	type cell struct {
		sum      float64
		integral bool
	}
	indexValues := map[string]any{}
	pivotSeen := map[string]bool{}
	cells := map[string]map[string]*cell{}

	for _, row := range res.Rows {
		idx, piv := label(row[ii]), label(row[pi])
		indexValues[idx] = row[ii]
		pivotSeen[piv] = true

		f, isInt, ok := toNumber(row[vi])
		if !ok {
			continue
		}
		if cells[idx] == nil {
			cells[idx] = map[string]*cell{}
		}
		c := cells[idx][piv]
		if c == nil {
			c = &cell{integral: true}
			cells[idx][piv] = c
		}
		c.sum += f
		c.integral = c.integral && isInt
	}

	indexKeys := sortedKeys(indexValues)
	pivotKeys := make([]string, 0, len(pivotSeen))
	for k := range pivotSeen {
		pivotKeys = append(pivotKeys, k)
	}
	sort.Strings(pivotKeys)

	indexType, indexOpts := queryColumn(query, indexCol)
	valueType, _ := queryColumn(query, valueCol)

	cols := []domain.ResultColumn{{Name: indexCol, Type: orType(indexType, res.Columns[ii].Type), Options: indexOpts}}
	for _, k := range pivotKeys {
		cols = append(cols, domain.ResultColumn{Name: k, Type: orType(valueType, res.Columns[vi].Type)})
	}

	rows := make([][]any, 0, len(indexKeys))
	for _, k := range indexKeys {
		row := []any{indexValues[k]}
		for _, p := range pivotKeys {
			c := cells[k][p]
			switch {
			case c == nil:
				row = append(row, int64(0))
			case c.integral:
				row = append(row, int64(c.sum))
			default:
				row = append(row, c.sum)
			}
		}
		rows = append(rows, row)
	}
	return &domain.Result{Columns: cols, Rows: rows}, nil
}

// unpivot melts every column except the index column into
// (index, column name, value) rows.
func unpivot(query *domain.LogicalQuery, res *domain.Result, opts map[string]string) (*domain.Result, error) {
	indexCol, varLabel, valueLabel := opts[OptIndexColumn], opts[OptColumnLabel], opts[OptValueLabel]
	if indexCol == "" || varLabel == "" || valueLabel == "" {
		return nil, domain.Compilationf("invalid unpivot options")
	}
	ii, err := columnOf(res, indexCol)
	if err != nil {
		return nil, err
	}

	indexType, indexOpts := queryColumn(query, indexCol)
	cols := []domain.ResultColumn{
		{Name: indexCol, Type: orType(indexType, res.Columns[ii].Type), Options: indexOpts},
		{Name: varLabel, Type: domain.TypeString},
		{Name: valueLabel, Type: domain.TypeFloat},
	}

	var rows [][]any
	for ci, c := range res.Columns {
		if ci == ii {
			continue
		}
		for _, row := range res.Rows {
			rows = append(rows, []any{row[ii], c.Name, row[ci]})
		}
	}
	return &domain.Result{Columns: cols, Rows: rows}, nil
}

// transpose swaps rows and columns around the index column. The first
// column of the output holds the former column names.
func transpose(res *domain.Result, opts map[string]string) (*domain.Result, error) {
	indexCol := opts[OptIndexColumn]
	if indexCol == "" {
		return nil, domain.Compilationf("invalid transpose options")
	}
	ii, err := columnOf(res, indexCol)
	if err != nil {
		return nil, err
	}

	newLabel := opts[OptColumnLabel]
	if newLabel == "" {
		newLabel = "column"
	}

	cols := []domain.ResultColumn{{Name: newLabel, Type: domain.TypeString}}
	for _, row := range res.Rows {
		cols = append(cols, domain.ResultColumn{Name: label(row[ii]), Type: domain.TypeFloat})
	}

	var rows [][]any
	for ci, c := range res.Columns {
		if ci == ii {
			continue
		}
		out := []any{c.Name}
		for _, row := range res.Rows {
			out = append(out, row[ci])
		}
		rows = append(rows, out)
	}
	return &domain.Result{Columns: cols, Rows: rows}, nil
}

func orType(preferred, fallback domain.ColumnType) domain.ColumnType {
	if preferred == "" || preferred == domain.TypeUnknown {
		return fallback
	}
	return preferred
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool {
		fa, _, oka := toNumber(m[keys[a]])
		fb, _, okb := toNumber(m[keys[b]])
		if oka && okb {
			return fa < fb
		}
		return keys[a] < keys[b]
	})
	return keys
}
