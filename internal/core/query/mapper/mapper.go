// Package mapper normalizes driver results into column metadata and rows.
package mapper

import (
	"database/sql"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/satishbabariya/insights-go/internal/core/query/domain"
)

// Options shapes a normalized result.
type Options struct {
	// Pluck reduces every row to its first value.
	Pluck bool
	// IncludeColumns keeps the column list so Records puts it at index zero.
	IncludeColumns bool
}

// ResultMapper maps driver results to domain results.
type ResultMapper struct{}

// NewResultMapper creates a new result mapper.
func NewResultMapper() *ResultMapper {
	return &ResultMapper{}
}

// Normalize converts a fetched driver result. Values are converted according
// to the semantic type of their column.
func (m *ResultMapper) Normalize(raw *domain.RawResult, opts Options) *domain.Result {
	if raw == nil {
		raw = &domain.RawResult{}
	}

	columns := m.Columns(raw.Columns)
	rows := make([][]any, len(raw.Rows))
	for i, row := range raw.Rows {
		out := make([]any, len(row))
		for j, v := range row {
			t := domain.TypeUnknown
			if j < len(columns) {
				t = columns[j].Type
			}
			out[j] = m.ConvertValue(v, t)
		}
		rows[i] = out
	}

	if opts.Pluck {
		values := make([]any, 0, len(rows))
		for _, row := range rows {
			if len(row) > 0 {
				values = append(values, row[0])
			} else {
				values = append(values, nil)
			}
		}
		return &domain.Result{Values: values}
	}

	res := &domain.Result{Rows: rows}
	if opts.IncludeColumns {
		res.Columns = columns
	}
	return res
}

// Columns maps driver column descriptors to result columns.
func (m *ResultMapper) Columns(descs []domain.ColumnDescriptor) []domain.ResultColumn {
	columns := make([]domain.ResultColumn, len(descs))
	for i, d := range descs {
		columns[i] = domain.ResultColumn{Name: d.Name, Type: SemanticType(d)}
	}
	return columns
}

// SemanticType classifies a driver column. The database type name decides;
// the scan type is consulted when the name is unknown. Anything else is
// domain.TypeUnknown.
func SemanticType(d domain.ColumnDescriptor) domain.ColumnType {
	if t := typeFromName(d.DatabaseType); t != domain.TypeUnknown {
		return t
	}
	return typeFromScanType(d.ScanType)
}

func typeFromName(name string) domain.ColumnType {
	n := strings.ToUpper(strings.TrimSpace(name))
	if i := strings.IndexByte(n, '('); i >= 0 {
		n = strings.TrimSpace(n[:i])
	}
	n = strings.TrimPrefix(n, "UNSIGNED ")
	n = strings.TrimSuffix(n, " UNSIGNED")
	if n == "" {
		return domain.TypeUnknown
	}

	switch n {
	case "INT", "INTEGER", "INT2", "INT4", "INT8", "SMALLINT", "TINYINT", "MEDIUMINT", "BIGINT",
		"SERIAL", "BIGSERIAL", "SMALLSERIAL", "HUGEINT", "UHUGEINT", "UBIGINT", "UINTEGER",
		"USMALLINT", "UTINYINT", "YEAR", "OID":
		return domain.TypeInteger
	case "FLOAT", "FLOAT4", "FLOAT8", "DOUBLE", "DOUBLE PRECISION", "REAL", "DECIMAL",
		"NUMERIC", "MONEY":
		return domain.TypeFloat
	case "BOOL", "BOOLEAN", "BIT":
		return domain.TypeBoolean
	case "DATE":
		return domain.TypeDate
	case "DATETIME", "TIMESTAMP", "TIMESTAMPTZ", "TIMESTAMP WITH TIME ZONE", "TIMESTAMP_S",
		"TIMESTAMP_MS", "TIMESTAMP_NS", "TIMESTAMP WITHOUT TIME ZONE":
		return domain.TypeDatetime
	case "TIME", "TIMETZ", "TIME WITH TIME ZONE", "TIME WITHOUT TIME ZONE":
		return domain.TypeTime
	case "VARCHAR", "CHAR", "TEXT", "BPCHAR", "NAME", "UUID", "JSON", "JSONB", "ENUM", "SET",
		"TINYTEXT", "MEDIUMTEXT", "LONGTEXT", "NVARCHAR", "NCHAR", "CLOB", "STRING",
		"CHARACTER", "CHARACTER VARYING", "CITEXT", "INTERVAL":
		return domain.TypeString
	}
	return domain.TypeUnknown
}

var (
	timeType      = reflect.TypeOf(time.Time{})
	nullTimeType  = reflect.TypeOf(sql.NullTime{})
	nullIntType   = reflect.TypeOf(sql.NullInt64{})
	nullInt32Type = reflect.TypeOf(sql.NullInt32{})
	nullFloatType = reflect.TypeOf(sql.NullFloat64{})
	nullBoolType  = reflect.TypeOf(sql.NullBool{})
	nullStrType   = reflect.TypeOf(sql.NullString{})
)

func typeFromScanType(t reflect.Type) domain.ColumnType {
	if t == nil {
		return domain.TypeUnknown
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	switch t {
	case timeType, nullTimeType:
		return domain.TypeDatetime
	case nullIntType, nullInt32Type:
		return domain.TypeInteger
	case nullFloatType:
		return domain.TypeFloat
	case nullBoolType:
		return domain.TypeBoolean
	case nullStrType:
		return domain.TypeString
	}

	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return domain.TypeInteger
	case reflect.Float32, reflect.Float64:
		return domain.TypeFloat
	case reflect.Bool:
		return domain.TypeBoolean
	case reflect.String:
		return domain.TypeString
	}
	return domain.TypeUnknown
}

// ConvertValue converts a scanned value: []byte becomes string and numeric
// text becomes int64 or float64 when the column is numeric.
func (m *ResultMapper) ConvertValue(v any, t domain.ColumnType) any {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}

	s, ok := v.(string)
	if !ok {
		return v
	}

	switch t {
	case domain.TypeInteger:
		if n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f
		}
	case domain.TypeFloat:
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f
		}
	case domain.TypeBoolean:
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b
		}
	}
	return s
}

// ScanRows fetches every row of rows. It does not close rows.
func ScanRows(rows *sql.Rows) (*domain.RawResult, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	res := &domain.RawResult{Columns: make([]domain.ColumnDescriptor, len(types))}
	for i, ct := range types {
		nullable, _ := ct.Nullable()
		res.Columns[i] = domain.ColumnDescriptor{
			Name:         ct.Name(),
			DatabaseType: ct.DatabaseTypeName(),
			ScanType:     ct.ScanType(),
			Nullable:     nullable,
		}
	}

	for rows.Next() {
		values := make([]any, len(types))
		valuePtrs := make([]any, len(types))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		res.Rows = append(res.Rows, values)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return res, nil
}
