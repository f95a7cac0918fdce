package domain

import (
	"reflect"
	"strings"
)

// ColumnType is the normalized semantic type of a column.
type ColumnType string

const (
	TypeString   ColumnType = "string"
	TypeInteger  ColumnType = "integer"
	TypeFloat    ColumnType = "float"
	TypeDate     ColumnType = "date"
	TypeDatetime ColumnType = "datetime"
	TypeTime     ColumnType = "time"
	TypeBoolean  ColumnType = "boolean"
	TypeUnknown  ColumnType = "unknown"
)

// ParseColumnType accepts semantic names as well as the display names used by
// query definitions ("Long Int", "Decimal", "Text", ...).
func ParseColumnType(s string) ColumnType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string", "text", "long text", "varchar":
		return TypeString
	case "integer", "int", "long int", "bigint":
		return TypeInteger
	case "float", "decimal", "double", "numeric":
		return TypeFloat
	case "date":
		return TypeDate
	case "datetime", "timestamp":
		return TypeDatetime
	case "time":
		return TypeTime
	case "boolean", "bool":
		return TypeBoolean
	default:
		return TypeUnknown
	}
}

// IsDateLike reports whether date formatting applies to the type.
func (t ColumnType) IsDateLike() bool {
	return t == TypeDate || t == TypeDatetime
}

// IsNumeric reports whether the type holds numbers.
func (t ColumnType) IsNumeric() bool {
	return t == TypeInteger || t == TypeFloat
}

// ResultColumn describes one column of a result.
type ResultColumn struct {
	Name    string        `json:"label" yaml:"label"`
	Type    ColumnType    `json:"type" yaml:"type"`
	Options *FormatOption `json:"options,omitempty" yaml:"options,omitempty"`
}

// ColumnDescriptor is the driver's description of a result column.
type ColumnDescriptor struct {
	Name         string
	DatabaseType string
	ScanType     reflect.Type
	Nullable     bool
}

// RawResult is a fully fetched driver result. Rows are positionally aligned
// with Columns.
type RawResult struct {
	Columns []ColumnDescriptor
	Rows    [][]any
}

// Result is a normalized result set.
//
// Columns is nil unless column metadata was requested. When the result was
// plucked, Values holds the first value of every row and Rows is nil.
type Result struct {
	Columns []ResultColumn
	Rows    [][]any
	Values  []any
}

// Records returns the result as one ordered sequence: the column list at
// index zero (when columns were requested) followed by the rows, or the bare
// plucked values.
func (r *Result) Records() []any {
	if r == nil {
		return nil
	}
	if r.Values != nil {
		return r.Values
	}
	out := make([]any, 0, len(r.Rows)+1)
	if r.Columns != nil {
		out = append(out, r.Columns)
	}
	for _, row := range r.Rows {
		out = append(out, row)
	}
	return out
}

// Len returns the number of data rows.
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	if r.Values != nil {
		return len(r.Values)
	}
	return len(r.Rows)
}

// ColumnIndex returns the position of the named column, or -1.
func (r *Result) ColumnIndex(name string) int {
	for i, c := range r.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// TableColumn describes a column of a source table.
type TableColumn struct {
	Name      string     `json:"column"`
	Label     string     `json:"label"`
	Type      ColumnType `json:"type"`
	IsCustom  bool       `json:"is_custom,omitempty"`
	CustomSQL string     `json:"custom_sql,omitempty"`
}

// CatalogTable is a table known to a data source, as recorded by SyncTables.
type CatalogTable struct {
	DataSource   string        `json:"data_source"`
	Name         string        `json:"table"`
	Label        string        `json:"label"`
	IsQueryBased bool          `json:"is_query_based"`
	Hidden       bool          `json:"hidden"`
	Columns      []TableColumn `json:"columns"`
}

// TableLink says that PrimaryTable.PrimaryKey and ForeignTable.ForeignKey
// hold the same values, so the two tables can be joined on them.
type TableLink struct {
	PrimaryTable string `json:"primary_table" yaml:"primary_table"`
	PrimaryKey   string `json:"primary_key" yaml:"primary_key"`
	ForeignTable string `json:"foreign_table" yaml:"foreign_table"`
	ForeignKey   string `json:"foreign_key" yaml:"foreign_key"`
}

// Reverse returns the same link seen from the foreign table.
func (l TableLink) Reverse() TableLink {
	return TableLink{
		PrimaryTable: l.ForeignTable,
		PrimaryKey:   l.ForeignKey,
		ForeignTable: l.PrimaryTable,
		ForeignKey:   l.PrimaryKey,
	}
}

// ImportFormat is the file format of a table import.
type ImportFormat string

const (
	ImportCSV  ImportFormat = "csv"
	ImportXLSX ImportFormat = "xlsx"
)

// IfExists decides what an import does when the target table exists.
type IfExists string

const (
	IfExistsFail    IfExists = "fail"
	IfExistsReplace IfExists = "replace"
	IfExistsAppend  IfExists = "append"
)

// ImportSpec describes a file import into a data source table.
type ImportSpec struct {
	Table     string       `validate:"required"`
	Source    string       `validate:"required"`
	Format    ImportFormat `validate:"omitempty,oneof=csv xlsx"`
	Sheet     string
	Delimiter rune
	IfExists  IfExists       `validate:"omitempty,oneof=fail replace append"`
	Columns   []ImportColumn `validate:"dive"`
}

// ImportColumn overrides the name or type of an imported column.
type ImportColumn struct {
	Name string `validate:"required"`
	Type ColumnType
}
