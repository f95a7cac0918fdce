// Package domain contains the core business entities and interfaces for the Query domain.
package domain

import "strings"

// DefaultQueryLimit is the row limit a logical query compiles with when it sets none.
const DefaultQueryLimit = 500

// LogicalQuery represents a query aggregate root: the structured request a
// caller submits before any SQL exists.
type LogicalQuery struct {
	Name       string      `json:"name" yaml:"name"`
	Title      string      `json:"title,omitempty" yaml:"title,omitempty"`
	DataSource string      `json:"data_source" yaml:"data_source"`
	Tables     []Table     `json:"tables,omitempty" yaml:"tables,omitempty" validate:"dive"`
	Columns    []Column    `json:"columns,omitempty" yaml:"columns,omitempty" validate:"dive"`
	Filters    *Expression `json:"filters,omitempty" yaml:"filters,omitempty"`
	Limit      int         `json:"limit,omitempty" yaml:"limit,omitempty"`
	IsNative   bool        `json:"is_native,omitempty" yaml:"is_native,omitempty"`
	SQL        string      `json:"sql,omitempty" yaml:"sql,omitempty"`
	IsStored   bool        `json:"is_stored,omitempty" yaml:"is_stored,omitempty"`
	Transforms []Transform `json:"transforms,omitempty" yaml:"transforms,omitempty" validate:"dive"`
}

// Table is a table selected by a query, optionally joined to another table.
type Table struct {
	Table string `json:"table" yaml:"table" validate:"required"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
	Join  *Join  `json:"join,omitempty" yaml:"join,omitempty"`
}

// JoinType represents the kind of join between two tables.
type JoinType string

const (
	// InnerJoin keeps matching rows only.
	InnerJoin JoinType = "inner"
	// LeftJoin keeps every row of the left table.
	LeftJoin JoinType = "left"
	// RightJoin keeps every row of the right table.
	RightJoin JoinType = "right"
	// FullJoin keeps every row of both tables.
	FullJoin JoinType = "full"
)

// Join joins the owning table with another table on a column equality.
type Join struct {
	Type      JoinType      `json:"type" yaml:"type" validate:"omitempty,oneof=inner left right full"`
	With      string        `json:"with" yaml:"with"`
	Condition JoinCondition `json:"condition" yaml:"condition"`
}

// JoinCondition names the left column (on the owning table) and the right
// column (on the joined table).
type JoinCondition struct {
	Left  string `json:"left" yaml:"left"`
	Right string `json:"right" yaml:"right"`
}

// Aggregation is the aggregation applied to a selected column.
type Aggregation string

const (
	// NoAggregation selects the raw column.
	NoAggregation Aggregation = ""
	// GroupBy groups by the column.
	GroupBy Aggregation = "group by"
	// Sum sums the column.
	Sum Aggregation = "sum"
	// Min takes the minimum.
	Min Aggregation = "min"
	// Max takes the maximum.
	Max Aggregation = "max"
	// Avg averages the column.
	Avg Aggregation = "avg"
	// Count counts rows.
	Count Aggregation = "count"
	// CumulativeSum sums the column, then accumulates across result rows.
	CumulativeSum Aggregation = "cumulative sum"
	// CumulativeCount counts rows, then accumulates across result rows.
	CumulativeCount Aggregation = "cumulative count"
)

// Normalize lower-cases the aggregation so "Group By" and "group by" compare equal.
func (a Aggregation) Normalize() Aggregation {
	return Aggregation(strings.ToLower(strings.TrimSpace(string(a))))
}

// IsCumulative reports whether the aggregation accumulates across rows after execution.
func (a Aggregation) IsCumulative() bool {
	return strings.HasPrefix(string(a.Normalize()), "cumulative")
}

// SortOrder represents sort direction.
type SortOrder string

const (
	// Asc sorts ascending.
	Asc SortOrder = "asc"
	// Desc sorts descending.
	Desc SortOrder = "desc"
)

// DateFormat names a date bucketing applied to date and datetime columns.
type DateFormat string

// Date formats understood by every dialect.
const (
	FormatMinute        DateFormat = "Minute"
	FormatHour          DateFormat = "Hour"
	FormatDay           DateFormat = "Day"
	FormatDayShort      DateFormat = "Day Short"
	FormatWeek          DateFormat = "Week"
	FormatMonth         DateFormat = "Month"
	FormatMon           DateFormat = "Mon"
	FormatYear          DateFormat = "Year"
	FormatMinuteOfHour  DateFormat = "Minute of Hour"
	FormatHourOfDay     DateFormat = "Hour of Day"
	FormatDayOfWeek     DateFormat = "Day of Week"
	FormatDayOfMonth    DateFormat = "Day of Month"
	FormatDayOfYear     DateFormat = "Day of Year"
	FormatMonthOfYear   DateFormat = "Month of Year"
	FormatQuarterOfYear DateFormat = "Quarter of Year"
	FormatQuarter       DateFormat = "Quarter"
)

// FormatOption carries display options for a column.
type FormatOption struct {
	DateFormat DateFormat `json:"date_format,omitempty" yaml:"date_format,omitempty"`
}

// Column is a selected column or expression.
type Column struct {
	Table        string        `json:"table,omitempty" yaml:"table,omitempty"`
	Column       string        `json:"column,omitempty" yaml:"column,omitempty"`
	Label        string        `json:"label,omitempty" yaml:"label,omitempty"`
	Type         ColumnType    `json:"type,omitempty" yaml:"type,omitempty"`
	Aggregation  Aggregation   `json:"aggregation,omitempty" yaml:"aggregation,omitempty"`
	OrderBy      SortOrder     `json:"order_by,omitempty" yaml:"order_by,omitempty" validate:"omitempty,oneof=asc desc"`
	FormatOption *FormatOption `json:"format_option,omitempty" yaml:"format_option,omitempty"`
	Expression   *Expression   `json:"expression,omitempty" yaml:"expression,omitempty"`
}

// IsExpression reports whether the column is computed from an expression.
func (c Column) IsExpression() bool {
	return c.Expression != nil
}

// ResultLabel returns the label the column appears under in results.
func (c Column) ResultLabel() string {
	if c.Label != "" {
		return c.Label
	}
	return c.Column
}

// TransformType names a post-execution reshaping of results.
type TransformType string

const (
	// Pivot turns distinct values of one column into columns.
	Pivot TransformType = "Pivot"
	// Unpivot melts columns into (name, value) rows.
	Unpivot TransformType = "Unpivot"
	// Transpose swaps rows and columns around an index column.
	Transpose TransformType = "Transpose"
)

// Transform is a post-execution reshaping step.
type Transform struct {
	Type    TransformType     `json:"type" yaml:"type" validate:"oneof=Pivot Unpivot Transpose"`
	Options map[string]string `json:"options,omitempty" yaml:"options,omitempty"`
}

// HasTables reports whether the query selects anything to compile.
func (q *LogicalQuery) HasTables() bool {
	return q != nil && len(q.Tables) > 0
}

// HasCumulativeColumns reports whether any column needs accumulation after execution.
func (q *LogicalQuery) HasCumulativeColumns() bool {
	for _, c := range q.Columns {
		if c.Aggregation.IsCumulative() {
			return true
		}
	}
	return false
}

// DefaultFilters returns the empty AND group a query starts with.
func DefaultFilters() *Expression {
	return &Expression{Type: LogicalExpression, Operator: OpAnd}
}
