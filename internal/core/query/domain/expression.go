package domain

// ExpressionType discriminates expression AST nodes.
type ExpressionType string

const (
	// LogicalExpression combines conditions with && or ||.
	LogicalExpression ExpressionType = "LogicalExpression"
	// BinaryExpression applies an arithmetic, comparison or logical operator.
	BinaryExpression ExpressionType = "BinaryExpression"
	// CallExpression calls a function or aggregation.
	CallExpression ExpressionType = "CallExpression"
	// ColumnExpression references a table column.
	ColumnExpression ExpressionType = "Column"
	// StringExpression is a string literal.
	StringExpression ExpressionType = "String"
	// NumberExpression is a numeric literal.
	NumberExpression ExpressionType = "Number"
)

// Logical operators.
const (
	OpAnd = "&&"
	OpOr  = "||"
)

// Expression is a node of the filter/computed-column AST.
//
// Which fields are meaningful depends on Type:
//
//	LogicalExpression: Operator, Conditions
//	BinaryExpression:  Left, Operator, Right
//	CallExpression:    Function, Arguments
//	Column:            Table, Column
//	String, Number:    Value
type Expression struct {
	Type       ExpressionType `json:"type" yaml:"type"`
	Operator   string         `json:"operator,omitempty" yaml:"operator,omitempty"`
	Conditions []*Expression  `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	Left       *Expression    `json:"left,omitempty" yaml:"left,omitempty"`
	Right      *Expression    `json:"right,omitempty" yaml:"right,omitempty"`
	Function   string         `json:"function,omitempty" yaml:"function,omitempty"`
	Arguments  []*Expression  `json:"arguments,omitempty" yaml:"arguments,omitempty"`
	Table      string         `json:"table,omitempty" yaml:"table,omitempty"`
	Column     string         `json:"column,omitempty" yaml:"column,omitempty"`
	Value      any            `json:"value,omitempty" yaml:"value,omitempty"`
}

// Col builds a column reference.
func Col(table, column string) *Expression {
	return &Expression{Type: ColumnExpression, Table: table, Column: column}
}

// Str builds a string literal.
func Str(v string) *Expression {
	return &Expression{Type: StringExpression, Value: v}
}

// Num builds a numeric literal.
func Num(v any) *Expression {
	return &Expression{Type: NumberExpression, Value: v}
}

// Call builds a function call.
func Call(function string, args ...*Expression) *Expression {
	return &Expression{Type: CallExpression, Function: function, Arguments: args}
}

// Binary builds a binary expression.
func Binary(left *Expression, operator string, right *Expression) *Expression {
	return &Expression{Type: BinaryExpression, Left: left, Operator: operator, Right: right}
}

// And groups conditions with &&.
func And(conditions ...*Expression) *Expression {
	return &Expression{Type: LogicalExpression, Operator: OpAnd, Conditions: conditions}
}

// Or groups conditions with ||.
func Or(conditions ...*Expression) *Expression {
	return &Expression{Type: LogicalExpression, Operator: OpOr, Conditions: conditions}
}
