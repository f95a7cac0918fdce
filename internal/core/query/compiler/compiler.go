// Package compiler implements SQL compilation from logical queries.
package compiler

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/satishbabariya/insights-go/internal/core/query/dialect"
	"github.com/satishbabariya/insights-go/internal/core/query/domain"
	"github.com/satishbabariya/insights-go/internal/core/query/joingraph"
)

// CustomColumnResolver returns the SQL definition of a custom catalog column.
type CustomColumnResolver func(table, column string) (sql string, ok bool)

// Option configures an SQLCompiler.
type Option func(*SQLCompiler)

// WithClock sets the clock used by relative date functions.
func WithClock(now func() time.Time) Option {
	return func(c *SQLCompiler) { c.now = now }
}

// WithFiscalYearStart sets the first day of the fiscal year.
func WithFiscalYearStart(month time.Month, day int) Option {
	return func(c *SQLCompiler) {
		c.fiscalMonth = month
		c.fiscalDay = day
	}
}

// WithCustomColumns sets the resolver for custom columns.
func WithCustomColumns(r CustomColumnResolver) Option {
	return func(c *SQLCompiler) { c.customColumns = r }
}

// WithJoinGraph sets the table links used to complete joins declared without
// a condition.
func WithJoinGraph(g *joingraph.Graph) Option {
	return func(c *SQLCompiler) { c.joins = g }
}

// SQLCompiler implements the domain.QueryCompiler interface.
type SQLCompiler struct {
	now           func() time.Time
	fiscalMonth   time.Month
	fiscalDay     int
	customColumns CustomColumnResolver
	joins         *joingraph.Graph
	validate      *validator.Validate
}

// NewSQLCompiler creates a new SQL compiler.
func NewSQLCompiler(opts ...Option) *SQLCompiler {
	c := &SQLCompiler{
		now:         time.Now,
		fiscalMonth: time.April,
		fiscalDay:   1,
		validate:    validator.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Build compiles query for the given dialect.
//
// An empty string with a nil error means there is nothing to run: the query
// selects no tables or no columns, or it is a native query without SQL.
func (c *SQLCompiler) Build(query *domain.LogicalQuery, name domain.SQLDialect) (string, error) {
	if query == nil {
		return "", nil
	}

	if query.IsNative {
		return strings.TrimRight(strings.TrimSpace(query.SQL), "; \t\r\n"), nil
	}

	if len(query.Tables) == 0 || len(query.Columns) == 0 {
		return "", nil
	}

	d, err := dialect.For(name)
	if err != nil {
		return "", &domain.CompilationError{Query: query.Name, Reason: "unknown dialect", Cause: err}
	}

	if err := c.validateQuery(query); err != nil {
		return "", err
	}

	b := newBuild(c, d, query)
	sql, err := b.compile()
	if err != nil {
		var ce *domain.CompilationError
		if errors.As(err, &ce) && ce.Query == "" {
			ce.Query = query.Name
		}
		return "", err
	}
	return sql, nil
}

// validateQuery checks struct tags, the limit and column labels.
func (c *SQLCompiler) validateQuery(query *domain.LogicalQuery) error {
	if err := c.validate.Struct(query); err != nil {
		return &domain.CompilationError{Query: query.Name, Reason: "invalid query", Cause: err}
	}
	if query.Limit < 0 {
		return &domain.CompilationError{Query: query.Name, Reason: "limit must be greater than 0"}
	}

	seen := make(map[string]bool, len(query.Columns))
	for _, col := range query.Columns {
		if col.Label == "" {
			continue
		}
		if seen[col.Label] {
			return &domain.CompilationError{Query: query.Name, Reason: fmt.Sprintf("duplicate column %s", col.Label)}
		}
		seen[col.Label] = true
	}
	return nil
}

// build holds the state of compiling one query.
type build struct {
	c        *SQLCompiler
	d        dialect.Dialect
	q        *domain.LogicalQuery
	declared map[string]bool
	used     map[string]bool
}

func newBuild(c *SQLCompiler, d dialect.Dialect, q *domain.LogicalQuery) *build {
	b := &build{
		c:        c,
		d:        d,
		q:        q,
		declared: make(map[string]bool),
		used:     make(map[string]bool),
	}
	for _, t := range q.Tables {
		b.declared[t.Table] = true
		if t.Join != nil && t.Join.With != "" {
			b.declared[t.Join.With] = true
		}
	}
	return b
}

func (b *build) compile() (string, error) {
	var selectList, groupBy, orderBy []string

	for _, col := range b.q.Columns {
		expr, err := b.column(col)
		if err != nil {
			return "", err
		}

		item := expr
		label := col.Label
		if label == "" && col.Column == "count" && !col.IsExpression() {
			label = "count"
		}
		if label != "" {
			item = fmt.Sprintf("%s AS %s", expr, b.d.QuoteIdentifier(label))
		}
		selectList = append(selectList, item)

		if col.OrderBy != "" {
			target := expr
			if label != "" {
				target = b.d.QuoteIdentifier(label)
			}
			orderBy = append(orderBy, fmt.Sprintf("%s %s", target, strings.ToUpper(string(col.OrderBy))))
		}

		if col.Aggregation.Normalize() == domain.GroupBy {
			groupBy = append(groupBy, expr)
		}
	}

	var where string
	if b.q.Filters != nil {
		w, err := b.expr(b.q.Filters)
		if err != nil {
			return "", err
		}
		where = w
	}

	from, err := b.from()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(selectList, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(from)
	if where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}
	if len(groupBy) > 0 {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(groupBy, ", "))
	}
	if len(orderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(orderBy, ", "))
	}

	limit := b.q.Limit
	if limit == 0 {
		limit = domain.DefaultQueryLimit
	}
	sb.WriteString(fmt.Sprintf(" LIMIT %d", limit))

	return sb.String(), nil
}

// from renders the FROM clause: the main table, its joins in declaration
// order, and any other referenced table.
func (b *build) from() (string, error) {
	main := b.q.Tables[0].Table
	chained := map[string]bool{main: true}

	var sb strings.Builder
	sb.WriteString(b.d.QuoteIdentifier(main))

	for _, t := range b.q.Tables {
		if t.Join == nil {
			continue
		}
		j := t.Join
		if j.With == "" {
			return "", domain.Compilationf("join on %s has no target table", t.Table)
		}
		hops := []domain.TableLink{{
			PrimaryTable: t.Table, PrimaryKey: j.Condition.Left,
			ForeignTable: j.With, ForeignKey: j.Condition.Right,
		}}
		if j.Condition.Left == "" || j.Condition.Right == "" {
			hops = b.c.joins.ShortestPath(t.Table, j.With)
			if len(hops) == 0 {
				return "", domain.Compilationf("join between %s and %s has no condition", t.Table, j.With)
			}
		}

		keyword, err := b.joinKeyword(j.Type)
		if err != nil {
			return "", err
		}

		if !chained[t.Table] {
			sb.WriteString(", ")
			sb.WriteString(b.d.QuoteIdentifier(t.Table))
			chained[t.Table] = true
		}

		for _, h := range hops {
			// a path may pass through a table joined earlier
			if chained[h.ForeignTable] && h.ForeignTable != j.With {
				continue
			}
			fmt.Fprintf(&sb, " %s %s ON %s = %s",
				keyword,
				b.d.QuoteIdentifier(h.ForeignTable),
				b.ref(h.PrimaryTable, h.PrimaryKey),
				b.ref(h.ForeignTable, h.ForeignKey),
			)
			chained[h.ForeignTable] = true
		}
	}

	for _, t := range b.q.Tables {
		if chained[t.Table] || !b.used[t.Table] {
			continue
		}
		sb.WriteString(", ")
		sb.WriteString(b.d.QuoteIdentifier(t.Table))
		chained[t.Table] = true
	}

	return sb.String(), nil
}

func (b *build) joinKeyword(t domain.JoinType) (string, error) {
	switch t {
	case domain.InnerJoin:
		return "INNER JOIN", nil
	case domain.LeftJoin, "":
		return "LEFT JOIN", nil
	case domain.RightJoin:
		return "RIGHT JOIN", nil
	case domain.FullJoin:
		if !b.d.SupportsFullJoin() {
			return "", domain.Compilationf("full join is not supported by %s", b.d.Name())
		}
		return "FULL OUTER JOIN", nil
	default:
		return "", domain.Compilationf("unknown join type %s", t)
	}
}

// column compiles one selected column without its alias.
func (b *build) column(col domain.Column) (string, error) {
	if col.IsExpression() {
		expr, err := b.expr(col.Expression)
		if err != nil {
			return "", err
		}
		return b.formatDate(col, expr)
	}

	if col.Column == "" {
		return "", domain.Compilationf("column %s has no source column", col.Label)
	}

	if col.Column == "count" {
		return "COUNT(*)", nil
	}

	expr, err := b.columnRef(col.Table, col.Column)
	if err != nil {
		return "", err
	}
	expr, err = b.formatDate(col, expr)
	if err != nil {
		return "", err
	}
	return b.aggregate(col.Aggregation, expr)
}

// columnRef resolves a table column, substituting custom column definitions.
func (b *build) columnRef(table, column string) (string, error) {
	if table == "" {
		table = b.q.Tables[0].Table
	}
	if !b.declared[table] {
		return "", domain.Compilationf("column %s references undeclared table %s", column, table)
	}
	b.used[table] = true

	if b.c.customColumns != nil {
		if sql, ok := b.c.customColumns(table, column); ok && sql != "" {
			return "(" + sql + ")", nil
		}
	}
	return b.ref(table, column), nil
}

func (b *build) ref(table, column string) string {
	return b.d.QuoteIdentifier(table) + "." + b.d.QuoteIdentifier(column)
}

func (b *build) formatDate(col domain.Column, expr string) (string, error) {
	if col.FormatOption == nil || col.FormatOption.DateFormat == "" || !col.Type.IsDateLike() {
		return expr, nil
	}
	out, err := b.d.FormatDate(expr, col.FormatOption.DateFormat)
	if err != nil {
		return "", &domain.CompilationError{Reason: "invalid format option", Cause: err}
	}
	return out, nil
}

func (b *build) aggregate(agg domain.Aggregation, expr string) (string, error) {
	switch agg.Normalize() {
	case domain.NoAggregation, domain.GroupBy:
		return expr, nil
	case domain.Sum, domain.CumulativeSum:
		return "SUM(" + expr + ")", nil
	case domain.Min:
		return "MIN(" + expr + ")", nil
	case domain.Max:
		return "MAX(" + expr + ")", nil
	case domain.Avg:
		return "AVG(" + expr + ")", nil
	case domain.Count, domain.CumulativeCount:
		return "COUNT(*)", nil
	default:
		return "", domain.Compilationf("aggregation %s not implemented", agg)
	}
}

// Ensure SQLCompiler implements QueryCompiler interface.
var _ domain.QueryCompiler = (*SQLCompiler)(nil)
