package compiler_test

import (
	"strings"
	"testing"
	"time"

	"github.com/satishbabariya/insights-go/internal/core/query/compiler"
	"github.com/satishbabariya/insights-go/internal/core/query/domain"
	"github.com/satishbabariya/insights-go/internal/core/query/joingraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time {
	// Wednesday
	return time.Date(2024, time.May, 15, 13, 30, 0, 0, time.UTC)
}

func newCompiler(opts ...compiler.Option) *compiler.SQLCompiler {
	return compiler.NewSQLCompiler(append([]compiler.Option{compiler.WithClock(fixedClock)}, opts...)...)
}

func ordersQuery() *domain.LogicalQuery {
	return &domain.LogicalQuery{
		Name:   "orders_by_status",
		Tables: []domain.Table{{Table: "orders"}},
		Columns: []domain.Column{
			{Table: "orders", Column: "status", Label: "Status", Aggregation: domain.GroupBy},
			{Table: "orders", Column: "amount", Label: "Total", Aggregation: domain.Sum, OrderBy: domain.Desc},
		},
		Limit: 10,
	}
}

func TestBuild_Empty(t *testing.T) {
	c := newCompiler()

	sql, err := c.Build(nil, domain.PostgreSQL)
	require.NoError(t, err)
	assert.Empty(t, sql)

	sql, err = c.Build(&domain.LogicalQuery{Tables: []domain.Table{{Table: "orders"}}}, domain.PostgreSQL)
	require.NoError(t, err)
	assert.Empty(t, sql)

	sql, err = c.Build(&domain.LogicalQuery{Columns: []domain.Column{{Column: "id"}}}, domain.PostgreSQL)
	require.NoError(t, err)
	assert.Empty(t, sql)
}

func TestBuild_Native(t *testing.T) {
	c := newCompiler()
	sql, err := c.Build(&domain.LogicalQuery{IsNative: true, SQL: "  SELECT * FROM t;; \n"}, domain.MySQL)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t", sql)
}

func TestBuild_GroupOrderLimit(t *testing.T) {
	tests := []struct {
		dialect domain.SQLDialect
		want    string
	}{
		{
			domain.PostgreSQL,
			`SELECT "orders"."status" AS "Status", SUM("orders"."amount") AS "Total" FROM "orders" GROUP BY "orders"."status" ORDER BY "Total" DESC LIMIT 10`,
		},
		{
			domain.MySQL,
			"SELECT `orders`.`status` AS `Status`, SUM(`orders`.`amount`) AS `Total` FROM `orders` GROUP BY `orders`.`status` ORDER BY `Total` DESC LIMIT 10",
		},
		{
			domain.SQLite,
			`SELECT "orders"."status" AS "Status", SUM("orders"."amount") AS "Total" FROM "orders" GROUP BY "orders"."status" ORDER BY "Total" DESC LIMIT 10`,
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.dialect), func(t *testing.T) {
			sql, err := newCompiler().Build(ordersQuery(), tt.dialect)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sql)
		})
	}
}

func TestBuild_DefaultLimitAndCount(t *testing.T) {
	q := &domain.LogicalQuery{
		Tables:  []domain.Table{{Table: "orders"}},
		Columns: []domain.Column{{Column: "count"}},
	}
	sql, err := newCompiler().Build(q, domain.PostgreSQL)
	require.NoError(t, err)
	assert.Equal(t, `SELECT COUNT(*) AS "count" FROM "orders" LIMIT 500`, sql)
}

func TestBuild_Joins(t *testing.T) {
	q := &domain.LogicalQuery{
		Tables: []domain.Table{
			{Table: "orders", Join: &domain.Join{
				Type:      domain.InnerJoin,
				With:      "customers",
				Condition: domain.JoinCondition{Left: "customer_id", Right: "id"},
			}},
		},
		Columns: []domain.Column{
			{Table: "customers", Column: "name", Label: "Customer"},
			{Table: "orders", Column: "amount", Label: "Amount"},
		},
		Limit: 5,
	}

	sql, err := newCompiler().Build(q, domain.PostgreSQL)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT "customers"."name" AS "Customer", "orders"."amount" AS "Amount" FROM "orders" INNER JOIN "customers" ON "orders"."customer_id" = "customers"."id" LIMIT 5`,
		sql)

	q.Tables[0].Join.Type = domain.FullJoin
	sql, err = newCompiler().Build(q, domain.PostgreSQL)
	require.NoError(t, err)
	assert.Contains(t, sql, `FULL OUTER JOIN "customers"`)

	_, err = newCompiler().Build(q, domain.MySQL)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCompilation)
}

func TestBuild_JoinPathFromLinks(t *testing.T) {
	links := joingraph.New([]domain.TableLink{
		{PrimaryTable: "customers", PrimaryKey: "id", ForeignTable: "orders", ForeignKey: "customer_id"},
		{PrimaryTable: "orders", PrimaryKey: "id", ForeignTable: "order_items", ForeignKey: "order_id"},
		{PrimaryTable: "products", PrimaryKey: "id", ForeignTable: "order_items", ForeignKey: "product_id"},
	})
	q := &domain.LogicalQuery{
		Tables: []domain.Table{
			{Table: "customers", Join: &domain.Join{Type: domain.InnerJoin, With: "products"}},
		},
		Columns: []domain.Column{
			{Table: "customers", Column: "name", Label: "Customer"},
			{Table: "products", Column: "title", Label: "Product"},
		},
		Limit: 5,
	}

	sql, err := newCompiler(compiler.WithJoinGraph(links)).Build(q, domain.PostgreSQL)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT "customers"."name" AS "Customer", "products"."title" AS "Product" FROM "customers"`+
			` INNER JOIN "orders" ON "customers"."id" = "orders"."customer_id"`+
			` INNER JOIN "order_items" ON "orders"."id" = "order_items"."order_id"`+
			` INNER JOIN "products" ON "order_items"."product_id" = "products"."id" LIMIT 5`,
		sql)

	// an explicit condition wins over the links
	q.Tables[0].Join.Condition = domain.JoinCondition{Left: "favourite_product_id", Right: "id"}
	sql, err = newCompiler(compiler.WithJoinGraph(links)).Build(q, domain.PostgreSQL)
	require.NoError(t, err)
	assert.Contains(t, sql, `FROM "customers" INNER JOIN "products" ON "customers"."favourite_product_id" = "products"."id"`)
}

func TestBuild_JoinPathSkipsChainedTables(t *testing.T) {
	links := joingraph.New([]domain.TableLink{
		{PrimaryTable: "customers", PrimaryKey: "id", ForeignTable: "orders", ForeignKey: "customer_id"},
		{PrimaryTable: "orders", PrimaryKey: "id", ForeignTable: "order_items", ForeignKey: "order_id"},
	})
	q := &domain.LogicalQuery{
		Tables: []domain.Table{
			{Table: "customers", Join: &domain.Join{Type: domain.LeftJoin, With: "orders"}},
			{Table: "customers", Join: &domain.Join{Type: domain.LeftJoin, With: "order_items"}},
		},
		Columns: []domain.Column{
			{Table: "order_items", Column: "qty", Label: "Qty", Aggregation: domain.Sum},
		},
	}

	sql, err := newCompiler(compiler.WithJoinGraph(links)).Build(q, domain.PostgreSQL)
	require.NoError(t, err)
	assert.Contains(t, sql,
		`FROM "customers" LEFT JOIN "orders" ON "customers"."id" = "orders"."customer_id"`+
			` LEFT JOIN "order_items" ON "orders"."id" = "order_items"."order_id"`)
	assert.Equal(t, 1, strings.Count(sql, `JOIN "orders"`))
}

func TestBuild_JoinWithoutConditionOrPath(t *testing.T) {
	q := &domain.LogicalQuery{
		Name: "unlinked",
		Tables: []domain.Table{
			{Table: "orders", Join: &domain.Join{With: "regions"}},
		},
		Columns: []domain.Column{{Table: "orders", Column: "id"}},
	}
	links := joingraph.New([]domain.TableLink{
		{PrimaryTable: "customers", PrimaryKey: "id", ForeignTable: "orders", ForeignKey: "customer_id"},
	})

	for _, c := range []*compiler.SQLCompiler{newCompiler(), newCompiler(compiler.WithJoinGraph(links))} {
		_, err := c.Build(q, domain.PostgreSQL)
		require.ErrorIs(t, err, domain.ErrCompilation)
		assert.Contains(t, err.Error(), "join between orders and regions has no condition")
	}
}

func TestBuild_UndeclaredTable(t *testing.T) {
	q := &domain.LogicalQuery{
		Name:    "bad",
		Tables:  []domain.Table{{Table: "orders"}},
		Columns: []domain.Column{{Table: "invoices", Column: "id"}},
	}
	_, err := newCompiler().Build(q, domain.PostgreSQL)
	require.Error(t, err)

	var ce *domain.CompilationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "bad", ce.Query)
	assert.Contains(t, ce.Error(), "invoices")
}

func TestBuild_Validation(t *testing.T) {
	q := ordersQuery()
	q.Columns[1].Label = "Status"
	_, err := newCompiler().Build(q, domain.PostgreSQL)
	assert.ErrorIs(t, err, domain.ErrCompilation)

	q = ordersQuery()
	q.Limit = -1
	_, err = newCompiler().Build(q, domain.PostgreSQL)
	assert.ErrorIs(t, err, domain.ErrCompilation)

	q = ordersQuery()
	q.Columns[0].OrderBy = "sideways"
	_, err = newCompiler().Build(q, domain.PostgreSQL)
	assert.ErrorIs(t, err, domain.ErrCompilation)

	_, err = newCompiler().Build(ordersQuery(), "oracle")
	assert.ErrorIs(t, err, domain.ErrCompilation)
}

func TestBuild_Filters(t *testing.T) {
	q := ordersQuery()
	q.Filters = domain.And(
		domain.Binary(domain.Col("orders", "status"), "!=", domain.Str("cancelled")),
		domain.Or(
			domain.Binary(domain.Col("orders", "amount"), ">", domain.Num(100)),
			domain.Call("is_set", domain.Col("orders", "coupon")),
		),
		domain.DefaultFilters(),
	)

	sql, err := newCompiler().Build(q, domain.PostgreSQL)
	require.NoError(t, err)
	assert.Contains(t, sql,
		`WHERE ("orders"."status" <> 'cancelled' AND ("orders"."amount" > 100 OR "orders"."coupon" IS NOT NULL))`)
}

func TestBuild_EmptyFilters(t *testing.T) {
	q := ordersQuery()
	q.Filters = domain.DefaultFilters()
	sql, err := newCompiler().Build(q, domain.PostgreSQL)
	require.NoError(t, err)
	assert.NotContains(t, sql, "WHERE")
}

func TestBuild_Functions(t *testing.T) {
	col := domain.Col("orders", "status")
	tests := []struct {
		name string
		expr *domain.Expression
		want string
	}{
		{"in", domain.Call("in", col, domain.Str("open"), domain.Str("paid")), `"orders"."status" IN ('open', 'paid')`},
		{"not_in", domain.Call("not_in", col, domain.Str("void")), `"orders"."status" NOT IN ('void')`},
		{"contains", domain.Call("contains", col, domain.Str("pa")), `"orders"."status" LIKE '%pa%'`},
		{"starts_with", domain.Call("starts_with", col, domain.Str("o")), `"orders"."status" LIKE 'o%'`},
		{"ends_with", domain.Call("ends_with", col, domain.Str("d")), `"orders"."status" LIKE '%d'`},
		{"if_null", domain.Call("if_null", col, domain.Str("none")), `COALESCE("orders"."status", 'none')`},
		{"between", domain.Call("between", domain.Col("orders", "amount"), domain.Num(1), domain.Num(2.5)), `"orders"."amount" BETWEEN 1 AND 2.5`},
		{"case", domain.Call("case", domain.Binary(col, "=", domain.Str("paid")), domain.Num(1), domain.Num(0)), `CASE WHEN "orders"."status" = 'paid' THEN 1 ELSE 0 END`},
		{"count_if", domain.Call("count_if", domain.Binary(col, "=", domain.Str("paid"))), `SUM(CASE WHEN "orders"."status" = 'paid' THEN 1 ELSE 0 END)`},
		{"distinct_count", domain.Call("distinct_count", col), `COUNT(DISTINCT "orders"."status")`},
		{"aggregate", domain.Call("sum", domain.Col("orders", "amount")), `SUM("orders"."amount")`},
		{"arithmetic", domain.Binary(domain.Col("orders", "amount"), "*", domain.Num("1.2")), `("orders"."amount" * 1.2)`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := ordersQuery()
			q.Filters = tt.expr
			sql, err := newCompiler().Build(q, domain.PostgreSQL)
			require.NoError(t, err)
			assert.Contains(t, sql, "WHERE "+tt.want+" GROUP BY")
		})
	}
}

func TestBuild_FunctionErrors(t *testing.T) {
	col := domain.Col("orders", "status")
	tests := []struct {
		name string
		expr *domain.Expression
	}{
		{"unknown function", domain.Call("frobnicate", col)},
		{"in without values", domain.Call("in", col)},
		{"even case", domain.Call("case", col, domain.Num(1))},
		{"bad operator", domain.Binary(col, "~~", domain.Str("x"))},
		{"bad timespan", domain.Call("timespan", col, domain.Str("some days"))},
		{"bad number", domain.Binary(col, "=", domain.Num("abc"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := ordersQuery()
			q.Filters = tt.expr
			_, err := newCompiler().Build(q, domain.PostgreSQL)
			assert.ErrorIs(t, err, domain.ErrCompilation)
		})
	}
}

func TestBuild_Timespan(t *testing.T) {
	created := domain.Col("orders", "created")
	tests := []struct {
		span string
		want string
	}{
		{"last 7 days", `'2024-05-08' AND '2024-05-14'`},
		{"next 2 days", `'2024-05-16' AND '2024-05-17'`},
		{"current month", `'2024-05-01' AND '2024-05-31'`},
		{"last 1 month", `'2024-04-01' AND '2024-04-30'`},
		{"current week", `'2024-05-12' AND '2024-05-18'`},
		{"current quarter", `'2024-04-01' AND '2024-06-30'`},
		{"last 1 year", `'2023-01-01' AND '2023-12-31'`},
		{"current fiscal year", `'2024-04-01' AND '2025-03-31'`},
	}

	for _, tt := range tests {
		t.Run(tt.span, func(t *testing.T) {
			q := ordersQuery()
			q.Filters = domain.Call("timespan", created, domain.Str(tt.span))
			sql, err := newCompiler().Build(q, domain.PostgreSQL)
			require.NoError(t, err)
			assert.Contains(t, sql, `"orders"."created" BETWEEN `+tt.want)
		})
	}
}

func TestBuild_FiscalYearStart(t *testing.T) {
	q := ordersQuery()
	q.Filters = domain.Call("timespan", domain.Col("orders", "created"), domain.Str("current fiscal year"))
	sql, err := newCompiler(compiler.WithFiscalYearStart(time.July, 1)).Build(q, domain.PostgreSQL)
	require.NoError(t, err)
	assert.Contains(t, sql, `BETWEEN '2023-07-01' AND '2024-06-30'`)
}

func TestBuild_DateFormat(t *testing.T) {
	q := &domain.LogicalQuery{
		Tables: []domain.Table{{Table: "orders"}},
		Columns: []domain.Column{{
			Column:       "created",
			Label:        "Month",
			Type:         domain.TypeDate,
			Aggregation:  domain.GroupBy,
			FormatOption: &domain.FormatOption{DateFormat: domain.FormatMonth},
		}},
	}
	sql, err := newCompiler().Build(q, domain.MySQL)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT DATE_FORMAT(`orders`.`created`, '%Y-%m-01') AS `Month` FROM `orders` GROUP BY DATE_FORMAT(`orders`.`created`, '%Y-%m-01') LIMIT 500",
		sql)
}

func TestBuild_CustomColumns(t *testing.T) {
	resolver := func(table, column string) (string, bool) {
		if table == "orders" && column == "net" {
			return `"orders"."amount" - "orders"."discount"`, true
		}
		return "", false
	}
	q := &domain.LogicalQuery{
		Tables:  []domain.Table{{Table: "orders"}},
		Columns: []domain.Column{{Column: "net", Label: "Net", Aggregation: domain.Sum}},
	}
	sql, err := newCompiler(compiler.WithCustomColumns(resolver)).Build(q, domain.PostgreSQL)
	require.NoError(t, err)
	assert.Equal(t, `SELECT SUM(("orders"."amount" - "orders"."discount")) AS "Net" FROM "orders" LIMIT 500`, sql)
}

func TestBuild_Deterministic(t *testing.T) {
	c := newCompiler()
	first, err := c.Build(ordersQuery(), domain.DuckDB)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := c.Build(ordersQuery(), domain.DuckDB)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
