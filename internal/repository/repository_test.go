package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/insights-go/internal/core/query/domain"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestExecutionLogs(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	logs := s.Logs()

	base := time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)
	require.NoError(t, logs.Append(ctx, domain.ExecutionLogEntry{
		ID: "1", Statement: "SELECT 1", DataSource: "warehouse", Elapsed: 1500 * time.Microsecond,
		Timestamp: base, Success: true, RowCount: 1,
	}))
	require.NoError(t, logs.Append(ctx, domain.ExecutionLogEntry{
		ID: "2", Statement: "SELECT nope", DataSource: "warehouse", Elapsed: time.Millisecond,
		Timestamp: base.Add(time.Second), Error: "no such column: nope",
	}))
	require.NoError(t, logs.Append(ctx, domain.ExecutionLogEntry{
		ID: "3", Statement: "SELECT 2", DataSource: "crm", Timestamp: base.Add(2 * time.Second), Success: true,
	}))

	all, err := logs.List(ctx, LogFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "3", all[0].ID)

	failed, err := logs.List(ctx, LogFilter{DataSource: "warehouse", FailedOnly: true})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "no such column: nope", failed[0].Error)
	assert.False(t, failed[0].Success)

	limited, err := logs.List(ctx, LogFilter{DataSource: "warehouse", Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "2", limited[0].ID)

	first, err := logs.List(ctx, LogFilter{DataSource: "warehouse"})
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Microsecond, first[1].Elapsed)
	assert.True(t, first[1].Timestamp.Equal(base))

	n, err := logs.Count(ctx, "warehouse")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestExecutionLogsConcurrentAppend(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Logs().Append(ctx, domain.ExecutionLogEntry{
				ID: fmt.Sprintf("id-%d", i), Statement: "SELECT 1", DataSource: "warehouse", Timestamp: time.Now(),
			}))
		}()
	}
	wg.Wait()

	n, err := s.Logs().Count(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 50, n)
}

func TestStoredQueries(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	repo := s.Queries()

	q := &domain.StoredQuery{
		LogicalQuery: domain.LogicalQuery{
			Name:       "top_customers",
			DataSource: "warehouse",
			Tables:     []domain.Table{{Table: "customer"}},
			Columns:    []domain.Column{{Table: "customer", Column: "name"}},
			IsStored:   true,
		},
		CompiledSQL: `SELECT "customer"."name" FROM "customer" LIMIT 500`,
	}
	require.NoError(t, repo.Save(ctx, q))
	assert.Equal(t, domain.StatusPending, q.Status)

	at := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.MarkExecuted(ctx, "top_customers", 250*time.Millisecond, at))

	got, err := repo.Get(ctx, "top_customers")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, got.Status)
	assert.Equal(t, 250*time.Millisecond, got.ExecutionTime)
	assert.True(t, got.LastExecution.Equal(at))
	assert.Equal(t, "customer", got.Tables[0].Table)

	// saving the same definition keeps the status
	same := &domain.StoredQuery{LogicalQuery: got.LogicalQuery, CompiledSQL: got.CompiledSQL}
	require.NoError(t, repo.Save(ctx, same))
	assert.Equal(t, domain.StatusSuccess, same.Status)

	// a changed definition goes back to pending
	changed := &domain.StoredQuery{LogicalQuery: got.LogicalQuery, CompiledSQL: got.CompiledSQL, Status: domain.StatusSuccess}
	changed.Limit = 10
	require.NoError(t, repo.Save(ctx, changed))
	got, err = repo.Get(ctx, "top_customers")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.True(t, got.LastExecution.Equal(at))

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.MarkExecuted(ctx, "missing", 0, at), ErrNotFound)
}

func TestResolveStoredQuery(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	repo := s.Queries()

	require.NoError(t, repo.Save(ctx, &domain.StoredQuery{
		LogicalQuery: domain.LogicalQuery{Name: "native", DataSource: "warehouse", IsNative: true, SQL: "SELECT 1 AS one"},
	}))
	require.NoError(t, repo.Save(ctx, &domain.StoredQuery{
		LogicalQuery: domain.LogicalQuery{Name: "never_run", DataSource: "warehouse"},
	}))

	sql, ok, err := repo.ResolveStoredQuery(ctx, "warehouse", "native")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "SELECT 1 AS one", sql)

	_, ok, err = repo.ResolveStoredQuery(ctx, "crm", "native")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = repo.ResolveStoredQuery(ctx, "warehouse", "never_run")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = repo.ResolveStoredQuery(ctx, "warehouse", "orders")
	require.NoError(t, err)
	assert.False(t, ok)

	list, err := repo.List(ctx, "warehouse")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, repo.Delete(ctx, "native"))
	list, err = repo.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCatalog(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	cat := s.Catalog()

	require.NoError(t, cat.SaveTables(ctx, "warehouse", []domain.CatalogTable{
		{Name: "orders", Label: "Orders", Columns: []domain.TableColumn{{Name: "id", Type: domain.TypeInteger}, {Name: "total", Type: domain.TypeFloat}}},
		{Name: "audit", Label: "Audit"},
	}))
	require.NoError(t, cat.AddCustomColumn(ctx, "warehouse", "orders", domain.TableColumn{
		Name: "total_with_tax", Type: domain.TypeFloat, CustomSQL: `"orders"."total" * 1.18`,
	}))
	require.NoError(t, cat.SetHidden(ctx, "warehouse", "audit", true))

	// a re-sync keeps custom columns and the hidden flag
	require.NoError(t, cat.SaveTables(ctx, "warehouse", []domain.CatalogTable{
		{Name: "orders", Label: "Orders", Columns: []domain.TableColumn{{Name: "id", Type: domain.TypeInteger}}},
		{Name: "audit", Label: "Audit"},
	}))

	visible, err := cat.Tables(ctx, "warehouse", false)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "orders", visible[0].Name)
	require.Len(t, visible[0].Columns, 2)
	assert.True(t, visible[0].Columns[1].IsCustom)

	all, err := cat.Tables(ctx, "warehouse", true)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	custom, err := cat.CustomColumns(ctx, "warehouse")
	require.NoError(t, err)
	assert.Equal(t, `"orders"."total" * 1.18`, custom["orders"]["total_with_tax"])

	_, err = cat.Table(ctx, "warehouse", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, cat.AddCustomColumn(ctx, "crm", "orders", domain.TableColumn{Name: "x"}), ErrNotFound)
}

func TestCatalogLinks(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	cat := s.Catalog()

	orders := domain.TableLink{PrimaryTable: "customers", PrimaryKey: "id", ForeignTable: "orders", ForeignKey: "customer_id"}
	items := domain.TableLink{PrimaryTable: "orders", PrimaryKey: "id", ForeignTable: "order_items", ForeignKey: "order_id"}

	require.NoError(t, cat.SaveLinks(ctx, "warehouse", []domain.TableLink{orders, items}))
	// saved again, and once from the other side
	require.NoError(t, cat.SaveLinks(ctx, "warehouse", []domain.TableLink{orders, items.Reverse()}))
	require.NoError(t, cat.SaveLinks(ctx, "crm", []domain.TableLink{orders}))

	links, err := cat.Links(ctx, "warehouse")
	require.NoError(t, err)
	assert.Equal(t, []domain.TableLink{orders, items}, links)

	links, err = cat.Links(ctx, "crm")
	require.NoError(t, err)
	assert.Len(t, links, 1)

	links, err = cat.Links(ctx, "empty")
	require.NoError(t, err)
	assert.Empty(t, links)

	err = cat.SaveLinks(ctx, "warehouse", []domain.TableLink{{PrimaryTable: "orders", ForeignTable: "customers"}})
	assert.ErrorContains(t, err, "invalid link")
}

func TestLoadQueries(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "queries/sales.yaml", []byte(`
queries:
  - name: sales_by_region
    data_source: warehouse
    tables:
      - table: sales
    columns:
      - table: sales
        column: region
        aggregation: group by
      - table: sales
        column: amount
        aggregation: sum
        label: total
    filters:
      type: LogicalExpression
      operator: "&&"
      conditions:
        - type: BinaryExpression
          operator: ">"
          left: {type: Column, table: sales, column: amount}
          right: {type: Number, value: 10}
  - name: raw_orders
    data_source: warehouse
    is_native: true
    sql: SELECT * FROM orders
`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "queries/single.yml", []byte(`
name: customers
data_source: crm
tables: [{table: customer}]
columns: [{table: customer, column: name}]
`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "queries/readme.txt", []byte("ignored"), 0o644))

	queries, err := LoadQueries(fs, "queries")
	require.NoError(t, err)
	require.Len(t, queries, 3)

	assert.Equal(t, "sales_by_region", queries[0].Name)
	assert.Equal(t, domain.Sum, queries[0].Columns[1].Aggregation)
	require.NotNil(t, queries[0].Filters)
	assert.Equal(t, domain.BinaryExpression, queries[0].Filters.Conditions[0].Type)

	assert.True(t, queries[1].IsNative)
	assert.Nil(t, queries[1].Filters)

	assert.Equal(t, "customers", queries[2].Name)
	assert.Equal(t, domain.DefaultFilters(), queries[2].Filters)
}

func TestLoadQueriesErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "a.yaml", []byte("name: a\nunknown_field: 1\n"), 0o644))
	_, err := LoadQueries(fs, "a.yaml")
	assert.ErrorContains(t, err, "failed to parse")

	require.NoError(t, afero.WriteFile(fs, "dir/a.yaml", []byte("name: a\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "dir/b.yaml", []byte("name: a\n"), 0o644))
	_, err = LoadQueries(fs, "dir")
	assert.ErrorContains(t, err, "already defined")

	_, err = LoadQueries(fs, "missing.yaml")
	assert.Error(t, err)
}
