package sqlite

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/insights-go/internal/adapters/database"
	"github.com/satishbabariya/insights-go/internal/core/query/domain"
)

type memoryCatalog struct {
	tables map[string]domain.CatalogTable
}

func (c *memoryCatalog) SaveTables(_ context.Context, _ string, tables []domain.CatalogTable) error {
	for _, t := range tables {
		c.tables[t.Name] = t
	}
	return nil
}

func newBackend(t *testing.T) (*Backend, *memoryCatalog, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	catalog := &memoryCatalog{tables: map[string]domain.CatalogTable{}}

	b, err := New(database.Config{Name: "local", Type: database.TypeSQLite}, database.Deps{Catalog: catalog, Fs: fs})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	_, err = b.Pool().DB().Exec(`
CREATE TABLE sales_order (id INTEGER, customer TEXT, amount REAL);
INSERT INTO sales_order VALUES (1, 'acme', 10.5), (2, 'globex', 20), (3, 'acme', 7);
CREATE VIEW big_orders AS SELECT * FROM sales_order WHERE amount > 8;`)
	require.NoError(t, err)
	return b, catalog, fs
}

func TestDSN(t *testing.T) {
	assert.Equal(t, ":memory:", DSN(database.Config{}))
	assert.Equal(t, "/tmp/a.db", DSN(database.Config{Path: "/tmp/a.db"}))
	assert.Equal(t, "file:a.db?mode=ro", DSN(database.Config{Path: "/tmp/a.db", DSN: "file:a.db?mode=ro"}))
}

func TestIntrospection(t *testing.T) {
	b, _, _ := newBackend(t)
	ctx := context.Background()

	ok, err := b.TableExists(ctx, "sales_order")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.TableExists(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	tables, err := b.ListTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"big_orders", "sales_order"}, tables)

	cols, err := b.GetTableColumns(ctx, "sales_order")
	require.NoError(t, err)
	require.Len(t, cols, 3)
	assert.Equal(t, domain.TableColumn{Name: "id", Label: "Id", Type: domain.TypeInteger}, cols[0])
	assert.Equal(t, domain.TypeString, cols[1].Type)
	assert.Equal(t, domain.TypeFloat, cols[2].Type)

	assert.NotEmpty(t, b.ServerVersion(ctx))
}

func TestSyncTables(t *testing.T) {
	b, catalog, _ := newBackend(t)

	require.NoError(t, b.SyncTables(context.Background(), nil))
	require.Contains(t, catalog.tables, "sales_order")
	require.Contains(t, catalog.tables, "big_orders")
	assert.Equal(t, "Sales Order", catalog.tables["sales_order"].Label)
	assert.Len(t, catalog.tables["sales_order"].Columns, 3)
}

type linkCatalog struct {
	memoryCatalog
	links []domain.TableLink
}

func (c *linkCatalog) SaveLinks(_ context.Context, _ string, links []domain.TableLink) error {
	c.links = append(c.links, links...)
	return nil
}

func TestSyncTablesRecordsForeignKeys(t *testing.T) {
	catalog := &linkCatalog{memoryCatalog: memoryCatalog{tables: map[string]domain.CatalogTable{}}}
	b, err := New(database.Config{Name: "shop", Type: database.TypeSQLite}, database.Deps{Catalog: catalog})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	_, err = b.Pool().DB().Exec(`
CREATE TABLE customers (id INTEGER PRIMARY KEY, name TEXT);
CREATE TABLE orders (id INTEGER PRIMARY KEY, customer_id INTEGER REFERENCES customers(id));
CREATE TABLE order_items (order_id INTEGER REFERENCES orders(id), sku TEXT);
CREATE TABLE notes (body TEXT);`)
	require.NoError(t, err)
	ctx := context.Background()

	fks, err := b.ListForeignKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.TableLink{
		{PrimaryTable: "orders", PrimaryKey: "id", ForeignTable: "order_items", ForeignKey: "order_id"},
		{PrimaryTable: "customers", PrimaryKey: "id", ForeignTable: "orders", ForeignKey: "customer_id"},
	}, fks)

	// only links touching the synced tables are recorded
	require.NoError(t, b.SyncTables(ctx, []string{"customers", "notes"}))
	assert.Equal(t, []domain.TableLink{
		{PrimaryTable: "customers", PrimaryKey: "id", ForeignTable: "orders", ForeignKey: "customer_id"},
	}, catalog.links)

	catalog.links = nil
	require.NoError(t, b.SyncTables(ctx, nil))
	assert.Len(t, catalog.links, 2)
	assert.Contains(t, catalog.tables, "notes")
}

func TestColumnOptionsAndPreview(t *testing.T) {
	b, _, _ := newBackend(t)
	ctx := context.Background()

	opts, err := b.GetColumnOptions(ctx, "sales_order", "customer", "", 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []any{"acme", "globex"}, opts)

	opts, err = b.GetColumnOptions(ctx, "sales_order", "customer", "glo", 10)
	require.NoError(t, err)
	assert.Equal(t, []any{"globex"}, opts)

	preview, err := b.GetTablePreview(ctx, "sales_order", 2)
	require.NoError(t, err)
	assert.Len(t, preview.Rows, 2)
	assert.Len(t, preview.Columns, 3)
}

func TestImportTable(t *testing.T) {
	b, catalog, fs := newBackend(t)
	ctx := context.Background()

	require.NoError(t, afero.WriteFile(fs, "/data/targets.csv", []byte("region,target\nnorth,100\nsouth,250\n"), 0o644))

	spec := domain.ImportSpec{Table: "targets", Source: "/data/targets.csv"}
	require.NoError(t, b.ImportTable(ctx, spec))

	res, err := b.ExecuteQuery(ctx, "SELECT region, target FROM targets ORDER BY region", domain.ExecOptions{})
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"north", int64(100)}, {"south", int64(250)}}, res.Rows)

	require.Contains(t, catalog.tables, "targets")
	assert.Equal(t, domain.TypeInteger, catalog.tables["targets"].Columns[1].Type)

	err = b.ImportTable(ctx, spec)
	assert.ErrorContains(t, err, "already exists")
}

func TestRunQuery(t *testing.T) {
	b, _, _ := newBackend(t)

	res, err := b.RunQuery(context.Background(), &domain.LogicalQuery{
		Name:   "by customer",
		Tables: []domain.Table{{Table: "sales_order"}},
		Columns: []domain.Column{
			{Table: "sales_order", Column: "customer", Label: "customer", Aggregation: domain.GroupBy, OrderBy: domain.Asc},
			{Table: "sales_order", Column: "amount", Label: "total", Aggregation: domain.Sum},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "acme", res.Rows[0][0])
	assert.InDelta(t, 17.5, res.Rows[0][1], 0.0001)
}
