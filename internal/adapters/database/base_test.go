package database

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/satishbabariya/insights-go/internal/core/database/pool"
	"github.com/satishbabariya/insights-go/internal/core/query/domain"
)

type memorySink struct {
	mu      sync.Mutex
	entries []domain.ExecutionLogEntry
}

func (s *memorySink) Append(_ context.Context, e domain.ExecutionLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return nil
}

func (s *memorySink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

type mapResolver map[string]string

func (m mapResolver) ResolveStoredQuery(_ context.Context, _ string, name string) (string, bool, error) {
	sql, ok := m[name]
	return sql, ok, nil
}

type memoryCatalog struct {
	tables []domain.CatalogTable
}

func (c *memoryCatalog) SaveTables(_ context.Context, _ string, tables []domain.CatalogTable) error {
	c.tables = append(c.tables, tables...)
	return nil
}

type staticIntrospector struct{}

func (staticIntrospector) ListTables(context.Context) ([]string, error) {
	return []string{"sales_order", "customer"}, nil
}

func (staticIntrospector) ListColumns(_ context.Context, table string) ([]domain.TableColumn, error) {
	return []domain.TableColumn{{Name: table + "_id", Type: domain.TypeInteger}}, nil
}

func newSQLiteBase(t *testing.T, deps Deps) (*Base, *memorySink) {
	t.Helper()
	cfg := pool.DefaultConfig()
	cfg.MaxOpenConns = 1
	cfg.MaxIdleConns = 1
	cfg.ConnMaxLifetime = 0
	cfg.ConnMaxIdleTime = 0

	p, err := pool.New("warehouse", "sqlite3", ":memory:", cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	_, err = p.DB().Exec(`CREATE TABLE T (c INTEGER); INSERT INTO T (c) VALUES (1), (2);`)
	require.NoError(t, err)

	sink := &memorySink{}
	deps.LogSink = sink
	if deps.Fs == nil {
		deps.Fs = afero.NewMemMapFs()
	}
	b, err := NewBase(Config{Name: "warehouse", Type: TypeSQLite}, p, deps, "SELECT sqlite_version()")
	require.NoError(t, err)
	return b, sink
}

func roundTripQuery() *domain.LogicalQuery {
	return &domain.LogicalQuery{
		Name:    "round trip",
		Tables:  []domain.Table{{Table: "T"}},
		Columns: []domain.Column{{Table: "T", Column: "c"}},
	}
}

func TestRunQuery_RoundTrip(t *testing.T) {
	b, sink := newSQLiteBase(t, Deps{})

	res, err := b.RunQuery(context.Background(), roundTripQuery())
	require.NoError(t, err)

	require.Len(t, res.Columns, 1)
	assert.Equal(t, "c", res.Columns[0].Name)
	assert.Equal(t, domain.TypeInteger, res.Columns[0].Type)
	assert.Equal(t, [][]any{{int64(1)}, {int64(2)}}, res.Rows)
	assert.Equal(t, 1, sink.Len())
}

func TestExecuteQuery_Pluck(t *testing.T) {
	b, _ := newSQLiteBase(t, Deps{})
	ctx := context.Background()

	sql, err := b.BuildQuery(ctx, roundTripQuery())
	require.NoError(t, err)

	res, err := b.ExecuteQuery(ctx, sql, domain.ExecOptions{Pluck: true})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2)}, res.Records())
	assert.Nil(t, res.Columns)
}

func TestExecuteQuery_IncludeColumns(t *testing.T) {
	b, _ := newSQLiteBase(t, Deps{})

	res, err := b.ExecuteQuery(context.Background(), "SELECT c FROM T ORDER BY c", domain.ExecOptions{IncludeColumns: true})
	require.NoError(t, err)

	records := res.Records()
	require.Len(t, records, 3)
	cols, ok := records[0].([]domain.ResultColumn)
	require.True(t, ok)
	assert.Equal(t, "c", cols[0].Name)
	assert.Equal(t, []any{int64(1)}, records[1])
	assert.Equal(t, []any{int64(2)}, records[2])
}

func TestRunQuery_EmptyDoesNotTouchDatabase(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sink := &memorySink{}
	b, err := NewBase(Config{Name: "warehouse", Type: TypePostgres}, pool.NewFromDB("warehouse", "sqlmock", db, pool.DefaultConfig()),
		Deps{LogSink: sink}, "")
	require.NoError(t, err)

	for _, q := range []*domain.LogicalQuery{
		{Name: "no tables", Columns: []domain.Column{{Column: "c"}}},
		{Name: "no columns", Tables: []domain.Table{{Table: "T"}}},
	} {
		res, err := b.RunQuery(context.Background(), q)
		require.NoError(t, err)
		assert.Equal(t, 0, res.Len())
	}

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, 0, sink.Len())
}

func TestExecuteQuery_RowCeiling(t *testing.T) {
	b, _ := newSQLiteBase(t, Deps{Settings: domain.StaticSettings{Limit: 1}})

	res, err := b.ExecuteQuery(context.Background(), "SELECT c FROM T ORDER BY c LIMIT 100", domain.ExecOptions{})
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(1)}}, res.Rows)
}

func TestExecuteQuery_ReadOnly(t *testing.T) {
	b, sink := newSQLiteBase(t, Deps{})

	_, err := b.ExecuteQuery(context.Background(), "  delete from T", domain.ExecOptions{IsNative: true})
	assert.ErrorIs(t, err, domain.ErrReadOnly)
	assert.Equal(t, 0, sink.Len())

	res, err := b.ExecuteQuery(context.Background(), "SELECT COUNT(*) FROM T", domain.ExecOptions{Pluck: true})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(2)}, res.Values)
}

func TestExecuteQuery_DriverErrorIsLogged(t *testing.T) {
	b, sink := newSQLiteBase(t, Deps{})

	_, err := b.ExecuteQuery(context.Background(), "SELECT nope FROM T", domain.ExecOptions{})
	assert.ErrorIs(t, err, domain.ErrQueryExecution)
	assert.Contains(t, err.Error(), "nope")
	require.Equal(t, 1, sink.Len())
	assert.False(t, sink.entries[0].Success)
}

func TestExecuteQuery_StoredQueryReferences(t *testing.T) {
	resolver := mapResolver{"big_values": "SELECT c FROM T WHERE c > 1"}

	b, _ := newSQLiteBase(t, Deps{Settings: domain.StaticSettings{Subquery: true}, Resolver: resolver})
	res, err := b.ExecuteQuery(context.Background(), "SELECT c FROM big_values", domain.ExecOptions{ReplaceQueryTables: true})
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(2)}}, res.Rows)
	assert.NotEmpty(t, b.ServerVersion(context.Background()))

	b, _ = newSQLiteBase(t, Deps{Settings: domain.StaticSettings{Subquery: false}, Resolver: resolver})
	_, err = b.ExecuteQuery(context.Background(), "SELECT c FROM big_values", domain.ExecOptions{ReplaceQueryTables: true})
	assert.ErrorIs(t, err, domain.ErrQueryExecution)
}

func TestTestConnection(t *testing.T) {
	b, sink := newSQLiteBase(t, Deps{})
	require.NoError(t, b.TestConnection(context.Background()))
	assert.Equal(t, 1, sink.Len())
}

func TestDefaultsAreNotSupported(t *testing.T) {
	b, _ := newSQLiteBase(t, Deps{})
	ctx := context.Background()

	_, err := b.TableExists(ctx, "T")
	assert.ErrorIs(t, err, domain.ErrNotSupported)
	assert.ErrorIs(t, b.ImportTable(ctx, domain.ImportSpec{}), domain.ErrNotSupported)
	assert.ErrorIs(t, b.SyncTables(ctx, nil), domain.ErrNotSupported)
	_, err = b.GetTableColumns(ctx, "T")
	assert.ErrorIs(t, err, domain.ErrNotSupported)
	_, err = b.GetColumnOptions(ctx, "T", "c", "", 0)
	assert.ErrorIs(t, err, domain.ErrNotSupported)
	_, err = b.GetTablePreview(ctx, "T", 0)
	assert.ErrorIs(t, err, domain.ErrNotSupported)
	assert.Equal(t, "NotSupported", domain.KindOf(err))
}

func TestDistinctValues(t *testing.T) {
	b, _ := newSQLiteBase(t, Deps{})
	ctx := context.Background()

	_, err := b.Pool().DB().Exec(`CREATE TABLE customer (city TEXT); INSERT INTO customer VALUES ('Pune'), ('Mumbai'), ('Pune'), ('Nagpur');`)
	require.NoError(t, err)

	values, err := b.DistinctValues(ctx, "customer", "city", "", 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []any{"Pune", "Mumbai", "Nagpur"}, values)

	values, err = b.DistinctValues(ctx, "customer", "city", "pur", 10)
	require.NoError(t, err)
	assert.Equal(t, []any{"Nagpur"}, values)

	values, err = b.DistinctValues(ctx, "customer", "city", "", 1)
	require.NoError(t, err)
	assert.Len(t, values, 1)
}

func TestPreview(t *testing.T) {
	b, _ := newSQLiteBase(t, Deps{})
	res, err := b.Preview(context.Background(), "T", 1)
	require.NoError(t, err)
	assert.Equal(t, "c", res.Columns[0].Name)
	assert.Len(t, res.Rows, 1)
}

func TestSync(t *testing.T) {
	catalog := &memoryCatalog{}
	b, _ := newSQLiteBase(t, Deps{Catalog: catalog})

	require.NoError(t, b.Sync(context.Background(), staticIntrospector{}, nil))
	require.Len(t, catalog.tables, 2)
	assert.Equal(t, "Sales Order", catalog.tables[0].Label)
	assert.Equal(t, "customer_id", catalog.tables[1].Columns[0].Name)
	assert.Equal(t, "warehouse", catalog.tables[1].DataSource)

	b, _ = newSQLiteBase(t, Deps{})
	assert.Error(t, b.Sync(context.Background(), staticIntrospector{}, nil))
}

func TestImportCSV(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/items.csv", []byte("name,qty,price\nwidget,3,1.5\ngadget,,2\n"), 0o644))

	b, _ := newSQLiteBase(t, Deps{Fs: fs})
	ctx := context.Background()

	spec := domain.ImportSpec{Table: "items", Source: "/data/items.csv"}
	exists := func(context.Context, string) (bool, error) { return false, nil }
	data, err := b.Import(ctx, spec, exists)
	require.NoError(t, err)
	assert.Equal(t, []domain.ColumnType{domain.TypeString, domain.TypeInteger, domain.TypeFloat},
		[]domain.ColumnType{data.Columns[0].Type, data.Columns[1].Type, data.Columns[2].Type})

	res, err := b.ExecuteQuery(ctx, `SELECT name, qty, price FROM items ORDER BY name`, domain.ExecOptions{})
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"gadget", nil, 2.0}, {"widget", int64(3), 1.5}}, res.Rows)

	existsTrue := func(context.Context, string) (bool, error) { return true, nil }
	_, err = b.Import(ctx, spec, existsTrue)
	assert.ErrorContains(t, err, "already exists")

	spec.IfExists = domain.IfExistsAppend
	_, err = b.Import(ctx, spec, existsTrue)
	require.NoError(t, err)
	res, err = b.ExecuteQuery(ctx, `SELECT COUNT(*) FROM items`, domain.ExecOptions{Pluck: true})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(4)}, res.Values)

	spec.IfExists = domain.IfExistsReplace
	_, err = b.Import(ctx, spec, existsTrue)
	require.NoError(t, err)
	res, err = b.ExecuteQuery(ctx, `SELECT COUNT(*) FROM items`, domain.ExecOptions{Pluck: true})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(2)}, res.Values)
}

func TestReadImportFileXLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"region", "total"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"north", 10}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{"south", 12}))
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "sales.xlsx", buf.Bytes(), 0o644))

	data, err := ReadImportFile(fs, domain.ImportSpec{
		Table:   "sales",
		Source:  "sales.xlsx",
		Columns: []domain.ImportColumn{{Name: "area"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "area", data.Columns[0].Name)
	assert.Equal(t, domain.TypeInteger, data.Columns[1].Type)
	assert.Equal(t, [][]any{{"north", int64(10)}, {"south", int64(12)}}, data.Rows)
}

func TestReadImportFileErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := ReadImportFile(fs, domain.ImportSpec{Source: "x.csv"})
	assert.ErrorContains(t, err, "invalid import")

	require.NoError(t, afero.WriteFile(fs, "x.json", []byte("{}"), 0o644))
	_, err = ReadImportFile(fs, domain.ImportSpec{Table: "x", Source: "x.json"})
	assert.ErrorContains(t, err, "unsupported import format")
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Sales Order Item", TitleCase("sales_order_item"))
	assert.Equal(t, "Émile", TitleCase("émile"))
}
