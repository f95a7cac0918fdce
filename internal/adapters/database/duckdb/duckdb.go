// Package duckdb is the DuckDB data source, backed by duckdb-go. An empty
// path opens an in-memory database shared by every pooled connection.
package duckdb

import (
	"context"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/satishbabariya/insights-go/internal/adapters/database"
	"github.com/satishbabariya/insights-go/internal/core/database/pool"
	"github.com/satishbabariya/insights-go/internal/core/query/domain"
)

// Driver is the database/sql driver name registered by duckdb-go.
const Driver = "duckdb"

// Backend is a DuckDB data source.
type Backend struct {
	*database.Base
}

// New opens the configured database file, or an in-memory database.
func New(cfg database.Config, deps database.Deps) (*Backend, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = cfg.Path
	}
	p, err := pool.New(cfg.Name, Driver, dsn, cfg.PoolConfig())
	if err != nil {
		return nil, err
	}
	return NewWithPool(cfg, p, deps)
}

// NewWithPool creates the backend over an existing pool.
func NewWithPool(cfg database.Config, p *pool.Pool, deps database.Deps) (*Backend, error) {
	base, err := database.NewBase(cfg, p, deps, versionSQL)
	if err != nil {
		return nil, err
	}
	return &Backend{Base: base}, nil
}

func (b *Backend) TableExists(ctx context.Context, table string) (bool, error) {
	n, err := b.Count(ctx, tableExistsSQL, table)
	return n > 0, err
}

func (b *Backend) ListTables(ctx context.Context) ([]string, error) {
	return b.Strings(ctx, listTablesSQL)
}

func (b *Backend) ListColumns(ctx context.Context, table string) ([]domain.TableColumn, error) {
	return b.TableColumns(ctx, listColumnsSQL, table)
}

// ImportTable loads a CSV or XLSX file into a table.
func (b *Backend) ImportTable(ctx context.Context, spec domain.ImportSpec) error {
	if _, err := b.Import(ctx, spec, b.TableExists); err != nil {
		return err
	}
	if !b.HasCatalog() {
		return nil
	}
	return b.SyncTables(ctx, []string{spec.Table})
}

func (b *Backend) SyncTables(ctx context.Context, tables []string) error {
	return b.Sync(ctx, b, tables)
}

func (b *Backend) GetTableColumns(ctx context.Context, table string) ([]domain.TableColumn, error) {
	return b.ListColumns(ctx, table)
}

func (b *Backend) GetColumnOptions(ctx context.Context, table, column, search string, limit int) ([]any, error) {
	return b.DistinctValues(ctx, table, column, search, limit)
}

func (b *Backend) GetTablePreview(ctx context.Context, table string, limit int) (*domain.Result, error) {
	return b.Preview(ctx, table, limit)
}

var (
	_ database.DataSource   = (*Backend)(nil)
	_ database.Introspector = (*Backend)(nil)
)
