// Package postgres is the PostgreSQL data source. It connects through lib/pq,
// or through pgx when the data source sets driver: pgx.
package postgres

import (
	"context"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"

	"github.com/satishbabariya/insights-go/internal/adapters/database"
	"github.com/satishbabariya/insights-go/internal/core/database/pool"
	"github.com/satishbabariya/insights-go/internal/core/query/domain"
)

// Backend is a PostgreSQL data source.
type Backend struct {
	*database.Base
}

// DriverName returns the database/sql driver for cfg.
func DriverName(cfg database.Config) string {
	if cfg.Driver == "pgx" {
		return "pgx"
	}
	return "postgres"
}

// New opens a pool to the configured server. No connection is made until the
// first query.
func New(cfg database.Config, deps database.Deps) (*Backend, error) {
	p, err := pool.New(cfg.Name, DriverName(cfg), cfg.PostgresDSN(), cfg.PoolConfig())
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

// TableExists reports whether table is in the current schema.
func (b *Backend) TableExists(ctx context.Context, table string) (bool, error) {
	n, err := b.Count(ctx, tableExistsSQL, table)
	return n > 0, err
}

// ListTables lists tables and views of the current schema.
func (b *Backend) ListTables(ctx context.Context) ([]string, error) {
	return b.Strings(ctx, listTablesSQL)
}

// ListColumns lists the columns of table in ordinal order.
func (b *Backend) ListColumns(ctx context.Context, table string) ([]domain.TableColumn, error) {
	return b.TableColumns(ctx, listColumnsSQL, table)
}

// ListForeignKeys returns a link per foreign key column of the current schema.
func (b *Backend) ListForeignKeys(ctx context.Context) ([]domain.TableLink, error) {
	return b.ForeignKeys(ctx, foreignKeysSQL)
}

// SyncTables records tables in the catalog.
func (b *Backend) SyncTables(ctx context.Context, tables []string) error {
	return b.Sync(ctx, b, tables)
}

// GetTableColumns returns the columns of table.
func (b *Backend) GetTableColumns(ctx context.Context, table string) ([]domain.TableColumn, error) {
	return b.ListColumns(ctx, table)
}

// GetColumnOptions returns distinct values of a column.
func (b *Backend) GetColumnOptions(ctx context.Context, table, column, search string, limit int) ([]any, error) {
	return b.DistinctValues(ctx, table, column, search, limit)
}

// GetTablePreview returns the first rows of table.
func (b *Backend) GetTablePreview(ctx context.Context, table string, limit int) (*domain.Result, error) {
	return b.Preview(ctx, table, limit)
}

var (
	_ database.DataSource   = (*Backend)(nil)
	_ database.Introspector = (*Backend)(nil)

	_ database.ForeignKeyLister = (*Backend)(nil)
)
