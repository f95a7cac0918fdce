// Package sqlite is the SQLite data source. It uses mattn/go-sqlite3 unless
// the configuration names another registered driver.
package sqlite

import (
	"context"

	_ "github.com/mattn/go-sqlite3"

	"github.com/satishbabariya/insights-go/internal/adapters/database"
	"github.com/satishbabariya/insights-go/internal/core/database/pool"
	"github.com/satishbabariya/insights-go/internal/core/query/domain"
)

// DefaultDriver is the database/sql driver used when none is configured.
const DefaultDriver = "sqlite3"

// Backend is a SQLite data source.
type Backend struct {
	*database.Base
}

// DSN returns the database file of cfg. An empty path opens a private
// in-memory database.
func DSN(cfg database.Config) string {
	switch {
	case cfg.DSN != "":
		return cfg.DSN
	case cfg.Path != "":
		return cfg.Path
	default:
		return ":memory:"
	}
}

// New opens the configured database file.
func New(cfg database.Config, deps database.Deps) (*Backend, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DefaultDriver
	}
	pc := cfg.PoolConfig()
	if DSN(cfg) == ":memory:" {
		// every connection would otherwise see its own empty database
		pc.MaxOpenConns, pc.MaxIdleConns, pc.ConnMaxLifetime, pc.ConnMaxIdleTime = 1, 1, 0, 0
	}
	p, err := pool.New(cfg.Name, driver, DSN(cfg), pc)
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

// TableExists reports whether a table or view called table exists.
func (b *Backend) TableExists(ctx context.Context, table string) (bool, error) {
	n, err := b.Count(ctx, tableExistsSQL, table)
	return n > 0, err
}

// ListTables lists tables and views, skipping SQLite's own.
func (b *Backend) ListTables(ctx context.Context) ([]string, error) {
	return b.Strings(ctx, listTablesSQL)
}

// ListColumns lists the columns of table.
func (b *Backend) ListColumns(ctx context.Context, table string) ([]domain.TableColumn, error) {
	return b.TableColumns(ctx, listColumnsSQL, table)
}

// ImportTable loads a file into a table and records it in the catalog.
func (b *Backend) ImportTable(ctx context.Context, spec domain.ImportSpec) error {
	if _, err := b.Import(ctx, spec, b.TableExists); err != nil {
		return err
	}
	return b.syncImported(ctx, spec.Table)
}

func (b *Backend) syncImported(ctx context.Context, table string) error {
	if !b.HasCatalog() {
		return nil
	}
	return b.SyncTables(ctx, []string{table})
}

// ListForeignKeys returns a link per foreign key column.
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
