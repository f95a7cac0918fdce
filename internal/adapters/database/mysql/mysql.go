// Package mysql is the MySQL and MariaDB data source.
package mysql

import (
	"context"

	"github.com/go-sql-driver/mysql"

	"github.com/satishbabariya/insights-go/internal/adapters/database"
	"github.com/satishbabariya/insights-go/internal/core/database/pool"
	"github.com/satishbabariya/insights-go/internal/core/query/domain"
)

// Backend is a MySQL or MariaDB data source.
type Backend struct {
	*database.Base
}

// DSN renders the go-sql-driver connection string for cfg.
func DSN(cfg database.Config) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	mc := mysql.NewConfig()
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = cfg.HostPort(3306)
	mc.DBName = cfg.Database
	mc.ParseTime = true
	if cfg.SSLMode != "" && cfg.SSLMode != "disable" {
		mc.TLSConfig = "true"
	}
	return mc.FormatDSN()
}

// New opens a pool to the configured server.
func New(cfg database.Config, deps database.Deps) (*Backend, error) {
	p, err := pool.New(cfg.Name, "mysql", DSN(cfg), cfg.PoolConfig())
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

// TableExists reports whether table is in the connected database.
func (b *Backend) TableExists(ctx context.Context, table string) (bool, error) {
	n, err := b.Count(ctx, tableExistsSQL, table)
	return n > 0, err
}

// ListTables lists the tables of the connected database.
func (b *Backend) ListTables(ctx context.Context) ([]string, error) {
	return b.Strings(ctx, listTablesSQL)
}

// ListColumns lists the columns of table.
func (b *Backend) ListColumns(ctx context.Context, table string) ([]domain.TableColumn, error) {
	return b.TableColumns(ctx, listColumnsSQL, table)
}

// ListForeignKeys returns a link per foreign key column of the current database.
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
