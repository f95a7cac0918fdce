// Package database defines the data source contract and the execution
// pipeline shared by every backend.
package database

import (
	"context"

	"github.com/satishbabariya/insights-go/internal/core/query/domain"
)

// DataSource is the capability set of one configured database. Backends embed
// *Base, which supplies the execution pipeline and NotSupported defaults for
// the optional capabilities.
type DataSource interface {
	// Name returns the configured data source name.
	Name() string

	// Dialect returns the SQL dialect queries are compiled for.
	Dialect() domain.SQLDialect

	// TableExists reports whether table exists in the database.
	TableExists(ctx context.Context, table string) (bool, error)

	// ImportTable loads a CSV or XLSX file into a table.
	ImportTable(ctx context.Context, spec domain.ImportSpec) error

	// SyncTables refreshes the table catalog. An empty list syncs every table.
	SyncTables(ctx context.Context, tables []string) error

	// GetTableColumns returns the columns of table.
	GetTableColumns(ctx context.Context, table string) ([]domain.TableColumn, error)

	// GetColumnOptions returns up to limit distinct values of a column,
	// optionally restricted to values containing search. A limit <= 0 means 50.
	GetColumnOptions(ctx context.Context, table, column, search string, limit int) ([]any, error)

	// GetTablePreview returns a sample of table's rows with their columns.
	GetTablePreview(ctx context.Context, table string, limit int) (*domain.Result, error)

	// TestConnection runs SELECT 1.
	TestConnection(ctx context.Context) error

	// BuildQuery compiles a logical query. An empty string means there is
	// nothing to run.
	BuildQuery(ctx context.Context, query *domain.LogicalQuery) (string, error)

	// ExecuteQuery runs a SQL statement through the guard and the executor.
	ExecuteQuery(ctx context.Context, sql string, opts domain.ExecOptions) (*domain.Result, error)

	// RunQuery compiles and executes a logical query, returning its columns
	// and rows.
	RunQuery(ctx context.Context, query *domain.LogicalQuery) (*domain.Result, error)

	// Close releases the connection pool.
	Close() error
}

// Catalog records the tables a data source exposes.
type Catalog interface {
	SaveTables(ctx context.Context, dataSource string, tables []domain.CatalogTable) error
}

// LinkCatalog is implemented by catalogs that also record join links.
type LinkCatalog interface {
	SaveLinks(ctx context.Context, dataSource string, links []domain.TableLink) error
}

// ForeignKeyLister is implemented by introspectors that can read foreign
// key constraints.
type ForeignKeyLister interface {
	ListForeignKeys(ctx context.Context) ([]domain.TableLink, error)
}

// Introspector lists tables and columns of a live database.
type Introspector interface {
	ListTables(ctx context.Context) ([]string, error)
	ListColumns(ctx context.Context, table string) ([]domain.TableColumn, error)
}
