// Package service implements the query and data source services used by the
// CLI.
package service

import (
	"context"
	"time"

	"github.com/satishbabariya/insights-go/internal/adapters/database"
	"github.com/satishbabariya/insights-go/internal/core/query/domain"
)

// DataSources resolves data sources by name.
type DataSources interface {
	DataSource(ctx context.Context, name string) (database.DataSource, error)
}

// QueryRepository persists stored queries.
type QueryRepository interface {
	Save(ctx context.Context, q *domain.StoredQuery) error
	Get(ctx context.Context, name string) (*domain.StoredQuery, error)
	List(ctx context.Context, dataSource string) ([]domain.StoredQuery, error)
	Delete(ctx context.Context, name string) error
	MarkExecuted(ctx context.Context, name string, elapsed time.Duration, at time.Time) error
}

// TableCatalog reads the synced table catalog.
type TableCatalog interface {
	Tables(ctx context.Context, dataSource string, includeHidden bool) ([]domain.CatalogTable, error)
	Table(ctx context.Context, dataSource, name string) (*domain.CatalogTable, error)
	SaveLinks(ctx context.Context, dataSource string, links []domain.TableLink) error
	Links(ctx context.Context, dataSource string) ([]domain.TableLink, error)
}
