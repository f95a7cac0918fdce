package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/satishbabariya/insights-go/internal/core/query/domain"
	"github.com/satishbabariya/insights-go/internal/core/query/joingraph"
)

// DataSourceService exposes introspection and maintenance of data sources.
// Column options are cached per data source until the next sync or import.
type DataSourceService struct {
	sources DataSources
	catalog TableCatalog
	options *cache.Cache
}

// NewDataSourceService creates a data source service.
func NewDataSourceService(sources DataSources, catalog TableCatalog) *DataSourceService {
	return &DataSourceService{
		sources: sources,
		catalog: catalog,
		options: cache.New(5*time.Minute, 10*time.Minute),
	}
}

// Test checks that the named data source answers SELECT 1.
func (s *DataSourceService) Test(ctx context.Context, name string) error {
	ds, err := s.sources.DataSource(ctx, name)
	if err != nil {
		return err
	}
	return ds.TestConnection(ctx)
}

// Sync refreshes the catalog entries of tables (all tables when empty).
func (s *DataSourceService) Sync(ctx context.Context, name string, tables []string) error {
	ds, err := s.sources.DataSource(ctx, name)
	if err != nil {
		return err
	}
	if err := ds.SyncTables(ctx, tables); err != nil {
		return err
	}
	s.flush(name)
	return nil
}

// Tables returns the synced tables of the named data source.
func (s *DataSourceService) Tables(ctx context.Context, name string, includeHidden bool) ([]domain.CatalogTable, error) {
	return s.catalog.Tables(ctx, name, includeHidden)
}

// Columns returns the live columns of a table.
func (s *DataSourceService) Columns(ctx context.Context, name, table string) ([]domain.TableColumn, error) {
	ds, err := s.sources.DataSource(ctx, name)
	if err != nil {
		return nil, err
	}
	return ds.GetTableColumns(ctx, table)
}

// Options returns distinct values of a column matching search.
func (s *DataSourceService) Options(ctx context.Context, name, table, column, search string, limit int) ([]any, error) {
	key := fmt.Sprintf("%s\x00%s\x00%s\x00%s\x00%d", name, table, column, search, limit)
	if v, ok := s.options.Get(key); ok {
		return v.([]any), nil
	}

	ds, err := s.sources.DataSource(ctx, name)
	if err != nil {
		return nil, err
	}
	values, err := ds.GetColumnOptions(ctx, table, column, search, limit)
	if err != nil {
		return nil, err
	}
	s.options.SetDefault(key, values)
	return values, nil
}

// Preview returns the first rows of a table.
func (s *DataSourceService) Preview(ctx context.Context, name, table string, limit int) (*domain.Result, error) {
	ds, err := s.sources.DataSource(ctx, name)
	if err != nil {
		return nil, err
	}
	return ds.GetTablePreview(ctx, table, limit)
}

// Link records that two synced tables can be joined on the given columns.
func (s *DataSourceService) Link(ctx context.Context, name string, link domain.TableLink) error {
	for _, side := range [][2]string{{link.PrimaryTable, link.PrimaryKey}, {link.ForeignTable, link.ForeignKey}} {
		t, err := s.catalog.Table(ctx, name, side[0])
		if err != nil {
			return err
		}
		if !hasColumn(t, side[1]) {
			return fmt.Errorf("table %s of %s has no column %s", side[0], name, side[1])
		}
	}
	return s.catalog.SaveLinks(ctx, name, []domain.TableLink{link})
}

func hasColumn(t *domain.CatalogTable, column string) bool {
	for _, c := range t.Columns {
		if c.Name == column {
			return true
		}
	}
	return false
}

// Links returns the join links recorded for the named data source.
func (s *DataSourceService) Links(ctx context.Context, name string) ([]domain.TableLink, error) {
	return s.catalog.Links(ctx, name)
}

// JoinPath returns the shortest chain of links joining two tables.
func (s *DataSourceService) JoinPath(ctx context.Context, name, from, to string) ([]domain.TableLink, error) {
	links, err := s.catalog.Links(ctx, name)
	if err != nil {
		return nil, err
	}
	path := joingraph.New(links).ShortestPath(from, to)
	if len(path) == 0 {
		return nil, fmt.Errorf("no join path from %s to %s in %s", from, to, name)
	}
	return path, nil
}

// Import loads a file into a table of the named data source.
func (s *DataSourceService) Import(ctx context.Context, name string, spec domain.ImportSpec) error {
	ds, err := s.sources.DataSource(ctx, name)
	if err != nil {
		return err
	}
	if err := ds.ImportTable(ctx, spec); err != nil {
		return err
	}
	s.flush(name)
	return nil
}

func (s *DataSourceService) flush(name string) {
	prefix := name + "\x00"
	for key := range s.options.Items() {
		if strings.HasPrefix(key, prefix) {
			s.options.Delete(key)
		}
	}
}
