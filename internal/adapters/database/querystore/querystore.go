// Package querystore is the data source holding materialized stored queries.
// Each stored query becomes a table named after it in a local SQLite
// database (modernc.org/sqlite), so queries on different data sources can be
// combined.
package querystore

import (
	"context"
	"fmt"
	"slices"

	_ "modernc.org/sqlite"

	"golang.org/x/sync/errgroup"

	"github.com/satishbabariya/insights-go/internal/adapters/database"
	"github.com/satishbabariya/insights-go/internal/adapters/database/sqlite"
	"github.com/satishbabariya/insights-go/internal/core/database/pool"
	"github.com/satishbabariya/insights-go/internal/core/query/domain"
	"github.com/satishbabariya/insights-go/internal/core/query/transform"
	"github.com/satishbabariya/insights-go/internal/debug"
)

// Driver is the database/sql driver name registered by modernc.org/sqlite.
const Driver = "sqlite"

const materializeConcurrency = 4

// StoredQueries lists stored queries. An empty data source lists all of them.
type StoredQueries interface {
	List(ctx context.Context, dataSource string) ([]domain.StoredQuery, error)
}

// Lookup returns the data source called name.
type Lookup func(ctx context.Context, name string) (database.DataSource, error)

// Backend is the query store data source.
type Backend struct {
	*sqlite.Backend
	queries StoredQueries
	lookup  Lookup
	catalog database.Catalog
}

// DSN returns the modernc connection string for path; empty is in-memory.
func DSN(path string) string {
	if path == "" || path == ":memory:" {
		return "file::memory:"
	}
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
}

// New opens the query store. queries and lookup are used by SyncTables.
func New(cfg database.Config, deps database.Deps, queries StoredQueries, lookup Lookup) (*Backend, error) {
	cfg.Type = database.TypeQueryStore
	cfg.Driver = Driver

	pc := cfg.PoolConfig()
	pc.MaxOpenConns, pc.MaxIdleConns, pc.ConnMaxLifetime, pc.ConnMaxIdleTime = 1, 1, 0, 0

	dsn := cfg.DSN
	if dsn == "" {
		dsn = DSN(cfg.Path)
	}
	p, err := pool.New(cfg.Name, Driver, dsn, pc)
	if err != nil {
		return nil, err
	}
	inner, err := sqlite.NewWithPool(cfg, p, deps)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	return &Backend{Backend: inner, queries: queries, lookup: lookup, catalog: deps.Catalog}, nil
}

type materialized struct {
	query domain.StoredQuery
	data  *database.ImportData
}

// SyncTables runs the stored queries (all of them when names is empty) on
// their data sources and replaces their tables with the results. Queries
// run concurrently; tables are written one at a time.
func (b *Backend) SyncTables(ctx context.Context, names []string) error {
	if b.queries == nil || b.lookup == nil {
		return fmt.Errorf("failed to sync %s: no stored queries configured", b.Name())
	}

	all, err := b.queries.List(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to list stored queries: %w", err)
	}
	var selected []domain.StoredQuery
	for _, q := range all {
		if !q.IsStored || q.DataSource == b.Name() {
			continue
		}
		if len(names) > 0 && !slices.Contains(names, q.Name) {
			continue
		}
		selected = append(selected, q)
	}

	results := make([]materialized, len(selected))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(materializeConcurrency)
	for i, q := range selected {
		g.Go(func() error {
			ds, err := b.lookup(gctx, q.DataSource)
			if err != nil {
				return fmt.Errorf("failed to get data source of %s: %w", q.Name, err)
			}
			res, err := ds.RunQuery(gctx, &q.LogicalQuery)
			if err != nil {
				return fmt.Errorf("failed to run %s: %w", q.Name, err)
			}
			if res, err = transform.Process(&q.LogicalQuery, res); err != nil {
				return fmt.Errorf("failed to process %s: %w", q.Name, err)
			}
			results[i] = materialized{query: q, data: database.ResultImport(res)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	records := make([]domain.CatalogTable, 0, len(results))
	for _, m := range results {
		if len(m.data.Columns) == 0 {
			debug.Warn("Skipping stored query without columns", "query", m.query.Name)
			continue
		}
		exists, err := b.TableExists(ctx, m.query.Name)
		if err != nil {
			return err
		}
		spec := domain.ImportSpec{Table: m.query.Name, IfExists: domain.IfExistsReplace}
		if err := b.LoadTable(ctx, spec, m.data, exists); err != nil {
			return err
		}

		label := m.query.Title
		if label == "" {
			label = database.TitleCase(m.query.Name)
		}
		records = append(records, domain.CatalogTable{
			DataSource:   b.Name(),
			Name:         m.query.Name,
			Label:        label,
			IsQueryBased: true,
			Columns:      m.data.Columns,
		})
	}

	if b.catalog != nil {
		if err := b.catalog.SaveTables(ctx, b.Name(), records); err != nil {
			return fmt.Errorf("failed to save tables: %w", err)
		}
	}
	debug.Info("Materialized stored queries", "data_source", b.Name(), "queries", len(records))
	return nil
}

var _ database.DataSource = (*Backend)(nil)
