// Package container provides dependency injection.
package container

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/satishbabariya/insights-go/internal/adapters/database"
	"github.com/satishbabariya/insights-go/internal/adapters/database/duckdb"
	"github.com/satishbabariya/insights-go/internal/adapters/database/mysql"
	"github.com/satishbabariya/insights-go/internal/adapters/database/postgres"
	"github.com/satishbabariya/insights-go/internal/adapters/database/querystore"
	"github.com/satishbabariya/insights-go/internal/adapters/database/sqlite"
	"github.com/satishbabariya/insights-go/internal/adapters/telemetry"
	"github.com/satishbabariya/insights-go/internal/config"
	"github.com/satishbabariya/insights-go/internal/core/query/compiler"
	"github.com/satishbabariya/insights-go/internal/core/query/joingraph"
	"github.com/satishbabariya/insights-go/internal/repository"
	"github.com/satishbabariya/insights-go/internal/service"
)

// Container holds all application dependencies. Data sources are opened on
// first use and kept until Close.
type Container struct {
	// Configuration
	config *config.Manager

	// Adapters
	store     *repository.Store
	telemetry telemetry.Telemetry

	mu      sync.Mutex
	sources map[string]database.DataSource

	// Services
	queryService      *service.QueryService
	dataSourceService *service.DataSourceService
}

// NewContainer opens the metadata store and wires the services.
func NewContainer(ctx context.Context, cfg *config.Manager) (*Container, error) {
	c := &Container{
		config:  cfg,
		sources: map[string]database.DataSource{},
	}
	conf := cfg.Config()

	var err error
	c.store, err = repository.Open(ctx, conf.Metadata.Path)
	if err != nil {
		return nil, err
	}

	c.telemetry, err = telemetry.NewTelemetry(&conf.Telemetry)
	if err != nil {
		_ = c.store.Close()
		return nil, fmt.Errorf("failed to create telemetry adapter: %w", err)
	}

	c.queryService = service.NewQueryService(c, c.store.Queries(),
		conf.Settings.ResultsCacheSize, conf.Settings.ResultsCacheTTL)
	c.dataSourceService = service.NewDataSourceService(c, c.store.Catalog())

	// Data sources read settings on every call; the compiler options and
	// connection details are picked up by reopening them.
	cfg.OnChange(func(*config.Config) {
		c.reset()
		c.queryService.Invalidate()
	})
	return c, nil
}

// DataSource returns the named data source, opening it on first use.
func (c *Container) DataSource(ctx context.Context, name string) (database.DataSource, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ds, ok := c.sources[name]; ok {
		return ds, nil
	}
	ds, err := c.createDataSource(ctx, name)
	if err != nil {
		return nil, err
	}
	c.sources[name] = ds
	return ds, nil
}

func (c *Container) createDataSource(ctx context.Context, name string) (database.DataSource, error) {
	conf := c.config.Config()

	deps, err := c.deps(ctx, name, conf)
	if err != nil {
		return nil, err
	}

	if name == config.QueryStoreName {
		return querystore.New(database.Config{Name: name, Path: conf.QueryStore.Path}, deps, c.store.Queries(), c.DataSource)
	}

	cfg, ok := conf.DataSource(name)
	if !ok {
		return nil, fmt.Errorf("unknown data source %s", name)
	}

	switch cfg.Type {
	case database.TypePostgres:
		return postgres.New(cfg, deps)
	case database.TypeMySQL, database.TypeMariaDB:
		return mysql.New(cfg, deps)
	case database.TypeSQLite:
		return sqlite.New(cfg, deps)
	case database.TypeDuckDB:
		return duckdb.New(cfg, deps)
	case database.TypeQueryStore:
		return querystore.New(cfg, deps, c.store.Queries(), c.DataSource)
	default:
		return nil, fmt.Errorf("unsupported data source type: %s", cfg.Type)
	}
}

// deps builds the collaborators of one data source. The compiler resolves
// the custom columns and table links recorded in its catalog.
func (c *Container) deps(ctx context.Context, name string, conf *config.Config) (database.Deps, error) {
	custom, err := c.store.Catalog().CustomColumns(ctx, name)
	if err != nil {
		return database.Deps{}, err
	}
	links, err := c.store.Catalog().Links(ctx, name)
	if err != nil {
		return database.Deps{}, err
	}
	month, day := conf.Settings.FiscalStart()
	comp := compiler.NewSQLCompiler(
		compiler.WithFiscalYearStart(month, day),
		compiler.WithCustomColumns(func(table, column string) (string, bool) {
			sql, ok := custom[table][column]
			return sql, ok
		}),
		compiler.WithJoinGraph(joingraph.New(links)),
	)
	return database.Deps{
		Settings:  c.config,
		Compiler:  comp,
		Resolver:  c.store.Queries(),
		LogSink:   c.store.Logs(),
		Telemetry: c.telemetry,
		Catalog:   c.store.Catalog(),
		Fs:        config.AppFs,
	}, nil
}

// DataSourceNames lists the configured data sources and the query store.
func (c *Container) DataSourceNames() []string {
	conf := c.config.Config()
	names := make([]string, 0, len(conf.DataSources)+1)
	for _, ds := range conf.DataSources {
		names = append(names, ds.Name)
	}
	return append(names, config.QueryStoreName)
}

func (c *Container) reset() {
	c.mu.Lock()
	sources := c.sources
	c.sources = map[string]database.DataSource{}
	c.mu.Unlock()

	for _, ds := range sources {
		_ = ds.Close()
	}
}

// Close flushes telemetry and closes every opened data source and the
// metadata store.
func (c *Container) Close(ctx context.Context) error {
	c.reset()
	return errors.Join(
		c.telemetry.Flush(ctx),
		c.telemetry.Close(ctx),
		c.store.Close(),
	)
}

// Config returns the configuration manager.
func (c *Container) Config() *config.Manager {
	return c.config
}

// Store returns the metadata store.
func (c *Container) Store() *repository.Store {
	return c.store
}

// QueryService returns the query service.
func (c *Container) QueryService() *service.QueryService {
	return c.queryService
}

// DataSourceService returns the data source service.
func (c *Container) DataSourceService() *service.DataSourceService {
	return c.dataSourceService
}
