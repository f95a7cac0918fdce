package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/spf13/afero"

	"github.com/satishbabariya/insights-go/internal/core/query/domain"
	"github.com/satishbabariya/insights-go/internal/core/query/sqlformat"
	"github.com/satishbabariya/insights-go/internal/core/query/transform"
	"github.com/satishbabariya/insights-go/internal/debug"
	"github.com/satishbabariya/insights-go/internal/repository"
)

const (
	defaultCacheSize = 128
	defaultCacheTTL  = 10 * time.Minute
)

// Execution is the outcome of running a query.
type Execution struct {
	Query   *domain.LogicalQuery
	SQL     string
	Result  *domain.Result
	Elapsed time.Duration
	Cached  bool
}

// FormattedSQL returns the statement laid out one clause per line.
func (e *Execution) FormattedSQL() string {
	return sqlformat.Format(e.SQL)
}

// DisplayRows returns the result rows with date columns formatted for display.
func (e *Execution) DisplayRows() [][]any {
	if e.Query == nil {
		return e.Result.Rows
	}
	return transform.FormatResults(e.Query, e.Result)
}

// QueryService validates, runs and stores logical queries.
type QueryService struct {
	sources  DataSources
	queries  QueryRepository
	cache    *lru.LRU[string, *Execution]
	validate *validator.Validate
	now      func() time.Time
}

// NewQueryService creates a query service. Results of stored queries are
// cached by name for ttl; a size or ttl of zero uses the defaults.
func NewQueryService(sources DataSources, queries QueryRepository, size int, ttl time.Duration) *QueryService {
	if size <= 0 {
		size = defaultCacheSize
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &QueryService{
		sources:  sources,
		queries:  queries,
		cache:    lru.NewLRU[string, *Execution](size, nil, ttl),
		validate: validator.New(),
		now:      time.Now,
	}
}

// Validate checks q and fills in defaults: logical queries get an empty AND
// filter group.
func (s *QueryService) Validate(q *domain.LogicalQuery) error {
	if q == nil {
		return domain.Compilationf("query is required")
	}
	if err := s.validate.Struct(q); err != nil {
		return &domain.CompilationError{Query: q.Name, Reason: "invalid query", Cause: err}
	}
	if q.DataSource == "" {
		return domain.Compilationf("query %s has no data source", q.Name)
	}
	if q.Limit < 0 {
		return domain.Compilationf("limit must be greater than 0")
	}
	if q.IsNative {
		return nil
	}

	seen := map[string]bool{}
	for _, c := range q.Columns {
		label := c.ResultLabel()
		if label == "" {
			continue
		}
		if seen[label] {
			return domain.Compilationf("duplicate column label %s", label)
		}
		seen[label] = true
	}
	if err := transform.ValidateTransforms(q.Transforms); err != nil {
		return err
	}
	if q.Filters == nil {
		q.Filters = domain.DefaultFilters()
	}
	return nil
}

// Run compiles and executes q on its data source, then applies column
// typing, transforms and cumulative columns.
func (s *QueryService) Run(ctx context.Context, q *domain.LogicalQuery) (*Execution, error) {
	if err := s.Validate(q); err != nil {
		return nil, err
	}
	ds, err := s.sources.DataSource(ctx, q.DataSource)
	if err != nil {
		return nil, err
	}

	sql, err := ds.BuildQuery(ctx, q)
	if err != nil {
		return nil, err
	}

	start := s.now()
	res, err := ds.RunQuery(ctx, q)
	if err != nil {
		return nil, err
	}
	elapsed := s.now().Sub(start)

	res, err = transform.Process(q, res)
	if err != nil {
		return nil, err
	}
	debug.Debug("Ran query", "query", q.Name, "data_source", q.DataSource, "elapsed", elapsed)
	return &Execution{Query: q, SQL: sql, Result: res, Elapsed: elapsed}, nil
}

// RunSQL executes a native statement on the named data source. Stored query
// references in it are expanded when the settings allow it.
func (s *QueryService) RunSQL(ctx context.Context, dataSource, sql string) (*Execution, error) {
	ds, err := s.sources.DataSource(ctx, dataSource)
	if err != nil {
		return nil, err
	}
	start := s.now()
	res, err := ds.ExecuteQuery(ctx, sql, domain.ExecOptions{
		IncludeColumns:     true,
		IsNative:           true,
		ReplaceQueryTables: true,
	})
	if err != nil {
		return nil, err
	}
	return &Execution{SQL: sql, Result: transform.InferTypes(res), Elapsed: s.now().Sub(start)}, nil
}

// RunStored runs the named stored query, serving it from the results cache
// unless refresh is set. A successful run records its compiled SQL and
// marks the query executed.
func (s *QueryService) RunStored(ctx context.Context, name string, refresh bool) (*Execution, error) {
	if !refresh {
		if exec, ok := s.cache.Get(name); ok {
			cached := *exec
			cached.Cached = true
			return &cached, nil
		}
	}

	stored, err := s.queries.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	exec, err := s.Run(ctx, &stored.LogicalQuery)
	if err != nil {
		return nil, err
	}

	if stored.CompiledSQL != exec.SQL {
		stored.CompiledSQL = exec.SQL
		if err := s.queries.Save(ctx, stored); err != nil {
			return nil, err
		}
	}
	if err := s.queries.MarkExecuted(ctx, name, exec.Elapsed, s.now().UTC()); err != nil {
		return nil, err
	}
	s.cache.Add(name, exec)
	return exec, nil
}

// Save validates and stores q with its compiled SQL.
func (s *QueryService) Save(ctx context.Context, q *domain.StoredQuery) error {
	if err := s.Validate(&q.LogicalQuery); err != nil {
		return err
	}
	ds, err := s.sources.DataSource(ctx, q.DataSource)
	if err != nil {
		return err
	}
	if q.CompiledSQL, err = ds.BuildQuery(ctx, &q.LogicalQuery); err != nil {
		return err
	}
	if err := s.queries.Save(ctx, q); err != nil {
		return err
	}
	s.cache.Remove(q.Name)
	return nil
}

// Load saves every query defined in the YAML file or directory at path.
func (s *QueryService) Load(ctx context.Context, fs afero.Fs, path string) ([]domain.StoredQuery, error) {
	queries, err := repository.LoadQueries(fs, path)
	if err != nil {
		return nil, err
	}
	for i := range queries {
		if err := s.Save(ctx, &queries[i]); err != nil {
			return nil, fmt.Errorf("failed to save query %s: %w", queries[i].Name, err)
		}
	}
	debug.Info("Loaded queries", "path", path, "count", len(queries))
	return queries, nil
}

// Get returns the named stored query.
func (s *QueryService) Get(ctx context.Context, name string) (*domain.StoredQuery, error) {
	return s.queries.Get(ctx, name)
}

// List returns the stored queries of dataSource, or all of them.
func (s *QueryService) List(ctx context.Context, dataSource string) ([]domain.StoredQuery, error) {
	return s.queries.List(ctx, dataSource)
}

// Delete removes the named stored query and its cached result.
func (s *QueryService) Delete(ctx context.Context, name string) error {
	s.cache.Remove(name)
	return s.queries.Delete(ctx, name)
}

// Invalidate drops every cached result.
func (s *QueryService) Invalidate() {
	s.cache.Purge()
}
