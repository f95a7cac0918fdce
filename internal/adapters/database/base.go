package database

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/satishbabariya/insights-go/internal/adapters/telemetry"
	"github.com/satishbabariya/insights-go/internal/core/database/pool"
	"github.com/satishbabariya/insights-go/internal/core/query/compiler"
	"github.com/satishbabariya/insights-go/internal/core/query/dialect"
	"github.com/satishbabariya/insights-go/internal/core/query/domain"
	"github.com/satishbabariya/insights-go/internal/core/query/executor"
	"github.com/satishbabariya/insights-go/internal/core/query/guard"
	"github.com/satishbabariya/insights-go/internal/core/query/mapper"
	"github.com/satishbabariya/insights-go/internal/core/query/rewriter"
	"github.com/satishbabariya/insights-go/internal/debug"
)

// DefaultOptionsLimit is the number of column options returned when the
// caller passes no limit.
const DefaultOptionsLimit = 50

// DefaultPreviewLimit is the number of rows a table preview returns when the
// caller passes no limit.
const DefaultPreviewLimit = 100

// Deps are the collaborators shared by every data source.
type Deps struct {
	Settings  domain.Settings
	Compiler  domain.QueryCompiler
	Resolver  domain.StoredQueryResolver
	LogSink   domain.ExecutionLogSink
	Telemetry telemetry.Telemetry
	Catalog   Catalog
	Fs        afero.Fs
}

// Base implements the execution pipeline: compile, rewrite, guard, execute,
// normalize. Optional capabilities fail with NotSupported.
type Base struct {
	cfg      Config
	dialect  dialect.Dialect
	pool     *pool.Pool
	settings domain.Settings
	compiler domain.QueryCompiler
	rewriter *rewriter.Rewriter
	executor *executor.QueryExecutor
	mapper   *mapper.ResultMapper
	catalog  Catalog
	fs       afero.Fs

	versionSQL string
	versionMu  sync.Mutex
	version    string
}

// NewBase creates the shared part of a backend. versionSQL, when set, is run
// once to learn the server version if the configuration does not pin one.
func NewBase(cfg Config, p *pool.Pool, deps Deps, versionSQL string) (*Base, error) {
	d, err := dialect.For(cfg.DialectName())
	if err != nil {
		return nil, err
	}
	if deps.Settings == nil {
		deps.Settings = domain.StaticSettings{}
	}
	if deps.Compiler == nil {
		deps.Compiler = compiler.NewSQLCompiler()
	}
	if deps.Fs == nil {
		deps.Fs = afero.NewOsFs()
	}
	return &Base{
		cfg:        cfg,
		dialect:    d,
		pool:       p,
		settings:   deps.Settings,
		compiler:   deps.Compiler,
		rewriter:   rewriter.New(deps.Resolver),
		executor:   executor.NewQueryExecutor(p, deps.LogSink, deps.Telemetry),
		mapper:     mapper.NewResultMapper(),
		catalog:    deps.Catalog,
		fs:         deps.Fs,
		versionSQL: versionSQL,
		version:    cfg.ServerVersion,
	}, nil
}

// Name returns the data source name.
func (b *Base) Name() string { return b.cfg.Name }

// Dialect returns the data source dialect.
func (b *Base) Dialect() domain.SQLDialect { return b.dialect.Name() }

// SQLDialect returns the dialect descriptor.
func (b *Base) SQLDialect() dialect.Dialect { return b.dialect }

// Config returns the data source configuration.
func (b *Base) Config() Config { return b.cfg }

// Pool returns the connection pool.
func (b *Base) Pool() *pool.Pool { return b.pool }

// HasCatalog reports whether synced tables have somewhere to go.
func (b *Base) HasCatalog() bool { return b.catalog != nil }

// Fs returns the filesystem imports read from.
func (b *Base) Fs() afero.Fs { return b.fs }

// Close releases the connection pool.
func (b *Base) Close() error {
	if b.pool == nil {
		return nil
	}
	return b.pool.Close()
}

// TestConnection runs SELECT 1.
func (b *Base) TestConnection(ctx context.Context) error {
	_, err := b.ExecuteQuery(ctx, "SELECT 1", domain.ExecOptions{})
	return err
}

// BuildQuery compiles query for the data source dialect.
func (b *Base) BuildQuery(_ context.Context, query *domain.LogicalQuery) (string, error) {
	return b.compiler.Build(query, b.dialect.Name())
}

// RunQuery compiles query and executes it with its columns. A query that
// compiles to nothing yields an empty result without touching the database.
func (b *Base) RunQuery(ctx context.Context, query *domain.LogicalQuery) (*domain.Result, error) {
	sql, err := b.BuildQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return b.ExecuteQuery(ctx, sql, domain.ExecOptions{
		IncludeColumns:     true,
		IsNative:           query != nil && query.IsNative,
		ReplaceQueryTables: true,
	})
}

// ExecuteQuery runs sql. Stored query references are rewritten into CTEs
// when opts.ReplaceQueryTables is set and the settings allow subqueries; the
// statement is then validated and limited before it is executed.
func (b *Base) ExecuteQuery(ctx context.Context, sql string, opts domain.ExecOptions) (*domain.Result, error) {
	mopts := mapper.Options{Pluck: opts.Pluck, IncludeColumns: opts.IncludeColumns}
	if strings.TrimSpace(sql) == "" {
		return b.mapper.Normalize(nil, mopts), nil
	}

	ec := b.ExecutionContext(ctx, opts)
	if opts.ReplaceQueryTables {
		rewritten, err := b.rewriter.Rewrite(ctx, sql, ec)
		if err != nil {
			return nil, err
		}
		sql = rewritten
	}

	stmt, err := guard.Prepare(sql, ec)
	if err != nil {
		return nil, err
	}

	raw, err := b.executor.Execute(ctx, stmt, ec)
	if err != nil {
		return nil, err
	}
	return b.mapper.Normalize(raw, mopts), nil
}

// ExecutionContext builds the per-call context from a fresh settings read.
func (b *Base) ExecutionContext(ctx context.Context, opts domain.ExecOptions) domain.ExecutionContext {
	ec := domain.ExecutionContext{
		DataSource:         b.cfg.Name,
		Dialect:            b.dialect.Name(),
		MaxRows:            b.settings.QueryResultLimit(),
		AllowSubquery:      b.settings.AllowSubquery(),
		IsNative:           opts.IsNative,
		Pluck:              opts.Pluck,
		IncludeColumns:     opts.IncludeColumns,
		ReplaceQueryTables: opts.ReplaceQueryTables,
		UnescapePercent:    b.cfg.EscapePercent(b.dialect),
	}
	if ec.AllowSubquery && opts.ReplaceQueryTables {
		ec.ServerVersion = b.ServerVersion(ctx)
	}
	return ec
}

// ServerVersion returns the configured server version, or the one reported
// by the server. An unknown version is empty. Only a successful lookup is
// kept, so a failed one is retried on the next call.
func (b *Base) ServerVersion(ctx context.Context) string {
	b.versionMu.Lock()
	defer b.versionMu.Unlock()

	if b.version != "" || b.versionSQL == "" || b.pool == nil {
		return b.version
	}
	var v string
	if err := b.pool.DB().QueryRowContext(ctx, b.versionSQL).Scan(&v); err != nil {
		debug.Warn("Failed to read server version", "data_source", b.cfg.Name, "error", err)
		return ""
	}
	b.version = v
	return v
}

// Query runs a metadata statement with arguments directly on the pool. It
// bypasses the guard and the execution log.
func (b *Base) Query(ctx context.Context, query string, args ...any) (*domain.Result, error) {
	rows, err := b.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &domain.QueryExecutionError{DataSource: b.cfg.Name, Statement: query, Cause: err}
	}
	defer rows.Close()

	raw, err := mapper.ScanRows(rows)
	if err != nil {
		return nil, &domain.QueryExecutionError{DataSource: b.cfg.Name, Statement: query, Cause: err}
	}
	return b.mapper.Normalize(raw, mapper.Options{IncludeColumns: true}), nil
}

// DistinctValues returns up to limit distinct values of table.column that
// contain search. It backs GetColumnOptions.
func (b *Base) DistinctValues(ctx context.Context, table, column, search string, limit int) ([]any, error) {
	if limit <= 0 {
		limit = DefaultOptionsLimit
	}
	query := &domain.LogicalQuery{
		Name:    fmt.Sprintf("%s.%s options", table, column),
		Tables:  []domain.Table{{Table: table}},
		Columns: []domain.Column{{Table: table, Column: column, Label: column, Aggregation: domain.GroupBy}},
		Limit:   limit,
	}
	if search != "" {
		query.Filters = domain.And(domain.Call("contains", domain.Col(table, column), domain.Str(search)))
	}
	sql, err := b.BuildQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	res, err := b.ExecuteQuery(ctx, sql, domain.ExecOptions{Pluck: true})
	if err != nil {
		return nil, err
	}
	return res.Values, nil
}

// Preview returns the first rows of table with their columns.
func (b *Base) Preview(ctx context.Context, table string, limit int) (*domain.Result, error) {
	if limit <= 0 {
		limit = DefaultPreviewLimit
	}
	sql := fmt.Sprintf("SELECT * FROM %s LIMIT %d", b.dialect.QuoteIdentifier(table), limit)
	return b.ExecuteQuery(ctx, sql, domain.ExecOptions{IncludeColumns: true})
}

func (b *Base) notSupported(capability string) error {
	return &domain.NotSupportedError{Backend: string(b.cfg.Type), Capability: capability}
}

// TableExists is not supported by default.
func (b *Base) TableExists(context.Context, string) (bool, error) {
	return false, b.notSupported("table_exists")
}

// ImportTable is not supported by default.
func (b *Base) ImportTable(context.Context, domain.ImportSpec) error {
	return b.notSupported("import_table")
}

// SyncTables is not supported by default.
func (b *Base) SyncTables(context.Context, []string) error {
	return b.notSupported("sync_tables")
}

// GetTableColumns is not supported by default.
func (b *Base) GetTableColumns(context.Context, string) ([]domain.TableColumn, error) {
	return nil, b.notSupported("get_table_columns")
}

// GetColumnOptions is not supported by default.
func (b *Base) GetColumnOptions(context.Context, string, string, string, int) ([]any, error) {
	return nil, b.notSupported("get_column_options")
}

// GetTablePreview is not supported by default.
func (b *Base) GetTablePreview(context.Context, string, int) (*domain.Result, error) {
	return nil, b.notSupported("get_table_preview")
}

var _ DataSource = (*Base)(nil)
