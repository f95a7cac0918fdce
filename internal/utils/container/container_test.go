package container

import (
	"context"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/insights-go/internal/adapters/database/querystore"
	"github.com/satishbabariya/insights-go/internal/adapters/database/sqlite"
	"github.com/satishbabariya/insights-go/internal/config"
	"github.com/satishbabariya/insights-go/internal/core/query/domain"
)

const testConfig = `
metadata:
  path: ":memory:"
query_store:
  path: ":memory:"
data_sources:
  - name: local
    type: sqlite
`

func newContainer(t *testing.T) (*Container, *config.Manager) {
	t.Helper()
	prev := config.AppFs
	config.AppFs = afero.NewMemMapFs()
	t.Cleanup(func() { config.AppFs = prev })
	t.Setenv("HOME", "/home/analyst")
	homedir.DisableCache = true

	require.NoError(t, afero.WriteFile(config.AppFs, "/insights.yaml", []byte(testConfig), 0o644))
	m, err := config.Load("/insights.yaml")
	require.NoError(t, err)

	c, err := NewContainer(context.Background(), m)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c, m
}

func TestDataSourceDispatch(t *testing.T) {
	c, _ := newContainer(t)
	ctx := context.Background()

	ds, err := c.DataSource(ctx, "local")
	require.NoError(t, err)
	assert.IsType(t, &sqlite.Backend{}, ds)

	again, err := c.DataSource(ctx, "local")
	require.NoError(t, err)
	assert.Same(t, ds, again)

	qs, err := c.DataSource(ctx, config.QueryStoreName)
	require.NoError(t, err)
	assert.IsType(t, &querystore.Backend{}, qs)

	_, err = c.DataSource(ctx, "missing")
	assert.ErrorContains(t, err, "unknown data source")

	assert.Equal(t, []string{"local", config.QueryStoreName}, c.DataSourceNames())
}

func TestReloadReopensDataSources(t *testing.T) {
	c, m := newContainer(t)
	ctx := context.Background()

	before, err := c.DataSource(ctx, "local")
	require.NoError(t, err)

	require.NoError(t, m.Reload())

	after, err := c.DataSource(ctx, "local")
	require.NoError(t, err)
	assert.NotSame(t, before, after)
}

func TestMaterializeIntoQueryStore(t *testing.T) {
	c, _ := newContainer(t)
	ctx := context.Background()

	local, err := c.DataSource(ctx, "local")
	require.NoError(t, err)
	_, err = local.(*sqlite.Backend).Pool().DB().Exec(`
CREATE TABLE visits (page TEXT, hits INTEGER);
INSERT INTO visits VALUES ('home', 3), ('docs', 4), ('home', 1);`)
	require.NoError(t, err)

	require.NoError(t, c.QueryService().Save(ctx, &domain.StoredQuery{LogicalQuery: domain.LogicalQuery{
		Name:       "page_hits",
		DataSource: "local",
		IsStored:   true,
		Tables:     []domain.Table{{Table: "visits"}},
		Columns: []domain.Column{
			{Table: "visits", Column: "page", Label: "page", Aggregation: domain.GroupBy, OrderBy: domain.Asc},
			{Table: "visits", Column: "hits", Label: "hits", Type: domain.TypeInteger, Aggregation: domain.Sum},
		},
	}}))

	require.NoError(t, c.DataSourceService().Sync(ctx, config.QueryStoreName, nil))

	exec, err := c.QueryService().RunSQL(ctx, config.QueryStoreName, "SELECT page, hits FROM page_hits ORDER BY page")
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"docs", int64(4)}, {"home", int64(4)}}, exec.Result.Rows)

	tables, err := c.DataSourceService().Tables(ctx, config.QueryStoreName, false)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.True(t, tables[0].IsQueryBased)
}
