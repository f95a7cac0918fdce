package dialect_test

import (
	"testing"

	"github.com/satishbabariya/insights-go/internal/core/query/dialect"
	"github.com/satishbabariya/insights-go/internal/core/query/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFor(t *testing.T) {
	tests := []struct {
		name string
		want domain.SQLDialect
	}{
		{"postgres", domain.PostgreSQL},
		{"postgresql", domain.PostgreSQL},
		{"mysql", domain.MySQL},
		{"mariadb", domain.MariaDB},
		{"sqlite3", domain.SQLite},
		{"duckdb", domain.DuckDB},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := dialect.For(domain.SQLDialect(tt.name))
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Name())
		})
	}

	_, err := dialect.For("oracle")
	assert.Error(t, err)
}

func TestQuoting(t *testing.T) {
	assert.Equal(t, `"order"`, dialect.Postgres{}.QuoteIdentifier("order"))
	assert.Equal(t, `"a""b"`, dialect.SQLite{}.QuoteIdentifier(`a"b`))
	assert.Equal(t, "`order`", dialect.MySQL{}.QuoteIdentifier("order"))

	assert.Equal(t, `'it''s'`, dialect.Postgres{}.QuoteString("it's"))
	assert.Equal(t, `'a\\b'`, dialect.MySQL{}.QuoteString(`a\b`))
}

func TestFormatDate(t *testing.T) {
	got, err := dialect.MySQL{}.FormatDate("`o`.`created`", domain.FormatMonth)
	require.NoError(t, err)
	assert.Equal(t, "DATE_FORMAT(`o`.`created`, '%Y-%m-01')", got)

	got, err = dialect.Postgres{}.FormatDate(`"o"."created"`, domain.FormatQuarter)
	require.NoError(t, err)
	assert.Equal(t, `TO_CHAR(DATE_TRUNC('quarter', "o"."created"), 'YYYY-MM-DD')`, got)

	got, err = dialect.SQLite{}.FormatDate(`"created"`, domain.FormatDay)
	require.NoError(t, err)
	assert.Equal(t, `strftime('%Y-%m-%d', "created")`, got)

	_, err = dialect.DuckDB{}.FormatDate(`"created"`, "Fortnight")
	assert.Error(t, err)
}

func TestSupportsCTE(t *testing.T) {
	mysql := dialect.MustFor(domain.MySQL)
	assert.True(t, mysql.SupportsCTE(""))
	assert.True(t, mysql.SupportsCTE("8.0.35-0ubuntu0.22.04.1"))
	assert.False(t, mysql.SupportsCTE("5.7.44"))
	assert.True(t, mysql.SupportsCTE("10.6.12-MariaDB-0ubuntu0.22.04.1"))
	assert.False(t, mysql.SupportsCTE("10.1.48-MariaDB"))

	assert.False(t, dialect.SQLite{}.SupportsCTE("3.7.17"))
	assert.True(t, dialect.SQLite{}.SupportsCTE("3.45.1"))
	assert.True(t, dialect.Postgres{}.SupportsCTE("9.6"))
}

func TestTimestampDiff(t *testing.T) {
	got, err := dialect.MySQL{}.TimestampDiff("day", "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "TIMESTAMPDIFF(DAY, a, b)", got)

	got, err = dialect.DuckDB{}.TimestampDiff("HOUR", "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "date_diff('hour', a, b)", got)

	_, err = dialect.Postgres{}.TimestampDiff("fortnight", "a", "b")
	assert.Error(t, err)
}

func TestPercentPolicy(t *testing.T) {
	assert.True(t, dialect.MustFor(domain.MySQL).UnescapePercent())
	assert.True(t, dialect.MustFor(domain.MariaDB).UnescapePercent())
	assert.False(t, dialect.MustFor(domain.PostgreSQL).UnescapePercent())
	assert.False(t, dialect.MustFor(domain.SQLite).UnescapePercent())
}
