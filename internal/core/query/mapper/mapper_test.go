package mapper

import (
	"reflect"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/satishbabariya/insights-go/internal/core/query/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture() *domain.RawResult {
	return &domain.RawResult{
		Columns: []domain.ColumnDescriptor{{Name: "c", DatabaseType: "INTEGER"}},
		Rows:    [][]any{{int64(1)}, {int64(2)}},
	}
}

func TestNormalize_Rows(t *testing.T) {
	res := NewResultMapper().Normalize(fixture(), Options{})
	assert.Nil(t, res.Columns)
	assert.Equal(t, [][]any{{int64(1)}, {int64(2)}}, res.Rows)
	assert.Equal(t, []any{[]any{int64(1)}, []any{int64(2)}}, res.Records())
}

func TestNormalize_IncludeColumns(t *testing.T) {
	res := NewResultMapper().Normalize(fixture(), Options{IncludeColumns: true})
	require.Len(t, res.Columns, 1)
	assert.Equal(t, domain.ResultColumn{Name: "c", Type: domain.TypeInteger}, res.Columns[0])

	records := res.Records()
	require.Len(t, records, 3)
	assert.Equal(t, res.Columns, records[0])
	assert.Equal(t, []any{int64(1)}, records[1])
}

func TestNormalize_Pluck(t *testing.T) {
	res := NewResultMapper().Normalize(fixture(), Options{Pluck: true, IncludeColumns: true})
	assert.Equal(t, []any{int64(1), int64(2)}, res.Records())
	assert.Nil(t, res.Columns)

	empty := NewResultMapper().Normalize(&domain.RawResult{}, Options{Pluck: true})
	assert.Empty(t, empty.Records())
	assert.Equal(t, 0, empty.Len())
}

func TestNormalize_ConvertsValues(t *testing.T) {
	raw := &domain.RawResult{
		Columns: []domain.ColumnDescriptor{
			{Name: "total", DatabaseType: "DECIMAL(10,2)"},
			{Name: "qty", DatabaseType: "BIGINT UNSIGNED"},
			{Name: "name", DatabaseType: "VARCHAR"},
			{Name: "blob"},
		},
		Rows: [][]any{{[]byte("10.50"), []byte("3"), []byte("anna"), []byte("raw")}},
	}
	res := NewResultMapper().Normalize(raw, Options{IncludeColumns: true})
	assert.Equal(t, []any{10.5, int64(3), "anna", "raw"}, res.Rows[0])
	assert.Equal(t, domain.TypeUnknown, res.Columns[3].Type)
}

func TestSemanticType(t *testing.T) {
	tests := []struct {
		desc domain.ColumnDescriptor
		want domain.ColumnType
	}{
		{domain.ColumnDescriptor{DatabaseType: "int4"}, domain.TypeInteger},
		{domain.ColumnDescriptor{DatabaseType: "NUMERIC"}, domain.TypeFloat},
		{domain.ColumnDescriptor{DatabaseType: "TIMESTAMPTZ"}, domain.TypeDatetime},
		{domain.ColumnDescriptor{DatabaseType: "DATE"}, domain.TypeDate},
		{domain.ColumnDescriptor{DatabaseType: "BOOL"}, domain.TypeBoolean},
		{domain.ColumnDescriptor{DatabaseType: "VARCHAR(255)"}, domain.TypeString},
		{domain.ColumnDescriptor{DatabaseType: "GEOMETRY"}, domain.TypeUnknown},
		{domain.ColumnDescriptor{ScanType: reflect.TypeOf(time.Time{})}, domain.TypeDatetime},
		{domain.ColumnDescriptor{ScanType: reflect.TypeOf(float64(0))}, domain.TypeFloat},
		{domain.ColumnDescriptor{DatabaseType: "BLOB", ScanType: reflect.TypeOf([]byte(nil))}, domain.TypeUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SemanticType(tt.desc), "%+v", tt.desc)
	}
}

func TestScanRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRowsWithColumnDefinition(
		sqlmock.NewColumn("id").OfType("INT8", int64(0)),
		sqlmock.NewColumn("name").OfType("TEXT", "").Nullable(true),
	).AddRow(int64(1), "a").AddRow(int64(2), nil)
	mock.ExpectQuery("SELECT").WillReturnRows(rows)

	r, err := db.Query("SELECT id, name FROM t")
	require.NoError(t, err)
	defer r.Close()

	raw, err := ScanRows(r)
	require.NoError(t, err)
	require.Len(t, raw.Columns, 2)
	assert.Equal(t, "INT8", raw.Columns[0].DatabaseType)
	assert.True(t, raw.Columns[1].Nullable)
	assert.Equal(t, [][]any{{int64(1), "a"}, {int64(2), nil}}, raw.Rows)
}
