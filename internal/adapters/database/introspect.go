package database

import (
	"context"
	"fmt"

	"github.com/satishbabariya/insights-go/internal/core/query/domain"
	"github.com/satishbabariya/insights-go/internal/core/query/mapper"
)

// Strings runs a metadata query and returns the first column of every row
// as text.
func (b *Base) Strings(ctx context.Context, query string, args ...any) ([]string, error) {
	res, err := b.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		if len(row) > 0 && row[0] != nil {
			out = append(out, fmt.Sprint(row[0]))
		}
	}
	return out, nil
}

// Count runs a metadata query returning a single number.
func (b *Base) Count(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	if err := b.pool.DB().QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, &domain.QueryExecutionError{DataSource: b.cfg.Name, Statement: query, Cause: err}
	}
	return n, nil
}

// TableColumns runs a metadata query returning (name, database type) rows
// and maps them to table columns.
func (b *Base) TableColumns(ctx context.Context, query string, args ...any) ([]domain.TableColumn, error) {
	res, err := b.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	cols := make([]domain.TableColumn, 0, len(res.Rows))
	for _, row := range res.Rows {
		if len(row) < 2 {
			continue
		}
		name, dbType := fmt.Sprint(row[0]), fmt.Sprint(row[1])
		t := mapper.SemanticType(domain.ColumnDescriptor{Name: name, DatabaseType: dbType})
		if t == domain.TypeUnknown {
			t = domain.TypeString
		}
		cols = append(cols, domain.TableColumn{Name: name, Label: TitleCase(name), Type: t})
	}
	return cols, nil
}

// ForeignKeys runs a metadata query returning (primary table, primary key,
// foreign table, foreign key) rows.
func (b *Base) ForeignKeys(ctx context.Context, query string, args ...any) ([]domain.TableLink, error) {
	res, err := b.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	links := make([]domain.TableLink, 0, len(res.Rows))
	for _, row := range res.Rows {
		if len(row) < 4 {
			continue
		}
		links = append(links, domain.TableLink{
			PrimaryTable: fmt.Sprint(row[0]),
			PrimaryKey:   fmt.Sprint(row[1]),
			ForeignTable: fmt.Sprint(row[2]),
			ForeignKey:   fmt.Sprint(row[3]),
		})
	}
	return links, nil
}

// ResultImport turns a result into import data, for materializing query
// results as tables.
func ResultImport(res *domain.Result) *ImportData {
	cols := make([]domain.TableColumn, len(res.Columns))
	for i, c := range res.Columns {
		t := c.Type
		if t == domain.TypeUnknown || t == "" {
			t = domain.TypeString
		}
		cols[i] = domain.TableColumn{Name: c.Name, Label: TitleCase(c.Name), Type: t}
	}
	return &ImportData{Columns: cols, Rows: res.Rows}
}
