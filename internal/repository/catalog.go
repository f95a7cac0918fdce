package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/satishbabariya/insights-go/internal/core/query/domain"
)

// CatalogRepository records the tables of every data source.
type CatalogRepository struct {
	db *sql.DB
}

// SaveTables upserts tables of dataSource. Custom columns already recorded on
// a table survive a re-sync; the hidden flag is kept as well.
func (r *CatalogRepository) SaveTables(ctx context.Context, dataSource string, tables []domain.CatalogTable) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, t := range tables {
		var existing string
		err := tx.QueryRowContext(ctx,
			`SELECT columns FROM catalog_tables WHERE data_source = ? AND name = ?`, dataSource, t.Name).Scan(&existing)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to load table %s: %w", t.Name, err)
		}
		cols := t.Columns
		if existing != "" {
			var prev []domain.TableColumn
			if err := json.Unmarshal([]byte(existing), &prev); err != nil {
				return fmt.Errorf("failed to decode columns of %s: %w", t.Name, err)
			}
			cols = mergeCustom(cols, prev)
		}
		encoded, err := json.Marshal(cols)
		if err != nil {
			return fmt.Errorf("failed to encode columns of %s: %w", t.Name, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO catalog_tables (data_source, name, label, is_query_based, hidden, columns)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (data_source, name) DO UPDATE SET
				label = excluded.label,
				is_query_based = excluded.is_query_based,
				columns = excluded.columns`,
			dataSource, t.Name, t.Label, boolInt(t.IsQueryBased), boolInt(t.Hidden), string(encoded))
		if err != nil {
			return fmt.Errorf("failed to save table %s: %w", t.Name, err)
		}
	}
	return tx.Commit()
}

func mergeCustom(cols, prev []domain.TableColumn) []domain.TableColumn {
	seen := make(map[string]bool, len(cols))
	for _, c := range cols {
		seen[c.Name] = true
	}
	for _, c := range prev {
		if c.IsCustom && !seen[c.Name] {
			cols = append(cols, c)
		}
	}
	return cols
}

// Tables lists the tables of dataSource; hidden ones only when includeHidden.
func (r *CatalogRepository) Tables(ctx context.Context, dataSource string, includeHidden bool) ([]domain.CatalogTable, error) {
	query := `SELECT data_source, name, label, is_query_based, hidden, columns FROM catalog_tables WHERE data_source = ?`
	if !includeHidden {
		query += ` AND hidden = 0`
	}
	rows, err := r.db.QueryContext(ctx, query+` ORDER BY name`, dataSource)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var out []domain.CatalogTable
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// Table returns one catalog table.
func (r *CatalogRepository) Table(ctx context.Context, dataSource, name string) (*domain.CatalogTable, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT data_source, name, label, is_query_based, hidden, columns FROM catalog_tables WHERE data_source = ? AND name = ?`,
		dataSource, name)
	t, err := scanTable(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("table %s of %s: %w", name, dataSource, ErrNotFound)
	}
	return t, err
}

// SetHidden hides or shows a table.
func (r *CatalogRepository) SetHidden(ctx context.Context, dataSource, name string, hidden bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE catalog_tables SET hidden = ? WHERE data_source = ? AND name = ?`, boolInt(hidden), dataSource, name)
	if err != nil {
		return fmt.Errorf("failed to update table %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("table %s of %s: %w", name, dataSource, ErrNotFound)
	}
	return nil
}

// AddCustomColumn adds or replaces a column defined by a SQL expression.
func (r *CatalogRepository) AddCustomColumn(ctx context.Context, dataSource, table string, col domain.TableColumn) error {
	t, err := r.Table(ctx, dataSource, table)
	if err != nil {
		return err
	}
	col.IsCustom = true
	cols := make([]domain.TableColumn, 0, len(t.Columns)+1)
	for _, c := range t.Columns {
		if c.Name != col.Name {
			cols = append(cols, c)
		}
	}
	t.Columns = append(cols, col)

	encoded, err := json.Marshal(t.Columns)
	if err != nil {
		return fmt.Errorf("failed to encode columns of %s: %w", table, err)
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE catalog_tables SET columns = ? WHERE data_source = ? AND name = ?`, string(encoded), dataSource, table)
	if err != nil {
		return fmt.Errorf("failed to update table %s: %w", table, err)
	}
	return nil
}

// CustomColumns returns a lookup of the custom column SQL of dataSource, keyed
// by table then column.
func (r *CatalogRepository) CustomColumns(ctx context.Context, dataSource string) (map[string]map[string]string, error) {
	tables, err := r.Tables(ctx, dataSource, true)
	if err != nil {
		return nil, err
	}
	out := map[string]map[string]string{}
	for _, t := range tables {
		for _, c := range t.Columns {
			if !c.IsCustom || c.CustomSQL == "" {
				continue
			}
			if out[t.Name] == nil {
				out[t.Name] = map[string]string{}
			}
			out[t.Name][c.Name] = c.CustomSQL
		}
	}
	return out, nil
}

// SaveLinks records join links between tables of dataSource. A link already
// recorded in either direction is skipped.
func (r *CatalogRepository) SaveLinks(ctx context.Context, dataSource string, links []domain.TableLink) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, l := range links {
		if l.PrimaryTable == "" || l.PrimaryKey == "" || l.ForeignTable == "" || l.ForeignKey == "" {
			return fmt.Errorf("invalid link %s.%s -> %s.%s", l.PrimaryTable, l.PrimaryKey, l.ForeignTable, l.ForeignKey)
		}
		rev := l.Reverse()
		_, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO catalog_table_links (data_source, primary_table, primary_key, foreign_table, foreign_key)
			SELECT ?, ?, ?, ?, ?
			WHERE NOT EXISTS (
				SELECT 1 FROM catalog_table_links
				WHERE data_source = ? AND primary_table = ? AND primary_key = ? AND foreign_table = ? AND foreign_key = ?)`,
			dataSource, l.PrimaryTable, l.PrimaryKey, l.ForeignTable, l.ForeignKey,
			dataSource, rev.PrimaryTable, rev.PrimaryKey, rev.ForeignTable, rev.ForeignKey)
		if err != nil {
			return fmt.Errorf("failed to save link %s -> %s: %w", l.PrimaryTable, l.ForeignTable, err)
		}
	}
	return tx.Commit()
}

// Links returns the recorded join links of dataSource.
func (r *CatalogRepository) Links(ctx context.Context, dataSource string) ([]domain.TableLink, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT primary_table, primary_key, foreign_table, foreign_key
		FROM catalog_table_links WHERE data_source = ?
		ORDER BY primary_table, foreign_table, primary_key, foreign_key`, dataSource)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	var out []domain.TableLink
	for rows.Next() {
		var l domain.TableLink
		if err := rows.Scan(&l.PrimaryTable, &l.PrimaryKey, &l.ForeignTable, &l.ForeignKey); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func scanTable(s scanner) (*domain.CatalogTable, error) {
	var (
		t             domain.CatalogTable
		queryBased    int
		hidden        int
		encodedColumn string
	)
	if err := s.Scan(&t.DataSource, &t.Name, &t.Label, &queryBased, &hidden, &encodedColumn); err != nil {
		return nil, err
	}
	t.IsQueryBased = queryBased == 1
	t.Hidden = hidden == 1
	if err := json.Unmarshal([]byte(encodedColumn), &t.Columns); err != nil {
		return nil, fmt.Errorf("failed to decode columns of %s: %w", t.Name, err)
	}
	return &t, nil
}
