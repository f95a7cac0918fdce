package database

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"github.com/xuri/excelize/v2"

	"github.com/satishbabariya/insights-go/internal/core/query/domain"
	"github.com/satishbabariya/insights-go/internal/debug"
)

var validate = validator.New()

// ImportData is a parsed import file.
type ImportData struct {
	Columns []domain.TableColumn
	Rows    [][]any
}

// ReadImportFile reads the file named by spec from fs. The first row holds
// the column names; column types are inferred unless spec overrides them.
func ReadImportFile(fs afero.Fs, spec domain.ImportSpec) (*ImportData, error) {
	if err := validate.Struct(spec); err != nil {
		return nil, fmt.Errorf("invalid import: %w", err)
	}

	format := spec.Format
	if format == "" {
		format = domain.ImportFormat(strings.TrimPrefix(strings.ToLower(filepath.Ext(spec.Source)), "."))
	}

	f, err := fs.Open(spec.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", spec.Source, err)
	}
	defer f.Close()

	var records [][]string
	switch format {
	case domain.ImportCSV:
		records, err = readCSV(f, spec.Delimiter)
	case domain.ImportXLSX:
		records, err = readXLSX(f, spec.Sheet)
	default:
		return nil, fmt.Errorf("unsupported import format %q", format)
	}
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s has no header row", spec.Source)
	}

	return buildImport(records[0], records[1:], spec.Columns)
}

func readCSV(r io.Reader, delimiter rune) ([][]string, error) {
	cr := csv.NewReader(r)
	if delimiter != 0 {
		cr.Comma = delimiter
	}
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return records, nil
}

func readXLSX(r io.Reader, sheet string) ([][]string, error) {
	file, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer file.Close()

	if sheet == "" {
		sheets := file.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	rows, err := file.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	return rows, nil
}

func buildImport(header []string, records [][]string, overrides []domain.ImportColumn) (*ImportData, error) {
	cols := make([]domain.TableColumn, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		cols[i] = domain.TableColumn{Name: name, Label: TitleCase(name), Type: inferImportType(records, i)}
	}
	for i, o := range overrides {
		if i >= len(cols) {
			return nil, fmt.Errorf("import defines %d columns but the file has %d", len(overrides), len(cols))
		}
		cols[i].Name = o.Name
		cols[i].Label = TitleCase(o.Name)
		if o.Type != "" {
			cols[i].Type = o.Type
		}
	}

	rows := make([][]any, len(records))
	for r, rec := range records {
		row := make([]any, len(cols))
		for i := range cols {
			if i < len(rec) {
				row[i] = importValue(rec[i], cols[i].Type)
			}
		}
		rows[r] = row
	}
	return &ImportData{Columns: cols, Rows: rows}, nil
}

func inferImportType(records [][]string, i int) domain.ColumnType {
	t := domain.ColumnType("")
	for _, rec := range records {
		if i >= len(rec) || strings.TrimSpace(rec[i]) == "" {
			continue
		}
		v := strings.TrimSpace(rec[i])
		switch {
		case isInt(v) && (t == "" || t == domain.TypeInteger):
			t = domain.TypeInteger
		case isFloat(v) && (t == "" || t == domain.TypeInteger || t == domain.TypeFloat):
			t = domain.TypeFloat
		default:
			return domain.TypeString
		}
	}
	if t == "" {
		return domain.TypeString
	}
	return t
}

func isInt(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

func isFloat(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func importValue(s string, t domain.ColumnType) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	switch t {
	case domain.TypeInteger:
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
	case domain.TypeFloat:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}

// LoadTable writes data into spec.Table in one transaction, honouring
// spec.IfExists. exists reports whether the table is already there.
func (b *Base) LoadTable(ctx context.Context, spec domain.ImportSpec, data *ImportData, exists bool) error {
	table := b.dialect.QuoteIdentifier(spec.Table)
	ifExists := spec.IfExists
	if ifExists == "" {
		ifExists = domain.IfExistsFail
	}
	if exists && ifExists == domain.IfExistsFail {
		return fmt.Errorf("table %s already exists", spec.Table)
	}

	tx, err := b.pool.DB().BeginTx(ctx, nil)
	if err != nil {
		return &domain.ConnectionError{DataSource: b.cfg.Name, Cause: err}
	}
	defer func() { _ = tx.Rollback() }()

	if exists && ifExists == domain.IfExistsReplace {
		if _, err := tx.ExecContext(ctx, "DROP TABLE "+table); err != nil {
			return fmt.Errorf("failed to drop %s: %w", spec.Table, err)
		}
		exists = false
	}

	if !exists {
		defs := make([]string, len(data.Columns))
		for i, c := range data.Columns {
			defs[i] = b.dialect.QuoteIdentifier(c.Name) + " " + columnSQLType(b.dialect.Name(), c.Type)
		}
		ddl := fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(defs, ", "))
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("failed to create %s: %w", spec.Table, err)
		}
	}

	names := make([]string, len(data.Columns))
	marks := make([]string, len(data.Columns))
	for i, c := range data.Columns {
		names[i] = b.dialect.QuoteIdentifier(c.Name)
		marks[i] = placeholder(b.dialect.Name(), i+1)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(names, ", "), strings.Join(marks, ", ")))
	if err != nil {
		return fmt.Errorf("failed to prepare insert into %s: %w", spec.Table, err)
	}
	defer stmt.Close()

	for _, row := range data.Rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", spec.Table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import into %s: %w", spec.Table, err)
	}
	debug.Info("Imported table", "data_source", b.cfg.Name, "table", spec.Table, "rows", len(data.Rows))
	return nil
}

// Import reads spec's file and loads it. exists is the backend's TableExists.
func (b *Base) Import(ctx context.Context, spec domain.ImportSpec, exists func(context.Context, string) (bool, error)) (*ImportData, error) {
	data, err := ReadImportFile(b.fs, spec)
	if err != nil {
		return nil, err
	}
	ok, err := exists(ctx, spec.Table)
	if err != nil {
		return nil, err
	}
	if err := b.LoadTable(ctx, spec, data, ok); err != nil {
		return nil, err
	}
	return data, nil
}

func columnSQLType(d domain.SQLDialect, t domain.ColumnType) string {
	switch t {
	case domain.TypeInteger:
		return "BIGINT"
	case domain.TypeFloat:
		if d == domain.PostgreSQL {
			return "DOUBLE PRECISION"
		}
		return "DOUBLE"
	case domain.TypeBoolean:
		return "BOOLEAN"
	case domain.TypeDate:
		return "DATE"
	case domain.TypeDatetime:
		if d == domain.PostgreSQL || d == domain.DuckDB {
			return "TIMESTAMP"
		}
		return "DATETIME"
	default:
		return "TEXT"
	}
}

func placeholder(d domain.SQLDialect, n int) string {
	if d == domain.PostgreSQL {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}
