package duckdb

const (
	versionSQL = `SELECT version()`

	tableExistsSQL = `SELECT COUNT(*) FROM information_schema.tables
WHERE table_schema = current_schema() AND table_name = ?`

	listTablesSQL = `SELECT table_name FROM information_schema.tables
WHERE table_schema = current_schema()
ORDER BY table_name`

	listColumnsSQL = `SELECT column_name, data_type FROM information_schema.columns
WHERE table_schema = current_schema() AND table_name = ?
ORDER BY ordinal_position`
)
