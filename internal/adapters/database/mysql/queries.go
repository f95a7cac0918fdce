package mysql

const (
	versionSQL = `SELECT VERSION()`

	tableExistsSQL = `SELECT COUNT(*) FROM information_schema.tables
WHERE table_schema = DATABASE() AND table_name = ?`

	listTablesSQL = `SELECT table_name FROM information_schema.tables
WHERE table_schema = DATABASE()
ORDER BY table_name`

	listColumnsSQL = `SELECT column_name, column_type FROM information_schema.columns
WHERE table_schema = DATABASE() AND table_name = ?
ORDER BY ordinal_position`

	foreignKeysSQL = `SELECT referenced_table_name, referenced_column_name, table_name, column_name
FROM information_schema.key_column_usage
WHERE table_schema = DATABASE() AND referenced_table_name IS NOT NULL
ORDER BY table_name, column_name`
)
