package sqlite

const (
	versionSQL = `SELECT sqlite_version()`

	tableExistsSQL = `SELECT COUNT(*) FROM sqlite_master WHERE type IN ('table', 'view') AND name = ?`

	listTablesSQL = `SELECT name FROM sqlite_master
WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%'
ORDER BY name`

	listColumnsSQL = `SELECT name, type FROM pragma_table_info(?) ORDER BY cid`

	foreignKeysSQL = `SELECT fk."table", fk."to", m.name, fk."from"
FROM sqlite_master m, pragma_foreign_key_list(m.name) fk
WHERE m.type = 'table' AND fk."to" IS NOT NULL
ORDER BY m.name, fk.id, fk.seq`
)
