package dialect

import (
	"fmt"
	"strings"

	"db-extend/internal/schema"
)

// SQLiteDialect targets modernc.org/sqlite. SQLite can only add columns to an
// existing table, so foreign keys are declared inline at creation time.
type SQLiteDialect struct{}

var sqliteTypes = typeMap{
	"int":      "INTEGER",
	"integer":  "INTEGER",
	"bigint":   "INTEGER",
	"smallint": "INTEGER",
	"decimal":  "NUMERIC",
	"float":    "REAL",
	"bool":     "INTEGER",
	"boolean":  "INTEGER",
	"string":   "VARCHAR(%d)",
	"varchar":  "VARCHAR(%d)",
	"text":     "TEXT",
	"datetime": "DATETIME",
	"date":     "DATE",
	"blob":     "BLOB",
	"uuid":     "TEXT",
}

func (d *SQLiteDialect) Name() string { return "sqlite" }

// The "? IS NOT NULL" guards consume the schema argument passed by the analyzer.

func (d *SQLiteDialect) GetTablesQuery(schema string) string {
	return `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' AND ? IS NOT NULL ORDER BY name`
}

func (d *SQLiteDialect) GetColumnsQuery(schema string) string {
	return `SELECT
    m.name,
    p.name,
    p.type,
    NULL,
    CASE WHEN p."notnull" = 0 AND p.pk = 0 THEN 'YES' ELSE 'NO' END,
    CASE WHEN p.pk > 0 THEN 'PRI' ELSE '' END,
    CASE WHEN p.pk > 0 AND upper(m.sql) LIKE '%AUTOINCREMENT%' THEN 'auto_increment' ELSE p.dflt_value END,
    NULL
FROM sqlite_master m
JOIN pragma_table_info(m.name) p
WHERE m.type = 'table' AND m.name NOT LIKE 'sqlite_%' AND ? IS NOT NULL
ORDER BY m.name, p.cid`
}

func (d *SQLiteDialect) GetForeignKeysQuery(schema string) string {
	// SQLite does not keep constraint names; one is derived from the table and the key id.
	return `SELECT m.name, 'FK_' || m.name || '_' || f.id, f."from", f."table", f."to"
FROM sqlite_master m
JOIN pragma_foreign_key_list(m.name) f
WHERE m.type = 'table' AND m.name NOT LIKE 'sqlite_%' AND ? IS NOT NULL
ORDER BY m.name, f.id, f.seq`
}

func (d *SQLiteDialect) GetIndexesQuery(schema string) string {
	return `SELECT m.name, il.name, ii.name, CASE WHEN il."unique" = 1 THEN 'YES' ELSE 'NO' END
FROM sqlite_master m
JOIN pragma_index_list(m.name) il
JOIN pragma_index_info(il.name) ii
WHERE m.type = 'table' AND m.name NOT LIKE 'sqlite_%' AND il.origin <> 'pk' AND ? IS NOT NULL
ORDER BY m.name, il.name, ii.seqno`
}

func (d *SQLiteDialect) QuoteIdentifier(name string) string {
	return quoteWith(`"`, `"`, name)
}

func (d *SQLiteDialect) Placeholder(index int) string {
	return "?"
}

func (d *SQLiteDialect) Capabilities() Capabilities {
	return Capabilities{}
}

func (d *SQLiteDialect) ColumnType(col *schema.Column) string {
	return sqliteTypes.native(col)
}

func (d *SQLiteDialect) CreateTable(t *schema.Table) (string, error) {
	pk := t.PrimaryKey()
	if len(pk) != 1 || !pk[0].IsAutoInc {
		return createTable(d, t, "", true)
	}

	// AUTOINCREMENT is only allowed on an INTEGER PRIMARY KEY column definition.
	var defs []string
	for _, c := range t.Columns {
		if c == pk[0] {
			defs = append(defs, fmt.Sprintf("%s INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL", d.QuoteIdentifier(c.Name)))
			continue
		}
		defs = append(defs, columnDefinition(d, c, ""))
	}
	for _, fk := range t.ForeignKeys {
		defs = append(defs, foreignKeyClause(d, fk))
	}
	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", d.QuoteIdentifier(t.Name), strings.Join(defs, ",\n  ")), nil
}

func (d *SQLiteDialect) AddColumn(table string, col *schema.Column, alter bool) (string, error) {
	if alter {
		return "", fmt.Errorf("alter column %s.%s: %w", table, col.Name, ErrUnsupported)
	}
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", d.QuoteIdentifier(table), columnDefinition(d, col, "")), nil
}

func (d *SQLiteDialect) CreateIndex(table string, idx *schema.Index) (string, error) {
	return createIndex(d, table, idx)
}

func (d *SQLiteDialect) DropIndex(table, name string) (string, error) {
	return fmt.Sprintf("DROP INDEX %s", d.QuoteIdentifier(name)), nil
}

func (d *SQLiteDialect) AddConstraint(table string, idx *schema.Index) (string, error) {
	return "", fmt.Errorf("add constraint %s: %w", idx.Name, ErrUnsupported)
}

func (d *SQLiteDialect) DropConstraint(table, name string) (string, error) {
	return "", fmt.Errorf("drop constraint %s: %w", name, ErrUnsupported)
}

func (d *SQLiteDialect) CreateForeignKey(table string, fk *schema.ForeignKey) (string, error) {
	return "", fmt.Errorf("create foreign key %s: %w", fk.Name, ErrUnsupported)
}

func (d *SQLiteDialect) DropForeignKey(table, name string) (string, error) {
	return "", fmt.Errorf("drop foreign key %s: %w", name, ErrUnsupported)
}

func (d *SQLiteDialect) UpsertQuery(table string, keyCols, cols []string) string {
	all := append(append([]string{}, keyCols...), cols...)
	base := insertInto(d, table, all)
	if len(cols) == 0 {
		return fmt.Sprintf("%s ON CONFLICT (%s) DO NOTHING", base, QuoteList(d, keyCols))
	}
	return fmt.Sprintf("%s ON CONFLICT (%s) DO UPDATE SET %s", base, QuoteList(d, keyCols),
		upsertAssignments(d, cols, "excluded.%s"))
}

// TruncateQuery uses DELETE; SQLite has no TRUNCATE.
func (d *SQLiteDialect) TruncateQuery(table string) string {
	return fmt.Sprintf("DELETE FROM %s", d.QuoteIdentifier(table))
}

func (d *SQLiteDialect) NormalizeType(sqlType string) string {
	t := strings.ToLower(stripSize(sqlType))
	switch t {
	case "integer", "int":
		return "int"
	case "varchar", "nvarchar", "char":
		return "string"
	case "real", "double":
		return "float"
	case "numeric":
		return "decimal"
	}
	return t
}

func (d *SQLiteDialect) GetSchemaName(input string) string {
	if input == "" {
		return "main"
	}
	return input
}

func (d *SQLiteDialect) GetLimitRowQuery(query string, limit int) string {
	return fmt.Sprintf("%s LIMIT %d", query, limit)
}
