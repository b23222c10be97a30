package dialect

import (
	"fmt"
	"strings"

	"db-extend/internal/schema"
)

type PostgresDialect struct{}

var postgresTypes = typeMap{
	"int":      "INTEGER",
	"integer":  "INTEGER",
	"bigint":   "BIGINT",
	"smallint": "SMALLINT",
	"decimal":  "NUMERIC(18,4)",
	"float":    "DOUBLE PRECISION",
	"bool":     "BOOLEAN",
	"boolean":  "BOOLEAN",
	"string":   "VARCHAR(%d)",
	"varchar":  "VARCHAR(%d)",
	"text":     "TEXT",
	"datetime": "TIMESTAMP",
	"date":     "DATE",
	"blob":     "BYTEA",
	"uuid":     "UUID",
}

func (d *PostgresDialect) Name() string { return "postgres" }

func (d *PostgresDialect) GetTablesQuery(schema string) string {
	// use $1 placeholder
	return `SELECT TABLE_NAME FROM information_schema.TABLES WHERE TABLE_SCHEMA = $1 AND TABLE_TYPE = 'BASE TABLE'`
}

func (d *PostgresDialect) GetColumnsQuery(schema string) string {
	// COLUMN_DEFAULT stands in for MySQL's EXTRA so identity/nextval columns are detected.
	return `SELECT
    c.table_name,
    c.column_name,
    c.data_type,
    c.character_maximum_length,
    c.is_nullable,
    (SELECT 'PRI' FROM information_schema.table_constraints tc
     JOIN information_schema.key_column_usage kcu ON tc.constraint_name = kcu.constraint_name
     WHERE tc.constraint_type = 'PRIMARY KEY'
     AND kcu.table_schema = c.table_schema AND kcu.table_name = c.table_name AND kcu.column_name = c.column_name LIMIT 1) AS COLUMN_KEY,
    CASE WHEN c.is_identity = 'YES' THEN 'identity' ELSE c.column_default END,
    (SELECT 'UNIQUE' FROM information_schema.table_constraints tc
     JOIN information_schema.key_column_usage kcu ON tc.constraint_name = kcu.constraint_name
     WHERE tc.constraint_type = 'UNIQUE'
     AND kcu.table_schema = c.table_schema AND kcu.table_name = c.table_name AND kcu.column_name = c.column_name LIMIT 1) AS IS_UNIQUE
FROM information_schema.columns c
WHERE c.table_schema = $1
ORDER BY c.table_name, c.ordinal_position`
}

func (d *PostgresDialect) GetForeignKeysQuery(schema string) string {
	return `SELECT kcu.table_name, kcu.constraint_name, kcu.column_name, ccu.table_name AS referenced_table_name, ccu.column_name AS referenced_column_name FROM information_schema.key_column_usage kcu JOIN information_schema.constraint_column_usage ccu ON kcu.constraint_name = ccu.constraint_name JOIN information_schema.table_constraints tc ON kcu.constraint_name = tc.constraint_name WHERE kcu.table_schema = $1 AND tc.constraint_type = 'FOREIGN KEY' ORDER BY kcu.table_name, kcu.constraint_name, kcu.ordinal_position`
}

func (d *PostgresDialect) GetIndexesQuery(schema string) string {
	return `SELECT t.relname, i.relname, a.attname, CASE WHEN ix.indisunique THEN 'YES' ELSE 'NO' END
FROM pg_index ix
JOIN pg_class t ON t.oid = ix.indrelid
JOIN pg_class i ON i.oid = ix.indexrelid
JOIN pg_namespace n ON n.oid = t.relnamespace
JOIN LATERAL unnest(ix.indkey) WITH ORDINALITY AS k(attnum, ord) ON true
JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
WHERE n.nspname = $1 AND NOT ix.indisprimary
ORDER BY t.relname, i.relname, k.ord`
}

func (d *PostgresDialect) QuoteIdentifier(name string) string {
	return quoteWith(`"`, `"`, name)
}

func (d *PostgresDialect) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index+1)
}

func (d *PostgresDialect) Capabilities() Capabilities {
	return Capabilities{AlterColumn: true, AlterConstraints: true}
}

func (d *PostgresDialect) ColumnType(col *schema.Column) string {
	return postgresTypes.native(col)
}

func (d *PostgresDialect) CreateTable(t *schema.Table) (string, error) {
	return createTable(d, t, "GENERATED BY DEFAULT AS IDENTITY", false)
}

func (d *PostgresDialect) AddColumn(table string, col *schema.Column, alter bool) (string, error) {
	if alter {
		// Widening only touches the type; nullability is left as it is.
		return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s",
			d.QuoteIdentifier(table), d.QuoteIdentifier(col.Name), d.ColumnType(col)), nil
	}
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", d.QuoteIdentifier(table),
		columnDefinition(d, col, "GENERATED BY DEFAULT AS IDENTITY")), nil
}

func (d *PostgresDialect) CreateIndex(table string, idx *schema.Index) (string, error) {
	return createIndex(d, table, idx)
}

func (d *PostgresDialect) DropIndex(table, name string) (string, error) {
	return fmt.Sprintf("DROP INDEX %s", d.QuoteIdentifier(name)), nil
}

func (d *PostgresDialect) AddConstraint(table string, idx *schema.Index) (string, error) {
	return addUniqueConstraint(d, table, idx)
}

func (d *PostgresDialect) DropConstraint(table, name string) (string, error) {
	return dropConstraint(d, table, name)
}

func (d *PostgresDialect) CreateForeignKey(table string, fk *schema.ForeignKey) (string, error) {
	return addForeignKey(d, table, fk)
}

func (d *PostgresDialect) DropForeignKey(table, name string) (string, error) {
	return dropConstraint(d, table, name)
}

func (d *PostgresDialect) UpsertQuery(table string, keyCols, cols []string) string {
	all := append(append([]string{}, keyCols...), cols...)
	base := insertInto(d, table, all)
	if len(cols) == 0 {
		return fmt.Sprintf("%s ON CONFLICT (%s) DO NOTHING", base, QuoteList(d, keyCols))
	}
	return fmt.Sprintf("%s ON CONFLICT (%s) DO UPDATE SET %s", base, QuoteList(d, keyCols),
		upsertAssignments(d, cols, "EXCLUDED.%s"))
}

func (d *PostgresDialect) TruncateQuery(table string) string {
	return fmt.Sprintf("TRUNCATE TABLE %s CASCADE", d.QuoteIdentifier(table))
}

func (d *PostgresDialect) NormalizeType(sqlType string) string {
	t := strings.ToLower(stripSize(sqlType))
	switch t {
	case "int4", "int2", "integer":
		return "int"
	case "int8":
		return "bigint"
	case "float4", "real":
		return "float"
	case "float8", "double precision":
		return "float"
	case "bpchar", "character":
		return "char"
	case "varchar", "character varying":
		return "string"
	case "timestamp without time zone", "timestamp with time zone", "timestamp":
		return "datetime"
	case "numeric":
		return "decimal"
	case "bytea":
		return "blob"
	default:
		return t
	}
}

func (d *PostgresDialect) GetSchemaName(input string) string {
	if input == "" {
		return "public"
	}
	return input
}

func (d *PostgresDialect) GetLimitRowQuery(query string, limit int) string {
	return fmt.Sprintf("%s LIMIT %d", query, limit)
}
