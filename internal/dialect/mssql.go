package dialect

import (
	"fmt"
	"strings"

	"db-extend/internal/schema"

	_ "github.com/denisenkom/go-mssqldb" // SQL Server Driver
)

type MSSQLDialect struct{}

var mssqlTypes = typeMap{
	"int":      "INT",
	"integer":  "INT",
	"bigint":   "BIGINT",
	"smallint": "SMALLINT",
	"decimal":  "DECIMAL(18,4)",
	"float":    "FLOAT",
	"bool":     "BIT",
	"boolean":  "BIT",
	"string":   "NVARCHAR(%d)",
	"varchar":  "NVARCHAR(%d)",
	"text":     "NVARCHAR(MAX)",
	"datetime": "DATETIME2",
	"date":     "DATE",
	"blob":     "VARBINARY(MAX)",
	"uuid":     "UNIQUEIDENTIFIER",
}

// Helper: MSSQL Driver (go-mssqldb) often prefers @p1, @p2 named parameters over ?
// especially when prepared statements are involved or simple Exec.

func (d *MSSQLDialect) Name() string { return "sqlserver" }

func (d *MSSQLDialect) GetTablesQuery(schema string) string {
	// Use @p1 for schema binding
	return `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = @p1 AND TABLE_TYPE = 'BASE TABLE'`
}

func (d *MSSQLDialect) GetColumnsQuery(schema string) string {
	// Include PK, UNIQUE constraints and Identity info
	return `
		SELECT
			c.TABLE_NAME,
			c.COLUMN_NAME,
			c.DATA_TYPE,
			c.CHARACTER_MAXIMUM_LENGTH,
			c.IS_NULLABLE,
			CASE WHEN pk.COLUMN_NAME IS NOT NULL THEN 'PRIMARY' ELSE '' END AS COLUMN_KEY,
			CASE
				WHEN COLUMNPROPERTY(OBJECT_ID(c.TABLE_SCHEMA + '.' + c.TABLE_NAME), c.COLUMN_NAME, 'IsIdentity') = 1 THEN 'identity'
				ELSE c.COLUMN_DEFAULT
			END AS COLUMN_DEFAULT,
			CASE WHEN uq.COLUMN_NAME IS NOT NULL THEN 'UNIQUE' ELSE '' END AS IS_UNIQUE
		FROM INFORMATION_SCHEMA.COLUMNS c
		LEFT JOIN (
			SELECT kcu.TABLE_NAME, kcu.COLUMN_NAME
			FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
			JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
				ON tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
			WHERE tc.CONSTRAINT_TYPE = 'PRIMARY KEY' AND tc.TABLE_SCHEMA = @p1
		) pk ON c.TABLE_NAME = pk.TABLE_NAME AND c.COLUMN_NAME = pk.COLUMN_NAME
		LEFT JOIN (
			SELECT kcu.TABLE_NAME, kcu.COLUMN_NAME
			FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
			JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
				ON tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
			WHERE tc.CONSTRAINT_TYPE = 'UNIQUE' AND tc.TABLE_SCHEMA = @p1
		) uq ON c.TABLE_NAME = uq.TABLE_NAME AND c.COLUMN_NAME = uq.COLUMN_NAME
		WHERE c.TABLE_SCHEMA = @p1
		ORDER BY c.TABLE_NAME, c.ORDINAL_POSITION
	`
}

func (d *MSSQLDialect) GetForeignKeysQuery(schema string) string {
	return `SELECT KCU1.TABLE_NAME, KCU1.CONSTRAINT_NAME, KCU1.COLUMN_NAME, KCU2.TABLE_NAME AS REF_TABLE, KCU2.COLUMN_NAME AS REF_COLUMN FROM INFORMATION_SCHEMA.REFERENTIAL_CONSTRAINTS RC JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE KCU1 ON RC.CONSTRAINT_NAME = KCU1.CONSTRAINT_NAME JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE KCU2 ON RC.UNIQUE_CONSTRAINT_NAME = KCU2.CONSTRAINT_NAME AND KCU1.ORDINAL_POSITION = KCU2.ORDINAL_POSITION WHERE KCU1.TABLE_SCHEMA = @p1 ORDER BY KCU1.TABLE_NAME, KCU1.CONSTRAINT_NAME, KCU1.ORDINAL_POSITION`
}

func (d *MSSQLDialect) GetIndexesQuery(schema string) string {
	return `
		SELECT
			t.name AS TABLE_NAME,
			idx.name AS INDEX_NAME,
			col.name AS COLUMN_NAME,
			CASE WHEN idx.is_unique = 1 THEN 'YES' ELSE 'NO' END
		FROM sys.indexes idx
		JOIN sys.index_columns ic ON idx.object_id = ic.object_id AND idx.index_id = ic.index_id
		JOIN sys.columns col ON ic.object_id = col.object_id AND ic.column_id = col.column_id
		JOIN sys.tables t ON idx.object_id = t.object_id
		JOIN sys.schemas s ON t.schema_id = s.schema_id
		WHERE idx.is_primary_key = 0
			AND idx.name IS NOT NULL
			AND s.name = @p1
		ORDER BY t.name, idx.name, ic.key_ordinal
	`
}

func (d *MSSQLDialect) QuoteIdentifier(name string) string {
	return quoteWith("[", "]", name)
}

func (d *MSSQLDialect) Placeholder(index int) string {
	return fmt.Sprintf("@p%d", index+1)
}

func (d *MSSQLDialect) Capabilities() Capabilities {
	return Capabilities{AlterColumn: true, AlterConstraints: true}
}

func (d *MSSQLDialect) ColumnType(col *schema.Column) string {
	return mssqlTypes.native(col)
}

func (d *MSSQLDialect) CreateTable(t *schema.Table) (string, error) {
	return createTable(d, t, "IDENTITY(1,1)", false)
}

func (d *MSSQLDialect) AddColumn(table string, col *schema.Column, alter bool) (string, error) {
	if alter {
		null := " NOT NULL"
		if col.IsNullable && !col.IsPK {
			null = " NULL"
		}
		return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s %s%s",
			d.QuoteIdentifier(table), d.QuoteIdentifier(col.Name), d.ColumnType(col), null), nil
	}
	// T-SQL has no COLUMN keyword after ADD.
	return fmt.Sprintf("ALTER TABLE %s ADD %s", d.QuoteIdentifier(table), columnDefinition(d, col, "IDENTITY(1,1)")), nil
}

func (d *MSSQLDialect) CreateIndex(table string, idx *schema.Index) (string, error) {
	return createIndex(d, table, idx)
}

func (d *MSSQLDialect) DropIndex(table, name string) (string, error) {
	return fmt.Sprintf("DROP INDEX %s ON %s", d.QuoteIdentifier(name), d.QuoteIdentifier(table)), nil
}

func (d *MSSQLDialect) AddConstraint(table string, idx *schema.Index) (string, error) {
	return addUniqueConstraint(d, table, idx)
}

func (d *MSSQLDialect) DropConstraint(table, name string) (string, error) {
	return dropConstraint(d, table, name)
}

func (d *MSSQLDialect) CreateForeignKey(table string, fk *schema.ForeignKey) (string, error) {
	return addForeignKey(d, table, fk)
}

func (d *MSSQLDialect) DropForeignKey(table, name string) (string, error) {
	return dropConstraint(d, table, name)
}

// TruncateQuery uses DELETE: TRUNCATE is refused on tables referenced by a foreign key.
func (d *MSSQLDialect) TruncateQuery(table string) string {
	return fmt.Sprintf("DELETE FROM %s", d.QuoteIdentifier(table))
}

func (d *MSSQLDialect) NormalizeType(sqlType string) string {
	t := strings.ToLower(stripSize(sqlType))
	switch t {
	case "nvarchar", "nchar", "varchar", "char":
		return "string"
	case "ntext":
		return "text"
	case "bit":
		return "bool"
	case "tinyint":
		return "tinyint" // 0-255
	case "decimal", "numeric", "money", "smallmoney":
		return "decimal"
	case "float", "real":
		return "float"
	case "datetime", "datetime2", "smalldatetime":
		return "datetime"
	case "image", "binary", "varbinary":
		return "blob"
	case "uniqueidentifier":
		return "uuid"
	default:
		return t
	}
}

func (d *MSSQLDialect) GetSchemaName(input string) string {
	if input == "" {
		return "dbo"
	}
	return input
}

func (d *MSSQLDialect) GetLimitRowQuery(query string, limit int) string {
	// Simple T-SQL TOP injection
	trimmed := strings.TrimSpace(query)
	if strings.HasPrefix(strings.ToUpper(trimmed), "SELECT") {
		// We assume standard generated queries.
		return strings.Replace(query, "SELECT", fmt.Sprintf("SELECT TOP %d", limit), 1)
	}
	return query
}
