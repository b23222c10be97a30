package dialect

import (
	"fmt"
	"strings"

	"db-extend/internal/schema"
)

type OracleDialect struct{}

var oracleTypes = typeMap{
	"int":      "NUMBER(10)",
	"integer":  "NUMBER(10)",
	"bigint":   "NUMBER(19)",
	"smallint": "NUMBER(5)",
	"decimal":  "NUMBER(18,4)",
	"float":    "BINARY_DOUBLE",
	"bool":     "NUMBER(1)",
	"boolean":  "NUMBER(1)",
	"string":   "VARCHAR2(%d)",
	"varchar":  "VARCHAR2(%d)",
	"text":     "CLOB",
	"datetime": "TIMESTAMP",
	"date":     "DATE",
	"blob":     "BLOB",
	"uuid":     "CHAR(36)",
}

func (d *OracleDialect) Name() string { return "oracle" }

func (d *OracleDialect) GetTablesQuery(schema string) string {
	// USER_TABLES lists tables owned by the current user.
	// We include a dummy clause to consume the schema argument if passed by standard callers.
	return `SELECT TABLE_NAME FROM USER_TABLES WHERE :1 IS NOT NULL`
}

func (d *OracleDialect) GetColumnsQuery(schema string) string {
	// We join with USER_CONS_COLUMNS to identify Primary Keys (P) and Unique (U) constraints.
	return `
SELECT
    t.TABLE_NAME,
    t.COLUMN_NAME,
    CASE
        WHEN t.DATA_TYPE = 'NUMBER' AND COALESCE(t.DATA_SCALE, 0) > 0 THEN 'DECIMAL'
        WHEN t.DATA_TYPE = 'NUMBER' THEN 'INTEGER'
        ELSE t.DATA_TYPE
    END,
    CASE WHEN t.DATA_TYPE LIKE '%CHAR%' THEN t.CHAR_LENGTH ELSE NULL END,
    CASE WHEN t.NULLABLE = 'Y' THEN 'YES' ELSE 'NO' END,
    CASE WHEN p.CONSTRAINT_NAME IS NOT NULL THEN 'PRI' ELSE '' END,
    CASE WHEN t.IDENTITY_COLUMN = 'YES' THEN 'auto_increment' ELSE '' END,
    CASE WHEN u.CONSTRAINT_NAME IS NOT NULL THEN 'UNIQUE' ELSE '' END
FROM USER_TAB_COLUMNS t
LEFT JOIN (
    SELECT cc.TABLE_NAME, cc.COLUMN_NAME, cc.CONSTRAINT_NAME
    FROM USER_CONS_COLUMNS cc
    JOIN USER_CONSTRAINTS uc ON cc.CONSTRAINT_NAME = uc.CONSTRAINT_NAME
    WHERE uc.CONSTRAINT_TYPE = 'P'
) p ON t.TABLE_NAME = p.TABLE_NAME AND t.COLUMN_NAME = p.COLUMN_NAME
LEFT JOIN (
    SELECT cc.TABLE_NAME, cc.COLUMN_NAME, cc.CONSTRAINT_NAME
    FROM USER_CONS_COLUMNS cc
    JOIN USER_CONSTRAINTS uc ON cc.CONSTRAINT_NAME = uc.CONSTRAINT_NAME
    WHERE uc.CONSTRAINT_TYPE = 'U'
) u ON t.TABLE_NAME = u.TABLE_NAME AND t.COLUMN_NAME = u.COLUMN_NAME
WHERE :1 IS NOT NULL
ORDER BY t.TABLE_NAME, t.COLUMN_ID`
}

func (d *OracleDialect) GetForeignKeysQuery(schema string) string {
	return `
SELECT
    c.TABLE_NAME,
    c.CONSTRAINT_NAME,
    cc.COLUMN_NAME,
    r.TABLE_NAME AS REF_TABLE,
    rcc.COLUMN_NAME AS REF_COLUMN
FROM USER_CONSTRAINTS c
JOIN USER_CONS_COLUMNS cc
    ON c.CONSTRAINT_NAME = cc.CONSTRAINT_NAME
    AND c.OWNER = cc.OWNER
JOIN USER_CONSTRAINTS r
    ON c.R_CONSTRAINT_NAME = r.CONSTRAINT_NAME
    AND c.R_OWNER = r.OWNER
JOIN USER_CONS_COLUMNS rcc
    ON r.CONSTRAINT_NAME = rcc.CONSTRAINT_NAME
    AND r.OWNER = rcc.OWNER
    AND cc.POSITION = rcc.POSITION
WHERE c.CONSTRAINT_TYPE = 'R'
AND :1 IS NOT NULL
ORDER BY c.TABLE_NAME, c.CONSTRAINT_NAME, cc.POSITION`
}

func (d *OracleDialect) GetIndexesQuery(schema string) string {
	// Indexes backing the primary key are reported through the columns query.
	return `
SELECT
    ic.TABLE_NAME,
    ic.INDEX_NAME,
    ic.COLUMN_NAME,
    CASE WHEN i.UNIQUENESS = 'UNIQUE' THEN 'YES' ELSE 'NO' END
FROM USER_IND_COLUMNS ic
JOIN USER_INDEXES i ON ic.INDEX_NAME = i.INDEX_NAME
WHERE NOT EXISTS (
    SELECT 1 FROM USER_CONSTRAINTS c
    WHERE c.CONSTRAINT_TYPE = 'P' AND c.INDEX_NAME = i.INDEX_NAME
)
AND :1 IS NOT NULL
ORDER BY ic.TABLE_NAME, ic.INDEX_NAME, ic.COLUMN_POSITION`
}

// QuoteIdentifier quotes names, which makes them case sensitive in Oracle.
// Every statement goes through here so the casing stays consistent.
func (d *OracleDialect) QuoteIdentifier(name string) string {
	return quoteWith(`"`, `"`, name)
}

func (d *OracleDialect) Placeholder(index int) string {
	// Oracle uses :1, :2, etc. (1-based index)
	return fmt.Sprintf(":%d", index+1)
}

func (d *OracleDialect) Capabilities() Capabilities {
	return Capabilities{AlterColumn: true, AlterConstraints: true}
}

func (d *OracleDialect) ColumnType(col *schema.Column) string {
	return oracleTypes.native(col)
}

func (d *OracleDialect) CreateTable(t *schema.Table) (string, error) {
	return createTable(d, t, "GENERATED BY DEFAULT AS IDENTITY", false)
}

func (d *OracleDialect) AddColumn(table string, col *schema.Column, alter bool) (string, error) {
	if alter {
		return fmt.Sprintf("ALTER TABLE %s MODIFY (%s %s)",
			d.QuoteIdentifier(table), d.QuoteIdentifier(col.Name), d.ColumnType(col)), nil
	}
	return fmt.Sprintf("ALTER TABLE %s ADD (%s)", d.QuoteIdentifier(table),
		columnDefinition(d, col, "GENERATED BY DEFAULT AS IDENTITY")), nil
}

func (d *OracleDialect) CreateIndex(table string, idx *schema.Index) (string, error) {
	return createIndex(d, table, idx)
}

func (d *OracleDialect) DropIndex(table, name string) (string, error) {
	return fmt.Sprintf("DROP INDEX %s", d.QuoteIdentifier(name)), nil
}

func (d *OracleDialect) AddConstraint(table string, idx *schema.Index) (string, error) {
	return addUniqueConstraint(d, table, idx)
}

func (d *OracleDialect) DropConstraint(table, name string) (string, error) {
	return dropConstraint(d, table, name)
}

func (d *OracleDialect) CreateForeignKey(table string, fk *schema.ForeignKey) (string, error) {
	return addForeignKey(d, table, fk)
}

func (d *OracleDialect) DropForeignKey(table, name string) (string, error) {
	return dropConstraint(d, table, name)
}

func (d *OracleDialect) TruncateQuery(table string) string {
	return fmt.Sprintf("TRUNCATE TABLE %s", d.QuoteIdentifier(table))
}

func (d *OracleDialect) NormalizeType(sqlType string) string {
	s := strings.ToLower(sqlType)
	if strings.Contains(s, "clob") {
		return "text"
	}
	if strings.Contains(s, "char") {
		return "string"
	}
	if strings.Contains(s, "decimal") {
		return "decimal"
	}
	if strings.Contains(s, "int") || strings.Contains(s, "number") {
		return "int"
	}
	if strings.Contains(s, "float") || strings.Contains(s, "double") {
		return "float"
	}
	if strings.Contains(s, "date") || strings.Contains(s, "time") || strings.Contains(s, "year") {
		return "datetime"
	}
	return s
}

// GetSchemaName never returns "": Oracle binds an empty string as NULL,
// which would fail the ":1 IS NOT NULL" guard in every metadata query.
func (d *OracleDialect) GetSchemaName(input string) string {
	if input == "" {
		return "USER"
	}
	return input
}

func (d *OracleDialect) GetLimitRowQuery(query string, limit int) string {
	return fmt.Sprintf("SELECT * FROM (%s) WHERE ROWNUM <= %d", query, limit)
}
