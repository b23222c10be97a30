package dialect

import (
	"fmt"
	"strings"

	"db-extend/internal/schema"
)

type MysqlDialect struct{}

var mysqlTypes = typeMap{
	"int":      "INT",
	"integer":  "INT",
	"bigint":   "BIGINT",
	"smallint": "SMALLINT",
	"decimal":  "DECIMAL(18,4)",
	"float":    "DOUBLE",
	"bool":     "TINYINT(1)",
	"boolean":  "TINYINT(1)",
	"string":   "VARCHAR(%d)",
	"varchar":  "VARCHAR(%d)",
	"text":     "LONGTEXT",
	"datetime": "DATETIME",
	"date":     "DATE",
	"blob":     "LONGBLOB",
	"uuid":     "CHAR(36)",
}

func (d *MysqlDialect) Name() string { return "mysql" }

func (d *MysqlDialect) GetTablesQuery(schema string) string {
	return `SELECT TABLE_NAME FROM information_schema.TABLES WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE'`
}

func (d *MysqlDialect) GetColumnsQuery(schema string) string {
	return `SELECT TABLE_NAME, COLUMN_NAME, DATA_TYPE, CHARACTER_MAXIMUM_LENGTH, IS_NULLABLE, COLUMN_KEY, EXTRA, IF(COLUMN_KEY='UNI', 'UNIQUE', NULL) AS IS_UNIQUE FROM information_schema.COLUMNS WHERE TABLE_SCHEMA = ? ORDER BY TABLE_NAME, ORDINAL_POSITION`
}

func (d *MysqlDialect) GetForeignKeysQuery(schema string) string {
	return `SELECT TABLE_NAME, CONSTRAINT_NAME, COLUMN_NAME, REFERENCED_TABLE_NAME, REFERENCED_COLUMN_NAME FROM information_schema.KEY_COLUMN_USAGE WHERE TABLE_SCHEMA = ? AND REFERENCED_TABLE_NAME IS NOT NULL ORDER BY TABLE_NAME, CONSTRAINT_NAME, ORDINAL_POSITION`
}

func (d *MysqlDialect) GetIndexesQuery(schema string) string {
	return `SELECT TABLE_NAME, INDEX_NAME, COLUMN_NAME, IF(NON_UNIQUE = 0, 'YES', 'NO') FROM information_schema.STATISTICS WHERE TABLE_SCHEMA = ? AND INDEX_NAME <> 'PRIMARY' ORDER BY TABLE_NAME, INDEX_NAME, SEQ_IN_INDEX`
}

func (d *MysqlDialect) QuoteIdentifier(name string) string {
	return quoteWith("`", "`", name)
}

func (d *MysqlDialect) Placeholder(index int) string {
	return "?"
}

func (d *MysqlDialect) Capabilities() Capabilities {
	return Capabilities{AlterColumn: true, AlterConstraints: true}
}

func (d *MysqlDialect) ColumnType(col *schema.Column) string {
	return mysqlTypes.native(col)
}

func (d *MysqlDialect) CreateTable(t *schema.Table) (string, error) {
	return createTable(d, t, "AUTO_INCREMENT", false)
}

func (d *MysqlDialect) AddColumn(table string, col *schema.Column, alter bool) (string, error) {
	verb := "ADD COLUMN"
	if alter {
		verb = "MODIFY COLUMN"
	}
	return fmt.Sprintf("ALTER TABLE %s %s %s", d.QuoteIdentifier(table), verb, columnDefinition(d, col, "AUTO_INCREMENT")), nil
}

func (d *MysqlDialect) CreateIndex(table string, idx *schema.Index) (string, error) {
	return createIndex(d, table, idx)
}

func (d *MysqlDialect) DropIndex(table, name string) (string, error) {
	return fmt.Sprintf("DROP INDEX %s ON %s", d.QuoteIdentifier(name), d.QuoteIdentifier(table)), nil
}

func (d *MysqlDialect) AddConstraint(table string, idx *schema.Index) (string, error) {
	return addUniqueConstraint(d, table, idx)
}

func (d *MysqlDialect) DropConstraint(table, name string) (string, error) {
	return dropConstraint(d, table, name)
}

func (d *MysqlDialect) CreateForeignKey(table string, fk *schema.ForeignKey) (string, error) {
	return addForeignKey(d, table, fk)
}

func (d *MysqlDialect) DropForeignKey(table, name string) (string, error) {
	return fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s", d.QuoteIdentifier(table), d.QuoteIdentifier(name)), nil
}

func (d *MysqlDialect) UpsertQuery(table string, keyCols, cols []string) string {
	all := append(append([]string{}, keyCols...), cols...)
	base := insertInto(d, table, all)
	if len(cols) == 0 {
		// MySQL has no DO NOTHING; a self-assignment keeps the row untouched.
		return fmt.Sprintf("%s ON DUPLICATE KEY UPDATE %s", base, upsertAssignments(d, keyCols[:1], "%s"))
	}
	return fmt.Sprintf("%s ON DUPLICATE KEY UPDATE %s", base, upsertAssignments(d, cols, "VALUES(%s)"))
}

func (d *MysqlDialect) TruncateQuery(table string) string {
	return fmt.Sprintf("TRUNCATE TABLE %s", d.QuoteIdentifier(table))
}

func (d *MysqlDialect) NormalizeType(sqlType string) string {
	t := DefaultNormalizeType(stripSize(sqlType))
	switch t {
	case "varchar":
		return "string"
	case "longtext", "mediumtext":
		return "text"
	case "double":
		return "float"
	case "longblob", "mediumblob":
		return "blob"
	}
	return strings.TrimSpace(t)
}

func (d *MysqlDialect) GetSchemaName(input string) string {
	return DefaultGetSchemaName(input)
}

func (d *MysqlDialect) GetLimitRowQuery(query string, limit int) string {
	return fmt.Sprintf("%s LIMIT %d", query, limit)
}
