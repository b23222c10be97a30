package dialect

import (
	"errors"

	"db-extend/internal/schema"
)

// ErrUnsupported is returned by DDL builders for changes a vendor cannot express.
var ErrUnsupported = errors.New("unsupported by dialect")

// Capabilities reports which structural changes a dialect can apply to an existing table.
type Capabilities struct {
	// AlterColumn: widen an existing column in place.
	AlterColumn bool
	// AlterConstraints: add or drop constraints and foreign keys after CREATE TABLE.
	// Dialects without it declare foreign keys inline in CreateTable.
	AlterConstraints bool
}

// Dialect abstracts database-specific operations.
type Dialect interface {
	Name() string

	// Metadata Queries (Schema Introspection)
	GetTablesQuery(schema string) string
	GetColumnsQuery(schema string) string
	GetForeignKeysQuery(schema string) string
	GetIndexesQuery(schema string) string

	// Identifiers and parameters
	QuoteIdentifier(name string) string
	Placeholder(index int) string // Returns ?, $1, @p1, :1

	// DDL Generation
	Capabilities() Capabilities
	ColumnType(col *schema.Column) string
	CreateTable(t *schema.Table) (string, error)
	// AddColumn adds col to table, or widens the existing column when alter is set.
	AddColumn(table string, col *schema.Column, alter bool) (string, error)
	CreateIndex(table string, idx *schema.Index) (string, error)
	DropIndex(table, name string) (string, error)
	AddConstraint(table string, idx *schema.Index) (string, error)
	DropConstraint(table, name string) (string, error)
	CreateForeignKey(table string, fk *schema.ForeignKey) (string, error)
	DropForeignKey(table, name string) (string, error)

	// Helpers
	TruncateQuery(table string) string
	NormalizeType(sqlType string) string
	GetSchemaName(input string) string
	GetLimitRowQuery(query string, limit int) string
}

// Merger is implemented by dialects with a native conditional write.
type Merger interface {
	// UpsertQuery inserts keyCols+cols, updating cols when a row with the same keys exists.
	UpsertQuery(table string, keyCols, cols []string) string
}
