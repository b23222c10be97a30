package dialect

import (
	"fmt"
	"regexp"
	"strings"

	"db-extend/internal/schema"
)

const defaultStringLength = 255

// GeneratePlaceholders is a helper function to create a slice of placeholder strings.
// It takes the number of placeholders needed and a function that returns the placeholder for a given index.
// It returns a comma-separated string of the generated placeholders.
func GeneratePlaceholders(count int, placeholderFunc func(int) string) string {
	placeholders := make([]string, count)
	for i := 0; i < count; i++ {
		placeholders[i] = placeholderFunc(i)
	}
	return strings.Join(placeholders, ", ")
}

// DefaultNormalizeType is a default implementation for type normalization (lowercase).
func DefaultNormalizeType(sqlType string) string {
	return strings.ToLower(sqlType)
}

// DefaultGetSchemaName is a default implementation for Getting Schema Name (identity).
func DefaultGetSchemaName(input string) string {
	return input
}

// QuoteList quotes each name and joins them with commas.
func QuoteList(d Dialect, names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = d.QuoteIdentifier(n)
	}
	return strings.Join(quoted, ", ")
}

func quoteWith(open, close, name string) string {
	return open + strings.ReplaceAll(name, close, close+close) + close
}

// typeMap maps declared types to native types. Entries containing %d take the column length.
type typeMap map[string]string

func (m typeMap) native(col *schema.Column) string {
	declared := strings.ToLower(col.DataType)
	t, ok := m[declared]
	if !ok {
		if col.Length > 0 {
			return fmt.Sprintf("%s(%d)", strings.ToUpper(col.DataType), col.Length)
		}
		return strings.ToUpper(col.DataType)
	}
	if strings.Contains(t, "%d") {
		length := col.Length
		if length <= 0 {
			length = defaultStringLength
		}
		return fmt.Sprintf(t, length)
	}
	return t
}

// columnDefinition renders "name type [identity] [DEFAULT x] [NOT] NULL".
func columnDefinition(d Dialect, col *schema.Column, identity string) string {
	var b strings.Builder
	b.WriteString(d.QuoteIdentifier(col.Name))
	b.WriteString(" ")
	b.WriteString(d.ColumnType(col))
	if col.IsAutoInc && identity != "" {
		b.WriteString(" ")
		b.WriteString(identity)
	}
	if col.Default != "" {
		b.WriteString(" DEFAULT ")
		b.WriteString(col.Default)
	}
	if col.IsNullable && !col.IsPK {
		b.WriteString(" NULL")
	} else {
		b.WriteString(" NOT NULL")
	}
	return b.String()
}

// createTable renders a CREATE TABLE with a named primary key constraint.
// Foreign keys are only rendered when inlineFKs is set.
func createTable(d Dialect, t *schema.Table, identity string, inlineFKs bool) (string, error) {
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("table %s has no columns", t.Name)
	}
	var defs []string
	for _, c := range t.Columns {
		defs = append(defs, columnDefinition(d, c, identity))
	}
	if pk := t.PrimaryKey(); len(pk) > 0 {
		names := make([]string, len(pk))
		for i, c := range pk {
			names[i] = c.Name
		}
		defs = append(defs, fmt.Sprintf("CONSTRAINT %s PRIMARY KEY (%s)",
			d.QuoteIdentifier("PK_"+t.Name), QuoteList(d, names)))
	}
	if inlineFKs {
		for _, fk := range t.ForeignKeys {
			defs = append(defs, foreignKeyClause(d, fk))
		}
	}
	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", d.QuoteIdentifier(t.Name), strings.Join(defs, ",\n  ")), nil
}

func foreignKeyClause(d Dialect, fk *schema.ForeignKey) string {
	return fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		d.QuoteIdentifier(fk.Name), QuoteList(d, fk.Columns), d.QuoteIdentifier(fk.RefTable), QuoteList(d, fk.RefColumns))
}

func createIndex(d Dialect, table string, idx *schema.Index) (string, error) {
	if len(idx.Columns) == 0 {
		return "", fmt.Errorf("index %s has no columns", idx.Name)
	}
	unique := ""
	if idx.Unique {
		unique = "UNIQUE "
	}
	return fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)", unique,
		d.QuoteIdentifier(idx.Name), d.QuoteIdentifier(table), QuoteList(d, idx.Columns)), nil
}

func addUniqueConstraint(d Dialect, table string, idx *schema.Index) (string, error) {
	if len(idx.Columns) == 0 {
		return "", fmt.Errorf("constraint %s has no columns", idx.Name)
	}
	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s UNIQUE (%s)",
		d.QuoteIdentifier(table), d.QuoteIdentifier(idx.Name), QuoteList(d, idx.Columns)), nil
}

func addForeignKey(d Dialect, table string, fk *schema.ForeignKey) (string, error) {
	if len(fk.Columns) == 0 || len(fk.Columns) != len(fk.RefColumns) {
		return "", fmt.Errorf("foreign key %s pairs %d columns with %d", fk.Name, len(fk.Columns), len(fk.RefColumns))
	}
	return fmt.Sprintf("ALTER TABLE %s ADD %s", d.QuoteIdentifier(table), foreignKeyClause(d, fk)), nil
}

func dropConstraint(d Dialect, table, name string) (string, error) {
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", d.QuoteIdentifier(table), d.QuoteIdentifier(name)), nil
}

// upsertAssignments renders "c = <tmpl(c)>" for every column.
func upsertAssignments(d Dialect, cols []string, tmpl string) string {
	pairs := make([]string, len(cols))
	for i, c := range cols {
		q := d.QuoteIdentifier(c)
		pairs[i] = fmt.Sprintf("%s = %s", q, fmt.Sprintf(tmpl, q))
	}
	return strings.Join(pairs, ", ")
}

func insertInto(d Dialect, table string, cols []string) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.QuoteIdentifier(table), QuoteList(d, cols), GeneratePlaceholders(len(cols), d.Placeholder))
}

var sizeSuffix = regexp.MustCompile(`\s*\(.*\)\s*$`)

// stripSize removes a trailing "(n)" or "(p,s)" from a type name.
func stripSize(sqlType string) string {
	return sizeSuffix.ReplaceAllString(sqlType, "")
}
