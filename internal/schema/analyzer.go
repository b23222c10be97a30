package schema

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Dialect is the subset of dialect.Dialect the analyzer needs.
type Dialect interface {
	GetTablesQuery(schema string) string
	GetColumnsQuery(schema string) string
	GetForeignKeysQuery(schema string) string
	GetIndexesQuery(schema string) string
	NormalizeType(sqlType string) string
	GetSchemaName(input string) string
}

// Queryer is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

var typeLength = regexp.MustCompile(`\(\s*(\d+)`)

// Analyze reads the live schema: tables, columns, foreign keys and secondary indexes.
// Tables come back in dependency order.
func Analyze(ctx context.Context, db Queryer, d Dialect, schemaName string) ([]*Table, error) {
	// [Interface-First]: Delegate schema resolution to the dialect
	target := d.GetSchemaName(schemaName)

	// Use map for O(1) lookups, with normalized keys for case-insensitive matching (Oracle support)
	tableMap := make(map[string]*Table)
	var tables []*Table

	// --- Step 1: Fetch Tables ---
	rows, err := db.QueryContext(ctx, d.GetTablesQuery(target), target)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		t := &Table{Name: name, Dependencies: []string{}}
		tableMap[strings.ToUpper(name)] = t
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}
	rows.Close()

	// --- Step 2: Fetch Columns ---
	if err := analyzeColumns(ctx, db, d, target, tableMap); err != nil {
		return nil, err
	}

	// --- Step 3: Fetch Foreign Keys ---
	if err := analyzeForeignKeys(ctx, db, d, target, tableMap); err != nil {
		return nil, err
	}

	// --- Step 4: Fetch Indexes ---
	if err := analyzeIndexes(ctx, db, d, target, tableMap); err != nil {
		return nil, err
	}

	return SortTablesByFKCount(tables), nil
}

func analyzeColumns(ctx context.Context, db Queryer, d Dialect, target string, tableMap map[string]*Table) error {
	colRows, err := db.QueryContext(ctx, d.GetColumnsQuery(target), target)
	if err != nil {
		return fmt.Errorf("failed to query columns: %w", err)
	}
	defer colRows.Close()

	for colRows.Next() {
		var tName, cName, dType, isNull, cKey, extra, isUnique sql.NullString
		var cLen sql.NullString // Use String for safety

		if err := colRows.Scan(&tName, &cName, &dType, &cLen, &isNull, &cKey, &extra, &isUnique); err != nil {
			return fmt.Errorf("failed to scan column (table: %s): %w", tName.String, err)
		}

		if !tName.Valid || !cName.Valid {
			continue // Skip invalid rows
		}

		t, ok := tableMap[strings.ToUpper(tName.String)]
		if !ok {
			continue
		}

		// AutoInc Detection
		isAutoInc := false
		if extra.Valid {
			extraLower := strings.ToLower(extra.String)
			isAutoInc = strings.Contains(extraLower, "auto_increment") ||
				strings.Contains(extraLower, "identity") ||
				strings.Contains(extraLower, "nextval")
		}

		col := &Column{
			Name:       cName.String,
			DataType:   d.NormalizeType(dType.String),
			IsNullable: strings.EqualFold(isNull.String, "YES"),
			IsPK:       strings.Contains(cKey.String, "PRI"),
			IsAutoInc:  isAutoInc,
			IsUnique:   isUnique.Valid && strings.Contains(isUnique.String, "UNIQUE"),
		}
		col.Length = parseLength(cLen, dType.String)
		t.Columns = append(t.Columns, col)
	}
	if err := colRows.Err(); err != nil {
		return fmt.Errorf("error iterating columns: %w", err)
	}
	return nil
}

// parseLength reads the length column, falling back to a "(n)" suffix on the type name.
// -1 (SQL Server MAX) is kept as is; callers treat any non-positive length as unbounded.
func parseLength(cLen sql.NullString, rawType string) int {
	if cLen.Valid && cLen.String != "" {
		var length int
		if _, err := fmt.Sscanf(cLen.String, "%d", &length); err == nil {
			return length
		}
		var fLength float64
		if _, err := fmt.Sscanf(cLen.String, "%f", &fLength); err == nil {
			return int(fLength)
		}
	}
	if m := typeLength.FindStringSubmatch(rawType); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	return 0
}

func analyzeForeignKeys(ctx context.Context, db Queryer, d Dialect, target string, tableMap map[string]*Table) error {
	fkRows, err := db.QueryContext(ctx, d.GetForeignKeysQuery(target), target)
	if err != nil {
		// FK query might fail on some DBs if permissions are missing.
		// We return error to be safe.
		return fmt.Errorf("failed to query foreign keys: %w", err)
	}
	defer fkRows.Close()

	for fkRows.Next() {
		var tName, cConst, cName, rTable, rCol sql.NullString
		if err := fkRows.Scan(&tName, &cConst, &cName, &rTable, &rCol); err != nil {
			return fmt.Errorf("failed to scan foreign key: %w", err)
		}
		if !tName.Valid || !rTable.Valid || strings.EqualFold(tName.String, rTable.String) {
			continue
		}

		t, ok := tableMap[strings.ToUpper(tName.String)]
		if !ok {
			continue
		}
		// Verify if referenced table exists in our map (to avoid external refs we can't handle)
		ref, exists := tableMap[strings.ToUpper(rTable.String)]
		if !exists {
			continue
		}

		// Multi-column keys arrive as one row per column, in position order.
		fk := t.ForeignKey(cConst.String)
		if fk == nil {
			fk = &ForeignKey{Name: cConst.String, RefTable: ref.Name}
			t.ForeignKeys = append(t.ForeignKeys, fk)
			if !contains(t.Dependencies, ref.Name) {
				t.Dependencies = append(t.Dependencies, ref.Name)
			}
		}
		fk.Columns = append(fk.Columns, cName.String)
		fk.RefColumns = append(fk.RefColumns, rCol.String)
	}
	if err := fkRows.Err(); err != nil {
		return fmt.Errorf("error iterating foreign keys: %w", err)
	}
	return nil
}

func analyzeIndexes(ctx context.Context, db Queryer, d Dialect, target string, tableMap map[string]*Table) error {
	idxRows, err := db.QueryContext(ctx, d.GetIndexesQuery(target), target)
	if err != nil {
		return fmt.Errorf("failed to query indexes: %w", err)
	}
	defer idxRows.Close()

	for idxRows.Next() {
		var tName, iName, cName, isUnique sql.NullString
		if err := idxRows.Scan(&tName, &iName, &cName, &isUnique); err != nil {
			return fmt.Errorf("failed to scan index: %w", err)
		}
		if !tName.Valid || !iName.Valid || !cName.Valid {
			continue
		}
		t, ok := tableMap[strings.ToUpper(tName.String)]
		if !ok {
			continue
		}
		idx := t.Index(iName.String)
		if idx == nil {
			idx = &Index{Name: iName.String, Unique: isUnique.String == "YES"}
			t.Indexes = append(t.Indexes, idx)
		}
		idx.Columns = append(idx.Columns, cName.String)
	}
	if err := idxRows.Err(); err != nil {
		return fmt.Errorf("error iterating indexes: %w", err)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
