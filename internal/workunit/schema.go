package workunit

import (
	"context"
	"fmt"

	"db-extend/internal/schema"
)

// Action tags the structural change a schema unit applies. It is set by the
// constructor and never changes.
type Action int

const (
	ActionUnknown Action = iota
	ActionCreateTable
	ActionAddColumn
	ActionAlterColumn
	ActionDropConstraint
	ActionCreateIndex
	ActionCreateForeignKey
	ActionDropIndex
	ActionDropForeignKey
	ActionAddConstraint
)

func (a Action) String() string {
	switch a {
	case ActionCreateTable:
		return "create_table"
	case ActionAddColumn:
		return "add_column"
	case ActionAlterColumn:
		return "alter_column"
	case ActionDropConstraint:
		return "drop_constraint"
	case ActionCreateIndex:
		return "create_index"
	case ActionCreateForeignKey:
		return "create_foreign_key"
	case ActionDropIndex:
		return "drop_index"
	case ActionDropForeignKey:
		return "drop_foreign_key"
	case ActionAddConstraint:
		return "add_constraint"
	}
	return "unknown"
}

// SchemaUnit is a structural change to one table.
type SchemaUnit interface {
	Unit
	Action() Action
	Table() string
	// Reason says why the change is needed. Diagnostic only.
	Reason() string
	// ContinueOnError reports whether a failure may be skipped without aborting the pass.
	ContinueOnError() bool
}

type schemaBase struct {
	action   Action
	table    string
	reason   string
	tolerant bool
}

func (b *schemaBase) Kind() Kind            { return KindSchema }
func (b *schemaBase) Action() Action        { return b.action }
func (b *schemaBase) Table() string         { return b.table }
func (b *schemaBase) Reason() string        { return b.reason }
func (b *schemaBase) ContinueOnError() bool { return b.tolerant }

func newBase(action Action, table, reason, fallback string) (schemaBase, error) {
	if table == "" {
		return schemaBase{}, preconditionf("%s: table name is required", action)
	}
	if reason == "" {
		reason = fallback
	}
	return schemaBase{action: action, table: table, reason: reason}, nil
}

func ddl(text string, err error) ([]Statement, error) {
	if err != nil {
		return nil, err
	}
	return []Statement{{Text: text, Timeout: SchemaTimeout}}, nil
}

func checkContext(pc *Context) error {
	if pc == nil || pc.Dialect == nil {
		return preconditionf("schema unit needs a context with a dialect")
	}
	return nil
}

// CreateTable creates a table with its columns, primary key and, for
// dialects without AlterConstraints, its foreign keys.
type CreateTable struct {
	schemaBase
	Def *schema.Table
}

func NewCreateTable(def *schema.Table, reason string) (*CreateTable, error) {
	if def == nil {
		return nil, preconditionf("create table: definition is required")
	}
	if len(def.Columns) == 0 {
		return nil, preconditionf("create table %s: no columns", def.Name)
	}
	b, err := newBase(ActionCreateTable, def.Name, reason, fmt.Sprintf("create table %s", def.Name))
	if err != nil {
		return nil, err
	}
	return &CreateTable{schemaBase: b, Def: def}, nil
}

func (u *CreateTable) Statements(_ context.Context, pc *Context) ([]Statement, error) {
	if err := checkContext(pc); err != nil {
		return nil, err
	}
	return ddl(pc.Dialect.CreateTable(u.Def))
}

// AddColumn adds a new column to an existing table.
type AddColumn struct {
	schemaBase
	Column *schema.Column
}

func NewAddColumn(table string, col *schema.Column, reason string) (*AddColumn, error) {
	if col == nil || col.Name == "" {
		return nil, preconditionf("add column to %s: column is required", table)
	}
	b, err := newBase(ActionAddColumn, table, reason, fmt.Sprintf("add column %s.%s", table, col.Name))
	if err != nil {
		return nil, err
	}
	return &AddColumn{schemaBase: b, Column: col}, nil
}

func (u *AddColumn) Statements(_ context.Context, pc *Context) ([]Statement, error) {
	if err := checkContext(pc); err != nil {
		return nil, err
	}
	return ddl(pc.Dialect.AddColumn(u.table, u.Column, false))
}

// AlterColumn widens an existing column to the given definition.
type AlterColumn struct {
	schemaBase
	Column *schema.Column
}

func NewAlterColumn(table string, col *schema.Column, reason string) (*AlterColumn, error) {
	if col == nil || col.Name == "" {
		return nil, preconditionf("alter column on %s: column is required", table)
	}
	b, err := newBase(ActionAlterColumn, table, reason, fmt.Sprintf("alter column %s.%s", table, col.Name))
	if err != nil {
		return nil, err
	}
	return &AlterColumn{schemaBase: b, Column: col}, nil
}

func (u *AlterColumn) Statements(_ context.Context, pc *Context) ([]Statement, error) {
	if err := checkContext(pc); err != nil {
		return nil, err
	}
	return ddl(pc.Dialect.AddColumn(u.table, u.Column, true))
}

// DropConstraint drops a named constraint.
type DropConstraint struct {
	schemaBase
	Name string
}

func NewDropConstraint(table, name, reason string) (*DropConstraint, error) {
	if name == "" {
		return nil, preconditionf("drop constraint on %s: name is required", table)
	}
	b, err := newBase(ActionDropConstraint, table, reason, fmt.Sprintf("drop constraint %s on %s", name, table))
	if err != nil {
		return nil, err
	}
	return &DropConstraint{schemaBase: b, Name: name}, nil
}

func (u *DropConstraint) Statements(_ context.Context, pc *Context) ([]Statement, error) {
	if err := checkContext(pc); err != nil {
		return nil, err
	}
	return ddl(pc.Dialect.DropConstraint(u.table, u.Name))
}

// CreateIndex creates an index. Its failure does not abort the pass: an index
// that cannot be built, e.g. over duplicate data, is logged and skipped.
type CreateIndex struct {
	schemaBase
	Index *schema.Index
}

func NewCreateIndex(table string, idx *schema.Index, reason string) (*CreateIndex, error) {
	if idx == nil || idx.Name == "" || len(idx.Columns) == 0 {
		return nil, preconditionf("create index on %s: named index with columns is required", table)
	}
	b, err := newBase(ActionCreateIndex, table, reason, fmt.Sprintf("create index %s on %s", idx.Name, table))
	if err != nil {
		return nil, err
	}
	b.tolerant = true
	return &CreateIndex{schemaBase: b, Index: idx}, nil
}

func (u *CreateIndex) Statements(_ context.Context, pc *Context) ([]Statement, error) {
	if err := checkContext(pc); err != nil {
		return nil, err
	}
	return ddl(pc.Dialect.CreateIndex(u.table, u.Index))
}

// CreateForeignKey links a child table to its parent.
type CreateForeignKey struct {
	schemaBase
	ForeignKey *schema.ForeignKey
}

func NewCreateForeignKey(table string, fk *schema.ForeignKey, reason string) (*CreateForeignKey, error) {
	if fk == nil || fk.Name == "" || fk.RefTable == "" || len(fk.Columns) == 0 {
		return nil, preconditionf("create foreign key on %s: named key with columns and parent is required", table)
	}
	if len(fk.Columns) != len(fk.RefColumns) {
		return nil, preconditionf("create foreign key %s: %d columns reference %d", fk.Name, len(fk.Columns), len(fk.RefColumns))
	}
	b, err := newBase(ActionCreateForeignKey, table, reason, fmt.Sprintf("create foreign key %s from %s to %s", fk.Name, table, fk.RefTable))
	if err != nil {
		return nil, err
	}
	return &CreateForeignKey{schemaBase: b, ForeignKey: fk}, nil
}

func (u *CreateForeignKey) Statements(_ context.Context, pc *Context) ([]Statement, error) {
	if err := checkContext(pc); err != nil {
		return nil, err
	}
	return ddl(pc.Dialect.CreateForeignKey(u.table, u.ForeignKey))
}

type DropIndex struct {
	schemaBase
	Name string
}

func NewDropIndex(table, name, reason string) (*DropIndex, error) {
	if name == "" {
		return nil, preconditionf("drop index on %s: name is required", table)
	}
	b, err := newBase(ActionDropIndex, table, reason, fmt.Sprintf("drop index %s on %s", name, table))
	if err != nil {
		return nil, err
	}
	return &DropIndex{schemaBase: b, Name: name}, nil
}

func (u *DropIndex) Statements(_ context.Context, pc *Context) ([]Statement, error) {
	if err := checkContext(pc); err != nil {
		return nil, err
	}
	return ddl(pc.Dialect.DropIndex(u.table, u.Name))
}

type DropForeignKey struct {
	schemaBase
	Name string
}

func NewDropForeignKey(table, name, reason string) (*DropForeignKey, error) {
	if name == "" {
		return nil, preconditionf("drop foreign key on %s: name is required", table)
	}
	b, err := newBase(ActionDropForeignKey, table, reason, fmt.Sprintf("drop foreign key %s on %s", name, table))
	if err != nil {
		return nil, err
	}
	return &DropForeignKey{schemaBase: b, Name: name}, nil
}

func (u *DropForeignKey) Statements(_ context.Context, pc *Context) ([]Statement, error) {
	if err := checkContext(pc); err != nil {
		return nil, err
	}
	return ddl(pc.Dialect.DropForeignKey(u.table, u.Name))
}

// AddConstraint adds a unique constraint over an index definition.
type AddConstraint struct {
	schemaBase
	Constraint *schema.Index
}

func NewAddConstraint(table string, idx *schema.Index, reason string) (*AddConstraint, error) {
	if idx == nil || idx.Name == "" || len(idx.Columns) == 0 {
		return nil, preconditionf("add constraint on %s: named constraint with columns is required", table)
	}
	b, err := newBase(ActionAddConstraint, table, reason, fmt.Sprintf("add constraint %s on %s", idx.Name, table))
	if err != nil {
		return nil, err
	}
	return &AddConstraint{schemaBase: b, Constraint: idx}, nil
}

func (u *AddConstraint) Statements(_ context.Context, pc *Context) ([]Statement, error) {
	if err := checkContext(pc); err != nil {
		return nil, err
	}
	return ddl(pc.Dialect.AddConstraint(u.table, u.Constraint))
}
