package model

import (
	"errors"
	"fmt"
	"strings"

	"db-extend/internal/schema"
)

// ExtendedTableSuffix is appended to the core table name to name the side table.
const ExtendedTableSuffix = "Ex"

var ErrInvalidEntity = errors.New("invalid entity")

// Entity owns an ordered set of fields persisted in a core table and,
// for fields marked Extended, in a side table joined 1:1 on the key.
type Entity struct {
	Name   string
	table  string
	fields []*Field
}

func NewEntity(name, table string, fields ...*Field) (*Entity, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalidEntity)
	}
	if table == "" {
		table = name
	}
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f == nil || f.Name == "" {
			return nil, fmt.Errorf("%w: %s has a field without a name", ErrInvalidEntity, name)
		}
		k := strings.ToLower(f.Name)
		if seen[k] {
			return nil, fmt.Errorf("%w: %s declares field %s twice", ErrInvalidEntity, name, f.Name)
		}
		seen[k] = true
		if f.Extended && f.IsKey() {
			return nil, fmt.Errorf("%w: key field %s.%s cannot be extended", ErrInvalidEntity, name, f.Name)
		}
	}
	return &Entity{Name: name, table: table, fields: fields}, nil
}

func (e *Entity) TableName() string { return e.table }

func (e *Entity) ExtendedTableName() string { return e.table + ExtendedTableSuffix }

func (e *Entity) Fields() []*Field { return e.fields }

func (e *Entity) Field(name string) *Field {
	for _, f := range e.fields {
		if strings.EqualFold(f.Name, name) {
			return f
		}
	}
	return nil
}

func (e *Entity) KeyFields() []*Field {
	return e.filter(func(f *Field) bool { return f.IsKey() })
}

func (e *Entity) CoreFields() []*Field {
	return e.filter(func(f *Field) bool { return !f.Extended })
}

func (e *Entity) ExtendedFields() []*Field {
	return e.filter(func(f *Field) bool { return f.Extended })
}

func (e *Entity) HasExtendedProperties() bool {
	return len(e.ExtendedFields()) > 0
}

// CoreTable describes the core table as the model declares it.
func (e *Entity) CoreTable() *schema.Table {
	t := &schema.Table{Name: e.table}
	for _, f := range e.CoreFields() {
		t.Columns = append(t.Columns, ColumnFor(f))
		if idx := IndexFor(e.table, f); idx != nil {
			t.Indexes = append(t.Indexes, idx)
		}
	}
	return t
}

// ColumnFor converts a field descriptor into a column definition.
func ColumnFor(f *Field) *schema.Column {
	return &schema.Column{
		Name:       f.Column(),
		DataType:   f.DataType,
		Length:     f.Size,
		IsNullable: f.IsNullable() && !f.IsKey(),
		IsPK:       f.IsKey(),
		IsAutoInc:  f.IsAutoIncrement(),
		IsUnique:   f.Unique,
		Default:    f.Default,
	}
}

// IndexFor returns the index a field asks for on table, or nil.
func IndexFor(table string, f *Field) *schema.Index {
	if !f.Indexed && !f.Unique {
		return nil
	}
	prefix := "IX"
	if f.Unique {
		prefix = "UX"
	}
	return &schema.Index{
		Name:    fmt.Sprintf("%s_%s_%s", prefix, table, f.Column()),
		Columns: []string{f.Column()},
		Unique:  f.Unique,
	}
}

func (e *Entity) filter(keep func(*Field) bool) []*Field {
	var out []*Field
	for _, f := range e.fields {
		if keep(f) {
			out = append(out, f)
		}
	}
	return out
}
