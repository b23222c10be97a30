package model

import "strings"

// Flag describes column-level traits of a field.
type Flag uint8

const (
	Key Flag = 1 << iota
	Nullable
	AutoIncrement
	// Common marks fields shared by every entity (audit columns and the like).
	Common
)

func (f Flag) Has(o Flag) bool {
	return f&o == o
}

// Field is an immutable description of one persisted column.
type Field struct {
	Name       string
	NativeName string
	DataType   string
	Size       int
	Flags      Flag
	// Extended fields live in the side table instead of the core table.
	Extended bool
	Default  string
	// Indexed requests a single-column index; Unique makes it a unique one.
	Indexed bool
	Unique  bool
}

// Column returns the native column name, falling back to the field name.
func (f *Field) Column() string {
	if f.NativeName != "" {
		return f.NativeName
	}
	return f.Name
}

func (f *Field) IsKey() bool           { return f.Flags.Has(Key) }
func (f *Field) IsNullable() bool      { return f.Flags.Has(Nullable) }
func (f *Field) IsAutoIncrement() bool { return f.Flags.Has(AutoIncrement) }

// Row holds the values of one entity instance keyed by field name.
type Row map[string]any

func (r Row) Value(name string) (any, bool) {
	v, ok := r[name]
	return v, ok
}

// Lookup is Value with field name matching: an exact key wins, otherwise the
// smallest key equal to name under case folding.
func (r Row) Lookup(name string) (any, bool) {
	if v, ok := r[name]; ok {
		return v, true
	}
	match, found := "", false
	for k := range r {
		if strings.EqualFold(k, name) && (!found || k < match) {
			match, found = k, true
		}
	}
	if !found {
		return nil, false
	}
	return r[match], true
}
