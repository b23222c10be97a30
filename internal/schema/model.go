package schema

import "strings"

type Table struct {
	Name         string
	Columns      []*Column
	ForeignKeys  []*ForeignKey
	Indexes      []*Index
	Dependencies []string // tables referenced by ForeignKeys
}

type Column struct {
	Name       string
	DataType   string
	Length     int
	IsNullable bool
	IsPK       bool
	IsAutoInc  bool
	IsUnique   bool
	Default    string
}

// ForeignKey pairs Columns with RefColumns by position.
type ForeignKey struct {
	Name       string
	Columns    []string
	RefTable   string
	RefColumns []string
}

type Index struct {
	Name    string
	Columns []string
	Unique  bool
}

// Column looks a column up by name, ignoring case.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

func (t *Table) Index(name string) *Index {
	for _, idx := range t.Indexes {
		if strings.EqualFold(idx.Name, name) {
			return idx
		}
	}
	return nil
}

// IndexOn returns an index covering exactly cols in order, regardless of its name.
func (t *Table) IndexOn(cols []string) *Index {
	for _, idx := range t.Indexes {
		if sameColumns(idx.Columns, cols) {
			return idx
		}
	}
	return nil
}

func (t *Table) ForeignKey(name string) *ForeignKey {
	for _, fk := range t.ForeignKeys {
		if strings.EqualFold(fk.Name, name) {
			return fk
		}
	}
	return nil
}

// ForeignKeyTo returns a foreign key referencing refTable through cols, regardless of its name.
func (t *Table) ForeignKeyTo(refTable string, cols []string) *ForeignKey {
	for _, fk := range t.ForeignKeys {
		if strings.EqualFold(fk.RefTable, refTable) && sameColumns(fk.Columns, cols) {
			return fk
		}
	}
	return nil
}

func (t *Table) PrimaryKey() []*Column {
	var pk []*Column
	for _, c := range t.Columns {
		if c.IsPK {
			pk = append(pk, c)
		}
	}
	return pk
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}
