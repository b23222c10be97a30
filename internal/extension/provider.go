// Package extension stores an entity's extended fields in a side table joined
// 1:1 to its core table, one column per field.
package extension

import (
	"fmt"
	"strings"

	"db-extend/internal/dialect"
	"db-extend/internal/model"
	"db-extend/internal/schema"
	"db-extend/internal/workunit"
)

// MangleName appends the side-table suffix to a key column name so it can
// sit next to the core column in one result set. It is not idempotent:
// MangleName(MangleName(x)) doubles the suffix. Apply it once per column.
func MangleName(name string) string {
	return name + model.ExtendedTableSuffix
}

// Provider derives side-table schema, joins and row units for one entity.
type Provider struct {
	entity *model.Entity
	key    *model.Field
}

// NewProvider requires an entity with exactly one key field.
func NewProvider(e *model.Entity) (*Provider, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: entity is required", workunit.ErrPrecondition)
	}
	keys := e.KeyFields()
	if len(keys) != 1 {
		return nil, fmt.Errorf("%w: %s has %d key fields, extended storage needs exactly one",
			workunit.ErrPrecondition, e.Name, len(keys))
	}
	return &Provider{entity: e, key: keys[0]}, nil
}

func (p *Provider) Entity() *model.Entity { return p.entity }

// KeyColumn is the core table's key column.
func (p *Provider) KeyColumn() string { return p.key.Column() }

// ExtendedKeyColumn is the side table's copy of the key column.
func (p *Provider) ExtendedKeyColumn() string { return MangleName(p.key.Column()) }

func (p *Provider) TableName() string { return p.entity.ExtendedTableName() }

// Table describes the side table, or returns nil when the entity has no
// extended fields.
func (p *Provider) Table() *schema.Table {
	if !p.entity.HasExtendedProperties() {
		return nil
	}
	name := p.TableName()
	core := p.entity.TableName()

	key := model.ColumnFor(p.key)
	key.Name = p.ExtendedKeyColumn()
	// The core row already owns the identity.
	key.IsAutoInc = false
	key.Default = ""

	t := &schema.Table{
		Name:         name,
		Columns:      []*schema.Column{key},
		Dependencies: []string{core},
		ForeignKeys: []*schema.ForeignKey{{
			Name:       fmt.Sprintf("FK_%s_%s", name, core),
			Columns:    []string{key.Name},
			RefTable:   core,
			RefColumns: []string{p.KeyColumn()},
		}},
	}
	for _, f := range p.entity.ExtendedFields() {
		t.Columns = append(t.Columns, model.ColumnFor(f))
		if idx := model.IndexFor(name, f); idx != nil {
			t.Indexes = append(t.Indexes, idx)
		}
	}
	return t
}

// JoinClause returns the LEFT OUTER JOIN that brings extended values into a
// query against the core table. Core rows without a side row still come back.
func (p *Provider) JoinClause(d dialect.Dialect) string {
	core, ext := p.entity.TableName(), p.TableName()
	return fmt.Sprintf("LEFT OUTER JOIN %s ON %s", d.QuoteIdentifier(ext),
		joinPredicate(d, core, ext, []string{p.KeyColumn()}))
}

// joinPredicate pairs each core key column with its mangled counterpart.
func joinPredicate(d dialect.Dialect, core, ext string, keys []string) string {
	preds := make([]string, len(keys))
	for i, k := range keys {
		preds[i] = fmt.Sprintf("%s = %s", qualified(d, core, k), qualified(d, ext, MangleName(k)))
	}
	return strings.Join(preds, " AND ")
}

// SelectQuery selects every core and extended field of the entity.
func (p *Provider) SelectQuery(d dialect.Dialect) string {
	core, ext := p.entity.TableName(), p.TableName()
	var cols []string
	for _, f := range p.entity.CoreFields() {
		cols = append(cols, qualified(d, core, f.Column()))
	}
	for _, f := range p.entity.ExtendedFields() {
		cols = append(cols, qualified(d, ext, f.Column()))
	}
	q := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), d.QuoteIdentifier(core))
	if p.entity.HasExtendedProperties() {
		q += " " + p.JoinClause(d)
	}
	return q
}

// NewSaveUnit returns the insert-or-update unit for a saved row. modified
// names the changed fields; nil means every extended field. Core fields in
// modified are ignored.
func (p *Provider) NewSaveUnit(row model.Row, modified []string) (*UpdateUnit, error) {
	ins, err := p.NewInsertUnit(row, modified)
	if err != nil {
		return nil, err
	}
	return &UpdateUnit{InsertUnit: *ins}, nil
}

// NewInsertUnit returns an unconditional insert of the side row.
func (p *Provider) NewInsertUnit(row model.Row, modified []string) (*InsertUnit, error) {
	key, err := p.keyValue(row)
	if err != nil {
		return nil, err
	}
	fields, err := p.modifiedFields(modified)
	if err != nil {
		return nil, err
	}
	values := make([]any, len(fields))
	for i, f := range fields {
		// Absent values are written as NULL.
		values[i], _ = row.Lookup(f.Name)
	}
	return &InsertUnit{provider: p, key: key, fields: fields, values: values}, nil
}

func (p *Provider) NewDeleteUnit(row model.Row) (*DeleteUnit, error) {
	key, err := p.keyValue(row)
	if err != nil {
		return nil, err
	}
	if !p.entity.HasExtendedProperties() {
		return nil, fmt.Errorf("%w: %s has no extended fields", workunit.ErrPrecondition, p.entity.Name)
	}
	return &DeleteUnit{provider: p, key: key}, nil
}

func (p *Provider) keyValue(row model.Row) (any, error) {
	if row == nil {
		return nil, fmt.Errorf("%w: %s row is required", workunit.ErrPrecondition, p.entity.Name)
	}
	v, ok := row.Lookup(p.key.Name)
	if !ok || v == nil {
		return nil, fmt.Errorf("%w: %s row has no value for key %s", workunit.ErrPrecondition, p.entity.Name, p.key.Name)
	}
	return v, nil
}

func (p *Provider) modifiedFields(modified []string) ([]*model.Field, error) {
	if !p.entity.HasExtendedProperties() {
		return nil, fmt.Errorf("%w: %s has no extended fields", workunit.ErrPrecondition, p.entity.Name)
	}
	if modified == nil {
		return p.entity.ExtendedFields(), nil
	}
	var fields []*model.Field
	seen := make(map[*model.Field]bool, len(modified))
	for _, name := range modified {
		f := p.entity.Field(name)
		if f == nil {
			return nil, fmt.Errorf("%w: %s has no field %s", workunit.ErrPrecondition, p.entity.Name, name)
		}
		if f.Extended && !seen[f] {
			seen[f] = true
			fields = append(fields, f)
		}
	}
	return fields, nil
}

func qualified(d dialect.Dialect, table, col string) string {
	return d.QuoteIdentifier(table) + "." + d.QuoteIdentifier(col)
}
