// Package migrate compares declared entities against the live schema and
// applies the structural changes needed to reconcile them.
package migrate

import (
	"fmt"
	"strings"

	"db-extend/internal/dialect"
	"db-extend/internal/extension"
	"db-extend/internal/model"
	"db-extend/internal/schema"
	"db-extend/internal/workunit"

	"github.com/rs/zerolog"
)

// Desired returns the core and side tables the entities declare, parents first.
func Desired(entities ...*model.Entity) ([]*schema.Table, error) {
	var tables []*schema.Table
	for _, e := range entities {
		if e == nil {
			return nil, fmt.Errorf("%w: nil entity", workunit.ErrPrecondition)
		}
		tables = append(tables, e.CoreTable())
		if !e.HasExtendedProperties() {
			continue
		}
		p, err := extension.NewProvider(e)
		if err != nil {
			return nil, err
		}
		tables = append(tables, p.Table())
	}
	return schema.SortTablesByFKCount(tables), nil
}

// Plan lists the schema units that bring live in line with the entities.
// The result is in discovery order; Run sorts it. Changes the dialect cannot
// make are reported on log and left out.
func Plan(log zerolog.Logger, d dialect.Dialect, live []*schema.Table, entities ...*model.Entity) ([]workunit.SchemaUnit, error) {
	desired, err := Desired(entities...)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]*schema.Table, len(live))
	for _, t := range live {
		byName[strings.ToUpper(t.Name)] = t
	}

	pl := &planner{log: log, caps: d.Capabilities()}

	for _, want := range desired {
		have := byName[strings.ToUpper(want.Name)]
		if have == nil {
			if err := pl.create(want); err != nil {
				return nil, err
			}
			continue
		}
		if err := pl.columns(want, have); err != nil {
			return nil, err
		}
		if err := pl.indexes(want, have); err != nil {
			return nil, err
		}
		if err := pl.foreignKeys(want, have); err != nil {
			return nil, err
		}
	}
	return pl.units, nil
}

type planner struct {
	log   zerolog.Logger
	caps  dialect.Capabilities
	units []workunit.SchemaUnit
}

func (pl *planner) add(u workunit.SchemaUnit, err error) error {
	if err != nil {
		return err
	}
	pl.units = append(pl.units, u)
	return nil
}

func (pl *planner) create(want *schema.Table) error {
	if err := pl.add(workunit.NewCreateTable(want, fmt.Sprintf("table %s does not exist", want.Name))); err != nil {
		return err
	}
	if pl.caps.AlterConstraints {
		for _, fk := range want.ForeignKeys {
			if err := pl.add(workunit.NewCreateForeignKey(want.Name, fk, "")); err != nil {
				return err
			}
		}
	}
	for _, idx := range want.Indexes {
		if err := pl.add(workunit.NewCreateIndex(want.Name, idx, "")); err != nil {
			return err
		}
	}
	return nil
}

func (pl *planner) columns(want, have *schema.Table) error {
	for _, col := range want.Columns {
		existing := have.Column(col.Name)
		if existing == nil {
			if !col.IsNullable && col.Default == "" {
				pl.log.Warn().Str("table", want.Name).Str("column", col.Name).
					Msg("adding NOT NULL column without default, fails on non-empty tables")
			}
			reason := fmt.Sprintf("column %s.%s does not exist", want.Name, col.Name)
			if err := pl.add(workunit.NewAddColumn(want.Name, col, reason)); err != nil {
				return err
			}
			continue
		}
		if !needsWidening(existing, col) {
			continue
		}
		if !pl.caps.AlterColumn {
			pl.log.Warn().Str("table", want.Name).Str("column", col.Name).
				Int("live", existing.Length).Int("declared", col.Length).
				Msg("column is narrower than declared but the dialect cannot alter it")
			continue
		}
		reason := fmt.Sprintf("widen %s.%s from %d to %d", want.Name, col.Name, existing.Length, col.Length)
		if err := pl.add(workunit.NewAlterColumn(want.Name, col, reason)); err != nil {
			return err
		}
	}
	return nil
}

// needsWidening reports a sized live column shorter than declared. A live
// length of zero or less is unbounded (MAX, TEXT).
func needsWidening(live, want *schema.Column) bool {
	return want.Length > 0 && live.Length > 0 && want.Length > live.Length
}

func (pl *planner) indexes(want, have *schema.Table) error {
	for _, idx := range want.Indexes {
		existing := have.Index(idx.Name)
		if existing == nil {
			existing = have.IndexOn(idx.Columns)
		}
		if existing != nil && existing.Unique == idx.Unique {
			continue
		}
		if existing != nil {
			reason := fmt.Sprintf("index %s on %s changes uniqueness", existing.Name, want.Name)
			if err := pl.add(workunit.NewDropIndex(want.Name, existing.Name, reason)); err != nil {
				return err
			}
		}
		if err := pl.add(workunit.NewCreateIndex(want.Name, idx, "")); err != nil {
			return err
		}
	}
	return nil
}

func (pl *planner) foreignKeys(want, have *schema.Table) error {
	for _, fk := range want.ForeignKeys {
		if have.ForeignKeyTo(fk.RefTable, fk.Columns) != nil {
			continue
		}
		if !pl.caps.AlterConstraints {
			pl.log.Warn().Str("table", want.Name).Str("foreign_key", fk.Name).
				Msg("foreign key is missing but the dialect cannot add it to an existing table")
			continue
		}
		if stale := have.ForeignKey(fk.Name); stale != nil {
			reason := fmt.Sprintf("foreign key %s on %s points elsewhere", stale.Name, want.Name)
			if err := pl.add(workunit.NewDropForeignKey(want.Name, stale.Name, reason)); err != nil {
				return err
			}
		}
		if err := pl.add(workunit.NewCreateForeignKey(want.Name, fk, "")); err != nil {
			return err
		}
	}
	return nil
}
