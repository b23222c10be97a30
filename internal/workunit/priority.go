package workunit

import (
	"cmp"
	"slices"
)

// Priority is the execution phase of a schema change. Lower runs first:
// tables exist before columns are added, removals precede additions that
// might clash with them, and foreign keys come last.
type Priority int

const (
	PriorityCreateTable Priority = iota
	PriorityDropIndex
	PriorityDropConstraint
	PriorityDropForeignKey
	PriorityAddColumn
	PriorityAlterColumn
	PriorityCreateIndex
	PriorityAddConstraint
	PriorityCreateForeignKey
	PriorityUnknown
)

var priorityNames = [...]string{
	"CreateTable",
	"DropIndex",
	"DropConstraint",
	"DropForeignKey",
	"AddColumn",
	"AlterColumn",
	"CreateIndex",
	"AddConstraint",
	"CreateForeignKey",
	"Unknown",
}

func (p Priority) String() string {
	if p < 0 || int(p) >= len(priorityNames) {
		return "Unknown"
	}
	return priorityNames[p]
}

// Classify maps a unit's action to its phase.
func Classify(u SchemaUnit) Priority {
	if u == nil {
		return PriorityUnknown
	}
	switch u.Action() {
	case ActionCreateTable:
		return PriorityCreateTable
	case ActionDropIndex:
		return PriorityDropIndex
	case ActionDropConstraint:
		return PriorityDropConstraint
	case ActionDropForeignKey:
		return PriorityDropForeignKey
	case ActionAddColumn:
		return PriorityAddColumn
	case ActionAlterColumn:
		return PriorityAlterColumn
	case ActionCreateIndex:
		return PriorityCreateIndex
	case ActionAddConstraint:
		return PriorityAddConstraint
	case ActionCreateForeignKey:
		return PriorityCreateForeignKey
	case ActionUnknown:
		return PriorityUnknown
	}
	return PriorityUnknown
}

// Compare orders two units by phase only. Equal phases compare as 0.
func Compare(a, b SchemaUnit) int {
	return cmp.Compare(Classify(a), Classify(b))
}

// SortSchemaUnits returns units in execution order. Units of the same phase
// keep their input order. The input slice is not modified.
func SortSchemaUnits(units []SchemaUnit) []SchemaUnit {
	type entry struct {
		unit     SchemaUnit
		priority Priority
		seq      int
	}
	entries := make([]entry, len(units))
	for i, u := range units {
		entries[i] = entry{unit: u, priority: Classify(u), seq: i}
	}
	slices.SortFunc(entries, func(a, b entry) int {
		if c := cmp.Compare(a.priority, b.priority); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})

	sorted := make([]SchemaUnit, len(entries))
	for i, e := range entries {
		sorted[i] = e.unit
	}
	return sorted
}
