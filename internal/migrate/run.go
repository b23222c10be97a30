package migrate

import (
	"context"
	"fmt"

	"db-extend/internal/workunit"
)

// Run applies units in phase order, one at a time, calling onProgress after
// each. It stops at the first fatal failure; units before it stay applied.
func Run(ctx context.Context, pc *workunit.Context, units []workunit.SchemaUnit, onProgress func(done, total int)) error {
	sorted := workunit.SortSchemaUnits(units)
	for i, u := range sorted {
		if err := workunit.Process(ctx, pc, u); err != nil {
			return fmt.Errorf("migration stopped after %d of %d changes: %w", i, len(sorted), err)
		}
		if onProgress != nil {
			onProgress(i+1, len(sorted))
		}
	}
	return nil
}

// Preview returns the statements Run would execute, in order, without
// touching the database.
func Preview(ctx context.Context, pc *workunit.Context, units []workunit.SchemaUnit) ([]workunit.Statement, error) {
	var out []workunit.Statement
	for _, u := range workunit.SortSchemaUnits(units) {
		stmts, err := u.Statements(ctx, pc)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", u.Reason(), err)
		}
		out = append(out, stmts...)
	}
	return out, nil
}
