package engine

import (
	"context"
	"errors"
	"fmt"

	"db-extend/internal/extension"
	"db-extend/internal/model"
	"db-extend/internal/schema"
	"db-extend/internal/workunit"
)

// Result summarizes one entity's fill.
type Result struct {
	Entity   string
	Table    string
	Target   int
	Saved    int
	Failed   int
	Rows     int // side rows present afterwards
	Status   string
	ErrorMsg string
}

// maxUniqueAttempts bounds regeneration of values for unique fields.
const maxUniqueAttempts = 10

// Fill writes generated extended values for up to count existing core rows
// of p's entity. Rows are saved one by one through up; a failed save is
// logged and counted, a precondition error stops the fill.
func Fill(ctx context.Context, q schema.Queryer, pc *workunit.Context, p *extension.Provider, count int, up extension.Upserter, onProgress func()) (Result, error) {
	e := p.Entity()
	res := Result{Entity: e.Name, Table: p.TableName(), Target: count}
	if !e.HasExtendedProperties() {
		res.Status = "SKIPPED"
		res.ErrorMsg = "no extended fields"
		return res, nil
	}

	keys, err := coreKeys(ctx, q, pc, p, count)
	if err != nil {
		return res, err
	}

	fields := e.ExtendedFields()
	used := make(map[string]map[any]bool)
	for _, f := range fields {
		if f.Unique {
			used[f.Name] = make(map[any]bool)
		}
	}

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		row := model.Row{e.KeyFields()[0].Name: key}
		for _, f := range fields {
			row[f.Name] = uniqueValue(f, used[f.Name])
		}

		err := up.Save(ctx, pc, p, row, nil)
		switch {
		case err == nil:
			res.Saved++
		case errors.Is(err, workunit.ErrPrecondition):
			return res, err
		default:
			res.Failed++
			if res.Failed <= 3 {
				pc.Logger.Warn().Err(err).Str("table", res.Table).Interface("key", key).Msg("save failed")
			}
		}
		if onProgress != nil {
			onProgress()
		}
	}

	res.Rows, err = CountRows(ctx, q, pc, p.TableName())
	if err != nil {
		return res, err
	}

	res.Status = "OK"
	switch {
	case res.Saved == 0 && len(keys) > 0:
		res.Status = "FAILED"
		res.ErrorMsg = "no row could be saved, see log for details"
	case res.Failed > 0:
		res.Status = "PARTIAL"
		res.ErrorMsg = fmt.Sprintf("saved %d of %d", res.Saved, len(keys))
	case len(keys) < count:
		res.Status = "MISSING DATA"
		res.ErrorMsg = fmt.Sprintf("%s has only %d rows", e.TableName(), len(keys))
	}
	return res, nil
}

// uniqueValue regenerates until the value is unseen. used is nil for
// non-unique fields.
func uniqueValue(f *model.Field, used map[any]bool) any {
	v := GenerateValue(f)
	if used == nil {
		return v
	}
	for i := 0; i < maxUniqueAttempts && used[mapKey(v)]; i++ {
		v = GenerateValue(f)
	}
	used[mapKey(v)] = true
	return v
}

// mapKey makes byte slices usable as map keys.
func mapKey(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func coreKeys(ctx context.Context, q schema.Queryer, pc *workunit.Context, p *extension.Provider, count int) ([]any, error) {
	d := pc.Dialect
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		d.QuoteIdentifier(p.KeyColumn()), d.QuoteIdentifier(p.Entity().TableName()), d.QuoteIdentifier(p.KeyColumn()))
	rows, err := q.QueryContext(ctx, d.GetLimitRowQuery(query, count))
	if err != nil {
		return nil, fmt.Errorf("reading keys of %s: %w", p.Entity().TableName(), err)
	}
	defer rows.Close()

	var keys []any
	for rows.Next() {
		var k any
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scanning key of %s: %w", p.Entity().TableName(), err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading keys of %s: %w", p.Entity().TableName(), err)
	}
	return keys, nil
}

// CountRows returns the number of rows in table.
func CountRows(ctx context.Context, q schema.Queryer, pc *workunit.Context, table string) (int, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", pc.Dialect.QuoteIdentifier(table)))
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", table, err)
	}
	defer rows.Close()

	var n int
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, fmt.Errorf("counting %s: %w", table, err)
		}
	}
	return n, rows.Err()
}
