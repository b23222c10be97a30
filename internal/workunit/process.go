package workunit

import (
	"context"
	"fmt"
	"time"
)

// Process applies units strictly in the given order on pc.Conn.
//
// Every statement is a blocking round trip. A failing statement aborts the
// pass with an *ExecError unless the unit is a schema unit that tolerates
// failure, in which case the failure is logged, recorded as skipped and the
// next unit runs. Errors from building statements (preconditions, existence
// probes) always abort. Nothing is retried.
func Process(ctx context.Context, pc *Context, units ...Unit) error {
	if pc == nil {
		return preconditionf("no processing context")
	}
	for i, u := range units {
		if u == nil {
			return preconditionf("unit %d is nil", i)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := processUnit(ctx, pc, u); err != nil {
			return err
		}
	}
	return nil
}

func processUnit(ctx context.Context, pc *Context, u Unit) error {
	desc := Describe(u)
	action := actionLabel(u)
	start := time.Now()

	stmts, err := u.Statements(ctx, pc)
	if err != nil {
		pc.Logger.Error().Err(err).Str("unit", desc).Msg("building statements failed")
		pc.Results.record(Outcome{Unit: desc, Kind: u.Kind(), Err: err, Duration: time.Since(start)})
		if pc.Reporter != nil {
			pc.Reporter.UnitFailed(u.Kind(), action, err)
		}
		return fmt.Errorf("%s: %w", desc, err)
	}

	var affected int64
	for _, st := range stmts {
		pc.Logger.Debug().Str("unit", desc).Str("sql", st.Text).Int("params", len(st.Params)).Msg("executing")

		n, err := pc.Conn.ExecNonQuery(ctx, st)
		if err == nil {
			affected += n
			continue
		}

		execErr := &ExecError{Unit: desc, Statement: st.Text, Err: err}
		outcome := Outcome{Unit: desc, Kind: u.Kind(), Statements: len(stmts), Affected: affected, Duration: time.Since(start), Err: execErr}
		if tolerant(u) {
			pc.Logger.Warn().Err(err).Str("unit", desc).Msg("optional change failed, continuing without it")
			outcome.Skipped = true
			pc.Results.record(outcome)
			if pc.Reporter != nil {
				pc.Reporter.UnitSkipped(u.Kind(), action, execErr)
			}
			return nil
		}

		pc.Logger.Error().Err(err).Str("unit", desc).Msg("change failed, aborting pass")
		pc.Results.record(outcome)
		if pc.Reporter != nil {
			pc.Reporter.UnitFailed(u.Kind(), action, execErr)
		}
		return execErr
	}

	elapsed := time.Since(start)
	pc.Results.record(Outcome{Unit: desc, Kind: u.Kind(), Statements: len(stmts), Affected: affected, Duration: elapsed})
	if pc.Reporter != nil {
		pc.Reporter.UnitExecuted(u.Kind(), action, elapsed)
	}
	return nil
}

func tolerant(u Unit) bool {
	su, ok := u.(SchemaUnit)
	return ok && su.ContinueOnError()
}

func actionLabel(u Unit) string {
	if su, ok := u.(SchemaUnit); ok {
		return su.Action().String()
	}
	return u.Kind().String()
}
