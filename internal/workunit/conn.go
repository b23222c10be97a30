package workunit

import (
	"context"
	"database/sql"
	"fmt"
)

// Conn executes statements for a processing pass.
type Conn interface {
	// ExecNonQuery runs st and returns the number of affected rows (-1 if unknown).
	ExecNonQuery(ctx context.Context, st Statement) (int64, error)
	// Exists runs st as a query and reports whether it returned at least one row.
	Exists(ctx context.Context, st Statement) (bool, error)
}

// Querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// NewConn adapts a database handle. Pass a *sql.Tx to run units inside the
// caller's transaction; with a *sql.DB every statement auto-commits.
func NewConn(q Querier) Conn {
	return &sqlConn{q: q}
}

type sqlConn struct {
	q Querier
}

func (c *sqlConn) ExecNonQuery(ctx context.Context, st Statement) (int64, error) {
	ctx, cancel := withTimeout(ctx, st)
	defer cancel()

	res, err := c.q.ExecContext(ctx, st.Text, st.Args()...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return -1, nil
	}
	return n, nil
}

func (c *sqlConn) Exists(ctx context.Context, st Statement) (bool, error) {
	ctx, cancel := withTimeout(ctx, st)
	defer cancel()

	rows, err := c.q.QueryContext(ctx, st.Text, st.Args()...)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	found := rows.Next()
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("reading probe result: %w", err)
	}
	return found, nil
}

func withTimeout(ctx context.Context, st Statement) (context.Context, context.CancelFunc) {
	if st.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, st.Timeout)
}
