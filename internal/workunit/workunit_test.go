package workunit_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"db-extend/internal/dialect"
	"db-extend/internal/logging"
	"db-extend/internal/schema"
	"db-extend/internal/workunit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	executed []workunit.Statement
	failOn   string
	exists   bool
	probes   int
}

func (c *fakeConn) ExecNonQuery(_ context.Context, st workunit.Statement) (int64, error) {
	if c.failOn != "" && strings.Contains(st.Text, c.failOn) {
		return 0, errors.New("duplicate key found")
	}
	c.executed = append(c.executed, st)
	return 1, nil
}

func (c *fakeConn) Exists(_ context.Context, _ workunit.Statement) (bool, error) {
	c.probes++
	return c.exists, nil
}

type countingReporter struct {
	executed, skipped, failed []string
}

func (r *countingReporter) UnitExecuted(_ workunit.Kind, action string, _ time.Duration) {
	r.executed = append(r.executed, action)
}
func (r *countingReporter) UnitSkipped(_ workunit.Kind, action string, _ error) {
	r.skipped = append(r.skipped, action)
}
func (r *countingReporter) UnitFailed(_ workunit.Kind, action string, _ error) {
	r.failed = append(r.failed, action)
}

func newContext(t *testing.T, conn workunit.Conn, opts ...workunit.Option) *workunit.Context {
	t.Helper()
	opts = append([]workunit.Option{workunit.WithLogger(logging.New(&bytes.Buffer{}))}, opts...)
	pc, err := workunit.NewContext(conn, dialect.GetDialect("postgres"), opts...)
	require.NoError(t, err)
	return pc
}

func widgetTable() *schema.Table {
	return &schema.Table{
		Name: "Widget",
		Columns: []*schema.Column{
			{Name: "WidgetId", DataType: "int", IsPK: true},
			{Name: "Title", DataType: "string", Length: 80},
		},
	}
}

// allVariants returns one unit of every action, in reverse phase order.
func allVariants(t *testing.T) []workunit.SchemaUnit {
	t.Helper()
	fk, err := workunit.NewCreateForeignKey("WidgetEx", &schema.ForeignKey{
		Name: "FK_WidgetEx_Widget", Columns: []string{"WidgetIdEx"}, RefTable: "Widget", RefColumns: []string{"WidgetId"},
	}, "")
	require.NoError(t, err)
	uq, err := workunit.NewAddConstraint("Widget", &schema.Index{Name: "UQ_Widget_Title", Columns: []string{"Title"}}, "")
	require.NoError(t, err)
	ix, err := workunit.NewCreateIndex("Widget", &schema.Index{Name: "IX_Widget_Title", Columns: []string{"Title"}}, "")
	require.NoError(t, err)
	alter, err := workunit.NewAlterColumn("Widget", &schema.Column{Name: "Title", DataType: "string", Length: 200}, "")
	require.NoError(t, err)
	add, err := workunit.NewAddColumn("Widget", &schema.Column{Name: "Color", DataType: "string", IsNullable: true}, "")
	require.NoError(t, err)
	dropFK, err := workunit.NewDropForeignKey("WidgetEx", "FK_Old", "")
	require.NoError(t, err)
	dropC, err := workunit.NewDropConstraint("Widget", "UQ_Old", "")
	require.NoError(t, err)
	dropIx, err := workunit.NewDropIndex("Widget", "IX_Old", "")
	require.NoError(t, err)
	create, err := workunit.NewCreateTable(widgetTable(), "")
	require.NoError(t, err)
	return []workunit.SchemaUnit{fk, uq, ix, alter, add, dropFK, dropC, dropIx, create}
}

func TestSortSchemaUnits_PhaseOrder(t *testing.T) {
	sorted := workunit.SortSchemaUnits(allVariants(t))

	var got []workunit.Priority
	for _, u := range sorted {
		got = append(got, workunit.Classify(u))
	}
	assert.Equal(t, []workunit.Priority{
		workunit.PriorityCreateTable,
		workunit.PriorityDropIndex,
		workunit.PriorityDropConstraint,
		workunit.PriorityDropForeignKey,
		workunit.PriorityAddColumn,
		workunit.PriorityAlterColumn,
		workunit.PriorityCreateIndex,
		workunit.PriorityAddConstraint,
		workunit.PriorityCreateForeignKey,
	}, got)
}

func TestCompare_AllPairs(t *testing.T) {
	units := allVariants(t)
	for _, a := range units {
		for _, b := range units {
			pa, pb := workunit.Classify(a), workunit.Classify(b)
			c := workunit.Compare(a, b)
			switch {
			case pa < pb:
				assert.Negative(t, c, "%s vs %s", pa, pb)
			case pa > pb:
				assert.Positive(t, c, "%s vs %s", pa, pb)
			default:
				assert.Zero(t, c, "%s vs %s", pa, pb)
			}
		}
	}
}

func TestSortSchemaUnits_KeepsInsertionOrderWithinPhase(t *testing.T) {
	var units []workunit.SchemaUnit
	for _, name := range []string{"C", "A", "B"} {
		u, err := workunit.NewAddColumn("Widget", &schema.Column{Name: name, DataType: "int", IsNullable: true}, "")
		require.NoError(t, err)
		units = append(units, u)
	}
	create, err := workunit.NewCreateTable(widgetTable(), "")
	require.NoError(t, err)
	units = append(units, create)

	sorted := workunit.SortSchemaUnits(units)
	require.Len(t, sorted, 4)
	assert.Equal(t, workunit.ActionCreateTable, sorted[0].Action())
	var names []string
	for _, u := range sorted[1:] {
		names = append(names, u.(*workunit.AddColumn).Column.Name)
	}
	assert.Equal(t, []string{"C", "A", "B"}, names)
	// Input untouched.
	assert.Equal(t, workunit.ActionAddColumn, units[0].Action())
}

func TestClassify_Unknown(t *testing.T) {
	assert.Equal(t, workunit.PriorityUnknown, workunit.Classify(nil))
	assert.Equal(t, "Unknown", workunit.PriorityUnknown.String())
	assert.Equal(t, "CreateForeignKey", workunit.PriorityCreateForeignKey.String())
}

func TestSchemaUnits_Statements(t *testing.T) {
	pc := newContext(t, &fakeConn{})
	ctx := context.Background()

	for _, u := range allVariants(t) {
		stmts, err := u.Statements(ctx, pc)
		require.NoError(t, err, u.Reason())
		require.Len(t, stmts, 1, u.Reason())
		assert.Equal(t, workunit.SchemaTimeout, stmts[0].Timeout)
		assert.Empty(t, stmts[0].Params)
		assert.Equal(t, workunit.KindSchema, u.Kind())
		assert.NotEmpty(t, u.Reason())
	}

	add, err := workunit.NewAddColumn("Widget", &schema.Column{Name: "Color", DataType: "string", Length: 20, IsNullable: true}, "")
	require.NoError(t, err)
	stmts, err := add.Statements(ctx, pc)
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "Widget" ADD COLUMN "Color" VARCHAR(20) NULL`, stmts[0].Text)

	alter, err := workunit.NewAlterColumn("Widget", &schema.Column{Name: "Color", DataType: "string", Length: 40}, "")
	require.NoError(t, err)
	stmts, err = alter.Statements(ctx, pc)
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "Widget" ALTER COLUMN "Color" TYPE VARCHAR(40)`, stmts[0].Text)
}

func TestSchemaUnits_Preconditions(t *testing.T) {
	_, err := workunit.NewCreateTable(nil, "")
	assert.ErrorIs(t, err, workunit.ErrPrecondition)
	_, err = workunit.NewAddColumn("", &schema.Column{Name: "X"}, "")
	assert.ErrorIs(t, err, workunit.ErrPrecondition)
	_, err = workunit.NewAddColumn("Widget", nil, "")
	assert.ErrorIs(t, err, workunit.ErrPrecondition)
	_, err = workunit.NewCreateIndex("Widget", &schema.Index{Name: "IX"}, "")
	assert.ErrorIs(t, err, workunit.ErrPrecondition)
	_, err = workunit.NewCreateForeignKey("WidgetEx", &schema.ForeignKey{
		Name: "FK", Columns: []string{"A", "B"}, RefTable: "Widget", RefColumns: []string{"A"},
	}, "")
	assert.ErrorIs(t, err, workunit.ErrPrecondition)
	_, err = workunit.NewDropConstraint("Widget", "", "")
	assert.ErrorIs(t, err, workunit.ErrPrecondition)

	_, err = workunit.NewContext(nil, dialect.GetDialect("mysql"))
	assert.ErrorIs(t, err, workunit.ErrPrecondition)
	_, err = workunit.NewContext(&fakeConn{}, nil)
	assert.ErrorIs(t, err, workunit.ErrPrecondition)

	assert.ErrorIs(t, workunit.Process(context.Background(), nil), workunit.ErrPrecondition)
	pc := newContext(t, &fakeConn{})
	assert.ErrorIs(t, workunit.Process(context.Background(), pc, nil), workunit.ErrPrecondition)
}

func TestProcess_IndexFailureIsSkipped(t *testing.T) {
	conn := &fakeConn{failOn: "CREATE INDEX"}
	rep := &countingReporter{}
	pc := newContext(t, conn, workunit.WithReporter(rep))

	ix, err := workunit.NewCreateIndex("Widget", &schema.Index{Name: "IX_Widget_Title", Columns: []string{"Title"}}, "title lookups")
	require.NoError(t, err)
	add, err := workunit.NewAddColumn("Widget", &schema.Column{Name: "Color", DataType: "string", IsNullable: true}, "")
	require.NoError(t, err)

	require.NoError(t, workunit.Process(context.Background(), pc, ix, add))

	require.Len(t, conn.executed, 1)
	assert.Contains(t, conn.executed[0].Text, "ADD COLUMN")

	skipped := pc.Results.Skipped()
	require.Len(t, skipped, 1)
	assert.Equal(t, "title lookups", skipped[0].Unit)
	var execErr *workunit.ExecError
	require.ErrorAs(t, skipped[0].Err, &execErr)
	assert.Contains(t, execErr.Statement, "CREATE INDEX")

	assert.Equal(t, []string{"create_index"}, rep.skipped)
	assert.Equal(t, []string{"add_column"}, rep.executed)
	assert.Len(t, pc.Results.Outcomes(), 2)
}

func TestProcess_OtherFailuresAbort(t *testing.T) {
	conn := &fakeConn{failOn: "ADD COLUMN"}
	rep := &countingReporter{}
	pc := newContext(t, conn, workunit.WithReporter(rep))

	add, err := workunit.NewAddColumn("Widget", &schema.Column{Name: "Color", DataType: "string", IsNullable: true}, "")
	require.NoError(t, err)
	ix, err := workunit.NewCreateIndex("Widget", &schema.Index{Name: "IX_Widget_Title", Columns: []string{"Title"}}, "")
	require.NoError(t, err)

	err = workunit.Process(context.Background(), pc, add, ix)
	require.Error(t, err)

	var execErr *workunit.ExecError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "add column Widget.Color", execErr.Unit)
	assert.EqualError(t, errors.Unwrap(err), "duplicate key found")

	assert.Empty(t, conn.executed, "later units must not run")
	assert.Equal(t, []string{"add_column"}, rep.failed)
	assert.Empty(t, pc.Results.Skipped())
}

func TestProcess_UnsupportedDDLAborts(t *testing.T) {
	conn := &fakeConn{}
	pc, err := workunit.NewContext(conn, dialect.GetDialect("sqlite"), workunit.WithLogger(logging.New(&bytes.Buffer{})))
	require.NoError(t, err)

	alter, err := workunit.NewAlterColumn("Widget", &schema.Column{Name: "Title", DataType: "string", Length: 200}, "")
	require.NoError(t, err)

	err = workunit.Process(context.Background(), pc, alter)
	assert.ErrorIs(t, err, dialect.ErrUnsupported)
	assert.Empty(t, conn.executed)
}

func TestProcess_CanceledContext(t *testing.T) {
	conn := &fakeConn{}
	pc := newContext(t, conn)
	create, err := workunit.NewCreateTable(widgetTable(), "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, workunit.Process(ctx, pc, create), context.Canceled)
	assert.Empty(t, conn.executed)
}

func TestResults_Bag(t *testing.T) {
	r := workunit.NewResults()
	r.Set("identity", int64(7))
	v, ok := r.Get("identity")
	assert.True(t, ok)
	assert.Equal(t, int64(7), v)
	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestStatementArgs(t *testing.T) {
	st := workunit.Statement{Params: []workunit.Param{{Name: "a", Value: 1}, {Name: "b", Value: nil}}}
	assert.Equal(t, []any{1, nil}, st.Args())
}
