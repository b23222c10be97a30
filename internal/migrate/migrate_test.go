package migrate_test

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"testing"

	"db-extend/internal/dialect"
	"db-extend/internal/logging"
	"db-extend/internal/migrate"
	"db-extend/internal/model"
	"db-extend/internal/schema"
	"db-extend/internal/workunit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

var quiet = logging.New(io.Discard)

func widget(t *testing.T, extra ...*model.Field) *model.Entity {
	t.Helper()
	fields := []*model.Field{
		{Name: "WidgetId", DataType: "int", Flags: model.Key | model.AutoIncrement},
		{Name: "Title", DataType: "string", Size: 80},
		{Name: "Notes", DataType: "text", Flags: model.Nullable, Extended: true, Indexed: true},
	}
	e, err := model.NewEntity("Widget", "", append(fields, extra...)...)
	require.NoError(t, err)
	return e
}

func actions(units []workunit.SchemaUnit) []workunit.Action {
	var out []workunit.Action
	for _, u := range units {
		out = append(out, u.Action())
	}
	return out
}

func TestPlan_EmptyDatabase(t *testing.T) {
	units, err := migrate.Plan(quiet, dialect.GetDialect("postgres"), nil, widget(t))
	require.NoError(t, err)

	sorted := workunit.SortSchemaUnits(units)
	assert.Equal(t, []workunit.Action{
		workunit.ActionCreateTable,
		workunit.ActionCreateTable,
		workunit.ActionCreateIndex,
		workunit.ActionCreateForeignKey,
	}, actions(sorted))
	assert.Equal(t, "Widget", sorted[0].Table())
	assert.Equal(t, "WidgetEx", sorted[1].Table())
}

func TestPlan_InlineForeignKeys(t *testing.T) {
	units, err := migrate.Plan(quiet, dialect.GetDialect("sqlite"), nil, widget(t))
	require.NoError(t, err)
	assert.NotContains(t, actions(units), workunit.ActionCreateForeignKey)
}

func TestPlan_ExistingTables(t *testing.T) {
	live := []*schema.Table{
		{Name: "widget", Columns: []*schema.Column{
			{Name: "WidgetId", DataType: "int", IsPK: true},
			{Name: "Title", DataType: "string", Length: 40},
		}},
		{Name: "WidgetEx", Columns: []*schema.Column{
			{Name: "WidgetIdEx", DataType: "int", IsPK: true},
		}, Indexes: []*schema.Index{{Name: "IX_Legacy", Columns: []string{"Notes"}, Unique: true}},
			ForeignKeys: []*schema.ForeignKey{{Name: "FK_WidgetEx_Widget", Columns: []string{"WidgetIdEx"}, RefTable: "Gadget", RefColumns: []string{"GadgetId"}}}},
	}

	units, err := migrate.Plan(quiet, dialect.GetDialect("postgres"), live, widget(t))
	require.NoError(t, err)

	sorted := workunit.SortSchemaUnits(units)
	assert.Equal(t, []workunit.Action{
		workunit.ActionDropIndex,
		workunit.ActionDropForeignKey,
		workunit.ActionAddColumn,
		workunit.ActionAlterColumn,
		workunit.ActionCreateIndex,
		workunit.ActionCreateForeignKey,
	}, actions(sorted))
	assert.Equal(t, "widen Widget.Title from 40 to 80", sorted[3].Reason())

	// SQLite cannot widen or add foreign keys later; those are left out.
	units, err = migrate.Plan(quiet, dialect.GetDialect("sqlite"), live, widget(t))
	require.NoError(t, err)
	assert.Equal(t, []workunit.Action{
		workunit.ActionAddColumn,
		workunit.ActionDropIndex,
		workunit.ActionCreateIndex,
	}, actions(units))
}

func TestPlan_WarnsOnCallerLogger(t *testing.T) {
	live := []*schema.Table{{Name: "Widget", Columns: []*schema.Column{
		{Name: "WidgetId", DataType: "int", IsPK: true},
		{Name: "Title", DataType: "string", Length: 40},
	}}}

	var buf bytes.Buffer
	log := logging.New(&buf).With().Str("pass", "p-42").Logger()
	_, err := migrate.Plan(log, dialect.GetDialect("sqlite"), live, widget(t))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "dialect cannot alter it")
	assert.Contains(t, out, `"pass":"p-42"`)
}

func TestPlan_UnboundedLiveColumn(t *testing.T) {
	live := []*schema.Table{{Name: "Widget", Columns: []*schema.Column{
		{Name: "WidgetId", DataType: "int", IsPK: true},
		{Name: "Title", DataType: "string", Length: -1},
	}}}
	e, err := model.NewEntity("Widget", "",
		&model.Field{Name: "WidgetId", DataType: "int", Flags: model.Key},
		&model.Field{Name: "Title", DataType: "string", Size: 80},
	)
	require.NoError(t, err)

	units, err := migrate.Plan(quiet, dialect.GetDialect("sqlserver"), live, e)
	require.NoError(t, err)
	assert.Empty(t, units)
}

func TestPlan_CompositeKeyWithExtendedFields(t *testing.T) {
	e, err := model.NewEntity("Link", "",
		&model.Field{Name: "A", DataType: "int", Flags: model.Key},
		&model.Field{Name: "B", DataType: "int", Flags: model.Key},
		&model.Field{Name: "Label", DataType: "string", Extended: true},
	)
	require.NoError(t, err)
	_, err = migrate.Plan(quiet, dialect.GetDialect("mysql"), nil, e)
	assert.ErrorIs(t, err, workunit.ErrPrecondition)
}

func openDB(t *testing.T) (*sql.DB, *workunit.Context) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	db.SetMaxOpenConns(1)

	pc, err := workunit.NewContext(workunit.NewConn(db), dialect.GetDialect("sqlite"), workunit.WithLogger(logging.New(io.Discard)))
	require.NoError(t, err)
	return db, pc
}

func TestRun_SQLite(t *testing.T) {
	db, pc := openDB(t)
	ctx := context.Background()
	d := pc.Dialect

	units, err := migrate.Plan(quiet, d, nil, widget(t))
	require.NoError(t, err)

	var progress []int
	require.NoError(t, migrate.Run(ctx, pc, units, func(done, total int) {
		assert.Equal(t, len(units), total)
		progress = append(progress, done)
	}))
	assert.Equal(t, []int{1, 2, 3}, progress)

	live, err := schema.Analyze(ctx, db, d, "")
	require.NoError(t, err)
	require.Len(t, live, 2)
	assert.NotNil(t, live[1].ForeignKeyTo("Widget", []string{"WidgetIdEx"}))
	assert.NotNil(t, live[1].Index("IX_WidgetEx_Notes"))

	// Reconciled: nothing left to do.
	units, err = migrate.Plan(quiet, d, live, widget(t))
	require.NoError(t, err)
	assert.Empty(t, units)

	// A new extended field becomes one added column.
	grown := widget(t, &model.Field{Name: "Color", DataType: "string", Size: 20, Flags: model.Nullable, Extended: true})
	units, err = migrate.Plan(quiet, d, live, grown)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, workunit.ActionAddColumn, units[0].Action())
	assert.Equal(t, "WidgetEx", units[0].Table())
	require.NoError(t, migrate.Run(ctx, pc, units, nil))

	live, err = schema.Analyze(ctx, db, d, "")
	require.NoError(t, err)
	color := live[1].Column("Color")
	require.NotNil(t, color)
	assert.Equal(t, 20, color.Length)
	assert.True(t, color.IsNullable)
}

func TestRun_SkipsIndexOverDuplicates(t *testing.T) {
	db, pc := openDB(t)
	ctx := context.Background()

	for _, stmt := range []string{
		`CREATE TABLE "Gadget" ("GadgetId" INTEGER NOT NULL PRIMARY KEY, "Code" VARCHAR(10) NOT NULL)`,
		`INSERT INTO "Gadget" VALUES (1, 'A'), (2, 'A')`,
	} {
		_, err := db.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}
	live, err := schema.Analyze(ctx, db, pc.Dialect, "")
	require.NoError(t, err)

	gadget, err := model.NewEntity("Gadget", "",
		&model.Field{Name: "GadgetId", DataType: "int", Flags: model.Key},
		&model.Field{Name: "Code", DataType: "string", Size: 10, Unique: true},
		&model.Field{Name: "Weight", DataType: "float", Flags: model.Nullable},
	)
	require.NoError(t, err)

	units, err := migrate.Plan(quiet, pc.Dialect, live, gadget)
	require.NoError(t, err)
	require.NoError(t, migrate.Run(ctx, pc, units, nil))

	skipped := pc.Results.Skipped()
	require.Len(t, skipped, 1)
	assert.Equal(t, "create index UX_Gadget_Code on Gadget", skipped[0].Unit)

	live, err = schema.Analyze(ctx, db, pc.Dialect, "")
	require.NoError(t, err)
	assert.NotNil(t, live[0].Column("Weight"))
	assert.Nil(t, live[0].Index("UX_Gadget_Code"))
}

func TestRun_AbortsOnFailure(t *testing.T) {
	_, pc := openDB(t)
	ctx := context.Background()

	// Adding to a table that does not exist fails and stops the pass.
	add, err := workunit.NewAddColumn("Missing", &schema.Column{Name: "X", DataType: "int", IsNullable: true}, "")
	require.NoError(t, err)
	create, err := workunit.NewCreateTable(&schema.Table{Name: "Later", Columns: []*schema.Column{{Name: "Id", DataType: "int", IsPK: true}}}, "")
	require.NoError(t, err)
	ix, err := workunit.NewCreateIndex("Later", &schema.Index{Name: "IX_Later_Id", Columns: []string{"Id"}}, "")
	require.NoError(t, err)

	err = migrate.Run(ctx, pc, []workunit.SchemaUnit{ix, add, create}, nil)
	require.Error(t, err)
	var execErr *workunit.ExecError
	require.ErrorAs(t, err, &execErr)
	assert.Contains(t, err.Error(), "after 1 of 3")
	// CreateTable ran first, the index never did.
	assert.Len(t, pc.Results.Outcomes(), 2)
}

func TestPreview(t *testing.T) {
	_, pc := openDB(t)
	units, err := migrate.Plan(quiet, pc.Dialect, nil, widget(t))
	require.NoError(t, err)

	stmts, err := migrate.Preview(context.Background(), pc, units)
	require.NoError(t, err)
	require.Len(t, stmts, 3)
	assert.Contains(t, stmts[0].Text, `CREATE TABLE "Widget"`)
	assert.Contains(t, stmts[1].Text, `REFERENCES "Widget"`)
	assert.Equal(t, `CREATE INDEX "IX_WidgetEx_Notes" ON "WidgetEx" ("Notes")`, stmts[2].Text)
	assert.Empty(t, pc.Results.Outcomes())
}
