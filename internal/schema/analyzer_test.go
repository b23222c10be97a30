package schema_test

import (
	"context"
	"database/sql"
	"testing"

	"db-extend/internal/dialect"
	"db-extend/internal/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestSortTablesByFKCount_ComplexCircular(t *testing.T) {
	// A -> B -> C -> D -> E -> A (cycle)
	// F -> E (plain reference)
	// G (independent)
	tables := []*schema.Table{
		{Name: "A", Dependencies: []string{"B"}},
		{Name: "B", Dependencies: []string{"C"}},
		{Name: "C", Dependencies: []string{"D"}},
		{Name: "D", Dependencies: []string{"E"}},
		{Name: "E", Dependencies: []string{"A"}},
		{Name: "F", Dependencies: []string{"E"}},
		{Name: "G", Dependencies: []string{}},
	}

	sorted := schema.SortTablesByFKCount(tables)

	if len(sorted) != len(tables) {
		t.Errorf("Expected %d tables, got %d", len(tables), len(sorted))
	}

	visited := make(map[string]bool)
	for _, tbl := range sorted {
		visited[tbl.Name] = true
	}
	for _, name := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		if !visited[name] {
			t.Errorf("table %s missing from sorted list", name)
		}
	}

	if sorted[0].Name != "G" {
		t.Errorf("Expected independent table G first, got %s", sorted[0].Name)
	}
}

func TestSortTablesByFKCount_Simple(t *testing.T) {
	// Widget <- WidgetEx, Widget <- WidgetPart <- WidgetPartEx
	tables := []*schema.Table{
		{Name: "WidgetPartEx", Dependencies: []string{"WidgetPart"}},
		{Name: "WidgetEx", Dependencies: []string{"Widget"}},
		{Name: "WidgetPart", Dependencies: []string{"Widget"}},
		{Name: "Widget", Dependencies: []string{}},
	}

	sorted := schema.SortTablesByFKCount(tables)

	pos := make(map[string]int)
	for i, tbl := range sorted {
		pos[tbl.Name] = i
	}
	if pos["Widget"] != 0 {
		t.Errorf("Expected Widget first, got %s", sorted[0].Name)
	}
	if pos["WidgetPart"] > pos["WidgetPartEx"] {
		t.Errorf("Expected WidgetPart before WidgetPartEx, got %v", pos)
	}
}

func TestTableLookups(t *testing.T) {
	tbl := &schema.Table{
		Name: "WidgetEx",
		Columns: []*schema.Column{
			{Name: "WidgetIdEx", IsPK: true},
			{Name: "Notes"},
		},
		Indexes: []*schema.Index{{Name: "IX_WidgetEx_Notes", Columns: []string{"Notes"}}},
		ForeignKeys: []*schema.ForeignKey{
			{Name: "FK_WidgetEx_Widget", Columns: []string{"WidgetIdEx"}, RefTable: "Widget", RefColumns: []string{"WidgetId"}},
		},
	}

	assert.NotNil(t, tbl.Column("notes"))
	assert.Nil(t, tbl.Column("Missing"))
	assert.Len(t, tbl.PrimaryKey(), 1)
	assert.NotNil(t, tbl.Index("ix_widgetex_notes"))
	assert.NotNil(t, tbl.IndexOn([]string{"NOTES"}))
	assert.Nil(t, tbl.IndexOn([]string{"Notes", "WidgetIdEx"}))
	assert.NotNil(t, tbl.ForeignKeyTo("widget", []string{"WidgetIdEx"}))
	assert.Nil(t, tbl.ForeignKeyTo("Gadget", []string{"WidgetIdEx"}))
}

func TestAnalyze_SQLite(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	for _, stmt := range []string{
		`CREATE TABLE "Widget" ("WidgetId" INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL, "Title" VARCHAR(80) NOT NULL)`,
		`CREATE TABLE "WidgetEx" ("WidgetIdEx" INTEGER NOT NULL, "Notes" TEXT NULL,
			CONSTRAINT "PK_WidgetEx" PRIMARY KEY ("WidgetIdEx"),
			CONSTRAINT "FK_WidgetEx_Widget" FOREIGN KEY ("WidgetIdEx") REFERENCES "Widget" ("WidgetId"))`,
		`CREATE INDEX "IX_Widget_Title" ON "Widget" ("Title")`,
	} {
		_, err := db.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}

	tables, err := schema.Analyze(ctx, db, dialect.GetDialect("sqlite"), "")
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "Widget", tables[0].Name)
	assert.Equal(t, "WidgetEx", tables[1].Name)

	widget := tables[0]
	id := widget.Column("WidgetId")
	require.NotNil(t, id)
	assert.True(t, id.IsPK)
	assert.True(t, id.IsAutoInc)
	title := widget.Column("Title")
	require.NotNil(t, title)
	assert.Equal(t, "string", title.DataType)
	assert.Equal(t, 80, title.Length)
	assert.False(t, title.IsNullable)
	require.NotNil(t, widget.Index("IX_Widget_Title"))
	assert.Equal(t, []string{"Title"}, widget.Index("IX_Widget_Title").Columns)

	ext := tables[1]
	assert.True(t, ext.Column("Notes").IsNullable)
	assert.Equal(t, []string{"Widget"}, ext.Dependencies)
	fk := ext.ForeignKeyTo("Widget", []string{"WidgetIdEx"})
	require.NotNil(t, fk)
	assert.Equal(t, []string{"WidgetId"}, fk.RefColumns)
}
