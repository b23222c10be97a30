package cmd

import (
	"context"
	"database/sql"
	"testing"

	"db-extend/internal/dialect"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestFill_DryRunKeepsRowsWhenCleanIsSet(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		`CREATE TABLE "Widget" ("WidgetId" INTEGER PRIMARY KEY, "Title" TEXT)`,
		`CREATE TABLE "WidgetEx" ("WidgetIdEx" INTEGER PRIMARY KEY, "Notes" TEXT)`,
		`INSERT INTO "Widget" VALUES (1, 'one')`,
		`INSERT INTO "WidgetEx" VALUES (1, 'keep me')`,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}

	prevDB, prevDialect := DB, Dialect
	prevClean, prevDryRun, prevTargets := clean, fillDryRun, fillTargets
	t.Cleanup(func() {
		DB, Dialect = prevDB, prevDialect
		clean, fillDryRun, fillTargets = prevClean, prevDryRun, prevTargets
		viper.Reset()
		db.Close()
	})

	DB, Dialect = db, dialect.GetDialect("sqlite")
	clean, fillDryRun, fillTargets = true, true, nil
	viper.Set("entities", widgetConfig()[:1])

	fillCmd.SetContext(context.Background())
	require.NoError(t, fillCmd.RunE(fillCmd, nil))

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "WidgetEx"`).Scan(&n))
	assert.Equal(t, 1, n)
}
