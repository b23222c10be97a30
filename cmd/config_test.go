package cmd

import (
	"testing"
	"time"

	"db-extend/internal/workunit"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func widgetConfig() []map[string]any {
	return []map[string]any{
		{
			"name": "Widget",
			"fields": []map[string]any{
				{"name": "WidgetId", "type": "int", "key": true, "auto_increment": true},
				{"name": "Title", "type": "string", "size": 80},
				{"name": "Notes", "type": "text", "nullable": true, "extended": true},
			},
		},
		{
			"name":  "Gadget",
			"table": "gadgets",
			"fields": []map[string]any{
				{"name": "GadgetId", "column": "gadget_id", "type": "bigint", "key": true},
			},
		},
	}
}

func TestLoadEntities(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("entities", widgetConfig())

	entities, err := LoadEntities(nil)
	require.NoError(t, err)
	require.Len(t, entities, 2)

	w := entities[0]
	assert.Equal(t, "Widget", w.TableName())
	assert.True(t, w.HasExtendedProperties())
	assert.True(t, w.Field("WidgetId").IsKey())
	assert.True(t, w.Field("WidgetId").IsAutoIncrement())
	assert.Equal(t, 80, w.Field("Title").Size)

	g := entities[1]
	assert.Equal(t, "gadgets", g.TableName())
	assert.Equal(t, "gadget_id", g.Field("GadgetId").Column())

	only, err := LoadEntities([]string{"gadget"})
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, "Gadget", only[0].Name)

	_, err = LoadEntities([]string{"Missing"})
	assert.Error(t, err)
}

func TestLoadEntities_Validation(t *testing.T) {
	t.Cleanup(viper.Reset)

	viper.Set("entities", []map[string]any{{"name": "Broken", "fields": []map[string]any{
		{"name": "Id", "type": "varchar2", "key": true},
	}}})
	_, err := LoadEntities(nil)
	assert.ErrorContains(t, err, "oneof")

	viper.Set("entities", []map[string]any{{"name": "Empty"}})
	_, err = LoadEntities(nil)
	assert.ErrorContains(t, err, "Fields")

	viper.Set("entities", []map[string]any{{"name": "Neg", "fields": []map[string]any{
		{"name": "Id", "type": "string", "size": -1},
	}}})
	_, err = LoadEntities(nil)
	assert.ErrorContains(t, err, "gte")

	viper.Set("entities", []map[string]any{})
	_, err = LoadEntities(nil)
	assert.Error(t, err)
}

func TestGetActiveDBConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	viper.Set("databases", []map[string]any{
		{"name": "local", "driver": "sqlite", "dsn": "file:test.db", "active": true},
		{"name": "prod", "driver": "postgres", "dsn": "postgres://x", "active": false},
	})
	cfg, err := GetActiveDBConfig()
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Name)

	viper.Set("databases", []map[string]any{
		{"name": "a", "active": true},
		{"name": "b", "active": true},
	})
	_, err = GetActiveDBConfig()
	assert.Error(t, err)
}

func TestDetectDriver(t *testing.T) {
	tests := map[string]string{
		"postgres://u:p@localhost/db?sslmode=disable": "postgres",
		"host=localhost sslmode=disable":              "postgres",
		"sqlserver://sa:pw@localhost?database=app":    "sqlserver",
		"oracle://u:p@localhost:1521/XE":              "oracle",
		"file:app.db?cache=shared":                    "sqlite",
		"/var/data/app.sqlite":                        "sqlite",
		"root:root@tcp(127.0.0.1:3306)/app":           "mysql",
	}
	for in, want := range tests {
		assert.Equal(t, want, detectDriver(in), in)
	}
}

func TestApplyTimeouts(t *testing.T) {
	prevDefault, prevSchema := workunit.DefaultTimeout, workunit.SchemaTimeout
	t.Cleanup(func() {
		workunit.DefaultTimeout, workunit.SchemaTimeout = prevDefault, prevSchema
		viper.Reset()
	})

	viper.Set("settings.statement_timeout", "5s")
	viper.Set("settings.schema_timeout", "10m")
	applyTimeouts()
	assert.Equal(t, 5*time.Second, workunit.DefaultTimeout)
	assert.Equal(t, 10*time.Minute, workunit.SchemaTimeout)
}
