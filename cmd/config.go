package cmd

import (
	"fmt"
	"strings"
	"time"

	"db-extend/internal/model"
	"db-extend/internal/workunit"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type DBConfig struct {
	Name   string `mapstructure:"name"`
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Active bool   `mapstructure:"active"`
}

// EntityConfig declares one entity under the "entities" key.
type EntityConfig struct {
	Name   string        `mapstructure:"name" validate:"required"`
	Table  string        `mapstructure:"table"`
	Fields []FieldConfig `mapstructure:"fields" validate:"required,min=1,dive"`
}

type FieldConfig struct {
	Name          string `mapstructure:"name" validate:"required"`
	Column        string `mapstructure:"column"`
	Type          string `mapstructure:"type" validate:"required,oneof=int bigint smallint decimal float bool string text datetime date blob uuid"`
	Size          int    `mapstructure:"size" validate:"gte=0"`
	Key           bool   `mapstructure:"key"`
	Nullable      bool   `mapstructure:"nullable"`
	AutoIncrement bool   `mapstructure:"auto_increment"`
	Common        bool   `mapstructure:"common"`
	Extended      bool   `mapstructure:"extended"`
	Default       string `mapstructure:"default"`
	Indexed       bool   `mapstructure:"indexed"`
	Unique        bool   `mapstructure:"unique"`
}

var validate = validator.New()

// GetActiveDBConfig returns the currently active database configuration.
func GetActiveDBConfig() (*DBConfig, error) {
	var configs []DBConfig

	if err := viper.UnmarshalKey("databases", &configs); err != nil {
		return nil, fmt.Errorf("failed to parse databases config: %w", err)
	}

	var activeConfig *DBConfig
	count := 0

	for i := range configs {
		if configs[i].Active {
			activeConfig = &configs[i]
			count++
		}
	}

	if count == 0 {
		return nil, fmt.Errorf("no active database found in config (set active: true)")
	}
	if count > 1 {
		return nil, fmt.Errorf("multiple active databases found (only one can be active)")
	}

	return activeConfig, nil
}

// LoadEntities reads and validates the "entities" list. When names is not
// empty only those entities are returned, in config order.
func LoadEntities(names []string) ([]*model.Entity, error) {
	var configs []EntityConfig
	if err := viper.UnmarshalKey("entities", &configs); err != nil {
		return nil, fmt.Errorf("failed to parse entities config: %w", err)
	}
	if len(configs) == 0 {
		return nil, fmt.Errorf("no entities declared in config")
	}

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[strings.ToLower(n)] = true
	}

	var entities []*model.Entity
	for i := range configs {
		ec := &configs[i]
		if len(wanted) > 0 && !wanted[strings.ToLower(ec.Name)] {
			continue
		}
		e, err := ec.Entity()
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	if len(entities) == 0 {
		return nil, fmt.Errorf("no matching entities found for inputs: %v", names)
	}
	return entities, nil
}

// Entity validates the config and builds the descriptor.
func (ec *EntityConfig) Entity() (*model.Entity, error) {
	if err := validate.Struct(ec); err != nil {
		return nil, fmt.Errorf("entity %q: %w", ec.Name, err)
	}
	fields := make([]*model.Field, len(ec.Fields))
	for i, fc := range ec.Fields {
		var flags model.Flag
		if fc.Key {
			flags |= model.Key
		}
		if fc.Nullable {
			flags |= model.Nullable
		}
		if fc.AutoIncrement {
			flags |= model.AutoIncrement
		}
		if fc.Common {
			flags |= model.Common
		}
		fields[i] = &model.Field{
			Name:       fc.Name,
			NativeName: fc.Column,
			DataType:   fc.Type,
			Size:       fc.Size,
			Flags:      flags,
			Extended:   fc.Extended,
			Default:    fc.Default,
			Indexed:    fc.Indexed,
			Unique:     fc.Unique,
		}
	}
	return model.NewEntity(ec.Name, ec.Table, fields...)
}

// applyTimeouts copies the configured statement timeouts into workunit.
func applyTimeouts() {
	if d := viper.GetDuration("settings.statement_timeout"); d > 0 {
		workunit.DefaultTimeout = d
	}
	if d := viper.GetDuration("settings.schema_timeout"); d > 0 {
		workunit.SchemaTimeout = d
	}
}

func init() {
	viper.SetDefault("settings.statement_timeout", 30*time.Second)
	viper.SetDefault("settings.schema_timeout", 5*time.Minute)
	viper.SetDefault("settings.upsert_strategy", "probe")
	viper.SetDefault("settings.default_count", 100)
}
