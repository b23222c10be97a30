package cmd

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"db-extend/internal/dialect"
	"db-extend/internal/logging"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	dsn        string
	DB         *sql.DB
	SchemaName string // passed to the analyzer
	cfgFile    string
	DriverName string
	Dialect    dialect.Dialect
)

var logger = logging.NewLogger()

var RootCmd = &cobra.Command{
	Use:   "db-extend",
	Short: "Schema reconciliation and extension tables for entity models",
	Long: `
  ____  ____    _______  _______ _____ _   _ ____
 |  _ \| __ )  | ____\ \/ /_   _| ____| \ | |  _ \
 | | | |  _ \  |  _|  \  /  | | |  _| |  \| | | | |
 | |_| | |_) | | |___ /  \  | | | |___| |\  | |_| |
 |____/|____/  |_____/_/\_\ |_| |_____|_| \_|____/

DB EXTEND - reconcile declared entities with a live database
`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		driver, connStr, err := connectionSettings()
		if err != nil {
			return err
		}
		DriverName = driver
		Dialect = dialect.GetDialect(DriverName)
		applyTimeouts()

		DB, err = sql.Open(DriverName, connStr)
		if err != nil {
			return fmt.Errorf("failed to open db: %w", err)
		}
		if err := DB.PingContext(cmd.Context()); err != nil {
			return fmt.Errorf("failed to connect to db: %w", err)
		}

		// Fetch current database/schema name for Analyzer
		if DriverName == "mysql" {
			if err := DB.QueryRowContext(cmd.Context(), "SELECT DATABASE()").Scan(&SchemaName); err != nil {
				return fmt.Errorf("failed to get database name: %w", err)
			}
			if SchemaName == "" {
				return fmt.Errorf("no database selected in DSN")
			}
		} else {
			SchemaName = Dialect.GetSchemaName(viper.GetString("database.schema"))
		}

		logger.Debug().Str("driver", DriverName).Str("schema", SchemaName).Msg("connected")
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if DB != nil {
			return DB.Close()
		}
		return nil
	},
}

// connectionSettings prefers the active entry of "databases" and falls back
// to database.dsn, guessing the driver from the DSN.
func connectionSettings() (string, string, error) {
	if active, err := GetActiveDBConfig(); err == nil && dsn == "" {
		driver := active.Driver
		if driver == "" {
			driver = detectDriver(active.DSN)
		}
		return driver, active.DSN, nil
	}

	connStr := viper.GetString("database.dsn")
	if connStr == "" {
		return "", "", fmt.Errorf("database.dsn is required (via flag or config)")
	}
	driver := viper.GetString("database.driver")
	if driver == "" {
		driver = detectDriver(connStr)
	}
	return driver, connStr, nil
}

func detectDriver(connStr string) string {
	lower := strings.ToLower(connStr)
	switch {
	case strings.HasPrefix(lower, "postgres") || strings.Contains(lower, "sslmode"):
		return "postgres"
	case strings.HasPrefix(lower, "sqlserver://"):
		return "sqlserver"
	case strings.HasPrefix(lower, "oracle://"):
		return "oracle"
	case strings.HasPrefix(lower, "file:") || lower == ":memory:" ||
		strings.HasSuffix(lower, ".db") || strings.HasSuffix(lower, ".sqlite"):
		return "sqlite"
	}
	return "mysql"
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./db-extend.yaml)")
	RootCmd.PersistentFlags().StringVar(&dsn, "dsn", "", "Database Source Name (DSN)")

	viper.BindPFlag("database.dsn", RootCmd.PersistentFlags().Lookup("dsn"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// 1. Executable Directory (Priority 1)
		ex, err := os.Executable()
		if err == nil {
			viper.AddConfigPath(filepath.Dir(ex))
		}

		// 2. Current Directory (Priority 2)
		viper.AddConfigPath(".")

		viper.SetConfigName("db-extend")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		logger.Info().Str("file", viper.ConfigFileUsed()).Msg("using config file")
	}
}
