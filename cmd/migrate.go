package cmd

import (
	"fmt"
	"time"

	"db-extend/internal/metrics"
	"db-extend/internal/migrate"
	"db-extend/internal/schema"
	"db-extend/internal/workunit"

	"github.com/gosuri/uiprogress"
	"github.com/spf13/cobra"
)

var (
	migrateDryRun bool
	metricsFile   string
	entityNames   []string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or extend tables to match the declared entities",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		entities, err := LoadEntities(entityNames)
		if err != nil {
			return err
		}

		// 1. Analyze
		logger.Info().Str("schema", SchemaName).Msg("analyzing schema")
		live, err := schema.Analyze(ctx, DB, Dialect, SchemaName)
		if err != nil {
			return err
		}

		collector := metrics.NewCollector(DriverName)
		pc, err := workunit.NewContext(workunit.NewConn(DB), Dialect,
			workunit.WithLogger(logger), workunit.WithReporter(collector))
		if err != nil {
			return err
		}

		// 2. Plan
		units, err := migrate.Plan(pc.Logger, Dialect, live, entities...)
		if err != nil {
			return err
		}
		if len(units) == 0 {
			fmt.Println("✓ Schema is up to date")
			return nil
		}

		// Dry Run
		if migrateDryRun {
			stmts, err := migrate.Preview(ctx, pc, units)
			if err != nil {
				return err
			}
			fmt.Printf("🔍 %d changes planned:\n", len(units))
			for i, st := range stmts {
				fmt.Printf("[%02d] %s;\n", i+1, st.Text)
			}
			return nil
		}

		start := time.Now()
		uiprogress.Start()
		bar := uiprogress.AddBar(len(units)).AppendCompleted().PrependElapsed()
		bar.PrependFunc(func(b *uiprogress.Bar) string {
			return "Migrating: "
		})

		runErr := migrate.Run(ctx, pc, units, func(done, total int) {
			bar.Set(done)
		})
		uiprogress.Stop()

		if metricsFile != "" {
			if err := collector.WriteTextfile(metricsFile); err != nil {
				logger.Warn().Err(err).Msg("metrics not written")
			}
		}

		printOutcomes(pc.Results.Outcomes())
		if runErr != nil {
			return runErr
		}
		logger.Info().Dur("elapsed", time.Since(start)).Int("changes", len(units)).Msg("migration done")
		return nil
	},
}

func printOutcomes(outcomes []workunit.Outcome) {
	fmt.Println("\n📊 Summary Report (Execution Order):")
	for i, o := range outcomes {
		icon := "✓"
		status := "OK"
		switch {
		case o.Skipped:
			icon, status = "!", "SKIPPED"
		case o.Err != nil:
			icon, status = "✗", "FAILED"
		}
		fmt.Printf("[%s] [%02d/%02d] %-50s : %s (%s)\n", icon, i+1, len(outcomes), o.Unit, status, o.Duration.Round(time.Millisecond))
		if o.Err != nil {
			fmt.Printf("    └ Error: %v\n", o.Err)
		}
	}
	fmt.Println("--------------------------------------------------")
}

func init() {
	RootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "Print the planned statements without executing them")
	migrateCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile after the run")
	migrateCmd.Flags().StringSliceVarP(&entityNames, "entities", "e", []string{}, "Specific entities to migrate (comma-separated)")
}
