package cmd

import (
	"fmt"
	"time"

	"db-extend/internal/engine"
	"db-extend/internal/extension"
	"db-extend/internal/workunit"

	"github.com/gosuri/uiprogress"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	count       int
	clean       bool
	fillDryRun  bool
	fillTargets []string
)

var fillCmd = &cobra.Command{
	Use:   "fill",
	Short: "Fill extension tables with random values for existing rows",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Fetch count from Viper (Flag > Config > Default)
		targetCount := viper.GetInt("settings.default_count")
		if count > 0 {
			targetCount = count
		}

		// Entities strategy: --entities flag, then settings.entities, then all.
		names := fillTargets
		if len(names) == 0 {
			names = viper.GetStringSlice("settings.entities")
		}
		entities, err := LoadEntities(names)
		if err != nil {
			return err
		}

		var providers []*extension.Provider
		for _, e := range entities {
			if !e.HasExtendedProperties() {
				continue
			}
			p, err := extension.NewProvider(e)
			if err != nil {
				return err
			}
			providers = append(providers, p)
		}
		if len(providers) == 0 {
			return fmt.Errorf("no selected entity declares extended fields")
		}

		if fillDryRun {
			printFillPlan(providers, targetCount, clean)
			return nil
		}

		if clean {
			if err := cleanExtensionTables(ctx, providers); err != nil {
				return err
			}
		}

		up, err := extension.NewUpserter(viper.GetString("settings.upsert_strategy"), Dialect)
		if err != nil {
			return err
		}
		up = extension.NewSerializer(up)

		pc, err := workunit.NewContext(workunit.NewConn(DB), Dialect, workunit.WithLogger(logger))
		if err != nil {
			return err
		}

		logger.Info().Int("count", targetCount).Int("entities", len(providers)).Msg("starting fill")
		start := time.Now()

		uiprogress.Start()
		bar := uiprogress.AddBar(targetCount * len(providers)).AppendCompleted().PrependElapsed()
		bar.PrependFunc(func(b *uiprogress.Bar) string {
			return "Processing: "
		})

		var results []engine.Result
		for _, p := range providers {
			res, err := engine.Fill(ctx, DB, pc, p, targetCount, up, func() { bar.Incr() })
			if err != nil {
				uiprogress.Stop()
				return err
			}
			results = append(results, res)
		}
		uiprogress.Stop()

		fmt.Println("\n📊 Summary Report:")
		total := 0
		for i, r := range results {
			icon := "✓"
			if r.Status != "OK" {
				icon = "!"
			}
			fmt.Printf("[%s] [%02d/%02d] %-20s : %d saved, %d rows (Target: %d) - %s\n",
				icon, i+1, len(results), r.Table, r.Saved, r.Rows, r.Target, r.Status)
			if r.ErrorMsg != "" {
				fmt.Printf("    └ Error: %s\n", r.ErrorMsg)
			}
			total += r.Saved
		}
		fmt.Println("--------------------------------------------------")
		fmt.Printf("Total Operations: %d\n", total)
		logger.Info().Dur("elapsed", time.Since(start)).Msg("fill done")
		return nil
	},
}

// printFillPlan lists what fill would do without touching the database.
func printFillPlan(providers []*extension.Provider, targetCount int, clean bool) {
	fmt.Printf("🔍 Fill plan (%d rows each):\n", targetCount)
	if clean {
		fmt.Println("   extension tables would be cleaned first")
	}
	for i, p := range providers {
		fmt.Printf("[%02d] %s -> %s\n", i+1, p.Entity().TableName(), p.TableName())
	}
}

func init() {
	RootCmd.AddCommand(fillCmd)

	fillCmd.Flags().IntVar(&count, "count", 0, "Number of rows to fill per entity (overrides config)")
	fillCmd.Flags().BoolVar(&clean, "clean", false, "Clean extension tables before filling")
	fillCmd.Flags().BoolVar(&fillDryRun, "dry-run", false, "Show what would be filled without writing to DB")
	fillCmd.Flags().StringSliceVarP(&fillTargets, "entities", "e", []string{}, "Specific entities to fill (comma-separated)")

	viper.BindPFlag("settings.default_count", fillCmd.Flags().Lookup("count"))
}
