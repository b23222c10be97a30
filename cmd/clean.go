package cmd

import (
	"context"
	"fmt"

	"db-extend/internal/extension"

	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove all rows from the extension tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		entities, err := LoadEntities(entityNames)
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

		return cleanExtensionTables(cmd.Context(), providers)
	},
}

func init() {
	RootCmd.AddCommand(cleanCmd)

	cleanCmd.Flags().StringSliceVarP(&entityNames, "entities", "e", []string{}, "Specific entities to clean (comma-separated)")
}

// cleanExtensionTables empties the side tables in reverse order. Core tables
// are left alone.
func cleanExtensionTables(ctx context.Context, providers []*extension.Provider) error {
	total := len(providers)
	failed := 0
	for i := total - 1; i >= 0; i-- {
		table := providers[i].TableName()
		if _, err := DB.ExecContext(ctx, Dialect.TruncateQuery(table)); err != nil {
			logger.Warn().Err(err).Str("table", table).Msg("failed to clean, continuing")
			failed++
			continue
		}
		logger.Info().Str("table", table).Int("done", total-i).Int("total", total).Msg("cleaned")
	}
	if failed == total && total > 0 {
		return fmt.Errorf("no extension table could be cleaned")
	}
	return nil
}
