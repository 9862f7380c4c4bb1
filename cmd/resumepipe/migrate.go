package main

import (
	"github.com/spf13/cobra"

	"resume-pipeline/internal/shared/config"
	"resume-pipeline/internal/shared/telemetry"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply schema migrations and document store indexes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		rt, err := setup(ctx, func(c *config.Config) { c.AutoMigrate = false })
		if err != nil {
			return err
		}
		defer rt.close(ctx)

		if err := rt.app.Migrate(ctx); err != nil {
			return err
		}
		telemetry.Info("migrate.done", nil)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
