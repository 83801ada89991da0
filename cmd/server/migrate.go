package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/iqbaliqra/Weatherapp/internal/config"
	"github.com/iqbaliqra/Weatherapp/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage database schema migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := database.RunMigrations(cfg.Database); err != nil {
			return err
		}
		logger.Info("Database migrations completed")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		steps, _ := cmd.Flags().GetInt("steps")

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := database.MigrateDown(cfg.Database, steps); err != nil {
			return err
		}
		logger.Info("Database migrations rolled back", slog.Int("steps", steps))
		return nil
	},
}

func init() {
	migrateDownCmd.Flags().Int("steps", 1, "Number of migrations to roll back")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
}
