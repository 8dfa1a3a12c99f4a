package main

import (
	"fmt"
	"os"

	"farmDirect/pkg/config"
	"farmDirect/pkg/database"
	"farmDirect/pkg/logger"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "farmdirect",
		Short:   "FarmDirect administration tool",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger.Init(cfg.App.Environment)
			cmd.SetContext(withConfig(cmd.Context(), cfg))
			return nil
		},
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	err := rootCmd.Execute()
	logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back schema migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := database.Migrate(configFrom(cmd.Context()), true); err != nil {
				return err
			}
			logger.Info("migrations applied")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := database.Migrate(configFrom(cmd.Context()), false); err != nil {
				return err
			}
			logger.Info("rolled back one migration")
			return nil
		},
	})

	return cmd
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load demo categories, users and products",
		Long: `Load the demo data set. Running it again leaves existing rows alone.

Accounts created:
  farmer1@example.com   / farmer123
  consumer1@example.com / consumer123
  admin1@example.com    / admin123`,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database.InitPostgres(configFrom(cmd.Context()))
			if err != nil {
				return err
			}
			defer database.ClosePostgres(db)

			return seed(cmd.Context(), db)
		},
	}
}
