package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/relaymind/conduit/internal/config"
)

func buildMigrateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Long:  "Open the configured database and apply any migrations that haven't run yet, then exit.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), resolveConfigPath(configPath))
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")

	return cmd
}

// runMigrate applies pending migrations. sqlite.Open and postgres.Open both
// run migrations.Up as part of opening the connection, so this command is a
// thin wrapper that surfaces any migration failure without starting the
// server.
func runMigrate(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	defer store.Close()

	fmt.Println("migrations applied")
	return nil
}
