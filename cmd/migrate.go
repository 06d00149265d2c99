package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"cafe-pos/internal/config"
	"cafe-pos/internal/database"
	"cafe-pos/internal/logger"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run("migrate", func(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
				db, err := database.New(ctx, cfg, log)
				if err != nil {
					return fmt.Errorf("failed to initialize database: %w", err)
				}
				defer db.Close()
				return db.RunMigrations(ctx)
			})
		},
	}
}
