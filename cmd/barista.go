package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"cafe-pos/internal/config"
	"cafe-pos/internal/database"
	"cafe-pos/internal/logger"
	"cafe-pos/internal/messaging"
	"cafe-pos/internal/services/barista"
	"cafe-pos/internal/services/order"
)

func baristaCmd() *cobra.Command {
	var (
		name     string
		prefetch int
	)
	cmd := &cobra.Command{
		Use:   "barista",
		Short: "Run a barista station that prepares placed orders and marks them ready",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run("barista-worker", func(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
				if name != "" {
					cfg.Barista.Name = name
				}
				if cmd.Flags().Changed("prefetch") {
					cfg.Barista.Prefetch = prefetch
				}
				return runBarista(ctx, cfg, log)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "barista name (overrides barista.name)")
	cmd.Flags().IntVar(&prefetch, "prefetch", 1, "RabbitMQ prefetch count")
	return cmd
}

func runBarista(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	if cfg.Barista.Name == "" {
		return fmt.Errorf("barista name is required")
	}

	db, err := database.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()
	store := database.NewStore(db)

	conn, err := messaging.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}
	defer conn.Close()

	orders := order.NewService(store, messaging.NewPublisher(conn, log), log)
	consumer := messaging.NewConsumer(conn, log, messaging.BaristaQueue, cfg.Barista.Name, cfg.Barista.Prefetch)

	return barista.NewWorker(cfg.Barista, store, orders, consumer, log).Start(ctx)
}
