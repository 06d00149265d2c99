package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cafe-pos/internal/config"
	"cafe-pos/internal/logger"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:           "cafe-pos",
		Short:         "Café point of sale: checkout, order queue, baristas and ready announcements",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to config.yaml (defaults and CAFE_* env vars apply without it)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(baristaCmd())
	rootCmd.AddCommand(announcerCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run loads the config and calls fn with a context cancelled on SIGINT or
// SIGTERM.
func run(service string, fn func(ctx context.Context, cfg *config.Config, log *logger.Logger) error) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	log := logger.New(service)
	requestID := logger.GenerateRequestID()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("service_started", fmt.Sprintf("Starting %s", service), requestID, nil)
	if err := fn(ctx, cfg, log); err != nil {
		log.Error("service_failed", fmt.Sprintf("%s failed", service), requestID, err, nil)
		return err
	}
	log.Info("service_stopped", "Service stopped gracefully", requestID, nil)
	return nil
}
