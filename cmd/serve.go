package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"cafe-pos/internal/config"
	"cafe-pos/internal/database"
	"cafe-pos/internal/logger"
	"cafe-pos/internal/messaging"
	"cafe-pos/internal/metrics"
	"cafe-pos/internal/services/catalog"
	"cafe-pos/internal/services/checkout"
	"cafe-pos/internal/services/notification"
	"cafe-pos/internal/services/order"
	"cafe-pos/internal/services/payment"
	"cafe-pos/internal/services/pos"
	"cafe-pos/internal/services/queue"
	"cafe-pos/internal/services/tracking"
)

func serveCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the terminal API, order queue and ready push channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run("pos-service", func(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
				if cmd.Flags().Changed("port") {
					cfg.Server.Port = port
				}
				return serve(ctx, cfg, log)
			})
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "HTTP port (overrides server.port)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	requestID := logger.GenerateRequestID()

	db, err := database.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if err := db.RunMigrations(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	store := database.NewStore(db)

	items, attendants, err := catalog.Load(ctx, store)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	conn, err := messaging.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}
	defer conn.Close()

	m := metrics.New()
	orders := order.NewService(store, messaging.NewPublisher(conn, log), log)

	registry := checkout.NewRegistry(checkout.Deps{
		Catalog:        items,
		Directory:      attendants,
		Orders:         orders,
		Intents:        payment.NewClient(cfg.Payment, log),
		Logger:         log,
		Metrics:        m,
		CommitTimeout:  cfg.Checkout.CommitTimeout,
		PaymentTimeout: cfg.Payment.Timeout,
	})

	hub := notification.NewHub(log)
	defer hub.Close()
	subscriber := notification.NewSubscriber(
		messaging.NewConsumer(conn, log, messaging.NotificationsQueue, "pos-push", 10),
		hub, log,
	)

	server := pos.NewServer(pos.Deps{
		Checkout:   registry,
		Orders:     orders,
		Queue:      queue.NewView(store, cfg.Queue.PageSize, log),
		Tracking:   tracking.NewService(store, cfg.Barista.HeartbeatInterval, log),
		Catalog:    items,
		Attendants: attendants,
		Push:       hub,
		Metrics:    m,
		Logger:     log,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("service_started", fmt.Sprintf("POS service started on port %d", cfg.Server.Port), requestID, map[string]interface{}{
			"port":          cfg.Server.Port,
			"catalog_items": len(items.Items()),
			"attendants":    len(attendants.List()),
		})
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return subscriber.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("graceful_shutdown", "Shutting down HTTP server", requestID, nil)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
