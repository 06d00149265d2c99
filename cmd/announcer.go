package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"cafe-pos/internal/config"
	"cafe-pos/internal/logger"
	"cafe-pos/internal/metrics"
	"cafe-pos/internal/services/announce"
)

func announcerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "announcer",
		Short: "Listen for ready orders and speak them aloud",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run("announcer", runAnnouncer)
		},
	}
}

func runAnnouncer(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	requestID := logger.GenerateRequestID()

	var store announce.Store = &announce.MemoryStore{}
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Warn("redis_unavailable", "Redis unreachable, last spoken announcement kept in memory only", requestID, map[string]interface{}{
				"addr":  cfg.Redis.Addr,
				"error": err.Error(),
			})
		} else {
			store = announce.NewRedisStore(client)
		}
	}

	var player announce.Player = announce.LogPlayer{Logger: log}
	if cfg.Announcer.PlayerCommand != "" {
		p, err := announce.NewCommandPlayer(cfg.Announcer.PlayerCommand)
		if err != nil {
			return err
		}
		player = p
	}

	m := metrics.New()
	announcer := announce.New(cfg.Announcer.Template, store, announce.NewTTSClient(cfg.TTS, log), player, log, m)
	defer announcer.Wait()

	subscriber := announce.NewSubscriber(cfg.Announcer.PushURL, cfg.Announcer.ReconnectDelay, announcer, log)
	if cfg.Announcer.MetricsPort == 0 {
		return subscriber.Run(ctx)
	}

	metricsServer := m.Server(cfg.Announcer.MetricsPort)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("metrics_started", fmt.Sprintf("Announcer metrics on port %d", cfg.Announcer.MetricsPort), requestID, nil)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return subscriber.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
