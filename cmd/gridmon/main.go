package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	httpadapter "github.com/couchcryptid/grid-status-aggregator/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/grid-status-aggregator/internal/adapter/kafka"
	"github.com/couchcryptid/grid-status-aggregator/internal/app"
	"github.com/couchcryptid/grid-status-aggregator/internal/config"
	"github.com/couchcryptid/grid-status-aggregator/internal/coordinator"
	"github.com/couchcryptid/grid-status-aggregator/internal/observability"
	"github.com/couchcryptid/grid-status-aggregator/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	feeds, err := app.Feeds(cfg, clock, logger)
	if err != nil {
		logger.Error("failed to build sources", "error", err)
		os.Exit(1)
	}
	logger.Info("sources configured",
		"sources", app.SourceIDs(feeds),
		"zone", cfg.Zone,
		"systemwide", cfg.MonitorSystemwide,
		"update_interval", cfg.UpdateInterval,
	)

	opts := coordinator.Options{
		FetchTimeout:        cfg.FetchTimeout,
		PermanentBackoffMax: cfg.PermanentBackoffMax,
	}
	var publisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		publisher = kafkaadapter.NewPublisher(cfg, logger)
		opts.Publisher = publisher
		logger.Info("kafka snapshot publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSnapshotTopic)
	} else {
		logger.Info("kafka snapshot publishing disabled")
	}

	st := store.New()
	coord := coordinator.New(st, app.Schedules(feeds), clock, logger, metrics, opts)
	srv := httpadapter.NewServer(cfg.HTTPAddr, coord, st, app.SourceIDs(feeds), logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start pollers.
	pollersDone := make(chan struct{})
	go func() {
		defer close(pollersDone)
		if err := coord.Run(ctx); err != nil {
			logger.Error("coordinator error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	// In-flight polls may still publish until the pollers return.
	select {
	case <-pollersDone:
	case <-shutdownCtx.Done():
		logger.Warn("pollers did not stop before shutdown timeout")
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
