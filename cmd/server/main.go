package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/crop-water-service/internal/adapter/device"
	httpadapter "github.com/couchcryptid/crop-water-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/crop-water-service/internal/adapter/kafka"
	"github.com/couchcryptid/crop-water-service/internal/artifact"
	"github.com/couchcryptid/crop-water-service/internal/config"
	"github.com/couchcryptid/crop-water-service/internal/domain"
	"github.com/couchcryptid/crop-water-service/internal/inference"
	"github.com/couchcryptid/crop-water-service/internal/observability"
	"github.com/couchcryptid/crop-water-service/internal/plants"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo := artifact.NewRepository(artifact.NewFileStore(cfg.ArtifactDir, logger))
	predictor := inference.NewCachedPredictor(inference.NewPredictor(repo, logger), cfg.PredictionCacheSize, metrics)

	// A missing model is not fatal: the server reports not ready and answers
	// 404 on predictions until a training run writes the artifacts.
	if err := predictor.Reload(ctx); err != nil {
		if !errors.Is(err, domain.ErrArtifactNotFound) {
			logger.Error("initial model load failed", "error", err)
		} else {
			logger.Warn("no trained model yet", "artifact_dir", cfg.ArtifactDir)
		}
	} else {
		metrics.ModelLoaded.Set(1)
	}

	deviceClient := device.NewClient(cfg.DeviceURL, cfg.DeviceTimeout, metrics, logger)
	logger.Info("device client configured", "url", cfg.DeviceURL, "timeout", cfg.DeviceTimeout)

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Deps{
		Predictor: predictor,
		Plants:    plants.NewMemoryStore(),
		Device:    deviceClient,
		Metrics:   metrics,
	}, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Reload the model whenever a training run announces a new artifact set.
	var subscriber *kafkaadapter.Subscriber
	if cfg.NotificationsEnabled() {
		host, _ := os.Hostname()
		subscriber = kafkaadapter.NewSubscriber(cfg, fmt.Sprintf("crop-water-server-%s", host), logger)
		go func() {
			err := subscriber.Run(ctx, func(ctx context.Context, event domain.ModelTrained) error {
				if err := predictor.Reload(ctx); err != nil {
					return err
				}
				metrics.ModelLoaded.Set(1)
				logger.Info("model reloaded", "run_id", event.RunID, "trained_at", event.TrainedAt)
				return nil
			})
			if err != nil {
				logger.Error("model trained subscriber error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if subscriber != nil {
		if err := subscriber.Close(); err != nil {
			logger.Error("kafka subscriber close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
