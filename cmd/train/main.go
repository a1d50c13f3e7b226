// Command train runs one training pipeline: it reads the crop dataset, fits
// the water requirement model and writes the artifact set the server loads.
// Settings come from the environment (see internal/config); -dataset and
// -artifacts override DATASET_PATH and ARTIFACT_DIR.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	kafkaadapter "github.com/couchcryptid/crop-water-service/internal/adapter/kafka"
	"github.com/couchcryptid/crop-water-service/internal/artifact"
	"github.com/couchcryptid/crop-water-service/internal/config"
	"github.com/couchcryptid/crop-water-service/internal/dataset"
	"github.com/couchcryptid/crop-water-service/internal/observability"
	"github.com/couchcryptid/crop-water-service/internal/pipeline"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

// run returns an error only after it has been logged.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return err
	}

	datasetPath := flag.String("dataset", cfg.DatasetPath, "path to the crop CSV dataset")
	artifactDir := flag.String("artifacts", cfg.ArtifactDir, "directory the artifact set is written to")
	flag.Parse()

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	var notifier pipeline.Notifier
	if cfg.NotificationsEnabled() {
		publisher := kafkaadapter.NewPublisher(cfg, logger)
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Error("kafka publisher close error", "error", err)
			}
		}()
		notifier = publisher
		logger.Info("model trained notifications enabled", "topic", cfg.KafkaTopic)
	}

	opts := pipeline.DefaultOptions()
	opts.TestFraction = cfg.TestFraction
	opts.CVFolds = cfg.CVFolds
	opts.Hyperparameters = cfg.Hyperparameters
	opts.ArtifactDir = *artifactDir

	source := dataset.NewFileSource(*datasetPath)
	repo := artifact.NewRepository(artifact.NewFileStore(*artifactDir, logger))
	p := pipeline.New(source, repo, notifier, logger, metrics, opts)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The pipeline logs its own failures.
	res, err := p.Run(ctx)
	if err != nil {
		return err
	}

	info := res.Artifacts.Info
	logger.Info("artifacts written",
		"dir", *artifactDir,
		"crops", len(res.Artifacts.UniqueCrops),
		"train_accuracy", info.TrainAccuracy,
		"test_accuracy", info.TestAccuracy,
		"cv_mean", info.CVMean,
	)
	return nil
}
