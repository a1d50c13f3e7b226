package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/crop-water-service/internal/artifact"
	"github.com/couchcryptid/crop-water-service/internal/domain"
	"github.com/couchcryptid/crop-water-service/internal/features"
	"github.com/couchcryptid/crop-water-service/internal/observability"
	"github.com/couchcryptid/crop-water-service/internal/trainer"
	"github.com/google/uuid"
)

// RecordSource loads the raw training dataset.
type RecordSource interface {
	Load(ctx context.Context) ([]domain.Record, error)
}

// ArtifactSaver persists a complete artifact set in one step.
type ArtifactSaver interface {
	Save(ctx context.Context, set *artifact.Set) error
}

// Notifier announces a persisted artifact set.
type Notifier interface {
	PublishModelTrained(ctx context.Context, event domain.ModelTrained) error
}

// Options controls one training run.
type Options struct {
	TestFraction    float64
	CVFolds         int
	OutlierStdDevs  float64
	Hyperparameters domain.Hyperparameters

	// ArtifactDir is only reported in notifications.
	ArtifactDir string
}

// DefaultOptions returns the settings the published model was trained with.
func DefaultOptions() Options {
	return Options{
		TestFraction:    trainer.DefaultTestFraction,
		CVFolds:         trainer.DefaultFolds,
		OutlierStdDevs:  features.DefaultOutlierStdDevs,
		Hyperparameters: domain.DefaultHyperparameters(),
	}
}

// Result is everything one successful run produced.
type Result struct {
	RunID       string
	Artifacts   *artifact.Set
	Train       domain.Metrics
	Test        domain.Metrics
	CV          *trainer.CVResult
	RowsLoaded  int
	RowsCleaned int
}

// Pipeline runs the training stages from dataset to persisted artifacts.
type Pipeline struct {
	source   RecordSource
	saver    ArtifactSaver
	notifier Notifier
	logger   *slog.Logger
	metrics  *observability.Metrics
	opts     Options
	trained  atomic.Bool
}

// New creates a Pipeline. notifier may be nil.
func New(source RecordSource, saver ArtifactSaver, notifier Notifier, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Pipeline {
	return &Pipeline{
		source:   source,
		saver:    saver,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics,
		opts:     opts,
	}
}

// CheckReadiness returns nil once a run has persisted an artifact set.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.trained.Load() {
		return errors.New("no training run has completed yet")
	}
	return nil
}

// Run executes one training run. Nothing is persisted unless every stage
// before Persist succeeds. A failed notification is logged and does not fail
// the run, since the artifact set is already complete by then.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID)
	logger.Info("training started",
		"test_fraction", p.opts.TestFraction,
		"cv_folds", p.opts.CVFolds,
		"n_estimators", p.opts.Hyperparameters.Trees,
		"random_state", p.opts.Hyperparameters.Seed,
	)

	res, err := p.run(ctx, logger)
	if err != nil {
		p.metrics.TrainingRuns.WithLabelValues("failure").Inc()
		logger.Error("training failed", "error", err)
		return nil, err
	}
	res.RunID = runID

	p.trained.Store(true)
	p.metrics.TrainingRuns.WithLabelValues("success").Inc()
	p.metrics.TrainingDuration.Observe(time.Since(start).Seconds())
	p.metrics.RowsLoaded.Set(float64(res.RowsLoaded))
	p.metrics.OutliersDropped.Set(float64(res.RowsLoaded - res.RowsCleaned))
	p.metrics.TestR2.Set(res.Test.R2)
	p.metrics.TestMAE.Set(res.Test.MAE)

	logger.Info("training complete",
		"train_r2", res.Train.R2,
		"test_r2", res.Test.R2,
		"test_mae", res.Test.MAE,
		"cv_mean", res.CV.Mean,
		"cv_std", res.CV.Std,
		"duration", time.Since(start),
	)

	p.notify(ctx, logger, res)
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, logger *slog.Logger) (*Result, error) {
	var records []domain.Record
	if err := p.stage(logger, "load", func() (err error) {
		records, err = p.source.Load(ctx)
		return err
	}); err != nil {
		return nil, err
	}

	res, err := p.train(logger, records)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.stage(logger, "persist", func() error {
		return p.saver.Save(ctx, res.Artifacts)
	}); err != nil {
		return nil, err
	}
	return res, nil
}

func (p *Pipeline) notify(ctx context.Context, logger *slog.Logger, res *Result) {
	if p.notifier == nil {
		return
	}
	info := res.Artifacts.Info
	event := domain.ModelTrained{
		RunID:        res.RunID,
		ArtifactDir:  p.opts.ArtifactDir,
		UniqueCrops:  res.Artifacts.UniqueCrops,
		TestAccuracy: info.TestAccuracy,
		TestMAE:      info.TestMAE,
		CVMean:       info.CVMean,
		TrainedAt:    info.TrainedAt,
	}
	if err := p.notifier.PublishModelTrained(ctx, event); err != nil {
		logger.Warn("model trained notification failed", "error", err)
	}
}

// stage times fn under the given stage label.
func (p *Pipeline) stage(logger *slog.Logger, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	p.metrics.StageDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	if err != nil {
		logger.Error("stage failed", "stage", name, "error", err)
		return err
	}
	logger.Debug("stage complete", "stage", name, "duration", elapsed)
	return nil
}
