package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/couchcryptid/crop-water-service/internal/artifact"
	"github.com/couchcryptid/crop-water-service/internal/domain"
	"github.com/couchcryptid/crop-water-service/internal/features"
	"github.com/couchcryptid/crop-water-service/internal/forest"
	"github.com/couchcryptid/crop-water-service/internal/trainer"
)

// train runs every in-memory stage: clean, build features, split, fit,
// evaluate, cross-validate and summarize.
func (p *Pipeline) train(logger *slog.Logger, records []domain.Record) (*Result, error) {
	res := &Result{RowsLoaded: len(records)}
	hp := p.opts.Hyperparameters

	var cleaned []domain.Record
	if err := p.stage(logger, "clean", func() (err error) {
		cleaned, err = features.CleanOutliers(records, domain.ColumnWaterRequirement, p.opts.OutlierStdDevs)
		return err
	}); err != nil {
		return nil, fmt.Errorf("clean outliers: %w", err)
	}
	res.RowsCleaned = len(cleaned)
	logger.Info("outliers removed", "rows", len(records), "kept", len(cleaned))

	var fs *features.FeatureSet
	if err := p.stage(logger, "features", func() (err error) {
		fs, err = features.BuildFeatures(cleaned)
		return err
	}); err != nil {
		return nil, fmt.Errorf("build features: %w", err)
	}

	var part *trainer.Partition
	if err := p.stage(logger, "split", func() (err error) {
		part, err = trainer.Split(fs.X, fs.Y, p.opts.TestFraction, hp.Seed)
		return err
	}); err != nil {
		return nil, fmt.Errorf("split dataset: %w", err)
	}

	var model *forest.Forest
	if err := p.stage(logger, "fit", func() (err error) {
		model, err = trainer.Fit(part.TrainX, part.TrainY, hp)
		return err
	}); err != nil {
		return nil, fmt.Errorf("fit model: %w", err)
	}

	if err := p.stage(logger, "evaluate", func() (err error) {
		if res.Train, err = trainer.Evaluate(model, part.TrainX, part.TrainY); err != nil {
			return err
		}
		res.Test, err = trainer.Evaluate(model, part.TestX, part.TestY)
		return err
	}); err != nil {
		return nil, fmt.Errorf("evaluate model: %w", err)
	}

	if err := p.stage(logger, "cross_validate", func() (err error) {
		res.CV, err = trainer.CrossValidate(hp, part.TrainX, part.TrainY, p.opts.CVFolds, trainer.ScoringR2)
		return err
	}); err != nil {
		return nil, fmt.Errorf("cross validate: %w", err)
	}

	var importance []domain.FeatureImportance
	if err := p.stage(logger, "summarize", func() (err error) {
		importance, err = trainer.FeatureImportance(model, domain.FeatureNames)
		return err
	}); err != nil {
		return nil, fmt.Errorf("summarize model: %w", err)
	}

	res.Artifacts = &artifact.Set{
		Model:    model,
		Encoders: fs.Bundle,
		Info: domain.ModelInfo{
			FeatureImportance: importance,
			CropStats:         trainer.ComputeCropStatistics(cleaned),
			TrainAccuracy:     res.Train.R2,
			TestAccuracy:      res.Test.R2,
			TrainMAE:          res.Train.MAE,
			TestMAE:           res.Test.MAE,
			CVScores:          res.CV.Scores,
			CVMean:            res.CV.Mean,
			CVStd:             res.CV.Std,
			TrainRows:         len(part.TrainIdx),
			TestRows:          len(part.TestIdx),
			DroppedOutliers:   len(records) - len(cleaned),
			Hyperparameters:   hp,
			TrainedAt:         domain.Now(),
		},
		UniqueCrops: features.UniqueCrops(cleaned),
	}
	return res, nil
}
