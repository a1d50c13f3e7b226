// Package inference serves predictions from a persisted artifact set.
package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/couchcryptid/crop-water-service/internal/artifact"
	"github.com/couchcryptid/crop-water-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// Loader reads the latest complete artifact set.
type Loader interface {
	Load(ctx context.Context) (*artifact.Set, error)
}

// Report is the crop listing served alongside predictions.
type Report struct {
	Crops     []string                    `json:"crops"`
	CropStats map[string]domain.CropStats `json:"crop_stats"`
}

// Predictor holds the loaded model and its encoders. It loads lazily, so a
// model trained after the server started is picked up on the next request.
//
// Every load takes a ticket when it starts. A finished load is installed only
// if no load that started after it has been installed already, and the ticket
// of the installed load is the generation of the set in use.
type Predictor struct {
	loader Loader
	logger *slog.Logger
	lazy   singleflight.Group
	issued atomic.Uint64

	mu  sync.RWMutex
	set *artifact.Set
	gen uint64
}

// NewPredictor creates a Predictor with nothing loaded yet.
func NewPredictor(loader Loader, logger *slog.Logger) *Predictor {
	return &Predictor{loader: loader, logger: logger}
}

// Reload replaces the loaded artifact set. On failure the previous set, if
// any, stays in use.
func (p *Predictor) Reload(ctx context.Context) error {
	_, err := p.reload(ctx)
	return err
}

// reload returns the generation in use once the load has finished. A load
// overtaken by a later one is dropped.
func (p *Predictor) reload(ctx context.Context) (uint64, error) {
	ticket := p.issued.Add(1)
	set, err := p.loader.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load artifacts: %w", err)
	}

	p.mu.Lock()
	if ticket < p.gen {
		current := p.gen
		p.mu.Unlock()
		p.logger.Debug("stale model load dropped", "generation", ticket, "current", current)
		return current, nil
	}
	p.set, p.gen = set, ticket
	p.mu.Unlock()

	p.logger.Info("model loaded",
		"generation", ticket,
		"crops", len(set.UniqueCrops),
		"trees", len(set.Model.Trees),
		"trained_at", set.Info.TrainedAt,
	)
	return ticket, nil
}

// Loaded reports whether an artifact set is in memory.
func (p *Predictor) Loaded() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.set != nil
}

// CheckReadiness returns nil once an artifact set has been loaded.
func (p *Predictor) CheckReadiness(ctx context.Context) error {
	if _, _, err := p.current(ctx); err != nil {
		return err
	}
	return nil
}

// Predict encodes rec with the persisted encoders and runs the model. Errors
// wrap domain.ErrArtifactNotFound when no model has been trained,
// domain.ErrUnknownCategory for labels outside the training vocabulary and
// domain.ErrDataFormat for a malformed temperature.
func (p *Predictor) Predict(ctx context.Context, rec domain.Record) (domain.Prediction, error) {
	pred, _, err := p.predict(ctx, rec)
	return pred, err
}

// predict also returns the generation of the set that produced the result.
func (p *Predictor) predict(ctx context.Context, rec domain.Record) (domain.Prediction, uint64, error) {
	set, gen, err := p.current(ctx)
	if err != nil {
		return domain.Prediction{}, 0, err
	}

	row, err := set.Encoders.EncodeRecord(rec)
	if err != nil {
		return domain.Prediction{}, gen, err
	}
	water, err := set.Model.Predict(row)
	if err != nil {
		return domain.Prediction{}, gen, fmt.Errorf("predict: %w", err)
	}

	weather, _ := domain.WeatherScore(rec.Weather)
	region, _ := domain.RegionScore(rec.Region)
	return domain.Prediction{
		WaterRequirement: water,
		Recommendation:   domain.Recommend(water),
		WeatherScore:     weather,
		RegionScore:      region,
	}, gen, nil
}

// Report returns the crops seen in training with their statistics.
func (p *Predictor) Report(ctx context.Context) (Report, error) {
	set, _, err := p.current(ctx)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Crops:     slices.Clone(set.UniqueCrops),
		CropStats: maps.Clone(set.Info.CropStats),
	}, nil
}

func (p *Predictor) snapshot() (*artifact.Set, uint64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.set, p.gen
}

// current returns the loaded set, loading it on first use. Concurrent first
// requests share one load.
func (p *Predictor) current(ctx context.Context) (*artifact.Set, uint64, error) {
	if set, gen := p.snapshot(); set != nil {
		return set, gen, nil
	}

	_, err, _ := p.lazy.Do("load", func() (any, error) {
		if set, _ := p.snapshot(); set != nil {
			return nil, nil
		}
		_, err := p.reload(ctx)
		return nil, err
	})
	if err != nil {
		if !errors.Is(err, domain.ErrArtifactNotFound) {
			p.logger.Error("model load failed", "error", err)
		}
		return nil, 0, err
	}

	set, gen := p.snapshot()
	return set, gen, nil
}
