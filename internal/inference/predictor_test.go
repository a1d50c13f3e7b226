package inference_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/couchcryptid/crop-water-service/internal/artifact"
	"github.com/couchcryptid/crop-water-service/internal/domain"
	"github.com/couchcryptid/crop-water-service/internal/features"
	"github.com/couchcryptid/crop-water-service/internal/forest"
	"github.com/couchcryptid/crop-water-service/internal/inference"
	"github.com/couchcryptid/crop-water-service/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type countingLoader struct {
	set   *artifact.Set
	err   error
	calls int
}

func (m *countingLoader) Load(_ context.Context) (*artifact.Set, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.set, nil
}

// gatedLoader returns sets in call order. The first Load blocks until release
// is closed.
type gatedLoader struct {
	mu      sync.Mutex
	sets    []*artifact.Set
	calls   int
	started chan struct{}
	release chan struct{}
}

func newGatedLoader(sets ...*artifact.Set) *gatedLoader {
	return &gatedLoader{sets: sets, started: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedLoader) Load(_ context.Context) (*artifact.Set, error) {
	g.mu.Lock()
	n := g.calls
	g.calls++
	set := g.sets[n]
	g.mu.Unlock()

	if n == 0 {
		close(g.started)
		<-g.release
	}
	return set, nil
}

// --- helpers ---

// trainedSet fits a small forest where RICE needs little water and WHEAT a lot.
func trainedSet(t *testing.T) *artifact.Set {
	t.Helper()
	var records []domain.Record
	for i := range 12 {
		records = append(records,
			domain.Record{Crop: "RICE", Soil: "WET", Region: "HUMID", Weather: "RAINY", Temperature: "10-20", WaterRequirement: 1 + 0.01*float64(i)},
			domain.Record{Crop: "WHEAT", Soil: "DRY", Region: "DESERT", Weather: "SUNNY", Temperature: "30-40", WaterRequirement: 9 + 0.01*float64(i)},
		)
	}
	fs, err := features.BuildFeatures(records)
	require.NoError(t, err)
	model, err := forest.Fit(fs.X, fs.Y, forest.Params{Trees: 5, MaxDepth: 3, MinSamplesSplit: 2, MinSamplesLeaf: 1, Seed: 3})
	require.NoError(t, err)

	return &artifact.Set{
		Model:       model,
		Encoders:    fs.Bundle,
		Info:        domain.ModelInfo{CropStats: map[string]domain.CropStats{"RICE": {Mean: 1.06, Min: 1, Max: 1.11, Std: 0.04}}},
		UniqueCrops: []string{"RICE", "WHEAT"},
	}
}

func notFound() error {
	return &domain.ArtifactNotFoundError{Name: artifact.ModelName}
}

// --- Predictor ---

func TestPredictor_Predict(t *testing.T) {
	p := inference.NewPredictor(&countingLoader{set: trainedSet(t)}, slog.Default())

	wheat, err := p.Predict(context.Background(), domain.Record{Crop: "WHEAT", Soil: "DRY", Region: "DESERT", Weather: "SUNNY", Temperature: "30-40"})
	require.NoError(t, err)
	assert.Greater(t, wheat.WaterRequirement, 7.0)
	assert.Equal(t, domain.RecommendationHigh, wheat.Recommendation)
	assert.InDelta(t, 1.0, wheat.WeatherScore, 0)
	assert.InDelta(t, 1.0, wheat.RegionScore, 0)

	rice, err := p.Predict(context.Background(), domain.Record{Crop: "RICE", Soil: "WET", Region: "HUMID", Weather: "RAINY", Temperature: "10-20"})
	require.NoError(t, err)
	assert.Less(t, rice.WaterRequirement, 3.0)
	assert.Equal(t, domain.RecommendationLow, rice.Recommendation)
	assert.InDelta(t, 0.2, rice.WeatherScore, 0)
	assert.InDelta(t, 0.25, rice.RegionScore, 0)
}

func TestPredictor_UnknownCategory(t *testing.T) {
	p := inference.NewPredictor(&countingLoader{set: trainedSet(t)}, slog.Default())

	_, err := p.Predict(context.Background(), domain.Record{Crop: "BANANA", Soil: "DRY", Region: "DESERT", Weather: "SUNNY", Temperature: "30-40"})
	require.ErrorIs(t, err, domain.ErrUnknownCategory)

	var unknown *domain.UnknownCategoryError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, domain.FieldCrop, unknown.Field)
	assert.Equal(t, "BANANA", unknown.Value)
}

func TestPredictor_BadTemperature(t *testing.T) {
	p := inference.NewPredictor(&countingLoader{set: trainedSet(t)}, slog.Default())

	_, err := p.Predict(context.Background(), domain.Record{Crop: "WHEAT", Soil: "DRY", Region: "DESERT", Weather: "SUNNY", Temperature: "hot"})
	assert.ErrorIs(t, err, domain.ErrDataFormat)
}

func TestPredictor_NoModel(t *testing.T) {
	loader := &countingLoader{err: notFound()}
	p := inference.NewPredictor(loader, slog.Default())

	_, err := p.Predict(context.Background(), domain.Record{Crop: "WHEAT"})
	require.ErrorIs(t, err, domain.ErrArtifactNotFound)
	assert.Error(t, p.CheckReadiness(context.Background()))
	assert.False(t, p.Loaded())

	// Training finishes later; the next request picks the model up.
	loader.err = nil
	loader.set = trainedSet(t)
	require.NoError(t, p.CheckReadiness(context.Background()))
	assert.True(t, p.Loaded())
}

func TestPredictor_LoadsOnce(t *testing.T) {
	loader := &countingLoader{set: trainedSet(t)}
	p := inference.NewPredictor(loader, slog.Default())

	for range 3 {
		_, err := p.Report(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 1, loader.calls)
}

func TestPredictor_ReloadFailureKeepsModel(t *testing.T) {
	loader := &countingLoader{set: trainedSet(t)}
	p := inference.NewPredictor(loader, slog.Default())
	require.NoError(t, p.Reload(context.Background()))

	loader.err = errors.New("corrupt gob")
	require.Error(t, p.Reload(context.Background()))

	report, err := p.Report(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"RICE", "WHEAT"}, report.Crops)
	assert.Contains(t, report.CropStats, "RICE")
}

// --- CachedPredictor ---

func TestCachedPredictor_CacheHit(t *testing.T) {
	loader := &countingLoader{set: trainedSet(t)}
	cached := inference.NewCachedPredictor(inference.NewPredictor(loader, slog.Default()), 10, observability.NewMetricsForTesting())

	rec := domain.Record{Crop: "WHEAT", Soil: "DRY", Region: "DESERT", Weather: "SUNNY", Temperature: "30-40"}
	first, err := cached.Predict(context.Background(), rec)
	require.NoError(t, err)

	second, err := cached.Predict(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, loader.calls)
}

func TestCachedPredictor_ErrorsNotCached(t *testing.T) {
	loader := &countingLoader{err: notFound()}
	cached := inference.NewCachedPredictor(inference.NewPredictor(loader, slog.Default()), 10, observability.NewMetricsForTesting())
	rec := domain.Record{Crop: "WHEAT", Soil: "DRY", Region: "DESERT", Weather: "SUNNY", Temperature: "30-40"}

	_, err := cached.Predict(context.Background(), rec)
	require.ErrorIs(t, err, domain.ErrArtifactNotFound)

	loader.err = nil
	loader.set = trainedSet(t)
	_, err = cached.Predict(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, 2, loader.calls)
}

func TestCachedPredictor_ReloadPurges(t *testing.T) {
	loader := &countingLoader{set: trainedSet(t)}
	cached := inference.NewCachedPredictor(inference.NewPredictor(loader, slog.Default()), 10, observability.NewMetricsForTesting())
	rec := domain.Record{Crop: "RICE", Soil: "WET", Region: "HUMID", Weather: "RAINY", Temperature: "10-20"}

	_, err := cached.Predict(context.Background(), rec)
	require.NoError(t, err)

	// The new model has never seen RICE, so a cached answer would be wrong.
	replacement := trainedSet(t)
	replacement.Encoders.Encoders[domain.FieldCrop] = features.FitEncoder(domain.FieldCrop, []string{"WHEAT"})
	loader.set = replacement
	require.NoError(t, cached.Reload(context.Background()))

	_, err = cached.Predict(context.Background(), rec)
	assert.ErrorIs(t, err, domain.ErrUnknownCategory)
}

func TestCachedPredictor_SlowFirstLoadDoesNotReplaceReload(t *testing.T) {
	withoutRice := trainedSet(t)
	withoutRice.Encoders.Encoders[domain.FieldCrop] = features.FitEncoder(domain.FieldCrop, []string{"WHEAT"})
	loader := newGatedLoader(trainedSet(t), withoutRice)
	cached := inference.NewCachedPredictor(inference.NewPredictor(loader, slog.Default()), 10, observability.NewMetricsForTesting())
	rec := domain.Record{Crop: "RICE", Soil: "WET", Region: "HUMID", Weather: "RAINY", Temperature: "10-20"}

	done := make(chan error, 1)
	go func() {
		_, err := cached.Predict(context.Background(), rec)
		done <- err
	}()
	<-loader.started

	require.NoError(t, cached.Reload(context.Background()))
	close(loader.release)

	// The first request finishes on the reloaded model, not the one it started loading.
	assert.ErrorIs(t, <-done, domain.ErrUnknownCategory)

	_, err := cached.Predict(context.Background(), rec)
	assert.ErrorIs(t, err, domain.ErrUnknownCategory)
	assert.Equal(t, 2, loader.calls)
}

func TestCachedPredictor_SatisfiesService(t *testing.T) {
	var _ inference.Service = inference.NewCachedPredictor(inference.NewPredictor(&countingLoader{}, slog.Default()), 1, observability.NewMetricsForTesting())
}
