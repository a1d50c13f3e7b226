// Command validate checks a persisted artifact set for internal consistency:
// every artifact is present and decodes, model_info agrees with
// unique_crops, the encoders cover every crop, and the model produces finite
// predictions. With -dataset it also recomputes the crop statistics from the
// source CSV and compares them with the persisted ones.
//
// Usage:
//
//	go run ./cmd/validate -artifacts models -dataset crop.csv
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"slices"

	"github.com/couchcryptid/crop-water-service/internal/artifact"
	"github.com/couchcryptid/crop-water-service/internal/dataset"
	"github.com/couchcryptid/crop-water-service/internal/domain"
	"github.com/couchcryptid/crop-water-service/internal/features"
	"github.com/couchcryptid/crop-water-service/internal/trainer"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	artifactDir := flag.String("artifacts", "models", "directory holding the artifact set")
	datasetPath := flag.String("dataset", "", "optional dataset CSV to recompute crop statistics from")
	flag.Parse()

	os.Exit(run(*artifactDir, *datasetPath))
}

func run(artifactDir, datasetPath string) int {
	ctx := context.Background()
	fmt.Println("=== Crop Model Artifact Validation ===")
	fmt.Println()

	store := artifact.NewFileStore(artifactDir, slog.New(slog.NewTextHandler(io.Discard, nil)))
	set, err := artifact.Load(ctx, store)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load artifacts from %s: %v\n", artifactDir, err)
		return 1
	}

	phases := []*phase{
		validateModelInfo(set),
		validateEncoders(set),
		validatePredictions(set),
	}
	if datasetPath != "" {
		records, err := dataset.NewFileSource(datasetPath).Load(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load dataset: %v\n", err)
			return 1
		}
		phases = append(phases, validateDatasetParity(set, records))
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Crops: %d, trees: %d, train rows: %d, test rows: %d, trained at: %s\n",
		len(set.UniqueCrops), len(set.Model.Trees), set.Info.TrainRows, set.Info.TestRows, set.Info.TrainedAt)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func validateModelInfo(set *artifact.Set) *phase {
	p := &phase{name: "Model info consistency"}
	info := set.Info

	if len(set.UniqueCrops) == 0 {
		p.errorf("unique_crops is empty")
	}
	for _, crop := range set.UniqueCrops {
		stats, ok := info.CropStats[crop]
		if !ok {
			p.errorf("crop %s has no statistics", crop)
			continue
		}
		if stats.Min > stats.Mean || stats.Mean > stats.Max {
			p.errorf("crop %s: expected min <= mean <= max, got %v", crop, stats)
		}
		if stats.Std < 0 {
			p.errorf("crop %s: negative std %v", crop, stats.Std)
		}
	}
	if len(info.CropStats) != len(set.UniqueCrops) {
		p.errorf("crop_stats has %d crops, unique_crops has %d", len(info.CropStats), len(set.UniqueCrops))
	}

	names := make([]string, 0, len(info.FeatureImportance))
	sum := 0.0
	for i, fi := range info.FeatureImportance {
		names = append(names, fi.Feature)
		sum += fi.Importance
		if fi.Importance < 0 {
			p.errorf("feature %s: negative importance %v", fi.Feature, fi.Importance)
		}
		if i > 0 && fi.Importance > info.FeatureImportance[i-1].Importance {
			p.errorf("feature importance not sorted descending at %s", fi.Feature)
		}
	}
	slices.Sort(names)
	want := slices.Sorted(slices.Values(domain.FeatureNames))
	if !slices.Equal(names, want) {
		p.errorf("feature importance covers %v, want %v", names, want)
	}
	if sum != 0 && math.Abs(sum-1) > 1e-6 {
		p.errorf("feature importances sum to %v, want 1", sum)
	}

	if info.TrainRows < 1 || info.TestRows < 1 {
		p.errorf("expected non-empty partitions, got train=%d test=%d", info.TrainRows, info.TestRows)
	}
	if len(info.CVScores) > 0 {
		mean := 0.0
		for _, s := range info.CVScores {
			mean += s
		}
		mean /= float64(len(info.CVScores))
		if math.Abs(mean-info.CVMean) > 1e-9 {
			p.errorf("cv_mean %v does not match cv_scores mean %v", info.CVMean, mean)
		}
	}
	return p
}

func validateEncoders(set *artifact.Set) *phase {
	p := &phase{name: "Encoder coverage"}

	for _, field := range domain.CategoricalFields {
		enc, ok := set.Encoders.Encoders[field]
		if !ok {
			p.errorf("missing %s encoder", field)
			continue
		}
		if enc.Len() == 0 {
			p.errorf("%s encoder has no classes", field)
		}
	}
	if crop, ok := set.Encoders.Encoders[domain.FieldCrop]; ok {
		for _, c := range set.UniqueCrops {
			if _, err := crop.Encode(c); err != nil {
				p.errorf("crop encoder: %v", err)
			}
		}
	}
	if set.Encoders.Scaler == nil {
		p.errorf("missing %s", domain.FieldScaler)
	} else if s := set.Encoders.Scaler.Scale(); s <= 0 || math.IsNaN(s) {
		p.errorf("scaler has invalid scale %v", s)
	}
	return p
}

func validatePredictions(set *artifact.Set) *phase {
	p := &phase{name: "Model predictions"}

	if set.Model.NFeatures != len(domain.FeatureNames) {
		p.errorf("model expects %d features, want %d", set.Model.NFeatures, len(domain.FeatureNames))
		return p
	}

	first := func(field string) string {
		enc, ok := set.Encoders.Encoders[field]
		if !ok || enc.Len() == 0 {
			return ""
		}
		return enc.Classes()[0]
	}
	for _, crop := range set.UniqueCrops {
		rec := domain.Record{
			Crop:        crop,
			Soil:        first(domain.FieldSoil),
			Region:      first(domain.FieldRegion),
			Weather:     first(domain.FieldWeather),
			Temperature: "20-30",
		}
		row, err := set.Encoders.EncodeRecord(rec)
		if err != nil {
			p.errorf("encode %s: %v", crop, err)
			continue
		}
		v, err := set.Model.Predict(row)
		if err != nil {
			p.errorf("predict %s: %v", crop, err)
			continue
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			p.errorf("predict %s: non-finite value %v", crop, v)
		}
	}
	return p
}

func validateDatasetParity(set *artifact.Set, records []domain.Record) *phase {
	p := &phase{name: "Dataset parity"}

	cleaned, err := features.CleanOutliers(records, domain.ColumnWaterRequirement, features.DefaultOutlierStdDevs)
	if err != nil {
		p.errorf("clean outliers: %v", err)
		return p
	}

	if crops := features.UniqueCrops(cleaned); !slices.Equal(crops, set.UniqueCrops) {
		p.errorf("unique crops %v, artifacts have %v", crops, set.UniqueCrops)
	}
	if dropped := len(records) - len(cleaned); dropped != set.Info.DroppedOutliers {
		p.errorf("dataset drops %d outliers, artifacts recorded %d", dropped, set.Info.DroppedOutliers)
	}

	stats := trainer.ComputeCropStatistics(cleaned)
	for crop, want := range stats {
		got, ok := set.Info.CropStats[crop]
		if !ok {
			p.errorf("crop %s missing from artifacts", crop)
			continue
		}
		if got != want {
			p.errorf("crop %s: recomputed %v, artifacts have %v", crop, want, got)
		}
	}
	return p
}
