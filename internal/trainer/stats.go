package trainer

import (
	"math"

	"github.com/couchcryptid/crop-water-service/internal/domain"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ComputeCropStatistics summarizes the water requirement per crop on the
// cleaned records, rounded to 2 decimals. A crop with a single sample gets
// Std 0 rather than an undefined sample deviation.
func ComputeCropStatistics(cleaned []domain.Record) map[string]domain.CropStats {
	byCrop := make(map[string][]float64)
	for _, rec := range cleaned {
		byCrop[rec.Crop] = append(byCrop[rec.Crop], rec.WaterRequirement)
	}

	out := make(map[string]domain.CropStats, len(byCrop))
	for crop, values := range byCrop {
		s := domain.CropStats{
			Mean: round2(stat.Mean(values, nil)),
			Min:  round2(floats.Min(values)),
			Max:  round2(floats.Max(values)),
		}
		if len(values) >= 2 {
			s.Std = round2(stat.StdDev(values, nil))
		}
		out[crop] = s
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
