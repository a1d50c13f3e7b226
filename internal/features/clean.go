package features

import (
	"math"
	"strconv"
	"strings"

	"github.com/couchcryptid/crop-water-service/internal/domain"
	"gonum.org/v1/gonum/stat"
)

// DefaultOutlierStdDevs is the n_std threshold used by the training pipeline.
const DefaultOutlierStdDevs = 3.0

// CleanOutliers keeps the records whose column value lies within nStd sample
// standard deviations of the column mean. Mean and stddev are computed once on
// the input; the boundary is inclusive. Only the water requirement column is
// numeric.
func CleanOutliers(records []domain.Record, column string, nStd float64) ([]domain.Record, error) {
	if column != domain.ColumnWaterRequirement {
		return nil, &domain.DataFormatError{Field: column, Reason: "not a numeric column"}
	}

	out := make([]domain.Record, 0, len(records))
	if len(records) < 2 {
		return append(out, records...), nil
	}

	values := make([]float64, len(records))
	for i, rec := range records {
		values[i] = rec.WaterRequirement
	}
	mean, std := stat.MeanStdDev(values, nil)
	limit := nStd * std

	for i, rec := range records {
		if math.Abs(values[i]-mean) <= limit {
			out = append(out, rec)
		}
	}
	return out, nil
}

// ProcessTemperature parses "<low>-<high>" into its midpoint. A bound may carry
// a leading plus sign; a minus sign always reads as the separator.
func ProcessTemperature(s string) (float64, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return 0, &domain.DataFormatError{
			Field:  domain.ColumnTemperature,
			Value:  s,
			Reason: "expected exactly one hyphen between two integers",
		}
	}

	low, errL := strconv.Atoi(parts[0])
	high, errH := strconv.Atoi(parts[1])
	if errL != nil || errH != nil {
		return 0, &domain.DataFormatError{
			Field:  domain.ColumnTemperature,
			Value:  s,
			Reason: "bounds must be integers",
		}
	}
	return (float64(low) + float64(high)) / 2, nil
}

// UniqueCrops lists the distinct crop names in first-seen order.
func UniqueCrops(records []domain.Record) []string {
	seen := make(map[string]struct{}, len(records))
	crops := make([]string, 0)
	for _, rec := range records {
		if _, ok := seen[rec.Crop]; ok {
			continue
		}
		seen[rec.Crop] = struct{}{}
		crops = append(crops, rec.Crop)
	}
	return crops
}
