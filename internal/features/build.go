package features

import (
	"fmt"

	"github.com/couchcryptid/crop-water-service/internal/domain"
	"gonum.org/v1/gonum/mat"
)

// Bundle is the persisted encoder/scaler set, keyed by field name.
type Bundle struct {
	Encoders map[string]*Encoder
	Scaler   *Scaler
}

// FeatureSet is the output of BuildFeatures.
type FeatureSet struct {
	X      *mat.Dense // rows × len(domain.FeatureNames)
	Y      []float64
	Bundle *Bundle
}

// BuildFeatures fits one encoder per categorical field and a scaler on the
// midpoint temperature, then assembles the feature matrix and target vector.
// A malformed temperature anywhere in the input aborts the build.
func BuildFeatures(cleaned []domain.Record) (*FeatureSet, error) {
	if len(cleaned) == 0 {
		return nil, &domain.DataFormatError{Field: "rows", Reason: "no records left to build features from"}
	}

	temps := make([]float64, len(cleaned))
	for i, rec := range cleaned {
		t, err := ProcessTemperature(rec.Temperature)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		temps[i] = t
	}

	bundle := &Bundle{Encoders: make(map[string]*Encoder, len(domain.CategoricalFields))}
	for _, field := range domain.CategoricalFields {
		values := make([]string, len(cleaned))
		for i, rec := range cleaned {
			values[i], _ = rec.Category(field)
		}
		bundle.Encoders[field] = FitEncoder(field, values)
	}
	bundle.Scaler = FitScaler(temps)

	x := mat.NewDense(len(cleaned), len(domain.FeatureNames), nil)
	y := make([]float64, len(cleaned))
	for i, rec := range cleaned {
		row, err := bundle.encodeRow(rec, temps[i])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		x.SetRow(i, row)
		y[i] = rec.WaterRequirement
	}

	return &FeatureSet{X: x, Y: y, Bundle: bundle}, nil
}

// EncodeRecord builds one feature row in domain.FeatureNames order. The
// record's WaterRequirement is ignored.
func (b *Bundle) EncodeRecord(rec domain.Record) ([]float64, error) {
	temp, err := ProcessTemperature(rec.Temperature)
	if err != nil {
		return nil, err
	}
	return b.encodeRow(rec, temp)
}

func (b *Bundle) encodeRow(rec domain.Record, temperature float64) ([]float64, error) {
	row := make([]float64, 0, len(domain.FeatureNames))
	for _, field := range domain.CategoricalFields {
		enc, ok := b.Encoders[field]
		if !ok {
			return nil, fmt.Errorf("encoder bundle has no %s encoder", field)
		}
		value, _ := rec.Category(field)
		code, err := enc.Encode(value)
		if err != nil {
			return nil, err
		}
		row = append(row, float64(code))
	}
	if b.Scaler == nil {
		return nil, fmt.Errorf("encoder bundle has no %s", domain.FieldScaler)
	}
	return append(row, b.Scaler.Transform(temperature)), nil
}
