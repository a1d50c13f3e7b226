package features

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Scaler standardizes one numeric column to zero mean and unit variance using
// the population standard deviation. A constant column keeps scale 1.
type Scaler struct {
	mean  float64
	scale float64
}

// FitScaler computes the affine transform for values.
func FitScaler(values []float64) *Scaler {
	if len(values) == 0 {
		return &Scaler{scale: 1}
	}
	mean, std := stat.PopMeanStdDev(values, nil)
	if std == 0 {
		std = 1
	}
	return &Scaler{mean: mean, scale: std}
}

// Transform applies the fitted transform.
func (s *Scaler) Transform(v float64) float64 {
	return (v - s.mean) / s.scale
}

// Mean returns the fitted centre.
func (s *Scaler) Mean() float64 { return s.mean }

// Scale returns the fitted divisor.
func (s *Scaler) Scale() float64 { return s.scale }

type scalerWire struct {
	Mean  float64
	Scale float64
}

// GobEncode implements gob.GobEncoder.
func (s *Scaler) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(scalerWire{Mean: s.mean, Scale: s.scale}); err != nil {
		return nil, fmt.Errorf("encode scaler: %w", err)
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder.
func (s *Scaler) GobDecode(data []byte) error {
	var w scalerWire
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&w); err != nil {
		return fmt.Errorf("decode scaler: %w", err)
	}
	s.mean, s.scale = w.Mean, w.Scale
	return nil
}
