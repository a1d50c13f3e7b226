// Package dataset reads the crop water-requirement table.
package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/crop-water-service/internal/domain"
)

// FileSource loads records from a CSV file on disk.
// It implements pipeline.RecordSource.
type FileSource struct {
	Path string
}

// NewFileSource creates a FileSource for the given path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Load opens the file and parses every row.
func (s *FileSource) Load(ctx context.Context) ([]domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	return Read(f)
}

// Read parses a CSV table with the columns in domain.RequiredColumns. Column
// order is free and extra columns are ignored, but every required column must
// be present and every water requirement must be numeric.
func Read(r io.Reader) ([]domain.Record, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &domain.DataFormatError{Field: "header", Reason: "dataset is empty"}
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	colIdx := make(map[string]int, len(header))
	for i, h := range header {
		colIdx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, col := range domain.RequiredColumns {
		if _, ok := colIdx[col]; !ok {
			return nil, &domain.DataFormatError{Field: col, Reason: "missing column"}
		}
	}

	var records []domain.Record //nolint:prealloc // size depends on CSV file contents
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}

		rec, err := parseRow(row, colIdx)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, &domain.DataFormatError{Field: "rows", Reason: "dataset has no data rows"}
	}
	return records, nil
}

func parseRow(row []string, colIdx map[string]int) (domain.Record, error) {
	raw := get(row, colIdx, domain.ColumnWaterRequirement)
	water, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return domain.Record{}, &domain.DataFormatError{
			Field:  domain.ColumnWaterRequirement,
			Value:  raw,
			Reason: "not a number",
		}
	}
	if math.IsNaN(water) || math.IsInf(water, 0) {
		return domain.Record{}, &domain.DataFormatError{
			Field:  domain.ColumnWaterRequirement,
			Value:  raw,
			Reason: "must be a finite number",
		}
	}

	return domain.Record{
		Crop:             get(row, colIdx, domain.ColumnCrop),
		Soil:             get(row, colIdx, domain.ColumnSoil),
		Region:           get(row, colIdx, domain.ColumnRegion),
		Weather:          get(row, colIdx, domain.ColumnWeather),
		Temperature:      get(row, colIdx, domain.ColumnTemperature),
		WaterRequirement: water,
	}, nil
}

func get(row []string, idx map[string]int, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Write emits records as CSV with the canonical header. Used by cmd/genmock
// and by tests that need a dataset on disk.
func Write(w io.Writer, records []domain.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(domain.RequiredColumns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, rec := range records {
		row := []string{
			rec.Crop,
			rec.Soil,
			rec.Region,
			rec.Weather,
			rec.Temperature,
			strconv.FormatFloat(rec.WaterRequirement, 'f', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
