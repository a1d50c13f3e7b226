// Command genmock writes a synthetic crop water requirement dataset in the
// same CSV layout the training pipeline reads. Output is reproducible for a
// given seed, so it doubles as a fixture generator for tests and demos.
//
// Usage:
//
//	go run ./cmd/genmock -out crop.csv -rows 2000 -seed 42
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"

	"github.com/couchcryptid/crop-water-service/internal/dataset"
	"github.com/couchcryptid/crop-water-service/internal/domain"
	"github.com/couchcryptid/crop-water-service/internal/features"
)

// crop base water requirement before soil, region, weather and temperature
// adjustments.
var crops = []struct {
	name string
	base float64
}{
	{"BANANA", 7.5}, {"SOYABEAN", 4.2}, {"CABBAGE", 3.8}, {"POTATO", 4.5},
	{"RICE", 8.5}, {"MELON", 5.5}, {"MAIZE", 5.0}, {"CITRUS", 6.0},
	{"BEAN", 3.5}, {"WHEAT", 4.0}, {"MUSTARD", 2.8}, {"COTTON", 6.5},
	{"SUGARCANE", 9.0}, {"TOMATO", 4.8}, {"ONION", 3.2},
}

var (
	soils = []struct {
		name   string
		factor float64
	}{{"DRY", 1.25}, {"HUMID", 1.0}, {"WET", 0.7}}

	temperatures = []string{"10-20", "20-30", "30-40", "40-50"}
	regions      = []string{"DESERT", "SEMI ARID", "SEMI HUMID", "HUMID"}
	weathers     = []string{"SUNNY", "NORMAL", "WINDY", "RAINY"}
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output CSV path")
	rows := flag.Int("rows", 1000, "number of data rows")
	seed := flag.Int64("seed", 42, "random seed")
	outliers := flag.Float64("outliers", 0.01, "fraction of rows given an extreme water requirement")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if *rows < 1 {
		return fmt.Errorf("-rows must be positive, got %d", *rows)
	}
	if *outliers < 0 || *outliers >= 1 {
		return fmt.Errorf("-outliers must be in [0, 1), got %g", *outliers)
	}

	records, err := generate(*rows, *outliers, rand.New(rand.NewSource(*seed)))
	if err != nil {
		return err
	}

	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := dataset.Write(f, records); err != nil {
		f.Close()
		return fmt.Errorf("write dataset: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}

	log.Printf("wrote %d rows to %s", len(records), *out)
	printStats(records)
	return nil
}

func generate(n int, outlierFraction float64, rng *rand.Rand) ([]domain.Record, error) {
	records := make([]domain.Record, n)
	for i := range records {
		crop := crops[rng.Intn(len(crops))]
		soil := soils[rng.Intn(len(soils))]
		region := regions[rng.Intn(len(regions))]
		weather := weathers[rng.Intn(len(weathers))]
		temp := temperatures[rng.Intn(len(temperatures))]

		mid, err := features.ProcessTemperature(temp)
		if err != nil {
			return nil, fmt.Errorf("temperature %q: %w", temp, err)
		}
		weatherScore, _ := domain.WeatherScore(weather)
		regionScore, _ := domain.RegionScore(region)

		water := crop.base * soil.factor * (0.6 + 0.4*weatherScore) * (0.7 + 0.6*regionScore) * (0.5 + mid/50)
		water += rng.NormFloat64() * 0.3
		if rng.Float64() < outlierFraction {
			water *= 4
		}
		if water < 0.1 {
			water = 0.1
		}

		records[i] = domain.Record{
			Crop:             crop.name,
			Soil:             soil.name,
			Region:           region,
			Weather:          weather,
			Temperature:      temp,
			WaterRequirement: float64(int(water*100+0.5)) / 100,
		}
	}
	return records, nil
}

func printStats(records []domain.Record) {
	counts := make(map[string]int)
	for _, r := range records {
		counts[r.Crop]++
	}
	fmt.Println("\n=== Mock Data Summary ===")
	for _, crop := range features.UniqueCrops(records) {
		fmt.Printf("  %-10s %d rows\n", crop, counts[crop])
	}
}
