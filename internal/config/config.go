package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/couchcryptid/crop-water-service/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	DatasetPath     string
	ArtifactDir     string
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Microcontroller driving the pump and moisture sensor.
	DeviceURL     string
	DeviceTimeout time.Duration

	// Model-trained notifications are disabled when KafkaBrokers is empty.
	KafkaBrokers []string
	KafkaTopic   string

	PredictionCacheSize int

	TestFraction    float64
	CVFolds         int
	Hyperparameters domain.Hyperparameters
}

// NotificationsEnabled reports whether a Kafka publisher should be wired.
func (c *Config) NotificationsEnabled() bool { return len(c.KafkaBrokers) > 0 }

// Load reads configuration from environment variables, applying defaults where
// unset. A .env file in the working directory is read first; variables already
// set in the environment win over it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	deviceTimeout, err := parseDuration("DEVICE_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	defaults := domain.DefaultHyperparameters()
	hp := domain.Hyperparameters{}
	if hp.Trees, err = parseInt("FOREST_TREES", defaults.Trees, 1); err != nil {
		return nil, err
	}
	if hp.MaxDepth, err = parseInt("FOREST_MAX_DEPTH", defaults.MaxDepth, 0); err != nil {
		return nil, err
	}
	if hp.MinSamplesSplit, err = parseInt("FOREST_MIN_SAMPLES_SPLIT", defaults.MinSamplesSplit, 2); err != nil {
		return nil, err
	}
	if hp.MinSamplesLeaf, err = parseInt("FOREST_MIN_SAMPLES_LEAF", defaults.MinSamplesLeaf, 1); err != nil {
		return nil, err
	}
	if hp.Workers, err = parseInt("FOREST_WORKERS", defaults.Workers, 0); err != nil {
		return nil, err
	}
	seed, err := parseInt("RANDOM_SEED", int(defaults.Seed), 0)
	if err != nil {
		return nil, err
	}
	hp.Seed = int64(seed)

	cvFolds, err := parseInt("CV_FOLDS", 5, 2)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parseInt("PREDICTION_CACHE_SIZE", 1000, 0)
	if err != nil {
		return nil, err
	}
	testFraction, err := parseTestFraction()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatasetPath:     sharedcfg.EnvOrDefault("DATASET_PATH", "crop.csv"),
		ArtifactDir:     sharedcfg.EnvOrDefault("ARTIFACT_DIR", "models"),
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8000"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DeviceURL:     deviceURL(),
		DeviceTimeout: deviceTimeout,

		KafkaTopic: sharedcfg.EnvOrDefault("KAFKA_TOPIC", "crop-model-trained"),

		PredictionCacheSize: cacheSize,
		TestFraction:        testFraction,
		CVFolds:             cvFolds,
		Hyperparameters:     hp,
	}
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		cfg.KafkaBrokers = sharedcfg.ParseBrokers(raw)
	}

	if cfg.ArtifactDir == "" {
		return nil, errors.New("ARTIFACT_DIR is required")
	}
	if cfg.NotificationsEnabled() && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// deviceURL prefers ESP32_URL and falls back to the older ESP32_IP name.
func deviceURL() string {
	if v := os.Getenv("ESP32_URL"); v != "" {
		return v
	}
	return sharedcfg.EnvOrDefault("ESP32_IP", "http://192.168.1.100")
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseInt(key string, fallback, minimum int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if n < minimum {
		return 0, fmt.Errorf("invalid %s: must be at least %d", key, minimum)
	}
	return n, nil
}

func parseTestFraction() (float64, error) {
	s := os.Getenv("TEST_FRACTION")
	if s == "" {
		return 0.2, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 || f >= 1 {
		return 0, errors.New("invalid TEST_FRACTION: must be between 0 and 1")
	}
	return f, nil
}
