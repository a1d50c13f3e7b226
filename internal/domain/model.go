package domain

import "time"

// CropStats summarizes the cleaned water requirement for one crop.
// Std is the sample standard deviation; it is 0 for crops with a single sample.
type CropStats struct {
	Mean float64 `json:"mean"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Std  float64 `json:"std"`
}

// FeatureImportance pairs a feature column with its importance score.
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// Hyperparameters configures the ensemble regressor. Workers is a parallelism
// hint only; it never changes the fitted model.
type Hyperparameters struct {
	Trees           int   `json:"n_estimators"`
	MaxDepth        int   `json:"max_depth"`
	MinSamplesSplit int   `json:"min_samples_split"`
	MinSamplesLeaf  int   `json:"min_samples_leaf"`
	Workers         int   `json:"n_jobs"`
	Seed            int64 `json:"random_state"`
}

// DefaultHyperparameters mirrors the settings the published model was trained with.
func DefaultHyperparameters() Hyperparameters {
	return Hyperparameters{
		Trees:           50,
		MaxDepth:        5,
		MinSamplesSplit: 10,
		MinSamplesLeaf:  5,
		Workers:         0,
		Seed:            42,
	}
}

// Metrics holds the evaluation results of one fitted model.
type Metrics struct {
	R2  float64 `json:"r2"`
	MAE float64 `json:"mae"`
}

// ModelInfo is persisted as model_info.json for the serving layer.
type ModelInfo struct {
	FeatureImportance []FeatureImportance  `json:"feature_importance"`
	CropStats         map[string]CropStats `json:"crop_stats"`

	TrainAccuracy float64   `json:"train_accuracy"`
	TestAccuracy  float64   `json:"test_accuracy"`
	TrainMAE      float64   `json:"train_mae"`
	TestMAE       float64   `json:"test_mae"`
	CVScores      []float64 `json:"cv_scores"`
	CVMean        float64   `json:"cv_mean"`
	CVStd         float64   `json:"cv_std"`

	TrainRows       int             `json:"train_rows"`
	TestRows        int             `json:"test_rows"`
	DroppedOutliers int             `json:"dropped_outliers"`
	Hyperparameters Hyperparameters `json:"hyperparameters"`
	TrainedAt       time.Time       `json:"trained_at"`
}

// ModelTrained is published after a complete artifact set has been persisted.
type ModelTrained struct {
	RunID        string    `json:"run_id"`
	ArtifactDir  string    `json:"artifact_dir"`
	UniqueCrops  []string  `json:"unique_crops"`
	TestAccuracy float64   `json:"test_accuracy"`
	TestMAE      float64   `json:"test_mae"`
	CVMean       float64   `json:"cv_mean"`
	TrainedAt    time.Time `json:"trained_at"`
}

// Prediction is the serving response for one crop and its growing conditions.
type Prediction struct {
	WaterRequirement float64 `json:"water_requirement"`
	Recommendation   string  `json:"recommendation"`
	WeatherScore     float64 `json:"weather_score"`
	RegionScore      float64 `json:"region_score"`
}
