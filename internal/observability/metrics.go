package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "crop_water"

// Metrics holds the Prometheus collectors for training runs and the serving API.
type Metrics struct {
	// Training metrics.
	TrainingRuns     *prometheus.CounterVec // labels: outcome={success,failure}
	TrainingDuration prometheus.Histogram
	StageDuration    *prometheus.HistogramVec // labels: stage
	RowsLoaded       prometheus.Gauge
	OutliersDropped  prometheus.Gauge
	TestR2           prometheus.Gauge
	TestMAE          prometheus.Gauge

	// Serving metrics.
	Predictions     *prometheus.CounterVec // labels: outcome={success,unknown_category,bad_input,no_model,error}
	PredictionCache *prometheus.CounterVec // labels: result={hit,miss}
	DeviceRequests  *prometheus.CounterVec // labels: endpoint={pump,moisture}, outcome={success,error}
	DeviceDuration  *prometheus.HistogramVec
	ModelLoaded     prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, so
// tests can build as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		TrainingRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "training_runs_total",
			Help:      "Training pipeline runs by outcome.",
		}, []string{"outcome"}),
		TrainingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "training_duration_seconds",
			Help:      "Wall time of a complete training run.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "training_stage_duration_seconds",
			Help:      "Wall time of each training stage.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}, []string{"stage"}),
		RowsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "training_rows_loaded",
			Help:      "Rows read from the dataset by the last training run.",
		}),
		OutliersDropped: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "training_outliers_dropped",
			Help:      "Rows removed as outliers by the last training run.",
		}),
		TestR2: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_test_r2",
			Help:      "R² of the last trained model on the held-out partition.",
		}),
		TestMAE: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_test_mae",
			Help:      "Mean absolute error of the last trained model on the held-out partition.",
		}),
		Predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Prediction requests by outcome.",
		}, []string{"outcome"}),
		PredictionCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_cache_total",
			Help:      "Prediction cache lookups by result.",
		}, []string{"result"}),
		DeviceRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "device_requests_total",
			Help:      "Requests to the microcontroller by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		DeviceDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "device_request_duration_seconds",
			Help:      "Microcontroller request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"endpoint"}),
		ModelLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_loaded",
			Help:      "1 when a trained model is loaded for serving, 0 otherwise.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.TrainingRuns,
		m.TrainingDuration,
		m.StageDuration,
		m.RowsLoaded,
		m.OutliersDropped,
		m.TestR2,
		m.TestMAE,
		m.Predictions,
		m.PredictionCache,
		m.DeviceRequests,
		m.DeviceDuration,
		m.ModelLoaded,
	}
}
