package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"go-grid-engine/internal/model"
)

const metricsNamespace = "gridengine"

var (
	requestsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "requests_total",
		Help:      "The total number of requests processed by engine sessions, by action.",
	}, []string{"action"})

	processingHistogram = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "processing_duration_ms",
		Help:      "Wall-clock milliseconds spent processing one request.",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
	}, []string{"action"})

	stageHistogram = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "stage_duration_ms",
		Help:      "Wall-clock milliseconds spent in one pipeline stage.",
		Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000},
	}, []string{"stage"})

	datasetRowsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "dataset_rows",
		Help:      "Rows held by the most recently initialized session.",
	})

	absorbedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "absorbed_criteria_total",
		Help:      "Malformed request parts dropped instead of being processed, by kind.",
	}, []string{"kind"})

	boundaryFailuresCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "boundary_failures_total",
		Help:      "The number of worker contexts that stopped on a fatal error.",
	})
)

func observeStage(stage string, m model.StageMetrics) {
	stageHistogram.WithLabelValues(stage).Observe(float64(m.Duration.Microseconds()) / 1000)
}
