package infrastructure

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stage metric labels match the pipeline stage names used in logs.
var (
	// PipelineRuns counts completed pipeline runs by outcome.
	PipelineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "salesfc_pipeline_runs_total",
		Help: "Completed pipeline runs by outcome.",
	}, []string{"outcome"})

	// StageDuration tracks wall-clock duration of each pipeline stage.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "salesfc_stage_duration_seconds",
		Help:    "Duration of pipeline stages in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"stage"})

	// EntitiesProcessed tracks how many entities survived feature building
	// in the most recent run.
	EntitiesProcessed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "salesfc_entities_processed",
		Help: "Entities present in the most recent finalized feature table.",
	})
)

// ObserveStage records a stage duration sample.
func ObserveStage(stage string, start time.Time) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
