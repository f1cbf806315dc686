package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ObservationsIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "haulfit_observations_ingested_total",
			Help: "Total training observations ingested",
		},
	)

	GridRowsBuilt = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "haulfit_grid_rows_built_total",
			Help: "Total prediction grid rows built",
		},
	)

	PredictionsComputed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "haulfit_predictions_computed_total",
			Help: "Total predictions computed per forecasting path",
		},
		[]string{"path"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "haulfit_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)
)
