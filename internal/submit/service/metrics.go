package service

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// pipelineTotal counts finished pipeline calls by pipeline and outcome status.
	pipelineTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "submit_pipeline_total",
			Help: "Total number of submit and run calls by outcome",
		},
		[]string{"pipeline", "status"},
	)

	gradeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "submit_grade_duration_seconds",
			Help:    "Time spent waiting for the execution engine",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
		},
		[]string{"pipeline"},
	)
)

// RegisterMetrics registers the pipeline collectors. Registering twice is not an error.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{pipelineTotal, gradeDuration} {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}
