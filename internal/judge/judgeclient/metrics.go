package judgeclient

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// requestTotal counts engine HTTP calls by operation and result.
	requestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "judge_engine_requests_total",
			Help: "Total number of execution engine requests",
		},
		[]string{"op", "result"},
	)

	// pollAttempts records how many polls a FetchResults call needed.
	pollAttempts = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "judge_engine_poll_attempts",
			Help:    "Number of result polls per fetch",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34},
		},
	)

	// batchTests records the number of submissions per SubmitBatch call.
	batchTests = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "judge_engine_batch_tests",
			Help:    "Number of test submissions per batch request",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
		},
	)

	// pollTimeoutTotal counts fetches that ran out of poll budget.
	pollTimeoutTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "judge_engine_poll_timeout_total",
			Help: "Total number of result fetches that exhausted the poll budget",
		},
	)
)

// RegisterMetrics registers the engine collectors. Registering twice is not an error.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{requestTotal, pollAttempts, batchTests, pollTimeoutTotal} {
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
