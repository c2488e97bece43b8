package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	PredictorLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "heartform",
			Subsystem: "predictor",
			Name:      "request_seconds",
			Help:      "Latency of prediction service calls by outcome",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	PredictorErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "heartform",
			Subsystem: "predictor",
			Name:      "errors_total",
			Help:      "Failed prediction service calls by kind and status",
		},
		[]string{"kind", "status"},
	)
)

// Register adds the predictor collectors to the default registry once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(PredictorLatency, PredictorErrors)
	})
}
