package work

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queueSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "bluromatic",
		Name:      "work_queue_size",
		Help:      "Units of work waiting for, or running on, a worker.",
	})

	workResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bluromatic",
		Name:      "work_results_total",
		Help:      "Completed units of work by worker, result and failure cause.",
	}, []string{"worker", "result", "cause"})

	workDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bluromatic",
		Name:      "work_duration_seconds",
		Help:      "Time taken by units of work, including time spent waiting for a worker.",
		Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5, 10},
	}, []string{"worker"})

	blurDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bluromatic",
		Name:      "blur_duration_seconds",
		Help:      "Time taken by the blur transform by blur level.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
	}, []string{"level"})
)
