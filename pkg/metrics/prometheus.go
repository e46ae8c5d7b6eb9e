package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PushesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "podforge_pushes_total",
			Help: "Total number of push pipeline runs by outcome",
		},
		[]string{"status"},
	)

	PushDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "podforge_push_duration_seconds",
			Help:    "Push pipeline duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)

	PushRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "podforge_push_retries_total",
			Help: "Total number of push task retries",
		},
	)

	OAuthCallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "podforge_oauth_callbacks_total",
			Help: "Total number of OAuth callbacks by result",
		},
		[]string{"provider", "result"},
	)

	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "podforge_push_queue_depth",
			Help: "Number of tasks waiting in the push queue",
		},
	)
)
