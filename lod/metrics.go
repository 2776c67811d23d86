package lod

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	kindLabel    = "kind"
	outcomeLabel = "outcome"
)

var (
	lodBuildCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lod_build_count_total",
		Help: "The number of level of detail builds by outcome.",
	}, []string{kindLabel, outcomeLabel})

	lodBuildDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lod_build_duration_seconds",
		Help:    "The duration of successful level of detail builds.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	}, []string{kindLabel})

	lodPendingBuilds = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "lod_pending_builds",
		Help: "The number of level of detail builds in flight.",
	}, []string{kindLabel})
)

func instrumentBuildStart(kind string) {
	lodPendingBuilds.
		With(prometheus.Labels{kindLabel: kind}).
		Inc()
}

func instrumentBuildEnd(kind, outcome string, start time.Time) {
	lodPendingBuilds.
		With(prometheus.Labels{kindLabel: kind}).
		Dec()

	lodBuildCount.
		With(prometheus.Labels{kindLabel: kind, outcomeLabel: outcome}).
		Inc()

	if outcome == outcomeSwapped {
		lodBuildDuration.
			With(prometheus.Labels{kindLabel: kind}).
			Observe(time.Since(start).Seconds())
	}
}
