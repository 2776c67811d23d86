package surface

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeActivated = "activated"
	outcomeStale     = "stale"
	outcomeFailed    = "failed"
	outcomeCancelled = "cancelled"

	outcomeLabel = "outcome"
)

var (
	surfaceBuildCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "surface_build_count_total",
		Help: "The number of surface builds by outcome.",
	}, []string{outcomeLabel})

	surfaceBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "surface_build_duration_seconds",
		Help:    "The duration of surface builds.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	surfacePendingBuilds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "surface_pending_builds",
		Help: "The number of surface builds in flight.",
	})

	surfaceCacheHitCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "surface_cache_hit_count_total",
		Help: "The number of surfaces shown from the cache.",
	})

	surfaceCacheEvictionCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "surface_cache_eviction_count_total",
		Help: "The number of surfaces evicted from the cache.",
	})

	surfaceCacheSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "surface_cache_size",
		Help: "The number of cached surfaces.",
	})
)

func instrumentBuildStart() {
	surfacePendingBuilds.Inc()
}

func instrumentBuildEnd(outcome string, start time.Time) {
	surfacePendingBuilds.Dec()
	surfaceBuildCount.
		With(prometheus.Labels{outcomeLabel: outcome}).
		Inc()

	if outcome != outcomeCancelled && outcome != outcomeFailed {
		surfaceBuildDuration.Observe(time.Since(start).Seconds())
	}
}

func instrumentCacheHit() {
	surfaceCacheHitCount.Inc()
}

func instrumentEviction() {
	surfaceCacheEvictionCount.Inc()
}

func instrumentCacheSize(n int) {
	surfaceCacheSize.Set(float64(n))
}
