package drape

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	drapePlanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "drape_plan_duration_seconds",
		Help:    "The duration of the facet sizing of a variable.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	drapeVisibleTiles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "drape_visible_tiles",
		Help: "The number of tiles of the shown surface inside the camera frustum.",
	})
)

func instrumentPlan(start time.Time) {
	drapePlanDuration.Observe(time.Since(start).Seconds())
}

func instrumentVisibleTiles(n int) {
	drapeVisibleTiles.Set(float64(n))
}
