package nav

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	searchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "terrainsense_nav_searches_total",
		Help: "A* searches by outcome",
	}, []string{"outcome"})

	searchExpansions = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "terrainsense_nav_search_expansions",
		Help:    "Cells expanded per A* search",
		Buckets: prometheus.ExponentialBuckets(1, 2, 18), // 1 to ~131k
	})

	searchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "terrainsense_nav_search_duration_seconds",
		Help:    "Wall time per A* search",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~800ms
	})

	goalLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "terrainsense_nav_goal_lookups_total",
		Help: "Closest-target lookups by result",
	}, []string{"result"})
)

func observeSearch(s Stats) {
	searchTotal.WithLabelValues(s.Outcome.String()).Inc()
	searchExpansions.Observe(float64(s.Expanded))
	searchDuration.Observe(s.Duration.Seconds())
}
