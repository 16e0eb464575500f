package agent

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "terrainsense",
		Subsystem: "agent",
		Name:      "mode_transitions_total",
		Help:      "Controller mode changes by source and destination mode.",
	}, []string{"from", "to"})

	waypointCommits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "terrainsense",
		Subsystem: "agent",
		Name:      "waypoint_commits_total",
		Help:      "Waypoints reached and replaced, by mode.",
	}, []string{"mode"})

	degenerateFacings = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "terrainsense",
		Subsystem: "agent",
		Name:      "degenerate_facings_total",
		Help:      "Frames where no valid facing rotation existed.",
	})
)
