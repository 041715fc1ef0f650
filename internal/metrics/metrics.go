// Package metrics defines the Prometheus metrics for the ranking engine
// and its HTTP surface.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Catalog Metrics ────────────────────────────────────────────────────────

// TracksAdded counts successful nominations.
var TracksAdded = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "auxwars",
	Subsystem: "catalog",
	Name:      "tracks_added_total",
	Help:      "Total tracks admitted to the session queue.",
})

// TracksRemoved counts removals by cause.
var TracksRemoved = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "auxwars",
	Subsystem: "catalog",
	Name:      "tracks_removed_total",
	Help:      "Total tracks removed from the queue by cause.",
}, []string{"cause"})

// QueueSize tracks the current catalog size.
var QueueSize = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "auxwars",
	Subsystem: "catalog",
	Name:      "queue_size",
	Help:      "Current number of tracks in the session queue.",
})

// ─── Vote Metrics ───────────────────────────────────────────────────────────

// VotesCast counts catalog vote transitions by direction and outcome.
var VotesCast = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "auxwars",
	Subsystem: "votes",
	Name:      "cast_total",
	Help:      "Total vote transitions by direction and outcome (recorded/withdrawn).",
}, []string{"direction", "outcome"})

// ─── Policy Metrics ─────────────────────────────────────────────────────────

// Rejections counts policy rejections by reason. These are expected and
// frequent; they are never logged as failures.
var Rejections = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "auxwars",
	Subsystem: "policy",
	Name:      "rejections_total",
	Help:      "Total policy rejections by reason.",
}, []string{"reason"})

// ─── Mini-Game Metrics ──────────────────────────────────────────────────────

// BattlesResolved counts battle resolutions by outcome.
var BattlesResolved = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "auxwars",
	Subsystem: "battle",
	Name:      "resolved_total",
	Help:      "Total versus-battle resolutions by outcome (win/tie/override/cancelled).",
}, []string{"outcome"})

// ChaosDeletes counts successful chaos-window deletions.
var ChaosDeletes = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "auxwars",
	Subsystem: "chaos",
	Name:      "deletes_total",
	Help:      "Total successful chaos-window deletions.",
})

// ─── Rate Limiter Metrics ───────────────────────────────────────────────────

// RateLimited counts denied requests by limit class.
var RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "auxwars",
	Subsystem: "ratelimit",
	Name:      "denied_total",
	Help:      "Total requests denied by the rate limiter, by class.",
}, []string{"class"})
