// Package metrics defines and registers the Prometheus collectors of the
// hitpoints service. It is the single source of truth for metric names,
// labels and help strings.
//
// Collectors register with the default registry on package init through
// promauto; /metrics serves that registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "hitpoints"

// ── Mutation metrics ──────────────────────────────────────────────────────────

// MutationsTotal counts commands by outcome.
// Labels:
//   - command: "damage", "heal" or "grant_temporary_hit_points"
//   - result: "applied", "unchanged", "replayed", "not_found", "invalid",
//     "persistence_failure", "abandoned"
var MutationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mutations_total",
		Help:      "Total number of character mutation commands, by command and result.",
	},
	[]string{"command", "result"},
)

// MutationDuration measures a command from dequeue to notification.
var MutationDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "mutation_duration_seconds",
		Help:      "Duration of a character mutation from lane start to notification.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"command"},
)

// DamageAbsorbedTotal counts damage points negated by defenses.
// Label:
//   - defense: "immunity" or "resistance"
var DamageAbsorbedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "damage_absorbed_total",
		Help:      "Damage points negated by immunity or resistance.",
	},
	[]string{"defense"},
)

// DedupTotal counts idempotency key checks.
// Label:
//   - result: "hit" (replayed, skipped) or "miss"
var DedupTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dedup_total",
		Help:      "Total number of idempotency key checks, by result (hit/miss).",
	},
	[]string{"result"},
)

// ── Dispatcher metrics ────────────────────────────────────────────────────────

// LanesActive tracks characters that currently have queued or running commands.
var LanesActive = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "dispatcher_lanes_active",
		Help:      "Number of characters with queued or running commands.",
	},
)

// LaneQueueDepth tracks commands waiting behind the running one, summed over lanes.
var LaneQueueDepth = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "dispatcher_queue_depth",
		Help:      "Number of commands waiting for their character lane.",
	},
)

// ── Notification metrics ──────────────────────────────────────────────────────

// NotificationsTotal counts change notifications.
// Labels:
//   - transport: "inprocess" or "redis"
//   - result: "published" or "failed"
var NotificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Total number of character change notifications, by transport and result.",
	},
	[]string{"transport", "result"},
)

// Subscribers tracks currently connected observers.
var Subscribers = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "subscribers",
		Help:      "Number of currently connected change feed subscribers.",
	},
)

// SubscriberEvictionsTotal counts observers dropped for falling behind.
var SubscriberEvictionsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "subscriber_evictions_total",
		Help:      "Subscribers disconnected because their buffer was full.",
	},
)
