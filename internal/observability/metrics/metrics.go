// Package metrics defines and registers all custom Prometheus metrics for
// the fleet alerting pipeline. It is the single source of truth for metric
// names, labels, and help strings.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fleet"

// ── Ingestion metrics ─────────────────────────────────────────────────────────

// EventsIngestedTotal counts raw payloads accepted at the boundary.
// Label:
//   - provider: the provider kind that produced the payload
var EventsIngestedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_ingested_total",
		Help:      "Total number of raw telemetry payloads accepted for normalization.",
	},
	[]string{"provider"},
)

// EventsMalformedTotal counts payloads dropped during normalization.
var EventsMalformedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_malformed_total",
		Help:      "Total number of payloads dropped as malformed.",
	},
	[]string{"provider"},
)

// ── Pipeline metrics ──────────────────────────────────────────────────────────

// EventsProcessedTotal counts events that completed the full pipeline.
var EventsProcessedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_processed_total",
		Help:      "Total number of normalized events processed by the pipeline.",
	},
)

// EventsStaleTotal counts events discarded for violating per-vehicle
// timestamp ordering.
var EventsStaleTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_stale_total",
		Help:      "Total number of events dropped because their timestamp regressed.",
	},
)

// QueueDepth tracks the events waiting in each dispatcher lane.
// Label:
//   - worker_id: numeric lane index (e.g. "0", "1", …)
var QueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Current number of events pending in each dispatcher lane.",
	},
	[]string{"worker_id"},
)

// ── Alert metrics ─────────────────────────────────────────────────────────────

// AlertsCreatedTotal counts alerts that survived deduplication.
var AlertsCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_created_total",
		Help:      "Total number of alerts materialized, by type and severity.",
	},
	[]string{"type", "severity"},
)

// AlertsSuppressedTotal counts candidates discarded inside the dedup window.
var AlertsSuppressedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_suppressed_total",
		Help:      "Total number of candidate alerts suppressed by the dedup window.",
	},
	[]string{"type"},
)

// DispatchFailuresTotal counts per-channel notification failures.
var DispatchFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dispatch_failures_total",
		Help:      "Total number of failed notification deliveries, by channel.",
	},
	[]string{"channel"},
)
