// TierDrop - Self-Hosted ZeroTier Controller Dashboard
// Copyright 2026 cinerieus
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinerieus/tierdrop

// Package metrics exposes Prometheus instrumentation for the
// synchronization engine and the HTTP API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PollCycles counts completed poll cycles, triggered or scheduled.
	PollCycles = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tierdrop_poll_cycles_total",
			Help: "Total number of completed poll cycles",
		},
	)

	// PollCycleDuration observes how long one full cycle takes,
	// fan-out included.
	PollCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tierdrop_poll_cycle_duration_seconds",
			Help:    "Duration of poll cycles in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// PollFetchErrors counts failed remote calls by kind. Failures are
	// expected and self-healing; a growing rate signals a degraded node.
	PollFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tierdrop_poll_fetch_errors_total",
			Help: "Total number of failed control API calls by kind",
		},
		[]string{"kind"}, // "status", "network_ids", "network", "member_ids", "member"
	)

	// PollEventsPublished counts change notifications by axis.
	PollEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tierdrop_poll_events_published_total",
			Help: "Total number of change notifications published by axis",
		},
		[]string{"axis"},
	)

	// SnapshotNetworks is the network count in the current snapshot.
	SnapshotNetworks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tierdrop_snapshot_networks",
			Help: "Number of networks in the current snapshot",
		},
	)

	// SnapshotMembers is the total member count in the current snapshot.
	SnapshotMembers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tierdrop_snapshot_members",
			Help: "Number of members across all networks in the current snapshot",
		},
	)

	// EventSubscribers is the number of live SSE and WebSocket
	// subscriptions on the notification bus.
	EventSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tierdrop_event_subscribers",
			Help: "Number of active change notification subscribers",
		},
	)

	// HTTPRequests counts API requests by method, route pattern and
	// status class.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tierdrop_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
)
