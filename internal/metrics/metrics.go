// FastFood Client - Real-Time Order Tracking for the FastFood Platform
// Copyright 2026 FastFood App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fastfoodapp/client-go

// Package metrics exposes Prometheus instrumentation for the client:
// transport connection health, normalizer throughput, reconciliation
// activity, and circuit breaker state. Served on the local debug endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Transport metrics

	WSConnectionState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fastfood_ws_connection_state",
			Help: "WebSocket connection state (0=disconnected, 1=connecting, 2=connected)",
		},
	)

	WSMessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fastfood_ws_messages_received_total",
			Help: "Total WebSocket frames successfully parsed and republished",
		},
	)

	WSParseFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fastfood_ws_parse_failures_total",
			Help: "Total WebSocket frames dropped because they were not valid JSON",
		},
	)

	WSReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fastfood_ws_reconnects_total",
			Help: "Total reconnection attempts scheduled after non-clean closures",
		},
	)

	// Normalizer metrics

	EventsNormalized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fastfood_events_normalized_total",
			Help: "Raw frames processed by the normalizer, by outcome",
		},
		[]string{"outcome"}, // "published", "discarded", "unroutable"
	)

	NotificationHistorySize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fastfood_notification_history_size",
			Help: "Current number of entries in the bounded notification history",
		},
	)

	// Reconciliation metrics

	TrackerRefetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fastfood_tracker_refetches_total",
			Help: "Order refetches by trigger",
		},
		[]string{"trigger"}, // "poll", "event", "manual"
	)

	TrackerStaleResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fastfood_tracker_stale_responses_total",
			Help: "Refetch responses discarded because a newer response was already applied",
		},
	)

	// Order list metrics

	ListPatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fastfood_list_patches_total",
			Help: "Order-list event applications by outcome",
		},
		[]string{"outcome"}, // "patched", "refetched"
	)

	// Resilience metrics

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fastfood_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"breaker"},
	)
)
