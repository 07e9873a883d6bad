// Package metrics declares the bridge's Prometheus instrumentation.
// Every per-binding series is labelled by pg_channel so an operator
// can see per-binding throughput on a single /metrics scrape;
// AuditDropped is a single process-wide counter.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// NotificationsForwarded counts successful publications per binding.
var NotificationsForwarded = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bridge_notifications_forwarded_total",
		Help: "Notifications successfully published to AMQP, by pg_channel and amqp_entity",
	},
	[]string{"pg_channel", "amqp_entity"},
)

// PublishFailures counts publish attempts that ultimately failed
// (after the single reconnect retry, or for non-transport reasons).
var PublishFailures = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bridge_publish_failures_total",
		Help: "Publications that failed, by pg_channel",
	},
	[]string{"pg_channel"},
)

// Reconnects counts AMQP RECONNECT transitions.
var Reconnects = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bridge_amqp_reconnects_total",
		Help: "AMQP session reconnects triggered by a transport I/O failure, by pg_channel",
	},
	[]string{"pg_channel"},
)

// WorkerUp reports 1 while a binding's worker is in the LISTENING or
// PUBLISHING state, and 0 otherwise. It is exported for scraping
// only; the admin server's liveness check reads the supervisor's own
// per-binding state instead.
var WorkerUp = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "bridge_worker_up",
		Help: "1 while the worker for this binding is listening, 0 otherwise",
	},
	[]string{"pg_channel"},
)

// AuditDropped counts audit documents dropped because the indexer's
// buffer was full.
var AuditDropped = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "bridge_audit_dropped_total",
		Help: "Audit documents dropped because the indexer buffer was full",
	},
)
