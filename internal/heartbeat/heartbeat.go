// Package heartbeat logs a periodic per-binding throughput summary on
// a configurable cron schedule, for operators tailing logs without a
// metrics scraper attached.
package heartbeat

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/robfig/cron/v3"

	"pg-amqp-bridge/internal/binding"
	"pg-amqp-bridge/internal/metrics"
)

// Start registers the heartbeat job on schedule and starts the
// scheduler. The returned *cron.Cron must be stopped on shutdown:
//
//	c, err := heartbeat.Start(schedule, bindings)
//	defer func() { <-c.Stop().Done() }() // waits for a running tick to finish
func Start(schedule string, bindings []binding.Binding) (*cron.Cron, error) {
	c := cron.New()

	_, err := c.AddFunc(schedule, func() { tick(bindings) })
	if err != nil {
		return nil, err
	}

	c.Start()
	slog.Info("heartbeat scheduler started", "component", "heartbeat", "schedule", schedule)
	return c, nil
}

func tick(bindings []binding.Binding) {
	for _, b := range bindings {
		slog.Info("heartbeat",
			"component", "heartbeat",
			"pg_channel", b.PgChannel,
			"amqp_entity", b.AMQPEntity,
			"forwarded_total", counterValue(metrics.NotificationsForwarded, b.PgChannel, b.AMQPEntity),
			"publish_failures_total", counterValue(metrics.PublishFailures, b.PgChannel),
			"reconnects_total", counterValue(metrics.Reconnects, b.PgChannel),
		)
	}
}

// counterValue reads the current value of one label combination of a
// CounterVec without needing a registry scrape.
func counterValue(vec *prometheus.CounterVec, labels ...string) float64 {
	c, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		return 0
	}
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}
