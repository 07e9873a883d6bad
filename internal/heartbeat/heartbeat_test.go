package heartbeat

import (
	"testing"

	"pg-amqp-bridge/internal/binding"
	"pg-amqp-bridge/internal/metrics"
)

func TestCounterValueReadsIncrementedCounter(t *testing.T) {
	metrics.NotificationsForwarded.WithLabelValues("c1", "q1").Inc()
	metrics.NotificationsForwarded.WithLabelValues("c1", "q1").Inc()

	got := counterValue(metrics.NotificationsForwarded, "c1", "q1")
	if got != 2 {
		t.Errorf("counterValue() = %v, want 2", got)
	}
}

func TestCounterValueUnknownLabelsIsZero(t *testing.T) {
	got := counterValue(metrics.PublishFailures, "never-seen-channel")
	if got != 0 {
		t.Errorf("counterValue() = %v, want 0", got)
	}
}

func TestTickDoesNotPanic(t *testing.T) {
	tick([]binding.Binding{{PgChannel: "c1", AMQPEntity: "q1"}})
}
