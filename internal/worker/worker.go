// Package worker implements the listener/publisher worker: one per
// Binding, owning a database connection in LISTEN mode and an AMQP
// channel, translating each inbound notification into one
// publication.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"

	amqp "github.com/rabbitmq/amqp091-go"

	"pg-amqp-bridge/internal/amqpbroker"
	"pg-amqp-bridge/internal/binding"
	"pg-amqp-bridge/internal/config"
	"pg-amqp-bridge/internal/metrics"
	"pg-amqp-bridge/internal/payload"
	"pg-amqp-bridge/internal/pgpool"
)

// Envelope is the derived publication tuple.
type Envelope struct {
	Exchange   string
	RoutingKey string
	Headers    map[string][]string
	Body       string
}

// ForwardHook observes every successfully published Envelope. Both
// the audit indexer and the recent-activity cache implement it; it is
// invoked after the publish has already succeeded and must never
// block the worker.
type ForwardHook interface {
	Forwarded(b binding.Binding, env Envelope)
}

// Worker owns one Binding's end-to-end pipeline for the life of the
// process, or until its database connection is lost.
type Worker struct {
	pool         *pgpool.Pool
	amqpURI      string
	binding      binding.Binding
	deliveryMode config.DeliveryMode
	hooks        []ForwardHook
}

// New constructs a Worker for an already-classified Binding.
func New(pool *pgpool.Pool, amqpURI string, b binding.Binding, deliveryMode config.DeliveryMode, hooks ...ForwardHook) *Worker {
	return &Worker{pool: pool, amqpURI: amqpURI, binding: b, deliveryMode: deliveryMode, hooks: hooks}
}

// Run drives the worker state machine to completion. It never returns
// nil: once ctx is cancelled it returns ctx's error; otherwise it
// returns when the notification stream ends or a setup step (AMQP
// channel, LISTEN connection) fails, which the supervisor treats as
// cause to rebuild its pool and respawn workers. A not-found entity detected during RECONNECT
// terminates the process, matching the fatal policy for the same
// condition at startup.
func (w *Worker) Run(ctx context.Context) error {
	session, err := amqpbroker.OpenSession(ctx, w.amqpURI, w.binding.PgChannel)
	if err != nil {
		return err
	}
	channel, err := session.OpenChannel()
	if err != nil {
		session.Close()
		return err
	}

	listener, err := w.pool.NewListener(w.binding.PgChannel)
	if err != nil {
		channel.Close()
		session.Close()
		return err
	}

	slog.Info("listening", "component", "worker", "pg_channel", w.binding.PgChannel, "amqp_entity", w.binding.AMQPEntity, "amqp_entity_type", w.binding.AMQPEntityType)
	metrics.WorkerUp.WithLabelValues(w.binding.PgChannel).Set(1)

	defer func() {
		metrics.WorkerUp.WithLabelValues(w.binding.PgChannel).Set(0)
		listener.Close()
		channel.Close()
		session.Close()
	}()

	for {
		n, err := listener.Next(ctx)
		if err != nil {
			if errors.Is(err, pgpool.ErrStreamEnded) {
				slog.Warn("notification stream ended", "component", "worker", "pg_channel", w.binding.PgChannel)
				return err
			}
			return err
		}

		session, channel = w.handleNotification(ctx, session, channel, n)
	}
}

// handleNotification parses and publishes one Notification, handling
// the RECONNECT transition inline, and returns the (possibly
// replaced) session/channel pair for the next iteration.
func (w *Worker) handleNotification(ctx context.Context, session *amqpbroker.Session, channel *amqp.Channel, n *pgpool.Notification) (*amqpbroker.Session, *amqp.Channel) {
	parsed := payload.Parse(n.Payload)
	env := envelopeFor(w.binding, parsed)

	err := publish(channel, env, w.deliveryMode)
	if err == nil {
		w.onForwarded(env)
		return session, channel
	}

	if !isTransportError(err) {
		slog.Error("publish failed", "component", "worker", "pg_channel", w.binding.PgChannel, "error", err)
		metrics.PublishFailures.WithLabelValues(w.binding.PgChannel).Inc()
		return session, channel
	}

	slog.Error("amqp transport error, reconnecting", "component", "worker", "pg_channel", w.binding.PgChannel, "error", err)
	metrics.Reconnects.WithLabelValues(w.binding.PgChannel).Inc()

	newSession, newChannel, ok := w.reconnect(ctx)
	if !ok {
		// reconnect failed: either ctx is being torn down (the next Next()
		// call observes ctx.Done and the worker exits) or no channel could
		// be opened on the new session. The notification is dropped and
		// the old (broken) pair is kept, so the next publish fails and
		// triggers another reconnect.
		metrics.PublishFailures.WithLabelValues(w.binding.PgChannel).Inc()
		return session, channel
	}

	if retryErr := publish(newChannel, env, w.deliveryMode); retryErr != nil {
		slog.Error("publish retry after reconnect failed", "component", "worker", "pg_channel", w.binding.PgChannel, "error", retryErr)
		metrics.PublishFailures.WithLabelValues(w.binding.PgChannel).Inc()
	} else {
		w.onForwarded(env)
	}

	channel.Close()
	session.Close()
	return newSession, newChannel
}

// reconnect obtains a fresh session, revalidates the entity still
// exists, and opens a new channel.
func (w *Worker) reconnect(ctx context.Context) (*amqpbroker.Session, *amqp.Channel, bool) {
	session, err := amqpbroker.OpenSession(ctx, w.amqpURI, w.binding.PgChannel)
	if err != nil {
		return nil, nil, false
	}

	entityType, err := amqpbroker.Classify(session, w.binding.AMQPEntity)
	if err != nil {
		slog.Error("amqp entity no longer exists", "component", "worker", "pg_channel", w.binding.PgChannel, "amqp_entity", w.binding.AMQPEntity, "error", err)
		os.Exit(1)
	}
	w.binding.AMQPEntityType = entityType

	channel, err := session.OpenChannel()
	if err != nil {
		session.Close()
		return nil, nil, false
	}

	return session, channel, true
}

// onForwarded records the successful publication: a log line, the
// Prometheus counter, and any registered observability hooks.
func (w *Worker) onForwarded(env Envelope) {
	slog.Info("forwarded",
		"component", "worker",
		"pg_channel", w.binding.PgChannel,
		"amqp_entity", w.binding.AMQPEntity,
		"routing_key", env.RoutingKey,
		"body", env.Body,
	)
	metrics.NotificationsForwarded.WithLabelValues(w.binding.PgChannel, w.binding.AMQPEntity).Inc()

	for _, h := range w.hooks {
		h.Forwarded(w.binding, env)
	}
}

// envelopeFor derives the publication tuple from a parsed payload and
// the owning Binding's resolved entity type.
func envelopeFor(b binding.Binding, p payload.Parsed) Envelope {
	if b.AMQPEntityType == binding.Exchange {
		return Envelope{Exchange: b.AMQPEntity, RoutingKey: p.RoutingKey, Headers: p.Headers, Body: p.Body}
	}
	return Envelope{Exchange: "", RoutingKey: b.AMQPEntity, Headers: p.Headers, Body: p.Body}
}

// publish issues the single AMQP publication for one Envelope.
func publish(channel *amqp.Channel, env Envelope, mode config.DeliveryMode) error {
	var headers amqp.Table
	if env.Headers != nil {
		headers = make(amqp.Table, len(env.Headers))
		for name, values := range env.Headers {
			fields := make([]interface{}, len(values))
			for i, v := range values {
				fields[i] = v
			}
			headers[name] = fields
		}
	}

	return channel.PublishWithContext(context.Background(),
		env.Exchange,
		env.RoutingKey,
		true,  // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "text",
			DeliveryMode: uint8(mode),
			Headers:      headers,
			Body:         []byte(env.Body),
		},
	)
}

// isTransportError classifies a publish error as transport I/O loss
// versus any other publish failure. amqp091-go has no single I/O
// error type, so this is a judgment call: a dropped connection or
// channel surfaces as amqp.ErrClosed, and a closed socket underneath
// as net.ErrClosed; both count as transport loss. Anything else (a server-side nack, a malformed argument) is a
// non-transport failure that does not warrant a reconnect.
func isTransportError(err error) bool {
	return errors.Is(err, amqp.ErrClosed) || errors.Is(err, net.ErrClosed)
}
