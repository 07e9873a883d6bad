// Package amqpbroker implements the AMQP session manager and entity
// classifier: opening and re-opening broker sessions with backoff,
// and determining whether a named entity is an exchange or a queue
// via passive declare.
package amqpbroker

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"pg-amqp-bridge/internal/retry"
)

// Session wraps one AMQP connection. Channel identifiers are not
// managed by hand — amqp091-go allocates and tracks them internally —
// but a count of channels opened on the session is kept alongside.
type Session struct {
	conn    *amqp.Connection
	counter atomic.Uint32
}

// OpenSession dials the broker, retrying with the shared exponential
// backoff schedule until it succeeds or ctx is cancelled.
func OpenSession(ctx context.Context, uri, label string) (*Session, error) {
	var conn *amqp.Connection

	err := retry.Forever(ctx, func() error {
		c, err := amqp.Dial(uri)
		if err != nil {
			return err
		}
		conn = c
		return nil
	}, func(err error, next time.Duration) {
		slog.Warn("amqp broker unreachable, retrying", "component", "session", "binding", label, "error", err, "retry_in", next)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("amqp session established", "component", "session", "binding", label)
	return &Session{conn: conn}, nil
}

// OpenChannel allocates a new AMQP channel on this session.
func (s *Session) OpenChannel() (*amqp.Channel, error) {
	ch, err := s.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("amqpbroker: open channel: %w", err)
	}
	s.counter.Add(1)
	return ch, nil
}

// Close closes the session, negotiating the AMQP connection-close
// handshake.
func (s *Session) Close() error {
	return s.conn.Close()
}

// IsClosed reports whether the underlying connection has already
// gone away.
func (s *Session) IsClosed() bool {
	return s.conn.IsClosed()
}
