// Package pgpool owns the PostgreSQL side of the bridge: a liveness
// -checked pool used by the supervisor to gate startup, and a factory
// for the per-Binding pq.Listener connections that workers hold
// exclusively for their lifetime.
package pgpool

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"pg-amqp-bridge/internal/retry"
)

// minReconnectInterval/maxReconnectInterval are handed to pq.Listener
// purely to bound its internal dial retry of the TCP connection; the
// bridge treats any Disconnected event as end-of-stream and does not
// rely on pq.Listener's own reconnection (see Listener.Next).
const (
	minReconnectInterval = 10 * time.Second
	maxReconnectInterval = time.Minute
)

// Pool gates bridge startup on PostgreSQL availability and constructs
// the per-Binding LISTEN connections.
type Pool struct {
	dsn string
	db  *sql.DB
}

// Open verifies connectivity (via Ping, retried forever with the
// shared backoff schedule) and returns a Pool. It blocks until the
// database is reachable or ctx is cancelled.
func Open(ctx context.Context, dsn string) (*Pool, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("pgpool: open: %w", err)
	}

	err = retry.Forever(ctx, func() error {
		return db.PingContext(ctx)
	}, func(err error, next time.Duration) {
		slog.Warn("postgres pool unavailable, retrying", "component", "pgpool", "error", err, "retry_in", next)
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	slog.Info("postgres pool ready", "component", "pgpool")
	return &Pool{dsn: dsn, db: db}, nil
}

// Close releases the pool's health-check connection. It does not
// affect any Listener already handed out to a worker.
func (p *Pool) Close() error {
	return p.db.Close()
}

// Listener is one worker's exclusively-owned database connection in
// LISTEN mode: a lazy, infinite, non-restartable sequence of
// notifications.
type Listener struct {
	pgChannel string
	inner     *pq.Listener
	events    chan error
}

// NewListener checks out a dedicated connection and issues
// LISTEN <channel> on it.
func (p *Pool) NewListener(pgChannel string) (*Listener, error) {
	events := make(chan error, 1)

	inner := pq.NewListener(p.dsn, minReconnectInterval, maxReconnectInterval, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventDisconnected, pq.ListenerEventConnectionAttemptFailed:
			select {
			case events <- err:
			default:
			}
		}
	})

	if err := inner.Listen(pgChannel); err != nil {
		inner.Close()
		return nil, fmt.Errorf("pgpool: LISTEN %s: %w", pgChannel, err)
	}

	return &Listener{pgChannel: pgChannel, inner: inner, events: events}, nil
}

// Notification is one inbound NOTIFY record.
type Notification struct {
	Channel string
	Payload string
}

// ErrStreamEnded is returned by Next once the underlying connection
// has been lost. The worker treats this as exit-and-rebuild: it does
// not retry internally, it returns control to the supervisor.
var ErrStreamEnded = fmt.Errorf("pgpool: notification stream ended")

// Next blocks for the next Notification, or returns ErrStreamEnded
// once the connection drops. It is safe to call repeatedly; it is not
// safe to call from more than one goroutine.
func (l *Listener) Next(ctx context.Context) (*Notification, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case err := <-l.events:
			if err != nil {
				slog.Error("postgres LISTEN connection lost", "component", "pgpool", "pg_channel", l.pgChannel, "error", err)
			}
			return nil, ErrStreamEnded
		case n, ok := <-l.inner.Notify:
			if !ok {
				return nil, ErrStreamEnded
			}
			if n == nil {
				// pq sends a nil notification after a reconnect to signal
				// the client should treat state as possibly stale; the
				// bridge has no cached state to invalidate, so this is a
				// no-op keepalive.
				continue
			}
			return &Notification{Channel: n.Channel, Payload: n.Extra}, nil
		}
	}
}

// Close unsubscribes and releases the underlying connection.
func (l *Listener) Close() error {
	return l.inner.Close()
}
