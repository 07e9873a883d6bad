// Package supervisor owns the database connection pool and the
// process-wide delivery mode, starting one worker per Binding and
// rebuilding the pool wholesale when they all drain.
package supervisor

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"pg-amqp-bridge/internal/amqpbroker"
	"pg-amqp-bridge/internal/binding"
	"pg-amqp-bridge/internal/config"
	"pg-amqp-bridge/internal/pgpool"
	"pg-amqp-bridge/internal/worker"
)

// Supervisor runs the startup/restart loop.
type Supervisor struct {
	cfg      *config.Config
	hooks    []worker.ForwardHook
	bindings []binding.Binding

	mu    sync.RWMutex
	alive map[string]bool
}

// New constructs a Supervisor for an already-parsed, sorted,
// deduplicated set of Bindings.
func New(cfg *config.Config, bindings []binding.Binding, hooks ...worker.ForwardHook) *Supervisor {
	return &Supervisor{cfg: cfg, bindings: bindings, hooks: hooks, alive: make(map[string]bool, len(bindings))}
}

// Run classifies every Binding once, then loops: construct the pool,
// spawn a worker per Binding, join, discard the pool, repeat. It
// returns only when ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) error {
	if err := s.classifyAll(ctx); err != nil {
		return err
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		pool, err := pgpool.Open(ctx, s.cfg.PostgresURI)
		if err != nil {
			return err // only reachable via ctx cancellation; retry.Forever blocks otherwise
		}

		s.runGeneration(ctx, pool)
		pool.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Warn("all workers exited, rebuilding postgres pool", "component", "supervisor")
	}
}

// classifyAll opens one AMQP session, classifies every Binding's
// entity type serially against it, and closes the session before any
// worker is spawned.
func (s *Supervisor) classifyAll(ctx context.Context) error {
	session, err := amqpbroker.OpenSession(ctx, s.cfg.AMQPURI, "classifier")
	if err != nil {
		return err
	}
	defer session.Close()

	for i := range s.bindings {
		entityType, err := amqpbroker.Classify(session, s.bindings[i].AMQPEntity)
		if err != nil {
			slog.Error("amqp entity does not exist", "component", "supervisor", "pg_channel", s.bindings[i].PgChannel, "amqp_entity", s.bindings[i].AMQPEntity, "error", err)
			os.Exit(1)
		}
		s.bindings[i].AMQPEntityType = entityType
		slog.Info("classified", "component", "supervisor", "pg_channel", s.bindings[i].PgChannel, "amqp_entity", s.bindings[i].AMQPEntity, "amqp_entity_type", entityType)
	}
	return nil
}

// runGeneration spawns one worker per Binding against pool and blocks
// until every worker has exited.
func (s *Supervisor) runGeneration(ctx context.Context, pool *pgpool.Pool) {
	var wg sync.WaitGroup
	for _, b := range s.bindings {
		wg.Add(1)
		go func(b binding.Binding) {
			defer wg.Done()
			s.setAlive(b.PgChannel, true)
			defer s.setAlive(b.PgChannel, false)

			w := worker.New(pool, s.cfg.AMQPURI, b, s.cfg.DeliveryMode, s.hooks...)
			if err := w.Run(ctx); err != nil && ctx.Err() == nil {
				slog.Warn("worker exited", "component", "supervisor", "pg_channel", b.PgChannel, "error", err)
			}
		}(b)
	}
	wg.Wait()
}

func (s *Supervisor) setAlive(pgChannel string, up bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alive[pgChannel] = up
}

// Healthy reports whether every configured Binding currently has a
// live worker.
func (s *Supervisor) Healthy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.bindings {
		if !s.alive[b.PgChannel] {
			return false
		}
	}
	return true
}

// Bindings returns the supervisor's resolved binding set, for the
// admin server's /recent route to validate a channel name against.
func (s *Supervisor) Bindings() []binding.Binding {
	return s.bindings
}
