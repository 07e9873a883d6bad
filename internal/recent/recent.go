// Package recent implements the bounded per-binding ring buffer of
// recently forwarded notifications backing the admin server's /recent
// debug route. Backed by Redis; purely observational, never consulted
// by the publish path.
package recent

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"pg-amqp-bridge/internal/binding"
	"pg-amqp-bridge/internal/worker"
)

const keyPrefix = "bridge:recent:"

// entry is one ring-buffer record.
type entry struct {
	AMQPEntity  string    `json:"amqp_entity"`
	RoutingKey  string    `json:"routing_key"`
	Body        string    `json:"body"`
	ForwardedAt time.Time `json:"forwarded_at"`
}

// Cache is a worker.ForwardHook backed by a capped Redis list.
type Cache struct {
	rdb   *redis.Client
	depth int64
}

// New dials Redis and verifies the connection with a PING.
func New(addr string, depth int) (*Cache, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Cache{rdb: rdb, depth: int64(depth)}, nil
}

// Close releases the underlying connection pool.
func (c *Cache) Close() error {
	return c.rdb.Close()
}

var _ worker.ForwardHook = (*Cache)(nil)

// Forwarded implements worker.ForwardHook. Failures are logged at
// debug level and never surfaced to the worker.
func (c *Cache) Forwarded(b binding.Binding, env worker.Envelope) {
	data, err := json.Marshal(entry{
		AMQPEntity:  b.AMQPEntity,
		RoutingKey:  env.RoutingKey,
		Body:        env.Body,
		ForwardedAt: time.Now().UTC(),
	})
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	key := keyPrefix + b.PgChannel
	pipe := c.rdb.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, c.depth-1)
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Debug("recent-cache write failed", "component", "recent", "pg_channel", b.PgChannel, "error", err)
	}
}

// Recent returns the last N forwarded notifications for pgChannel,
// most-recent first.
func (c *Cache) Recent(ctx context.Context, pgChannel string) ([]json.RawMessage, error) {
	raw, err := c.rdb.LRange(ctx, keyPrefix+pgChannel, 0, c.depth-1).Result()
	if err != nil {
		return nil, err
	}

	out := make([]json.RawMessage, len(raw))
	for i, r := range raw {
		out[i] = json.RawMessage(r)
	}
	return out, nil
}
