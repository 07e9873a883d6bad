// Package audit mirrors every forwarded Envelope into Elasticsearch
// for after-the-fact searchability. It is strictly best-effort: a
// full buffer drops the document rather than ever applying
// backpressure to a worker's publish path.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"pg-amqp-bridge/internal/binding"
	"pg-amqp-bridge/internal/metrics"
	"pg-amqp-bridge/internal/worker"
)

const (
	forwardedIndex  = "bridge-forwarded"
	bufferDepth     = 256
	bodyPreviewSize = 256
)

// document is the compact audit record indexed per forwarded
// Envelope.
type document struct {
	PgChannel      string    `json:"pg_channel"`
	AMQPEntity     string    `json:"amqp_entity"`
	AMQPEntityType string    `json:"amqp_entity_type"`
	RoutingKey     string    `json:"routing_key"`
	BodyPreview    string    `json:"body_preview"`
	ForwardedAt    time.Time `json:"forwarded_at"`
}

// Indexer is a worker.ForwardHook that asynchronously indexes
// forwarded envelopes.
type Indexer struct {
	es     *elasticsearch.Client
	buffer chan document
}

// New dials Elasticsearch and starts the background indexing
// goroutine. Call Close to stop it.
func New(url string) (*Indexer, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{url}})
	if err != nil {
		return nil, fmt.Errorf("audit: create client: %w", err)
	}

	idx := &Indexer{es: es, buffer: make(chan document, bufferDepth)}
	go idx.run()
	return idx, nil
}

var _ worker.ForwardHook = (*Indexer)(nil)

// Forwarded implements worker.ForwardHook. It never blocks: a full
// buffer drops the document and increments a counter.
func (idx *Indexer) Forwarded(b binding.Binding, env worker.Envelope) {
	doc := document{
		PgChannel:      b.PgChannel,
		AMQPEntity:     b.AMQPEntity,
		AMQPEntityType: b.AMQPEntityType.String(),
		RoutingKey:     env.RoutingKey,
		BodyPreview:    preview(env.Body),
		ForwardedAt:    time.Now().UTC(),
	}

	select {
	case idx.buffer <- doc:
	default:
		metrics.AuditDropped.Inc()
		slog.Debug("audit buffer full, dropping document", "component", "audit", "pg_channel", b.PgChannel)
	}
}

// Close stops accepting new documents. In-flight indexing requests
// are not awaited — this is an observability sink, not a journal.
func (idx *Indexer) Close() {
	close(idx.buffer)
}

func (idx *Indexer) run() {
	for doc := range idx.buffer {
		if err := idx.index(doc); err != nil {
			slog.Debug("audit index failed", "component", "audit", "pg_channel", doc.PgChannel, "error", err)
		}
	}
}

func (idx *Indexer) index(doc document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := idx.es.Index(
		forwardedIndex,
		bytes.NewReader(body),
		idx.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("audit: index request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		b, _ := io.ReadAll(res.Body)
		return fmt.Errorf("audit: index error [%s]: %s", res.Status(), b)
	}
	return nil
}

func preview(body string) string {
	if len(body) <= bodyPreviewSize {
		return body
	}
	return body[:bodyPreviewSize]
}
