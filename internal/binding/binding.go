// Package binding implements the bridge-channel configuration
// language: parsing BRIDGE_CHANNELS into a canonical, de-duplicated
// set of pg_channel → amqp_entity pairings.
package binding

import (
	"fmt"
	"sort"
	"strings"
)

// EntityType classifies an AMQP entity, resolved at startup by the
// entity classifier and never by the config parser.
type EntityType int

const (
	Unresolved EntityType = iota
	Exchange
	Queue
)

func (t EntityType) String() string {
	switch t {
	case Exchange:
		return "exchange"
	case Queue:
		return "queue"
	default:
		return "unresolved"
	}
}

// Binding pairs one PostgreSQL LISTEN channel with one AMQP entity.
// AMQPEntityType starts Unresolved and is set once, at startup, by
// the entity classifier.
type Binding struct {
	PgChannel      string
	AMQPEntity     string
	AMQPEntityType EntityType
}

// ParseError reports a fatal, startup-time bridge-channels parsing
// failure.
type ParseError struct{ Msg string }

func (e *ParseError) Error() string { return "config: " + e.Msg }

// Parse parses a comma-separated BRIDGE_CHANNELS string into a
// sorted, unique sequence of Bindings. Each comma-separated segment is
// "pg_channel:amqp_entity"; duplicate pg_channel values are rejected.
func Parse(bridgeChannels string) ([]Binding, error) {
	var bindings []Binding

	for _, segment := range strings.Split(bridgeChannels, ",") {
		pgChannel, amqpEntity := splitBinding(segment)
		if pgChannel == "" || amqpEntity == "" {
			continue
		}
		bindings = append(bindings, Binding{PgChannel: pgChannel, AMQPEntity: amqpEntity})
	}

	if len(bindings) == 0 {
		return nil, &ParseError{Msg: fmt.Sprintf("no bindings specified in %q", bridgeChannels)}
	}

	sort.Slice(bindings, func(i, j int) bool {
		if bindings[i].PgChannel != bindings[j].PgChannel {
			return bindings[i].PgChannel < bindings[j].PgChannel
		}
		return bindings[i].AMQPEntity < bindings[j].AMQPEntity
	})

	for i := 1; i < len(bindings); i++ {
		if bindings[i].PgChannel == bindings[i-1].PgChannel {
			return nil, &ParseError{Msg: fmt.Sprintf("duplicate pg_channel %q", bindings[i].PgChannel)}
		}
	}

	return bindings, nil
}

// splitBinding splits one "pg_channel[:amqp_entity]" segment and
// trims both sides.
func splitBinding(segment string) (pgChannel, amqpEntity string) {
	idx := strings.IndexByte(segment, ':')
	if idx < 0 {
		return strings.TrimSpace(segment), ""
	}
	return strings.TrimSpace(segment[:idx]), strings.TrimSpace(segment[idx+1:])
}
