package amqpbroker

import (
	"fmt"

	"pg-amqp-bridge/internal/binding"
)

// ErrNotFound is returned when a passive declare succeeds for neither
// a queue nor an exchange of the given name.
var ErrNotFound = fmt.Errorf("amqpbroker: entity not found")

// Classify determines whether amqpEntity is an exchange or a queue by
// issuing two passive declares, each on its own channel — some AMQP
// client stacks hang when both are issued on the same channel. Both
// channels are closed before returning. If both declares succeed (an
// exchange and a queue share the name), Exchange wins.
func Classify(session *Session, amqpEntity string) (binding.EntityType, error) {
	queueCh, err := session.OpenChannel()
	if err != nil {
		return binding.Unresolved, fmt.Errorf("amqpbroker: classify %s: %w", amqpEntity, err)
	}
	defer queueCh.Close()

	exchangeCh, err := session.OpenChannel()
	if err != nil {
		return binding.Unresolved, fmt.Errorf("amqpbroker: classify %s: %w", amqpEntity, err)
	}
	defer exchangeCh.Close()

	_, queueErr := queueCh.QueueDeclarePassive(amqpEntity, false, false, false, false, nil)
	_, exchangeErr := exchangeCh.ExchangeDeclarePassive(amqpEntity, "", false, false, false, false, nil)

	return resolve(queueErr, exchangeErr)
}

// resolve applies the tie-break rule: a successful exchange declare
// wins over a successful queue declare; if neither succeeded, the
// entity does not exist under either type.
func resolve(queueErr, exchangeErr error) (binding.EntityType, error) {
	switch {
	case exchangeErr == nil:
		return binding.Exchange, nil
	case queueErr == nil:
		return binding.Queue, nil
	default:
		return binding.Unresolved, ErrNotFound
	}
}
