package amqpbroker

import (
	"errors"
	"testing"

	"pg-amqp-bridge/internal/binding"
)

func TestResolvePrefersExchangeOnTie(t *testing.T) {
	got, err := resolve(nil, nil)
	if err != nil {
		t.Fatalf("resolve() error = %v", err)
	}
	if got != binding.Exchange {
		t.Errorf("resolve(nil, nil) = %v, want Exchange", got)
	}
}

func TestResolveQueueOnly(t *testing.T) {
	got, err := resolve(nil, errors.New("NOT_FOUND"))
	if err != nil {
		t.Fatalf("resolve() error = %v", err)
	}
	if got != binding.Queue {
		t.Errorf("resolve(queue ok) = %v, want Queue", got)
	}
}

func TestResolveExchangeOnly(t *testing.T) {
	got, err := resolve(errors.New("NOT_FOUND"), nil)
	if err != nil {
		t.Fatalf("resolve() error = %v", err)
	}
	if got != binding.Exchange {
		t.Errorf("resolve(exchange ok) = %v, want Exchange", got)
	}
}

func TestResolveNeitherIsNotFound(t *testing.T) {
	_, err := resolve(errors.New("NOT_FOUND"), errors.New("NOT_FOUND"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("resolve() error = %v, want ErrNotFound", err)
	}
}
