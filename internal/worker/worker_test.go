package worker

import (
	"errors"
	"net"
	"reflect"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"

	"pg-amqp-bridge/internal/binding"
	"pg-amqp-bridge/internal/payload"
)

func TestEnvelopeForExchange(t *testing.T) {
	b := binding.Binding{PgChannel: "c2", AMQPEntity: "ex2", AMQPEntityType: binding.Exchange}
	p := payload.Parse("test_direct_key|Direct exchange test")

	got := envelopeFor(b, p)
	want := Envelope{Exchange: "ex2", RoutingKey: "test_direct_key", Body: "Direct exchange test"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("envelopeFor() = %+v, want %+v", got, want)
	}
}

func TestEnvelopeForQueue(t *testing.T) {
	b := binding.Binding{PgChannel: "c1", AMQPEntity: "q1", AMQPEntityType: binding.Queue}
	p := payload.Parse("q1|Queue test")

	got := envelopeFor(b, p)
	want := Envelope{Exchange: "", RoutingKey: "q1", Body: "Queue test"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("envelopeFor() = %+v, want %+v", got, want)
	}
}

func TestIsTransportError(t *testing.T) {
	if !isTransportError(amqp.ErrClosed) {
		t.Error("isTransportError(amqp.ErrClosed) = false, want true")
	}
	if !isTransportError(net.ErrClosed) {
		t.Error("isTransportError(net.ErrClosed) = false, want true")
	}
	if isTransportError(errors.New("NOT-ACCEPTABLE")) {
		t.Error("isTransportError(generic error) = true, want false")
	}
}
