package publishers

import (
	"context"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
)

type fakeAMQPChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
	err      error
	closed   bool
}

func (f *fakeAMQPChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

func (f *fakeAMQPChannel) Close() error {
	f.closed = true
	return nil
}

func TestAMQPPublisherRoutesByEventType(t *testing.T) {
	ch := &fakeAMQPChannel{}
	pub := &amqpPublisher{id: "rabbit", exchange: "debts", channel: ch, log: noopLogger{}}

	evt := createdEvent()
	if err := pub.Publish(context.Background(), evt); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if ch.exchange != "debts" || ch.key != EventDebtCreated {
		t.Fatalf("unexpected routing %s/%s", ch.exchange, ch.key)
	}
	if ch.msg.MessageId != evt.ID || ch.msg.DeliveryMode != amqp.Persistent {
		t.Fatalf("unexpected publishing: %#v", ch.msg)
	}
	if ch.msg.Headers["debt_id"] != "7" {
		t.Fatalf("debt_id header missing: %#v", ch.msg.Headers)
	}

	if err := pub.Close(); err != nil || !ch.closed {
		t.Fatalf("Close: %v closed=%v", err, ch.closed)
	}
}

func TestAMQPPublisherExplicitRoutingKeyAndError(t *testing.T) {
	ch := &fakeAMQPChannel{err: errors.New("channel closed")}
	pub := &amqpPublisher{routingKey: "debts.events", channel: ch, log: noopLogger{}}

	if err := pub.Publish(context.Background(), createdEvent()); err == nil {
		t.Fatalf("expected error")
	}
	if ch.key != "debts.events" {
		t.Fatalf("routing key = %s", ch.key)
	}
}
