package publishers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type amqpPublisher struct {
	id         string
	exchange   string
	routingKey string
	conn       *amqp.Connection
	channel    amqpChannel
	log        Logger
}

func newAMQPPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.AMQP == nil {
		return nil, fmt.Errorf("publisher %q missing amqp configuration", cfg.ID)
	}

	conn, err := amqp.Dial(cfg.AMQP.URL)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}

	if cfg.AMQP.Exchange != "" {
		err = channel.ExchangeDeclare(
			cfg.AMQP.Exchange,
			cfg.AMQP.ExchangeType,
			true,  // durable
			false, // auto-deleted
			false, // internal
			false, // no-wait
			nil,
		)
		if err != nil {
			channel.Close()
			conn.Close()
			return nil, fmt.Errorf("declare amqp exchange: %w", err)
		}
	}

	return &amqpPublisher{
		id:         cfg.ID,
		exchange:   cfg.AMQP.Exchange,
		routingKey: cfg.AMQP.RoutingKey,
		conn:       conn,
		channel:    channel,
		log:        ensureLogger(log),
	}, nil
}

func (a *amqpPublisher) ID() string   { return a.id }
func (a *amqpPublisher) Type() string { return TypeAMQP }

// Publish sends a persistent JSON message. An empty routing key routes by event type.
func (a *amqpPublisher) Publish(ctx context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	key := a.routingKey
	if key == "" {
		key = evt.Type
	}

	headers := amqp.Table{}
	for k, v := range evt.attributes() {
		headers[k] = v
	}

	err = a.channel.PublishWithContext(ctx, a.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    evt.ID,
		Timestamp:    evt.OccurredAt,
		Type:         evt.Type,
		Headers:      headers,
		Body:         payload,
	})
	if err != nil {
		a.log.ErrorObj("amqp publisher send failed", "publisher_amqp_error", map[string]any{
			"publisher_id": a.id,
			"error":        err.Error(),
		})
		return fmt.Errorf("publish to amqp: %w", err)
	}
	a.log.DebugObj("amqp publisher delivered event", "publisher_amqp_delivery", map[string]any{
		"publisher_id": a.id,
		"routing_key":  key,
	})
	return nil
}

func (a *amqpPublisher) Close() error {
	var errs []error
	if a.channel != nil {
		errs = append(errs, a.channel.Close())
	}
	if a.conn != nil {
		errs = append(errs, a.conn.Close())
	}
	return errors.Join(errs...)
}
