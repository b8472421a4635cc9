package broker

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/streadway/amqp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/zoff-tech/go-shop-saga/pkg/config"
)

type RabbitMQConsumerCreator func(ctx context.Context, settings *config.BrokerSettings) (MessageConsumer, error)

var NewRabbitMqConsumer RabbitMQConsumerCreator = func(ctx context.Context, settings *config.BrokerSettings) (MessageConsumer, error) {
	if settings.Exchange == "" {
		return nil, errors.New("exchange must be set")
	}

	conn, err := newConnection(settings)
	if err != nil {
		return nil, err
	}

	return &rabbitMqConsumer{connection: conn, settings: settings}, nil
}

type rabbitMqConsumer struct {
	connection *amqp.Connection
	settings   *config.BrokerSettings
}

// Consume reads from a durable named queue bound to the topic exchange with
// the given routing-key patterns. Messages are acknowledged individually,
// only after the handler returns; a nil return acks, ErrDiscard acks without
// requeue, any other error nacks with requeue. Returning on ctx cancellation
// lets an in-flight handler finish first.
func (c *rabbitMqConsumer) Consume(ctx context.Context, queue string, bindings []string, handler func(ctx context.Context, d Delivery) error) error {
	channel, err := c.connection.Channel()
	if err != nil {
		return err
	}
	defer channel.Close()

	if err := declareTopology(channel, c.settings.Exchange); err != nil {
		return err
	}

	q, err := channel.QueueDeclare(
		queue, // name
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	for _, binding := range bindings {
		if err := channel.QueueBind(q.Name, binding, c.settings.Exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind %s to %s: %w", q.Name, binding, err)
		}
	}

	if err := channel.Qos(1, 0, false); err != nil {
		return err
	}

	deliveries, err := channel.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	log.Printf("Consuming from queue %s (bindings: %v)", q.Name, bindings)

	tracer := otel.Tracer("go-shop-saga")
	propagator := otel.GetTextMapPropagator()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}

			headers := make(map[string]string, len(msg.Headers))
			for k, v := range msg.Headers {
				if s, ok := v.(string); ok {
					headers[k] = s
				}
			}

			msgCtx := propagator.Extract(ctx, propagation.MapCarrier(headers))
			msgCtx, span := tracer.Start(msgCtx, "Consume",
				trace.WithAttributes(
					semconv.MessagingSystemKey.String("rabbitmq"),
					semconv.MessagingRabbitmqRoutingKeyKey.String(msg.RoutingKey),
				),
			)

			err := handler(msgCtx, Delivery{
				RoutingKey:  msg.RoutingKey,
				Body:        msg.Body,
				Headers:     headers,
				Redelivered: msg.Redelivered,
			})
			switch {
			case err == nil, errors.Is(err, ErrDiscard):
				if err := msg.Ack(false); err != nil {
					log.Printf("Failed to ack message: %v", err)
				}
			default:
				span.RecordError(err)
				log.Printf("Handler error, requeueing message: %v", err)
				if err := msg.Nack(false, true); err != nil {
					log.Printf("Failed to nack message: %v", err)
				}
			}
			span.End()
		}
	}
}

func (c *rabbitMqConsumer) Close() error {
	return c.connection.Close()
}
