package broker

import (
	"context"
	"errors"

	"github.com/zoff-tech/go-shop-saga/pkg/store"
)

// MessageBroker defines the operations to publish messages to a broker.
type MessageBroker interface {
	// Publish sends the event to the configured exchange or topic using the
	// event's routing key.
	Publish(ctx context.Context, event *store.OutboxEvent) error
	// Close cleans up any resources (connections).
	Close() error
}

// Delivery is one message handed to a consumer callback.
type Delivery struct {
	RoutingKey  string
	Body        []byte
	Headers     map[string]string
	Redelivered bool
}

// ErrDiscard tells the consumer to acknowledge the message without requeueing
// it (e.g. after it was routed to the dead-letter topic).
var ErrDiscard = errors.New("discard message")

// MessageConsumer receives deliveries from a durable named queue bound to
// routing-key patterns. The handler's return value drives acknowledgement:
// nil acks, ErrDiscard acks without processing, anything else nacks with
// requeue.
type MessageConsumer interface {
	Consume(ctx context.Context, queue string, bindings []string, handler func(ctx context.Context, d Delivery) error) error
	Close() error
}
