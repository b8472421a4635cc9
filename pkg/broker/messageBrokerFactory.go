package broker

import (
	"context"
	"fmt"

	"github.com/zoff-tech/go-shop-saga/pkg/config"
)

// NewBroker builds the publish side for the configured broker backend.
func NewBroker(ctx context.Context, cfg *config.BrokerSettings) (MessageBroker, error) {
	switch cfg.Type {
	case "rabbitmq":
		return NewRabbitMqBroker(ctx, cfg)
	case "pubsub":
		return NewPubSubClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported broker type: %s", cfg.Type)
	}
}

// NewConsumer builds the consume side. Only RabbitMQ supports durable named
// subscriptions in this design.
func NewConsumer(ctx context.Context, cfg *config.BrokerSettings) (MessageConsumer, error) {
	switch cfg.Type {
	case "rabbitmq":
		return NewRabbitMqConsumer(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported consumer broker type: %s", cfg.Type)
	}
}
