package inbox

import (
	"context"
	"errors"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zoff-tech/go-shop-saga/pkg/broker"
	"github.com/zoff-tech/go-shop-saga/pkg/config"
	"github.com/zoff-tech/go-shop-saga/pkg/store"
	"github.com/zoff-tech/go-shop-saga/schema"
)

// Handler processes a delivery inside the same transaction that records the
// inbox row, so the business write and the dedup record commit atomically.
// Any follow-on event the handler inserts into the outbox rides the same
// transaction and is picked up later by the relay.
type Handler interface {
	Handle(ctx context.Context, tx store.Tx, d broker.Delivery) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, tx store.Tx, d broker.Delivery) error

func (f HandlerFunc) Handle(ctx context.Context, tx store.Tx, d broker.Delivery) error {
	return f(ctx, tx, d)
}

var errAlreadyProcessed = errors.New("inbox: message already processed")

// Consumer wraps a message consumer with exactly-once processing semantics:
// each delivery is fingerprinted, recorded in the inbox table and handled in
// a single transaction, so redeliveries of an already processed message are
// acknowledged without re-running the handler.
type Consumer struct {
	store      store.Store
	consumer   broker.MessageConsumer
	deadLetter broker.MessageBroker
	handler    Handler
	settings   config.ConsumerSettings
	tracer     trace.Tracer
}

func NewConsumer(s store.Store, mc broker.MessageConsumer, dl broker.MessageBroker, h Handler, settings config.ConsumerSettings) *Consumer {
	return &Consumer{
		store:      s,
		consumer:   mc,
		deadLetter: dl,
		handler:    h,
		settings:   settings,
		tracer:     otel.Tracer("go-shop-saga"),
	}
}

// Run consumes from the configured queue until ctx is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.settings.Queue, c.settings.Bindings, c.Process)
}

// Process handles a single delivery. A nil return acknowledges the message,
// broker.ErrDiscard acknowledges it without processing, and any other error
// requeues it for redelivery.
func (c *Consumer) Process(ctx context.Context, d broker.Delivery) error {
	messageID := schema.MessageID(d.RoutingKey, d.Body)

	ctx, span := c.tracer.Start(ctx, "ProcessInboxMessage", trace.WithAttributes(
		attribute.String("messaging.message.id", messageID),
		attribute.String("messaging.destination.name", d.RoutingKey),
	))
	defer span.End()

	err := c.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		existing, err := tx.GetInboxMessage(ctx, messageID)
		if err != nil {
			return err
		}
		if existing != nil && existing.Status == store.InboxProcessed {
			return errAlreadyProcessed
		}
		if existing == nil {
			msg := &store.InboxMessage{
				MessageID: messageID,
				EventType: schema.EventTypeFor(d.RoutingKey),
				Payload:   d.Body,
				Status:    store.InboxPending,
			}
			if err := tx.InsertInboxMessage(ctx, msg); err != nil {
				return err
			}
		}
		if err := c.handler.Handle(ctx, tx, d); err != nil {
			return err
		}
		return tx.MarkInboxProcessed(ctx, messageID)
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, errAlreadyProcessed) {
		log.Printf("Skipping already processed message %s (%s)", messageID, d.RoutingKey)
		return nil
	}
	if errors.Is(err, store.ErrDuplicateInbox) {
		// Concurrent consumer won the insert race. Requeue so the retry
		// observes the winner's outcome.
		log.Printf("Concurrent processing of message %s, requeueing", messageID)
		return err
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	log.Printf("Failed to process message %s (%s): %v", messageID, d.RoutingKey, err)

	// The processing transaction rolled back, so record the failure in its
	// own transaction to make the attempt count survive.
	attempts, markErr := c.store.MarkInboxFailed(ctx, &store.InboxMessage{
		MessageID: messageID,
		EventType: schema.EventTypeFor(d.RoutingKey),
		Payload:   d.Body,
		Status:    store.InboxFailed,
	})
	if markErr != nil {
		log.Printf("Failed to record inbox failure for message %s: %v", messageID, markErr)
		return err
	}
	if c.settings.MaxRedeliveries > 0 && attempts >= c.settings.MaxRedeliveries {
		c.publishDeadLetter(ctx, d, messageID)
		return broker.ErrDiscard
	}
	return err
}

func (c *Consumer) publishDeadLetter(ctx context.Context, d broker.Delivery, messageID string) {
	if c.deadLetter == nil || c.settings.DeadLetterTopic == "" {
		log.Printf("Discarding poison message %s without dead-lettering", messageID)
		return
	}
	event := store.NewOutboxEvent(schema.EventTypeFor(d.RoutingKey), d.Body)
	event.RoutingKey = c.settings.DeadLetterTopic
	for key, value := range d.Headers {
		event.Headers[key] = value
	}
	event.Headers["x-original-routing-key"] = d.RoutingKey
	if err := c.deadLetter.Publish(ctx, event); err != nil {
		log.Printf("Failed to dead-letter message %s: %v", messageID, err)
		return
	}
	log.Printf("Dead-lettered message %s after %d attempts", messageID, c.settings.MaxRedeliveries)
}
