package relay

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zoff-tech/go-shop-saga/pkg/broker"
	"github.com/zoff-tech/go-shop-saga/pkg/config"
	"github.com/zoff-tech/go-shop-saga/pkg/store"
)

// OutboxRelay drains pending outbox events and republishes them to the bus,
// marking them sent only after a successful publish. A crash between publish
// and mark-sent causes duplicate delivery, which is why every consumer is
// idempotent.
type OutboxRelay struct {
	repo            store.OutBoxRepository
	broker          broker.MessageBroker
	tracer          trace.Tracer
	pollInterval    time.Duration
	batchSize       int
	maxRetries      int
	deadLetterTopic string
}

// NewOutboxRelay creates a new instance of OutboxRelay.
func NewOutboxRelay(repo store.OutBoxRepository, broker broker.MessageBroker, cfg config.RelaySettings) *OutboxRelay {
	return &OutboxRelay{
		repo:            repo,
		broker:          broker,
		tracer:          otel.Tracer("go-shop-saga"),
		pollInterval:    cfg.PollInterval,
		batchSize:       cfg.BatchSize,
		maxRetries:      cfg.MaxRetries,
		deadLetterTopic: cfg.DeadLetterTopic,
	}
}

// Run processes outbox events on a fixed interval until ctx is canceled. An
// in-flight batch is finished before returning.
func (r *OutboxRelay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Outbox relay stopped")
			return
		case <-ticker.C:
			r.ProcessBatch(ctx)
		}
	}
}

// ProcessBatch drains one batch of pending events. Exported so tests and the
// orchestrated write path can force a cycle without waiting for the ticker.
func (r *OutboxRelay) ProcessBatch(ctx context.Context) {
	events, err := r.repo.FetchPending(ctx, r.batchSize)
	if err != nil {
		log.Printf("Failed to fetch events: %v", err)
		return
	}

	for _, event := range events {
		// Per-event context so spans are siblings, not a chain.
		evCtx, span := r.tracer.Start(ctx, "ProcessOutboxEvent", trace.WithAttributes(
			attribute.String("event.id", event.ID),
			attribute.String("event.type", event.EventType),
			attribute.String("event.routing_key", event.RoutingKey),
			attribute.String("event.status", string(event.Status)),
			attribute.Int("event.retry_count", event.RetryCount),
		))

		if err := r.broker.Publish(evCtx, &event); err != nil {
			log.Printf("Failed to publish event %s: %v", event.ID, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())

			// Increment retry count and update status; events over budget go
			// to the dead-letter topic for operator attention.
			if event.RetryCount < r.maxRetries {
				if err := r.repo.SetStatusAndIncrementRetry(evCtx, event.ID, store.StatusPending); err != nil {
					log.Printf("Failed to update retry count for event %s: %v", event.ID, err)
				}
			} else {
				r.deadLetter(evCtx, event)
				if err := r.repo.SetStatus(evCtx, event.ID, store.StatusFailed); err != nil {
					log.Printf("Failed to mark event %s as failed: %v", event.ID, err)
				}
			}

			span.End()
			continue
		}

		if err := r.repo.MarkProcessed(evCtx, event.ID); err != nil {
			log.Printf("Failed to mark event %s as processed: %v", event.ID, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}

		span.End()
	}
}

func (r *OutboxRelay) deadLetter(ctx context.Context, event store.OutboxEvent) {
	if r.deadLetterTopic == "" {
		return
	}
	dead := event
	dead.RoutingKey = r.deadLetterTopic
	if err := r.broker.Publish(ctx, &dead); err != nil {
		log.Printf("Failed to dead-letter event %s: %v", event.ID, err)
	}
}
