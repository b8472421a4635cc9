package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/zoff-tech/go-shop-saga/schema"
)

// Status represents the status of an outbox event.
type Status string

const (
	StatusPending    Status = "pending"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
	StatusCanceled   Status = "canceled"
	StatusProcessing Status = "processing"
)

// OutboxEvent represents an event staged in the outbox table. It is created
// in the same local transaction as the business-entity mutation it describes;
// the relay only reads and updates its status, never its content.
type OutboxEvent struct {
	ID         string            `json:"id"`
	EventType  string            `json:"event_type"`
	Payload    []byte            `json:"payload"`
	Status     Status            `json:"status"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
	SentAt     time.Time         `json:"sent_at,omitempty"`
	Headers    map[string]string `json:"headers"`
	RetryCount int               `json:"retry_count"`
	RoutingKey string            `json:"routing_key"`
}

// NewOutboxEvent creates a pending OutboxEvent for the given event type. The
// routing key is derived from the event type up front so the relay never has
// to interpret payloads.
func NewOutboxEvent(eventType string, payload []byte) *OutboxEvent {
	now := time.Now()
	return &OutboxEvent{
		ID:         uuid.NewString(),
		EventType:  eventType,
		Payload:    payload,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
		Headers:    map[string]string{},
		RetryCount: 0,
		RoutingKey: schema.RoutingKeyFor(eventType),
	}
}
