package store

import "time"

// InboxStatus represents the processing status of an inbox message.
type InboxStatus string

const (
	InboxPending   InboxStatus = "pending"
	InboxProcessed InboxStatus = "processed"
	InboxFailed    InboxStatus = "failed"
)

// InboxMessage records a seen-message fingerprint. At most one row exists per
// MessageID; a row reaching processed guarantees the corresponding business
// effect was committed in the same transaction.
type InboxMessage struct {
	MessageID   string      `json:"message_id"`
	EventType   string      `json:"event_type"`
	Payload     []byte      `json:"payload"`
	Status      InboxStatus `json:"status"`
	Attempts    int         `json:"attempts"`
	CreatedAt   time.Time   `json:"created_at"`
	ProcessedAt time.Time   `json:"processed_at,omitempty"`
}
