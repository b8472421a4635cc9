package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when an entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateInbox is returned when an inbox row already exists for a
	// fingerprint being inserted.
	ErrDuplicateInbox = errors.New("inbox message already exists")
)

// Tx is the set of operations available inside a store transaction. The
// commit boundary is owned by WithinTx; no network call to another service
// ever happens while a Tx is open.
type Tx interface {
	CreateOrder(ctx context.Context, order *Order) error
	GetOrder(ctx context.Context, orderID int64) (*Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status OrderStatus) error

	GetInboxMessage(ctx context.Context, messageID string) (*InboxMessage, error)
	InsertInboxMessage(ctx context.Context, msg *InboxMessage) error
	MarkInboxProcessed(ctx context.Context, messageID string) error

	CreatePayment(ctx context.Context, payment *Payment) error
	CreateNotification(ctx context.Context, notification *Notification) error

	InsertOutboxEvent(ctx context.Context, event *OutboxEvent) error
}

// Store is the transactional durable store of one service. It owns the local
// consistency boundary: a business-entity write and its outbox record are
// committed together or not at all.
type Store interface {
	// WithinTx runs fn inside one local transaction, committing on nil and
	// rolling back on error.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// MarkInboxFailed upserts a failed inbox row in its own short transaction.
	// The processing transaction that inserted the pending row has been rolled
	// back by the time this runs, so the row content travels with the call.
	// Returns the accumulated attempts count.
	MarkInboxFailed(ctx context.Context, msg *InboxMessage) (int, error)

	GetOrder(ctx context.Context, orderID int64) (*Order, error)
	ListOrders(ctx context.Context) ([]Order, error)
	ListPayments(ctx context.Context) ([]Payment, error)
}
