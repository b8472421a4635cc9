// Package storetest provides an in-memory Store with real transaction
// semantics (commit on nil, full rollback on error) for tests that exercise
// the outbox/inbox machinery without a database.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zoff-tech/go-shop-saga/pkg/store"
)

type state struct {
	nextOrderID   int64
	nextRowID     int64
	orders        map[int64]store.Order
	payments      []store.Payment
	notifications []store.Notification
	inbox         map[string]store.InboxMessage
	outbox        []store.OutboxEvent
}

func (s *state) clone() *state {
	c := &state{
		nextOrderID:   s.nextOrderID,
		nextRowID:     s.nextRowID,
		orders:        make(map[int64]store.Order, len(s.orders)),
		payments:      append([]store.Payment(nil), s.payments...),
		notifications: append([]store.Notification(nil), s.notifications...),
		inbox:         make(map[string]store.InboxMessage, len(s.inbox)),
		outbox:        append([]store.OutboxEvent(nil), s.outbox...),
	}
	for id, o := range s.orders {
		c.orders[id] = o
	}
	for id, m := range s.inbox {
		c.inbox[id] = m
	}
	return c
}

// Store implements store.Store in memory.
type Store struct {
	mu sync.Mutex
	st *state
}

func New() *Store {
	return &Store{st: &state{
		nextOrderID: 1,
		nextRowID:   1,
		orders:      map[int64]store.Order{},
		inbox:       map[string]store.InboxMessage{},
	}}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := s.st.clone()
	if err := fn(ctx, &tx{st: staged}); err != nil {
		return err
	}
	s.st = staged
	return nil
}

func (s *Store) MarkInboxFailed(ctx context.Context, msg *store.InboxMessage) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.st.inbox[msg.MessageID]
	if !ok {
		existing = store.InboxMessage{
			MessageID: msg.MessageID,
			EventType: msg.EventType,
			Payload:   msg.Payload,
			CreatedAt: time.Now(),
		}
	}
	existing.Status = store.InboxFailed
	existing.Attempts++
	s.st.inbox[msg.MessageID] = existing
	return existing.Attempts, nil
}

func (s *Store) GetOrder(ctx context.Context, orderID int64) (*store.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&tx{st: s.st}).GetOrder(ctx, orderID)
}

func (s *Store) ListOrders(ctx context.Context) ([]store.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders := make([]store.Order, 0, len(s.st.orders))
	for id := int64(1); id < s.st.nextOrderID; id++ {
		if o, ok := s.st.orders[id]; ok {
			orders = append(orders, o)
		}
	}
	return orders, nil
}

func (s *Store) ListPayments(ctx context.Context) ([]store.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]store.Payment(nil), s.st.payments...), nil
}

// Outbox returns the committed outbox events.
func (s *Store) Outbox() []store.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]store.OutboxEvent(nil), s.st.outbox...)
}

// Inbox returns the committed inbox row for a fingerprint, or nil.
func (s *Store) Inbox(messageID string) *store.InboxMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.st.inbox[messageID]; ok {
		return &m
	}
	return nil
}

// Notifications returns the committed notification rows.
func (s *Store) Notifications() []store.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]store.Notification(nil), s.st.notifications...)
}

type tx struct {
	st *state
}

func (t *tx) CreateOrder(ctx context.Context, order *store.Order) error {
	if order.Status == "" {
		order.Status = store.OrderPending
	}
	order.ID = t.st.nextOrderID
	order.CreatedAt = time.Now()
	t.st.nextOrderID++
	t.st.orders[order.ID] = *order
	return nil
}

func (t *tx) GetOrder(ctx context.Context, orderID int64) (*store.Order, error) {
	o, ok := t.st.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order %d: %w", orderID, store.ErrNotFound)
	}
	return &o, nil
}

func (t *tx) UpdateOrderStatus(ctx context.Context, orderID int64, status store.OrderStatus) error {
	o, ok := t.st.orders[orderID]
	if !ok {
		return fmt.Errorf("order %d: %w", orderID, store.ErrNotFound)
	}
	o.Status = status
	t.st.orders[orderID] = o
	return nil
}

func (t *tx) GetInboxMessage(ctx context.Context, messageID string) (*store.InboxMessage, error) {
	if m, ok := t.st.inbox[messageID]; ok {
		return &m, nil
	}
	return nil, nil
}

func (t *tx) InsertInboxMessage(ctx context.Context, msg *store.InboxMessage) error {
	if _, ok := t.st.inbox[msg.MessageID]; ok {
		return store.ErrDuplicateInbox
	}
	if msg.Status == "" {
		msg.Status = store.InboxPending
	}
	msg.CreatedAt = time.Now()
	t.st.inbox[msg.MessageID] = *msg
	return nil
}

func (t *tx) MarkInboxProcessed(ctx context.Context, messageID string) error {
	m, ok := t.st.inbox[messageID]
	if !ok {
		return fmt.Errorf("inbox %s: %w", messageID, store.ErrNotFound)
	}
	m.Status = store.InboxProcessed
	m.ProcessedAt = time.Now()
	t.st.inbox[messageID] = m
	return nil
}

func (t *tx) CreatePayment(ctx context.Context, payment *store.Payment) error {
	if payment.Status == "" {
		payment.Status = store.PaymentCompleted
	}
	payment.ID = t.st.nextRowID
	payment.CreatedAt = time.Now()
	t.st.nextRowID++
	t.st.payments = append(t.st.payments, *payment)
	return nil
}

func (t *tx) CreateNotification(ctx context.Context, notification *store.Notification) error {
	notification.ID = t.st.nextRowID
	notification.SentAt = time.Now()
	t.st.nextRowID++
	t.st.notifications = append(t.st.notifications, *notification)
	return nil
}

func (t *tx) InsertOutboxEvent(ctx context.Context, event *store.OutboxEvent) error {
	t.st.outbox = append(t.st.outbox, *event)
	return nil
}
