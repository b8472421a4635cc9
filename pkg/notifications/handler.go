package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/zoff-tech/go-shop-saga/pkg/broker"
	"github.com/zoff-tech/go-shop-saga/pkg/store"
	"github.com/zoff-tech/go-shop-saga/schema"
)

// Service reacts to payment.processed events by notifying the customer and
// recording the notification, with a notification_sent follow-on event in
// the same transaction.
type Service struct {
	store  store.Store
	sender Sender
}

func NewService(s store.Store, sender Sender) *Service {
	return &Service{store: s, sender: sender}
}

// Handle is the choreography reaction to payment.processed. It runs inside
// the consumer's transaction.
func (s *Service) Handle(ctx context.Context, tx store.Tx, d broker.Delivery) error {
	ev, err := schema.DecodePaymentProcessed(d.Body)
	if err != nil {
		return err
	}
	return s.notify(ctx, tx, ev.OrderID, ev.CustomerEmail)
}

func (s *Service) notify(ctx context.Context, tx store.Tx, orderID int64, email string) error {
	message := fmt.Sprintf("Your order %d has been paid.", orderID)
	if err := s.sender.Send(ctx, email, message); err != nil {
		return fmt.Errorf("send notification for order %d: %w", orderID, err)
	}

	if err := tx.CreateNotification(ctx, &store.Notification{OrderID: orderID, Email: email}); err != nil {
		return err
	}
	body, err := json.Marshal(schema.NotificationSent{OrderID: orderID, Email: email})
	if err != nil {
		return err
	}
	return tx.InsertOutboxEvent(ctx, store.NewOutboxEvent(schema.EventNotificationSent, body))
}

// SendResult is the synchronous response contract used by the orchestrated
// saga.
type SendResult struct {
	Success bool   `json:"success"`
	OrderID int64  `json:"order_id"`
	Email   string `json:"email"`
}

// SendDirect notifies synchronously for the orchestration endpoint.
func (s *Service) SendDirect(ctx context.Context, orderID int64, email string) (SendResult, error) {
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return s.notify(ctx, tx, orderID, email)
	})
	if err != nil {
		return SendResult{}, err
	}
	return SendResult{Success: true, OrderID: orderID, Email: email}, nil
}
