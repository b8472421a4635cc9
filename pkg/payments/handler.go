package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"github.com/zoff-tech/go-shop-saga/pkg/broker"
	"github.com/zoff-tech/go-shop-saga/pkg/store"
	"github.com/zoff-tech/go-shop-saga/schema"
)

// Service reacts to order.created events by charging the gateway and
// recording the payment, emitting payment_processed or payment_failed as a
// follow-on outbox event in the same transaction as the payment row.
type Service struct {
	store   store.Store
	gateway Gateway
}

func NewService(s store.Store, gateway Gateway) *Service {
	return &Service{store: s, gateway: gateway}
}

// Handle is the choreography reaction to order.created. It runs inside the
// consumer's transaction.
func (s *Service) Handle(ctx context.Context, tx store.Tx, d broker.Delivery) error {
	ev, err := schema.DecodeOrderCreated(d.Body)
	if err != nil {
		return err
	}
	_, err = s.charge(ctx, tx, ev)
	return err
}

func (s *Service) charge(ctx context.Context, tx store.Tx, ev schema.OrderCreated) (*store.Payment, error) {
	paymentID, ok, err := s.gateway.Charge(ctx, ev.OrderID, ev.TotalAmount)
	if err != nil {
		return nil, fmt.Errorf("charge order %d: %w", ev.OrderID, err)
	}

	payment := &store.Payment{
		OrderID:       ev.OrderID,
		PaymentID:     paymentID,
		Amount:        ev.TotalAmount,
		CustomerEmail: ev.CustomerEmail,
		Status:        store.PaymentCompleted,
	}
	if !ok {
		payment.Status = store.PaymentFailed
	}
	if err := tx.CreatePayment(ctx, payment); err != nil {
		return nil, err
	}

	var eventType string
	var body []byte
	if ok {
		eventType = schema.EventPaymentProcessed
		body, err = json.Marshal(schema.PaymentProcessed{
			OrderID:       ev.OrderID,
			PaymentID:     paymentID,
			Amount:        ev.TotalAmount,
			CustomerEmail: ev.CustomerEmail,
		})
	} else {
		eventType = schema.EventPaymentFailed
		body, err = json.Marshal(schema.PaymentFailed{
			OrderID: ev.OrderID,
			Reason:  "declined by gateway",
		})
	}
	if err != nil {
		return nil, err
	}
	if err := tx.InsertOutboxEvent(ctx, store.NewOutboxEvent(eventType, body)); err != nil {
		return nil, err
	}

	log.Printf("Payment for order %d: %s", ev.OrderID, payment.Status)
	return payment, nil
}

// ProcessResult is the synchronous response contract used by the
// orchestrated saga.
type ProcessResult struct {
	Success   bool            `json:"success"`
	PaymentID string          `json:"payment_id,omitempty"`
	OrderID   int64           `json:"order_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// ProcessDirect charges and records a payment synchronously for the
// orchestration endpoint. A decline is not an error; it is reported through
// Success=false.
func (s *Service) ProcessDirect(ctx context.Context, orderID int64, amount decimal.Decimal, customerEmail string) (ProcessResult, error) {
	result := ProcessResult{OrderID: orderID, Amount: amount}
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		payment, err := s.charge(ctx, tx, schema.OrderCreated{
			OrderID:       orderID,
			CustomerEmail: customerEmail,
			TotalAmount:   amount,
		})
		if err != nil {
			return err
		}
		result.Success = payment.Status == store.PaymentCompleted
		result.PaymentID = payment.PaymentID
		return nil
	})
	if err != nil {
		return ProcessResult{}, err
	}
	return result, nil
}

// ListPayments returns all recorded payments.
func (s *Service) ListPayments(ctx context.Context) ([]store.Payment, error) {
	return s.store.ListPayments(ctx)
}
