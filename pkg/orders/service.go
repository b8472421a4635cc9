package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/mail"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zoff-tech/go-shop-saga/pkg/store"
	"github.com/zoff-tech/go-shop-saga/schema"
)

// ErrInvalidOrder wraps all request validation failures.
var ErrInvalidOrder = errors.New("invalid order")

// Item is one order line. Price is the unit price.
type Item struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// CreateOrderRequest is the input to CreateOrder.
type CreateOrderRequest struct {
	CustomerEmail string `json:"customer_email"`
	Items         []Item `json:"items"`
}

// Service owns the order entity. Creating an order writes the order row and
// its order_created outbox event in one transaction; the relay publishes the
// event afterwards.
type Service struct {
	store  store.Store
	tracer trace.Tracer
}

func NewService(s store.Store) *Service {
	return &Service{
		store:  s,
		tracer: otel.Tracer("go-shop-saga"),
	}
}

func (r CreateOrderRequest) validate() error {
	if _, err := mail.ParseAddress(r.CustomerEmail); err != nil {
		return fmt.Errorf("%w: customer_email %q", ErrInvalidOrder, r.CustomerEmail)
	}
	if len(r.Items) == 0 {
		return fmt.Errorf("%w: no items", ErrInvalidOrder)
	}
	for i, item := range r.Items {
		if item.Name == "" {
			return fmt.Errorf("%w: item %d has no name", ErrInvalidOrder, i)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: item %q quantity %d", ErrInvalidOrder, item.Name, item.Quantity)
		}
		if item.Price.IsNegative() {
			return fmt.Errorf("%w: item %q has negative price", ErrInvalidOrder, item.Name)
		}
	}
	return nil
}

// Total sums price times quantity across the request's items.
func (r CreateOrderRequest) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range r.Items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// CreateOrder validates the request, then inserts the pending order and its
// order_created outbox event in a single transaction.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*store.Order, error) {
	ctx, span := s.tracer.Start(ctx, "CreateOrder")
	defer span.End()

	if err := req.validate(); err != nil {
		return nil, err
	}

	order := &store.Order{
		CustomerEmail: req.CustomerEmail,
		TotalAmount:   req.Total(),
		Status:        store.OrderPending,
	}
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}
		body, err := json.Marshal(schema.OrderCreated{
			OrderID:       order.ID,
			CustomerEmail: order.CustomerEmail,
			TotalAmount:   order.TotalAmount,
		})
		if err != nil {
			return err
		}
		return tx.InsertOutboxEvent(ctx, store.NewOutboxEvent(schema.EventOrderCreated, body))
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	span.SetAttributes(attribute.Int64("order.id", order.ID))
	log.Printf("Created order %d for %s, total %s", order.ID, order.CustomerEmail, order.TotalAmount)
	return order, nil
}

// GetOrder returns one order or store.ErrNotFound.
func (s *Service) GetOrder(ctx context.Context, orderID int64) (*store.Order, error) {
	return s.store.GetOrder(ctx, orderID)
}

// ListOrders returns all orders in creation order.
func (s *Service) ListOrders(ctx context.Context) ([]store.Order, error) {
	return s.store.ListOrders(ctx)
}

// Confirm moves an order to confirmed.
func (s *Service) Confirm(ctx context.Context, orderID int64) error {
	return s.setStatus(ctx, orderID, store.OrderConfirmed)
}

// Cancel moves an order to cancelled. Used as the saga compensation.
func (s *Service) Cancel(ctx context.Context, orderID int64) error {
	return s.setStatus(ctx, orderID, store.OrderCancelled)
}

func (s *Service) setStatus(ctx context.Context, orderID int64, status store.OrderStatus) error {
	return s.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.UpdateOrderStatus(ctx, orderID, status)
	})
}
