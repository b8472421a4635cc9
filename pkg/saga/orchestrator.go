package saga

import (
	"context"
	"errors"
	"log"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zoff-tech/go-shop-saga/pkg/config"
	"github.com/zoff-tech/go-shop-saga/pkg/orders"
	"github.com/zoff-tech/go-shop-saga/pkg/store"
)

// ErrPaymentDeclined is returned when the payment collaborator reports a
// business-level decline. The order has been compensated to cancelled.
var ErrPaymentDeclined = errors.New("payment declined")

// paymentCaller and notificationCaller are the collaborator seams the
// orchestrator depends on.
type paymentCaller interface {
	Process(ctx context.Context, orderID int64, amount decimal.Decimal, customerEmail string) (PaymentResponse, error)
}

type notificationCaller interface {
	Send(ctx context.Context, orderID int64, email string) (NotificationResponse, error)
}

// Orchestrator drives the order placement saga synchronously: create the
// order, charge the payment service, notify the customer, confirm. A decline
// compensates the order to cancelled. An unreachable payment service is
// handled per the configured failure mode.
type Orchestrator struct {
	orders        *orders.Service
	payments      paymentCaller
	notifications notificationCaller
	failureMode   string
	tracer        trace.Tracer
}

func NewOrchestrator(orderSvc *orders.Service, payments paymentCaller, notifications notificationCaller, settings config.SagaSettings) *Orchestrator {
	mode := settings.PaymentFailureMode
	if mode == "" {
		mode = config.FailOpen
	}
	return &Orchestrator{
		orders:        orderSvc,
		payments:      payments,
		notifications: notifications,
		failureMode:   mode,
		tracer:        otel.Tracer("go-shop-saga"),
	}
}

// PlaceOrder runs the saga and returns the order in its final status.
func (o *Orchestrator) PlaceOrder(ctx context.Context, req orders.CreateOrderRequest) (*store.Order, error) {
	ctx, span := o.tracer.Start(ctx, "PlaceOrderSaga")
	defer span.End()

	order, err := o.orders.CreateOrder(ctx, req)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int64("order.id", order.ID))

	payment, err := o.payments.Process(ctx, order.ID, order.TotalAmount, order.CustomerEmail)
	switch {
	case err != nil:
		// Transport failure: the charge outcome is unknown.
		if o.failureMode == config.FailClosed {
			log.Printf("Payment service unreachable for order %d, cancelling: %v", order.ID, err)
			return nil, o.compensate(ctx, order, err)
		}
		log.Printf("Payment service unreachable for order %d, proceeding without confirmation of charge: %v", order.ID, err)
	case !payment.Success:
		log.Printf("Payment declined for order %d, cancelling", order.ID)
		return nil, o.compensate(ctx, order, ErrPaymentDeclined)
	}

	// Notification is best effort and never fails the saga.
	if notification, err := o.notifications.Send(ctx, order.ID, order.CustomerEmail); err != nil {
		log.Printf("Notification call failed for order %d: %v", order.ID, err)
	} else if !notification.Success {
		log.Printf("Notification service reported failure for order %d", order.ID)
	}

	if err := o.orders.Confirm(ctx, order.ID); err != nil {
		return nil, err
	}
	order.Status = store.OrderConfirmed
	return order, nil
}

func (o *Orchestrator) compensate(ctx context.Context, order *store.Order, cause error) error {
	if err := o.orders.Cancel(ctx, order.ID); err != nil {
		log.Printf("Compensation failed for order %d: %v", order.ID, err)
		return errors.Join(cause, err)
	}
	return cause
}
