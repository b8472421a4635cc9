package saga

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoff-tech/go-shop-saga/pkg/config"
	"github.com/zoff-tech/go-shop-saga/pkg/orders"
	"github.com/zoff-tech/go-shop-saga/pkg/store"
	"github.com/zoff-tech/go-shop-saga/pkg/store/storetest"
)

type stubPayments struct {
	response PaymentResponse
	err      error
	calls    int
}

func (s *stubPayments) Process(ctx context.Context, orderID int64, amount decimal.Decimal, customerEmail string) (PaymentResponse, error) {
	s.calls++
	return s.response, s.err
}

type stubNotifications struct {
	response NotificationResponse
	err      error
	calls    int
}

func (s *stubNotifications) Send(ctx context.Context, orderID int64, email string) (NotificationResponse, error) {
	s.calls++
	return s.response, s.err
}

func placeOrderRequest() orders.CreateOrderRequest {
	return orders.CreateOrderRequest{
		CustomerEmail: "alice@example.com",
		Items: []orders.Item{
			{Name: "Phone", Price: decimal.NewFromInt(500), Quantity: 1},
		},
	}
}

func newOrchestrator(st *storetest.Store, payments *stubPayments, notifications *stubNotifications, mode string) *Orchestrator {
	return NewOrchestrator(orders.NewService(st), payments, notifications, config.SagaSettings{
		PaymentFailureMode: mode,
	})
}

func TestPlaceOrder_HappyPathConfirms(t *testing.T) {
	st := storetest.New()
	payments := &stubPayments{response: PaymentResponse{Success: true, PaymentID: "pay_1_1"}}
	notifications := &stubNotifications{response: NotificationResponse{Success: true}}
	o := newOrchestrator(st, payments, notifications, "")

	order, err := o.PlaceOrder(context.Background(), placeOrderRequest())
	require.NoError(t, err)
	assert.Equal(t, store.OrderConfirmed, order.Status)
	assert.Equal(t, 1, payments.calls)
	assert.Equal(t, 1, notifications.calls)

	persisted, err := st.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, store.OrderConfirmed, persisted.Status)
}

func TestPlaceOrder_DeclineCompensates(t *testing.T) {
	st := storetest.New()
	payments := &stubPayments{response: PaymentResponse{Success: false}}
	notifications := &stubNotifications{}
	o := newOrchestrator(st, payments, notifications, "")

	_, err := o.PlaceOrder(context.Background(), placeOrderRequest())
	require.ErrorIs(t, err, ErrPaymentDeclined)
	assert.Equal(t, 0, notifications.calls, "a declined order must not notify")

	all, err := st.ListOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, store.OrderCancelled, all[0].Status)
}

func TestPlaceOrder_UnreachablePaymentFailOpen(t *testing.T) {
	st := storetest.New()
	payments := &stubPayments{err: errors.New("connection refused")}
	notifications := &stubNotifications{response: NotificationResponse{Success: true}}
	o := newOrchestrator(st, payments, notifications, config.FailOpen)

	order, err := o.PlaceOrder(context.Background(), placeOrderRequest())
	require.NoError(t, err)
	assert.Equal(t, store.OrderConfirmed, order.Status)
	assert.Equal(t, 1, notifications.calls)
}

func TestPlaceOrder_UnreachablePaymentFailClosed(t *testing.T) {
	st := storetest.New()
	transportErr := errors.New("connection refused")
	payments := &stubPayments{err: transportErr}
	notifications := &stubNotifications{}
	o := newOrchestrator(st, payments, notifications, config.FailClosed)

	_, err := o.PlaceOrder(context.Background(), placeOrderRequest())
	require.ErrorIs(t, err, transportErr)
	assert.NotErrorIs(t, err, ErrPaymentDeclined, "unreachable is not a decline")
	assert.Equal(t, 0, notifications.calls)

	all, err := st.ListOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, store.OrderCancelled, all[0].Status)
}

func TestPlaceOrder_NotificationFailureIsBestEffort(t *testing.T) {
	st := storetest.New()
	payments := &stubPayments{response: PaymentResponse{Success: true}}
	notifications := &stubNotifications{err: errors.New("notification service down")}
	o := newOrchestrator(st, payments, notifications, "")

	order, err := o.PlaceOrder(context.Background(), placeOrderRequest())
	require.NoError(t, err)
	assert.Equal(t, store.OrderConfirmed, order.Status)
}

func TestPlaceOrder_InvalidRequestNeverCallsCollaborators(t *testing.T) {
	st := storetest.New()
	payments := &stubPayments{}
	notifications := &stubNotifications{}
	o := newOrchestrator(st, payments, notifications, "")

	_, err := o.PlaceOrder(context.Background(), orders.CreateOrderRequest{CustomerEmail: "bad"})
	require.ErrorIs(t, err, orders.ErrInvalidOrder)
	assert.Equal(t, 0, payments.calls)
	assert.Equal(t, 0, notifications.calls)
}
