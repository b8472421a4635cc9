package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoff-tech/go-shop-saga/pkg/store"
	"github.com/zoff-tech/go-shop-saga/pkg/store/storetest"
	"github.com/zoff-tech/go-shop-saga/schema"
)

func phoneAndLaptop() []Item {
	return []Item{
		{Name: "Phone", Price: decimal.NewFromInt(500), Quantity: 2},
		{Name: "Laptop", Price: decimal.NewFromInt(1500), Quantity: 1},
	}
}

func TestCreateOrder_WritesOrderAndOutboxTogether(t *testing.T) {
	st := storetest.New()
	svc := NewService(st)

	order, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		CustomerEmail: "alice@example.com",
		Items:         phoneAndLaptop(),
	})
	require.NoError(t, err)

	assert.Equal(t, store.OrderPending, order.Status)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(2500)), "got %s", order.TotalAmount)

	outbox := st.Outbox()
	require.Len(t, outbox, 1)
	assert.Equal(t, schema.EventOrderCreated, outbox[0].EventType)
	assert.Equal(t, schema.RoutingKeyOrderCreated, outbox[0].RoutingKey)
	assert.Equal(t, store.StatusPending, outbox[0].Status)

	ev, err := schema.DecodeOrderCreated(outbox[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, order.ID, ev.OrderID)
	assert.Equal(t, "alice@example.com", ev.CustomerEmail)
	assert.True(t, ev.TotalAmount.Equal(decimal.NewFromInt(2500)))
}

func TestCreateOrder_Validation(t *testing.T) {
	svc := NewService(storetest.New())

	tests := []struct {
		name string
		req  CreateOrderRequest
	}{
		{"bad email", CreateOrderRequest{CustomerEmail: "not-an-email", Items: phoneAndLaptop()}},
		{"no items", CreateOrderRequest{CustomerEmail: "a@example.com"}},
		{"zero quantity", CreateOrderRequest{
			CustomerEmail: "a@example.com",
			Items:         []Item{{Name: "Phone", Price: decimal.NewFromInt(500), Quantity: 0}},
		}},
		{"negative price", CreateOrderRequest{
			CustomerEmail: "a@example.com",
			Items:         []Item{{Name: "Phone", Price: decimal.NewFromInt(-1), Quantity: 1}},
		}},
		{"unnamed item", CreateOrderRequest{
			CustomerEmail: "a@example.com",
			Items:         []Item{{Price: decimal.NewFromInt(1), Quantity: 1}},
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateOrder(context.Background(), tc.req)
			assert.ErrorIs(t, err, ErrInvalidOrder)
		})
	}
}

func TestCreateOrder_ExactDecimalTotal(t *testing.T) {
	svc := NewService(storetest.New())

	price, err := decimal.NewFromString("0.10")
	require.NoError(t, err)
	order, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		CustomerEmail: "a@example.com",
		Items:         []Item{{Name: "Sticker", Price: price, Quantity: 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, "0.3", order.TotalAmount.String())
}

func TestConfirmAndCancel(t *testing.T) {
	st := storetest.New()
	svc := NewService(st)

	order, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		CustomerEmail: "a@example.com",
		Items:         phoneAndLaptop(),
	})
	require.NoError(t, err)

	require.NoError(t, svc.Confirm(context.Background(), order.ID))
	got, err := svc.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, store.OrderConfirmed, got.Status)

	require.NoError(t, svc.Cancel(context.Background(), order.ID))
	got, err = svc.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, store.OrderCancelled, got.Status)

	err = svc.Confirm(context.Background(), 999)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestListOrders(t *testing.T) {
	st := storetest.New()
	svc := NewService(st)

	for i := 0; i < 3; i++ {
		_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
			CustomerEmail: "a@example.com",
			Items:         phoneAndLaptop(),
		})
		require.NoError(t, err)
	}

	all, err := svc.ListOrders(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
