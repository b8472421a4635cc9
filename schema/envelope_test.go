package schema

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMessageID_Deterministic(t *testing.T) {
	body := []byte(`{"order_id":7,"customer_email":"a@x.com","total_amount":"1000.0"}`)

	first := MessageID("order.created", body)
	second := MessageID("order.created", body)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
}

func TestMessageID_DependsOnRoutingKeyAndBody(t *testing.T) {
	body := []byte(`{"order_id":7}`)

	assert.NotEqual(t, MessageID("order.created", body), MessageID("payment.processed", body))
	assert.NotEqual(t, MessageID("order.created", body), MessageID("order.created", []byte(`{"order_id":8}`)))
}

func TestRoutingKeyFor(t *testing.T) {
	assert.Equal(t, "order.created", RoutingKeyFor(EventOrderCreated))
	assert.Equal(t, "payment.processed", RoutingKeyFor(EventPaymentProcessed))
	assert.Equal(t, "payment.failed", RoutingKeyFor(EventPaymentFailed))
	assert.Equal(t, "notification.sent", RoutingKeyFor(EventNotificationSent))
	assert.Equal(t, "events.generic", RoutingKeyFor("something_else"))
}

func TestDecodeOrderCreated(t *testing.T) {
	body := []byte(`{"order_id":7,"customer_email":"a@x.com","total_amount":"1000.0","future_field":true}`)

	ev, err := DecodeOrderCreated(body)
	assert.NoError(t, err)
	assert.Equal(t, int64(7), ev.OrderID)
	assert.Equal(t, "a@x.com", ev.CustomerEmail)
	assert.True(t, ev.TotalAmount.Equal(decimal.RequireFromString("1000.0")))
}

func TestDecodeOrderCreated_MissingRequiredField(t *testing.T) {
	_, err := DecodeOrderCreated([]byte(`{"customer_email":"a@x.com","total_amount":"10"}`))
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = DecodeOrderCreated([]byte(`{"order_id":7,"total_amount":"10"}`))
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = DecodeOrderCreated([]byte(`{"order_id":7,"customer_email":"a@x.com"}`))
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestDecodeOrderCreated_ZeroAmountIsValid(t *testing.T) {
	ev, err := DecodeOrderCreated([]byte(`{"order_id":7,"customer_email":"a@x.com","total_amount":"0"}`))
	assert.NoError(t, err)
	assert.True(t, ev.TotalAmount.IsZero())
}

func TestDecodePaymentProcessed(t *testing.T) {
	body := []byte(`{"order_id":7,"payment_id":"pay_7_1","amount":"1000.0","customer_email":"a@x.com"}`)

	ev, err := DecodePaymentProcessed(body)
	assert.NoError(t, err)
	assert.Equal(t, "pay_7_1", ev.PaymentID)
	assert.True(t, ev.Amount.Equal(decimal.RequireFromString("1000.0")))
}

func TestDecodePaymentProcessed_MissingRequiredField(t *testing.T) {
	_, err := DecodePaymentProcessed([]byte(`{"order_id":7,"amount":"1000.0"}`))
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = DecodePaymentProcessed([]byte(`{"order_id":7,"payment_id":"pay_7_1"}`))
	assert.ErrorIs(t, err, ErrMissingField)
}
