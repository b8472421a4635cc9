package schema

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrMissingField is wrapped by the decode helpers when a required field is
// absent from an event body.
var ErrMissingField = errors.New("missing required field")

// OrderCreated is emitted by the order service when an order row is written.
// TotalAmount is an exact decimal; it serializes as a JSON string.
type OrderCreated struct {
	OrderID       int64           `json:"order_id"`
	CustomerEmail string          `json:"customer_email"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

// PaymentProcessed is emitted by the payment service after a successful charge.
type PaymentProcessed struct {
	OrderID       int64           `json:"order_id"`
	PaymentID     string          `json:"payment_id"`
	Amount        decimal.Decimal `json:"amount"`
	CustomerEmail string          `json:"customer_email"`
}

// PaymentFailed is emitted by the payment service when a charge is declined.
type PaymentFailed struct {
	OrderID int64  `json:"order_id"`
	Reason  string `json:"reason"`
}

// NotificationSent is emitted by the notification service once a customer
// has been notified.
type NotificationSent struct {
	OrderID int64  `json:"order_id"`
	Email   string `json:"email"`
}

// DecodeOrderCreated parses an order_created body, failing closed on missing
// required fields. Unknown extra fields are ignored. The amount is checked
// for presence via a pointer so a literal zero stays valid.
func DecodeOrderCreated(body []byte) (OrderCreated, error) {
	var raw struct {
		OrderID       int64            `json:"order_id"`
		CustomerEmail string           `json:"customer_email"`
		TotalAmount   *decimal.Decimal `json:"total_amount"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return OrderCreated{}, fmt.Errorf("decode order_created: %w", err)
	}
	if raw.OrderID == 0 {
		return OrderCreated{}, fmt.Errorf("order_created: order_id: %w", ErrMissingField)
	}
	if raw.CustomerEmail == "" {
		return OrderCreated{}, fmt.Errorf("order_created: customer_email: %w", ErrMissingField)
	}
	if raw.TotalAmount == nil {
		return OrderCreated{}, fmt.Errorf("order_created: total_amount: %w", ErrMissingField)
	}
	return OrderCreated{
		OrderID:       raw.OrderID,
		CustomerEmail: raw.CustomerEmail,
		TotalAmount:   *raw.TotalAmount,
	}, nil
}

// DecodePaymentProcessed parses a payment_processed body, failing closed on
// missing required fields.
func DecodePaymentProcessed(body []byte) (PaymentProcessed, error) {
	var raw struct {
		OrderID       int64            `json:"order_id"`
		PaymentID     string           `json:"payment_id"`
		Amount        *decimal.Decimal `json:"amount"`
		CustomerEmail string           `json:"customer_email"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return PaymentProcessed{}, fmt.Errorf("decode payment_processed: %w", err)
	}
	if raw.OrderID == 0 {
		return PaymentProcessed{}, fmt.Errorf("payment_processed: order_id: %w", ErrMissingField)
	}
	if raw.PaymentID == "" {
		return PaymentProcessed{}, fmt.Errorf("payment_processed: payment_id: %w", ErrMissingField)
	}
	if raw.Amount == nil {
		return PaymentProcessed{}, fmt.Errorf("payment_processed: amount: %w", ErrMissingField)
	}
	return PaymentProcessed{
		OrderID:       raw.OrderID,
		PaymentID:     raw.PaymentID,
		Amount:        *raw.Amount,
		CustomerEmail: raw.CustomerEmail,
	}, nil
}
