package store

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle status of an order. Orders are created pending
// and move to confirmed or cancelled; in choreography mode a failed payment
// leaves the order pending until reconciliation.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderCancelled OrderStatus = "cancelled"
)

// Order is the business entity owned by the order service. TotalAmount is an
// exact decimal; it is persisted as text.
type Order struct {
	ID            int64           `json:"id"`
	CustomerEmail string          `json:"customer_email"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Status        OrderStatus     `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

// PaymentStatus is the terminal status of a payment record.
type PaymentStatus string

const (
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Payment is the business entity owned by the payment service. PaymentID is
// the gateway reference and is unique per charge.
type Payment struct {
	ID            int64           `json:"id"`
	OrderID       int64           `json:"order_id"`
	PaymentID     string          `json:"payment_id"`
	Amount        decimal.Decimal `json:"amount"`
	Status        PaymentStatus   `json:"status"`
	CustomerEmail string          `json:"customer_email"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Notification records a customer notification sent by the notification
// service.
type Notification struct {
	ID      int64     `json:"id"`
	OrderID int64     `json:"order_id"`
	Email   string    `json:"email"`
	SentAt  time.Time `json:"sent_at"`
}
