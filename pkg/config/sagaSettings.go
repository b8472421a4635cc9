package config

import "time"

// Payment failure modes for the orchestrated saga when the payment
// collaborator is unreachable (not declined, unreachable).
const (
	FailOpen   = "fail-open"   // proceed optimistically, log the degradation
	FailClosed = "fail-closed" // compensate and reject the order
)

// SagaSettings configures the orchestrated saga coordinator.
type SagaSettings struct {
	PaymentURL         string        `mapstructure:"payment_url"`
	NotificationURL    string        `mapstructure:"notification_url"`
	CallTimeout        time.Duration `mapstructure:"call_timeout"`
	PaymentFailureMode string        `mapstructure:"payment_failure_mode" validate:"omitempty,oneof=fail-open fail-closed"`
}
