package notifications

import (
	"context"
	"log"
)

// Sender delivers a customer-facing message. The shop only needs order
// confirmations, so the interface stays small.
type Sender interface {
	Send(ctx context.Context, email, message string) error
}

// LogSender writes the notification to the process log. It stands in for a
// real mail or SMS provider.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, email, message string) error {
	log.Printf("Notifying %s: %s", email, message)
	return nil
}
