package schema

import (
	"crypto/sha256"
	"encoding/hex"
)

// Envelope is the unit that travels over the bus: a routing key plus a
// serialized JSON body. Consumers must tolerate unknown extra fields in the
// body and fail closed on missing required ones.
type Envelope struct {
	RoutingKey string            `json:"routing_key"`
	Body       []byte            `json:"body"`
	Headers    map[string]string `json:"headers,omitempty"`
}

// MessageID derives the deterministic fingerprint of an envelope from its
// routing key and raw body. Redelivery of byte-identical content always maps
// to the same fingerprint regardless of transport-assigned identifiers.
func MessageID(routingKey string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(routingKey))
	h.Write([]byte(":"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// Event types stored in the outbox and their routing keys on the bus.
const (
	EventOrderCreated     = "order_created"
	EventPaymentProcessed = "payment_processed"
	EventPaymentFailed    = "payment_failed"
	EventNotificationSent = "notification_sent"
)

const (
	RoutingKeyOrderCreated     = "order.created"
	RoutingKeyPaymentProcessed = "payment.processed"
	RoutingKeyPaymentFailed    = "payment.failed"
	RoutingKeyNotificationSent = "notification.sent"

	// RoutingKeyGeneric is the fallback for event types without a mapping.
	RoutingKeyGeneric = "events.generic"
)

var routingKeys = map[string]string{
	EventOrderCreated:     RoutingKeyOrderCreated,
	EventPaymentProcessed: RoutingKeyPaymentProcessed,
	EventPaymentFailed:    RoutingKeyPaymentFailed,
	EventNotificationSent: RoutingKeyNotificationSent,
}

// RoutingKeyFor maps an outbox event type to its routing key. Unknown types
// fall back to the generic key.
func RoutingKeyFor(eventType string) string {
	if key, ok := routingKeys[eventType]; ok {
		return key
	}
	return RoutingKeyGeneric
}

// EventTypeFor maps a routing key back to its event type. Unknown keys are
// returned unchanged so inbox rows always carry something identifiable.
func EventTypeFor(routingKey string) string {
	for eventType, key := range routingKeys {
		if key == routingKey {
			return eventType
		}
	}
	return routingKey
}
