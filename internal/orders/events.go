package orders

import (
	"encoding/json"
	"time"
)

const (
	// EventNewOrder is the realtime event name carried on the restaurant
	// channel; its data is the Order JSON.
	EventNewOrder = "new-order"

	// Journal event types.
	EventOrderReceived = "OrderReceived"
	EventStatusUpdated = "OrderStatusUpdated"
	EventAlertResolved = "AlertResolved"
)

// Envelope wraps journal events published to Kafka.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type OrderReceivedPayload struct {
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Status      Status    `json:"status"`
	AmountPence int       `json:"amount_pence"`
	CreatedAt   time.Time `json:"created_at"`
}

type StatusUpdatedPayload struct {
	OrderID  string `json:"order_id"`
	Previous Status `json:"previous"`
	Next     Status `json:"next"`
	Synced   bool   `json:"synced"` // false when the remote PATCH failed
}

type AlertResolvedPayload struct {
	OrderID    string `json:"order_id,omitempty"`
	Resolution string `json:"resolution"` // accepted | rejected | timeout
}
