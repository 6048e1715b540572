package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Topic the billing service publishes subscription lifecycle events to.
const TopicSubscriptionEvents = "billing.subscription.events"

// Event types.
const (
	SubscriptionActivated = "subscription.activated"
	SubscriptionCancelled = "subscription.cancelled"
	SubscriptionExpired   = "subscription.expired"
	PaymentFailed         = "payment.failed"
)

// Source identifies this service in event envelopes.
const Source = "service-billing"

// Envelope is the CloudEvents-style wrapper around event payloads.
type Envelope struct {
	ID     string          `json:"id"`
	Source string          `json:"source"`
	Type   string          `json:"type"`
	Time   time.Time       `json:"time"`
	Data   json.RawMessage `json:"data"`
}

// NewEnvelope wraps a payload in an envelope with a fresh event id.
func NewEnvelope(source, eventType string, data interface{}) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		ID:     uuid.New().String(),
		Source: source,
		Type:   eventType,
		Time:   time.Now().UTC(),
		Data:   raw,
	}, nil
}

// ParseData unmarshals the envelope payload into v.
func (e Envelope) ParseData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// SubscriptionEvent is the payload for subscription lifecycle events.
type SubscriptionEvent struct {
	SubscriptionID uuid.UUID `json:"subscription_id"`
	UserID         uuid.UUID `json:"user_id"`
	PlanType       string    `json:"plan_type"`
	Status         string    `json:"status"`
	Amount         int64     `json:"amount"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// PaymentFailedEvent is the payload for failed gateway interactions.
type PaymentFailedEvent struct {
	SubscriptionID uuid.UUID `json:"subscription_id"`
	UserID         uuid.UUID `json:"user_id"`
	OrderID        string    `json:"order_id"`
	Reason         string    `json:"reason"`
	OccurredAt     time.Time `json:"occurred_at"`
}
