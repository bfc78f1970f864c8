package model

import "time"

// DeliveryStatus represents valid per-recipient delivery statuses
type DeliveryStatus string

const (
	DeliverySent    DeliveryStatus = "sent"
	DeliveryPending DeliveryStatus = "pending"
	DeliveryFailed  DeliveryStatus = "failed"
)

// Well-known error codes recorded on failed outcomes.
const (
	ErrCodeTimeout          = "TIMEOUT"
	ErrCodeTransportFailure = "TRANSPORT_FAILURE"
)

// DeliveryOutcome is the terminal per-recipient result of one send attempt.
// Exactly one is recorded per dispatched message; immutable once recorded.
type DeliveryOutcome struct {
	CampaignID        string         `db:"campaign_id" json:"campaign_id"`
	MessageIndex      int            `db:"message_index" json:"message_index"` // submission order
	Phone             string         `db:"phone" json:"phone"`
	Status            DeliveryStatus `db:"status" json:"status"`
	ProviderMessageID string         `db:"provider_message_id" json:"provider_message_id,omitempty"`
	ErrorCode         string         `db:"error_code" json:"error_code,omitempty"`
	ErrorMessage      string         `db:"error_message" json:"error_message,omitempty"`
	OccurredAt        time.Time      `db:"occurred_at" json:"occurred_at"`
}
