package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

const (
	OutboxStatusPending = "PENDING"
	OutboxStatusSent    = "SENT"
	OutboxStatusFailed  = "FAILED"
)

// Event types carried in the outbox payload.
const (
	EventBidPlaced      = "bid.placed"
	EventBidPaid        = "bid.paid"
	EventBidRefunded    = "bid.refunded"
	EventPayoutCreated  = "payout.created"
	EventPayoutPaid     = "payout.paid"
	EventPayoutRefunded = "payout.refunded"
)

// OutboxMessage is written in the same transaction as the state change it
// describes and relayed to Kafka by job.OutboxSender.
type OutboxMessage struct {
	ID         int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	MessageKey string         `gorm:"type:varchar(64);not null" json:"message_key"`
	Topic      string         `gorm:"type:varchar(64);not null" json:"topic"`
	Payload    datatypes.JSON `gorm:"not null" json:"payload"`
	Status     string         `gorm:"type:varchar(20);index;not null;default:PENDING" json:"status"`
	RetryCount int            `gorm:"not null;default:0" json:"retry_count"`
	CreatedAt  time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (OutboxMessage) TableName() string {
	return "outbox_message"
}

// LifecycleEvent is the payload published for every bid and payout change.
type LifecycleEvent struct {
	Type        string    `json:"type"`
	BidID       string    `json:"bid_id"`
	PayoutID    string    `json:"payout_id,omitempty"`
	DishMediaID string    `json:"dish_media_id,omitempty"`
	TransferID  string    `json:"transfer_id,omitempty"`
	Status      string    `json:"status"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency,omitempty"`
	Version     int       `json:"version"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func NewOutboxMessage(topic, key string, event LifecycleEvent) (*OutboxMessage, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return &OutboxMessage{
		MessageKey: key,
		Topic:      topic,
		Payload:    datatypes.JSON(payload),
		Status:     OutboxStatusPending,
	}, nil
}
