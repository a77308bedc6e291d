package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PayoutStatus string

const (
	PayoutStatusPending  PayoutStatus = "pending"
	PayoutStatusPaid     PayoutStatus = "paid"
	PayoutStatusRefunded PayoutStatus = "refunded"
)

var payoutTransitions = map[PayoutStatus][]PayoutStatus{
	PayoutStatusPending: {PayoutStatusPaid},
	PayoutStatusPaid:    {PayoutStatusRefunded},
}

func (s PayoutStatus) Valid() bool {
	switch s {
	case PayoutStatusPending, PayoutStatusPaid, PayoutStatusRefunded:
		return true
	}
	return false
}

func (s PayoutStatus) CanTransitionTo(target PayoutStatus) bool {
	for _, allowed := range payoutTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

func (s PayoutStatus) IsTerminal() bool {
	return s.Valid() && len(payoutTransitions[s]) == 0
}

// Payout is money owed to the contributor of a dish media, attributed to one bid.
//
// Ledger rules:
//  1. append-only, rows are never deleted
//  2. at most one row per (bid_id, dish_media_id)
//  3. transfer_id is the idempotency key of the downstream payment rail
type Payout struct {
	ID           uuid.UUID    `gorm:"type:char(36);primaryKey" json:"id"`
	BidID        uuid.UUID    `gorm:"type:char(36);not null;uniqueIndex:uk_payout_bid_media,priority:1" json:"bid_id"`
	TransferID   string       `gorm:"type:varchar(64);uniqueIndex;not null" json:"transfer_id"`
	DishMediaID  uuid.UUID    `gorm:"type:char(36);not null;uniqueIndex:uk_payout_bid_media,priority:2" json:"dish_media_id"`
	AmountCents  int64        `gorm:"not null" json:"amount_cents"`
	CurrencyCode *string      `gorm:"type:varchar(3)" json:"currency_code"`
	Status       PayoutStatus `gorm:"type:varchar(16);index;not null" json:"status"`
	CreatedAt    time.Time    `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
	Version      int          `gorm:"not null;default:0" json:"version"`
}

func (Payout) TableName() string {
	return "payouts"
}

func (p *Payout) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (p *Payout) GetID() uuid.UUID { return p.ID }

func (p *Payout) GetVersion() int { return p.Version }

func (p *Payout) SetVersion(v int) { p.Version = v }

func (p *Payout) SetUpdatedAt(t time.Time) { p.UpdatedAt = t }
