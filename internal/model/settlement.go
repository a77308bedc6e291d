package model

import (
	"time"

	"github.com/google/uuid"
)

// BidSettlement records that a bid's contributor pool has been split. It is
// written in the same transaction as the payouts it summarises, so a bid is
// settled at most once and the settlement job never revisits it.
type BidSettlement struct {
	BidID       uuid.UUID `gorm:"type:char(36);primaryKey" json:"bid_id"`
	PoolCents   int64     `gorm:"not null" json:"pool_cents"`
	PaidCents   int64     `gorm:"not null" json:"paid_cents"` // sum of all payouts of the bid
	PayoutCount int       `gorm:"not null" json:"payout_count"`
	SettledAt   time.Time `gorm:"not null" json:"settled_at"`
}

func (BidSettlement) TableName() string {
	return "bid_settlements"
}
