package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BidStatus is the closed set of states a RestaurantBid can be in.
type BidStatus string

const (
	BidStatusPending  BidStatus = "pending"
	BidStatusPaid     BidStatus = "paid"
	BidStatusRefunded BidStatus = "refunded"
)

// bidTransitions lists every permitted edge; anything missing is rejected.
var bidTransitions = map[BidStatus][]BidStatus{
	BidStatusPending: {BidStatusPaid},
	BidStatusPaid:    {BidStatusRefunded},
}

func (s BidStatus) Valid() bool {
	switch s {
	case BidStatusPending, BidStatusPaid, BidStatusRefunded:
		return true
	}
	return false
}

func (s BidStatus) CanTransitionTo(target BidStatus) bool {
	for _, allowed := range bidTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

func (s BidStatus) IsTerminal() bool {
	return s.Valid() && len(bidTransitions[s]) == 0
}

// RestaurantBid is a restaurant's paid commitment to have its dishes promoted
// during [StartDate, EndDate). Only the bid service writes to this table.
type RestaurantBid struct {
	ID              uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	RestaurantID    uuid.UUID `gorm:"type:char(36);index;not null" json:"restaurant_id"`
	UserID          uuid.UUID `gorm:"type:char(36);index;not null" json:"user_id"` // bidder
	PaymentIntentID *string   `gorm:"type:varchar(128)" json:"payment_intent_id"`
	AmountCents     int64     `gorm:"not null" json:"amount_cents"`
	CurrencyCode    string    `gorm:"type:varchar(3);not null" json:"currency_code"`
	StartDate       time.Time `gorm:"not null" json:"start_date"`
	EndDate         time.Time `gorm:"index;not null" json:"end_date"`
	Status          BidStatus `gorm:"type:varchar(16);index;not null" json:"status"`
	RefundID        *string   `gorm:"type:varchar(128)" json:"refund_id"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	Version         int       `gorm:"not null;default:0" json:"version"`
}

func (RestaurantBid) TableName() string {
	return "restaurant_bids"
}

func (b *RestaurantBid) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

func (b *RestaurantBid) GetID() uuid.UUID { return b.ID }

func (b *RestaurantBid) GetVersion() int { return b.Version }

func (b *RestaurantBid) SetVersion(v int) { b.Version = v }

func (b *RestaurantBid) SetUpdatedAt(t time.Time) { b.UpdatedAt = t }
