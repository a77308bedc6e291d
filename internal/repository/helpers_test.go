package repository

import (
	"io"
	"log"
	"testing"
	"time"

	"nanitabeyo/internal/infrastructure/database/dbtest"
	"nanitabeyo/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	log.SetOutput(io.Discard)
}

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := dbtest.OpenSQLiteMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func seedBid(t *testing.T, db *gorm.DB, status model.BidStatus) *model.RestaurantBid {
	t.Helper()
	bid := &model.RestaurantBid{
		RestaurantID: uuid.New(),
		UserID:       uuid.New(),
		AmountCents:  5000,
		CurrencyCode: "USD",
		StartDate:    day(2024, time.January, 1),
		EndDate:      day(2024, time.January, 31),
		Status:       status,
	}
	require.NoError(t, db.Create(bid).Error)
	return bid
}

func newPayout(bidID, mediaID uuid.UUID, transferID string) *model.Payout {
	return &model.Payout{
		BidID:       bidID,
		DishMediaID: mediaID,
		TransferID:  transferID,
		AmountCents: 100,
		Status:      model.PayoutStatusPending,
	}
}
