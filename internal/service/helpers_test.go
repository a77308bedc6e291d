package service

import (
	"encoding/json"
	"io"
	"log"
	"testing"
	"time"

	"nanitabeyo/internal/config"
	"nanitabeyo/internal/infrastructure/database/dbtest"
	"nanitabeyo/internal/model"
	"nanitabeyo/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	log.SetOutput(io.Discard)
}

type fixture struct {
	db         *gorm.DB
	cfg        *config.Config
	bids       *BidService
	payouts    *PayoutService
	restaurant *model.Restaurant
	owner      *model.User
	dish       *model.Dish
}

func testConfig() *config.Config {
	return &config.Config{
		Kafka: config.KafkaConfig{
			Topic: config.KafkaTopicConfig{BidEvent: "test.bid", PayoutEvent: "test.payout"},
		},
		Business: config.BusinessConfig{ContributorShareBps: 3000, MaxRetryCount: 3},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := dbtest.OpenSQLiteMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	cfg := testConfig()
	catalog := repository.NewCatalogRepository(db)
	allocator, err := NewPoolAllocator(cfg.Business.ContributorShareBps)
	require.NoError(t, err)

	f := &fixture{
		db:         db,
		cfg:        cfg,
		bids:       NewBidService(db, catalog, cfg),
		payouts:    NewPayoutService(db, catalog, allocator, cfg),
		restaurant: &model.Restaurant{ID: uuid.New(), Name: "Sushi Taro"},
		owner:      &model.User{ID: uuid.New(), DisplayName: "owner"},
	}
	f.dish = &model.Dish{ID: uuid.New(), RestaurantID: f.restaurant.ID, Name: "omakase"}
	require.NoError(t, db.Create(f.restaurant).Error)
	require.NoError(t, db.Create(f.owner).Error)
	require.NoError(t, db.Create(f.dish).Error)
	return f
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func (f *fixture) placeRequest() *PlaceBidRequest {
	return &PlaceBidRequest{
		RestaurantID: f.restaurant.ID,
		UserID:       f.owner.ID,
		AmountCents:  5000,
		CurrencyCode: "USD",
		StartDate:    day(2024, time.January, 1),
		EndDate:      day(2024, time.January, 31),
	}
}

// addMedia creates a dish media item of the fixture restaurant with likes.
func (f *fixture) addMedia(t *testing.T, at time.Time, likes int) *model.DishMedia {
	t.Helper()
	m := &model.DishMedia{ID: uuid.New(), DishID: f.dish.ID, UserID: uuid.New(), MediaPath: "media/" + uuid.NewString() + ".jpg", CreatedAt: at}
	require.NoError(t, f.db.Create(m).Error)
	for i := 0; i < likes; i++ {
		require.NoError(t, f.db.Create(&model.DishMediaLike{ID: uuid.New(), DishMediaID: m.ID, UserID: uuid.New()}).Error)
	}
	return m
}

func (f *fixture) countRows(t *testing.T, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Table(table).Count(&n).Error)
	return n
}

func (f *fixture) outboxTypes(t *testing.T, topic string) []string {
	t.Helper()
	var msgs []*model.OutboxMessage
	require.NoError(t, f.db.Where("topic = ?", topic).Order("id ASC").Find(&msgs).Error)
	types := make([]string, 0, len(msgs))
	for _, m := range msgs {
		var ev model.LifecycleEvent
		require.NoError(t, json.Unmarshal(m.Payload, &ev))
		types = append(types, ev.Type)
	}
	return types
}
