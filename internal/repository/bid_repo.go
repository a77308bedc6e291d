package repository

import (
	"context"
	"errors"
	"time"

	"nanitabeyo/internal/apperr"
	"nanitabeyo/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BidRepository struct {
	db *gorm.DB
}

func NewBidRepository(db *gorm.DB) *BidRepository {
	return &BidRepository{db: db}
}

func (r *BidRepository) Create(ctx context.Context, tx *gorm.DB, bid *model.RestaurantBid) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(bid).Error
}

func (r *BidRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.RestaurantBid, error) {
	var bid model.RestaurantBid
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&bid).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NewNotFoundError("restaurant_bid", id.String())
		}
		return nil, err
	}
	return &bid, nil
}

// GetByIDForUpdate reads the bid inside tx holding a row lock until tx ends.
func (r *BidRepository) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.RestaurantBid, error) {
	var bid model.RestaurantBid
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&bid).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NewNotFoundError("restaurant_bid", id.String())
		}
		return nil, err
	}
	return &bid, nil
}

func (r *BidRepository) ListByRestaurant(ctx context.Context, restaurantID uuid.UUID, page, pageSize int) ([]*model.RestaurantBid, int64, error) {
	var bids []*model.RestaurantBid
	var total int64

	query := r.db.WithContext(ctx).Model(&model.RestaurantBid{}).Where("restaurant_id = ?", restaurantID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&bids).Error

	return bids, total, err
}

// ListUnsettled returns paid bids whose promotion window closed at or before
// endedBy and that have no settlement record yet, oldest window first.
// Settled bids drop out of the result, so a bounded batch always advances.
func (r *BidRepository) ListUnsettled(ctx context.Context, endedBy time.Time, limit int) ([]*model.RestaurantBid, error) {
	var bids []*model.RestaurantBid
	err := r.db.WithContext(ctx).
		Where("status = ? AND end_date <= ?", model.BidStatusPaid, endedBy).
		Where("NOT EXISTS (SELECT 1 FROM bid_settlements s WHERE s.bid_id = restaurant_bids.id)").
		Order("end_date ASC, id ASC").
		Limit(limit).
		Find(&bids).Error
	return bids, err
}
