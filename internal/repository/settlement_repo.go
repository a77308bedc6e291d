package repository

import (
	"context"
	"errors"

	"nanitabeyo/internal/apperr"
	"nanitabeyo/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SettlementRepository struct {
	db *gorm.DB
}

func NewSettlementRepository(db *gorm.DB) *SettlementRepository {
	return &SettlementRepository{db: db}
}

func (r *SettlementRepository) Create(ctx context.Context, tx *gorm.DB, settlement *model.BidSettlement) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(settlement).Error
}

// Get returns the settlement record of bidID, or a not-found error when the
// bid has not been settled. tx may be nil.
func (r *SettlementRepository) Get(ctx context.Context, tx *gorm.DB, bidID uuid.UUID) (*model.BidSettlement, error) {
	if tx == nil {
		tx = r.db
	}
	var settlement model.BidSettlement
	err := tx.WithContext(ctx).Where("bid_id = ?", bidID).First(&settlement).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NewNotFoundError("bid_settlement", bidID.String())
		}
		return nil, err
	}
	return &settlement, nil
}
