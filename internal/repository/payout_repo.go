package repository

import (
	"context"
	"errors"
	"strings"

	"nanitabeyo/internal/apperr"
	"nanitabeyo/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PayoutRepository struct {
	db *gorm.DB
}

func NewPayoutRepository(db *gorm.DB) *PayoutRepository {
	return &PayoutRepository{db: db}
}

// Create inserts a payout. A unique violation on (bid_id, dish_media_id) or
// transfer_id is reported as *apperr.DuplicatePayoutError.
func (r *PayoutRepository) Create(ctx context.Context, tx *gorm.DB, payout *model.Payout) error {
	if tx == nil {
		tx = r.db
	}
	err := tx.WithContext(ctx).Create(payout).Error
	if err != nil {
		if isDuplicateKey(err) {
			return &apperr.DuplicatePayoutError{
				BidID:       payout.BidID.String(),
				DishMediaID: payout.DishMediaID.String(),
			}
		}
		return err
	}
	return nil
}

func (r *PayoutRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Payout, error) {
	var payout model.Payout
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&payout).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NewNotFoundError("payout", id.String())
		}
		return nil, err
	}
	return &payout, nil
}

func (r *PayoutRepository) GetByTransferID(ctx context.Context, transferID string) (*model.Payout, error) {
	var payout model.Payout
	err := r.db.WithContext(ctx).Where("transfer_id = ?", transferID).First(&payout).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NewNotFoundError("payout", transferID)
		}
		return nil, err
	}
	return &payout, nil
}

func (r *PayoutRepository) ListByBid(ctx context.Context, bidID uuid.UUID) ([]*model.Payout, error) {
	var payouts []*model.Payout
	err := r.db.WithContext(ctx).
		Where("bid_id = ?", bidID).
		Order("created_at ASC, dish_media_id ASC").
		Find(&payouts).Error
	return payouts, err
}

// PaidOut returns the dish media that already have a payout for bidID and
// the total amount those payouts carry. tx may be nil.
func (r *PayoutRepository) PaidOut(ctx context.Context, tx *gorm.DB, bidID uuid.UUID) (map[uuid.UUID]struct{}, int64, error) {
	if tx == nil {
		tx = r.db
	}
	var rows []struct {
		DishMediaID uuid.UUID
		AmountCents int64
	}
	err := tx.WithContext(ctx).
		Model(&model.Payout{}).
		Select("dish_media_id, amount_cents").
		Where("bid_id = ?", bidID).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	set := make(map[uuid.UUID]struct{}, len(rows))
	var total int64
	for _, row := range rows {
		set[row.DishMediaID] = struct{}{}
		total += row.AmountCents
	}
	return set, total, nil
}

// isDuplicateKey recognises unique violations. TranslateError covers MySQL;
// the message check covers sqlite builds without extended error codes.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "Duplicate entry")
}
