package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"nanitabeyo/internal/apperr"
	"nanitabeyo/internal/config"
	"nanitabeyo/internal/model"
	"nanitabeyo/internal/repository"
	"nanitabeyo/pkg/money"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BidService owns the lifecycle of restaurant bids. It is the only writer of
// restaurant_bids; payment capture and refunds happen at the payment
// processor and only their reference ids are recorded here.
type BidService struct {
	db         *gorm.DB
	cfg        *config.Config
	catalog    Catalog
	guard      *repository.Guard
	bidRepo    *repository.BidRepository
	outboxRepo *repository.OutboxRepository
	now        func() time.Time
}

func NewBidService(db *gorm.DB, catalog Catalog, cfg *config.Config) *BidService {
	return &BidService{
		db:         db,
		cfg:        cfg,
		catalog:    catalog,
		guard:      repository.NewGuard(db),
		bidRepo:    repository.NewBidRepository(db),
		outboxRepo: repository.NewOutboxRepository(db),
		now:        time.Now,
	}
}

type PlaceBidRequest struct {
	RestaurantID uuid.UUID
	UserID       uuid.UUID
	AmountCents  int64
	CurrencyCode string
	StartDate    time.Time
	EndDate      time.Time
}

func (req *PlaceBidRequest) validate() (string, error) {
	if req.AmountCents <= 0 {
		return "", apperr.NewValidationError("amount_cents", "must be greater than 0")
	}
	if !req.EndDate.After(req.StartDate) {
		return "", apperr.NewValidationError("end_date", "must be after start_date")
	}
	currency, ok := money.NormalizeCurrency(req.CurrencyCode)
	if !ok {
		return "", apperr.NewValidationError("currency_code", fmt.Sprintf("unsupported currency %q", req.CurrencyCode))
	}
	if req.RestaurantID == uuid.Nil {
		return "", apperr.NewValidationError("restaurant_id", "is required")
	}
	if req.UserID == uuid.Nil {
		return "", apperr.NewValidationError("user_id", "is required")
	}
	return currency, nil
}

// PlaceBid records a new bid in status pending at version 0.
func (s *BidService) PlaceBid(ctx context.Context, req *PlaceBidRequest) (*model.RestaurantBid, error) {
	currency, err := req.validate()
	if err != nil {
		return nil, err
	}

	if _, err := s.catalog.GetRestaurant(ctx, req.RestaurantID); err != nil {
		return nil, fmt.Errorf("place bid: %w", err)
	}
	if _, err := s.catalog.GetUser(ctx, req.UserID); err != nil {
		return nil, fmt.Errorf("place bid: %w", err)
	}

	bid := &model.RestaurantBid{
		ID:           uuid.New(),
		RestaurantID: req.RestaurantID,
		UserID:       req.UserID,
		AmountCents:  req.AmountCents,
		CurrencyCode: currency,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		Status:       model.BidStatusPending,
		Version:      0,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.bidRepo.Create(ctx, tx, bid); err != nil {
			return fmt.Errorf("create bid: %w", err)
		}
		return s.enqueue(ctx, tx, bid, model.EventBidPlaced)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[BidService] bid placed: bidID=%s, restaurantID=%s, amount=%d %s",
		bid.ID, bid.RestaurantID, bid.AmountCents, bid.CurrencyCode)
	return bid, nil
}

// ConfirmPayment moves a bid from pending to paid once the processor has
// captured paymentIntentID.
func (s *BidService) ConfirmPayment(ctx context.Context, bidID uuid.UUID, paymentIntentID string, expectedVersion int) (*model.RestaurantBid, error) {
	paymentIntentID = strings.TrimSpace(paymentIntentID)
	if paymentIntentID == "" {
		return nil, apperr.NewValidationError("payment_intent_id", "is required")
	}

	return s.transition(ctx, bidID, expectedVersion, model.BidStatusPaid, model.EventBidPaid, func(bid *model.RestaurantBid, fields map[string]interface{}) {
		bid.PaymentIntentID = &paymentIntentID
		fields["payment_intent_id"] = paymentIntentID
	})
}

// RefundBid moves a paid bid to refunded. refunded is terminal.
func (s *BidService) RefundBid(ctx context.Context, bidID uuid.UUID, refundID string, expectedVersion int) (*model.RestaurantBid, error) {
	refundID = strings.TrimSpace(refundID)
	if refundID == "" {
		return nil, apperr.NewValidationError("refund_id", "is required")
	}

	return s.transition(ctx, bidID, expectedVersion, model.BidStatusRefunded, model.EventBidRefunded, func(bid *model.RestaurantBid, fields map[string]interface{}) {
		bid.RefundID = &refundID
		fields["refund_id"] = refundID
	})
}

// transition checks, in order: existence, the caller's version against the
// stored one, the status edge, then performs the guarded write. The guarded
// write still catches writers that slip in after the read.
func (s *BidService) transition(
	ctx context.Context,
	bidID uuid.UUID,
	expectedVersion int,
	target model.BidStatus,
	event string,
	mutate func(bid *model.RestaurantBid, fields map[string]interface{}),
) (*model.RestaurantBid, error) {
	bid, err := s.bidRepo.GetByID(ctx, bidID)
	if err != nil {
		return nil, err
	}

	if bid.Version != expectedVersion {
		return nil, &apperr.ConflictError{Entity: bid.TableName(), ID: bid.ID.String(), ExpectedVersion: expectedVersion}
	}

	if !bid.Status.CanTransitionTo(target) {
		return nil, &apperr.TransitionError{
			Entity: bid.TableName(),
			ID:     bid.ID.String(),
			From:   string(bid.Status),
			To:     string(target),
		}
	}

	from := bid.Status
	fields := map[string]interface{}{"status": target}
	mutate(bid, fields)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.guard.Update(ctx, tx, bid, expectedVersion, fields); err != nil {
			return err
		}
		bid.Status = target
		return s.enqueue(ctx, tx, bid, event)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[BidService] bid %s: %s -> %s, version=%d", bid.ID, from, target, bid.Version)
	return bid, nil
}

func (s *BidService) enqueue(ctx context.Context, tx *gorm.DB, bid *model.RestaurantBid, event string) error {
	msg, err := model.NewOutboxMessage(s.cfg.Kafka.Topic.BidEvent, bid.ID.String(), model.LifecycleEvent{
		Type:        event,
		BidID:       bid.ID.String(),
		Status:      string(bid.Status),
		AmountCents: bid.AmountCents,
		Currency:    bid.CurrencyCode,
		Version:     bid.Version,
		OccurredAt:  s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("build outbox message: %w", err)
	}
	if err := s.outboxRepo.Create(ctx, tx, msg); err != nil {
		return fmt.Errorf("write outbox message: %w", err)
	}
	return nil
}

func (s *BidService) GetBid(ctx context.Context, bidID uuid.UUID) (*model.RestaurantBid, error) {
	return s.bidRepo.GetByID(ctx, bidID)
}

func (s *BidService) ListRestaurantBids(ctx context.Context, restaurantID uuid.UUID, page, pageSize int) ([]*model.RestaurantBid, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.bidRepo.ListByRestaurant(ctx, restaurantID, page, pageSize)
}
