package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"nanitabeyo/internal/apperr"
	"nanitabeyo/internal/config"
	"nanitabeyo/internal/model"
	"nanitabeyo/internal/repository"
	"nanitabeyo/pkg/idgen"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PayoutService computes and records contributor payouts for paid bids.
type PayoutService struct {
	db             *gorm.DB
	cfg            *config.Config
	catalog        Catalog
	allocator      Allocator
	guard          *repository.Guard
	bidRepo        *repository.BidRepository
	payoutRepo     *repository.PayoutRepository
	settlementRepo *repository.SettlementRepository
	outboxRepo     *repository.OutboxRepository
	now            func() time.Time
	transferNo     func() string
}

func NewPayoutService(db *gorm.DB, catalog Catalog, allocator Allocator, cfg *config.Config) *PayoutService {
	return &PayoutService{
		db:             db,
		cfg:            cfg,
		catalog:        catalog,
		allocator:      allocator,
		guard:          repository.NewGuard(db),
		bidRepo:        repository.NewBidRepository(db),
		payoutRepo:     repository.NewPayoutRepository(db),
		settlementRepo: repository.NewSettlementRepository(db),
		outboxRepo:     repository.NewOutboxRepository(db),
		now:            time.Now,
		transferNo:     idgen.GenerateTransferNo,
	}
}

type SettleResult struct {
	BidID   uuid.UUID       `json:"bid_id"`
	Created []*model.Payout `json:"created"`
	Skipped int             `json:"skipped"`
}

// Settle splits the contributor pool of a paid bid whose promotion window has
// closed into one pending payout per qualifying dish media.
//
// The bid row is locked and the payouts, their outbox events and the
// settlement record are written in one transaction. Only the part of the pool
// not already carried by existing payouts is split, across media that have no
// payout yet, so the payouts of a bid never sum to more than its pool. Once a
// settlement record exists, later calls create nothing and report the
// existing payouts as skipped.
func (s *PayoutService) Settle(ctx context.Context, bidID uuid.UUID) (*SettleResult, error) {
	bid, err := s.bidRepo.GetByID(ctx, bidID)
	if err != nil {
		return nil, err
	}
	if err := s.checkSettleable(bid); err != nil {
		return nil, err
	}

	// read before the transaction: the window is closed, so the set is final
	media, err := s.catalog.ListAdvertisedMedia(ctx, bid.RestaurantID, bid.StartDate, bid.EndDate)
	if err != nil {
		return nil, fmt.Errorf("list advertised media: %w", err)
	}

	result := &SettleResult{BidID: bid.ID}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		locked, err := s.bidRepo.GetByIDForUpdate(ctx, tx, bid.ID)
		if err != nil {
			return err
		}
		if err := s.checkSettleable(locked); err != nil {
			return err
		}

		paidOut, paidCents, err := s.payoutRepo.PaidOut(ctx, tx, locked.ID)
		if err != nil {
			return fmt.Errorf("load existing payouts: %w", err)
		}
		result.Skipped = len(paidOut)

		_, err = s.settlementRepo.Get(ctx, tx, locked.ID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return fmt.Errorf("load settlement: %w", err)
		}

		pool := s.allocator.Pool(locked.AmountCents)
		remaining := pool - paidCents
		unpaid := make([]*model.DishMedia, 0, len(media))
		for _, m := range media {
			if _, done := paidOut[m.ID]; !done {
				unpaid = append(unpaid, m)
			}
		}

		if remaining > 0 && len(unpaid) > 0 {
			allocations, err := s.allocator.Allocate(remaining, unpaid)
			if err != nil {
				return fmt.Errorf("allocate payouts: %w", err)
			}
			for _, alloc := range allocations {
				payout, err := s.createPayout(ctx, tx, locked, alloc)
				if err != nil {
					if errors.Is(err, apperr.ErrDuplicatePayout) {
						log.Printf("[PayoutService] already settled elsewhere: bidID=%s, dishMediaID=%s", locked.ID, alloc.DishMediaID)
						result.Skipped++
						continue
					}
					return err
				}
				result.Created = append(result.Created, payout)
				paidCents += payout.AmountCents
			}
		}

		return s.settlementRepo.Create(ctx, tx, &model.BidSettlement{
			BidID:       locked.ID,
			PoolCents:   pool,
			PaidCents:   paidCents,
			PayoutCount: len(paidOut) + len(result.Created),
			SettledAt:   s.now().UTC(),
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[PayoutService] settled bid %s: created=%d, skipped=%d", bid.ID, len(result.Created), result.Skipped)
	return result, nil
}

// checkSettleable requires a paid bid whose promotion window has closed.
func (s *PayoutService) checkSettleable(bid *model.RestaurantBid) error {
	if bid.Status != model.BidStatusPaid {
		return &apperr.StateError{
			Entity: bid.TableName(),
			ID:     bid.ID.String(),
			Status: string(bid.Status),
			Want:   string(model.BidStatusPaid),
		}
	}
	if s.now().Before(bid.EndDate) {
		return &apperr.StateError{
			Entity: bid.TableName(),
			ID:     bid.ID.String(),
			Status: "open until " + bid.EndDate.UTC().Format(time.RFC3339),
			Want:   "a closed promotion window",
		}
	}
	return nil
}

func (s *PayoutService) createPayout(ctx context.Context, tx *gorm.DB, bid *model.RestaurantBid, alloc Allocation) (*model.Payout, error) {
	if alloc.AmountCents <= 0 {
		return nil, apperr.NewValidationError("amount_cents", "payout amount must be greater than 0")
	}

	currency := bid.CurrencyCode
	payout := &model.Payout{
		ID:           uuid.New(),
		BidID:        bid.ID,
		TransferID:   s.transferNo(),
		DishMediaID:  alloc.DishMediaID,
		AmountCents:  alloc.AmountCents,
		CurrencyCode: &currency,
		Status:       model.PayoutStatusPending,
	}

	if err := s.payoutRepo.Create(ctx, tx, payout); err != nil {
		return nil, err
	}
	if err := s.enqueue(ctx, tx, payout, model.EventPayoutCreated); err != nil {
		return nil, err
	}
	return payout, nil
}

// MarkPaid records that the payment rail executed the transfer.
func (s *PayoutService) MarkPaid(ctx context.Context, payoutID uuid.UUID, expectedVersion int) (*model.Payout, error) {
	return s.transition(ctx, payoutID, expectedVersion, model.PayoutStatusPaid, model.EventPayoutPaid)
}

// MarkRefunded reverses a paid payout. Only valid from paid.
func (s *PayoutService) MarkRefunded(ctx context.Context, payoutID uuid.UUID, expectedVersion int) (*model.Payout, error) {
	return s.transition(ctx, payoutID, expectedVersion, model.PayoutStatusRefunded, model.EventPayoutRefunded)
}

func (s *PayoutService) transition(ctx context.Context, payoutID uuid.UUID, expectedVersion int, target model.PayoutStatus, event string) (*model.Payout, error) {
	payout, err := s.payoutRepo.GetByID(ctx, payoutID)
	if err != nil {
		return nil, err
	}

	if payout.Version != expectedVersion {
		return nil, &apperr.ConflictError{Entity: payout.TableName(), ID: payout.ID.String(), ExpectedVersion: expectedVersion}
	}

	if !payout.Status.CanTransitionTo(target) {
		return nil, &apperr.TransitionError{
			Entity: payout.TableName(),
			ID:     payout.ID.String(),
			From:   string(payout.Status),
			To:     string(target),
		}
	}

	from := payout.Status
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.guard.Update(ctx, tx, payout, expectedVersion, map[string]interface{}{"status": target}); err != nil {
			return err
		}
		payout.Status = target
		return s.enqueue(ctx, tx, payout, event)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[PayoutService] payout %s (%s): %s -> %s, version=%d", payout.ID, payout.TransferID, from, target, payout.Version)
	return payout, nil
}

func (s *PayoutService) enqueue(ctx context.Context, tx *gorm.DB, payout *model.Payout, event string) error {
	currency := ""
	if payout.CurrencyCode != nil {
		currency = *payout.CurrencyCode
	}
	msg, err := model.NewOutboxMessage(s.cfg.Kafka.Topic.PayoutEvent, payout.TransferID, model.LifecycleEvent{
		Type:        event,
		BidID:       payout.BidID.String(),
		PayoutID:    payout.ID.String(),
		DishMediaID: payout.DishMediaID.String(),
		TransferID:  payout.TransferID,
		Status:      string(payout.Status),
		AmountCents: payout.AmountCents,
		Currency:    currency,
		Version:     payout.Version,
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

func (s *PayoutService) GetPayout(ctx context.Context, payoutID uuid.UUID) (*model.Payout, error) {
	return s.payoutRepo.GetByID(ctx, payoutID)
}

// GetPayoutByTransferID looks a payout up by the idempotency key the payment
// rail reports back.
func (s *PayoutService) GetPayoutByTransferID(ctx context.Context, transferID string) (*model.Payout, error) {
	return s.payoutRepo.GetByTransferID(ctx, transferID)
}

// ListBidPayouts returns the payouts of an existing bid.
func (s *PayoutService) ListBidPayouts(ctx context.Context, bidID uuid.UUID) ([]*model.Payout, error) {
	if _, err := s.bidRepo.GetByID(ctx, bidID); err != nil {
		return nil, err
	}
	return s.payoutRepo.ListByBid(ctx, bidID)
}
