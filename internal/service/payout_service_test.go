package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"nanitabeyo/internal/apperr"
	"nanitabeyo/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) paidBid(t *testing.T) *model.RestaurantBid {
	t.Helper()
	ctx := context.Background()
	bid, err := f.bids.PlaceBid(ctx, f.placeRequest())
	require.NoError(t, err)
	bid, err = f.bids.ConfirmPayment(ctx, bid.ID, "pi_"+uuid.NewString(), 0)
	require.NoError(t, err)
	return bid
}

// Bid lifecycle end to end: place, pay, settle, refund.
func TestSettlementLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.addMedia(t, day(2024, time.January, 5+i), 0)
	}

	bid, err := f.bids.PlaceBid(ctx, f.placeRequest())
	require.NoError(t, err)
	assert.Equal(t, model.BidStatusPending, bid.Status)
	assert.Equal(t, 0, bid.Version)

	bid, err = f.bids.ConfirmPayment(ctx, bid.ID, "pi_abc", 0)
	require.NoError(t, err)
	assert.Equal(t, model.BidStatusPaid, bid.Status)
	assert.Equal(t, 1, bid.Version)

	result, err := f.payouts.Settle(ctx, bid.ID)
	require.NoError(t, err)
	require.Len(t, result.Created, 3)
	assert.Zero(t, result.Skipped)

	transferIDs := map[string]struct{}{}
	var total int64
	for _, p := range result.Created {
		assert.Equal(t, bid.ID, p.BidID)
		assert.Equal(t, model.PayoutStatusPending, p.Status)
		assert.Equal(t, 0, p.Version)
		require.NotNil(t, p.CurrencyCode)
		assert.Equal(t, "USD", *p.CurrencyCode)
		assert.Equal(t, int64(500), p.AmountCents)
		transferIDs[p.TransferID] = struct{}{}
		total += p.AmountCents
	}
	assert.Len(t, transferIDs, 3)
	assert.Equal(t, int64(1500), total)

	bid, err = f.bids.RefundBid(ctx, bid.ID, "re_abc", 1)
	require.NoError(t, err)
	assert.Equal(t, model.BidStatusRefunded, bid.Status)
	assert.Equal(t, 2, bid.Version)

	_, err = f.bids.ConfirmPayment(ctx, bid.ID, "pi_again", 2)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	stored, err := f.payouts.ListBidPayouts(ctx, bid.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestPayoutService_Settle_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addMedia(t, day(2024, time.January, 2), 1)
	f.addMedia(t, day(2024, time.January, 3), 0)

	bid := f.paidBid(t)

	first, err := f.payouts.Settle(ctx, bid.ID)
	require.NoError(t, err)
	assert.Len(t, first.Created, 2)

	second, err := f.payouts.Settle(ctx, bid.ID)
	require.NoError(t, err)
	assert.Empty(t, second.Created)
	assert.Equal(t, 2, second.Skipped)

	assert.Equal(t, int64(2), f.countRows(t, "payouts"))
	assert.Len(t, f.outboxTypes(t, "test.payout"), 2)
}

func TestPayoutService_Settle_ConcurrentSettlers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for i := 0; i < 4; i++ {
		f.addMedia(t, day(2024, time.January, 10), i)
	}
	bid := f.paidBid(t)

	const settlers = 3
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < settlers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := f.payouts.Settle(ctx, bid.ID)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			created += len(result.Created)
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 4, created)
	assert.Equal(t, int64(4), f.countRows(t, "payouts"))
	assert.Equal(t, int64(1500), f.payoutTotal(t, bid.ID))
	assert.Equal(t, int64(1), f.countRows(t, "bid_settlements"))
}

func (f *fixture) payoutTotal(t *testing.T, bidID uuid.UUID) int64 {
	t.Helper()
	payouts, err := f.payouts.ListBidPayouts(context.Background(), bidID)
	require.NoError(t, err)
	var total int64
	for _, p := range payouts {
		total += p.AmountCents
	}
	return total
}

func TestPayoutService_Settle_LateMediaDoesNotExceedPool(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addMedia(t, day(2024, time.January, 2), 0)
	f.addMedia(t, day(2024, time.January, 3), 0)

	bid := f.paidBid(t)
	first, err := f.payouts.Settle(ctx, bid.ID)
	require.NoError(t, err)
	require.Len(t, first.Created, 2)

	// backfilled into the closed window after settlement
	f.addMedia(t, day(2024, time.January, 4), 9)

	second, err := f.payouts.Settle(ctx, bid.ID)
	require.NoError(t, err)
	assert.Empty(t, second.Created)
	assert.Equal(t, 2, second.Skipped)

	pool := f.payouts.allocator.Pool(bid.AmountCents)
	assert.LessOrEqual(t, f.payoutTotal(t, bid.ID), pool)
	assert.Equal(t, int64(2), f.countRows(t, "payouts"))
}

func TestPayoutService_Settle_SplitsOnlyRemainingPool(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	earlier := f.addMedia(t, day(2024, time.January, 2), 0)
	f.addMedia(t, day(2024, time.January, 3), 0)
	f.addMedia(t, day(2024, time.January, 4), 0)

	bid := f.paidBid(t)
	currency := "USD"
	require.NoError(t, f.payouts.payoutRepo.Create(ctx, nil, &model.Payout{
		BidID:        bid.ID,
		DishMediaID:  earlier.ID,
		TransferID:   "TRF-EARLIER",
		AmountCents:  1000,
		CurrencyCode: &currency,
		Status:       model.PayoutStatusPaid,
	}))

	result, err := f.payouts.Settle(ctx, bid.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Created, 2)
	for _, p := range result.Created {
		assert.NotEqual(t, earlier.ID, p.DishMediaID)
		assert.Equal(t, int64(250), p.AmountCents)
	}
	assert.Equal(t, int64(1500), f.payoutTotal(t, bid.ID))

	settlement, err := f.payouts.settlementRepo.Get(ctx, nil, bid.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), settlement.PoolCents)
	assert.Equal(t, int64(1500), settlement.PaidCents)
	assert.Equal(t, 3, settlement.PayoutCount)
}

func TestPayoutService_Settle_PoolAlreadyPaidOut(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	earlier := f.addMedia(t, day(2024, time.January, 2), 0)
	f.addMedia(t, day(2024, time.January, 3), 0)

	bid := f.paidBid(t)
	require.NoError(t, f.payouts.payoutRepo.Create(ctx, nil, &model.Payout{
		BidID:       bid.ID,
		DishMediaID: earlier.ID,
		TransferID:  "TRF-ALL",
		AmountCents: 1500,
		Status:      model.PayoutStatusPending,
	}))

	result, err := f.payouts.Settle(ctx, bid.ID)
	require.NoError(t, err)
	assert.Empty(t, result.Created)
	assert.Equal(t, int64(1500), f.payoutTotal(t, bid.ID))
	assert.Equal(t, int64(1), f.countRows(t, "bid_settlements"))
}

func TestPayoutService_Settle_WindowStillOpen(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addMedia(t, day(2024, time.January, 2), 0)
	bid := f.paidBid(t)

	f.payouts.now = func() time.Time { return day(2024, time.January, 15) }
	_, err := f.payouts.Settle(ctx, bid.ID)
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)
	var serr *apperr.StateError
	require.ErrorAs(t, err, &serr)
	assert.Contains(t, serr.Status, "2024-01-31")
	assert.Zero(t, f.countRows(t, "payouts"))
	assert.Zero(t, f.countRows(t, "bid_settlements"))

	// the window is [start, end): settling at end is allowed
	f.payouts.now = func() time.Time { return bid.EndDate }
	result, err := f.payouts.Settle(ctx, bid.ID)
	require.NoError(t, err)
	assert.Len(t, result.Created, 1)
}

func TestPayoutService_Settle_Preconditions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addMedia(t, day(2024, time.January, 2), 0)

	t.Run("unknown bid", func(t *testing.T) {
		_, err := f.payouts.Settle(ctx, uuid.New())
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("pending bid", func(t *testing.T) {
		bid, err := f.bids.PlaceBid(ctx, f.placeRequest())
		require.NoError(t, err)

		_, err = f.payouts.Settle(ctx, bid.ID)
		require.ErrorIs(t, err, apperr.ErrInvalidTransition)
		var serr *apperr.StateError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, string(model.BidStatusPending), serr.Status)
	})

	t.Run("refunded bid", func(t *testing.T) {
		bid := f.paidBid(t)
		_, err := f.bids.RefundBid(ctx, bid.ID, "re_1", 1)
		require.NoError(t, err)

		_, err = f.payouts.Settle(ctx, bid.ID)
		assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	})

	assert.Zero(t, f.countRows(t, "payouts"))
}

func TestPayoutService_Settle_NoQualifyingMedia(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addMedia(t, day(2024, time.February, 2), 5)

	bid := f.paidBid(t)
	result, err := f.payouts.Settle(ctx, bid.ID)
	require.NoError(t, err)
	assert.Empty(t, result.Created)
	assert.Zero(t, result.Skipped)
	assert.Equal(t, int64(1), f.countRows(t, "bid_settlements"))
}

func TestPayoutService_Settle_LikeWeighting(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	popular := f.addMedia(t, day(2024, time.January, 2), 3)
	quiet := f.addMedia(t, day(2024, time.January, 3), 0)

	bid := f.paidBid(t)
	result, err := f.payouts.Settle(ctx, bid.ID)
	require.NoError(t, err)
	require.Len(t, result.Created, 2)

	amounts := map[uuid.UUID]int64{}
	for _, p := range result.Created {
		amounts[p.DishMediaID] = p.AmountCents
	}
	// pool 1500 split 4:1
	assert.Equal(t, int64(1200), amounts[popular.ID])
	assert.Equal(t, int64(300), amounts[quiet.ID])
}

func TestPayoutService_MarkPaidAndRefunded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addMedia(t, day(2024, time.January, 2), 0)

	bid := f.paidBid(t)
	result, err := f.payouts.Settle(ctx, bid.ID)
	require.NoError(t, err)
	require.Len(t, result.Created, 1)
	payout := result.Created[0]

	_, err = f.payouts.MarkRefunded(ctx, payout.ID, 0)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition, "pending payouts cannot be refunded")

	_, err = f.payouts.MarkPaid(ctx, payout.ID, 5)
	assert.ErrorIs(t, err, apperr.ErrConcurrencyConflict)

	_, err = f.payouts.MarkPaid(ctx, uuid.New(), 0)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	paid, err := f.payouts.MarkPaid(ctx, payout.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, model.PayoutStatusPaid, paid.Status)
	assert.Equal(t, 1, paid.Version)
	assert.Equal(t, payout.TransferID, paid.TransferID)

	_, err = f.payouts.MarkPaid(ctx, payout.ID, 1)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	refunded, err := f.payouts.MarkRefunded(ctx, payout.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, model.PayoutStatusRefunded, refunded.Status)
	assert.Equal(t, 2, refunded.Version)

	stored, err := f.payouts.GetPayout(ctx, payout.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PayoutStatusRefunded, stored.Status)
	assert.Equal(t, 2, stored.Version)
	assert.True(t, stored.UpdatedAt.Equal(refunded.UpdatedAt), "stored %s, returned %s", stored.UpdatedAt, refunded.UpdatedAt)

	assert.Equal(t,
		[]string{model.EventPayoutCreated, model.EventPayoutPaid, model.EventPayoutRefunded},
		f.outboxTypes(t, "test.payout"))
}

func TestPayoutService_GetPayoutByTransferID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addMedia(t, day(2024, time.January, 2), 0)

	bid := f.paidBid(t)
	result, err := f.payouts.Settle(ctx, bid.ID)
	require.NoError(t, err)
	require.Len(t, result.Created, 1)

	got, err := f.payouts.GetPayoutByTransferID(ctx, result.Created[0].TransferID)
	require.NoError(t, err)
	assert.Equal(t, result.Created[0].ID, got.ID)

	_, err = f.payouts.GetPayoutByTransferID(ctx, "TRF-404")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPayoutService_ListBidPayouts_UnknownBid(t *testing.T) {
	f := newFixture(t)
	_, err := f.payouts.ListBidPayouts(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
