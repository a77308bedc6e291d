package job

import (
	"context"
	"log"
	"time"

	"nanitabeyo/internal/config"
	"nanitabeyo/internal/infrastructure/lock"
	"nanitabeyo/internal/model"
	"nanitabeyo/internal/repository"
	"nanitabeyo/internal/service"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Settler is satisfied by *service.PayoutService.
type Settler interface {
	Settle(ctx context.Context, bidID uuid.UUID) (*service.SettleResult, error)
}

// Locker keeps two instances from settling the same bid at once. A false ok
// means another instance holds the bid.
type Locker interface {
	Acquire(ctx context.Context, bidID uuid.UUID) (release func(), ok bool, err error)
}

type RedisLocker struct {
	client     *redis.Client
	expiration time.Duration
}

func NewRedisLocker(client *redis.Client, expiration time.Duration) *RedisLocker {
	return &RedisLocker{client: client, expiration: expiration}
}

func (l *RedisLocker) Acquire(ctx context.Context, bidID uuid.UUID) (func(), bool, error) {
	settleLock := lock.NewSettleLock(l.client, bidID, l.expiration)
	ok, err := settleLock.TryLock(ctx)
	if err != nil || !ok {
		return nil, false, err
	}
	return func() {
		// fresh context: the job context may already be cancelled
		unlockCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := settleLock.Unlock(unlockCtx); err != nil {
			log.Printf("[SettlementJob] unlock %s: %v", settleLock.Key(), err)
		}
	}, true, nil
}

// SettlementJob settles paid bids whose window has closed and that carry no
// settlement record yet, oldest window first.
type SettlementJob struct {
	bidRepo   *repository.BidRepository
	settler   Settler
	locker    Locker
	stopCh    chan struct{}
	interval  time.Duration
	batchSize int
	now       func() time.Time
}

// NewSettlementJob builds the job; locker may be nil for single-instance runs.
func NewSettlementJob(db *gorm.DB, settler Settler, locker Locker, cfg *config.Config) *SettlementJob {
	interval := cfg.Business.SettleInterval()
	if interval <= 0 {
		interval = time.Minute
	}
	batchSize := cfg.Business.SettleBatchSize
	if batchSize <= 0 {
		batchSize = 50
	}
	return &SettlementJob{
		bidRepo:   repository.NewBidRepository(db),
		settler:   settler,
		locker:    locker,
		stopCh:    make(chan struct{}),
		interval:  interval,
		batchSize: batchSize,
		now:       time.Now,
	}
}

func (j *SettlementJob) Start(ctx context.Context) {
	log.Printf("[SettlementJob] started, interval=%s, batch=%d", j.interval, j.batchSize)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[SettlementJob] context done, exiting")
			return
		case <-j.stopCh:
			log.Println("[SettlementJob] stopped")
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

func (j *SettlementJob) Stop() {
	close(j.stopCh)
}

// RunOnce settles one batch and returns the number of payouts created.
func (j *SettlementJob) RunOnce(ctx context.Context) int {
	bids, err := j.bidRepo.ListUnsettled(ctx, j.now().UTC(), j.batchSize)
	if err != nil {
		log.Printf("[SettlementJob] list bids: %v", err)
		return 0
	}

	created := 0
	for _, bid := range bids {
		created += j.settle(ctx, bid)
	}
	if created > 0 {
		log.Printf("[SettlementJob] created %d payouts across %d bids", created, len(bids))
	}
	return created
}

func (j *SettlementJob) settle(ctx context.Context, bid *model.RestaurantBid) int {
	if j.locker != nil {
		release, ok, err := j.locker.Acquire(ctx, bid.ID)
		if err != nil {
			log.Printf("[SettlementJob] lock bid %s: %v", bid.ID, err)
			return 0
		}
		if !ok {
			return 0
		}
		defer release()
	}

	result, err := j.settler.Settle(ctx, bid.ID)
	if err != nil {
		log.Printf("[SettlementJob] settle bid %s: %v", bid.ID, err)
		return 0
	}
	return len(result.Created)
}
