package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ============================================================================
// Redis lock
// ============================================================================
//
// Acquire:  SET key owner NX PX expiration
// Release:  compare owner and DEL in one Lua script, so an instance whose
//           lock already expired cannot delete the next holder's lock.
//
// The lock only de-duplicates work across instances. Correctness of
// settlement never depends on it: the bid row lock and the settlement
// record taken inside the settle transaction are the authority.
//
// ============================================================================

const unlockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`

type DistributedLock struct {
	client     *redis.Client
	key        string
	value      string
	expiration time.Duration
}

func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

func (l *DistributedLock) Key() string {
	return l.key
}

// TryLock acquires the lock without waiting.
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
}

// Unlock reports whether this holder still owned the lock.
func (l *DistributedLock) Unlock(ctx context.Context) (bool, error) {
	n, err := l.client.Eval(ctx, unlockScript, []string{l.key}, l.value).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// NewSettleLock guards settlement of one bid across instances.
func NewSettleLock(client *redis.Client, bidID uuid.UUID, expiration time.Duration) *DistributedLock {
	return NewDistributedLock(client, SettleLockKey(bidID), uuid.NewString(), expiration)
}

func SettleLockKey(bidID uuid.UUID) string {
	return fmt.Sprintf("settle:lock:bid:%s", bidID)
}
