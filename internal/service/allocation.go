package service

import (
	"errors"
	"fmt"
	"math/bits"
	"sort"

	"nanitabeyo/internal/model"
	"nanitabeyo/pkg/money"

	"github.com/google/uuid"
)

// Allocation is the amount one dish media earns from a bid.
type Allocation struct {
	DishMediaID uuid.UUID
	AmountCents int64
}

// Allocator decides how much of a paid bid goes to contributors and how that
// pool is split. Implementations must be deterministic and use integer
// arithmetic only.
type Allocator interface {
	Pool(amountCents int64) int64
	Allocate(pool int64, media []*model.DishMedia) ([]Allocation, error)
}

// PoolAllocator reserves ShareBps of the bid amount for contributors and
// splits a pool by weight = 1 + like count, using largest remainder so the
// allocations sum to the pool they were given exactly.
type PoolAllocator struct {
	ShareBps int64
}

func NewPoolAllocator(shareBps int64) (*PoolAllocator, error) {
	if shareBps <= 0 || shareBps > 10000 {
		return nil, fmt.Errorf("share must be in 1..10000 bps, got %d", shareBps)
	}
	return &PoolAllocator{ShareBps: shareBps}, nil
}

func (a *PoolAllocator) Pool(amountCents int64) int64 {
	return money.MulDivFloor(amountCents, a.ShareBps, 10000)
}

func (a *PoolAllocator) Allocate(pool int64, media []*model.DishMedia) ([]Allocation, error) {
	if pool <= 0 {
		return nil, errors.New("pool must be positive")
	}
	if len(media) == 0 {
		return nil, nil
	}

	ordered := make([]*model.DishMedia, len(media))
	copy(ordered, media)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].ID.String() < ordered[j].ID.String()
	})

	var totalWeight int64
	for _, m := range ordered {
		if m.LikeCount < 0 {
			return nil, fmt.Errorf("dish media %s has negative like count", m.ID)
		}
		totalWeight += 1 + m.LikeCount
	}

	type share struct {
		idx       int
		amount    int64
		remainder uint64
	}
	shares := make([]share, len(ordered))
	var assigned int64
	for i, m := range ordered {
		// pool*weight/totalWeight in 128 bits; the quotient never exceeds pool
		hi, lo := bits.Mul64(uint64(pool), uint64(1+m.LikeCount))
		quo, rem := bits.Div64(hi, lo, uint64(totalWeight))
		shares[i] = share{idx: i, amount: int64(quo), remainder: rem}
		assigned += int64(quo)
	}

	// leftover cents go to the largest remainders; ties keep media id order
	leftover := pool - assigned
	byRemainder := make([]share, len(shares))
	copy(byRemainder, shares)
	sort.SliceStable(byRemainder, func(i, j int) bool {
		return byRemainder[i].remainder > byRemainder[j].remainder
	})
	for i := int64(0); i < leftover; i++ {
		shares[byRemainder[i].idx].amount++
	}

	allocations := make([]Allocation, 0, len(ordered))
	for i, m := range ordered {
		if shares[i].amount <= 0 {
			continue
		}
		allocations = append(allocations, Allocation{DishMediaID: m.ID, AmountCents: shares[i].amount})
	}
	return allocations, nil
}
