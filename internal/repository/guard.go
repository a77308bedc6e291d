package repository

import (
	"context"
	"time"

	"nanitabeyo/internal/apperr"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ============================================================================
// Optimistic concurrency guard
// ============================================================================
//
// Every write to a mutable settlement row is a single conditional UPDATE:
//
//   UPDATE <table> SET ..., version = :expected + 1, updated_at = :now
//   WHERE id = :id AND version = :expected
//
// Zero affected rows means either the row is gone or someone else already
// moved the version. The guard never retries and never merges; the caller
// re-reads and decides.
//
// ============================================================================

// Versioned is implemented by entities carrying an optimistic lock column.
type Versioned interface {
	TableName() string
	GetID() uuid.UUID
	GetVersion() int
	SetVersion(v int)
	SetUpdatedAt(t time.Time)
}

type Guard struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGuard(db *gorm.DB) *Guard {
	return &Guard{db: db, now: time.Now}
}

// Update persists fields on entity's row only if the stored version equals
// expectedVersion. On success entity's in-memory version and updated_at are
// set to exactly what was written; the other fields are the caller's to apply.
func (g *Guard) Update(ctx context.Context, tx *gorm.DB, entity Versioned, expectedVersion int, fields map[string]interface{}) error {
	if tx == nil {
		tx = g.db
	}

	updates := make(map[string]interface{}, len(fields)+2)
	for k, v := range fields {
		updates[k] = v
	}
	now := g.now()
	updates["version"] = expectedVersion + 1
	updates["updated_at"] = now

	result := tx.WithContext(ctx).
		Table(entity.TableName()).
		Where("id = ? AND version = ?", entity.GetID(), expectedVersion).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		var count int64
		err := tx.WithContext(ctx).
			Table(entity.TableName()).
			Where("id = ?", entity.GetID()).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count == 0 {
			return apperr.NewNotFoundError(entity.TableName(), entity.GetID().String())
		}
		return &apperr.ConflictError{
			Entity:          entity.TableName(),
			ID:              entity.GetID().String(),
			ExpectedVersion: expectedVersion,
		}
	}

	entity.SetVersion(expectedVersion + 1)
	entity.SetUpdatedAt(now)
	return nil
}
