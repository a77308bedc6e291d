package model

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// Referenced entities
// ============================================================================
//
// These tables belong to the marketplace's CRUD services. Settlement only
// reads them; they are migrated here so the service can run on its own.
//
// ============================================================================

type Restaurant struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Restaurant) TableName() string {
	return "restaurants"
}

type User struct {
	ID          uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	DisplayName string    `gorm:"type:varchar(255);not null" json:"display_name"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (User) TableName() string {
	return "users"
}

type Dish struct {
	ID           uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	RestaurantID uuid.UUID `gorm:"type:char(36);index;not null" json:"restaurant_id"`
	Name         string    `gorm:"type:varchar(255);not null" json:"name"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Dish) TableName() string {
	return "dishes"
}

// DishMedia is a photo or video of a dish; UserID is the contributor who
// receives payouts for it.
type DishMedia struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	DishID    uuid.UUID `gorm:"type:char(36);index;not null" json:"dish_id"`
	UserID    uuid.UUID `gorm:"type:char(36);index;not null" json:"user_id"`
	MediaPath string    `gorm:"type:varchar(512);not null" json:"media_path"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	// filled by the qualifying-media query, not a column
	LikeCount int64 `gorm:"->;-:migration" json:"like_count"`
}

func (DishMedia) TableName() string {
	return "dish_media"
}

type DishMediaLike struct {
	ID          uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	DishMediaID uuid.UUID `gorm:"type:char(36);uniqueIndex:uk_like_media_user,priority:1;not null" json:"dish_media_id"`
	UserID      uuid.UUID `gorm:"type:char(36);uniqueIndex:uk_like_media_user,priority:2;not null" json:"user_id"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (DishMediaLike) TableName() string {
	return "dish_media_likes"
}
