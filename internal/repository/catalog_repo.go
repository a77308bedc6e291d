package repository

import (
	"context"
	"errors"
	"time"

	"nanitabeyo/internal/apperr"
	"nanitabeyo/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CatalogRepository is the read-only view over restaurants, users and dish
// media that settlement needs. The tables are owned by the CRUD services.
type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) GetRestaurant(ctx context.Context, id uuid.UUID) (*model.Restaurant, error) {
	var restaurant model.Restaurant
	if err := r.first(ctx, &restaurant, id); err != nil {
		return nil, notFoundOr(err, "restaurant", id)
	}
	return &restaurant, nil
}

func (r *CatalogRepository) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := r.first(ctx, &user, id); err != nil {
		return nil, notFoundOr(err, "user", id)
	}
	return &user, nil
}

func (r *CatalogRepository) GetDishMedia(ctx context.Context, id uuid.UUID) (*model.DishMedia, error) {
	var media model.DishMedia
	if err := r.first(ctx, &media, id); err != nil {
		return nil, notFoundOr(err, "dish_media", id)
	}
	return &media, nil
}

// ListAdvertisedMedia returns the dish media of restaurantID's dishes created
// in [from, to), each with its like count, ordered by id.
func (r *CatalogRepository) ListAdvertisedMedia(ctx context.Context, restaurantID uuid.UUID, from, to time.Time) ([]*model.DishMedia, error) {
	var media []*model.DishMedia
	err := r.db.WithContext(ctx).
		Model(&model.DishMedia{}).
		Select("dish_media.*, (SELECT COUNT(*) FROM dish_media_likes l WHERE l.dish_media_id = dish_media.id) AS like_count").
		Joins("JOIN dishes ON dishes.id = dish_media.dish_id").
		Where("dishes.restaurant_id = ? AND dish_media.created_at >= ? AND dish_media.created_at < ?", restaurantID, from, to).
		Order("dish_media.id ASC").
		Find(&media).Error
	return media, err
}

func (r *CatalogRepository) first(ctx context.Context, dest interface{}, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).First(dest).Error
}

func notFoundOr(err error, entity string, id uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NewNotFoundError(entity, id.String())
	}
	return err
}
