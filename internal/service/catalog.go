package service

import (
	"context"
	"time"

	"nanitabeyo/internal/model"

	"github.com/google/uuid"
)

// Catalog is what settlement reads from the marketplace's CRUD side.
// repository.CatalogRepository implements it over the shared database.
type Catalog interface {
	GetRestaurant(ctx context.Context, id uuid.UUID) (*model.Restaurant, error)
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetDishMedia(ctx context.Context, id uuid.UUID) (*model.DishMedia, error)
	ListAdvertisedMedia(ctx context.Context, restaurantID uuid.UUID, from, to time.Time) ([]*model.DishMedia, error)
}
