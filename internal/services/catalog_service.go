package services

import (
	"context"
	"errors"
	"strings"

	"github.com/franciscosanchezn/gin-food-delivery-api/internal/auth"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/models"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/store"
	"github.com/sirupsen/logrus"
)

type CreateFoodInput struct {
	Name               string
	Category           string
	Stock              int
	PriceInCents       int64
	DiscountPercentage float64
	Images             []string
}

// UpdateFoodInput changes only the fields that are set. Restock adds to the stock.
type UpdateFoodInput struct {
	Name               *string
	Category           *string
	PriceInCents       *int64
	DiscountPercentage *float64
	Restock            int
	Images             []string
}

// FoodPage is one window of the public catalog
type FoodPage struct {
	Foods []models.Food `json:"foods"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

type CatalogService interface {
	CreateFood(ctx context.Context, p auth.Principal, in CreateFoodInput) (*models.Food, error)
	UpdateFood(ctx context.Context, p auth.Principal, id string, in UpdateFoodInput) (*models.Food, error)
	DeleteFood(ctx context.Context, p auth.Principal, id string) error
	GetFood(ctx context.Context, id string) (*models.Food, error)
	ListFoods(ctx context.Context, page, limit int) (*FoodPage, error)
}

type catalogService struct {
	store store.Store
	log   *logrus.Logger
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(s store.Store, log *logrus.Logger) CatalogService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &catalogService{store: s, log: log}
}

func (s *catalogService) CreateFood(ctx context.Context, p auth.Principal, in CreateFoodInput) (*models.Food, error) {
	if !p.Is(auth.RoleAdmin) {
		return nil, models.ErrWrongRole
	}
	if len(in.Images) == 0 {
		return nil, models.ErrMissingImage
	}
	name := strings.TrimSpace(in.Name)
	if _, err := s.store.FindFoodByName(ctx, name); err == nil {
		return nil, models.ErrFoodExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, s.serverError(err, "Failed to look up food")
	}

	food := &models.Food{
		Name:               name,
		Category:           strings.ToLower(strings.TrimSpace(in.Category)),
		Stock:              in.Stock,
		PriceInCents:       in.PriceInCents,
		DiscountPercentage: in.DiscountPercentage,
		Images:             in.Images,
		CreatedBy:          p.ID,
		LastUpdatedBy:      p.ID,
	}
	if err := s.store.CreateFood(ctx, food); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, models.ErrFoodExists
		}
		return nil, s.serverError(err, "Failed to create food")
	}
	s.log.WithFields(logrus.Fields{"food_id": food.ID, "admin_id": p.ID}).Info("Food created")
	return food, nil
}

func (s *catalogService) UpdateFood(ctx context.Context, p auth.Principal, id string, in UpdateFoodInput) (*models.Food, error) {
	if !p.Is(auth.RoleAdmin) {
		return nil, models.ErrWrongRole
	}
	if in.Restock < 0 {
		return nil, models.NewValidationError([]string{"restock must not be negative"})
	}
	update := store.FoodUpdate{
		PriceInCents:       in.PriceInCents,
		DiscountPercentage: in.DiscountPercentage,
		Restock:            in.Restock,
		Images:             in.Images,
		UpdatedBy:          p.ID,
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		update.Name = &name
	}
	if in.Category != nil {
		category := strings.ToLower(strings.TrimSpace(*in.Category))
		update.Category = &category
	}

	food, err := s.store.UpdateFood(ctx, id, update)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, models.ErrFoodNotFound
	case errors.Is(err, store.ErrDuplicate):
		return nil, models.ErrFoodExists
	case err != nil:
		return nil, s.serverError(err, "Failed to update food")
	}
	s.log.WithFields(logrus.Fields{"food_id": id, "admin_id": p.ID}).Info("Food updated")
	return food, nil
}

func (s *catalogService) DeleteFood(ctx context.Context, p auth.Principal, id string) error {
	if !p.Is(auth.RoleAdmin) {
		return models.ErrWrongRole
	}
	err := s.store.DeleteFood(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return models.ErrFoodNotFound
	}
	if err != nil {
		return s.serverError(err, "Failed to delete food")
	}
	s.log.WithFields(logrus.Fields{"food_id": id, "admin_id": p.ID}).Info("Food deleted")
	return nil
}

// GetFood returns the public view of a catalog item.
func (s *catalogService) GetFood(ctx context.Context, id string) (*models.Food, error) {
	food, err := s.store.FindFoodByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, models.ErrFoodNotFound
	}
	if err != nil {
		return nil, s.serverError(err, "Failed to load food")
	}
	public := food.Public()
	return &public, nil
}

// ListFoods pages through the public catalog, see store.NewPage for the window rules.
func (s *catalogService) ListFoods(ctx context.Context, page, limit int) (*FoodPage, error) {
	window := store.NewPage(page, limit)
	foods, err := s.store.ListFoods(ctx, window)
	if err != nil {
		return nil, s.serverError(err, "Failed to list foods")
	}
	out := make([]models.Food, 0, len(foods))
	for _, f := range foods {
		out = append(out, f.Public())
	}
	return &FoodPage{Foods: out, Page: window.Page, Limit: window.Limit}, nil
}

func (s *catalogService) serverError(err error, msg string) error {
	s.log.WithError(err).Error(msg)
	return models.ErrServer
}
