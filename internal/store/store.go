// Package store persists accounts, the food catalog, orders and deliveries.
// Two backends implement Store: MongoStore for the document database used in
// production and GormStore for postgres/sqlite deployments and tests.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/franciscosanchezn/gin-food-delivery-api/internal/models"
)

var (
	// ErrNotFound is returned when the addressed record does not exist
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects a write
	ErrDuplicate = errors.New("duplicate key")
	// ErrConflict is returned when a conditional write matched no record
	ErrConflict = errors.New("conditional update did not match")
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Page selects a window of a listing. Page is zero based.
type Page struct {
	Page  int
	Limit int
}

// NewPage builds a Page from raw query values. Negative values count as their
// absolute value, a zero limit falls back to DefaultLimit and limits are capped at MaxLimit.
func NewPage(page, limit int) Page {
	if page < 0 {
		page = -page
	}
	if limit < 0 {
		limit = -limit
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Page{Page: page, Limit: limit}
}

// Skip returns the number of records before the window
func (p Page) Skip() int {
	return p.Page * p.Limit
}

// FoodUpdate carries the catalog fields an admin may change. Restock is added to the
// current stock instead of overwriting it so concurrent reservations are not lost.
type FoodUpdate struct {
	Name               *string
	Category           *string
	PriceInCents       *int64
	DiscountPercentage *float64
	Restock            int
	Images             []string
	UpdatedBy          string
}

// DeliveryFilter narrows ListDeliveries. Zero values are ignored.
type DeliveryFilter struct {
	RiderID string
	Status  models.DeliveryStatus
	Limit   int
}

// DeliveryTransition is a conditional status change. The write only applies when the
// delivery is in From and, unless Assign is set, is held by RiderID.
type DeliveryTransition struct {
	ID      string
	From    models.DeliveryStatus
	To      models.DeliveryStatus
	RiderID string
	Assign  bool
}

// RiderStatusChange is a conditional change of a rider's administrative status
type RiderStatusChange struct {
	ID         string
	From       models.RiderStatus
	To         models.RiderStatus
	ApprovedBy string
	At         time.Time
}

// Store is the persistence handle shared by services and the lifecycle engine
type Store interface {
	CreateAdmin(ctx context.Context, admin *models.Admin) error
	FindAdminByID(ctx context.Context, id string) (*models.Admin, error)
	FindAdminByEmail(ctx context.Context, email string) (*models.Admin, error)

	CreateUser(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByEmailOrTel(ctx context.Context, email, tel string) (*models.User, error)
	IncrementUserOrders(ctx context.Context, id string) error

	CreateRider(ctx context.Context, rider *models.Rider) error
	FindRiderByID(ctx context.Context, id string) (*models.Rider, error)
	FindRiderByEmailOrTel(ctx context.Context, email, tel string) (*models.Rider, error)
	ListRiders(ctx context.Context, status models.RiderStatus, page Page) ([]models.Rider, error)
	UpdateRiderStatus(ctx context.Context, change RiderStatusChange) (*models.Rider, error)
	// SwapRiderAvailability moves a rider to `to` only while its availability is one of `from`.
	SwapRiderAvailability(ctx context.Context, id string, from []models.Availability, to models.Availability, countDelivery bool) error

	CreateFood(ctx context.Context, food *models.Food) error
	FindFoodByID(ctx context.Context, id string) (*models.Food, error)
	FindFoodByName(ctx context.Context, name string) (*models.Food, error)
	ListFoods(ctx context.Context, page Page) ([]models.Food, error)
	UpdateFood(ctx context.Context, id string, update FoodUpdate) (*models.Food, error)
	DeleteFood(ctx context.Context, id string) error
	// ReserveStock decrements stock by quantity in a single conditional write and
	// returns the food as it is right after the decrement. ErrConflict means the
	// stock was insufficient.
	ReserveStock(ctx context.Context, id string, quantity int) (*models.Food, error)
	ReleaseStock(ctx context.Context, id string, quantity int) error

	CreateOrder(ctx context.Context, order *models.Order) error
	DeleteOrder(ctx context.Context, id string) error
	FindOrderByID(ctx context.Context, id string) (*models.Order, error)
	ListOrdersByUser(ctx context.Context, userID string, limit int) ([]models.Order, error)

	CreateDelivery(ctx context.Context, delivery *models.Delivery) error
	FindDeliveryByID(ctx context.Context, id string) (*models.Delivery, error)
	ListDeliveries(ctx context.Context, filter DeliveryFilter) ([]models.Delivery, error)
	TransitionDelivery(ctx context.Context, t DeliveryTransition) (*models.Delivery, error)
	CountDeliveries(ctx context.Context, riderID string, status models.DeliveryStatus) (int64, error)

	Close(ctx context.Context) error
}
