// Package lifecycle owns the order, delivery and rider availability state.
// It is the only writer of Food.Stock, Delivery.Status and Rider.Availability.
//
// Multi-record operations run as sagas: every committed step registers its
// compensation before the next write, and a failure that cannot be fully
// compensated is reported as a partial error kind.
//
// Pickup, resolution, availability and approval writes are conditional on the
// state that was read, so concurrent requests on the same rider or delivery
// fail with a typed error instead of overwriting each other.
package lifecycle

import (
	"context"
	"errors"

	"github.com/franciscosanchezn/gin-food-delivery-api/internal/auth"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/metrics"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/models"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/store"
	"github.com/sirupsen/logrus"
)

// UserOrdersLimit caps how many orders ListUserOrders returns
const UserOrdersLimit = 10

// Engine runs the lifecycle operations against a Store
type Engine struct {
	store   store.Store
	metrics *metrics.Collectors
	log     *logrus.Logger
}

// NewEngine creates an engine. m may be nil.
func NewEngine(s store.Store, m *metrics.Collectors, log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{store: s, metrics: m, log: log}
}

func requireRole(p auth.Principal, role auth.Role) error {
	if p.ID == "" || !p.Is(role) {
		return models.ErrWrongRole
	}
	return nil
}

// serverError logs an unexpected persistence failure and hides it behind ErrServer
func (e *Engine) serverError(entry *logrus.Entry, err error, msg string) error {
	entry.WithError(err).Error(msg)
	return models.ErrServer
}

// loadRider fetches the calling rider and checks it may work
func (e *Engine) loadRider(ctx context.Context, p auth.Principal) (*models.Rider, error) {
	if err := requireRole(p, auth.RoleRider); err != nil {
		return nil, err
	}
	rider, err := e.store.FindRiderByID(ctx, p.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, models.ErrRiderNotFound
	}
	if err != nil {
		return nil, e.serverError(e.log.WithField("rider_id", p.ID), err, "Failed to load rider")
	}
	switch rider.Status {
	case models.RiderApproved:
		return rider, nil
	case models.RiderDisabled:
		return nil, models.ErrRiderDisabled
	default:
		return nil, models.ErrRiderNotApproved
	}
}
