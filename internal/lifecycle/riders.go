package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/franciscosanchezn/gin-food-delivery-api/internal/auth"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/models"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/store"
	"github.com/sirupsen/logrus"
)

var selfService = []models.Availability{models.Available, models.Unavailable}

// UpdateAvailability lets a rider toggle between AVAILABLE and UNAVAILABLE.
// Only code "1" means AVAILABLE. BUSY riders are refused.
func (e *Engine) UpdateAvailability(ctx context.Context, p auth.Principal, code string) (*models.Rider, error) {
	rider, err := e.loadRider(ctx, p)
	if err != nil {
		return nil, err
	}
	if rider.Availability == models.Busy {
		return nil, models.ErrRiderBusy
	}

	target := models.AvailabilityFromCode(code)
	err = e.store.SwapRiderAvailability(ctx, rider.ID, selfService, target, false)
	switch {
	case errors.Is(err, store.ErrConflict):
		return nil, models.ErrRiderBusy
	case errors.Is(err, store.ErrNotFound):
		return nil, models.ErrRiderNotFound
	case err != nil:
		return nil, e.serverError(e.log.WithField("rider_id", rider.ID), err, "Failed to update availability")
	}

	rider.Availability = target
	e.log.WithFields(logrus.Fields{
		"rider_id":     rider.ID,
		"availability": target,
	}).Info("Rider availability updated")
	return rider, nil
}

// ApproveRider moves a PENDING rider to APPROVED and records the approving admin
func (e *Engine) ApproveRider(ctx context.Context, p auth.Principal, riderID string) (*models.Rider, error) {
	if err := requireRole(p, auth.RoleAdmin); err != nil {
		return nil, err
	}
	rider, err := e.changeRiderStatus(ctx, store.RiderStatusChange{
		ID:         riderID,
		From:       models.RiderPending,
		To:         models.RiderApproved,
		ApprovedBy: p.ID,
		At:         time.Now().UTC(),
	}, models.ErrApprovalNotNeeded)
	if err != nil {
		return nil, err
	}
	e.log.WithFields(logrus.Fields{"rider_id": riderID, "admin_id": p.ID}).Info("Rider approved")
	return rider, nil
}

// SuspendRider disables an APPROVED rider that is not holding a delivery and
// takes it off the availability pool
func (e *Engine) SuspendRider(ctx context.Context, p auth.Principal, riderID string) (*models.Rider, error) {
	if err := requireRole(p, auth.RoleAdmin); err != nil {
		return nil, err
	}
	current, err := e.findRider(ctx, riderID)
	if err != nil {
		return nil, err
	}
	if current.Status != models.RiderApproved {
		return nil, models.ErrSuspendNotAllowed.WithDetails("only APPROVED riders can be suspended")
	}
	if current.Availability == models.Busy {
		return nil, models.ErrRiderBusy
	}

	rider, err := e.changeRiderStatus(ctx, store.RiderStatusChange{
		ID:   riderID,
		From: models.RiderApproved,
		To:   models.RiderDisabled,
		At:   time.Now().UTC(),
	}, models.ErrSuspendNotAllowed)
	if err != nil {
		return nil, err
	}

	log := e.log.WithFields(logrus.Fields{"rider_id": riderID, "admin_id": p.ID})
	err = e.store.SwapRiderAvailability(ctx, riderID, selfService, models.Unavailable, false)
	switch {
	case err == nil:
		rider.Availability = models.Unavailable
	case errors.Is(err, store.ErrConflict):
		// picked up a delivery in between; it may still be resolved
		log.Warn("Suspended rider is holding a delivery")
	default:
		log.WithError(err).Error("Failed to mark suspended rider unavailable")
	}
	log.Info("Rider suspended")
	return rider, nil
}

// UnsuspendRider restores a DISABLED rider to APPROVED. Availability stays
// UNAVAILABLE until the rider toggles it.
func (e *Engine) UnsuspendRider(ctx context.Context, p auth.Principal, riderID string) (*models.Rider, error) {
	if err := requireRole(p, auth.RoleAdmin); err != nil {
		return nil, err
	}
	rider, err := e.changeRiderStatus(ctx, store.RiderStatusChange{
		ID:   riderID,
		From: models.RiderDisabled,
		To:   models.RiderApproved,
		At:   time.Now().UTC(),
	}, models.ErrSuspendNotAllowed.WithDetails("only DISABLED riders can be reinstated"))
	if err != nil {
		return nil, err
	}
	e.log.WithFields(logrus.Fields{"rider_id": riderID, "admin_id": p.ID}).Info("Rider reinstated")
	return rider, nil
}

// ReconcileRider repairs a rider left inconsistent by a partial transition so
// that it is BUSY exactly when it holds a DISPATCHED delivery.
func (e *Engine) ReconcileRider(ctx context.Context, p auth.Principal, riderID string) (*models.Rider, error) {
	if err := requireRole(p, auth.RoleAdmin); err != nil {
		return nil, err
	}
	rider, err := e.findRider(ctx, riderID)
	if err != nil {
		return nil, err
	}
	log := e.log.WithFields(logrus.Fields{"rider_id": riderID, "admin_id": p.ID})

	held, err := e.store.CountDeliveries(ctx, riderID, models.DeliveryDispatched)
	if err != nil {
		return nil, e.serverError(log, err, "Failed to count dispatched deliveries")
	}

	var from []models.Availability
	var to models.Availability
	switch {
	case held > 0 && rider.Availability != models.Busy:
		from, to = selfService, models.Busy
	case held == 0 && rider.Availability == models.Busy:
		from, to = []models.Availability{models.Busy}, models.Available
	default:
		return rider, nil
	}

	err = e.store.SwapRiderAvailability(ctx, riderID, from, to, false)
	if errors.Is(err, store.ErrConflict) {
		return nil, models.ErrInvalidTransition.WithDetails("rider availability changed during reconciliation, retry")
	}
	if err != nil {
		return nil, e.serverError(log, err, "Failed to reconcile rider availability")
	}
	log.WithFields(logrus.Fields{
		"from":       rider.Availability,
		"to":         to,
		"dispatched": held,
	}).Warn("Rider availability reconciled")
	rider.Availability = to
	return rider, nil
}

// ListRiders returns riders filtered by status for the admin console
func (e *Engine) ListRiders(ctx context.Context, p auth.Principal, status models.RiderStatus, page store.Page) ([]models.Rider, error) {
	if err := requireRole(p, auth.RoleAdmin); err != nil {
		return nil, err
	}
	riders, err := e.store.ListRiders(ctx, status, page)
	if err != nil {
		return nil, e.serverError(e.log.WithField("status", status), err, "Failed to list riders")
	}
	return riders, nil
}

func (e *Engine) findRider(ctx context.Context, riderID string) (*models.Rider, error) {
	if !models.IsID(riderID) {
		return nil, models.ErrRiderNotFound
	}
	rider, err := e.store.FindRiderByID(ctx, riderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, models.ErrRiderNotFound
	}
	if err != nil {
		return nil, e.serverError(e.log.WithField("rider_id", riderID), err, "Failed to load rider")
	}
	return rider, nil
}

// changeRiderStatus applies a conditional status change, mapping a lost
// precondition to onConflict
func (e *Engine) changeRiderStatus(ctx context.Context, change store.RiderStatusChange, onConflict error) (*models.Rider, error) {
	if !models.IsID(change.ID) {
		return nil, models.ErrRiderNotFound
	}
	rider, err := e.store.UpdateRiderStatus(ctx, change)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, models.ErrRiderNotFound
	case errors.Is(err, store.ErrConflict):
		return nil, onConflict
	case err != nil:
		return nil, e.serverError(e.log.WithField("rider_id", change.ID), err, "Failed to update rider status")
	}
	return rider, nil
}
