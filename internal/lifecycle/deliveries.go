package lifecycle

import (
	"context"
	"errors"

	"github.com/franciscosanchezn/gin-food-delivery-api/internal/auth"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/models"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/store"
	"github.com/sirupsen/logrus"
)

// AvailableDeliveriesLimit caps the PENDING deliveries offered to a rider
const AvailableDeliveriesLimit = 50

// PickupDelivery assigns a PENDING delivery to the calling rider and marks the
// rider BUSY. The rider is claimed first; if the delivery write then fails the
// rider is released again.
func (e *Engine) PickupDelivery(ctx context.Context, p auth.Principal, deliveryID string) (*models.Delivery, error) {
	rider, err := e.loadRider(ctx, p)
	if err != nil {
		return nil, err
	}
	delivery, err := e.findDelivery(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	if err := CanTransition(delivery.Status, models.DeliveryDispatched); err != nil {
		return nil, err
	}
	if rider.Availability != models.Available {
		return nil, models.ErrRiderNotAvailable
	}

	log := e.log.WithFields(logrus.Fields{
		"rider_id":    rider.ID,
		"delivery_id": delivery.ID,
	})
	tx := newSaga(log, e.metrics)

	err = e.store.SwapRiderAvailability(ctx, rider.ID, []models.Availability{models.Available}, models.Busy, false)
	switch {
	case errors.Is(err, store.ErrConflict):
		return nil, models.ErrRiderNotAvailable
	case errors.Is(err, store.ErrNotFound):
		return nil, models.ErrRiderNotFound
	case err != nil:
		return nil, e.serverError(log, err, "Failed to mark rider busy")
	}
	tx.onFailure("release_rider", func(ctx context.Context) error {
		return e.store.SwapRiderAvailability(ctx, rider.ID, []models.Availability{models.Busy}, models.Available, false)
	})

	dispatched, err := e.store.TransitionDelivery(ctx, store.DeliveryTransition{
		ID:      delivery.ID,
		From:    models.DeliveryPending,
		To:      models.DeliveryDispatched,
		RiderID: rider.ID,
		Assign:  true,
	})
	if err != nil {
		if !tx.rollback(ctx) {
			e.metrics.PartialFailure(string(models.KindPartialTransition))
			log.WithError(err).Error("Rider left BUSY without a dispatched delivery")
			return nil, models.ErrPartialTransition.WithDetails(map[string]interface{}{
				"deliveryId": delivery.ID,
				"riderId":    rider.ID,
			})
		}
		switch {
		case errors.Is(err, store.ErrConflict):
			return nil, models.ErrInvalidTransition.WithDetails("delivery was picked up by another rider")
		case errors.Is(err, store.ErrNotFound):
			return nil, models.ErrDeliveryNotFound
		default:
			return nil, e.serverError(log, err, "Failed to dispatch delivery")
		}
	}

	e.metrics.DeliveryTransitioned(string(models.DeliveryDispatched))
	log.Info("Delivery dispatched")
	return dispatched, nil
}

// ConfirmDelivery moves the caller's DISPATCHED delivery to DELIVERED
func (e *Engine) ConfirmDelivery(ctx context.Context, p auth.Principal, deliveryID string) (*models.Delivery, error) {
	return e.resolve(ctx, p, deliveryID, models.DeliveryDelivered)
}

// ReportDeliveryFailure moves the caller's DISPATCHED delivery to FAILED
func (e *Engine) ReportDeliveryFailure(ctx context.Context, p auth.Principal, deliveryID string) (*models.Delivery, error) {
	return e.resolve(ctx, p, deliveryID, models.DeliveryFailed)
}

// resolve applies a terminal transition and then frees the rider. Suspended
// riders may still resolve the delivery they hold.
func (e *Engine) resolve(ctx context.Context, p auth.Principal, deliveryID string, to models.DeliveryStatus) (*models.Delivery, error) {
	if err := requireRole(p, auth.RoleRider); err != nil {
		return nil, err
	}
	delivery, err := e.findDelivery(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	if err := CanTransition(delivery.Status, to); err != nil {
		return nil, err
	}
	if !delivery.AssignedTo(p.ID) {
		return nil, models.ErrNotAssignedRider
	}

	log := e.log.WithFields(logrus.Fields{
		"rider_id":    p.ID,
		"delivery_id": delivery.ID,
		"status":      to,
	})

	resolved, err := e.store.TransitionDelivery(ctx, store.DeliveryTransition{
		ID:      delivery.ID,
		From:    models.DeliveryDispatched,
		To:      to,
		RiderID: p.ID,
	})
	switch {
	case errors.Is(err, store.ErrConflict):
		return nil, models.ErrInvalidTransition.WithDetails("delivery was resolved by a concurrent request")
	case errors.Is(err, store.ErrNotFound):
		return nil, models.ErrDeliveryNotFound
	case err != nil:
		return nil, e.serverError(log, err, "Failed to resolve delivery")
	}
	e.metrics.DeliveryTransitioned(string(to))

	err = e.store.SwapRiderAvailability(ctx, p.ID, []models.Availability{models.Busy}, models.Available, to == models.DeliveryDelivered)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrConflict):
		// rider is already not BUSY, which matches holding no dispatched delivery
		log.Warn("Rider was not BUSY when its delivery was resolved")
	default:
		e.metrics.PartialFailure(string(models.KindPartialTransition))
		log.WithError(err).Error("Delivery resolved but rider availability not restored")
		return nil, models.ErrPartialTransition.WithDetails(map[string]interface{}{
			"deliveryId": delivery.ID,
			"riderId":    p.ID,
			"status":     to,
		})
	}

	log.Info("Delivery resolved")
	return resolved, nil
}

// GetRiderDelivery returns a delivery the rider may see: one still PENDING or
// one assigned to the rider
func (e *Engine) GetRiderDelivery(ctx context.Context, p auth.Principal, deliveryID string) (*models.Delivery, error) {
	if err := requireRole(p, auth.RoleRider); err != nil {
		return nil, err
	}
	delivery, err := e.findDelivery(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	if delivery.Status != models.DeliveryPending && !delivery.AssignedTo(p.ID) {
		return nil, models.ErrDeliveryNotFound
	}
	return delivery, nil
}

// ListRiderDeliveries returns every delivery ever assigned to the caller
func (e *Engine) ListRiderDeliveries(ctx context.Context, p auth.Principal) ([]models.Delivery, error) {
	if err := requireRole(p, auth.RoleRider); err != nil {
		return nil, err
	}
	deliveries, err := e.store.ListDeliveries(ctx, store.DeliveryFilter{RiderID: p.ID})
	if err != nil {
		return nil, e.serverError(e.log.WithField("rider_id", p.ID), err, "Failed to list deliveries")
	}
	return deliveries, nil
}

// ListAvailableDeliveries returns the oldest PENDING deliveries
func (e *Engine) ListAvailableDeliveries(ctx context.Context, p auth.Principal) ([]models.Delivery, error) {
	if err := requireRole(p, auth.RoleRider); err != nil {
		return nil, err
	}
	deliveries, err := e.store.ListDeliveries(ctx, store.DeliveryFilter{
		Status: models.DeliveryPending,
		Limit:  AvailableDeliveriesLimit,
	})
	if err != nil {
		return nil, e.serverError(e.log.WithField("rider_id", p.ID), err, "Failed to list pending deliveries")
	}
	return deliveries, nil
}
