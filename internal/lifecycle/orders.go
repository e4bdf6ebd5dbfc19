package lifecycle

import (
	"context"
	"errors"
	"strings"

	"github.com/franciscosanchezn/gin-food-delivery-api/internal/auth"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/models"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/store"
	"github.com/sirupsen/logrus"
)

// CreateOrderInput is the validated body of an order request
type CreateOrderInput struct {
	FoodID          string
	Quantity        int
	DeliveryAddress string
}

// CreateOrder reserves stock and creates the order together with its PENDING delivery.
// The price paid is taken from the food as it was at reservation time.
func (e *Engine) CreateOrder(ctx context.Context, p auth.Principal, in CreateOrderInput) (*models.Order, *models.Delivery, error) {
	if err := requireRole(p, auth.RoleUser); err != nil {
		return nil, nil, err
	}
	var problems []string
	if !models.IsID(in.FoodID) {
		problems = append(problems, "foodId must be a valid id")
	}
	if in.Quantity < 1 {
		problems = append(problems, "quantity must be a positive integer")
	}
	if strings.TrimSpace(in.DeliveryAddress) == "" {
		problems = append(problems, "deliveryAddress is required")
	}
	if len(problems) > 0 {
		return nil, nil, models.NewValidationError(problems)
	}

	log := e.log.WithFields(logrus.Fields{
		"user_id":  p.ID,
		"food_id":  in.FoodID,
		"quantity": in.Quantity,
	})
	tx := newSaga(log, e.metrics)

	food, err := e.store.ReserveStock(ctx, in.FoodID, in.Quantity)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, nil, models.ErrFoodNotFound
	case errors.Is(err, store.ErrConflict):
		e.metrics.ReservationFailed("out_of_stock")
		return nil, nil, models.ErrOutOfStock
	case err != nil:
		return nil, nil, e.serverError(log, err, "Failed to reserve stock")
	}
	tx.onFailure("release_stock", func(ctx context.Context) error {
		return e.store.ReleaseStock(ctx, in.FoodID, in.Quantity)
	})

	if food.Stock < 0 {
		e.metrics.ReservationFailed("negative_stock")
		log.WithField("stock", food.Stock).Error("Reservation drove stock negative")
		tx.rollback(ctx)
		return nil, nil, models.ErrOutOfStock
	}

	order := &models.Order{
		FoodID:           food.ID,
		Quantity:         in.Quantity,
		OrderBy:          p.ID,
		PricePaidInCents: food.PriceInCents,
		DeliveryAddress:  strings.TrimSpace(in.DeliveryAddress),
	}
	if err := e.store.CreateOrder(ctx, order); err != nil {
		tx.rollback(ctx)
		return nil, nil, e.serverError(log, err, "Failed to create order")
	}
	tx.onFailure("delete_order", func(ctx context.Context) error {
		return e.store.DeleteOrder(ctx, order.ID)
	})
	log = log.WithField("order_id", order.ID)

	delivery := &models.Delivery{OrderID: order.ID, Status: models.DeliveryPending}
	if err := e.store.CreateDelivery(ctx, delivery); err != nil {
		log.WithError(err).Error("Failed to create delivery for order")
		rolledBack := tx.rollback(ctx)
		e.metrics.PartialFailure(string(models.KindPartialOrder))
		return nil, nil, models.ErrPartialOrder.WithDetails(map[string]interface{}{
			"orderId":    order.ID,
			"rolledBack": rolledBack,
		})
	}

	if err := e.store.IncrementUserOrders(ctx, p.ID); err != nil {
		log.WithError(err).Warn("Failed to increment user order count")
	}

	e.metrics.OrderCreated()
	log.WithFields(logrus.Fields{
		"delivery_id": delivery.ID,
		"stock_left":  food.Stock,
	}).Info("Order created")

	public := food.Public()
	order.Food = &public
	return order, delivery, nil
}

// GetOrder returns one of the caller's orders
func (e *Engine) GetOrder(ctx context.Context, p auth.Principal, orderID string) (*models.Order, error) {
	if err := requireRole(p, auth.RoleUser); err != nil {
		return nil, err
	}
	if !models.IsID(orderID) {
		return nil, models.ErrOrderNotFound
	}
	order, err := e.store.FindOrderByID(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, models.ErrOrderNotFound
	}
	if err != nil {
		return nil, e.serverError(e.log.WithField("order_id", orderID), err, "Failed to load order")
	}
	if order.OrderBy != p.ID {
		return nil, models.ErrOrderNotFound
	}
	return order, nil
}

// ListUserOrders returns the caller's most recent orders with their food attached
func (e *Engine) ListUserOrders(ctx context.Context, p auth.Principal) ([]models.Order, error) {
	if err := requireRole(p, auth.RoleUser); err != nil {
		return nil, err
	}
	orders, err := e.store.ListOrdersByUser(ctx, p.ID, UserOrdersLimit)
	if err != nil {
		return nil, e.serverError(e.log.WithField("user_id", p.ID), err, "Failed to list orders")
	}
	if len(orders) == 0 {
		return nil, models.ErrNoOrders
	}
	return orders, nil
}

// GetDeliveryStatus returns the delivery paired with one of the caller's orders
func (e *Engine) GetDeliveryStatus(ctx context.Context, p auth.Principal, deliveryID string) (*models.Delivery, error) {
	if err := requireRole(p, auth.RoleUser); err != nil {
		return nil, err
	}
	delivery, err := e.findDelivery(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	order, err := e.store.FindOrderByID(ctx, delivery.OrderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, models.ErrDeliveryNotFound
	}
	if err != nil {
		return nil, e.serverError(e.log.WithField("delivery_id", deliveryID), err, "Failed to load order for delivery")
	}
	if order.OrderBy != p.ID {
		return nil, models.ErrDeliveryNotFound
	}
	return delivery, nil
}

func (e *Engine) findDelivery(ctx context.Context, deliveryID string) (*models.Delivery, error) {
	if !models.IsID(deliveryID) {
		return nil, models.ErrDeliveryNotFound
	}
	delivery, err := e.store.FindDeliveryByID(ctx, deliveryID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, models.ErrDeliveryNotFound
	}
	if err != nil {
		return nil, e.serverError(e.log.WithField("delivery_id", deliveryID), err, "Failed to load delivery")
	}
	return delivery, nil
}
