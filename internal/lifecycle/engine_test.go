package lifecycle

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/franciscosanchezn/gin-food-delivery-api/internal/auth"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/metrics"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/models"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/store"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/store/storetest"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errInjected = errors.New("injected fault")

// faultyStore fails selected writes to exercise the compensation paths
type faultyStore struct {
	store.Store
	failCreateDelivery bool
	failTransition     bool
	// swapsBeforeFailure > 0 lets that many SwapRiderAvailability calls through
	// and fails the rest
	swapsBeforeFailure int
	swapCalls          int
}

func (f *faultyStore) CreateDelivery(ctx context.Context, d *models.Delivery) error {
	if f.failCreateDelivery {
		return errInjected
	}
	return f.Store.CreateDelivery(ctx, d)
}

func (f *faultyStore) TransitionDelivery(ctx context.Context, t store.DeliveryTransition) (*models.Delivery, error) {
	if f.failTransition {
		return nil, errInjected
	}
	return f.Store.TransitionDelivery(ctx, t)
}

func (f *faultyStore) SwapRiderAvailability(ctx context.Context, id string, from []models.Availability, to models.Availability, count bool) error {
	f.swapCalls++
	if f.swapsBeforeFailure > 0 && f.swapCalls > f.swapsBeforeFailure {
		return errInjected
	}
	return f.Store.SwapRiderAvailability(ctx, id, from, to, count)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func setupEngine(t *testing.T) (*Engine, *store.GormStore) {
	t.Helper()
	s := storetest.NewSQLite(t)
	return NewEngine(s, metrics.New(), quietLogger()), s
}

func seedFood(t *testing.T, s store.Store, stock int, price int64) *models.Food {
	t.Helper()
	food := &models.Food{
		Name:         "food-" + models.NewID(),
		Category:     "mains",
		Stock:        stock,
		PriceInCents: price,
		Images:       []string{"/images/food/x.png"},
	}
	require.NoError(t, s.CreateFood(context.Background(), food))
	return food
}

func seedUser(t *testing.T, s store.Store) auth.Principal {
	t.Helper()
	user := &models.User{
		Email:        models.NewID() + "@users.test",
		Firstname:    "Ada",
		Lastname:     "User",
		Tel:          models.NewID(),
		Address:      "12 Market St",
		PasswordHash: "hash",
	}
	require.NoError(t, s.CreateUser(context.Background(), user))
	return auth.Principal{ID: user.ID, Email: user.Email, Role: auth.RoleUser}
}

func seedRider(t *testing.T, s store.Store, status models.RiderStatus, availability models.Availability) auth.Principal {
	t.Helper()
	rider := &models.Rider{
		Email:        models.NewID() + "@riders.test",
		Firstname:    "Rin",
		Lastname:     "Rider",
		Tel:          models.NewID(),
		Address:      "3 Depot Rd",
		PasswordHash: "hash",
		Status:       status,
		Availability: availability,
	}
	require.NoError(t, s.CreateRider(context.Background(), rider))
	return auth.Principal{ID: rider.ID, Email: rider.Email, Role: auth.RoleRider}
}

func adminPrincipal() auth.Principal {
	return auth.Principal{ID: models.NewID(), Email: "admin@test", Role: auth.RoleAdmin}
}

func placeOrder(t *testing.T, e *Engine, s store.Store) *models.Delivery {
	t.Helper()
	food := seedFood(t, s, 10, 1200)
	_, delivery, err := e.CreateOrder(context.Background(), seedUser(t, s), CreateOrderInput{
		FoodID: food.ID, Quantity: 1, DeliveryAddress: "1 Home Way",
	})
	require.NoError(t, err)
	return delivery
}

// assertBusyInvariant checks BUSY <=> holding a DISPATCHED delivery
func assertBusyInvariant(t *testing.T, s store.Store, riderID string) {
	t.Helper()
	rider, err := s.FindRiderByID(context.Background(), riderID)
	require.NoError(t, err)
	held, err := s.CountDeliveries(context.Background(), riderID, models.DeliveryDispatched)
	require.NoError(t, err)
	assert.Equal(t, held == 1, rider.Availability == models.Busy,
		"availability %s with %d dispatched deliveries", rider.Availability, held)
	assert.LessOrEqual(t, held, int64(1))
}

func TestCreateOrder(t *testing.T) {
	e, s := setupEngine(t)
	ctx := context.Background()
	food := seedFood(t, s, 5, 750)
	user := seedUser(t, s)

	order, delivery, err := e.CreateOrder(ctx, user, CreateOrderInput{
		FoodID: food.ID, Quantity: 2, DeliveryAddress: "  7 Lagoon Ave ",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(750), order.PricePaidInCents)
	assert.Equal(t, user.ID, order.OrderBy)
	assert.Equal(t, "7 Lagoon Ave", order.DeliveryAddress)
	assert.Equal(t, order.ID, delivery.OrderID)
	assert.Equal(t, models.DeliveryPending, delivery.Status)
	assert.Nil(t, delivery.RiderID)

	stored, err := s.FindFoodByID(ctx, food.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Stock)

	account, err := s.FindUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, account.Orders)
}

func TestCreateOrderFailures(t *testing.T) {
	e, s := setupEngine(t)
	ctx := context.Background()
	food := seedFood(t, s, 1, 500)
	user := seedUser(t, s)

	testCases := []struct {
		name      string
		principal auth.Principal
		input     CreateOrderInput
		expected  error
	}{
		{"unknown food", user, CreateOrderInput{FoodID: models.NewID(), Quantity: 1, DeliveryAddress: "x"}, models.ErrFoodNotFound},
		{"more than stock", user, CreateOrderInput{FoodID: food.ID, Quantity: 2, DeliveryAddress: "x"}, models.ErrOutOfStock},
		{"zero quantity", user, CreateOrderInput{FoodID: food.ID, Quantity: 0, DeliveryAddress: "x"}, models.NewValidationError(nil)},
		{"missing address", user, CreateOrderInput{FoodID: food.ID, Quantity: 1, DeliveryAddress: " "}, models.NewValidationError(nil)},
		{"rider cannot order", auth.Principal{ID: models.NewID(), Role: auth.RoleRider}, CreateOrderInput{FoodID: food.ID, Quantity: 1, DeliveryAddress: "x"}, models.ErrWrongRole},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := e.CreateOrder(ctx, tt.principal, tt.input)
			assert.ErrorIs(t, err, tt.expected)
		})
	}

	// no failed attempt touched the stock
	stored, err := s.FindFoodByID(ctx, food.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Stock)
}

func TestConcurrentOrdersForLastUnit(t *testing.T) {
	e, s := setupEngine(t)
	ctx := context.Background()
	food := seedFood(t, s, 1, 500)
	users := []auth.Principal{seedUser(t, s), seedUser(t, s)}

	type result struct {
		order    *models.Order
		delivery *models.Delivery
		err      error
	}
	results := make(chan result, len(users))
	var wg sync.WaitGroup
	for _, u := range users {
		wg.Add(1)
		go func(u auth.Principal) {
			defer wg.Done()
			o, d, err := e.CreateOrder(ctx, u, CreateOrderInput{FoodID: food.ID, Quantity: 1, DeliveryAddress: "x"})
			results <- result{o, d, err}
		}(u)
	}
	wg.Wait()
	close(results)

	var succeeded, outOfStock int
	for r := range results {
		if r.err == nil {
			succeeded++
			assert.Equal(t, int64(500), r.order.PricePaidInCents)
			assert.Equal(t, models.DeliveryPending, r.delivery.Status)
			continue
		}
		require.ErrorIs(t, r.err, models.ErrOutOfStock)
		outOfStock++
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, outOfStock)

	stored, err := s.FindFoodByID(ctx, food.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Stock)
}

func TestConcurrentOrdersNeverOversell(t *testing.T) {
	e, s := setupEngine(t)
	ctx := context.Background()
	food := seedFood(t, s, 5, 300)
	user := seedUser(t, s)

	var wg sync.WaitGroup
	var mu sync.Mutex
	reserved := 0
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := e.CreateOrder(ctx, user, CreateOrderInput{FoodID: food.ID, Quantity: 1, DeliveryAddress: "x"})
			if err == nil {
				mu.Lock()
				reserved++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, models.ErrOutOfStock)
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, reserved)
	stored, err := s.FindFoodByID(ctx, food.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Stock)
}

func TestPricePaidIsSnapshot(t *testing.T) {
	e, s := setupEngine(t)
	ctx := context.Background()
	food := seedFood(t, s, 3, 500)
	user := seedUser(t, s)

	order, _, err := e.CreateOrder(ctx, user, CreateOrderInput{FoodID: food.ID, Quantity: 1, DeliveryAddress: "x"})
	require.NoError(t, err)

	newPrice := int64(900)
	_, err = s.UpdateFood(ctx, food.ID, store.FoodUpdate{PriceInCents: &newPrice})
	require.NoError(t, err)

	readBack, err := e.GetOrder(ctx, user, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), readBack.PricePaidInCents)
}

func TestCreateOrderPartialOrder(t *testing.T) {
	base := storetest.NewSQLite(t)
	faulty := &faultyStore{Store: base, failCreateDelivery: true}
	e := NewEngine(faulty, metrics.New(), quietLogger())
	ctx := context.Background()
	food := seedFood(t, base, 2, 500)
	user := seedUser(t, base)

	_, _, err := e.CreateOrder(ctx, user, CreateOrderInput{FoodID: food.ID, Quantity: 1, DeliveryAddress: "x"})
	require.ErrorIs(t, err, models.ErrPartialOrder)

	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, models.KindPartialOrder, appErr.Kind)
	details := appErr.Details.(map[string]interface{})
	assert.Equal(t, true, details["rolledBack"])

	_, err = base.FindOrderByID(ctx, details["orderId"].(string))
	assert.ErrorIs(t, err, store.ErrNotFound)

	stored, err := base.FindFoodByID(ctx, food.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Stock)
}

func TestPickupAndConfirm(t *testing.T) {
	e, s := setupEngine(t)
	ctx := context.Background()
	delivery := placeOrder(t, e, s)
	rider := seedRider(t, s, models.RiderApproved, models.Available)

	dispatched, err := e.PickupDelivery(ctx, rider, delivery.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryDispatched, dispatched.Status)
	assert.True(t, dispatched.AssignedTo(rider.ID))
	assertBusyInvariant(t, s, rider.ID)

	stored, err := s.FindRiderByID(ctx, rider.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Busy, stored.Availability)

	delivered, err := e.ConfirmDelivery(ctx, rider, delivery.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryDelivered, delivered.Status)
	assertBusyInvariant(t, s, rider.ID)

	stored, err = s.FindRiderByID(ctx, rider.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Available, stored.Availability)
	assert.Equal(t, 1, stored.Deliveries)
}

func TestReportFailureFreesRider(t *testing.T) {
	e, s := setupEngine(t)
	ctx := context.Background()
	delivery := placeOrder(t, e, s)
	rider := seedRider(t, s, models.RiderApproved, models.Available)

	_, err := e.PickupDelivery(ctx, rider, delivery.ID)
	require.NoError(t, err)

	failed, err := e.ReportDeliveryFailure(ctx, rider, delivery.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryFailed, failed.Status)
	assertBusyInvariant(t, s, rider.ID)

	stored, err := s.FindRiderByID(ctx, rider.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Available, stored.Availability)
	assert.Equal(t, 0, stored.Deliveries)
}

func TestTerminalDeliveriesCannotMove(t *testing.T) {
	e, s := setupEngine(t)
	ctx := context.Background()
	delivery := placeOrder(t, e, s)
	rider := seedRider(t, s, models.RiderApproved, models.Available)

	_, err := e.PickupDelivery(ctx, rider, delivery.ID)
	require.NoError(t, err)
	_, err = e.ConfirmDelivery(ctx, rider, delivery.ID)
	require.NoError(t, err)

	_, err = e.ConfirmDelivery(ctx, rider, delivery.ID)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
	_, err = e.ReportDeliveryFailure(ctx, rider, delivery.ID)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
	_, err = e.PickupDelivery(ctx, rider, delivery.ID)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	stored, err := s.FindDeliveryByID(ctx, delivery.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryDelivered, stored.Status)

	// confirming twice must not free the rider twice or count twice
	r, err := s.FindRiderByID(ctx, rider.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Deliveries)
}

func TestResolvePendingDeliveryIsInvalid(t *testing.T) {
	e, s := setupEngine(t)
	delivery := placeOrder(t, e, s)
	rider := seedRider(t, s, models.RiderApproved, models.Available)

	_, err := e.ConfirmDelivery(context.Background(), rider, delivery.ID)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestOnlyAssignedRiderResolves(t *testing.T) {
	e, s := setupEngine(t)
	ctx := context.Background()
	delivery := placeOrder(t, e, s)
	holder := seedRider(t, s, models.RiderApproved, models.Available)
	other := seedRider(t, s, models.RiderApproved, models.Available)

	_, err := e.PickupDelivery(ctx, holder, delivery.ID)
	require.NoError(t, err)

	_, err = e.ConfirmDelivery(ctx, other, delivery.ID)
	assert.ErrorIs(t, err, models.ErrNotAssignedRider)
	assertBusyInvariant(t, s, holder.ID)
	assertBusyInvariant(t, s, other.ID)
}

func TestPickupPreconditions(t *testing.T) {
	e, s := setupEngine(t)
	ctx := context.Background()
	delivery := placeOrder(t, e, s)

	unavailable := seedRider(t, s, models.RiderApproved, models.Unavailable)
	_, err := e.PickupDelivery(ctx, unavailable, delivery.ID)
	assert.ErrorIs(t, err, models.ErrRiderNotAvailable)

	busy := seedRider(t, s, models.RiderApproved, models.Busy)
	_, err = e.PickupDelivery(ctx, busy, delivery.ID)
	assert.ErrorIs(t, err, models.ErrRiderNotAvailable)

	pending := seedRider(t, s, models.RiderPending, models.Available)
	_, err = e.PickupDelivery(ctx, pending, delivery.ID)
	assert.ErrorIs(t, err, models.ErrRiderNotApproved)

	disabled := seedRider(t, s, models.RiderDisabled, models.Available)
	_, err = e.PickupDelivery(ctx, disabled, delivery.ID)
	assert.ErrorIs(t, err, models.ErrRiderDisabled)

	ready := seedRider(t, s, models.RiderApproved, models.Available)
	_, err = e.PickupDelivery(ctx, ready, models.NewID())
	assert.ErrorIs(t, err, models.ErrDeliveryNotFound)
	_, err = e.PickupDelivery(ctx, ready, "not-an-id")
	assert.ErrorIs(t, err, models.ErrDeliveryNotFound)

	stored, err := s.FindDeliveryByID(ctx, delivery.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryPending, stored.Status)
}

func TestConcurrentPickupSameDelivery(t *testing.T) {
	e, s := setupEngine(t)
	ctx := context.Background()
	delivery := placeOrder(t, e, s)
	riders := []auth.Principal{
		seedRider(t, s, models.RiderApproved, models.Available),
		seedRider(t, s, models.RiderApproved, models.Available),
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(riders))
	for _, r := range riders {
		wg.Add(1)
		go func(r auth.Principal) {
			defer wg.Done()
			_, err := e.PickupDelivery(ctx, r, delivery.ID)
			errs <- err
		}(r)
	}
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		assert.ErrorIs(t, err, models.ErrInvalidTransition)
	}
	assert.Equal(t, 1, success)
	for _, r := range riders {
		assertBusyInvariant(t, s, r.ID)
	}
}

func TestPickupCompensatesRider(t *testing.T) {
	base := storetest.NewSQLite(t)
	faulty := &faultyStore{Store: base}
	e := NewEngine(faulty, metrics.New(), quietLogger())
	ctx := context.Background()
	delivery := placeOrder(t, e, base)
	rider := seedRider(t, base, models.RiderApproved, models.Available)

	faulty.failTransition = true
	_, err := e.PickupDelivery(ctx, rider, delivery.ID)
	assert.ErrorIs(t, err, models.ErrServer)

	stored, err := base.FindRiderByID(ctx, rider.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Available, stored.Availability)
	assertBusyInvariant(t, base, rider.ID)
}

func TestPickupReportsPartialTransition(t *testing.T) {
	base := storetest.NewSQLite(t)
	faulty := &faultyStore{Store: base}
	e := NewEngine(faulty, metrics.New(), quietLogger())
	ctx := context.Background()
	delivery := placeOrder(t, e, base)
	rider := seedRider(t, base, models.RiderApproved, models.Available)

	// the claim goes through, the delivery write and the release both fail
	faulty.failTransition = true
	faulty.swapsBeforeFailure = 1
	_, err := e.PickupDelivery(ctx, rider, delivery.ID)
	require.ErrorIs(t, err, models.ErrPartialTransition)

	// an admin can repair the rider afterwards
	faulty.failTransition = false
	faulty.swapsBeforeFailure = 0
	repaired, err := e.ReconcileRider(ctx, adminPrincipal(), rider.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Available, repaired.Availability)
	assertBusyInvariant(t, base, rider.ID)
}

func TestResolveReportsPartialTransition(t *testing.T) {
	base := storetest.NewSQLite(t)
	faulty := &faultyStore{Store: base}
	e := NewEngine(faulty, metrics.New(), quietLogger())
	ctx := context.Background()
	delivery := placeOrder(t, e, base)
	rider := seedRider(t, base, models.RiderApproved, models.Available)

	_, err := e.PickupDelivery(ctx, rider, delivery.ID)
	require.NoError(t, err)

	faulty.swapsBeforeFailure = faulty.swapCalls
	_, err = e.ConfirmDelivery(ctx, rider, delivery.ID)
	require.ErrorIs(t, err, models.ErrPartialTransition)

	faulty.swapsBeforeFailure = 0
	repaired, err := e.ReconcileRider(ctx, adminPrincipal(), rider.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Available, repaired.Availability)
	assertBusyInvariant(t, base, rider.ID)
}

func TestReadOperationsScopeToCaller(t *testing.T) {
	e, s := setupEngine(t)
	ctx := context.Background()
	food := seedFood(t, s, 5, 400)
	owner := seedUser(t, s)
	stranger := seedUser(t, s)

	order, delivery, err := e.CreateOrder(ctx, owner, CreateOrderInput{FoodID: food.ID, Quantity: 1, DeliveryAddress: "x"})
	require.NoError(t, err)

	_, err = e.GetOrder(ctx, stranger, order.ID)
	assert.ErrorIs(t, err, models.ErrOrderNotFound)
	_, err = e.GetDeliveryStatus(ctx, stranger, delivery.ID)
	assert.ErrorIs(t, err, models.ErrDeliveryNotFound)

	status, err := e.GetDeliveryStatus(ctx, owner, delivery.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryPending, status.Status)

	orders, err := e.ListUserOrders(ctx, owner)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.NotNil(t, orders[0].Food)
	assert.Equal(t, food.Name, orders[0].Food.Name)

	_, err = e.ListUserOrders(ctx, stranger)
	assert.ErrorIs(t, err, models.ErrNoOrders)

	rider := seedRider(t, s, models.RiderApproved, models.Available)
	available, err := e.ListAvailableDeliveries(ctx, rider)
	require.NoError(t, err)
	require.Len(t, available, 1)

	_, err = e.PickupDelivery(ctx, rider, delivery.ID)
	require.NoError(t, err)

	mine, err := e.ListRiderDeliveries(ctx, rider)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	otherRider := seedRider(t, s, models.RiderApproved, models.Available)
	_, err = e.GetRiderDelivery(ctx, otherRider, delivery.ID)
	assert.ErrorIs(t, err, models.ErrDeliveryNotFound)
	got, err := e.GetRiderDelivery(ctx, rider, delivery.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryDispatched, got.Status)
}
