package lifecycle

import (
	"context"
	"testing"

	"github.com/franciscosanchezn/gin-food-delivery-api/internal/models"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateAvailabilityCodes(t *testing.T) {
	e, s := setupEngine(t)
	ctx := context.Background()
	rider := seedRider(t, s, models.RiderApproved, models.Unavailable)

	testCases := []struct {
		code     string
		expected models.Availability
	}{
		{"1", models.Available},
		{"0", models.Unavailable},
		{"1", models.Available},
		{"7", models.Unavailable},
		{"available", models.Unavailable},
	}
	for _, tt := range testCases {
		updated, err := e.UpdateAvailability(ctx, rider, tt.code)
		require.NoError(t, err, "code %q", tt.code)
		assert.Equal(t, tt.expected, updated.Availability, "code %q", tt.code)

		stored, err := s.FindRiderByID(ctx, rider.ID)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, stored.Availability)
	}
}

func TestBusyRiderCannotToggleAvailability(t *testing.T) {
	e, s := setupEngine(t)
	ctx := context.Background()
	delivery := placeOrder(t, e, s)
	rider := seedRider(t, s, models.RiderApproved, models.Available)

	_, err := e.PickupDelivery(ctx, rider, delivery.ID)
	require.NoError(t, err)

	for _, code := range []string{"0", "1"} {
		_, err = e.UpdateAvailability(ctx, rider, code)
		assert.ErrorIs(t, err, models.ErrRiderBusy)
	}
	assertBusyInvariant(t, s, rider.ID)
}

func TestApproveRiderTwice(t *testing.T) {
	e, s := setupEngine(t)
	ctx := context.Background()
	rider := seedRider(t, s, models.RiderPending, models.Unavailable)
	admin := adminPrincipal()

	approved, err := e.ApproveRider(ctx, admin, rider.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RiderApproved, approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, admin.ID, *approved.ApprovedBy)
	require.NotNil(t, approved.ApprovedOn)
	firstApproval := *approved.ApprovedOn

	_, err = e.ApproveRider(ctx, adminPrincipal(), rider.ID)
	assert.ErrorIs(t, err, models.ErrApprovalNotNeeded)

	stored, err := s.FindRiderByID(ctx, rider.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RiderApproved, stored.Status)
	assert.Equal(t, admin.ID, *stored.ApprovedBy)
	assert.True(t, firstApproval.Equal(*stored.ApprovedOn))
}

func TestApproveRiderFailures(t *testing.T) {
	e, s := setupEngine(t)
	ctx := context.Background()
	rider := seedRider(t, s, models.RiderPending, models.Unavailable)

	_, err := e.ApproveRider(ctx, adminPrincipal(), models.NewID())
	assert.ErrorIs(t, err, models.ErrRiderNotFound)

	_, err = e.ApproveRider(ctx, rider, rider.ID)
	assert.ErrorIs(t, err, models.ErrWrongRole)
}

func TestSuspendAndUnsuspendRider(t *testing.T) {
	e, s := setupEngine(t)
	ctx := context.Background()
	admin := adminPrincipal()
	rider := seedRider(t, s, models.RiderApproved, models.Available)

	suspended, err := e.SuspendRider(ctx, admin, rider.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RiderDisabled, suspended.Status)
	assert.Equal(t, models.Unavailable, suspended.Availability)

	_, err = e.UpdateAvailability(ctx, rider, "1")
	assert.ErrorIs(t, err, models.ErrRiderDisabled)

	_, err = e.SuspendRider(ctx, admin, rider.ID)
	assert.ErrorIs(t, err, models.ErrSuspendNotAllowed)

	reinstated, err := e.UnsuspendRider(ctx, admin, rider.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RiderApproved, reinstated.Status)
	assert.Equal(t, models.Unavailable, reinstated.Availability)

	_, err = e.UnsuspendRider(ctx, admin, rider.ID)
	assert.ErrorIs(t, err, models.ErrSuspendNotAllowed)
}

func TestSuspendBusyRiderRefused(t *testing.T) {
	e, s := setupEngine(t)
	ctx := context.Background()
	delivery := placeOrder(t, e, s)
	rider := seedRider(t, s, models.RiderApproved, models.Available)

	_, err := e.PickupDelivery(ctx, rider, delivery.ID)
	require.NoError(t, err)

	_, err = e.SuspendRider(ctx, adminPrincipal(), rider.ID)
	assert.ErrorIs(t, err, models.ErrRiderBusy)
}

func TestReconcileRiderRestoresBusy(t *testing.T) {
	e, s := setupEngine(t)
	ctx := context.Background()
	delivery := placeOrder(t, e, s)
	rider := seedRider(t, s, models.RiderApproved, models.Available)

	_, err := e.PickupDelivery(ctx, rider, delivery.ID)
	require.NoError(t, err)

	// simulate a lost write leaving the rider AVAILABLE while holding the delivery
	require.NoError(t, s.SwapRiderAvailability(ctx, rider.ID, []models.Availability{models.Busy}, models.Available, false))

	repaired, err := e.ReconcileRider(ctx, adminPrincipal(), rider.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Busy, repaired.Availability)
	assertBusyInvariant(t, s, rider.ID)

	// already consistent, nothing changes
	again, err := e.ReconcileRider(ctx, adminPrincipal(), rider.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Busy, again.Availability)
}

func TestListRidersByStatus(t *testing.T) {
	e, s := setupEngine(t)
	ctx := context.Background()
	seedRider(t, s, models.RiderPending, models.Unavailable)
	seedRider(t, s, models.RiderPending, models.Unavailable)
	seedRider(t, s, models.RiderApproved, models.Available)

	pending, err := e.ListRiders(ctx, adminPrincipal(), models.RiderPending, store.Page{Limit: 20})
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	all, err := e.ListRiders(ctx, adminPrincipal(), "", store.Page{Limit: 20})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
