package controllers

import (
	"context"
	"net/http"

	"github.com/franciscosanchezn/gin-food-delivery-api/internal/auth"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/lifecycle"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/models"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/services"
	"github.com/gin-gonic/gin"
)

type deliveryActionURI struct {
	DeliveryID string `uri:"deliveryId" binding:"required,objectid"`
}

type availabilityURI struct {
	Status string `uri:"status" binding:"required"`
}

// RiderController serves riders: account, availability and the delivery lifecycle
type RiderController struct {
	accounts services.AccountService
	engine   *lifecycle.Engine
}

// NewRiderController creates a new instance of RiderController
func NewRiderController(accounts services.AccountService, engine *lifecycle.Engine) *RiderController {
	return &RiderController{accounts: accounts, engine: engine}
}

// Signup godoc
// @Summary Register a rider
// @Description The account starts PENDING and cannot log in until an admin approves it
// @Tags rider
// @Accept json
// @Produce json
// @Param rider body accountSignupRequest true "Rider"
// @Success 201 {object} Envelope
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v3/signup [post]
func (rc *RiderController) Signup(c *gin.Context) {
	var req accountSignupRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, bindingError(err))
		return
	}
	if _, err := rc.accounts.SignupRider(c.Request.Context(), req.input("")); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, http.StatusCreated, "rider created successfully")
}

// Login godoc
// @Summary Rider login
// @Tags rider
// @Accept json
// @Produce json
// @Param credentials body loginRequest true "Credentials"
// @Success 200 {object} Envelope "data holds riderDetails and riderToken"
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 406 {object} ErrorResponse
// @Router /api/v3/login [post]
func (rc *RiderController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindingError(err))
		return
	}

	res, err := rc.accounts.Login(c.Request.Context(), auth.RoleRider, req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{
		"riderDetails": res.Account,
		"riderToken":   res.Token,
		"expiresIn":    res.ExpiresIn,
	})
}

// GetRider godoc
// @Summary Current rider
// @Tags rider
// @Produce json
// @Success 200 {object} map[string]interface{} "success, riderDetails"
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /api/v3/get-rider [get]
func (rc *RiderController) GetRider(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	rider, err := rc.accounts.GetRider(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "riderDetails": rider})
}

// GetAllDeliveries godoc
// @Summary Deliveries held by the rider
// @Tags rider
// @Produce json
// @Success 200 {object} Envelope
// @Security BearerAuth
// @Router /api/v3/get-all-deliveries [get]
func (rc *RiderController) GetAllDeliveries(c *gin.Context) {
	rc.listDeliveries(c, rc.engine.ListRiderDeliveries)
}

// AvailableDeliveries godoc
// @Summary Deliveries waiting for a rider
// @Tags rider
// @Produce json
// @Success 200 {object} Envelope
// @Security BearerAuth
// @Router /api/v3/available-deliveries [get]
func (rc *RiderController) AvailableDeliveries(c *gin.Context) {
	rc.listDeliveries(c, rc.engine.ListAvailableDeliveries)
}

func (rc *RiderController) listDeliveries(c *gin.Context, list func(context.Context, auth.Principal) ([]models.Delivery, error)) {
	p, ok := principal(c)
	if !ok {
		return
	}
	deliveries, err := list(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"deliveries": deliveries})
}

// GetDelivery godoc
// @Summary Get a delivery
// @Description Riders see pending deliveries and the ones assigned to them
// @Tags rider
// @Produce json
// @Param id path string true "Delivery ID"
// @Success 200 {object} Envelope
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /api/v3/get-delivery/{id} [get]
func (rc *RiderController) GetDelivery(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var uri deliveryIDURI
	if err := c.ShouldBindUri(&uri); err != nil {
		respondError(c, bindingError(err))
		return
	}
	delivery, err := rc.engine.GetRiderDelivery(c.Request.Context(), p, uri.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"delivery": delivery})
}

// PickupDelivery godoc
// @Summary Pick up a pending delivery
// @Description The rider must be APPROVED and AVAILABLE. The rider becomes BUSY and the delivery DISPATCHED.
// @Tags rider
// @Produce json
// @Param deliveryId path string true "Delivery ID"
// @Success 200 {object} Envelope
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /api/v3/pickup-delivery/{deliveryId} [post]
func (rc *RiderController) PickupDelivery(c *gin.Context) {
	rc.deliveryAction(c, "delivery picked up", rc.engine.PickupDelivery)
}

// ConfirmDelivery godoc
// @Summary Confirm a dispatched delivery
// @Description Only the assigned rider may confirm. The rider becomes AVAILABLE again.
// @Tags rider
// @Produce json
// @Param deliveryId path string true "Delivery ID"
// @Success 200 {object} Envelope
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /api/v3/confirm-delivery/{deliveryId} [post]
func (rc *RiderController) ConfirmDelivery(c *gin.Context) {
	rc.deliveryAction(c, "delivery confirmed", rc.engine.ConfirmDelivery)
}

// ReportDeliveryFailure godoc
// @Summary Report a failed delivery
// @Description Only the assigned rider may report. The rider becomes AVAILABLE again.
// @Tags rider
// @Produce json
// @Param deliveryId path string true "Delivery ID"
// @Success 200 {object} Envelope
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /api/v3/report-delivery-failure/{deliveryId} [post]
func (rc *RiderController) ReportDeliveryFailure(c *gin.Context) {
	rc.deliveryAction(c, "delivery failure reported", rc.engine.ReportDeliveryFailure)
}

func (rc *RiderController) deliveryAction(c *gin.Context, message string, action func(context.Context, auth.Principal, string) (*models.Delivery, error)) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var uri deliveryActionURI
	if err := c.ShouldBindUri(&uri); err != nil {
		respondError(c, bindingError(err))
		return
	}
	delivery, err := action(c.Request.Context(), p, uri.DeliveryID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"message": message, "delivery": delivery})
}

// UpdateAvailability godoc
// @Summary Toggle availability
// @Description 1 sets AVAILABLE, any other value sets UNAVAILABLE. Rejected while BUSY.
// @Tags rider
// @Produce json
// @Param status path string true "Availability code"
// @Success 200 {object} Envelope
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /api/v3/update-availability/{status} [post]
func (rc *RiderController) UpdateAvailability(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var uri availabilityURI
	if err := c.ShouldBindUri(&uri); err != nil {
		respondError(c, bindingError(err))
		return
	}
	rider, err := rc.engine.UpdateAvailability(c.Request.Context(), p, uri.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"availability": rider.Availability})
}
