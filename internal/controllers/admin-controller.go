package controllers

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/franciscosanchezn/gin-food-delivery-api/internal/auth"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/lifecycle"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/models"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/services"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/store"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/upload"
	"github.com/gin-gonic/gin"
)

type adminSignupRequest struct {
	Email     string `json:"email" form:"email" binding:"required,email,max=255"`
	Firstname string `json:"firstname" form:"firstname" binding:"required,min=1,max=255"`
	Lastname  string `json:"lastname" form:"lastname" binding:"required,min=1,max=255"`
	Tel       string `json:"tel" form:"tel" binding:"omitempty,numeric,max=20"`
	Password  string `json:"password" form:"password" binding:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type riderIDRequest struct {
	RiderID string `json:"riderId" binding:"required,objectid"`
}

type foodIDQuery struct {
	ID string `form:"id" binding:"required,objectid"`
}

type foodIDURI struct {
	ID string `uri:"id" binding:"required,objectid"`
}

type createFoodRequest struct {
	Name               string  `form:"name" binding:"required,min=3,max=255"`
	Category           string  `form:"category" binding:"required,min=3,max=255"`
	Stock              int     `form:"stock" binding:"required,gt=0"`
	PriceInCents       int64   `form:"priceInCents" binding:"required,min=1"`
	DiscountPercentage float64 `form:"discountPercentage" binding:"min=0,max=100"`
}

type updateFoodRequest struct {
	Name               *string  `json:"name" form:"name" binding:"omitempty,min=3,max=255"`
	Category           *string  `json:"category" form:"category" binding:"omitempty,min=3,max=255"`
	PriceInCents       *int64   `json:"priceInCents" form:"priceInCents" binding:"omitempty,min=1"`
	DiscountPercentage *float64 `json:"discountPercentage" form:"discountPercentage" binding:"omitempty,min=0,max=100"`
	Restock            int      `json:"restock" form:"restock" binding:"min=0"`
}

// AdminController serves the back office: catalog management and rider administration
type AdminController struct {
	accounts services.AccountService
	catalog  services.CatalogService
	engine   *lifecycle.Engine
	uploads  *upload.Storage
}

// NewAdminController creates a new instance of AdminController
func NewAdminController(accounts services.AccountService, catalog services.CatalogService, engine *lifecycle.Engine, uploads *upload.Storage) *AdminController {
	return &AdminController{accounts: accounts, catalog: catalog, engine: engine, uploads: uploads}
}

// Signup godoc
// @Summary Register an admin
// @Description Create an admin account. Accepts multipart form data with an optional jpeg/png photo.
// @Tags admin
// @Accept multipart/form-data
// @Produce json
// @Param email formData string true "Email"
// @Param firstname formData string true "First name"
// @Param lastname formData string true "Last name"
// @Param tel formData string false "Phone number"
// @Param password formData string true "Password, at least 8 characters"
// @Param photo formData file false "Profile photo"
// @Success 201 {object} Envelope
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/signup [post]
func (ac *AdminController) Signup(c *gin.Context) {
	var req adminSignupRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, bindingError(err))
		return
	}

	var photo string
	if fh, err := c.FormFile("photo"); err == nil {
		if photo, err = ac.uploads.SaveAdminPhoto(fh, req.Firstname, req.Lastname); err != nil {
			respondError(c, err)
			return
		}
	} else if !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
		respondError(c, bindingError(err))
		return
	}

	_, err := ac.accounts.SignupAdmin(c.Request.Context(), services.SignupInput{
		Email:        req.Email,
		Firstname:    req.Firstname,
		Lastname:     req.Lastname,
		Tel:          req.Tel,
		Password:     req.Password,
		ProfilePhoto: photo,
	})
	if err != nil {
		ac.uploads.Remove(photo)
		respondError(c, err)
		return
	}
	respondMessage(c, http.StatusCreated, "Admin created successfully")
}

// Login godoc
// @Summary Admin login
// @Description Exchange admin credentials for a bearer token
// @Tags admin
// @Accept json
// @Produce json
// @Param credentials body loginRequest true "Credentials"
// @Success 200 {object} map[string]interface{} "success, adminDetails, adminToken"
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 406 {object} ErrorResponse
// @Router /api/v1/login [post]
func (ac *AdminController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindingError(err))
		return
	}

	res, err := ac.accounts.Login(c.Request.Context(), auth.RoleAdmin, req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"adminDetails": res.Account,
		"adminToken":   res.Token,
		"expiresIn":    res.ExpiresIn,
	})
}

// GetAdmin godoc
// @Summary Current admin
// @Tags admin
// @Produce json
// @Success 200 {object} map[string]interface{} "success, adminDetails"
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /api/v1/get-admin [get]
func (ac *AdminController) GetAdmin(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	admin, err := ac.accounts.GetAdmin(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "adminDetails": admin})
}

// CreateFood godoc
// @Summary Add a food to the catalog
// @Description Multipart form with the food fields and one to five jpeg/png images in images[]
// @Tags admin
// @Accept multipart/form-data
// @Produce json
// @Param name formData string true "Name"
// @Param category formData string true "Category"
// @Param stock formData int true "Initial stock"
// @Param priceInCents formData int true "Unit price in cents"
// @Param discountPercentage formData number false "Discount percentage"
// @Param images[] formData file true "Food images"
// @Success 201 {object} Envelope{data=models.Food}
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Security BearerAuth
// @Router /api/v1/create-food [post]
func (ac *AdminController) CreateFood(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req createFoodRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, bindingError(err))
		return
	}

	files := foodImages(c)
	if len(files) == 0 {
		respondError(c, models.ErrMissingImage)
		return
	}
	images, err := ac.uploads.SaveFoodImages(files)
	if err != nil {
		respondError(c, err)
		return
	}

	food, err := ac.catalog.CreateFood(c.Request.Context(), p, services.CreateFoodInput{
		Name:               req.Name,
		Category:           req.Category,
		Stock:              req.Stock,
		PriceInCents:       req.PriceInCents,
		DiscountPercentage: req.DiscountPercentage,
		Images:             images,
	})
	if err != nil {
		ac.uploads.Remove(images...)
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, food)
}

// UpdateFood godoc
// @Summary Update a food
// @Description Change any catalog field. restock is added to the current stock and new images are appended.
// @Tags admin
// @Accept json,multipart/form-data
// @Produce json
// @Param id path string true "Food ID"
// @Param food body updateFoodRequest true "Fields to change"
// @Success 200 {object} Envelope{data=models.Food}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Security BearerAuth
// @Router /api/v1/update-food/{id} [put]
func (ac *AdminController) UpdateFood(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var uri foodIDURI
	if err := c.ShouldBindUri(&uri); err != nil {
		respondError(c, bindingError(err))
		return
	}
	var req updateFoodRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, bindingError(err))
		return
	}

	images, err := ac.uploads.SaveFoodImages(foodImages(c))
	if err != nil {
		respondError(c, err)
		return
	}

	food, err := ac.catalog.UpdateFood(c.Request.Context(), p, uri.ID, services.UpdateFoodInput{
		Name:               req.Name,
		Category:           req.Category,
		PriceInCents:       req.PriceInCents,
		DiscountPercentage: req.DiscountPercentage,
		Restock:            req.Restock,
		Images:             images,
	})
	if err != nil {
		ac.uploads.Remove(images...)
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, food)
}

// DeleteFood godoc
// @Summary Delete a food
// @Tags admin
// @Produce json
// @Param id query string true "Food ID"
// @Success 200 {object} Envelope
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /api/v1/delete-food [delete]
func (ac *AdminController) DeleteFood(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var q foodIDQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, bindingError(err))
		return
	}
	if err := ac.catalog.DeleteFood(c.Request.Context(), p, q.ID); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "food deleted")
}

// ApproveRider godoc
// @Summary Approve a pending rider
// @Tags admin
// @Accept json
// @Produce json
// @Param rider body riderIDRequest true "Rider to approve"
// @Success 201 {object} Envelope
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /api/v1/approve-rider [put]
func (ac *AdminController) ApproveRider(c *gin.Context) {
	ac.riderAction(c, http.StatusCreated, "rider approved", ac.engine.ApproveRider)
}

// SuspendRider godoc
// @Summary Suspend an approved rider
// @Description Rejected while the rider holds a dispatched delivery
// @Tags admin
// @Accept json
// @Produce json
// @Param rider body riderIDRequest true "Rider to suspend"
// @Success 200 {object} Envelope
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /api/v1/suspend-rider [post]
func (ac *AdminController) SuspendRider(c *gin.Context) {
	ac.riderAction(c, http.StatusOK, "rider suspended", ac.engine.SuspendRider)
}

// UnsuspendRider godoc
// @Summary Lift a rider suspension
// @Tags admin
// @Accept json
// @Produce json
// @Param rider body riderIDRequest true "Rider to reinstate"
// @Success 200 {object} Envelope
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /api/v1/unsuspend-rider [post]
func (ac *AdminController) UnsuspendRider(c *gin.Context) {
	ac.riderAction(c, http.StatusOK, "rider reinstated", ac.engine.UnsuspendRider)
}

// ReconcileRider godoc
// @Summary Repair rider availability
// @Description Sets BUSY when the rider holds a dispatched delivery and frees a BUSY rider that holds none
// @Tags admin
// @Accept json
// @Produce json
// @Param rider body riderIDRequest true "Rider to reconcile"
// @Success 200 {object} Envelope
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /api/v1/reconcile-rider [put]
func (ac *AdminController) ReconcileRider(c *gin.Context) {
	ac.riderAction(c, http.StatusOK, "rider reconciled", ac.engine.ReconcileRider)
}

type riderActionFunc func(ctx context.Context, p auth.Principal, riderID string) (*models.Rider, error)

func (ac *AdminController) riderAction(c *gin.Context, status int, message string, action riderActionFunc) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req riderIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindingError(err))
		return
	}
	rider, err := action(c.Request.Context(), p, req.RiderID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, status, gin.H{"message": message, "rider": rider})
}

// PendingRiders godoc
// @Summary Riders awaiting approval
// @Tags admin
// @Produce json
// @Param page query int false "Zero based page"
// @Param limit query int false "Page size, default 20"
// @Success 200 {object} Envelope
// @Security BearerAuth
// @Router /api/v1/pending-riders [get]
func (ac *AdminController) PendingRiders(c *gin.Context) {
	ac.listRiders(c, models.RiderPending)
}

// ListRiders godoc
// @Summary List riders
// @Tags admin
// @Produce json
// @Param status query string false "PENDING, APPROVED or DISABLED"
// @Param page query int false "Zero based page"
// @Param limit query int false "Page size, default 20"
// @Success 200 {object} Envelope
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /api/v1/riders [get]
func (ac *AdminController) ListRiders(c *gin.Context) {
	status := models.RiderStatus(c.Query("status"))
	switch status {
	case "", models.RiderPending, models.RiderApproved, models.RiderDisabled:
	default:
		respondError(c, models.NewValidationError([]string{"'status' field must be one of: PENDING APPROVED DISABLED"}))
		return
	}
	ac.listRiders(c, status)
}

func (ac *AdminController) listRiders(c *gin.Context, status models.RiderStatus) {
	p, ok := principal(c)
	if !ok {
		return
	}
	page := store.NewPage(queryInt(c, "page"), queryInt(c, "limit"))
	riders, err := ac.engine.ListRiders(c.Request.Context(), p, status, page)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"riders": riders, "page": page.Page, "limit": page.Limit})
}

// foodImages returns the uploaded food images, accepting both images[] and images
func foodImages(c *gin.Context) []*multipart.FileHeader {
	form, err := c.MultipartForm()
	if err != nil {
		return nil
	}
	files := form.File["images[]"]
	return append(files, form.File["images"]...)
}
