package controllers

import (
	"errors"
	"net/http"

	"github.com/franciscosanchezn/gin-food-delivery-api/internal/auth"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/lifecycle"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/services"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/upload"
	"github.com/gin-gonic/gin"
)

// accountSignupRequest is shared by user and rider registration
type accountSignupRequest struct {
	Email     string `json:"email" form:"email" binding:"required,email,max=255"`
	Firstname string `json:"firstname" form:"firstname" binding:"required,min=2,max=50"`
	Lastname  string `json:"lastname" form:"lastname" binding:"required,min=2,max=50"`
	Tel       string `json:"tel" form:"tel" binding:"required,numeric,max=20"`
	Address   string `json:"address" form:"address" binding:"required,max=255"`
	Password  string `json:"password" form:"password" binding:"required,min=8"`
}

func (r accountSignupRequest) input(photo string) services.SignupInput {
	return services.SignupInput{
		Email:        r.Email,
		Firstname:    r.Firstname,
		Lastname:     r.Lastname,
		Tel:          r.Tel,
		Address:      r.Address,
		Password:     r.Password,
		ProfilePhoto: photo,
	}
}

type createOrderRequest struct {
	FoodID          string `json:"foodId" binding:"required,objectid"`
	Quantity        int    `json:"quantity" binding:"required,gt=0"`
	DeliveryAddress string `json:"deliveryAddress" binding:"required,min=3,max=255"`
}

type orderIDQuery struct {
	ID string `form:"id" binding:"required,objectid"`
}

type deliveryIDURI struct {
	ID string `uri:"id" binding:"required,objectid"`
}

// UserController serves customers: account, ordering and delivery tracking
type UserController struct {
	accounts services.AccountService
	engine   *lifecycle.Engine
	uploads  *upload.Storage
}

// NewUserController creates a new instance of UserController
func NewUserController(accounts services.AccountService, engine *lifecycle.Engine, uploads *upload.Storage) *UserController {
	return &UserController{accounts: accounts, engine: engine, uploads: uploads}
}

// Signup godoc
// @Summary Register a user
// @Description Create a customer account. Accepts multipart form data with an optional jpeg/png photo.
// @Tags user
// @Accept multipart/form-data
// @Produce json
// @Param email formData string true "Email"
// @Param firstname formData string true "First name"
// @Param lastname formData string true "Last name"
// @Param tel formData string true "Phone number"
// @Param address formData string true "Address"
// @Param password formData string true "Password, at least 8 characters"
// @Param photo formData file false "Profile photo"
// @Success 201 {object} Envelope
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v2/signup [post]
func (uc *UserController) Signup(c *gin.Context) {
	var req accountSignupRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, bindingError(err))
		return
	}

	var photo string
	if fh, err := c.FormFile("photo"); err == nil {
		if photo, err = uc.uploads.SaveUserPhoto(fh); err != nil {
			respondError(c, err)
			return
		}
	} else if !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
		respondError(c, bindingError(err))
		return
	}

	if _, err := uc.accounts.SignupUser(c.Request.Context(), req.input(photo)); err != nil {
		uc.uploads.Remove(photo)
		respondError(c, err)
		return
	}
	respondMessage(c, http.StatusCreated, "User created successfully")
}

// Login godoc
// @Summary User login
// @Tags user
// @Accept json
// @Produce json
// @Param credentials body loginRequest true "Credentials"
// @Success 200 {object} map[string]interface{} "success, userDetails, userToken"
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 406 {object} ErrorResponse
// @Router /api/v2/login [post]
func (uc *UserController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindingError(err))
		return
	}

	res, err := uc.accounts.Login(c.Request.Context(), auth.RoleUser, req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"userDetails": res.Account,
		"userToken":   res.Token,
		"expiresIn":   res.ExpiresIn,
	})
}

// GetUser godoc
// @Summary Current user
// @Tags user
// @Produce json
// @Success 200 {object} map[string]interface{} "success, userDetails"
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /api/v2/get-user [get]
func (uc *UserController) GetUser(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	user, err := uc.accounts.GetUser(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "userDetails": user})
}

// CreateOrder godoc
// @Summary Place an order
// @Description Reserves stock, records the order at the current unit price and opens a PENDING delivery
// @Tags user
// @Accept json
// @Produce json
// @Param order body createOrderRequest true "Order"
// @Success 201 {object} Envelope
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /api/v2/create-order [post]
func (uc *UserController) CreateOrder(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindingError(err))
		return
	}

	order, delivery, err := uc.engine.CreateOrder(c.Request.Context(), p, lifecycle.CreateOrderInput{
		FoodID:          req.FoodID,
		Quantity:        req.Quantity,
		DeliveryAddress: req.DeliveryAddress,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, gin.H{"order": order, "delivery": delivery})
}

// GetDeliveryStatus godoc
// @Summary Track a delivery
// @Tags user
// @Produce json
// @Param id path string true "Delivery ID"
// @Success 200 {object} Envelope
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /api/v2/delivery-status/{id} [get]
func (uc *UserController) GetDeliveryStatus(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var uri deliveryIDURI
	if err := c.ShouldBindUri(&uri); err != nil {
		respondError(c, bindingError(err))
		return
	}
	delivery, err := uc.engine.GetDeliveryStatus(c.Request.Context(), p, uri.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"delivery": delivery})
}

// GetOrder godoc
// @Summary Get one of the caller's orders
// @Tags user
// @Produce json
// @Param id query string true "Order ID"
// @Success 200 {object} Envelope
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /api/v2/get-order [get]
func (uc *UserController) GetOrder(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var q orderIDQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, bindingError(err))
		return
	}
	order, err := uc.engine.GetOrder(c.Request.Context(), p, q.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"order": order})
}

// GetOrders godoc
// @Summary Latest orders of the caller
// @Description Up to 10 orders, newest first, with the ordered food attached
// @Tags user
// @Produce json
// @Success 200 {object} Envelope
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /api/v2/get-orders [get]
func (uc *UserController) GetOrders(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	orders, err := uc.engine.ListUserOrders(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Envelope{Success: true, Message: "user orders successfully retrieved", Data: orders})
}
