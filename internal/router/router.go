// Package router mounts the admin, user, rider and general APIs on one gin engine.
package router

import (
	"fmt"

	"github.com/franciscosanchezn/gin-food-delivery-api/internal/auth"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/config"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/controllers"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/lifecycle"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/metrics"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/middleware"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/services"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/upload"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Dependencies are the collaborators the handlers are built from
type Dependencies struct {
	Config   *config.Config
	Accounts services.AccountService
	Catalog  services.CatalogService
	Engine   *lifecycle.Engine
	Uploads  *upload.Storage
	Tokens   *auth.TokenManager
	Metrics  *metrics.Collectors
	Log      *logrus.Logger
}

// New builds the gin engine with every route of the API
func New(deps Dependencies) (*gin.Engine, error) {
	if err := controllers.RegisterValidations(); err != nil {
		return nil, fmt.Errorf("failed to register request validations: %w", err)
	}
	if deps.Log == nil {
		deps.Log = logrus.StandardLogger()
	}
	cfg := deps.Config

	router := gin.New()
	router.MaxMultipartMemory = int64(cfg.MaxUploadMB) << 20
	router.Use(
		middleware.Recovery(deps.Log),
		middleware.RequestLogger(deps.Log),
		middleware.CORS(cfg.CORSAllowedOrigin),
		deps.Metrics.Middleware(),
	)

	router.GET("/health", controllers.HealthCheck)
	router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.Static("/images", deps.Uploads.Root())
	router.NoRoute(controllers.NotFound)

	setupGeneralRoutes(router.Group(cfg.GeneralAPIPrefix), controllers.NewGeneralController(deps.Catalog))
	setupAdminRoutes(router.Group(cfg.AdminAPIPrefix), deps,
		controllers.NewAdminController(deps.Accounts, deps.Catalog, deps.Engine, deps.Uploads))
	setupUserRoutes(router.Group(cfg.UserAPIPrefix), deps,
		controllers.NewUserController(deps.Accounts, deps.Engine, deps.Uploads))
	setupRiderRoutes(router.Group(cfg.RiderAPIPrefix), deps,
		controllers.NewRiderController(deps.Accounts, deps.Engine))

	return router, nil
}

func setupGeneralRoutes(api *gin.RouterGroup, gc *controllers.GeneralController) {
	api.GET("/get-foods", gc.GetFoods)
	api.GET("/food/:id", gc.GetFood)
}

func setupAdminRoutes(api *gin.RouterGroup, deps Dependencies, ac *controllers.AdminController) {
	api.POST("/signup", ac.Signup)
	api.POST("/login", ac.Login)

	protected := api.Group("")
	protected.Use(middleware.Authenticate(deps.Tokens), middleware.RequireRole(auth.RoleAdmin))
	{
		protected.GET("/get-admin", ac.GetAdmin)
		protected.POST("/create-food", ac.CreateFood)
		protected.PUT("/update-food/:id", ac.UpdateFood)
		protected.DELETE("/delete-food", ac.DeleteFood)
		protected.PUT("/approve-rider", ac.ApproveRider)
		protected.GET("/pending-riders", ac.PendingRiders)
		protected.GET("/riders", ac.ListRiders)
		protected.POST("/suspend-rider", ac.SuspendRider)
		protected.POST("/unsuspend-rider", ac.UnsuspendRider)
		protected.PUT("/reconcile-rider", ac.ReconcileRider)
	}
}

func setupUserRoutes(api *gin.RouterGroup, deps Dependencies, uc *controllers.UserController) {
	api.POST("/signup", uc.Signup)
	api.POST("/login", uc.Login)

	protected := api.Group("")
	protected.Use(middleware.Authenticate(deps.Tokens), middleware.RequireRole(auth.RoleUser))
	{
		protected.GET("/get-user", uc.GetUser)
		protected.POST("/create-order", uc.CreateOrder)
		protected.GET("/delivery-status/:id", uc.GetDeliveryStatus)
		protected.GET("/get-order", uc.GetOrder)
		protected.GET("/get-orders", uc.GetOrders)
	}
}

func setupRiderRoutes(api *gin.RouterGroup, deps Dependencies, rc *controllers.RiderController) {
	api.POST("/signup", rc.Signup)
	api.POST("/login", rc.Login)

	protected := api.Group("")
	protected.Use(middleware.Authenticate(deps.Tokens), middleware.RequireRole(auth.RoleRider))
	{
		protected.GET("/get-rider", rc.GetRider)
		protected.GET("/get-all-deliveries", rc.GetAllDeliveries)
		protected.GET("/available-deliveries", rc.AvailableDeliveries)
		protected.GET("/get-delivery/:id", rc.GetDelivery)
		protected.POST("/pickup-delivery/:deliveryId", rc.PickupDelivery)
		protected.POST("/confirm-delivery/:deliveryId", rc.ConfirmDelivery)
		protected.POST("/report-delivery-failure/:deliveryId", rc.ReportDeliveryFailure)
		protected.POST("/update-availability/:status", rc.UpdateAvailability)
	}
}
