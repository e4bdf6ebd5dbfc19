package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/franciscosanchezn/gin-food-delivery-api/internal/auth"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/middleware"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Envelope is the body of every successful response
type Envelope struct {
	Success bool        `json:"success" example:"true"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse is the body of every failed response
type ErrorResponse struct {
	Success bool        `json:"success" example:"false"`
	Message string      `json:"message" example:"Food out of stock"`
	Code    string      `json:"code,omitempty" example:"1202"`
	Type    string      `json:"type,omitempty" example:"ORDER"`
	Details interface{} `json:"details,omitempty"`
}

func respondData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Envelope{Success: true, Data: data})
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, Envelope{Success: true, Message: message})
}

// respondError writes AppErrors as they are and hides everything else behind a 500
func respondError(c *gin.Context, err error) {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		logrus.WithError(err).WithField("path", c.Request.URL.Path).Error("Unhandled error")
		appErr = models.ErrServer
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(appErr.Status, ErrorResponse{
		Success: false,
		Message: appErr.Message,
		Code:    appErr.Code,
		Type:    appErr.Type,
		Details: appErr.Details,
	})
}

// principal returns the authenticated caller. The route table only mounts these
// handlers behind middleware.Authenticate, so a miss is a wiring error.
func principal(c *gin.Context) (auth.Principal, bool) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		respondError(c, models.ErrTokenInvalid)
	}
	return p, ok
}

// queryInt reads an integer query value; anything unparsable counts as zero.
func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return n
}

// HealthCheck godoc
// @Summary Health check
// @Description Reports that the API process is serving requests
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// NotFound answers requests that matched no route
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "route not found"})
}
