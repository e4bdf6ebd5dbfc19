package controllers

import (
	"net/http"

	"github.com/franciscosanchezn/gin-food-delivery-api/internal/services"
	"github.com/gin-gonic/gin"
)

// GeneralController serves the public catalog
type GeneralController struct {
	catalog services.CatalogService
}

func NewGeneralController(catalog services.CatalogService) *GeneralController {
	return &GeneralController{catalog: catalog}
}

// GetFoods godoc
// @Summary Browse the catalog
// @Tags general
// @Produce json
// @Param page query int false "Zero based page"
// @Param limit query int false "Page size, default 20"
// @Success 200 {object} Envelope{data=services.FoodPage}
// @Router /api/get-foods [get]
func (gc *GeneralController) GetFoods(c *gin.Context) {
	page, err := gc.catalog.ListFoods(c.Request.Context(), queryInt(c, "page"), queryInt(c, "limit"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, page)
}

// GetFood godoc
// @Summary Get a food
// @Tags general
// @Produce json
// @Param id path string true "Food ID"
// @Success 200 {object} Envelope
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/food/{id} [get]
func (gc *GeneralController) GetFood(c *gin.Context) {
	var uri foodIDURI
	if err := c.ShouldBindUri(&uri); err != nil {
		respondError(c, bindingError(err))
		return
	}
	food, err := gc.catalog.GetFood(c.Request.Context(), uri.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"food": food})
}
