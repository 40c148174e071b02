package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/sawmill/services/mill/internal/models"
	"example.com/sawmill/services/mill/internal/services"
	"example.com/sawmill/services/mill/internal/tracing"
)

// CalculatorHandler handles board foot calculator HTTP requests
type CalculatorHandler struct {
	service *services.CalculatorService
	tracer  tracing.Tracer
}

// NewCalculatorHandler creates a new calculator handler
func NewCalculatorHandler(service *services.CalculatorService, tracer tracing.Tracer) *CalculatorHandler {
	return &CalculatorHandler{service: service, tracer: tracer}
}

// RegisterRoutes registers the handler's routes
func (h *CalculatorHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/board-foot-calculate", h.HandleBoardFootCost)
	router.POST("/calculator/profit", h.HandleCalculateProfit)
	router.GET("/calculator/history", h.HandleHistory)
	router.GET("/calculator/market-price", h.HandleMarketPrice)
	router.GET("/wood-types", h.HandleWoodTypes)
}

// DimensionsRequest carries tree dimensions for cost and profit
// calculations.
type DimensionsRequest struct {
	TreeType models.TreeType `json:"tree_type" binding:"required"`
	Diameter float64         `json:"diameter" binding:"required"`
	Height   float64         `json:"height" binding:"required"`
}

// HandleBoardFootCost estimates the cost of a log
func (h *CalculatorHandler) HandleBoardFootCost(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-board-foot-calculate")
	defer h.tracer.EndTransaction(txn)

	var req DimensionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.TreeType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tree type"})
		return
	}

	result, err := h.service.BoardFootCost(c.Request.Context(), req.TreeType, req.Diameter, req.Height)
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleCalculateProfit estimates milling profit for a log
func (h *CalculatorHandler) HandleCalculateProfit(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-calculate-profit")
	defer h.tracer.EndTransaction(txn)

	var req DimensionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.TreeType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tree type"})
		return
	}

	result, err := h.service.CalculateProfit(c.Request.Context(), req.TreeType, req.Diameter, req.Height)
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleHistory lists recorded calculations
func (h *CalculatorHandler) HandleHistory(c *gin.Context) {
	history, err := h.service.History(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}

// HandleMarketPrice returns the current market price per board foot.
// During feed outages this is a zero price stamped now, not an error.
func (h *CalculatorHandler) HandleMarketPrice(c *gin.Context) {
	price, err := h.service.MarketPrice(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, price)
}

// HandleWoodTypes lists the wood type catalog
func (h *CalculatorHandler) HandleWoodTypes(c *gin.Context) {
	types, err := h.service.WoodTypes(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wood_types": types})
}
