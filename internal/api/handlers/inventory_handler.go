package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/sawmill/services/mill/internal/services"
	"example.com/sawmill/services/mill/internal/tracing"
)

// InventoryHandler handles inventory HTTP requests
type InventoryHandler struct {
	service *services.InventoryService
	tracer  tracing.Tracer
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(service *services.InventoryService, tracer tracing.Tracer) *InventoryHandler {
	return &InventoryHandler{service: service, tracer: tracer}
}

// RegisterRoutes registers the handler's routes
func (h *InventoryHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/inventory", h.HandleCreateItem)
	router.GET("/inventory", h.HandleListItems)
	router.GET("/inventory/:id", h.HandleGetItem)
	router.PUT("/inventory/:id", h.HandleUpdateItem)
	router.DELETE("/inventory/:id", h.HandleDeleteItem)
	router.GET("/inventory/:id/history", h.HandleItemHistory)
}

// HandleCreateItem creates an inventory item
func (h *InventoryHandler) HandleCreateItem(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-create-inventory-item")
	defer h.tracer.EndTransaction(txn)

	var req services.CreateItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.service.CreateItem(c.Request.Context(), req)
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// HandleListItems lists all inventory items
func (h *InventoryHandler) HandleListItems(c *gin.Context) {
	items, err := h.service.ListItems(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// HandleGetItem fetches one inventory item
func (h *InventoryHandler) HandleGetItem(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	item, err := h.service.GetItem(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// HandleUpdateItem updates an inventory item
func (h *InventoryHandler) HandleUpdateItem(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.service.UpdateItem(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "updated_item": item})
}

// HandleDeleteItem soft deletes an inventory item
func (h *InventoryHandler) HandleDeleteItem(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteItem(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "inventory item marked as inactive"})
}

// HandleItemHistory lists the quantity change log of an item
func (h *InventoryHandler) HandleItemHistory(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	history, err := h.service.ItemHistory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}
