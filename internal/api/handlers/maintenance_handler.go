package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/sawmill/services/mill/internal/services"
	"example.com/sawmill/services/mill/internal/tracing"
)

// MaintenanceHandler handles maintenance HTTP requests
type MaintenanceHandler struct {
	service *services.MaintenanceService
	tracer  tracing.Tracer
}

// NewMaintenanceHandler creates a new maintenance handler
func NewMaintenanceHandler(service *services.MaintenanceService, tracer tracing.Tracer) *MaintenanceHandler {
	return &MaintenanceHandler{service: service, tracer: tracer}
}

// RegisterRoutes registers the handler's routes
func (h *MaintenanceHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/maintenance", h.HandleCreateRecord)
	router.GET("/maintenance", h.HandleListRecords)
	router.GET("/maintenance/:id", h.HandleGetRecord)
	router.PUT("/maintenance/:id", h.HandleUpdateRecord)
	router.DELETE("/maintenance/:id", h.HandleDeleteRecord)
	router.POST("/maintenance/:id/parts", h.HandleUseSpareParts)
}

// HandleCreateRecord creates a maintenance record
func (h *MaintenanceHandler) HandleCreateRecord(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-create-maintenance-record")
	defer h.tracer.EndTransaction(txn)

	var req services.CreateMaintenanceInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.service.CreateRecord(c.Request.Context(), req)
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

// HandleListRecords lists all maintenance records
func (h *MaintenanceHandler) HandleListRecords(c *gin.Context) {
	records, err := h.service.ListRecords(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// HandleGetRecord fetches one maintenance record
func (h *MaintenanceHandler) HandleGetRecord(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	record, err := h.service.GetRecord(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// HandleUpdateRecord updates a maintenance record
func (h *MaintenanceHandler) HandleUpdateRecord(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateMaintenanceInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.service.UpdateRecord(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// HandleDeleteRecord removes a maintenance record
func (h *MaintenanceHandler) HandleDeleteRecord(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteRecord(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// UseSparePartsRequest is the payload of a parts consumption call.
type UseSparePartsRequest struct {
	Parts []services.PartUsage `json:"parts" binding:"required"`
}

// HandleUseSpareParts consumes spare parts against a maintenance
// record. Partial success is a 200 with success=false; the per-part
// outcomes are in the body.
func (h *MaintenanceHandler) HandleUseSpareParts(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-use-spare-parts")
	defer h.tracer.EndTransaction(txn)

	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req UseSparePartsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.UseSpareParts(c.Request.Context(), id, req.Parts)
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
