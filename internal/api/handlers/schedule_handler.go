package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/sawmill/services/mill/internal/scheduling"
	"example.com/sawmill/services/mill/internal/services"
	"example.com/sawmill/services/mill/internal/tracing"
)

// ScheduleHandler handles schedule HTTP requests
type ScheduleHandler struct {
	service *services.ScheduleService
	tracer  tracing.Tracer
}

// NewScheduleHandler creates a new schedule handler
func NewScheduleHandler(service *services.ScheduleService, tracer tracing.Tracer) *ScheduleHandler {
	return &ScheduleHandler{service: service, tracer: tracer}
}

// RegisterRoutes registers the handler's routes
func (h *ScheduleHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/schedules", h.HandleCreateSchedule)
	router.GET("/schedules", h.HandleListSchedules)
	router.GET("/schedules/:id", h.HandleGetSchedule)
	router.PUT("/schedules/:id", h.HandleUpdateSchedule)
	router.DELETE("/schedules/:id", h.HandleDeleteSchedule)
}

// HandleCreateSchedule arbitrates and persists a proposed schedule.
// Conflicts are not errors: the response reports the outcome in
// creation_status with a 200, matching the arbitration contract.
func (h *ScheduleHandler) HandleCreateSchedule(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-create-schedule")
	defer h.tracer.EndTransaction(txn)

	var req services.CreateScheduleInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.CreateSchedule(c.Request.Context(), req)
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Status != scheduling.StatusSuccess {
		status = http.StatusConflict
	}
	c.JSON(status, result)
}

// HandleListSchedules lists all committed shifts
func (h *ScheduleHandler) HandleListSchedules(c *gin.Context) {
	shifts, err := h.service.ListSchedules(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shifts)
}

// HandleGetSchedule lists the shifts of one schedule
func (h *ScheduleHandler) HandleGetSchedule(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	shifts, err := h.service.GetSchedule(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedule_id": id, "shifts": shifts})
}

// HandleUpdateSchedule moves one shift to a new interval
func (h *ScheduleHandler) HandleUpdateSchedule(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req scheduling.ShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	shift, err := h.service.UpdateSchedule(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "updated_shift": shift})
}

// HandleDeleteSchedule removes every shift of a schedule
func (h *ScheduleHandler) HandleDeleteSchedule(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteSchedule(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
