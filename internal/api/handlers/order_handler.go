package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"example.com/sawmill/services/mill/internal/models"
	"example.com/sawmill/services/mill/internal/services"
	"example.com/sawmill/services/mill/internal/tracing"
)

// OrderHandler handles sales order HTTP requests
type OrderHandler struct {
	orders     *services.OrderService
	calculator *services.CalculatorService
	tracer     tracing.Tracer
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders *services.OrderService, calculator *services.CalculatorService, tracer tracing.Tracer) *OrderHandler {
	return &OrderHandler{orders: orders, calculator: calculator, tracer: tracer}
}

// RegisterRoutes registers the handler's routes
func (h *OrderHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/orders", h.HandleCreateOrder)
	router.GET("/orders", h.HandleListOrders)
	router.GET("/orders/calculate-price", h.HandleCalculatePrice)
	router.GET("/orders/search", h.HandleSearchOrders)
	router.GET("/orders/:id", h.HandleGetOrder)
	router.PUT("/orders/:id", h.HandleUpdateOrder)
	router.DELETE("/orders/:id", h.HandleDeleteOrder)
}

// HandleCreateOrder creates a sales order
func (h *OrderHandler) HandleCreateOrder(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-create-order")
	defer h.tracer.EndTransaction(txn)

	var req services.CreateOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), req)
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order_id": order.ID, "order": order})
}

// HandleListOrders lists all orders
func (h *OrderHandler) HandleListOrders(c *gin.Context) {
	orders, err := h.orders.ListOrders(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// HandleSearchOrders queries the order search index
func (h *OrderHandler) HandleSearchOrders(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-search-orders")
	defer h.tracer.EndTransaction(txn)

	term := c.Query("q")
	if term == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}

	results, err := h.orders.SearchOrders(c.Request.Context(), term)
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(results), "results": results})
}

// HandleGetOrder fetches one order with its line items
func (h *OrderHandler) HandleGetOrder(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// HandleUpdateOrder updates an order's price or status
func (h *OrderHandler) HandleUpdateOrder(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orders.UpdateOrder(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"update_successful": true, "order": order})
}

// HandleDeleteOrder deletes an order and restocks its items
func (h *OrderHandler) HandleDeleteOrder(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.orders.DeleteOrder(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "Success",
		"message": "Order successfully deleted and inventory adjusted accordingly.",
	})
}

// HandleCalculatePrice quotes an order without creating it
func (h *OrderHandler) HandleCalculatePrice(c *gin.Context) {
	treeType := models.TreeType(c.Query("tree_type"))
	customerType := models.CustomerType(c.DefaultQuery("customer_type", string(models.CustomerTypeStandard)))

	quantity, err := strconv.Atoi(c.DefaultQuery("quantity", "1"))
	if err != nil || quantity <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quantity"})
		return
	}
	if !treeType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tree type"})
		return
	}
	if !customerType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid customer type"})
		return
	}

	quote, err := h.calculator.CalculatePrice(c.Request.Context(), treeType, quantity, customerType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}
