package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"example.com/sawmill/services/mill/internal/messaging"
	"example.com/sawmill/services/mill/internal/metrics"
	"example.com/sawmill/services/mill/internal/models"
	"example.com/sawmill/services/mill/internal/search"
	"example.com/sawmill/services/mill/internal/stock"
)

// OrderStore is the repository surface the order service needs.
type OrderStore interface {
	CreateTx(tx *gorm.DB, order *models.SalesOrder) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.SalesOrder, error)
	GetByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*models.SalesOrder, error)
	List(ctx context.Context) ([]models.SalesOrder, error)
	Update(ctx context.Context, order *models.SalesOrder) error
	DeleteTx(tx *gorm.DB, id uuid.UUID) error
}

// StockLedger applies and reverses inventory consumption.
type StockLedger interface {
	ApplyAtomic(tx *gorm.DB, changes []stock.Change) (stock.BatchResult, error)
	Restock(tx *gorm.DB, changes []stock.Change) error
}

// OrderIndexer projects committed orders into the search index and
// answers back-office queries against it.
type OrderIndexer interface {
	IndexOrder(ctx context.Context, order *models.SalesOrder) error
	SearchOrders(ctx context.Context, query map[string]interface{}) ([]map[string]interface{}, error)
}

// OrderService handles sales order business logic
type OrderService struct {
	db        *gorm.DB
	orders    OrderStore
	ledger    StockLedger
	indexer   OrderIndexer
	publisher messaging.ServiceBusClient
	metrics   *metrics.Metrics
}

// NewOrderService creates a new order service
func NewOrderService(
	db *gorm.DB,
	orders OrderStore,
	ledger StockLedger,
	indexer *search.ElasticClient,
	publisher messaging.ServiceBusClient,
	m *metrics.Metrics,
) *OrderService {
	return &OrderService{
		db:        db,
		orders:    orders,
		ledger:    ledger,
		indexer:   indexer,
		publisher: publisher,
		metrics:   m,
	}
}

// OrderLineInput is one requested line of a new order.
type OrderLineInput struct {
	InventoryItemID uuid.UUID `json:"inventory_item_id" binding:"required"`
	Quantity        int       `json:"quantity" binding:"required"`
}

// CreateOrderInput carries the fields accepted when creating an order.
type CreateOrderInput struct {
	CustomerID uuid.UUID        `json:"customer_id" binding:"required"`
	Items      []OrderLineInput `json:"items" binding:"required"`
}

// CreateOrder creates a sales order. Stock for every line is validated
// and decremented together with the order row inside one transaction, so
// either the whole order commits or nothing does. The first missing or
// insufficient item aborts the batch with a typed error naming it.
func (s *OrderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.SalesOrder, error) {
	if len(input.Items) == 0 {
		return nil, errors.New("order must contain at least one item")
	}

	changes := make([]stock.Change, 0, len(input.Items))
	for _, line := range input.Items {
		if line.Quantity <= 0 {
			return nil, errors.Errorf("item %s has non-positive quantity %d", line.InventoryItemID, line.Quantity)
		}
		changes = append(changes, stock.Change{ItemID: line.InventoryItemID, Quantity: line.Quantity})
	}

	order := &models.SalesOrder{
		ID:         uuid.New(),
		CustomerID: input.CustomerID,
		Status:     models.OrderStatusPending,
	}
	for _, line := range input.Items {
		order.Items = append(order.Items, models.OrderItem{
			ID:              uuid.New(),
			SalesOrderID:    order.ID,
			InventoryItemID: line.InventoryItemID,
			Quantity:        line.Quantity,
		})
	}

	var applied stock.BatchResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		applied, txErr = s.ledger.ApplyAtomic(tx, changes)
		if txErr != nil {
			return txErr
		}
		return s.orders.CreateTx(tx, order)
	})
	if err != nil {
		s.metrics.RecordError("orders.create")
		return nil, err
	}

	s.metrics.RecordSuccess("orders.create")
	s.metrics.IncrementCounter("orders.created")
	s.publishMovements(ctx, applied.Items, changes, "order_created")

	if err := s.indexer.IndexOrder(ctx, order); err != nil {
		// Search projection is best effort; the order has committed.
		log.Warn().Err(err).Str("order_id", order.ID.String()).Msg("failed to index order")
	}

	return order, nil
}

// GetOrder fetches an order with its line items
func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*models.SalesOrder, error) {
	return s.orders.GetByID(ctx, id)
}

// ListOrders lists all orders
func (s *OrderService) ListOrders(ctx context.Context) ([]models.SalesOrder, error) {
	return s.orders.List(ctx)
}

// SearchOrders queries the order search index. The term is matched
// against the customer, status and line item fields indexed at creation.
func (s *OrderService) SearchOrders(ctx context.Context, term string) ([]map[string]interface{}, error) {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  term,
				"fields": []string{"customer_id", "status", "items.inventory_item_id"},
			},
		},
	}

	docs, err := s.indexer.SearchOrders(ctx, query)
	if err != nil {
		s.metrics.RecordError("orders.search")
		return nil, err
	}

	s.metrics.RecordSuccess("orders.search")
	return docs, nil
}

// UpdateOrderInput carries the optional fields of an order update.
type UpdateOrderInput struct {
	TotalPrice *float64            `json:"total_price"`
	Status     *models.OrderStatus `json:"status"`
}

// UpdateOrder updates the order's price or status
func (s *OrderService) UpdateOrder(ctx context.Context, id uuid.UUID, input UpdateOrderInput) (*models.SalesOrder, error) {
	if input.Status != nil && !input.Status.Valid() {
		return nil, errors.Errorf("invalid order status %q", *input.Status)
	}

	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.TotalPrice != nil {
		order.TotalPrice = *input.TotalPrice
	}
	if input.Status != nil {
		order.Status = *input.Status
	}

	if err := s.orders.Update(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// DeleteOrder removes an order and returns its stock to inventory. The
// restock and the deletion share one transaction so the ledger stays
// consistent with the order table.
func (s *OrderService) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	var restocked []stock.Change
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, txErr := s.orders.GetByIDForUpdate(tx, id)
		if txErr != nil {
			return txErr
		}

		for _, line := range order.Items {
			restocked = append(restocked, stock.Change{ItemID: line.InventoryItemID, Quantity: line.Quantity})
		}
		if txErr := s.ledger.Restock(tx, restocked); txErr != nil {
			return txErr
		}
		return s.orders.DeleteTx(tx, id)
	})
	if err != nil {
		return err
	}

	s.metrics.IncrementCounter("orders.deleted")
	for _, change := range restocked {
		event := messaging.InventoryMovementEvent{
			ItemID:       change.ItemID.String(),
			ChangeAmount: change.Quantity,
			Reason:       "order_deleted",
		}
		if err := s.publisher.SendMessage(ctx, event); err != nil {
			log.Warn().Err(err).Str("item_id", change.ItemID.String()).Msg("failed to publish restock event")
		}
	}
	return nil
}

func (s *OrderService) publishMovements(ctx context.Context, results []stock.ItemResult, changes []stock.Change, reason string) {
	quantities := make(map[uuid.UUID]int, len(changes))
	for _, change := range changes {
		quantities[change.ItemID] = change.Quantity
	}

	for _, item := range results {
		if !item.Applied {
			continue
		}
		event := messaging.InventoryMovementEvent{
			ItemID:       item.ItemID.String(),
			ChangeAmount: -quantities[item.ItemID],
			Remaining:    item.Remaining,
			Reason:       reason,
		}
		if err := s.publisher.SendMessage(ctx, event); err != nil {
			log.Warn().Err(err).Str("item_id", item.ItemID.String()).Msg("failed to publish inventory movement event")
		}
	}
}
