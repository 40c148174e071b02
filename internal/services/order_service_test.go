package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"example.com/sawmill/services/mill/internal/metrics"
	"example.com/sawmill/services/mill/internal/models"
	"example.com/sawmill/services/mill/internal/stock"
)

type MockOrderStore struct {
	mock.Mock
}

func (m *MockOrderStore) CreateTx(tx *gorm.DB, order *models.SalesOrder) error {
	args := m.Called(tx, order)
	return args.Error(0)
}

func (m *MockOrderStore) GetByID(ctx context.Context, id uuid.UUID) (*models.SalesOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SalesOrder), args.Error(1)
}

func (m *MockOrderStore) GetByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*models.SalesOrder, error) {
	args := m.Called(tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SalesOrder), args.Error(1)
}

func (m *MockOrderStore) List(ctx context.Context) ([]models.SalesOrder, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.SalesOrder), args.Error(1)
}

func (m *MockOrderStore) Update(ctx context.Context, order *models.SalesOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderStore) DeleteTx(tx *gorm.DB, id uuid.UUID) error {
	args := m.Called(tx, id)
	return args.Error(0)
}

type MockOrderIndexer struct {
	mock.Mock
}

func (m *MockOrderIndexer) IndexOrder(ctx context.Context, order *models.SalesOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderIndexer) SearchOrders(ctx context.Context, query map[string]interface{}) ([]map[string]interface{}, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]map[string]interface{}), args.Error(1)
}

func TestCreateOrder_RejectsEmptyOrder(t *testing.T) {
	service := &OrderService{metrics: metrics.NewMetrics()}

	_, err := service.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID: uuid.New(),
	})
	assert.Error(t, err)
}

func TestCreateOrder_RejectsNonPositiveQuantity(t *testing.T) {
	service := &OrderService{metrics: metrics.NewMetrics()}

	_, err := service.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID: uuid.New(),
		Items: []OrderLineInput{
			{InventoryItemID: uuid.New(), Quantity: 0},
		},
	})
	assert.Error(t, err)
}

func TestUpdateOrder_Status(t *testing.T) {
	orderID := uuid.New()

	store := new(MockOrderStore)
	store.On("GetByID", mock.Anything, orderID).Return(&models.SalesOrder{
		ID:     orderID,
		Status: models.OrderStatusPending,
	}, nil)
	store.On("Update", mock.Anything, mock.AnythingOfType("*models.SalesOrder")).Return(nil)

	service := &OrderService{orders: store, metrics: metrics.NewMetrics()}

	completed := models.OrderStatusCompleted
	order, err := service.UpdateOrder(context.Background(), orderID, UpdateOrderInput{
		Status: &completed,
	})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, order.Status)
	store.AssertExpectations(t)
}

func TestUpdateOrder_RejectsInvalidStatus(t *testing.T) {
	service := &OrderService{metrics: metrics.NewMetrics()}

	bogus := models.OrderStatus("SHIPPED")
	_, err := service.UpdateOrder(context.Background(), uuid.New(), UpdateOrderInput{
		Status: &bogus,
	})
	assert.Error(t, err)
}

func TestUpdateOrder_NotFound(t *testing.T) {
	orderID := uuid.New()

	store := new(MockOrderStore)
	store.On("GetByID", mock.Anything, orderID).Return(nil, models.ErrNotFound)

	service := &OrderService{orders: store, metrics: metrics.NewMetrics()}

	price := 99.0
	_, err := service.UpdateOrder(context.Background(), orderID, UpdateOrderInput{
		TotalPrice: &price,
	})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSearchOrders_BuildsMultiMatchQuery(t *testing.T) {
	docs := []map[string]interface{}{
		{"id": uuid.New().String(), "status": "PENDING"},
	}

	indexer := new(MockOrderIndexer)
	indexer.On("SearchOrders", mock.Anything, mock.MatchedBy(func(query map[string]interface{}) bool {
		q, ok := query["query"].(map[string]interface{})
		if !ok {
			return false
		}
		match, ok := q["multi_match"].(map[string]interface{})
		return ok && match["query"] == "PENDING"
	})).Return(docs, nil)

	service := &OrderService{indexer: indexer, metrics: metrics.NewMetrics()}

	results, err := service.SearchOrders(context.Background(), "PENDING")
	require.NoError(t, err)
	assert.Equal(t, docs, results)
	indexer.AssertExpectations(t)
}

func TestSearchOrders_PropagatesIndexError(t *testing.T) {
	indexer := new(MockOrderIndexer)
	indexer.On("SearchOrders", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	service := &OrderService{indexer: indexer, metrics: metrics.NewMetrics()}

	_, err := service.SearchOrders(context.Background(), "anything")
	assert.Error(t, err)
}

func TestPublishMovements_SkipsUnapplied(t *testing.T) {
	applied := uuid.New()
	skipped := uuid.New()

	publisher := new(MockPublisher)
	publisher.On("SendMessage", mock.Anything, mock.Anything).Return(nil)

	service := &OrderService{publisher: publisher, metrics: metrics.NewMetrics()}

	service.publishMovements(context.Background(), []stock.ItemResult{
		{ItemID: applied, Applied: true, Remaining: 4},
		{ItemID: skipped, Applied: false},
	}, []stock.Change{
		{ItemID: applied, Quantity: 2},
		{ItemID: skipped, Quantity: 9},
	}, "order_created")

	publisher.AssertNumberOfCalls(t, "SendMessage", 1)
}
