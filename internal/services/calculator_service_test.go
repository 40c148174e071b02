package services

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/sawmill/services/mill/internal/metrics"
	"example.com/sawmill/services/mill/internal/models"
	"example.com/sawmill/services/mill/internal/pricing"
)

// Mock repositories for testing
type MockCalculationStore struct {
	mock.Mock
}

func (m *MockCalculationStore) Create(ctx context.Context, record *models.CalculationRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockCalculationStore) LatestByTreeType(ctx context.Context, treeType models.TreeType) (*models.CalculationRecord, error) {
	args := m.Called(ctx, treeType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CalculationRecord), args.Error(1)
}

func (m *MockCalculationStore) LatestVisible(ctx context.Context, treeType models.TreeType, isPublic bool) (*models.CalculationRecord, error) {
	args := m.Called(ctx, treeType, isPublic)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CalculationRecord), args.Error(1)
}

func (m *MockCalculationStore) FindByDimensions(ctx context.Context, treeType models.TreeType, diameter, height float64) (*models.CalculationRecord, error) {
	args := m.Called(ctx, treeType, diameter, height)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CalculationRecord), args.Error(1)
}

func (m *MockCalculationStore) List(ctx context.Context) ([]models.CalculationRecord, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.CalculationRecord), args.Error(1)
}

type MockQuoteCache struct {
	mock.Mock
}

func (m *MockQuoteCache) Get(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockQuoteCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
}

type MockPriceFeed struct {
	mock.Mock
}

func (m *MockPriceFeed) FetchMarketPrice(ctx context.Context) (*pricing.MarketPrice, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pricing.MarketPrice), args.Error(1)
}

type MockCalculationIndexer struct {
	mock.Mock
}

func (m *MockCalculationIndexer) IndexCalculation(ctx context.Context, record *models.CalculationRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func TestBoardFeet(t *testing.T) {
	assert.Equal(t, 240.0, BoardFeet(12, 20))
	assert.Equal(t, 0.0, BoardFeet(0, 20))
}

func TestBoardFootCost(t *testing.T) {
	store := new(MockCalculationStore)
	store.On("LatestByTreeType", mock.Anything, models.TreeTypeOak).
		Return(&models.CalculationRecord{PricePerBoardFoot: 2.5}, nil)

	service := &CalculatorService{store: store, metrics: metrics.NewMetrics()}

	result, err := service.BoardFootCost(context.Background(), models.TreeTypeOak, 12, 20)
	require.NoError(t, err)
	assert.Equal(t, 240.0, result.BoardFootVolume)
	assert.Equal(t, 600.0, result.EstimatedCost)
	store.AssertExpectations(t)
}

func TestBoardFootCost_NoPricingRow(t *testing.T) {
	store := new(MockCalculationStore)
	store.On("LatestByTreeType", mock.Anything, models.TreeTypePine).
		Return(nil, models.ErrNotFound)

	service := &CalculatorService{store: store, metrics: metrics.NewMetrics()}

	_, err := service.BoardFootCost(context.Background(), models.TreeTypePine, 10, 10)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestBoardFootCost_RejectsInvalidInput(t *testing.T) {
	service := &CalculatorService{metrics: metrics.NewMetrics()}

	_, err := service.BoardFootCost(context.Background(), "PLYWOOD", 12, 20)
	assert.Error(t, err)

	_, err = service.BoardFootCost(context.Background(), models.TreeTypeOak, -1, 20)
	assert.Error(t, err)
}

func TestCalculatePrice_VIPBulkDiscount(t *testing.T) {
	store := new(MockCalculationStore)
	store.On("LatestVisible", mock.Anything, models.TreeTypeOak, true).
		Return(&models.CalculationRecord{PricePerBoardFoot: 10.0}, nil)

	service := &CalculatorService{store: store, metrics: metrics.NewMetrics()}

	quote, err := service.CalculatePrice(context.Background(), models.TreeTypeOak, 11, models.CustomerTypeVIP)
	require.NoError(t, err)
	assert.Equal(t, 104.5, quote.TotalPrice)
	require.Len(t, quote.Adjustments, 1)
}

func TestCalculatePrice_NoDiscountAtThreshold(t *testing.T) {
	store := new(MockCalculationStore)
	store.On("LatestVisible", mock.Anything, models.TreeTypeOak, true).
		Return(&models.CalculationRecord{PricePerBoardFoot: 10.0}, nil)

	service := &CalculatorService{store: store, metrics: metrics.NewMetrics()}

	// Quantity of exactly 10 does not qualify for the bulk discount.
	quote, err := service.CalculatePrice(context.Background(), models.TreeTypeOak, 10, models.CustomerTypeVIP)
	require.NoError(t, err)
	assert.Equal(t, 100.0, quote.TotalPrice)
	assert.Empty(t, quote.Adjustments)
}

func TestCalculatePrice_PrivateCustomerSeesPrivateRows(t *testing.T) {
	store := new(MockCalculationStore)
	store.On("LatestVisible", mock.Anything, models.TreeTypeWalnut, false).
		Return(&models.CalculationRecord{PricePerBoardFoot: 8.0}, nil)

	service := &CalculatorService{store: store, metrics: metrics.NewMetrics()}

	quote, err := service.CalculatePrice(context.Background(), models.TreeTypeWalnut, 2, models.CustomerTypePrivate)
	require.NoError(t, err)
	assert.Equal(t, 16.0, quote.TotalPrice)
	store.AssertExpectations(t)
}

func TestCalculatePrice_NoPriceData(t *testing.T) {
	store := new(MockCalculationStore)
	store.On("LatestVisible", mock.Anything, models.TreeTypeCedar, true).
		Return(nil, models.ErrNotFound)

	service := &CalculatorService{store: store, metrics: metrics.NewMetrics()}

	quote, err := service.CalculatePrice(context.Background(), models.TreeTypeCedar, 5, models.CustomerTypeStandard)
	require.NoError(t, err)
	assert.Equal(t, 0.0, quote.TotalPrice)
	require.Len(t, quote.Adjustments, 1)
	assert.Contains(t, quote.Adjustments[0], "No price data")
}

func TestCalculateProfit(t *testing.T) {
	store := new(MockCalculationStore)
	store.On("FindByDimensions", mock.Anything, models.TreeTypeOak, 12.0, 20.0).
		Return(&models.CalculationRecord{PricePerBoardFoot: 2.5, IsPublic: true}, nil)
	store.On("Create", mock.Anything, mock.AnythingOfType("*models.CalculationRecord")).Return(nil)

	indexer := new(MockCalculationIndexer)
	indexer.On("IndexCalculation", mock.Anything, mock.AnythingOfType("*models.CalculationRecord")).Return(nil)

	service := &CalculatorService{store: store, indexer: indexer, metrics: metrics.NewMetrics()}

	result, err := service.CalculateProfit(context.Background(), models.TreeTypeOak, 12, 20)
	require.NoError(t, err)
	assert.Equal(t, 600.0, result.EstimatedProfit)
	assert.Equal(t, 240.0, result.AdditionalStats["board_feet"])
	store.AssertExpectations(t)
	indexer.AssertExpectations(t)
}

func TestCalculateProfit_NoPricingForDimensions(t *testing.T) {
	store := new(MockCalculationStore)
	store.On("FindByDimensions", mock.Anything, models.TreeTypeOak, 9.0, 15.0).
		Return(nil, models.ErrNotFound)

	service := &CalculatorService{store: store, metrics: metrics.NewMetrics()}

	result, err := service.CalculateProfit(context.Background(), models.TreeTypeOak, 9, 15)
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.EstimatedProfit)
	assert.NotEmpty(t, result.Message)
	store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestMarketPrice_CacheHit(t *testing.T) {
	quoteCache := new(MockQuoteCache)
	quoteCache.On("Get", mock.Anything, "pricing:market-price", mock.Anything).
		Run(func(args mock.Arguments) {
			price := args.Get(2).(*pricing.MarketPrice)
			price.MarketPrice = 3.75
		}).
		Return(nil)

	service := &CalculatorService{cache: quoteCache, metrics: metrics.NewMetrics()}

	price, err := service.MarketPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3.75, price.MarketPrice)
}

func TestMarketPrice_FeedFetchAndCache(t *testing.T) {
	quoteCache := new(MockQuoteCache)
	quoteCache.On("Get", mock.Anything, "pricing:market-price", mock.Anything).
		Return(errors.New("cache miss"))
	quoteCache.On("Set", mock.Anything, "pricing:market-price", mock.Anything, mock.Anything).
		Return(nil)

	feed := new(MockPriceFeed)
	feed.On("FetchMarketPrice", mock.Anything).
		Return(&pricing.MarketPrice{MarketPrice: 4.1, LastUpdate: time.Now()}, nil)

	service := &CalculatorService{cache: quoteCache, feed: feed, metrics: metrics.NewMetrics()}

	price, err := service.MarketPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4.1, price.MarketPrice)
	quoteCache.AssertExpectations(t)
}

func TestMarketPrice_ZeroPriceFallback(t *testing.T) {
	quoteCache := new(MockQuoteCache)
	quoteCache.On("Get", mock.Anything, "pricing:market-price", mock.Anything).
		Return(errors.New("cache miss"))

	feed := new(MockPriceFeed)
	feed.On("FetchMarketPrice", mock.Anything).
		Return(nil, errors.New("connection refused"))

	service := &CalculatorService{cache: quoteCache, feed: feed, metrics: metrics.NewMetrics()}

	price, err := service.MarketPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.0, price.MarketPrice)
	assert.WithinDuration(t, time.Now(), price.LastUpdate, time.Minute)
}

func TestWoodTypes_CacheMissServesCatalog(t *testing.T) {
	quoteCache := new(MockQuoteCache)
	quoteCache.On("Get", mock.Anything, "pricing:wood-types", mock.Anything).
		Return(errors.New("cache miss"))
	quoteCache.On("Set", mock.Anything, "pricing:wood-types", mock.Anything, mock.Anything).
		Return(nil)

	service := &CalculatorService{cache: quoteCache, metrics: metrics.NewMetrics()}

	types, err := service.WoodTypes(context.Background())
	require.NoError(t, err)
	require.Len(t, types, len(models.TreeTypes()))
	assert.Equal(t, models.TreeTypeOak, types[0].Name)
}
