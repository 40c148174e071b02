package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/sawmill/services/mill/internal/cache"
	"example.com/sawmill/services/mill/internal/metrics"
	"example.com/sawmill/services/mill/internal/models"
	"example.com/sawmill/services/mill/internal/pricing"
)

// BoardFeet computes the lumber volume of a log. Diameter is measured
// in inches, height in feet.
func BoardFeet(diameter, height float64) float64 {
	return diameter * diameter * height / 12.0
}

const vipDiscountRate = 0.05

// CalculationStore is the repository surface the calculator needs.
type CalculationStore interface {
	Create(ctx context.Context, record *models.CalculationRecord) error
	LatestByTreeType(ctx context.Context, treeType models.TreeType) (*models.CalculationRecord, error)
	LatestVisible(ctx context.Context, treeType models.TreeType, isPublic bool) (*models.CalculationRecord, error)
	FindByDimensions(ctx context.Context, treeType models.TreeType, diameter, height float64) (*models.CalculationRecord, error)
	List(ctx context.Context) ([]models.CalculationRecord, error)
}

// QuoteCache is the cache surface used for wood types and market price.
type QuoteCache interface {
	Get(ctx context.Context, key string, value interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// CalculationIndexer projects profit calculations into the search index.
type CalculationIndexer interface {
	IndexCalculation(ctx context.Context, record *models.CalculationRecord) error
}

// CalculatorService prices wood by tree dimensions
type CalculatorService struct {
	store    CalculationStore
	cache    QuoteCache
	feed     pricing.Feed
	indexer  CalculationIndexer
	metrics  *metrics.Metrics
	cacheTTL time.Duration
}

// NewCalculatorService creates a new calculator service
func NewCalculatorService(
	store CalculationStore,
	quoteCache QuoteCache,
	feed pricing.Feed,
	indexer CalculationIndexer,
	m *metrics.Metrics,
	cacheTTL time.Duration,
) *CalculatorService {
	return &CalculatorService{
		store:    store,
		cache:    quoteCache,
		feed:     feed,
		indexer:  indexer,
		metrics:  m,
		cacheTTL: cacheTTL,
	}
}

// BoardFootCostResult is the cost estimate for a single log.
type BoardFootCostResult struct {
	EstimatedCost   float64 `json:"estimated_cost"`
	BoardFootVolume float64 `json:"board_foot_volume"`
}

// BoardFootCost estimates the cost of a log from its dimensions and the
// latest price row for the tree type.
func (s *CalculatorService) BoardFootCost(ctx context.Context, treeType models.TreeType, diameter, height float64) (*BoardFootCostResult, error) {
	if !treeType.Valid() {
		return nil, errors.Errorf("invalid tree type %q", treeType)
	}
	if diameter <= 0 || height <= 0 {
		return nil, errors.New("diameter and height must be positive")
	}

	volume := BoardFeet(diameter, height)
	record, err := s.store.LatestByTreeType(ctx, treeType)
	if err != nil {
		return nil, err
	}

	return &BoardFootCostResult{
		EstimatedCost:   volume * record.PricePerBoardFoot,
		BoardFootVolume: volume,
	}, nil
}

// PriceQuote is an order price estimate with the adjustments applied.
type PriceQuote struct {
	TotalPrice  float64  `json:"total_price"`
	Adjustments []string `json:"adjustments"`
}

// CalculatePrice quotes an order of the given quantity. PRIVATE
// customers are priced from the private calculator rows, everyone else
// from the public ones. VIP customers ordering more than ten units get
// a 5% bulk discount, reported as an adjustment message.
func (s *CalculatorService) CalculatePrice(ctx context.Context, treeType models.TreeType, quantity int, customerType models.CustomerType) (*PriceQuote, error) {
	if !treeType.Valid() {
		return nil, errors.Errorf("invalid tree type %q", treeType)
	}
	if !customerType.Valid() {
		return nil, errors.Errorf("invalid customer type %q", customerType)
	}
	if quantity <= 0 {
		return nil, errors.New("quantity must be positive")
	}

	isPublic := customerType != models.CustomerTypePrivate
	record, err := s.store.LatestVisible(ctx, treeType, isPublic)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return &PriceQuote{
				TotalPrice:  0.0,
				Adjustments: []string{"No price data available for selected item type."},
			}, nil
		}
		return nil, err
	}

	total := record.PricePerBoardFoot * float64(quantity)
	adjustments := []string{}
	if customerType == models.CustomerTypeVIP && quantity > 10 {
		total -= total * vipDiscountRate
		adjustments = append(adjustments, "Applied 5.0% discount for bulk purchase by a VIP customer.")
	}

	return &PriceQuote{TotalPrice: total, Adjustments: adjustments}, nil
}

// ProfitResult is a profit estimate with supporting statistics.
type ProfitResult struct {
	EstimatedProfit float64            `json:"estimated_profit"`
	AdditionalStats map[string]float64 `json:"additional_stats"`
	Message         string             `json:"message,omitempty"`
}

// CalculateProfit estimates the profit of milling a log. The price row
// must match the exact dimensions; when none exists the estimate is
// zero with an explanatory message rather than an error. Successful
// calculations are appended to the history and indexed for auditing.
func (s *CalculatorService) CalculateProfit(ctx context.Context, treeType models.TreeType, diameter, height float64) (*ProfitResult, error) {
	if !treeType.Valid() {
		return nil, errors.Errorf("invalid tree type %q", treeType)
	}
	if diameter <= 0 || height <= 0 {
		return nil, errors.New("diameter and height must be positive")
	}

	boardFeet := BoardFeet(diameter, height)
	record, err := s.store.FindByDimensions(ctx, treeType, diameter, height)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.metrics.RecordError("calculator.profit")
			return &ProfitResult{
				EstimatedProfit: 0.0,
				AdditionalStats: map[string]float64{},
				Message:         "No pricing available for the specified dimensions",
			}, nil
		}
		return nil, err
	}

	profit := boardFeet * record.PricePerBoardFoot
	entry := &models.CalculationRecord{
		ID:                uuid.New(),
		TreeType:          treeType,
		Diameter:          diameter,
		Height:            height,
		PricePerBoardFoot: record.PricePerBoardFoot,
		CalculatedProfit:  profit,
		IsPublic:          record.IsPublic,
	}
	if err := s.store.Create(ctx, entry); err != nil {
		return nil, errors.Wrap(err, "failed to record calculation")
	}
	if err := s.indexer.IndexCalculation(ctx, entry); err != nil {
		log.Warn().Err(err).Str("record_id", entry.ID.String()).Msg("failed to index calculation")
	}

	s.metrics.RecordSuccess("calculator.profit")
	return &ProfitResult{
		EstimatedProfit: profit,
		AdditionalStats: map[string]float64{"board_feet": boardFeet},
	}, nil
}

// History lists all recorded calculations
func (s *CalculatorService) History(ctx context.Context) ([]models.CalculationRecord, error) {
	return s.store.List(ctx)
}

// WoodType describes a species and the characteristics that matter for
// board foot pricing.
type WoodType struct {
	Name           models.TreeType `json:"name"`
	AverageDensity float64         `json:"average_density"`
	Color          string          `json:"color"`
	HardnessRating int             `json:"hardness_rating"`
}

var woodTypeCatalog = []WoodType{
	{Name: models.TreeTypeOak, AverageDensity: 0.75, Color: "Light brown", HardnessRating: 1290},
	{Name: models.TreeTypePine, AverageDensity: 0.42, Color: "Pale yellow", HardnessRating: 420},
	{Name: models.TreeTypeMaple, AverageDensity: 0.70, Color: "Cream", HardnessRating: 1450},
	{Name: models.TreeTypeBirch, AverageDensity: 0.65, Color: "Light cream", HardnessRating: 1260},
	{Name: models.TreeTypeCedar, AverageDensity: 0.38, Color: "Reddish brown", HardnessRating: 350},
	{Name: models.TreeTypeWalnut, AverageDensity: 0.61, Color: "Dark brown", HardnessRating: 1010},
}

// WoodTypes lists the species available for board foot calculations.
// The catalog is static, so it is served through the cache when one is
// configured.
func (s *CalculatorService) WoodTypes(ctx context.Context) ([]WoodType, error) {
	var cached []WoodType
	if err := s.cache.Get(ctx, cache.WoodTypesCacheKey, &cached); err == nil {
		return cached, nil
	}

	if err := s.cache.Set(ctx, cache.WoodTypesCacheKey, woodTypeCatalog, s.cacheTTL); err != nil {
		log.Debug().Err(err).Msg("failed to cache wood types")
	}
	return woodTypeCatalog, nil
}

// MarketPrice returns the current market price per board foot. Cache
// first, then the upstream feed; when both fail the caller gets a zero
// price stamped now. That degraded branch is deliberate: quoting stays
// available during feed outages and the zero price is visibly wrong
// rather than silently stale.
func (s *CalculatorService) MarketPrice(ctx context.Context) (*pricing.MarketPrice, error) {
	var cached pricing.MarketPrice
	if err := s.cache.Get(ctx, cache.MarketPriceCacheKey, &cached); err == nil {
		return &cached, nil
	}

	price, err := s.feed.FetchMarketPrice(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("market price feed unavailable, returning zero price")
		s.metrics.RecordError("calculator.market_price")
		return &pricing.MarketPrice{MarketPrice: 0.0, LastUpdate: time.Now().UTC()}, nil
	}

	if err := s.cache.Set(ctx, cache.MarketPriceCacheKey, price, s.cacheTTL); err != nil {
		log.Debug().Err(err).Msg("failed to cache market price")
	}
	s.metrics.RecordSuccess("calculator.market_price")
	return price, nil
}
