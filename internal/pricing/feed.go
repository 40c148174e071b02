package pricing

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/sawmill/services/mill/config"
)

// MarketPrice is the current market rate per board foot as reported by
// the upstream feed.
type MarketPrice struct {
	MarketPrice float64   `json:"market_price"`
	LastUpdate  time.Time `json:"last_update"`
}

// Feed fetches market lumber prices from the upstream provider
type Feed interface {
	FetchMarketPrice(ctx context.Context) (*MarketPrice, error)
}

// HTTPFeed implements Feed against the provider's REST endpoint
type HTTPFeed struct {
	url    string
	client *http.Client
}

// NewHTTPFeed creates a price feed client
func NewHTTPFeed(cfg config.PriceFeedConfig) *HTTPFeed {
	return &HTTPFeed{
		url: cfg.URL,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// FetchMarketPrice retrieves the current price per board foot from the
// upstream feed. Callers are expected to fall back to a zero price when
// this returns an error, so quoting stays available during outages.
func (f *HTTPFeed) FetchMarketPrice(ctx context.Context) (*MarketPrice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build price feed request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "price feed request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("price feed returned status %d", resp.StatusCode)
	}

	var price MarketPrice
	if err := json.NewDecoder(resp.Body).Decode(&price); err != nil {
		return nil, errors.Wrap(err, "failed to decode price feed response")
	}

	if price.MarketPrice < 0 {
		return nil, errors.Errorf("price feed returned negative price %f", price.MarketPrice)
	}
	if price.LastUpdate.IsZero() {
		price.LastUpdate = time.Now().UTC()
	}

	log.Debug().Float64("market_price", price.MarketPrice).Msg("fetched market price")
	return &price, nil
}
