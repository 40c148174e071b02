package pricing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/sawmill/services/mill/config"
)

func feedFor(t *testing.T, handler http.HandlerFunc) (*HTTPFeed, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	feed := NewHTTPFeed(config.PriceFeedConfig{
		URL:     server.URL,
		Timeout: 2 * time.Second,
	})
	return feed, server
}

func TestFetchMarketPrice(t *testing.T) {
	feed, server := feedFor(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"market_price": 4.25, "last_update": "2026-08-01T12:00:00Z"}`))
	})
	defer server.Close()

	price, err := feed.FetchMarketPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4.25, price.MarketPrice)
	assert.Equal(t, time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC), price.LastUpdate)
}

func TestFetchMarketPrice_UpstreamError(t *testing.T) {
	feed, server := feedFor(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	defer server.Close()

	price, err := feed.FetchMarketPrice(context.Background())
	assert.Error(t, err)
	assert.Nil(t, price)
}

func TestFetchMarketPrice_MalformedBody(t *testing.T) {
	feed, server := feedFor(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})
	defer server.Close()

	_, err := feed.FetchMarketPrice(context.Background())
	assert.Error(t, err)
}

func TestFetchMarketPrice_NegativePriceRejected(t *testing.T) {
	feed, server := feedFor(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"market_price": -1.0}`))
	})
	defer server.Close()

	_, err := feed.FetchMarketPrice(context.Background())
	assert.Error(t, err)
}
