package search

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/sawmill/services/mill/config"
	"example.com/sawmill/services/mill/internal/models"
)

func TestInertClientSkipsIndexing(t *testing.T) {
	client := &ElasticClient{config: config.ElasticConfig{Index: "orders"}}

	err := client.IndexOrder(context.Background(), &models.SalesOrder{ID: uuid.New()})
	assert.NoError(t, err)

	err = client.IndexCalculation(context.Background(), &models.CalculationRecord{ID: uuid.New()})
	assert.NoError(t, err)
}

func TestInertClientRejectsSearch(t *testing.T) {
	client := &ElasticClient{config: config.ElasticConfig{Index: "orders"}}

	_, err := client.SearchOrders(context.Background(), map[string]interface{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}
