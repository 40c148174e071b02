package search

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/sawmill/services/mill/config"
	"example.com/sawmill/services/mill/internal/models"
)

// ElasticClient provides integration with Elasticsearch
type ElasticClient struct {
	client *elasticsearch.Client
	config config.ElasticConfig
}

// NewElasticClient creates a new Elasticsearch client
func NewElasticClient(cfg config.ElasticConfig) (*ElasticClient, error) {
	esConfig := elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	}

	client, err := elasticsearch.NewClient(esConfig)
	if err != nil {
		// Callers warn and continue with an inert client.
		return &ElasticClient{config: cfg}, errors.Wrap(err, "failed to create Elasticsearch client")
	}

	return &ElasticClient{
		client: client,
		config: cfg,
	}, nil
}

// IndexOrder indexes a committed sales order so the back office can
// search order history without hitting the primary store.
func (c *ElasticClient) IndexOrder(ctx context.Context, order *models.SalesOrder) error {
	items := make([]map[string]interface{}, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, map[string]interface{}{
			"inventory_item_id": item.InventoryItemID.String(),
			"quantity":          item.Quantity,
		})
	}

	doc := map[string]interface{}{
		"id":          order.ID.String(),
		"customer_id": order.CustomerID.String(),
		"status":      order.Status,
		"total_price": order.TotalPrice,
		"created_at":  order.CreatedAt,
		"items":       items,
	}

	return c.index(ctx, c.config.Index, order.ID.String(), doc)
}

// IndexCalculation indexes a completed profit calculation for auditing
func (c *ElasticClient) IndexCalculation(ctx context.Context, record *models.CalculationRecord) error {
	doc := map[string]interface{}{
		"id":                   record.ID.String(),
		"tree_type":            record.TreeType,
		"diameter":             record.Diameter,
		"height":               record.Height,
		"price_per_board_foot": record.PricePerBoardFoot,
		"calculated_profit":    record.CalculatedProfit,
		"is_public":            record.IsPublic,
		"created_at":           record.CreatedAt,
	}

	return c.index(ctx, "calculations", record.ID.String(), doc)
}

func (c *ElasticClient) index(ctx context.Context, index, docID string, doc map[string]interface{}) error {
	if c.client == nil {
		log.Debug().Str("index", index).Str("doc_id", docID).Msg("search disabled, skipping indexing")
		return nil
	}

	docJSON, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "failed to marshal document")
	}

	indexName := config.FormatIndex(c.config, index)
	req := esapi.IndexRequest{
		Index:      indexName,
		DocumentID: docID,
		Body:       bytes.NewReader(docJSON),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch index request")
	}
	defer res.Body.Close()

	if res.IsError() {
		var e map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
			return errors.Wrap(err, "failed to parse Elasticsearch error response")
		}
		return errors.Errorf("Elasticsearch index error: %v", e)
	}

	log.Debug().Str("index", indexName).Str("doc_id", docID).Msg("document indexed")
	return nil
}

// SearchOrders searches indexed orders with the given query
func (c *ElasticClient) SearchOrders(ctx context.Context, query map[string]interface{}) ([]map[string]interface{}, error) {
	if c.client == nil {
		return nil, errors.New("search is not configured")
	}

	queryJSON, err := json.Marshal(query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal search query")
	}

	indexName := config.FormatIndex(c.config, c.config.Index)
	req := esapi.SearchRequest{
		Index: []string{indexName},
		Body:  bytes.NewReader(queryJSON),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute Elasticsearch search request")
	}
	defer res.Body.Close()

	if res.IsError() {
		var e map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
			return nil, errors.Wrap(err, "failed to parse Elasticsearch error response")
		}
		return nil, errors.Errorf("Elasticsearch search error: %v", e)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, "failed to parse Elasticsearch search response")
	}

	hits, ok := result["hits"].(map[string]interface{})
	if !ok {
		return nil, errors.New("unexpected search result format")
	}

	hitsArray, ok := hits["hits"].([]interface{})
	if !ok {
		return nil, errors.New("unexpected hits format")
	}

	var docs []map[string]interface{}
	for _, hit := range hitsArray {
		hitMap, ok := hit.(map[string]interface{})
		if !ok {
			continue
		}

		source, ok := hitMap["_source"].(map[string]interface{})
		if !ok {
			continue
		}

		docs = append(docs, source)
	}

	return docs, nil
}
