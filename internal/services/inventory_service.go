package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/sawmill/services/mill/internal/messaging"
	"example.com/sawmill/services/mill/internal/metrics"
	"example.com/sawmill/services/mill/internal/models"
)

// InventoryStore is the repository surface the inventory service needs.
type InventoryStore interface {
	Create(ctx context.Context, item *models.InventoryItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	List(ctx context.Context) ([]models.InventoryItem, error)
	Update(ctx context.Context, item *models.InventoryItem) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	ListLogs(ctx context.Context, itemID uuid.UUID) ([]models.InventoryLog, error)
}

// InventoryLogStore appends manual adjustment entries.
type InventoryLogStore interface {
	CreateLog(ctx context.Context, entry *models.InventoryLog) error
}

// InventoryService handles inventory item management
type InventoryService struct {
	repo      InventoryStore
	logs      InventoryLogStore
	publisher messaging.ServiceBusClient
	metrics   *metrics.Metrics
}

// NewInventoryService creates a new inventory service
func NewInventoryService(repo InventoryStore, logs InventoryLogStore, publisher messaging.ServiceBusClient, m *metrics.Metrics) *InventoryService {
	return &InventoryService{
		repo:      repo,
		logs:      logs,
		publisher: publisher,
		metrics:   m,
	}
}

// CreateItemInput carries the fields accepted when creating an item.
type CreateItemInput struct {
	Name     string          `json:"name" binding:"required"`
	ItemType models.ItemType `json:"item_type" binding:"required"`
	Quantity int             `json:"quantity"`
}

// CreateItem creates a new inventory item
func (s *InventoryService) CreateItem(ctx context.Context, input CreateItemInput) (*models.InventoryItem, error) {
	if !input.ItemType.Valid() {
		return nil, errors.Errorf("invalid item type %q", input.ItemType)
	}
	if input.Quantity < 0 {
		return nil, errors.New("quantity cannot be negative")
	}

	item := &models.InventoryItem{
		ID:       uuid.New(),
		Name:     input.Name,
		ItemType: input.ItemType,
		Quantity: input.Quantity,
	}

	if err := s.repo.Create(ctx, item); err != nil {
		return nil, errors.Wrap(err, "failed to create inventory item")
	}

	if input.Quantity > 0 {
		entry := &models.InventoryLog{
			ID:              uuid.New(),
			InventoryItemID: item.ID,
			ChangeAmount:    input.Quantity,
			Timestamp:       time.Now().UTC(),
		}
		if err := s.logs.CreateLog(ctx, entry); err != nil {
			return nil, errors.Wrap(err, "failed to append inventory log")
		}
	}

	s.metrics.IncrementCounter("inventory.items_created")
	return item, nil
}

// GetItem fetches an inventory item by id
func (s *InventoryService) GetItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	return s.repo.GetByID(ctx, id)
}

// ListItems lists all inventory items
func (s *InventoryService) ListItems(ctx context.Context) ([]models.InventoryItem, error) {
	return s.repo.List(ctx)
}

// UpdateItemInput carries the fields accepted when updating an item.
type UpdateItemInput struct {
	Name     string          `json:"name" binding:"required"`
	ItemType models.ItemType `json:"item_type" binding:"required"`
	Quantity int             `json:"quantity"`
}

// UpdateItem replaces the item's name, type and quantity. A quantity
// change is treated as a manual stock count and logged as the delta.
func (s *InventoryService) UpdateItem(ctx context.Context, id uuid.UUID, input UpdateItemInput) (*models.InventoryItem, error) {
	if !input.ItemType.Valid() {
		return nil, errors.Errorf("invalid item type %q", input.ItemType)
	}
	if input.Quantity < 0 {
		return nil, errors.New("quantity cannot be negative")
	}

	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	delta := input.Quantity - item.Quantity
	item.Name = input.Name
	item.ItemType = input.ItemType
	item.Quantity = input.Quantity

	if err := s.repo.Update(ctx, item); err != nil {
		return nil, errors.Wrap(err, "failed to update inventory item")
	}

	if delta != 0 {
		entry := &models.InventoryLog{
			ID:              uuid.New(),
			InventoryItemID: item.ID,
			ChangeAmount:    delta,
			Timestamp:       time.Now().UTC(),
		}
		if err := s.logs.CreateLog(ctx, entry); err != nil {
			return nil, errors.Wrap(err, "failed to append inventory log")
		}

		event := messaging.InventoryMovementEvent{
			ItemID:       item.ID.String(),
			ChangeAmount: delta,
			Remaining:    item.Quantity,
			Reason:       "manual_adjustment",
		}
		if err := s.publisher.SendMessage(ctx, event); err != nil {
			// Event publication is best effort; the adjustment itself
			// has already committed.
			log.Warn().Err(err).Str("item_id", item.ID.String()).Msg("failed to publish inventory movement event")
		}
	}

	return item, nil
}

// DeleteItem soft deletes an item. The record stays for auditing with
// its quantity zeroed so it can no longer satisfy orders.
func (s *InventoryService) DeleteItem(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.metrics.IncrementCounter("inventory.items_deleted")
	return nil
}

// ItemHistory lists the append-only quantity change log for an item.
func (s *InventoryService) ItemHistory(ctx context.Context, id uuid.UUID) ([]models.InventoryLog, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListLogs(ctx, id)
}
