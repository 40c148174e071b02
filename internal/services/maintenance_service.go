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
	"example.com/sawmill/services/mill/internal/stock"
)

// MaintenanceStore is the repository surface the maintenance service needs.
type MaintenanceStore interface {
	Create(ctx context.Context, record *models.MaintenanceLog) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.MaintenanceLog, error)
	List(ctx context.Context) ([]models.MaintenanceLog, error)
	Update(ctx context.Context, record *models.MaintenanceLog) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// PartsConsumer applies best-effort spare part consumption.
type PartsConsumer interface {
	Apply(ctx context.Context, policy stock.Policy, changes []stock.Change) (stock.BatchResult, error)
}

// MaintenanceService manages equipment maintenance records and the
// spare parts they consume
type MaintenanceService struct {
	repo      MaintenanceStore
	parts     PartsConsumer
	publisher messaging.ServiceBusClient
	metrics   *metrics.Metrics
}

// NewMaintenanceService creates a new maintenance service
func NewMaintenanceService(repo MaintenanceStore, parts PartsConsumer, publisher messaging.ServiceBusClient, m *metrics.Metrics) *MaintenanceService {
	return &MaintenanceService{
		repo:      repo,
		parts:     parts,
		publisher: publisher,
		metrics:   m,
	}
}

// CreateMaintenanceInput carries the fields of a new maintenance record.
type CreateMaintenanceInput struct {
	EquipmentID    uuid.UUID  `json:"equipment_id" binding:"required"`
	ResponsibleID  uuid.UUID  `json:"responsible_id" binding:"required"`
	Description    string     `json:"description"`
	StartTime      time.Time  `json:"start_time" binding:"required"`
	EndTime        time.Time  `json:"end_time" binding:"required"`
	CompletionDate *time.Time `json:"completion_date"`
}

// CreateRecord creates a maintenance record. A nil completion date
// leaves the window open, which blocks the equipment from scheduling.
func (s *MaintenanceService) CreateRecord(ctx context.Context, input CreateMaintenanceInput) (*models.MaintenanceLog, error) {
	if !input.StartTime.Before(input.EndTime) {
		return nil, errors.Wrap(models.ErrInvalidInterval, "maintenance window")
	}

	record := &models.MaintenanceLog{
		ID:             uuid.New(),
		EquipmentID:    input.EquipmentID,
		ResponsibleID:  input.ResponsibleID,
		Description:    input.Description,
		StartTime:      input.StartTime,
		EndTime:        input.EndTime,
		CompletionDate: input.CompletionDate,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, err
	}

	s.metrics.IncrementCounter("maintenance.records_created")
	return record, nil
}

// GetRecord fetches a maintenance record by id
func (s *MaintenanceService) GetRecord(ctx context.Context, id uuid.UUID) (*models.MaintenanceLog, error) {
	return s.repo.GetByID(ctx, id)
}

// ListRecords lists all maintenance records
func (s *MaintenanceService) ListRecords(ctx context.Context) ([]models.MaintenanceLog, error) {
	return s.repo.List(ctx)
}

// UpdateMaintenanceInput carries the optional fields of an update.
type UpdateMaintenanceInput struct {
	Description    *string    `json:"description"`
	StartTime      *time.Time `json:"start_time"`
	EndTime        *time.Time `json:"end_time"`
	CompletionDate *time.Time `json:"completion_date"`
}

// UpdateRecord updates a maintenance record. Setting the completion
// date closes the window and frees the equipment for scheduling.
func (s *MaintenanceService) UpdateRecord(ctx context.Context, id uuid.UUID, input UpdateMaintenanceInput) (*models.MaintenanceLog, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Description != nil {
		record.Description = *input.Description
	}
	if input.StartTime != nil {
		record.StartTime = *input.StartTime
	}
	if input.EndTime != nil {
		record.EndTime = *input.EndTime
	}
	if input.CompletionDate != nil {
		record.CompletionDate = input.CompletionDate
	}

	if !record.StartTime.Before(record.EndTime) {
		return nil, errors.Wrap(models.ErrInvalidInterval, "maintenance window")
	}
	if err := s.repo.Update(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// DeleteRecord removes a maintenance record
func (s *MaintenanceService) DeleteRecord(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// PartUsage is one spare part and the quantity consumed.
type PartUsage struct {
	PartID       uuid.UUID `json:"part_id" binding:"required"`
	QuantityUsed int       `json:"quantity_used" binding:"required"`
}

// PartsUsageResult reports the outcome of spare part consumption.
type PartsUsageResult struct {
	Success            bool                   `json:"success"`
	Record             *models.MaintenanceLog `json:"updated_record"`
	RemainingInventory []stock.ItemResult     `json:"remaining_inventory"`
}

// UseSpareParts consumes spare parts against a maintenance record.
// Each part is checked and decremented independently; parts that are
// missing or understocked are skipped and the result reports partial
// success instead of rolling back the parts that did apply.
func (s *MaintenanceService) UseSpareParts(ctx context.Context, recordID uuid.UUID, parts []PartUsage) (*PartsUsageResult, error) {
	record, err := s.repo.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}

	changes := make([]stock.Change, 0, len(parts))
	for _, part := range parts {
		if part.QuantityUsed <= 0 {
			return nil, errors.Errorf("part %s has non-positive quantity %d", part.PartID, part.QuantityUsed)
		}
		changes = append(changes, stock.Change{ItemID: part.PartID, Quantity: part.QuantityUsed})
	}

	result, err := s.parts.Apply(ctx, stock.BestEffortBatch, changes)
	if err != nil {
		return nil, err
	}

	consumed := make(map[uuid.UUID]int, len(parts))
	for _, part := range parts {
		consumed[part.PartID] = part.QuantityUsed
	}
	for _, item := range result.AppliedItems() {
		event := messaging.InventoryMovementEvent{
			ItemID:       item.ItemID.String(),
			ChangeAmount: -consumed[item.ItemID],
			Remaining:    item.Remaining,
			Reason:       "spare_part_used",
		}
		if err := s.publisher.SendMessage(ctx, event); err != nil {
			log.Warn().Err(err).Str("item_id", item.ItemID.String()).Msg("failed to publish spare part event")
		}
	}

	if !result.AllApplied {
		s.metrics.IncrementCounter("maintenance.parts_partial")
	}
	return &PartsUsageResult{
		Success:            result.AllApplied,
		Record:             record,
		RemainingInventory: result.AppliedItems(),
	}, nil
}
