package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"example.com/sawmill/services/mill/internal/models"
)

// InventoryRepository provides access to inventory items
type InventoryRepository struct {
	db         *gorm.DB // Write database
	readOnlyDB *gorm.DB // Read-only database
}

// NewInventoryRepository creates a new inventory repository
func NewInventoryRepository(db *gorm.DB, readOnlyDB *gorm.DB) *InventoryRepository {
	return &InventoryRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// Create creates a new inventory item
func (r *InventoryRepository) Create(ctx context.Context, item *models.InventoryItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// GetByID gets an inventory item by ID
func (r *InventoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := r.readOnlyDB.WithContext(ctx).First(&item, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(models.ErrNotFound, "inventory item %s", id)
		}
		return nil, errors.Wrap(err, "failed to get inventory item")
	}
	return &item, nil
}

// List lists all inventory items
func (r *InventoryRepository) List(ctx context.Context) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := r.readOnlyDB.WithContext(ctx).Order("created_at").Find(&items).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list inventory items")
	}
	return items, nil
}

// Update saves changed fields of an inventory item
func (r *InventoryRepository) Update(ctx context.Context, item *models.InventoryItem) error {
	result := r.db.WithContext(ctx).Model(&models.InventoryItem{}).
		Where("id = ?", item.ID).
		Updates(map[string]interface{}{
			"name":      item.Name,
			"item_type": item.ItemType,
			"quantity":  item.Quantity,
		})
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update inventory item")
	}
	if result.RowsAffected == 0 {
		return errors.Wrapf(models.ErrNotFound, "inventory item %s", item.ID)
	}
	return nil
}

// SoftDelete marks an item inactive by zeroing its quantity. The record
// is kept for auditing.
func (r *InventoryRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&models.InventoryItem{}).
		Where("id = ?", id).
		Update("quantity", 0)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to soft delete inventory item")
	}
	if result.RowsAffected == 0 {
		return errors.Wrapf(models.ErrNotFound, "inventory item %s", id)
	}
	return nil
}

// ListBelow lists items with stock below the given threshold
func (r *InventoryRepository) ListBelow(ctx context.Context, threshold int) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := r.readOnlyDB.WithContext(ctx).
		Where("quantity < ?", threshold).
		Find(&items).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list low stock items")
	}
	return items, nil
}

// ListLogs lists the ledger entries for one item, newest first
func (r *InventoryRepository) ListLogs(ctx context.Context, itemID uuid.UUID) ([]models.InventoryLog, error) {
	var logs []models.InventoryLog
	err := r.readOnlyDB.WithContext(ctx).
		Where("inventory_item_id = ?", itemID).
		Order("timestamp desc").
		Find(&logs).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list inventory logs")
	}
	return logs, nil
}

// CreateLog appends a ledger entry for a manual adjustment
func (r *InventoryRepository) CreateLog(ctx context.Context, entry *models.InventoryLog) error {
	err := r.db.WithContext(ctx).Create(entry).Error
	return errors.Wrap(err, "failed to create inventory log")
}

// ShiftRepository provides access to committed shifts
type ShiftRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewShiftRepository creates a new shift repository
func NewShiftRepository(db *gorm.DB, readOnlyDB *gorm.DB) *ShiftRepository {
	return &ShiftRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// ListByEmployee lists the committed shifts of an employee. Conflict
// checks read from the write database so a shift committed a moment ago
// is always visible to the next check.
func (r *ShiftRepository) ListByEmployee(ctx context.Context, employeeID uuid.UUID) ([]models.Shift, error) {
	var shifts []models.Shift
	err := r.db.WithContext(ctx).
		Where("employee_id = ?", employeeID).
		Find(&shifts).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list shifts by employee")
	}
	return shifts, nil
}

// ListByEmployeeExcluding lists an employee's shifts without the one
// being updated, so an update does not conflict with itself.
func (r *ShiftRepository) ListByEmployeeExcluding(ctx context.Context, employeeID, excludeShiftID uuid.UUID) ([]models.Shift, error) {
	var shifts []models.Shift
	err := r.db.WithContext(ctx).
		Where("employee_id = ? AND id <> ?", employeeID, excludeShiftID).
		Find(&shifts).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list shifts by employee")
	}
	return shifts, nil
}

// GetByID gets a shift by ID
func (r *ShiftRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Shift, error) {
	var shift models.Shift
	err := r.readOnlyDB.WithContext(ctx).First(&shift, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(models.ErrNotFound, "shift %s", id)
		}
		return nil, errors.Wrap(err, "failed to get shift")
	}
	return &shift, nil
}

// CreateBatch persists the shifts of one committed schedule
func (r *ShiftRepository) CreateBatch(ctx context.Context, shifts []models.Shift) error {
	if len(shifts) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&shifts).Error
}

// ListAll lists all shifts with their employees
func (r *ShiftRepository) ListAll(ctx context.Context) ([]models.Shift, error) {
	var shifts []models.Shift
	err := r.readOnlyDB.WithContext(ctx).
		Preload("Employee").
		Order("start_time").
		Find(&shifts).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list shifts")
	}
	return shifts, nil
}

// ListBySchedule lists the shifts committed under one schedule ID
func (r *ShiftRepository) ListBySchedule(ctx context.Context, scheduleID uuid.UUID) ([]models.Shift, error) {
	var shifts []models.Shift
	err := r.readOnlyDB.WithContext(ctx).
		Preload("Employee").
		Where("schedule_id = ?", scheduleID).
		Order("start_time").
		Find(&shifts).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list shifts by schedule")
	}
	return shifts, nil
}

// Update saves the new interval of a shift
func (r *ShiftRepository) Update(ctx context.Context, shift *models.Shift) error {
	result := r.db.WithContext(ctx).Model(&models.Shift{}).
		Where("id = ?", shift.ID).
		Updates(map[string]interface{}{
			"start_time": shift.StartTime,
			"end_time":   shift.EndTime,
		})
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update shift")
	}
	if result.RowsAffected == 0 {
		return errors.Wrapf(models.ErrNotFound, "shift %s", shift.ID)
	}
	return nil
}

// DeleteBySchedule removes all shifts of a schedule
func (r *ShiftRepository) DeleteBySchedule(ctx context.Context, scheduleID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("schedule_id = ?", scheduleID).
		Delete(&models.Shift{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete shifts by schedule")
	}
	return result.RowsAffected, nil
}

// MaintenanceRepository provides access to maintenance logs
type MaintenanceRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewMaintenanceRepository creates a new maintenance repository
func NewMaintenanceRepository(db *gorm.DB, readOnlyDB *gorm.DB) *MaintenanceRepository {
	return &MaintenanceRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// Create creates a new maintenance record
func (r *MaintenanceRepository) Create(ctx context.Context, record *models.MaintenanceLog) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// GetByID gets a maintenance record by ID
func (r *MaintenanceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.MaintenanceLog, error) {
	var record models.MaintenanceLog
	err := r.readOnlyDB.WithContext(ctx).First(&record, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(models.ErrNotFound, "maintenance record %s", id)
		}
		return nil, errors.Wrap(err, "failed to get maintenance record")
	}
	return &record, nil
}

// List lists all maintenance records
func (r *MaintenanceRepository) List(ctx context.Context) ([]models.MaintenanceLog, error) {
	var records []models.MaintenanceLog
	err := r.readOnlyDB.WithContext(ctx).
		Preload("Equipment").
		Order("start_time desc").
		Find(&records).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list maintenance records")
	}
	return records, nil
}

// ListOpenByEquipment lists the still-open maintenance windows of a piece
// of equipment. Reads from the write database for the same reason as
// shift conflict checks.
func (r *MaintenanceRepository) ListOpenByEquipment(ctx context.Context, equipmentID uuid.UUID) ([]models.MaintenanceLog, error) {
	var records []models.MaintenanceLog
	err := r.db.WithContext(ctx).
		Where("equipment_id = ? AND completion_date IS NULL", equipmentID).
		Find(&records).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list open maintenance windows")
	}
	return records, nil
}

// Update saves changed fields of a maintenance record
func (r *MaintenanceRepository) Update(ctx context.Context, record *models.MaintenanceLog) error {
	result := r.db.WithContext(ctx).Model(&models.MaintenanceLog{}).
		Where("id = ?", record.ID).
		Updates(map[string]interface{}{
			"description":     record.Description,
			"start_time":      record.StartTime,
			"end_time":        record.EndTime,
			"completion_date": record.CompletionDate,
			"responsible_id":  record.ResponsibleID,
		})
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update maintenance record")
	}
	if result.RowsAffected == 0 {
		return errors.Wrapf(models.ErrNotFound, "maintenance record %s", record.ID)
	}
	return nil
}

// Delete removes a maintenance record
func (r *MaintenanceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.MaintenanceLog{}, "id = ?", id)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to delete maintenance record")
	}
	if result.RowsAffected == 0 {
		return errors.Wrapf(models.ErrNotFound, "maintenance record %s", id)
	}
	return nil
}

// OrderRepository provides access to sales orders
type OrderRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *gorm.DB, readOnlyDB *gorm.DB) *OrderRepository {
	return &OrderRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// CreateTx creates an order with its line items inside the caller's
// transaction; orders are only written together with their inventory
// decrements.
func (r *OrderRepository) CreateTx(tx *gorm.DB, order *models.SalesOrder) error {
	return tx.Create(order).Error
}

// GetByID gets an order with its line items
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.SalesOrder, error) {
	var order models.SalesOrder
	err := r.readOnlyDB.WithContext(ctx).Preload("Items").First(&order, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(models.ErrNotFound, "order %s", id)
		}
		return nil, errors.Wrap(err, "failed to get order")
	}
	return &order, nil
}

// GetByIDForUpdate loads an order with its items from the write database
// under a row lock, inside the caller's transaction.
func (r *OrderRepository) GetByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*models.SalesOrder, error) {
	var order models.SalesOrder
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items").
		First(&order, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(models.ErrNotFound, "order %s", id)
		}
		return nil, errors.Wrap(err, "failed to get order")
	}
	return &order, nil
}

// List lists all orders with their line items
func (r *OrderRepository) List(ctx context.Context) ([]models.SalesOrder, error) {
	var orders []models.SalesOrder
	err := r.readOnlyDB.WithContext(ctx).
		Preload("Items").
		Order("created_at desc").
		Find(&orders).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list orders")
	}
	return orders, nil
}

// Update saves changed order fields
func (r *OrderRepository) Update(ctx context.Context, order *models.SalesOrder) error {
	result := r.db.WithContext(ctx).Model(&models.SalesOrder{}).
		Where("id = ?", order.ID).
		Updates(map[string]interface{}{
			"status":      order.Status,
			"total_price": order.TotalPrice,
		})
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update order")
	}
	if result.RowsAffected == 0 {
		return errors.Wrapf(models.ErrNotFound, "order %s", order.ID)
	}
	return nil
}

// DeleteTx removes an order and its line items inside the caller's
// transaction; deletion restocks inventory, so the two must commit together.
func (r *OrderRepository) DeleteTx(tx *gorm.DB, id uuid.UUID) error {
	if err := tx.Where("sales_order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
		return errors.Wrap(err, "failed to delete order items")
	}
	result := tx.Delete(&models.SalesOrder{}, "id = ?", id)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to delete order")
	}
	if result.RowsAffected == 0 {
		return errors.Wrapf(models.ErrNotFound, "order %s", id)
	}
	return nil
}

// CalculationRepository provides access to board foot pricing records
type CalculationRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewCalculationRepository creates a new calculation repository
func NewCalculationRepository(db *gorm.DB, readOnlyDB *gorm.DB) *CalculationRepository {
	return &CalculationRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// Create records a pricing entry or a completed calculation
func (r *CalculationRepository) Create(ctx context.Context, record *models.CalculationRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// LatestByTreeType gets the newest pricing record for a tree type
func (r *CalculationRepository) LatestByTreeType(ctx context.Context, treeType models.TreeType) (*models.CalculationRecord, error) {
	var record models.CalculationRecord
	err := r.readOnlyDB.WithContext(ctx).
		Where("tree_type = ?", treeType).
		Order("created_at desc").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(models.ErrNotFound, "no pricing for tree type %s", treeType)
		}
		return nil, errors.Wrap(err, "failed to get pricing record")
	}
	return &record, nil
}

// LatestVisible gets the newest pricing record for a tree type within the
// given visibility. Private customers price against the private entries.
func (r *CalculationRepository) LatestVisible(ctx context.Context, treeType models.TreeType, isPublic bool) (*models.CalculationRecord, error) {
	var record models.CalculationRecord
	err := r.readOnlyDB.WithContext(ctx).
		Where("tree_type = ? AND is_public = ?", treeType, isPublic).
		Order("created_at desc").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(models.ErrNotFound, "no pricing for tree type %s", treeType)
		}
		return nil, errors.Wrap(err, "failed to get pricing record")
	}
	return &record, nil
}

// FindByDimensions gets the pricing record matching exact tree dimensions
func (r *CalculationRepository) FindByDimensions(ctx context.Context, treeType models.TreeType, diameter, height float64) (*models.CalculationRecord, error) {
	var record models.CalculationRecord
	err := r.readOnlyDB.WithContext(ctx).
		Where("tree_type = ? AND diameter = ? AND height = ?", treeType, diameter, height).
		Order("created_at desc").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(models.ErrNotFound, "no pricing for %s %.1fin x %.1fft", treeType, diameter, height)
		}
		return nil, errors.Wrap(err, "failed to get pricing record")
	}
	return &record, nil
}

// List lists all calculation records, newest first
func (r *CalculationRepository) List(ctx context.Context) ([]models.CalculationRecord, error) {
	var records []models.CalculationRecord
	err := r.readOnlyDB.WithContext(ctx).
		Order("created_at desc").
		Find(&records).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list calculation records")
	}
	return records, nil
}
