package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// ItemType classifies an inventory item.
type ItemType string

const (
	ItemTypeMaterial ItemType = "MATERIAL"
	ItemTypeProduct  ItemType = "PRODUCT"
	ItemTypeResource ItemType = "RESOURCE"
)

// Valid reports whether the item type is one of the known values.
func (t ItemType) Valid() bool {
	switch t {
	case ItemTypeMaterial, ItemTypeProduct, ItemTypeResource:
		return true
	}
	return false
}

// OrderStatus is the lifecycle state of a sales order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Valid reports whether the order status is one of the known values.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// TreeType identifies a wood species used in board foot pricing.
type TreeType string

const (
	TreeTypeOak    TreeType = "OAK"
	TreeTypePine   TreeType = "PINE"
	TreeTypeMaple  TreeType = "MAPLE"
	TreeTypeBirch  TreeType = "BIRCH"
	TreeTypeCedar  TreeType = "CEDAR"
	TreeTypeWalnut TreeType = "WALNUT"
)

// Valid reports whether the tree type is one of the known species.
func (t TreeType) Valid() bool {
	switch t {
	case TreeTypeOak, TreeTypePine, TreeTypeMaple, TreeTypeBirch, TreeTypeCedar, TreeTypeWalnut:
		return true
	}
	return false
}

// TreeTypes lists all known species in a stable order.
func TreeTypes() []TreeType {
	return []TreeType{TreeTypeOak, TreeTypePine, TreeTypeMaple, TreeTypeBirch, TreeTypeCedar, TreeTypeWalnut}
}

// CustomerType groups customers for pricing rules.
type CustomerType string

const (
	CustomerTypeStandard CustomerType = "STANDARD"
	CustomerTypeVIP      CustomerType = "VIP"
	CustomerTypePrivate  CustomerType = "PRIVATE"
)

// Valid reports whether the customer type is one of the known values.
func (t CustomerType) Valid() bool {
	switch t {
	case CustomerTypeStandard, CustomerTypeVIP, CustomerTypePrivate:
		return true
	}
	return false
}

// InventoryItem represents a tracked material, product or resource.
// Soft deletion zeroes the quantity instead of removing the record.
type InventoryItem struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Name      string         `gorm:"not null" json:"name"`
	ItemType  ItemType       `gorm:"not null" json:"item_type"`
	Quantity  int            `gorm:"not null;default:0" json:"quantity"`
	Logs      []InventoryLog `gorm:"foreignKey:InventoryItemID" json:"-"`
}

// InventoryLog is an append-only record of a quantity change.
type InventoryLog struct {
	ID              uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	InventoryItemID uuid.UUID     `gorm:"type:uuid;not null;index" json:"inventory_item_id"`
	ChangeAmount    int           `gorm:"not null" json:"change_amount"`
	Timestamp       time.Time     `gorm:"not null" json:"timestamp"`
	InventoryItem   InventoryItem `gorm:"foreignKey:InventoryItemID" json:"-"`
}

// Employee is a sawmill worker assignable to shifts and maintenance.
type Employee struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	FirstName string         `gorm:"not null" json:"first_name"`
	LastName  string         `gorm:"not null" json:"last_name"`
	Position  string         `json:"position"`
	Shifts    []Shift        `gorm:"foreignKey:EmployeeID" json:"-"`
}

// Equipment is a machine that can be scheduled or put under maintenance.
type Equipment struct {
	ID              uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt       time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt   `gorm:"index" json:"-"`
	Name            string           `gorm:"not null" json:"name"`
	MaintenanceLogs []MaintenanceLog `gorm:"foreignKey:EquipmentID" json:"-"`
}

// Shift is a committed work interval for one employee. Shifts created
// together share a ScheduleID.
type Shift struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
	ScheduleID uuid.UUID      `gorm:"type:uuid;not null;index" json:"schedule_id"`
	EmployeeID uuid.UUID      `gorm:"type:uuid;not null;index" json:"employee_id"`
	StartTime  time.Time      `gorm:"not null" json:"start_time"`
	EndTime    time.Time      `gorm:"not null" json:"end_time"`
	Employee   Employee       `gorm:"foreignKey:EmployeeID" json:"-"`
}

// MaintenanceLog records maintenance work on a piece of equipment.
// A nil CompletionDate means the window is still open and the equipment
// is unavailable for scheduling.
type MaintenanceLog struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
	EquipmentID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"equipment_id"`
	ResponsibleID  uuid.UUID      `gorm:"type:uuid;not null" json:"responsible_id"`
	Description    string         `json:"description"`
	StartTime      time.Time      `gorm:"not null" json:"start_time"`
	EndTime        time.Time      `gorm:"not null" json:"end_time"`
	CompletionDate *time.Time     `json:"completion_date"`
	Equipment      Equipment      `gorm:"foreignKey:EquipmentID" json:"-"`
	Responsible    Employee       `gorm:"foreignKey:ResponsibleID" json:"-"`
}

// SalesOrder is a customer order over one or more inventory items.
type SalesOrder struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
	CustomerID uuid.UUID      `gorm:"type:uuid;not null;index" json:"customer_id"`
	Status     OrderStatus    `gorm:"not null;default:PENDING" json:"status"`
	TotalPrice float64        `gorm:"not null;default:0" json:"total_price"`
	Items      []OrderItem    `gorm:"foreignKey:SalesOrderID" json:"items"`
}

// OrderItem is a single line of a sales order.
type OrderItem struct {
	ID              uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	SalesOrderID    uuid.UUID     `gorm:"type:uuid;not null;index" json:"sales_order_id"`
	InventoryItemID uuid.UUID     `gorm:"type:uuid;not null" json:"inventory_item_id"`
	Quantity        int           `gorm:"not null" json:"quantity"`
	InventoryItem   InventoryItem `gorm:"foreignKey:InventoryItemID" json:"-"`
}

// CalculationRecord stores a board foot pricing entry together with the
// profit last calculated against it. The newest record per tree type is
// the authoritative price.
type CalculationRecord struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt         time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
	TreeType          TreeType       `gorm:"not null;index" json:"tree_type"`
	Diameter          float64        `gorm:"not null" json:"diameter"`
	Height            float64        `gorm:"not null" json:"height"`
	PricePerBoardFoot float64        `gorm:"not null" json:"price_per_board_foot"`
	CalculatedProfit  float64        `gorm:"not null;default:0" json:"calculated_profit"`
	IsPublic          bool           `gorm:"not null;default:true" json:"is_public"`
}

// SetupModels configures GORM models and runs migrations
func SetupModels(db *gorm.DB) error {
	err := db.AutoMigrate(
		&InventoryItem{},
		&InventoryLog{},
		&Employee{},
		&Equipment{},
		&Shift{},
		&MaintenanceLog{},
		&SalesOrder{},
		&OrderItem{},
		&CalculationRecord{},
	)

	if err != nil {
		return errors.Wrap(err, "failed to run auto migrations")
	}

	return nil
}
