package stock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"example.com/sawmill/services/mill/internal/models"
)

// Policy names the consistency strategy applied to a multi-item batch.
// The choice is explicit at the call site so callers see which guarantee
// they are getting.
type Policy string

const (
	// AtomicBatch applies every change or none. Used by order creation.
	AtomicBatch Policy = "atomic"
	// BestEffortBatch applies each change independently and reports
	// partial success. Used by spare part consumption.
	BestEffortBatch Policy = "best_effort"
)

// Change requests consumption of stock from one inventory item.
type Change struct {
	ItemID   uuid.UUID
	Quantity int
}

// ItemResult is the per-item outcome of a batch.
type ItemResult struct {
	ItemID    uuid.UUID `json:"item_id"`
	Applied   bool      `json:"applied"`
	Remaining int       `json:"remaining"`
}

// BatchResult is the outcome of a batch application.
type BatchResult struct {
	AllApplied bool         `json:"all_applied"`
	Items      []ItemResult `json:"items"`
}

// AppliedItems returns only the changes that were actually committed.
func (r BatchResult) AppliedItems() []ItemResult {
	applied := make([]ItemResult, 0, len(r.Items))
	for _, item := range r.Items {
		if item.Applied {
			applied = append(applied, item)
		}
	}
	return applied
}

// Ledger owns inventory quantity mutations. Every decrement is validated
// against current stock under a row lock and paired with an append-only
// InventoryLog entry, so quantities never go negative.
type Ledger struct {
	db *gorm.DB
}

// NewLedger creates a ledger over the write database.
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// Apply consumes stock for the given changes under the named policy.
//
// AtomicBatch validates the full batch before mutating anything and runs
// inside one transaction; the first missing or insufficient item aborts
// the whole batch with models.ErrNotFound or models.ErrInsufficientStock.
//
// BestEffortBatch commits each change in its own transaction, skips the
// ones that cannot be satisfied, and reports partial success through
// BatchResult.AllApplied.
func (l *Ledger) Apply(ctx context.Context, policy Policy, changes []Change) (BatchResult, error) {
	switch policy {
	case AtomicBatch:
		var result BatchResult
		err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var txErr error
			result, txErr = l.ApplyAtomic(tx, changes)
			return txErr
		})
		return result, err
	case BestEffortBatch:
		return l.applyBestEffort(ctx, changes)
	default:
		return BatchResult{}, errors.Errorf("unknown batch policy %q", policy)
	}
}

// ApplyAtomic validates and applies all changes inside the caller's
// transaction. It exists separately from Apply so callers can commit
// related records (an order row, for instance) in the same transaction.
func (l *Ledger) ApplyAtomic(tx *gorm.DB, changes []Change) (BatchResult, error) {
	items := make([]models.InventoryItem, 0, len(changes))

	// Validation pass. Row locks are held until the transaction ends so
	// a concurrent batch cannot consume the stock we just checked.
	for _, change := range changes {
		var item models.InventoryItem
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", change.ItemID).
			First(&item).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return BatchResult{}, errors.Wrapf(models.ErrNotFound, "inventory item %s", change.ItemID)
			}
			return BatchResult{}, errors.Wrap(err, "failed to load inventory item")
		}
		if item.Quantity < change.Quantity {
			return BatchResult{}, errors.Wrapf(models.ErrInsufficientStock,
				"item %s has %d, requested %d", change.ItemID, item.Quantity, change.Quantity)
		}
		items = append(items, item)
	}

	// Commit pass. Only reached when every item passed validation.
	result := BatchResult{AllApplied: true}
	for i, change := range changes {
		remaining := items[i].Quantity - change.Quantity
		if err := l.decrement(tx, change, remaining); err != nil {
			return BatchResult{}, err
		}
		result.Items = append(result.Items, ItemResult{
			ItemID:    change.ItemID,
			Applied:   true,
			Remaining: remaining,
		})
	}
	return result, nil
}

func (l *Ledger) applyBestEffort(ctx context.Context, changes []Change) (BatchResult, error) {
	result := BatchResult{AllApplied: true}
	for _, change := range changes {
		var remaining int
		err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var item models.InventoryItem
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("id = ?", change.ItemID).
				First(&item).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return errors.Wrapf(models.ErrNotFound, "inventory item %s", change.ItemID)
				}
				return errors.Wrap(err, "failed to load inventory item")
			}
			if item.Quantity < change.Quantity {
				return errors.Wrapf(models.ErrInsufficientStock,
					"item %s has %d, requested %d", change.ItemID, item.Quantity, change.Quantity)
			}
			remaining = item.Quantity - change.Quantity
			return l.decrement(tx, change, remaining)
		})

		if err != nil {
			if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrInsufficientStock) {
				// Skip this part and keep going; the batch reports
				// partial success instead of aborting.
				result.AllApplied = false
				result.Items = append(result.Items, ItemResult{ItemID: change.ItemID, Applied: false})
				continue
			}
			return BatchResult{}, err
		}

		result.Items = append(result.Items, ItemResult{
			ItemID:    change.ItemID,
			Applied:   true,
			Remaining: remaining,
		})
	}
	return result, nil
}

// Restock adds quantity back to the given items inside the caller's
// transaction, logging a positive change per item. Used when an order is
// deleted and its stock returns to inventory.
func (l *Ledger) Restock(tx *gorm.DB, changes []Change) error {
	for _, change := range changes {
		res := tx.Model(&models.InventoryItem{}).
			Where("id = ?", change.ItemID).
			Update("quantity", gorm.Expr("quantity + ?", change.Quantity))
		if res.Error != nil {
			return errors.Wrap(res.Error, "failed to restock inventory item")
		}
		if res.RowsAffected == 0 {
			return errors.Wrapf(models.ErrNotFound, "inventory item %s", change.ItemID)
		}

		entry := models.InventoryLog{
			ID:              uuid.New(),
			InventoryItemID: change.ItemID,
			ChangeAmount:    change.Quantity,
			Timestamp:       time.Now().UTC(),
		}
		if err := tx.Create(&entry).Error; err != nil {
			return errors.Wrap(err, "failed to append inventory log")
		}
	}
	return nil
}

func (l *Ledger) decrement(tx *gorm.DB, change Change, remaining int) error {
	err := tx.Model(&models.InventoryItem{}).
		Where("id = ?", change.ItemID).
		Update("quantity", remaining).Error
	if err != nil {
		return errors.Wrap(err, "failed to decrement inventory item")
	}

	entry := models.InventoryLog{
		ID:              uuid.New(),
		InventoryItemID: change.ItemID,
		ChangeAmount:    -change.Quantity,
		Timestamp:       time.Now().UTC(),
	}
	if err := tx.Create(&entry).Error; err != nil {
		return errors.Wrap(err, "failed to append inventory log")
	}
	return nil
}
