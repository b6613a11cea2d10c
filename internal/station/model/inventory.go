package model

import (
	"strings"
	"time"
)

// LowStockThreshold is the quantity at or below which an item appears in the
// low-stock listing.
const LowStockThreshold = 10

// Stock adjustment kinds, recorded verbatim in the audit chain.
const (
	AdjustAddStock    = "add_stock"
	AdjustRemoveStock = "remove_stock"
	AdjustSetQuantity = "set_quantity"
	AdjustMarkDamaged = "mark_damaged"
)

// ValidAdjustmentType reports whether t is a known stock adjustment kind.
func ValidAdjustmentType(t string) bool {
	switch t {
	case AdjustAddStock, AdjustRemoveStock, AdjustSetQuantity, AdjustMarkDamaged:
		return true
	}
	return false
}

// SuggestedInventoryCategories are offered in the UI; unlike expense
// categories, inventory categories are free text.
var SuggestedInventoryCategories = []string{
	"Water", "Containers", "Equipment", "Supplies", "Chemicals", "Other",
}

// InventoryItem is one stocked item. Quantity never goes negative.
type InventoryItem struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Quantity    int       `json:"quantity"`
	UnitCost    float64   `json:"unit_cost"`
	Location    string    `json:"location,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
}

// CreateItemRequest is the payload for adding a new inventory item.
type CreateItemRequest struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Quantity int     `json:"quantity"`
	UnitCost float64 `json:"unit_cost"`
	Location string  `json:"location"`
}

// Validate checks the request and returns the validated item (without
// ID/LastUpdated) or an *ErrValidation.
func (r *CreateItemRequest) Validate() (*InventoryItem, error) {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return nil, validationErrorf("item name is required")
	}
	if len(name) > 100 {
		return nil, validationErrorf("item name must be no more than 100 characters")
	}
	category := strings.TrimSpace(r.Category)
	if category == "" {
		return nil, validationErrorf("category is required")
	}
	if len(category) > 50 {
		return nil, validationErrorf("category must be no more than 50 characters")
	}
	if r.Quantity < 0 {
		return nil, validationErrorf("quantity must be at least 0")
	}
	if r.UnitCost < 0 {
		return nil, validationErrorf("unit cost must be at least 0")
	}
	location := strings.TrimSpace(r.Location)
	if len(location) > 100 {
		return nil, validationErrorf("location must be no more than 100 characters")
	}

	return &InventoryItem{
		Name:     name,
		Category: category,
		Quantity: r.Quantity,
		UnitCost: r.UnitCost,
		Location: location,
	}, nil
}

// AdjustStockRequest changes an item's quantity. For set_quantity, Amount is
// the new absolute quantity; for the other kinds it is the (positive) number
// of units added or removed.
type AdjustStockRequest struct {
	Type   string `json:"change_type"`
	Amount int    `json:"amount"`
	Reason string `json:"reason"`
}

// Validate checks the adjustment request.
func (r *AdjustStockRequest) Validate() error {
	if !ValidAdjustmentType(r.Type) {
		return validationErrorf("adjustment type must be one of: add_stock, remove_stock, set_quantity, mark_damaged")
	}
	if r.Type == AdjustSetQuantity {
		if r.Amount < 0 {
			return validationErrorf("new quantity must be at least 0")
		}
	} else if r.Amount < 1 {
		return validationErrorf("adjustment amount must be at least 1")
	}
	if len(strings.TrimSpace(r.Reason)) > 500 {
		return validationErrorf("reason must be no more than 500 characters")
	}
	return nil
}

// NewQuantity applies the adjustment to the current quantity. The result may
// be negative for remove/damage adjustments; callers reject those.
func (r *AdjustStockRequest) NewQuantity(current int) int {
	switch r.Type {
	case AdjustSetQuantity:
		return r.Amount
	case AdjustAddStock:
		return current + r.Amount
	default: // remove_stock, mark_damaged
		return current - r.Amount
	}
}
