package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/hydrohub/hydrohub/internal/ledger"
	"github.com/hydrohub/hydrohub/internal/station/model"
)

// inventoryRepo is the persistence interface for the inventory service.
// *repository.InventoryRepository satisfies this interface.
type inventoryRepo interface {
	CreateWithAudit(ctx context.Context, item *model.InventoryItem, buildAudit func(id int64) ledger.AppendInput) (*ledger.Entry, error)
	GetByID(ctx context.Context, id int64) (*model.InventoryItem, error)
	List(ctx context.Context) ([]model.InventoryItem, error)
	ListLowStock(ctx context.Context, threshold int) ([]model.InventoryItem, error)
	ApplyAdjustment(ctx context.Context, id int64, adjust func(item *model.InventoryItem) (int, ledger.AppendInput, error)) (*model.InventoryItem, *ledger.Entry, error)
}

// InventoryService manages stocked items. Quantity adjustments are checked
// against the current quantity under a row lock, so concurrent adjustments
// cannot drive stock negative.
type InventoryService struct {
	repo   inventoryRepo
	logger *zap.Logger
}

// NewInventoryService creates a new InventoryService.
func NewInventoryService(repo inventoryRepo, logger *zap.Logger) *InventoryService {
	return &InventoryService{repo: repo, logger: logger}
}

// CreateItem validates and adds a new inventory item.
func (s *InventoryService) CreateItem(ctx context.Context, actorID int64, req *model.CreateItemRequest) (*model.InventoryItem, error) {
	item, err := req.Validate()
	if err != nil {
		return nil, err
	}

	_, err = s.repo.CreateWithAudit(ctx, item, func(id int64) ledger.AppendInput {
		return ledger.InventoryChange(&actorID, id, item.Name, "item_added", map[string]any{
			"item_name":   item.Name,
			"change_type": "item_added",
			"quantity":    item.Quantity,
			"unit_cost":   item.UnitCost,
		})
	})
	if err != nil {
		s.logger.Error("create inventory item", zap.Error(err))
		return nil, err
	}

	s.logger.Info("inventory item added",
		zap.Int64("id", item.ID),
		zap.String("name", item.Name),
		zap.Int("quantity", item.Quantity),
	)
	return item, nil
}

// Get retrieves one item.
func (s *InventoryService) Get(ctx context.Context, id int64) (*model.InventoryItem, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns all items ordered by name.
func (s *InventoryService) List(ctx context.Context) ([]model.InventoryItem, error) {
	return s.repo.List(ctx)
}

// LowStock returns items at or below the low-stock threshold.
func (s *InventoryService) LowStock(ctx context.Context) ([]model.InventoryItem, error) {
	return s.repo.ListLowStock(ctx, model.LowStockThreshold)
}

// Adjust applies a stock adjustment. Adjustments that would take the
// quantity below zero are rejected before anything is written.
func (s *InventoryService) Adjust(ctx context.Context, actorID, itemID int64, req *model.AdjustStockRequest) (*model.InventoryItem, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(req.Reason)

	item, _, err := s.repo.ApplyAdjustment(ctx, itemID, func(item *model.InventoryItem) (int, ledger.AppendInput, error) {
		oldQuantity := item.Quantity
		newQuantity := req.NewQuantity(oldQuantity)
		if newQuantity < 0 {
			return 0, ledger.AppendInput{}, &model.ErrValidation{Msg: "resulting quantity cannot be negative"}
		}

		in := ledger.InventoryChange(&actorID, item.ID, item.Name, req.Type, map[string]any{
			"item_name":         item.Name,
			"change_type":       req.Type,
			"old_quantity":      oldQuantity,
			"new_quantity":      newQuantity,
			"adjustment_amount": newQuantity - oldQuantity,
			"reason":            reason,
		})
		return newQuantity, in, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("inventory adjusted",
		zap.Int64("id", item.ID),
		zap.String("name", item.Name),
		zap.String("type", req.Type),
		zap.Int("quantity", item.Quantity),
	)
	return item, nil
}
