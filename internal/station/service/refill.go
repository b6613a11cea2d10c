package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hydrohub/hydrohub/internal/ledger"
	"github.com/hydrohub/hydrohub/internal/station/model"
)

// refillRepo is the persistence interface for the refill service.
// *repository.RefillRepository satisfies this interface.
type refillRepo interface {
	CreateWithAudit(ctx context.Context, t *model.RefillTransaction, buildAudit func(id int64) ledger.AppendInput) (*ledger.Entry, error)
	GetByID(ctx context.Context, id int64) (*model.RefillTransaction, error)
	List(ctx context.Context, f model.RefillFilter) ([]model.RefillTransaction, error)
	SetReceiptWithAudit(ctx context.Context, id int64, path string, in ledger.AppendInput) (*ledger.Entry, error)
	Aggregate(ctx context.Context, start, end time.Time) (count int64, gallons int64, revenue float64, err error)
}

// RefillService records and queries water refill sales. Every recorded sale
// lands in the audit chain in the same transaction as the business row.
type RefillService struct {
	repo   refillRepo
	logger *zap.Logger
}

// NewRefillService creates a new RefillService.
func NewRefillService(repo refillRepo, logger *zap.Logger) *RefillService {
	return &RefillService{repo: repo, logger: logger}
}

// Create validates and records a refill sale on behalf of the given staff
// member.
func (s *RefillService) Create(ctx context.Context, staffID int64, req *model.CreateRefillRequest) (*model.RefillTransaction, error) {
	t, err := req.Validate()
	if err != nil {
		return nil, err
	}
	t.StaffID = staffID

	entry, err := s.repo.CreateWithAudit(ctx, t, func(id int64) ledger.AppendInput {
		return ledger.RefillTransaction(&staffID, id, t.GallonsCount, t.TotalAmount, map[string]any{
			"customer_name":    t.CustomerName,
			"gallons_count":    t.GallonsCount,
			"price_per_gallon": t.PricePerGallon,
			"payment_type":     t.PaymentType,
			"total_amount":     t.TotalAmount,
			"staff_id":         t.StaffID,
		})
	})
	if err != nil {
		s.logger.Error("record refill transaction", zap.Error(err))
		return nil, err
	}

	s.logger.Info("refill transaction recorded",
		zap.Int64("id", t.ID),
		zap.Int("gallons", t.GallonsCount),
		zap.Float64("total", t.TotalAmount),
		zap.Int64("ledger_sequence", entry.Sequence),
	)
	return t, nil
}

// Get retrieves one transaction.
func (s *RefillService) Get(ctx context.Context, id int64) (*model.RefillTransaction, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns transactions newest first.
func (s *RefillService) List(ctx context.Context, f model.RefillFilter) ([]model.RefillTransaction, error) {
	return s.repo.List(ctx, f)
}

// AttachReceipt links a stored receipt file to the transaction and records
// the attachment in the audit chain.
func (s *RefillService) AttachReceipt(ctx context.Context, actorID, id int64, path, fileHash string) error {
	in := ledger.UserAction(&actorID, "receipt_attached", map[string]any{
		"transaction_id": id,
		"receipt_path":   path,
		"receipt_hash":   fileHash,
	})
	if _, err := s.repo.SetReceiptWithAudit(ctx, id, path, in); err != nil {
		return err
	}
	return nil
}

// TodayStats summarizes today's sales (since local midnight).
type TodayStats struct {
	Transactions int64   `json:"transactions"`
	Gallons      int64   `json:"gallons"`
	Revenue      float64 `json:"revenue"`
}

// Today returns today's sales totals.
func (s *RefillService) Today(ctx context.Context) (*TodayStats, error) {
	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	count, gallons, revenue, err := s.repo.Aggregate(ctx, midnight, time.Time{})
	if err != nil {
		return nil, err
	}
	return &TodayStats{Transactions: count, Gallons: gallons, Revenue: revenue}, nil
}
