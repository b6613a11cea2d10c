package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hydrohub/hydrohub/internal/ledger"
	"github.com/hydrohub/hydrohub/internal/station/model"
)

// expenseRepo is the persistence interface for the expense service.
// *repository.ExpenseRepository satisfies this interface.
type expenseRepo interface {
	CreateWithAudit(ctx context.Context, e *model.Expense, buildAudit func(id int64) ledger.AppendInput) (*ledger.Entry, error)
	GetByID(ctx context.Context, id int64) (*model.Expense, error)
	List(ctx context.Context, f model.ExpenseFilter) ([]model.Expense, error)
	SetReceiptWithAudit(ctx context.Context, id int64, path string, in ledger.AppendInput) (*ledger.Entry, error)
	Aggregate(ctx context.Context, start, end time.Time) (count int64, total float64, err error)
}

// ExpenseService records and queries business expenses.
type ExpenseService struct {
	repo   expenseRepo
	logger *zap.Logger
}

// NewExpenseService creates a new ExpenseService.
func NewExpenseService(repo expenseRepo, logger *zap.Logger) *ExpenseService {
	return &ExpenseService{repo: repo, logger: logger}
}

// Create validates and records an expense on behalf of the given staff
// member.
func (s *ExpenseService) Create(ctx context.Context, staffID int64, req *model.CreateExpenseRequest) (*model.Expense, error) {
	e, err := req.Validate()
	if err != nil {
		return nil, err
	}
	e.StaffID = staffID

	entry, err := s.repo.CreateWithAudit(ctx, e, func(id int64) ledger.AppendInput {
		return ledger.Expense(&staffID, id, e.Category, e.Amount, map[string]any{
			"category": e.Category,
			"amount":   e.Amount,
			"vendor":   e.Vendor,
			"note":     e.Note,
			"staff_id": e.StaffID,
		})
	})
	if err != nil {
		s.logger.Error("record expense", zap.Error(err))
		return nil, err
	}

	s.logger.Info("expense recorded",
		zap.Int64("id", e.ID),
		zap.String("category", e.Category),
		zap.Float64("amount", e.Amount),
		zap.Int64("ledger_sequence", entry.Sequence),
	)
	return e, nil
}

// Get retrieves one expense.
func (s *ExpenseService) Get(ctx context.Context, id int64) (*model.Expense, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns expenses newest first.
func (s *ExpenseService) List(ctx context.Context, f model.ExpenseFilter) ([]model.Expense, error) {
	return s.repo.List(ctx, f)
}

// AttachReceipt links a stored receipt file to the expense and records the
// attachment in the audit chain.
func (s *ExpenseService) AttachReceipt(ctx context.Context, actorID, id int64, path, fileHash string) error {
	in := ledger.UserAction(&actorID, "receipt_attached", map[string]any{
		"expense_id":   id,
		"receipt_path": path,
		"receipt_hash": fileHash,
	})
	if _, err := s.repo.SetReceiptWithAudit(ctx, id, path, in); err != nil {
		return err
	}
	return nil
}
