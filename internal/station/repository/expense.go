package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hydrohub/hydrohub/internal/ledger"
	"github.com/hydrohub/hydrohub/internal/station/model"
)

// ExpenseRepository provides expense persistence with atomic audit appends.
type ExpenseRepository struct {
	db    *pgxpool.Pool
	audit txAuditor
}

// NewExpenseRepository creates a new ExpenseRepository.
func NewExpenseRepository(db *pgxpool.Pool, audit txAuditor) *ExpenseRepository {
	return &ExpenseRepository{db: db, audit: audit}
}

const expenseColumns = `id, category, amount, vendor, note, staff_id, created_at, receipt_path`

// CreateWithAudit inserts the expense and appends its audit entry in one
// database transaction.
func (r *ExpenseRepository) CreateWithAudit(ctx context.Context, e *model.Expense, buildAudit func(id int64) ledger.AppendInput) (*ledger.Entry, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	e.CreatedAt = time.Now().UTC()
	err = tx.QueryRow(ctx, `
		INSERT INTO expenses (category, amount, vendor, note, staff_id, created_at, receipt_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		e.Category, e.Amount, e.Vendor, e.Note, e.StaffID, e.CreatedAt, e.ReceiptPath,
	).Scan(&e.ID)
	if err != nil {
		return nil, fmt.Errorf("insert expense: %w", err)
	}

	entry, err := r.audit.AppendTx(ctx, tx, buildAudit(e.ID))
	if err != nil {
		return nil, fmt.Errorf("append audit entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return entry, nil
}

// GetByID retrieves a single expense.
func (r *ExpenseRepository) GetByID(ctx context.Context, id int64) (*model.Expense, error) {
	row := r.db.QueryRow(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = $1`, id)
	e, err := scanExpense(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

// List returns expenses newest first, filtered by the optional time range
// and category.
func (r *ExpenseRepository) List(ctx context.Context, f model.ExpenseFilter) ([]model.Expense, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+expenseColumns+`
		FROM expenses
		WHERE ($1::timestamptz IS NULL OR created_at >= $1)
		  AND ($2::timestamptz IS NULL OR created_at <= $2)
		  AND ($3 = '' OR category = $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4 OFFSET $5`,
		nullableTime(f.Start), nullableTime(f.End), f.Category, limitOrDefault(f.Limit), f.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var out []model.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// SetReceiptWithAudit stores the receipt path and records the attachment in
// the audit chain atomically.
func (r *ExpenseRepository) SetReceiptWithAudit(ctx context.Context, id int64, path string, in ledger.AppendInput) (*ledger.Entry, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx, `UPDATE expenses SET receipt_path = $1 WHERE id = $2`, path, id)
	if err != nil {
		return nil, fmt.Errorf("update receipt path: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}

	entry, err := r.audit.AppendTx(ctx, tx, in)
	if err != nil {
		return nil, fmt.Errorf("append audit entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return entry, nil
}

// Aggregate sums expenses in the inclusive [start, end] range.
func (r *ExpenseRepository) Aggregate(ctx context.Context, start, end time.Time) (count int64, total float64, err error) {
	err = r.db.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(amount), 0)
		FROM expenses
		WHERE ($1::timestamptz IS NULL OR created_at >= $1)
		  AND ($2::timestamptz IS NULL OR created_at <= $2)`,
		nullableTime(start), nullableTime(end),
	).Scan(&count, &total)
	if err != nil {
		return 0, 0, fmt.Errorf("aggregate expenses: %w", err)
	}
	return count, total, nil
}

func scanExpense(row pgx.Row) (*model.Expense, error) {
	var e model.Expense
	err := row.Scan(&e.ID, &e.Category, &e.Amount, &e.Vendor, &e.Note, &e.StaffID, &e.CreatedAt, &e.ReceiptPath)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
