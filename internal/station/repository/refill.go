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

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// txAuditor appends an audit entry inside a caller-owned transaction.
// *ledger.PostgresLedger satisfies this interface.
type txAuditor interface {
	AppendTx(ctx context.Context, tx pgx.Tx, in ledger.AppendInput) (*ledger.Entry, error)
}

// RefillRepository provides refill transaction persistence. Writes commit
// together with their audit entry: either both the business row and the
// chain entry land, or neither does.
type RefillRepository struct {
	db    *pgxpool.Pool
	audit txAuditor
}

// NewRefillRepository creates a new RefillRepository.
func NewRefillRepository(db *pgxpool.Pool, audit txAuditor) *RefillRepository {
	return &RefillRepository{db: db, audit: audit}
}

const refillColumns = `id, customer_name, gallons_count, price_per_gallon,
	total_amount, payment_type, staff_id, created_at, receipt_path`

// CreateWithAudit inserts the transaction and appends its audit entry in one
// database transaction. buildAudit receives the assigned row ID, which is
// only known after the insert.
func (r *RefillRepository) CreateWithAudit(ctx context.Context, t *model.RefillTransaction, buildAudit func(id int64) ledger.AppendInput) (*ledger.Entry, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	t.CreatedAt = time.Now().UTC()
	err = tx.QueryRow(ctx, `
		INSERT INTO refill_transactions (
			customer_name, gallons_count, price_per_gallon, total_amount,
			payment_type, staff_id, created_at, receipt_path
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		t.CustomerName, t.GallonsCount, t.PricePerGallon, t.TotalAmount,
		t.PaymentType, t.StaffID, t.CreatedAt, t.ReceiptPath,
	).Scan(&t.ID)
	if err != nil {
		return nil, fmt.Errorf("insert refill transaction: %w", err)
	}

	entry, err := r.audit.AppendTx(ctx, tx, buildAudit(t.ID))
	if err != nil {
		return nil, fmt.Errorf("append audit entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return entry, nil
}

// GetByID retrieves a single transaction.
func (r *RefillRepository) GetByID(ctx context.Context, id int64) (*model.RefillTransaction, error) {
	row := r.db.QueryRow(ctx, `SELECT `+refillColumns+` FROM refill_transactions WHERE id = $1`, id)
	t, err := scanRefill(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

// List returns transactions newest first, filtered by the optional time
// range and staff member.
func (r *RefillRepository) List(ctx context.Context, f model.RefillFilter) ([]model.RefillTransaction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+refillColumns+`
		FROM refill_transactions
		WHERE ($1::timestamptz IS NULL OR created_at >= $1)
		  AND ($2::timestamptz IS NULL OR created_at <= $2)
		  AND ($3::bigint IS NULL OR staff_id = $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4 OFFSET $5`,
		nullableTime(f.Start), nullableTime(f.End), f.StaffID, limitOrDefault(f.Limit), f.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("query refill transactions: %w", err)
	}
	defer rows.Close()

	var out []model.RefillTransaction
	for rows.Next() {
		t, err := scanRefill(rows)
		if err != nil {
			return nil, fmt.Errorf("scan refill transaction: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// SetReceiptWithAudit stores the receipt path on the row and records the
// attachment in the audit chain atomically.
func (r *RefillRepository) SetReceiptWithAudit(ctx context.Context, id int64, path string, in ledger.AppendInput) (*ledger.Entry, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx, `UPDATE refill_transactions SET receipt_path = $1 WHERE id = $2`, path, id)
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

// Aggregate sums transactions in the inclusive [start, end] range.
func (r *RefillRepository) Aggregate(ctx context.Context, start, end time.Time) (count int64, gallons int64, revenue float64, err error) {
	err = r.db.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(gallons_count), 0), COALESCE(SUM(total_amount), 0)
		FROM refill_transactions
		WHERE ($1::timestamptz IS NULL OR created_at >= $1)
		  AND ($2::timestamptz IS NULL OR created_at <= $2)`,
		nullableTime(start), nullableTime(end),
	).Scan(&count, &gallons, &revenue)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("aggregate refill transactions: %w", err)
	}
	return count, gallons, revenue, nil
}

func scanRefill(row pgx.Row) (*model.RefillTransaction, error) {
	var t model.RefillTransaction
	err := row.Scan(
		&t.ID, &t.CustomerName, &t.GallonsCount, &t.PricePerGallon,
		&t.TotalAmount, &t.PaymentType, &t.StaffID, &t.CreatedAt, &t.ReceiptPath,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// nullableTime maps the zero time to NULL for optional range bounds.
func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// limitOrDefault clamps a page size into (0, 200].
func limitOrDefault(limit int) int {
	if limit <= 0 || limit > 200 {
		return 50
	}
	return limit
}
