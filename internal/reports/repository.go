package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hydrohub/hydrohub/internal/station/model"
)

// Bucket is one slice of a count/amount breakdown.
type Bucket struct {
	Count  int64   `json:"count"`
	Amount float64 `json:"amount"`
}

// TransactionRow is a refill joined with its staff username, used by the
// CSV exports.
type TransactionRow struct {
	ID             int64
	CreatedAt      time.Time
	CustomerName   string
	GallonsCount   int
	PricePerGallon float64
	TotalAmount    float64
	PaymentType    string
	StaffUsername  string
	HasReceipt     bool
}

// ExpenseRow is an expense joined with its staff username.
type ExpenseRow struct {
	ID            int64
	CreatedAt     time.Time
	Category      string
	Amount        float64
	Vendor        string
	Note          string
	StaffUsername string
	HasReceipt    bool
}

type DayTotals struct {
	Transactions int64
	Gallons      int64
	Revenue      float64
}

// ReportRepository runs the aggregate queries behind the reports. Totals
// are computed in SQL so report endpoints stay cheap regardless of row
// counts.
type ReportRepository struct {
	db *pgxpool.Pool
}

// NewReportRepository creates a ReportRepository backed by the given pool.
func NewReportRepository(db *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{db: db}
}

// SalesTotals returns transaction count, gallons sold, and revenue between
// start and end, both bounds inclusive.
func (r *ReportRepository) SalesTotals(ctx context.Context, start, end time.Time) (count, gallons int64, revenue float64, err error) {
	err = r.db.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(gallons_count), 0), COALESCE(SUM(total_amount), 0)
		FROM refill_transactions
		WHERE created_at >= $1 AND created_at <= $2`,
		start, end,
	).Scan(&count, &gallons, &revenue)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("sales totals: %w", err)
	}
	return count, gallons, revenue, nil
}

// PaymentBreakdown returns per-payment-type counts and amounts.
func (r *ReportRepository) PaymentBreakdown(ctx context.Context, start, end time.Time) (map[string]Bucket, error) {
	rows, err := r.db.Query(ctx, `
		SELECT payment_type, COUNT(*), COALESCE(SUM(total_amount), 0)
		FROM refill_transactions
		WHERE created_at >= $1 AND created_at <= $2
		GROUP BY payment_type`,
		start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("payment breakdown: %w", err)
	}
	defer rows.Close()

	breakdown := make(map[string]Bucket)
	for rows.Next() {
		var key string
		var b Bucket
		if err := rows.Scan(&key, &b.Count, &b.Amount); err != nil {
			return nil, fmt.Errorf("payment breakdown: %w", err)
		}
		breakdown[key] = b
	}
	return breakdown, rows.Err()
}

// ExpenseTotals returns expense count and total amount for the range.
func (r *ReportRepository) ExpenseTotals(ctx context.Context, start, end time.Time) (count int64, total float64, err error) {
	err = r.db.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(amount), 0)
		FROM expenses
		WHERE created_at >= $1 AND created_at <= $2`,
		start, end,
	).Scan(&count, &total)
	if err != nil {
		return 0, 0, fmt.Errorf("expense totals: %w", err)
	}
	return count, total, nil
}

// CategoryBreakdown returns per-category expense counts and amounts.
func (r *ReportRepository) CategoryBreakdown(ctx context.Context, start, end time.Time) (map[string]Bucket, error) {
	rows, err := r.db.Query(ctx, `
		SELECT category, COUNT(*), COALESCE(SUM(amount), 0)
		FROM expenses
		WHERE created_at >= $1 AND created_at <= $2
		GROUP BY category`,
		start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("category breakdown: %w", err)
	}
	defer rows.Close()

	breakdown := make(map[string]Bucket)
	for rows.Next() {
		var key string
		var b Bucket
		if err := rows.Scan(&key, &b.Count, &b.Amount); err != nil {
			return nil, fmt.Errorf("category breakdown: %w", err)
		}
		breakdown[key] = b
	}
	return breakdown, rows.Err()
}

// InventoryItems returns every inventory item ordered by name.
func (r *ReportRepository) InventoryItems(ctx context.Context) ([]model.InventoryItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, category, quantity, unit_cost, location, last_updated
		FROM inventory_items
		ORDER BY name, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("inventory items: %w", err)
	}
	defer rows.Close()

	var items []model.InventoryItem
	for rows.Next() {
		var item model.InventoryItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Category, &item.Quantity,
			&item.UnitCost, &item.Location, &item.LastUpdated); err != nil {
			return nil, fmt.Errorf("inventory items: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// StaffSales returns per-staff transaction totals for admin and staff
// accounts, including accounts with no sales in the range.
func (r *ReportRepository) StaffSales(ctx context.Context, start, end time.Time) ([]StaffStats, error) {
	rows, err := r.db.Query(ctx, `
		SELECT u.id, u.username, u.role,
		       COUNT(t.id), COALESCE(SUM(t.gallons_count), 0), COALESCE(SUM(t.total_amount), 0)
		FROM users u
		LEFT JOIN refill_transactions t
		  ON t.staff_id = u.id AND t.created_at >= $1 AND t.created_at <= $2
		WHERE u.role IN ('admin', 'staff')
		GROUP BY u.id, u.username, u.role
		ORDER BY u.username`,
		start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("staff sales: %w", err)
	}
	defer rows.Close()

	var stats []StaffStats
	for rows.Next() {
		var s StaffStats
		if err := rows.Scan(&s.UserID, &s.Username, &s.Role,
			&s.Transactions.Count, &s.Transactions.TotalGallons, &s.Transactions.TotalRevenue); err != nil {
			return nil, fmt.Errorf("staff sales: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// StaffExpenses returns per-staff expense totals keyed by user ID.
func (r *ReportRepository) StaffExpenses(ctx context.Context, start, end time.Time) (map[int64]Bucket, error) {
	rows, err := r.db.Query(ctx, `
		SELECT u.id, COUNT(e.id), COALESCE(SUM(e.amount), 0)
		FROM users u
		LEFT JOIN expenses e
		  ON e.staff_id = u.id AND e.created_at >= $1 AND e.created_at <= $2
		WHERE u.role IN ('admin', 'staff')
		GROUP BY u.id`,
		start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("staff expenses: %w", err)
	}
	defer rows.Close()

	totals := make(map[int64]Bucket)
	for rows.Next() {
		var id int64
		var b Bucket
		if err := rows.Scan(&id, &b.Count, &b.Amount); err != nil {
			return nil, fmt.Errorf("staff expenses: %w", err)
		}
		totals[id] = b
	}
	return totals, rows.Err()
}

// DailyRefills returns per-day transaction totals keyed by "2006-01-02".
func (r *ReportRepository) DailyRefills(ctx context.Context, start, end time.Time) (map[string]DayTotals, error) {
	rows, err := r.db.Query(ctx, `
		SELECT created_at::date AS day, COUNT(*), COALESCE(SUM(gallons_count), 0), COALESCE(SUM(total_amount), 0)
		FROM refill_transactions
		WHERE created_at >= $1 AND created_at <= $2
		GROUP BY day`,
		start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("daily refills: %w", err)
	}
	defer rows.Close()

	days := make(map[string]DayTotals)
	for rows.Next() {
		var day time.Time
		var d DayTotals
		if err := rows.Scan(&day, &d.Transactions, &d.Gallons, &d.Revenue); err != nil {
			return nil, fmt.Errorf("daily refills: %w", err)
		}
		days[day.Format("2006-01-02")] = d
	}
	return days, rows.Err()
}

// DailyExpenses returns per-day expense sums keyed by "2006-01-02".
func (r *ReportRepository) DailyExpenses(ctx context.Context, start, end time.Time) (map[string]float64, error) {
	rows, err := r.db.Query(ctx, `
		SELECT created_at::date AS day, COALESCE(SUM(amount), 0)
		FROM expenses
		WHERE created_at >= $1 AND created_at <= $2
		GROUP BY day`,
		start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("daily expenses: %w", err)
	}
	defer rows.Close()

	days := make(map[string]float64)
	for rows.Next() {
		var day time.Time
		var sum float64
		if err := rows.Scan(&day, &sum); err != nil {
			return nil, fmt.Errorf("daily expenses: %w", err)
		}
		days[day.Format("2006-01-02")] = sum
	}
	return days, rows.Err()
}

// TransactionRows returns the refill rows for the range with staff
// usernames resolved, oldest first.
func (r *ReportRepository) TransactionRows(ctx context.Context, start, end time.Time) ([]TransactionRow, error) {
	rows, err := r.db.Query(ctx, `
		SELECT t.id, t.created_at, t.customer_name, t.gallons_count, t.price_per_gallon,
		       t.total_amount, t.payment_type, COALESCE(u.username, 'Unknown'), t.receipt_path <> ''
		FROM refill_transactions t
		LEFT JOIN users u ON u.id = t.staff_id
		WHERE t.created_at >= $1 AND t.created_at <= $2
		ORDER BY t.created_at, t.id`,
		start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("transaction rows: %w", err)
	}
	defer rows.Close()

	var out []TransactionRow
	for rows.Next() {
		var row TransactionRow
		if err := rows.Scan(&row.ID, &row.CreatedAt, &row.CustomerName, &row.GallonsCount,
			&row.PricePerGallon, &row.TotalAmount, &row.PaymentType, &row.StaffUsername, &row.HasReceipt); err != nil {
			return nil, fmt.Errorf("transaction rows: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// ExpenseRows returns the expense rows for the range with staff usernames
// resolved, oldest first.
func (r *ReportRepository) ExpenseRows(ctx context.Context, start, end time.Time) ([]ExpenseRow, error) {
	rows, err := r.db.Query(ctx, `
		SELECT e.id, e.created_at, e.category, e.amount, e.vendor, e.note,
		       COALESCE(u.username, 'Unknown'), e.receipt_path <> ''
		FROM expenses e
		LEFT JOIN users u ON u.id = e.staff_id
		WHERE e.created_at >= $1 AND e.created_at <= $2
		ORDER BY e.created_at, e.id`,
		start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("expense rows: %w", err)
	}
	defer rows.Close()

	var out []ExpenseRow
	for rows.Next() {
		var row ExpenseRow
		if err := rows.Scan(&row.ID, &row.CreatedAt, &row.Category, &row.Amount,
			&row.Vendor, &row.Note, &row.StaffUsername, &row.HasReceipt); err != nil {
			return nil, fmt.Errorf("expense rows: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
