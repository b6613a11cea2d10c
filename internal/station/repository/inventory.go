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

// InventoryRepository provides inventory item persistence. Quantity changes
// run under row locks and commit together with their audit entry.
type InventoryRepository struct {
	db    *pgxpool.Pool
	audit txAuditor
}

// NewInventoryRepository creates a new InventoryRepository.
func NewInventoryRepository(db *pgxpool.Pool, audit txAuditor) *InventoryRepository {
	return &InventoryRepository{db: db, audit: audit}
}

const itemColumns = `id, name, category, quantity, unit_cost, location, last_updated`

// CreateWithAudit inserts the item and appends its audit entry in one
// database transaction.
func (r *InventoryRepository) CreateWithAudit(ctx context.Context, item *model.InventoryItem, buildAudit func(id int64) ledger.AppendInput) (*ledger.Entry, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	item.LastUpdated = time.Now().UTC()
	err = tx.QueryRow(ctx, `
		INSERT INTO inventory_items (name, category, quantity, unit_cost, location, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		item.Name, item.Category, item.Quantity, item.UnitCost, item.Location, item.LastUpdated,
	).Scan(&item.ID)
	if err != nil {
		return nil, fmt.Errorf("insert inventory item: %w", err)
	}

	entry, err := r.audit.AppendTx(ctx, tx, buildAudit(item.ID))
	if err != nil {
		return nil, fmt.Errorf("append audit entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return entry, nil
}

// GetByID retrieves a single item.
func (r *InventoryRepository) GetByID(ctx context.Context, id int64) (*model.InventoryItem, error) {
	row := r.db.QueryRow(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE id = $1`, id)
	item, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return item, err
}

// List returns all items ordered by name.
func (r *InventoryRepository) List(ctx context.Context) ([]model.InventoryItem, error) {
	rows, err := r.db.Query(ctx, `SELECT `+itemColumns+` FROM inventory_items ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("query inventory items: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}

// ListLowStock returns items at or below the threshold, lowest first.
func (r *InventoryRepository) ListLowStock(ctx context.Context, threshold int) ([]model.InventoryItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+itemColumns+`
		FROM inventory_items
		WHERE quantity <= $1
		ORDER BY quantity, name`,
		threshold,
	)
	if err != nil {
		return nil, fmt.Errorf("query low stock items: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}

// ApplyAdjustment locks the item row, lets adjust compute the new quantity
// and audit entry from the current state, then writes both atomically. The
// returned item reflects the new quantity.
func (r *InventoryRepository) ApplyAdjustment(
	ctx context.Context,
	id int64,
	adjust func(item *model.InventoryItem) (newQuantity int, in ledger.AppendInput, err error),
) (*model.InventoryItem, *ledger.Entry, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	row := tx.QueryRow(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE id = $1 FOR UPDATE`, id)
	item, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("lock inventory item: %w", err)
	}

	newQuantity, in, err := adjust(item)
	if err != nil {
		return nil, nil, err
	}

	item.Quantity = newQuantity
	item.LastUpdated = time.Now().UTC()
	_, err = tx.Exec(ctx, `UPDATE inventory_items SET quantity = $1, last_updated = $2 WHERE id = $3`,
		item.Quantity, item.LastUpdated, item.ID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("update inventory item: %w", err)
	}

	entry, err := r.audit.AppendTx(ctx, tx, in)
	if err != nil {
		return nil, nil, fmt.Errorf("append audit entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit tx: %w", err)
	}
	return item, entry, nil
}

func scanItem(row pgx.Row) (*model.InventoryItem, error) {
	var item model.InventoryItem
	err := row.Scan(&item.ID, &item.Name, &item.Category, &item.Quantity, &item.UnitCost, &item.Location, &item.LastUpdated)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func collectItems(rows pgx.Rows) ([]model.InventoryItem, error) {
	var out []model.InventoryItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inventory item: %w", err)
		}
		out = append(out, *item)
	}
	return out, rows.Err()
}
