package stock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type postgresRepo struct{ db *sql.DB }

// NewPostgresRepository creates a new PostgreSQL stock repository.
func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const stockColumns = `id, clinic_id, supplier_id, name, category, unit,
       current_stock, min_stock_level, critical_stock_level, expiry_date,
       is_active, created_at, updated_at`

func (r *postgresRepo) Create(ctx context.Context, item *StockItem) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO stock_items
		  (id, clinic_id, supplier_id, name, category, unit,
		   current_stock, min_stock_level, critical_stock_level, expiry_date, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		item.ID, item.ClinicID, item.SupplierID, item.Name, item.Category, item.Unit,
		item.CurrentStock, item.MinStockLevel, item.CriticalStockLevel,
		item.ExpiryDate, item.IsActive)
	if err != nil {
		return fmt.Errorf("insert stock_item: %w", err)
	}
	return nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*StockItem, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid id", ErrValidation)
	}
	return scanStockItem(r.db.QueryRowContext(ctx,
		`SELECT `+stockColumns+` FROM stock_items WHERE id=$1`, uid))
}

func (r *postgresRepo) List(ctx context.Context, filters ListFilters) ([]*StockItem, error) {
	query := `SELECT ` + stockColumns + ` FROM stock_items WHERE 1=1`
	var args []interface{}
	if filters.ClinicID != "" {
		args = append(args, filters.ClinicID)
		query += fmt.Sprintf(` AND clinic_id=$%d`, len(args))
	}
	if filters.Category != "" {
		args = append(args, filters.Category)
		query += fmt.Sprintf(` AND category=$%d`, len(args))
	}
	if filters.ActiveOnly {
		query += ` AND is_active=true`
	}
	query += ` ORDER BY name ASC`
	return r.queryStockItems(ctx, query, args...)
}

func (r *postgresRepo) ListActive(ctx context.Context) ([]*StockItem, error) {
	return r.queryStockItems(ctx,
		`SELECT `+stockColumns+` FROM stock_items WHERE is_active=true ORDER BY name ASC`)
}

// ApplyMutation locks the stock row, validates the resulting quantity, and
// commits the update together with its audit row. Two concurrent mutations on
// the same item serialize on the FOR UPDATE lock, so neither can act on a
// stale quantity.
func (r *postgresRepo) ApplyMutation(ctx context.Context, m *Mutation) (*MutationResult, error) {
	uid, err := uuid.Parse(m.StockItemID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid id", ErrValidation)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	item, err := scanStockItem(tx.QueryRowContext(ctx,
		`SELECT `+stockColumns+` FROM stock_items WHERE id=$1 FOR UPDATE`, uid))
	if err != nil {
		return nil, err
	}
	if !item.IsActive {
		return nil, ErrInactiveStock
	}

	oldValue := item.CurrentStock
	newValue := oldValue + m.Delta
	if newValue < 0 {
		return nil, fmt.Errorf("%w: have %g, requested %g", ErrInsufficientStock, oldValue, -m.Delta)
	}

	now := time.Now()
	if _, err := tx.ExecContext(ctx,
		`UPDATE stock_items SET current_stock=$1, updated_at=$2 WHERE id=$3`,
		newValue, now, uid); err != nil {
		return nil, fmt.Errorf("update stock_item: %w", err)
	}

	op := &LedgerOperation{
		ID:          uuid.New(),
		StockItemID: uid,
		Kind:        m.Kind,
		Delta:       m.Delta,
		OldValue:    oldValue,
		NewValue:    newValue,
		Reason:      m.Reason,
		UsedBy:      m.UsedBy,
		PerformedBy: m.PerformedBy,
		CreatedAt:   now,
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_operations
		  (id, stock_item_id, kind, delta, old_value, new_value, reason, used_by, performed_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		op.ID, op.StockItemID, op.Kind, op.Delta, op.OldValue, op.NewValue,
		op.Reason, op.UsedBy, op.PerformedBy, op.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert ledger_operation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	item.CurrentStock = newValue
	item.UpdatedAt = now
	return &MutationResult{Item: item, Operation: op}, nil
}

func (r *postgresRepo) SetActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE stock_items SET is_active=$1, updated_at=$2 WHERE id=$3`,
		active, time.Now(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM stock_items WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepo) HasOperations(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM ledger_operations WHERE stock_item_id=$1)`, id).Scan(&exists)
	return exists, err
}

func (r *postgresRepo) HasOpenRequests(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM stock_requests
		 WHERE stock_item_id=$1 AND status IN ('PENDING','APPROVED'))`, id).Scan(&exists)
	return exists, err
}

func (r *postgresRepo) ListOperations(ctx context.Context, stockItemID string, limit int) ([]*LedgerOperation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, stock_item_id, kind, delta, old_value, new_value, reason, used_by, performed_by, created_at
		FROM ledger_operations WHERE stock_item_id=$1
		ORDER BY created_at DESC LIMIT $2`, stockItemID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ops []*LedgerOperation
	for rows.Next() {
		op := &LedgerOperation{}
		var reason, usedBy sql.NullString
		if err := rows.Scan(&op.ID, &op.StockItemID, &op.Kind, &op.Delta,
			&op.OldValue, &op.NewValue, &reason, &usedBy, &op.PerformedBy, &op.CreatedAt); err != nil {
			return nil, err
		}
		op.Reason = reason.String
		op.UsedBy = usedBy.String
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// ── helpers ──────────────────────────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStockItem(row rowScanner) (*StockItem, error) {
	item := &StockItem{}
	var supplierID sql.NullString
	var category sql.NullString
	var expiry sql.NullTime
	err := row.Scan(&item.ID, &item.ClinicID, &supplierID, &item.Name, &category,
		&item.Unit, &item.CurrentStock, &item.MinStockLevel, &item.CriticalStockLevel,
		&expiry, &item.IsActive, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if supplierID.Valid {
		sid, _ := uuid.Parse(supplierID.String)
		item.SupplierID = &sid
	}
	item.Category = category.String
	if expiry.Valid {
		exp := expiry.Time
		item.ExpiryDate = &exp
	}
	return item, nil
}

func (r *postgresRepo) queryStockItems(ctx context.Context, query string, args ...interface{}) ([]*StockItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*StockItem
	for rows.Next() {
		item := &StockItem{}
		var supplierID, category sql.NullString
		var expiry sql.NullTime
		if err := rows.Scan(&item.ID, &item.ClinicID, &supplierID, &item.Name, &category,
			&item.Unit, &item.CurrentStock, &item.MinStockLevel, &item.CriticalStockLevel,
			&expiry, &item.IsActive, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		if supplierID.Valid {
			sid, _ := uuid.Parse(supplierID.String)
			item.SupplierID = &sid
		}
		item.Category = category.String
		if expiry.Valid {
			exp := expiry.Time
			item.ExpiryDate = &exp
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
