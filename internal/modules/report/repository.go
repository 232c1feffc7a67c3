package report

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/clinicore/medstock-backend/internal/modules/stock"
)

// Repository defines the read-only queries behind the dashboards.
type Repository interface {
	ListStockForSummary(ctx context.Context, clinicID string) ([]*stock.StockItem, error)
	CountAlerts(ctx context.Context, clinicID string) ([]AlertCount, error)
	RecentActivity(ctx context.Context, clinicID string, limit int) ([]ActivityEntry, error)
}

type postgresRepo struct{ db *sql.DB }

// NewPostgresRepository creates a new PostgreSQL report repository.
func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) ListStockForSummary(ctx context.Context, clinicID string) ([]*stock.StockItem, error) {
	query := `
		SELECT id, clinic_id, name, unit, current_stock,
		       min_stock_level, critical_stock_level, expiry_date
		FROM stock_items WHERE is_active=true`
	var args []interface{}
	if clinicID != "" {
		query += ` AND clinic_id=$1`
		args = append(args, clinicID)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query stock summary: %w", err)
	}
	defer rows.Close()

	var items []*stock.StockItem
	for rows.Next() {
		item := &stock.StockItem{}
		var expiry sql.NullTime
		if err := rows.Scan(&item.ID, &item.ClinicID, &item.Name, &item.Unit,
			&item.CurrentStock, &item.MinStockLevel, &item.CriticalStockLevel, &expiry); err != nil {
			return nil, err
		}
		if expiry.Valid {
			exp := expiry.Time
			item.ExpiryDate = &exp
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *postgresRepo) CountAlerts(ctx context.Context, clinicID string) ([]AlertCount, error) {
	query := `SELECT status, severity, COUNT(*) FROM alerts`
	var args []interface{}
	if clinicID != "" {
		query += ` WHERE clinic_id=$1`
		args = append(args, clinicID)
	}
	query += ` GROUP BY status, severity ORDER BY status, severity`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query alert counts: %w", err)
	}
	defer rows.Close()

	var counts []AlertCount
	for rows.Next() {
		var c AlertCount
		if err := rows.Scan(&c.Status, &c.Severity, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func (r *postgresRepo) RecentActivity(ctx context.Context, clinicID string, limit int) ([]ActivityEntry, error) {
	query := `
		SELECT o.id, o.stock_item_id, s.name, s.clinic_id, o.kind, o.delta, o.new_value,
		       o.performed_by, o.created_at
		FROM ledger_operations o
		JOIN stock_items s ON s.id = o.stock_item_id`
	args := []interface{}{limit}
	if clinicID != "" {
		query += ` WHERE s.clinic_id=$2`
		args = append(args, clinicID)
	}
	query += ` ORDER BY o.created_at DESC LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent activity: %w", err)
	}
	defer rows.Close()

	var entries []ActivityEntry
	for rows.Next() {
		var e ActivityEntry
		if err := rows.Scan(&e.OperationID, &e.StockItemID, &e.StockName, &e.ClinicID,
			&e.Kind, &e.Delta, &e.NewValue, &e.PerformedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
