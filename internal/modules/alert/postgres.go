package alert

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type postgresRepo struct{ db *sql.DB }

// NewPostgresRepository creates a new PostgreSQL alert repository.
func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const alertColumns = `id, stock_item_id, clinic_id, type, severity, status, message,
       current_value, threshold_value, resolved_by, resolution_notes, resolved_at,
       created_at, updated_at`

func (r *postgresRepo) Create(ctx context.Context, a *Alert) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO alerts
		  (id, stock_item_id, clinic_id, type, severity, status, message,
		   current_value, threshold_value)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		a.ID, a.StockItemID, a.ClinicID, a.Type, a.Severity, a.Status, a.Message,
		a.CurrentValue, a.ThresholdValue)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		// Partial unique index on (stock_item_id, type) for ACTIVE rows: a
		// concurrent insert already raised this alert.
		return ErrDuplicateActive
	}
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*Alert, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid id", ErrValidation)
	}
	return scanAlert(r.db.QueryRowContext(ctx,
		`SELECT `+alertColumns+` FROM alerts WHERE id=$1`, uid))
}

func (r *postgresRepo) List(ctx context.Context, filters ListFilters) ([]*Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE 1=1`
	var args []interface{}
	add := func(clause, value string) {
		args = append(args, value)
		query += fmt.Sprintf(` AND %s=$%d`, clause, len(args))
	}
	if filters.StockItemID != "" {
		add("stock_item_id", filters.StockItemID)
	}
	if filters.ClinicID != "" {
		add("clinic_id", filters.ClinicID)
	}
	if filters.Type != "" {
		add("type", filters.Type)
	}
	if filters.Status != "" {
		add("status", filters.Status)
	}
	if filters.Severity != "" {
		add("severity", filters.Severity)
	}
	query += ` ORDER BY created_at DESC`
	return r.queryAlerts(ctx, query, args...)
}

func (r *postgresRepo) FindActiveByStockAndType(ctx context.Context, stockItemID string, t Type) (*Alert, error) {
	a, err := scanAlert(r.db.QueryRowContext(ctx, `
		SELECT `+alertColumns+` FROM alerts
		WHERE stock_item_id=$1 AND type=$2 AND status='ACTIVE'
		ORDER BY created_at DESC LIMIT 1`, stockItemID, t))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return a, err
}

func (r *postgresRepo) ListActiveByStock(ctx context.Context, stockItemID string, types []Type) ([]*Alert, error) {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return r.queryAlerts(ctx, `
		SELECT `+alertColumns+` FROM alerts
		WHERE stock_item_id=$1 AND status='ACTIVE' AND type = ANY($2)
		ORDER BY created_at DESC`, stockItemID, pq.Array(names))
}

// Close flips ACTIVE to a terminal status. The status guard in the WHERE
// clause makes concurrent closes race-safe: only one caller sees a row count.
func (r *postgresRepo) Close(ctx context.Context, id string, status Status, resolvedBy, notes string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE alerts
		SET status=$1, resolved_by=NULLIF($2,''), resolution_notes=NULLIF($3,''),
		    resolved_at=$4, updated_at=$4
		WHERE id=$5 AND status='ACTIVE'`,
		status, resolvedBy, notes, time.Now(), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ── helpers ──────────────────────────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAlert(row rowScanner) (*Alert, error) {
	a := &Alert{}
	var stockItemID, clinicID, resolvedBy, notes sql.NullString
	var currentValue, thresholdValue sql.NullFloat64
	var resolvedAt sql.NullTime
	err := row.Scan(&a.ID, &stockItemID, &clinicID, &a.Type, &a.Severity, &a.Status,
		&a.Message, &currentValue, &thresholdValue, &resolvedBy, &notes, &resolvedAt,
		&a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if stockItemID.Valid {
		sid, _ := uuid.Parse(stockItemID.String)
		a.StockItemID = &sid
	}
	if clinicID.Valid {
		cid, _ := uuid.Parse(clinicID.String)
		a.ClinicID = &cid
	}
	if currentValue.Valid {
		a.CurrentValue = &currentValue.Float64
	}
	if thresholdValue.Valid {
		a.ThresholdValue = &thresholdValue.Float64
	}
	a.ResolvedBy = resolvedBy.String
	a.ResolutionNotes = notes.String
	if resolvedAt.Valid {
		t := resolvedAt.Time
		a.ResolvedAt = &t
	}
	return a, nil
}

func (r *postgresRepo) queryAlerts(ctx context.Context, query string, args ...interface{}) ([]*Alert, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []*Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}
