package transfer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/clinicore/medstock-backend/internal/modules/stock"
	"github.com/google/uuid"
)

type postgresRepo struct{ db *sql.DB }

// NewPostgresRepository creates a new PostgreSQL stock request repository.
func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const requestColumns = `id, requester_clinic_id, requested_from_clinic_id, stock_item_id,
       requested_quantity, approved_quantity, status, request_reason, rejection_reason,
       approval_notes, requested_by, approved_by, rejected_by, completed_by,
       approved_at, rejected_at, completed_at, created_at, updated_at`

func (r *postgresRepo) Create(ctx context.Context, req *StockRequest) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO stock_requests
		  (id, requester_clinic_id, requested_from_clinic_id, stock_item_id,
		   requested_quantity, status, request_reason, requested_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		req.ID, req.RequesterClinicID, req.RequestedFromClinicID, req.StockItemID,
		req.RequestedQuantity, req.Status, req.RequestReason, req.RequestedBy)
	if err != nil {
		return fmt.Errorf("insert stock_request: %w", err)
	}
	return nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*StockRequest, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid id", ErrValidation)
	}
	return scanRequest(r.db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM stock_requests WHERE id=$1`, uid))
}

func (r *postgresRepo) List(ctx context.Context, filters ListFilters) ([]*StockRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM stock_requests WHERE 1=1`
	var args []interface{}
	add := func(clause, value string) {
		args = append(args, value)
		query += fmt.Sprintf(` AND %s=$%d`, clause, len(args))
	}
	if filters.RequesterClinicID != "" {
		add("requester_clinic_id", filters.RequesterClinicID)
	}
	if filters.RequestedFromClinicID != "" {
		add("requested_from_clinic_id", filters.RequestedFromClinicID)
	}
	if filters.StockItemID != "" {
		add("stock_item_id", filters.StockItemID)
	}
	if filters.Status != "" {
		add("status", filters.Status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []*StockRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

func (r *postgresRepo) Approve(ctx context.Context, id string, quantity float64, approvedBy, notes string) (bool, error) {
	now := time.Now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE stock_requests
		SET status=$1, approved_quantity=$2, approved_by=$3, approval_notes=NULLIF($4,''),
		    approved_at=$5, updated_at=$5
		WHERE id=$6 AND status=$7`,
		StatusApproved, quantity, approvedBy, notes, now, id, StatusPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *postgresRepo) Reject(ctx context.Context, id string, reason, rejectedBy string) (bool, error) {
	now := time.Now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE stock_requests
		SET status=$1, rejection_reason=$2, rejected_by=$3, rejected_at=$4, updated_at=$4
		WHERE id=$5 AND status=$6`,
		StatusRejected, reason, rejectedBy, now, id, StatusPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// lockedStock is the slice of a stock row read under FOR UPDATE.
type lockedStock struct {
	id                 uuid.UUID
	clinicID           uuid.UUID
	supplierID         sql.NullString
	name               string
	category           sql.NullString
	unit               string
	currentStock       float64
	minStockLevel      float64
	criticalStockLevel float64
	expiryDate         sql.NullTime
	isActive           bool
}

// CompleteTransfer moves the approved quantity between the two clinics in one
// transaction. Stock rows are locked in ascending id order so two transfers
// moving stock in opposite directions cannot deadlock.
func (r *postgresRepo) CompleteTransfer(ctx context.Context, req *StockRequest, performedBy string) (*CompletionResult, error) {
	if req.ApprovedQuantity == nil {
		return nil, fmt.Errorf("%w: request has no approved quantity", ErrInvalidTransition)
	}
	quantity := *req.ApprovedQuantity

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Re-check the request status under lock; a concurrent completion must
	// not run the ledger mutations twice.
	var status Status
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM stock_requests WHERE id=$1 FOR UPDATE`, req.ID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if status != StatusApproved {
		return nil, fmt.Errorf("%w: request is %s", ErrInvalidTransition, status)
	}

	// The destination item is the requester clinic's row for the same
	// catalog entry, matched by name and unit (oldest row wins when
	// duplicates exist).
	findDest := func() (uuid.UUID, bool, error) {
		var id uuid.UUID
		err := tx.QueryRowContext(ctx, `
			SELECT s.id FROM stock_items s, stock_items src
			WHERE src.id=$1 AND s.clinic_id=$2 AND s.name=src.name AND s.unit=src.unit
			ORDER BY s.created_at, s.id LIMIT 1`,
			req.StockItemID, req.RequesterClinicID).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, false, nil
		}
		if err != nil {
			return uuid.Nil, false, err
		}
		return id, true, nil
	}

	destID, destExists, err := findDest()
	if err != nil {
		return nil, err
	}

	var source, dest *lockedStock
	if destExists && destID.String() < req.StockItemID.String() {
		if dest, err = lockStock(ctx, tx, destID); err != nil {
			return nil, err
		}
		if source, err = lockStock(ctx, tx, req.StockItemID); err != nil {
			return nil, err
		}
	} else {
		if source, err = lockStock(ctx, tx, req.StockItemID); err != nil {
			return nil, err
		}
		if destExists {
			if dest, err = lockStock(ctx, tx, destID); err != nil {
				return nil, err
			}
		}
	}

	// Concurrent completions of the same source item serialize on its row
	// lock, so a destination created by the winner is visible now even
	// though the first lookup missed it.
	if !destExists {
		if destID, destExists, err = findDest(); err != nil {
			return nil, err
		}
		if destExists {
			if dest, err = lockStock(ctx, tx, destID); err != nil {
				return nil, err
			}
		}
	}

	if !source.isActive {
		return nil, stock.ErrInactiveStock
	}
	if dest != nil && !dest.isActive {
		// Crediting a soft-deleted item would silently revive it. The
		// request stays APPROVED; reactivate the destination and retry.
		return nil, stock.ErrInactiveStock
	}
	if source.currentStock < quantity {
		return nil, fmt.Errorf("%w: source has %g, transfer needs %g",
			stock.ErrInsufficientStock, source.currentStock, quantity)
	}

	now := time.Now()
	sourceNew := source.currentStock - quantity
	if _, err := tx.ExecContext(ctx,
		`UPDATE stock_items SET current_stock=$1, updated_at=$2 WHERE id=$3`,
		sourceNew, now, source.id); err != nil {
		return nil, fmt.Errorf("update source stock: %w", err)
	}
	if err := insertLedgerOp(ctx, tx, source.id, stock.KindTransferOut, -quantity,
		source.currentStock, sourceNew, req.ID, performedBy, now); err != nil {
		return nil, err
	}

	var destOld, destNew float64
	if dest != nil {
		destOld = dest.currentStock
		destNew = destOld + quantity
		if _, err := tx.ExecContext(ctx,
			`UPDATE stock_items SET current_stock=$1, updated_at=$2 WHERE id=$3`,
			destNew, now, dest.id); err != nil {
			return nil, fmt.Errorf("update destination stock: %w", err)
		}
		destID = dest.id
	} else {
		// First transfer of this catalog entry to the requester clinic:
		// create its stock row, copying catalog attributes from the source.
		destID = uuid.New()
		destOld, destNew = 0, quantity
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO stock_items
			  (id, clinic_id, supplier_id, name, category, unit,
			   current_stock, min_stock_level, critical_stock_level, expiry_date, is_active)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,true)`,
			destID, req.RequesterClinicID, source.supplierID, source.name, source.category,
			source.unit, quantity, source.minStockLevel, source.criticalStockLevel,
			source.expiryDate); err != nil {
			return nil, fmt.Errorf("create destination stock: %w", err)
		}
	}
	if err := insertLedgerOp(ctx, tx, destID, stock.KindTransferIn, quantity,
		destOld, destNew, req.ID, performedBy, now); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE stock_requests
		SET status=$1, completed_by=$2, completed_at=$3, updated_at=$3
		WHERE id=$4`,
		StatusCompleted, performedBy, now, req.ID); err != nil {
		return nil, fmt.Errorf("complete stock_request: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	completed := *req
	completed.Status = StatusCompleted
	completed.CompletedBy = performedBy
	completed.CompletedAt = &now
	completed.UpdatedAt = now

	return &CompletionResult{
		Request:     &completed,
		SourceOld:   source.currentStock,
		SourceNew:   sourceNew,
		DestStockID: destID,
		DestOld:     destOld,
		DestNew:     destNew,
	}, nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

func lockStock(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*lockedStock, error) {
	ls := &lockedStock{}
	err := tx.QueryRowContext(ctx, `
		SELECT id, clinic_id, supplier_id, name, category, unit,
		       current_stock, min_stock_level, critical_stock_level, expiry_date, is_active
		FROM stock_items WHERE id=$1 FOR UPDATE`, id).Scan(
		&ls.id, &ls.clinicID, &ls.supplierID, &ls.name, &ls.category, &ls.unit,
		&ls.currentStock, &ls.minStockLevel, &ls.criticalStockLevel, &ls.expiryDate, &ls.isActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, stock.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return ls, nil
}

func insertLedgerOp(ctx context.Context, tx *sql.Tx, stockID uuid.UUID, kind stock.MutationKind,
	delta, oldValue, newValue float64, requestID uuid.UUID, performedBy string, now time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_operations
		  (id, stock_item_id, kind, delta, old_value, new_value, reason, performed_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		uuid.New(), stockID, kind, delta, oldValue, newValue,
		fmt.Sprintf("stock request %s", requestID), performedBy, now)
	if err != nil {
		return fmt.Errorf("insert ledger_operation: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(row rowScanner) (*StockRequest, error) {
	req := &StockRequest{}
	var approvedQuantity sql.NullFloat64
	var requestReason, rejectionReason, approvalNotes sql.NullString
	var approvedBy, rejectedBy, completedBy sql.NullString
	var approvedAt, rejectedAt, completedAt sql.NullTime
	err := row.Scan(&req.ID, &req.RequesterClinicID, &req.RequestedFromClinicID,
		&req.StockItemID, &req.RequestedQuantity, &approvedQuantity, &req.Status,
		&requestReason, &rejectionReason, &approvalNotes, &req.RequestedBy,
		&approvedBy, &rejectedBy, &completedBy,
		&approvedAt, &rejectedAt, &completedAt, &req.CreatedAt, &req.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if approvedQuantity.Valid {
		req.ApprovedQuantity = &approvedQuantity.Float64
	}
	req.RequestReason = requestReason.String
	req.RejectionReason = rejectionReason.String
	req.ApprovalNotes = approvalNotes.String
	req.ApprovedBy = approvedBy.String
	req.RejectedBy = rejectedBy.String
	req.CompletedBy = completedBy.String
	if approvedAt.Valid {
		t := approvedAt.Time
		req.ApprovedAt = &t
	}
	if rejectedAt.Valid {
		t := rejectedAt.Time
		req.RejectedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		req.CompletedAt = &t
	}
	return req, nil
}
