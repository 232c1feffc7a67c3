package transfer

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/clinicore/medstock-backend/internal/modules/stock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Fixed ids so the ascending lock order is deterministic: source sorts below
// the destination.
var (
	testSourceStockID = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	testDestStockID   = uuid.MustParse("eeeeeeee-eeee-eeee-eeee-eeeeeeeeeeee")
)

func setupMockTransferDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, Repository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPostgresRepository(db)
}

func approvedRequest(quantity float64) *StockRequest {
	q := quantity
	return &StockRequest{
		ID:                    uuid.New(),
		RequesterClinicID:     uuid.New(),
		RequestedFromClinicID: uuid.New(),
		StockItemID:           testSourceStockID,
		RequestedQuantity:     quantity,
		ApprovedQuantity:      &q,
		Status:                StatusApproved,
	}
}

func lockedStockRows(id uuid.UUID, current float64, active bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "clinic_id", "supplier_id", "name", "category", "unit",
		"current_stock", "min_stock_level", "critical_stock_level", "expiry_date", "is_active",
	}).AddRow(id.String(), uuid.New().String(), nil, "Saline 0.9%", nil, "bag",
		current, 20.0, 5.0, nil, active)
}

func statusRows(s Status) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"status"}).AddRow(string(s))
}

func destLookupRows(id uuid.UUID) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id"}).AddRow(id.String())
}

func TestCompleteTransfer_ExistingDestination(t *testing.T) {
	db, mock, repo := setupMockTransferDB(t)
	defer db.Close()

	req := approvedRequest(30)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM stock_requests WHERE id=\$1 FOR UPDATE`).
		WithArgs(req.ID).
		WillReturnRows(statusRows(StatusApproved))
	mock.ExpectQuery(`SELECT s\.id FROM stock_items s, stock_items src`).
		WithArgs(req.StockItemID, req.RequesterClinicID).
		WillReturnRows(destLookupRows(testDestStockID))
	mock.ExpectQuery(`FROM stock_items WHERE id=\$1 FOR UPDATE`).
		WithArgs(testSourceStockID).
		WillReturnRows(lockedStockRows(testSourceStockID, 100, true))
	mock.ExpectQuery(`FROM stock_items WHERE id=\$1 FOR UPDATE`).
		WithArgs(testDestStockID).
		WillReturnRows(lockedStockRows(testDestStockID, 10, true))
	mock.ExpectExec(`UPDATE stock_items SET current_stock=`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO ledger_operations`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE stock_items SET current_stock=`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO ledger_operations`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE stock_requests`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := repo.CompleteTransfer(context.Background(), req, "pharmacist")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, res.Request.Status)
	assert.Equal(t, 100.0, res.SourceOld)
	assert.Equal(t, 70.0, res.SourceNew)
	assert.Equal(t, testDestStockID, res.DestStockID)
	assert.Equal(t, 10.0, res.DestOld)
	assert.Equal(t, 40.0, res.DestNew)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A destination created by a concurrent completion is invisible to the first
// lookup but committed by the time the source row lock is granted; the second
// lookup must find it instead of inserting a duplicate row.
func TestCompleteTransfer_DestinationFoundOnRecheck(t *testing.T) {
	db, mock, repo := setupMockTransferDB(t)
	defer db.Close()

	req := approvedRequest(30)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM stock_requests WHERE id=\$1 FOR UPDATE`).
		WithArgs(req.ID).
		WillReturnRows(statusRows(StatusApproved))
	mock.ExpectQuery(`SELECT s\.id FROM stock_items s, stock_items src`).
		WithArgs(req.StockItemID, req.RequesterClinicID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`FROM stock_items WHERE id=\$1 FOR UPDATE`).
		WithArgs(testSourceStockID).
		WillReturnRows(lockedStockRows(testSourceStockID, 100, true))
	mock.ExpectQuery(`SELECT s\.id FROM stock_items s, stock_items src`).
		WithArgs(req.StockItemID, req.RequesterClinicID).
		WillReturnRows(destLookupRows(testDestStockID))
	mock.ExpectQuery(`FROM stock_items WHERE id=\$1 FOR UPDATE`).
		WithArgs(testDestStockID).
		WillReturnRows(lockedStockRows(testDestStockID, 30, true))
	mock.ExpectExec(`UPDATE stock_items SET current_stock=`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO ledger_operations`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE stock_items SET current_stock=`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO ledger_operations`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE stock_requests`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := repo.CompleteTransfer(context.Background(), req, "pharmacist")
	require.NoError(t, err)
	assert.Equal(t, testDestStockID, res.DestStockID)
	assert.Equal(t, 30.0, res.DestOld)
	assert.Equal(t, 60.0, res.DestNew)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteTransfer_InactiveDestination(t *testing.T) {
	db, mock, repo := setupMockTransferDB(t)
	defer db.Close()

	req := approvedRequest(30)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM stock_requests WHERE id=\$1 FOR UPDATE`).
		WithArgs(req.ID).
		WillReturnRows(statusRows(StatusApproved))
	mock.ExpectQuery(`SELECT s\.id FROM stock_items s, stock_items src`).
		WithArgs(req.StockItemID, req.RequesterClinicID).
		WillReturnRows(destLookupRows(testDestStockID))
	mock.ExpectQuery(`FROM stock_items WHERE id=\$1 FOR UPDATE`).
		WithArgs(testSourceStockID).
		WillReturnRows(lockedStockRows(testSourceStockID, 100, true))
	mock.ExpectQuery(`FROM stock_items WHERE id=\$1 FOR UPDATE`).
		WithArgs(testDestStockID).
		WillReturnRows(lockedStockRows(testDestStockID, 10, false))
	mock.ExpectRollback()

	// A soft-deleted destination is not revived as a transfer side effect.
	_, err := repo.CompleteTransfer(context.Background(), req, "pharmacist")
	assert.ErrorIs(t, err, stock.ErrInactiveStock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteTransfer_NoLongerApproved(t *testing.T) {
	db, mock, repo := setupMockTransferDB(t)
	defer db.Close()

	req := approvedRequest(30)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM stock_requests WHERE id=\$1 FOR UPDATE`).
		WithArgs(req.ID).
		WillReturnRows(statusRows(StatusCompleted))
	mock.ExpectRollback()

	_, err := repo.CompleteTransfer(context.Background(), req, "pharmacist")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}
