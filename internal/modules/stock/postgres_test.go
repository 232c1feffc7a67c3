package stock

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockStockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, Repository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPostgresRepository(db)
}

func stockRows(id, clinicID uuid.UUID, current float64, active bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "clinic_id", "supplier_id", "name", "category", "unit",
		"current_stock", "min_stock_level", "critical_stock_level", "expiry_date",
		"is_active", "created_at", "updated_at",
	}).AddRow(id.String(), clinicID.String(), nil, "Paracetamol 500mg", "analgesic", "box",
		current, 5.0, 2.0, nil, active, now, now)
}

func TestApplyMutation_Success(t *testing.T) {
	db, mock, repo := setupMockStockDB(t)
	defer db.Close()

	id := uuid.New()
	clinicID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM stock_items WHERE id=\$1 FOR UPDATE`).
		WithArgs(id).
		WillReturnRows(stockRows(id, clinicID, 10, true))
	mock.ExpectExec(`UPDATE stock_items SET current_stock=`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO ledger_operations`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := repo.ApplyMutation(context.Background(), &Mutation{
		StockItemID: id.String(),
		Delta:       -6,
		Kind:        KindUsage,
		Reason:      "ward consumption",
		PerformedBy: "nurse-1",
	})

	require.NoError(t, err)
	assert.Equal(t, 4.0, res.Item.CurrentStock)
	assert.Equal(t, 10.0, res.Operation.OldValue)
	assert.Equal(t, 4.0, res.Operation.NewValue)
	assert.Equal(t, KindUsage, res.Operation.Kind)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyMutation_InsufficientRollsBack(t *testing.T) {
	db, mock, repo := setupMockStockDB(t)
	defer db.Close()

	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FOR UPDATE`).
		WithArgs(id).
		WillReturnRows(stockRows(id, uuid.New(), 3, true))
	mock.ExpectRollback()

	_, err := repo.ApplyMutation(context.Background(), &Mutation{
		StockItemID: id.String(),
		Delta:       -5,
		Kind:        KindUsage,
		PerformedBy: "nurse-1",
	})

	assert.ErrorIs(t, err, ErrInsufficientStock)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyMutation_InactiveRollsBack(t *testing.T) {
	db, mock, repo := setupMockStockDB(t)
	defer db.Close()

	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FOR UPDATE`).
		WithArgs(id).
		WillReturnRows(stockRows(id, uuid.New(), 10, false))
	mock.ExpectRollback()

	_, err := repo.ApplyMutation(context.Background(), &Mutation{
		StockItemID: id.String(),
		Delta:       1,
		Kind:        KindAdjustmentIncrease,
		PerformedBy: "nurse-1",
	})

	assert.ErrorIs(t, err, ErrInactiveStock)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyMutation_NotFound(t *testing.T) {
	db, mock, repo := setupMockStockDB(t)
	defer db.Close()

	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FOR UPDATE`).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.ApplyMutation(context.Background(), &Mutation{
		StockItemID: id.String(),
		Delta:       1,
		Kind:        KindAdjustmentIncrease,
		PerformedBy: "nurse-1",
	})

	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_InvalidID(t *testing.T) {
	db, _, repo := setupMockStockDB(t)
	defer db.Close()

	_, err := repo.GetByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrValidation)
}
