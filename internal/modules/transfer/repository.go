package transfer

import (
	"context"

	"github.com/google/uuid"
)

// CompletionResult reports the ledger effect of a completed transfer, for
// event publication after commit.
type CompletionResult struct {
	Request     *StockRequest
	SourceOld   float64
	SourceNew   float64
	DestStockID uuid.UUID
	DestOld     float64
	DestNew     float64
}

// Repository defines stock request data storage.
type Repository interface {
	Create(ctx context.Context, req *StockRequest) error
	GetByID(ctx context.Context, id string) (*StockRequest, error)
	List(ctx context.Context, filters ListFilters) ([]*StockRequest, error)

	// Approve and Reject transition a PENDING request; both return false when
	// the request was no longer pending.
	Approve(ctx context.Context, id string, quantity float64, approvedBy, notes string) (bool, error)
	Reject(ctx context.Context, id string, reason, rejectedBy string) (bool, error)

	// CompleteTransfer atomically moves the approved quantity between the two
	// clinics' stock items (creating the destination item when missing),
	// writes both ledger rows, and marks the request COMPLETED. It fails
	// without side effects when the source no longer covers the quantity.
	CompleteTransfer(ctx context.Context, req *StockRequest, performedBy string) (*CompletionResult, error)
}
