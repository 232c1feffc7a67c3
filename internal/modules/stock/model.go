package stock

import (
	"time"

	"github.com/google/uuid"
)

// StockItem is one catalog-tracked inventory row, scoped to a clinic.
// CurrentStock is only ever changed through a ledger mutation.
type StockItem struct {
	ID                 uuid.UUID  `json:"id"`
	ClinicID           uuid.UUID  `json:"clinic_id"`
	SupplierID         *uuid.UUID `json:"supplier_id,omitempty"`
	Name               string     `json:"name"`
	Category           string     `json:"category,omitempty"`
	Unit               string     `json:"unit"`
	CurrentStock       float64    `json:"current_stock"`
	MinStockLevel      float64    `json:"min_stock_level"`
	CriticalStockLevel float64    `json:"critical_stock_level"`
	ExpiryDate         *time.Time `json:"expiry_date,omitempty"`
	IsActive           bool       `json:"is_active"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// MutationKind classifies a ledger mutation.
type MutationKind string

const (
	KindAdjustmentIncrease MutationKind = "ADJUSTMENT_INCREASE"
	KindAdjustmentDecrease MutationKind = "ADJUSTMENT_DECREASE"
	KindUsage              MutationKind = "USAGE"
	KindTransferOut        MutationKind = "TRANSFER_OUT"
	KindTransferIn         MutationKind = "TRANSFER_IN"
)

// LedgerOperation is the immutable audit record of one stock mutation.
// Exactly one row exists per committed change to CurrentStock.
type LedgerOperation struct {
	ID          uuid.UUID    `json:"id"`
	StockItemID uuid.UUID    `json:"stock_item_id"`
	Kind        MutationKind `json:"kind"`
	Delta       float64      `json:"delta"`
	OldValue    float64      `json:"old_value"`
	NewValue    float64      `json:"new_value"`
	Reason      string       `json:"reason,omitempty"`
	UsedBy      string       `json:"used_by,omitempty"`
	PerformedBy string       `json:"performed_by"`
	CreatedAt   time.Time    `json:"created_at"`
}

// CreateStockRequest is the payload for registering a new stock item.
type CreateStockRequest struct {
	ClinicID           string  `json:"clinic_id"`
	SupplierID         string  `json:"supplier_id,omitempty"`
	Name               string  `json:"name"`
	Category           string  `json:"category,omitempty"`
	Unit               string  `json:"unit"`
	CurrentStock       float64 `json:"current_stock"`
	MinStockLevel      float64 `json:"min_stock_level"`
	CriticalStockLevel float64 `json:"critical_stock_level"`
	ExpiryDate         string  `json:"expiry_date,omitempty"` // YYYY-MM-DD
}

// AdjustStockRequest is the payload for a manual stock correction.
type AdjustStockRequest struct {
	Quantity    float64 `json:"quantity"`
	Direction   string  `json:"direction"` // INCREASE or DECREASE
	Reason      string  `json:"reason"`
	PerformedBy string  `json:"performed_by"`
}

// UseStockRequest is the payload for recording consumption.
type UseStockRequest struct {
	Quantity    float64 `json:"quantity"`
	Reason      string  `json:"reason"`
	UsedBy      string  `json:"used_by,omitempty"`
	PerformedBy string  `json:"performed_by"`
}

// ListFilters narrows stock listings.
type ListFilters struct {
	ClinicID   string
	Category   string
	ActiveOnly bool
}
