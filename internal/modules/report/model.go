package report

import "time"

// StockLevelSummary counts a clinic's items per classification level.
type StockLevelSummary struct {
	ClinicID   string `json:"clinic_id,omitempty"`
	TotalItems int    `json:"total_items"`
	Normal     int    `json:"normal"`
	Low        int    `json:"low"`
	Critical   int    `json:"critical"`
	OutOfStock int    `json:"out_of_stock"`
	Expiring   int    `json:"expiring"`
	Expired    int    `json:"expired"`
}

// AlertCount is one (status, severity) bucket of the alert table.
type AlertCount struct {
	Status   string `json:"status"`
	Severity string `json:"severity"`
	Count    int    `json:"count"`
}

// ActivityEntry is one recent ledger operation with its item context.
type ActivityEntry struct {
	OperationID string    `json:"operation_id"`
	StockItemID string    `json:"stock_item_id"`
	StockName   string    `json:"stock_name"`
	ClinicID    string    `json:"clinic_id"`
	Kind        string    `json:"kind"`
	Delta       float64   `json:"delta"`
	NewValue    float64   `json:"new_value"`
	PerformedBy string    `json:"performed_by"`
	CreatedAt   time.Time `json:"created_at"`
}
