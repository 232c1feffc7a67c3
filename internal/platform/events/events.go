package events

import "github.com/google/uuid"

// Topics published by the core. External consumers (notification service,
// reporting pipeline) read the same names off the Redis stream.
const (
	TopicStockQuantityChanged = "stock.quantity_changed"
	TopicAlertCreated         = "alert.created"
	TopicRequestTransitioned  = "request.transitioned"
)

// Event is one domain event on the bus.
type Event struct {
	Topic   string      `json:"topic"`
	Payload interface{} `json:"payload"`
}

// StockQuantityChanged is emitted after every committed ledger mutation.
type StockQuantityChanged struct {
	StockItemID uuid.UUID `json:"stock_item_id"`
	ClinicID    uuid.UUID `json:"clinic_id"`
	Kind        string    `json:"kind"`
	OldValue    float64   `json:"old_value"`
	NewValue    float64   `json:"new_value"`
}

// AlertCreated is emitted when the alert engine opens a new alert.
type AlertCreated struct {
	AlertID     uuid.UUID  `json:"alert_id"`
	StockItemID *uuid.UUID `json:"stock_item_id,omitempty"`
	Type        string     `json:"type"`
	Severity    string     `json:"severity"`
}

// RequestTransitioned is emitted on every stock-request status change,
// including creation (From is empty on creation).
type RequestTransitioned struct {
	RequestID             uuid.UUID `json:"request_id"`
	StockItemID           uuid.UUID `json:"stock_item_id"`
	RequesterClinicID     uuid.UUID `json:"requester_clinic_id"`
	RequestedFromClinicID uuid.UUID `json:"requested_from_clinic_id"`
	From                  string    `json:"from,omitempty"`
	To                    string    `json:"to"`
}
