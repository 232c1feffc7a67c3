package alert

import (
	"time"

	"github.com/google/uuid"
)

// Type classifies what an alert is about.
type Type string

const (
	TypeLowStock       Type = "LOW_STOCK"
	TypeCriticalStock  Type = "CRITICAL_STOCK"
	TypeOutOfStock     Type = "OUT_OF_STOCK"
	TypeExpiryWarning  Type = "EXPIRY_WARNING"
	TypeExpiryCritical Type = "EXPIRY_CRITICAL"
	TypeExpired        Type = "EXPIRED"
	TypeStockRequest   Type = "STOCK_REQUEST"
	TypeStockTransfer  Type = "STOCK_TRANSFER"
	TypeSystem         Type = "SYSTEM"
)

// Severity ranks an alert for triage.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Status is the alert's resolution lifecycle state.
type Status string

const (
	StatusActive       Status = "ACTIVE"
	StatusResolved     Status = "RESOLVED"
	StatusDismissed    Status = "DISMISSED"
	StatusAutoResolved Status = "AUTO_RESOLVED"
)

// severityFor is the fixed type→severity table.
var severityFor = map[Type]Severity{
	TypeOutOfStock:     SeverityCritical,
	TypeExpired:        SeverityCritical,
	TypeCriticalStock:  SeverityHigh,
	TypeExpiryCritical: SeverityHigh,
	TypeLowStock:       SeverityMedium,
	TypeExpiryWarning:  SeverityMedium,
	TypeStockRequest:   SeverityLow,
	TypeStockTransfer:  SeverityLow,
	TypeSystem:         SeverityMedium,
}

// stockLevelTypes are the types the engine derives from classification and is
// therefore allowed to auto-resolve when the underlying condition clears.
var stockLevelTypes = []Type{
	TypeLowStock, TypeCriticalStock, TypeOutOfStock,
	TypeExpiryWarning, TypeExpiryCritical, TypeExpired,
}

// Alert is one persisted triggering condition with its own lifecycle,
// independent of the stock state that produced it.
type Alert struct {
	ID              uuid.UUID  `json:"id"`
	StockItemID     *uuid.UUID `json:"stock_item_id,omitempty"` // nil for system-level alerts
	ClinicID        *uuid.UUID `json:"clinic_id,omitempty"`
	Type            Type       `json:"type"`
	Severity        Severity   `json:"severity"`
	Status          Status     `json:"status"`
	Message         string     `json:"message"`
	CurrentValue    *float64   `json:"current_value,omitempty"`
	ThresholdValue  *float64   `json:"threshold_value,omitempty"`
	ResolvedBy      string     `json:"resolved_by,omitempty"`
	ResolutionNotes string     `json:"resolution_notes,omitempty"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ResolveRequest is the payload for resolving an alert.
type ResolveRequest struct {
	ResolvedBy string `json:"resolved_by"`
	Notes      string `json:"notes,omitempty"`
}

// BulkRequest is the payload for bulk resolve/dismiss.
type BulkRequest struct {
	IDs        []string `json:"ids"`
	ResolvedBy string   `json:"resolved_by,omitempty"`
	Notes      string   `json:"notes,omitempty"`
}

// BulkResult reports which ids succeeded; the rest carry their failure.
type BulkResult struct {
	Succeeded []string          `json:"succeeded"`
	Failed    map[string]string `json:"failed,omitempty"`
}

// ListFilters narrows alert listings.
type ListFilters struct {
	StockItemID string
	ClinicID    string
	Type        string
	Status      string
	Severity    string
}
