package transfer

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a stock request.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusCompleted Status = "COMPLETED"
)

// validTransitions defines the allowed status state machine. REJECTED and
// COMPLETED are terminal.
var validTransitions = map[Status][]Status{
	StatusPending:   {StatusApproved, StatusRejected},
	StatusApproved:  {StatusCompleted},
	StatusRejected:  {},
	StatusCompleted: {},
}

func canTransition(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// StockRequest is a cross-clinic proposal to move quantity from the source
// clinic's stock item to the requester's. StockItemID always refers to the
// source clinic's item.
type StockRequest struct {
	ID                    uuid.UUID  `json:"id"`
	RequesterClinicID     uuid.UUID  `json:"requester_clinic_id"`
	RequestedFromClinicID uuid.UUID  `json:"requested_from_clinic_id"`
	StockItemID           uuid.UUID  `json:"stock_item_id"`
	RequestedQuantity     float64    `json:"requested_quantity"`
	ApprovedQuantity      *float64   `json:"approved_quantity,omitempty"`
	Status                Status     `json:"status"`
	RequestReason         string     `json:"request_reason,omitempty"`
	RejectionReason       string     `json:"rejection_reason,omitempty"`
	ApprovalNotes         string     `json:"approval_notes,omitempty"`
	RequestedBy           string     `json:"requested_by"`
	ApprovedBy            string     `json:"approved_by,omitempty"`
	RejectedBy            string     `json:"rejected_by,omitempty"`
	CompletedBy           string     `json:"completed_by,omitempty"`
	ApprovedAt            *time.Time `json:"approved_at,omitempty"`
	RejectedAt            *time.Time `json:"rejected_at,omitempty"`
	CompletedAt           *time.Time `json:"completed_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// CreateRequest is the payload for opening a stock request.
type CreateRequest struct {
	RequesterClinicID string  `json:"requester_clinic_id"`
	StockItemID       string  `json:"stock_item_id"`
	Quantity          float64 `json:"quantity"`
	Reason            string  `json:"reason,omitempty"`
	RequestedBy       string  `json:"requested_by"`
}

// ApproveRequest is the payload for approving a pending request.
type ApproveRequest struct {
	ApprovedQuantity float64 `json:"approved_quantity"`
	ApprovedBy       string  `json:"approved_by"`
	Notes            string  `json:"notes,omitempty"`
}

// RejectRequest is the payload for rejecting a pending request.
type RejectRequest struct {
	Reason     string `json:"reason"`
	RejectedBy string `json:"rejected_by"`
}

// CompleteRequest is the payload for executing an approved request.
type CompleteRequest struct {
	PerformedBy string `json:"performed_by"`
}

// ListFilters narrows request listings.
type ListFilters struct {
	RequesterClinicID     string
	RequestedFromClinicID string
	StockItemID           string
	Status                string
}
