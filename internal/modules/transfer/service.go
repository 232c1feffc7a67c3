package transfer

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/clinicore/medstock-backend/internal/modules/stock"
	"github.com/clinicore/medstock-backend/internal/platform/events"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// minRejectionReasonLen matches the form validation the clinics already know.
const minRejectionReasonLen = 10

// StockReader is the slice of the stock repository the workflow needs.
type StockReader interface {
	GetByID(ctx context.Context, id string) (*stock.StockItem, error)
}

// Service defines the inter-clinic transfer workflow. A request moves
// PENDING → APPROVED → COMPLETED or PENDING → REJECTED; nothing else.
type Service interface {
	// CreateStockRequest opens a PENDING request. The ledger is untouched.
	CreateStockRequest(ctx context.Context, req CreateRequest) (*StockRequest, error)

	// GetStockRequest retrieves a request by UUID.
	GetStockRequest(ctx context.Context, id string) (*StockRequest, error)

	// ListStockRequests returns requests matching the filters, newest first.
	ListStockRequests(ctx context.Context, filters ListFilters) ([]*StockRequest, error)

	// ApproveStockRequest approves a pending request for at most the
	// requested quantity. Source availability is checked at completion, not
	// here — stock may move between the two steps.
	ApproveStockRequest(ctx context.Context, id string, req ApproveRequest) (*StockRequest, error)

	// RejectStockRequest terminally rejects a pending request.
	RejectStockRequest(ctx context.Context, id string, req RejectRequest) (*StockRequest, error)

	// CompleteStockRequest executes an approved request as one atomic unit:
	// source decrement, destination credit, request transition. On
	// insufficient source stock the request stays APPROVED.
	CompleteStockRequest(ctx context.Context, id string, req CompleteRequest) (*StockRequest, error)
}

type service struct {
	repo   Repository
	stocks StockReader
	bus    events.Bus
	logger *zap.Logger
}

// NewService creates a new transfer workflow service.
func NewService(repo Repository, stocks StockReader, bus events.Bus, logger *zap.Logger) Service {
	return &service{repo: repo, stocks: stocks, bus: bus, logger: logger}
}

func (s *service) CreateStockRequest(ctx context.Context, req CreateRequest) (*StockRequest, error) {
	requesterID, err := uuid.Parse(req.RequesterClinicID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid requester_clinic_id", ErrValidation)
	}
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be > 0", ErrValidation)
	}
	if req.RequestedBy == "" {
		return nil, fmt.Errorf("%w: requested_by is required", ErrValidation)
	}

	item, err := s.stocks.GetByID(ctx, req.StockItemID)
	if err != nil {
		return nil, err
	}
	if !item.IsActive {
		return nil, stock.ErrInactiveStock
	}
	if item.ClinicID == requesterID {
		return nil, fmt.Errorf("%w: cannot request stock from your own clinic", ErrValidation)
	}

	// A single request may not drain a clinic: cap at half of the source's
	// current holding, checked at creation time only.
	maxQuantity := math.Floor(item.CurrentStock / 2)
	if req.Quantity > maxQuantity {
		return nil, fmt.Errorf("%w: quantity %g exceeds the transferable maximum of %g (half of current stock)",
			ErrValidation, req.Quantity, maxQuantity)
	}

	sr := &StockRequest{
		ID:                    uuid.New(),
		RequesterClinicID:     requesterID,
		RequestedFromClinicID: item.ClinicID,
		StockItemID:           item.ID,
		RequestedQuantity:     req.Quantity,
		Status:                StatusPending,
		RequestReason:         req.Reason,
		RequestedBy:           req.RequestedBy,
	}
	if err := s.repo.Create(ctx, sr); err != nil {
		return nil, fmt.Errorf("failed to persist stock request: %w", err)
	}

	s.publishTransition(ctx, sr, "", StatusPending)
	return sr, nil
}

func (s *service) GetStockRequest(ctx context.Context, id string) (*StockRequest, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListStockRequests(ctx context.Context, filters ListFilters) ([]*StockRequest, error) {
	return s.repo.List(ctx, filters)
}

func (s *service) ApproveStockRequest(ctx context.Context, id string, req ApproveRequest) (*StockRequest, error) {
	sr, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canTransition(sr.Status, StatusApproved) {
		return nil, fmt.Errorf("%w: cannot approve a %s request", ErrInvalidTransition, sr.Status)
	}
	if req.ApprovedQuantity <= 0 {
		return nil, fmt.Errorf("%w: approved_quantity must be > 0", ErrValidation)
	}
	if req.ApprovedQuantity > sr.RequestedQuantity {
		return nil, fmt.Errorf("%w: approved_quantity %g exceeds requested %g",
			ErrValidation, req.ApprovedQuantity, sr.RequestedQuantity)
	}
	if req.ApprovedBy == "" {
		return nil, fmt.Errorf("%w: approved_by is required", ErrValidation)
	}

	ok, err := s.repo.Approve(ctx, id, req.ApprovedQuantity, req.ApprovedBy, req.Notes)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: request is no longer pending", ErrInvalidTransition)
	}

	sr, err = s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publishTransition(ctx, sr, StatusPending, StatusApproved)
	return sr, nil
}

func (s *service) RejectStockRequest(ctx context.Context, id string, req RejectRequest) (*StockRequest, error) {
	sr, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canTransition(sr.Status, StatusRejected) {
		return nil, fmt.Errorf("%w: cannot reject a %s request", ErrInvalidTransition, sr.Status)
	}
	if len(strings.TrimSpace(req.Reason)) < minRejectionReasonLen {
		return nil, fmt.Errorf("%w: rejection reason must be at least %d characters",
			ErrValidation, minRejectionReasonLen)
	}
	if req.RejectedBy == "" {
		return nil, fmt.Errorf("%w: rejected_by is required", ErrValidation)
	}

	ok, err := s.repo.Reject(ctx, id, strings.TrimSpace(req.Reason), req.RejectedBy)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: request is no longer pending", ErrInvalidTransition)
	}

	sr, err = s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publishTransition(ctx, sr, StatusPending, StatusRejected)
	return sr, nil
}

func (s *service) CompleteStockRequest(ctx context.Context, id string, req CompleteRequest) (*StockRequest, error) {
	sr, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canTransition(sr.Status, StatusCompleted) {
		return nil, fmt.Errorf("%w: cannot complete a %s request", ErrInvalidTransition, sr.Status)
	}
	if req.PerformedBy == "" {
		return nil, fmt.Errorf("%w: performed_by is required", ErrValidation)
	}

	res, err := s.repo.CompleteTransfer(ctx, sr, req.PerformedBy)
	if err != nil {
		// On ErrInsufficientStock the request is untouched and stays
		// APPROVED; the approver may retry once the source is restocked.
		return nil, err
	}

	s.logger.Info("stock request completed",
		zap.String("request_id", res.Request.ID.String()),
		zap.String("source_stock_id", sr.StockItemID.String()),
		zap.String("dest_stock_id", res.DestStockID.String()),
		zap.Float64("quantity", *res.Request.ApprovedQuantity))

	s.bus.Publish(ctx, events.Event{
		Topic: events.TopicStockQuantityChanged,
		Payload: events.StockQuantityChanged{
			StockItemID: sr.StockItemID,
			ClinicID:    sr.RequestedFromClinicID,
			Kind:        string(stock.KindTransferOut),
			OldValue:    res.SourceOld,
			NewValue:    res.SourceNew,
		},
	})
	s.bus.Publish(ctx, events.Event{
		Topic: events.TopicStockQuantityChanged,
		Payload: events.StockQuantityChanged{
			StockItemID: res.DestStockID,
			ClinicID:    sr.RequesterClinicID,
			Kind:        string(stock.KindTransferIn),
			OldValue:    res.DestOld,
			NewValue:    res.DestNew,
		},
	})
	s.publishTransition(ctx, res.Request, StatusApproved, StatusCompleted)
	return res.Request, nil
}

func (s *service) publishTransition(ctx context.Context, sr *StockRequest, from, to Status) {
	s.bus.Publish(ctx, events.Event{
		Topic: events.TopicRequestTransitioned,
		Payload: events.RequestTransitioned{
			RequestID:             sr.ID,
			StockItemID:           sr.StockItemID,
			RequesterClinicID:     sr.RequesterClinicID,
			RequestedFromClinicID: sr.RequestedFromClinicID,
			From:                  string(from),
			To:                    string(to),
		},
	})
}
