package stock

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/clinicore/medstock-backend/internal/platform/events"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service defines the stock ledger business logic. Every quantity change goes
// through here so the audit trail and non-negativity invariant stay intact.
type Service interface {
	// CreateStock registers a new stock item for a clinic.
	CreateStock(ctx context.Context, req CreateStockRequest) (*StockItem, error)

	// GetStock retrieves a stock item by UUID.
	GetStock(ctx context.Context, id string) (*StockItem, error)

	// ListStock returns stock items, optionally filtered by clinic/category.
	ListStock(ctx context.Context, filters ListFilters) ([]*StockItem, error)

	// AdjustStock applies a manual correction in the given direction.
	AdjustStock(ctx context.Context, id string, req AdjustStockRequest) (*StockItem, error)

	// UseStock records consumption, decreasing the quantity.
	UseStock(ctx context.Context, id string, req UseStockRequest) (*StockItem, error)

	// DeactivateStock soft-deletes an item; its history stays queryable.
	DeactivateStock(ctx context.Context, id string) error

	// ReactivateStock brings a deactivated item back into service.
	ReactivateStock(ctx context.Context, id string) error

	// DeleteStock removes an item outright when it has no ledger history.
	// Items with history are deactivated instead; the returned flag reports
	// which of the two happened.
	DeleteStock(ctx context.Context, id string) (deactivated bool, err error)

	// ListOperations returns the item's audit trail, newest first.
	ListOperations(ctx context.Context, id string, limit int) ([]*LedgerOperation, error)
}

type service struct {
	repo   Repository
	bus    events.Bus
	logger *zap.Logger
}

// NewService creates a new stock ledger service.
func NewService(repo Repository, bus events.Bus, logger *zap.Logger) Service {
	return &service{repo: repo, bus: bus, logger: logger}
}

func (s *service) CreateStock(ctx context.Context, req CreateStockRequest) (*StockItem, error) {
	clinicID, err := uuid.Parse(req.ClinicID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid clinic_id", ErrValidation)
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if strings.TrimSpace(req.Unit) == "" {
		return nil, fmt.Errorf("%w: unit is required", ErrValidation)
	}
	if req.CurrentStock < 0 || req.MinStockLevel < 0 || req.CriticalStockLevel < 0 {
		return nil, fmt.Errorf("%w: quantities must be non-negative", ErrValidation)
	}

	item := &StockItem{
		ID:                 uuid.New(),
		ClinicID:           clinicID,
		Name:               strings.TrimSpace(req.Name),
		Category:           req.Category,
		Unit:               strings.TrimSpace(req.Unit),
		CurrentStock:       req.CurrentStock,
		MinStockLevel:      req.MinStockLevel,
		CriticalStockLevel: req.CriticalStockLevel,
		IsActive:           true,
	}

	if req.SupplierID != "" {
		sid, err := uuid.Parse(req.SupplierID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid supplier_id", ErrValidation)
		}
		item.SupplierID = &sid
	}
	if req.ExpiryDate != "" {
		exp, err := time.Parse("2006-01-02", req.ExpiryDate)
		if err != nil {
			return nil, fmt.Errorf("%w: expiry_date must be YYYY-MM-DD", ErrValidation)
		}
		item.ExpiryDate = &exp
	}

	if err := s.repo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to persist stock item: %w", err)
	}
	return item, nil
}

func (s *service) GetStock(ctx context.Context, id string) (*StockItem, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListStock(ctx context.Context, filters ListFilters) ([]*StockItem, error) {
	return s.repo.List(ctx, filters)
}

func (s *service) AdjustStock(ctx context.Context, id string, req AdjustStockRequest) (*StockItem, error) {
	qty := math.Abs(req.Quantity)
	if qty == 0 {
		return nil, fmt.Errorf("%w: quantity must be non-zero", ErrValidation)
	}
	if req.PerformedBy == "" {
		return nil, fmt.Errorf("%w: performed_by is required", ErrValidation)
	}

	var delta float64
	var kind MutationKind
	switch strings.ToUpper(req.Direction) {
	case "INCREASE":
		delta, kind = qty, KindAdjustmentIncrease
	case "DECREASE":
		delta, kind = -qty, KindAdjustmentDecrease
	default:
		return nil, fmt.Errorf("%w: direction must be INCREASE or DECREASE", ErrValidation)
	}

	return s.mutate(ctx, &Mutation{
		StockItemID: id,
		Delta:       delta,
		Kind:        kind,
		Reason:      req.Reason,
		PerformedBy: req.PerformedBy,
	})
}

func (s *service) UseStock(ctx context.Context, id string, req UseStockRequest) (*StockItem, error) {
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be > 0", ErrValidation)
	}
	if req.PerformedBy == "" {
		return nil, fmt.Errorf("%w: performed_by is required", ErrValidation)
	}

	return s.mutate(ctx, &Mutation{
		StockItemID: id,
		Delta:       -req.Quantity,
		Kind:        KindUsage,
		Reason:      req.Reason,
		UsedBy:      req.UsedBy,
		PerformedBy: req.PerformedBy,
	})
}

// mutate runs one ledger mutation and publishes the quantity-changed event
// after the repository has committed.
func (s *service) mutate(ctx context.Context, m *Mutation) (*StockItem, error) {
	res, err := s.repo.ApplyMutation(ctx, m)
	if err != nil {
		return nil, err
	}

	s.logger.Info("stock mutated",
		zap.String("stock_item_id", res.Item.ID.String()),
		zap.String("kind", string(m.Kind)),
		zap.Float64("old_value", res.Operation.OldValue),
		zap.Float64("new_value", res.Operation.NewValue))

	s.bus.Publish(ctx, events.Event{
		Topic: events.TopicStockQuantityChanged,
		Payload: events.StockQuantityChanged{
			StockItemID: res.Item.ID,
			ClinicID:    res.Item.ClinicID,
			Kind:        string(m.Kind),
			OldValue:    res.Operation.OldValue,
			NewValue:    res.Operation.NewValue,
		},
	})
	return res.Item, nil
}

func (s *service) DeactivateStock(ctx context.Context, id string) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}

	// A pending or approved transfer still needs this item; deactivating it
	// would strand the request at completion.
	open, err := s.repo.HasOpenRequests(ctx, id)
	if err != nil {
		return err
	}
	if open {
		return ErrHasOpenRequests
	}

	return s.repo.SetActive(ctx, id, false)
}

func (s *service) ReactivateStock(ctx context.Context, id string) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.SetActive(ctx, id, true)
}

func (s *service) DeleteStock(ctx context.Context, id string) (bool, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return false, err
	}

	open, err := s.repo.HasOpenRequests(ctx, id)
	if err != nil {
		return false, err
	}
	if open {
		return false, ErrHasOpenRequests
	}

	hasHistory, err := s.repo.HasOperations(ctx, id)
	if err != nil {
		return false, err
	}
	if hasHistory {
		// Audit trail must survive, so the item is only deactivated.
		if err := s.repo.SetActive(ctx, id, false); err != nil {
			return false, err
		}
		s.logger.Info("stock item deactivated in place of delete", zap.String("stock_item_id", id))
		return true, nil
	}

	return false, s.repo.Delete(ctx, id)
}

func (s *service) ListOperations(ctx context.Context, id string, limit int) ([]*LedgerOperation, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.ListOperations(ctx, id, limit)
}
