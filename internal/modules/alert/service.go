package alert

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/clinicore/medstock-backend/internal/modules/stock"
	"github.com/clinicore/medstock-backend/internal/platform/events"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// expiryCriticalDays escalates a near-expiry alert from warning to critical.
const expiryCriticalDays = 3

// StockReader is the slice of the stock repository the engine needs.
type StockReader interface {
	GetByID(ctx context.Context, id string) (*stock.StockItem, error)
	ListActive(ctx context.Context) ([]*stock.StockItem, error)
}

// Service defines the alert engine business logic.
type Service interface {
	// Reconcile re-derives the alert state of one stock item. Idempotent:
	// repeated calls for an unchanged level create nothing new.
	Reconcile(ctx context.Context, stockItemID string) error

	// ListAlerts returns alerts matching the filters, newest first.
	ListAlerts(ctx context.Context, filters ListFilters) ([]*Alert, error)

	// Resolve closes an active alert by explicit user action.
	Resolve(ctx context.Context, id string, req ResolveRequest) (*Alert, error)

	// Dismiss closes an active alert without marking the condition handled.
	Dismiss(ctx context.Context, id string) (*Alert, error)

	// BulkResolve applies Resolve per id and reports partial failure.
	BulkResolve(ctx context.Context, req BulkRequest) *BulkResult

	// BulkDismiss applies Dismiss per id and reports partial failure.
	BulkDismiss(ctx context.Context, req BulkRequest) *BulkResult

	// HandleRequestEvent raises informational alerts from the transfer workflow.
	HandleRequestEvent(ctx context.Context, e events.Event)

	// RunSweeper periodically reconciles every active stock item until the
	// context is cancelled, catching expiry transitions that happen without
	// any quantity change.
	RunSweeper(ctx context.Context, interval time.Duration)
}

type service struct {
	repo   Repository
	stocks StockReader
	bus    events.Bus
	logger *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates a new alert engine.
func NewService(repo Repository, stocks StockReader, bus events.Bus, logger *zap.Logger) Service {
	return &service{repo: repo, stocks: stocks, bus: bus, logger: logger,
		locks: make(map[string]*sync.Mutex)}
}

// lockItem serializes alert derivation per stock item. The sweeper and the
// event-driven reconciles run on different goroutines; without this, both can
// pass the active-alert lookup before either insert lands.
func (s *service) lockItem(stockItemID string) func() {
	s.mu.Lock()
	l, ok := s.locks[stockItemID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[stockItemID] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func (s *service) Reconcile(ctx context.Context, stockItemID string) error {
	defer s.lockItem(stockItemID)()

	item, err := s.stocks.GetByID(ctx, stockItemID)
	if err != nil {
		return err
	}

	now := time.Now()
	level := stock.Classify(item, now)
	target, triggering := typeForLevel(level, stock.DaysUntilExpiry(item, now))

	if !triggering {
		return s.autoResolve(ctx, stockItemID)
	}

	existing, err := s.repo.FindActiveByStockAndType(ctx, stockItemID, target)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	a := s.buildAlert(item, level, target, now)
	if err := s.repo.Create(ctx, a); errors.Is(err, ErrDuplicateActive) {
		return nil
	} else if err != nil {
		return err
	}

	s.logger.Info("alert created",
		zap.String("alert_id", a.ID.String()),
		zap.String("stock_item_id", stockItemID),
		zap.String("type", string(a.Type)),
		zap.String("severity", string(a.Severity)))

	s.bus.Publish(ctx, events.Event{
		Topic: events.TopicAlertCreated,
		Payload: events.AlertCreated{
			AlertID:     a.ID,
			StockItemID: a.StockItemID,
			Type:        string(a.Type),
			Severity:    string(a.Severity),
		},
	})
	return nil
}

// autoResolve closes every engine-derived active alert once the underlying
// condition has cleared. AUTO_RESOLVED is the only engine-driven closing
// transition; RESOLVED stays reserved for humans.
func (s *service) autoResolve(ctx context.Context, stockItemID string) error {
	active, err := s.repo.ListActiveByStock(ctx, stockItemID, stockLevelTypes)
	if err != nil {
		return err
	}
	for _, a := range active {
		ok, err := s.repo.Close(ctx, a.ID.String(), StatusAutoResolved, "", "condition cleared")
		if err != nil {
			return err
		}
		if ok {
			s.logger.Info("alert auto-resolved",
				zap.String("alert_id", a.ID.String()),
				zap.String("type", string(a.Type)))
		}
	}
	return nil
}

func (s *service) buildAlert(item *stock.StockItem, level stock.Level, t Type, now time.Time) *Alert {
	a := &Alert{
		ID:          uuid.New(),
		StockItemID: &item.ID,
		ClinicID:    &item.ClinicID,
		Type:        t,
		Severity:    severityFor[t],
		Status:      StatusActive,
	}

	switch level {
	case stock.LevelOutOfStock:
		cur, thr := item.CurrentStock, 0.0
		a.CurrentValue, a.ThresholdValue = &cur, &thr
		a.Message = fmt.Sprintf("%s is out of stock", item.Name)
	case stock.LevelCritical:
		cur, thr := item.CurrentStock, item.CriticalStockLevel
		a.CurrentValue, a.ThresholdValue = &cur, &thr
		a.Message = fmt.Sprintf("%s is at critical level (%g %s remaining)", item.Name, item.CurrentStock, item.Unit)
	case stock.LevelLow:
		cur, thr := item.CurrentStock, item.MinStockLevel
		a.CurrentValue, a.ThresholdValue = &cur, &thr
		a.Message = fmt.Sprintf("%s is below minimum stock level (%g %s remaining)", item.Name, item.CurrentStock, item.Unit)
	case stock.LevelExpired:
		a.Message = fmt.Sprintf("%s expired on %s", item.Name, item.ExpiryDate.Format("2006-01-02"))
	case stock.LevelExpiring:
		days := stock.DaysUntilExpiry(item, now)
		cur := float64(days)
		thr := float64(stock.ExpiryWarningDays)
		if t == TypeExpiryCritical {
			thr = expiryCriticalDays
		}
		a.CurrentValue, a.ThresholdValue = &cur, &thr
		a.Message = fmt.Sprintf("%s expires in %d days", item.Name, days)
	}
	return a
}

// typeForLevel maps a classifier level to the alert type it raises.
// The second return is false for levels that raise nothing.
func typeForLevel(level stock.Level, daysUntilExpiry int) (Type, bool) {
	switch level {
	case stock.LevelOutOfStock:
		return TypeOutOfStock, true
	case stock.LevelExpired:
		return TypeExpired, true
	case stock.LevelExpiring:
		if daysUntilExpiry <= expiryCriticalDays {
			return TypeExpiryCritical, true
		}
		return TypeExpiryWarning, true
	case stock.LevelCritical:
		return TypeCriticalStock, true
	case stock.LevelLow:
		return TypeLowStock, true
	}
	return "", false
}

func (s *service) ListAlerts(ctx context.Context, filters ListFilters) ([]*Alert, error) {
	return s.repo.List(ctx, filters)
}

func (s *service) Resolve(ctx context.Context, id string, req ResolveRequest) (*Alert, error) {
	if req.ResolvedBy == "" {
		return nil, fmt.Errorf("%w: resolved_by is required", ErrValidation)
	}
	return s.close(ctx, id, StatusResolved, req.ResolvedBy, req.Notes)
}

func (s *service) Dismiss(ctx context.Context, id string) (*Alert, error) {
	return s.close(ctx, id, StatusDismissed, "", "")
}

func (s *service) close(ctx context.Context, id string, status Status, resolvedBy, notes string) (*Alert, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusActive {
		return nil, fmt.Errorf("%w: status is %s", ErrInvalidState, a.Status)
	}
	ok, err := s.repo.Close(ctx, id, status, resolvedBy, notes)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: alert was closed concurrently", ErrInvalidState)
	}
	return s.repo.GetByID(ctx, id)
}

func (s *service) BulkResolve(ctx context.Context, req BulkRequest) *BulkResult {
	res := &BulkResult{Failed: make(map[string]string)}
	for _, id := range req.IDs {
		if _, err := s.Resolve(ctx, id, ResolveRequest{ResolvedBy: req.ResolvedBy, Notes: req.Notes}); err != nil {
			res.Failed[id] = err.Error()
			continue
		}
		res.Succeeded = append(res.Succeeded, id)
	}
	return res
}

func (s *service) BulkDismiss(ctx context.Context, req BulkRequest) *BulkResult {
	res := &BulkResult{Failed: make(map[string]string)}
	for _, id := range req.IDs {
		if _, err := s.Dismiss(ctx, id); err != nil {
			res.Failed[id] = err.Error()
			continue
		}
		res.Succeeded = append(res.Succeeded, id)
	}
	return res
}

// HandleRequestEvent raises STOCK_REQUEST / STOCK_TRANSFER alerts on the
// source clinic's item so its staff see incoming workflow activity.
func (s *service) HandleRequestEvent(ctx context.Context, e events.Event) {
	payload, ok := e.Payload.(events.RequestTransitioned)
	if !ok {
		return
	}

	var t Type
	var msg string
	switch payload.To {
	case "PENDING":
		t = TypeStockRequest
		msg = "a clinic has requested a stock transfer from this item"
	case "COMPLETED":
		t = TypeStockTransfer
		msg = "a stock transfer from this item has been completed"
	default:
		return
	}

	stockID := payload.StockItemID.String()
	defer s.lockItem(stockID)()

	existing, err := s.repo.FindActiveByStockAndType(ctx, stockID, t)
	if err != nil {
		s.logger.Error("lookup active request alert", zap.Error(err))
		return
	}
	if existing != nil {
		return
	}

	a := &Alert{
		ID:          uuid.New(),
		StockItemID: &payload.StockItemID,
		ClinicID:    &payload.RequestedFromClinicID,
		Type:        t,
		Severity:    severityFor[t],
		Status:      StatusActive,
		Message:     msg,
	}
	if err := s.repo.Create(ctx, a); errors.Is(err, ErrDuplicateActive) {
		return
	} else if err != nil {
		s.logger.Error("create request alert", zap.Error(err))
		return
	}
	s.bus.Publish(ctx, events.Event{
		Topic: events.TopicAlertCreated,
		Payload: events.AlertCreated{
			AlertID:     a.ID,
			StockItemID: a.StockItemID,
			Type:        string(a.Type),
			Severity:    string(a.Severity),
		},
	})
}

func (s *service) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("alert sweeper started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("alert sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *service) sweep(ctx context.Context) {
	items, err := s.stocks.ListActive(ctx)
	if err != nil {
		s.logger.Error("sweep: list active stock", zap.Error(err))
		return
	}
	for _, item := range items {
		if err := s.Reconcile(ctx, item.ID.String()); err != nil {
			s.logger.Error("sweep: reconcile",
				zap.String("stock_item_id", item.ID.String()), zap.Error(err))
		}
	}
}
