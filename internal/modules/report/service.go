package report

import (
	"context"
	"time"

	"github.com/clinicore/medstock-backend/internal/modules/stock"
)

type Service interface {
	// StockSummary classifies every active item and buckets the counts.
	StockSummary(ctx context.Context, clinicID string) (*StockLevelSummary, error)

	// AlertSummary returns alert counts grouped by status and severity.
	AlertSummary(ctx context.Context, clinicID string) ([]AlertCount, error)

	// RecentActivity returns the latest ledger operations across the clinics.
	RecentActivity(ctx context.Context, clinicID string, limit int) ([]ActivityEntry, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) StockSummary(ctx context.Context, clinicID string) (*StockLevelSummary, error) {
	items, err := s.repo.ListStockForSummary(ctx, clinicID)
	if err != nil {
		return nil, err
	}

	summary := &StockLevelSummary{ClinicID: clinicID, TotalItems: len(items)}
	now := time.Now()
	for _, item := range items {
		switch stock.Classify(item, now) {
		case stock.LevelLow:
			summary.Low++
		case stock.LevelCritical:
			summary.Critical++
		case stock.LevelOutOfStock:
			summary.OutOfStock++
		case stock.LevelExpiring:
			summary.Expiring++
		case stock.LevelExpired:
			summary.Expired++
		default:
			summary.Normal++
		}
	}
	return summary, nil
}

func (s *service) AlertSummary(ctx context.Context, clinicID string) ([]AlertCount, error) {
	return s.repo.CountAlerts(ctx, clinicID)
}

func (s *service) RecentActivity(ctx context.Context, clinicID string, limit int) ([]ActivityEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.RecentActivity(ctx, clinicID, limit)
}
