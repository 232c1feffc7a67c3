package alert

import "context"

// Repository defines alert data storage.
type Repository interface {
	Create(ctx context.Context, a *Alert) error
	GetByID(ctx context.Context, id string) (*Alert, error)
	List(ctx context.Context, filters ListFilters) ([]*Alert, error)

	// FindActiveByStockAndType returns the active alert for the pair, or nil.
	FindActiveByStockAndType(ctx context.Context, stockItemID string, t Type) (*Alert, error)

	// ListActiveByStock returns all active alerts of the given types for one item.
	ListActiveByStock(ctx context.Context, stockItemID string, types []Type) ([]*Alert, error)

	// Close transitions an alert from ACTIVE to the given terminal status.
	// Returns false when the alert was not active (raced or already closed).
	Close(ctx context.Context, id string, status Status, resolvedBy, notes string) (bool, error)
}
