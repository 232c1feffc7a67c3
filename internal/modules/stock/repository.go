package stock

import "context"

// Mutation is one requested change to a stock item's quantity. Delta carries
// the already-normalized sign for its kind.
type Mutation struct {
	StockItemID string
	Delta       float64
	Kind        MutationKind
	Reason      string
	UsedBy      string
	PerformedBy string
}

// MutationResult is the committed outcome of a mutation.
type MutationResult struct {
	Item      *StockItem
	Operation *LedgerOperation
}

// Repository defines stock item data storage.
type Repository interface {
	Create(ctx context.Context, item *StockItem) error
	GetByID(ctx context.Context, id string) (*StockItem, error)
	List(ctx context.Context, filters ListFilters) ([]*StockItem, error)
	ListActive(ctx context.Context) ([]*StockItem, error)

	// ApplyMutation commits the quantity update and its audit row in one
	// transaction, serializing on the stock row. It fails without side
	// effects on ErrNotFound, ErrInactiveStock, or ErrInsufficientStock.
	ApplyMutation(ctx context.Context, m *Mutation) (*MutationResult, error)

	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
	HasOperations(ctx context.Context, id string) (bool, error)
	HasOpenRequests(ctx context.Context, id string) (bool, error)
	ListOperations(ctx context.Context, stockItemID string, limit int) ([]*LedgerOperation, error)
}
