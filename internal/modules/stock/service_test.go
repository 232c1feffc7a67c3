package stock

import (
	"context"
	"fmt"
	"testing"

	"github.com/clinicore/medstock-backend/internal/platform/events"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeRepo applies mutations in memory with the same invariants the postgres
// repository enforces.
type fakeRepo struct {
	items        map[string]*StockItem
	ops          []*LedgerOperation
	openRequests map[string]bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		items:        make(map[string]*StockItem),
		openRequests: make(map[string]bool),
	}
}

func (f *fakeRepo) Create(_ context.Context, item *StockItem) error {
	f.items[item.ID.String()] = item
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id string) (*StockItem, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *item
	return &copied, nil
}

func (f *fakeRepo) List(_ context.Context, _ ListFilters) ([]*StockItem, error) {
	var items []*StockItem
	for _, item := range f.items {
		items = append(items, item)
	}
	return items, nil
}

func (f *fakeRepo) ListActive(ctx context.Context) ([]*StockItem, error) {
	var items []*StockItem
	for _, item := range f.items {
		if item.IsActive {
			items = append(items, item)
		}
	}
	return items, nil
}

func (f *fakeRepo) ApplyMutation(_ context.Context, m *Mutation) (*MutationResult, error) {
	item, ok := f.items[m.StockItemID]
	if !ok {
		return nil, ErrNotFound
	}
	if !item.IsActive {
		return nil, ErrInactiveStock
	}
	newValue := item.CurrentStock + m.Delta
	if newValue < 0 {
		return nil, fmt.Errorf("%w: have %g", ErrInsufficientStock, item.CurrentStock)
	}
	op := &LedgerOperation{
		ID:          uuid.New(),
		StockItemID: item.ID,
		Kind:        m.Kind,
		Delta:       m.Delta,
		OldValue:    item.CurrentStock,
		NewValue:    newValue,
		Reason:      m.Reason,
		UsedBy:      m.UsedBy,
		PerformedBy: m.PerformedBy,
	}
	item.CurrentStock = newValue
	f.ops = append(f.ops, op)
	copied := *item
	return &MutationResult{Item: &copied, Operation: op}, nil
}

func (f *fakeRepo) SetActive(_ context.Context, id string, active bool) error {
	item, ok := f.items[id]
	if !ok {
		return ErrNotFound
	}
	item.IsActive = active
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.items[id]; !ok {
		return ErrNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeRepo) HasOperations(_ context.Context, id string) (bool, error) {
	for _, op := range f.ops {
		if op.StockItemID.String() == id {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) HasOpenRequests(_ context.Context, id string) (bool, error) {
	return f.openRequests[id], nil
}

func (f *fakeRepo) ListOperations(_ context.Context, id string, _ int) ([]*LedgerOperation, error) {
	var ops []*LedgerOperation
	for _, op := range f.ops {
		if op.StockItemID.String() == id {
			ops = append(ops, op)
		}
	}
	return ops, nil
}

func setupStockService(t *testing.T) (Service, *fakeRepo, *events.MemoryBus, *StockItem) {
	t.Helper()
	repo := newFakeRepo()
	bus := events.NewMemoryBus()
	svc := NewService(repo, bus, zap.NewNop())

	item := &StockItem{
		ID:                 uuid.New(),
		ClinicID:           uuid.New(),
		Name:               "Paracetamol 500mg",
		Unit:               "box",
		CurrentStock:       10,
		MinStockLevel:      5,
		CriticalStockLevel: 2,
		IsActive:           true,
	}
	require.NoError(t, repo.Create(context.Background(), item))
	return svc, repo, bus, item
}

func TestCreateStock_Validation(t *testing.T) {
	svc, _, _, _ := setupStockService(t)
	ctx := context.Background()

	_, err := svc.CreateStock(ctx, CreateStockRequest{ClinicID: "not-a-uuid", Name: "Gauze", Unit: "pack"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateStock(ctx, CreateStockRequest{ClinicID: uuid.New().String(), Name: "  ", Unit: "pack"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateStock(ctx, CreateStockRequest{ClinicID: uuid.New().String(), Name: "Gauze", Unit: "pack", CurrentStock: -1})
	assert.ErrorIs(t, err, ErrValidation)

	created, err := svc.CreateStock(ctx, CreateStockRequest{
		ClinicID: uuid.New().String(), Name: "Gauze", Unit: "pack",
		CurrentStock: 20, MinStockLevel: 5, CriticalStockLevel: 2, ExpiryDate: "2027-06-30",
	})
	require.NoError(t, err)
	assert.True(t, created.IsActive)
	require.NotNil(t, created.ExpiryDate)
	assert.Equal(t, "2027-06-30", created.ExpiryDate.Format("2006-01-02"))
}

func TestAdjustStock(t *testing.T) {
	svc, repo, _, item := setupStockService(t)
	ctx := context.Background()

	updated, err := svc.AdjustStock(ctx, item.ID.String(), AdjustStockRequest{
		Quantity: 5, Direction: "increase", Reason: "delivery", PerformedBy: "nurse-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 15.0, updated.CurrentStock)

	// A user-signed negative quantity is normalized for a decrease.
	updated, err = svc.AdjustStock(ctx, item.ID.String(), AdjustStockRequest{
		Quantity: -3, Direction: "DECREASE", Reason: "damaged", PerformedBy: "nurse-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 12.0, updated.CurrentStock)

	require.Len(t, repo.ops, 2)
	assert.Equal(t, KindAdjustmentIncrease, repo.ops[0].Kind)
	assert.Equal(t, 5.0, repo.ops[0].Delta)
	assert.Equal(t, KindAdjustmentDecrease, repo.ops[1].Kind)
	assert.Equal(t, -3.0, repo.ops[1].Delta)
}

func TestAdjustStock_Validation(t *testing.T) {
	svc, _, _, item := setupStockService(t)
	ctx := context.Background()

	_, err := svc.AdjustStock(ctx, item.ID.String(), AdjustStockRequest{
		Quantity: 0, Direction: "INCREASE", PerformedBy: "nurse-1"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.AdjustStock(ctx, item.ID.String(), AdjustStockRequest{
		Quantity: 1, Direction: "SIDEWAYS", PerformedBy: "nurse-1"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.AdjustStock(ctx, item.ID.String(), AdjustStockRequest{
		Quantity: 1, Direction: "INCREASE"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUseStock(t *testing.T) {
	svc, repo, _, item := setupStockService(t)
	ctx := context.Background()

	updated, err := svc.UseStock(ctx, item.ID.String(), UseStockRequest{
		Quantity: 6, Reason: "ward consumption", UsedBy: "ward-a", PerformedBy: "nurse-2",
	})
	require.NoError(t, err)
	assert.Equal(t, 4.0, updated.CurrentStock)

	require.Len(t, repo.ops, 1)
	assert.Equal(t, KindUsage, repo.ops[0].Kind)
	assert.Equal(t, "ward-a", repo.ops[0].UsedBy)
}

func TestUseStock_InsufficientPreservesQuantity(t *testing.T) {
	svc, repo, _, item := setupStockService(t)
	ctx := context.Background()

	_, err := svc.UseStock(ctx, item.ID.String(), UseStockRequest{
		Quantity: 11, Reason: "too much", PerformedBy: "nurse-2"})
	assert.ErrorIs(t, err, ErrInsufficientStock)

	current, err := repo.GetByID(ctx, item.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 10.0, current.CurrentStock)
	assert.Empty(t, repo.ops)
}

func TestUseStock_InactiveItem(t *testing.T) {
	svc, repo, _, item := setupStockService(t)
	ctx := context.Background()

	require.NoError(t, repo.SetActive(ctx, item.ID.String(), false))

	_, err := svc.UseStock(ctx, item.ID.String(), UseStockRequest{
		Quantity: 1, PerformedBy: "nurse-2"})
	assert.ErrorIs(t, err, ErrInactiveStock)
}

func TestMutation_PublishesQuantityChangedEvent(t *testing.T) {
	svc, _, bus, item := setupStockService(t)
	ctx := context.Background()

	var got []events.StockQuantityChanged
	bus.Subscribe(events.TopicStockQuantityChanged, func(_ context.Context, e events.Event) {
		payload, ok := e.Payload.(events.StockQuantityChanged)
		require.True(t, ok)
		got = append(got, payload)
	})

	_, err := svc.UseStock(ctx, item.ID.String(), UseStockRequest{
		Quantity: 4, PerformedBy: "nurse-1"})
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, item.ID, got[0].StockItemID)
	assert.Equal(t, 10.0, got[0].OldValue)
	assert.Equal(t, 6.0, got[0].NewValue)
	assert.Equal(t, string(KindUsage), got[0].Kind)

	// A rejected mutation must publish nothing.
	_, err = svc.UseStock(ctx, item.ID.String(), UseStockRequest{
		Quantity: 100, PerformedBy: "nurse-1"})
	require.Error(t, err)
	assert.Len(t, got, 1)
}

func TestDeleteStock(t *testing.T) {
	svc, repo, _, item := setupStockService(t)
	ctx := context.Background()

	// With ledger history the item is deactivated, not removed.
	_, err := svc.UseStock(ctx, item.ID.String(), UseStockRequest{Quantity: 1, PerformedBy: "n"})
	require.NoError(t, err)

	deactivated, err := svc.DeleteStock(ctx, item.ID.String())
	require.NoError(t, err)
	assert.True(t, deactivated)

	kept, err := repo.GetByID(ctx, item.ID.String())
	require.NoError(t, err)
	assert.False(t, kept.IsActive)

	// A pristine item is removed outright.
	fresh := &StockItem{ID: uuid.New(), ClinicID: uuid.New(), Name: "Syringe", Unit: "piece", IsActive: true}
	require.NoError(t, repo.Create(ctx, fresh))

	deactivated, err = svc.DeleteStock(ctx, fresh.ID.String())
	require.NoError(t, err)
	assert.False(t, deactivated)

	_, err = repo.GetByID(ctx, fresh.ID.String())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteStock_OpenRequests(t *testing.T) {
	svc, repo, _, item := setupStockService(t)
	repo.openRequests[item.ID.String()] = true

	_, err := svc.DeleteStock(context.Background(), item.ID.String())
	assert.ErrorIs(t, err, ErrHasOpenRequests)
}

func TestDeactivateStock_OpenRequests(t *testing.T) {
	svc, repo, _, item := setupStockService(t)
	ctx := context.Background()
	repo.openRequests[item.ID.String()] = true

	// Deactivating the source of an open transfer would strand it at
	// completion behind the inactive-item check.
	err := svc.DeactivateStock(ctx, item.ID.String())
	assert.ErrorIs(t, err, ErrHasOpenRequests)

	kept, err := repo.GetByID(ctx, item.ID.String())
	require.NoError(t, err)
	assert.True(t, kept.IsActive)

	repo.openRequests[item.ID.String()] = false
	require.NoError(t, svc.DeactivateStock(ctx, item.ID.String()))
}
