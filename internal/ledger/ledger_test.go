package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/cart-ledger/internal/domain"
	"github.com/storefront/cart-ledger/internal/store"
)

type mockSubmitter struct {
	m         sync.Mutex
	result    *domain.OrderResult
	err       error
	calls     int
	lastOrder *domain.OrderSubmission
}

func (s *mockSubmitter) SubmitOrder(_ context.Context, order *domain.OrderSubmission) (*domain.OrderResult, error) {
	s.m.Lock()
	defer s.m.Unlock()
	s.calls++
	s.lastOrder = order
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type failingStore struct {
	getErr error
	setErr error
}

func (f *failingStore) Get(context.Context, string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	return "", store.ErrKeyNotFound
}

func (f *failingStore) Set(context.Context, string, string) error {
	return f.setErr
}

func (f *failingStore) Delete(context.Context, string) error {
	return nil
}

func newTestLedger(t *testing.T) (*Ledger, *store.MemoryStore, *mockSubmitter) {
	t.Helper()
	st := store.NewMemoryStore()
	submitter := &mockSubmitter{result: &domain.OrderResult{OrderID: "abc123", Status: domain.OrderStatusPending}}
	l := New("user123", st, submitter, nil)
	require.NoError(t, l.Load(context.Background()))
	return l, st, submitter
}

func mouseSnapshot(stock int32) domain.ProductSnapshot {
	return domain.ProductSnapshot{ID: 1, Title: "Wireless Mouse", Price: 19.99, Stock: stock}
}

func standSnapshot(stock int32) domain.ProductSnapshot {
	return domain.ProductSnapshot{ID: 4, Title: "Laptop Stand", Price: 5.00, Stock: stock}
}

func TestAddItem_NewItem(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()

	item, err := l.AddItem(ctx, 1, mouseSnapshot(3))
	require.NoError(t, err)
	assert.Equal(t, int64(1), item.ProductID)
	assert.Equal(t, int32(1), item.Quantity)
	assert.Equal(t, 19.99, item.UnitPrice)
	assert.Equal(t, "Wireless Mouse", item.Title)
}

func TestAddItem_IncrementsExisting(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.AddItem(ctx, 1, mouseSnapshot(3))
	require.NoError(t, err)
	item, err := l.AddItem(ctx, 1, mouseSnapshot(3))
	require.NoError(t, err)

	assert.Equal(t, int32(2), item.Quantity)
	assert.Equal(t, 1, len(l.Items()))
}

func TestAddItem_AtMaxStock_StockExceeded(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()

	snap := mouseSnapshot(2)
	_, err := l.AddItem(ctx, 1, snap)
	require.NoError(t, err)
	_, err = l.AddItem(ctx, 1, snap)
	require.NoError(t, err)

	_, err = l.AddItem(ctx, 1, snap)
	assert.ErrorIs(t, err, ErrStockExceeded)
	assert.Equal(t, int32(2), l.Items()[0].Quantity, "quantity must be unchanged after the failed add")
}

func TestAddItem_ZeroStock_StockExceeded(t *testing.T) {
	l, _, _ := newTestLedger(t)

	_, err := l.AddItem(context.Background(), 1, mouseSnapshot(0))
	assert.ErrorIs(t, err, ErrStockExceeded)
	assert.Empty(t, l.Items())
}

func TestChangeQuantity_ItemNotFound(t *testing.T) {
	l, _, _ := newTestLedger(t)

	_, err := l.ChangeQuantity(context.Background(), 42, 1, mouseSnapshot(5))
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestChangeQuantity_StockExceeded(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.AddItem(ctx, 1, mouseSnapshot(3))
	require.NoError(t, err)

	_, err = l.ChangeQuantity(ctx, 1, 3, mouseSnapshot(3))
	assert.ErrorIs(t, err, ErrStockExceeded)
	assert.Equal(t, int32(1), l.Items()[0].Quantity)
}

func TestChangeQuantity_DropsToZero_RemovesItem(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()

	snap := mouseSnapshot(5)
	_, err := l.AddItem(ctx, 1, snap)
	require.NoError(t, err)
	_, err = l.ChangeQuantity(ctx, 1, 1, snap)
	require.NoError(t, err)

	// delta larger than the current quantity removes the line entirely
	removed, err := l.ChangeQuantity(ctx, 1, -5, snap)
	require.NoError(t, err)
	assert.Equal(t, int32(0), removed.Quantity)
	assert.Empty(t, l.Items())
}

func TestRemoveItem_Idempotent(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.AddItem(ctx, 1, mouseSnapshot(3))
	require.NoError(t, err)

	require.NoError(t, l.RemoveItem(ctx, 1))
	assert.Empty(t, l.Items())

	// removing an absent product is not an error
	require.NoError(t, l.RemoveItem(ctx, 1))
	require.NoError(t, l.RemoveItem(ctx, 99))
}

func TestTotals(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()

	mouse := mouseSnapshot(10)
	for i := 0; i < 3; i++ {
		_, err := l.AddItem(ctx, 1, mouse)
		require.NoError(t, err)
	}
	_, err := l.AddItem(ctx, 4, standSnapshot(8))
	require.NoError(t, err)

	totals := l.Totals()
	assert.Equal(t, int32(4), totals.ItemCount)
	assert.Equal(t, 64.97, totals.Total)
}

func TestTotals_EmptyLedger(t *testing.T) {
	l, _, _ := newTestLedger(t)

	totals := l.Totals()
	assert.Equal(t, int32(0), totals.ItemCount)
	assert.Equal(t, 0.0, totals.Total)
}

func TestQuantityInvariant_MixedSequence(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()

	snap := mouseSnapshot(4)
	ops := []func() error{
		func() error { _, err := l.AddItem(ctx, 1, snap); return err },
		func() error { _, err := l.AddItem(ctx, 1, snap); return err },
		func() error { _, err := l.ChangeQuantity(ctx, 1, 2, snap); return err },
		func() error { _, err := l.AddItem(ctx, 1, snap); return err },      // over stock
		func() error { _, err := l.ChangeQuantity(ctx, 1, 1, snap); return err }, // over stock
		func() error { _, err := l.ChangeQuantity(ctx, 1, -3, snap); return err },
		func() error { return l.RemoveItem(ctx, 2) },
		func() error { _, err := l.AddItem(ctx, 4, standSnapshot(1)); return err },
	}

	for _, op := range ops {
		_ = op() // some ops fail, the invariant must hold regardless
		for _, item := range l.Items() {
			assert.Positive(t, item.Quantity)
			assert.LessOrEqual(t, item.Quantity, item.Stock)
		}
	}
}

func TestCheckout_EmptyCart(t *testing.T) {
	l, _, submitter := newTestLedger(t)

	_, err := l.Checkout(context.Background(), "1 Main St", "card")
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, 0, submitter.calls, "no network call may be issued for an empty cart")
}

func TestCheckout_MissingAddress(t *testing.T) {
	l, _, submitter := newTestLedger(t)
	ctx := context.Background()

	_, err := l.AddItem(ctx, 1, mouseSnapshot(3))
	require.NoError(t, err)

	_, err = l.Checkout(ctx, "   ", "card")
	assert.ErrorIs(t, err, ErrMissingAddress)
	assert.Equal(t, 0, submitter.calls)
	assert.Equal(t, 1, len(l.Items()))
}

func TestCheckout_Success_ClearsLedger(t *testing.T) {
	l, st, submitter := newTestLedger(t)
	ctx := context.Background()

	_, err := l.AddItem(ctx, 1, mouseSnapshot(3))
	require.NoError(t, err)
	_, err = l.AddItem(ctx, 4, standSnapshot(2))
	require.NoError(t, err)

	orderID, err := l.Checkout(ctx, "1 Main St", "card")
	require.NoError(t, err)
	assert.Equal(t, "abc123", orderID)
	assert.Empty(t, l.Items())

	// the cleared state must be persisted too
	payload, err := st.Get(ctx, "user123")
	require.NoError(t, err)
	items, err := unmarshalItems(payload)
	require.NoError(t, err)
	assert.Empty(t, items)

	require.NotNil(t, submitter.lastOrder)
	assert.Equal(t, 2, len(submitter.lastOrder.Items))
	assert.Equal(t, "1 Main St", submitter.lastOrder.ShippingAddress)
	assert.Equal(t, 24.99, submitter.lastOrder.TotalAmount)
}

func TestCheckout_RemoteFailure_LedgerIntact(t *testing.T) {
	l, _, submitter := newTestLedger(t)
	ctx := context.Background()

	_, err := l.AddItem(ctx, 1, mouseSnapshot(3))
	require.NoError(t, err)
	_, err = l.ChangeQuantity(ctx, 1, 1, mouseSnapshot(3))
	require.NoError(t, err)

	submitter.err = &RemoteError{Message: "payment declined"}
	before := l.Items()

	_, err = l.Checkout(ctx, "1 Main St", "card")
	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, "payment declined", remoteErr.Message)
	assert.Equal(t, before, l.Items(), "ledger must keep its pre-checkout contents")
}

func TestCheckout_TransportFailure_LedgerIntact(t *testing.T) {
	l, _, submitter := newTestLedger(t)
	ctx := context.Background()

	_, err := l.AddItem(ctx, 1, mouseSnapshot(3))
	require.NoError(t, err)

	submitter.err = fmt.Errorf("connection refused")

	_, err = l.Checkout(ctx, "1 Main St", "card")
	require.Error(t, err)
	assert.Equal(t, 1, len(l.Items()))
}

func TestRoundTrip_PersistAndReload(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	original := New("user123", st, &mockSubmitter{}, nil)
	require.NoError(t, original.Load(ctx))
	_, err := original.AddItem(ctx, 1, mouseSnapshot(3))
	require.NoError(t, err)
	_, err = original.AddItem(ctx, 4, standSnapshot(8))
	require.NoError(t, err)
	_, err = original.AddItem(ctx, 4, standSnapshot(8))
	require.NoError(t, err)

	reloaded := New("user123", st, &mockSubmitter{}, nil)
	require.NoError(t, reloaded.Load(ctx))

	assert.Equal(t, original.Items(), reloaded.Items())
	assert.Equal(t, original.Totals(), reloaded.Totals())
}

func TestLoad_StoreUnavailable_Degraded(t *testing.T) {
	l := New("user123", &failingStore{getErr: errors.New("store down")}, &mockSubmitter{}, nil)

	require.NoError(t, l.Load(context.Background()))
	assert.True(t, l.Degraded())
	assert.Empty(t, l.Items())
}

func TestPersist_StoreFailure_MutationStillApplies(t *testing.T) {
	l := New("user123", &failingStore{setErr: errors.New("disk full")}, &mockSubmitter{}, nil)
	ctx := context.Background()
	require.NoError(t, l.Load(ctx))

	item, err := l.AddItem(ctx, 1, mouseSnapshot(3))
	require.NoError(t, err, "a full store degrades to in-memory, it does not fail the mutation")
	assert.Equal(t, int32(1), item.Quantity)
	assert.True(t, l.Degraded())
}

func TestLoad_UnsupportedSchemaVersion_Degraded(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.Set(ctx, "user123", `{"version":99,"items":[]}`))

	l := New("user123", st, &mockSubmitter{}, nil)
	require.NoError(t, l.Load(ctx))
	assert.True(t, l.Degraded())
	assert.Empty(t, l.Items())
}

type mockRecorder struct {
	orderID string
	cartKey string
	err     error
}

func (r *mockRecorder) RecordCheckout(_ context.Context, orderID, cartKey string, _ *domain.OrderSubmission) error {
	r.orderID = orderID
	r.cartKey = cartKey
	return r.err
}

func TestCheckout_RecorderInvoked(t *testing.T) {
	st := store.NewMemoryStore()
	submitter := &mockSubmitter{result: &domain.OrderResult{OrderID: "abc123"}}
	recorder := &mockRecorder{}
	l := New("user123", st, submitter, recorder)
	ctx := context.Background()
	require.NoError(t, l.Load(ctx))

	_, err := l.AddItem(ctx, 1, mouseSnapshot(3))
	require.NoError(t, err)

	orderID, err := l.Checkout(ctx, "1 Main St", "card")
	require.NoError(t, err)
	assert.Equal(t, "abc123", recorder.orderID)
	assert.Equal(t, "user123", recorder.cartKey)
	assert.Equal(t, orderID, recorder.orderID)
}

func TestCheckout_RecorderFailure_DoesNotFailCheckout(t *testing.T) {
	st := store.NewMemoryStore()
	submitter := &mockSubmitter{result: &domain.OrderResult{OrderID: "abc123"}}
	recorder := &mockRecorder{err: errors.New("journal down")}
	l := New("user123", st, submitter, recorder)
	ctx := context.Background()
	require.NoError(t, l.Load(ctx))

	_, err := l.AddItem(ctx, 1, mouseSnapshot(3))
	require.NoError(t, err)

	orderID, err := l.Checkout(ctx, "1 Main St", "card")
	require.NoError(t, err)
	assert.Equal(t, "abc123", orderID)
	assert.Empty(t, l.Items())
}
