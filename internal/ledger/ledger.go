package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/storefront/cart-ledger/internal/domain"
	"github.com/storefront/cart-ledger/internal/store"
)

// OrderSubmitter hands a finished cart to the remote order system.
// Consumers define this interface, not the transport implementation.
type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, order *domain.OrderSubmission) (*domain.OrderResult, error)
}

// CheckoutRecorder is an optional hook invoked after a confirmed checkout,
// e.g. to journal the order locally. Recording failures never undo the
// checkout: the remote system already owns the order at that point.
type CheckoutRecorder interface {
	RecordCheckout(ctx context.Context, orderID, cartKey string, order *domain.OrderSubmission) error
}

// Ledger is the ordered list of line items for one cart, mirrored to the
// store on every mutation. At most one line item exists per product, every
// quantity is positive and never exceeds the last observed stock.
//
// Callers are expected to serialize mutations (the UI drives them one event
// at a time); the internal mutex only protects against a checkout in flight
// overlapping late mutations.
type Ledger struct {
	mu        sync.Mutex
	key       string
	items     []domain.LineItem
	store     store.Store
	submitter OrderSubmitter
	recorder  CheckoutRecorder
	degraded  bool
}

// New creates a ledger persisting under key. recorder may be nil to disable
// checkout journaling.
func New(key string, st store.Store, submitter OrderSubmitter, recorder CheckoutRecorder) *Ledger {
	return &Ledger{
		key:       key,
		store:     st,
		submitter: submitter,
		recorder:  recorder,
	}
}

// Load reads the persisted cart. A missing key yields an empty ledger; an
// unavailable store or corrupt payload also yields an empty ledger but marks
// the ledger degraded so the caller can surface a warning.
func (l *Ledger) Load(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	payload, err := l.store.Get(ctx, l.key)
	if errors.Is(err, store.ErrKeyNotFound) {
		l.items = nil
		return nil
	}
	if err != nil {
		log.Printf("cart store unavailable, continuing in-memory only: %v", err)
		l.items = nil
		l.degraded = true
		return nil
	}

	items, err := unmarshalItems(payload)
	if err != nil {
		log.Printf("discarding unreadable cart payload: %v", err)
		l.items = nil
		l.degraded = true
		return nil
	}

	l.items = items
	return nil
}

// Degraded reports whether the ledger fell back to in-memory-only operation
// because the store failed.
func (l *Ledger) Degraded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.degraded
}

// AddItem puts one unit of the product into the cart, or bumps an existing
// line by one. Fails with ErrStockExceeded when the resulting quantity would
// exceed the snapshot's stock; the ledger is left unchanged.
func (l *Ledger) AddItem(ctx context.Context, productID int64, snap domain.ProductSnapshot) (domain.LineItem, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.items {
		if l.items[i].ProductID != productID {
			continue
		}
		if l.items[i].Quantity+1 > snap.Stock {
			return domain.LineItem{}, ErrStockExceeded
		}
		l.items[i].Quantity++
		l.items[i].Stock = snap.Stock
		l.persist(ctx)
		return l.items[i], nil
	}

	if snap.Stock < 1 {
		return domain.LineItem{}, ErrStockExceeded
	}

	item := domain.LineItem{
		ProductID: productID,
		Title:     snap.Title,
		UnitPrice: snap.Price,
		Stock:     snap.Stock,
		Quantity:  1,
	}
	l.items = append(l.items, item)
	l.persist(ctx)
	return item, nil
}

// ChangeQuantity adjusts an existing line by delta. A resulting quantity of
// zero or less removes the line; an increase past the snapshot's stock fails
// with ErrStockExceeded and leaves the ledger unchanged.
func (l *Ledger) ChangeQuantity(ctx context.Context, productID int64, delta int32, snap domain.ProductSnapshot) (domain.LineItem, error) {
	if delta == 0 {
		return domain.LineItem{}, fmt.Errorf("delta must be non-zero")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.items {
		if l.items[i].ProductID != productID {
			continue
		}

		next := l.items[i].Quantity + delta
		if delta > 0 && next > snap.Stock {
			return domain.LineItem{}, ErrStockExceeded
		}
		if next <= 0 {
			removed := l.items[i]
			removed.Quantity = 0
			l.items = append(l.items[:i], l.items[i+1:]...)
			l.persist(ctx)
			return removed, nil
		}

		l.items[i].Quantity = next
		l.items[i].Stock = snap.Stock
		l.persist(ctx)
		return l.items[i], nil
	}

	return domain.LineItem{}, ErrItemNotFound
}

// RemoveItem drops the line for productID. Idempotent: removing an absent
// product is not an error.
func (l *Ledger) RemoveItem(ctx context.Context, productID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.items {
		if l.items[i].ProductID == productID {
			l.items = append(l.items[:i], l.items[i+1:]...)
			break
		}
	}
	l.persist(ctx)
	return nil
}

// Items returns a copy of the current line items in insertion order.
func (l *Ledger) Items() []domain.LineItem {
	l.mu.Lock()
	defer l.mu.Unlock()

	items := make([]domain.LineItem, len(l.items))
	copy(items, l.items)
	return items
}

// Totals computes the item count and the monetary total rounded to two
// decimal places. Pure read, no side effects.
func (l *Ledger) Totals() domain.Totals {
	l.mu.Lock()
	defer l.mu.Unlock()

	var totals domain.Totals
	var sum float64
	for _, item := range l.items {
		totals.ItemCount += item.Quantity
		sum += item.Subtotal()
	}
	totals.Total = round2(sum)
	return totals
}

// Checkout submits the current cart to the remote order system and clears
// the ledger on confirmed success, returning the server-assigned order ID.
// The submission snapshots the line items at call time; mutations issued
// while the round trip is outstanding are not included. On any failure the
// ledger keeps its pre-checkout contents and no retry is attempted.
func (l *Ledger) Checkout(ctx context.Context, shippingAddress, paymentMethod string) (string, error) {
	l.mu.Lock()
	if len(l.items) == 0 {
		l.mu.Unlock()
		return "", ErrEmptyCart
	}

	shippingAddress = strings.TrimSpace(shippingAddress)
	if shippingAddress == "" {
		l.mu.Unlock()
		return "", ErrMissingAddress
	}

	order := l.buildSubmission(shippingAddress, paymentMethod)
	l.mu.Unlock()

	result, err := l.submitter.SubmitOrder(ctx, order)
	if err != nil {
		return "", err
	}

	l.mu.Lock()
	l.items = nil
	l.persist(ctx)
	l.mu.Unlock()

	if l.recorder != nil {
		if errRecord := l.recorder.RecordCheckout(ctx, result.OrderID, l.key, order); errRecord != nil {
			log.Printf("failed to record checkout %s: %v", result.OrderID, errRecord)
		}
	}

	return result.OrderID, nil
}

// buildSubmission copies the line items into an order. Caller holds the lock.
func (l *Ledger) buildSubmission(shippingAddress, paymentMethod string) *domain.OrderSubmission {
	order := &domain.OrderSubmission{
		Items:           make([]domain.OrderItem, 0, len(l.items)),
		ShippingAddress: shippingAddress,
		PaymentMethod:   paymentMethod,
		Currency:        "USD",
		CapturedAt:      time.Now(),
	}

	var total float64
	for _, item := range l.items {
		order.Items = append(order.Items, domain.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
		total += item.Subtotal()
	}
	order.TotalAmount = round2(total)
	return order
}

// persist mirrors the in-memory items to the store. Store failures switch
// the ledger to in-memory-only operation instead of failing the mutation;
// the mutation itself already happened and stays valid. Caller holds the
// lock.
func (l *Ledger) persist(ctx context.Context) {
	payload, err := marshalItems(l.items)
	if err != nil {
		log.Printf("failed to serialize cart %s: %v", l.key, err)
		return
	}

	if err := l.store.Set(ctx, l.key, payload); err != nil {
		if !l.degraded {
			log.Printf("cart store unavailable, continuing in-memory only: %v", err)
		}
		l.degraded = true
		return
	}
	l.degraded = false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
