package journal

import (
	"context"
	"errors"
	"time"

	"github.com/storefront/cart-ledger/internal/domain"
)

var (
	ErrRecordNotFound    = errors.New("checkout record not found")
	ErrIllegalTransition = errors.New("illegal transition of order status")
	ErrDuplicateCheckout = errors.New("checkout already recorded")
)

// CheckoutRecord is one successfully submitted order kept locally so the
// storefront can show order history and status.
type CheckoutRecord struct {
	OrderID   string
	CartKey   string
	Payload   []byte
	Status    domain.OrderStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OutboxEvent is an order-completed payload waiting to be published.
type OutboxEvent struct {
	ID        int
	OrderID   string
	Payload   []byte
	CreatedAt time.Time
}

// Journal records confirmed checkouts and drives the order status workflow.
// Consumers define this interface, not the Postgres implementation.
type Journal interface {
	RecordCheckout(ctx context.Context, orderID, cartKey string, order *domain.OrderSubmission) error
	GetRecord(ctx context.Context, orderID string) (*CheckoutRecord, error)
	ListRecords(ctx context.Context, cartKey string, limit int) ([]*CheckoutRecord, error)
	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) error
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int) error
	Close() error
}
