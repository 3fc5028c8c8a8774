package ledger

import (
	"context"
	"sync"

	"github.com/storefront/cart-ledger/internal/store"
)

// Registry hands out one ledger per cart key, loading persisted state the
// first time a key is seen. Ledgers are kept for the process lifetime; the
// store remains the source of truth across restarts.
type Registry struct {
	mu        sync.Mutex
	ledgers   map[string]*Ledger
	store     store.Store
	submitter OrderSubmitter
	recorder  CheckoutRecorder
}

func NewRegistry(st store.Store, submitter OrderSubmitter, recorder CheckoutRecorder) *Registry {
	return &Registry{
		ledgers:   make(map[string]*Ledger),
		store:     st,
		submitter: submitter,
		recorder:  recorder,
	}
}

// Ledger returns the ledger for key, creating and loading it on first use.
func (r *Registry) Ledger(ctx context.Context, key string) (*Ledger, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.ledgers[key]; ok {
		return l, nil
	}

	l := New(key, r.store, r.submitter, r.recorder)
	if err := l.Load(ctx); err != nil {
		return nil, err
	}
	r.ledgers[key] = l
	return l, nil
}
