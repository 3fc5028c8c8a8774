package catalog

import (
	"context"
	"errors"

	"github.com/storefront/cart-ledger/internal/domain"
)

var ErrProductNotFound = errors.New("product not found")

// Catalog supplies per-product snapshots used to validate cart mutations,
// plus a paginated listing for storefront rendering.
type Catalog interface {
	Snapshot(ctx context.Context, productID int64) (domain.ProductSnapshot, error)
	List(ctx context.Context, page, perPage int) ([]domain.ProductSnapshot, error)
}
