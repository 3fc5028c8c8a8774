package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/storefront/cart-ledger/internal/domain"
)

// schemaVersion tags the persisted blob so a future layout change can migrate
// old carts instead of discarding them.
const schemaVersion = 1

type persistedCart struct {
	Version int               `json:"version"`
	Items   []domain.LineItem `json:"items"`
}

func marshalItems(items []domain.LineItem) (string, error) {
	data, err := json.Marshal(persistedCart{
		Version: schemaVersion,
		Items:   items,
	})
	if err != nil {
		return "", fmt.Errorf("marshal cart failed: %w", err)
	}
	return string(data), nil
}

func unmarshalItems(payload string) ([]domain.LineItem, error) {
	var cart persistedCart
	if err := json.Unmarshal([]byte(payload), &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	if cart.Version != schemaVersion {
		return nil, fmt.Errorf("unsupported cart schema version %d", cart.Version)
	}
	return cart.Items, nil
}
