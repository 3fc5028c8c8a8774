package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/storefront/cart-ledger/internal/catalog"
	"github.com/storefront/cart-ledger/internal/domain"
	"github.com/storefront/cart-ledger/internal/ledger"
)

type CartHandler struct {
	registry *ledger.Registry
	catalog  catalog.Catalog
	timeout  time.Duration
}

func NewCartHandler(registry *ledger.Registry, cat catalog.Catalog, timeout time.Duration) *CartHandler {
	return &CartHandler{
		registry: registry,
		catalog:  cat,
		timeout:  timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
}

type ChangeQuantityRequestDTO struct {
	Delta int32 `json:"delta"`
}

// CartViewDTO is the read-only cart view handed to UI collaborators.
type CartViewDTO struct {
	Items     []domain.LineItem `json:"items"`
	ItemCount int32             `json:"item_count"`
	Total     float64           `json:"total"`
	Degraded  bool              `json:"degraded,omitempty"`
}

func cartView(l *ledger.Ledger) CartViewDTO {
	totals := l.Totals()
	return CartViewDTO{
		Items:     l.Items(),
		ItemCount: totals.ItemCount,
		Total:     totals.Total,
		Degraded:  l.Degraded(),
	}
}

func (h *CartHandler) ledgerFor(ctx context.Context, w http.ResponseWriter) (*ledger.Ledger, bool) {
	cartKey := getCartKeyFromContext(ctx)
	if cartKey == "" {
		respondError(w, http.StatusUnauthorized, "missing_cart_key", "missing cart key")
		return nil, false
	}

	l, err := h.registry.Ledger(ctx, cartKey)
	if err != nil {
		handleDomainError(w, err)
		return nil, false
	}
	return l, true
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	l, ok := h.ledgerFor(ctx, w)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, cartView(l))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	l, ok := h.ledgerFor(ctx, w)
	if !ok {
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}

	snap, err := h.catalog.Snapshot(ctx, req.ProductID)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	if _, err := l.AddItem(ctx, req.ProductID, snap); err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, cartView(l))
}

func (h *CartHandler) ChangeQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	l, ok := h.ledgerFor(ctx, w)
	if !ok {
		return
	}

	productID, ok := productIDFromURL(w, r)
	if !ok {
		return
	}

	var req ChangeQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.Delta == 0 {
		respondError(w, http.StatusBadRequest, "invalid_delta", "delta must be non-zero")
		return
	}

	snap, err := h.catalog.Snapshot(ctx, productID)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	if _, err := l.ChangeQuantity(ctx, productID, req.Delta, snap); err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cartView(l))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	l, ok := h.ledgerFor(ctx, w)
	if !ok {
		return
	}

	productID, ok := productIDFromURL(w, r)
	if !ok {
		return
	}

	if err := l.RemoveItem(ctx, productID); err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cartView(l))
}

func productIDFromURL(w http.ResponseWriter, r *http.Request) (int64, bool) {
	productIDStr := chi.URLParam(r, "product_id")
	productID, err := strconv.ParseInt(productIDStr, 10, 64)
	if err != nil || productID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return 0, false
	}
	return productID, true
}
