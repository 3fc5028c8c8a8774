package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/storefront/cart-ledger/internal/ledger"
)

type CheckoutHandler struct {
	registry *ledger.Registry
	timeout  time.Duration
}

func NewCheckoutHandler(registry *ledger.Registry, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		registry: registry,
		timeout:  timeout,
	}
}

type CheckoutRequestDTO struct {
	ShippingAddress string `json:"shipping_address"`
	PaymentMethod   string `json:"payment_method"`
}

type CheckoutResponseDTO struct {
	OrderID string `json:"order_id"`
}

func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cartKey := getCartKeyFromContext(ctx)
	if cartKey == "" {
		respondError(w, http.StatusUnauthorized, "missing_cart_key", "missing cart key")
		return
	}

	l, err := h.registry.Ledger(ctx, cartKey)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	var req CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.PaymentMethod == "" {
		req.PaymentMethod = "card"
	}

	orderID, err := l.Checkout(ctx, req.ShippingAddress, req.PaymentMethod)
	if err != nil {
		checkoutsTotal.WithLabelValues("failure").Inc()
		handleDomainError(w, err)
		return
	}

	checkoutsTotal.WithLabelValues("success").Inc()
	respondJSON(w, http.StatusCreated, CheckoutResponseDTO{OrderID: orderID})
}
