package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/storefront/cart-ledger/internal/domain"
	"github.com/storefront/cart-ledger/internal/journal"
)

// OrdersHandler serves order history from the checkout journal. Only mounted
// when a journal is configured.
type OrdersHandler struct {
	journal journal.Journal
	timeout time.Duration
}

func NewOrdersHandler(j journal.Journal, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		journal: j,
		timeout: timeout,
	}
}

type OrderRecordDTO struct {
	OrderID   string             `json:"order_id"`
	Status    domain.OrderStatus `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
	Order     json.RawMessage    `json:"order"`
}

type UpdateStatusRequestDTO struct {
	Status domain.OrderStatus `json:"status"`
}

func recordDTO(record *journal.CheckoutRecord) OrderRecordDTO {
	return OrderRecordDTO{
		OrderID:   record.OrderID,
		Status:    record.Status,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
		Order:     record.Payload,
	}
}

func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cartKey := getCartKeyFromContext(ctx)
	if cartKey == "" {
		respondError(w, http.StatusUnauthorized, "missing_cart_key", "missing cart key")
		return
	}

	records, err := h.journal.ListRecords(ctx, cartKey, queryInt(r, "limit", 20))
	if err != nil {
		handleDomainError(w, err)
		return
	}

	orders := make([]OrderRecordDTO, 0, len(records))
	for _, record := range records {
		orders = append(orders, recordDTO(record))
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"orders": orders})
}

func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID := chi.URLParam(r, "order_id")
	record, err := h.journal.GetRecord(ctx, orderID)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, recordDTO(record))
}

func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID := chi.URLParam(r, "order_id")

	var req UpdateStatusRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := h.journal.UpdateStatus(ctx, orderID, req.Status); err != nil {
		handleDomainError(w, err)
		return
	}

	record, err := h.journal.GetRecord(ctx, orderID)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, recordDTO(record))
}
