package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/storefront/cart-ledger/internal/catalog"
	"github.com/storefront/cart-ledger/internal/journal"
	"github.com/storefront/cart-ledger/internal/ledger"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: "",
	})
}

// handleDomainError maps ledger, catalog and journal errors to HTTP codes.
func handleDomainError(w http.ResponseWriter, err error) {
	var remoteErr *ledger.RemoteError

	switch {
	case errors.Is(err, ledger.ErrStockExceeded):
		respondError(w, http.StatusConflict, "stock_exceeded", err.Error())
	case errors.Is(err, ledger.ErrItemNotFound):
		respondError(w, http.StatusNotFound, "item_not_found", err.Error())
	case errors.Is(err, catalog.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "product_not_found", err.Error())
	case errors.Is(err, ledger.ErrEmptyCart):
		respondError(w, http.StatusUnprocessableEntity, "empty_cart", err.Error())
	case errors.Is(err, ledger.ErrMissingAddress):
		respondError(w, http.StatusUnprocessableEntity, "missing_address", err.Error())
	case errors.Is(err, journal.ErrRecordNotFound):
		respondError(w, http.StatusNotFound, "order_not_found", err.Error())
	case errors.Is(err, journal.ErrIllegalTransition):
		respondError(w, http.StatusConflict, "illegal_transition", err.Error())
	case errors.As(err, &remoteErr):
		respondError(w, http.StatusBadGateway, "remote_failure", remoteErr.Message)
	default:
		log.Printf("internal error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
