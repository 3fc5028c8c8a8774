package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

type contextKey string

const (
	cartKeyContextKey   contextKey = "cart_key"
	requestIDContextKey contextKey = "request_id"
)

// CartKeyMiddleware resolves which cart a request operates on. The original
// storefront bound one cart per browser; here the key comes from the
// X-Cart-Key header (in production this would come from the session).
func CartKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cartKey := r.Header.Get("X-Cart-Key")
		if cartKey == "" {
			respondError(w, http.StatusUnauthorized, "missing_cart_key", "X-Cart-Key header is required")
			return
		}

		ctx := context.WithValue(r.Context(), cartKeyContextKey, cartKey)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDMiddleware adds a unique request ID to each request
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = fmt.Sprintf("req-%d", time.Now().UnixNano())
		}

		ctx := context.WithValue(r.Context(), requestIDContextKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getCartKeyFromContext(ctx context.Context) string {
	if cartKey, ok := ctx.Value(cartKeyContextKey).(string); ok {
		return cartKey
	}
	return ""
}
