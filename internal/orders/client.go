package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/storefront/cart-ledger/internal/domain"
	"github.com/storefront/cart-ledger/internal/ledger"
)

// Client submits orders to the remote order API over HTTP/JSON. A circuit
// breaker sits around the round trip so a dead order service fails fast
// instead of tying up checkout requests.
type Client struct {
	httpClient *http.Client
	baseURL    string
	breaker    *gobreaker.CircuitBreaker[*domain.OrderResult]
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	breaker := gobreaker.NewCircuitBreaker[*domain.OrderResult](gobreaker.Settings{
		Name:        "order-api",
		MaxRequests: 3,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL: baseURL,
		breaker: breaker,
	}
}

type submitOrderRequest struct {
	Items           []domain.OrderItem `json:"items"`
	ShippingAddress string             `json:"shipping_address"`
	PaymentMethod   string             `json:"payment_method"`
	TotalAmount     float64            `json:"total_amount"`
	Currency        string             `json:"currency"`
	IdempotencyKey  string             `json:"idempotency_key"`
}

type orderErrorResponse struct {
	Error string `json:"error"`
}

// SubmitOrder performs one POST to the order endpoint. Server-reported
// failures and transport failures both surface as *ledger.RemoteError; the
// caller decides whether to resubmit.
func (c *Client) SubmitOrder(ctx context.Context, order *domain.OrderSubmission) (*domain.OrderResult, error) {
	body, err := json.Marshal(submitOrderRequest{
		Items:           order.Items,
		ShippingAddress: order.ShippingAddress,
		PaymentMethod:   order.PaymentMethod,
		TotalAmount:     order.TotalAmount,
		Currency:        order.Currency,
		IdempotencyKey:  uuid.New().String(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order: %w", err)
	}

	result, err := c.breaker.Execute(func() (*domain.OrderResult, error) {
		return c.post(ctx, body)
	})
	if err != nil {
		var remoteErr *ledger.RemoteError
		if errors.As(err, &remoteErr) {
			return nil, err
		}
		// breaker open, or some other failure outside the round trip
		return nil, &ledger.RemoteError{Message: "order service unavailable", Err: err}
	}

	return result, nil
}

func (c *Client) post(ctx context.Context, body []byte) (*domain.OrderResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ledger.RemoteError{Message: "order service unreachable", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp orderErrorResponse
		message := fmt.Sprintf("order service returned status %d", resp.StatusCode)
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errResp); decodeErr == nil && errResp.Error != "" {
			message = errResp.Error
		}
		return nil, &ledger.RemoteError{Message: message}
	}

	var result domain.OrderResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ledger.RemoteError{Message: "order service returned an unreadable response", Err: err}
	}
	if result.OrderID == "" {
		return nil, &ledger.RemoteError{Message: "order service returned no order id"}
	}
	if result.Status == "" {
		result.Status = domain.OrderStatusPending
	}

	return &result, nil
}
