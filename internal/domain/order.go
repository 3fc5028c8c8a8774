package domain

import "time"

// OrderItem is one line of an order submission.
type OrderItem struct {
	ProductID int64   `json:"product_id"`
	Quantity  int32   `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// OrderSubmission is the ephemeral value handed to the remote order API at
// checkout time. It is never persisted locally; ownership transfers to the
// remote system on success.
type OrderSubmission struct {
	Items           []OrderItem `json:"items"`
	ShippingAddress string      `json:"shipping_address"`
	PaymentMethod   string      `json:"payment_method"`
	TotalAmount     float64     `json:"total_amount"`
	Currency        string      `json:"currency"`
	CapturedAt      time.Time   `json:"captured_at"`
}

// OrderResult is the remote system's response to a successful submission.
type OrderResult struct {
	OrderID string      `json:"order_id"`
	Status  OrderStatus `json:"status"`
}
