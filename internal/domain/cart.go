package domain

// ProductSnapshot is the read-only view of a product supplied by the catalog
// at mutation time. Stock is the last-known available quantity; the ledger
// validates quantity changes against it.
type ProductSnapshot struct {
	ID    int64   `json:"id"`
	Title string  `json:"title"`
	Price float64 `json:"price"`
	Stock int32   `json:"stock"`
}

// LineItem is one product plus the requested quantity inside the cart.
// Price and Stock are captured from the snapshot that was current when the
// item was added or last touched.
type LineItem struct {
	ProductID int64   `json:"product_id"`
	Title     string  `json:"title"`
	UnitPrice float64 `json:"price"`
	Stock     int32   `json:"stock"`
	Quantity  int32   `json:"quantity"`
}

// Subtotal returns price times quantity for this line.
func (li LineItem) Subtotal() float64 {
	return li.UnitPrice * float64(li.Quantity)
}

// Totals is the deterministic aggregate view of the cart: sum of quantities
// and the monetary total rounded to two decimal places.
type Totals struct {
	ItemCount int32   `json:"item_count"`
	Total     float64 `json:"total"`
}
