package model

import "time"

// Side is the order direction.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderStatus is the venue-reported order state, normalized.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusFilled    OrderStatus = "filled"
	StatusRejected  OrderStatus = "rejected"
	StatusCancelled OrderStatus = "cancelled"
)

// Terminal reports whether no further status change is expected.
func (s OrderStatus) Terminal() bool {
	return s == StatusFilled || s == StatusRejected || s == StatusCancelled
}

// OrderRequest is a market order submission. Buys spend Funds (quote
// currency); sells spend Size (base currency). Price is the reference price
// seen by the agent when the order was decided.
type OrderRequest struct {
	ClientOID string  `json:"client_oid"`
	ProductID string  `json:"product_id"`
	Side      Side    `json:"side"`
	Size      float64 `json:"size,omitempty"`
	Funds     float64 `json:"funds,omitempty"`
	Price     float64 `json:"price,omitempty"`
}

// Order is the venue's view of a submitted order. Numeric fields are kept as
// decimal strings exactly as the venue reports them.
type Order struct {
	ID           string      `json:"id"`
	ClientOID    string      `json:"client_oid"`
	ProductID    string      `json:"product_id"`
	Side         Side        `json:"side"`
	Status       OrderStatus `json:"status"`
	Price        string      `json:"price"`
	Size         string      `json:"size"`
	FilledSize   string      `json:"filled_size"`
	FillFees     string      `json:"fill_fees"`
	RejectReason string      `json:"reject_reason,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Filled reports whether the order is completely filled.
func (o *Order) Filled() bool { return o.Status == StatusFilled }

// Ticker is a last-trade price update for one product.
type Ticker struct {
	ProductID string    `json:"product_id"`
	Price     float64   `json:"price"`
	Time      time.Time `json:"time"`
}
