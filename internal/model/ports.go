package model

import "context"

// ── Collaborator Port Interfaces ──
// The engine is implementable against these contracts; concrete
// implementations live in exchange/, execution/ and store/.

// MarketData retrieves bars and the current price for a product.
type MarketData interface {
	// FetchPeriods may return overlapping or duplicate bars in any order.
	FetchPeriods(ctx context.Context, productID string, tf Timeframe) ([]Period, error)

	// CurrentPrice returns the latest traded price.
	CurrentPrice(ctx context.Context, productID string) (float64, error)
}

// OrderVenue places, polls and cancels orders.
type OrderVenue interface {
	SubmitOrder(ctx context.Context, req OrderRequest) (Order, error)
	PollOrder(ctx context.Context, orderID string) (Order, error)
	CancelOrder(ctx context.Context, orderID string) error
}

// HistoryStore caches Period history. Correctness never depends on it.
type HistoryStore interface {
	// LoadHistory returns nil, nil when nothing is cached.
	LoadHistory(ctx context.Context, productID string, tf Timeframe) ([]Period, error)
	SaveHistory(ctx context.Context, productID string, tf Timeframe, periods []Period) error
}
