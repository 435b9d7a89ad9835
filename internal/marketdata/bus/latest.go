package bus

import (
	"context"
	"sync"
	"time"

	"github.com/gamesbykevin/TradingBot/internal/model"
)

// Latest keeps the most recent ticker per product.
type Latest struct {
	mu      sync.RWMutex
	tickers map[string]model.Ticker
}

// NewLatest creates an empty cache.
func NewLatest() *Latest {
	return &Latest{tickers: make(map[string]model.Ticker)}
}

// Update stores t unless an equal-or-newer ticker is already held.
func (l *Latest) Update(t model.Ticker) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.tickers[t.ProductID]; ok && t.Time.Before(cur.Time) {
		return
	}
	l.tickers[t.ProductID] = t
}

// Get returns the latest ticker for productID.
func (l *Latest) Get(productID string) (model.Ticker, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.tickers[productID]
	return t, ok
}

// Run consumes tickers until ctx is done or in is closed.
func (l *Latest) Run(ctx context.Context, in <-chan model.Ticker) {
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-in:
			if !ok {
				return
			}
			l.Update(t)
		}
	}
}

// overlay serves CurrentPrice from streamed tickers when fresh and falls
// back to the wrapped source otherwise.
type overlay struct {
	model.MarketData
	latest *Latest
	maxAge time.Duration
	now    func() time.Time
}

// WithLatest wraps md so CurrentPrice prefers tickers younger than maxAge.
func WithLatest(md model.MarketData, latest *Latest, maxAge time.Duration, now func() time.Time) model.MarketData {
	if now == nil {
		now = time.Now
	}
	return &overlay{MarketData: md, latest: latest, maxAge: maxAge, now: now}
}

func (o *overlay) CurrentPrice(ctx context.Context, productID string) (float64, error) {
	if t, ok := o.latest.Get(productID); ok && t.Price > 0 && o.now().Sub(t.Time) <= o.maxAge {
		return t.Price, nil
	}
	return o.MarketData.CurrentPrice(ctx, productID)
}
