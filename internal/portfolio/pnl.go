package portfolio

import (
	"sync"
	"time"

	"github.com/gamesbykevin/TradingBot/internal/trade"
)

// ClosedTrade is a completed round trip for P&L accounting.
type ClosedTrade struct {
	TradeID   string       `json:"trade_id"`
	ProductID string       `json:"product_id"`
	Timeframe string       `json:"timeframe"`
	Result    trade.Result `json:"result"`
	Reason    trade.Reason `json:"reason"`
	Amount    float64      `json:"amount"` // signed, fees excluded
	Fees      float64      `json:"fees"`
	Finish    time.Time    `json:"finish"`
}

// Net is the signed result after fees.
func (c ClosedTrade) Net() float64 {
	return c.Amount - c.Fees
}

// FromSummary converts a closed trade summary.
func FromSummary(s trade.Summary) ClosedTrade {
	amount := s.Amount
	if s.Result == trade.ResultLose {
		amount = -amount
	}
	return ClosedTrade{
		TradeID:   s.ID,
		ProductID: s.ProductID,
		Timeframe: s.Timeframe,
		Result:    s.Result,
		Reason:    s.Reason,
		Amount:    amount,
		Fees:      s.BuyFee + s.SellFee,
		Finish:    s.Finish,
	}
}

// PnLTracker tracks realized P&L across every agent.
type PnLTracker struct {
	mu     sync.RWMutex
	trades []ClosedTrade

	wins     int
	losses   int
	realized float64 // signed amounts, fees excluded
	fees     float64

	perProduct map[string]float64
}

// NewPnLTracker creates a new P&L tracker.
func NewPnLTracker() *PnLTracker {
	return &PnLTracker{
		trades:     make([]ClosedTrade, 0, 500),
		perProduct: make(map[string]float64),
	}
}

// RecordTrade adds a closed trade and returns its net result.
func (p *PnLTracker) RecordTrade(s trade.Summary) float64 {
	c := FromSummary(s)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.trades = append(p.trades, c)
	switch c.Result {
	case trade.ResultWin:
		p.wins++
	case trade.ResultLose:
		p.losses++
	}
	p.realized += c.Amount
	p.fees += c.Fees
	p.perProduct[c.ProductID] += c.Net()
	return c.Net()
}

// GetTrades returns a snapshot of all closed trades.
func (p *PnLTracker) GetTrades() []ClosedTrade {
	p.mu.RLock()
	defer p.mu.RUnlock()
	cp := make([]ClosedTrade, len(p.trades))
	copy(cp, p.trades)
	return cp
}

// PnLSummary is the aggregate result view.
type PnLSummary struct {
	Wins        int                `json:"wins"`
	Losses      int                `json:"losses"`
	TotalTrades int                `json:"total_trades"`
	Realized    float64            `json:"realized"`
	Fees        float64            `json:"fees"`
	Net         float64            `json:"net"`
	PerProduct  map[string]float64 `json:"per_product"`
}

// GetSummary returns the current P&L summary.
func (p *PnLTracker) GetSummary() PnLSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	per := make(map[string]float64, len(p.perProduct))
	for k, v := range p.perProduct {
		per[k] = v
	}
	return PnLSummary{
		Wins:        p.wins,
		Losses:      p.losses,
		TotalTrades: len(p.trades),
		Realized:    p.realized,
		Fees:        p.fees,
		Net:         p.realized - p.fees,
		PerProduct:  per,
	}
}
